package auth

import (
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"fmt"
	"strings"

	"golang.org/x/crypto/argon2"

	domainerrors "github.com/quillpost/quillpost-server/internal/errors"
)

// Argon2id parameters used to hold the operator password in memory.
const (
	argon2Memory      = 64 * 1024
	argon2Iterations  = 3
	argon2Parallelism = 4
	argon2SaltLength  = 16
	argon2KeyLength   = 32

	// Longer submissions are rejected without hashing.
	maxPasswordLength = 1024
)

// ErrCredentialsNotConfigured is returned when ADMIN_USERNAME or ADMIN_PASSWORD is unset.
var ErrCredentialsNotConfigured = domainerrors.Configuration("Admin credentials are not configured.")

// Operator holds the single administrator's credentials.
//
// The configured password is kept only as an argon2id digest, and every
// check hashes the attempt and compares in constant time, so response
// timing does not reveal which field was wrong.
type Operator struct {
	usernameDigest [sha256.Size]byte
	salt           []byte
	passwordHash   []byte
	configured     bool
}

// NewOperator prepares the credential check. Both values are trimmed the
// same way submitted credentials are. Empty username or password leaves the
// operator unconfigured; Check then reports ErrCredentialsNotConfigured.
func NewOperator(username, password string) (*Operator, error) {
	username = strings.TrimSpace(username)
	password = strings.TrimSpace(password)
	if username == "" || password == "" {
		return &Operator{}, nil
	}
	if len(password) > maxPasswordLength {
		return nil, fmt.Errorf("admin password exceeds %d bytes", maxPasswordLength)
	}

	salt := make([]byte, argon2SaltLength)
	if _, err := rand.Read(salt); err != nil {
		return nil, fmt.Errorf("failed to generate salt: %w", err)
	}

	return &Operator{
		usernameDigest: sha256.Sum256([]byte(username)),
		salt:           salt,
		passwordHash:   hashPassword(password, salt),
		configured:     true,
	}, nil
}

// Configured reports whether both credentials were supplied.
func (o *Operator) Configured() bool {
	return o.configured
}

// Check reports whether username and password match the operator.
func (o *Operator) Check(username, password string) (bool, error) {
	if !o.configured {
		return false, ErrCredentialsNotConfigured
	}
	if len(password) > maxPasswordLength {
		return false, nil
	}

	attempt := sha256.Sum256([]byte(username))
	userOK := subtle.ConstantTimeCompare(attempt[:], o.usernameDigest[:])
	passOK := subtle.ConstantTimeCompare(hashPassword(password, o.salt), o.passwordHash)

	return userOK&passOK == 1, nil
}

func hashPassword(password string, salt []byte) []byte {
	return argon2.IDKey([]byte(password), salt, argon2Iterations, argon2Memory, argon2Parallelism, argon2KeyLength)
}
