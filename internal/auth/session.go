// Package auth issues and verifies stateless admin session tokens.
package auth

import (
	"crypto/sha256"
	"fmt"
	"io"
	"time"

	"aidanwoods.dev/go-paseto"
	"golang.org/x/crypto/hkdf"

	"github.com/quillpost/quillpost-server/internal/domain"
	domainerrors "github.com/quillpost/quillpost-server/internal/errors"
	"github.com/quillpost/quillpost-server/internal/id"
)

const (
	// SessionTTL is fixed; there is no refresh, the operator logs in again.
	SessionTTL = 7 * 24 * time.Hour

	// MinSecretLength is the shortest secret accepted for signing, in bytes.
	MinSecretLength = 16

	tokenIssuer   = "quillpost"
	tokenAudience = "quillpost-admin"
	roleClaim     = "role"
	keyInfo       = "quillpost session v4.local"
)

// ErrSecretNotConfigured is returned by Issue when the secret is missing or too short.
var ErrSecretNotConfigured = domainerrors.Configurationf(
	"AUTH_SECRET is missing or shorter than %d bytes.", MinSecretLength)

// SessionCredential signs and verifies PASETO v4.local session tokens.
// The configured secret is only checked when a token is issued or
// verified, so a missing secret never blocks startup.
type SessionCredential struct {
	secret []byte
	now    func() time.Time
}

// Option configures a SessionCredential.
type Option func(*SessionCredential)

// WithClock replaces time.Now, for tests.
func WithClock(now func() time.Time) Option {
	return func(c *SessionCredential) {
		c.now = now
	}
}

// NewSessionCredential creates a credential bound to secret.
func NewSessionCredential(secret string, opts ...Option) *SessionCredential {
	c := &SessionCredential{
		secret: []byte(secret),
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Issue creates a token for subject with role admin, valid for SessionTTL.
func (c *SessionCredential) Issue(subject string) (string, time.Time, error) {
	key, err := c.key()
	if err != nil {
		return "", time.Time{}, err
	}

	jti, err := id.Generate("ses")
	if err != nil {
		return "", time.Time{}, domainerrors.Wrap(err, domainerrors.CodeInternal, "failed to generate token id")
	}

	now := c.now().UTC().Truncate(time.Second)
	expiresAt := now.Add(SessionTTL)

	token := paseto.NewToken()
	token.SetIssuer(tokenIssuer)
	token.SetAudience(tokenAudience)
	token.SetSubject(subject)
	token.SetJti(jti)
	token.SetIssuedAt(now)
	token.SetNotBefore(now)
	token.SetExpiration(expiresAt)
	token.SetString(roleClaim, domain.RoleAdmin)

	return token.V4Encrypt(key, nil), expiresAt, nil
}

// Verify returns the principal encoded in token. Any failure, including a
// missing secret, yields false; callers cannot tell the reasons apart.
func (c *SessionCredential) Verify(token string) (*domain.Principal, bool) {
	if token == "" {
		return nil, false
	}
	key, err := c.key()
	if err != nil {
		return nil, false
	}

	parser := paseto.NewParserWithoutExpiryCheck()
	parser.AddRule(paseto.ForAudience(tokenAudience))
	parser.AddRule(paseto.IssuedBy(tokenIssuer))
	parser.AddRule(paseto.ValidAt(c.now()))

	parsed, err := parser.ParseV4Local(key, token, nil)
	if err != nil {
		return nil, false
	}

	subject, err := parsed.GetSubject()
	if err != nil || subject == "" {
		return nil, false
	}
	role, err := parsed.GetString(roleClaim)
	if err != nil || role != domain.RoleAdmin {
		return nil, false
	}
	issuedAt, err := parsed.GetIssuedAt()
	if err != nil {
		return nil, false
	}
	expiresAt, err := parsed.GetExpiration()
	if err != nil {
		return nil, false
	}

	return &domain.Principal{
		Subject:   subject,
		Role:      role,
		IssuedAt:  issuedAt,
		ExpiresAt: expiresAt,
	}, true
}

// key stretches the secret into a 32-byte v4.local key with HKDF-SHA256.
func (c *SessionCredential) key() (paseto.V4SymmetricKey, error) {
	if len(c.secret) < MinSecretLength {
		return paseto.V4SymmetricKey{}, ErrSecretNotConfigured
	}

	raw := make([]byte, 32)
	if _, err := io.ReadFull(hkdf.New(sha256.New, c.secret, nil, []byte(keyInfo)), raw); err != nil {
		return paseto.V4SymmetricKey{}, fmt.Errorf("derive session key: %w", err)
	}

	key, err := paseto.V4SymmetricKeyFromBytes(raw)
	if err != nil {
		return paseto.V4SymmetricKey{}, fmt.Errorf("create session key: %w", err)
	}
	return key, nil
}
