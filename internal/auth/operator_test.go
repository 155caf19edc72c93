package auth

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	domainerrors "github.com/quillpost/quillpost-server/internal/errors"
)

func TestOperator_Check(t *testing.T) {
	op, err := NewOperator("admin", "correct horse")
	require.NoError(t, err)
	require.True(t, op.Configured())

	tests := []struct {
		name     string
		username string
		password string
		want     bool
	}{
		{"match", "admin", "correct horse", true},
		{"wrong password", "admin", "battery staple", false},
		{"wrong username", "root", "correct horse", false},
		{"both wrong", "root", "nope", false},
		{"empty", "", "", false},
		{"case matters", "Admin", "correct horse", false},
		{"oversized password", "admin", strings.Repeat("p", maxPasswordLength+1), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ok, err := op.Check(tt.username, tt.password)
			require.NoError(t, err)
			assert.Equal(t, tt.want, ok)
		})
	}
}

func TestOperator_NotConfigured(t *testing.T) {
	for _, creds := range [][2]string{{"", ""}, {"admin", ""}, {"", "pw"}, {"  \t", "pw"}, {"admin", " \n"}} {
		op, err := NewOperator(creds[0], creds[1])
		require.NoError(t, err)
		assert.False(t, op.Configured())

		ok, err := op.Check("admin", "pw")
		assert.False(t, ok)
		assert.True(t, domainerrors.Is(err, domainerrors.ErrConfiguration))
	}
}

func TestNewOperator_RejectsOversizedPassword(t *testing.T) {
	_, err := NewOperator("admin", strings.Repeat("p", maxPasswordLength+1))
	assert.Error(t, err)
}

func TestNewOperator_TrimsConfiguredCredentials(t *testing.T) {
	op, err := NewOperator(" admin\t", "s3cret-pass\n")
	require.NoError(t, err)
	require.True(t, op.Configured())

	ok, err := op.Check("admin", "s3cret-pass")
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = op.Check("admin", "s3cret-pass\n")
	require.NoError(t, err)
	assert.False(t, ok)
}
