package service_test

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	authService "github.com/allisson/flexauth/internal/auth/service"
	"github.com/allisson/flexauth/internal/errors"
)

func TestArgon2PasswordService_ValidatePolicy(t *testing.T) {
	service := authService.NewArgon2PasswordService()

	tests := []struct {
		name     string
		password string
		wantErr  bool
	}{
		{"Valid password", "password1", false},
		{"Too short", "pass1", true},
		{"No digit", "passwordonly", true},
		{"No letter", "12345678", true},
		{"Empty", "", true},
		{"Exactly eight with letter and digit", "abcdefg1", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := service.ValidatePolicy(tt.password)
			if tt.wantErr {
				assert.ErrorIs(t, err, errors.ErrInvalidPassword)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestArgon2PasswordService_HashAndVerify(t *testing.T) {
	service := authService.NewArgon2PasswordService()

	t.Run("Credential shape", func(t *testing.T) {
		credential, err := service.Hash("password1")
		require.NoError(t, err)

		digest, salt, ok := strings.Cut(credential, ".")
		require.True(t, ok)
		assert.Len(t, digest, 64)
		assert.NotEmpty(t, salt)
	})

	t.Run("Verify accepts the right password", func(t *testing.T) {
		credential, err := service.Hash("password1")
		require.NoError(t, err)

		assert.True(t, service.Verify("password1", credential))
	})

	t.Run("Verify rejects the wrong password", func(t *testing.T) {
		credential, err := service.Hash("password1")
		require.NoError(t, err)

		assert.False(t, service.Verify("password2", credential))
	})

	t.Run("Verify rejects malformed credentials", func(t *testing.T) {
		assert.False(t, service.Verify("password1", "no-separator"))
		assert.False(t, service.Verify("password1", "digest.!!!not-base64!!!"))
	})

	t.Run("Salting makes hashes unique", func(t *testing.T) {
		first, err := service.Hash("password1")
		require.NoError(t, err)
		second, err := service.Hash("password1")
		require.NoError(t, err)

		assert.NotEqual(t, first, second)
	})
}
