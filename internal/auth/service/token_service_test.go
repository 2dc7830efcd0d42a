package service

import (
	"crypto/rand"
	"crypto/rsa"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/allisson/flexauth/internal/errors"
	userDomain "github.com/allisson/flexauth/internal/user/domain"
)

func newTestTokenService(t *testing.T) *RS256TokenService {
	t.Helper()
	key, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)
	return NewRS256TokenService(key, "http://localhost:8080")
}

func testUser() *userDomain.User {
	return &userDomain.User{
		UID:           "user-123",
		Name:          "Alice",
		Email:         "alice@example.com",
		Role:          "user",
		EmailVerified: true,
		IsActive:      true,
	}
}

func TestRS256TokenService_SignAndVerifyID(t *testing.T) {
	service := newTestTokenService(t)

	t.Run("Fresh token", func(t *testing.T) {
		token, err := service.SignID(testUser())
		require.NoError(t, err)

		claims, fresh, err := service.VerifyID(token)
		require.NoError(t, err)
		assert.True(t, fresh)
		assert.Equal(t, "user-123", claims.UID)
		assert.Equal(t, "Alice", claims.Data["display_name"])
		assert.Equal(t, "user", claims.Data["role"])
		assert.Equal(t, "true", claims.Data["is_active"])
		assert.Equal(t, "true", claims.Data["is_email_verified"])
	})

	t.Run("Expired token still yields claims", func(t *testing.T) {
		service.now = func() time.Time { return time.Now().Add(-2 * time.Hour) }
		token, err := service.SignID(testUser())
		require.NoError(t, err)
		service.now = time.Now

		claims, fresh, err := service.VerifyID(token)
		require.NoError(t, err)
		assert.False(t, fresh)
		assert.Equal(t, "user-123", claims.UID)
	})

	t.Run("Refresh token is not an id token", func(t *testing.T) {
		refresh, err := service.SignRefresh("user-123")
		require.NoError(t, err)

		_, _, err = service.VerifyID(refresh)
		assert.ErrorIs(t, err, errors.ErrTokenInvalid)
	})

	t.Run("Foreign signature is rejected", func(t *testing.T) {
		other := newTestTokenService(t)
		token, err := other.SignID(testUser())
		require.NoError(t, err)

		_, _, err = service.VerifyID(token)
		assert.ErrorIs(t, err, errors.ErrSignatureInvalid)
	})

	t.Run("Garbage token", func(t *testing.T) {
		_, _, err := service.VerifyID("not.a.token")
		assert.ErrorIs(t, err, errors.ErrTokenInvalid)
	})
}

func TestRS256TokenService_SignAndVerifyRefresh(t *testing.T) {
	service := newTestTokenService(t)

	t.Run("Valid refresh token", func(t *testing.T) {
		token, err := service.SignRefresh("user-123")
		require.NoError(t, err)

		claims, err := service.VerifyRefresh(token)
		require.NoError(t, err)
		assert.Equal(t, "user-123", claims.UID)
		assert.Equal(t, "get_new_id_token", claims.Scope)
	})

	t.Run("Expired refresh token is rejected", func(t *testing.T) {
		service.now = func() time.Time { return time.Now().Add(-46 * 24 * time.Hour) }
		token, err := service.SignRefresh("user-123")
		require.NoError(t, err)
		service.now = time.Now

		_, err = service.VerifyRefresh(token)
		assert.ErrorIs(t, err, errors.ErrExpiredSignature)
	})

	t.Run("Id token is not a refresh token", func(t *testing.T) {
		idToken, err := service.SignID(testUser())
		require.NoError(t, err)

		_, err = service.VerifyRefresh(idToken)
		assert.ErrorIs(t, err, errors.ErrTokenInvalid)
	})

	t.Run("Foreign signature is rejected", func(t *testing.T) {
		other := newTestTokenService(t)
		token, err := other.SignRefresh("user-123")
		require.NoError(t, err)

		_, err = service.VerifyRefresh(token)
		assert.ErrorIs(t, err, errors.ErrSignatureInvalid)
	})
}
