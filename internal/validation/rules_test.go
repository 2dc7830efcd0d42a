package validation_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	apperrors "github.com/allisson/flexauth/internal/errors"
	"github.com/allisson/flexauth/internal/validation"
)

func TestIsEmail(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  bool
	}{
		{"Simple address", "user@example.com", true},
		{"Plus tag", "user+tag@example.com", true},
		{"Subdomain", "user@mail.example.co.uk", true},
		{"UUID is not an email", "550e8400-e29b-41d4-a716-446655440000", false},
		{"Missing domain", "user@", false},
		{"Missing local part", "@example.com", false},
		{"No tld", "user@example", false},
		{"Empty", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, validation.IsEmail(tt.input))
		})
	}
}

func TestValidPassword(t *testing.T) {
	assert.True(t, validation.ValidPassword("password1"))
	assert.True(t, validation.ValidPassword("1234567a"))
	assert.False(t, validation.ValidPassword("short1"))
	assert.False(t, validation.ValidPassword("lettersonly"))
	assert.False(t, validation.ValidPassword("12345678"))
}

func TestWrapValidationError(t *testing.T) {
	t.Run("Nil stays nil", func(t *testing.T) {
		assert.NoError(t, validation.WrapValidationError(nil))
	})

	t.Run("Wraps as invalid payload", func(t *testing.T) {
		err := validation.WrapValidationError(assert.AnError)
		assert.ErrorIs(t, err, apperrors.ErrInvalidPayload)
	})
}

func TestRules(t *testing.T) {
	t.Run("Email rule", func(t *testing.T) {
		assert.NoError(t, validation.Email.Validate("user@example.com"))
		assert.Error(t, validation.Email.Validate("not-an-email"))
	})

	t.Run("NotBlank rule", func(t *testing.T) {
		assert.NoError(t, validation.NotBlank.Validate("value"))
		assert.Error(t, validation.NotBlank.Validate("   "))

		// String rules skip empty values; the dtos pair NotBlank with
		// Required, which is what rejects "".
		assert.NoError(t, validation.NotBlank.Validate(""))
	})

	t.Run("Password rule", func(t *testing.T) {
		assert.NoError(t, validation.Password.Validate("password1"))
		assert.Error(t, validation.Password.Validate("weak"))
	})
}
