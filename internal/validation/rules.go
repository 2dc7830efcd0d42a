// Package validation provides the request validation rules shared by all
// HTTP entry points.
package validation

import (
	"regexp"
	"strings"
	"unicode"

	validation "github.com/jellydator/validation"

	apperrors "github.com/allisson/flexauth/internal/errors"
)

// emailRegex is the identifier-dispatch pattern: a string matching it is
// treated as an email, anything else as a uid. Kept in sync with the DEK
// store lookup.
var emailRegex = regexp.MustCompile(`^[A-Za-z0-9_.+-]+@[A-Za-z0-9-]+\.[A-Za-z0-9-.]+$`)

// IsEmail reports whether s has the shape of an email address.
func IsEmail(s string) bool {
	return emailRegex.MatchString(s)
}

// WrapValidationError wraps validation errors as domain ErrInvalidPayload.
func WrapValidationError(err error) error {
	if err == nil {
		return nil
	}
	return apperrors.Wrap(apperrors.ErrInvalidPayload, err.Error())
}

// Email validates email format using the dispatch regex.
var Email = validation.NewStringRuleWithError(
	IsEmail,
	validation.NewError("validation_email_format", "must be a valid email address"),
)

// NotBlank rejects strings that are whitespace only. Empty strings are
// skipped by string-rule convention; pair with validation.Required.
var NotBlank = validation.NewStringRuleWithError(
	func(s string) bool {
		return strings.TrimSpace(s) != ""
	},
	validation.NewError("validation_not_blank", "must not be blank"),
)

// Password validates the password policy: at least 8 characters with at
// least one alphabetic character and one digit.
var Password = validation.NewStringRuleWithError(
	ValidPassword,
	validation.NewError(
		"validation_password_policy",
		"must be at least 8 characters with at least one letter and one digit",
	),
)

// ValidPassword reports whether password satisfies the policy.
func ValidPassword(password string) bool {
	if len(password) < 8 {
		return false
	}
	var hasAlpha, hasDigit bool
	for _, r := range password {
		switch {
		case unicode.IsLetter(r):
			hasAlpha = true
		case unicode.IsDigit(r):
			hasDigit = true
		}
	}
	return hasAlpha && hasDigit
}
