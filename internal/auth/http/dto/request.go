// Package dto provides data transfer objects for the authentication endpoints.
package dto

import (
	validation "github.com/jellydator/validation"

	customValidation "github.com/allisson/flexauth/internal/validation"
)

// SignUpRequest contains the parameters for creating a user.
type SignUpRequest struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Role     string `json:"role"`
	Password string `json:"password"`
}

// Validate checks if the sign-up request is valid.
func (r *SignUpRequest) Validate() error {
	return validation.ValidateStruct(r,
		validation.Field(&r.Name, validation.Required, customValidation.NotBlank),
		validation.Field(&r.Email, validation.Required, customValidation.Email),
		validation.Field(&r.Role, validation.Required, customValidation.NotBlank),
		validation.Field(&r.Password, validation.Required, customValidation.Password),
	)
}

// SignInRequest contains the parameters for a password sign-in.
type SignInRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// Validate checks if the sign-in request is valid.
func (r *SignInRequest) Validate() error {
	return validation.ValidateStruct(r,
		validation.Field(&r.Email, validation.Required, customValidation.Email),
		validation.Field(&r.Password, validation.Required, customValidation.NotBlank),
	)
}

// SignOutRequest contains the parameters for revoking one session.
type SignOutRequest struct {
	UID       string `json:"uid"`
	SessionID string `json:"session_id"`
}

// Validate checks if the sign-out request is valid.
func (r *SignOutRequest) Validate() error {
	return validation.ValidateStruct(r,
		validation.Field(&r.UID, validation.Required, customValidation.NotBlank),
		validation.Field(&r.SessionID, validation.Required, customValidation.NotBlank),
	)
}
