// Package dto provides data transfer objects for the session endpoints.
package dto

import (
	validation "github.com/jellydator/validation"

	customValidation "github.com/allisson/flexauth/internal/validation"
)

// VerifyRequest contains the id token to validate.
type VerifyRequest struct {
	Token string `json:"token"`
}

// Validate checks if the verify request is valid.
func (r *VerifyRequest) Validate() error {
	return validation.ValidateStruct(r,
		validation.Field(&r.Token, validation.Required, customValidation.NotBlank),
	)
}

// RefreshRequest contains the parameters for rotating a session's tokens.
type RefreshRequest struct {
	UID          string `json:"uid"`
	SessionID    string `json:"session_id"`
	IDToken      string `json:"id_token"`
	RefreshToken string `json:"refresh_token"`
}

// Validate checks if the refresh request is valid.
func (r *RefreshRequest) Validate() error {
	return validation.ValidateStruct(r,
		validation.Field(&r.UID, validation.Required, customValidation.NotBlank),
		validation.Field(&r.SessionID, validation.Required, customValidation.NotBlank),
		validation.Field(&r.IDToken, validation.Required, customValidation.NotBlank),
		validation.Field(&r.RefreshToken, validation.Required, customValidation.NotBlank),
	)
}

// SessionRefRequest identifies one session of a user.
type SessionRefRequest struct {
	UID       string `json:"uid"`
	SessionID string `json:"session_id"`
}

// Validate checks if the session reference is valid.
func (r *SessionRefRequest) Validate() error {
	return validation.ValidateStruct(r,
		validation.Field(&r.UID, validation.Required, customValidation.NotBlank),
		validation.Field(&r.SessionID, validation.Required, customValidation.NotBlank),
	)
}

// UIDRequest identifies a user for bulk session operations.
type UIDRequest struct {
	UID string `json:"uid"`
}

// Validate checks if the uid request is valid.
func (r *UIDRequest) Validate() error {
	return validation.ValidateStruct(r,
		validation.Field(&r.UID, validation.Required, customValidation.NotBlank),
	)
}
