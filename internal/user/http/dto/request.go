// Package dto provides data transfer objects for the user, password and
// email verification endpoints.
package dto

import (
	validation "github.com/jellydator/validation"

	customValidation "github.com/allisson/flexauth/internal/validation"
)

// EmailRequest identifies a user by email.
type EmailRequest struct {
	Email string `json:"email"`
}

// Validate checks if the email request is valid.
func (r *EmailRequest) Validate() error {
	return validation.ValidateStruct(r,
		validation.Field(&r.Email, validation.Required, customValidation.Email),
	)
}

// UIDRequest identifies a user by uid.
type UIDRequest struct {
	UID string `json:"uid"`
}

// Validate checks if the uid request is valid.
func (r *UIDRequest) Validate() error {
	return validation.ValidateStruct(r,
		validation.Field(&r.UID, validation.Required, customValidation.NotBlank),
	)
}

// UpdateUserRequest updates the display name (and role) of the user
// identified by email.
type UpdateUserRequest struct {
	Email string `json:"email"`
	Name  string `json:"name"`
	Role  string `json:"role"`
}

// Validate checks if the update request is valid.
func (r *UpdateUserRequest) Validate() error {
	return validation.ValidateStruct(r,
		validation.Field(&r.Email, validation.Required, customValidation.Email),
		validation.Field(&r.Name, validation.Required, customValidation.NotBlank),
		validation.Field(&r.Role, validation.Required, customValidation.NotBlank),
	)
}

// UpdateRoleRequest updates only the role.
type UpdateRoleRequest struct {
	Email string `json:"email"`
	Role  string `json:"role"`
}

// Validate checks if the role update request is valid.
func (r *UpdateRoleRequest) Validate() error {
	return validation.ValidateStruct(r,
		validation.Field(&r.Email, validation.Required, customValidation.Email),
		validation.Field(&r.Role, validation.Required, customValidation.NotBlank),
	)
}

// ToggleActivationRequest flips the account activation flag.
type ToggleActivationRequest struct {
	Email    string `json:"email"`
	IsActive bool   `json:"is_active"`
}

// Validate checks if the toggle request is valid.
func (r *ToggleActivationRequest) Validate() error {
	return validation.ValidateStruct(r,
		validation.Field(&r.Email, validation.Required, customValidation.Email),
	)
}

// ResetPasswordRequest changes a password with knowledge of the old one.
type ResetPasswordRequest struct {
	Email       string `json:"email"`
	OldPassword string `json:"old_password"`
	NewPassword string `json:"new_password"`
}

// Validate checks if the password change request is valid.
func (r *ResetPasswordRequest) Validate() error {
	return validation.ValidateStruct(r,
		validation.Field(&r.Email, validation.Required, customValidation.Email),
		validation.Field(&r.OldPassword, validation.Required, customValidation.NotBlank),
		validation.Field(&r.NewPassword, validation.Required, customValidation.Password),
	)
}

// ForgetPasswordResetRequest applies a password reset link.
type ForgetPasswordResetRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// Validate checks if the reset application is valid.
func (r *ForgetPasswordResetRequest) Validate() error {
	return validation.ValidateStruct(r,
		validation.Field(&r.Email, validation.Required, customValidation.Email),
		validation.Field(&r.Password, validation.Required, customValidation.Password),
	)
}
