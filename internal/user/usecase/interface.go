// Package usecase implements the user-facing business operations: profile
// reads and updates, lockout bookkeeping, password reset and email
// verification flows, and the cascading delete.
package usecase

import (
	"context"
	"time"

	cryptoDomain "github.com/allisson/flexauth/internal/crypto/domain"
	userDomain "github.com/allisson/flexauth/internal/user/domain"
)

// DekRepository resolves and manages per-user DEK records.
type DekRepository interface {
	Put(ctx context.Context, uid, email, dek string) error
	Get(ctx context.Context, identifier string) (*cryptoDomain.DekRecord, error)
	Delete(ctx context.Context, uid string) error
}

// UserRepository persists user records with DEK-encrypted fields.
type UserRepository interface {
	Insert(ctx context.Context, user *userDomain.User, dek string) error
	GetByUID(ctx context.Context, uid, dek string) (*userDomain.User, error)
	GetAllRaw(ctx context.Context) ([]userDomain.User, error)
	UpdateName(ctx context.Context, uid, nameEnc string) error
	UpdateRole(ctx context.Context, uid, roleEnc string) error
	UpdatePassword(ctx context.Context, uid, credentialEnc string) error
	SetActive(ctx context.Context, uid string, isActive bool) error
	SetEmailVerified(ctx context.Context, uid string) error
	IncrementFailedAttempts(ctx context.Context, uid string) (int, error)
	ResetFailedAttempts(ctx context.Context, uid string) error
	SetBlockedUntil(ctx context.Context, uid string, until time.Time) error
	Delete(ctx context.Context, uid string) error
}

// ResetRepository persists single-use password reset requests.
type ResetRepository interface {
	Insert(ctx context.Context, req *userDomain.ForgetPasswordRequest) error
	Get(ctx context.Context, id string) (*userDomain.ForgetPasswordRequest, error)
	Consume(ctx context.Context, id string) error
}

// VerificationRepository persists pending email verification requests.
type VerificationRepository interface {
	Insert(ctx context.Context, req *userDomain.EmailVerificationRequest) error
	Get(ctx context.Context, reqID string) (*userDomain.EmailVerificationRequest, error)
	Delete(ctx context.Context, reqID string) error
}

// SessionRemover removes every session of a user; implemented by the
// session manager and consumed here for the delete cascade. The DEK is
// passed in because the cascade removes the DEK record before the sessions,
// so it can no longer be resolved from the store.
type SessionRemover interface {
	DeleteAllForUID(ctx context.Context, uid, dek string) error
}

// UseCase is the user management surface.
type UseCase interface {
	// Get returns the decrypted user for an email or uid identifier.
	Get(ctx context.Context, identifier string) (*userDomain.User, error)

	// GetAll returns every user decrypted with its own DEK, skipping
	// records whose DEK is missing.
	GetAll(ctx context.Context) ([]userDomain.User, error)

	// UpdateName re-encrypts and stores a new display name.
	UpdateName(ctx context.Context, email, name string) error

	// UpdateRole re-encrypts and stores a new role.
	UpdateRole(ctx context.Context, email, role string) error

	// ToggleActivation flips the account activation flag.
	ToggleActivation(ctx context.Context, email string, isActive bool) error

	// ChangePassword verifies the old password and stores a rehash of the
	// new one. Fails with ErrInvalidPassword when old does not match.
	ChangePassword(ctx context.Context, email, oldPassword, newPassword string) error

	// IncreaseFailedLoginAttempts bumps the counter and applies the lockout
	// schedule; a threshold hit also dispatches a warning email.
	IncreaseFailedLoginAttempts(ctx context.Context, email string) (int, error)

	// ResetFailedLoginAttempts zeroes the counter after a successful sign-in.
	ResetFailedLoginAttempts(ctx context.Context, email string) error

	// RequestPasswordReset creates a 10 minute single-use reset request and
	// mails the link.
	RequestPasswordReset(ctx context.Context, email string) error

	// ApplyPasswordReset consumes the reset request and stores the new
	// password, then mails a confirmation.
	ApplyPasswordReset(ctx context.Context, reqID, email, newPassword string) error

	// RequestEmailVerification creates a 24 hour verification request and
	// mails the link.
	RequestEmailVerification(ctx context.Context, email string) error

	// ConfirmEmailVerification marks the email verified and deletes the request.
	ConfirmEmailVerification(ctx context.Context, reqID string) error

	// Delete removes the user, its DEK record and all of its sessions.
	Delete(ctx context.Context, email string) error
}
