// Package domain provides the user entity and its dependent request records.
package domain

import (
	"time"

	"github.com/google/uuid"
)

// Lockout escalation: reaching a threshold of consecutive failed sign-ins
// blocks the account for the mapped duration. Above the last threshold only
// the counter keeps rising.
var LockoutSchedule = map[int]time.Duration{
	5:  180 * time.Second,
	10: 600 * time.Second,
	15: 3600 * time.Second,
}

const (
	// ResetRequestTTL is how long a password reset link stays valid.
	ResetRequestTTL = 10 * time.Minute
	// VerificationRequestTTL is how long an email verification link stays valid.
	VerificationRequestTTL = 24 * time.Hour
)

// User is the identity record. Name, Email, Role and Password are encrypted
// under the user's DEK at rest; UID is an opaque identifier assigned at
// creation and never encrypted, so it can serve as the lookup key.
type User struct {
	UID                 string
	Name                string
	Email               string
	Role                string
	Password            string // composite credential "<sha256_hex>.<salt_b64>"
	EmailVerified       bool
	IsActive            bool
	FailedLoginAttempts int
	BlockedUntil        *time.Time
	CreatedAt           time.Time
	UpdatedAt           time.Time
}

// NewUser creates a user with a fresh uid and the default flags. The
// password must already be in stored-credential form.
func NewUser(name, email, role, credential string) *User {
	now := time.Now().UTC()
	return &User{
		UID:           uuid.NewString(),
		Name:          name,
		Email:         email,
		Role:          role,
		Password:      credential,
		EmailVerified: false,
		IsActive:      true,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
}

// Blocked reports whether the lockout window is still active at now.
func (u *User) Blocked(now time.Time) bool {
	return u.BlockedUntil != nil && u.BlockedUntil.After(now)
}

// ForgetPasswordRequest is a single-use password reset link. Email is
// encrypted under the user's DEK at rest.
type ForgetPasswordRequest struct {
	ID        string
	Email     string
	IsUsed    bool
	ValidTill time.Time
	CreatedAt time.Time
	UpdatedAt time.Time
}

// NewForgetPasswordRequest creates a reset request valid for ResetRequestTTL.
func NewForgetPasswordRequest(email string) *ForgetPasswordRequest {
	now := time.Now().UTC()
	return &ForgetPasswordRequest{
		ID:        uuid.NewString(),
		Email:     email,
		IsUsed:    false,
		ValidTill: now.Add(ResetRequestTTL),
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// EmailVerificationRequest is a pending email verification link. UID stays
// plaintext (it references User.UID); Email is encrypted under the DEK.
type EmailVerificationRequest struct {
	ReqID     string
	UID       string
	Email     string
	ExpiresAt time.Time
	CreatedAt time.Time
}

// NewEmailVerificationRequest creates a verification request valid for
// VerificationRequestTTL.
func NewEmailVerificationRequest(uid, email string) *EmailVerificationRequest {
	now := time.Now().UTC()
	return &EmailVerificationRequest{
		ReqID:     uuid.NewString(),
		UID:       uid,
		Email:     email,
		ExpiresAt: now.Add(VerificationRequestTTL),
		CreatedAt: now,
	}
}
