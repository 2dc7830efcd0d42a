// Package usecase implements the sign-up, sign-in and sign-out flows that
// tie users, DEK records and sessions together.
package usecase

import (
	"context"

	cryptoDomain "github.com/allisson/flexauth/internal/crypto/domain"
	sessionDomain "github.com/allisson/flexauth/internal/session/domain"
	userDomain "github.com/allisson/flexauth/internal/user/domain"
)

// DekRepository stores and resolves per-user DEK records.
type DekRepository interface {
	Put(ctx context.Context, uid, email, dek string) error
	Get(ctx context.Context, identifier string) (*cryptoDomain.DekRecord, error)
}

// UserRepository persists user records with DEK-encrypted fields.
type UserRepository interface {
	Insert(ctx context.Context, user *userDomain.User, dek string) error
	GetByUID(ctx context.Context, uid, dek string) (*userDomain.User, error)
}

// AttemptTracker maintains the failed sign-in counter.
type AttemptTracker interface {
	IncreaseFailedLoginAttempts(ctx context.Context, email string) (int, error)
	ResetFailedLoginAttempts(ctx context.Context, email string) error
}

// SessionStarter creates and revokes sessions.
type SessionStarter interface {
	Create(ctx context.Context, user *userDomain.User, dek, userAgent string) (*sessionDomain.Session, error)
	Revoke(ctx context.Context, uid, sessionID string) error
}

// AuthResponse bundles the user and its new session. The session carries
// plaintext tokens and the encrypted session id.
type AuthResponse struct {
	User    *userDomain.User
	Session *sessionDomain.Session
}

// Coordinator is the authentication surface.
type Coordinator interface {
	// SignUp creates the user, its DEK record and an initial session.
	// Fails with ErrUserAlreadyExists when the email is taken.
	SignUp(ctx context.Context, name, email, role, password, userAgent string) (*AuthResponse, error)

	// SignIn verifies the password and creates a new session. A failed
	// attempt bumps the lockout counter; success resets it.
	SignIn(ctx context.Context, email, password, userAgent string) (*AuthResponse, error)

	// SignOut revokes one session.
	SignOut(ctx context.Context, uid, sessionID string) error
}
