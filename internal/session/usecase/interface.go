// Package usecase implements the session state machine: creation, token
// verification with graceful expiry, the anti-replay refresh protocol,
// revocation and the bulk administration operations.
package usecase

import (
	"context"

	authService "github.com/allisson/flexauth/internal/auth/service"
	cryptoDomain "github.com/allisson/flexauth/internal/crypto/domain"
	sessionDomain "github.com/allisson/flexauth/internal/session/domain"
	userDomain "github.com/allisson/flexauth/internal/user/domain"
)

// DekResolver resolves per-user DEK records by email or uid.
type DekResolver interface {
	Get(ctx context.Context, identifier string) (*cryptoDomain.DekRecord, error)
}

// SessionRepository persists session records with DEK-encrypted fields.
type SessionRepository interface {
	Insert(ctx context.Context, session *sessionDomain.Session) error
	CountUsable(ctx context.Context, uidEnc, idTokenEnc string) (int64, error)
	GetActive(ctx context.Context, uidEnc, sessionIDEnc string) (*sessionDomain.Session, error)
	Get(ctx context.Context, uidEnc, sessionIDEnc string) (*sessionDomain.Session, error)
	RotateTokens(ctx context.Context, uidEnc, oldIDEnc, oldRefreshEnc, newIDEnc, newRefreshEnc string) error
	Revoke(ctx context.Context, uidEnc, sessionIDEnc string) error
	Delete(ctx context.Context, uidEnc, sessionIDEnc string) error
	GetAllRaw(ctx context.Context) ([]sessionDomain.Session, error)
	GetAllByUID(ctx context.Context, uidEnc string) ([]sessionDomain.Session, error)
	RevokeAll(ctx context.Context, uidEnc string) error
	DeleteAll(ctx context.Context, uidEnc string) error
}

// Manager is the session management surface. Session ids cross the API
// boundary in their DEK-encrypted form, so clients hold an opaque value that
// matches the stored one directly.
type Manager interface {
	// Create signs a fresh id+refresh pair and stores a new session for the
	// user and device. The returned session carries plaintext tokens and the
	// encrypted session id.
	Create(ctx context.Context, user *userDomain.User, dek, userAgent string) (*sessionDomain.Session, error)

	// Verify parses an id token. An expired token yields (claims, false)
	// without touching the store; a fresh one is additionally checked against
	// the store for revocation and must match exactly one usable session.
	Verify(ctx context.Context, idToken string) (*authService.IDClaims, bool, error)

	// Refresh rotates the token pair of a stale session. It refuses while
	// the id token is still fresh (ErrActiveSessionExists), binds the request
	// to the original device and treats any token mismatch or lost rotation
	// race as replay, revoking the session.
	Refresh(ctx context.Context, uid, sessionID, idToken, refreshToken, userAgent string) (*sessionDomain.TokenPair, error)

	// Revoke marks a single session revoked.
	Revoke(ctx context.Context, uid, sessionID string) error

	// Delete removes a single session record.
	Delete(ctx context.Context, uid, sessionID string) error

	// GetDetails returns one session decrypted.
	GetDetails(ctx context.Context, uid, sessionID string) (*sessionDomain.Session, error)

	// GetAll returns every session with fields still encrypted, sorted
	// ascending by creation time.
	GetAll(ctx context.Context) ([]sessionDomain.Session, error)

	// GetAllForUID returns the user's sessions decrypted, sorted ascending
	// by creation time.
	GetAllForUID(ctx context.Context, uid string) ([]sessionDomain.Session, error)

	// RevokeAll marks every session of the user revoked.
	RevokeAll(ctx context.Context, uid string) error

	// DeleteAll removes every session of the user.
	DeleteAll(ctx context.Context, uid string) error

	// DeleteAllForUID removes every session of the user with a caller
	// provided DEK, for cascades that already dropped the DEK record.
	DeleteAllForUID(ctx context.Context, uid, dek string) error
}
