// Package domain provides the session entity.
package domain

import (
	"time"

	"github.com/google/uuid"
)

// Session binds an issued token pair to a user and the device that created
// it. At rest every string field is encrypted under the user's DEK; uid and
// session_id lookups work because encryption under a fixed keyset is
// deterministic. A session is usable while is_revoked is false and its
// stored id_token matches the presented one.
type Session struct {
	UID          string
	SessionID    string
	Email        string
	UserAgent    string
	IDToken      string
	RefreshToken string
	IsRevoked    bool
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// NewSession creates a session with a fresh opaque session id.
func NewSession(uid, email, userAgent, idToken, refreshToken string) *Session {
	now := time.Now().UTC()
	return &Session{
		UID:          uid,
		SessionID:    uuid.NewString(),
		Email:        email,
		UserAgent:    userAgent,
		IDToken:      idToken,
		RefreshToken: refreshToken,
		IsRevoked:    false,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
}

// TokenPair is a freshly minted id and refresh token.
type TokenPair struct {
	IDToken      string
	RefreshToken string
}
