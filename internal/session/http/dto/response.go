package dto

import (
	"time"

	authService "github.com/allisson/flexauth/internal/auth/service"
	sessionDomain "github.com/allisson/flexauth/internal/session/domain"
)

// VerifyResponse carries the claims of a validated id token.
type VerifyResponse struct {
	Message string            `json:"message"`
	UID     string            `json:"uid"`
	Fresh   bool              `json:"fresh"`
	Data    map[string]string `json:"data"`
}

// MapVerifyResponse converts verified claims to their API shape.
func MapVerifyResponse(claims *authService.IDClaims, fresh bool) VerifyResponse {
	return VerifyResponse{
		Message: "token verified",
		UID:     claims.UID,
		Fresh:   fresh,
		Data:    claims.Data,
	}
}

// TokenPairResponse carries a freshly rotated token pair.
type TokenPairResponse struct {
	Message      string `json:"message"`
	IDToken      string `json:"id_token"`
	RefreshToken string `json:"refresh_token"`
}

// MapTokenPairResponse converts a rotated token pair to its API shape.
func MapTokenPairResponse(pair *sessionDomain.TokenPair) TokenPairResponse {
	return TokenPairResponse{
		Message:      "session refreshed",
		IDToken:      pair.IDToken,
		RefreshToken: pair.RefreshToken,
	}
}

// SessionResponse is one session in listing responses. For decrypted
// listings the fields are plaintext; for the global listing they remain
// ciphertexts.
type SessionResponse struct {
	UID       string    `json:"uid"`
	SessionID string    `json:"session_id"`
	Email     string    `json:"email"`
	UserAgent string    `json:"user_agent"`
	IsRevoked bool      `json:"is_revoked"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// MapSessionResponse converts one session to its API shape.
func MapSessionResponse(session *sessionDomain.Session) SessionResponse {
	return SessionResponse{
		UID:       session.UID,
		SessionID: session.SessionID,
		Email:     session.Email,
		UserAgent: session.UserAgent,
		IsRevoked: session.IsRevoked,
		CreatedAt: session.CreatedAt,
		UpdatedAt: session.UpdatedAt,
	}
}

// SessionListResponse wraps a session listing.
type SessionListResponse struct {
	Sessions []SessionResponse `json:"sessions"`
}

// MapSessionListResponse converts sessions to their API shape. Tokens are
// never included in listings.
func MapSessionListResponse(sessions []sessionDomain.Session) SessionListResponse {
	out := SessionListResponse{Sessions: make([]SessionResponse, 0, len(sessions))}
	for i := range sessions {
		out.Sessions = append(out.Sessions, SessionResponse{
			UID:       sessions[i].UID,
			SessionID: sessions[i].SessionID,
			Email:     sessions[i].Email,
			UserAgent: sessions[i].UserAgent,
			IsRevoked: sessions[i].IsRevoked,
			CreatedAt: sessions[i].CreatedAt,
			UpdatedAt: sessions[i].UpdatedAt,
		})
	}
	return out
}
