package dto

import (
	"time"

	authUseCase "github.com/allisson/flexauth/internal/auth/usecase"
)

// SessionResponse is the session part of a sign-up or sign-in response. The
// session id is the DEK-encrypted opaque value clients present on refresh
// and revocation.
type SessionResponse struct {
	SessionID    string `json:"session_id"`
	IDToken      string `json:"id_token"`
	RefreshToken string `json:"refresh_token"`
}

// AuthResponse bundles the user fields and the new session.
type AuthResponse struct {
	Message       string          `json:"message"`
	UID           string          `json:"uid"`
	Name          string          `json:"name"`
	Email         string          `json:"email"`
	Role          string          `json:"role"`
	EmailVerified bool            `json:"email_verified"`
	IsActive      bool            `json:"is_active"`
	CreatedAt     time.Time       `json:"created_at"`
	UpdatedAt     time.Time       `json:"updated_at"`
	Session       SessionResponse `json:"session"`
}

// MapAuthResponse converts a use case auth response to its API shape.
func MapAuthResponse(message string, response *authUseCase.AuthResponse) AuthResponse {
	return AuthResponse{
		Message:       message,
		UID:           response.User.UID,
		Name:          response.User.Name,
		Email:         response.User.Email,
		Role:          response.User.Role,
		EmailVerified: response.User.EmailVerified,
		IsActive:      response.User.IsActive,
		CreatedAt:     response.User.CreatedAt,
		UpdatedAt:     response.User.UpdatedAt,
		Session: SessionResponse{
			SessionID:    response.Session.SessionID,
			IDToken:      response.Session.IDToken,
			RefreshToken: response.Session.RefreshToken,
		},
	}
}
