// Package http provides the HTTP handlers and middleware for the
// authentication endpoints.
package http

import (
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/allisson/flexauth/internal/auth/http/dto"
	authUseCase "github.com/allisson/flexauth/internal/auth/usecase"
	apperrors "github.com/allisson/flexauth/internal/errors"
	"github.com/allisson/flexauth/internal/httputil"
	customValidation "github.com/allisson/flexauth/internal/validation"
)

// AuthHandler handles sign-up, sign-in and sign-out requests.
type AuthHandler struct {
	coordinator authUseCase.Coordinator
	logger      *slog.Logger
}

// NewAuthHandler creates a new authentication handler.
func NewAuthHandler(coordinator authUseCase.Coordinator, logger *slog.Logger) *AuthHandler {
	return &AuthHandler{
		coordinator: coordinator,
		logger:      logger,
	}
}

// SignUpHandler creates a user with its DEK record and initial session.
// POST /api/auth/signup
func (h *AuthHandler) SignUpHandler(c *gin.Context) {
	var req dto.SignUpRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httputil.HandleBadRequestGin(c, err, h.logger)
		return
	}
	if err := req.Validate(); err != nil {
		httputil.HandleErrorGin(c, customValidation.WrapValidationError(err), h.logger)
		return
	}

	userAgent, err := requireUserAgent(c)
	if err != nil {
		httputil.HandleErrorGin(c, err, h.logger)
		return
	}

	response, err := h.coordinator.SignUp(
		c.Request.Context(),
		req.Name, req.Email, req.Role, req.Password, userAgent,
	)
	if err != nil {
		httputil.HandleErrorGin(c, err, h.logger)
		return
	}

	c.JSON(http.StatusOK, dto.MapAuthResponse("user created", response))
}

// SignInHandler verifies the password and creates a new session.
// POST /api/auth/signin
func (h *AuthHandler) SignInHandler(c *gin.Context) {
	var req dto.SignInRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httputil.HandleBadRequestGin(c, err, h.logger)
		return
	}
	if err := req.Validate(); err != nil {
		httputil.HandleErrorGin(c, customValidation.WrapValidationError(err), h.logger)
		return
	}

	userAgent, err := requireUserAgent(c)
	if err != nil {
		httputil.HandleErrorGin(c, err, h.logger)
		return
	}

	response, err := h.coordinator.SignIn(c.Request.Context(), req.Email, req.Password, userAgent)
	if err != nil {
		httputil.HandleErrorGin(c, err, h.logger)
		return
	}

	c.JSON(http.StatusOK, dto.MapAuthResponse("signed in", response))
}

// SignOutHandler revokes one session.
// POST /api/auth/signout
func (h *AuthHandler) SignOutHandler(c *gin.Context) {
	var req dto.SignOutRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httputil.HandleBadRequestGin(c, err, h.logger)
		return
	}
	if err := req.Validate(); err != nil {
		httputil.HandleErrorGin(c, customValidation.WrapValidationError(err), h.logger)
		return
	}

	if err := h.coordinator.SignOut(c.Request.Context(), req.UID, req.SessionID); err != nil {
		httputil.HandleErrorGin(c, err, h.logger)
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "signed out"})
}

// requireUserAgent extracts the User-Agent header that sessions are bound to.
func requireUserAgent(c *gin.Context) (string, error) {
	userAgent := c.GetHeader("User-Agent")
	if userAgent == "" {
		return "", apperrors.Wrap(apperrors.ErrInvalidUserAgent, "missing User-Agent header")
	}
	return userAgent, nil
}
