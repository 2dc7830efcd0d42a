// Package http provides the HTTP handlers for the session endpoints.
package http

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	apperrors "github.com/allisson/flexauth/internal/errors"
	"github.com/allisson/flexauth/internal/httputil"
	"github.com/allisson/flexauth/internal/session/http/dto"
	sessionUseCase "github.com/allisson/flexauth/internal/session/usecase"
	customValidation "github.com/allisson/flexauth/internal/validation"
)

// SessionHandler handles session verification, refresh and administration.
type SessionHandler struct {
	manager sessionUseCase.Manager
	logger  *slog.Logger
}

// NewSessionHandler creates a new session handler.
func NewSessionHandler(manager sessionUseCase.Manager, logger *slog.Logger) *SessionHandler {
	return &SessionHandler{
		manager: manager,
		logger:  logger,
	}
}

// VerifyHandler validates an id token against its stored session.
// POST /api/session/verify
func (h *SessionHandler) VerifyHandler(c *gin.Context) {
	var req dto.VerifyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httputil.HandleBadRequestGin(c, err, h.logger)
		return
	}
	if err := req.Validate(); err != nil {
		httputil.HandleErrorGin(c, customValidation.WrapValidationError(err), h.logger)
		return
	}

	claims, fresh, err := h.manager.Verify(c.Request.Context(), req.Token)
	if err != nil {
		httputil.HandleErrorGin(c, err, h.logger)
		return
	}

	c.JSON(http.StatusOK, dto.MapVerifyResponse(claims, fresh))
}

// RefreshHandler rotates the token pair of a stale session.
// POST /api/session/refresh-session
func (h *SessionHandler) RefreshHandler(c *gin.Context) {
	var req dto.RefreshRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httputil.HandleBadRequestGin(c, err, h.logger)
		return
	}
	if err := req.Validate(); err != nil {
		httputil.HandleErrorGin(c, customValidation.WrapValidationError(err), h.logger)
		return
	}

	userAgent := c.GetHeader("User-Agent")
	if userAgent == "" {
		httputil.HandleErrorGin(c,
			apperrors.Wrap(apperrors.ErrInvalidUserAgent, "missing User-Agent header"),
			h.logger,
		)
		return
	}

	pair, err := h.manager.Refresh(
		c.Request.Context(),
		req.UID, req.SessionID, req.IDToken, req.RefreshToken, userAgent,
	)
	if err != nil {
		httputil.HandleErrorGin(c, err, h.logger)
		return
	}

	c.JSON(http.StatusOK, dto.MapTokenPairResponse(pair))
}

// RevokeHandler marks one session revoked.
// POST /api/session/revoke
func (h *SessionHandler) RevokeHandler(c *gin.Context) {
	h.sessionRef(c, h.manager.Revoke, "session revoked")
}

// DeleteHandler removes one session record.
// POST /api/session/delete
func (h *SessionHandler) DeleteHandler(c *gin.Context) {
	h.sessionRef(c, h.manager.Delete, "session deleted")
}

// RevokeAllHandler marks every session of a user revoked.
// POST /api/session/revoke-all
func (h *SessionHandler) RevokeAllHandler(c *gin.Context) {
	h.uidOp(c, h.manager.RevokeAll, "sessions revoked")
}

// DeleteAllHandler removes every session of a user.
// POST /api/session/delete-all
func (h *SessionHandler) DeleteAllHandler(c *gin.Context) {
	h.uidOp(c, h.manager.DeleteAll, "sessions deleted")
}

// GetDetailsHandler returns one session decrypted.
// POST /api/session/get-details
func (h *SessionHandler) GetDetailsHandler(c *gin.Context) {
	var req dto.SessionRefRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httputil.HandleBadRequestGin(c, err, h.logger)
		return
	}
	if err := req.Validate(); err != nil {
		httputil.HandleErrorGin(c, customValidation.WrapValidationError(err), h.logger)
		return
	}

	session, err := h.manager.GetDetails(c.Request.Context(), req.UID, req.SessionID)
	if err != nil {
		httputil.HandleErrorGin(c, err, h.logger)
		return
	}

	c.JSON(http.StatusOK, dto.MapSessionResponse(session))
}

// GetAllFromUIDHandler lists a user's sessions decrypted.
// POST /api/session/get-all-from-uid
func (h *SessionHandler) GetAllFromUIDHandler(c *gin.Context) {
	var req dto.UIDRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httputil.HandleBadRequestGin(c, err, h.logger)
		return
	}
	if err := req.Validate(); err != nil {
		httputil.HandleErrorGin(c, customValidation.WrapValidationError(err), h.logger)
		return
	}

	sessions, err := h.manager.GetAllForUID(c.Request.Context(), req.UID)
	if err != nil {
		httputil.HandleErrorGin(c, err, h.logger)
		return
	}

	c.JSON(http.StatusOK, dto.MapSessionListResponse(sessions))
}

// GetAllHandler lists every session, fields still encrypted, ordered by
// creation time.
// GET /api/session/get-all
func (h *SessionHandler) GetAllHandler(c *gin.Context) {
	sessions, err := h.manager.GetAll(c.Request.Context())
	if err != nil {
		httputil.HandleErrorGin(c, err, h.logger)
		return
	}

	c.JSON(http.StatusOK, dto.MapSessionListResponse(sessions))
}

func (h *SessionHandler) sessionRef(
	c *gin.Context,
	op func(ctx context.Context, uid, sessionID string) error,
	message string,
) {
	var req dto.SessionRefRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httputil.HandleBadRequestGin(c, err, h.logger)
		return
	}
	if err := req.Validate(); err != nil {
		httputil.HandleErrorGin(c, customValidation.WrapValidationError(err), h.logger)
		return
	}

	if err := op(c.Request.Context(), req.UID, req.SessionID); err != nil {
		httputil.HandleErrorGin(c, err, h.logger)
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": message})
}

func (h *SessionHandler) uidOp(
	c *gin.Context,
	op func(ctx context.Context, uid string) error,
	message string,
) {
	var req dto.UIDRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httputil.HandleBadRequestGin(c, err, h.logger)
		return
	}
	if err := req.Validate(); err != nil {
		httputil.HandleErrorGin(c, customValidation.WrapValidationError(err), h.logger)
		return
	}

	if err := op(c.Request.Context(), req.UID); err != nil {
		httputil.HandleErrorGin(c, err, h.logger)
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": message})
}
