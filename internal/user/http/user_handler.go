// Package http provides the HTTP handlers for the user administration,
// password and email verification endpoints.
package http

import (
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/allisson/flexauth/internal/httputil"
	"github.com/allisson/flexauth/internal/user/http/dto"
	userUseCase "github.com/allisson/flexauth/internal/user/usecase"
	customValidation "github.com/allisson/flexauth/internal/validation"
)

// UserHandler handles user administration and email verification requests.
type UserHandler struct {
	useCase userUseCase.UseCase
	logger  *slog.Logger
}

// NewUserHandler creates a new user handler.
func NewUserHandler(useCase userUseCase.UseCase, logger *slog.Logger) *UserHandler {
	return &UserHandler{
		useCase: useCase,
		logger:  logger,
	}
}

// GetAllHandler lists every user decrypted.
// GET /api/user/get-all
func (h *UserHandler) GetAllHandler(c *gin.Context) {
	users, err := h.useCase.GetAll(c.Request.Context())
	if err != nil {
		httputil.HandleErrorGin(c, err, h.logger)
		return
	}

	c.JSON(http.StatusOK, dto.MapUserListResponse(users))
}

// GetFromEmailHandler returns one user by email.
// POST /api/user/get-from-email
func (h *UserHandler) GetFromEmailHandler(c *gin.Context) {
	var req dto.EmailRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httputil.HandleBadRequestGin(c, err, h.logger)
		return
	}
	if err := req.Validate(); err != nil {
		httputil.HandleErrorGin(c, customValidation.WrapValidationError(err), h.logger)
		return
	}

	user, err := h.useCase.Get(c.Request.Context(), req.Email)
	if err != nil {
		httputil.HandleErrorGin(c, err, h.logger)
		return
	}

	c.JSON(http.StatusOK, dto.MapUserResponse(user))
}

// GetFromIDHandler returns one user by uid.
// POST /api/user/get-from-id
func (h *UserHandler) GetFromIDHandler(c *gin.Context) {
	var req dto.UIDRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httputil.HandleBadRequestGin(c, err, h.logger)
		return
	}
	if err := req.Validate(); err != nil {
		httputil.HandleErrorGin(c, customValidation.WrapValidationError(err), h.logger)
		return
	}

	user, err := h.useCase.Get(c.Request.Context(), req.UID)
	if err != nil {
		httputil.HandleErrorGin(c, err, h.logger)
		return
	}

	c.JSON(http.StatusOK, dto.MapUserResponse(user))
}

// UpdateHandler updates the display name and role of a user.
// POST /api/user/update
func (h *UserHandler) UpdateHandler(c *gin.Context) {
	var req dto.UpdateUserRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httputil.HandleBadRequestGin(c, err, h.logger)
		return
	}
	if err := req.Validate(); err != nil {
		httputil.HandleErrorGin(c, customValidation.WrapValidationError(err), h.logger)
		return
	}

	ctx := c.Request.Context()
	if err := h.useCase.UpdateName(ctx, req.Email, req.Name); err != nil {
		httputil.HandleErrorGin(c, err, h.logger)
		return
	}
	if err := h.useCase.UpdateRole(ctx, req.Email, req.Role); err != nil {
		httputil.HandleErrorGin(c, err, h.logger)
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "user updated"})
}

// UpdateRoleHandler updates only the role of a user.
// POST /api/user/update-role
func (h *UserHandler) UpdateRoleHandler(c *gin.Context) {
	var req dto.UpdateRoleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httputil.HandleBadRequestGin(c, err, h.logger)
		return
	}
	if err := req.Validate(); err != nil {
		httputil.HandleErrorGin(c, customValidation.WrapValidationError(err), h.logger)
		return
	}

	if err := h.useCase.UpdateRole(c.Request.Context(), req.Email, req.Role); err != nil {
		httputil.HandleErrorGin(c, err, h.logger)
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "role updated"})
}

// ToggleActivationHandler flips the account activation flag.
// POST /api/user/toggle-account-active-status
func (h *UserHandler) ToggleActivationHandler(c *gin.Context) {
	var req dto.ToggleActivationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httputil.HandleBadRequestGin(c, err, h.logger)
		return
	}
	if err := req.Validate(); err != nil {
		httputil.HandleErrorGin(c, customValidation.WrapValidationError(err), h.logger)
		return
	}

	if err := h.useCase.ToggleActivation(c.Request.Context(), req.Email, req.IsActive); err != nil {
		httputil.HandleErrorGin(c, err, h.logger)
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "activation status updated"})
}

// DeleteHandler removes a user with its DEK record and sessions.
// POST /api/user/delete
func (h *UserHandler) DeleteHandler(c *gin.Context) {
	var req dto.EmailRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httputil.HandleBadRequestGin(c, err, h.logger)
		return
	}
	if err := req.Validate(); err != nil {
		httputil.HandleErrorGin(c, customValidation.WrapValidationError(err), h.logger)
		return
	}

	if err := h.useCase.Delete(c.Request.Context(), req.Email); err != nil {
		httputil.HandleErrorGin(c, err, h.logger)
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "user deleted"})
}

// VerifyEmailRequestHandler creates a verification request and mails the link.
// POST /api/user/verify-email-request
func (h *UserHandler) VerifyEmailRequestHandler(c *gin.Context) {
	var req dto.EmailRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httputil.HandleBadRequestGin(c, err, h.logger)
		return
	}
	if err := req.Validate(); err != nil {
		httputil.HandleErrorGin(c, customValidation.WrapValidationError(err), h.logger)
		return
	}

	if err := h.useCase.RequestEmailVerification(c.Request.Context(), req.Email); err != nil {
		httputil.HandleErrorGin(c, err, h.logger)
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "verification email sent"})
}

// VerifyEmailHandler confirms a verification link.
// GET /api/user/verify-email/:id
func (h *UserHandler) VerifyEmailHandler(c *gin.Context) {
	reqID := c.Param("id")

	if err := h.useCase.ConfirmEmailVerification(c.Request.Context(), reqID); err != nil {
		httputil.HandleErrorGin(c, err, h.logger)
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "email verified"})
}
