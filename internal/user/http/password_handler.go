package http

import (
	"fmt"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/allisson/flexauth/internal/httputil"
	"github.com/allisson/flexauth/internal/user/http/dto"
	userUseCase "github.com/allisson/flexauth/internal/user/usecase"
	customValidation "github.com/allisson/flexauth/internal/validation"
)

// PasswordHandler handles the password change and reset flows.
type PasswordHandler struct {
	useCase userUseCase.UseCase
	logger  *slog.Logger
}

// NewPasswordHandler creates a new password handler.
func NewPasswordHandler(useCase userUseCase.UseCase, logger *slog.Logger) *PasswordHandler {
	return &PasswordHandler{
		useCase: useCase,
		logger:  logger,
	}
}

// ResetHandler changes a password with knowledge of the old one.
// POST /api/password/reset
func (h *PasswordHandler) ResetHandler(c *gin.Context) {
	var req dto.ResetPasswordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httputil.HandleBadRequestGin(c, err, h.logger)
		return
	}
	if err := req.Validate(); err != nil {
		httputil.HandleErrorGin(c, customValidation.WrapValidationError(err), h.logger)
		return
	}

	err := h.useCase.ChangePassword(c.Request.Context(), req.Email, req.OldPassword, req.NewPassword)
	if err != nil {
		httputil.HandleErrorGin(c, err, h.logger)
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "password changed"})
}

// ForgetRequestHandler creates a single-use reset request and mails the link.
// POST /api/password/forget-request
func (h *PasswordHandler) ForgetRequestHandler(c *gin.Context) {
	var req dto.EmailRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httputil.HandleBadRequestGin(c, err, h.logger)
		return
	}
	if err := req.Validate(); err != nil {
		httputil.HandleErrorGin(c, customValidation.WrapValidationError(err), h.logger)
		return
	}

	if err := h.useCase.RequestPasswordReset(c.Request.Context(), req.Email); err != nil {
		httputil.HandleErrorGin(c, err, h.logger)
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "password reset email sent"})
}

// ForgetResetHandler applies a password reset link.
// POST /api/password/forget-reset/:id
func (h *PasswordHandler) ForgetResetHandler(c *gin.Context) {
	reqID := c.Param("id")

	var req dto.ForgetPasswordResetRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httputil.HandleBadRequestGin(c, err, h.logger)
		return
	}
	if err := req.Validate(); err != nil {
		httputil.HandleErrorGin(c, customValidation.WrapValidationError(err), h.logger)
		return
	}

	err := h.useCase.ApplyPasswordReset(c.Request.Context(), reqID, req.Email, req.Password)
	if err != nil {
		httputil.HandleErrorGin(c, err, h.logger)
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "password reset"})
}

// ForgetFormHandler serves the minimal HTML form behind the emailed reset
// link. It posts to the forget-reset endpoint with the link's request id and
// needs no API key, since it is opened from a mail client.
// GET /api/password/forget-form/:id
func (h *PasswordHandler) ForgetFormHandler(c *gin.Context) {
	reqID := c.Param("id")

	page := fmt.Sprintf(forgetFormTemplate, reqID)
	c.Data(http.StatusOK, "text/html; charset=utf-8", []byte(page))
}

const forgetFormTemplate = `<!DOCTYPE html>
<html>
<head><title>Reset your password</title></head>
<body>
  <h1>Reset your password</h1>
  <form id="reset-form">
    <label>Email <input type="email" name="email" required></label><br>
    <label>New password <input type="password" name="password" minlength="8" required></label><br>
    <button type="submit">Reset password</button>
  </form>
  <p id="result"></p>
  <script>
    document.getElementById("reset-form").addEventListener("submit", async function (e) {
      e.preventDefault();
      const form = new FormData(e.target);
      const res = await fetch("/api/password/forget-reset/%s", {
        method: "POST",
        headers: {"Content-Type": "application/json"},
        body: JSON.stringify({email: form.get("email"), password: form.get("password")})
      });
      const body = await res.json();
      document.getElementById("result").textContent =
        res.ok ? body.message : (body.error ? body.error.type : "request failed");
    });
  </script>
</body>
</html>`
