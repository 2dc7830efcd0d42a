// Package httputil maps domain errors to the uniform client error envelope
// and HTTP status codes at the request boundary.
package httputil

import (
	"log/slog"
	"net/http"

	"github.com/gin-contrib/requestid"
	"github.com/gin-gonic/gin"

	apperrors "github.com/allisson/flexauth/internal/errors"
)

// ErrorBody is the client-facing error envelope. The type tag identifies the
// error kind; req_uuid correlates the response with the server-side log line.
type ErrorBody struct {
	Type    string `json:"type"`
	ReqUUID string `json:"req_uuid"`
}

// ErrorResponse wraps the error envelope.
type ErrorResponse struct {
	Error ErrorBody `json:"error"`
}

type mapping struct {
	status int
	kind   string
}

// Error kinds surface in UPPER_SNAKE form, matching what API clients were
// built against.
var errorMappings = []struct {
	err error
	mapping
}{
	{apperrors.ErrInvalidPayload, mapping{http.StatusBadRequest, "INVALID_PAYLOAD"}},
	{apperrors.ErrInvalidEmail, mapping{http.StatusBadRequest, "INVALID_EMAIL"}},
	{apperrors.ErrInvalidUserAgent, mapping{http.StatusBadRequest, "INVALID_USER_AGENT"}},

	{apperrors.ErrUserNotFound, mapping{http.StatusNotFound, "USER_NOT_FOUND"}},
	{apperrors.ErrSessionNotFound, mapping{http.StatusNotFound, "SESSION_NOT_FOUND"}},
	{apperrors.ErrResetLinkNotFound, mapping{http.StatusNotFound, "RESET_LINK_NOT_FOUND"}},

	{apperrors.ErrUserAlreadyExists, mapping{http.StatusFound, "USER_ALREADY_EXISTS"}},

	{apperrors.ErrWrongCredentials, mapping{http.StatusUnauthorized, "WRONG_CREDENTIALS"}},
	{apperrors.ErrInvalidPassword, mapping{http.StatusUnauthorized, "INVALID_PASSWORD"}},
	{apperrors.ErrUserBlocked, mapping{http.StatusUnauthorized, "USER_BLOCKED"}},

	{apperrors.ErrTokenInvalid, mapping{http.StatusUnauthorized, "TOKEN_INVALID"}},
	{apperrors.ErrSignatureInvalid, mapping{http.StatusUnauthorized, "SIGNATURE_INVALID"}},
	{apperrors.ErrExpiredSignature, mapping{http.StatusUnauthorized, "EXPIRED_SIGNATURE"}},
	{apperrors.ErrSessionExpired, mapping{http.StatusUnauthorized, "SESSION_EXPIRED"}},

	{apperrors.ErrActiveSessionExists, mapping{http.StatusConflict, "ACTIVE_SESSION_EXISTS"}},

	{apperrors.ErrResetLinkExpired, mapping{http.StatusUnauthorized, "RESET_LINK_EXPIRED"}},
	{apperrors.ErrVerificationLinkExpired, mapping{http.StatusUnauthorized, "VERIFICATION_LINK_EXPIRED"}},

	{apperrors.ErrKeyNotFound, mapping{http.StatusInternalServerError, "KEY_NOT_FOUND"}},
	{apperrors.ErrCryptoFailure, mapping{http.StatusInternalServerError, "CRYPTO_FAILURE"}},
	{apperrors.ErrPartialDelete, mapping{http.StatusInternalServerError, "PARTIAL_DELETE"}},
}

// HandleErrorGin maps a domain error to its status code and writes the error
// envelope. The full error chain is logged with the request id; clients only
// see the kind.
func HandleErrorGin(c *gin.Context, err error, logger *slog.Logger) {
	if err == nil {
		return
	}

	m := mapping{http.StatusInternalServerError, "SERVICE_ERROR"}
	for _, em := range errorMappings {
		if apperrors.Is(err, em.err) {
			m = em.mapping
			break
		}
	}

	reqUUID := requestid.Get(c)

	if logger != nil {
		logger.Error("request failed",
			slog.Int("status_code", m.status),
			slog.String("error_type", m.kind),
			slog.String("req_uuid", reqUUID),
			slog.Any("error", err),
		)
	}

	c.JSON(m.status, ErrorResponse{Error: ErrorBody{Type: m.kind, ReqUUID: reqUUID}})
}

// HandleBadRequestGin writes the INVALID_PAYLOAD envelope for malformed JSON
// or parameters.
func HandleBadRequestGin(c *gin.Context, err error, logger *slog.Logger) {
	HandleErrorGin(c, apperrors.Wrap(apperrors.ErrInvalidPayload, err.Error()), logger)
}
