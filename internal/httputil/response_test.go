package httputil_test

import (
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/allisson/flexauth/internal/errors"
	"github.com/allisson/flexauth/internal/httputil"
)

func handleError(t *testing.T, err error) (int, httputil.ErrorResponse) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	recorder := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(recorder)
	c.Request = httptest.NewRequest(http.MethodGet, "/", nil)

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	httputil.HandleErrorGin(c, err, logger)

	var body httputil.ErrorResponse
	require.NoError(t, json.Unmarshal(recorder.Body.Bytes(), &body))
	return recorder.Code, body
}

func TestHandleErrorGin(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantStatus int
		wantKind   string
	}{
		{"Invalid payload", apperrors.ErrInvalidPayload, http.StatusBadRequest, "INVALID_PAYLOAD"},
		{"Invalid user agent", apperrors.ErrInvalidUserAgent, http.StatusBadRequest, "INVALID_USER_AGENT"},
		{"User not found", apperrors.ErrUserNotFound, http.StatusNotFound, "USER_NOT_FOUND"},
		{"Session not found", apperrors.ErrSessionNotFound, http.StatusNotFound, "SESSION_NOT_FOUND"},
		{"Reset link not found", apperrors.ErrResetLinkNotFound, http.StatusNotFound, "RESET_LINK_NOT_FOUND"},
		{"User already exists", apperrors.ErrUserAlreadyExists, http.StatusFound, "USER_ALREADY_EXISTS"},
		{"Wrong credentials", apperrors.ErrWrongCredentials, http.StatusUnauthorized, "WRONG_CREDENTIALS"},
		{"User blocked", apperrors.ErrUserBlocked, http.StatusUnauthorized, "USER_BLOCKED"},
		{"Token invalid", apperrors.ErrTokenInvalid, http.StatusUnauthorized, "TOKEN_INVALID"},
		{"Session expired", apperrors.ErrSessionExpired, http.StatusUnauthorized, "SESSION_EXPIRED"},
		{"Active session exists", apperrors.ErrActiveSessionExists, http.StatusConflict, "ACTIVE_SESSION_EXISTS"},
		{"Reset link expired", apperrors.ErrResetLinkExpired, http.StatusUnauthorized, "RESET_LINK_EXPIRED"},
		{"Verification link expired", apperrors.ErrVerificationLinkExpired, http.StatusUnauthorized, "VERIFICATION_LINK_EXPIRED"},
		{"Key not found", apperrors.ErrKeyNotFound, http.StatusInternalServerError, "KEY_NOT_FOUND"},
		{"Crypto failure", apperrors.ErrCryptoFailure, http.StatusInternalServerError, "CRYPTO_FAILURE"},
		{"Partial delete", apperrors.ErrPartialDelete, http.StatusInternalServerError, "PARTIAL_DELETE"},
		{"Unmapped error", apperrors.New("boom"), http.StatusInternalServerError, "SERVICE_ERROR"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			status, body := handleError(t, tt.err)
			assert.Equal(t, tt.wantStatus, status)
			assert.Equal(t, tt.wantKind, body.Error.Type)
		})
	}

	t.Run("Wrapped error maps like its sentinel", func(t *testing.T) {
		err := apperrors.Wrap(apperrors.ErrUserNotFound, "lookup failed")
		status, body := handleError(t, err)
		assert.Equal(t, http.StatusNotFound, status)
		assert.Equal(t, "USER_NOT_FOUND", body.Error.Type)
	})
}

func TestHandleBadRequestGin(t *testing.T) {
	gin.SetMode(gin.TestMode)

	recorder := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(recorder)
	c.Request = httptest.NewRequest(http.MethodPost, "/", nil)

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	httputil.HandleBadRequestGin(c, apperrors.New("unexpected EOF"), logger)

	assert.Equal(t, http.StatusBadRequest, recorder.Code)

	var body httputil.ErrorResponse
	require.NoError(t, json.Unmarshal(recorder.Body.Bytes(), &body))
	assert.Equal(t, "INVALID_PAYLOAD", body.Error.Type)
}
