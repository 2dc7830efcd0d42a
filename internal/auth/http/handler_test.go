package http_test

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	authHTTP "github.com/allisson/flexauth/internal/auth/http"
	authUseCase "github.com/allisson/flexauth/internal/auth/usecase"
	"github.com/allisson/flexauth/internal/errors"
	sessionDomain "github.com/allisson/flexauth/internal/session/domain"
	userDomain "github.com/allisson/flexauth/internal/user/domain"
)

// stubCoordinator returns canned responses per operation.
type stubCoordinator struct {
	signUpErr  error
	signInErr  error
	signOutErr error
	signOuts   []string
}

func (s *stubCoordinator) response(name, email, role string) *authUseCase.AuthResponse {
	user := userDomain.NewUser(name, email, role, "credential.salt")
	return &authUseCase.AuthResponse{
		User: user,
		Session: &sessionDomain.Session{
			UID:          user.UID,
			SessionID:    "encrypted-session-id",
			IDToken:      "id-token",
			RefreshToken: "refresh-token",
		},
	}
}

func (s *stubCoordinator) SignUp(_ context.Context, name, email, role, _, _ string) (*authUseCase.AuthResponse, error) {
	if s.signUpErr != nil {
		return nil, s.signUpErr
	}
	return s.response(name, email, role), nil
}

func (s *stubCoordinator) SignIn(_ context.Context, email, _, _ string) (*authUseCase.AuthResponse, error) {
	if s.signInErr != nil {
		return nil, s.signInErr
	}
	return s.response("Alice", email, "user"), nil
}

func (s *stubCoordinator) SignOut(_ context.Context, uid, sessionID string) error {
	if s.signOutErr != nil {
		return s.signOutErr
	}
	s.signOuts = append(s.signOuts, uid+"|"+sessionID)
	return nil
}

func newAuthRouter(coordinator authUseCase.Coordinator) *gin.Engine {
	gin.SetMode(gin.TestMode)
	handler := authHTTP.NewAuthHandler(coordinator, testLogger())

	router := gin.New()
	router.POST("/api/auth/signup", handler.SignUpHandler)
	router.POST("/api/auth/signin", handler.SignInHandler)
	router.POST("/api/auth/signout", handler.SignOutHandler)
	return router
}

func post(router *gin.Engine, path string, body any, userAgent string) *httptest.ResponseRecorder {
	payload, _ := json.Marshal(body)
	req := httptest.NewRequest(http.MethodPost, path, bytes.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")
	if userAgent != "" {
		req.Header.Set("User-Agent", userAgent)
	}
	recorder := httptest.NewRecorder()
	router.ServeHTTP(recorder, req)
	return recorder
}

func TestSignUpHandler(t *testing.T) {
	t.Run("Success", func(t *testing.T) {
		router := newAuthRouter(&stubCoordinator{})

		recorder := post(router, "/api/auth/signup", gin.H{
			"name":     "Alice",
			"email":    "alice@example.com",
			"role":     "user",
			"password": "password1",
		}, "agent/1.0")

		require.Equal(t, http.StatusOK, recorder.Code)

		var body map[string]any
		require.NoError(t, json.Unmarshal(recorder.Body.Bytes(), &body))
		assert.Equal(t, "user created", body["message"])
		assert.Equal(t, "alice@example.com", body["email"])

		session := body["session"].(map[string]any)
		assert.Equal(t, "encrypted-session-id", session["session_id"])
		assert.Equal(t, "id-token", session["id_token"])
	})

	t.Run("Invalid email", func(t *testing.T) {
		router := newAuthRouter(&stubCoordinator{})

		recorder := post(router, "/api/auth/signup", gin.H{
			"name":     "Alice",
			"email":    "not-an-email",
			"role":     "user",
			"password": "password1",
		}, "agent/1.0")

		assert.Equal(t, http.StatusBadRequest, recorder.Code)
		assert.Contains(t, recorder.Body.String(), "INVALID_PAYLOAD")
	})

	t.Run("Weak password", func(t *testing.T) {
		router := newAuthRouter(&stubCoordinator{})

		recorder := post(router, "/api/auth/signup", gin.H{
			"name":     "Alice",
			"email":    "alice@example.com",
			"role":     "user",
			"password": "weak",
		}, "agent/1.0")

		assert.Equal(t, http.StatusBadRequest, recorder.Code)
	})

	t.Run("Missing user agent", func(t *testing.T) {
		router := newAuthRouter(&stubCoordinator{})

		recorder := post(router, "/api/auth/signup", gin.H{
			"name":     "Alice",
			"email":    "alice@example.com",
			"role":     "user",
			"password": "password1",
		}, "")

		assert.Equal(t, http.StatusBadRequest, recorder.Code)
		assert.Contains(t, recorder.Body.String(), "INVALID_USER_AGENT")
	})

	t.Run("Duplicate email maps to 302", func(t *testing.T) {
		router := newAuthRouter(&stubCoordinator{signUpErr: errors.ErrUserAlreadyExists})

		recorder := post(router, "/api/auth/signup", gin.H{
			"name":     "Alice",
			"email":    "alice@example.com",
			"role":     "user",
			"password": "password1",
		}, "agent/1.0")

		assert.Equal(t, http.StatusFound, recorder.Code)
		assert.Contains(t, recorder.Body.String(), "USER_ALREADY_EXISTS")
	})
}

func TestSignInHandler(t *testing.T) {
	t.Run("Success", func(t *testing.T) {
		router := newAuthRouter(&stubCoordinator{})

		recorder := post(router, "/api/auth/signin", gin.H{
			"email":    "alice@example.com",
			"password": "password1",
		}, "agent/1.0")

		require.Equal(t, http.StatusOK, recorder.Code)
		assert.Contains(t, recorder.Body.String(), "signed in")
	})

	t.Run("Wrong credentials map to 401", func(t *testing.T) {
		router := newAuthRouter(&stubCoordinator{signInErr: errors.ErrWrongCredentials})

		recorder := post(router, "/api/auth/signin", gin.H{
			"email":    "alice@example.com",
			"password": "password1",
		}, "agent/1.0")

		assert.Equal(t, http.StatusUnauthorized, recorder.Code)
		assert.Contains(t, recorder.Body.String(), "WRONG_CREDENTIALS")
	})

	t.Run("Blocked account maps to 401", func(t *testing.T) {
		router := newAuthRouter(&stubCoordinator{signInErr: errors.ErrUserBlocked})

		recorder := post(router, "/api/auth/signin", gin.H{
			"email":    "alice@example.com",
			"password": "password1",
		}, "agent/1.0")

		assert.Equal(t, http.StatusUnauthorized, recorder.Code)
		assert.Contains(t, recorder.Body.String(), "USER_BLOCKED")
	})
}

func TestSignOutHandler(t *testing.T) {
	t.Run("Success", func(t *testing.T) {
		coordinator := &stubCoordinator{}
		router := newAuthRouter(coordinator)

		recorder := post(router, "/api/auth/signout", gin.H{
			"uid":        "user-123",
			"session_id": "encrypted-session-id",
		}, "agent/1.0")

		require.Equal(t, http.StatusOK, recorder.Code)
		assert.Equal(t, []string{"user-123|encrypted-session-id"}, coordinator.signOuts)
	})

	t.Run("Missing fields", func(t *testing.T) {
		router := newAuthRouter(&stubCoordinator{})

		recorder := post(router, "/api/auth/signout", gin.H{"uid": "user-123"}, "agent/1.0")
		assert.Equal(t, http.StatusBadRequest, recorder.Code)
	})
}
