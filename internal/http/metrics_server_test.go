package http_test

import (
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	flexauthHTTP "github.com/allisson/flexauth/internal/http"
	"github.com/allisson/flexauth/internal/metrics"
)

func metricsTestLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestMetricsServer(t *testing.T) {
	t.Run("Serves scrapes and the health probe", func(t *testing.T) {
		provider, err := metrics.NewProvider("flexauth")
		require.NoError(t, err)
		defer func() { _ = provider.Shutdown(t.Context()) }()

		server := flexauthHTTP.NewMetricsServer("localhost", 8081, metricsTestLogger(), provider)

		recorder := httptest.NewRecorder()
		server.GetHandler().ServeHTTP(recorder, httptest.NewRequest(http.MethodGet, "/metrics", nil))
		assert.Equal(t, http.StatusOK, recorder.Code)

		recorder = httptest.NewRecorder()
		server.GetHandler().ServeHTTP(recorder, httptest.NewRequest(http.MethodGet, "/health", nil))
		assert.Equal(t, http.StatusOK, recorder.Code)
		assert.JSONEq(t, `{"status":"healthy"}`, recorder.Body.String())
	})

	t.Run("Nil provider mounts only the health probe", func(t *testing.T) {
		server := flexauthHTTP.NewMetricsServer("localhost", 8081, metricsTestLogger(), nil)

		recorder := httptest.NewRecorder()
		server.GetHandler().ServeHTTP(recorder, httptest.NewRequest(http.MethodGet, "/metrics", nil))
		assert.Equal(t, http.StatusNotFound, recorder.Code)

		recorder = httptest.NewRecorder()
		server.GetHandler().ServeHTTP(recorder, httptest.NewRequest(http.MethodGet, "/health", nil))
		assert.Equal(t, http.StatusOK, recorder.Code)
	})
}
