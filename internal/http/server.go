// Package http assembles the Gin router and owns the API server lifecycle.
package http

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-contrib/requestid"
	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/otel/metric"

	authHTTP "github.com/allisson/flexauth/internal/auth/http"
	"github.com/allisson/flexauth/internal/config"
	"github.com/allisson/flexauth/internal/metrics"
	overviewHTTP "github.com/allisson/flexauth/internal/overview/http"
	sessionHTTP "github.com/allisson/flexauth/internal/session/http"
	userHTTP "github.com/allisson/flexauth/internal/user/http"
)

// Handlers groups the per-domain handlers mounted on the router.
type Handlers struct {
	Auth     *authHTTP.AuthHandler
	Session  *sessionHTTP.SessionHandler
	User     *userHTTP.UserHandler
	Password *userHTTP.PasswordHandler
	Overview *overviewHTTP.OverviewHandler
}

// Server is the API HTTP server.
type Server struct {
	server *http.Server
	logger *slog.Logger
}

// NewServer builds the router and wraps it in an http.Server.
//
// Route protection: everything under /api requires the x-api-key header,
// except the reset form and the email verification link, which are opened
// from mail clients. The credential endpoints additionally carry the per-IP
// rate limit.
func NewServer(
	cfg *config.Config,
	logger *slog.Logger,
	handlers *Handlers,
	meterProvider metric.MeterProvider,
) *Server {
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(requestid.New())
	router.Use(CustomLoggerMiddleware(logger))

	if corsMiddleware := createCORSMiddleware(cfg.CORSEnabled, cfg.CORSAllowOrigins, logger); corsMiddleware != nil {
		router.Use(corsMiddleware)
	}
	if cfg.MetricsEnabled && meterProvider != nil {
		router.Use(metrics.HTTPMetricsMiddleware(meterProvider, cfg.MetricsNamespace))
	}

	router.GET("/", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"service": "flexauth", "status": "ok"})
	})
	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "healthy"})
	})

	// Opened from mail clients, so no API key.
	router.GET("/api/password/forget-form/:id", handlers.Password.ForgetFormHandler)
	router.GET("/api/user/verify-email/:id", handlers.User.VerifyEmailHandler)
	router.POST("/api/password/forget-reset/:id", handlers.Password.ForgetResetHandler)

	api := router.Group("/api", authHTTP.APIKeyMiddleware(cfg.XAPIKey, logger))

	auth := api.Group("/auth")
	if cfg.RateLimitEnabled {
		auth.Use(authHTTP.RateLimitMiddleware(cfg.RateLimitRequestsPerSec, cfg.RateLimitBurst, logger))
	}
	auth.POST("/signup", handlers.Auth.SignUpHandler)
	auth.POST("/signin", handlers.Auth.SignInHandler)
	auth.POST("/signout", handlers.Auth.SignOutHandler)

	session := api.Group("/session")
	session.POST("/verify", handlers.Session.VerifyHandler)
	session.POST("/refresh-session", handlers.Session.RefreshHandler)
	session.POST("/revoke", handlers.Session.RevokeHandler)
	session.POST("/revoke-all", handlers.Session.RevokeAllHandler)
	session.POST("/delete", handlers.Session.DeleteHandler)
	session.POST("/delete-all", handlers.Session.DeleteAllHandler)
	session.POST("/get-details", handlers.Session.GetDetailsHandler)
	session.POST("/get-all-from-uid", handlers.Session.GetAllFromUIDHandler)
	session.GET("/get-all", handlers.Session.GetAllHandler)

	user := api.Group("/user")
	user.GET("/get-all", handlers.User.GetAllHandler)
	user.POST("/get-from-email", handlers.User.GetFromEmailHandler)
	user.POST("/get-from-id", handlers.User.GetFromIDHandler)
	user.POST("/update", handlers.User.UpdateHandler)
	user.POST("/update-role", handlers.User.UpdateRoleHandler)
	user.POST("/toggle-account-active-status", handlers.User.ToggleActivationHandler)
	user.POST("/delete", handlers.User.DeleteHandler)
	user.POST("/verify-email-request", handlers.User.VerifyEmailRequestHandler)

	password := api.Group("/password")
	password.POST("/reset", handlers.Password.ResetHandler)
	password.POST("/forget-request", handlers.Password.ForgetRequestHandler)

	api.GET("/overview/get-all", handlers.Overview.GetAllHandler)

	return &Server{
		server: &http.Server{
			Addr:         fmt.Sprintf("%s:%d", cfg.ServerHost, cfg.ServerPort),
			Handler:      router,
			ReadTimeout:  15 * time.Second,
			WriteTimeout: 15 * time.Second,
			IdleTimeout:  60 * time.Second,
		},
		logger: logger,
	}
}

// GetHandler returns the router for tests.
func (s *Server) GetHandler() http.Handler {
	return s.server.Handler
}

// Start starts the API server.
func (s *Server) Start(ctx context.Context) error {
	s.logger.Info("starting http server", slog.String("addr", s.server.Addr))

	if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("failed to start server: %w", err)
	}

	return nil
}

// Shutdown gracefully shuts down the API server.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("shutting down http server")
	return s.server.Shutdown(ctx)
}
