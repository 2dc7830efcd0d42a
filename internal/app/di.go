// Package app provides the dependency injection container for assembling
// application components.
package app

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"sync"

	"go.mongodb.org/mongo-driver/v2/mongo"
	otelmetric "go.opentelemetry.io/otel/metric"

	authHTTP "github.com/allisson/flexauth/internal/auth/http"
	authService "github.com/allisson/flexauth/internal/auth/service"
	authUsecase "github.com/allisson/flexauth/internal/auth/usecase"
	"github.com/allisson/flexauth/internal/config"
	cryptoDomain "github.com/allisson/flexauth/internal/crypto/domain"
	cryptoRepository "github.com/allisson/flexauth/internal/crypto/repository"
	cryptoService "github.com/allisson/flexauth/internal/crypto/service"
	"github.com/allisson/flexauth/internal/database"
	"github.com/allisson/flexauth/internal/http"
	"github.com/allisson/flexauth/internal/mailer"
	"github.com/allisson/flexauth/internal/metrics"
	overviewHTTP "github.com/allisson/flexauth/internal/overview/http"
	overviewUsecase "github.com/allisson/flexauth/internal/overview/usecase"
	sessionHTTP "github.com/allisson/flexauth/internal/session/http"
	sessionRepository "github.com/allisson/flexauth/internal/session/repository"
	sessionUsecase "github.com/allisson/flexauth/internal/session/usecase"
	userHTTP "github.com/allisson/flexauth/internal/user/http"
	userRepository "github.com/allisson/flexauth/internal/user/repository"
	userUsecase "github.com/allisson/flexauth/internal/user/usecase"
)

// Container holds all application dependencies and provides methods to access them.
// It follows the lazy initialization pattern - components are created on first access.
type Container struct {
	// Configuration
	config *config.Config

	// Infrastructure
	logger      *slog.Logger
	mongoClient *mongo.Client
	mongoDB     *mongo.Database

	// Key material
	kek    string
	cipher cryptoService.Cipher

	// Repositories
	dekRepo          *cryptoRepository.MongoDekRepository
	userRepo         *userRepository.MongoUserRepository
	resetRepo        *userRepository.MongoResetRepository
	verificationRepo *userRepository.MongoVerificationRepository
	sessionRepo      *sessionRepository.MongoSessionRepository

	// Services
	mailSender      mailer.Mailer
	passwordService authService.PasswordService
	tokenService    authService.TokenService

	// Use Cases
	sessionManager  sessionUsecase.Manager
	userUseCase     userUsecase.UseCase
	authCoordinator authUsecase.Coordinator
	overviewUseCase overviewUsecase.UseCase

	// Metrics
	metricsProvider *metrics.Provider
	businessMetrics metrics.BusinessMetrics

	// Servers
	httpServer    *http.Server
	metricsServer *http.MetricsServer

	// Initialization flags and mutex for thread-safety
	mu                  sync.Mutex
	loggerInit          sync.Once
	mongoInit           sync.Once
	kekInit             sync.Once
	cipherInit          sync.Once
	dekRepoInit         sync.Once
	userRepoInit        sync.Once
	resetRepoInit       sync.Once
	verificationInit    sync.Once
	sessionRepoInit     sync.Once
	mailerInit          sync.Once
	passwordServiceInit sync.Once
	tokenServiceInit    sync.Once
	sessionManagerInit  sync.Once
	userUseCaseInit     sync.Once
	authCoordinatorInit sync.Once
	overviewInit        sync.Once
	metricsProviderInit sync.Once
	businessMetricsInit sync.Once
	httpServerInit      sync.Once
	metricsServerInit   sync.Once
	initErrors          map[string]error
}

// NewContainer creates a new dependency injection container with the provided configuration.
func NewContainer(cfg *config.Config) *Container {
	return &Container{
		config:     cfg,
		initErrors: make(map[string]error),
	}
}

// Config returns the application configuration.
func (c *Container) Config() *config.Config {
	return c.config
}

// Logger returns the configured logger instance.
// It creates a new logger on first access based on the log level in configuration.
func (c *Container) Logger() *slog.Logger {
	c.loggerInit.Do(func() {
		c.logger = c.initLogger()
	})
	return c.logger
}

// MongoDatabase returns the document store database handle.
func (c *Container) MongoDatabase() (*mongo.Database, error) {
	var err error
	c.mongoInit.Do(func() {
		c.mongoClient, c.mongoDB, err = c.initMongo()
		if err != nil {
			c.initErrors["mongo"] = err
		}
	})
	if err != nil {
		return nil, err
	}
	if storedErr, exists := c.initErrors["mongo"]; exists {
		return nil, storedErr
	}
	return c.mongoDB, nil
}

// KEK returns the key encryption key, unwrapping it through the KMS when a
// key URI is configured.
func (c *Container) KEK() (string, error) {
	var err error
	c.kekInit.Do(func() {
		c.kek, err = c.initKEK()
		if err != nil {
			c.initErrors["kek"] = err
		}
	})
	if err != nil {
		return "", err
	}
	if storedErr, exists := c.initErrors["kek"]; exists {
		return "", storedErr
	}
	return c.kek, nil
}

// Cipher returns the field cipher.
func (c *Container) Cipher() cryptoService.Cipher {
	c.cipherInit.Do(func() {
		c.cipher = cryptoService.NewGCMCipher()
	})
	return c.cipher
}

// DekRepository returns the DEK record repository.
func (c *Container) DekRepository() (*cryptoRepository.MongoDekRepository, error) {
	var err error
	c.dekRepoInit.Do(func() {
		c.dekRepo, err = c.initDekRepository()
		if err != nil {
			c.initErrors["dekRepo"] = err
		}
	})
	if err != nil {
		return nil, err
	}
	if storedErr, exists := c.initErrors["dekRepo"]; exists {
		return nil, storedErr
	}
	return c.dekRepo, nil
}

// UserRepository returns the user repository.
func (c *Container) UserRepository() (*userRepository.MongoUserRepository, error) {
	var err error
	c.userRepoInit.Do(func() {
		db, dbErr := c.MongoDatabase()
		if dbErr != nil {
			err = fmt.Errorf("failed to get database for user repository: %w", dbErr)
			c.initErrors["userRepo"] = err
			return
		}
		c.userRepo = userRepository.NewMongoUserRepository(db, c.Cipher())
	})
	if err != nil {
		return nil, err
	}
	if storedErr, exists := c.initErrors["userRepo"]; exists {
		return nil, storedErr
	}
	return c.userRepo, nil
}

// ResetRepository returns the password reset request repository.
func (c *Container) ResetRepository() (*userRepository.MongoResetRepository, error) {
	var err error
	c.resetRepoInit.Do(func() {
		db, dbErr := c.MongoDatabase()
		if dbErr != nil {
			err = fmt.Errorf("failed to get database for reset repository: %w", dbErr)
			c.initErrors["resetRepo"] = err
			return
		}
		c.resetRepo = userRepository.NewMongoResetRepository(db)
	})
	if err != nil {
		return nil, err
	}
	if storedErr, exists := c.initErrors["resetRepo"]; exists {
		return nil, storedErr
	}
	return c.resetRepo, nil
}

// VerificationRepository returns the email verification request repository.
func (c *Container) VerificationRepository() (*userRepository.MongoVerificationRepository, error) {
	var err error
	c.verificationInit.Do(func() {
		db, dbErr := c.MongoDatabase()
		if dbErr != nil {
			err = fmt.Errorf("failed to get database for verification repository: %w", dbErr)
			c.initErrors["verificationRepo"] = err
			return
		}
		c.verificationRepo = userRepository.NewMongoVerificationRepository(db)
	})
	if err != nil {
		return nil, err
	}
	if storedErr, exists := c.initErrors["verificationRepo"]; exists {
		return nil, storedErr
	}
	return c.verificationRepo, nil
}

// SessionRepository returns the session repository.
func (c *Container) SessionRepository() (*sessionRepository.MongoSessionRepository, error) {
	var err error
	c.sessionRepoInit.Do(func() {
		db, dbErr := c.MongoDatabase()
		if dbErr != nil {
			err = fmt.Errorf("failed to get database for session repository: %w", dbErr)
			c.initErrors["sessionRepo"] = err
			return
		}
		c.sessionRepo = sessionRepository.NewMongoSessionRepository(db)
	})
	if err != nil {
		return nil, err
	}
	if storedErr, exists := c.initErrors["sessionRepo"]; exists {
		return nil, storedErr
	}
	return c.sessionRepo, nil
}

// Mailer returns the outbound mail sender.
func (c *Container) Mailer() (mailer.Mailer, error) {
	var err error
	c.mailerInit.Do(func() {
		c.mailSender, err = mailer.NewSMTPMailer(c.config)
		if err != nil {
			c.initErrors["mailer"] = err
		}
	})
	if err != nil {
		return nil, err
	}
	if storedErr, exists := c.initErrors["mailer"]; exists {
		return nil, storedErr
	}
	return c.mailSender, nil
}

// PasswordService returns the password hashing service.
func (c *Container) PasswordService() authService.PasswordService {
	c.passwordServiceInit.Do(func() {
		c.passwordService = authService.NewArgon2PasswordService()
	})
	return c.passwordService
}

// TokenService returns the token signing service.
func (c *Container) TokenService() (authService.TokenService, error) {
	var err error
	c.tokenServiceInit.Do(func() {
		privateKey, keyErr := authService.LoadPrivateKey(c.config.PrivateKeyPath)
		if keyErr != nil {
			err = fmt.Errorf("failed to load private key: %w", keyErr)
			c.initErrors["tokenService"] = err
			return
		}
		c.tokenService = authService.NewRS256TokenService(privateKey, c.config.ServerURL)
	})
	if err != nil {
		return nil, err
	}
	if storedErr, exists := c.initErrors["tokenService"]; exists {
		return nil, storedErr
	}
	return c.tokenService, nil
}

// SessionManager returns the session manager, wrapped with metrics when enabled.
func (c *Container) SessionManager() (sessionUsecase.Manager, error) {
	var err error
	c.sessionManagerInit.Do(func() {
		c.sessionManager, err = c.initSessionManager()
		if err != nil {
			c.initErrors["sessionManager"] = err
		}
	})
	if err != nil {
		return nil, err
	}
	if storedErr, exists := c.initErrors["sessionManager"]; exists {
		return nil, storedErr
	}
	return c.sessionManager, nil
}

// UserUseCase returns the user use case.
func (c *Container) UserUseCase() (userUsecase.UseCase, error) {
	var err error
	c.userUseCaseInit.Do(func() {
		c.userUseCase, err = c.initUserUseCase()
		if err != nil {
			c.initErrors["userUseCase"] = err
		}
	})
	if err != nil {
		return nil, err
	}
	if storedErr, exists := c.initErrors["userUseCase"]; exists {
		return nil, storedErr
	}
	return c.userUseCase, nil
}

// AuthCoordinator returns the authentication coordinator, wrapped with
// metrics when enabled.
func (c *Container) AuthCoordinator() (authUsecase.Coordinator, error) {
	var err error
	c.authCoordinatorInit.Do(func() {
		c.authCoordinator, err = c.initAuthCoordinator()
		if err != nil {
			c.initErrors["authCoordinator"] = err
		}
	})
	if err != nil {
		return nil, err
	}
	if storedErr, exists := c.initErrors["authCoordinator"]; exists {
		return nil, storedErr
	}
	return c.authCoordinator, nil
}

// OverviewUseCase returns the overview use case.
func (c *Container) OverviewUseCase() (overviewUsecase.UseCase, error) {
	var err error
	c.overviewInit.Do(func() {
		userRepo, repoErr := c.UserRepository()
		if repoErr != nil {
			err = fmt.Errorf("failed to get user repository for overview use case: %w", repoErr)
			c.initErrors["overviewUseCase"] = err
			return
		}
		sessionRepo, repoErr := c.SessionRepository()
		if repoErr != nil {
			err = fmt.Errorf("failed to get session repository for overview use case: %w", repoErr)
			c.initErrors["overviewUseCase"] = err
			return
		}
		dekRepo, repoErr := c.DekRepository()
		if repoErr != nil {
			err = fmt.Errorf("failed to get dek repository for overview use case: %w", repoErr)
			c.initErrors["overviewUseCase"] = err
			return
		}
		c.overviewUseCase = overviewUsecase.NewOverviewUseCase(userRepo, sessionRepo, dekRepo)
	})
	if err != nil {
		return nil, err
	}
	if storedErr, exists := c.initErrors["overviewUseCase"]; exists {
		return nil, storedErr
	}
	return c.overviewUseCase, nil
}

// MetricsProvider returns the metrics provider, or nil when metrics are disabled.
func (c *Container) MetricsProvider() (*metrics.Provider, error) {
	var err error
	c.metricsProviderInit.Do(func() {
		if !c.config.MetricsEnabled {
			return
		}
		c.metricsProvider, err = metrics.NewProvider(c.config.MetricsNamespace)
		if err != nil {
			c.initErrors["metricsProvider"] = err
		}
	})
	if err != nil {
		return nil, err
	}
	if storedErr, exists := c.initErrors["metricsProvider"]; exists {
		return nil, storedErr
	}
	return c.metricsProvider, nil
}

// BusinessMetrics returns the business metrics recorder. A no-op recorder is
// returned when metrics are disabled.
func (c *Container) BusinessMetrics() (metrics.BusinessMetrics, error) {
	var err error
	c.businessMetricsInit.Do(func() {
		provider, providerErr := c.MetricsProvider()
		if providerErr != nil {
			err = fmt.Errorf("failed to get metrics provider for business metrics: %w", providerErr)
			c.initErrors["businessMetrics"] = err
			return
		}
		if provider == nil {
			c.businessMetrics = metrics.NewNoOpBusinessMetrics()
			return
		}
		c.businessMetrics, err = metrics.NewBusinessMetrics(provider.MeterProvider(), c.config.MetricsNamespace)
		if err != nil {
			c.initErrors["businessMetrics"] = err
		}
	})
	if err != nil {
		return nil, err
	}
	if storedErr, exists := c.initErrors["businessMetrics"]; exists {
		return nil, storedErr
	}
	return c.businessMetrics, nil
}

// HTTPServer returns the API server with all routes mounted.
func (c *Container) HTTPServer() (*http.Server, error) {
	var err error
	c.httpServerInit.Do(func() {
		c.httpServer, err = c.initHTTPServer()
		if err != nil {
			c.initErrors["httpServer"] = err
		}
	})
	if err != nil {
		return nil, err
	}
	if storedErr, exists := c.initErrors["httpServer"]; exists {
		return nil, storedErr
	}
	return c.httpServer, nil
}

// MetricsServer returns the Prometheus scrape server.
func (c *Container) MetricsServer() (*http.MetricsServer, error) {
	var err error
	c.metricsServerInit.Do(func() {
		provider, providerErr := c.MetricsProvider()
		if providerErr != nil {
			err = fmt.Errorf("failed to get metrics provider for metrics server: %w", providerErr)
			c.initErrors["metricsServer"] = err
			return
		}
		c.metricsServer = http.NewMetricsServer(
			c.config.ServerHost,
			c.config.MetricsPort,
			c.Logger(),
			provider,
		)
	})
	if err != nil {
		return nil, err
	}
	if storedErr, exists := c.initErrors["metricsServer"]; exists {
		return nil, storedErr
	}
	return c.metricsServer, nil
}

// Shutdown performs cleanup of all initialized resources.
// It should be called when the application is shutting down.
func (c *Container) Shutdown(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	var shutdownErrors []error

	if c.httpServer != nil {
		if err := c.httpServer.Shutdown(ctx); err != nil {
			shutdownErrors = append(shutdownErrors, fmt.Errorf("http server shutdown: %w", err))
		}
	}

	if c.metricsServer != nil {
		if err := c.metricsServer.Shutdown(ctx); err != nil {
			shutdownErrors = append(shutdownErrors, fmt.Errorf("metrics server shutdown: %w", err))
		}
	}

	if c.metricsProvider != nil {
		if err := c.metricsProvider.Shutdown(ctx); err != nil {
			shutdownErrors = append(shutdownErrors, fmt.Errorf("metrics provider shutdown: %w", err))
		}
	}

	if c.mongoClient != nil {
		if err := c.mongoClient.Disconnect(ctx); err != nil {
			shutdownErrors = append(shutdownErrors, fmt.Errorf("document store disconnect: %w", err))
		}
	}

	if len(shutdownErrors) > 0 {
		return fmt.Errorf("shutdown errors: %v", shutdownErrors)
	}

	return nil
}

// initLogger creates and configures a structured logger based on the log level.
func (c *Container) initLogger() *slog.Logger {
	var logLevel slog.Level
	switch c.config.LogLevel {
	case "debug":
		logLevel = slog.LevelDebug
	case "info":
		logLevel = slog.LevelInfo
	case "warn":
		logLevel = slog.LevelWarn
	case "error":
		logLevel = slog.LevelError
	default:
		logLevel = slog.LevelInfo
	}

	handler := slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: logLevel,
	})

	return slog.New(handler)
}

// initMongo connects to the document store and creates the unique indexes.
func (c *Container) initMongo() (*mongo.Client, *mongo.Database, error) {
	ctx := context.Background()

	client, db, err := database.Connect(ctx, c.config)
	if err != nil {
		return nil, nil, err
	}

	if err := database.EnsureIndexes(ctx, db); err != nil {
		_ = client.Disconnect(ctx)
		return nil, nil, err
	}

	return client, db, nil
}

// initKEK resolves the key encryption key. With a KMS key URI configured,
// SERVER_KEK holds a wrapped ciphertext and is decrypted through the KMS;
// otherwise it holds the plaintext composite keyset.
func (c *Container) initKEK() (string, error) {
	if c.config.ServerKEK == "" {
		return "", fmt.Errorf("SERVER_KEK is not set")
	}

	kek := c.config.ServerKEK
	if c.config.KMSKeyURI != "" {
		unwrapped, err := cryptoService.NewKMSService().UnwrapKEK(
			context.Background(),
			c.config.KMSKeyURI,
			c.config.ServerKEK,
		)
		if err != nil {
			return "", err
		}
		kek = unwrapped
	}

	if _, err := cryptoDomain.ParseKeyset(kek); err != nil {
		return "", fmt.Errorf("KEK is not a valid keyset: %w", err)
	}

	return kek, nil
}

// initDekRepository creates the DEK repository bound to the KEK.
func (c *Container) initDekRepository() (*cryptoRepository.MongoDekRepository, error) {
	db, err := c.MongoDatabase()
	if err != nil {
		return nil, fmt.Errorf("failed to get database for dek repository: %w", err)
	}

	kek, err := c.KEK()
	if err != nil {
		return nil, fmt.Errorf("failed to get kek for dek repository: %w", err)
	}

	return cryptoRepository.NewMongoDekRepository(db, c.Cipher(), kek), nil
}

// initSessionManager creates the session manager with all its dependencies.
func (c *Container) initSessionManager() (sessionUsecase.Manager, error) {
	dekRepo, err := c.DekRepository()
	if err != nil {
		return nil, fmt.Errorf("failed to get dek repository for session manager: %w", err)
	}

	sessionRepo, err := c.SessionRepository()
	if err != nil {
		return nil, fmt.Errorf("failed to get session repository for session manager: %w", err)
	}

	tokenService, err := c.TokenService()
	if err != nil {
		return nil, fmt.Errorf("failed to get token service for session manager: %w", err)
	}

	mailSender, err := c.Mailer()
	if err != nil {
		return nil, fmt.Errorf("failed to get mailer for session manager: %w", err)
	}

	manager := sessionUsecase.NewSessionManager(
		dekRepo,
		sessionRepo,
		tokenService,
		c.Cipher(),
		mailSender,
		c.Logger(),
	)

	businessMetrics, err := c.BusinessMetrics()
	if err != nil {
		return nil, fmt.Errorf("failed to get business metrics for session manager: %w", err)
	}

	return sessionUsecase.NewManagerWithMetrics(manager, businessMetrics), nil
}

// initUserUseCase creates the user use case with all its dependencies.
func (c *Container) initUserUseCase() (userUsecase.UseCase, error) {
	dekRepo, err := c.DekRepository()
	if err != nil {
		return nil, fmt.Errorf("failed to get dek repository for user use case: %w", err)
	}

	userRepo, err := c.UserRepository()
	if err != nil {
		return nil, fmt.Errorf("failed to get user repository for user use case: %w", err)
	}

	resetRepo, err := c.ResetRepository()
	if err != nil {
		return nil, fmt.Errorf("failed to get reset repository for user use case: %w", err)
	}

	verificationRepo, err := c.VerificationRepository()
	if err != nil {
		return nil, fmt.Errorf("failed to get verification repository for user use case: %w", err)
	}

	sessionManager, err := c.SessionManager()
	if err != nil {
		return nil, fmt.Errorf("failed to get session manager for user use case: %w", err)
	}

	mailSender, err := c.Mailer()
	if err != nil {
		return nil, fmt.Errorf("failed to get mailer for user use case: %w", err)
	}

	return userUsecase.NewUserUseCase(
		dekRepo,
		userRepo,
		resetRepo,
		verificationRepo,
		sessionManager,
		c.PasswordService(),
		c.Cipher(),
		mailSender,
		c.Logger(),
	), nil
}

// initAuthCoordinator creates the auth coordinator with all its dependencies.
func (c *Container) initAuthCoordinator() (authUsecase.Coordinator, error) {
	dekRepo, err := c.DekRepository()
	if err != nil {
		return nil, fmt.Errorf("failed to get dek repository for auth coordinator: %w", err)
	}

	userRepo, err := c.UserRepository()
	if err != nil {
		return nil, fmt.Errorf("failed to get user repository for auth coordinator: %w", err)
	}

	userUseCase, err := c.UserUseCase()
	if err != nil {
		return nil, fmt.Errorf("failed to get user use case for auth coordinator: %w", err)
	}

	sessionManager, err := c.SessionManager()
	if err != nil {
		return nil, fmt.Errorf("failed to get session manager for auth coordinator: %w", err)
	}

	coordinator := authUsecase.NewAuthCoordinator(
		dekRepo,
		userRepo,
		userUseCase,
		sessionManager,
		c.PasswordService(),
		c.Cipher(),
	)

	businessMetrics, err := c.BusinessMetrics()
	if err != nil {
		return nil, fmt.Errorf("failed to get business metrics for auth coordinator: %w", err)
	}

	return authUsecase.NewCoordinatorWithMetrics(coordinator, businessMetrics), nil
}

// initHTTPServer creates the API server with all its dependencies.
func (c *Container) initHTTPServer() (*http.Server, error) {
	logger := c.Logger()

	authCoordinator, err := c.AuthCoordinator()
	if err != nil {
		return nil, fmt.Errorf("failed to get auth coordinator for http server: %w", err)
	}

	sessionManager, err := c.SessionManager()
	if err != nil {
		return nil, fmt.Errorf("failed to get session manager for http server: %w", err)
	}

	userUseCase, err := c.UserUseCase()
	if err != nil {
		return nil, fmt.Errorf("failed to get user use case for http server: %w", err)
	}

	overviewUseCase, err := c.OverviewUseCase()
	if err != nil {
		return nil, fmt.Errorf("failed to get overview use case for http server: %w", err)
	}

	handlers := &http.Handlers{
		Auth:     authHTTP.NewAuthHandler(authCoordinator, logger),
		Session:  sessionHTTP.NewSessionHandler(sessionManager, logger),
		User:     userHTTP.NewUserHandler(userUseCase, logger),
		Password: userHTTP.NewPasswordHandler(userUseCase, logger),
		Overview: overviewHTTP.NewOverviewHandler(overviewUseCase, logger),
	}

	provider, err := c.MetricsProvider()
	if err != nil {
		return nil, fmt.Errorf("failed to get metrics provider for http server: %w", err)
	}

	server := http.NewServer(c.config, logger, handlers, meterProviderOrNil(provider))

	return server, nil
}

// meterProviderOrNil avoids handing NewServer a typed-nil interface value.
func meterProviderOrNil(provider *metrics.Provider) otelmetric.MeterProvider {
	if provider == nil {
		return nil
	}
	return provider.MeterProvider()
}
