// Package config provides application configuration through environment variables.
package config

import (
	"os"
	"path/filepath"
	"time"

	"github.com/allisson/go-env"
	"github.com/joho/godotenv"
)

// Config holds all application configuration. The KEK and key-pair path are
// loaded once at startup and treated as immutable for the process lifetime.
type Config struct {
	// ServerHost is the host address the server will bind to.
	ServerHost string
	// ServerPort is the port number the server will listen on.
	ServerPort int
	// ServerURL is the public URL of this service, used as the token issuer claim.
	ServerURL string

	// MongoURI is the connection string for the document store.
	MongoURI string
	// MongoUsername is the document store root username.
	MongoUsername string
	// MongoPassword is the document store root password.
	MongoPassword string
	// MongoDatabase is the logical database holding all collections.
	MongoDatabase string
	// MongoTimeout bounds every outbound document store call.
	MongoTimeout time.Duration

	// LogLevel is the logging level (e.g., "debug", "info", "warn", "error").
	LogLevel string

	// ServerKEK is the key encryption key in "<hex32>.<hex12>" composite form.
	// When KMSKeyURI is set, this holds a base64 ciphertext instead and is
	// unwrapped through the KMS at startup.
	ServerKEK string
	// KMSKeyURI optionally points at a KMS key (gcpkms://, awskms://,
	// hashivault://, base64key://) used to unwrap ServerKEK.
	KMSKeyURI string

	// XAPIKey is the shared secret required in the x-api-key header.
	XAPIKey string

	// PrivateKeyPath is the path of the PEM-encoded RSA private key used to
	// sign id and refresh tokens. The public key is derived from it.
	PrivateKeyPath string

	// Email is the address outbound mail is sent from.
	Email string
	// EmailPassword is the SMTP password for Email.
	EmailPassword string
	// MailName is the display name used in the From header.
	MailName string
	// SMTPDomain is the SMTP server host.
	SMTPDomain string
	// SMTPPort is the SMTP server port.
	SMTPPort int
	// MailTimeout bounds every outbound SMTP call.
	MailTimeout time.Duration

	// RateLimitEnabled indicates whether rate limiting for auth endpoints is enabled.
	RateLimitEnabled bool
	// RateLimitRequestsPerSec is the number of requests allowed per second per client IP.
	RateLimitRequestsPerSec float64
	// RateLimitBurst is the burst size for auth endpoint rate limiting.
	RateLimitBurst int

	// CORSEnabled indicates whether CORS is enabled.
	CORSEnabled bool
	// CORSAllowOrigins is a comma-separated list of allowed origins for CORS.
	CORSAllowOrigins string

	// MetricsEnabled indicates whether metrics collection is enabled.
	MetricsEnabled bool
	// MetricsNamespace is the namespace for the application metrics.
	MetricsNamespace string
	// MetricsPort is the port number for the metrics server.
	MetricsPort int
}

// Load loads configuration from environment variables and .env file.
func Load() *Config {
	loadDotEnv()

	return &Config{
		// Server configuration
		ServerHost: env.GetString("SERVER_HOST", "0.0.0.0"),
		ServerPort: env.GetInt("SERVER_PORT", 8080),
		ServerURL:  env.GetString("SERVER_URL", "http://localhost:8080"),

		// Document store configuration
		MongoURI:      env.GetString("MONGO_URI", "mongodb://localhost:27017"),
		MongoUsername: env.GetString("MONGO_INITDB_ROOT_USERNAME", ""),
		MongoPassword: env.GetString("MONGO_INITDB_ROOT_PASSWORD", ""),
		MongoDatabase: env.GetString("MONGO_DATABASE", "flexauth"),
		MongoTimeout:  env.GetDuration("MONGO_TIMEOUT_SECONDS", 10, time.Second),

		// Logging
		LogLevel: env.GetString("LOG_LEVEL", "info"),

		// Key material
		ServerKEK:      env.GetString("SERVER_KEK", ""),
		KMSKeyURI:      env.GetString("KMS_KEY_URI", ""),
		PrivateKeyPath: env.GetString("PRIVATE_KEY_PATH", "private_key.pem"),

		// API gateway
		XAPIKey: env.GetString("X_API_KEY", ""),

		// Mail transport
		Email:         env.GetString("EMAIL", ""),
		EmailPassword: env.GetString("EMAIL_PASSWORD", ""),
		MailName:      env.GetString("MAIL_NAME", "FlexAuth"),
		SMTPDomain:    env.GetString("SMTP_DOMAIN", ""),
		SMTPPort:      env.GetInt("SMTP_PORT", 587),
		MailTimeout:   env.GetDuration("MAIL_TIMEOUT_SECONDS", 15, time.Second),

		// Rate Limiting (auth endpoints)
		RateLimitEnabled:        env.GetBool("RATE_LIMIT_ENABLED", true),
		RateLimitRequestsPerSec: env.GetFloat64("RATE_LIMIT_REQUESTS_PER_SEC", 5.0),
		RateLimitBurst:          env.GetInt("RATE_LIMIT_BURST", 10),

		// CORS
		CORSEnabled:      env.GetBool("CORS_ENABLED", false),
		CORSAllowOrigins: env.GetString("CORS_ALLOW_ORIGINS", ""),

		// Metrics
		MetricsEnabled:   env.GetBool("METRICS_ENABLED", true),
		MetricsNamespace: env.GetString("METRICS_NAMESPACE", "flexauth"),
		MetricsPort:      env.GetInt("METRICS_PORT", 8081),
	}
}

// GetGinMode returns the appropriate Gin mode based on log level.
func (c *Config) GetGinMode() string {
	switch c.LogLevel {
	case "debug":
		return "debug"
	default:
		return "release"
	}
}

// loadDotEnv searches for a .env file recursively from the current directory
// up to the root directory and loads it if found.
func loadDotEnv() {
	cwd, err := os.Getwd()
	if err != nil {
		return
	}

	dir := cwd
	for {
		envPath := filepath.Join(dir, ".env")
		if _, err := os.Stat(envPath); err == nil {
			_ = godotenv.Load(envPath)
			return
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			break
		}
		dir = parent
	}
}
