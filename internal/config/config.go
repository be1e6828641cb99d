// Package config provides configuration management for the shipment enricher.
// It handles loading configuration from environment variables with sensible
// defaults and validates the configuration to ensure the service starts safely.
//
// Environment Variables:
//
// Application Settings:
//   - PORT: Server port (default: 8080)
//   - LOG_LEVEL: Logging level (default: info)
//   - LOG_FILE: Append-only log file path (default: shipment-enricher.log)
//
// ShipBob OAuth Configuration:
//   - SHIPBOB_CLIENT_ID: OAuth client id (required)
//   - SHIPBOB_CLIENT_SECRET: OAuth client secret (required)
//   - SHIPBOB_REDIRECT_URI: OAuth callback URL (required)
//   - SHIPBOB_AUTH_URL: Authorize endpoint (default: ShipBob production)
//   - SHIPBOB_TOKEN_URL: Token endpoint (default: ShipBob production)
//   - SHIPBOB_WEBHOOK_URL: Public URL registered for order_shipped deliveries
//
// Shopify Configuration:
//   - SHOPIFY_STORE: Shop subdomain, e.g. "example" (required)
//   - SHOPIFY_TOKEN: Admin API access token (required)
//   - SHOPIFY_API_VERSION: Admin API version (default: 2024-01)
//
// Device Registration Database:
//   - REGISTRATION_DB_URL: PostgreSQL connection string; lookups are skipped
//     when unset
//
// Jasper Carrier API:
//   - JASPER_API_URL: API base URL
//   - JASPER_USERNAME: Basic auth username
//   - JASPER_API_KEY: Basic auth API key
//   - JASPER_RATE_LIMIT: Request ceiling per window (default: 50)
//   - JASPER_RATE_WINDOW: Rolling window (default: 60s)
//
// Credential Storage:
//   - TOKEN_STORAGE: "file" or "sqlite" (default: file)
//   - TOKEN_FILE: Credential file path for file storage (default: tokens.json)
//   - SETTINGS_DB_PATH: SQLite path for sqlite storage (default: ./settings.db)
//
// Rate Limiter Backend:
//   - RATE_LIMIT_BACKEND: "local" or "redis" (default: local)
//   - REDIS_ADDRESS: Redis server address (default: localhost:6379)
//   - REDIS_PASSWORD: Redis password
//   - REDIS_DB: Redis database number 0-15 (default: 0)
package config

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"os"
)

// Default ShipBob identity-provider endpoints
const (
	DefaultAuthURL  = "https://auth.shipbob.com/connect/authorize"
	DefaultTokenURL = "https://auth.shipbob.com/connect/token"
)

// Config holds all configuration values for the shipment enricher. All
// fields correspond to environment variables that can be set to override
// the default values.
//
// The configuration is loaded using the Load() function and should be
// validated using the Validate() method before use.
type Config struct {
	// Application settings
	Port     string // Server port number
	LogLevel string // Logging level (debug, info, warn, error)
	LogFile  string // Append-only log file path

	// ShipBob OAuth settings
	ShipBobClientID     string // OAuth client id
	ShipBobClientSecret string // OAuth client secret
	ShipBobRedirectURI  string // OAuth callback URL
	ShipBobAuthURL      string // Authorize endpoint
	ShipBobTokenURL     string // Token endpoint
	ShipBobWebhookURL   string // Public webhook delivery URL

	// Shopify Admin API settings
	ShopifyStore      string // Shop subdomain
	ShopifyToken      string // Admin API access token
	ShopifyAPIVersion string // Admin API version

	// Device registration database
	RegistrationDBURL string // PostgreSQL connection string

	// Jasper carrier API settings
	JasperAPIURL     string        // API base URL
	JasperUsername   string        // Basic auth username
	JasperAPIKey     string        // Basic auth API key
	JasperRateLimit  int           // Request ceiling per window
	JasperRateWindow time.Duration // Rolling window

	// Credential storage
	TokenStorage   string // "file" or "sqlite"
	TokenFile      string // Credential file path
	SettingsDBPath string // SQLite settings database path

	// Rate limiter backend
	RateLimitBackend string // "local" or "redis"
	RedisAddress     string // Redis server address (host:port)
	RedisPassword    string // Redis authentication password
	RedisDB          string // Redis database number (0-15)
}

// Load creates a new Config instance with values loaded from environment
// variables. If an environment variable is not set, the corresponding
// default value is used.
//
// This function does not validate the configuration - call Validate() on
// the returned Config to ensure all required values are properly set.
func Load() *Config {
	return &Config{
		Port:     getEnv("PORT", "8080"),
		LogLevel: getEnv("LOG_LEVEL", "info"),
		LogFile:  getEnv("LOG_FILE", "shipment-enricher.log"),

		ShipBobClientID:     getEnv("SHIPBOB_CLIENT_ID", ""),
		ShipBobClientSecret: getEnv("SHIPBOB_CLIENT_SECRET", ""),
		ShipBobRedirectURI:  getEnv("SHIPBOB_REDIRECT_URI", ""),
		ShipBobAuthURL:      getEnv("SHIPBOB_AUTH_URL", DefaultAuthURL),
		ShipBobTokenURL:     getEnv("SHIPBOB_TOKEN_URL", DefaultTokenURL),
		ShipBobWebhookURL:   getEnv("SHIPBOB_WEBHOOK_URL", ""),

		ShopifyStore:      getEnv("SHOPIFY_STORE", ""),
		ShopifyToken:      getEnv("SHOPIFY_TOKEN", ""),
		ShopifyAPIVersion: getEnv("SHOPIFY_API_VERSION", "2024-01"),

		RegistrationDBURL: getEnv("REGISTRATION_DB_URL", ""),

		JasperAPIURL:     getEnv("JASPER_API_URL", ""),
		JasperUsername:   getEnv("JASPER_USERNAME", ""),
		JasperAPIKey:     getEnv("JASPER_API_KEY", ""),
		JasperRateLimit:  getIntEnv("JASPER_RATE_LIMIT", 50),
		JasperRateWindow: getDurationEnv("JASPER_RATE_WINDOW", 60*time.Second),

		TokenStorage:   getEnv("TOKEN_STORAGE", "file"),
		TokenFile:      getEnv("TOKEN_FILE", "tokens.json"),
		SettingsDBPath: getEnv("SETTINGS_DB_PATH", "./settings.db"),

		RateLimitBackend: getEnv("RATE_LIMIT_BACKEND", "local"),
		RedisAddress:     getEnv("REDIS_ADDRESS", "localhost:6379"),
		RedisPassword:    getEnv("REDIS_PASSWORD", ""),
		RedisDB:          getEnv("REDIS_DB", "0"),
	}
}

// getEnv retrieves an environment variable value or returns a default value
// if not set
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getIntEnv retrieves an integer environment variable value or returns a
// default value if not set or invalid
func getIntEnv(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.Atoi(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}

// getDurationEnv retrieves a duration environment variable value (e.g.
// "60s", "1m") or returns a default value if not set or invalid
func getDurationEnv(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if parsed, err := time.ParseDuration(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}

// Validate performs validation on the configuration to ensure all required
// fields are present and all values are valid.
//
// The application should call this method after loading configuration and
// before starting to ensure safe operation.
func (c *Config) Validate() error {
	if port, err := strconv.Atoi(c.Port); err != nil || port < 1 || port > 65535 {
		return fmt.Errorf("PORT must be a valid port number between 1 and 65535")
	}

	if c.ShipBobClientID == "" {
		return fmt.Errorf("SHIPBOB_CLIENT_ID environment variable is required")
	}
	if c.ShipBobClientSecret == "" {
		return fmt.Errorf("SHIPBOB_CLIENT_SECRET environment variable is required")
	}
	if c.ShipBobRedirectURI == "" {
		return fmt.Errorf("SHIPBOB_REDIRECT_URI environment variable is required")
	}

	if c.ShopifyStore == "" {
		return fmt.Errorf("SHOPIFY_STORE environment variable is required")
	}
	if c.ShopifyToken == "" {
		return fmt.Errorf("SHOPIFY_TOKEN environment variable is required")
	}

	switch strings.ToLower(c.TokenStorage) {
	case "file", "sqlite":
	default:
		return fmt.Errorf("TOKEN_STORAGE must be 'file' or 'sqlite'")
	}

	if c.JasperRateLimit <= 0 {
		return fmt.Errorf("JASPER_RATE_LIMIT must be positive")
	}
	if c.JasperRateWindow <= 0 {
		return fmt.Errorf("JASPER_RATE_WINDOW must be positive")
	}

	switch strings.ToLower(c.RateLimitBackend) {
	case "local":
	case "redis":
		if c.RedisAddress == "" {
			return fmt.Errorf("REDIS_ADDRESS is required when RATE_LIMIT_BACKEND is 'redis'")
		}
		if db, err := strconv.Atoi(c.RedisDB); err != nil || db < 0 || db > 15 {
			return fmt.Errorf("REDIS_DB must be a number between 0 and 15")
		}
	default:
		return fmt.Errorf("RATE_LIMIT_BACKEND must be 'local' or 'redis'")
	}

	return nil
}

// RedisDBNumber returns the configured Redis database as an int. Validate
// guarantees the value parses when the redis backend is selected.
func (c *Config) RedisDBNumber() int {
	db, _ := strconv.Atoi(c.RedisDB)
	return db
}
