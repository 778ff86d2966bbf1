// Package config provides application configuration management following SOLID principles.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

// Config defines the application configuration interface.
// Following Interface Segregation Principle.
type Config interface {
	GetServerPort() string
	GetDatabasePath() string
	GetJWTSecret() string
	GetEnvironment() string
	GetLogLevel() string
	IsProduction() bool
}

// ServerConfig interface for server-specific configuration.
type ServerConfig interface {
	GetServerPort() string
	GetReadTimeout() time.Duration
	GetWriteTimeout() time.Duration
	GetIdleTimeout() time.Duration
}

// DatabaseConfig interface for database-specific configuration.
type DatabaseConfig interface {
	GetDatabasePath() string
}

// SecurityConfig interface for security-related configuration.
type SecurityConfig interface {
	GetJWTSecret() string
	GetJWTExpiration() time.Duration
}

// GitHubConfig interface for GitHub OAuth configuration.
type GitHubConfig interface {
	GetGitHubClientID() string
	GetGitHubClientSecret() string
	GetGitHubRedirectURL() string
	GetOAuthStateTTL() time.Duration
	GetFrontendURL() string
}

// AnalysisConfig interface for analysis pipeline configuration.
type AnalysisConfig interface {
	GetAnalysisWorkers() int
}

// RateLimitSettings interface for rate limiting configuration.
type RateLimitSettings interface {
	IsRateLimitEnabled() bool
	GetRateLimitPerMinute() int
	UseRedisRateLimit() bool
}

// RedisConfig interface for Redis connection configuration.
type RedisConfig interface {
	GetRedisAddr() string
	GetRedisPassword() string
	GetRedisDB() int
}

// AppConfig implements all configuration interfaces.
type AppConfig struct {
	serverPort         string
	databasePath       string
	jwtSecret          string
	environment        string
	logLevel           string
	githubClientID     string
	githubClientSecret string
	githubRedirectURL  string
	frontendURL        string
	redisAddr          string
	redisPassword      string
	readTimeout        time.Duration
	writeTimeout       time.Duration
	idleTimeout        time.Duration
	jwtExpiration      time.Duration
	oauthStateTTL      time.Duration
	analysisWorkers    int
	rateLimitPerMinute int
	redisDB            int
	rateLimitEnabled   bool
	rateLimitUseRedis  bool
}

// NewConfig creates a new configuration instance with default values
// and overrides from environment variables.
func NewConfig() *AppConfig {
	return &AppConfig{
		serverPort:         getEnvString("SERVER_PORT", "8080"),
		databasePath:       getEnvString("DATABASE_PATH", "flynch_data/flynch.db"),
		jwtSecret:          getEnvString("JWT_SECRET", defaultJWTSecret),
		environment:        getEnvString("ENVIRONMENT", "development"),
		logLevel:           getEnvString("LOG_LEVEL", "info"),
		githubClientID:     getEnvString("GITHUB_CLIENT_ID", ""),
		githubClientSecret: getEnvString("GITHUB_CLIENT_SECRET", ""),
		githubRedirectURL:  getEnvString("GITHUB_REDIRECT_URL", "http://localhost:8080/api/auth/github/callback"),
		frontendURL:        getEnvString("FRONTEND_URL", "http://localhost:3000"),
		redisAddr:          getEnvString("REDIS_ADDR", "localhost:6379"),
		redisPassword:      getEnvString("REDIS_PASSWORD", ""),
		readTimeout:        getEnvDuration("READ_TIMEOUT", "15s"),
		writeTimeout:       getEnvDuration("WRITE_TIMEOUT", "15s"),
		idleTimeout:        getEnvDuration("IDLE_TIMEOUT", "60s"),
		jwtExpiration:      getEnvDuration("JWT_EXPIRATION", "30m"),
		oauthStateTTL:      getEnvDuration("OAUTH_STATE_TTL", "10m"),
		analysisWorkers:    getEnvInt("ANALYSIS_WORKERS", 4),
		rateLimitPerMinute: getEnvInt("RATE_LIMIT_PER_MINUTE", 120),
		redisDB:            getEnvInt("REDIS_DB", 0),
		rateLimitEnabled:   getEnvBool("RATE_LIMIT_ENABLED", false),
		rateLimitUseRedis:  getEnvBool("RATE_LIMIT_USE_REDIS", false),
	}
}

// GetServerPort returns the server port configuration.
func (c *AppConfig) GetServerPort() string {
	return c.serverPort
}

// GetDatabasePath returns the SQLite database file path.
func (c *AppConfig) GetDatabasePath() string {
	return c.databasePath
}

// GetJWTSecret returns the JWT secret configuration.
func (c *AppConfig) GetJWTSecret() string {
	return c.jwtSecret
}

// GetEnvironment returns the application environment configuration.
func (c *AppConfig) GetEnvironment() string {
	return c.environment
}

// GetLogLevel returns the log level configuration.
func (c *AppConfig) GetLogLevel() string {
	return c.logLevel
}

// IsProduction returns true if the application is running in production environment.
func (c *AppConfig) IsProduction() bool {
	return c.environment == "production"
}

// GetReadTimeout returns the server read timeout configuration.
func (c *AppConfig) GetReadTimeout() time.Duration {
	return c.readTimeout
}

// GetWriteTimeout returns the server write timeout configuration.
func (c *AppConfig) GetWriteTimeout() time.Duration {
	return c.writeTimeout
}

// GetIdleTimeout returns the server idle timeout configuration.
func (c *AppConfig) GetIdleTimeout() time.Duration {
	return c.idleTimeout
}

// GetJWTExpiration returns the session token lifetime.
func (c *AppConfig) GetJWTExpiration() time.Duration {
	return c.jwtExpiration
}

// GetGitHubClientID returns the GitHub OAuth client ID.
func (c *AppConfig) GetGitHubClientID() string {
	return c.githubClientID
}

// GetGitHubClientSecret returns the GitHub OAuth client secret.
func (c *AppConfig) GetGitHubClientSecret() string {
	return c.githubClientSecret
}

// GetGitHubRedirectURL returns the OAuth callback URL registered with GitHub.
func (c *AppConfig) GetGitHubRedirectURL() string {
	return c.githubRedirectURL
}

// GetOAuthStateTTL returns the lifetime of OAuth state tokens.
func (c *AppConfig) GetOAuthStateTTL() time.Duration {
	return c.oauthStateTTL
}

// GetFrontendURL returns the frontend base URL used for OAuth redirects.
func (c *AppConfig) GetFrontendURL() string {
	return c.frontendURL
}

// GetAnalysisWorkers returns the analysis worker pool size.
func (c *AppConfig) GetAnalysisWorkers() int {
	return c.analysisWorkers
}

// IsRateLimitEnabled returns true if request rate limiting is enabled.
func (c *AppConfig) IsRateLimitEnabled() bool {
	return c.rateLimitEnabled
}

// GetRateLimitPerMinute returns the allowed requests per minute per client.
func (c *AppConfig) GetRateLimitPerMinute() int {
	return c.rateLimitPerMinute
}

// UseRedisRateLimit returns true if rate limiting should use Redis.
func (c *AppConfig) UseRedisRateLimit() bool {
	return c.rateLimitUseRedis
}

// GetRedisAddr returns the Redis server address.
func (c *AppConfig) GetRedisAddr() string {
	return c.redisAddr
}

// GetRedisPassword returns the Redis password.
func (c *AppConfig) GetRedisPassword() string {
	return c.redisPassword
}

// GetRedisDB returns the Redis database number.
func (c *AppConfig) GetRedisDB() int {
	return c.redisDB
}

// Validate checks if the configuration is valid.
func (c *AppConfig) Validate() error {
	if c.serverPort == "" {
		return fmt.Errorf("server port cannot be empty")
	}

	if c.jwtSecret == "" {
		return fmt.Errorf("JWT secret cannot be empty")
	}

	if len(c.jwtSecret) < 32 {
		return fmt.Errorf("JWT secret must be at least 32 characters long")
	}

	if c.IsProduction() && c.jwtSecret == defaultJWTSecret {
		return fmt.Errorf("JWT secret must be overridden in production")
	}

	if c.environment != "development" && c.environment != "staging" && c.environment != "production" {
		return fmt.Errorf("environment must be one of: development, staging, production")
	}

	if c.databasePath == "" {
		return fmt.Errorf("database path cannot be empty")
	}

	if c.jwtExpiration <= 0 {
		return fmt.Errorf("JWT expiration must be positive")
	}

	if c.oauthStateTTL <= 0 {
		return fmt.Errorf("OAuth state TTL must be positive")
	}

	if c.analysisWorkers < 1 {
		return fmt.Errorf("analysis workers must be at least 1")
	}

	if c.rateLimitEnabled && c.rateLimitPerMinute < 1 {
		return fmt.Errorf("rate limit per minute must be at least 1")
	}

	if c.rateLimitUseRedis && c.redisAddr == "" {
		return fmt.Errorf("redis address is required for Redis rate limiting")
	}

	return nil
}

// Helper functions for environment variable parsing.
func getEnvString(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolValue, err := strconv.ParseBool(value); err == nil {
			return boolValue
		}
	}
	return defaultValue
}

func getEnvDuration(key, defaultValue string) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	if duration, err := time.ParseDuration(defaultValue); err == nil {
		return duration
	}
	return time.Second
}

// defaultJWTSecret is only suitable for development; Validate rejects it
// in production.
const defaultJWTSecret = "flynch-development-jwt-secret-key-32chars-minimum-length"
