package config

import (
	"fmt"
	"os"
	"strings"
	"time"
)

const defaultJWTSecret = "change-me-in-production-secret-key"

// Config holds the application configuration
type Config struct {
	Environment   string
	ServerAddress string
	DatabasePath  string
	SeedFile      string
	Auth          AuthConfig
	Data          DataConfig
	Throttle      ThrottleConfig
	CORS          CORSConfig
}

// CORSConfig holds CORS configuration
type CORSConfig struct {
	AllowedOrigins []string
}

// AuthConfig holds authentication and route gating configuration
type AuthConfig struct {
	JWTSecret      string
	BaseURL        string // Base URL for the auth handlers (e.g., http://localhost:8080)
	SecureCookie   bool
	TokenDuration  time.Duration
	CookieDuration time.Duration
	LoginPath      string
	ProtectedPaths []string
	CheckTimeout   time.Duration // Upper bound for the session validity check
}

// DataConfig holds settings for the post/stats fetches behind the pages
type DataConfig struct {
	FetchTimeout time.Duration
	PreviewLimit int
}

// ThrottleConfig holds login throttling configuration
type ThrottleConfig struct {
	RedisURL    string // Empty means in-memory throttling
	MaxAttempts int
	Window      time.Duration
	Lockout     time.Duration
}

// Load loads configuration from environment variables with defaults
func Load() (*Config, error) {
	corsOrigins := getEnv("CORS_ALLOWED_ORIGINS", "http://localhost:3000,http://localhost:8080")
	protected := getEnv("PROTECTED_PATHS", "/post,/feed,/dashboard")

	cfg := &Config{
		Environment:   getEnv("ENVIRONMENT", "development"),
		ServerAddress: getEnv("SERVER_ADDRESS", ":8080"),
		DatabasePath:  getEnv("DATABASE_PATH", "./data/blog.db"),
		SeedFile:      os.Getenv("SEED_FILE"),
		Auth: AuthConfig{
			JWTSecret:      getEnv("AUTH_JWT_SECRET", defaultJWTSecret),
			BaseURL:        getEnv("AUTH_BASE_URL", "http://localhost:8080"),
			SecureCookie:   getEnv("AUTH_SECURE_COOKIE", "false") == "true",
			TokenDuration:  getEnvDuration("AUTH_TOKEN_DURATION", 15*time.Minute),
			CookieDuration: getEnvDuration("AUTH_COOKIE_DURATION", 7*24*time.Hour),
			LoginPath:      getEnv("AUTH_LOGIN_PATH", "/login"),
			ProtectedPaths: parseCommaSeparatedList(protected),
			CheckTimeout:   getEnvDuration("SESSION_CHECK_TIMEOUT", 2*time.Second),
		},
		Data: DataConfig{
			FetchTimeout: getEnvDuration("DATA_FETCH_TIMEOUT", 5*time.Second),
			PreviewLimit: 3,
		},
		Throttle: ThrottleConfig{
			RedisURL:    os.Getenv("THROTTLE_REDIS_URL"),
			MaxAttempts: 5,
			Window:      15 * time.Minute,
			Lockout:     10 * time.Minute,
		},
		CORS: CORSConfig{
			AllowedOrigins: parseCommaSeparatedList(corsOrigins),
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// IsProduction reports whether the server runs with production settings
func (c *Config) IsProduction() bool {
	return c.Environment == "production"
}

// Validate checks settings that would make the server unsafe or unusable
func (c *Config) Validate() error {
	if c.IsProduction() && c.Auth.JWTSecret == defaultJWTSecret {
		return fmt.Errorf("AUTH_JWT_SECRET must be set in production")
	}
	if !strings.HasPrefix(c.Auth.LoginPath, "/") {
		return fmt.Errorf("AUTH_LOGIN_PATH must start with '/': %q", c.Auth.LoginPath)
	}
	for _, p := range c.Auth.ProtectedPaths {
		if !strings.HasPrefix(p, "/") {
			return fmt.Errorf("protected path must start with '/': %q", p)
		}
		if strings.TrimSuffix(p, "/*") == c.Auth.LoginPath {
			return fmt.Errorf("login path %q cannot be protected", c.Auth.LoginPath)
		}
	}
	if c.Auth.CheckTimeout <= 0 {
		return fmt.Errorf("SESSION_CHECK_TIMEOUT must be positive")
	}
	if c.Data.FetchTimeout <= 0 {
		return fmt.Errorf("DATA_FETCH_TIMEOUT must be positive")
	}
	return nil
}

// parseCommaSeparatedList splits a comma-separated string into a slice
func parseCommaSeparatedList(s string) []string {
	if s == "" {
		return []string{}
	}

	items := strings.Split(s, ",")
	result := make([]string, 0, len(items))

	for _, item := range items {
		item = strings.TrimSpace(item)
		if item != "" {
			result = append(result, item)
		}
	}

	return result
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvDuration parses a Go duration string, falling back on parse errors
func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		return defaultValue
	}
	return d
}
