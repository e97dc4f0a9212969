// Package config provides application configuration management with support for environment variables and .env files.
package config

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"
)

// Config holds the application configuration.
type Config struct {
	App     AppConfig
	Logger  LoggerConfig
	Data    DataConfig
	Server  ServerConfig
	Auth    AuthConfig
	Catalog CatalogConfig
	Mail    MailConfig
}

// AppConfig holds application-level configuration.
type AppConfig struct {
	Environment string
}

// LoggerConfig holds logging configuration.
type LoggerConfig struct {
	Level string
}

// DataConfig holds persistent data storage configuration.
type DataConfig struct {
	BasePath string
}

// ServerConfig holds HTTP server configuration.
type ServerConfig struct {
	Port           string
	ClientOrigins  []string      // Allowed CORS origins for the SPA client
	ReadTimeout    time.Duration // HTTP read timeout (default: 15s)
	WriteTimeout   time.Duration // HTTP write timeout (default: 60s, search proxies a slow catalog)
	IdleTimeout    time.Duration // HTTP idle timeout (default: 60s)
}

// AuthConfig holds authentication configuration.
type AuthConfig struct {
	// PASETO v4 symmetric key for access tokens (32 bytes)
	TokenKey []byte
	// Bearer token validity (default: 720h = 30 days)
	TokenDuration time.Duration
	// Password reset token validity (default: 1h)
	ResetTokenDuration time.Duration
}

// CatalogConfig holds Open Library catalog configuration.
type CatalogConfig struct {
	BaseURL string
	// CoverBaseURL is the covers CDN (default: https://covers.openlibrary.org)
	CoverBaseURL string
	// SearchTimeout bounds full search/detail requests (default: 30s)
	SearchTimeout time.Duration
	// SuggestTimeout bounds autocomplete requests (default: 10s)
	SuggestTimeout time.Duration
}

// MailConfig holds SMTP configuration for password reset emails.
type MailConfig struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string
	// FrontendURL is the SPA base used to build reset links
	FrontendURL string
}

// Load builds configuration from multiple sources with precedence:
// 1. Environment variables.
// 2. .env file.
// 3. Default values (lowest priority).
//
// Flags are intentionally not used here: the server is deployed via env
// configuration only, and flag.Parse collides with `go test` flags.
func Load() (*Config, error) {
	// Load .env file if it exists (silently ignore if not found).
	_ = loadEnvFile(getEnv("ENV_FILE", ".env"))

	cfg := &Config{
		App: AppConfig{
			Environment: getEnv("ENV", "development"),
		},
		Logger: LoggerConfig{
			Level: getEnv("LOG_LEVEL", "info"),
		},
		Data: DataConfig{
			BasePath: getEnv("DATA_PATH", ""),
		},
		Server: ServerConfig{
			Port:          getEnv("SERVER_PORT", "8080"),
			ClientOrigins: splitList(getEnv("CLIENT_ORIGINS", "http://localhost:5173")),
		},
		Catalog: CatalogConfig{
			BaseURL:      getEnv("OPEN_LIBRARY_URL", "https://openlibrary.org"),
			CoverBaseURL: getEnv("OPEN_LIBRARY_COVERS_URL", "https://covers.openlibrary.org"),
		},
		Mail: MailConfig{
			Host:        getEnv("SMTP_HOST", ""),
			Port:        getIntEnv("SMTP_PORT", 587),
			Username:    getEnv("SMTP_USER", ""),
			Password:    getEnv("SMTP_PASS", ""),
			From:        getEnv("SMTP_FROM", "Shelfmark <no-reply@shelfmark.local>"),
			FrontendURL: getEnv("FRONTEND_URL", "http://localhost:5173"),
		},
	}

	var err error
	if cfg.Auth.TokenDuration, err = getDurationEnv("TOKEN_DURATION", "720h"); err != nil {
		return nil, err
	}
	if cfg.Auth.ResetTokenDuration, err = getDurationEnv("RESET_TOKEN_DURATION", "1h"); err != nil {
		return nil, err
	}
	if cfg.Server.ReadTimeout, err = getDurationEnv("SERVER_READ_TIMEOUT", "15s"); err != nil {
		return nil, err
	}
	if cfg.Server.WriteTimeout, err = getDurationEnv("SERVER_WRITE_TIMEOUT", "60s"); err != nil {
		return nil, err
	}
	if cfg.Server.IdleTimeout, err = getDurationEnv("SERVER_IDLE_TIMEOUT", "60s"); err != nil {
		return nil, err
	}
	if cfg.Catalog.SearchTimeout, err = getDurationEnv("CATALOG_SEARCH_TIMEOUT", "30s"); err != nil {
		return nil, err
	}
	if cfg.Catalog.SuggestTimeout, err = getDurationEnv("CATALOG_SUGGEST_TIMEOUT", "10s"); err != nil {
		return nil, err
	}

	if err := cfg.expandDataPath(); err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate checks the configuration for invalid values.
func (c *Config) Validate() error {
	switch c.App.Environment {
	case "development", "staging", "production":
	default:
		return fmt.Errorf("invalid environment: %s (must be development, staging, or production)", c.App.Environment)
	}

	if c.Catalog.BaseURL == "" {
		return fmt.Errorf("catalog base URL must not be empty")
	}

	if _, err := strconv.Atoi(c.Server.Port); err != nil {
		return fmt.Errorf("invalid server port %q: %w", c.Server.Port, err)
	}

	return nil
}

// MailConfigured reports whether SMTP delivery is configured.
func (c *Config) MailConfigured() bool {
	return c.Mail.Host != ""
}

// expandDataPath resolves the data path, defaulting to ~/.shelfmark.
func (c *Config) expandDataPath() error {
	path := c.Data.BasePath
	if path == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return fmt.Errorf("resolve home directory: %w", err)
		}
		c.Data.BasePath = filepath.Join(home, ".shelfmark")
		return nil
	}

	if strings.HasPrefix(path, "~/") {
		home, err := os.UserHomeDir()
		if err != nil {
			return fmt.Errorf("resolve home directory: %w", err)
		}
		c.Data.BasePath = filepath.Join(home, path[2:])
	}

	return nil
}

// getEnv returns the environment value or the default.
func getEnv(key, defaultValue string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultValue
}

// getIntEnv returns an int from the environment or the default.
func getIntEnv(key string, defaultValue int) int {
	v := os.Getenv(key)
	if v == "" {
		return defaultValue
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return defaultValue
	}
	return n
}

// getDurationEnv parses a duration from the environment with a default.
func getDurationEnv(key, defaultValue string) (time.Duration, error) {
	v := getEnv(key, defaultValue)
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("invalid %s %q: %w", key, v, err)
	}
	return d, nil
}

// splitList splits a comma-separated value, trimming whitespace.
func splitList(v string) []string {
	parts := strings.Split(v, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// loadEnvFile loads environment variables from a .env file.
// Lines are KEY=VALUE; blank lines and #-comments are ignored.
func loadEnvFile(path string) error {
	f, err := os.Open(path) //#nosec G304 -- path comes from deployment configuration
	if err != nil {
		return err
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		key, value, ok := strings.Cut(line, "=")
		if !ok {
			continue
		}
		key = strings.TrimSpace(key)
		value = strings.Trim(strings.TrimSpace(value), `"'`)

		// Real env vars take precedence over .env file entries.
		if os.Getenv(key) == "" {
			if err := os.Setenv(key, value); err != nil {
				return fmt.Errorf("set env var %s: %w", key, err)
			}
		}
	}

	return scanner.Err()
}
