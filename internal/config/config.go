package config

import (
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"slices"
	"strconv"
	"strings"
	"time"
)

type Config struct {
	// HTTP Server
	Port      string
	LogLevel  string
	LogFormat string

	// Local ledger
	DataBackend  string
	SQLiteDBPath string

	// AMQP (optional; empty URL disables sync nudges)
	AMQPURL      string
	AMQPExchange string
	AMQPQueue    string

	// Remote household database (optional)
	RemoteDatabaseURL string

	// Sync worker
	SyncBatchSize  int
	SyncInterval   time.Duration
	SyncMaxRetries int

	// Dashboard
	NotificationPollInterval time.Duration
	TrendMonths              int

	// Identity provider
	OAuthClientID     string
	OAuthClientSecret string
	OAuthAuthURL      string
	OAuthTokenURL     string
	OAuthUserInfoURL  string
	OAuthRedirectURL  string

	// Local development identity, used when no identity provider is set
	DevUserID    string
	DevUserEmail string

	// Google Sheets export (optional)
	GoogleSpreadsheetID      string
	GoogleExportSheetName    string
	GoogleServiceAccountJSON string
	GoogleServiceAccountFile string
}

var (
	validBackends   = []string{"memory", "sqlite"}
	validLogLevels  = []string{"debug", "info", "warn", "error"}
	validLogFormats = []string{"text", "json"}
)

func Load() *Config {
	return &Config{
		Port:      getEnv("PORT", "8081"),
		LogLevel:  strings.ToLower(getEnv("LOG_LEVEL", "info")),
		LogFormat: strings.ToLower(getEnv("LOG_FORMAT", "text")),

		DataBackend:  getEnv("DATA_BACKEND", "sqlite"),
		SQLiteDBPath: getEnv("SQLITE_DB_PATH", "./data/budgetbook.db"),

		AMQPURL:      getEnv("AMQP_URL", ""),
		AMQPExchange: getEnv("AMQP_EXCHANGE", "budgetbook"),
		AMQPQueue:    getEnv("AMQP_QUEUE", "sync_ledger"),

		RemoteDatabaseURL: getEnv("REMOTE_DATABASE_URL", ""),

		SyncBatchSize:  getEnvInt("SYNC_BATCH_SIZE", 10),
		SyncInterval:   getEnvDuration("SYNC_INTERVAL", 30*time.Second),
		SyncMaxRetries: getEnvInt("SYNC_MAX_RETRIES", 3),

		NotificationPollInterval: getEnvDuration("NOTIFICATION_POLL_INTERVAL", 30*time.Second),
		TrendMonths:              getEnvInt("TREND_MONTHS", 6),

		OAuthClientID:     getEnv("OAUTH_CLIENT_ID", ""),
		OAuthClientSecret: getEnv("OAUTH_CLIENT_SECRET", ""),
		OAuthAuthURL:      getEnv("OAUTH_AUTH_URL", ""),
		OAuthTokenURL:     getEnv("OAUTH_TOKEN_URL", ""),
		OAuthUserInfoURL:  getEnv("OAUTH_USERINFO_URL", ""),
		OAuthRedirectURL:  getEnv("OAUTH_REDIRECT_URL", "http://localhost:8081/auth/callback"),

		DevUserID:    getEnv("DEV_USER_ID", ""),
		DevUserEmail: getEnv("DEV_USER_EMAIL", ""),

		GoogleSpreadsheetID:      getEnv("GOOGLE_SPREADSHEET_ID", ""),
		GoogleExportSheetName:    getEnv("GOOGLE_EXPORT_SHEET_NAME", "Budgetbook Export"),
		GoogleServiceAccountJSON: getEnv("GOOGLE_SERVICE_ACCOUNT_JSON", ""),
		GoogleServiceAccountFile: getEnv("GOOGLE_SERVICE_ACCOUNT_FILE", ""),
	}
}

// RemoteEnabled reports whether a household database is configured.
func (c *Config) RemoteEnabled() bool { return c.RemoteDatabaseURL != "" }

// OAuthEnabled reports whether the identity provider is configured.
func (c *Config) OAuthEnabled() bool { return c.OAuthClientID != "" }

// SheetsEnabled reports whether Google Sheets export is configured.
func (c *Config) SheetsEnabled() bool { return c.GoogleSpreadsheetID != "" }

// Validate validates the configuration and returns an error if invalid
func (c *Config) Validate() error {
	var errors []string

	// Validate port
	if port, err := strconv.Atoi(c.Port); err != nil {
		errors = append(errors, fmt.Sprintf("invalid port '%s': must be a number", c.Port))
	} else if port < 1 || port > 65535 {
		errors = append(errors, fmt.Sprintf("invalid port %d: must be between 1 and 65535", port))
	}

	if !slices.Contains(validLogLevels, c.LogLevel) {
		errors = append(errors, fmt.Sprintf("invalid log level '%s': must be one of %v", c.LogLevel, validLogLevels))
	}

	if !slices.Contains(validLogFormats, c.LogFormat) {
		errors = append(errors, fmt.Sprintf("invalid log format '%s': must be one of %v", c.LogFormat, validLogFormats))
	}

	// Validate data backend
	if !slices.Contains(validBackends, c.DataBackend) {
		errors = append(errors, fmt.Sprintf("invalid data backend '%s': must be one of %v", c.DataBackend, validBackends))
	}

	// Validate SQLite configuration if backend is sqlite
	if c.DataBackend == "sqlite" {
		if c.SQLiteDBPath == "" {
			errors = append(errors, "SQLite database path cannot be empty when using sqlite backend")
		} else {
			dir := filepath.Dir(c.SQLiteDBPath)
			if dir != "." && dir != "" {
				if _, err := os.Stat(dir); os.IsNotExist(err) {
					if err := os.MkdirAll(dir, 0755); err != nil {
						errors = append(errors, fmt.Sprintf("cannot create SQLite database directory '%s': %v", dir, err))
					}
				}
			}
		}
	}

	// Validate AMQP URL if provided
	if c.AMQPURL != "" {
		if parsedURL, err := url.Parse(c.AMQPURL); err != nil {
			errors = append(errors, fmt.Sprintf("invalid AMQP URL '%s': %v", c.AMQPURL, err))
		} else if parsedURL.Scheme != "amqp" && parsedURL.Scheme != "amqps" {
			errors = append(errors, fmt.Sprintf("invalid AMQP URL scheme '%s': must be 'amqp' or 'amqps'", parsedURL.Scheme))
		}
		if c.AMQPExchange == "" {
			errors = append(errors, "AMQP exchange name cannot be empty when AMQP URL is provided")
		}
		if c.AMQPQueue == "" {
			errors = append(errors, "AMQP queue name cannot be empty when AMQP URL is provided")
		}
	}

	// Validate remote database URL if provided
	if c.RemoteDatabaseURL != "" && !strings.HasPrefix(c.RemoteDatabaseURL, "sqlite:") {
		if parsedURL, err := url.Parse(c.RemoteDatabaseURL); err != nil {
			errors = append(errors, fmt.Sprintf("invalid remote database URL: %v", err))
		} else if parsedURL.Scheme != "postgres" && parsedURL.Scheme != "postgresql" {
			errors = append(errors, fmt.Sprintf("invalid remote database URL scheme '%s': must be 'postgres', 'postgresql' or 'sqlite:'", parsedURL.Scheme))
		}
	}

	// Identity provider settings come as a set
	if c.OAuthEnabled() {
		required := map[string]string{
			"OAUTH_CLIENT_SECRET": c.OAuthClientSecret,
			"OAUTH_AUTH_URL":      c.OAuthAuthURL,
			"OAUTH_TOKEN_URL":     c.OAuthTokenURL,
			"OAUTH_USERINFO_URL":  c.OAuthUserInfoURL,
			"OAUTH_REDIRECT_URL":  c.OAuthRedirectURL,
		}
		keys := make([]string, 0, len(required))
		for k := range required {
			keys = append(keys, k)
		}
		slices.Sort(keys)
		for _, k := range keys {
			if required[k] == "" {
				errors = append(errors, fmt.Sprintf("%s is required when OAUTH_CLIENT_ID is set", k))
			}
		}
	}
	if c.DevUserID != "" && c.OAuthEnabled() {
		errors = append(errors, "DEV_USER_ID cannot be combined with OAUTH_CLIENT_ID")
	}

	// Validate Google Sheets export if configured
	if c.SheetsEnabled() {
		if c.GoogleExportSheetName == "" {
			errors = append(errors, "GOOGLE_EXPORT_SHEET_NAME cannot be empty when GOOGLE_SPREADSHEET_ID is set")
		}
		if c.GoogleServiceAccountFile != "" {
			if _, err := os.Stat(c.GoogleServiceAccountFile); os.IsNotExist(err) {
				errors = append(errors, fmt.Sprintf("Google service account file does not exist: %s", c.GoogleServiceAccountFile))
			}
		}
	}

	// Validate worker configuration
	if c.SyncBatchSize < 1 {
		errors = append(errors, fmt.Sprintf("invalid sync batch size %d: must be at least 1", c.SyncBatchSize))
	} else if c.SyncBatchSize > 1000 {
		errors = append(errors, fmt.Sprintf("invalid sync batch size %d: must be at most 1000", c.SyncBatchSize))
	}

	if c.SyncInterval < time.Second {
		errors = append(errors, fmt.Sprintf("invalid sync interval %v: must be at least 1 second", c.SyncInterval))
	} else if c.SyncInterval > 24*time.Hour {
		errors = append(errors, fmt.Sprintf("invalid sync interval %v: must be at most 24 hours", c.SyncInterval))
	}

	if c.SyncMaxRetries < 1 || c.SyncMaxRetries > 100 {
		errors = append(errors, fmt.Sprintf("invalid sync max retries %d: must be between 1 and 100", c.SyncMaxRetries))
	}

	if c.NotificationPollInterval < time.Second {
		errors = append(errors, fmt.Sprintf("invalid notification poll interval %v: must be at least 1 second", c.NotificationPollInterval))
	}

	if c.TrendMonths < 2 || c.TrendMonths > 36 {
		errors = append(errors, fmt.Sprintf("invalid trend months %d: must be between 2 and 36", c.TrendMonths))
	}

	// Return combined errors
	if len(errors) > 0 {
		return fmt.Errorf("configuration validation failed:\n- %s", strings.Join(errors, "\n- "))
	}

	return nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if i, err := strconv.Atoi(value); err == nil {
			return i
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}
