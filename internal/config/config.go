package config

import (
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"
)

const (
	BackendSQLite = "sqlite"
	BackendJSON   = "json"
)

type Config struct {
	// HTTP Server
	Port string

	// Backend selection
	DataBackend string

	// Database
	SQLiteDBPath string

	// JSON backend files and legacy migration sources
	DataDir        string
	MigrateOnStart bool

	// Features
	EnableCredits       bool
	EnableSubcategories bool

	// Sessions
	SessionTTL         time.Duration
	LoginRatePerMinute int
	// SecureCookies marks the session cookie Secure; enable behind TLS.
	SecureCookies bool

	// AMQP (empty URL disables ledger events)
	AMQPURL        string
	AMQPExchange   string
	AMQPRoutingKey string

	// Google Sheets export
	GoogleSpreadsheetID      string
	GoogleServiceAccountFile string
	GoogleServiceAccountJSON string
	GoogleExportSheetPrefix  string

	// Logging
	LogLevel  string
	LogFormat string
}

func Load() *Config {
	return &Config{
		Port: getEnv("PORT", "8081"),

		DataBackend:  strings.ToLower(getEnv("DATA_BACKEND", BackendSQLite)),
		SQLiteDBPath: getEnv("SQLITE_DB_PATH", "./data/expense_tracker.db"),

		DataDir:        getEnv("DATA_DIR", "./data"),
		MigrateOnStart: getEnvBool("MIGRATE_ON_START", true),

		EnableCredits:       getEnvBool("ENABLE_CREDITS", true),
		EnableSubcategories: getEnvBool("ENABLE_SUBCATEGORIES", true),

		SessionTTL:         getEnvDuration("SESSION_TTL", 12*time.Hour),
		LoginRatePerMinute: getEnvInt("LOGIN_RATE_PER_MINUTE", 10),
		SecureCookies:      getEnvBool("SECURE_COOKIES", false),

		AMQPURL:        getEnv("AMQP_URL", ""),
		AMQPExchange:   getEnv("AMQP_EXCHANGE", "expenses"),
		AMQPRoutingKey: getEnv("AMQP_ROUTING_KEY", "ledger.events"),

		GoogleSpreadsheetID:      getEnv("GOOGLE_SPREADSHEET_ID", ""),
		GoogleServiceAccountFile: getEnv("GOOGLE_SERVICE_ACCOUNT_FILE", ""),
		GoogleServiceAccountJSON: getEnv("GOOGLE_SERVICE_ACCOUNT_JSON", ""),
		GoogleExportSheetPrefix:  getEnv("GOOGLE_EXPORT_SHEET_PREFIX", "Expenses"),

		LogLevel:  strings.ToLower(getEnv("LOG_LEVEL", "info")),
		LogFormat: strings.ToLower(getEnv("LOG_FORMAT", "text")),
	}
}

// SheetsExportEnabled reports whether a spreadsheet and credentials are set.
func (c *Config) SheetsExportEnabled() bool {
	return c.GoogleSpreadsheetID != "" &&
		(c.GoogleServiceAccountFile != "" || c.GoogleServiceAccountJSON != "")
}

// Validate validates the configuration and returns an error if invalid
func (c *Config) Validate() error {
	var errors []string

	// Validate port
	if port, err := strconv.Atoi(c.Port); err != nil {
		errors = append(errors, fmt.Sprintf("invalid port '%s': must be a number", c.Port))
	} else if port < 1 || port > 65535 {
		errors = append(errors, fmt.Sprintf("invalid port %d: must be between 1 and 65535", port))
	}

	// Validate data backend
	validBackends := []string{BackendSQLite, BackendJSON}
	isValidBackend := false
	for _, backend := range validBackends {
		if c.DataBackend == backend {
			isValidBackend = true
			break
		}
	}
	if !isValidBackend {
		errors = append(errors, fmt.Sprintf("invalid data backend '%s': must be one of %v", c.DataBackend, validBackends))
	}

	if c.DataBackend == BackendSQLite {
		if c.SQLiteDBPath == "" {
			errors = append(errors, "SQLite database path cannot be empty when using sqlite backend")
		} else if dir := filepath.Dir(c.SQLiteDBPath); dir != "." && dir != "" {
			if err := os.MkdirAll(dir, 0755); err != nil {
				errors = append(errors, fmt.Sprintf("cannot create SQLite database directory '%s': %v", dir, err))
			}
		}
	}

	if c.DataDir == "" && (c.DataBackend == BackendJSON || c.MigrateOnStart) {
		errors = append(errors, "data directory cannot be empty when using the json backend or migrating on start")
	}

	if c.SessionTTL < time.Minute {
		errors = append(errors, fmt.Sprintf("invalid session TTL %v: must be at least 1 minute", c.SessionTTL))
	}
	if c.LoginRatePerMinute < 1 {
		errors = append(errors, fmt.Sprintf("invalid login rate %d: must be at least 1 per minute", c.LoginRatePerMinute))
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
		if c.AMQPRoutingKey == "" {
			errors = append(errors, "AMQP routing key cannot be empty when AMQP URL is provided")
		}
	}

	// The Sheets export is optional, but a file that is named must exist.
	if c.GoogleServiceAccountFile != "" {
		if _, err := os.Stat(c.GoogleServiceAccountFile); os.IsNotExist(err) {
			errors = append(errors, fmt.Sprintf("Google service account file does not exist: %s", c.GoogleServiceAccountFile))
		}
	}

	switch c.LogLevel {
	case "debug", "info", "warn", "error":
	default:
		errors = append(errors, fmt.Sprintf("invalid log level '%s': must be one of debug, info, warn, error", c.LogLevel))
	}
	if c.LogFormat != "text" && c.LogFormat != "json" {
		errors = append(errors, fmt.Sprintf("invalid log format '%s': must be text or json", c.LogFormat))
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

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
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
