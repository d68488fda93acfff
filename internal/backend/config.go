package backend

import (
	"fmt"

	"expensetracker/internal/config"
)

// FromAppConfig converts the application config to backend config
func FromAppConfig(appConfig *config.Config) (Config, error) {
	if appConfig == nil {
		return Config{}, fmt.Errorf("app config is nil")
	}

	backendType := BackendType(appConfig.DataBackend)
	if !backendType.IsValid() {
		return Config{}, fmt.Errorf("invalid backend type in config: %s (must be one of %v)", appConfig.DataBackend, GetBackendTypeStrings())
	}

	return Config{
		Type: backendType,

		SQLiteDBPath: appConfig.SQLiteDBPath,

		DataDirectory:  appConfig.DataDir,
		MigrateOnStart: appConfig.MigrateOnStart,

		AMQPURL:        appConfig.AMQPURL,
		AMQPExchange:   appConfig.AMQPExchange,
		AMQPRoutingKey: appConfig.AMQPRoutingKey,
	}, nil
}

// Validate validates the backend configuration
func (c Config) Validate() error {
	if !c.Type.IsValid() {
		return fmt.Errorf("invalid backend type %q: must be one of %v", c.Type, GetBackendTypeStrings())
	}

	switch c.Type {
	case SQLiteBackend:
		if c.SQLiteDBPath == "" {
			return fmt.Errorf("SQLite database path is required for sqlite backend")
		}
		if c.MigrateOnStart && c.DataDirectory == "" {
			return fmt.Errorf("data directory is required to migrate legacy files")
		}
	case JSONBackend:
		if c.DataDirectory == "" {
			return fmt.Errorf("data directory is required for json backend")
		}
	}

	// AMQP is optional
	if c.AMQPURL != "" && (c.AMQPExchange == "" || c.AMQPRoutingKey == "") {
		return fmt.Errorf("AMQP exchange and routing key are required when AMQP URL is set")
	}
	return nil
}

// GetBackendTypes returns all valid backend types
func GetBackendTypes() []BackendType {
	return []BackendType{SQLiteBackend, JSONBackend}
}

// GetBackendTypeStrings returns all valid backend type strings
func GetBackendTypeStrings() []string {
	types := GetBackendTypes()
	out := make([]string, len(types))
	for i, t := range types {
		out[i] = t.String()
	}
	return out
}
