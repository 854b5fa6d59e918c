package backend

import (
	"fmt"
	"time"

	"budgetbook/internal/config"
	"budgetbook/internal/services"
)

// Config holds configuration for backend creation
type Config struct {
	// Backend type
	Type BackendType

	// SQLite specific
	SQLiteDBPath string

	// Sync nudges
	AMQPURL      string
	AMQPExchange string
	AMQPQueue    string

	// Remote household database
	RemoteDatabaseURL string

	// Google Sheets export
	GoogleSpreadsheetID      string
	GoogleExportSheetName    string
	GoogleServiceAccountJSON string
	GoogleServiceAccountFile string

	// Services
	SyncBatchSize            int
	SyncInterval             time.Duration
	SyncMaxRetries           int
	NotificationPollInterval time.Duration
	TrendMonths              int
	SummaryCacheSize         int
	SummaryCacheTTL          time.Duration
}

// FromAppConfig converts the application config to backend config
func FromAppConfig(appConfig *config.Config) (Config, error) {
	if appConfig == nil {
		return Config{}, fmt.Errorf("app config is nil")
	}

	backendType := BackendType(appConfig.DataBackend)
	if !backendType.IsValid() {
		return Config{}, fmt.Errorf("invalid backend type in config: %s", appConfig.DataBackend)
	}

	return Config{
		Type: backendType,

		SQLiteDBPath: appConfig.SQLiteDBPath,
		AMQPURL:      appConfig.AMQPURL,
		AMQPExchange: appConfig.AMQPExchange,
		AMQPQueue:    appConfig.AMQPQueue,

		RemoteDatabaseURL: appConfig.RemoteDatabaseURL,

		GoogleSpreadsheetID:      appConfig.GoogleSpreadsheetID,
		GoogleExportSheetName:    appConfig.GoogleExportSheetName,
		GoogleServiceAccountJSON: appConfig.GoogleServiceAccountJSON,
		GoogleServiceAccountFile: appConfig.GoogleServiceAccountFile,

		SyncBatchSize:            appConfig.SyncBatchSize,
		SyncInterval:             appConfig.SyncInterval,
		SyncMaxRetries:           appConfig.SyncMaxRetries,
		NotificationPollInterval: appConfig.NotificationPollInterval,
		TrendMonths:              appConfig.TrendMonths,
		SummaryCacheSize:         64,
		SummaryCacheTTL:          10 * time.Minute,
	}, nil
}

// Validate validates the backend configuration
func (c Config) Validate() error {
	if !c.Type.IsValid() {
		return fmt.Errorf("invalid backend type: %s", c.Type)
	}

	switch c.Type {
	case SQLiteBackend:
		if c.SQLiteDBPath == "" {
			return fmt.Errorf("SQLite database path is required for sqlite backend")
		}
	case MemoryBackend:
		// Nothing persists; no settings required.
	}

	if c.SyncBatchSize < 1 {
		return fmt.Errorf("sync batch size must be at least 1")
	}
	return nil
}

// SyncProcessorConfig derives the processor settings.
func (c Config) SyncProcessorConfig() services.SyncProcessorConfig {
	cfg := services.DefaultSyncProcessorConfig()
	if c.SyncInterval > 0 {
		cfg.PollInterval = c.SyncInterval
	}
	if c.SyncBatchSize > 0 {
		cfg.BatchSize = c.SyncBatchSize
	}
	if c.SyncMaxRetries > 0 {
		cfg.MaxRetries = c.SyncMaxRetries
	}
	return cfg
}

// GetBackendTypes returns all valid backend types
func GetBackendTypes() []BackendType {
	return []BackendType{SQLiteBackend, MemoryBackend}
}

// GetBackendTypeStrings returns all valid backend type strings
func GetBackendTypeStrings() []string {
	types := GetBackendTypes()
	strings := make([]string, len(types))
	for i, t := range types {
		strings[i] = t.String()
	}
	return strings
}
