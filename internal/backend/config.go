package backend

import (
	"fmt"

	"costledger/internal/config"
)

// FromAppConfig converts the application config to backend config
func FromAppConfig(appConfig *config.Config) (Config, error) {
	if appConfig == nil {
		return Config{}, fmt.Errorf("app config is nil")
	}

	backendType := BackendType(appConfig.DataBackend)
	if !backendType.IsValid() {
		return Config{}, fmt.Errorf("invalid backend type in config: %s", appConfig.DataBackend)
	}
	if appConfig.DBVersion < 0 {
		return Config{}, fmt.Errorf("invalid database version in config: %d", appConfig.DBVersion)
	}

	return Config{
		Type: backendType,

		DataDir:   appConfig.DataDir,
		DBName:    appConfig.DBName,
		DBVersion: uint(appConfig.DBVersion),

		RatesURL:        appConfig.RatesURL,
		RatesTimeout:    appConfig.RatesTimeout,
		RatesCacheTTL:   appConfig.RatesCacheTTL,
		DefaultCurrency: appConfig.DefaultCurrency,

		AMQPURL:       appConfig.AMQPURL,
		AMQPExchange:  appConfig.AMQPExchange,
		AMQPQueue:     appConfig.AMQPQueue,
		PublishEvents: appConfig.EventsEnabled(),
	}, nil
}

// Validate validates the backend configuration
func (c Config) Validate() error {
	if !c.Type.IsValid() {
		return fmt.Errorf("invalid backend type: %s", c.Type)
	}

	switch c.Type {
	case SQLiteBackend:
		if c.DBName == "" {
			return fmt.Errorf("database name is required for sqlite backend")
		}
		if c.DBVersion == 0 {
			return fmt.Errorf("database version is required for sqlite backend")
		}
	case MemoryBackend:
		// nothing on disk
	}

	if c.RatesURL == "" {
		return fmt.Errorf("rates URL is required")
	}
	if c.PublishEvents && c.AMQPURL == "" {
		return fmt.Errorf("AMQP URL is required to publish events")
	}
	return nil
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
