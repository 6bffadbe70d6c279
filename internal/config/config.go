package config

import (
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/pelletier/go-toml"

	"costledger/internal/storage"
)

// ConfigFileEnv names the environment variable pointing at an optional TOML
// file. Environment variables override values read from it.
const ConfigFileEnv = "COSTLEDGER_CONFIG"

type Config struct {
	// HTTP Server
	Port string

	// Storage
	DataDir     string
	DBName      string
	DBVersion   int
	DataBackend string

	// Rates
	RatesURL        string
	RatesTimeout    time.Duration
	RatesCacheTTL   time.Duration
	DefaultCurrency string

	// AMQP (empty URL disables events)
	AMQPURL      string
	AMQPExchange string
	AMQPQueue    string

	// Logging
	LogLevel  string
	LogFormat string
}

// Defaults returns the built-in configuration.
func Defaults() *Config {
	return &Config{
		Port:            "8081",
		DataDir:         "./data",
		DBName:          "CostManagerDB",
		DBVersion:       storage.LatestSchemaVersion,
		DataBackend:     "sqlite",
		RatesURL:        "http://localhost:8081/rates.json",
		RatesTimeout:    10 * time.Second,
		RatesCacheTTL:   0,
		DefaultCurrency: "USD",
		AMQPExchange:    "costledger",
		AMQPQueue:       "cost_events",
		LogLevel:        "info",
		LogFormat:       "text",
	}
}

// Load reads the optional TOML file named by COSTLEDGER_CONFIG and then
// applies environment overrides.
func Load() (*Config, error) {
	cfg := Defaults()
	if path := os.Getenv(ConfigFileEnv); path != "" {
		if err := cfg.loadFile(path); err != nil {
			return nil, err
		}
	}
	cfg.applyEnv()
	return cfg, nil
}

func (c *Config) loadFile(path string) error {
	tree, err := toml.LoadFile(path)
	if err != nil {
		return fmt.Errorf("read config file %s: %w", path, err)
	}

	strs := map[string]*string{
		"port":             &c.Port,
		"data_dir":         &c.DataDir,
		"db_name":          &c.DBName,
		"data_backend":     &c.DataBackend,
		"rates_url":        &c.RatesURL,
		"default_currency": &c.DefaultCurrency,
		"amqp_url":         &c.AMQPURL,
		"amqp_exchange":    &c.AMQPExchange,
		"amqp_queue":       &c.AMQPQueue,
		"log_level":        &c.LogLevel,
		"log_format":       &c.LogFormat,
	}
	for key, dst := range strs {
		if !tree.Has(key) {
			continue
		}
		v, ok := tree.Get(key).(string)
		if !ok {
			return fmt.Errorf("config file %s: %s must be a string", path, key)
		}
		*dst = v
	}

	if tree.Has("db_version") {
		v, ok := tree.Get("db_version").(int64)
		if !ok {
			return fmt.Errorf("config file %s: db_version must be an integer", path)
		}
		c.DBVersion = int(v)
	}

	durations := map[string]*time.Duration{
		"rates_timeout":   &c.RatesTimeout,
		"rates_cache_ttl": &c.RatesCacheTTL,
	}
	for key, dst := range durations {
		if !tree.Has(key) {
			continue
		}
		raw, ok := tree.Get(key).(string)
		if !ok {
			return fmt.Errorf("config file %s: %s must be a duration string", path, key)
		}
		d, err := time.ParseDuration(raw)
		if err != nil {
			return fmt.Errorf("config file %s: %s: %w", path, key, err)
		}
		*dst = d
	}
	return nil
}

func (c *Config) applyEnv() {
	c.Port = getEnv("PORT", c.Port)

	c.DataDir = getEnv("DATA_DIR", c.DataDir)
	c.DBName = getEnv("DB_NAME", c.DBName)
	c.DBVersion = getEnvInt("DB_VERSION", c.DBVersion)
	c.DataBackend = getEnv("DATA_BACKEND", c.DataBackend)

	c.RatesURL = getEnv("RATES_URL", c.RatesURL)
	c.RatesTimeout = getEnvDuration("RATES_TIMEOUT", c.RatesTimeout)
	c.RatesCacheTTL = getEnvDuration("RATES_CACHE_TTL", c.RatesCacheTTL)
	c.DefaultCurrency = strings.ToUpper(getEnv("DEFAULT_CURRENCY", c.DefaultCurrency))

	c.AMQPURL = getEnv("AMQP_URL", c.AMQPURL)
	c.AMQPExchange = getEnv("AMQP_EXCHANGE", c.AMQPExchange)
	c.AMQPQueue = getEnv("AMQP_QUEUE", c.AMQPQueue)

	c.LogLevel = getEnv("LOG_LEVEL", c.LogLevel)
	c.LogFormat = getEnv("LOG_FORMAT", c.LogFormat)
}

// EventsEnabled reports whether cost events should be published.
func (c *Config) EventsEnabled() bool {
	return c.AMQPURL != ""
}

// Validate validates the configuration and returns an error if invalid
func (c *Config) Validate() error {
	var errors []string

	if port, err := strconv.Atoi(c.Port); err != nil {
		errors = append(errors, fmt.Sprintf("invalid port '%s': must be a number", c.Port))
	} else if port < 1 || port > 65535 {
		errors = append(errors, fmt.Sprintf("invalid port %d: must be between 1 and 65535", port))
	}

	validBackends := []string{"memory", "sqlite"}
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

	if c.DataBackend == "sqlite" {
		if c.DataDir == "" {
			errors = append(errors, "data directory cannot be empty when using sqlite backend")
		}
		if c.DBName == "" {
			errors = append(errors, "database name cannot be empty when using sqlite backend")
		}
		if c.DBVersion < 1 || c.DBVersion > storage.LatestSchemaVersion {
			errors = append(errors, fmt.Sprintf("invalid database version %d: must be between 1 and %d", c.DBVersion, storage.LatestSchemaVersion))
		}
	}

	if parsed, err := url.Parse(c.RatesURL); err != nil || c.RatesURL == "" {
		errors = append(errors, fmt.Sprintf("invalid rates URL '%s'", c.RatesURL))
	} else if parsed.Scheme != "http" && parsed.Scheme != "https" {
		errors = append(errors, fmt.Sprintf("invalid rates URL scheme '%s': must be 'http' or 'https'", parsed.Scheme))
	}

	if c.RatesTimeout < 100*time.Millisecond {
		errors = append(errors, fmt.Sprintf("invalid rates timeout %v: must be at least 100ms", c.RatesTimeout))
	} else if c.RatesTimeout > 5*time.Minute {
		errors = append(errors, fmt.Sprintf("invalid rates timeout %v: must be at most 5 minutes", c.RatesTimeout))
	}
	if c.RatesCacheTTL < 0 {
		errors = append(errors, fmt.Sprintf("invalid rates cache ttl %v: must not be negative", c.RatesCacheTTL))
	}

	if strings.TrimSpace(c.DefaultCurrency) == "" {
		errors = append(errors, "default currency cannot be empty")
	}

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

	switch strings.ToLower(c.LogFormat) {
	case "text", "json", "":
	default:
		errors = append(errors, fmt.Sprintf("invalid log format '%s': must be 'text' or 'json'", c.LogFormat))
	}

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
