package backend

import (
	"context"
	"time"

	"costledger/internal/services"
)

// CleanupFunc represents a cleanup function for resources
type CleanupFunc func() error

// BackendResult contains the wired ledger facade and its cleanup function
type BackendResult struct {
	Service *services.CostService
	Cleanup CleanupFunc
}

// Factory creates backends based on configuration
type Factory interface {
	// CreateBackend opens the store and wires the ledger facade around it
	CreateBackend(ctx context.Context, config Config) (*BackendResult, error)
}

// Config holds configuration for backend creation
type Config struct {
	Type BackendType

	// SQLite specific
	DataDir   string
	DBName    string
	DBVersion uint

	// Calendar fields are derived in Location (time.Local when nil)
	Location *time.Location

	// Rates
	RatesURL        string
	RatesTimeout    time.Duration
	RatesCacheTTL   time.Duration
	DefaultCurrency string

	// Events; PublishEvents is false for consumers such as the worker
	AMQPURL       string
	AMQPExchange  string
	AMQPQueue     string
	PublishEvents bool
}

// BackendType represents the type of backend
type BackendType string

const (
	SQLiteBackend BackendType = "sqlite"
	MemoryBackend BackendType = "memory"
)

// String implements fmt.Stringer
func (bt BackendType) String() string {
	return string(bt)
}

// IsValid returns true if the backend type is valid
func (bt BackendType) IsValid() bool {
	switch bt {
	case SQLiteBackend, MemoryBackend:
		return true
	default:
		return false
	}
}
