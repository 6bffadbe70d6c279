// Package ledger defines the storage ports of the cost ledger. Adapters live
// in internal/storage (SQLite) and internal/ledger/memory.
package ledger

import (
	"context"
	"time"

	"costledger/internal/core"
)

// Setting keys used by the application. Other keys are allowed.
const (
	SettingRatesURL = "ratesUrl"
	SettingCurrency = "currency"
)

// Ports for outbound adapters.
type (
	// CostWriter appends records. Each call is atomic.
	CostWriter interface {
		// AddCost assigns an ID, derives year/month/day from DateISO and
		// persists the record. Failures are core.ErrStorageWrite.
		AddCost(ctx context.Context, rec core.CostRecord) (core.StoredRecord, error)
	}

	// CostReader reads records back.
	CostReader interface {
		// GetAllRaw returns every record in insertion order.
		GetAllRaw(ctx context.Context) ([]core.StoredRecord, error)
		// ListCostsByDate returns records with from <= DateISO < to, ordered
		// by date then ID.
		ListCostsByDate(ctx context.Context, from, to time.Time) ([]core.StoredRecord, error)
	}

	// SettingsStore is a last-write-wins key/value store.
	SettingsStore interface {
		// GetSetting returns found == false when key was never set.
		GetSetting(ctx context.Context, key string) (value any, found bool, err error)
		SetSetting(ctx context.Context, key string, value any) error
	}

	// Store is everything a ledger backend provides.
	Store interface {
		CostWriter
		CostReader
		SettingsStore
		Close() error
	}
)

// PeriodReader is implemented by stores that can filter on the cached
// calendar fields without a full scan. Results are in insertion order.
type PeriodReader interface {
	ListCostsByMonth(ctx context.Context, year, month int) ([]core.StoredRecord, error)
	ListCostsByYear(ctx context.Context, year int) ([]core.StoredRecord, error)
}
