package core

import (
	"time"

	"github.com/shopspring/decimal"
)

const (
	DefaultCurrency = "USD"
	DefaultCategory = "GENERAL"

	// ISOLayout is the canonical instant format for stored dates (UTC, milliseconds).
	ISOLayout = "2006-01-02T15:04:05.000Z07:00"
)

type (
	// CostRecord is a normalized cost entry ready to be written to the ledger.
	CostRecord struct {
		Sum         decimal.Decimal `json:"sum"`
		Currency    string          `json:"currency"`
		Category    string          `json:"category"`
		Description string          `json:"description"`
		DateISO     time.Time       `json:"dateISO"`
	}

	// StoredRecord is a CostRecord after the store assigned its ID and
	// cached the calendar components of DateISO.
	StoredRecord struct {
		ID int64 `json:"id"`
		CostRecord
		Year  int `json:"year"`
		Month int `json:"month"` // 1-12
		Day   int `json:"day"`
	}
)

// NewStoredRecord stamps rec with id and derives Year/Month/Day from DateISO
// in loc. The derived fields are never recomputed after this.
func NewStoredRecord(id int64, rec CostRecord, loc *time.Location) StoredRecord {
	if loc == nil {
		loc = time.Local
	}
	t := rec.DateISO.In(loc)
	return StoredRecord{
		ID:         id,
		CostRecord: rec,
		Year:       t.Year(),
		Month:      int(t.Month()),
		Day:        t.Day(),
	}
}

// FormatISO renders t the way dates are persisted.
func FormatISO(t time.Time) string {
	return t.UTC().Format(ISOLayout)
}

// ParseISO parses a persisted date.
func ParseISO(s string) (time.Time, error) {
	t, err := time.Parse(ISOLayout, s)
	if err != nil {
		// rows written by other tools may use plain RFC 3339
		return time.Parse(time.RFC3339Nano, s)
	}
	return t, nil
}

// Validate checks the stored-record invariants.
func (r CostRecord) Validate() error {
	if !r.Sum.IsPositive() {
		return ErrInvalidSum
	}
	if r.Currency == "" {
		return ErrMissingCurrency
	}
	if r.Category == "" {
		return ErrMissingCategory
	}
	if r.DateISO.IsZero() {
		return ErrInvalidDate
	}
	return nil
}
