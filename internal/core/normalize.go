package core

import (
	"strings"
	"time"

	"github.com/araddon/dateparse"
)

// CostInput is the raw shape accepted by AddCost. Every field is optional;
// Normalizer applies the defaulting rules.
type CostInput struct {
	Sum         any     `json:"sum"`
	Currency    *string `json:"currency,omitempty"`
	Curency     *string `json:"curency,omitempty"` // legacy misspelling still sent by old clients
	Category    *string `json:"category,omitempty"`
	Description *string `json:"description,omitempty"`
	Date        *string `json:"date,omitempty"`
}

// Normalizer turns CostInput into a CostRecord.
//
// Defaults are applied before validation. A Normalizer with empty defaults is
// strict: missing currency or category are rejected instead of filled in.
type Normalizer struct {
	DefaultCurrency string
	DefaultCategory string
	Location        *time.Location // used for dates without an explicit zone
}

// NewNormalizer returns the normalizer used by the ledger facade.
func NewNormalizer() Normalizer {
	return Normalizer{
		DefaultCurrency: DefaultCurrency,
		DefaultCategory: DefaultCategory,
		Location:        time.Local,
	}
}

// StrictNormalizer applies no defaults.
func StrictNormalizer() Normalizer {
	return Normalizer{Location: time.Local}
}

// Normalize validates in and returns the canonical record. now is used when
// no date is given. Checks run in order: sum, currency, category, date.
func (n Normalizer) Normalize(in CostInput, now time.Time) (CostRecord, error) {
	sum, err := ParseSum(in.Sum)
	if err != nil {
		return CostRecord{}, err
	}

	currency := firstNonBlank(in.Currency, in.Curency)
	if currency == "" {
		currency = n.DefaultCurrency
	}
	currency = strings.ToUpper(strings.TrimSpace(currency))
	if currency == "" {
		return CostRecord{}, ErrMissingCurrency
	}

	category := firstNonBlank(in.Category)
	if category == "" {
		category = n.DefaultCategory
	}
	category = strings.ToUpper(strings.TrimSpace(category))
	if category == "" {
		return CostRecord{}, ErrMissingCategory
	}

	date := now
	if raw := firstNonBlank(in.Date); raw != "" {
		loc := n.Location
		if loc == nil {
			loc = time.Local
		}
		parsed, err := dateparse.ParseIn(raw, loc)
		if err != nil {
			return CostRecord{}, &ValidationError{Code: CodeInvalidDate, Field: "date", Msg: err.Error()}
		}
		date = parsed
	}

	description := ""
	if in.Description != nil {
		description = *in.Description
	}

	return CostRecord{
		Sum:         sum,
		Currency:    currency,
		Category:    category,
		Description: description,
		DateISO:     date.UTC().Truncate(time.Millisecond),
	}, nil
}

func firstNonBlank(vals ...*string) string {
	for _, v := range vals {
		if v != nil && strings.TrimSpace(*v) != "" {
			return strings.TrimSpace(*v)
		}
	}
	return ""
}
