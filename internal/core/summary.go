package core

import (
	"sort"

	"github.com/shopspring/decimal"
)

// CostDetail is one record as it appears in a monthly report.
type CostDetail struct {
	ID          int64           `json:"id"`
	Sum         decimal.Decimal `json:"sum"`
	Currency    string          `json:"currency"`
	Converted   decimal.Decimal `json:"converted"` // in the report currency, rounded to 2dp
	Category    string          `json:"category"`
	Description string          `json:"description"`
	Day         int             `json:"day"`
}

// Total is a rounded amount in a currency.
type Total struct {
	Currency string          `json:"currency"`
	Total    decimal.Decimal `json:"total"`
}

// MonthlyReport lists the costs of one (year, month) converted to one currency.
type MonthlyReport struct {
	Year  int          `json:"year"`
	Month int          `json:"month"` // 1-12
	Costs []CostDetail `json:"costs"`
	Total Total        `json:"total"`
}

// YearlyReport holds one converted total per calendar month; index 0 is January.
type YearlyReport struct {
	Year          int                 `json:"year"`
	Currency      string              `json:"currency"`
	MonthlyTotals [12]decimal.Decimal `json:"monthlyTotals"`
}

// CategoryAmount is an amount aggregated by category name.
type CategoryAmount struct {
	Name   string          `json:"name"`
	Amount decimal.Decimal `json:"amount"`
}

// ByCategory groups the report's converted amounts by category, sorted by
// name. The report itself stays ungrouped; this is a caller-side view.
func (r MonthlyReport) ByCategory() []CategoryAmount {
	sums := make(map[string]decimal.Decimal)
	for _, c := range r.Costs {
		sums[c.Category] = sums[c.Category].Add(c.Converted)
	}
	out := make([]CategoryAmount, 0, len(sums))
	for name, amount := range sums {
		out = append(out, CategoryAmount{Name: name, Amount: Round2(amount)})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// IsEmpty reports whether every monthly bucket is zero, which presentation
// code treats as "no data".
func (y YearlyReport) IsEmpty() bool {
	for _, t := range y.MonthlyTotals {
		if !t.IsZero() {
			return false
		}
	}
	return true
}
