// Package report aggregates ledger records into currency-normalized monthly
// and yearly reports.
package report

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/shopspring/decimal"

	"costledger/internal/core"
	"costledger/internal/currency"
	"costledger/internal/ledger"
	applog "costledger/internal/log"
)

// RateSource supplies the rate table for one report. It must not fail;
// *currency.Provider falls back to {USD: 1} on its own.
type RateSource interface {
	FetchRates(ctx context.Context) currency.RateTable
}

// Engine builds reports. It keeps no state between calls; the only cache is
// the one inside the RateSource.
type Engine struct {
	costs  ledger.CostReader
	rates  RateSource
	logger *slog.Logger
}

// NewEngine wires an engine to a store and a rate source. When costs also
// implements ledger.PeriodReader its indexed queries are used instead of a
// full scan.
func NewEngine(costs ledger.CostReader, rates RateSource, logger *slog.Logger) *Engine {
	return &Engine{
		costs:  costs,
		rates:  rates,
		logger: applog.ForComponent(logger, applog.ComponentReport),
	}
}

// GetReport returns every cost of (year, month) converted to cur. Each
// detail line is rounded to 2 decimals; the total accumulates the unrounded
// conversions and is rounded once.
func (e *Engine) GetReport(ctx context.Context, year, month int, cur string) (core.MonthlyReport, error) {
	if month < 1 || month > 12 {
		return core.MonthlyReport{}, core.ErrInvalidMonth
	}
	cur = strings.ToUpper(strings.TrimSpace(cur))

	rates := e.rates.FetchRates(ctx)
	records, err := e.monthRecords(ctx, year, month)
	if err != nil {
		return core.MonthlyReport{}, fmt.Errorf("monthly report %d-%02d: %w", year, month, err)
	}

	report := core.MonthlyReport{
		Year:  year,
		Month: month,
		Costs: make([]core.CostDetail, 0, len(records)),
	}
	total := decimal.Zero
	for _, r := range records {
		converted := currency.Convert(r.Sum, r.Currency, cur, rates)
		total = total.Add(converted)
		report.Costs = append(report.Costs, core.CostDetail{
			ID:          r.ID,
			Sum:         r.Sum,
			Currency:    r.Currency,
			Converted:   core.Round2(converted),
			Category:    r.Category,
			Description: r.Description,
			Day:         r.Day,
		})
	}
	report.Total = core.Total{Currency: cur, Total: core.Round2(total)}

	e.logger.DebugContext(ctx, "Monthly report built",
		applog.FieldYear, year,
		applog.FieldMonth, month,
		applog.FieldCurrency, cur,
		"costs", len(report.Costs),
		"total", report.Total.Total.StringFixed(2))
	return report, nil
}

// GetYearlyReport returns twelve converted monthly totals for year; index 0
// is January. Buckets are rounded only after all accumulation.
func (e *Engine) GetYearlyReport(ctx context.Context, year int, cur string) (core.YearlyReport, error) {
	cur = strings.ToUpper(strings.TrimSpace(cur))

	rates := e.rates.FetchRates(ctx)
	records, err := e.yearRecords(ctx, year)
	if err != nil {
		return core.YearlyReport{}, fmt.Errorf("yearly report %d: %w", year, err)
	}

	var buckets [12]decimal.Decimal
	for _, r := range records {
		if r.Month < 1 || r.Month > 12 {
			e.logger.WarnContext(ctx, "Skipping cost with invalid month", applog.FieldCostID, r.ID, applog.FieldMonth, r.Month)
			continue
		}
		buckets[r.Month-1] = buckets[r.Month-1].Add(currency.Convert(r.Sum, r.Currency, cur, rates))
	}

	report := core.YearlyReport{Year: year, Currency: cur}
	for i, b := range buckets {
		report.MonthlyTotals[i] = core.Round2(b)
	}
	return report, nil
}

func (e *Engine) monthRecords(ctx context.Context, year, month int) ([]core.StoredRecord, error) {
	if pr, ok := e.costs.(ledger.PeriodReader); ok {
		return pr.ListCostsByMonth(ctx, year, month)
	}
	all, err := e.costs.GetAllRaw(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]core.StoredRecord, 0, len(all))
	for _, r := range all {
		if r.Year == year && r.Month == month {
			out = append(out, r)
		}
	}
	return out, nil
}

func (e *Engine) yearRecords(ctx context.Context, year int) ([]core.StoredRecord, error) {
	if pr, ok := e.costs.(ledger.PeriodReader); ok {
		return pr.ListCostsByYear(ctx, year)
	}
	all, err := e.costs.GetAllRaw(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]core.StoredRecord, 0, len(all))
	for _, r := range all {
		if r.Year == year {
			out = append(out, r)
		}
	}
	return out, nil
}
