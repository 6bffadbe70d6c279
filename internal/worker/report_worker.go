// Package worker reacts to cost events by recomputing the affected monthly
// report and keeping the latest results warm.
package worker

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"

	"costledger/internal/amqp"
	"costledger/internal/cache"
	"costledger/internal/core"
	applog "costledger/internal/log"
)

// Reporter is the part of the ledger facade the worker needs.
type Reporter interface {
	GetReport(ctx context.Context, year, month int, currency string) (core.MonthlyReport, error)
	DefaultCurrency(ctx context.Context) string
}

// Options tune a ReportWorker.
type Options struct {
	CacheSize   int // recent months kept warm; 0 means 24
	Concurrency int // parallel recomputations in RefreshCached; 0 means 4
	Logger      *slog.Logger
}

// ReportWorker recomputes monthly reports when costs are added.
type ReportWorker struct {
	reports     Reporter
	latest      *cache.LRUCache[core.MonthlyReport]
	concurrency int
	logger      *slog.Logger
}

func NewReportWorker(reports Reporter, opts Options) *ReportWorker {
	size := opts.CacheSize
	if size <= 0 {
		size = 24
	}
	concurrency := opts.Concurrency
	if concurrency <= 0 {
		concurrency = 4
	}
	return &ReportWorker{
		reports:     reports,
		latest:      cache.NewLRUCache[core.MonthlyReport](size, 0),
		concurrency: concurrency,
		logger:      applog.ForComponent(opts.Logger, applog.ComponentWorker),
	}
}

func reportKey(year, month int, currency string) string {
	return fmt.Sprintf("%04d-%02d/%s", year, month, currency)
}

func parseReportKey(key string) (year, month int, currency string, err error) {
	period, currency, ok := strings.Cut(key, "/")
	if !ok || currency == "" {
		return 0, 0, "", fmt.Errorf("malformed report key %q", key)
	}
	if _, err = fmt.Sscanf(period, "%d-%d", &year, &month); err != nil {
		return 0, 0, "", fmt.Errorf("malformed report key %q: %w", key, err)
	}
	return year, month, currency, nil
}

// HandleCostAdded recomputes the month of msg in the default currency.
// Errors make the consumer requeue the message.
func (w *ReportWorker) HandleCostAdded(ctx context.Context, msg *amqp.CostAddedMessage) error {
	w.logger.InfoContext(ctx, "Processing cost added message",
		applog.FieldCostID, msg.ID,
		applog.FieldYear, msg.Year,
		applog.FieldMonth, msg.Month)

	cur := w.reports.DefaultCurrency(ctx)
	if _, _, err := w.refresh(ctx, msg.Year, msg.Month, cur); err != nil {
		return fmt.Errorf("recompute report for cost %d: %w", msg.ID, err)
	}
	return nil
}

// refresh recomputes one month and reports whether its total differs from
// the warm copy. A month seen for the first time counts as changed.
func (w *ReportWorker) refresh(ctx context.Context, year, month int, cur string) (core.MonthlyReport, bool, error) {
	r, err := w.reports.GetReport(ctx, year, month, cur)
	if err != nil {
		return core.MonthlyReport{}, false, err
	}
	key := reportKey(year, month, r.Total.Currency)
	prev, warm := w.latest.Get(key)
	w.latest.Set(key, r)

	changed := !warm || !prev.Total.Total.Equal(r.Total.Total)
	if !changed {
		w.logger.DebugContext(ctx, "Monthly total unchanged",
			applog.FieldYear, year,
			applog.FieldMonth, month,
			applog.FieldCurrency, r.Total.Currency)
		return r, false, nil
	}

	args := []any{
		applog.FieldYear, year,
		applog.FieldMonth, month,
		applog.FieldCurrency, r.Total.Currency,
		"costs", len(r.Costs),
		"total", r.Total.Total.StringFixed(2),
	}
	if warm {
		args = append(args,
			"previous_total", prev.Total.Total.StringFixed(2),
			"delta", r.Total.Total.Sub(prev.Total.Total).StringFixed(2))
	}
	w.logger.InfoContext(ctx, "Monthly total updated", args...)
	return r, true, nil
}

// Latest returns the last computed report for (year, month, currency).
func (w *ReportWorker) Latest(year, month int, currency string) (core.MonthlyReport, bool) {
	return w.latest.Get(reportKey(year, month, currency))
}

// StartupWarmup computes the report of the month containing now so the
// first event is not the first computation.
func (w *ReportWorker) StartupWarmup(ctx context.Context, now time.Time) error {
	cur := w.reports.DefaultCurrency(ctx)
	if _, _, err := w.refresh(ctx, now.Year(), int(now.Month()), cur); err != nil {
		return fmt.Errorf("startup warmup: %w", err)
	}
	return nil
}

// RefreshCached recomputes every warm report, typically after the rate
// source changed, and returns how many totals moved. It stops at the first
// error.
func (w *ReportWorker) RefreshCached(ctx context.Context) (int, error) {
	keys := w.latest.Keys()
	if len(keys) == 0 {
		return 0, nil
	}

	var changed atomic.Int64

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(w.concurrency)
	for _, key := range keys {
		year, month, cur, err := parseReportKey(key)
		if err != nil {
			w.logger.WarnContext(ctx, "Dropping unparseable report key", "key", key, applog.FieldError, err)
			w.latest.Delete(key)
			continue
		}
		g.Go(func() error {
			_, moved, err := w.refresh(ctx, year, month, cur)
			if moved {
				changed.Add(1)
			}
			return err
		})
	}
	if err := g.Wait(); err != nil {
		return int(changed.Load()), fmt.Errorf("refresh cached reports: %w", err)
	}

	n := int(changed.Load())
	w.logger.InfoContext(ctx, "Cached reports refreshed", "count", len(keys), "changed", n)
	return n, nil
}
