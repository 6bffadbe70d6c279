package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"costledger/internal/amqp"
	"costledger/internal/core"
	"costledger/internal/currency"
	"costledger/internal/ledger"
	applog "costledger/internal/log"
	"costledger/internal/report"
)

// Ledger is what presentation layers (HTTP, CLI) are allowed to call.
type Ledger interface {
	AddCost(ctx context.Context, in core.CostInput) (core.StoredRecord, error)
	GetReport(ctx context.Context, year, month int, currency string) (core.MonthlyReport, error)
	GetYearlyReport(ctx context.Context, year int, currency string) (core.YearlyReport, error)
	GetAllRaw(ctx context.Context) ([]core.StoredRecord, error)
	GetSetting(ctx context.Context, key string) (any, bool, error)
	SetSetting(ctx context.Context, key string, value any) error
	RatesURL() string
	UpdateRatesURL(ctx context.Context, url string) error
	ResetRatesURL(ctx context.Context) error
	DefaultCurrency(ctx context.Context) string
	Ready(ctx context.Context) error
}

// EventPublisher announces stored costs. *amqp.Client implements it.
type EventPublisher interface {
	PublishCostAdded(ctx context.Context, msg *amqp.CostAddedMessage) error
	Close() error
}

// Options tune a CostService. Zero values pick the defaults.
type Options struct {
	Normalizer      *core.Normalizer
	DefaultCurrency string
	DefaultRatesURL string
	Publisher       EventPublisher
	Logger          *slog.Logger
	Now             func() time.Time
}

// CostService orchestrates cost operations across the store, the rate
// provider and the optional event publisher.
type CostService struct {
	store      ledger.Store
	rates      *currency.Provider
	engine     *report.Engine
	normalizer core.Normalizer
	publisher  EventPublisher
	logger     *slog.Logger
	now        func() time.Time

	defaultCurrency string
	defaultRatesURL string
}

var _ Ledger = (*CostService)(nil)

// NewCostService wires the facade and restores a previously saved rates URL
// into the provider.
func NewCostService(ctx context.Context, store ledger.Store, rates *currency.Provider, opts Options) (*CostService, error) {
	if store == nil || rates == nil {
		return nil, errors.New("cost service needs a store and a rate provider")
	}

	s := &CostService{
		store:           store,
		rates:           rates,
		normalizer:      core.NewNormalizer(),
		publisher:       opts.Publisher,
		logger:          applog.ForComponent(opts.Logger, applog.ComponentLedger),
		now:             opts.Now,
		defaultCurrency: strings.ToUpper(opts.DefaultCurrency),
		defaultRatesURL: opts.DefaultRatesURL,
	}
	s.engine = report.NewEngine(store, rates, opts.Logger)
	if opts.Normalizer != nil {
		s.normalizer = *opts.Normalizer
	}
	if s.now == nil {
		s.now = time.Now
	}
	if s.defaultCurrency == "" {
		s.defaultCurrency = core.DefaultCurrency
	}
	if s.defaultRatesURL == "" {
		s.defaultRatesURL = rates.RatesURL()
	}

	saved, err := s.savedRatesURL(ctx)
	if err != nil {
		return nil, fmt.Errorf("restore rates url: %w", err)
	}
	if saved != "" && saved != rates.RatesURL() {
		rates.SetRatesURL(saved)
		s.logger.InfoContext(ctx, "Restored saved rates URL", applog.FieldRatesURL, saved)
	}
	return s, nil
}

// AddCost normalizes in, stores it and publishes a cost-added event. A
// failed publish is logged; the stored record is still returned.
func (s *CostService) AddCost(ctx context.Context, in core.CostInput) (core.StoredRecord, error) {
	rec, err := s.normalizer.Normalize(in, s.now())
	if err != nil {
		return core.StoredRecord{}, err
	}

	stored, err := s.store.AddCost(ctx, rec)
	if err != nil {
		return core.StoredRecord{}, fmt.Errorf("save cost: %w", err)
	}

	if s.publisher != nil {
		if err := s.publisher.PublishCostAdded(ctx, amqp.NewCostAddedMessage(stored)); err != nil {
			s.logger.ErrorContext(ctx, "Failed to publish cost added message",
				applog.FieldCostID, stored.ID,
				applog.FieldError, err)
		}
	}
	return stored, nil
}

func (s *CostService) GetReport(ctx context.Context, year, month int, cur string) (core.MonthlyReport, error) {
	return s.engine.GetReport(ctx, year, month, cur)
}

func (s *CostService) GetYearlyReport(ctx context.Context, year int, cur string) (core.YearlyReport, error) {
	return s.engine.GetYearlyReport(ctx, year, cur)
}

func (s *CostService) GetAllRaw(ctx context.Context) ([]core.StoredRecord, error) {
	return s.store.GetAllRaw(ctx)
}

func (s *CostService) GetSetting(ctx context.Context, key string) (any, bool, error) {
	return s.store.GetSetting(ctx, key)
}

// SetSetting stores value as-is. Writing ratesUrl here does not touch the
// provider; use UpdateRatesURL for a validated switch.
func (s *CostService) SetSetting(ctx context.Context, key string, value any) error {
	if strings.TrimSpace(key) == "" {
		return errors.New("setting key is required")
	}
	return s.store.SetSetting(ctx, key, value)
}

// SetRatesURL switches the provider's source for this process only.
func (s *CostService) SetRatesURL(url string) {
	s.rates.SetRatesURL(url)
}

func (s *CostService) RatesURL() string {
	return s.rates.RatesURL()
}

// UpdateRatesURL validates url as a rates source, persists it and applies
// it. On a *core.SettingsValidationError nothing changes.
func (s *CostService) UpdateRatesURL(ctx context.Context, url string) error {
	url = strings.TrimSpace(url)
	if _, err := s.rates.ValidateSource(ctx, url); err != nil {
		s.logger.WarnContext(ctx, "Rejected rates URL", applog.FieldRatesURL, url, applog.FieldError, err)
		return err
	}
	if err := s.store.SetSetting(ctx, ledger.SettingRatesURL, url); err != nil {
		return fmt.Errorf("save rates url: %w", err)
	}
	s.rates.SetRatesURL(url)
	return nil
}

// ResetRatesURL persists and applies the built-in rates URL.
func (s *CostService) ResetRatesURL(ctx context.Context) error {
	if err := s.store.SetSetting(ctx, ledger.SettingRatesURL, s.defaultRatesURL); err != nil {
		return fmt.Errorf("reset rates url: %w", err)
	}
	s.rates.SetRatesURL(s.defaultRatesURL)
	return nil
}

// DefaultRatesURL is the URL ResetRatesURL goes back to.
func (s *CostService) DefaultRatesURL() string {
	return s.defaultRatesURL
}

// DefaultCurrency returns the saved "currency" setting, or the configured
// default when it is unset or unreadable.
func (s *CostService) DefaultCurrency(ctx context.Context) string {
	v, found, err := s.store.GetSetting(ctx, ledger.SettingCurrency)
	if err != nil {
		s.logger.WarnContext(ctx, "Failed to read currency setting", applog.FieldError, err)
		return s.defaultCurrency
	}
	if cur, ok := ledger.SettingString(v, found); ok && cur != "" {
		return strings.ToUpper(cur)
	}
	return s.defaultCurrency
}

// Ready reports whether the store can serve requests.
func (s *CostService) Ready(ctx context.Context) error {
	if p, ok := s.store.(interface{ Ping(context.Context) error }); ok {
		return p.Ping(ctx)
	}
	return nil
}

// Rates returns the provider so callers can register its cache with a janitor.
func (s *CostService) Rates() *currency.Provider {
	return s.rates
}

func (s *CostService) savedRatesURL(ctx context.Context) (string, error) {
	v, found, err := s.store.GetSetting(ctx, ledger.SettingRatesURL)
	if err != nil {
		return "", err
	}
	url, _ := ledger.SettingString(v, found)
	return strings.TrimSpace(url), nil
}

// Close closes both storage and the event publisher.
func (s *CostService) Close() error {
	var errs []error

	if s.store != nil {
		if err := s.store.Close(); err != nil {
			errs = append(errs, fmt.Errorf("storage: %w", err))
		}
	}

	if s.publisher != nil {
		if err := s.publisher.Close(); err != nil {
			errs = append(errs, fmt.Errorf("publisher: %w", err))
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("close cost service: %w", errors.Join(errs...))
	}
	return nil
}
