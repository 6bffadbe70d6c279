package currency

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"costledger/internal/cache"
	"costledger/internal/core"
	applog "costledger/internal/log"
)

const maxRatesBody = 1 << 20

// FetchError describes why a rates source could not be used.
type FetchError struct {
	URL    string
	Status int // HTTP status when the source answered with a non-2xx code
	Err    error
}

func (e *FetchError) Error() string {
	if e.Status != 0 {
		return fmt.Sprintf("fetch rates from %s: unexpected status %d", e.URL, e.Status)
	}
	return fmt.Sprintf("fetch rates from %s: %v", e.URL, e.Err)
}

func (e *FetchError) Unwrap() error { return e.Err }

// ProviderConfig configures a Provider.
type ProviderConfig struct {
	URL      string
	Timeout  time.Duration // per request; 0 means 10s
	CacheTTL time.Duration // 0 keeps a table until the URL changes
	Client   *http.Client
	Logger   *slog.Logger
}

// Provider fetches rate tables and caches the last good table per URL.
// It is safe for concurrent use.
type Provider struct {
	client *http.Client
	logger *slog.Logger
	tables *cache.LRUCache[RateTable]
	group  singleflight.Group

	mu  sync.RWMutex
	url string
	gen uint64 // bumped on every invalidation
}

// NewProvider creates a provider for cfg.URL.
func NewProvider(cfg ProviderConfig) *Provider {
	client := cfg.Client
	if client == nil {
		timeout := cfg.Timeout
		if timeout <= 0 {
			timeout = 10 * time.Second
		}
		client = &http.Client{Timeout: timeout}
	}
	return &Provider{
		client: client,
		logger: applog.ForComponent(cfg.Logger, applog.ComponentRates),
		tables: cache.NewLRUCache[RateTable](8, cfg.CacheTTL),
		url:    cfg.URL,
	}
}

// Cache exposes the table cache so a janitor can sweep expired entries.
func (p *Provider) Cache() cache.Cleaner {
	return p.tables
}

// RatesURL returns the current source URL.
func (p *Provider) RatesURL() string {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.url
}

// SetRatesURL switches the source and drops the cached table immediately,
// even when url is unchanged.
func (p *Provider) SetRatesURL(url string) {
	p.mu.Lock()
	old := p.url
	p.url = url
	p.gen++
	p.mu.Unlock()

	p.tables.Delete(old)
	p.tables.Delete(url)
	p.logger.Info("Rates URL changed", applog.FieldRatesURL, url)
}

// Invalidate forces the next FetchRates to query the source again.
func (p *Provider) Invalidate() {
	p.SetRatesURL(p.RatesURL())
}

// FetchRates returns the current rate table. It never fails: any problem
// with the source is logged and FallbackRates is returned instead.
func (p *Provider) FetchRates(ctx context.Context) RateTable {
	p.mu.RLock()
	url, gen := p.url, p.gen
	p.mu.RUnlock()

	if t, ok := p.tables.Get(url); ok {
		return t.Clone()
	}

	// The shared fetch outlives any single caller; the client timeout bounds it.
	fetchCtx := context.WithoutCancel(ctx)
	ch := p.group.DoChan(url, func() (any, error) {
		t, err := p.fetch(fetchCtx, url)
		if err != nil {
			return nil, err
		}
		p.mu.RLock()
		current := p.gen == gen
		p.mu.RUnlock()
		// a fetch that raced an invalidation must not repopulate the cache
		if current {
			p.tables.Set(url, t)
		}
		return t, nil
	})

	var res singleflight.Result
	select {
	case res = <-ch:
	case <-ctx.Done():
		p.logger.WarnContext(ctx, "Rates fetch abandoned, using fallback table",
			applog.FieldRatesURL, url,
			applog.FieldError, ctx.Err())
		return FallbackRates()
	}
	v, err, shared := res.Val, res.Err, res.Shared
	if err != nil {
		p.logger.WarnContext(ctx, "Failed to fetch rates, using fallback table",
			applog.FieldRatesURL, url,
			applog.FieldError, err)
		return FallbackRates()
	}

	p.logger.DebugContext(ctx, "Fetched rates", applog.FieldRatesURL, url, "shared", shared)
	return v.(RateTable).Clone()
}

// ValidateSource fetches url without touching the cache and checks that it
// lists every RequiredCurrencies code. Failures are returned as
// *core.SettingsValidationError.
func (p *Provider) ValidateSource(ctx context.Context, url string) (RateTable, error) {
	t, err := p.fetch(ctx, url)
	if err != nil {
		return nil, &core.SettingsValidationError{URL: url, Err: err}
	}
	if code, missing := t.Missing(RequiredCurrencies...); missing {
		return nil, &core.SettingsValidationError{URL: url, Missing: code}
	}
	return t, nil
}

func (p *Provider) fetch(ctx context.Context, url string) (RateTable, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, &FetchError{URL: url, Err: err}
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Cache-Control", "no-cache")

	resp, err := p.client.Do(req)
	if err != nil {
		return nil, &FetchError{URL: url, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &FetchError{URL: url, Status: resp.StatusCode}
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxRatesBody))
	if err != nil {
		return nil, &FetchError{URL: url, Err: fmt.Errorf("read body: %w", err)}
	}
	t, err := ParseRates(body)
	if err != nil {
		return nil, &FetchError{URL: url, Err: err}
	}
	return t, nil
}
