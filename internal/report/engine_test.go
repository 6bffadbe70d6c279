package report

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"costledger/internal/core"
	"costledger/internal/currency"
	"costledger/internal/ledger"
	"costledger/internal/ledger/ledgertest"
	"costledger/internal/ledger/memory"
	"costledger/internal/storage"
)

type staticRates currency.RateTable

func (s staticRates) FetchRates(context.Context) currency.RateTable {
	return currency.RateTable(s).Clone()
}

var testRates = staticRates{
	"USD":  decimal.NewFromInt(1),
	"ILS":  decimal.RequireFromString("3.4"),
	"GBP":  decimal.RequireFromString("0.8"),
	"EURO": decimal.RequireFromString("0.9"),
}

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func add(t *testing.T, s ledger.CostWriter, sum int64, cur, cat string, date time.Time) {
	t.Helper()
	_, err := s.AddCost(context.Background(), ledgertest.Record(sum, cur, cat, date))
	require.NoError(t, err)
}

// stores runs fn against the scanning memory store and the indexed SQLite store.
func stores(t *testing.T, fn func(t *testing.T, s ledger.Store)) {
	t.Run("memory", func(t *testing.T) { fn(t, memory.New(time.UTC)) })
	t.Run("sqlite", func(t *testing.T) {
		repo, err := storage.Open(t.TempDir(), "reports", storage.LatestSchemaVersion, storage.Options{Location: time.UTC})
		require.NoError(t, err)
		t.Cleanup(func() { repo.Close() })
		fn(t, repo)
	})
}

func TestGetReportEmptyMonth(t *testing.T) {
	stores(t, func(t *testing.T, s ledger.Store) {
		e := NewEngine(s, testRates, nil)
		r, err := e.GetReport(context.Background(), 2025, 3, "usd")
		require.NoError(t, err)

		assert.Equal(t, 2025, r.Year)
		assert.Equal(t, 3, r.Month)
		assert.NotNil(t, r.Costs)
		assert.Empty(t, r.Costs)
		assert.Equal(t, "USD", r.Total.Currency)
		assert.True(t, r.Total.Total.IsZero())
	})
}

func TestGetReportConvertsToRequestedCurrency(t *testing.T) {
	stores(t, func(t *testing.T, s ledger.Store) {
		march := time.Date(2025, 3, 10, 12, 0, 0, 0, time.UTC)
		add(t, s, 100, "USD", "FOOD", march)
		add(t, s, 50, "USD", "FOOD", march.AddDate(0, 0, 2))
		add(t, s, 20, "USD", "TRANSPORT", march.AddDate(0, 0, 5))
		add(t, s, 999, "USD", "FOOD", march.AddDate(0, 1, 0)) // April, excluded

		e := NewEngine(s, testRates, nil)
		r, err := e.GetReport(context.Background(), 2025, 3, "ILS")
		require.NoError(t, err)

		require.Len(t, r.Costs, 3)
		assert.Equal(t, "ILS", r.Total.Currency)
		assert.True(t, r.Total.Total.Equal(dec("578")), "total %s", r.Total.Total)

		assert.Equal(t, 10, r.Costs[0].Day)
		assert.Equal(t, 12, r.Costs[1].Day)
		assert.Equal(t, 15, r.Costs[2].Day)
		assert.True(t, r.Costs[0].Sum.Equal(dec("100")))
		assert.True(t, r.Costs[0].Converted.Equal(dec("340")))
		assert.True(t, r.Costs[1].Converted.Equal(dec("170")))
		assert.True(t, r.Costs[2].Converted.Equal(dec("68")))
		assert.Equal(t, "USD", r.Costs[0].Currency)

		byCat := r.ByCategory()
		require.Len(t, byCat, 2)
		assert.Equal(t, "FOOD", byCat[0].Name)
		assert.True(t, byCat[0].Amount.Equal(dec("510")))
		assert.Equal(t, "TRANSPORT", byCat[1].Name)
		assert.True(t, byCat[1].Amount.Equal(dec("68")))
	})
}

func TestGetReportTotalRoundsOnce(t *testing.T) {
	s := memory.New(time.UTC)
	date := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)
	// 1 USD in a currency at 3 units per USD: 0.333... each line
	rates := staticRates{"USD": decimal.NewFromInt(1), "XYZ": decimal.NewFromInt(3)}
	for i := 0; i < 3; i++ {
		add(t, s, 1, "XYZ", "MISC", date)
	}

	r, err := NewEngine(s, rates, nil).GetReport(context.Background(), 2025, 6, "USD")
	require.NoError(t, err)

	for _, c := range r.Costs {
		assert.True(t, c.Converted.Equal(dec("0.33")))
	}
	assert.True(t, r.Total.Total.Equal(dec("1")), "total %s", r.Total.Total)
}

func TestGetReportInvalidMonth(t *testing.T) {
	e := NewEngine(memory.New(time.UTC), testRates, nil)
	for _, m := range []int{0, 13, -1} {
		_, err := e.GetReport(context.Background(), 2025, m, "USD")
		assert.True(t, errors.Is(err, core.ErrInvalidMonth), "month %d: %v", m, err)
	}
}

func TestGetReportIsIdempotent(t *testing.T) {
	s := memory.New(time.UTC)
	add(t, s, 42, "GBP", "BOOKS", time.Date(2025, 1, 2, 0, 0, 0, 0, time.UTC))
	e := NewEngine(s, testRates, nil)

	first, err := e.GetReport(context.Background(), 2025, 1, "EURO")
	require.NoError(t, err)
	second, err := e.GetReport(context.Background(), 2025, 1, "EURO")
	require.NoError(t, err)
	assert.Equal(t, first, second)
}

func TestGetYearlyReport(t *testing.T) {
	stores(t, func(t *testing.T, s ledger.Store) {
		add(t, s, 100, "USD", "FOOD", time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC))
		add(t, s, 20, "USD", "FOOD", time.Date(2025, 3, 31, 0, 0, 0, 0, time.UTC))
		add(t, s, 50, "USD", "FOOD", time.Date(2025, 12, 24, 0, 0, 0, 0, time.UTC))
		add(t, s, 70, "USD", "FOOD", time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC))

		y, err := NewEngine(s, testRates, nil).GetYearlyReport(context.Background(), 2025, "usd")
		require.NoError(t, err)

		assert.Equal(t, "USD", y.Currency)
		assert.True(t, y.MonthlyTotals[2].Equal(dec("120")))
		assert.True(t, y.MonthlyTotals[11].Equal(dec("50")))
		assert.True(t, y.MonthlyTotals[0].IsZero())
		assert.False(t, y.IsEmpty())
	})
}

func TestGetYearlyReportEmptyYear(t *testing.T) {
	y, err := NewEngine(memory.New(time.UTC), testRates, nil).GetYearlyReport(context.Background(), 1999, "USD")
	require.NoError(t, err)
	assert.True(t, y.IsEmpty())
}

func TestReportsUseFallbackWhenRatesUnavailable(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	s := memory.New(time.UTC)
	add(t, s, 10, "USD", "FOOD", time.Date(2025, 5, 5, 0, 0, 0, 0, time.UTC))
	add(t, s, 30, "ILS", "FOOD", time.Date(2025, 5, 6, 0, 0, 0, 0, time.UTC))

	e := NewEngine(s, currency.NewProvider(currency.ProviderConfig{URL: srv.URL}), nil)
	r, err := e.GetReport(context.Background(), 2025, 5, "USD")
	require.NoError(t, err)

	// only USD is known in the fallback table; ILS passes through unconverted
	assert.True(t, r.Costs[0].Converted.Equal(dec("10")))
	assert.True(t, r.Costs[1].Converted.Equal(dec("30")))
	assert.True(t, r.Total.Total.Equal(dec("40")))
}
