// Package ledgertest holds the behaviour every ledger.Store must share.
package ledgertest

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"costledger/internal/core"
	"costledger/internal/ledger"
)

// Factory builds a fresh, empty store whose calendar fields are derived in UTC.
type Factory func(t *testing.T) ledger.Store

// Record builds a valid record for tests.
func Record(sum int64, currency, category string, date time.Time) core.CostRecord {
	return core.CostRecord{
		Sum:         decimal.NewFromInt(sum),
		Currency:    currency,
		Category:    category,
		Description: category + " expense",
		DateISO:     date.UTC(),
	}
}

// Run exercises newStore against the store contract.
func Run(t *testing.T, newStore Factory) {
	t.Run("AddThenGetAll", func(t *testing.T) { testAddThenGetAll(t, newStore(t)) })
	t.Run("IDsIncrease", func(t *testing.T) { testIDsIncrease(t, newStore(t)) })
	t.Run("ListByDate", func(t *testing.T) { testListByDate(t, newStore(t)) })
	t.Run("Settings", func(t *testing.T) { testSettings(t, newStore(t)) })
	t.Run("ConcurrentAdds", func(t *testing.T) { testConcurrentAdds(t, newStore(t)) })
}

func testAddThenGetAll(t *testing.T, s ledger.Store) {
	ctx := context.Background()
	date := time.Date(2025, 3, 4, 10, 0, 0, 0, time.UTC)
	rec := Record(200, "USD", "FOOD", date)
	rec.Sum = decimal.RequireFromString("200.25")

	stored, err := s.AddCost(ctx, rec)
	require.NoError(t, err)
	assert.Positive(t, stored.ID)

	all, err := s.GetAllRaw(ctx)
	require.NoError(t, err)
	require.Len(t, all, 1)

	got := all[0]
	assert.Equal(t, stored.ID, got.ID)
	assert.True(t, got.Sum.Equal(rec.Sum), "sum %s", got.Sum)
	assert.Equal(t, "USD", got.Currency)
	assert.Equal(t, "FOOD", got.Category)
	assert.Equal(t, rec.Description, got.Description)
	assert.True(t, got.DateISO.Equal(date), "date %v", got.DateISO)
	assert.Equal(t, 2025, got.Year)
	assert.Equal(t, 3, got.Month)
	assert.Equal(t, 4, got.Day)
}

func testIDsIncrease(t *testing.T, s ledger.Store) {
	ctx := context.Background()
	date := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	var last int64
	for i := 0; i < 5; i++ {
		stored, err := s.AddCost(ctx, Record(int64(i+1), "USD", "OTHER", date))
		require.NoError(t, err)
		assert.Greater(t, stored.ID, last)
		last = stored.ID
	}

	all, err := s.GetAllRaw(ctx)
	require.NoError(t, err)
	require.Len(t, all, 5)
	for i, r := range all {
		assert.True(t, r.Sum.Equal(decimal.NewFromInt(int64(i+1))), "insertion order broken at %d", i)
	}
}

func testListByDate(t *testing.T, s ledger.Store) {
	ctx := context.Background()
	mar := time.Date(2025, 3, 15, 12, 0, 0, 0, time.UTC)
	_, err := s.AddCost(ctx, Record(3, "USD", "C", mar.AddDate(0, 0, 1)))
	require.NoError(t, err)
	_, err = s.AddCost(ctx, Record(1, "USD", "A", mar))
	require.NoError(t, err)
	_, err = s.AddCost(ctx, Record(9, "USD", "Z", mar.AddDate(0, 1, 0)))
	require.NoError(t, err)

	from := time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC)
	got, err := s.ListCostsByDate(ctx, from, from.AddDate(0, 1, 0))
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "A", got[0].Category)
	assert.Equal(t, "C", got[1].Category)

	none, err := s.ListCostsByDate(ctx, from.AddDate(-1, 0, 0), from.AddDate(-1, 1, 0))
	require.NoError(t, err)
	assert.Empty(t, none)
}

func testSettings(t *testing.T, s ledger.Store) {
	ctx := context.Background()

	_, found, err := s.GetSetting(ctx, "missing")
	require.NoError(t, err)
	assert.False(t, found)

	require.NoError(t, s.SetSetting(ctx, ledger.SettingCurrency, "ILS"))
	require.NoError(t, s.SetSetting(ctx, ledger.SettingCurrency, "GBP"))
	v, found, err := s.GetSetting(ctx, ledger.SettingCurrency)
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, "GBP", v)

	require.NoError(t, s.SetSetting(ctx, "pageSize", 25))
	v, _, err = s.GetSetting(ctx, "pageSize")
	require.NoError(t, err)
	assert.Equal(t, float64(25), v)

	require.NoError(t, s.SetSetting(ctx, "darkMode", true))
	v, _, err = s.GetSetting(ctx, "darkMode")
	require.NoError(t, err)
	assert.Equal(t, true, v)
}

func testConcurrentAdds(t *testing.T, s ledger.Store) {
	ctx := context.Background()
	date := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)

	var wg sync.WaitGroup
	ids := make(chan int64, 20)
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			stored, err := s.AddCost(ctx, Record(1, "USD", "FOOD", date))
			assert.NoError(t, err)
			ids <- stored.ID
		}()
	}
	wg.Wait()
	close(ids)

	seen := make(map[int64]bool)
	for id := range ids {
		assert.False(t, seen[id], "duplicate id %d", id)
		seen[id] = true
	}

	all, err := s.GetAllRaw(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 20)
}
