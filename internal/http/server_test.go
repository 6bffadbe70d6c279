package http

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"costledger/internal/core"
	"costledger/internal/currency"
	"costledger/internal/ledger/memory"
	applog "costledger/internal/log"
	"costledger/internal/services"
	"costledger/web"
)

var testNow = time.Date(2025, 3, 15, 12, 0, 0, 0, time.UTC)

func rateSource(t *testing.T, body string) string {
	t.Helper()
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, body)
	}))
	t.Cleanup(ts.Close)
	return ts.URL
}

func discardLogger() *applog.Logger {
	return applog.New(applog.Config{Output: io.Discard})
}

func newTestServer(t *testing.T, ledger services.Ledger, opts Options) *Server {
	t.Helper()
	if opts.Logger == nil {
		opts.Logger = discardLogger()
	}
	if opts.Now == nil {
		opts.Now = func() time.Time { return testNow }
	}
	srv := NewServer(":0", ledger, opts)
	t.Cleanup(func() { _ = srv.Shutdown(context.Background()) })
	return srv
}

func newTestLedger(t *testing.T) *services.CostService {
	t.Helper()
	n := core.NewNormalizer()
	n.Location = time.UTC
	provider := currency.NewProvider(currency.ProviderConfig{URL: rateSource(t, string(web.RatesJSON))})
	svc, err := services.NewCostService(context.Background(), memory.New(time.UTC), provider, services.Options{
		Normalizer: &n,
		Now:        func() time.Time { return testNow },
	})
	require.NoError(t, err)
	return svc
}

func do(t *testing.T, srv *Server, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	rr := httptest.NewRecorder()
	srv.Handler.ServeHTTP(rr, req)
	return rr
}

func decode[T any](t *testing.T, rr *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &v), rr.Body.String())
	return v
}

func TestHealthReadyAndRates(t *testing.T) {
	srv := newTestServer(t, newTestLedger(t), Options{})

	for _, path := range []string{"/healthz", "/readyz"} {
		rr := do(t, srv, http.MethodGet, path, "")
		assert.Equal(t, http.StatusOK, rr.Code, path)
	}

	rr := do(t, srv, http.MethodGet, "/rates.json", "")
	require.Equal(t, http.StatusOK, rr.Code)
	assert.JSONEq(t, `{"USD":1,"ILS":3.4,"GBP":0.8,"EURO":0.9}`, rr.Body.String())
	assert.Equal(t, "public, max-age=300", rr.Header().Get("Cache-Control"))
	assert.Equal(t, "nosniff", rr.Header().Get("X-Content-Type-Options"))
	assert.NotEmpty(t, rr.Header().Get("X-Request-ID"))
}

func TestRequestIDIsEchoed(t *testing.T) {
	srv := newTestServer(t, newTestLedger(t), Options{})

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	req.Header.Set("X-Request-ID", "abc-123")
	rr := httptest.NewRecorder()
	srv.Handler.ServeHTTP(rr, req)
	assert.Equal(t, "abc-123", rr.Header().Get("X-Request-ID"))

	req = httptest.NewRequest(http.MethodGet, "/healthz", nil)
	req.Header.Set("X-Request-ID", "not valid <id>")
	rr = httptest.NewRecorder()
	srv.Handler.ServeHTTP(rr, req)
	assert.NotEqual(t, "not valid <id>", rr.Header().Get("X-Request-ID"))
	assert.NotEmpty(t, rr.Header().Get("X-Request-ID"))

	assert.Equal(t, int64(2), srv.RequestMetrics().TotalRequests)
}

func TestAddAndListCosts(t *testing.T) {
	srv := newTestServer(t, newTestLedger(t), Options{})

	rr := do(t, srv, http.MethodPost, "/costs",
		`{"sum":"12.50","currency":"ils","category":"food","description":" lunch\u0007 ","date":"2025-03-10"}`)
	require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())
	stored := decode[core.StoredRecord](t, rr)
	assert.Equal(t, int64(1), stored.ID)
	assert.Equal(t, "12.5", stored.Sum.String())
	assert.Equal(t, "ILS", stored.Currency)
	assert.Equal(t, "FOOD", stored.Category)
	assert.Equal(t, "lunch", stored.Description)
	assert.Equal(t, 2025, stored.Year)
	assert.Equal(t, 3, stored.Month)
	assert.Equal(t, 10, stored.Day)

	rr = do(t, srv, http.MethodPost, "/costs", `{"sum":7}`)
	require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())
	defaults := decode[core.StoredRecord](t, rr)
	assert.Equal(t, core.DefaultCurrency, defaults.Currency)
	assert.Equal(t, core.DefaultCategory, defaults.Category)
	assert.True(t, defaults.DateISO.Equal(testNow))

	rr = do(t, srv, http.MethodGet, "/costs", "")
	require.Equal(t, http.StatusOK, rr.Code)
	all := decode[[]core.StoredRecord](t, rr)
	require.Len(t, all, 2)
	assert.Equal(t, int64(2), all[1].ID)
}

func TestAddCostRejectsBadInput(t *testing.T) {
	svc := newTestLedger(t)
	srv := newTestServer(t, svc, Options{})

	tests := []struct {
		name    string
		body    string
		wantErr string
	}{
		{"zero sum", `{"sum":0}`, core.CodeInvalidSum},
		{"negative sum", `{"sum":-5}`, core.CodeInvalidSum},
		{"text sum", `{"sum":"abc"}`, core.CodeInvalidSum},
		{"missing sum", `{"currency":"USD"}`, core.CodeInvalidSum},
		{"bad date", `{"sum":1,"date":"not a date"}`, core.CodeInvalidDate},
		{"broken json", `{`, "invalid JSON"},
		{"trailing value", `{"sum":1}{"sum":2}`, "single JSON value"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rr := do(t, srv, http.MethodPost, "/costs", tt.body)
			assert.Equal(t, http.StatusBadRequest, rr.Code)
			body := decode[errorBody](t, rr)
			assert.Contains(t, body.Error, tt.wantErr)
		})
	}

	rr := do(t, srv, http.MethodPost, "/costs", "")
	assert.Equal(t, http.StatusBadRequest, rr.Code)

	all, err := svc.GetAllRaw(context.Background())
	require.NoError(t, err)
	assert.Empty(t, all)
}

func TestCostsMethodNotAllowed(t *testing.T) {
	srv := newTestServer(t, newTestLedger(t), Options{})
	rr := do(t, srv, http.MethodDelete, "/costs", "")
	assert.Equal(t, http.StatusMethodNotAllowed, rr.Code)
}

func seedCosts(t *testing.T, srv *Server) {
	t.Helper()
	for _, body := range []string{
		`{"sum":100,"category":"food","date":"2025-03-02"}`,
		`{"sum":50,"category":"food","date":"2025-03-20"}`,
		`{"sum":20,"category":"transport","date":"2025-03-21"}`,
		`{"sum":30,"category":"food","date":"2025-12-01"}`,
	} {
		rr := do(t, srv, http.MethodPost, "/costs", body)
		require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())
	}
}

func TestMonthlyReport(t *testing.T) {
	srv := newTestServer(t, newTestLedger(t), Options{})
	seedCosts(t, srv)

	rr := do(t, srv, http.MethodGet, "/reports/monthly?year=2025&month=3&currency=ils", "")
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	report := decode[core.MonthlyReport](t, rr)
	assert.Equal(t, "ILS", report.Total.Currency)
	assert.Equal(t, "578.00", report.Total.Total.StringFixed(2))
	require.Len(t, report.Costs, 3)
	assert.Equal(t, "340.00", report.Costs[0].Converted.StringFixed(2))

	rr = do(t, srv, http.MethodGet, "/reports/monthly?year=2025&month=3&currency=ILS&group=category", "")
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	grouped := decode[groupedReport](t, rr)
	require.Len(t, grouped.ByCategory, 2)
	assert.Equal(t, "FOOD", grouped.ByCategory[0].Name)
	assert.Equal(t, "510.00", grouped.ByCategory[0].Amount.StringFixed(2))
	assert.Equal(t, "68.00", grouped.ByCategory[1].Amount.StringFixed(2))

	// no currency falls back to the ledger default; no period to "now"
	rr = do(t, srv, http.MethodGet, "/reports/monthly", "")
	require.Equal(t, http.StatusOK, rr.Code)
	current := decode[core.MonthlyReport](t, rr)
	assert.Equal(t, 2025, current.Year)
	assert.Equal(t, 3, current.Month)
	assert.Equal(t, "USD", current.Total.Currency)
	assert.Equal(t, "170.00", current.Total.Total.StringFixed(2))

	rr = do(t, srv, http.MethodGet, "/reports/monthly?year=2025&month=4", "")
	require.Equal(t, http.StatusOK, rr.Code)
	empty := decode[core.MonthlyReport](t, rr)
	assert.NotNil(t, empty.Costs)
	assert.Empty(t, empty.Costs)
	assert.True(t, empty.Total.Total.IsZero())
}

func TestMonthlyReportBadParams(t *testing.T) {
	srv := newTestServer(t, newTestLedger(t), Options{})

	for _, query := range []string{
		"?year=2025&month=13",
		"?year=2025&month=0",
		"?year=2025&month=abc",
		"?year=twenty&month=1",
		"?year=2025&month=1&group=day",
	} {
		rr := do(t, srv, http.MethodGet, "/reports/monthly"+query, "")
		assert.Equal(t, http.StatusBadRequest, rr.Code, query)
	}
}

func TestYearlyReport(t *testing.T) {
	srv := newTestServer(t, newTestLedger(t), Options{})
	seedCosts(t, srv)

	rr := do(t, srv, http.MethodGet, "/reports/yearly?year=2025&currency=usd", "")
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	yearly := decode[core.YearlyReport](t, rr)
	assert.Equal(t, "USD", yearly.Currency)
	assert.Equal(t, "170.00", yearly.MonthlyTotals[2].StringFixed(2))
	assert.Equal(t, "30.00", yearly.MonthlyTotals[11].StringFixed(2))
	assert.True(t, yearly.MonthlyTotals[0].IsZero())

	rr = do(t, srv, http.MethodGet, "/reports/yearly?year=x", "")
	assert.Equal(t, http.StatusBadRequest, rr.Code)
}

func TestSettingsEndpoints(t *testing.T) {
	srv := newTestServer(t, newTestLedger(t), Options{})

	rr := do(t, srv, http.MethodGet, "/settings/theme", "")
	assert.Equal(t, http.StatusNotFound, rr.Code)

	rr = do(t, srv, http.MethodPut, "/settings/theme", `{"value":"dark"}`)
	assert.Equal(t, http.StatusNoContent, rr.Code)

	rr = do(t, srv, http.MethodGet, "/settings/theme", "")
	require.Equal(t, http.StatusOK, rr.Code)
	assert.JSONEq(t, `{"key":"theme","value":"dark"}`, rr.Body.String())

	rr = do(t, srv, http.MethodPut, "/settings/pageSize", `{"value":25}`)
	assert.Equal(t, http.StatusNoContent, rr.Code)
	rr = do(t, srv, http.MethodGet, "/settings/pageSize", "")
	assert.JSONEq(t, `{"key":"pageSize","value":25}`, rr.Body.String())

	rr = do(t, srv, http.MethodPut, "/settings/theme", `{}`)
	assert.Equal(t, http.StatusBadRequest, rr.Code)
}

func TestRatesURLEndpoints(t *testing.T) {
	svc := newTestLedger(t)
	srv := newTestServer(t, svc, Options{})
	original := svc.RatesURL()

	rr := do(t, srv, http.MethodGet, "/settings/rates-url", "")
	require.Equal(t, http.StatusOK, rr.Code)
	assert.JSONEq(t, `{"url":"`+original+`"}`, rr.Body.String())

	partial := rateSource(t, `{"USD":1,"ILS":3.4}`)
	rr = do(t, srv, http.MethodPut, "/settings/rates-url", `{"url":"`+partial+`"}`)
	assert.Equal(t, http.StatusUnprocessableEntity, rr.Code)
	assert.Contains(t, decode[errorBody](t, rr).Error, "GBP")
	assert.Equal(t, original, svc.RatesURL())

	rr = do(t, srv, http.MethodPut, "/settings/rates-url", `{"url":""}`)
	assert.Equal(t, http.StatusBadRequest, rr.Code)

	good := rateSource(t, `{"rates":{"USD":1,"ILS":4,"GBP":0.8,"EURO":0.9}}`)
	rr = do(t, srv, http.MethodPut, "/settings/rates-url", `{"url":"`+good+`"}`)
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	assert.Equal(t, good, svc.RatesURL())

	rr = do(t, srv, http.MethodGet, "/settings/ratesUrl", "")
	require.Equal(t, http.StatusOK, rr.Code)
	assert.JSONEq(t, `{"key":"ratesUrl","value":"`+good+`"}`, rr.Body.String())

	rr = do(t, srv, http.MethodDelete, "/settings/rates-url", "")
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, original, svc.RatesURL())
}

func TestWriteRateLimit(t *testing.T) {
	srv := newTestServer(t, newTestLedger(t), Options{WriteRequestsPerMinute: 2})

	for i := 0; i < 2; i++ {
		rr := do(t, srv, http.MethodPost, "/costs", `{"sum":1}`)
		require.Equal(t, http.StatusCreated, rr.Code)
	}
	rr := do(t, srv, http.MethodPost, "/costs", `{"sum":1}`)
	assert.Equal(t, http.StatusTooManyRequests, rr.Code)
	assert.NotEmpty(t, rr.Header().Get("Retry-After"))

	for i := 0; i < 5; i++ {
		rr := do(t, srv, http.MethodGet, "/costs", "")
		assert.Equal(t, http.StatusOK, rr.Code)
	}
}

// brokenLedger fails every storage call it implements.
type brokenLedger struct {
	services.Ledger
}

func (brokenLedger) Ready(context.Context) error { return errors.New("database is locked") }

func (brokenLedger) GetAllRaw(context.Context) ([]core.StoredRecord, error) {
	return nil, core.ReadError("get_all", errors.New("disk I/O error"))
}

func (brokenLedger) GetSetting(context.Context, string) (any, bool, error) {
	return nil, false, core.ReadError("get_setting", errors.New("disk I/O error"))
}

func TestStorageFailures(t *testing.T) {
	srv := newTestServer(t, brokenLedger{}, Options{})

	rr := do(t, srv, http.MethodGet, "/readyz", "")
	assert.Equal(t, http.StatusServiceUnavailable, rr.Code)

	for _, path := range []string{"/costs", "/settings/theme"} {
		rr := do(t, srv, http.MethodGet, path, "")
		assert.Equal(t, http.StatusInternalServerError, rr.Code, path)
		body := decode[errorBody](t, rr)
		assert.Equal(t, "internal server error", body.Error)
		assert.NotContains(t, rr.Body.String(), "disk I/O")
	}
}
