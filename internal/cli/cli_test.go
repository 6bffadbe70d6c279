package cli

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testRates = `{"USD":1,"ILS":3.4,"GBP":0.8,"EURO":0.9}`

// testEnv isolates a CLI run from the caller's environment and returns the
// data directory holding the test database.
func testEnv(t *testing.T) string {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(testRates))
	}))
	t.Cleanup(srv.Close)

	t.Setenv("COSTLEDGER_CONFIG", "")
	t.Setenv("AMQP_URL", "")
	t.Setenv("DATA_BACKEND", "sqlite")
	t.Setenv("DEFAULT_CURRENCY", "USD")
	t.Setenv("RATES_URL", srv.URL)
	return t.TempDir()
}

// run executes one command line against dir and returns stdout.
func run(t *testing.T, dir string, args ...string) (string, error) {
	t.Helper()
	opts := &RootOptions{
		Now:      func() time.Time { return time.Date(2025, 3, 15, 12, 0, 0, 0, time.UTC) },
		Location: time.UTC,
	}
	cmd := newRootCommand(opts)

	var stdout, stderr bytes.Buffer
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	cmd.SetArgs(append([]string{"--data-dir", dir}, args...))

	err := cmd.Execute()
	return stdout.String(), err
}

func mustRun(t *testing.T, dir string, args ...string) string {
	t.Helper()
	out, err := run(t, dir, args...)
	require.NoError(t, err, "costledger %v", args)
	return out
}

func TestRootCommandHasSubcommands(t *testing.T) {
	cmd := NewRootCommand()

	names := map[string]bool{}
	for _, sub := range cmd.Commands() {
		names[sub.Name()] = true
	}
	for _, want := range []string{"serve", "add", "costs", "report", "yearly", "setting", "rates-url"} {
		assert.True(t, names[want], "missing subcommand %q", want)
	}

	for _, flag := range []string{"format", "db", "data-dir", "backend"} {
		assert.NotNil(t, cmd.PersistentFlags().Lookup(flag), "missing flag --%s", flag)
	}
}

func TestAddAndListCosts(t *testing.T) {
	dir := testEnv(t)

	out := mustRun(t, dir, "add", "--sum", "100", "--date", "2025-03-10")
	assert.Contains(t, out, "Added cost #1: 100.00 USD GENERAL on 2025-03-10")

	out = mustRun(t, dir, "add", "--sum", "34", "--currency", "ils", "--category", "food", "--description", "lunch", "--date", "2025-03-11")
	assert.Contains(t, out, "Added cost #2: 34.00 ILS FOOD on 2025-03-11")

	out = mustRun(t, dir, "costs")
	assert.Contains(t, out, "ID")
	assert.Contains(t, out, "2025-03-10")
	assert.Contains(t, out, "lunch")
}

func TestCostsWhenEmpty(t *testing.T) {
	dir := testEnv(t)
	assert.Contains(t, mustRun(t, dir, "costs"), "No costs recorded")
}

func TestMonthlyReport(t *testing.T) {
	dir := testEnv(t)
	mustRun(t, dir, "add", "--sum", "100", "--date", "2025-03-10")
	mustRun(t, dir, "add", "--sum", "34", "--currency", "ILS", "--category", "food", "--date", "2025-03-11")
	mustRun(t, dir, "add", "--sum", "7", "--date", "2025-04-01")

	out := mustRun(t, dir, "report", "--currency", "ils")
	assert.Contains(t, out, "March 2025 (ILS)")
	assert.Contains(t, out, "340.00")
	assert.Contains(t, out, "374.00")
	assert.NotContains(t, out, "7.00 USD")

	out = mustRun(t, dir, "report", "--year", "2025", "--month", "3", "--by-category")
	assert.Contains(t, out, "FOOD")
	assert.Contains(t, out, "GENERAL")
	assert.Contains(t, out, "110.00")
}

func TestReportUsesCurrencySetting(t *testing.T) {
	dir := testEnv(t)
	mustRun(t, dir, "add", "--sum", "10", "--date", "2025-03-01")
	mustRun(t, dir, "setting", "set", "currency", "GBP")

	out := mustRun(t, dir, "report")
	assert.Contains(t, out, "March 2025 (GBP)")
	assert.Contains(t, out, "8.00")
}

func TestYearlyReport(t *testing.T) {
	dir := testEnv(t)

	out := mustRun(t, dir, "yearly")
	assert.Contains(t, out, "No costs recorded in 2025")

	mustRun(t, dir, "add", "--sum", "20", "--date", "2025-02-03")
	out = mustRun(t, dir, "yearly", "--year", "2025")
	assert.Contains(t, out, "February")
	assert.Contains(t, out, "20.00")
	assert.Contains(t, out, "December")
}

func TestJSONOutput(t *testing.T) {
	dir := testEnv(t)
	mustRun(t, dir, "add", "--sum", "12", "--date", "2025-03-02")

	out := mustRun(t, dir, "--format", "json", "costs")

	var resp struct {
		Status string            `json:"status"`
		Data   []json.RawMessage `json:"data"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	assert.Equal(t, "ok", resp.Status)
	assert.Len(t, resp.Data, 1)
}

func TestSettings(t *testing.T) {
	dir := testEnv(t)

	_, err := run(t, dir, "setting", "get", "theme")
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))

	mustRun(t, dir, "setting", "set", "theme", "dark")
	assert.Equal(t, "dark\n", mustRun(t, dir, "setting", "get", "theme"))

	mustRun(t, dir, "setting", "set", "limit", "250")
	out := mustRun(t, dir, "--format", "json", "setting", "get", "limit")
	assert.Contains(t, out, `"value": 250`)
}

func TestParseSettingArg(t *testing.T) {
	tests := []struct {
		raw  string
		want any
	}{
		{"dark", "dark"},
		{"250", json.Number("250")},
		{"true", true},
		{`"quoted"`, "quoted"},
		{`{"a":1}`, `{"a":1}`},
		{"null", "null"},
		{"1 2", "1 2"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, parseSettingArg(tt.raw), tt.raw)
	}
}

func TestRatesURLCommands(t *testing.T) {
	dir := testEnv(t)
	def := mustRun(t, dir, "rates-url", "get")

	other := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(testRates))
	}))
	defer other.Close()
	assert.Equal(t, other.URL+"\n", mustRun(t, dir, "rates-url", "set", other.URL))
	assert.Equal(t, other.URL+"\n", mustRun(t, dir, "rates-url", "get"))

	incomplete := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"USD":1}`))
	}))
	defer incomplete.Close()
	_, err := run(t, dir, "rates-url", "set", incomplete.URL)
	require.Error(t, err)
	assert.Equal(t, other.URL+"\n", mustRun(t, dir, "rates-url", "get"))

	assert.Equal(t, def, mustRun(t, dir, "rates-url", "reset"))
}

func TestExitCodes(t *testing.T) {
	dir := testEnv(t)

	_, err := run(t, dir, "--format", "yaml", "costs")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))

	_, err = run(t, dir, "--backend", "postgres", "costs")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))

	_, err = run(t, dir, "add", "--sum=-5")
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))

	_, err = run(t, dir, "add")
	require.Error(t, err)
}

func TestExitErrorUnwrap(t *testing.T) {
	inner := assert.AnError
	err := WrapExitError(ExitCommandError, "open ledger", inner)
	assert.ErrorIs(t, err, inner)
	assert.Equal(t, "open ledger: "+inner.Error(), err.Error())
	assert.Equal(t, ExitFailure, GetExitCode(inner))
}
