package ratelimit

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func newTestLimiter(t *testing.T, perMinute int) (*Limiter, *time.Time) {
	t.Helper()
	rl := NewLimiter(Config{RequestsPerMinute: perMinute})
	t.Cleanup(rl.Stop)
	now := time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC)
	rl.now = func() time.Time { return now }
	return rl, &now
}

func TestAllowWindow(t *testing.T) {
	rl, now := newTestLimiter(t, 3)

	for i := 0; i < 3; i++ {
		if !rl.Allow("10.0.0.1") {
			t.Fatalf("request %d should be allowed", i+1)
		}
	}
	if rl.Allow("10.0.0.1") {
		t.Error("fourth request within the window should be limited")
	}
	if !rl.Allow("10.0.0.2") {
		t.Error("other clients have their own window")
	}

	*now = now.Add(time.Minute)
	if !rl.Allow("10.0.0.1") {
		t.Error("a new window should reset the counter")
	}

	if got := rl.GetMetrics().Rejected; got != 1 {
		t.Errorf("Rejected = %d, want 1", got)
	}
	if got := rl.ActiveClients(); got != 2 {
		t.Errorf("ActiveClients = %d, want 2", got)
	}
}

func TestSweepForgetsIdleKeys(t *testing.T) {
	rl, now := newTestLimiter(t, 3)
	rl.Allow("a")
	*now = now.Add(11 * time.Minute)
	rl.Allow("b")

	rl.sweep()
	if got := rl.ActiveClients(); got != 1 {
		t.Errorf("ActiveClients = %d, want 1", got)
	}
}

func TestMiddleware(t *testing.T) {
	rl, _ := newTestLimiter(t, 1)
	ok := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusOK) })
	handler := rl.Middleware(
		func(*http.Request) string { return "client" },
		func(r *http.Request) bool { return r.Method == http.MethodGet },
		nil,
	)(ok)

	send := func(method string) *httptest.ResponseRecorder {
		rr := httptest.NewRecorder()
		handler.ServeHTTP(rr, httptest.NewRequest(method, "/", nil))
		return rr
	}

	if rr := send(http.MethodPost); rr.Code != http.StatusOK {
		t.Fatalf("first POST status = %d", rr.Code)
	}
	rr := send(http.MethodPost)
	if rr.Code != http.StatusTooManyRequests {
		t.Fatalf("second POST status = %d, want 429", rr.Code)
	}
	if rr.Header().Get("Retry-After") != "60" {
		t.Errorf("Retry-After = %q, want 60", rr.Header().Get("Retry-After"))
	}
	for i := 0; i < 3; i++ {
		if rr := send(http.MethodGet); rr.Code != http.StatusOK {
			t.Errorf("skipped GET status = %d", rr.Code)
		}
	}
}

func TestStopIsIdempotent(t *testing.T) {
	rl := NewLimiter(DefaultConfig())
	rl.Stop()
	rl.Stop()
}
