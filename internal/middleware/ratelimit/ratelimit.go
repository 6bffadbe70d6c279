// Package ratelimit throttles clients with a fixed one-minute window.
package ratelimit

import (
	"net/http"
	"strconv"
	"sync"
	"sync/atomic"
	"time"
)

// Limiter is a fixed one-minute window counter per client key.
type Limiter struct {
	mu       sync.Mutex
	windows  map[string]*window
	done     chan struct{}
	stopOnce sync.Once
	now      func() time.Time

	perMinute  int
	sweepEvery time.Duration
	idleAfter  time.Duration

	rejected int64
}

type window struct {
	windowStart time.Time
	lastRequest time.Time
	requests    int
}

// Config tunes a Limiter. Zero fields take DefaultConfig values.
type Config struct {
	RequestsPerMinute int
	CleanupInterval   time.Duration
}

// DefaultConfig allows 60 requests a minute and sweeps idle keys every
// five minutes.
func DefaultConfig() Config {
	return Config{
		RequestsPerMinute: 60,
		CleanupInterval:   5 * time.Minute,
	}
}

// NewLimiter creates a new rate limiter and starts its cleanup goroutine.
// Call Stop to release it.
func NewLimiter(config Config) *Limiter {
	if config.RequestsPerMinute <= 0 {
		config.RequestsPerMinute = DefaultConfig().RequestsPerMinute
	}
	if config.CleanupInterval <= 0 {
		config.CleanupInterval = DefaultConfig().CleanupInterval
	}

	rl := &Limiter{
		windows:    make(map[string]*window),
		done:       make(chan struct{}),
		now:        time.Now,
		perMinute:  config.RequestsPerMinute,
		sweepEvery: config.CleanupInterval,
		idleAfter:  10 * time.Minute,
	}
	go rl.sweepLoop()
	return rl
}

// Allow checks if a request from the given key should be allowed
func (rl *Limiter) Allow(key string) bool {
	ok, _ := rl.allow(key)
	return ok
}

// allow also returns how long until the key's window resets.
func (rl *Limiter) allow(key string) (bool, time.Duration) {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := rl.now()
	win, ok := rl.windows[key]
	if !ok || now.Sub(win.windowStart) >= time.Minute {
		rl.windows[key] = &window{windowStart: now, lastRequest: now, requests: 1}
		return true, 0
	}

	win.requests++
	win.lastRequest = now
	if win.requests <= rl.perMinute {
		return true, 0
	}
	atomic.AddInt64(&rl.rejected, 1)
	return false, time.Minute - now.Sub(win.windowStart)
}

func (rl *Limiter) sweepLoop() {
	ticker := time.NewTicker(rl.sweepEvery)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			rl.sweep()
		case <-rl.done:
			return
		}
	}
}

// sweep forgets keys that have been idle for idleAfter.
func (rl *Limiter) sweep() {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	cutoff := rl.now().Add(-rl.idleAfter)
	for key, win := range rl.windows {
		if win.lastRequest.Before(cutoff) {
			delete(rl.windows, key)
		}
	}
}

// ActiveClients is the number of keys with a live window.
func (rl *Limiter) ActiveClients() int {
	rl.mu.Lock()
	n := len(rl.windows)
	rl.mu.Unlock()
	return n
}

// Stop ends the sweep goroutine. It is safe to call more than once.
func (rl *Limiter) Stop() {
	rl.stopOnce.Do(func() { close(rl.done) })
}

type Metrics struct {
	Rejected    int64
	ActiveCount int
}

func (rl *Limiter) GetMetrics() Metrics {
	return Metrics{
		Rejected:    atomic.LoadInt64(&rl.rejected),
		ActiveCount: rl.ActiveClients(),
	}
}

// Middleware limits requests keyed by extractKey. Requests for which skip
// returns true are never counted. onLimit writes the rejection; when nil a
// plain 429 is sent. Retry-After is always set.
func (rl *Limiter) Middleware(extractKey func(*http.Request) string, skip func(*http.Request) bool, onLimit func(http.ResponseWriter, *http.Request)) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
			if skip != nil && skip(req) {
				next.ServeHTTP(w, req)
				return
			}

			ok, retry := rl.allow(extractKey(req))
			if !ok {
				secs := int(retry.Round(time.Second) / time.Second)
				if secs < 1 {
					secs = 1
				}
				w.Header().Set("Retry-After", strconv.Itoa(secs))
				if onLimit != nil {
					onLimit(w, req)
				} else {
					http.Error(w, "too many requests", http.StatusTooManyRequests)
				}
				return
			}

			next.ServeHTTP(w, req)
		})
	}
}
