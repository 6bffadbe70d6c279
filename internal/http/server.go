// Package http serves the cost ledger as a JSON API.
package http

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"time"

	applog "costledger/internal/log"
	"costledger/internal/middleware/ratelimit"
	"costledger/internal/middleware/security"
	"costledger/internal/middleware/trace"
	"costledger/internal/services"
	"costledger/web"
)

// Options configure a Server. Zero values pick the defaults.
type Options struct {
	Logger *applog.Logger

	// WriteRequestsPerMinute limits POST/PUT/DELETE per client IP.
	WriteRequestsPerMinute int

	// RatesJSON is served at /rates.json; defaults to the embedded table.
	RatesJSON []byte

	// ReadyTimeout bounds the /readyz storage probe.
	ReadyTimeout time.Duration

	Now func() time.Time
}

type Server struct {
	http.Server
	ledger    services.Ledger
	logger    *applog.Logger
	limiter   *ratelimit.Limiter
	detector  *security.Detector
	tracer    *trace.Middleware
	ratesJSON []byte
	readyTTL  time.Duration
	now       func() time.Time

	shutdownOnce sync.Once
}

// NewServer configures routes and middleware, returning a ready-to-run
// http.Server. Shutdown releases the rate limiter.
func NewServer(addr string, ledger services.Ledger, opts Options) *Server {
	if opts.Logger == nil {
		opts.Logger = applog.New(applog.DefaultConfig())
	}
	if opts.RatesJSON == nil {
		opts.RatesJSON = web.RatesJSON
	}
	if opts.ReadyTimeout <= 0 {
		opts.ReadyTimeout = 2 * time.Second
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}

	logger := opts.Logger.WithComponent(applog.ComponentHTTP)
	s := &Server{
		ledger:    ledger,
		logger:    logger,
		limiter:   ratelimit.NewLimiter(ratelimit.Config{RequestsPerMinute: opts.WriteRequestsPerMinute}),
		detector:  security.NewDetector(),
		ratesJSON: opts.RatesJSON,
		readyTTL:  opts.ReadyTimeout,
		now:       opts.Now,
	}
	s.tracer = trace.NewMiddleware(s.detector.ClientIP, logger.Logger)

	mux := http.NewServeMux()
	mux.HandleFunc("POST /costs", s.handleAddCost)
	mux.HandleFunc("GET /costs", s.handleListCosts)
	mux.HandleFunc("GET /reports/monthly", s.handleMonthlyReport)
	mux.HandleFunc("GET /reports/yearly", s.handleYearlyReport)
	mux.HandleFunc("GET /settings/rates-url", s.handleGetRatesURL)
	mux.HandleFunc("PUT /settings/rates-url", s.handleUpdateRatesURL)
	mux.HandleFunc("DELETE /settings/rates-url", s.handleResetRatesURL)
	mux.HandleFunc("GET /settings/{key}", s.handleGetSetting)
	mux.HandleFunc("PUT /settings/{key}", s.handleSetSetting)
	mux.Handle("GET /rates.json", security.StaticAssetMiddleware(300)(http.HandlerFunc(s.handleRatesJSON)))
	mux.HandleFunc("GET /healthz", handleHealth)
	mux.HandleFunc("GET /readyz", s.handleReady)

	var handler http.Handler = mux
	handler = s.limiter.Middleware(s.detector.ClientIP, func(r *http.Request) bool { return !isWrite(r) }, s.onRateLimited)(handler)
	handler = s.detector.Middleware(applog.ForComponent(logger.Logger, applog.ComponentHTTP))(handler)
	handler = security.NewHeadersMiddleware(security.DefaultHeadersConfig()).Middleware(handler)
	handler = applog.Middleware(logger, trace.RequestID)(handler)
	handler = s.tracer.Middleware(handler)

	s.Server = http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}
	return s
}

// ListenAndServe serves until Shutdown; http.ErrServerClosed is not an error.
func (s *Server) ListenAndServe() error {
	s.logger.Info("HTTP server listening", "addr", s.Addr)
	if err := s.Server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown gracefully shuts down the server and the rate limiter.
func (s *Server) Shutdown(ctx context.Context) error {
	var shutdownErr error
	s.shutdownOnce.Do(func() {
		s.limiter.Stop()
		shutdownErr = s.Server.Shutdown(ctx)
	})
	return shutdownErr
}

// RequestMetrics exposes the trace middleware counters.
func (s *Server) RequestMetrics() trace.Metrics {
	return s.tracer.GetMetrics()
}

func (s *Server) onRateLimited(w http.ResponseWriter, r *http.Request) {
	applog.FromContext(r.Context()).WarnContext(r.Context(), "Rate limit exceeded",
		applog.FieldClientIP, s.detector.ClientIP(r),
		applog.FieldMethod, r.Method,
		applog.FieldPath, r.URL.Path)
	TooManyRequestsError().Write(w)
}

func handleHealth(w http.ResponseWriter, r *http.Request) {
	OK(map[string]string{"status": "ok"}).Write(w)
}

func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), s.readyTTL)
	defer cancel()
	if err := s.ledger.Ready(ctx); err != nil {
		applog.FromContext(ctx).ErrorContext(ctx, "Readiness check failed", applog.FieldError, err)
		ServiceUnavailableError("storage not ready").Write(w)
		return
	}
	OK(map[string]string{"status": "ready"}).Write(w)
}

func (s *Server) handleRatesJSON(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(s.ratesJSON)
}
