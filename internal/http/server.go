package http

import (
	"context"
	"net/http"
	"strconv"
	"sync"
	"time"

	applog "familyledger/internal/log"
	"familyledger/internal/middleware/ratelimit"
	"familyledger/internal/middleware/security"
	"familyledger/internal/middleware/trace"
	"familyledger/internal/services"
)

// Server is the JSON API over one engine.
type Server struct {
	http.Server
	engine   *services.Engine
	logger   *applog.Logger
	limiter  *ratelimit.Limiter
	detector *security.Detector
	tracer   *trace.Middleware

	shutdownOnce sync.Once
}

// Options tunes the middleware chain. Zero values pick defaults.
type Options struct {
	WritesPerMinute int
}

// NewServer wires routes and middleware, returning a ready-to-run server.
func NewServer(addr string, engine *services.Engine, logger *applog.Logger, opts Options) *Server {
	detector := security.NewDetector()
	s := &Server{
		engine:   engine,
		logger:   logger.WithComponent(applog.ComponentHTTP),
		limiter:  ratelimit.NewLimiter(ratelimit.Config{RequestsPerMinute: opts.WritesPerMinute}),
		detector: detector,
		tracer:   trace.NewMiddleware(logger.WithComponent(applog.ComponentHTTP), detector.ExtractClientIP),
	}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /healthz", handleHealth)
	mux.HandleFunc("GET /readyz", s.handleReady)

	mux.HandleFunc("GET /api/accounts", s.handleListBalances)
	mux.HandleFunc("GET /api/accounts/{id}/balance", s.handleAccountBalance)
	mux.HandleFunc("GET /api/cards/{id}/invoice", s.handleOpenInvoice)
	mux.HandleFunc("POST /api/cards/{id}/payments", s.handlePayInvoice)

	mux.HandleFunc("GET /api/net-worth", s.handleNetWorth)
	mux.HandleFunc("GET /api/budget", s.handleBudget)
	mux.HandleFunc("GET /api/spending", s.handleSpending)
	mux.HandleFunc("GET /api/dashboard", s.handleDashboard)

	mux.HandleFunc("POST /api/expenses/installments", s.handleInstallments)
	mux.HandleFunc("POST /api/expenses/recurring", s.handleRecurringExpense)
	mux.HandleFunc("POST /api/incomes/recurring", s.handleRecurringIncome)
	mux.HandleFunc("POST /api/goals/{id}/contributions", s.handleGoalContribution)
	mux.HandleFunc("POST /api/investments/{id}/contributions", s.handleInvestmentContribution)

	// outermost first
	var h http.Handler = mux
	h = s.limiter.Middleware(s.rateKey, s.onRateLimited)(h)
	h = applog.Middleware(s.logger, trace.RequestIDFromRequest)(h)
	h = security.NewHeadersMiddleware(security.APIHeadersConfig()).Middleware(h)
	h = detector.Middleware(h)
	h = s.tracer.Middleware(h)

	s.Server = http.Server{
		Addr:              addr,
		Handler:           h,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}
	return s
}

// rateKey limits per member when identified and per client address otherwise.
func (s *Server) rateKey(r *http.Request) string {
	if id, err := memberID(r); err == nil {
		return "member:" + strconv.FormatInt(id, 10)
	}
	return "ip:" + s.detector.ExtractClientIP(r)
}

func (s *Server) onRateLimited(w http.ResponseWriter, r *http.Request) {
	s.logger.WarnContext(r.Context(), "Rate limit exceeded", applog.FieldPath, r.URL.Path)
	writeJSON(w, http.StatusTooManyRequests, errorBody{Error: "rate limit exceeded, retry in a minute"})
}

// Metrics exposes the request counters.
func (s *Server) Metrics() trace.Metrics {
	return s.tracer.GetMetrics()
}

// Shutdown stops the limiter and drains the HTTP server once.
func (s *Server) Shutdown(ctx context.Context) error {
	var err error
	s.shutdownOnce.Do(func() {
		s.limiter.Stop()
		err = s.Server.Shutdown(ctx)
	})
	return err
}

func handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// handleReady checks the store answers a cheap directory read.
func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()
	if _, err := s.engine.Store.ListAccounts(ctx, 0); err != nil {
		s.logger.ErrorContext(ctx, "Readiness check failed", applog.FieldError, err)
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unavailable"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
}
