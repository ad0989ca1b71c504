// Package http exposes the budget service as a JSON tool surface.
package http

import (
	"context"
	"net"
	"net/http"
	"strings"
	"sync"
	"time"

	"bilancio/internal/log"
	"bilancio/internal/middleware/ratelimit"
	"bilancio/internal/middleware/trace"
	"bilancio/internal/services"
)

const (
	readTimeout    = 10 * time.Second
	writeTimeout   = 10 * time.Second
	idleTimeout    = 60 * time.Second
	maxHeaderBytes = 1 << 16
)

// Server serves the tool endpoints.
type Server struct {
	http.Server

	svc      *services.BudgetService
	logger   *log.Logger
	rlLogger *log.Logger
	tracer   *trace.Middleware
	limiter  *ratelimit.Limiter

	appMetrics   appMetrics
	shutdownOnce sync.Once
}

type appMetrics struct {
	startedAt time.Time
	writes    int64
}

// Option adjusts server construction.
type Option func(*Server)

// WithRateLimit replaces the default per-client limit.
func WithRateLimit(config ratelimit.Config) Option {
	return func(s *Server) { s.limiter = ratelimit.NewLimiter(config) }
}

// New wires routes and middleware around the service.
func New(addr string, svc *services.BudgetService, logger *log.Logger, opts ...Option) *Server {
	s := &Server{
		svc:      svc,
		logger:   logger.WithComponent(log.ComponentHTTP),
		rlLogger: logger.WithComponent(log.ComponentRateLimit),
	}
	s.appMetrics.startedAt = time.Now()
	for _, opt := range opts {
		opt(s)
	}
	if s.limiter == nil {
		s.limiter = ratelimit.NewLimiter(ratelimit.DefaultConfig())
	}
	s.tracer = trace.NewMiddleware(clientIP, logger)

	mux := http.NewServeMux()
	s.routes(mux)

	s.Server = http.Server{
		Addr:           addr,
		Handler:        s.tracer.Middleware(mux),
		ReadTimeout:    readTimeout,
		WriteTimeout:   writeTimeout,
		IdleTimeout:    idleTimeout,
		MaxHeaderBytes: maxHeaderBytes,
	}
	return s
}

// routes registers every endpoint. Tool routes go through the rate
// limiter; probe endpoints stay unlimited.
func (s *Server) routes(mux *http.ServeMux) {
	mux.HandleFunc("GET /healthz", s.handleHealth)
	mux.HandleFunc("GET /readyz", s.handleReady)
	mux.HandleFunc("GET /metrics", s.handleMetrics)

	s.tool(mux, "GET /tools/snapshot", s.handleSnapshot)
	s.tool(mux, "POST /tools/snapshot/refresh", s.handleRefresh)
	s.tool(mux, "POST /tools/resolve", s.handleResolve)
	s.tool(mux, "POST /tools/transactions/search", s.handleSearchTransactions)
	s.tool(mux, "POST /tools/transactions/create", s.handleCreateTransaction)
	s.tool(mux, "POST /tools/transactions/categorize", s.handleCategorizeTransaction)
	s.tool(mux, "GET /tools/transactions/uncategorized", s.handleUncategorized)
	s.tool(mux, "POST /tools/budget/move", s.handleMoveMoney)
	s.tool(mux, "POST /tools/budget/setup", s.handleSetupBudget)
	s.tool(mux, "GET /tools/analysis/overspending", s.handleOverspending)
	s.tool(mux, "POST /tools/analysis/cover", s.handleCover)
	s.tool(mux, "GET /tools/analysis/trends", s.handleTrends)
	s.tool(mux, "POST /tools/analysis/forecast", s.handleForecast)
	s.tool(mux, "POST /tools/analysis/affordability", s.handleAffordability)
	s.tool(mux, "GET /tools/analysis/credit-cards", s.handleCreditCards)
	s.tool(mux, "POST /tools/payees/learn", s.handleLearn)
	s.tool(mux, "POST /tools/payees/suggest", s.handleSuggest)
	s.tool(mux, "POST /tools/payees/learn-history", s.handleLearnHistory)
	s.tool(mux, "POST /tools/payees/rename", s.handleRenamePayee)
	s.tool(mux, "GET /tools/scheduled/upcoming", s.handleUpcoming)
}

func (s *Server) tool(mux *http.ServeMux, pattern string, h http.HandlerFunc) {
	mux.Handle(pattern, s.limiter.Middleware(clientIP, s.handleRateLimited)(h))
}

func (s *Server) handleRateLimited(w http.ResponseWriter, r *http.Request) {
	s.rlLogger.WarnContext(r.Context(), "rate limit exceeded",
		log.FieldClientIP, clientIP(r),
		log.FieldPath, r.URL.Path)
	w.Header().Set("Retry-After", "60")
	writeError(w, http.StatusTooManyRequests, "rate_limited", "rate limit exceeded, retry later", nil)
}

// Start begins serving and blocks until the listener closes.
func (s *Server) Start() error {
	s.logger.Info("http server listening", "addr", s.Addr)
	return s.ListenAndServe()
}

// Shutdown stops the server and the middleware cleanup goroutines, once.
func (s *Server) Shutdown(ctx context.Context) error {
	var shutdownErr error
	s.shutdownOnce.Do(func() {
		if s.limiter != nil {
			s.limiter.Stop()
		}
		shutdownErr = s.Server.Shutdown(ctx)
	})
	return shutdownErr
}

// clientIP extracts the caller's address, honoring proxy headers.
func clientIP(r *http.Request) string {
	if fwd := r.Header.Get("X-Forwarded-For"); fwd != "" {
		if i := strings.IndexByte(fwd, ','); i >= 0 {
			fwd = fwd[:i]
		}
		return strings.TrimSpace(fwd)
	}
	if ip := r.Header.Get("X-Real-IP"); ip != "" {
		return ip
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
