package http

import (
	"context"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"finsight/internal/cache"
	applog "finsight/internal/log"
	"finsight/internal/middleware/ratelimit"
	"finsight/internal/middleware/security"
	"finsight/internal/middleware/trace"
	"finsight/internal/services"
)

// Server is the JSON API server for derived financial metrics.
type Server struct {
	http.Server

	insights *services.InsightService
	entries  *services.EntryService

	detector    *security.Detector
	rateLimiter *ratelimit.Limiter
	headers     *security.HeadersMiddleware
	tracer      *trace.Middleware
	logEnricher func(http.Handler) http.Handler

	// insightCache holds encoded insight responses. Any write that could
	// change a metric purges it.
	insightCache *cache.LRUCache[[]byte]
	cacheManager *cache.Manager

	// ready reports whether dependencies are reachable. Nil means always
	// ready.
	ready func(ctx context.Context) error

	shutdownOnce sync.Once
}

// Option configures optional server behavior.
type Option func(*Server)

// WithReadiness sets the dependency probe behind /readyz.
func WithReadiness(probe func(ctx context.Context) error) Option {
	return func(s *Server) {
		s.ready = probe
	}
}

// WithRateLimit overrides the default rate limiter configuration.
func WithRateLimit(cfg ratelimit.Config) Option {
	return func(s *Server) {
		s.rateLimiter.Stop()
		s.rateLimiter = ratelimit.NewLimiter(cfg)
	}
}

// NewServer configures routes and middleware, returning a ready-to-run server.
func NewServer(addr string, insights *services.InsightService, entries *services.EntryService, opts ...Option) *Server {
	mux := http.NewServeMux()

	s := &Server{
		Server: http.Server{
			Addr:              addr,
			Handler:           mux,
			ReadHeaderTimeout: 10 * time.Second,
		},
		insights:     insights,
		entries:      entries,
		detector:     security.NewDetector(),
		rateLimiter:  ratelimit.NewLimiter(ratelimit.DefaultConfig()),
		insightCache: cache.NewLRUCache[[]byte](100, 5*time.Minute),
		cacheManager: cache.NewManager(),
	}

	s.headers = security.NewHeadersMiddleware(security.DefaultHeadersConfig())
	s.tracer = trace.NewMiddleware(s.detector.ExtractClientIP)

	logConfig := applog.DefaultConfig()
	logConfig.Component = applog.ComponentHTTP
	s.logEnricher = applog.Middleware(applog.New(logConfig))

	for _, opt := range opts {
		opt(s)
	}

	s.cacheManager.Register(s.insightCache)
	s.cacheManager.StartCleanup(10 * time.Minute)

	mux.HandleFunc("GET /healthz", handleHealth)
	mux.HandleFunc("GET /readyz", s.handleReady)

	mux.HandleFunc("GET /api/forecast", s.protect(s.handleForecast))
	mux.HandleFunc("GET /api/diversification", s.protect(s.handleDiversification))
	mux.HandleFunc("POST /api/payoff-plan", s.protect(s.handlePayoffPlan))
	mux.HandleFunc("GET /api/subscriptions/value", s.protect(s.handleSubscriptionValue))
	mux.HandleFunc("GET /api/snapshots/latest", s.protect(s.handleLatestSnapshot))

	mux.HandleFunc("POST /api/transactions", s.protect(s.handleCreateTransaction))
	mux.HandleFunc("GET /api/transactions", s.protect(s.handleListTransactions))
	mux.HandleFunc("DELETE /api/transactions/{id}", s.protect(s.handleDeleteTransaction))

	mux.HandleFunc("POST /api/incomes", s.protect(s.handleCreateIncome))
	mux.HandleFunc("GET /api/incomes", s.protect(s.handleListIncomes))
	mux.HandleFunc("DELETE /api/incomes/{id}", s.protect(s.handleDeleteIncome))

	mux.HandleFunc("POST /api/debts", s.protect(s.handleCreateDebt))
	mux.HandleFunc("GET /api/debts", s.protect(s.handleListDebts))
	mux.HandleFunc("DELETE /api/debts/{id}", s.protect(s.handleDeleteDebt))

	mux.HandleFunc("POST /api/subscriptions", s.protect(s.handleCreateSubscription))
	mux.HandleFunc("GET /api/subscriptions", s.protect(s.handleListSubscriptions))
	mux.HandleFunc("DELETE /api/subscriptions/{id}", s.protect(s.handleDeleteSubscription))

	return s
}

// protect wraps a handler with security headers, request tracing, and rate
// limiting for mutating methods.
func (s *Server) protect(next http.HandlerFunc) http.HandlerFunc {
	wrapped := s.headers.Middleware(s.logEnricher(s.tracer.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if s.detector.IsSuspicious(r) {
			slog.WarnContext(r.Context(), "Suspicious request blocked",
				"path", r.URL.Path,
				"client_ip", s.detector.ExtractClientIP(r))
			NewJSONResponse().Error(http.StatusBadRequest, "bad_request", "request rejected").Write(w)
			return
		}

		if r.Method != http.MethodGet {
			clientIP := s.detector.ExtractClientIP(r)
			if !s.rateLimiter.Allow(clientIP) {
				slog.WarnContext(r.Context(), "Rate limit exceeded",
					"client_ip", clientIP,
					"method", r.Method,
					"path", r.URL.Path)
				w.Header().Set("Retry-After", "60")
				NewJSONResponse().Error(http.StatusTooManyRequests, "rate_limited", "too many requests").Write(w)
				return
			}
		}

		next(w, r)
	}))))

	return wrapped.ServeHTTP
}

func handleHealth(w http.ResponseWriter, _ *http.Request) {
	NewJSONResponse().Body(map[string]string{"status": "ok"}).Write(w)
}

func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	if s.ready != nil {
		if err := s.ready(r.Context()); err != nil {
			slog.ErrorContext(r.Context(), "Readiness probe failed", "error", err)
			NewJSONResponse().Error(http.StatusServiceUnavailable, "not_ready", "dependencies unavailable").Write(w)
			return
		}
	}
	NewJSONResponse().Body(map[string]string{"status": "ready"}).Write(w)
}

// Shutdown gracefully shuts down the server and its background routines.
func (s *Server) Shutdown(ctx context.Context) error {
	var shutdownErr error

	s.shutdownOnce.Do(func() {
		s.cacheManager.Stop()
		s.rateLimiter.Stop()
		shutdownErr = s.Server.Shutdown(ctx)
	})

	return shutdownErr
}
