package http

import (
	"context"
	"net"
	"net/http"
	"sync"
	"time"

	"subtrack/internal/core"
	"subtrack/internal/log"
	"subtrack/internal/middleware/ratelimit"
	"subtrack/internal/middleware/security"
	"subtrack/internal/middleware/trace"
	"subtrack/internal/services"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

// maxBodyBytes caps JSON request bodies.
const maxBodyBytes = 1 << 20

// SubscriptionService is the use-case layer the handlers drive.
type SubscriptionService interface {
	List(ctx context.Context) ([]core.Subscription, error)
	Get(ctx context.Context, id string) (core.Subscription, error)
	Create(ctx context.Context, in services.SubscriptionInput) (core.Subscription, error)
	Update(ctx context.Context, id string, in services.SubscriptionInput) (core.Subscription, error)
	Delete(ctx context.Context, id string) error
}

// Pinger reports whether the backing store is reachable.
type Pinger interface {
	Ping(ctx context.Context) error
}

type Server struct {
	http.Server
	svc          SubscriptionService
	pinger       Pinger
	exchangeRate float64

	logger     *log.Logger
	structured *log.StructuredLogger
	tracer     *trace.Middleware
	limiter    *ratelimit.Limiter
	startedAt  time.Time

	shutdownOnce sync.Once
}

// Option customizes a Server.
type Option func(*Server)

// WithWriteRateLimit caps POST, PUT and DELETE requests per client IP per
// minute. Zero or less leaves writes unlimited.
func WithWriteRateLimit(perMinute int) Option {
	return func(s *Server) {
		if perMinute <= 0 {
			return
		}
		cfg := ratelimit.DefaultConfig()
		cfg.RequestsPerMinute = perMinute
		s.limiter = ratelimit.NewLimiter(cfg)
	}
}

// NewServer configures routes and middleware, returning a ready-to-run http.Server.
func NewServer(addr string, svc SubscriptionService, pinger Pinger, exchangeRate float64, logger *log.Logger, opts ...Option) *Server {
	if logger == nil {
		logger = log.New(log.DefaultConfig())
	}
	logger = logger.WithComponent(log.ComponentHTTP)

	s := &Server{
		svc:          svc,
		pinger:       pinger,
		exchangeRate: exchangeRate,
		logger:       logger,
		structured:   log.NewStructuredLogger(logger),
		tracer:       trace.NewMiddleware(logger.Logger, func(r *http.Request) string { return r.RemoteAddr }),
		startedAt:    time.Now(),
	}
	for _, opt := range opts {
		opt(s)
	}

	r := chi.NewRouter()
	r.Use(rememberConnAddr)
	r.Use(middleware.RealIP)
	r.Use(s.tracer.Middleware)
	r.Use(middleware.Recoverer)
	r.Use(log.Middleware(logger))
	r.Use(log.RequestIDMiddleware(trace.RequestIDFromRequest))
	r.Use(security.NewHeadersMiddleware(security.DefaultHeadersConfig()).Middleware)
	r.Use(security.MaxBodyMiddleware(maxBodyBytes))

	r.Get("/healthz", s.handleHealth)
	r.Get("/readyz", s.handleReady)

	r.Route("/api/subscriptions", func(r chi.Router) {
		r.Get("/", s.handleList)
		r.Get("/monthly-total", s.handleMonthlyTotal)
		r.Get("/{id}", s.handleGet)

		writes := r.With(s.writeLimit())
		writes.Post("/", s.handleCreate)
		writes.Put("/{id}", s.handleUpdate)
		writes.Delete("/{id}", s.handleDelete)
	})

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		writeError(w, http.StatusNotFound, "route not found")
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
	})

	s.Server = http.Server{
		Addr:              addr,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}
	return s
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	var shutdownErr error

	s.shutdownOnce.Do(func() {
		m := s.tracer.GetMetrics()
		s.logger.Info("HTTP server shutting down",
			"total_requests", m.TotalRequests,
			"client_errors", m.ClientErrors,
			"server_errors", m.ServerErrors,
			"uptime", time.Since(s.startedAt).Round(time.Second).String())

		if s.limiter != nil {
			s.logger.Info("Write rate limiter stopped",
				"rejected", s.limiter.Hits(),
				"active_clients", s.limiter.ActiveClients())
			s.limiter.Stop()
		}

		shutdownErr = s.Server.Shutdown(ctx)
	})

	return shutdownErr
}

// writeLimit returns the rate limiting middleware for mutating routes, or a
// pass-through when no limit is configured. Clients are keyed by the host of
// the TCP peer: forwarding headers are client controlled.
func (s *Server) writeLimit() func(http.Handler) http.Handler {
	if s.limiter == nil {
		return func(next http.Handler) http.Handler { return next }
	}
	return s.limiter.Middleware(connHost)
}

type connAddrKey struct{}

// rememberConnAddr records RemoteAddr before RealIP rewrites it.
func rememberConnAddr(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := context.WithValue(r.Context(), connAddrKey{}, r.RemoteAddr)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// connHost is the peer host without its port.
func connHost(r *http.Request) string {
	addr, ok := r.Context().Value(connAddrKey{}).(string)
	if !ok {
		addr = r.RemoteAddr
	}
	if host, _, err := net.SplitHostPort(addr); err == nil {
		return host
	}
	return addr
}
