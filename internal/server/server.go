// Package server exposes a loaded detector model over a read-only HTTP API.
package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"sync/atomic"
	"time"

	"go.opentelemetry.io/otel/trace"
	nooptrace "go.opentelemetry.io/otel/trace/noop"

	"github.com/Sumatoshi-tech/neardup/internal/observability"
	"github.com/Sumatoshi-tech/neardup/pkg/alg/lru"
	"github.com/Sumatoshi-tech/neardup/pkg/detector"
	"github.com/Sumatoshi-tech/neardup/pkg/rank"
	"github.com/Sumatoshi-tech/neardup/pkg/shingle"
	"github.com/Sumatoshi-tech/neardup/pkg/version"
)

// Server timeout defaults.
const (
	defaultReadTimeout  = 10 * time.Second
	defaultWriteTimeout = 30 * time.Second
	defaultIdleTimeout  = 120 * time.Second

	// maxBodyBytes bounds out-of-corpus documents posted to /v1/query.
	maxBodyBytes = 8 << 20
)

// ErrNoModel is reported by readiness and query endpoints before a model is set.
var ErrNoModel = errors.New("server: no model loaded")

// Config holds HTTP server settings.
type Config struct {
	Addr         string
	ReadTimeout  time.Duration
	WriteTimeout time.Duration

	// Threshold is the default similarity threshold for match flags.
	Threshold float64

	// QueryCacheSize bounds the number of cached /v1/query answers for
	// indexed documents. Zero disables the cache.
	QueryCacheSize int
}

// queryKey identifies a cached answer. The model pointer keeps answers from
// a replaced model from being served.
type queryKey struct {
	model       *detector.Model
	id          uint32
	metric      rank.Metric
	threshold   float64
	onlyMatches bool
}

// Server answers similarity queries against the current model. The model may
// be swapped at any time with SetModel.
type Server struct {
	cfg      Config
	model    atomic.Pointer[detector.Model]
	shingler *shingle.Shingler
	logger   *slog.Logger
	tracer   trace.Tracer
	red      *observability.REDMetrics
	metrics  http.Handler
	cache    *lru.Cache[queryKey, QueryResponse]

	httpServer *http.Server
	listener   net.Listener
}

// Option configures a Server.
type Option func(*Server)

// WithLogger sets the logger. The default is slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(s *Server) { s.logger = l }
}

// WithTracer sets the tracer used for server spans.
func WithTracer(t trace.Tracer) Option {
	return func(s *Server) { s.tracer = t }
}

// WithREDMetrics records request rate, errors and duration.
func WithREDMetrics(red *observability.REDMetrics) Option {
	return func(s *Server) { s.red = red }
}

// WithMetricsHandler mounts h at /metrics.
func WithMetricsHandler(h http.Handler) Option {
	return func(s *Server) { s.metrics = h }
}

// WithShingler enables out-of-corpus queries posted to /v1/query. It must
// match the shingler the model was built with.
func WithShingler(sh *shingle.Shingler) Option {
	return func(s *Server) { s.shingler = sh }
}

// New creates a server. It does not listen until Start.
func New(cfg Config, opts ...Option) *Server {
	if cfg.ReadTimeout <= 0 {
		cfg.ReadTimeout = defaultReadTimeout
	}

	if cfg.WriteTimeout <= 0 {
		cfg.WriteTimeout = defaultWriteTimeout
	}

	s := &Server{
		cfg:    cfg,
		logger: slog.Default(),
		tracer: nooptrace.NewTracerProvider().Tracer("neardup/server"),
		cache:  lru.New[queryKey, QueryResponse](cfg.QueryCacheSize),
	}

	for _, opt := range opts {
		opt(s)
	}

	return s
}

// SetModel installs m as the model answering queries.
func (s *Server) SetModel(m *detector.Model) {
	s.model.Store(m)
	s.cache.Purge()
}

// CacheStats reports the query cache counters.
func (s *Server) CacheStats() lru.Stats {
	return s.cache.Stats()
}

// Model returns the current model, or nil.
func (s *Server) Model() *detector.Model {
	return s.model.Load()
}

func (s *Server) ready(context.Context) error {
	if s.model.Load() == nil {
		return ErrNoModel
	}

	return nil
}

// Handler returns the HTTP handler with every route wrapped in tracing and
// RED middleware.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /v1/query", s.handleQuery)
	mux.HandleFunc("POST /v1/query", s.handleQueryText)
	mux.HandleFunc("GET /v1/candidates", s.handleCandidates)
	mux.HandleFunc("GET /v1/pairs", s.handlePairs)
	mux.HandleFunc("GET /v1/stats", s.handleStats)
	mux.Handle("GET /healthz", observability.HealthHandler(version.Version))
	mux.Handle("GET /readyz", observability.ReadyHandler(observability.ReadyCheck{Name: "model", Check: s.ready}))

	if s.metrics != nil {
		mux.Handle("GET /metrics", s.metrics)
	}

	return observability.HTTPMiddleware(s.tracer, s.red, mux)
}

// Start listens on the configured address and serves in the background.
func (s *Server) Start(ctx context.Context) error {
	var lc net.ListenConfig

	listener, err := lc.Listen(ctx, "tcp", s.cfg.Addr)
	if err != nil {
		return fmt.Errorf("listen on %s: %w", s.cfg.Addr, err)
	}

	s.listener = listener
	s.httpServer = &http.Server{
		Handler:      s.Handler(),
		ReadTimeout:  s.cfg.ReadTimeout,
		WriteTimeout: s.cfg.WriteTimeout,
		IdleTimeout:  defaultIdleTimeout,
		BaseContext:  func(net.Listener) context.Context { return context.WithoutCancel(ctx) },
	}

	go func() {
		serveErr := s.httpServer.Serve(listener)
		if serveErr != nil && !errors.Is(serveErr, http.ErrServerClosed) {
			s.logger.Warn("query server stopped", "error", serveErr)
		}
	}()

	s.logger.InfoContext(ctx, "query server listening", "addr", s.Addr())

	return nil
}

// Addr returns the address the server is listening on.
func (s *Server) Addr() string {
	if s.listener == nil {
		return s.cfg.Addr
	}

	return s.listener.Addr().String()
}

// Shutdown gracefully stops the server.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.httpServer == nil {
		return nil
	}

	if err := s.httpServer.Shutdown(ctx); err != nil {
		return fmt.Errorf("shutdown query server: %w", err)
	}

	return nil
}

// Run starts the server and blocks until ctx is done, then shuts down within
// the write timeout.
func (s *Server) Run(ctx context.Context) error {
	if err := s.Start(ctx); err != nil {
		return err
	}

	<-ctx.Done()

	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.cfg.WriteTimeout)
	defer cancel()

	return s.Shutdown(shutdownCtx)
}
