package api

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/askdb/askdb/internal/gateway"
	"github.com/askdb/askdb/internal/telemetry"
)

// Server is the REST API server for the query gateway.
type Server struct {
	gateway    *gateway.Gateway
	logger     *slog.Logger
	sink       telemetry.Sink
	port       int
	authSecret string
	limiter    *rateLimiter
	server     *http.Server
}

// Option configures the API server.
type Option func(*Server)

// WithAuthSecret enables HS256 bearer token authentication.
func WithAuthSecret(secret string) Option {
	return func(s *Server) {
		s.authSecret = secret
	}
}

// WithRateLimit enables per-user request throttling.
func WithRateLimit(requestsPerSecond float64, burst int) Option {
	return func(s *Server) {
		s.limiter = newRateLimiter(requestsPerSecond, burst)
	}
}

// WithTelemetry sets the event sink for request failures.
func WithTelemetry(sink telemetry.Sink) Option {
	return func(s *Server) {
		s.sink = sink
	}
}

// New creates a new API server.
func New(gw *gateway.Gateway, logger *slog.Logger, port int, opts ...Option) *Server {
	s := &Server{
		gateway: gw,
		logger:  logger,
		sink:    telemetry.NopSink{},
		port:    port,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Start starts the HTTP server.
func (s *Server) Start() error {
	s.server = &http.Server{
		Addr:    fmt.Sprintf(":%d", s.port),
		Handler: s.Handler(),
	}

	s.logger.Info("starting gateway server", "port", s.port, "auth_enabled", s.authSecret != "")
	return s.server.ListenAndServe()
}

// Handler builds the full middleware-wrapped route handler.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	s.registerRoutes(mux)

	var handler http.Handler = mux
	if s.limiter != nil {
		handler = s.limiter.middleware(handler)
	}
	handler = s.authMiddleware(handler)
	handler = s.corsMiddleware(handler)
	return requestID(requestLogger(s.logger, handler))
}

// Shutdown gracefully stops the server.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.server != nil {
		return s.server.Shutdown(ctx)
	}
	return nil
}

func (s *Server) registerRoutes(mux *http.ServeMux) {
	mux.HandleFunc("GET /api/health", s.handleHealth)
	mux.HandleFunc("POST /api/db/connect", s.handleConnect)
	mux.HandleFunc("POST /api/db/preview", s.handlePreview)
	mux.HandleFunc("POST /api/db/query", s.handleQuery)
	mux.HandleFunc("POST /api/db/ask", s.handleAsk)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.Write([]byte(`{"status":"ok"}`))
}
