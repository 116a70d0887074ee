package api

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/cywf/tle-fetcher/internal/auth"
	"github.com/cywf/tle-fetcher/internal/health"
	"github.com/cywf/tle-fetcher/internal/httputil"
	"github.com/cywf/tle-fetcher/internal/metrics"
	"github.com/cywf/tle-fetcher/internal/propagation"
	"github.com/cywf/tle-fetcher/internal/tle"
)

// Config holds server knobs beyond the listen address.
type Config struct {
	TrustProxy bool // honor X-Forwarded-For/X-Real-IP for client IP logging
}

// Server holds the HTTP server and its dependencies.
type Server struct {
	httpServer *http.Server
	store      *tle.Store
	pool       *propagation.WorkerPool
	logger     *slog.Logger
	cfg        Config
}

// NewServer creates a configured HTTP server.
func NewServer(addr string, logger *slog.Logger, authCfg auth.Config, cfg Config, store *tle.Store, pool *propagation.WorkerPool) *Server {
	s := &Server{
		store:  store,
		pool:   pool,
		logger: logger,
		cfg:    cfg,
	}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /healthz", health.Healthz)
	mux.HandleFunc("GET /readyz", health.Readyz(store))
	mux.Handle("GET /metrics", metrics.Handler())
	mux.HandleFunc("POST /api/v1/passes", s.handlePasses)
	mux.HandleFunc("GET /api/v1/positions", s.handlePositions)
	mux.HandleFunc("GET /api/v1/propagate/{noradID}", s.handlePropagate)
	mux.HandleFunc("GET /api/v1/tle/metadata", s.handleMetadata)

	// Probes, metrics, and the read-only catalog surfaces stay public; only
	// the prediction endpoints require a token.
	authCfg.PublicPaths = []string{"/healthz", "/readyz", "/metrics", "/api/v1/tle/metadata"}
	authCfg.PublicPrefixes = []string{"/api/v1/propagate/"}

	// Middleware chain: metrics -> logging -> auth -> mux.
	var handler http.Handler = mux
	handler = auth.Middleware(authCfg)(handler)
	handler = s.loggingMiddleware(handler)
	handler = metrics.Middleware(handler)

	s.httpServer = &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadTimeout:       10 * time.Second,
		ReadHeaderTimeout: 5 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       120 * time.Second,
	}
	return s
}

// HTTPServer returns the underlying *http.Server for external control (e.g. shutdown).
func (s *Server) HTTPServer() *http.Server {
	return s.httpServer
}

// ListenAndServe starts the HTTP server.
func (s *Server) ListenAndServe() error {
	return s.httpServer.ListenAndServe()
}

// probePath returns true for health/readiness probe paths that should not log at INFO.
func probePath(path string) bool {
	return path == "/healthz" || path == "/readyz"
}

type statusRecorder struct {
	http.ResponseWriter
	statusCode int
}

func (sr *statusRecorder) WriteHeader(code int) {
	sr.statusCode = code
	sr.ResponseWriter.WriteHeader(code)
}

func (s *Server) loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		sr := &statusRecorder{ResponseWriter: w, statusCode: http.StatusOK}
		requestID := uuid.NewString()
		w.Header().Set("X-Request-ID", requestID)

		next.ServeHTTP(sr, r)

		duration := time.Since(start)
		level := slog.LevelInfo
		if probePath(r.URL.Path) {
			level = slog.LevelDebug
		}

		s.logger.Log(r.Context(), level, "request",
			"component", "api",
			"request_id", requestID,
			"method", r.Method,
			"path", r.URL.Path,
			"status", sr.statusCode,
			"duration_ms", duration.Milliseconds(),
			"remote_ip", httputil.ClientIP(r, s.cfg.TrustProxy),
		)
	})
}
