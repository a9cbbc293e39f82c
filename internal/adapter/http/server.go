package http

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/couchcryptid/air-quality-etl/internal/domain"
	"github.com/couchcryptid/air-quality-etl/internal/observability"
	"github.com/couchcryptid/air-quality-etl/internal/pipeline"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// ReadinessChecker reports whether the service is ready to serve traffic.
type ReadinessChecker interface {
	CheckReadiness(ctx context.Context) error
}

// API is the evaluation surface the server exposes. *pipeline.Service
// implements it.
type API interface {
	ReadinessChecker
	Stations(ctx context.Context) ([]string, error)
	Summary(ctx context.Context, q pipeline.Query) (domain.Summary, error)
	MonthlyTrend(ctx context.Context, q pipeline.Query) ([]domain.MonthlyPoint, error)
	Distribution(ctx context.Context, q pipeline.Query) ([]float64, error)
	RunRegression(ctx context.Context, q pipeline.Query, covariates []domain.Covariate) (*domain.RegressionResult, error)
	Dashboard(ctx context.Context, p pipeline.Params) (*pipeline.Report, error)
}

// Server exposes the evaluation API plus health, readiness, and metrics
// endpoints.
type Server struct {
	httpServer *http.Server
	api        API
	metrics    *observability.Metrics
	logger     *slog.Logger
}

// NewServer creates an HTTP server with /api/v1 routes and /healthz, /readyz,
// and /metrics.
func NewServer(addr string, api API, metrics *observability.Metrics, logger *slog.Logger) *Server {
	mux := http.NewServeMux()

	s := &Server{
		httpServer: &http.Server{
			Addr:         addr,
			Handler:      mux,
			ReadTimeout:  10 * time.Second,
			WriteTimeout: 30 * time.Second,
			IdleTimeout:  60 * time.Second,
		},
		api:     api,
		metrics: metrics,
		logger:  logger,
	}

	mux.HandleFunc("GET /healthz", s.handleHealth)
	mux.HandleFunc("GET /readyz", handleReady(api))
	mux.Handle("GET /metrics", promhttp.Handler())

	s.route(mux, "/api/v1/stations", s.handleStations)
	s.route(mux, "/api/v1/summary", s.handleSummary)
	s.route(mux, "/api/v1/trend", s.handleTrend)
	s.route(mux, "/api/v1/distribution", s.handleDistribution)
	s.route(mux, "/api/v1/regression", s.handleRegression)
	s.route(mux, "/api/v1/dashboard", s.handleDashboard)

	return s
}

// Start begins listening. Returns http.ErrServerClosed on graceful shutdown.
func (s *Server) Start() error {
	s.logger.Info("http server starting", "addr", s.httpServer.Addr)
	return s.httpServer.ListenAndServe()
}

// Shutdown gracefully drains connections within the given context deadline.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

// ServeHTTP delegates to the underlying handler, useful for testing.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.httpServer.Handler.ServeHTTP(w, r)
}

// route registers a GET handler and records its latency under path.
func (s *Server) route(mux *http.ServeMux, path string, h http.HandlerFunc) {
	mux.HandleFunc("GET "+path, func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		h(w, r)
		s.metrics.RequestDuration.WithLabelValues(path).Observe(time.Since(start).Seconds())
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "healthy"})
}

func handleReady(checker ReadinessChecker) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()

		if err := checker.CheckReadiness(ctx); err != nil {
			writeJSON(w, http.StatusServiceUnavailable, map[string]string{
				"status": "not ready",
				"error":  err.Error(),
			})
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v) //nolint:errcheck // client may have gone away
}
