package http

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	sharedobs "github.com/couchcryptid/storm-data-shared/observability"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/couchcryptid/precip-contour-service/internal/adapter/gpm"
	"github.com/couchcryptid/precip-contour-service/internal/domain"
	"github.com/couchcryptid/precip-contour-service/internal/observability"
	"github.com/couchcryptid/precip-contour-service/internal/pipeline"
)

// ContourService produces grids and contours for a request.
// It is implemented by *pipeline.Processor.
type ContourService interface {
	Grid(ctx context.Context, req pipeline.Request) (domain.CanonicalGrid, error)
	Contours(ctx context.Context, req pipeline.Request) (domain.ContourSet, error)
	Overlay(ctx context.Context, req pipeline.Request) (domain.CanonicalGrid, []domain.ContourPolygon, error)
	Levels() domain.LevelSet
	CheckReadiness(ctx context.Context) error
}

// GranuleCatalog lists local granules. It is implemented by *gpm.Store.
type GranuleCatalog interface {
	List(ctx context.Context) ([]string, error)
	Catalog(ctx context.Context) ([]gpm.Granule, error)
}

// Options tunes the API handlers.
type Options struct {
	// WriteTimeout must cover the slowest upstream fetch.
	WriteTimeout time.Duration

	// RasterMinValue masks image pixels and binary cells below it.
	RasterMinValue float64

	// CellSize is the heatmap size of one grid cell in pixels.
	CellSize int
}

// Server exposes the precipitation API plus health, readiness, and metrics endpoints.
type Server struct {
	httpServer *http.Server
	contours   ContourService
	granules   GranuleCatalog
	opts       Options
	metrics    *observability.Metrics
	logger     *slog.Logger
}

// NewServer creates an HTTP server with the API, /healthz, /readyz, and /metrics routes.
func NewServer(addr string, contours ContourService, granules GranuleCatalog, opts Options, metrics *observability.Metrics, logger *slog.Logger) *Server {
	if opts.WriteTimeout <= 0 {
		opts.WriteTimeout = 10 * time.Second
	}
	if opts.CellSize <= 0 {
		opts.CellSize = 4
	}

	mux := http.NewServeMux()

	s := &Server{
		httpServer: &http.Server{
			Addr:         addr,
			Handler:      withCORS(withRequestID(mux)),
			ReadTimeout:  10 * time.Second,
			WriteTimeout: opts.WriteTimeout,
			IdleTimeout:  60 * time.Second,
		},
		contours: contours,
		granules: granules,
		opts:     opts,
		metrics:  metrics,
		logger:   logger,
	}

	mux.HandleFunc("GET /healthz", sharedobs.LivenessHandler())
	mux.HandleFunc("GET /readyz", sharedobs.ReadinessHandler(contours))
	mux.Handle("GET /metrics", promhttp.Handler())

	mux.HandleFunc("GET /api/weather/filter_fnl", s.handleModel)
	mux.HandleFunc("GET /api/gpm", s.handleGranule)
	mux.HandleFunc("GET /api/gpm/{$}", s.handleGranule)
	mux.HandleFunc("GET /api/gpm/files", s.handleFiles)
	mux.HandleFunc("GET /api/gpm/catalog", s.handleCatalog)

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
