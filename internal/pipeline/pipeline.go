package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/couchcryptid/precip-contour-service/internal/domain"
	"github.com/couchcryptid/precip-contour-service/internal/observability"
)

// ModelSource fetches a model run cropped to bounds.
type ModelSource interface {
	Fetch(ctx context.Context, run domain.ModelRun, bounds domain.GeoBounds) (domain.RawGrid, error)
}

// GranuleSource loads a local granule cropped to bounds.
type GranuleSource interface {
	Load(ctx context.Context, filename string, bounds domain.GeoBounds) (domain.RawGrid, domain.WindowAttempt, error)
	CheckReadiness(ctx context.Context) error
}

// Publisher sends a finished contour set downstream.
type Publisher interface {
	Publish(ctx context.Context, set domain.ContourSet) error
}

// Settings are the contouring defaults shared by every request.
type Settings struct {
	Levels      domain.LevelSet
	Sigma       float64
	ClosedEdges bool
}

// Request selects one grid. Run is used for SourceGFS and Filename for
// SourceGPM. A nil Sigma uses Settings.Sigma.
type Request struct {
	Source   domain.Source
	Run      domain.ModelRun
	Filename string
	Bounds   domain.GeoBounds
	Sigma    *float64
}

// ID identifies the requested grid.
func (r Request) ID() string {
	if r.Source == domain.SourceGFS {
		return r.Run.ID()
	}
	return r.Filename
}

// Label is the display label for the requested grid.
func (r Request) Label() string {
	if r.Source == domain.SourceGFS {
		return r.Run.Label()
	}
	return domain.ParseGranuleLabel(r.Filename)
}

// Processor loads, normalizes and vectorizes grids. It holds no per-request
// state and is safe for concurrent use.
type Processor struct {
	models    ModelSource
	granules  GranuleSource
	publisher Publisher
	settings  Settings
	logger    *slog.Logger
	metrics   *observability.Metrics
}

// New creates a Processor. Pass a nil publisher to disable publishing.
func New(models ModelSource, granules GranuleSource, publisher Publisher, settings Settings, logger *slog.Logger, metrics *observability.Metrics) *Processor {
	return &Processor{
		models:    models,
		granules:  granules,
		publisher: publisher,
		settings:  settings,
		logger:    logger,
		metrics:   metrics,
	}
}

// CheckReadiness reports whether the granule directory can be read.
func (p *Processor) CheckReadiness(ctx context.Context) error {
	return p.granules.CheckReadiness(ctx)
}

// Grid returns the canonical grid for req.
func (p *Processor) Grid(ctx context.Context, req Request) (domain.CanonicalGrid, error) {
	start := time.Now()
	defer func() {
		p.metrics.ProcessingDuration.WithLabelValues(string(req.Source)).Observe(time.Since(start).Seconds())
	}()
	return p.grid(ctx, req)
}

// Contours vectorizes the grid for req. When publishing is enabled the
// result is also published; publish failures are logged and counted but do
// not fail the call.
func (p *Processor) Contours(ctx context.Context, req Request) (domain.ContourSet, error) {
	start := time.Now()
	defer func() {
		p.metrics.ProcessingDuration.WithLabelValues(string(req.Source)).Observe(time.Since(start).Seconds())
	}()

	grid, err := p.grid(ctx, req)
	if err != nil {
		return domain.ContourSet{}, err
	}
	polygons, err := p.vectorize(grid, req.Sigma)
	if err != nil {
		return domain.ContourSet{}, err
	}

	set := domain.NewContourSet(req.Source, req.ID(), req.Label(), polygons)
	p.publish(ctx, set)
	return set, nil
}

// Overlay returns the canonical grid together with its contours, for
// rendering outlines on top of a heatmap. Nothing is published.
func (p *Processor) Overlay(ctx context.Context, req Request) (domain.CanonicalGrid, []domain.ContourPolygon, error) {
	start := time.Now()
	defer func() {
		p.metrics.ProcessingDuration.WithLabelValues(string(req.Source)).Observe(time.Since(start).Seconds())
	}()

	grid, err := p.grid(ctx, req)
	if err != nil {
		return domain.CanonicalGrid{}, nil, err
	}
	polygons, err := p.vectorize(grid, req.Sigma)
	if err != nil {
		return domain.CanonicalGrid{}, nil, err
	}
	return grid, polygons, nil
}

// Levels returns the configured level set.
func (p *Processor) Levels() domain.LevelSet {
	return p.settings.Levels
}

func (p *Processor) grid(ctx context.Context, req Request) (domain.CanonicalGrid, error) {
	raw, err := p.load(ctx, req)
	if err != nil {
		return domain.CanonicalGrid{}, err
	}

	grid, norm, err := domain.Normalize(raw)
	p.metrics.ShapeOutcomes.WithLabelValues(norm.Shape.String()).Inc()
	if err != nil {
		return domain.CanonicalGrid{}, fmt.Errorf("normalize %s %s: %w", req.Source, req.ID(), err)
	}
	if norm.ZeroedValues > 0 || norm.Reordered {
		p.logger.Debug("grid normalized",
			"source", req.Source,
			"id", req.ID(),
			"shape", norm.Shape.String(),
			"zeroed", norm.ZeroedValues,
			"reordered", norm.Reordered,
		)
	}
	return grid, nil
}

func (p *Processor) load(ctx context.Context, req Request) (domain.RawGrid, error) {
	switch req.Source {
	case domain.SourceGFS:
		return p.models.Fetch(ctx, req.Run, req.Bounds)
	case domain.SourceGPM:
		raw, attempt, err := p.granules.Load(ctx, req.Filename, req.Bounds)
		if err != nil {
			return domain.RawGrid{}, err
		}
		if attempt == domain.WindowSwapped {
			p.metrics.WindowFallbacks.Inc()
		}
		return raw, nil
	default:
		return domain.RawGrid{}, fmt.Errorf("%w: unknown source %q", domain.ErrConfiguration, req.Source)
	}
}

func (p *Processor) vectorize(grid domain.CanonicalGrid, sigma *float64) ([]domain.ContourPolygon, error) {
	v := domain.Vectorizer{Sigma: p.settings.Sigma, ClosedEdges: p.settings.ClosedEdges}
	if sigma != nil {
		v.Sigma = *sigma
	}
	polygons, err := v.Vectorize(grid, p.settings.Levels)
	if err != nil {
		return nil, err
	}
	p.metrics.PolygonsEmitted.Observe(float64(len(polygons)))
	return polygons, nil
}

func (p *Processor) publish(ctx context.Context, set domain.ContourSet) {
	if p.publisher == nil {
		return
	}
	if err := p.publisher.Publish(ctx, set); err != nil {
		p.metrics.PublishErrors.Inc()
		if !errors.Is(err, context.Canceled) {
			p.logger.Error("publish contours failed", "source", set.Source, "id", set.ID, "error", err)
		}
		return
	}
	p.metrics.ContoursPublished.Inc()
}
