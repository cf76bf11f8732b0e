package http

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"

	sharedobs "github.com/couchcryptid/storm-data-shared/observability"

	"github.com/couchcryptid/precip-contour-service/internal/adapter/rawframe"
	"github.com/couchcryptid/precip-contour-service/internal/adapter/render"
	"github.com/couchcryptid/precip-contour-service/internal/adapter/vector"
	"github.com/couchcryptid/precip-contour-service/internal/config"
	"github.com/couchcryptid/precip-contour-service/internal/domain"
	"github.com/couchcryptid/precip-contour-service/internal/pipeline"
)

// Output modes.
const (
	modeVector = "vector"
	modeImage  = "image"
	modeBinary = "binary"
)

const (
	contentGeoJSON = "application/geo+json"
	contentPNG     = "image/png"
	contentBinary  = "application/octet-stream"
)

// handleModel serves GFS runs:
// /api/weather/filter_fnl?date=YYYYMMDD&hour=HH&toplat&bottomlat&leftlon&rightlon&mode=image|binary|vector
func (s *Server) handleModel(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	mode := valueOr(q, "mode", modeImage)
	req := pipeline.Request{
		Source: domain.SourceGFS,
		Run:    domain.ModelRun{Date: q.Get("date"), Hour: valueOr(q, "hour", "00")},
	}
	s.serve(w, r, req, mode, false)
}

// handleGranule serves local granules:
// /api/gpm/?filename&toplat&bottomlat&leftlon&rightlon&draw=vector|plot|binary
// Plot mode outlines the contours on the heatmap.
func (s *Server) handleGranule(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	draw := valueOr(q, "draw", modeVector)
	mode, overlay := draw, false
	if draw == "plot" {
		mode, overlay = modeImage, true
	}
	req := pipeline.Request{Source: domain.SourceGPM, Filename: q.Get("filename")}
	s.serve(w, r, req, mode, overlay)
}

func (s *Server) handleFiles(w http.ResponseWriter, r *http.Request) {
	names, err := s.granules.List(r.Context())
	if err != nil {
		s.fail(w, r, domain.SourceGPM, "files", err)
		return
	}
	sharedobs.WriteJSON(w, http.StatusOK, names)
}

func (s *Server) handleCatalog(w http.ResponseWriter, r *http.Request) {
	granules, err := s.granules.Catalog(r.Context())
	if err != nil {
		s.fail(w, r, domain.SourceGPM, "catalog", err)
		return
	}
	sharedobs.WriteJSON(w, http.StatusOK, granules)
}

func (s *Server) serve(w http.ResponseWriter, r *http.Request, req pipeline.Request, mode string, overlay bool) {
	q := r.URL.Query()

	switch mode {
	case modeVector, modeImage, modeBinary:
	default:
		s.fail(w, r, req.Source, "invalid", fmt.Errorf("%w: unknown mode %q", domain.ErrConfiguration, mode))
		return
	}

	var err error
	if req.Bounds, err = parseBounds(q); err != nil {
		s.fail(w, r, req.Source, mode, err)
		return
	}
	if v := q.Get("sigma"); v != "" {
		sigma, err := config.ParseSigma(v)
		if err != nil {
			s.fail(w, r, req.Source, mode, err)
			return
		}
		req.Sigma = &sigma
	}

	var body []byte
	var contentType string
	switch mode {
	case modeVector:
		body, err = s.vectorBody(r.Context(), req)
		contentType = contentGeoJSON
	case modeImage:
		body, err = s.imageBody(r.Context(), req, overlay)
		contentType = contentPNG
	case modeBinary:
		body, err = s.binaryBody(r.Context(), req)
		contentType = contentBinary
	}
	if err != nil {
		s.fail(w, r, req.Source, mode, err)
		return
	}

	s.metrics.Requests.WithLabelValues(string(req.Source), mode, "success").Inc()
	w.Header().Set("Content-Type", contentType)
	w.Header().Set("X-Grid-Label", req.Label())
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(body); err != nil {
		s.logger.Warn("write response failed", "request_id", requestID(r.Context()), "error", err)
	}
}

func (s *Server) vectorBody(ctx context.Context, req pipeline.Request) ([]byte, error) {
	set, err := s.contours.Contours(ctx, req)
	if err != nil {
		return nil, err
	}
	return vector.Marshal(set.Polygons)
}

func (s *Server) imageBody(ctx context.Context, req pipeline.Request, overlay bool) ([]byte, error) {
	var (
		grid     domain.CanonicalGrid
		polygons []domain.ContourPolygon
		err      error
	)
	if overlay {
		grid, polygons, err = s.contours.Overlay(ctx, req)
	} else {
		grid, err = s.contours.Grid(ctx, req)
	}
	if err != nil {
		return nil, err
	}

	img, err := render.Render(grid, render.Options{
		Bounds:   req.Bounds,
		MinValue: s.opts.RasterMinValue,
		Levels:   s.contours.Levels(),
		CellSize: s.opts.CellSize,
		Contours: polygons,
	})
	if err != nil {
		return nil, err
	}
	var buf bytes.Buffer
	if err := render.EncodePNG(&buf, img); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func (s *Server) binaryBody(ctx context.Context, req pipeline.Request) ([]byte, error) {
	grid, err := s.contours.Grid(ctx, req)
	if err != nil {
		return nil, err
	}
	return rawframe.Marshal(rawframe.FromGrid(grid, s.opts.RasterMinValue))
}

// fail logs err once with the request context and writes a JSON error.
func (s *Server) fail(w http.ResponseWriter, r *http.Request, source domain.Source, mode string, err error) {
	status := statusFor(err)
	s.metrics.Requests.WithLabelValues(string(source), mode, "error").Inc()

	attrs := []any{
		"request_id", requestID(r.Context()),
		"source", source,
		"mode", mode,
		"status", status,
		"error", err,
	}
	if status >= http.StatusInternalServerError {
		s.logger.Error("request failed", attrs...)
	} else {
		s.logger.Warn("request rejected", attrs...)
	}
	sharedobs.WriteJSON(w, status, map[string]string{"error": err.Error()})
}

// statusFor maps the error taxonomy onto HTTP status codes. Shape
// mismatches, missing variables and anything unclassified are 500s.
func statusFor(err error) int {
	var upstreamErr *domain.UpstreamFetchError
	switch {
	case errors.Is(err, domain.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, domain.ErrConfiguration):
		return http.StatusBadRequest
	case errors.Is(err, domain.ErrEmptySelection):
		return http.StatusUnprocessableEntity
	case errors.As(err, &upstreamErr):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

func parseBounds(q url.Values) (domain.GeoBounds, error) {
	var b domain.GeoBounds
	fields := []struct {
		name string
		dst  *float64
	}{
		{"toplat", &b.Top},
		{"bottomlat", &b.Bottom},
		{"leftlon", &b.Left},
		{"rightlon", &b.Right},
	}
	for _, f := range fields {
		raw := q.Get(f.name)
		if raw == "" {
			return domain.GeoBounds{}, fmt.Errorf("%w: %s is required", domain.ErrConfiguration, f.name)
		}
		v, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			return domain.GeoBounds{}, fmt.Errorf("%w: %s %q is not a number", domain.ErrConfiguration, f.name, raw)
		}
		*f.dst = v
	}
	return b, b.Validate()
}

func valueOr(q url.Values, key, fallback string) string {
	if v := q.Get(key); v != "" {
		return v
	}
	return fallback
}
