// Package noaa fetches GFS precipitation-rate analyses from the NOMADS
// grib filter.
package noaa

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/google/uuid"

	"github.com/couchcryptid/precip-contour-service/internal/domain"
	"github.com/couchcryptid/precip-contour-service/internal/observability"
)

// DefaultBaseURL is the 0.25 degree hourly GFS grib filter.
const DefaultBaseURL = "https://nomads.ncep.noaa.gov/cgi-bin/filter_gfs_0p25_1hr.pl"

// GribDecoder turns a downloaded GRIB2 file into a raw grid.
type GribDecoder interface {
	Decode(ctx context.Context, path string) (domain.RawGrid, error)
}

// Client downloads a subregion of a GFS run and decodes it.
type Client struct {
	httpClient *http.Client
	baseURL    string
	tempDir    string
	decoder    GribDecoder
	metrics    *observability.Metrics
	logger     *slog.Logger
}

// NewClient creates a NOMADS client. Downloads are staged under tempDir.
func NewClient(baseURL string, timeout time.Duration, tempDir string, decoder GribDecoder, metrics *observability.Metrics, logger *slog.Logger) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	return &Client{
		httpClient: &http.Client{
			Timeout: timeout,
		},
		baseURL: baseURL,
		tempDir: tempDir,
		decoder: decoder,
		metrics: metrics,
		logger:  logger,
	}
}

// Fetch downloads the PRATE field of run cropped to bounds and returns it in
// mm/hr. The staged GRIB2 file is removed before Fetch returns.
func (c *Client) Fetch(ctx context.Context, run domain.ModelRun, bounds domain.GeoBounds) (domain.RawGrid, error) {
	if err := run.Validate(); err != nil {
		return domain.RawGrid{}, err
	}
	if err := bounds.Validate(); err != nil {
		return domain.RawGrid{}, err
	}

	start := time.Now()
	grid, err := c.fetch(ctx, run, bounds)
	c.metrics.UpstreamDuration.Observe(time.Since(start).Seconds())
	if err != nil {
		c.metrics.UpstreamRequests.WithLabelValues("error").Inc()
		return domain.RawGrid{}, err
	}
	c.metrics.UpstreamRequests.WithLabelValues("success").Inc()
	return grid, nil
}

func (c *Client) fetch(ctx context.Context, run domain.ModelRun, bounds domain.GeoBounds) (domain.RawGrid, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.requestURL(run, bounds), nil)
	if err != nil {
		return domain.RawGrid{}, fmt.Errorf("create request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return domain.RawGrid{}, &domain.UpstreamFetchError{Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return domain.RawGrid{}, &domain.UpstreamFetchError{
			StatusCode: resp.StatusCode,
			Err:        fmt.Errorf("nomads: %s", body),
		}
	}

	path, err := c.stage(run, resp.Body)
	if err != nil {
		return domain.RawGrid{}, err
	}
	defer func() {
		if rerr := os.Remove(path); rerr != nil && !errors.Is(rerr, os.ErrNotExist) {
			c.logger.Warn("remove staged grib", "path", path, "error", rerr)
		}
	}()

	grid, err := c.decoder.Decode(ctx, path)
	if err != nil {
		return domain.RawGrid{}, fmt.Errorf("decode run %s %s: %w", run.Date, run.Hour, err)
	}
	wrapLongitudes(grid.Lons, bounds)

	c.logger.Debug("fetched gfs run", "date", run.Date, "hour", run.Hour, "shape", grid.Shape)
	return grid, nil
}

func (c *Client) requestURL(run domain.ModelRun, b domain.GeoBounds) string {
	params := url.Values{
		"dir":       {fmt.Sprintf("/gfs.%s/%s/atmos", run.Date, run.Hour)},
		"file":      {fmt.Sprintf("gfs.t%sz.pgrb2.0p25.anl", run.Hour)},
		"var_PRATE": {"on"},
		"subregion": {""},
		"toplat":    {formatCoord(b.Top)},
		"leftlon":   {formatCoord(b.Left)},
		"rightlon":  {formatCoord(b.Right)},
		"bottomlat": {formatCoord(b.Bottom)},
	}
	return c.baseURL + "?" + params.Encode()
}

// stage copies body into a uniquely named file under the temp directory.
func (c *Client) stage(run domain.ModelRun, body io.Reader) (string, error) {
	if err := os.MkdirAll(c.tempDir, 0o750); err != nil {
		return "", fmt.Errorf("create temp dir: %w", err)
	}
	name := fmt.Sprintf("gfs_%s_%s_%s.grib2", run.Date, run.Hour, uuid.NewString())
	path := filepath.Join(c.tempDir, name)
	f, err := os.OpenFile(path, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o600)
	if err != nil {
		return "", fmt.Errorf("create %s: %w", name, err)
	}
	if _, err := io.Copy(f, body); err != nil {
		_ = f.Close()
		_ = os.Remove(path)
		return "", &domain.UpstreamFetchError{StatusCode: http.StatusOK, Err: fmt.Errorf("read body: %w", err)}
	}
	if err := f.Close(); err != nil {
		_ = os.Remove(path)
		return "", fmt.Errorf("close %s: %w", name, err)
	}
	return path, nil
}

func formatCoord(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

// wrapLongitudes maps the 0..360 longitudes GFS returns onto -180..180 in
// place. Windows crossing the antimeridian stay in 0..360 so the axis is
// contiguous across 180.
func wrapLongitudes(lons []float64, bounds domain.GeoBounds) {
	if bounds.CrossesAntimeridian() {
		for i, x := range lons {
			if x < 0 {
				lons[i] = x + 360
			}
		}
		return
	}
	for i, x := range lons {
		if x > 180 {
			lons[i] = x - 360
		}
	}
}
