// Command precipctl vectorizes a local precipitation grid file without the
// HTTP service, writing GeoJSON or an ESRI shapefile.
//
// Usage:
//
//	go run ./cmd/precipctl -file app/data/3B-HHR...nc4 \
//	  [-top 50 -bottom 25 -left -125 -right -67] \
//	  [-levels 0.1,0.5,5,10,20] [-sigma 1] [-closed-edges] \
//	  -format geojson|shp -out contours.geojson
//
// Without bounds the whole grid is used. "-out -" writes GeoJSON to stdout.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	sharedobs "github.com/couchcryptid/storm-data-shared/observability"

	"github.com/couchcryptid/precip-contour-service/internal/adapter/gpm"
	"github.com/couchcryptid/precip-contour-service/internal/adapter/ncgrid"
	"github.com/couchcryptid/precip-contour-service/internal/adapter/shapefile"
	"github.com/couchcryptid/precip-contour-service/internal/adapter/vector"
	"github.com/couchcryptid/precip-contour-service/internal/config"
	"github.com/couchcryptid/precip-contour-service/internal/domain"
	"github.com/couchcryptid/precip-contour-service/internal/observability"
	"github.com/couchcryptid/precip-contour-service/internal/pipeline"
)

func main() {
	if err := run(); err != nil {
		slog.Error("precipctl failed", "error", err)
		os.Exit(1)
	}
}

func run() error {
	file := flag.String("file", "", "grid file (.HDF5, .nc, .nc4)")
	top := flag.Float64("top", 90, "northern edge in degrees")
	bottom := flag.Float64("bottom", -90, "southern edge in degrees")
	left := flag.Float64("left", -180, "western edge in degrees")
	right := flag.Float64("right", 360, "eastern edge in degrees")
	levelsFlag := flag.String("levels", "", "comma-separated contour levels in mm/hr")
	sigmaFlag := flag.String("sigma", "", "Gaussian sigma in grid cells")
	closedEdges := flag.Bool("closed-edges", false, "close rings along the grid border")
	format := flag.String("format", "geojson", "output format: geojson or shp")
	out := flag.String("out", "", "output path, or - for stdout (geojson only)")
	logLevel := flag.String("log-level", "warn", "log level")
	flag.Parse()

	if *file == "" || *out == "" {
		flag.Usage()
		return errors.New("missing required flags: -file, -out")
	}
	if *format != "geojson" && *format != "shp" {
		return fmt.Errorf("%w: unknown format %q", domain.ErrConfiguration, *format)
	}

	logger := sharedobs.NewLogger(*logLevel, "text")

	settings := pipeline.Settings{Levels: domain.DefaultLevelSet(), Sigma: domain.DefaultSigma, ClosedEdges: *closedEdges}
	if *levelsFlag != "" {
		levels, err := domain.ParseLevelSet(*levelsFlag)
		if err != nil {
			return err
		}
		settings.Levels = levels
	}
	if *sigmaFlag != "" {
		sigma, err := config.ParseSigma(*sigmaFlag)
		if err != nil {
			return err
		}
		settings.Sigma = sigma
	}

	store := gpm.NewStore(filepath.Dir(*file), ncgrid.Reader{Candidates: gpm.DefaultCandidates}, logger)
	p := pipeline.New(nil, store, nil, settings, logger, observability.NewMetrics())

	set, err := p.Contours(context.Background(), pipeline.Request{
		Source:   domain.SourceGPM,
		Filename: filepath.Base(*file),
		Bounds:   domain.GeoBounds{Top: *top, Bottom: *bottom, Left: *left, Right: *right},
	})
	if err != nil {
		return err
	}

	switch *format {
	case "shp":
		err = shapefile.Write(*out, set.Polygons)
	default:
		err = writeGeoJSON(*out, set.Polygons)
	}
	if err != nil {
		return err
	}
	logger.Info("contours written", "file", set.ID, "label", set.Label, "polygons", len(set.Polygons), "out", *out)
	return nil
}

func writeGeoJSON(path string, polygons []domain.ContourPolygon) error {
	data, err := vector.Marshal(polygons)
	if err != nil {
		return err
	}
	data = append(data, '\n')
	if path == "-" {
		_, err = os.Stdout.Write(data)
		return err
	}
	return os.WriteFile(path, data, 0o644)
}
