// Package shapefile exports contour polygons as an ESRI shapefile.
package shapefile

import (
	"fmt"
	"os"
	"strings"

	"github.com/jonas-p/go-shp"
	"github.com/paulmach/orb"

	"github.com/couchcryptid/precip-contour-service/internal/adapter/vector"
	"github.com/couchcryptid/precip-contour-service/internal/domain"
)

// Attribute columns, in DBF order.
const (
	FieldLevel = iota
	FieldArea
)

var fields = []shp.Field{
	shp.FloatField("LEVEL", 12, 4),
	shp.FloatField("AREA_KM2", 18, 2),
}

// Write creates path (.shp plus its .shx and .dbf siblings) holding one
// POLYGON record per contour, with the level and area as attributes.
// Rings are written clockwise as the format expects for outer rings.
func Write(path string, polygons []domain.ContourPolygon) error {
	if !strings.HasSuffix(strings.ToLower(path), ".shp") {
		return fmt.Errorf("%w: shapefile path %q must end in .shp", domain.ErrConfiguration, path)
	}
	w, err := shp.Create(path, shp.POLYGON)
	if err != nil {
		return fmt.Errorf("create shapefile: %w", err)
	}
	err = writeRecords(w, polygons)
	w.Close()
	if err != nil {
		return err
	}

	// go-shp v0.1.1 names the attribute table "<base>dbf"; readers expect "<base>.dbf".
	base := path[:len(path)-len(".shp")]
	if err := os.Rename(base+"dbf", base+".dbf"); err != nil {
		return fmt.Errorf("rename attribute table: %w", err)
	}
	return nil
}

func writeRecords(w *shp.Writer, polygons []domain.ContourPolygon) error {
	if err := w.SetFields(fields); err != nil {
		return fmt.Errorf("set fields: %w", err)
	}
	for _, p := range polygons {
		poly := shp.Polygon(*shp.NewPolyLine([][]shp.Point{clockwise(p.Ring)}))
		row := int(w.Write(&poly))
		if err := w.WriteAttribute(row, FieldLevel, p.Level); err != nil {
			return fmt.Errorf("write level for record %d: %w", row, err)
		}
		if err := w.WriteAttribute(row, FieldArea, vector.RingAreaKm2(p.Ring)); err != nil {
			return fmt.Errorf("write area for record %d: %w", row, err)
		}
	}
	return nil
}

// clockwise converts a lon/lat ring to shapefile points, reversing it when
// the planar signed area is positive (counter-clockwise).
func clockwise(ring orb.Ring) []shp.Point {
	pts := make([]shp.Point, len(ring))
	for i, p := range ring {
		pts[i] = shp.Point{X: p[0], Y: p[1]}
	}
	if signedArea(pts) > 0 {
		for i, j := 0, len(pts)-1; i < j; i, j = i+1, j-1 {
			pts[i], pts[j] = pts[j], pts[i]
		}
	}
	return pts
}

func signedArea(pts []shp.Point) float64 {
	var sum float64
	for i := 1; i < len(pts); i++ {
		sum += pts[i-1].X*pts[i].Y - pts[i].X*pts[i-1].Y
	}
	return sum / 2
}
