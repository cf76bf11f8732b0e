// Package vector serializes contour polygons as GeoJSON.
package vector

import (
	"fmt"
	"math"

	"github.com/golang/geo/s2"
	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"

	"github.com/couchcryptid/precip-contour-service/internal/domain"
)

// EarthRadiusKm is the mean Earth radius used for ring areas.
const EarthRadiusKm = 6371.0088

// Feature property names.
const (
	PropLevel   = "level"
	PropAreaKm2 = "area_km2"
)

// FeatureCollection builds one MultiPolygon feature per contour ring, in
// the order given.
func FeatureCollection(polygons []domain.ContourPolygon) *geojson.FeatureCollection {
	fc := geojson.NewFeatureCollection()
	for _, p := range polygons {
		f := geojson.NewFeature(orb.MultiPolygon{orb.Polygon{p.Ring}})
		f.Properties[PropLevel] = p.Level
		f.Properties[PropAreaKm2] = math.Round(RingAreaKm2(p.Ring)*100) / 100
		fc.Append(f)
	}
	return fc
}

// Marshal encodes polygons as a GeoJSON FeatureCollection.
func Marshal(polygons []domain.ContourPolygon) ([]byte, error) {
	b, err := FeatureCollection(polygons).MarshalJSON()
	if err != nil {
		return nil, fmt.Errorf("marshal feature collection: %w", err)
	}
	return b, nil
}

// Unmarshal decodes a FeatureCollection produced by Marshal back into
// contour polygons. Features that are not single-ring MultiPolygons with a
// numeric level are rejected.
func Unmarshal(data []byte) ([]domain.ContourPolygon, error) {
	fc, err := geojson.UnmarshalFeatureCollection(data)
	if err != nil {
		return nil, fmt.Errorf("unmarshal feature collection: %w", err)
	}
	out := make([]domain.ContourPolygon, 0, len(fc.Features))
	for i, f := range fc.Features {
		mp, ok := f.Geometry.(orb.MultiPolygon)
		if !ok {
			return nil, fmt.Errorf("feature %d: geometry is %s, want MultiPolygon", i, geometryType(f.Geometry))
		}
		if len(mp) != 1 || len(mp[0]) != 1 {
			return nil, fmt.Errorf("feature %d: want exactly one ring", i)
		}
		level, ok := f.Properties[PropLevel].(float64)
		if !ok {
			return nil, fmt.Errorf("feature %d: missing numeric %q property", i, PropLevel)
		}
		out = append(out, domain.ContourPolygon{Level: level, Ring: mp[0][0]})
	}
	return out, nil
}

// RingAreaKm2 returns the geodesic area enclosed by a closed lon/lat ring.
// Orientation does not matter; the smaller of the two regions is used.
func RingAreaKm2(ring orb.Ring) float64 {
	n := len(ring)
	if n > 1 && ring[0] == ring[n-1] {
		n--
	}
	if n < 3 {
		return 0
	}
	pts := make([]s2.Point, n)
	for i := 0; i < n; i++ {
		pts[i] = s2.PointFromLatLng(s2.LatLngFromDegrees(ring[i][1], ring[i][0]))
	}
	loop := s2.LoopFromPoints(pts)
	loop.Normalize()
	return loop.Area() * EarthRadiusKm * EarthRadiusKm
}

func geometryType(g orb.Geometry) string {
	if g == nil {
		return "null"
	}
	return g.GeoJSONType()
}
