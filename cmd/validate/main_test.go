package main

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/paulmach/orb"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/couchcryptid/precip-contour-service/internal/adapter/vector"
	"github.com/couchcryptid/precip-contour-service/internal/domain"
)

func contourFile(t *testing.T) []byte {
	t.Helper()
	data, err := vector.Marshal([]domain.ContourPolygon{
		{Level: 0.5, Ring: orb.Ring{{-100, 40}, {-99, 40}, {-99, 41}, {-100, 40}}},
		{Level: 5, Ring: orb.Ring{{-99.8, 40.2}, {-99.5, 40.2}, {-99.5, 40.5}, {-99.8, 40.2}}},
	})
	require.NoError(t, err)
	return data
}

func TestValidateStructure_ReturnsDecodedPolygons(t *testing.T) {
	p, polygons := validateStructure(contourFile(t))
	assert.True(t, p.passed(), p.errors)
	require.Len(t, polygons, 2)
	assert.Equal(t, 0.5, polygons[0].Level)
	assert.Equal(t, 5.0, polygons[1].Level)
}

func TestValidateStructure_RejectsPointFeature(t *testing.T) {
	data := []byte(`{"type":"FeatureCollection","features":[` +
		`{"type":"Feature","geometry":{"type":"Point","coordinates":[0,0]},"properties":{"level":1}}]}`)

	p, polygons := validateStructure(data)
	assert.False(t, p.passed())
	assert.Nil(t, polygons)
}

func TestRun(t *testing.T) {
	path := filepath.Join(t.TempDir(), "contours.geojson")
	require.NoError(t, os.WriteFile(path, contourFile(t), 0o600))

	assert.Equal(t, 0, run(path, domain.DefaultLevelSet()))

	levels, err := domain.NewLevelSet(1, 2)
	require.NoError(t, err)
	assert.Equal(t, 1, run(path, levels), "levels outside the set fail")
}
