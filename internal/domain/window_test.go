package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// gridLatLon is a 4x3 (lat, lon) grid whose value encodes its position as
// lat*10 + lon.
func gridLatLon(lats []float64) RawGrid {
	lons := []float64{0, 1, 2}
	values := make([]float64, 0, len(lats)*len(lons))
	for _, lat := range lats {
		for _, lon := range lons {
			values = append(values, lat*10+lon)
		}
	}
	g := NewRawGrid(values, []int{len(lats), len(lons)}, lats, lons)
	g.LatAxis, g.LonAxis = 0, 1
	return g
}

func TestSelectWindow_AscendingPrimary(t *testing.T) {
	raw := gridLatLon([]float64{0, 1, 2, 3})

	got, attempt, err := SelectWindow(raw, GeoBounds{Top: 2, Bottom: 1, Left: 1, Right: 2})
	require.NoError(t, err)

	assert.Equal(t, WindowPrimary, attempt)
	assert.Equal(t, []float64{1, 2}, got.Lats)
	assert.Equal(t, []float64{1, 2}, got.Lons)
	assert.Equal(t, []int{2, 2}, got.Shape)
	assert.Equal(t, []float64{11, 12, 21, 22}, got.Values)
}

func TestSelectWindow_DescendingLatsUsesSwappedAttempt(t *testing.T) {
	raw := gridLatLon([]float64{3, 2, 1, 0})

	got, attempt, err := SelectWindow(raw, GeoBounds{Top: 2, Bottom: 1, Left: 0, Right: 0})
	require.NoError(t, err)

	assert.Equal(t, WindowSwapped, attempt)
	assert.Equal(t, []float64{2, 1}, got.Lats)
	assert.Equal(t, []float64{0}, got.Lons)
	assert.Equal(t, []float64{20, 10}, got.Values)
}

func TestSelectWindow_InvertedBoundsOnAscendingAxis(t *testing.T) {
	raw := gridLatLon([]float64{0, 1, 2, 3})

	got, attempt, err := SelectWindow(raw, GeoBounds{Top: 0, Bottom: 3, Left: 0, Right: 2})
	require.NoError(t, err)

	assert.Equal(t, WindowSwapped, attempt)
	assert.Equal(t, []float64{0, 1, 2, 3}, got.Lats)
}

func TestSelectWindow_BothAttemptsEmpty(t *testing.T) {
	raw := gridLatLon([]float64{0, 1, 2, 3})

	_, _, err := SelectWindow(raw, GeoBounds{Top: 60, Bottom: 50, Left: 0, Right: 2})
	assert.ErrorIs(t, err, ErrEmptySelection)

	_, _, err = SelectWindow(raw, GeoBounds{Top: 3, Bottom: 0, Left: 10, Right: 20})
	assert.ErrorIs(t, err, ErrEmptySelection)
}

func TestSelectWindow_KeepsExtraDimensions(t *testing.T) {
	// (time=1, lon=3, lat=2) layout.
	raw := NewRawGrid(
		[]float64{
			0, 10, // lon 0 at lat 0, 1
			1, 11, // lon 1
			2, 12, // lon 2
		},
		[]int{1, 3, 2},
		[]float64{0, 1},
		[]float64{0, 1, 2},
	)
	raw.LonAxis, raw.LatAxis = 1, 2

	got, _, err := SelectWindow(raw, GeoBounds{Top: 1, Bottom: 1, Left: 1, Right: 2})
	require.NoError(t, err)

	assert.Equal(t, []int{1, 2, 1}, got.Shape)
	assert.Equal(t, []float64{11, 12}, got.Values)
	assert.Equal(t, 1, got.LonAxis)
	assert.Equal(t, 2, got.LatAxis)

	grid, n, err := Normalize(got)
	require.NoError(t, err)
	assert.Equal(t, ShapeSqueezedTransposed, n.Shape)
	assert.Equal(t, [][]float64{{11, 12}}, rowsOf(grid.Values))
}

func TestSelectWindow_InfersAxesByLength(t *testing.T) {
	raw := NewRawGrid([]float64{1, 2, 3, 4, 5, 6}, []int{3, 2}, []float64{0, 1}, []float64{0, 1, 2})

	got, _, err := SelectWindow(raw, GeoBounds{Top: 1, Bottom: 0, Left: 2, Right: 2})
	require.NoError(t, err)
	assert.Equal(t, []int{1, 2}, got.Shape)
	assert.Equal(t, []float64{5, 6}, got.Values)
}

func TestSelectWindow_ShapeMismatch(t *testing.T) {
	raw := NewRawGrid(make([]float64, 6), []int{2, 3}, make([]float64, 4), make([]float64, 3))

	_, _, err := SelectWindow(raw, GeoBounds{Top: 1, Bottom: 0, Left: 0, Right: 1})
	var mismatch *ShapeMismatchError
	assert.ErrorAs(t, err, &mismatch)
}

func TestGeoBounds_Validate(t *testing.T) {
	assert.NoError(t, GeoBounds{Top: 10, Bottom: 20, Left: -5, Right: 5}.Validate())
	assert.ErrorIs(t, GeoBounds{Top: 95, Bottom: 0}.Validate(), ErrConfiguration)
}
