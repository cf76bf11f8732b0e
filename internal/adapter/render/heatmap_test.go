package render

import (
	"bytes"
	"image/color"
	"image/png"
	"testing"

	"github.com/paulmach/orb"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"

	"github.com/couchcryptid/precip-contour-service/internal/domain"
)

func testGrid() domain.CanonicalGrid {
	// Row 0 is the southern row.
	return domain.CanonicalGrid{
		Lats:   []float64{0, 1},
		Lons:   []float64{0, 1, 2},
		Values: mat.NewDense(2, 3, []float64{0.05, 0.1, 50, 0, 2, 0}),
	}
}

func TestRender_MaskAndOrientation(t *testing.T) {
	img, err := Render(testGrid(), Options{MinValue: 0.1, CellSize: 2})
	require.NoError(t, err)
	assert.Equal(t, 6, img.Bounds().Dx())
	assert.Equal(t, 4, img.Bounds().Dy())

	// South row is drawn at the bottom.
	assert.Equal(t, uint8(0), img.NRGBAAt(0, 2).A, "below threshold is transparent")
	assert.Equal(t, color.NRGBA{R: 166, G: 216, B: 255, A: fillAlpha}, img.NRGBAAt(2, 3), "lowest level uses first palette color")
	assert.Equal(t, color.NRGBA{R: 215, G: 25, B: 28, A: fillAlpha}, img.NRGBAAt(5, 2), "above top level uses last palette color")

	// North row.
	assert.Equal(t, uint8(0), img.NRGBAAt(0, 0).A)
	assert.Equal(t, uint8(fillAlpha), img.NRGBAAt(2, 1).A)
	assert.Equal(t, uint8(0), img.NRGBAAt(4, 0).A)
}

func TestRender_CoversRequestedBounds(t *testing.T) {
	// One degree cells; the window adds two cells west and east and one
	// north and south.
	bounds := domain.GeoBounds{Top: 2.5, Bottom: -1.5, Left: -2.5, Right: 4.5}
	img, err := Render(testGrid(), Options{Bounds: bounds, MinValue: 0.1, CellSize: 2})
	require.NoError(t, err)
	assert.Equal(t, 14, img.Bounds().Dx())
	assert.Equal(t, 8, img.Bounds().Dy())

	// The 50 mm/hr cell spans lon [1.5, 2.5], lat [-0.5, 0.5].
	for _, px := range [][2]int{{8, 4}, {9, 5}} {
		assert.Equal(t, color.NRGBA{R: 215, G: 25, B: 28, A: fillAlpha}, img.NRGBAAt(px[0], px[1]), "pixel %v", px)
	}
	assert.Equal(t, uint8(0), img.NRGBAAt(10, 5).A, "east of the grid is transparent")
	assert.Equal(t, uint8(0), img.NRGBAAt(9, 6).A, "south of the grid is transparent")
	assert.Equal(t, uint8(0), img.NRGBAAt(1, 1).A, "window corner is transparent")
}

func TestRender_SwappedBoundsCoverSameWindow(t *testing.T) {
	bounds := domain.GeoBounds{Top: 2.5, Bottom: -1.5, Left: -2.5, Right: 4.5}
	want, err := Render(testGrid(), Options{Bounds: bounds, MinValue: 0.1, CellSize: 2})
	require.NoError(t, err)
	got, err := Render(testGrid(), Options{Bounds: bounds.Swapped(), MinValue: 0.1, CellSize: 2})
	require.NoError(t, err)
	assert.Equal(t, want.Pix, got.Pix)
}

func TestRender_OutlinesFollowBounds(t *testing.T) {
	grid := domain.CanonicalGrid{
		Lats:   []float64{0, 1, 2},
		Lons:   []float64{0, 1, 2},
		Values: mat.NewDense(3, 3, nil),
	}
	ring := orb.Ring{{0.5, 0.5}, {1.5, 0.5}, {1.5, 1.5}, {0.5, 1.5}, {0.5, 0.5}}
	bounds := domain.GeoBounds{Top: 3.5, Bottom: -1.5, Left: -1.5, Right: 3.5}

	img, err := Render(grid, Options{
		Bounds:   bounds,
		MinValue: 0.1,
		CellSize: 10,
		Contours: []domain.ContourPolygon{{Level: 1, Ring: ring}},
	})
	require.NoError(t, err)
	assert.Equal(t, 50, img.Bounds().Dx())

	// lon 0.5 -> x 20, lat 0.5 -> y 30.
	assertOutline(t, img.NRGBAAt(25, 30), "south edge")
	assert.Equal(t, uint8(0), img.NRGBAAt(15, 20).A, "grid-extent position stays clear")
}

func TestRender_CapsImageSize(t *testing.T) {
	grid := domain.CanonicalGrid{
		Lats:   []float64{0, 0.1},
		Lons:   []float64{0, 0.1},
		Values: mat.NewDense(2, 2, []float64{1, 1, 1, 1}),
	}
	img, err := Render(grid, Options{Bounds: domain.GeoBounds{Top: 45, Bottom: -45, Left: -180, Right: 180}, CellSize: 4})
	require.NoError(t, err)
	assert.Equal(t, MaxDimension, img.Bounds().Dx())
	assert.Equal(t, MaxDimension/4, img.Bounds().Dy())
}

func TestRender_ColorsIncreaseWithIntensity(t *testing.T) {
	cmap := newColormap(domain.DefaultLevels)
	light := cmap.at(0.2)
	heavy := cmap.at(15)
	assert.NotEqual(t, light, heavy)
	assert.Equal(t, cmap.at(20), cmap.at(200))
}

func TestRender_ContourOutline(t *testing.T) {
	grid := domain.CanonicalGrid{
		Lats:   []float64{0, 1, 2},
		Lons:   []float64{0, 1, 2},
		Values: mat.NewDense(3, 3, nil),
	}
	ring := orb.Ring{{0.5, 0.5}, {1.5, 0.5}, {1.5, 1.5}, {0.5, 1.5}, {0.5, 0.5}}

	img, err := Render(grid, Options{
		MinValue: 0.1,
		CellSize: 10,
		Contours: []domain.ContourPolygon{{Level: 1, Ring: ring}},
	})
	require.NoError(t, err)

	assertOutline(t, img.NRGBAAt(10, 20), "south-west corner")
	assertOutline(t, img.NRGBAAt(15, 20), "south edge")
	assertOutline(t, img.NRGBAAt(20, 10), "north-east corner")
	assert.Equal(t, uint8(0), img.NRGBAAt(15, 15).A, "interior untouched")
	assert.Equal(t, uint8(0), img.NRGBAAt(2, 2).A, "outside the ring untouched")
}

func TestRender_EmptyGrid(t *testing.T) {
	_, err := Render(domain.CanonicalGrid{}, Options{})
	assert.ErrorIs(t, err, domain.ErrEmptySelection)
}

func TestEncodePNG(t *testing.T) {
	img, err := Render(testGrid(), Options{MinValue: 0.1})
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, EncodePNG(&buf, img))

	decoded, err := png.Decode(&buf)
	require.NoError(t, err)
	assert.Equal(t, img.Bounds(), decoded.Bounds())
}

func TestCellIndex(t *testing.T) {
	axis := []float64{10, 20, 30}
	tests := []struct {
		v    float64
		want int
		ok   bool
	}{
		{4, 0, false},
		{5, 0, true},
		{14, 0, true},
		{16, 1, true},
		{30, 2, true},
		{35, 2, true},
		{36, 0, false},
	}
	for _, tt := range tests {
		got, ok := cellIndex(axis, tt.v)
		assert.Equal(t, tt.ok, ok, "v=%g", tt.v)
		if tt.ok {
			assert.Equal(t, tt.want, got, "v=%g", tt.v)
		}
	}

	got, ok := cellIndex([]float64{7}, 1e6)
	assert.True(t, ok)
	assert.Equal(t, 0, got)
}

func assertOutline(t *testing.T, c color.NRGBA, msg string) {
	t.Helper()
	assert.GreaterOrEqual(t, c.A, uint8(250), msg)
	assert.GreaterOrEqual(t, c.R, uint8(250), msg)
	assert.LessOrEqual(t, c.G, uint8(5), msg)
}
