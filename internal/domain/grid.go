package domain

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"
)

// GeoBounds is a requested window in degrees.
type GeoBounds struct {
	Top    float64 `json:"toplat"`
	Bottom float64 `json:"bottomlat"`
	Left   float64 `json:"leftlon"`
	Right  float64 `json:"rightlon"`
}

// Validate rejects non-finite edges and latitudes outside [-90, 90].
func (b GeoBounds) Validate() error {
	for _, v := range []float64{b.Top, b.Bottom, b.Left, b.Right} {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return fmt.Errorf("%w: bounds must be finite", ErrConfiguration)
		}
	}
	if b.Top < -90 || b.Top > 90 || b.Bottom < -90 || b.Bottom > 90 {
		return fmt.Errorf("%w: latitude out of range", ErrConfiguration)
	}
	return nil
}

// Swapped returns the bounds with top and bottom exchanged.
func (b GeoBounds) Swapped() GeoBounds {
	b.Top, b.Bottom = b.Bottom, b.Top
	return b
}

// CrossesAntimeridian reports whether the window spans 180 degrees: the
// western edge lies east of the eastern one, or an edge is beyond +-180.
func (b GeoBounds) CrossesAntimeridian() bool {
	return b.Left > b.Right || b.Right > 180 || b.Left < -180
}

// LonSpan returns the western and eastern edges as an ascending range.
// Windows crossing the antimeridian are expressed in 0..360.
func (b GeoBounds) LonSpan() (west, east float64) {
	west, east = b.Left, b.Right
	if !b.CrossesAntimeridian() {
		return west, east
	}
	if west < 0 {
		west += 360
	}
	if east < west {
		east += 360
	}
	return west, east
}

// RawGrid is a source grid before normalization. Values is row-major over
// Shape; LatAxis and LonAxis name the dimensions holding each coordinate
// when the source knows them, and are -1 otherwise.
type RawGrid struct {
	Values  []float64
	Shape   []int
	Lats    []float64
	Lons    []float64
	LatAxis int
	LonAxis int
}

// NewRawGrid builds a RawGrid without axis hints.
func NewRawGrid(values []float64, shape []int, lats, lons []float64) RawGrid {
	return RawGrid{
		Values:  values,
		Shape:   shape,
		Lats:    lats,
		Lons:    lons,
		LatAxis: -1,
		LonAxis: -1,
	}
}

func (g RawGrid) size() int {
	if len(g.Shape) == 0 {
		return 0
	}
	n := 1
	for _, d := range g.Shape {
		n *= d
	}
	return n
}

// CanonicalGrid is a normalized grid: Values is lat-rows by lon-columns and
// both axes are ascending.
type CanonicalGrid struct {
	Lats   []float64
	Lons   []float64
	Values *mat.Dense
}

// Dims returns rows (latitudes) and columns (longitudes).
func (g CanonicalGrid) Dims() (int, int) {
	return len(g.Lats), len(g.Lons)
}

// Max returns the largest value in the grid, or 0 for an empty grid.
func (g CanonicalGrid) Max() float64 {
	if g.Values == nil {
		return 0
	}
	return mat.Max(g.Values)
}

// Cell is one grid point.
type Cell struct {
	Lat   float64
	Lon   float64
	Value float64
}

// CellsAtLeast returns every cell whose value is at least minValue in
// row-major order.
func (g CanonicalGrid) CellsAtLeast(minValue float64) []Cell {
	rows, cols := g.Dims()
	var cells []Cell
	for i := 0; i < rows; i++ {
		for j := 0; j < cols; j++ {
			v := g.Values.At(i, j)
			if v >= minValue {
				cells = append(cells, Cell{Lat: g.Lats[i], Lon: g.Lons[j], Value: v})
			}
		}
	}
	return cells
}
