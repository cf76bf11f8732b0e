package domain

import (
	"fmt"
	"math"
	"slices"
	"sort"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
)

// ShapeOutcome names the branch the shape resolution took.
type ShapeOutcome int

const (
	ShapeUnchanged ShapeOutcome = iota
	ShapeTransposed
	ShapeSqueezed
	ShapeSqueezedTransposed
	ShapeUnresolvable
)

func (o ShapeOutcome) String() string {
	switch o {
	case ShapeUnchanged:
		return "unchanged"
	case ShapeTransposed:
		return "transposed"
	case ShapeSqueezed:
		return "squeezed"
	case ShapeSqueezedTransposed:
		return "squeezed_transposed"
	default:
		return "unresolvable"
	}
}

// Normalization records what Normalize did to reach canonical orientation.
type Normalization struct {
	Shape        ShapeOutcome
	FlippedLats  bool
	FlippedLons  bool
	Reordered    bool // axes were non-monotonic and had to be sorted
	ZeroedValues int  // non-finite samples replaced with 0
}

// Normalize resolves the axis order and orientation of a raw grid.
//
// The decision procedure is fixed: non-finite values become 0, then the
// values shape is matched against (lat, lon) and (lon, lat); if neither
// matches, singleton dimensions are squeezed out and both checks run once
// more. Descending axes are then reversed together with the matching values
// axis. The input is never modified.
func Normalize(raw RawGrid) (CanonicalGrid, Normalization, error) {
	var n Normalization

	nLat, nLon := len(raw.Lats), len(raw.Lons)
	if nLat == 0 || nLon == 0 {
		return CanonicalGrid{}, n, fmt.Errorf("normalize: %w", ErrEmptySelection)
	}
	if len(raw.Shape) < 2 || raw.size() != len(raw.Values) {
		n.Shape = ShapeUnresolvable
		return CanonicalGrid{}, n, &ShapeMismatchError{ValuesShape: slices.Clone(raw.Shape), LatLen: nLat, LonLen: nLon}
	}

	values := make([]float64, len(raw.Values))
	for i, v := range raw.Values {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			v = 0
			n.ZeroedValues++
		}
		values[i] = v
	}

	lonFirst, hinted := raw.hintedLonFirst()
	shape := raw.Shape
	squeezed := false
	if len(shape) != 2 {
		shape = raw.squeeze()
		squeezed = true
	}

	transpose, ok := matchShape(shape, nLat, nLon, lonFirst, hinted)
	if !ok && !squeezed {
		if s := raw.squeeze(); len(s) != len(shape) {
			shape = s
			squeezed = true
			transpose, ok = matchShape(shape, nLat, nLon, lonFirst, hinted)
		}
	}
	if !ok {
		n.Shape = ShapeUnresolvable
		return CanonicalGrid{}, n, &ShapeMismatchError{ValuesShape: slices.Clone(raw.Shape), LatLen: nLat, LonLen: nLon}
	}

	var m *mat.Dense
	switch {
	case transpose:
		m = mat.DenseCopyOf(mat.NewDense(nLon, nLat, values).T())
	default:
		m = mat.NewDense(nLat, nLon, values)
	}
	n.Shape = outcome(squeezed, transpose)

	lats := slices.Clone(raw.Lats)
	lons := slices.Clone(raw.Lons)

	if lats[0] > lats[nLat-1] {
		slices.Reverse(lats)
		m = permuteRows(m, reversed(nLat))
		n.FlippedLats = true
	}
	if lons[0] > lons[nLon-1] {
		slices.Reverse(lons)
		m = permuteCols(m, reversed(nLon))
		n.FlippedLons = true
	}

	if !sort.Float64sAreSorted(lats) {
		idx := make([]int, nLat)
		floats.Argsort(lats, idx)
		m = permuteRows(m, idx)
		n.Reordered = true
	}
	if !sort.Float64sAreSorted(lons) {
		idx := make([]int, nLon)
		floats.Argsort(lons, idx)
		m = permuteCols(m, idx)
		n.Reordered = true
	}

	return CanonicalGrid{Lats: lats, Lons: lons, Values: m}, n, nil
}

func outcome(squeezed, transposed bool) ShapeOutcome {
	switch {
	case squeezed && transposed:
		return ShapeSqueezedTransposed
	case squeezed:
		return ShapeSqueezed
	case transposed:
		return ShapeTransposed
	default:
		return ShapeUnchanged
	}
}

// matchShape reports whether shape is (lat, lon) or (lon, lat). A square
// shape is taken as canonical unless the source named its axes the other
// way round.
func matchShape(shape []int, nLat, nLon int, lonFirst, hinted bool) (transpose, ok bool) {
	if len(shape) != 2 {
		return false, false
	}
	canonical := shape[0] == nLat && shape[1] == nLon
	swapped := shape[0] == nLon && shape[1] == nLat
	switch {
	case canonical && swapped:
		return hinted && lonFirst, true
	case canonical:
		return false, true
	case swapped:
		return true, true
	default:
		return false, false
	}
}

// squeeze drops singleton dimensions. Hinted lat/lon axes are kept even
// when they have length one; without hints singletons are dropped left to
// right only while more than two dimensions remain.
func (g RawGrid) squeeze() []int {
	out := make([]int, 0, len(g.Shape))
	if g.hintsValid() {
		for d, n := range g.Shape {
			if n != 1 || d == g.LatAxis || d == g.LonAxis {
				out = append(out, n)
			}
		}
		return out
	}
	extra := len(g.Shape) - 2
	for _, n := range g.Shape {
		if n == 1 && extra > 0 {
			extra--
			continue
		}
		out = append(out, n)
	}
	return out
}

func (g RawGrid) hintsValid() bool {
	return g.LatAxis >= 0 && g.LonAxis >= 0 && g.LatAxis != g.LonAxis &&
		g.LatAxis < len(g.Shape) && g.LonAxis < len(g.Shape)
}

func (g RawGrid) hintedLonFirst() (lonFirst, ok bool) {
	if !g.hintsValid() {
		return false, false
	}
	return g.LonAxis < g.LatAxis, true
}

func reversed(n int) []int {
	idx := make([]int, n)
	for i := range idx {
		idx[i] = n - 1 - i
	}
	return idx
}

// permuteRows returns a matrix whose row i is row idx[i] of m.
func permuteRows(m *mat.Dense, idx []int) *mat.Dense {
	r, c := m.Dims()
	out := mat.NewDense(r, c, nil)
	for i, src := range idx {
		out.SetRow(i, mat.Row(nil, src, m))
	}
	return out
}

// permuteCols returns a matrix whose column j is column idx[j] of m.
func permuteCols(m *mat.Dense, idx []int) *mat.Dense {
	r, c := m.Dims()
	out := mat.NewDense(r, c, nil)
	for j, src := range idx {
		out.SetCol(j, mat.Col(nil, src, m))
	}
	return out
}
