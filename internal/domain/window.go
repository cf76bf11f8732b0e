package domain

import (
	"fmt"
	"slices"
)

// WindowAttempt identifies which orientation of the bounds produced a selection.
type WindowAttempt int

const (
	WindowPrimary WindowAttempt = iota
	WindowSwapped
)

func (a WindowAttempt) String() string {
	if a == WindowSwapped {
		return "swapped"
	}
	return "primary"
}

// SelectWindow crops raw to bounds using label-slice semantics: latitude is
// sliced from Bottom to Top and longitude from Left to Right. On an
// ascending axis a slice keeps start <= x <= stop; on a descending axis it
// keeps start >= x >= stop. If the first attempt selects nothing, the same
// slice is retried once with Top and Bottom exchanged. Both attempts empty
// is reported as ErrEmptySelection.
func SelectWindow(raw RawGrid, b GeoBounds) (RawGrid, WindowAttempt, error) {
	latAxis, lonAxis, err := raw.coordinateAxes()
	if err != nil {
		return RawGrid{}, WindowPrimary, err
	}

	for _, attempt := range []WindowAttempt{WindowPrimary, WindowSwapped} {
		bb := b
		if attempt == WindowSwapped {
			bb = b.Swapped()
		}
		latIdx := labelSlice(raw.Lats, bb.Bottom, bb.Top)
		lonIdx := labelSlice(raw.Lons, bb.Left, bb.Right)
		if len(latIdx) == 0 || len(lonIdx) == 0 {
			continue
		}
		return raw.take(latAxis, latIdx, lonAxis, lonIdx), attempt, nil
	}
	return RawGrid{}, WindowSwapped, fmt.Errorf("%w: lat [%g, %g] lon [%g, %g]",
		ErrEmptySelection, b.Bottom, b.Top, b.Left, b.Right)
}

func labelSlice(coords []float64, start, stop float64) []int {
	if len(coords) == 0 {
		return nil
	}
	descending := coords[0] > coords[len(coords)-1]
	var idx []int
	for i, x := range coords {
		var keep bool
		if descending {
			keep = start >= x && x >= stop
		} else {
			keep = start <= x && x <= stop
		}
		if keep {
			idx = append(idx, i)
		}
	}
	return idx
}

// coordinateAxes returns the value dimensions indexed by lat and lon. Axis
// hints win; otherwise dimensions are matched by length, lat first.
func (g RawGrid) coordinateAxes() (int, int, error) {
	mismatch := &ShapeMismatchError{ValuesShape: slices.Clone(g.Shape), LatLen: len(g.Lats), LonLen: len(g.Lons)}
	if g.size() != len(g.Values) {
		return 0, 0, mismatch
	}
	if g.hintsValid() {
		if g.Shape[g.LatAxis] != len(g.Lats) || g.Shape[g.LonAxis] != len(g.Lons) {
			return 0, 0, mismatch
		}
		return g.LatAxis, g.LonAxis, nil
	}
	latAxis := -1
	for i, d := range g.Shape {
		if d == len(g.Lats) {
			latAxis = i
			break
		}
	}
	if latAxis < 0 {
		return 0, 0, mismatch
	}
	for i, d := range g.Shape {
		if i != latAxis && d == len(g.Lons) {
			return latAxis, i, nil
		}
	}
	return 0, 0, mismatch
}

// take gathers the selected lat and lon indices, leaving every other
// dimension whole. Axis hints are preserved.
func (g RawGrid) take(latAxis int, latIdx []int, lonAxis int, lonIdx []int) RawGrid {
	shape := slices.Clone(g.Shape)
	shape[latAxis] = len(latIdx)
	shape[lonAxis] = len(lonIdx)

	selections := make([][]int, len(g.Shape))
	for d, n := range g.Shape {
		switch d {
		case latAxis:
			selections[d] = latIdx
		case lonAxis:
			selections[d] = lonIdx
		default:
			all := make([]int, n)
			for i := range all {
				all[i] = i
			}
			selections[d] = all
		}
	}

	strides := make([]int, len(g.Shape))
	stride := 1
	for d := len(g.Shape) - 1; d >= 0; d-- {
		strides[d] = stride
		stride *= g.Shape[d]
	}

	out := RawGrid{
		Shape:   shape,
		LatAxis: g.LatAxis,
		LonAxis: g.LonAxis,
	}
	total := 1
	for _, n := range shape {
		total *= n
	}
	out.Values = make([]float64, 0, total)

	pos := make([]int, len(shape))
	for k := 0; k < total; k++ {
		offset := 0
		for d := range shape {
			offset += selections[d][pos[d]] * strides[d]
		}
		out.Values = append(out.Values, g.Values[offset])
		for d := len(shape) - 1; d >= 0; d-- {
			pos[d]++
			if pos[d] < shape[d] {
				break
			}
			pos[d] = 0
		}
	}

	out.Lats = make([]float64, len(latIdx))
	for i, src := range latIdx {
		out.Lats[i] = g.Lats[src]
	}
	out.Lons = make([]float64, len(lonIdx))
	for i, src := range lonIdx {
		out.Lons[i] = g.Lons[src]
	}
	return out
}
