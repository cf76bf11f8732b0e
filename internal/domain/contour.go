package domain

import (
	"fmt"
	"math"
	"sort"

	"github.com/fogleman/contourmap"
	"github.com/paulmach/orb"
	"gonum.org/v1/gonum/mat"
)

// ContourPolygon is one closed ring at one threshold. Rings at the same
// level are siblings; no ring is treated as a hole of another.
type ContourPolygon struct {
	Level float64
	Ring  orb.Ring // (lon, lat) vertices, Ring[0] == Ring[len(Ring)-1]
}

// Vectorizer turns a canonical grid into iso-level polygons.
type Vectorizer struct {
	// Sigma is the Gaussian standard deviation in grid cells.
	Sigma float64

	// ClosedEdges routes contours that leave the grid along the grid
	// border instead of closing them with a straight chord.
	ClosedEdges bool
}

// NewVectorizer returns a Vectorizer with the default sigma.
func NewVectorizer() Vectorizer {
	return Vectorizer{Sigma: DefaultSigma}
}

// Vectorize is shorthand for Vectorizer{Sigma: sigma}.Vectorize.
func Vectorize(grid CanonicalGrid, levels LevelSet, sigma float64) ([]ContourPolygon, error) {
	return Vectorizer{Sigma: sigma}.Vectorize(grid, levels)
}

// Vectorize smooths the grid and extracts closed rings for every level in
// ascending order. Levels above the smoothed maximum produce nothing.
// Within a level, rings are ordered by their lowest (lat, lon) vertex.
func (v Vectorizer) Vectorize(grid CanonicalGrid, levels LevelSet) ([]ContourPolygon, error) {
	if levels.Len() == 0 {
		return nil, fmt.Errorf("%w: level set is empty", ErrConfiguration)
	}
	if grid.Values == nil {
		return nil, nil
	}
	rows, cols := grid.Values.Dims()
	if rows != len(grid.Lats) || cols != len(grid.Lons) {
		return nil, &ShapeMismatchError{ValuesShape: []int{rows, cols}, LatLen: len(grid.Lats), LonLen: len(grid.Lons)}
	}

	smoothed, err := Smooth(grid.Values, v.Sigma)
	if err != nil {
		return nil, err
	}
	peak := mat.Max(smoothed)

	// Tracing always runs on the padded map so contours leaving the grid
	// keep their exit point; the frame is then cut away or clamped.
	cm := contourmap.FromFloat64s(cols, rows, flatten(smoothed)).Closed()

	var out []ContourPolygon
	for _, level := range levels.levels {
		if peak < level {
			continue
		}
		var rings []orb.Ring
		for _, c := range cm.Contours(level) {
			for _, path := range v.framePaths(c, cols, rows) {
				ring := closeRing(toLonLat(path, grid.Lons, grid.Lats))
				if ring != nil {
					rings = append(rings, ring)
				}
			}
		}
		sortRings(rings)
		for _, r := range rings {
			out = append(out, ContourPolygon{Level: level, Ring: r})
		}
	}
	return out, nil
}

func flatten(m *mat.Dense) []float64 {
	rows, cols := m.Dims()
	data := make([]float64, 0, rows*cols)
	for i := 0; i < rows; i++ {
		data = append(data, m.RawRowView(i)...)
	}
	return data
}

// framePaths converts a contour traced on the padded map back to grid
// index space. Points on the padding frame are clamped onto the grid border
// when ClosedEdges is set; otherwise they split the contour into the open
// paths that cross the grid.
func (v Vectorizer) framePaths(c contourmap.Contour, cols, rows int) []contourmap.Contour {
	pts := make(contourmap.Contour, len(c))
	onFrame := make([]bool, len(c))
	framed := -1
	for i, p := range c {
		onFrame[i] = p.X < 0.5 || p.Y < 0.5 || p.X > float64(cols)+0.5 || p.Y > float64(rows)+0.5
		if onFrame[i] && framed < 0 {
			framed = i
		}
		pts[i] = contourmap.Point{
			X: math.Max(0, math.Min(p.X-1, float64(cols-1))),
			Y: math.Max(0, math.Min(p.Y-1, float64(rows-1))),
		}
	}
	if framed < 0 || v.ClosedEdges {
		return []contourmap.Contour{pts}
	}

	// Closed contours repeat their first point; drop it so rotation
	// does not duplicate a vertex.
	n := len(pts)
	if n > 1 && c[0] == c[n-1] {
		n--
	}
	var paths []contourmap.Contour
	var cur contourmap.Contour
	for k := 0; k < n; k++ {
		i := (framed + k) % n
		if onFrame[i] {
			if len(cur) > 0 {
				paths = append(paths, cur)
				cur = nil
			}
			continue
		}
		cur = append(cur, pts[i])
	}
	if len(cur) > 0 {
		paths = append(paths, cur)
	}
	return paths
}

// toLonLat maps contour points from index space onto the coordinate axes.
func toLonLat(c contourmap.Contour, lons, lats []float64) orb.Ring {
	ring := make(orb.Ring, 0, len(c)+1)
	for _, p := range c {
		ring = append(ring, orb.Point{interpolate(lons, p.X), interpolate(lats, p.Y)})
	}
	return ring
}

func interpolate(axis []float64, t float64) float64 {
	n := len(axis)
	if n == 1 {
		return axis[0]
	}
	t = math.Max(0, math.Min(t, float64(n-1)))
	i := int(math.Floor(t))
	if i > n-2 {
		i = n - 2
	}
	f := t - float64(i)
	return axis[i] + f*(axis[i+1]-axis[i])
}

// closeRing drops repeated vertices and returns the ring closed on its
// lowest (lat, lon) vertex, or nil when fewer than three distinct vertices
// remain. Traced loops start at an arbitrary vertex; rotating them gives
// identical output for identical input.
func closeRing(raw orb.Ring) orb.Ring {
	ring := make(orb.Ring, 0, len(raw)+1)
	for _, p := range raw {
		if len(ring) > 0 && ring[len(ring)-1] == p {
			continue
		}
		ring = append(ring, p)
	}
	if len(ring) > 1 && ring[0] == ring[len(ring)-1] {
		ring = ring[:len(ring)-1]
	}
	if len(ring) < 3 {
		return nil
	}
	start := lowestVertex(ring)
	out := make(orb.Ring, 0, len(ring)+1)
	out = append(out, ring[start:]...)
	out = append(out, ring[:start]...)
	return append(out, out[0])
}

func lowestVertex(r orb.Ring) int {
	low := 0
	for i, p := range r {
		if below(p, r[low]) {
			low = i
		}
	}
	return low
}

func below(a, b orb.Point) bool {
	if a[1] != b[1] {
		return a[1] < b[1]
	}
	return a[0] < b[0]
}

// sortRings orders rings by their first vertex, which closeRing has made
// the lowest.
func sortRings(rings []orb.Ring) {
	sort.SliceStable(rings, func(i, j int) bool {
		return below(rings[i][0], rings[j][0])
	})
}
