// Package render draws precipitation grids as transparent PNG heatmaps.
package render

import (
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"image/png"
	"io"
	"math"
	"sort"

	"github.com/fogleman/gg"
	"github.com/lucasb-eyer/go-colorful"

	"github.com/couchcryptid/precip-contour-service/internal/domain"
)

// DefaultMinValue is the mask threshold below which cells are transparent.
const DefaultMinValue = 0.1

// Palette runs from light rain to heavy rain.
var Palette = []string{"#a6d8ff", "#2b83ba", "#1a9641", "#fdae61", "#d7191c"}

var outlineColor = color.NRGBA{R: 255, A: 255}

const fillAlpha = 200

// MaxDimension caps either side of a rendered image in pixels.
const MaxDimension = 4096

const outlineWidth = 2.0

// Options controls a heatmap render.
type Options struct {
	// Bounds is the window the image covers. The zero value covers the grid
	// extent plus half a cell on each side.
	Bounds   domain.GeoBounds
	MinValue float64
	Levels   domain.LevelSet
	CellSize int // pixels per grid cell, minimum 1
	Contours []domain.ContourPolygon
}

// Render rasterizes grid onto the requested window with north at the top.
// Pixels outside the grid and cells below MinValue stay fully transparent;
// the rest are colored by where their value falls between consecutive
// levels. Contour rings, if any, are outlined on top.
func Render(grid domain.CanonicalGrid, opts Options) (*image.NRGBA, error) {
	rows, cols := grid.Dims()
	if grid.Values == nil || rows == 0 || cols == 0 {
		return nil, fmt.Errorf("render: %w", domain.ErrEmptySelection)
	}
	if r, c := grid.Values.Dims(); r != rows || c != cols {
		return nil, &domain.ShapeMismatchError{ValuesShape: []int{r, c}, LatLen: rows, LonLen: cols}
	}
	levels := opts.Levels
	if levels.Len() == 0 {
		levels = domain.DefaultLevelSet()
	}
	cmap := newColormap(levels.Levels())
	p := newProjection(grid, opts.Bounds, max(opts.CellSize, 1))

	img := image.NewNRGBA(image.Rect(0, 0, p.width, p.height))
	for y := 0; y < p.height; y++ {
		i, ok := cellIndex(grid.Lats, p.lat(float64(y)+0.5))
		if !ok {
			continue
		}
		for x := 0; x < p.width; x++ {
			j, ok := cellIndex(grid.Lons, p.lon(float64(x)+0.5))
			if !ok {
				continue
			}
			v := grid.Values.At(i, j)
			if v < opts.MinValue || math.IsNaN(v) {
				continue
			}
			img.SetNRGBA(x, y, cmap.at(v))
		}
	}

	if len(opts.Contours) > 0 {
		draw.Draw(img, img.Bounds(), outlines(p, opts.Contours), image.Point{}, draw.Over)
	}
	return img, nil
}

// outlines strokes every ring on a transparent layer the size of the image.
func outlines(p projection, polygons []domain.ContourPolygon) image.Image {
	dc := gg.NewContext(p.width, p.height)
	dc.SetColor(outlineColor)
	dc.SetLineWidth(outlineWidth)
	for _, poly := range polygons {
		if len(poly.Ring) < 2 {
			continue
		}
		dc.NewSubPath()
		for k, pt := range poly.Ring {
			x, y := p.pixel(pt[0], pt[1])
			if k == 0 {
				dc.MoveTo(x, y)
				continue
			}
			dc.LineTo(x, y)
		}
		dc.ClosePath()
	}
	dc.Stroke()
	return dc.Image()
}

// EncodePNG writes img as PNG.
func EncodePNG(w io.Writer, img image.Image) error {
	if err := png.Encode(w, img); err != nil {
		return fmt.Errorf("encode png: %w", err)
	}
	return nil
}

// colormap maps a value to a palette color. Stop k sits at levels[k].
type colormap struct {
	levels []float64
	stops  []colorful.Color
}

func newColormap(levels []float64) colormap {
	base := make([]colorful.Color, len(Palette))
	for i, h := range Palette {
		base[i], _ = colorful.Hex(h)
	}
	stops := make([]colorful.Color, len(levels))
	for k := range levels {
		t := 0.0
		if len(levels) > 1 {
			t = float64(k) / float64(len(levels)-1)
		}
		stops[k] = samplePalette(base, t)
	}
	return colormap{levels: levels, stops: stops}
}

// samplePalette blends between palette entries in Lab space, t in [0, 1].
func samplePalette(base []colorful.Color, t float64) colorful.Color {
	if len(base) == 1 {
		return base[0]
	}
	pos := t * float64(len(base)-1)
	i := int(math.Floor(pos))
	if i >= len(base)-1 {
		return base[len(base)-1]
	}
	if frac := pos - float64(i); frac > 0 {
		return base[i].BlendLab(base[i+1], frac).Clamped()
	}
	return base[i]
}

func (m colormap) at(v float64) color.NRGBA {
	c := m.stops[0]
	n := len(m.levels)
	switch {
	case v >= m.levels[n-1]:
		c = m.stops[n-1]
	case v > m.levels[0]:
		for k := 1; k < n; k++ {
			if v < m.levels[k] {
				t := (v - m.levels[k-1]) / (m.levels[k] - m.levels[k-1])
				c = m.stops[k-1].BlendLab(m.stops[k], t).Clamped()
				break
			}
		}
	}
	r, g, b := c.RGB255()
	return color.NRGBA{R: r, G: g, B: b, A: fillAlpha}
}

// projection is a plate carree mapping between the window and pixels.
type projection struct {
	west, east    float64
	south, north  float64
	width, height int
}

// newProjection sizes the image so one grid cell spans cell pixels, shrinking
// the scale when either side would exceed MaxDimension.
func newProjection(grid domain.CanonicalGrid, b domain.GeoBounds, cell int) projection {
	dLon, dLat := spacing(grid.Lons), spacing(grid.Lats)
	switch {
	case dLon == 0 && dLat == 0:
		dLon, dLat = 1, 1
	case dLon == 0:
		dLon = dLat
	case dLat == 0:
		dLat = dLon
	}

	p := projection{
		west:  grid.Lons[0] - dLon/2,
		east:  grid.Lons[len(grid.Lons)-1] + dLon/2,
		south: grid.Lats[0] - dLat/2,
		north: grid.Lats[len(grid.Lats)-1] + dLat/2,
	}
	if west, east := b.LonSpan(); east > west && b.Top != b.Bottom {
		p.west, p.east = west, east
		p.south, p.north = math.Min(b.Top, b.Bottom), math.Max(b.Top, b.Bottom)
	}

	scale := float64(cell)
	w := (p.east - p.west) / dLon * scale
	h := (p.north - p.south) / dLat * scale
	if m := math.Max(w, h); m > MaxDimension {
		w, h = w*MaxDimension/m, h*MaxDimension/m
	}
	p.width = max(int(math.Round(w)), 1)
	p.height = max(int(math.Round(h)), 1)
	return p
}

// pixel returns the image position of lon/lat.
func (p projection) pixel(lon, lat float64) (float64, float64) {
	x := (lon - p.west) / (p.east - p.west) * float64(p.width)
	y := (p.north - lat) / (p.north - p.south) * float64(p.height)
	return x, y
}

func (p projection) lon(x float64) float64 {
	return p.west + x/float64(p.width)*(p.east-p.west)
}

func (p projection) lat(y float64) float64 {
	return p.north - y/float64(p.height)*(p.north-p.south)
}

// spacing is the mean step of an ascending axis, 0 for a single point.
func spacing(axis []float64) float64 {
	if len(axis) < 2 {
		return 0
	}
	return (axis[len(axis)-1] - axis[0]) / float64(len(axis)-1)
}

// cellIndex returns the cell of an ascending axis whose footprint holds v.
// Footprints end halfway to each neighbour; the outer cells extend half a
// step past the axis ends.
func cellIndex(axis []float64, v float64) (int, bool) {
	n := len(axis)
	half := spacing(axis) / 2
	if n == 1 {
		half = math.Inf(1)
	}
	if v < axis[0]-half || v > axis[n-1]+half {
		return 0, false
	}
	k := sort.SearchFloat64s(axis, v)
	switch {
	case k == 0:
		return 0, true
	case k == n:
		return n - 1, true
	case v-axis[k-1] <= axis[k]-v:
		return k - 1, true
	default:
		return k, true
	}
}
