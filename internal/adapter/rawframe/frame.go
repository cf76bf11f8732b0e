// Package rawframe encodes precipitation cells in the compact binary layout
// used by map clients that draw points themselves.
//
// Layout, little-endian:
//
//	uint32  count
//	float32 max_value
//	float32 lats[count]
//	float32 lons[count]
//	float32 values[count]
package rawframe

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"io"

	"github.com/couchcryptid/precip-contour-service/internal/domain"
)

const headerSize = 8

// ErrTruncated reports a buffer shorter than its header promises.
var ErrTruncated = errors.New("truncated frame")

// Frame is the decoded form of one binary payload.
type Frame struct {
	MaxValue float32
	Lats     []float32
	Lons     []float32
	Values   []float32
}

// Count returns the number of cells.
func (f Frame) Count() int { return len(f.Values) }

// FromGrid collects every cell at or above minValue. MaxValue is the grid
// maximum, including cells below the mask.
func FromGrid(grid domain.CanonicalGrid, minValue float64) Frame {
	cells := grid.CellsAtLeast(minValue)
	f := Frame{
		MaxValue: float32(grid.Max()),
		Lats:     make([]float32, len(cells)),
		Lons:     make([]float32, len(cells)),
		Values:   make([]float32, len(cells)),
	}
	for i, c := range cells {
		f.Lats[i] = float32(c.Lat)
		f.Lons[i] = float32(c.Lon)
		f.Values[i] = float32(c.Value)
	}
	return f
}

// Encode writes f to w.
func Encode(w io.Writer, f Frame) error {
	n := len(f.Values)
	if len(f.Lats) != n || len(f.Lons) != n {
		return fmt.Errorf("frame arrays differ in length: lats=%d lons=%d values=%d", len(f.Lats), len(f.Lons), n)
	}
	header := struct {
		Count    uint32
		MaxValue float32
	}{uint32(n), f.MaxValue}
	if err := binary.Write(w, binary.LittleEndian, header); err != nil {
		return fmt.Errorf("write header: %w", err)
	}
	for _, arr := range [][]float32{f.Lats, f.Lons, f.Values} {
		if err := binary.Write(w, binary.LittleEndian, arr); err != nil {
			return fmt.Errorf("write body: %w", err)
		}
	}
	return nil
}

// Marshal returns the encoded bytes of f.
func Marshal(f Frame) ([]byte, error) {
	var buf bytes.Buffer
	buf.Grow(headerSize + 12*len(f.Values))
	if err := Encode(&buf, f); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// Decode parses a complete frame from b.
func Decode(b []byte) (Frame, error) {
	if len(b) < headerSize {
		return Frame{}, fmt.Errorf("%w: %d bytes", ErrTruncated, len(b))
	}
	count := int(binary.LittleEndian.Uint32(b[0:4]))
	want := headerSize + 12*count
	if len(b) < want {
		return Frame{}, fmt.Errorf("%w: have %d bytes, header needs %d", ErrTruncated, len(b), want)
	}

	var f Frame
	r := bytes.NewReader(b[4:want])
	if err := binary.Read(r, binary.LittleEndian, &f.MaxValue); err != nil {
		return Frame{}, err
	}
	f.Lats = make([]float32, count)
	f.Lons = make([]float32, count)
	f.Values = make([]float32, count)
	for _, arr := range [][]float32{f.Lats, f.Lons, f.Values} {
		if err := binary.Read(r, binary.LittleEndian, arr); err != nil {
			return Frame{}, err
		}
	}
	return f, nil
}
