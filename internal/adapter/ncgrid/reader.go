// Package ncgrid reads and writes precipitation grids stored as netCDF.
package ncgrid

import (
	"errors"
	"fmt"
	"math"
	"strings"

	"github.com/fhs/go-netcdf/netcdf"

	"github.com/couchcryptid/precip-contour-service/internal/domain"
)

// Reader extracts the first matching precipitation variable from a file.
type Reader struct {
	// Candidates are variable names tried in order.
	Candidates []string
	// Scale multiplies every value after fill handling. Zero means 1.
	Scale float64
}

// Read opens path, reads the precipitation variable with its lat/lon
// coordinates and closes the file on every return path. Fill and missing
// values are returned as NaN.
func (r Reader) Read(path string) (domain.RawGrid, error) {
	ds, err := netcdf.OpenFile(path, netcdf.NOWRITE)
	if err != nil {
		return domain.RawGrid{}, fmt.Errorf("open %s: %w", path, err)
	}
	defer func() { _ = ds.Close() }()

	v, name, err := r.findVar(ds)
	if err != nil {
		return domain.RawGrid{}, err
	}

	dims, err := v.Dims()
	if err != nil {
		return domain.RawGrid{}, fmt.Errorf("dims of %s: %w", name, err)
	}
	shape := make([]int, len(dims))
	dimNames := make([]string, len(dims))
	for i, d := range dims {
		n, err := d.Len()
		if err != nil {
			return domain.RawGrid{}, fmt.Errorf("dim %d of %s: %w", i, name, err)
		}
		shape[i] = int(n)
		if dimNames[i], err = d.Name(); err != nil {
			return domain.RawGrid{}, fmt.Errorf("dim %d of %s: %w", i, name, err)
		}
	}

	latAxis, lonAxis := axisIndex(dimNames, "lat"), axisIndex(dimNames, "lon")

	lats, err := coordinate(ds, dimNames, latAxis, "lat")
	if err != nil {
		return domain.RawGrid{}, err
	}
	lons, err := coordinate(ds, dimNames, lonAxis, "lon")
	if err != nil {
		return domain.RawGrid{}, err
	}

	values, err := readFloat64s(v)
	if err != nil {
		return domain.RawGrid{}, fmt.Errorf("read %s: %w", name, err)
	}
	maskFill(v, values)
	applyPacking(v, values)
	if r.Scale != 0 && r.Scale != 1 {
		for i := range values {
			values[i] *= r.Scale
		}
	}

	return domain.RawGrid{
		Values:  values,
		Shape:   shape,
		Lats:    lats,
		Lons:    lons,
		LatAxis: latAxis,
		LonAxis: lonAxis,
	}, nil
}

func (r Reader) findVar(ds netcdf.Dataset) (netcdf.Var, string, error) {
	for _, name := range r.Candidates {
		if v, err := ds.Var(name); err == nil {
			return v, name, nil
		}
	}
	return netcdf.Var{}, "", fmt.Errorf("%w: tried %v", domain.ErrNoVariable, r.Candidates)
}

// axisIndex returns the first dimension whose name contains key, or -1.
func axisIndex(names []string, key string) int {
	for i, n := range names {
		if strings.Contains(strings.ToLower(n), key) {
			return i
		}
	}
	return -1
}

// coordinate reads the 1-D coordinate for an axis: the variable named like
// the dimension when there is one, otherwise the first 1-D variable whose
// name contains key.
func coordinate(ds netcdf.Dataset, dimNames []string, axis int, key string) ([]float64, error) {
	if axis >= 0 {
		if v, err := ds.Var(dimNames[axis]); err == nil {
			return readFloat64s(v)
		}
	}
	n, err := ds.NVars()
	if err != nil {
		return nil, fmt.Errorf("list variables: %w", err)
	}
	for i := 0; i < n; i++ {
		v := ds.VarN(i)
		name, err := v.Name()
		if err != nil || !strings.Contains(strings.ToLower(name), key) {
			continue
		}
		if dims, err := v.Dims(); err != nil || len(dims) != 1 {
			continue
		}
		return readFloat64s(v)
	}
	return nil, fmt.Errorf("no %s coordinate in dataset (dims %v)", key, dimNames)
}

var errUnsupportedType = errors.New("unsupported variable type")

// readFloat64s reads an entire numeric variable as float64.
func readFloat64s(v netcdf.Var) ([]float64, error) {
	t, err := v.Type()
	if err != nil {
		return nil, err
	}
	n, err := v.Len()
	if err != nil {
		return nil, err
	}
	out := make([]float64, n)
	if n == 0 {
		return out, nil
	}
	switch t {
	case netcdf.DOUBLE:
		err = v.ReadFloat64s(out)
	case netcdf.FLOAT:
		tmp := make([]float32, n)
		err = v.ReadFloat32s(tmp)
		for i, x := range tmp {
			out[i] = float64(x)
		}
	case netcdf.INT:
		tmp := make([]int32, n)
		err = v.ReadInt32s(tmp)
		for i, x := range tmp {
			out[i] = float64(x)
		}
	case netcdf.SHORT:
		tmp := make([]int16, n)
		err = v.ReadInt16s(tmp)
		for i, x := range tmp {
			out[i] = float64(x)
		}
	default:
		return nil, fmt.Errorf("%w: %v", errUnsupportedType, t)
	}
	return out, err
}

// attrFloat reads the first element of a numeric attribute.
func attrFloat(v netcdf.Var, name string) (float64, bool) {
	a := v.Attr(name)
	if n, err := a.Len(); err != nil || n == 0 {
		return 0, false
	}
	t, err := a.Type()
	if err != nil {
		return 0, false
	}
	switch t {
	case netcdf.DOUBLE:
		buf := make([]float64, 1)
		if a.ReadFloat64s(buf) == nil {
			return buf[0], true
		}
	case netcdf.FLOAT:
		buf := make([]float32, 1)
		if a.ReadFloat32s(buf) == nil {
			return float64(buf[0]), true
		}
	case netcdf.INT:
		buf := make([]int32, 1)
		if a.ReadInt32s(buf) == nil {
			return float64(buf[0]), true
		}
	case netcdf.SHORT:
		buf := make([]int16, 1)
		if a.ReadInt16s(buf) == nil {
			return float64(buf[0]), true
		}
	}
	return 0, false
}

func maskFill(v netcdf.Var, values []float64) {
	for _, name := range []string{"_FillValue", "missing_value"} {
		fill, ok := attrFloat(v, name)
		if !ok {
			continue
		}
		for i, x := range values {
			if x == fill || (math.Abs(fill) > 1e30 && math.Abs(x) >= math.Abs(fill)) {
				values[i] = math.NaN()
			}
		}
	}
}

// applyPacking undoes CF scale_factor/add_offset packing.
func applyPacking(v netcdf.Var, values []float64) {
	scale, hasScale := attrFloat(v, "scale_factor")
	offset, hasOffset := attrFloat(v, "add_offset")
	if !hasScale && !hasOffset {
		return
	}
	if !hasScale {
		scale = 1
	}
	for i, x := range values {
		values[i] = x*scale + offset
	}
}
