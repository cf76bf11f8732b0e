package ncgrid

import (
	"fmt"

	"github.com/fhs/go-netcdf/netcdf"
)

// Dimension is a named axis with its coordinate values.
type Dimension struct {
	Name   string
	Values []float64
}

// Variable is a float32 field laid out over Dims in row-major order.
type Variable struct {
	Name   string
	Dims   []string
	Values []float32
	Fill   *float32
	Units  string
}

// Write creates a netCDF-4 file at path holding every dimension as a
// coordinate variable plus the given data variables.
func Write(path string, dims []Dimension, vars ...Variable) (err error) {
	ds, err := netcdf.CreateFile(path, netcdf.CLOBBER|netcdf.NETCDF4)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	defer func() {
		if cerr := ds.Close(); err == nil && cerr != nil {
			err = fmt.Errorf("close %s: %w", path, cerr)
		}
	}()

	byName := make(map[string]netcdf.Dim, len(dims))
	coords := make([]netcdf.Var, len(dims))
	for i, d := range dims {
		nd, err := ds.AddDim(d.Name, uint64(len(d.Values)))
		if err != nil {
			return fmt.Errorf("add dim %s: %w", d.Name, err)
		}
		byName[d.Name] = nd
		if coords[i], err = ds.AddVar(d.Name, netcdf.DOUBLE, []netcdf.Dim{nd}); err != nil {
			return fmt.Errorf("add coordinate %s: %w", d.Name, err)
		}
	}

	data := make([]netcdf.Var, len(vars))
	for i, v := range vars {
		vd := make([]netcdf.Dim, len(v.Dims))
		for j, name := range v.Dims {
			d, ok := byName[name]
			if !ok {
				return fmt.Errorf("variable %s: unknown dimension %q", v.Name, name)
			}
			vd[j] = d
		}
		if data[i], err = ds.AddVar(v.Name, netcdf.FLOAT, vd); err != nil {
			return fmt.Errorf("add variable %s: %w", v.Name, err)
		}
		if v.Fill != nil {
			if err := data[i].Attr("_FillValue").WriteFloat32s([]float32{*v.Fill}); err != nil {
				return fmt.Errorf("fill value for %s: %w", v.Name, err)
			}
		}
		if v.Units != "" {
			if err := data[i].Attr("units").WriteBytes([]byte(v.Units)); err != nil {
				return fmt.Errorf("units for %s: %w", v.Name, err)
			}
		}
	}

	if err := ds.EndDef(); err != nil {
		return fmt.Errorf("end define mode: %w", err)
	}

	for i, d := range dims {
		if len(d.Values) == 0 {
			continue
		}
		if err := coords[i].WriteFloat64s(d.Values); err != nil {
			return fmt.Errorf("write coordinate %s: %w", d.Name, err)
		}
	}
	for i, v := range vars {
		if len(v.Values) == 0 {
			continue
		}
		if err := data[i].WriteFloat32s(v.Values); err != nil {
			return fmt.Errorf("write variable %s: %w", v.Name, err)
		}
	}
	return nil
}
