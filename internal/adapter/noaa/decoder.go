package noaa

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"os/exec"
	"strings"

	"github.com/couchcryptid/precip-contour-service/internal/adapter/ncgrid"
	"github.com/couchcryptid/precip-contour-service/internal/domain"
)

// PRATE is in kg m-2 s-1, which is mm/s of water.
const secondsPerHour = 3600

// Wgrib2Decoder converts GRIB2 to netCDF with the wgrib2 tool and reads the
// PRATE field from the result in mm/hr.
type Wgrib2Decoder struct {
	Path   string
	Reader ncgrid.Reader
}

// NewWgrib2Decoder returns a decoder that runs the binary at path.
func NewWgrib2Decoder(path string) *Wgrib2Decoder {
	if path == "" {
		path = "wgrib2"
	}
	return &Wgrib2Decoder{
		Path: path,
		Reader: ncgrid.Reader{
			Candidates: []string{"PRATE_surface", "PRATE"},
			Scale:      secondsPerHour,
		},
	}
}

// Decode writes a sibling .nc file next to path, reads it and removes it.
func (d *Wgrib2Decoder) Decode(ctx context.Context, path string) (domain.RawGrid, error) {
	out := strings.TrimSuffix(path, ".grib2") + ".nc"
	defer func() { _ = os.Remove(out) }()

	var stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, d.Path, path, "-match", ":PRATE:", "-netcdf", out)
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		return domain.RawGrid{}, fmt.Errorf("wgrib2: %w: %s", err, strings.TrimSpace(stderr.String()))
	}
	return d.Reader.Read(out)
}

// CheckReadiness reports whether the converter binary can be found.
func (d *Wgrib2Decoder) CheckReadiness(_ context.Context) error {
	if _, err := exec.LookPath(d.Path); err != nil {
		return fmt.Errorf("grib converter: %w", err)
	}
	return nil
}
