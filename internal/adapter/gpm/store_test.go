package gpm

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/couchcryptid/precip-contour-service/internal/domain"
)

type fakeReader struct {
	grid  domain.RawGrid
	err   error
	paths []string
}

func (f *fakeReader) Read(path string) (domain.RawGrid, error) {
	f.paths = append(f.paths, path)
	return f.grid, f.err
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func touch(t *testing.T, dir, name string) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte("x"), 0o600))
}

func descendingGrid() domain.RawGrid {
	g := domain.NewRawGrid(
		[]float64{1, 2, 3, 4, 5, 6},
		[]int{3, 2},
		[]float64{30, 20, 10},
		[]float64{100, 101},
	)
	g.LatAxis, g.LonAxis = 0, 1
	return g
}

func TestStore_List(t *testing.T) {
	dir := t.TempDir()
	touch(t, dir, "b.nc4")
	touch(t, dir, "a.HDF5")
	touch(t, dir, "c.nc")
	touch(t, dir, "notes.txt")
	touch(t, dir, "lower.hdf5")
	require.NoError(t, os.Mkdir(filepath.Join(dir, "sub.nc"), 0o700))

	s := NewStore(dir, &fakeReader{}, discardLogger())
	names, err := s.List(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"a.HDF5", "b.nc4", "c.nc"}, names)
}

func TestStore_ListMissingDirectory(t *testing.T) {
	s := NewStore(filepath.Join(t.TempDir(), "missing"), &fakeReader{}, discardLogger())
	names, err := s.List(context.Background())
	require.NoError(t, err)
	assert.Empty(t, names)
	assert.Error(t, s.CheckReadiness(context.Background()))
}

func TestStore_Catalog(t *testing.T) {
	dir := t.TempDir()
	touch(t, dir, "3B-HHR.MS.MRG.3IMERG.20240426-S153000-E155959.0930.V07B.HDF5")

	s := NewStore(dir, &fakeReader{}, discardLogger())
	cat, err := s.Catalog(context.Background())
	require.NoError(t, err)
	require.Len(t, cat, 1)
	assert.Equal(t, "26 Apr 2024 - 15:30 UTC", cat[0].Label)
}

func TestStore_LoadSwappedWindow(t *testing.T) {
	dir := t.TempDir()
	touch(t, dir, "g.nc4")
	reader := &fakeReader{grid: descendingGrid()}

	s := NewStore(dir, reader, discardLogger())
	raw, attempt, err := s.Load(context.Background(), "g.nc4", domain.GeoBounds{Top: 30, Bottom: 20, Left: 100, Right: 101})
	require.NoError(t, err)

	assert.Equal(t, domain.WindowSwapped, attempt)
	assert.Equal(t, []float64{30, 20}, raw.Lats)
	assert.Equal(t, []float64{1, 2, 3, 4}, raw.Values)
	assert.Equal(t, []string{filepath.Join(dir, "g.nc4")}, reader.paths)
}

func TestStore_LoadErrors(t *testing.T) {
	dir := t.TempDir()
	touch(t, dir, "g.nc4")

	t.Run("missing file", func(t *testing.T) {
		s := NewStore(dir, &fakeReader{}, discardLogger())
		_, _, err := s.Load(context.Background(), "other.nc4", domain.GeoBounds{})
		assert.ErrorIs(t, err, domain.ErrNotFound)
	})

	t.Run("path traversal", func(t *testing.T) {
		s := NewStore(dir, &fakeReader{}, discardLogger())
		for _, name := range []string{"../g.nc4", "sub/g.nc4", "", ".."} {
			_, _, err := s.Load(context.Background(), name, domain.GeoBounds{})
			assert.ErrorIs(t, err, domain.ErrConfiguration, name)
		}
	})

	t.Run("reader failure", func(t *testing.T) {
		s := NewStore(dir, &fakeReader{err: domain.ErrNoVariable}, discardLogger())
		_, _, err := s.Load(context.Background(), "g.nc4", domain.GeoBounds{})
		assert.ErrorIs(t, err, domain.ErrNoVariable)
	})

	t.Run("empty window", func(t *testing.T) {
		s := NewStore(dir, &fakeReader{grid: descendingGrid()}, discardLogger())
		_, _, err := s.Load(context.Background(), "g.nc4", domain.GeoBounds{Top: 80, Bottom: 70, Left: 100, Right: 101})
		assert.ErrorIs(t, err, domain.ErrEmptySelection)
	})

	t.Run("cancelled", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		s := NewStore(dir, &fakeReader{grid: descendingGrid()}, discardLogger())
		_, _, err := s.Load(ctx, "g.nc4", domain.GeoBounds{Top: 30, Bottom: 10, Left: 100, Right: 101})
		assert.True(t, errors.Is(err, context.Canceled))
	})
}
