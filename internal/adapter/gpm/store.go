// Package gpm serves satellite precipitation granules from a local directory.
package gpm

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/couchcryptid/precip-contour-service/internal/domain"
)

// DefaultCandidates are the precipitation variable names tried in order.
var DefaultCandidates = []string{"precipitationCal", "precipitation", "precip"}

var extensions = []string{".HDF5", ".nc", ".nc4"}

// GridReader reads a raw grid from a file path.
type GridReader interface {
	Read(path string) (domain.RawGrid, error)
}

// Granule is a listed file with its display label.
type Granule struct {
	Name  string `json:"name"`
	Label string `json:"label"`
}

// Store lists and loads granules under a single directory.
type Store struct {
	dir    string
	reader GridReader
	logger *slog.Logger
}

// NewStore creates a Store rooted at dir.
func NewStore(dir string, reader GridReader, logger *slog.Logger) *Store {
	return &Store{dir: dir, reader: reader, logger: logger}
}

// List returns the granule file names in the directory, sorted. A missing
// directory lists as empty.
func (s *Store) List(_ context.Context) ([]string, error) {
	entries, err := os.ReadDir(s.dir)
	if errors.Is(err, fs.ErrNotExist) {
		return []string{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("list %s: %w", s.dir, err)
	}
	names := make([]string, 0, len(entries))
	for _, e := range entries {
		if e.IsDir() || !hasGridExtension(e.Name()) {
			continue
		}
		names = append(names, e.Name())
	}
	slices.Sort(names)
	return names, nil
}

// Catalog lists granules with their scan-time labels.
func (s *Store) Catalog(ctx context.Context) ([]Granule, error) {
	names, err := s.List(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]Granule, len(names))
	for i, n := range names {
		out[i] = Granule{Name: n, Label: domain.ParseGranuleLabel(n)}
	}
	return out, nil
}

// Load reads filename and crops it to bounds.
func (s *Store) Load(ctx context.Context, filename string, bounds domain.GeoBounds) (domain.RawGrid, domain.WindowAttempt, error) {
	path, err := s.resolve(filename)
	if err != nil {
		return domain.RawGrid{}, domain.WindowPrimary, err
	}
	if err := ctx.Err(); err != nil {
		return domain.RawGrid{}, domain.WindowPrimary, err
	}

	raw, err := s.reader.Read(path)
	if err != nil {
		return domain.RawGrid{}, domain.WindowPrimary, fmt.Errorf("read granule %s: %w", filename, err)
	}

	window, attempt, err := domain.SelectWindow(raw, bounds)
	if err != nil {
		return domain.RawGrid{}, attempt, fmt.Errorf("granule %s: %w", filename, err)
	}
	if attempt == domain.WindowSwapped {
		s.logger.Debug("window selected with swapped latitude bounds", "file", filename)
	}
	return window, attempt, nil
}

// CheckReadiness reports whether the data directory is readable.
func (s *Store) CheckReadiness(_ context.Context) error {
	info, err := os.Stat(s.dir)
	if err != nil {
		return fmt.Errorf("data directory: %w", err)
	}
	if !info.IsDir() {
		return fmt.Errorf("data directory %s is not a directory", s.dir)
	}
	return nil
}

// resolve maps a request file name onto the directory, rejecting anything
// that is not a plain granule name.
func (s *Store) resolve(filename string) (string, error) {
	if filename == "" || filename != filepath.Base(filename) || strings.HasPrefix(filename, ".") {
		return "", fmt.Errorf("%w: invalid file name %q", domain.ErrConfiguration, filename)
	}
	path := filepath.Join(s.dir, filename)
	info, err := os.Stat(path)
	if errors.Is(err, fs.ErrNotExist) {
		return "", fmt.Errorf("granule %s: %w", filename, domain.ErrNotFound)
	}
	if err != nil {
		return "", fmt.Errorf("stat %s: %w", filename, err)
	}
	if info.IsDir() {
		return "", fmt.Errorf("granule %s: %w", filename, domain.ErrNotFound)
	}
	return path, nil
}

func hasGridExtension(name string) bool {
	for _, ext := range extensions {
		if strings.HasSuffix(name, ext) {
			return true
		}
	}
	return false
}
