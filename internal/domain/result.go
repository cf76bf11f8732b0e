package domain

import "time"

// Source names a grid origin.
type Source string

const (
	SourceGFS Source = "gfs"
	SourceGPM Source = "gpm"
)

// ContourSet is the vector output for one grid, ready to publish.
type ContourSet struct {
	// ID identifies the grid: the run for model data, the file for granules.
	ID          string
	Source      Source
	Label       string
	GeneratedAt time.Time
	Polygons    []ContourPolygon
}

// NewContourSet stamps polygons with the current time.
func NewContourSet(source Source, id, label string, polygons []ContourPolygon) ContourSet {
	return ContourSet{
		ID:          id,
		Source:      source,
		Label:       label,
		GeneratedAt: Now(),
		Polygons:    polygons,
	}
}
