package domain

import (
	"fmt"
	"math"
	"slices"
	"strconv"
	"strings"
)

// LevelSet is an immutable, strictly increasing list of intensity
// thresholds in mm/hr. The zero value is empty and rejected by Vectorize.
type LevelSet struct {
	levels []float64
}

// DefaultLevels are the thresholds shared by the vector and raster outputs.
var DefaultLevels = []float64{0.1, 0.5, 5.0, 10.0, 20.0}

// NewLevelSet validates levels and returns a LevelSet holding a copy.
func NewLevelSet(levels ...float64) (LevelSet, error) {
	if len(levels) == 0 {
		return LevelSet{}, fmt.Errorf("%w: level set is empty", ErrConfiguration)
	}
	for i, l := range levels {
		if math.IsNaN(l) || math.IsInf(l, 0) {
			return LevelSet{}, fmt.Errorf("%w: level %d is not finite", ErrConfiguration, i)
		}
		if i > 0 && l <= levels[i-1] {
			return LevelSet{}, fmt.Errorf("%w: levels must be strictly increasing (%g after %g)", ErrConfiguration, l, levels[i-1])
		}
	}
	return LevelSet{levels: slices.Clone(levels)}, nil
}

// DefaultLevelSet returns the standard thresholds.
func DefaultLevelSet() LevelSet {
	return LevelSet{levels: slices.Clone(DefaultLevels)}
}

// ParseLevelSet parses a comma-separated list such as "0.1,0.5,5".
func ParseLevelSet(s string) (LevelSet, error) {
	parts := strings.Split(s, ",")
	levels := make([]float64, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		v, err := strconv.ParseFloat(p, 64)
		if err != nil {
			return LevelSet{}, fmt.Errorf("%w: level %q: %v", ErrConfiguration, p, err)
		}
		levels = append(levels, v)
	}
	return NewLevelSet(levels...)
}

// Levels returns a copy of the thresholds.
func (s LevelSet) Levels() []float64 { return slices.Clone(s.levels) }

func (s LevelSet) Len() int { return len(s.levels) }

func (s LevelSet) String() string {
	parts := make([]string, len(s.levels))
	for i, l := range s.levels {
		parts[i] = strconv.FormatFloat(l, 'g', -1, 64)
	}
	return strings.Join(parts, ",")
}
