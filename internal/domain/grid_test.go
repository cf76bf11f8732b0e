package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"gonum.org/v1/gonum/mat"
)

func TestCanonicalGrid_CellsAtLeast(t *testing.T) {
	g := CanonicalGrid{
		Lats:   []float64{10, 11},
		Lons:   []float64{-80, -79, -78},
		Values: mat.NewDense(2, 3, []float64{0, 0.1, 2, 0.05, 7.5, 0}),
	}

	cells := g.CellsAtLeast(0.1)
	assert.Equal(t, []Cell{
		{Lat: 10, Lon: -79, Value: 0.1},
		{Lat: 10, Lon: -78, Value: 2},
		{Lat: 11, Lon: -79, Value: 7.5},
	}, cells)
	assert.Equal(t, 7.5, g.Max())

	rows, cols := g.Dims()
	assert.Equal(t, 2, rows)
	assert.Equal(t, 3, cols)
}

func TestCanonicalGrid_EmptyMax(t *testing.T) {
	assert.Equal(t, 0.0, CanonicalGrid{}.Max())
}

func TestGeoBounds_Swapped(t *testing.T) {
	b := GeoBounds{Top: 10, Bottom: 20, Left: 1, Right: 2}
	assert.Equal(t, GeoBounds{Top: 20, Bottom: 10, Left: 1, Right: 2}, b.Swapped())
}

func TestGeoBounds_LonSpan(t *testing.T) {
	tests := []struct {
		name       string
		b          GeoBounds
		crosses    bool
		west, east float64
	}{
		{"western hemisphere", GeoBounds{Left: -125, Right: -67}, false, -125, -67},
		{"prime meridian", GeoBounds{Left: -10, Right: 10}, false, -10, 10},
		{"left east of right", GeoBounds{Left: 170, Right: -170}, true, 170, 190},
		{"right beyond 180", GeoBounds{Left: 170, Right: 190}, true, 170, 190},
		{"left beyond -180", GeoBounds{Left: -190, Right: -170}, true, 170, 190},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.crosses, tt.b.CrossesAntimeridian())
			west, east := tt.b.LonSpan()
			assert.Equal(t, tt.west, west)
			assert.Equal(t, tt.east, east)
		})
	}
}
