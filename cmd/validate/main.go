// Command validate checks a contour GeoJSON file, as served in vector mode
// or written by precipctl, against the invariants every contour collection
// must hold: one closed ring per feature, levels drawn from the configured
// level set in ascending order, and area properties that match the rings.
//
// Usage:
//
//	go run ./cmd/validate -in contours.geojson [-levels 0.1,0.5,5,10,20]
package main

import (
	"flag"
	"fmt"
	"math"
	"os"
	"slices"

	"github.com/paulmach/orb/geojson"

	"github.com/couchcryptid/precip-contour-service/internal/adapter/vector"
	"github.com/couchcryptid/precip-contour-service/internal/domain"
)

// phase tracks pass/fail for a validation phase.
type phase struct {
	name   string
	errors []string
}

func (p *phase) errorf(format string, args ...any) {
	p.errors = append(p.errors, fmt.Sprintf(format, args...))
}

func (p *phase) passed() bool { return len(p.errors) == 0 }

func main() {
	in := flag.String("in", "", "path to a contour FeatureCollection")
	levelsFlag := flag.String("levels", "", "comma-separated level set (default 0.1,0.5,5,10,20)")
	flag.Parse()

	if *in == "" {
		flag.Usage()
		os.Exit(1)
	}

	levels := domain.DefaultLevelSet()
	if *levelsFlag != "" {
		var err error
		if levels, err = domain.ParseLevelSet(*levelsFlag); err != nil {
			fmt.Fprintf(os.Stderr, "FATAL: %v\n", err)
			os.Exit(1)
		}
	}

	if code := run(*in, levels); code != 0 {
		os.Exit(code)
	}
}

func run(path string, levels domain.LevelSet) int {
	fmt.Println("=== Contour Integrity Validation ===")
	fmt.Println()

	data, err := os.ReadFile(path)
	if err != nil {
		fmt.Fprintf(os.Stderr, "FATAL: read %s: %v\n", path, err)
		return 1
	}
	fc, err := geojson.UnmarshalFeatureCollection(data)
	if err != nil {
		fmt.Fprintf(os.Stderr, "FATAL: parse %s: %v\n", path, err)
		return 1
	}

	structure, polygons := validateStructure(data)
	phases := []*phase{structure}

	// The remaining phases need decoded polygons.
	if structure.passed() {
		phases = append(phases,
			validateRingClosure(polygons),
			validateLevels(polygons, levels),
			validateAreas(fc, polygons),
		)
	}

	fmt.Println()
	allPassed := true
	for _, p := range phases {
		status := "\033[32mPASS\033[0m"
		if !p.passed() {
			status = fmt.Sprintf("\033[31mFAIL (%d errors)\033[0m", len(p.errors))
			allPassed = false
		}
		fmt.Printf("  %-42s %s\n", p.name, status)
	}

	fmt.Println()
	fmt.Printf("Features: %d, levels: %s\n", len(fc.Features), levels)
	printLevelCounts(polygons)

	for _, p := range phases {
		if p.passed() {
			continue
		}
		fmt.Printf("\n--- %s ---\n", p.name)
		for i, e := range p.errors {
			fmt.Printf("  [%d] %s\n", i+1, e)
		}
	}

	if allPassed {
		fmt.Println("\nAll validations passed.")
		return 0
	}
	fmt.Println("\nValidation FAILED.")
	return 1
}

// ── Phases ──

// validateStructure checks every feature is a single-ring MultiPolygon with
// a numeric level, and returns the decoded polygons.
func validateStructure(data []byte) (*phase, []domain.ContourPolygon) {
	p := &phase{name: "Phase 1: Feature structure"}
	fmt.Println("Phase 1: Checking feature geometry and properties...")
	polygons, err := vector.Unmarshal(data)
	if err != nil {
		p.errorf("%v", err)
		return p, nil
	}
	return p, polygons
}

// validateRingClosure checks ring[0] == ring[last] with at least three
// distinct vertices.
func validateRingClosure(polygons []domain.ContourPolygon) *phase {
	p := &phase{name: "Phase 2: Ring closure"}
	fmt.Println("Phase 2: Checking ring closure...")
	for i, poly := range polygons {
		n := len(poly.Ring)
		if n < 4 {
			p.errorf("feature %d: %d vertices, want at least 4", i, n)
			continue
		}
		if poly.Ring[0] != poly.Ring[n-1] {
			p.errorf("feature %d: first vertex %v != last vertex %v", i, poly.Ring[0], poly.Ring[n-1])
		}
		for k, pt := range poly.Ring {
			if math.IsNaN(pt[0]) || math.IsNaN(pt[1]) || math.IsInf(pt[0], 0) || math.IsInf(pt[1], 0) {
				p.errorf("feature %d vertex %d: non-finite coordinate %v", i, k, pt)
				break
			}
		}
	}
	return p
}

// validateLevels checks every level is in the level set and levels never
// decrease across the collection.
func validateLevels(polygons []domain.ContourPolygon, levels domain.LevelSet) *phase {
	p := &phase{name: "Phase 3: Level membership and order"}
	fmt.Println("Phase 3: Checking levels...")
	allowed := levels.Levels()
	prev := math.Inf(-1)
	for i, poly := range polygons {
		if !slices.Contains(allowed, poly.Level) {
			p.errorf("feature %d: level %g not in %s", i, poly.Level, levels)
		}
		if poly.Level < prev {
			p.errorf("feature %d: level %g after %g", i, poly.Level, prev)
		}
		prev = poly.Level
	}
	return p
}

// validateAreas recomputes each ring's area and compares it with the
// stored property.
func validateAreas(fc *geojson.FeatureCollection, polygons []domain.ContourPolygon) *phase {
	p := &phase{name: "Phase 4: Area properties"}
	fmt.Println("Phase 4: Checking area_km2...")
	for i, poly := range polygons {
		stored, ok := fc.Features[i].Properties[vector.PropAreaKm2].(float64)
		if !ok {
			p.errorf("feature %d: missing %s", i, vector.PropAreaKm2)
			continue
		}
		want := math.Round(vector.RingAreaKm2(poly.Ring)*100) / 100
		if math.Abs(stored-want) > 0.01 {
			p.errorf("feature %d: %s %.2f, ring encloses %.2f", i, vector.PropAreaKm2, stored, want)
		}
	}
	return p
}

func printLevelCounts(polygons []domain.ContourPolygon) {
	counts := map[float64]int{}
	var order []float64
	for _, poly := range polygons {
		if counts[poly.Level] == 0 {
			order = append(order, poly.Level)
		}
		counts[poly.Level]++
	}
	for _, level := range order {
		fmt.Printf("  level %-8g %d rings\n", level, counts[level])
	}
}
