// Command gengrid writes a synthetic satellite precipitation granule for
// demos and manual testing. The file mimics an IMERG half-hourly granule:
// the precipitation variable is laid out (time=1, lon, lat), latitudes run
// north to south and a patch of fill values marks missing retrievals. The
// file is read back through the same reader and transforms the service uses
// so the printed stats match what the API will return.
//
// Usage:
//
//	go run ./cmd/gengrid -out app/data \
//	  -top 50 -bottom 25 -left -125 -right -67 -res 0.1 -cells 6 -seed 42
package main

import (
	"flag"
	"fmt"
	"log"
	"math"
	"math/rand/v2"
	"os"
	"path/filepath"
	"time"

	"github.com/couchcryptid/precip-contour-service/internal/adapter/gpm"
	"github.com/couchcryptid/precip-contour-service/internal/adapter/ncgrid"
	"github.com/couchcryptid/precip-contour-service/internal/domain"
)

const (
	variableName = "precipitationCal"
	fillValue    = float32(-9999.9)
)

// storm is one Gaussian rain cell.
type storm struct {
	lat, lon float64
	radius   float64 // degrees
	peak     float64 // mm/hr
}

func main() {
	if err := run(); err != nil {
		log.Fatal(err)
	}
}

func run() error {
	outDir := flag.String("out", "app/data", "directory to write the granule into")
	top := flag.Float64("top", 50, "northern edge in degrees")
	bottom := flag.Float64("bottom", 25, "southern edge in degrees")
	left := flag.Float64("left", -125, "western edge in degrees")
	right := flag.Float64("right", -67, "eastern edge in degrees")
	res := flag.Float64("res", 0.1, "grid spacing in degrees")
	cells := flag.Int("cells", 6, "number of rain cells")
	seed := flag.Uint64("seed", 42, "random seed")
	start := flag.String("start", "2024-04-26T15:30:00Z", "scan start time used in the file name")
	flag.Parse()

	if *top <= *bottom || *right <= *left || *res <= 0 || *cells < 0 {
		flag.Usage()
		return fmt.Errorf("need top > bottom, right > left, res > 0 and cells >= 0")
	}
	scan, err := time.Parse(time.RFC3339, *start)
	if err != nil {
		return fmt.Errorf("parse -start: %w", err)
	}

	lats := axis(*top, *bottom, -*res)
	lons := axis(*left, *right, *res)
	rng := rand.New(rand.NewPCG(*seed, *seed^0x9e3779b97f4a7c15))
	storms := makeStorms(rng, *cells, lats, lons)
	values := rasterize(storms, lats, lons)

	name := granuleName(scan)
	path := filepath.Join(*outDir, name)
	if err := os.MkdirAll(*outDir, 0o755); err != nil {
		return err
	}
	fill := fillValue
	err = ncgrid.Write(path,
		[]ncgrid.Dimension{
			{Name: "time", Values: []float64{float64(scan.Unix())}},
			{Name: "lon", Values: lons},
			{Name: "lat", Values: lats},
		},
		ncgrid.Variable{
			Name:   variableName,
			Dims:   []string{"time", "lon", "lat"},
			Values: values,
			Fill:   &fill,
			Units:  "mm/hr",
		},
	)
	if err != nil {
		return fmt.Errorf("write granule: %w", err)
	}
	log.Printf("wrote %s (%d lat x %d lon, %d cells)", path, len(lats), len(lons), len(storms))

	return printStats(path, name)
}

// axis returns from, from+step, ... up to and including to.
func axis(from, to, step float64) []float64 {
	n := int(math.Floor((to-from)/step+1e-9)) + 1
	out := make([]float64, n)
	for i := range out {
		out[i] = math.Round((from+float64(i)*step)*1e6) / 1e6
	}
	return out
}

func makeStorms(rng *rand.Rand, n int, lats, lons []float64) []storm {
	latLo, latHi := lats[len(lats)-1], lats[0]
	lonLo, lonHi := lons[0], lons[len(lons)-1]
	out := make([]storm, n)
	for i := range out {
		out[i] = storm{
			lat:    latLo + rng.Float64()*(latHi-latLo),
			lon:    lonLo + rng.Float64()*(lonHi-lonLo),
			radius: 0.5 + rng.Float64()*2,
			peak:   2 + rng.Float64()*38,
		}
	}
	return out
}

// rasterize lays the storms out (lon, lat) with a band of fill values along
// the first longitude column.
func rasterize(storms []storm, lats, lons []float64) []float32 {
	values := make([]float32, len(lons)*len(lats))
	for j, lon := range lons {
		for k, lat := range lats {
			idx := j*len(lats) + k
			if j == 0 && k%3 == 0 {
				values[idx] = fillValue
				continue
			}
			var v float64
			for _, s := range storms {
				d2 := (lat-s.lat)*(lat-s.lat) + (lon-s.lon)*(lon-s.lon)
				v += s.peak * math.Exp(-d2/(2*s.radius*s.radius))
			}
			if v < 0.05 {
				v = 0
			}
			values[idx] = float32(v)
		}
	}
	return values
}

func granuleName(scan time.Time) string {
	end := scan.Add(29*time.Minute + 59*time.Second)
	return fmt.Sprintf("3B-HHR.MS.MRG.3IMERG.%s-S%s-E%s.SYNTH.V07B.nc4",
		scan.Format("20060102"), scan.Format("150405"), end.Format("150405"))
}

func printStats(path, name string) error {
	raw, err := ncgrid.Reader{Candidates: gpm.DefaultCandidates}.Read(path)
	if err != nil {
		return fmt.Errorf("read back: %w", err)
	}
	grid, norm, err := domain.Normalize(raw)
	if err != nil {
		return fmt.Errorf("normalize: %w", err)
	}
	polygons, err := domain.NewVectorizer().Vectorize(grid, domain.DefaultLevelSet())
	if err != nil {
		return fmt.Errorf("vectorize: %w", err)
	}

	fmt.Println("\n=== Granule stats ===")
	fmt.Printf("Label: %s\n", domain.ParseGranuleLabel(name))
	fmt.Printf("Shape: %v -> %s (flipped lats=%t, zeroed=%d)\n", raw.Shape, norm.Shape, norm.FlippedLats, norm.ZeroedValues)
	fmt.Printf("Max: %.2f mm/hr\n", grid.Max())
	fmt.Printf("Cells >= 0.1: %d\n", len(grid.CellsAtLeast(0.1)))

	counts := map[float64]int{}
	for _, p := range polygons {
		counts[p.Level]++
	}
	for _, level := range domain.DefaultLevels {
		fmt.Printf("  level %-5g %d rings\n", level, counts[level])
	}
	return nil
}
