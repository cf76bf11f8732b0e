package config

import (
	"errors"
	"fmt"
	"math"
	"os"
	"strconv"
	"time"

	sharedcfg "github.com/couchcryptid/storm-data-shared/config"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"

	"github.com/couchcryptid/precip-contour-service/internal/domain"
)

// Config holds all service settings. Contour settings may come from an
// optional YAML file; environment variables always win.
type Config struct {
	HTTPAddr        string
	LogLevel        string
	LogFormat       string
	ShutdownTimeout time.Duration

	// Sources.
	DataDir       string
	TempDir       string
	NOAABaseURL   string
	NOAATimeout   time.Duration
	Wgrib2Path    string
	GPMCandidates []string

	// Contouring and rendering.
	Levels         domain.LevelSet
	Sigma          float64
	ClosedEdges    bool
	RasterMinValue float64

	// Optional contour publishing.
	KafkaBrokers      []string
	KafkaContourTopic string
	PublishEnabled    bool
}

// Load reads configuration from environment variables, layered over the
// YAML file named by PRECIP_CONFIG_FILE when set, applying defaults where unset.
func Load() (*Config, error) {
	shutdownTimeout, err := sharedcfg.ParseShutdownTimeout()
	if err != nil {
		return nil, err
	}

	noaaTimeout, err := time.ParseDuration(sharedcfg.EnvOrDefault("NOAA_TIMEOUT", "90s"))
	if err != nil || noaaTimeout <= 0 {
		return nil, errors.New("invalid NOAA_TIMEOUT")
	}

	cfg := &Config{
		HTTPAddr:        sharedcfg.EnvOrDefault("HTTP_ADDR", ":8000"),
		LogLevel:        sharedcfg.EnvOrDefault("LOG_LEVEL", "info"),
		LogFormat:       sharedcfg.EnvOrDefault("LOG_FORMAT", "json"),
		ShutdownTimeout: shutdownTimeout,

		DataDir:       sharedcfg.EnvOrDefault("DATA_DIR", "app/data"),
		TempDir:       sharedcfg.EnvOrDefault("TEMP_DIR", "temp"),
		NOAABaseURL:   sharedcfg.EnvOrDefault("NOAA_BASE_URL", "https://nomads.ncep.noaa.gov/cgi-bin/filter_gfs_0p25_1hr.pl"),
		NOAATimeout:   noaaTimeout,
		Wgrib2Path:    sharedcfg.EnvOrDefault("WGRIB2_PATH", "wgrib2"),
		GPMCandidates: []string{"precipitationCal", "precipitation", "precip"},

		Levels:         domain.DefaultLevelSet(),
		Sigma:          domain.DefaultSigma,
		RasterMinValue: 0.1,

		KafkaBrokers:      sharedcfg.ParseBrokers(os.Getenv("KAFKA_BROKERS")),
		KafkaContourTopic: sharedcfg.EnvOrDefault("KAFKA_CONTOUR_TOPIC", "precipitation-contours"),
	}
	cfg.PublishEnabled = len(cfg.KafkaBrokers) > 0

	if path := os.Getenv("PRECIP_CONFIG_FILE"); path != "" {
		if err := cfg.applyFile(path); err != nil {
			return nil, err
		}
	}
	if err := cfg.applyContourEnv(); err != nil {
		return nil, err
	}

	if cfg.KafkaContourTopic == "" {
		return nil, errors.New("KAFKA_CONTOUR_TOPIC is required")
	}
	if cfg.DataDir == "" {
		return nil, errors.New("DATA_DIR is required")
	}
	return cfg, nil
}

// applyFile overlays contour settings from a YAML document such as:
//
//	levels: [0.1, 0.5, 5, 10, 20]
//	sigma: 1.5
//	closed_edges: true
//	raster_min_value: 0.2
//	gpm_variables: [precipitation]
func (c *Config) applyFile(path string) error {
	k := koanf.New(".")
	if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
		return fmt.Errorf("load %s: %w", path, err)
	}

	if k.Exists("levels") {
		levels, err := domain.NewLevelSet(k.Float64s("levels")...)
		if err != nil {
			return fmt.Errorf("invalid levels in %s: %w", path, err)
		}
		c.Levels = levels
	}
	if k.Exists("sigma") {
		sigma, err := validSigma(k.Float64("sigma"))
		if err != nil {
			return fmt.Errorf("invalid sigma in %s: %w", path, err)
		}
		c.Sigma = sigma
	}
	if k.Exists("closed_edges") {
		c.ClosedEdges = k.Bool("closed_edges")
	}
	if k.Exists("raster_min_value") {
		c.RasterMinValue = k.Float64("raster_min_value")
	}
	if vars := k.Strings("gpm_variables"); len(vars) > 0 {
		c.GPMCandidates = vars
	}
	return nil
}

func (c *Config) applyContourEnv() error {
	if s := os.Getenv("CONTOUR_LEVELS"); s != "" {
		levels, err := domain.ParseLevelSet(s)
		if err != nil {
			return fmt.Errorf("invalid CONTOUR_LEVELS: %w", err)
		}
		c.Levels = levels
	}
	if s := os.Getenv("CONTOUR_SIGMA"); s != "" {
		v, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return fmt.Errorf("invalid CONTOUR_SIGMA: %w", domain.ErrConfiguration)
		}
		if c.Sigma, err = validSigma(v); err != nil {
			return fmt.Errorf("invalid CONTOUR_SIGMA: %w", err)
		}
	}
	if s := os.Getenv("CONTOUR_CLOSED_EDGES"); s != "" {
		v, err := strconv.ParseBool(s)
		if err != nil {
			return errors.New("invalid CONTOUR_CLOSED_EDGES")
		}
		c.ClosedEdges = v
	}
	if s := os.Getenv("RASTER_MIN_VALUE"); s != "" {
		v, err := strconv.ParseFloat(s, 64)
		if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
			return errors.New("invalid RASTER_MIN_VALUE")
		}
		c.RasterMinValue = v
	}
	return nil
}

// ParseSigma validates a sigma given as text, e.g. from a request.
func ParseSigma(s string) (float64, error) {
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: sigma %q is not a number", domain.ErrConfiguration, s)
	}
	return validSigma(v)
}

func validSigma(v float64) (float64, error) {
	if math.IsNaN(v) || math.IsInf(v, 0) || v < 0 || v > 10 {
		return 0, fmt.Errorf("%w: sigma must be in [0, 10], got %g", domain.ErrConfiguration, v)
	}
	return v, nil
}
