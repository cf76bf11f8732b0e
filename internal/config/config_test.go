package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/couchcryptid/precip-contour-service/internal/domain"
)

func writeYAML(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "precip.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, ":8000", cfg.HTTPAddr)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.Equal(t, "json", cfg.LogFormat)
	assert.Equal(t, 10*time.Second, cfg.ShutdownTimeout)
	assert.Equal(t, "app/data", cfg.DataDir)
	assert.Equal(t, "temp", cfg.TempDir)
	assert.Contains(t, cfg.NOAABaseURL, "filter_gfs_0p25_1hr.pl")
	assert.Equal(t, 90*time.Second, cfg.NOAATimeout)
	assert.Equal(t, "wgrib2", cfg.Wgrib2Path)
	assert.Equal(t, []string{"precipitationCal", "precipitation", "precip"}, cfg.GPMCandidates)
	assert.Equal(t, domain.DefaultLevels, cfg.Levels.Levels())
	assert.Equal(t, 1.0, cfg.Sigma)
	assert.False(t, cfg.ClosedEdges)
	assert.Equal(t, 0.1, cfg.RasterMinValue)
	assert.Empty(t, cfg.KafkaBrokers)
	assert.Equal(t, "precipitation-contours", cfg.KafkaContourTopic)
	assert.False(t, cfg.PublishEnabled)
}

func TestLoad_CustomEnv(t *testing.T) {
	t.Setenv("HTTP_ADDR", ":9090")
	t.Setenv("LOG_LEVEL", "debug")
	t.Setenv("LOG_FORMAT", "text")
	t.Setenv("SHUTDOWN_TIMEOUT", "30s")
	t.Setenv("DATA_DIR", "/srv/gpm")
	t.Setenv("TEMP_DIR", "/tmp/precip")
	t.Setenv("NOAA_BASE_URL", "http://localhost:1234/filter")
	t.Setenv("NOAA_TIMEOUT", "60s")
	t.Setenv("WGRIB2_PATH", "/opt/bin/wgrib2")
	t.Setenv("CONTOUR_LEVELS", "1, 2,4")
	t.Setenv("CONTOUR_SIGMA", "1.5")
	t.Setenv("CONTOUR_CLOSED_EDGES", "true")
	t.Setenv("RASTER_MIN_VALUE", "0.25")
	t.Setenv("KAFKA_BROKERS", "broker1:9092,broker2:9092")
	t.Setenv("KAFKA_CONTOUR_TOPIC", "custom-contours")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, ":9090", cfg.HTTPAddr)
	assert.Equal(t, "debug", cfg.LogLevel)
	assert.Equal(t, "text", cfg.LogFormat)
	assert.Equal(t, 30*time.Second, cfg.ShutdownTimeout)
	assert.Equal(t, "/srv/gpm", cfg.DataDir)
	assert.Equal(t, "/tmp/precip", cfg.TempDir)
	assert.Equal(t, "http://localhost:1234/filter", cfg.NOAABaseURL)
	assert.Equal(t, 60*time.Second, cfg.NOAATimeout)
	assert.Equal(t, "/opt/bin/wgrib2", cfg.Wgrib2Path)
	assert.Equal(t, []float64{1, 2, 4}, cfg.Levels.Levels())
	assert.Equal(t, 1.5, cfg.Sigma)
	assert.True(t, cfg.ClosedEdges)
	assert.Equal(t, 0.25, cfg.RasterMinValue)
	assert.Equal(t, []string{"broker1:9092", "broker2:9092"}, cfg.KafkaBrokers)
	assert.Equal(t, "custom-contours", cfg.KafkaContourTopic)
	assert.True(t, cfg.PublishEnabled)
}

func TestLoad_Invalid(t *testing.T) {
	tests := []struct {
		name, key, value, want string
	}{
		{"shutdown timeout", "SHUTDOWN_TIMEOUT", "not-a-duration", "SHUTDOWN_TIMEOUT"},
		{"negative shutdown timeout", "SHUTDOWN_TIMEOUT", "-1s", "SHUTDOWN_TIMEOUT"},
		{"noaa timeout", "NOAA_TIMEOUT", "0s", "NOAA_TIMEOUT"},
		{"levels not increasing", "CONTOUR_LEVELS", "5,1", "CONTOUR_LEVELS"},
		{"levels not numbers", "CONTOUR_LEVELS", "a,b", "CONTOUR_LEVELS"},
		{"sigma negative", "CONTOUR_SIGMA", "-1", "CONTOUR_SIGMA"},
		{"sigma text", "CONTOUR_SIGMA", "wide", "CONTOUR_SIGMA"},
		{"closed edges", "CONTOUR_CLOSED_EDGES", "maybe", "CONTOUR_CLOSED_EDGES"},
		{"raster min", "RASTER_MIN_VALUE", "NaN", "RASTER_MIN_VALUE"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv(tt.key, tt.value)
			_, err := Load()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestLoad_InvalidLevelsAreConfigurationErrors(t *testing.T) {
	t.Setenv("CONTOUR_LEVELS", "1,1")
	_, err := Load()
	assert.ErrorIs(t, err, domain.ErrConfiguration)
}

func TestLoad_File(t *testing.T) {
	path := writeYAML(t, `
levels: [0.2, 1, 8]
sigma: 2
closed_edges: true
raster_min_value: 0.5
gpm_variables: [precipitation]
`)
	t.Setenv("PRECIP_CONFIG_FILE", path)

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, []float64{0.2, 1, 8}, cfg.Levels.Levels())
	assert.Equal(t, 2.0, cfg.Sigma)
	assert.True(t, cfg.ClosedEdges)
	assert.Equal(t, 0.5, cfg.RasterMinValue)
	assert.Equal(t, []string{"precipitation"}, cfg.GPMCandidates)
}

func TestLoad_EnvOverridesFile(t *testing.T) {
	path := writeYAML(t, "sigma: 2\nclosed_edges: true\n")
	t.Setenv("PRECIP_CONFIG_FILE", path)
	t.Setenv("CONTOUR_SIGMA", "0.5")
	t.Setenv("CONTOUR_CLOSED_EDGES", "false")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, 0.5, cfg.Sigma)
	assert.False(t, cfg.ClosedEdges)
	assert.Equal(t, domain.DefaultLevels, cfg.Levels.Levels(), "unset keys keep defaults")
}

func TestLoad_FileErrors(t *testing.T) {
	t.Run("missing file", func(t *testing.T) {
		t.Setenv("PRECIP_CONFIG_FILE", filepath.Join(t.TempDir(), "nope.yaml"))
		_, err := Load()
		assert.Error(t, err)
	})

	t.Run("bad levels", func(t *testing.T) {
		t.Setenv("PRECIP_CONFIG_FILE", writeYAML(t, "levels: [3, 2]\n"))
		_, err := Load()
		assert.ErrorIs(t, err, domain.ErrConfiguration)
	})

	t.Run("bad sigma", func(t *testing.T) {
		t.Setenv("PRECIP_CONFIG_FILE", writeYAML(t, "sigma: 50\n"))
		_, err := Load()
		assert.ErrorIs(t, err, domain.ErrConfiguration)
	})
}

func TestParseSigma(t *testing.T) {
	v, err := ParseSigma("1.25")
	require.NoError(t, err)
	assert.Equal(t, 1.25, v)

	v, err = ParseSigma("0")
	require.NoError(t, err)
	assert.Zero(t, v)

	for _, s := range []string{"", "x", "-0.5", "11", "Inf"} {
		_, err := ParseSigma(s)
		assert.ErrorIs(t, err, domain.ErrConfiguration, s)
	}
}
