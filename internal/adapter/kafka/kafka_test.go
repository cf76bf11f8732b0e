package kafka

import (
	"testing"
	"time"

	"github.com/paulmach/orb"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/couchcryptid/precip-contour-service/internal/adapter/vector"
	"github.com/couchcryptid/precip-contour-service/internal/config"
	"github.com/couchcryptid/precip-contour-service/internal/domain"
)

func TestSerializeToMessage(t *testing.T) {
	now := time.Date(2025, 12, 18, 0, 15, 0, 0, time.UTC)
	set := domain.ContourSet{
		ID:          "20251218-00",
		Source:      domain.SourceGFS,
		Label:       "18 Dec 2025 - 00:00 UTC",
		GeneratedAt: now,
		Polygons: []domain.ContourPolygon{
			{Level: 5, Ring: orb.Ring{{0, 0}, {1, 0}, {1, 1}, {0, 0}}},
		},
	}

	msg, err := serializeToMessage(set)
	require.NoError(t, err)

	assert.Equal(t, []byte("gfs:20251218-00"), msg.Key)
	assert.Contains(t, string(msg.Value), `"type":"FeatureCollection"`)
	require.Len(t, msg.Headers, 4)
	assert.Equal(t, "source", msg.Headers[0].Key)
	assert.Equal(t, []byte("gfs"), msg.Headers[0].Value)
	assert.Equal(t, "generated_at", msg.Headers[1].Key)
	assert.Equal(t, []byte(now.Format(time.RFC3339)), msg.Headers[1].Value)
	assert.Equal(t, "polygon_count", msg.Headers[2].Key)
	assert.Equal(t, []byte("1"), msg.Headers[2].Value)
	assert.Equal(t, "label", msg.Headers[3].Key)

	polys, err := vector.Unmarshal(msg.Value)
	require.NoError(t, err)
	require.Len(t, polys, 1)
	assert.Equal(t, 5.0, polys[0].Level)
}

func TestSerializeToMessage_Empty(t *testing.T) {
	msg, err := serializeToMessage(domain.ContourSet{ID: "g.nc4", Source: domain.SourceGPM})
	require.NoError(t, err)
	assert.JSONEq(t, `{"type":"FeatureCollection","features":[]}`, string(msg.Value))
	assert.Equal(t, []byte("0"), msg.Headers[2].Value)
}

func TestNewWriter_UsesConfig(t *testing.T) {
	cfg := &config.Config{KafkaBrokers: []string{"b1:9092", "b2:9092"}, KafkaContourTopic: "contours"}
	w := NewWriter(cfg, nil)
	assert.Equal(t, "contours", w.writer.Topic)
	require.NoError(t, w.Close())
}
