package kafka

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	kafkago "github.com/segmentio/kafka-go"

	"github.com/couchcryptid/precip-contour-service/internal/adapter/vector"
	"github.com/couchcryptid/precip-contour-service/internal/config"
	"github.com/couchcryptid/precip-contour-service/internal/domain"
)

// Writer publishes contour sets to a Kafka topic.
// It implements pipeline.Publisher.
type Writer struct {
	writer *kafkago.Writer
	logger *slog.Logger
}

// NewWriter creates a Kafka producer for the configured contour topic.
func NewWriter(cfg *config.Config, logger *slog.Logger) *Writer {
	w := &kafkago.Writer{
		Addr:         kafkago.TCP(cfg.KafkaBrokers...),
		Topic:        cfg.KafkaContourTopic,
		Balancer:     &kafkago.LeastBytes{},
		RequiredAcks: kafkago.RequireAll,
	}
	return &Writer{writer: w, logger: logger}
}

// Publish writes set as a single GeoJSON message keyed by the grid id.
func (w *Writer) Publish(ctx context.Context, set domain.ContourSet) error {
	msg, err := serializeToMessage(set)
	if err != nil {
		return err
	}
	if err := w.writer.WriteMessages(ctx, msg); err != nil {
		return fmt.Errorf("publish contours %s: %w", set.ID, err)
	}
	w.logger.Debug("contours published", "source", set.Source, "id", set.ID, "polygons", len(set.Polygons))
	return nil
}

func (w *Writer) Close() error {
	return w.writer.Close()
}

// serializeToMessage encodes a ContourSet as a Kafka message whose value is
// the FeatureCollection served in vector mode.
func serializeToMessage(set domain.ContourSet) (kafkago.Message, error) {
	data, err := vector.Marshal(set.Polygons)
	if err != nil {
		return kafkago.Message{}, fmt.Errorf("serialize contours: %w", err)
	}
	return kafkago.Message{
		Key:   []byte(string(set.Source) + ":" + set.ID),
		Value: data,
		Headers: []kafkago.Header{
			{Key: "source", Value: []byte(set.Source)},
			{Key: "generated_at", Value: []byte(set.GeneratedAt.Format(time.RFC3339))},
			{Key: "polygon_count", Value: []byte(strconv.Itoa(len(set.Polygons)))},
			{Key: "label", Value: []byte(set.Label)},
		},
	}, nil
}
