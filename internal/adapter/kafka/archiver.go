package kafka

import (
	"context"
	"log/slog"

	kafkago "github.com/segmentio/kafka-go"

	"github.com/orbitwatch/neo-insights-etl/internal/config"
	"github.com/orbitwatch/neo-insights-etl/internal/domain"
)

// Archiver publishes raw feed batches to a Kafka topic, one message per
// batch. The object name keys the message, so replayed cycles land on
// the same partition and downstream compaction keeps the latest copy.
type Archiver struct {
	writer *kafkago.Writer
	logger *slog.Logger
}

// NewArchiver creates a Kafka producer for the configured archive topic.
func NewArchiver(cfg *config.Config, logger *slog.Logger) *Archiver {
	w := &kafkago.Writer{
		Addr:         kafkago.TCP(cfg.KafkaBrokers...),
		Topic:        cfg.KafkaTopic,
		Balancer:     &kafkago.LeastBytes{},
		RequiredAcks: kafkago.RequireAll,
	}
	return &Archiver{writer: w, logger: logger}
}

// Archive publishes the batch document under the given object name.
func (a *Archiver) Archive(ctx context.Context, name string, data []byte) error {
	msg := kafkago.Message{
		Key:   []byte(name),
		Value: data,
	}
	if err := a.writer.WriteMessages(ctx, msg); err != nil {
		return &domain.ArchiveError{Object: name, Err: err}
	}

	a.logger.Debug("batch archived", "topic", a.writer.Topic, "object", name, "bytes", len(data))
	return nil
}

func (a *Archiver) Close() error {
	return a.writer.Close()
}
