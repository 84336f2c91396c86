// Package kafka publishes scraped records to a Kafka topic
package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/abelzeko/danube-cote/internal/entities"
	kafkago "github.com/segmentio/kafka-go"
	"go.uber.org/zap"
)

// messageWriter is the part of kafkago.Writer the publisher uses
type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafkago.Message) error
	Close() error
}

// Publisher produces one message per record
type Publisher struct {
	writer messageWriter
	logger *zap.SugaredLogger
}

// NewPublisher creates a producer for topic on brokers
func NewPublisher(brokers []string, topic string, logger *zap.SugaredLogger) *Publisher {
	w := &kafkago.Writer{
		Addr:         kafkago.TCP(brokers...),
		Topic:        topic,
		Balancer:     &kafkago.Hash{},
		RequiredAcks: kafkago.RequireAll,
	}
	return &Publisher{writer: w, logger: logger}
}

// Publish sends all records in a single WriteMessages call. Records are
// keyed by station so one station's readings stay ordered on a partition.
func (p *Publisher) Publish(ctx context.Context, records []entities.MeasurementRecord) error {
	if len(records) == 0 {
		return nil
	}
	msgs := make([]kafkago.Message, len(records))
	for i := range records {
		msg, err := serializeToMessage(records[i])
		if err != nil {
			return err
		}
		msgs[i] = msg
	}
	if err := p.writer.WriteMessages(ctx, msgs...); err != nil {
		return fmt.Errorf("failed to publish records: %w", err)
	}
	p.logger.Infof("Published %d records to Kafka", len(msgs))
	return nil
}

func (p *Publisher) Close() error {
	return p.writer.Close()
}

func serializeToMessage(rec entities.MeasurementRecord) (kafkago.Message, error) {
	data, err := json.Marshal(rec)
	if err != nil {
		return kafkago.Message{}, fmt.Errorf("serialize record for %s: %w", rec.Station, err)
	}
	return kafkago.Message{
		Key:   []byte(strconv.Itoa(rec.StationID)),
		Value: data,
		Headers: []kafkago.Header{
			{Key: "layout", Value: []byte(rec.Layout)},
			{Key: "run_id", Value: []byte(rec.RunID)},
			{Key: "captured_at", Value: []byte(rec.CapturedAt.Format(time.RFC3339))},
		},
	}, nil
}
