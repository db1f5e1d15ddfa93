package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/IBM/sarama"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// CalendarUpdated announces that a materialization run rewrote part of a
// property's pricing calendar. Downstream booking/display and analytics
// consumers re-read the affected window.
type CalendarUpdated struct {
	ID          string   `json:"id"`
	PropertyID  string   `json:"property_id"`
	UnitIDs     []string `json:"unit_ids"`
	From        string   `json:"from"` // YYYY-MM-DD
	To          string   `json:"to"`
	RowsWritten int      `json:"rows_written"`
	Forced      bool     `json:"forced"`
	Timestamp   int64    `json:"timestamp"`
}

// CalendarPublisher defines the interface for publishing calendar events
type CalendarPublisher interface {
	// PublishCalendarUpdated publishes a calendar updated event
	PublishCalendarUpdated(ctx context.Context, ev CalendarUpdated) error

	// Close closes the publisher
	Close() error
}

// NewCalendarUpdated builds an event with a fresh id and timestamp.
func NewCalendarUpdated(propertyID string, unitIDs []string, from, to time.Time, rows int, forced bool) CalendarUpdated {
	return CalendarUpdated{
		ID:          uuid.New().String(),
		PropertyID:  propertyID,
		UnitIDs:     unitIDs,
		From:        from.Format("2006-01-02"),
		To:          to.Format("2006-01-02"),
		RowsWritten: rows,
		Forced:      forced,
		Timestamp:   time.Now().Unix(),
	}
}

// NoopPublisher discards events. Used when Kafka is disabled.
type NoopPublisher struct{}

func (NoopPublisher) PublishCalendarUpdated(ctx context.Context, ev CalendarUpdated) error {
	return nil
}

func (NoopPublisher) Close() error { return nil }

// KafkaPublisher publishes calendar events to a Kafka topic.
type KafkaPublisher struct {
	producer sarama.SyncProducer
	topic    string
	logger   *zap.Logger
}

// NewKafkaPublisher connects a synchronous producer to the given brokers.
func NewKafkaPublisher(brokers []string, topic string, logger *zap.Logger) (*KafkaPublisher, error) {
	cfg := sarama.NewConfig()
	cfg.Producer.Return.Successes = true
	cfg.Producer.RequiredAcks = sarama.WaitForAll
	cfg.Producer.Retry.Max = 3

	producer, err := sarama.NewSyncProducer(brokers, cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create kafka producer: %w", err)
	}

	return &KafkaPublisher{producer: producer, topic: topic, logger: logger}, nil
}

// PublishCalendarUpdated publishes the event keyed by property id so
// per-property ordering is preserved across partitions.
func (p *KafkaPublisher) PublishCalendarUpdated(ctx context.Context, ev CalendarUpdated) error {
	payload, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	msg := &sarama.ProducerMessage{
		Topic: p.topic,
		Key:   sarama.StringEncoder(ev.PropertyID),
		Value: sarama.ByteEncoder(payload),
	}

	partition, offset, err := p.producer.SendMessage(msg)
	if err != nil {
		p.logger.Error("Failed to publish calendar event",
			zap.String("event_id", ev.ID),
			zap.String("property_id", ev.PropertyID),
			zap.Error(err))
		return fmt.Errorf("failed to publish event %s: %w", ev.ID, err)
	}

	p.logger.Debug("Published calendar event",
		zap.String("event_id", ev.ID),
		zap.String("property_id", ev.PropertyID),
		zap.Int32("partition", partition),
		zap.Int64("offset", offset))
	return nil
}

// Close closes the underlying producer.
func (p *KafkaPublisher) Close() error {
	if p.producer != nil {
		return p.producer.Close()
	}
	return nil
}
