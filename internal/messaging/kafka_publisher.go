package messaging

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/segmentio/kafka-go"

	"github.com/staktlabs/arb-finder-service/internal/models"
)

// KafkaPublisher publishes detected arbitrage opportunities to Kafka for
// downstream alerting. Opportunities are never cached or stored by the
// core; the topic is a fire-and-forget notification stream.
type KafkaPublisher struct {
	writer *kafka.Writer
	logger zerolog.Logger
}

// KafkaPublisherConfig holds Kafka publisher configuration
type KafkaPublisherConfig struct {
	Brokers []string // e.g., ["localhost:9092"]
	Topic   string   // e.g., "arb_opportunities"
}

// NewKafkaPublisher creates a new Kafka publisher
func NewKafkaPublisher(config KafkaPublisherConfig, logger zerolog.Logger) *KafkaPublisher {
	writer := &kafka.Writer{
		Addr:         kafka.TCP(config.Brokers...),
		Topic:        config.Topic,
		Balancer:     &kafka.LeastBytes{},
		BatchTimeout: 100 * time.Millisecond,
	}

	return &KafkaPublisher{
		writer: writer,
		logger: logger.With().Str("component", "kafka_publisher").Logger(),
	}
}

// PublishOpportunities sends one message carrying all opportunities found
// for a sport. Publishing nothing is a no-op.
func (p *KafkaPublisher) PublishOpportunities(ctx context.Context, sportKey string, opportunities []models.ArbitrageOpportunity) error {
	if len(opportunities) == 0 {
		return nil
	}

	msg := models.KafkaOpportunityMessage{
		SportKey:      sportKey,
		Opportunities: opportunities,
		Timestamp:     time.Now().UTC(),
		BatchID:       uuid.NewString(),
	}

	value, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("failed to marshal opportunity message: %w", err)
	}

	if err := p.writer.WriteMessages(ctx, kafka.Message{
		Key:   []byte(sportKey),
		Value: value,
	}); err != nil {
		return fmt.Errorf("failed to write to Kafka: %w", err)
	}

	p.logger.Info().
		Str("sport_key", sportKey).
		Int("opportunity_count", len(opportunities)).
		Str("batch_id", msg.BatchID).
		Msg("published opportunities")

	return nil
}

// Close closes the Kafka writer
func (p *KafkaPublisher) Close() error {
	return p.writer.Close()
}
