package kafka

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/timbale/registration-service/pkg/logger"

	"github.com/IBM/sarama"
)

// DefaultTopicUserRegistered is the default topic for registration events
const DefaultTopicUserRegistered = "user.registered"

// RegistrationEvent is the message published after a customer is created
type RegistrationEvent struct {
	Identification  string    `json:"identification"`
	SiigoCustomerID string    `json:"siigo_customer_id"`
	Email           string    `json:"email"`
	Status          string    `json:"status"`
	EmailSent       bool      `json:"email_sent"`
	Timestamp       time.Time `json:"timestamp"`
}

// Producer publishes registration events. May be nil-checked by callers:
// event publishing is optional and never blocks a registration.
type Producer interface {
	PublishRegistrationEvent(ctx context.Context, event RegistrationEvent) error
	Close() error
}

type registrationProducer struct {
	producer sarama.SyncProducer
	topic    string
	log      *logger.Logger
}

// NewRegistrationProducer creates a sarama-backed registration event producer
func NewRegistrationProducer(brokers []string, topic string, log *logger.Logger) (Producer, error) {
	if len(brokers) == 0 {
		return nil, errors.New("kafka brokers are not configured")
	}
	if topic == "" {
		topic = DefaultTopicUserRegistered
	}

	producer, err := sarama.NewSyncProducer(brokers, NewSaramaConfig())
	if err != nil {
		return nil, fmt.Errorf("failed to create kafka producer: %w", err)
	}

	log.Infow("Kafka producer initialized", "brokers", brokers, "topic", topic)

	return &registrationProducer{
		producer: producer,
		topic:    topic,
		log:      log,
	}, nil
}

// NewSaramaConfig returns the producer configuration
func NewSaramaConfig() *sarama.Config {
	cfg := sarama.NewConfig()
	cfg.Version = sarama.V3_3_0_0
	cfg.Producer.RequiredAcks = sarama.WaitForAll
	cfg.Producer.Compression = sarama.CompressionSnappy
	cfg.Producer.Return.Successes = true
	cfg.Producer.Return.Errors = true
	return cfg
}

// PublishRegistrationEvent marshals the event and sends it keyed by the
// identification number, so all events for one person land in one partition.
func (p *registrationProducer) PublishRegistrationEvent(_ context.Context, event RegistrationEvent) error {
	value, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal registration event: %w", err)
	}

	message := &sarama.ProducerMessage{
		Topic: p.topic,
		Key:   sarama.StringEncoder(event.Identification),
		Value: sarama.ByteEncoder(value),
		Headers: []sarama.RecordHeader{
			{
				Key:   []byte("event_type"),
				Value: []byte(p.topic),
			},
		},
		Timestamp: time.Now(),
	}

	partition, offset, err := p.producer.SendMessage(message)
	if err != nil {
		return fmt.Errorf("failed to publish registration event: %w", err)
	}

	p.log.Info("Published registration event to topic %s: partition=%d offset=%d",
		p.topic, partition, offset)
	return nil
}

// Close closes the underlying producer
func (p *registrationProducer) Close() error {
	return p.producer.Close()
}
