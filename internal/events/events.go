// Package events publishes domain events to Kafka for downstream consumers.
package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/IBM/sarama"

	"bookbridge-backend/internal/logger"
)

const (
	OrderCreated       = "order.created"
	OrderUpdated       = "order.updated"
	OrderStatusChanged = "order.status_changed"
	OrderReturned      = "order.returned"
	OrderDeleted       = "order.deleted"
	PaymentCreated     = "payment.created"
	PaymentDecided     = "payment.decided"
	RefundCreated      = "refund.created"
	RefundDecided      = "refund.decided"
	FineAssessed       = "fine.assessed"
	FineDecided        = "fine.decided"
	WalletAdjusted     = "wallet.adjusted"
	TicketAnswered     = "ticket.answered"
)

type Event struct {
	Type       string    `json:"type"`
	Key        string    `json:"key"`
	OccurredAt time.Time `json:"occurredAt"`
	Payload    any       `json:"payload"`
}

// Publisher delivers events. Delivery failures are logged, never returned,
// because publishing happens after the business change has committed.
type Publisher interface {
	Publish(ctx context.Context, eventType, key string, payload any)
	Close() error
}

func NewSyncProducer(brokers []string) (sarama.SyncProducer, error) {
	config := sarama.NewConfig()
	config.Producer.Return.Successes = true
	config.Producer.RequiredAcks = sarama.WaitForAll
	config.Producer.Retry.Max = 5

	producer, err := sarama.NewSyncProducer(brokers, config)
	if err != nil {
		return nil, fmt.Errorf("failed to create Kafka producer: %w", err)
	}

	logger.Info("Kafka producer initialized", "brokers", brokers)
	return producer, nil
}

type kafkaPublisher struct {
	producer sarama.SyncProducer
	topic    string
	now      func() time.Time
}

func NewKafkaPublisher(producer sarama.SyncProducer, topic string) Publisher {
	return &kafkaPublisher{producer: producer, topic: topic, now: time.Now}
}

func (p *kafkaPublisher) Publish(ctx context.Context, eventType, key string, payload any) {
	body, err := json.Marshal(Event{Type: eventType, Key: key, OccurredAt: p.now().UTC(), Payload: payload})
	if err != nil {
		logger.Warn("Failed to marshal event", "type", eventType, "error", err)
		return
	}

	msg := &sarama.ProducerMessage{
		Topic: p.topic,
		Key:   sarama.StringEncoder(key),
		Value: sarama.ByteEncoder(body),
		Headers: []sarama.RecordHeader{
			{Key: []byte("event-type"), Value: []byte(eventType)},
		},
	}

	logger.ExternalServiceCall("kafka", "SendMessage", "topic", p.topic, "type", eventType)
	partition, offset, err := p.producer.SendMessage(msg)
	logger.ExternalServiceResult("kafka", "SendMessage", err, "type", eventType, "partition", partition, "offset", offset)
}

func (p *kafkaPublisher) Close() error {
	return p.producer.Close()
}

type noopPublisher struct{}

// NewNoop returns a publisher that only logs at debug level.
func NewNoop() Publisher { return noopPublisher{} }

func (noopPublisher) Publish(ctx context.Context, eventType, key string, payload any) {
	logger.Debug("Event dropped, publishing disabled", "type", eventType, "key", key)
}

func (noopPublisher) Close() error { return nil }
