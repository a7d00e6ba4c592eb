package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/bloodbank/bloodbank/internal/ledger"
	"github.com/bloodbank/bloodbank/internal/sequence"
)

type Publisher struct {
	ch                 *amqp.Channel
	seqRepo            *sequence.Repository
	producerIdentifier string
}

type PublisherOptions struct {
	Producer string
}

func NewPublisher(conn *amqp.Connection, seqRepo *sequence.Repository, opts PublisherOptions) (*Publisher, error) {
	ch, err := conn.Channel()
	if err != nil {
		return nil, fmt.Errorf("open channel: %w", err)
	}

	if err := declareEventsExchange(ch); err != nil {
		return nil, fmt.Errorf("declare events exchange: %w", err)
	}

	producer := opts.Producer
	if producer == "" {
		producer = ledgerServiceName
	}

	return &Publisher{
		ch:                 ch,
		seqRepo:            seqRepo,
		producerIdentifier: producer,
	}, nil
}

func (p *Publisher) Close() error {
	return p.ch.Close()
}

// LowStock publishes a low-stock alert event, sequenced per blood group so
// consumers can detect gaps and drop stale duplicates. Satisfies ledger.AlertSink.
func (p *Publisher) LowStock(ctx context.Context, alert ledger.LowStockAlert) error {
	partitionKey := string(alert.BloodGroup)

	seq, err := p.seqRepo.NextSequence(ctx, partitionKey)
	if err != nil {
		return fmt.Errorf("low stock sequence: %w", err)
	}

	env := LowStockEvent{
		EventEnvelope: EventEnvelope{
			EventName:    EventTypeLowStock,
			EventVersion: 1,
			EventID:      uuid.NewString(),
			Producer:     p.producerIdentifier,
			PartitionKey: partitionKey,
			Sequence:     seq,
			OccurredAt:   alert.Timestamp,
			Schema:       lowStockSchema,
		},
		Payload: LowStockPayload{
			BloodGroup:   string(alert.BloodGroup),
			Quantity:     alert.Quantity,
			MinThreshold: alert.MinThreshold,
			Message:      alert.Message,
			Timestamp:    alert.Timestamp,
		},
	}

	body, err := json.Marshal(env)
	if err != nil {
		return fmt.Errorf("marshal LowStockDetected: %w", err)
	}

	return p.publishJSON(ctx, LowStockRoutingKey, body)
}

func (p *Publisher) publishJSON(ctx context.Context, routingKey string, body []byte) error {
	pubCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	return p.ch.PublishWithContext(
		pubCtx,
		EventsExchange,
		routingKey,
		false,
		false,
		amqp.Publishing{
			ContentType:  "application/json",
			DeliveryMode: amqp.Persistent,
			Body:         body,
		},
	)
}
