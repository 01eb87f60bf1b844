package events

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/electrosolucion2025/Whats2Want/internal/model"
	"github.com/electrosolucion2025/Whats2Want/internal/repository"
)

// Publisher stages events in the outbox inside the caller's transaction.
// The event commits atomically with the settlement state change; the relay
// takes it to the broker afterwards.
type Publisher interface {
	PublishOrderPaid(ctx context.Context, tx *gorm.DB, p OrderPaidPayload) error
	PublishPaymentRetry(ctx context.Context, tx *gorm.DB, p PaymentRetryPayload) error
}

type outboxPublisher struct {
	outbox  repository.OutboxRepository
	service string
}

func NewPublisher(outbox repository.OutboxRepository, service string) Publisher {
	return &outboxPublisher{outbox: outbox, service: service}
}

func (o *outboxPublisher) PublishOrderPaid(ctx context.Context, tx *gorm.DB, p OrderPaidPayload) error {
	return o.stage(ctx, tx, EventOrderPaid, p.OrderID, MustMarshal(p))
}

func (o *outboxPublisher) PublishPaymentRetry(ctx context.Context, tx *gorm.DB, p PaymentRetryPayload) error {
	return o.stage(ctx, tx, EventPaymentRetry, p.OrderID, MustMarshal(p))
}

func (o *outboxPublisher) stage(ctx context.Context, tx *gorm.DB, eventType, orderID string, payload []byte) error {
	env := Envelope{
		EventID:       uuid.NewString(),
		EventType:     eventType,
		EventVersion:  1,
		OccurredAt:    time.Now().UTC(),
		Producer:      o.service,
		CorrelationID: orderID,
		Payload:       payload,
	}
	return o.outbox.Append(ctx, tx, &model.OutboxEvent{
		ID:        env.EventID,
		EventType: eventType,
		Key:       orderID,
		Payload:   MustMarshal(env),
	})
}
