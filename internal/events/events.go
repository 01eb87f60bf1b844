// Package events carries settlement outcomes from the webhook handler to the
// side-effect worker over Kafka, so the gateway response never waits on
// printers, messaging or email.
package events

import (
	"encoding/json"
	"time"
)

const (
	// TopicOrderSettled receives one event per successful settlement.
	TopicOrderSettled = "orders.settled"

	EventOrderPaid    = "OrderPaid"
	EventPaymentRetry = "PaymentRetry"
)

// Envelope wraps every published event. Consumers dedup on EventID.
type Envelope struct {
	EventID       string          `json:"event_id"`
	EventType     string          `json:"event_type"`
	EventVersion  int             `json:"event_version"`
	OccurredAt    time.Time       `json:"occurred_at"`
	Producer      string          `json:"producer"`
	CorrelationID string          `json:"correlation_id,omitempty"`
	Payload       json.RawMessage `json:"payload"`
}

// OrderPaidPayload identifies the settled order the worker must fan out.
type OrderPaidPayload struct {
	OrderID     string `json:"order_id"`
	OrderNumber string `json:"order_number"`
	TenantID    string `json:"tenant_id"`
	PhoneNumber string `json:"phone_number"`
	Amount      string `json:"amount"`
}

// PaymentRetryPayload carries the fresh payment link the worker delivers
// after a decline spawned a clone order.
type PaymentRetryPayload struct {
	OrderID     string `json:"order_id"`
	OrderNumber string `json:"order_number"`
	TenantID    string `json:"tenant_id"`
	PhoneNumber string `json:"phone_number"`
	Amount      string `json:"amount"`
	PaymentLink string `json:"payment_link"`
}

func MustMarshal(v any) []byte {
	b, err := json.Marshal(v)
	if err != nil {
		panic(err)
	}
	return b
}
