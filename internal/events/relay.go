package events

import (
	"context"
	"time"

	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"

	"github.com/electrosolucion2025/Whats2Want/internal/repository"
)

const (
	relayInterval  = time.Second
	relayBatchSize = 100
	writeTimeout   = 10 * time.Second
)

// Relay drains staged outbox rows to the broker. Rows stay pending until the
// broker acknowledges the write, so delivery is at least once and consumers
// dedup on the envelope id.
type Relay struct {
	w       *kafka.Writer
	outbox  repository.OutboxRepository
	log     *zap.Logger
	closeCh chan struct{}
}

func NewRelay(brokers []string, topic string, outbox repository.OutboxRepository, log *zap.Logger) *Relay {
	return &Relay{
		w: &kafka.Writer{
			Addr:         kafka.TCP(brokers...),
			Topic:        topic,
			Balancer:     &kafka.Hash{},
			RequiredAcks: kafka.RequireAll,
		},
		outbox:  outbox,
		log:     log,
		closeCh: make(chan struct{}),
	}
}

func (r *Relay) Start(ctx context.Context) {
	go func() {
		ticker := time.NewTicker(relayInterval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				// Final drain so events settled during shutdown still leave.
				r.drain(context.Background())
				_ = r.w.Close()
				close(r.closeCh)
				return
			case <-ticker.C:
				r.drain(ctx)
			}
		}
	}()
}

// drain ships one batch. Broker errors leave the rows pending; the next tick
// retries them.
func (r *Relay) drain(ctx context.Context) {
	pending, err := r.outbox.PendingBatch(ctx, relayBatchSize)
	if err != nil {
		r.log.Error("load pending events", zap.Error(err))
		return
	}
	if len(pending) == 0 {
		return
	}

	msgs := make([]kafka.Message, 0, len(pending))
	ids := make([]string, 0, len(pending))
	for _, e := range pending {
		msgs = append(msgs, kafka.Message{
			Key:   []byte(e.Key),
			Value: e.Payload,
			Time:  e.CreatedAt,
			Headers: []kafka.Header{
				{Key: "x-event-type", Value: []byte(e.EventType)},
				{Key: "x-event-version", Value: []byte("1")},
			},
		})
		ids = append(ids, e.ID)
	}

	wctx, cancel := context.WithTimeout(ctx, writeTimeout)
	defer cancel()
	if err := r.w.WriteMessages(wctx, msgs...); err != nil {
		r.log.Error("publish events", zap.Error(err), zap.Int("batch", len(msgs)))
		return
	}
	if err := r.outbox.MarkPublished(ctx, ids); err != nil {
		r.log.Error("mark events published", zap.Error(err))
	}
}

func (r *Relay) WaitClosed() { <-r.closeCh }
