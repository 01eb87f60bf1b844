package events

import (
	"context"
	"time"

	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"
)

// Handler must return nil only when the event was fully processed and the
// offset may be committed; a non-nil error leaves the message uncommitted
// for redelivery (at-least-once).
type Handler func(ctx context.Context, m kafka.Message) error

type Consumer struct {
	r       *kafka.Reader
	log     *zap.Logger
	workers int
}

func NewConsumer(brokers []string, group, topic string, workers int, log *zap.Logger) *Consumer {
	r := kafka.NewReader(kafka.ReaderConfig{
		Brokers:        brokers,
		GroupID:        group,
		Topic:          topic,
		MinBytes:       1,
		MaxBytes:       10e6,
		CommitInterval: 0, // manual commit
	})
	if workers <= 0 {
		workers = 1
	}
	return &Consumer{r: r, log: log, workers: workers}
}

// Start reads until the context is cancelled, fanning messages out to the
// worker pool. A panicking handler is recovered and treated as a failure.
func (c *Consumer) Start(ctx context.Context, h Handler) error {
	defer c.r.Close()

	jobs := make(chan kafka.Message, 256)

	for i := 0; i < c.workers; i++ {
		go func() {
			for m := range jobs {
				if err := c.handle(ctx, h, m); err != nil {
					c.log.Error("event handler", zap.Error(err),
						zap.String("topic", m.Topic), zap.Int64("offset", m.Offset))
					time.Sleep(200 * time.Millisecond)
					continue
				}
				if err := c.r.CommitMessages(ctx, m); err != nil {
					c.log.Error("commit offset", zap.Error(err))
				}
			}
		}()
	}

	for {
		m, err := c.r.ReadMessage(ctx)
		if err != nil {
			close(jobs)
			select {
			case <-ctx.Done():
				return nil
			default:
				return err
			}
		}
		select {
		case jobs <- m:
		case <-ctx.Done():
			close(jobs)
			return nil
		}
	}
}

func (c *Consumer) handle(ctx context.Context, h Handler, m kafka.Message) (err error) {
	defer func() {
		if r := recover(); r != nil {
			c.log.Error("event handler panic", zap.Any("panic", r))
			err = nil // poison message, do not retry forever
		}
	}()
	return h(ctx, m)
}
