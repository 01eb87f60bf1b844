// Package redisx holds the redis client constructor and the key catalog.
// Redis is a fast path only; the database remains the source of truth for
// every idempotency decision.
package redisx

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	// Replay guard for gateway notifications: notify:seen:{sha256(blob)} -> order number.
	KeyNotificationSeen = "notify:seen:%s"

	// Consumer-side event dedup: dedup:{consumer}:{event_id}.
	KeyDedup = "dedup:%s:%s"
)

var (
	TTLNotificationSeen = 48 * time.Hour
	TTLDedup            = 48 * time.Hour
)

func New(addr string) *redis.Client {
	return redis.NewClient(&redis.Options{Addr: addr})
}

func Exists(ctx context.Context, rdb *redis.Client, key string) (bool, error) {
	n, err := rdb.Exists(ctx, key).Result()
	return n > 0, err
}

// Deduper records handled event ids under dedup:{consumer}:{event_id}. With a
// nil client it reports nothing as seen, leaving dedup to the guarded updates
// downstream.
type Deduper struct {
	rdb      *redis.Client
	consumer string
}

func NewDeduper(rdb *redis.Client, consumer string) *Deduper {
	return &Deduper{rdb: rdb, consumer: consumer}
}

func (d *Deduper) Seen(ctx context.Context, eventID string) (bool, error) {
	if d.rdb == nil || eventID == "" {
		return false, nil
	}
	return Exists(ctx, d.rdb, fmt.Sprintf(KeyDedup, d.consumer, eventID))
}

func (d *Deduper) Mark(ctx context.Context, eventID string) error {
	if d.rdb == nil || eventID == "" {
		return nil
	}
	return d.rdb.Set(ctx, fmt.Sprintf(KeyDedup, d.consumer, eventID), 1, TTLDedup).Err()
}
