package queue

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/learnhub/lms-backend/internal/config"
	"github.com/redis/go-redis/v9"
)

// ErrEmpty is returned by Pop when nothing arrived before the timeout.
var ErrEmpty = errors.New("queue empty")

// NotificationQueue is a Redis list of outbox ids awaiting delivery.
type NotificationQueue struct {
	rdb *redis.Client
	key string
}

// NewNotificationQueue creates a queue on the configured list key.
func NewNotificationQueue(rdb *redis.Client) *NotificationQueue {
	return &NotificationQueue{rdb: rdb, key: config.WorkerKey.NotificationQueue}
}

// Enqueue appends an outbox id.
func (q *NotificationQueue) Enqueue(ctx context.Context, outboxID uuid.UUID) error {
	if err := q.rdb.RPush(ctx, q.key, outboxID.String()).Err(); err != nil {
		return fmt.Errorf("enqueue notification: %w", err)
	}
	return nil
}

// Pop blocks up to timeout for the next id.
func (q *NotificationQueue) Pop(ctx context.Context, timeout time.Duration) (uuid.UUID, error) {
	item, err := q.rdb.BLPop(ctx, timeout, q.key).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return uuid.Nil, ErrEmpty
		}
		return uuid.Nil, err
	}
	if len(item) < 2 {
		return uuid.Nil, ErrEmpty
	}

	id, err := uuid.Parse(item[1])
	if err != nil {
		return uuid.Nil, fmt.Errorf("parse queued id %q: %w", item[1], err)
	}
	return id, nil
}

// Len reports the number of ids waiting.
func (q *NotificationQueue) Len(ctx context.Context) (int64, error) {
	return q.rdb.LLen(ctx, q.key).Result()
}
