package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"sync/atomic"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisQueue implements Queue with a Redis list of JSON documents. The
// client is shared and owned by the caller.
type RedisQueue[T any] struct {
	client *redis.Client
	qKey   string
	closed atomic.Bool
}

// NewRedisQueue creates a Redis-backed queue under key "queue:<name>"
func NewRedisQueue[T any](client *redis.Client, config *Config) (*RedisQueue[T], error) {
	if client == nil {
		return nil, fmt.Errorf("redis client is required")
	}
	if config == nil || config.Name == "" {
		return nil, fmt.Errorf("queue name is required")
	}

	return &RedisQueue[T]{
		client: client,
		qKey:   fmt.Sprintf("queue:%s", config.Name),
	}, nil
}

// Enqueue adds an item to the queue
func (q *RedisQueue[T]) Enqueue(ctx context.Context, item T) error {
	if q.closed.Load() {
		return ErrQueueClosed
	}

	data, err := json.Marshal(item)
	if err != nil {
		return fmt.Errorf("failed to marshal item: %w", err)
	}

	if err := q.client.RPush(ctx, q.qKey, data).Err(); err != nil {
		return fmt.Errorf("failed to push to Redis: %w", err)
	}

	return nil
}

// Dequeue retrieves up to maxItems items
func (q *RedisQueue[T]) Dequeue(ctx context.Context, maxItems int, timeout time.Duration) ([]T, error) {
	if maxItems <= 0 {
		maxItems = 1
	}
	if timeout < 0 {
		timeout = 0
	}

	// BLPOP returns [key, value]
	result, err := q.client.BLPop(ctx, timeout, q.qKey).Result()
	if errors.Is(err, redis.Nil) {
		return []T{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to pop from Redis: %w", err)
	}

	items := make([]T, 0, maxItems)
	first, err := q.decode(result[1])
	if err != nil {
		return nil, err
	}
	items = append(items, first)

	for len(items) < maxItems {
		raw, err := q.client.LPop(ctx, q.qKey).Result()
		if err != nil {
			// redis.Nil means the list is empty; other errors keep what we have
			break
		}
		item, err := q.decode(raw)
		if err != nil {
			return items, err
		}
		items = append(items, item)
	}

	return items, nil
}

func (q *RedisQueue[T]) decode(raw string) (T, error) {
	var item T
	if err := json.Unmarshal([]byte(raw), &item); err != nil {
		return item, fmt.Errorf("failed to unmarshal queue item: %w", err)
	}
	return item, nil
}

// Length returns the current queue length
func (q *RedisQueue[T]) Length(ctx context.Context) (int, error) {
	length, err := q.client.LLen(ctx, q.qKey).Result()
	if err != nil {
		return 0, fmt.Errorf("failed to get queue length: %w", err)
	}
	return int(length), nil
}

// Close stops accepting new items
func (q *RedisQueue[T]) Close() error {
	q.closed.Store(true)
	return nil
}

// RedisDeadLetterQueue implements DeadLetterQueue with a Redis hash
type RedisDeadLetterQueue[T any] struct {
	client *redis.Client
	dlKey  string
}

// NewRedisDeadLetterQueue creates a DLQ under key "dlq:<name>"
func NewRedisDeadLetterQueue[T any](client *redis.Client, config *Config) (*RedisDeadLetterQueue[T], error) {
	if client == nil {
		return nil, fmt.Errorf("redis client is required")
	}
	if config == nil || config.Name == "" {
		return nil, fmt.Errorf("queue name is required")
	}

	return &RedisDeadLetterQueue[T]{
		client: client,
		dlKey:  fmt.Sprintf("dlq:%s", config.Name),
	}, nil
}

// Add adds a failed item to the dead letter queue
func (q *RedisDeadLetterQueue[T]) Add(ctx context.Context, item T, err error) error {
	dlItem := newDeadLetterItem(item, err)

	data, marshalErr := json.Marshal(dlItem)
	if marshalErr != nil {
		return fmt.Errorf("failed to marshal dead letter item: %w", marshalErr)
	}

	if err := q.client.HSet(ctx, q.dlKey, dlItem.ID, data).Err(); err != nil {
		return fmt.Errorf("failed to add to dead letter queue: %w", err)
	}

	return nil
}

// List returns up to maxItems items, oldest first. maxItems <= 0 lists all.
func (q *RedisDeadLetterQueue[T]) List(ctx context.Context, maxItems int) ([]DeadLetterItem[T], error) {
	results, err := q.client.HGetAll(ctx, q.dlKey).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to list dead letter items: %w", err)
	}

	items := make([]DeadLetterItem[T], 0, len(results))
	for _, data := range results {
		var dlItem DeadLetterItem[T]
		if err := json.Unmarshal([]byte(data), &dlItem); err != nil {
			continue // skip malformed items
		}
		items = append(items, dlItem)
	}

	sort.Slice(items, func(i, j int) bool {
		return items[i].Timestamp.Before(items[j].Timestamp)
	})
	if maxItems > 0 && len(items) > maxItems {
		items = items[:maxItems]
	}

	return items, nil
}

// Remove removes an item from the dead letter queue
func (q *RedisDeadLetterQueue[T]) Remove(ctx context.Context, id string) error {
	removed, err := q.client.HDel(ctx, q.dlKey, id).Result()
	if err != nil {
		return fmt.Errorf("failed to remove from dead letter queue: %w", err)
	}
	if removed == 0 {
		return ErrItemNotFound
	}
	return nil
}

// Close is a no-op; the client belongs to the caller
func (q *RedisDeadLetterQueue[T]) Close() error {
	return nil
}
