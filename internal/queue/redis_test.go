package queue

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

type testRecord struct {
	RequestID string `json:"request_id"`
	Tokens    int    `json:"tokens"`
}

func setupRedis(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	t.Helper()

	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("Failed to start miniredis: %v", err)
	}
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})

	t.Cleanup(func() {
		client.Close()
		mr.Close()
	})
	return mr, client
}

func TestRedisQueue_EnqueueDequeue(t *testing.T) {
	mr, client := setupRedis(t)

	q, err := NewRedisQueue[testRecord](client, DefaultConfig("usage"))
	if err != nil {
		t.Fatalf("NewRedisQueue failed: %v", err)
	}
	defer q.Close()

	ctx := context.Background()
	for i := 0; i < 3; i++ {
		if err := q.Enqueue(ctx, testRecord{RequestID: "r", Tokens: i}); err != nil {
			t.Fatalf("Enqueue failed: %v", err)
		}
	}

	if !mr.Exists("queue:usage") {
		t.Fatal("Expected queue:usage key to exist")
	}

	length, err := q.Length(ctx)
	if err != nil {
		t.Fatalf("Length failed: %v", err)
	}
	if length != 3 {
		t.Errorf("Expected length 3, got %d", length)
	}

	items, err := q.Dequeue(ctx, 2, time.Second)
	if err != nil {
		t.Fatalf("Dequeue failed: %v", err)
	}
	if len(items) != 2 {
		t.Fatalf("Expected 2 items, got %d", len(items))
	}
	if items[0].Tokens != 0 || items[1].Tokens != 1 {
		t.Errorf("Expected FIFO order, got %+v", items)
	}

	items, err = q.Dequeue(ctx, 10, time.Second)
	if err != nil {
		t.Fatalf("Dequeue failed: %v", err)
	}
	if len(items) != 1 || items[0].Tokens != 2 {
		t.Errorf("Expected the last item, got %+v", items)
	}
}

func TestRedisQueue_EmptyTimeout(t *testing.T) {
	_, client := setupRedis(t)

	q, err := NewRedisQueue[testRecord](client, DefaultConfig("empty"))
	if err != nil {
		t.Fatalf("NewRedisQueue failed: %v", err)
	}

	items, err := q.Dequeue(context.Background(), 5, time.Second)
	if err != nil {
		t.Fatalf("Dequeue failed: %v", err)
	}
	if len(items) != 0 {
		t.Errorf("Expected no items, got %d", len(items))
	}
}

func TestRedisQueue_Closed(t *testing.T) {
	_, client := setupRedis(t)

	q, _ := NewRedisQueue[testRecord](client, DefaultConfig("closed"))
	_ = q.Close()

	if err := q.Enqueue(context.Background(), testRecord{}); !errors.Is(err, ErrQueueClosed) {
		t.Errorf("Expected ErrQueueClosed, got %v", err)
	}
}

func TestRedisQueue_Validation(t *testing.T) {
	_, client := setupRedis(t)

	if _, err := NewRedisQueue[testRecord](nil, DefaultConfig("x")); err == nil {
		t.Error("Expected error for nil client")
	}
	if _, err := NewRedisQueue[testRecord](client, &Config{}); err == nil {
		t.Error("Expected error for missing name")
	}
}

func TestRedisDeadLetterQueue(t *testing.T) {
	_, client := setupRedis(t)

	dlq, err := NewRedisDeadLetterQueue[testRecord](client, DefaultConfig("usage"))
	if err != nil {
		t.Fatalf("NewRedisDeadLetterQueue failed: %v", err)
	}
	ctx := context.Background()

	if err := dlq.Add(ctx, testRecord{RequestID: "first"}, errors.New("boom")); err != nil {
		t.Fatalf("Add failed: %v", err)
	}
	time.Sleep(2 * time.Millisecond)
	if err := dlq.Add(ctx, testRecord{RequestID: "second"}, errors.New("boom")); err != nil {
		t.Fatalf("Add failed: %v", err)
	}

	items, err := dlq.List(ctx, 0)
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if len(items) != 2 {
		t.Fatalf("Expected 2 items, got %d", len(items))
	}
	if items[0].Item.RequestID != "first" || items[0].Error != "boom" {
		t.Errorf("Unexpected first item: %+v", items[0])
	}

	if err := dlq.Remove(ctx, items[0].ID); err != nil {
		t.Fatalf("Remove failed: %v", err)
	}
	if err := dlq.Remove(ctx, items[0].ID); !errors.Is(err, ErrItemNotFound) {
		t.Errorf("Expected ErrItemNotFound, got %v", err)
	}

	items, _ = dlq.List(ctx, 10)
	if len(items) != 1 || items[0].Item.RequestID != "second" {
		t.Errorf("Expected only the second item, got %+v", items)
	}
}
