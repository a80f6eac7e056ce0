package queue

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"
)

func TestMemoryQueue_EnqueueDequeue(t *testing.T) {
	q := NewMemoryQueue[string](DefaultConfig("test"))
	defer q.Close()

	ctx := context.Background()

	if err := q.Enqueue(ctx, "req-1"); err != nil {
		t.Fatalf("Enqueue failed: %v", err)
	}

	items, err := q.Dequeue(ctx, 1, time.Second)
	if err != nil {
		t.Fatalf("Dequeue failed: %v", err)
	}
	if len(items) != 1 {
		t.Fatalf("Expected 1 item, got %d", len(items))
	}
	if items[0] != "req-1" {
		t.Errorf("Expected req-1, got %v", items[0])
	}
}

func TestMemoryQueue_Batching(t *testing.T) {
	q := NewMemoryQueue[int](DefaultConfig("test"))
	defer q.Close()

	ctx := context.Background()
	for i := 0; i < 10; i++ {
		if err := q.Enqueue(ctx, i); err != nil {
			t.Fatalf("Enqueue failed: %v", err)
		}
	}

	items, err := q.Dequeue(ctx, 4, time.Second)
	if err != nil {
		t.Fatalf("Dequeue failed: %v", err)
	}
	if len(items) != 4 {
		t.Fatalf("Expected 4 items, got %d", len(items))
	}
	for i, v := range items {
		if v != i {
			t.Errorf("Expected FIFO order, position %d got %d", i, v)
		}
	}

	length, _ := q.Length(ctx)
	if length != 6 {
		t.Errorf("Expected 6 remaining, got %d", length)
	}
}

func TestMemoryQueue_Timeout(t *testing.T) {
	q := NewMemoryQueue[int](DefaultConfig("test"))
	defer q.Close()

	start := time.Now()
	items, err := q.Dequeue(context.Background(), 10, 50*time.Millisecond)
	if err != nil {
		t.Fatalf("Dequeue failed: %v", err)
	}
	if len(items) != 0 {
		t.Errorf("Expected no items, got %d", len(items))
	}
	if time.Since(start) < 50*time.Millisecond {
		t.Error("Dequeue returned before the timeout")
	}
}

func TestMemoryQueue_Full(t *testing.T) {
	config := DefaultConfig("test")
	config.Capacity = 2
	q := NewMemoryQueue[int](config)
	defer q.Close()

	ctx := context.Background()
	_ = q.Enqueue(ctx, 1)
	_ = q.Enqueue(ctx, 2)

	if err := q.Enqueue(ctx, 3); !errors.Is(err, ErrQueueFull) {
		t.Errorf("Expected ErrQueueFull, got %v", err)
	}
}

func TestMemoryQueue_CloseDrains(t *testing.T) {
	q := NewMemoryQueue[int](DefaultConfig("test"))
	ctx := context.Background()

	_ = q.Enqueue(ctx, 1)
	_ = q.Enqueue(ctx, 2)
	if err := q.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}
	// second close is harmless
	_ = q.Close()

	if err := q.Enqueue(ctx, 3); !errors.Is(err, ErrQueueClosed) {
		t.Errorf("Expected ErrQueueClosed, got %v", err)
	}

	items, err := q.Dequeue(ctx, 10, 0)
	if err != nil {
		t.Fatalf("Dequeue after close failed: %v", err)
	}
	if len(items) != 2 {
		t.Errorf("Expected 2 drained items, got %d", len(items))
	}

	if _, err := q.Dequeue(ctx, 10, 0); !errors.Is(err, ErrQueueClosed) {
		t.Errorf("Expected ErrQueueClosed on empty closed queue, got %v", err)
	}
}

func TestMemoryQueue_ContextCancel(t *testing.T) {
	q := NewMemoryQueue[int](DefaultConfig("test"))
	defer q.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	_, err := q.Dequeue(ctx, 1, 0)
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("Expected deadline exceeded, got %v", err)
	}
}

func TestMemoryQueue_Concurrent(t *testing.T) {
	config := DefaultConfig("test")
	config.Capacity = 1000
	q := NewMemoryQueue[int](config)
	defer q.Close()

	ctx := context.Background()
	var wg sync.WaitGroup
	for g := 0; g < 10; g++ {
		wg.Add(1)
		go func(base int) {
			defer wg.Done()
			for i := 0; i < 50; i++ {
				if err := q.Enqueue(ctx, base*100+i); err != nil {
					t.Errorf("Enqueue failed: %v", err)
				}
			}
		}(g)
	}
	wg.Wait()

	total := 0
	for total < 500 {
		items, err := q.Dequeue(ctx, 64, 100*time.Millisecond)
		if err != nil {
			t.Fatalf("Dequeue failed: %v", err)
		}
		if len(items) == 0 {
			break
		}
		total += len(items)
	}
	if total != 500 {
		t.Errorf("Expected 500 items, got %d", total)
	}
}

func TestMemoryDeadLetterQueue(t *testing.T) {
	dlq := NewMemoryDeadLetterQueue[string]()
	ctx := context.Background()

	if err := dlq.Add(ctx, "a", errors.New("insert failed")); err != nil {
		t.Fatalf("Add failed: %v", err)
	}
	if err := dlq.Add(ctx, "b", nil); err != nil {
		t.Fatalf("Add failed: %v", err)
	}

	items, err := dlq.List(ctx, 0)
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if len(items) != 2 {
		t.Fatalf("Expected 2 items, got %d", len(items))
	}
	if items[0].Item != "a" || items[0].Error != "insert failed" {
		t.Errorf("Unexpected first item: %+v", items[0])
	}
	if items[0].ID == "" || items[0].ID == items[1].ID {
		t.Errorf("Expected unique ids, got %q and %q", items[0].ID, items[1].ID)
	}

	limited, _ := dlq.List(ctx, 1)
	if len(limited) != 1 {
		t.Errorf("Expected 1 item with limit, got %d", len(limited))
	}

	if err := dlq.Remove(ctx, items[0].ID); err != nil {
		t.Fatalf("Remove failed: %v", err)
	}
	if err := dlq.Remove(ctx, items[0].ID); !errors.Is(err, ErrItemNotFound) {
		t.Errorf("Expected ErrItemNotFound, got %v", err)
	}

	_ = dlq.Close()
	if err := dlq.Add(ctx, "c", nil); !errors.Is(err, ErrQueueClosed) {
		t.Errorf("Expected ErrQueueClosed, got %v", err)
	}
}

func TestConfig_Backoff(t *testing.T) {
	config := DefaultConfig("test")
	config.RetryBackoff = 100 * time.Millisecond

	tests := []struct {
		attempt int
		want    time.Duration
	}{
		{0, 0},
		{1, 100 * time.Millisecond},
		{2, 200 * time.Millisecond},
		{3, 400 * time.Millisecond},
	}
	for _, tc := range tests {
		if got := config.Backoff(tc.attempt); got != tc.want {
			t.Errorf("Backoff(%d) = %v, want %v", tc.attempt, got, tc.want)
		}
	}
}
