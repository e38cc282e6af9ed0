package queue

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"
)

func TestPoolDeliversEachIDOnce(t *testing.T) {
	q := NewChanQueue(16)

	var mu sync.Mutex
	seen := map[int64]int{}
	done := make(chan struct{}, 16)

	pool := NewPool(q, 4, func(_ context.Context, id int64) {
		mu.Lock()
		seen[id]++
		mu.Unlock()
		done <- struct{}{}
	})

	ctx, cancel := context.WithCancel(context.Background())
	go pool.Run(ctx)

	for i := int64(1); i <= 8; i++ {
		if err := q.Enqueue(ctx, i); err != nil {
			t.Fatalf("enqueue %d: %v", i, err)
		}
	}
	for i := 0; i < 8; i++ {
		select {
		case <-done:
		case <-time.After(2 * time.Second):
			t.Fatal("timed out waiting for workers")
		}
	}
	cancel()

	mu.Lock()
	defer mu.Unlock()
	if len(seen) != 8 {
		t.Fatalf("saw %d distinct ids, want 8", len(seen))
	}
	for id, n := range seen {
		if n != 1 {
			t.Errorf("id %d handled %d times, want 1", id, n)
		}
	}
}

func TestEnqueueFullBuffer(t *testing.T) {
	q := NewChanQueue(1)
	ctx := context.Background()

	if err := q.Enqueue(ctx, 1); err != nil {
		t.Fatalf("first enqueue: %v", err)
	}
	err := q.Enqueue(ctx, 2)
	if !errors.Is(err, ErrQueueFull) {
		t.Fatalf("second enqueue: got %v, want ErrQueueFull", err)
	}
}

func TestPoolStopsOnCancel(t *testing.T) {
	q := NewChanQueue(1)
	pool := NewPool(q, 2, func(context.Context, int64) {})

	ctx, cancel := context.WithCancel(context.Background())
	stopped := make(chan struct{})
	go func() {
		pool.Run(ctx)
		close(stopped)
	}()

	cancel()
	select {
	case <-stopped:
	case <-time.After(2 * time.Second):
		t.Fatal("pool did not stop after cancel")
	}
}
