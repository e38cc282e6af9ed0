// Package queue hands accepted task IDs from the intake path to the
// background workers that run their pipelines.
package queue

import (
	"context"
	"errors"
	"log"
	"sync"
)

// Queue is the transport between the gatekeeper and the pipeline workers.
// Delivery is at-least-once; processing is idempotent on the consumer side.
type Queue interface {
	Enqueue(ctx context.Context, taskID int64) error
}

// ErrQueueFull is returned by Enqueue when the buffer is at capacity.
var ErrQueueFull = errors.New("job queue is full")

// ChanQueue is an in-process Queue backed by a buffered channel.
type ChanQueue struct {
	jobs chan int64
}

// NewChanQueue creates a ChanQueue with the given buffer size.
func NewChanQueue(size int) *ChanQueue {
	return &ChanQueue{jobs: make(chan int64, size)}
}

// Enqueue submits a task ID without blocking the request path. A full
// buffer is reported to the caller rather than waited out.
func (q *ChanQueue) Enqueue(ctx context.Context, taskID int64) error {
	select {
	case q.jobs <- taskID:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	default:
		return ErrQueueFull
	}
}

// Handler processes one dequeued task ID. It is invoked by exactly one
// worker at a time per ID taken off the queue.
type Handler func(ctx context.Context, taskID int64)

// Pool drains a ChanQueue with a fixed number of workers.
type Pool struct {
	queue   *ChanQueue
	workers int
	handler Handler
}

// NewPool creates a Pool of n workers over q.
func NewPool(q *ChanQueue, n int, h Handler) *Pool {
	if n < 1 {
		n = 1
	}
	return &Pool{queue: q, workers: n, handler: h}
}

// Run starts the workers and blocks until ctx is cancelled and all workers
// have returned. A worker finishes its current task before stopping.
func (p *Pool) Run(ctx context.Context) {
	var wg sync.WaitGroup
	for i := 0; i < p.workers; i++ {
		wg.Add(1)
		go func(id int) {
			defer wg.Done()
			p.work(ctx, id)
		}(i)
	}
	wg.Wait()
}

func (p *Pool) work(ctx context.Context, id int) {
	for {
		select {
		case <-ctx.Done():
			log.Printf("queue: worker %d stopping", id)
			return
		case taskID := <-p.queue.jobs:
			p.handler(ctx, taskID)
		}
	}
}
