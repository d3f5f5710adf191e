package amqp

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"
)

const (
	defaultQueueSize     = 256
	maxDeliveryAttempts  = 3
	defaultDrainDeadline = 5 * time.Second
)

var (
	ErrQueueFull   = errors.New("event queue is full")
	ErrQueueClosed = errors.New("event queue is closed")
)

type sender interface {
	Publish(ctx context.Context, ev *LedgerEvent) error
}

// Queue decouples request handling from the broker. Publish only enqueues;
// a single goroutine delivers events in order, backing off between
// attempts when the connection drops.
type Queue struct {
	next    sender
	events  chan *LedgerEvent
	backoff func(attempt int) time.Duration
	drain   time.Duration

	mu     sync.RWMutex
	closed bool

	ctx     context.Context
	cancel  context.CancelFunc
	done    chan struct{}
	dropped atomic.Int64
}

type QueueOption func(*Queue)

// WithBackoff replaces the delay between delivery attempts.
func WithBackoff(fn func(attempt int) time.Duration) QueueOption {
	return func(q *Queue) { q.backoff = fn }
}

// WithDrainDeadline bounds how long Close waits for queued events.
func WithDrainDeadline(d time.Duration) QueueOption {
	return func(q *Queue) { q.drain = d }
}

// NewQueue starts the delivery goroutine. size <= 0 uses the default.
func NewQueue(next sender, size int, opts ...QueueOption) *Queue {
	if size <= 0 {
		size = defaultQueueSize
	}
	ctx, cancel := context.WithCancel(context.Background())
	q := &Queue{
		next:    next,
		events:  make(chan *LedgerEvent, size),
		backoff: exponentialBackoff,
		drain:   defaultDrainDeadline,
		ctx:     ctx,
		cancel:  cancel,
		done:    make(chan struct{}),
	}
	for _, opt := range opts {
		opt(q)
	}
	go q.run()
	return q
}

// Publish enqueues ev without blocking.
func (q *Queue) Publish(_ context.Context, ev *LedgerEvent) error {
	q.mu.RLock()
	defer q.mu.RUnlock()
	if q.closed {
		return ErrQueueClosed
	}
	select {
	case q.events <- ev:
		return nil
	default:
		q.dropped.Add(1)
		return ErrQueueFull
	}
}

// Dropped counts events that never reached the broker.
func (q *Queue) Dropped() int64 {
	return q.dropped.Load()
}

func (q *Queue) run() {
	defer close(q.done)
	for ev := range q.events {
		q.deliver(ev)
	}
}

func (q *Queue) deliver(ev *LedgerEvent) {
	var err error
	for attempt := 0; ; attempt++ {
		if err = q.next.Publish(q.ctx, ev); err == nil {
			return
		}
		if attempt+1 >= maxDeliveryAttempts || errors.Is(err, ErrCircuitOpen) || !isConnectionError(err) {
			break
		}
		if !q.wait(q.backoff(attempt)) {
			err = q.ctx.Err()
			break
		}
	}
	q.dropped.Add(1)
	slog.Warn("Dropped ledger event",
		"event_id", ev.ID,
		"event_type", ev.Type,
		"error", err.Error())
}

// wait sleeps for d and reports false when the queue was cancelled first.
func (q *Queue) wait(d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-q.ctx.Done():
		return false
	case <-t.C:
		return true
	}
}

// Close stops accepting events, waits up to the drain deadline for queued
// ones and then closes the underlying sender when it is an io.Closer.
func (q *Queue) Close() error {
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return nil
	}
	q.closed = true
	close(q.events)
	q.mu.Unlock()

	select {
	case <-q.done:
	case <-time.After(q.drain):
		q.cancel()
		<-q.done
	}
	q.cancel()

	if c, ok := q.next.(io.Closer); ok {
		return c.Close()
	}
	return nil
}
