// Package queue buffers key events between input producers and the frame
// loop that feeds the judging engine.
//
// Any goroutine may enqueue. Only the frame loop drains, so events reach the
// engine from a single goroutine.
package queue

import (
	"context"
	"sync"

	"github.com/okian/playalong/internal/domain/judge"
	"github.com/okian/playalong/pkg/metrics"
)

// Default queue configuration constants.
const (
	defaultQueueCapacity = 256
)

// Queue provides non-blocking enqueue and per-frame draining.
type Queue interface {
	// Enqueue adds an event. It never blocks.
	Enqueue(ctx context.Context, ev judge.KeyEvent) error

	// Drain removes up to limit buffered events in arrival order. A limit of
	// zero or less drains everything currently buffered.
	Drain(ctx context.Context, limit int) []judge.KeyEvent

	// Len returns the current number of queued events.
	Len() int

	// Close stops accepting events. Buffered events can still be drained.
	Close() error

	// IsClosed returns true if the queue has been closed.
	IsClosed() bool
}

// KeyQueue implements Queue using a buffered channel.
type KeyQueue struct {
	events       chan judge.KeyEvent
	capacity     int
	filterRepeat bool

	mu     sync.RWMutex
	closed bool

	heldMu sync.Mutex
	held   map[int]bool
}

var _ Queue = (*KeyQueue)(nil)

// NewKeyQueue creates a new key queue with configuration options.
func NewKeyQueue(opts ...Option) *KeyQueue {
	q := &KeyQueue{
		capacity:     defaultQueueCapacity,
		filterRepeat: true,
		held:         make(map[int]bool),
	}

	for _, opt := range opts {
		opt(q)
	}

	q.events = make(chan judge.KeyEvent, q.capacity)

	metrics.UpdateQueueCapacity(q.capacity)
	metrics.UpdateQueueSize(0)

	return q
}

// Enqueue adds an event to the queue.
func (q *KeyQueue) Enqueue(ctx context.Context, ev judge.KeyEvent) error {
	q.mu.RLock()
	defer q.mu.RUnlock()

	if q.closed {
		metrics.RecordQueueDrop("closed")
		return ErrClosed
	}

	if q.filterRepeat && q.repeated(ev) {
		metrics.RecordQueueDrop("autorepeat")
		return ErrAutoRepeat
	}

	select {
	case q.events <- ev:
		metrics.UpdateQueueSize(len(q.events))
		return nil
	case <-ctx.Done():
		metrics.RecordQueueDrop("context_cancelled")
		return ctx.Err()
	default:
		metrics.RecordQueueDrop("full")
		return ErrFull
	}
}

// repeated tracks held keys and reports a press of a key that is already
// down.
func (q *KeyQueue) repeated(ev judge.KeyEvent) bool {
	q.heldMu.Lock()
	defer q.heldMu.Unlock()

	if !ev.Down {
		delete(q.held, ev.Code)
		return false
	}
	if q.held[ev.Code] {
		return true
	}
	q.held[ev.Code] = true
	return false
}

// Drain removes up to limit buffered events in arrival order.
func (q *KeyQueue) Drain(ctx context.Context, limit int) []judge.KeyEvent {
	n := len(q.events)
	if limit > 0 && limit < n {
		n = limit
	}

	out := make([]judge.KeyEvent, 0, n)
	for len(out) < n {
		select {
		case ev := <-q.events:
			out = append(out, ev)
		case <-ctx.Done():
			metrics.UpdateQueueSize(len(q.events))
			return out
		default:
			metrics.UpdateQueueSize(len(q.events))
			return out
		}
	}
	metrics.UpdateQueueSize(len(q.events))
	return out
}

// Len returns the current number of queued events.
func (q *KeyQueue) Len() int {
	return len(q.events)
}

// Capacity returns the maximum number of buffered events.
func (q *KeyQueue) Capacity() int {
	return q.capacity
}

// Close stops accepting events.
func (q *KeyQueue) Close() error {
	q.mu.Lock()
	defer q.mu.Unlock()

	q.closed = true
	return nil
}

// IsClosed returns true if the queue has been closed.
func (q *KeyQueue) IsClosed() bool {
	q.mu.RLock()
	defer q.mu.RUnlock()
	return q.closed
}
