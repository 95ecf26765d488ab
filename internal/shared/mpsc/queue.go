// Package mpsc provides an unbounded multi-producer, single-consumer queue.
//
// A queue has one consuming end (Receiver) and any number of producing
// handles (Sender). Sending never blocks. A Sender fails only once the
// Receiver has been closed, and hands the rejected value back inside a
// SendError. The Receiver reports ErrDisconnected once every Sender has
// been closed and the queue is drained.
package mpsc

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
)

var (
	// ErrClosed is returned when the consuming end of a queue is gone.
	ErrClosed = errors.New("mpsc: queue closed")
	// ErrEmpty is returned by TryRecv when nothing is queued right now.
	ErrEmpty = errors.New("mpsc: queue empty")
	// ErrDisconnected is returned once the queue is empty and no sender is left.
	ErrDisconnected = errors.New("mpsc: all senders closed")
)

// SendError carries a value that could not be enqueued back to its producer.
type SendError[T any] struct {
	Value T
}

func (e *SendError[T]) Error() string {
	return "mpsc: send on closed queue"
}

func (e *SendError[T]) Unwrap() error {
	return ErrClosed
}

type queue[T any] struct {
	mu      sync.Mutex
	items   []T
	head    int
	senders int
	closed  bool

	// ready holds at most one pending wake-up for the consumer.
	ready chan struct{}
}

// New creates a queue and returns its first producing handle and its
// consuming end.
func New[T any]() (*Sender[T], *Receiver[T]) {
	q := &queue[T]{
		senders: 1,
		ready:   make(chan struct{}, 1),
	}
	return &Sender[T]{q: q}, &Receiver[T]{q: q}
}

func (q *queue[T]) notify() {
	select {
	case q.ready <- struct{}{}:
	default:
	}
}

// Sender is a producing handle. It is safe for concurrent use; use Clone to
// hand an independent handle to another producer.
type Sender[T any] struct {
	q      *queue[T]
	closed atomic.Bool
}

// Send enqueues v without blocking.
func (s *Sender[T]) Send(v T) error {
	if s.closed.Load() {
		return &SendError[T]{Value: v}
	}

	q := s.q
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return &SendError[T]{Value: v}
	}
	q.items = append(q.items, v)
	q.mu.Unlock()

	q.notify()
	return nil
}

// Clone returns a new handle onto the same queue.
func (s *Sender[T]) Clone() *Sender[T] {
	s.q.mu.Lock()
	s.q.senders++
	s.q.mu.Unlock()
	return &Sender[T]{q: s.q}
}

// Close releases this handle. Closing the last handle lets the receiver
// observe ErrDisconnected after it has drained the queue. Close is idempotent.
func (s *Sender[T]) Close() {
	if !s.closed.CompareAndSwap(false, true) {
		return
	}

	q := s.q
	q.mu.Lock()
	q.senders--
	last := q.senders == 0
	q.mu.Unlock()

	if last {
		q.notify()
	}
}

// Receiver is the single consuming end of a queue. It must only be used
// from one goroutine at a time.
type Receiver[T any] struct {
	q *queue[T]
}

// TryRecv dequeues the oldest value without blocking. It returns ErrEmpty
// when nothing is queued, ErrDisconnected when nothing is queued and every
// sender is closed, and ErrClosed after Close.
func (r *Receiver[T]) TryRecv() (T, error) {
	var zero T
	q := r.q

	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		return zero, ErrClosed
	}
	if q.head < len(q.items) {
		v := q.items[q.head]
		q.items[q.head] = zero
		q.head++
		if q.head == len(q.items) {
			q.items = q.items[:0]
			q.head = 0
		}
		return v, nil
	}
	if q.senders == 0 {
		return zero, ErrDisconnected
	}
	return zero, ErrEmpty
}

// Recv blocks until a value is available, every sender is gone, or ctx ends.
func (r *Receiver[T]) Recv(ctx context.Context) (T, error) {
	for {
		v, err := r.TryRecv()
		if !errors.Is(err, ErrEmpty) {
			return v, err
		}

		select {
		case <-ctx.Done():
			var zero T
			return zero, ctx.Err()
		case <-r.q.ready:
		}
	}
}

// Ready returns a channel that receives a value after a send or after the
// last sender closes. Wake-ups may be spurious; always follow with TryRecv.
func (r *Receiver[T]) Ready() <-chan struct{} {
	return r.q.ready
}

// Len reports the number of queued values.
func (r *Receiver[T]) Len() int {
	r.q.mu.Lock()
	defer r.q.mu.Unlock()
	return len(r.q.items) - r.q.head
}

// Close destroys the consuming end. Queued values are discarded and every
// later Send fails with a SendError.
func (r *Receiver[T]) Close() {
	q := r.q
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return
	}
	q.closed = true
	q.items = nil
	q.head = 0
	q.mu.Unlock()

	q.notify()
}
