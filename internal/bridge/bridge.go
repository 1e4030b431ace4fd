// Package bridge hands events from capture contexts to the single owner
// thread that is allowed to touch window and UI state.
package bridge

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"
)

// ErrClosed is returned by Post after Close.
var ErrClosed = errors.New("bridge closed")

// DefaultMaxPending bounds the queue before the oldest events are dropped.
const DefaultMaxPending = 4096

// DefaultLatencyWarn is the dequeue latency above which a warning is logged.
const DefaultLatencyWarn = 30 * time.Millisecond

// OverflowError describes events discarded because the consumer fell behind.
type OverflowError struct {
	Dropped int
	Pending int
}

func (e *OverflowError) Error() string {
	return fmt.Sprintf("bridge overflow: dropped %d oldest events with %d pending", e.Dropped, e.Pending)
}

// Options tunes a Bridge. Zero values select the defaults.
type Options struct {
	MaxPending  int
	LatencyWarn time.Duration
	// OnOverflow is called on the consumer goroutine after events were dropped.
	OnOverflow func(*OverflowError)
}

// Stats is a snapshot of bridge counters.
type Stats struct {
	Posted     uint64
	Handled    uint64
	Dropped    uint64
	Slow       uint64
	Pending    int
	MaxLatency time.Duration
}

type item[T any] struct {
	value T
	at    time.Time
}

// Bridge is an ordered multi-producer, single-consumer queue. Post never
// blocks on the consumer and performs no I/O.
type Bridge[T any] struct {
	mu      sync.Mutex
	queue   []item[T]
	closed  bool
	dropped int
	stats   Stats
	wake    chan struct{}
	done    chan struct{}
	opts    Options
	log     *zap.SugaredLogger
}

// New creates an open bridge.
func New[T any](opts Options, log *zap.SugaredLogger) *Bridge[T] {
	if opts.MaxPending <= 0 {
		opts.MaxPending = DefaultMaxPending
	}
	if opts.LatencyWarn <= 0 {
		opts.LatencyWarn = DefaultLatencyWarn
	}
	if log == nil {
		log = zap.NewNop().Sugar()
	}
	return &Bridge[T]{
		wake: make(chan struct{}, 1),
		done: make(chan struct{}),
		opts: opts,
		log:  log,
	}
}

// Post enqueues v. When the queue is full the oldest pending event is
// discarded; the consumer reports the loss. After Close it returns ErrClosed.
func (b *Bridge[T]) Post(v T) error {
	now := time.Now()

	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return ErrClosed
	}
	if len(b.queue) >= b.opts.MaxPending {
		var zero item[T]
		b.queue[0] = zero
		b.queue = b.queue[1:]
		b.dropped++
		b.stats.Dropped++
	}
	b.queue = append(b.queue, item[T]{value: v, at: now})
	b.stats.Posted++
	b.mu.Unlock()

	select {
	case b.wake <- struct{}{}:
	default:
	}
	return nil
}

// Close stops accepting events. Events already queued are still delivered
// by Run. Close is idempotent.
func (b *Bridge[T]) Close() {
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return
	}
	b.closed = true
	b.mu.Unlock()

	select {
	case b.wake <- struct{}{}:
	default:
	}
}

// Done is closed once Run has drained the queue after Close.
func (b *Bridge[T]) Done() <-chan struct{} {
	return b.done
}

// Len reports how many events are waiting.
func (b *Bridge[T]) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.queue)
}

// Stats returns a snapshot of the counters.
func (b *Bridge[T]) Stats() Stats {
	b.mu.Lock()
	defer b.mu.Unlock()
	s := b.stats
	s.Pending = len(b.queue)
	return s
}

// Run delivers events to handle in FIFO order on the calling goroutine until
// the bridge is closed and empty. Cancelling ctx closes the bridge; pending
// events are still drained. Run must be called from exactly one goroutine.
func (b *Bridge[T]) Run(ctx context.Context, handle func(T)) error {
	defer close(b.done)

	stop := context.AfterFunc(ctx, b.Close)
	defer stop()

	for {
		batch, dropped, closed := b.take()
		if dropped > 0 {
			b.reportOverflow(dropped, len(batch))
		}
		for _, it := range batch {
			b.observe(it.at)
			handle(it.value)
		}
		b.mu.Lock()
		b.stats.Handled += uint64(len(batch))
		b.mu.Unlock()

		if len(batch) > 0 {
			continue
		}
		if closed {
			return ctx.Err()
		}
		<-b.wake
	}
}

func (b *Bridge[T]) take() ([]item[T], int, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	batch := b.queue
	b.queue = nil
	dropped := b.dropped
	b.dropped = 0
	return batch, dropped, b.closed
}

func (b *Bridge[T]) observe(at time.Time) {
	latency := time.Since(at)
	b.mu.Lock()
	if latency > b.stats.MaxLatency {
		b.stats.MaxLatency = latency
	}
	slow := latency > b.opts.LatencyWarn
	if slow {
		b.stats.Slow++
	}
	b.mu.Unlock()

	if slow {
		b.log.Warnw("slow event dispatch", "latency", latency, "threshold", b.opts.LatencyWarn)
	}
}

func (b *Bridge[T]) reportOverflow(dropped, pending int) {
	err := &OverflowError{Dropped: dropped, Pending: pending}
	b.log.Errorw("event queue overflow", "dropped", dropped, "pending", pending)
	if b.opts.OnOverflow != nil {
		b.opts.OnOverflow(err)
	}
}
