// Package writequeue serializes the components that write to the ledger. Only
// one guard is outstanding at a time; waiters are served by priority, and a
// waiter passed over too often is served next regardless of priority.
package writequeue

import (
	"context"
	"slices"
	"sync/atomic"
	"time"

	"github.com/algorand/go-deadlock"
)

// Writer identifies a component that writes to the ledger. Lower values have
// higher priority.
type Writer int

// Set of known writers.
const (
	BlockProcessor Writer = iota
	ConfirmationHeight
	Voting
	Bootstrap
	Pruning
	Testing
)

// String implements the fmt.Stringer interface.
func (w Writer) String() string {
	switch w {
	case BlockProcessor:
		return "block_processor"
	case ConfirmationHeight:
		return "confirmation_height"
	case Voting:
		return "voting"
	case Bootstrap:
		return "bootstrap"
	case Pruning:
		return "pruning"
	case Testing:
		return "testing"
	}
	return "unknown"
}

// DefaultMaxSkips is the number of times a waiter can be passed over.
const DefaultMaxSkips = 8

// Observer is notified of every guard request.
type Observer interface {
	ObserveWait(writer string, err error, started time.Time)
}

// Config holds the queue settings.
type Config struct {
	MaxSkips int
	Observer Observer
}

// =============================================================================

type waiter struct {
	writer Writer
	ready  chan struct{}
	skips  int
}

// Queue hands out the write guard.
type Queue struct {
	mu       deadlock.Mutex
	owner    Writer
	busy     bool
	waiters  []*waiter
	maxSkips int
	observer Observer
}

// New constructs a queue.
func New(cfg Config) *Queue {
	if cfg.MaxSkips <= 0 {
		cfg.MaxSkips = DefaultMaxSkips
	}
	return &Queue{
		maxSkips: cfg.MaxSkips,
		observer: cfg.Observer,
	}
}

// Wait blocks until the writer holds the guard.
func (q *Queue) Wait(writer Writer) *Guard {
	g, _ := q.WaitContext(context.Background(), writer)
	return g
}

// WaitContext blocks until the writer holds the guard or the context is
// done.
func (q *Queue) WaitContext(ctx context.Context, writer Writer) (*Guard, error) {
	started := time.Now()

	q.mu.Lock()
	if !q.busy {
		q.busy = true
		q.owner = writer
		q.mu.Unlock()

		q.observe(writer, nil, started)
		return q.guard(writer), nil
	}

	w := waiter{writer: writer, ready: make(chan struct{})}
	q.waiters = append(q.waiters, &w)
	q.mu.Unlock()

	select {
	case <-w.ready:
		q.observe(writer, nil, started)
		return q.guard(writer), nil

	case <-ctx.Done():
		q.mu.Lock()
		idx := slices.Index(q.waiters, &w)
		if idx >= 0 {
			q.waiters = slices.Delete(q.waiters, idx, idx+1)
		}
		q.mu.Unlock()

		// The guard was handed over while the context expired.
		if idx < 0 {
			q.guard(writer).Release()
		}

		q.observe(writer, ctx.Err(), started)
		return nil, ctx.Err()
	}
}

// TryAcquire takes the guard only if it is free and nobody is waiting.
func (q *Queue) TryAcquire(writer Writer) (*Guard, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.busy {
		return nil, false
	}

	q.busy = true
	q.owner = writer
	return q.guard(writer), true
}

// Contains reports whether the writer holds the guard or is waiting for it.
func (q *Queue) Contains(writer Writer) bool {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.busy && q.owner == writer {
		return true
	}
	return slices.ContainsFunc(q.waiters, func(w *waiter) bool { return w.writer == writer })
}

// Waiting returns the number of writers blocked on the guard.
func (q *Queue) Waiting() int {
	q.mu.Lock()
	defer q.mu.Unlock()

	return len(q.waiters)
}

func (q *Queue) guard(writer Writer) *Guard {
	return &Guard{queue: q, writer: writer}
}

func (q *Queue) observe(writer Writer, err error, started time.Time) {
	if q.observer != nil {
		q.observer.ObserveWait(writer.String(), err, started)
	}
}

// release hands the guard to the next waiter.
func (q *Queue) release() {
	q.mu.Lock()
	defer q.mu.Unlock()

	if len(q.waiters) == 0 {
		q.busy = false
		return
	}

	next := q.next()
	w := q.waiters[next]
	q.waiters = slices.Delete(q.waiters, next, next+1)

	for _, other := range q.waiters {
		other.skips++
	}

	q.owner = w.writer
	close(w.ready)
}

// next picks the oldest starved waiter, else the oldest waiter of the highest
// priority.
func (q *Queue) next() int {
	for i, w := range q.waiters {
		if w.skips >= q.maxSkips {
			return i
		}
	}

	best := 0
	for i, w := range q.waiters {
		if w.writer < q.waiters[best].writer {
			best = i
		}
	}
	return best
}

// =============================================================================

// Guard is held by the writer allowed to write. Release is safe to call more
// than once.
type Guard struct {
	queue    *Queue
	writer   Writer
	released atomic.Bool
}

// Writer returns the writer that owns the guard.
func (g *Guard) Writer() Writer {
	return g.writer
}

// IsOwned reports whether the guard has not been released yet.
func (g *Guard) IsOwned() bool {
	return !g.released.Load()
}

// Release gives up the guard.
func (g *Guard) Release() {
	if g == nil || !g.released.CompareAndSwap(false, true) {
		return
	}
	g.queue.release()
}
