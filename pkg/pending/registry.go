// Package pending tracks in-flight calls keyed by identity until they settle.
//
// A record settles exactly once: by Settle, by its timeout clock, or by
// RejectAll. Every settlement path removes the record under the registry lock,
// so whichever path gets there first wins and the others are no-ops.
package pending

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"
)

const logPrefix = "pending:registry"

var (
	// ErrTimeout is the rejection of a record whose clock elapsed before settlement.
	ErrTimeout = errors.New("rpc timeout")

	// ErrDuplicateKey is returned by Register when the key is still live.
	ErrDuplicateKey = errors.New("pending key already registered")
)

// Outcome is the terminal value of a record: a value or an error.
type Outcome[T any] struct {
	Value T
	Err   error
}

// Params configures a Registry.
type Params[T any] struct {
	// Timeout applied to every record. Zero or negative disables expiry.
	Timeout time.Duration
	// OnSettle, if set, is called once per record after it settles, outside the lock.
	OnSettle func(h *Handle[T], o Outcome[T])
}

// Registry maps keys to live completion records.
type Registry[T any] struct {
	mu       sync.Mutex
	timeout  time.Duration
	onSettle func(h *Handle[T], o Outcome[T])
	records  map[string]*Handle[T]
}

// New creates an empty Registry.
func New[T any](params Params[T]) *Registry[T] {
	return &Registry[T]{
		timeout:  params.Timeout,
		onSettle: params.OnSettle,
		records:  make(map[string]*Handle[T]),
	}
}

// Register creates a record for key and starts its timeout clock.
func (r *Registry[T]) Register(key string) (*Handle[T], error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.records[key]; ok {
		return nil, fmt.Errorf("%s - %w: %s", logPrefix, ErrDuplicateKey, key)
	}

	h := &Handle[T]{
		key:     key,
		started: time.Now(),
		done:    make(chan struct{}),
	}
	if r.timeout > 0 {
		h.deadline = h.started.Add(r.timeout)
		h.timer = time.AfterFunc(r.timeout, func() { r.expire(h) })
	}
	r.records[key] = h
	return h, nil
}

// Settle finishes the record for key with o. It reports false, and does
// nothing, when no live record has that key.
func (r *Registry[T]) Settle(key string, o Outcome[T]) bool {
	r.mu.Lock()
	h, ok := r.records[key]
	if ok {
		delete(r.records, key)
	}
	r.mu.Unlock()

	if !ok {
		slog.Debug(fmt.Sprintf("%s - no live record for key=%s", logPrefix, key))
		return false
	}
	r.finish(h, o)
	return true
}

// Resolve settles key with a value.
func (r *Registry[T]) Resolve(key string, v T) bool {
	return r.Settle(key, Outcome[T]{Value: v})
}

// Reject settles key with an error.
func (r *Registry[T]) Reject(key string, err error) bool {
	return r.Settle(key, Outcome[T]{Err: err})
}

// RejectAll settles every live record with err and returns how many there were.
func (r *Registry[T]) RejectAll(err error) int {
	r.mu.Lock()
	live := make([]*Handle[T], 0, len(r.records))
	for key, h := range r.records {
		live = append(live, h)
		delete(r.records, key)
	}
	r.mu.Unlock()

	for _, h := range live {
		r.finish(h, Outcome[T]{Err: err})
	}
	return len(live)
}

// Len returns the number of live records.
func (r *Registry[T]) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.records)
}

// expire rejects h if it is still the live record for its key.
func (r *Registry[T]) expire(h *Handle[T]) {
	r.mu.Lock()
	cur, ok := r.records[h.key]
	if !ok || cur != h {
		r.mu.Unlock()
		return
	}
	delete(r.records, h.key)
	r.mu.Unlock()

	slog.Debug(fmt.Sprintf("%s - key=%s timed out after %s", logPrefix, h.key, r.timeout))
	r.finish(h, Outcome[T]{Err: ErrTimeout})
}

// finish must only be called by the path that removed h from the map.
func (r *Registry[T]) finish(h *Handle[T], o Outcome[T]) {
	if h.timer != nil {
		h.timer.Stop()
	}
	h.outcome = o
	close(h.done)
	if r.onSettle != nil {
		r.onSettle(h, o)
	}
}

// Handle is the caller's view of one record.
type Handle[T any] struct {
	key      string
	started  time.Time
	deadline time.Time
	timer    *time.Timer
	done     chan struct{}
	outcome  Outcome[T]
}

// Key returns the record's key.
func (h *Handle[T]) Key() string { return h.key }

// Started returns when the record was registered.
func (h *Handle[T]) Started() time.Time { return h.started }

// Deadline returns when the record times out; zero if it never does.
func (h *Handle[T]) Deadline() time.Time { return h.deadline }

// Done is closed once the record settles.
func (h *Handle[T]) Done() <-chan struct{} { return h.done }

// Settled returns the outcome without blocking. ok is false while pending.
func (h *Handle[T]) Settled() (o Outcome[T], ok bool) {
	select {
	case <-h.done:
		return h.outcome, true
	default:
		return o, false
	}
}

// Wait blocks until the record settles or ctx is done. Giving up on ctx does
// not settle the record.
func (h *Handle[T]) Wait(ctx context.Context) (T, error) {
	select {
	case <-h.done:
		return h.outcome.Value, h.outcome.Err
	case <-ctx.Done():
		var zero T
		return zero, ctx.Err()
	}
}
