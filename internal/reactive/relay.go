package reactive

import (
	"sync"

	"github.com/roach88/rivulet/internal/sched"
)

// Relay is a Hub with a last-value cache. It is the base of every concrete
// stream in rivulet.
type Relay[T any] struct {
	hub *Hub[T]

	mu      sync.Mutex
	last    T
	hasLast bool
}

// NewRelay creates a relay.
func NewRelay[T any](cfg Config, hooks Hooks) *Relay[T] {
	return &Relay[T]{hub: NewHub[T](cfg, hooks)}
}

// On implements Stream.
func (r *Relay[T]) On(handler Handler[T]) (unsubscribe func()) {
	return r.hub.On(handler)
}

// Last implements WithLast.
func (r *Relay[T]) Last() (T, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.last, r.hasLast
}

func (r *Relay[T]) setLast(v T) {
	r.mu.Lock()
	r.last = v
	r.hasLast = true
	r.mu.Unlock()
}

// Publish records v as the last value and delivers it to subscribers.
func (r *Relay[T]) Publish(v T) error {
	if r.hub.IsDisposed() {
		return ErrDisposed
	}
	r.setLast(v)
	return r.hub.Notify(v)
}

// Dispose implements Disposable.
func (r *Relay[T]) Dispose(reason string) {
	r.hub.Dispose(reason)
}

// IsDisposed implements Disposable.
func (r *Relay[T]) IsDisposed() bool {
	return r.hub.IsDisposed()
}

// Fail terminates the stream with err.
func (r *Relay[T]) Fail(err error) bool {
	return r.hub.Fail(err)
}

// Terminate sends a done signal with the given context and error.
func (r *Relay[T]) Terminate(context string, err error) bool {
	return r.hub.Terminate(context, err)
}

// ID returns the stream ID.
func (r *Relay[T]) ID() string {
	return r.hub.ID()
}

// Scheduler implements Scheduled.
func (r *Relay[T]) Scheduler() sched.Scheduler {
	return r.hub.Scheduler()
}

// Hub exposes the underlying hub.
func (r *Relay[T]) Hub() *Hub[T] {
	return r.hub
}
