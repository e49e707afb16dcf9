package reactive

import (
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"

	"github.com/roach88/rivulet/internal/metrics"
	"github.com/roach88/rivulet/internal/sched"
)

// Hooks are the lifecycle callbacks of a Hub.
//
// OnFirstSubscribe runs as a deferred task after the subscriber count goes
// from zero to one, and only if a subscriber is still present when the
// task runs. OnNoSubscribers runs synchronously when the count drops back
// to zero after an activation. OnDispose runs once, after the terminal
// signal has been delivered.
type Hooks struct {
	OnFirstSubscribe func()
	OnNoSubscribers  func()
	OnDispose        func()
}

type subscription[T any] struct {
	handler Handler[T]
	live    atomic.Bool
}

// Hub is the dispatch core of every stream: an ordered set of subscribers,
// activation bookkeeping and terminal-signal handling.
//
// Delivery uses a snapshot of the subscriber list taken before the first
// handler runs. A handler added during delivery does not receive the
// current message; a handler removed during delivery does not receive it
// either if it has not run yet.
//
// Thread-safety: all methods are safe for concurrent use. Handlers are
// invoked without the hub lock held, so they may subscribe, unsubscribe,
// publish or dispose re-entrantly.
type Hub[T any] struct {
	mu       sync.Mutex
	cfg      Config
	id       string
	log      *slog.Logger
	hooks    Hooks
	subs     []*subscription[T]
	disposed bool
	active   bool
	gen      uint64
	pending  uint64 // generation of the scheduled activation, 0 if none
}

// NewHub creates a hub. cfg should come from NewConfig.
func NewHub[T any](cfg Config, hooks Hooks) *Hub[T] {
	id := cfg.IDs.Generate()
	return &Hub[T]{
		cfg:   cfg,
		id:    id,
		log:   cfg.Logger.With("stream", cfg.Name, "kind", cfg.Kind, "stream_id", id),
		hooks: hooks,
	}
}

// ID returns the stream ID.
func (h *Hub[T]) ID() string {
	return h.id
}

// Name returns the stream's log label.
func (h *Hub[T]) Name() string {
	return h.cfg.Name
}

// Kind returns the stream type used as the metrics label.
func (h *Hub[T]) Kind() string {
	return h.cfg.Kind
}

// Scheduler returns the hub's scheduler.
func (h *Hub[T]) Scheduler() sched.Scheduler {
	return h.cfg.Scheduler
}

// Logger returns the hub's logger, tagged with the stream name and ID.
func (h *Hub[T]) Logger() *slog.Logger {
	return h.log
}

// Len returns the number of subscribers.
func (h *Hub[T]) Len() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.subs)
}

// IsDisposed reports whether a terminal signal has been sent.
func (h *Hub[T]) IsDisposed() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.disposed
}

// IsActive reports whether OnFirstSubscribe has run for the current
// subscriber period.
func (h *Hub[T]) IsActive() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.active
}

// On registers handler and returns its unsubscribe function.
// On a disposed hub it registers nothing and returns a no-op.
func (h *Hub[T]) On(handler Handler[T]) (unsubscribe func()) {
	if handler == nil {
		panic("rivulet: nil handler")
	}

	sub := &subscription[T]{handler: handler}
	sub.live.Store(true)

	h.mu.Lock()
	if h.disposed {
		h.mu.Unlock()
		return func() {}
	}
	h.subs = append(h.subs, sub)
	var gen uint64
	if len(h.subs) == 1 && !h.active && h.pending == 0 && h.hasActivationHooks() {
		h.gen++
		h.pending = h.gen
		gen = h.gen
	}
	h.mu.Unlock()

	metrics.TrackSubscribers(h.cfg.Kind, 1)
	if gen != 0 {
		h.cfg.Scheduler.Defer(func() { h.activate(gen) })
	}

	var once sync.Once
	return func() {
		once.Do(func() { h.remove(sub) })
	}
}

func (h *Hub[T]) hasActivationHooks() bool {
	return h.hooks.OnFirstSubscribe != nil || h.hooks.OnNoSubscribers != nil
}

func (h *Hub[T]) activate(gen uint64) {
	h.mu.Lock()
	if h.pending != gen {
		h.mu.Unlock()
		return
	}
	h.pending = 0
	if h.disposed || len(h.subs) == 0 {
		h.mu.Unlock()
		return
	}
	h.active = true
	h.mu.Unlock()

	h.log.Debug("stream activated")
	if h.hooks.OnFirstSubscribe != nil {
		h.hooks.OnFirstSubscribe()
	}
}

func (h *Hub[T]) remove(sub *subscription[T]) {
	h.mu.Lock()
	idx := -1
	for i, s := range h.subs {
		if s == sub {
			idx = i
			break
		}
	}
	if idx < 0 {
		h.mu.Unlock()
		return
	}
	sub.live.Store(false)

	// Copy so in-flight delivery snapshots keep their view.
	next := make([]*subscription[T], 0, len(h.subs)-1)
	next = append(next, h.subs[:idx]...)
	next = append(next, h.subs[idx+1:]...)
	h.subs = next

	stopped := h.settleEmptyLocked()
	h.mu.Unlock()

	metrics.TrackSubscribers(h.cfg.Kind, -1)
	if stopped {
		h.deactivate()
	}
}

// settleEmptyLocked cancels a pending activation and reports whether an
// active period just ended. Caller holds h.mu.
func (h *Hub[T]) settleEmptyLocked() bool {
	if len(h.subs) != 0 {
		return false
	}
	h.pending = 0
	if !h.active {
		return false
	}
	h.active = false
	return true
}

func (h *Hub[T]) deactivate() {
	h.log.Debug("stream deactivated")
	if h.hooks.OnNoSubscribers != nil {
		h.hooks.OnNoSubscribers()
	}
}

// Clear drops every subscriber without sending anything. The hub stays
// usable.
func (h *Hub[T]) Clear() {
	h.mu.Lock()
	dropped := h.subs
	h.subs = nil
	for _, s := range dropped {
		s.live.Store(false)
	}
	stopped := h.settleEmptyLocked()
	h.mu.Unlock()

	if len(dropped) > 0 {
		metrics.TrackSubscribers(h.cfg.Kind, -len(dropped))
	}
	if stopped {
		h.deactivate()
	}
}

// Notify delivers v to every current subscriber.
func (h *Hub[T]) Notify(v T) error {
	h.mu.Lock()
	if h.disposed {
		h.mu.Unlock()
		return ErrDisposed
	}
	snapshot := h.subs
	h.mu.Unlock()

	metrics.TrackNotify(h.cfg.Kind)
	h.deliver(snapshot, ValueMessage(v))
	return nil
}

// Signal sends a terminal signal and disposes the hub.
// Returns ErrDisposed if the hub was already terminated.
func (h *Hub[T]) Signal(kind SignalKind, context string) error {
	if !h.terminate(SignalMessage[T](kind, context, nil)) {
		return ErrDisposed
	}
	return nil
}

// Terminate sends a done signal carrying context and err. It reports
// whether this call terminated the hub.
func (h *Hub[T]) Terminate(context string, err error) bool {
	return h.terminate(SignalMessage[T](SignalDone, context, err))
}

// Fail terminates the hub with a failure.
func (h *Hub[T]) Fail(err error) bool {
	return h.Terminate("Failed: "+err.Error(), err)
}

// Dispose terminates the hub with context "Disposed: <reason>".
// Only the first call has any effect.
func (h *Hub[T]) Dispose(reason string) {
	h.Terminate("Disposed: "+reason, nil)
}

func (h *Hub[T]) terminate(m Message[T]) bool {
	h.mu.Lock()
	if h.disposed {
		h.mu.Unlock()
		return false
	}
	h.disposed = true
	h.active = false
	h.pending = 0
	snapshot := h.subs
	h.subs = nil
	h.mu.Unlock()

	metrics.TrackTermination(h.cfg.Kind, m.Err != nil)
	if len(snapshot) > 0 {
		metrics.TrackSubscribers(h.cfg.Kind, -len(snapshot))
	}
	if m.Err != nil {
		h.log.Debug("stream failed", "context", m.Context, "error", m.Err)
	} else {
		h.log.Debug("stream closed", "context", m.Context)
	}

	h.deliver(snapshot, m)
	for _, s := range snapshot {
		s.live.Store(false)
	}

	if h.hooks.OnDispose != nil {
		h.hooks.OnDispose()
	}
	return true
}

func (h *Hub[T]) deliver(snapshot []*subscription[T], m Message[T]) {
	for _, s := range snapshot {
		if !s.live.Load() {
			continue
		}
		h.invoke(s.handler, m)
	}
}

func (h *Hub[T]) invoke(handler Handler[T], m Message[T]) {
	if h.cfg.PropagatePanics {
		handler(m)
		return
	}
	defer func() {
		if r := recover(); r != nil {
			metrics.TrackPanic(h.cfg.Kind)
			h.log.Warn("subscriber panicked",
				"message", m.Kind.String(),
				"panic", fmt.Sprint(r),
			)
			if h.cfg.OnPanic != nil {
				h.cfg.OnPanic(h.id, r)
			}
		}
	}()
	handler(m)
}
