package reactive

import "sync"

// EventSink is handed to an AttachFunc. Its methods may be called from any
// goroutine; delivery is posted onto the stream's scheduler.
type EventSink[T any] struct {
	emit func(T)
	fail func(error)
	done func(string)
}

// Emit publishes v.
func (s EventSink[T]) Emit(v T) { s.emit(v) }

// Fail fails the stream with err.
func (s EventSink[T]) Fail(err error) { s.fail(err) }

// Done disposes the stream with reason.
func (s EventSink[T]) Done(reason string) { s.done(reason) }

// AttachFunc connects an external event source to sink and returns the
// function that disconnects it.
type AttachFunc[T any] func(sink EventSink[T]) (detach func(), err error)

// Event adapts an external push source. The source is attached while the
// stream has subscribers and detached when the last one leaves or the
// stream is disposed. Emissions from a detached attachment are dropped.
type Event[T any] struct {
	*Relay[T]

	attachFn AttachFunc[T]

	mu       sync.Mutex
	attached bool
	gen      uint64
	detachFn func()
}

// FromEvent creates an event stream.
func FromEvent[T any](attach AttachFunc[T], opts ...Option) *Event[T] {
	return newEvent("event", attach, opts)
}

func newEvent[T any](kind string, attach AttachFunc[T], opts []Option) *Event[T] {
	if attach == nil {
		panic("rivulet: FromEvent requires an attach function")
	}
	cfg := NewConfig(kind, nil, opts...)
	e := &Event[T]{attachFn: attach}
	hooks := Hooks{OnDispose: e.stop}
	if !cfg.Eager {
		hooks.OnFirstSubscribe = e.start
		hooks.OnNoSubscribers = e.stop
	}
	e.Relay = NewRelay[T](cfg, hooks)
	if cfg.Eager {
		e.start()
	}
	return e
}

func (e *Event[T]) current(gen uint64) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.attached && e.gen == gen
}

func (e *Event[T]) start() {
	e.mu.Lock()
	if e.attached || e.IsDisposed() {
		e.mu.Unlock()
		return
	}
	e.attached = true
	e.gen++
	gen := e.gen
	e.mu.Unlock()

	s := e.Scheduler()
	sink := EventSink[T]{
		emit: func(v T) {
			s.Defer(func() {
				if e.current(gen) {
					_ = e.Publish(v)
				}
			})
		},
		fail: func(err error) {
			s.Defer(func() {
				if e.current(gen) {
					e.Fail(&SourceError{Stream: e.ID(), Op: "event", Err: err})
				}
			})
		},
		done: func(reason string) {
			s.Defer(func() {
				if e.current(gen) {
					e.Dispose(reason)
				}
			})
		},
	}

	detach, err := e.attachFn(sink)
	if err != nil {
		e.mu.Lock()
		e.attached = false
		e.mu.Unlock()
		e.Fail(&SourceError{Stream: e.ID(), Op: "attach", Err: err})
		return
	}

	e.mu.Lock()
	if !e.attached || e.gen != gen {
		e.mu.Unlock()
		if detach != nil {
			detach()
		}
		return
	}
	e.detachFn = detach
	e.mu.Unlock()
}

func (e *Event[T]) stop() {
	e.mu.Lock()
	if !e.attached {
		e.mu.Unlock()
		return
	}
	e.attached = false
	detach := e.detachFn
	e.detachFn = nil
	e.mu.Unlock()

	if detach != nil {
		detach()
	}
}
