package operators

import (
	"sync"
	"time"

	"github.com/roach88/rivulet/internal/reactive"
	"github.com/roach88/rivulet/internal/sched"
)

// DebounceOptions configures Debounce.
type DebounceOptions struct {
	// Elapsed is the quiet period. Required.
	Elapsed time.Duration

	// EmitPendingOnDone publishes a value still waiting for its quiet
	// period when the upstream closes. By default it is dropped.
	EmitPendingOnDone bool
}

type debouncer[T any] struct {
	opts DebounceOptions
	out  *reactive.Bridge[T, T]

	mu      sync.Mutex
	pending T
	has     bool
	timer   sched.Timer
}

// Debounce publishes a value only once Elapsed has passed without a newer
// one. A burst yields at most one value, never with zero delay.
func Debounce[T any](src reactive.Stream[T], o DebounceOptions, opts ...reactive.Option) (*reactive.Bridge[T, T], error) {
	if o.Elapsed <= 0 {
		return nil, reactive.NewConfigError("debounce", "Elapsed", "must be positive")
	}

	d := &debouncer[T]{opts: o}
	d.out = reactive.NewBridge[T, T](src, "debounce", reactive.BridgeConfig[T]{
		OnStart: d.clear,
		OnValue: d.push,
		OnStop:  d.stopTimer,
		OnDone: func(reactive.Message[T]) {
			if o.EmitPendingOnDone {
				d.fire()
			}
		},
	}, opts...)
	return d.out, nil
}

func (d *debouncer[T]) clear() {
	d.mu.Lock()
	var zero T
	d.pending, d.has = zero, false
	d.mu.Unlock()
}

func (d *debouncer[T]) push(v T) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.pending, d.has = v, true
	if d.timer != nil {
		d.timer.Stop()
	}
	d.timer = d.out.Scheduler().AfterFunc(d.opts.Elapsed, d.fire)
}

func (d *debouncer[T]) stopTimer() {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.timer != nil {
		d.timer.Stop()
		d.timer = nil
	}
}

func (d *debouncer[T]) fire() {
	d.mu.Lock()
	v, ok := d.pending, d.has
	var zero T
	d.pending, d.has = zero, false
	d.timer = nil
	d.mu.Unlock()

	if ok {
		_ = d.out.Publish(v)
	}
}
