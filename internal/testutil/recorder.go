// Package testutil provides helpers for testing streams.
package testutil

import (
	"sync"
	"time"

	"github.com/roach88/rivulet/internal/reactive"
	"github.com/roach88/rivulet/internal/sched"
)

// Entry is one recorded message with the virtual time it arrived at.
type Entry[T any] struct {
	At  time.Duration
	Msg reactive.Message[T]
}

// Recorder subscribes to a stream and records every message.
//
// Thread-safety: all methods are safe for concurrent use.
type Recorder[T any] struct {
	mu      sync.Mutex
	clock   *sched.Virtual
	entries []Entry[T]
	unsub   func()
}

// Record subscribes a new Recorder to s. If clock is non-nil, entries are
// stamped with its elapsed time.
func Record[T any](s reactive.Stream[T], clock *sched.Virtual) *Recorder[T] {
	r := &Recorder[T]{clock: clock}
	r.unsub = s.On(r.handle)
	return r
}

func (r *Recorder[T]) handle(m reactive.Message[T]) {
	var at time.Duration
	if r.clock != nil {
		at = r.clock.Elapsed()
	}
	r.mu.Lock()
	r.entries = append(r.entries, Entry[T]{At: at, Msg: m})
	r.mu.Unlock()
}

// Stop unsubscribes the recorder.
func (r *Recorder[T]) Stop() {
	r.unsub()
}

// Entries returns a copy of everything recorded.
func (r *Recorder[T]) Entries() []Entry[T] {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Entry[T](nil), r.entries...)
}

// Values returns the recorded values in arrival order.
func (r *Recorder[T]) Values() []T {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []T
	for _, e := range r.entries {
		if e.Msg.IsValue() {
			out = append(out, e.Msg.Value)
		}
	}
	return out
}

// Times returns the arrival time of each recorded value.
func (r *Recorder[T]) Times() []time.Duration {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []time.Duration
	for _, e := range r.entries {
		if e.Msg.IsValue() {
			out = append(out, e.At)
		}
	}
	return out
}

// Signals returns every recorded terminal signal. A well-behaved stream
// sends at most one.
func (r *Recorder[T]) Signals() []reactive.Message[T] {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []reactive.Message[T]
	for _, e := range r.entries {
		if e.Msg.IsSignal() {
			out = append(out, e.Msg)
		}
	}
	return out
}

// Closed reports whether a terminal signal was recorded.
func (r *Recorder[T]) Closed() bool {
	return len(r.Signals()) > 0
}

// Failed reports whether a failure signal was recorded.
func (r *Recorder[T]) Failed() bool {
	for _, s := range r.Signals() {
		if s.Failed() {
			return true
		}
	}
	return false
}

// Signal returns the first recorded terminal signal.
func (r *Recorder[T]) Signal() (reactive.Message[T], bool) {
	signals := r.Signals()
	if len(signals) == 0 {
		return reactive.Message[T]{}, false
	}
	return signals[0], true
}
