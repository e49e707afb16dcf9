package combinators

import (
	"sync"

	"github.com/roach88/rivulet/internal/reactive"
)

// SyncOptions configures Synchronise.
type SyncOptions struct {
	// Strict closes the join as soon as any source closes. By default the
	// barrier shrinks to the sources still open.
	Strict bool
}

type barrier[T any] struct {
	strict bool
	out    *reactive.Relay[[]T]

	mu     sync.Mutex
	values []T
	has    []bool
	closed []bool
}

// Synchronise publishes one value per open source, in source order, each
// time every open source has published since the previous round.
//
// A closed source is marked, never removed, and drops out of later rounds.
// Its unconsumed value is discarded. If the remaining sources already
// completed the pending round, that round is published immediately. The
// join closes when the last source closes, or at the first closure with
// Strict. A failed source fails the join.
func Synchronise[T any](sources []reactive.Stream[T], o SyncOptions, opts ...reactive.Option) (*reactive.Relay[[]T], error) {
	if err := validateSources("synchronise", sources); err != nil {
		return nil, err
	}

	b := &barrier[T]{
		strict: o.Strict,
		values: make([]T, len(sources)),
		has:    make([]bool, len(sources)),
		closed: make([]bool, len(sources)),
	}
	fan := newFanIn(sources, b.handle)
	b.out = reactive.NewRelay[[]T](reactive.NewConfig("synchronise", sources[0], opts...), fan.hooks())
	return b.out, nil
}

func (b *barrier[T]) handle(i int, m reactive.Message[T]) {
	if m.IsValue() {
		b.mu.Lock()
		if b.closed[i] {
			b.mu.Unlock()
			return
		}
		b.values[i], b.has[i] = m.Value, true
		round, ok := b.takeRoundLocked()
		b.mu.Unlock()

		if ok {
			_ = b.out.Publish(round)
		}
		return
	}

	b.mu.Lock()
	if b.closed[i] {
		b.mu.Unlock()
		return
	}
	b.closed[i] = true
	b.has[i] = false
	var zero T
	b.values[i] = zero
	allClosed := b.openLocked() == 0
	var (
		round []T
		ok    bool
	)
	if !m.Failed() && !b.strict && !allClosed {
		round, ok = b.takeRoundLocked()
	}
	b.mu.Unlock()

	switch {
	case m.Failed():
		b.out.Terminate(m.Context, m.Err)
	case b.strict:
		b.out.Terminate(m.Context, nil)
	case allClosed:
		b.out.Dispose("all sources closed")
	case ok:
		_ = b.out.Publish(round)
	}
}

func (b *barrier[T]) openLocked() int {
	n := 0
	for _, c := range b.closed {
		if !c {
			n++
		}
	}
	return n
}

// takeRoundLocked returns the pending round if every open source has a
// value, and resets the slots. Caller holds b.mu.
func (b *barrier[T]) takeRoundLocked() ([]T, bool) {
	var round []T
	for i, c := range b.closed {
		if c {
			continue
		}
		if !b.has[i] {
			return nil, false
		}
		round = append(round, b.values[i])
	}
	if len(round) == 0 {
		return nil, false
	}

	var zero T
	for i := range b.has {
		b.has[i] = false
		b.values[i] = zero
	}
	return round, true
}
