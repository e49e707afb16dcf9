package combinators

import (
	"slices"
	"sync"

	"github.com/roach88/rivulet/internal/reactive"
)

// Slot is one source's position in a snapshot. Ok is false until the
// source has published.
type Slot[T any] struct {
	Value T    `json:"value"`
	Ok    bool `json:"ok"`
}

// MergeSnapshot publishes the latest value of every source, by position,
// whenever any source publishes. It closes once every source has closed,
// or as soon as one fails.
func MergeSnapshot[T any](sources []reactive.Stream[T], opts ...reactive.Option) (*reactive.Relay[[]Slot[T]], error) {
	if err := validateSources("merge", sources); err != nil {
		return nil, err
	}

	var (
		mu     sync.Mutex
		slots  = make([]Slot[T], len(sources))
		closed = make([]bool, len(sources))
		open   = len(sources)
		out    *reactive.Relay[[]Slot[T]]
	)

	fan := newFanIn(sources, func(i int, m reactive.Message[T]) {
		if m.IsValue() {
			mu.Lock()
			slots[i] = Slot[T]{Value: m.Value, Ok: true}
			snapshot := slices.Clone(slots)
			mu.Unlock()
			_ = out.Publish(snapshot)
			return
		}

		mu.Lock()
		if closed[i] {
			mu.Unlock()
			return
		}
		closed[i] = true
		open--
		remaining := open
		mu.Unlock()

		switch {
		case m.Failed():
			out.Terminate(m.Context, m.Err)
		case remaining == 0:
			out.Dispose("all sources closed")
		}
	})

	out = reactive.NewRelay[[]Slot[T]](reactive.NewConfig("merge", sources[0], opts...), fan.hooks())
	return out, nil
}
