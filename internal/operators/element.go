package operators

import (
	"sync"

	"github.com/roach88/rivulet/internal/reactive"
)

// ElementOptions selects a single value. Exactly one of Index and
// Predicate must be set.
type ElementOptions[T any] struct {
	// Index selects the value at this zero-based position.
	Index *int

	// Predicate selects the first value it returns true for.
	Predicate func(T) bool
}

// Element publishes one selected value and then closes with reason
// "element selected". If the upstream closes first, Element closes with it
// without publishing.
func Element[T any](src reactive.Stream[T], o ElementOptions[T], opts ...reactive.Option) (*reactive.Bridge[T, T], error) {
	switch {
	case o.Index == nil && o.Predicate == nil:
		return nil, reactive.NewConfigError("element", "", "Index or Predicate is required")
	case o.Index != nil && o.Predicate != nil:
		return nil, reactive.NewConfigError("element", "", "Index and Predicate are mutually exclusive")
	case o.Index != nil && *o.Index < 0:
		return nil, reactive.NewConfigError("element", "Index", "must not be negative")
	}

	var (
		mu   sync.Mutex
		seen int
		b    *reactive.Bridge[T, T]
	)
	match := func(v T) bool {
		if o.Predicate != nil {
			return o.Predicate(v)
		}
		mu.Lock()
		defer mu.Unlock()
		i := seen
		seen++
		return i == *o.Index
	}

	b = reactive.NewBridge[T, T](src, "element", reactive.BridgeConfig[T]{
		OnStart: func() {
			mu.Lock()
			seen = 0
			mu.Unlock()
		},
		OnValue: func(v T) {
			if !match(v) {
				return
			}
			_ = b.Publish(v)
			b.Dispose("element selected")
		},
	}, opts...)
	return b, nil
}
