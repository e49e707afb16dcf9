package operators

import (
	"sync"
	"time"

	"github.com/roach88/rivulet/internal/reactive"
)

// Annotated is a value widened with an annotation.
type Annotated[T, A any] struct {
	Value      T `json:"value"`
	Annotation A `json:"annotation"`
}

// Annotate forwards each value together with fn(value).
func Annotate[T, A any](src reactive.Stream[T], fn func(T) A, opts ...reactive.Option) *reactive.Bridge[T, Annotated[T, A]] {
	if fn == nil {
		panic("operators: Annotate requires a function")
	}
	var b *reactive.Bridge[T, Annotated[T, A]]
	b = reactive.NewBridge[T, Annotated[T, A]](src, "annotate", reactive.BridgeConfig[T]{
		OnValue: func(v T) {
			_ = b.Publish(Annotated[T, A]{Value: v, Annotation: fn(v)})
		},
	}, opts...)
	return b
}

// AnnotateElapsed stamps each value with the scheduler time elapsed since
// the previous value. The first value after activation is stamped zero.
func AnnotateElapsed[T any](src reactive.Stream[T], opts ...reactive.Option) *reactive.Bridge[T, Annotated[T, time.Duration]] {
	var (
		mu   sync.Mutex
		prev time.Time
		seen bool
		b    *reactive.Bridge[T, Annotated[T, time.Duration]]
	)
	b = reactive.NewBridge[T, Annotated[T, time.Duration]](src, "elapsed", reactive.BridgeConfig[T]{
		OnStart: func() {
			mu.Lock()
			seen = false
			mu.Unlock()
		},
		OnValue: func(v T) {
			now := b.Scheduler().Now()
			mu.Lock()
			var elapsed time.Duration
			if seen {
				elapsed = now.Sub(prev)
			}
			prev, seen = now, true
			mu.Unlock()
			_ = b.Publish(Annotated[T, time.Duration]{Value: v, Annotation: elapsed})
		},
	}, opts...)
	return b
}
