package operators

import "github.com/roach88/rivulet/internal/reactive"

// Filter forwards the values for which pred returns true.
func Filter[T any](src reactive.Stream[T], pred func(T) bool, opts ...reactive.Option) *reactive.Bridge[T, T] {
	if pred == nil {
		panic("operators: Filter requires a predicate")
	}
	var b *reactive.Bridge[T, T]
	b = reactive.NewBridge[T, T](src, "filter", reactive.BridgeConfig[T]{
		OnValue: func(v T) {
			if pred(v) {
				_ = b.Publish(v)
			}
		},
	}, opts...)
	return b
}

// Transform forwards fn(v) for every value. A panic in fn reaches whoever
// published the upstream value, subject to that hub's panic policy.
func Transform[T, U any](src reactive.Stream[T], fn func(T) U, opts ...reactive.Option) *reactive.Bridge[T, U] {
	if fn == nil {
		panic("operators: Transform requires a function")
	}
	var b *reactive.Bridge[T, U]
	b = reactive.NewBridge[T, U](src, "transform", reactive.BridgeConfig[T]{
		OnValue: func(v T) {
			_ = b.Publish(fn(v))
		},
	}, opts...)
	return b
}
