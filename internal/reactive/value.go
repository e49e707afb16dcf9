package reactive

// Value is a writable stream holding a current value.
// Set publishes synchronously to current subscribers.
type Value[T any] struct {
	*Relay[T]
}

// NewValue creates a Value whose Last is initial.
func NewValue[T any](initial T, opts ...Option) *Value[T] {
	v := &Value[T]{Relay: NewRelay[T](NewConfig("value", nil, opts...), Hooks{})}
	v.setLast(initial)
	return v
}

// Set implements Writable. Returns ErrDisposed after disposal.
func (v *Value[T]) Set(value T) error {
	return v.Publish(value)
}
