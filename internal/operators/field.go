package operators

import "github.com/roach88/rivulet/internal/reactive"

// Field projects the named field of each object. Objects without the
// field, or whose field is not a T, are dropped.
func Field[T any](src reactive.Stream[map[string]any], name string, opts ...reactive.Option) *reactive.Bridge[map[string]any, T] {
	return field[T](src, name, nil, opts)
}

// FieldOr is Field with a substitute published when the field is absent.
func FieldOr[T any](src reactive.Stream[map[string]any], name string, missing T, opts ...reactive.Option) *reactive.Bridge[map[string]any, T] {
	return field(src, name, &missing, opts)
}

func field[T any](src reactive.Stream[map[string]any], name string, missing *T, opts []reactive.Option) *reactive.Bridge[map[string]any, T] {
	var b *reactive.Bridge[map[string]any, T]
	b = reactive.NewBridge[map[string]any, T](src, "field", reactive.BridgeConfig[map[string]any]{
		OnValue: func(obj map[string]any) {
			raw, ok := obj[name]
			if !ok {
				if missing != nil {
					_ = b.Publish(*missing)
				}
				return
			}
			v, ok := raw.(T)
			if !ok {
				b.Hub().Logger().Debug("field has unexpected type", "field", name)
				return
			}
			_ = b.Publish(v)
		},
	}, opts...)
	return b
}
