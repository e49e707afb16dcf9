package combinators

import (
	"fmt"

	"github.com/roach88/rivulet/internal/reactive"
)

// SplitOptions configures Split.
type SplitOptions struct {
	// Copies is the number of outputs. Required, at least 1.
	Copies int

	// FilterSignals keeps the copies open when the source closes.
	FilterSignals bool
}

// Split duplicates src into independent copies. Every copy receives every
// value and, unless FilterSignals is set, the source's terminal signal.
// The source is subscribed while any copy has subscribers.
func Split[T any](src reactive.Stream[T], o SplitOptions, opts ...reactive.Option) ([]*reactive.Bridge[T, T], error) {
	if o.Copies < 1 {
		return nil, reactive.NewConfigError("split", "Copies", "must be at least 1")
	}
	out := make([]*reactive.Bridge[T, T], o.Copies)
	for i := range out {
		out[i] = splitCopy(src, o.FilterSignals, opts)
	}
	return out, nil
}

// SplitLabelled is Split keyed by label. Labels must be non-empty and
// unique.
func SplitLabelled[T any](src reactive.Stream[T], labels []string, opts ...reactive.Option) (map[string]*reactive.Bridge[T, T], error) {
	if err := validateLabels("split", labels); err != nil {
		return nil, err
	}
	out := make(map[string]*reactive.Bridge[T, T], len(labels))
	for _, label := range labels {
		out[label] = splitCopy(src, false, opts)
	}
	return out, nil
}

func splitCopy[T any](src reactive.Stream[T], filterSignals bool, opts []reactive.Option) *reactive.Bridge[T, T] {
	var b *reactive.Bridge[T, T]
	b = reactive.NewBridge[T, T](src, "split", reactive.BridgeConfig[T]{
		OnValue:  func(v T) { _ = b.Publish(v) },
		KeepOpen: filterSignals,
	}, opts...)
	return b
}

func validateLabels(operator string, labels []string) error {
	if len(labels) == 0 {
		return reactive.NewConfigError(operator, "labels", "at least one label is required")
	}
	seen := make(map[string]bool, len(labels))
	for _, l := range labels {
		if l == "" {
			return reactive.NewConfigError(operator, "labels", "empty label")
		}
		if seen[l] {
			return reactive.NewConfigError(operator, "labels", fmt.Sprintf("duplicate label %q", l))
		}
		seen[l] = true
	}
	return nil
}
