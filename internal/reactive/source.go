package reactive

import (
	"context"
	"fmt"
	"iter"
	"slices"
	"sync"
)

// FromSlice creates a sequence over a copy of items.
func FromSlice[T any](items []T, opts ...Option) *Sequence[T] {
	items = slices.Clone(items)
	i := 0
	next := IteratorFunc[T](func() (T, bool, error) {
		if i >= len(items) {
			var zero T
			return zero, false, nil
		}
		v := items[i]
		i++
		return v, true, nil
	})
	return newSequence[T](next, nil, nil, opts)
}

// Of creates a sequence over items with default options.
func Of[T any](items ...T) *Sequence[T] {
	return FromSlice(items)
}

// FromSeq creates a sequence over an iter.Seq. The iterator is started on
// the first pull and stopped when the stream is disposed.
func FromSeq[T any](seq iter.Seq[T], opts ...Option) *Sequence[T] {
	it := &seqIterator[T]{seq: seq}
	return newSequence[T](it, nil, it.Close, opts)
}

// seqIterator defers iter.Pull until the first Next, so a sequence that is
// never read holds no coroutine.
type seqIterator[T any] struct {
	seq iter.Seq[T]

	mu     sync.Mutex
	next   func() (T, bool)
	stop   func()
	closed bool
}

func (s *seqIterator[T]) Next() (T, bool, error) {
	s.mu.Lock()
	if s.next == nil && !s.closed {
		s.next, s.stop = iter.Pull(s.seq)
	}
	next := s.next
	closed := s.closed
	s.mu.Unlock()

	if closed || next == nil {
		var zero T
		return zero, false, nil
	}
	v, ok := next()
	return v, ok, nil
}

// Close stops the underlying iterator if it was started.
func (s *seqIterator[T]) Close() {
	s.mu.Lock()
	s.closed = true
	stop := s.stop
	s.mu.Unlock()
	if stop != nil {
		stop()
	}
}

// FromIterator creates a sequence over a synchronous iterator. If it has a
// Close() method, Close is called on disposal.
func FromIterator[T any](it Iterator[T], opts ...Option) *Sequence[T] {
	return newSequence[T](it, nil, closer(it), opts)
}

// FromAsync creates a sequence over an iterator whose Next may block.
// If it has a Close() method, Close is called on disposal.
func FromAsync[T any](it AsyncIterator[T], opts ...Option) *Sequence[T] {
	return newSequence[T](nil, it, closer(it), opts)
}

// FromFunc creates a sequence that calls fn off the scheduler for each
// element.
func FromFunc[T any](fn func(ctx context.Context) (T, bool, error), opts ...Option) *Sequence[T] {
	return FromAsync[T](AsyncFunc[T](fn), opts...)
}

// FromChannel creates a sequence that receives from ch until it is closed.
func FromChannel[T any](ch <-chan T, opts ...Option) *Sequence[T] {
	return FromFunc(func(ctx context.Context) (T, bool, error) {
		select {
		case v, ok := <-ch:
			return v, ok, nil
		case <-ctx.Done():
			var zero T
			return zero, false, ctx.Err()
		}
	}, opts...)
}

func closer(v any) func() {
	switch c := v.(type) {
	case interface{ Close() error }:
		return func() { _ = c.Close() }
	case interface{ Close() }:
		return c.Close
	default:
		return nil
	}
}

// Resolve turns producer into a stream. A Stream[T] is returned unchanged;
// slices, iter.Seq, iterators, channels and async pull functions become a
// Sequence built with opts. Anything else yields a *SourceError wrapping
// ErrUnsupportedSource.
func Resolve[T any](producer any, opts ...Option) (Stream[T], error) {
	switch p := producer.(type) {
	case Stream[T]:
		return p, nil
	case []T:
		return FromSlice(p, opts...), nil
	case iter.Seq[T]:
		return FromSeq(p, opts...), nil
	case func(yield func(T) bool):
		return FromSeq(iter.Seq[T](p), opts...), nil
	case Iterator[T]:
		return FromIterator(p, opts...), nil
	case AsyncIterator[T]:
		return FromAsync(p, opts...), nil
	case <-chan T:
		return FromChannel(p, opts...), nil
	case chan T:
		return FromChannel((<-chan T)(p), opts...), nil
	case func(ctx context.Context) (T, bool, error):
		return FromFunc(p, opts...), nil
	default:
		return nil, &SourceError{
			Op:  "resolve",
			Err: fmt.Errorf("%w: %T", ErrUnsupportedSource, producer),
		}
	}
}

// MustResolve is like Resolve but panics on error.
func MustResolve[T any](producer any, opts ...Option) Stream[T] {
	s, err := Resolve[T](producer, opts...)
	if err != nil {
		panic(err)
	}
	return s
}
