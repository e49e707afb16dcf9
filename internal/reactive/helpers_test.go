package reactive

import (
	"sync"

	"github.com/roach88/rivulet/internal/sched"
)

// recorder captures everything a stream delivers.
type recorder[T any] struct {
	mu       sync.Mutex
	values   []T
	signals  []Message[T]
	messages int
}

func record[T any](s Stream[T]) (*recorder[T], func()) {
	r := &recorder[T]{}
	return r, s.On(r.handle)
}

func (r *recorder[T]) handle(m Message[T]) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.messages++
	if m.IsValue() {
		r.values = append(r.values, m.Value)
		return
	}
	r.signals = append(r.signals, m)
}

func (r *recorder[T]) Values() []T {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]T(nil), r.values...)
}

func (r *recorder[T]) Closed() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.signals) > 0
}

func (r *recorder[T]) Signals() []Message[T] {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Message[T](nil), r.signals...)
}

func testOpts(v *sched.Virtual) []Option {
	return []Option{
		WithScheduler(v),
		WithIDGenerator(NewSequenceGenerator("test")),
	}
}
