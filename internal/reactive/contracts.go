package reactive

import (
	"github.com/roach88/rivulet/internal/diff"
	"github.com/roach88/rivulet/internal/sched"
)

// Stream is the readable capability every stream has.
//
// Notifications for one publish reach subscribers in subscription order.
// The returned function removes the handler; calling it more than once is
// a no-op.
type Stream[T any] interface {
	On(handler Handler[T]) (unsubscribe func())
}

// WithLast is a stream that caches the most recently published value.
// Last is updated on publish only, never recomputed on read.
type WithLast[T any] interface {
	Stream[T]
	Last() (T, bool)
}

// Writable is a stream values can be pushed into.
type Writable[T any] interface {
	Stream[T]
	Set(value T) error
}

// Disposable streams can be closed by their owner. Dispose is idempotent:
// only the first call sends the terminal signal.
type Disposable interface {
	Dispose(reason string)
	IsDisposed() bool
}

// DiffAware is a writable object stream that also publishes structural
// diffs and supports partial updates.
type DiffAware interface {
	Writable[map[string]any]
	OnDiff(handler Handler[[]diff.Change]) (unsubscribe func())
	Update(partial map[string]any) error
	UpdateField(path string, value any) error
}

// Scheduled is implemented by streams that expose their scheduler.
// Derived streams inherit it.
type Scheduled interface {
	Scheduler() sched.Scheduler
}
