package operators

import (
	"sync"
	"time"

	"github.com/roach88/rivulet/internal/reactive"
	"github.com/roach88/rivulet/internal/sched"
)

// BatchOptions configures Batch. At least one of Quantity and Elapsed must
// be set.
type BatchOptions struct {
	// Quantity emits the buffer once it holds this many values.
	Quantity int

	// Elapsed emits the buffer this long after its first value.
	Elapsed time.Duration

	// DropRemainder discards a partial batch when the upstream closes
	// instead of flushing it.
	DropRemainder bool
}

func (o BatchOptions) validate() error {
	if o.Quantity < 0 {
		return reactive.NewConfigError("batch", "Quantity", "must not be negative")
	}
	if o.Elapsed < 0 {
		return reactive.NewConfigError("batch", "Elapsed", "must not be negative")
	}
	if o.Quantity == 0 && o.Elapsed == 0 {
		return reactive.NewConfigError("batch", "", "Quantity or Elapsed is required")
	}
	return nil
}

type batcher[T any] struct {
	opts BatchOptions
	out  *reactive.Bridge[T, []T]

	mu    sync.Mutex
	buf   []T
	timer sched.Timer
}

// Batch groups values into slices. A batch is emitted when it reaches
// Quantity values or when Elapsed has passed since its first value,
// whichever comes first. The timer is re-armed by the first value of the
// next batch.
func Batch[T any](src reactive.Stream[T], o BatchOptions, opts ...reactive.Option) (*reactive.Bridge[T, []T], error) {
	if err := o.validate(); err != nil {
		return nil, err
	}

	bt := &batcher[T]{opts: o}
	bt.out = reactive.NewBridge[T, []T](src, "batch", reactive.BridgeConfig[T]{
		OnStart: bt.reset,
		OnValue: bt.add,
		OnStop:  bt.stopTimer,
		OnDone: func(reactive.Message[T]) {
			if !o.DropRemainder {
				bt.flush()
			}
		},
	}, opts...)
	return bt.out, nil
}

func (bt *batcher[T]) reset() {
	bt.mu.Lock()
	bt.buf = nil
	bt.mu.Unlock()
}

func (bt *batcher[T]) add(v T) {
	bt.mu.Lock()
	bt.buf = append(bt.buf, v)
	if len(bt.buf) == 1 && bt.opts.Elapsed > 0 {
		bt.timer = bt.out.Scheduler().AfterFunc(bt.opts.Elapsed, bt.flush)
	}
	full := bt.opts.Quantity > 0 && len(bt.buf) >= bt.opts.Quantity
	bt.mu.Unlock()

	if full {
		bt.flush()
	}
}

func (bt *batcher[T]) stopTimer() {
	bt.mu.Lock()
	defer bt.mu.Unlock()
	if bt.timer != nil {
		bt.timer.Stop()
		bt.timer = nil
	}
}

func (bt *batcher[T]) flush() {
	bt.mu.Lock()
	if bt.timer != nil {
		bt.timer.Stop()
		bt.timer = nil
	}
	batch := bt.buf
	bt.buf = nil
	bt.mu.Unlock()

	if len(batch) > 0 {
		_ = bt.out.Publish(batch)
	}
}
