package operators

import (
	"sync"
	"time"

	"github.com/roach88/rivulet/internal/reactive"
	"github.com/roach88/rivulet/internal/sched"
)

// ThrottleOptions configures Throttle.
type ThrottleOptions struct {
	// Elapsed is the minimum spacing between emissions. Required.
	Elapsed time.Duration
}

type throttler[T any] struct {
	opts ThrottleOptions
	out  *reactive.Bridge[T, T]

	mu      sync.Mutex
	window  sched.Timer // nil while the window is open
	pending T
	has     bool
}

// Throttle publishes the first value immediately and then at most one
// value per Elapsed. Values arriving inside a closed window overwrite each
// other; the latest is published when the window reopens. A value still
// pending when the upstream closes is dropped.
func Throttle[T any](src reactive.Stream[T], o ThrottleOptions, opts ...reactive.Option) (*reactive.Bridge[T, T], error) {
	if o.Elapsed <= 0 {
		return nil, reactive.NewConfigError("throttle", "Elapsed", "must be positive")
	}

	th := &throttler[T]{opts: o}
	th.out = reactive.NewBridge[T, T](src, "throttle", reactive.BridgeConfig[T]{
		OnValue: th.push,
		OnStop:  th.stop,
	}, opts...)
	return th.out, nil
}

func (th *throttler[T]) push(v T) {
	th.mu.Lock()
	if th.window != nil {
		th.pending, th.has = v, true
		th.mu.Unlock()
		return
	}
	th.window = th.out.Scheduler().AfterFunc(th.opts.Elapsed, th.reopen)
	th.mu.Unlock()

	_ = th.out.Publish(v)
}

func (th *throttler[T]) reopen() {
	th.mu.Lock()
	if !th.has {
		th.window = nil
		th.mu.Unlock()
		return
	}
	v := th.pending
	var zero T
	th.pending, th.has = zero, false
	th.window = th.out.Scheduler().AfterFunc(th.opts.Elapsed, th.reopen)
	th.mu.Unlock()

	_ = th.out.Publish(v)
}

func (th *throttler[T]) stop() {
	th.mu.Lock()
	defer th.mu.Unlock()
	if th.window != nil {
		th.window.Stop()
		th.window = nil
	}
	var zero T
	th.pending, th.has = zero, false
}
