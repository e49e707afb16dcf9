package reactive

import (
	"time"

	"github.com/roach88/rivulet/internal/sched"
)

// TicksOptions configures Ticks.
type TicksOptions struct {
	// Interval between ticks. Required, must be positive.
	Interval time.Duration

	// Limit closes the stream after this many ticks. Zero means unbounded.
	Limit int
}

// Ticks emits 0, 1, 2, ... every Interval while subscribed. The count
// restarts from zero on each activation.
func Ticks(o TicksOptions, opts ...Option) (*Event[int], error) {
	if o.Interval <= 0 {
		return nil, NewConfigError("ticks", "Interval", "must be positive")
	}
	if o.Limit < 0 {
		return nil, NewConfigError("ticks", "Limit", "must not be negative")
	}

	var ev *Event[int]
	ev = newEvent[int]("ticks", func(sink EventSink[int]) (func(), error) {
		n := 0
		stop := sched.Every(ev.Scheduler(), o.Interval, func() bool {
			sink.Emit(n)
			n++
			if o.Limit > 0 && n >= o.Limit {
				sink.Done("ticks complete")
				return false
			}
			return true
		})
		return stop, nil
	}, opts)
	return ev, nil
}
