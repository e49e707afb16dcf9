package sched

import (
	"context"
	"sync"
	"time"
)

// Scheduler executes deferred tasks and timers for streams.
//
// Implementations must run tasks one at a time. Tasks submitted with Defer
// run in submission order.
type Scheduler interface {
	// Defer queues task to run after the currently executing task.
	Defer(task func())

	// AfterFunc runs task once d has elapsed on the scheduler's clock.
	AfterFunc(d time.Duration, task func()) Timer

	// Now returns the scheduler's current time.
	Now() time.Time
}

// Timer is a handle to a task scheduled with AfterFunc.
type Timer interface {
	// Stop prevents the task from running. Returns false if the task
	// already ran or was already stopped.
	Stop() bool
}

var (
	defaultOnce sync.Once
	defaultLoop *Loop
)

// Default returns a process-wide Loop, started on first use.
//
// Streams fall back to it only when no scheduler was configured and none
// can be inherited from an upstream stream.
func Default() Scheduler {
	defaultOnce.Do(func() {
		defaultLoop = NewLoop()
		go func() {
			_ = defaultLoop.Run(context.Background())
		}()
	})
	return defaultLoop
}
