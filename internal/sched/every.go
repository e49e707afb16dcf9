package sched

import (
	"sync"
	"time"
)

// Every invokes fn every d on s until fn returns false or stop is called.
//
// The next tick is armed only after fn returns, so ticks never overlap.
// Panics if d is not positive.
func Every(s Scheduler, d time.Duration, fn func() bool) (stop func()) {
	if d <= 0 {
		panic("sched: Every requires a positive interval")
	}

	var (
		mu      sync.Mutex
		timer   Timer
		stopped bool
	)

	var tick func()
	tick = func() {
		mu.Lock()
		if stopped {
			mu.Unlock()
			return
		}
		mu.Unlock()

		more := fn()

		mu.Lock()
		defer mu.Unlock()
		if stopped {
			return
		}
		if !more {
			stopped = true
			return
		}
		timer = s.AfterFunc(d, tick)
	}

	mu.Lock()
	timer = s.AfterFunc(d, tick)
	mu.Unlock()

	return func() {
		mu.Lock()
		defer mu.Unlock()
		if stopped {
			return
		}
		stopped = true
		timer.Stop()
	}
}
