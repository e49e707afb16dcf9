package sched

import (
	"context"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"
)

// Loop is the single-writer event loop scheduler.
//
// Every task runs on the goroutine that called Run, one at a time, in FIFO
// order. Defer and timer expiry are safe from any goroutine: they only
// enqueue.
//
// Thread-safety model:
//   - Defer(), AfterFunc(), Now(), Stop(): safe from any goroutine
//   - Run(): must be called from exactly one goroutine
type Loop struct {
	queue *taskQueue
}

// NewLoop creates a Loop. Tasks are queued until Run is called.
func NewLoop() *Loop {
	return &Loop{queue: newTaskQueue()}
}

// Defer queues task. Tasks deferred after Stop are dropped.
func (l *Loop) Defer(task func()) {
	if !l.queue.Enqueue(task) {
		slog.Debug("loop stopped, dropping task")
	}
}

// AfterFunc enqueues task once d has elapsed.
// The task runs on the loop goroutine, not on the timer goroutine.
func (l *Loop) AfterFunc(d time.Duration, task func()) Timer {
	lt := &loopTimer{}
	lt.timer = time.AfterFunc(d, func() {
		l.Defer(func() {
			if lt.state.CompareAndSwap(timerPending, timerFired) {
				task()
			}
		})
	})
	return lt
}

// Now returns the wall-clock time.
func (l *Loop) Now() time.Time {
	return time.Now()
}

// Len returns the number of queued tasks.
func (l *Loop) Len() int {
	return l.queue.Len()
}

// Run executes tasks until ctx is cancelled or Stop is called.
//
// A panicking task is logged and the loop continues: one misbehaving
// callback must not stall every other stream sharing the loop.
func (l *Loop) Run(ctx context.Context) error {
	slog.Debug("loop starting")

	for {
		if task, ok := l.queue.TryDequeue(); ok {
			l.runTask(task)
			continue
		}

		select {
		case <-ctx.Done():
			slog.Debug("loop stopping: context cancelled")
			l.queue.Close()
			return ctx.Err()

		case <-l.queue.Wait():
			// The signal channel is closed by Stop; drain what is left and return.
			if l.queue.Closed() && l.queue.Len() == 0 {
				slog.Debug("loop stopping: queue closed")
				return nil
			}
		}
	}
}

// Stop closes the queue. Run returns once queued tasks have executed.
func (l *Loop) Stop() {
	l.queue.Close()
}

func (l *Loop) runTask(task func()) {
	defer func() {
		if r := recover(); r != nil {
			slog.Error("loop task panicked",
				"panic", fmt.Sprint(r),
			)
		}
	}()
	task()
}

const (
	timerPending int32 = iota
	timerFired
	timerStopped
)

type loopTimer struct {
	state atomic.Int32
	timer *time.Timer
}

func (t *loopTimer) Stop() bool {
	if t.state.CompareAndSwap(timerPending, timerStopped) {
		t.timer.Stop()
		return true
	}
	return false
}
