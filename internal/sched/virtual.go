package sched

import (
	"container/heap"
	"sync"
	"time"
)

// DefaultStepLimit bounds the number of tasks a single Flush, Advance or
// RunUntilIdle call may execute.
const DefaultStepLimit = 100000

// VirtualOption configures a Virtual scheduler.
type VirtualOption func(*Virtual)

// WithStepLimit sets the maximum tasks per drive call.
//
// Default: 100000 (DefaultStepLimit)
func WithStepLimit(limit int) VirtualOption {
	return func(v *Virtual) {
		v.stepLimit = limit
	}
}

// WithStart sets the virtual start time. Default: the Unix epoch, UTC.
func WithStart(t time.Time) VirtualOption {
	return func(v *Virtual) {
		v.now = t
	}
}

// Virtual is a deterministic scheduler whose clock only moves when told to.
//
// Nothing runs on its own: deferred tasks run on Flush, timers fire on
// Advance, AdvanceTo and RunUntilIdle. Timers with the same deadline fire
// in the order they were created.
//
// Thread-safety: Defer and AfterFunc may be called from any goroutine;
// the drive methods (Flush, Advance, AdvanceTo, RunUntilIdle) must be
// called from one goroutine at a time.
type Virtual struct {
	mu        sync.Mutex
	start     time.Time
	now       time.Time
	tasks     []func()
	timers    timerHeap
	seq       int64 // timer creation order, breaks deadline ties
	stepLimit int
	steps     int
}

// NewVirtual creates a Virtual scheduler.
func NewVirtual(opts ...VirtualOption) *Virtual {
	v := &Virtual{
		now:       time.Unix(0, 0).UTC(),
		stepLimit: DefaultStepLimit,
	}
	for _, opt := range opts {
		opt(v)
	}
	v.start = v.now
	return v
}

// Defer queues task for the next Flush.
func (v *Virtual) Defer(task func()) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.tasks = append(v.tasks, task)
}

// AfterFunc arms a timer d after the current virtual time.
// A non-positive d fires on the next Advance, AdvanceTo or RunUntilIdle.
func (v *Virtual) AfterFunc(d time.Duration, task func()) Timer {
	v.mu.Lock()
	defer v.mu.Unlock()

	if d < 0 {
		d = 0
	}
	v.seq++
	t := &virtualTimer{
		owner:    v,
		deadline: v.now.Add(d),
		seq:      v.seq,
		task:     task,
	}
	heap.Push(&v.timers, t)
	return t
}

// Now returns the current virtual time.
func (v *Virtual) Now() time.Time {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.now
}

// Elapsed returns the virtual time elapsed since the scheduler was created.
func (v *Virtual) Elapsed() time.Duration {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.now.Sub(v.start)
}

// Pending returns the number of queued tasks and armed timers.
func (v *Virtual) Pending() (tasks, timers int) {
	v.mu.Lock()
	defer v.mu.Unlock()
	return len(v.tasks), len(v.timers)
}

// Flush runs deferred tasks, including tasks they defer, until none remain.
// Time does not move.
func (v *Virtual) Flush() error {
	v.steps = 0
	return v.drain()
}

// Advance moves the clock forward by d, firing every timer that falls due
// and flushing deferred tasks after each one.
func (v *Virtual) Advance(d time.Duration) error {
	return v.AdvanceTo(v.Now().Add(d))
}

// AdvanceTo moves the clock to t. Moving backwards is a no-op.
func (v *Virtual) AdvanceTo(t time.Time) error {
	v.steps = 0
	if err := v.drain(); err != nil {
		return err
	}
	for {
		timer := v.popDue(t)
		if timer == nil {
			break
		}
		if err := v.fire(timer); err != nil {
			return err
		}
	}

	v.mu.Lock()
	if t.After(v.now) {
		v.now = t
	}
	v.mu.Unlock()
	return nil
}

// RunUntilIdle fires timers in deadline order, moving the clock to each
// deadline, until no task or timer is left.
func (v *Virtual) RunUntilIdle() error {
	v.steps = 0
	if err := v.drain(); err != nil {
		return err
	}
	for {
		timer := v.popDue(time.Time{})
		if timer == nil {
			return nil
		}
		if err := v.fire(timer); err != nil {
			return err
		}
	}
}

// popDue removes the earliest timer due at or before limit. A zero limit
// accepts any deadline.
func (v *Virtual) popDue(limit time.Time) *virtualTimer {
	v.mu.Lock()
	defer v.mu.Unlock()

	if len(v.timers) == 0 {
		return nil
	}
	next := v.timers[0]
	if !limit.IsZero() && next.deadline.After(limit) {
		return nil
	}
	heap.Pop(&v.timers)
	next.done = true
	if next.deadline.After(v.now) {
		v.now = next.deadline
	}
	return next
}

func (v *Virtual) fire(t *virtualTimer) error {
	if err := v.step(); err != nil {
		return err
	}
	t.task()
	return v.drain()
}

func (v *Virtual) drain() error {
	for {
		v.mu.Lock()
		if len(v.tasks) == 0 {
			v.mu.Unlock()
			return nil
		}
		task := v.tasks[0]
		v.tasks[0] = nil
		v.tasks = v.tasks[1:]
		v.mu.Unlock()

		if err := v.step(); err != nil {
			return err
		}
		task()
	}
}

func (v *Virtual) step() error {
	v.steps++
	if v.stepLimit > 0 && v.steps > v.stepLimit {
		return &StepLimitError{Steps: v.steps, Limit: v.stepLimit}
	}
	return nil
}

type virtualTimer struct {
	owner    *Virtual
	deadline time.Time
	seq      int64
	task     func()
	index    int
	done     bool
}

func (t *virtualTimer) Stop() bool {
	v := t.owner
	v.mu.Lock()
	defer v.mu.Unlock()

	if t.done {
		return false
	}
	t.done = true
	heap.Remove(&v.timers, t.index)
	return true
}

// timerHeap orders timers by deadline, then by creation sequence.
type timerHeap []*virtualTimer

func (h timerHeap) Len() int { return len(h) }

func (h timerHeap) Less(i, j int) bool {
	if h[i].deadline.Equal(h[j].deadline) {
		return h[i].seq < h[j].seq
	}
	return h[i].deadline.Before(h[j].deadline)
}

func (h timerHeap) Swap(i, j int) {
	h[i], h[j] = h[j], h[i]
	h[i].index = i
	h[j].index = j
}

func (h *timerHeap) Push(x any) {
	t := x.(*virtualTimer)
	t.index = len(*h)
	*h = append(*h, t)
}

func (h *timerHeap) Pop() any {
	old := *h
	n := len(old)
	t := old[n-1]
	old[n-1] = nil
	t.index = -1
	*h = old[:n-1]
	return t
}
