package reactive

import (
	"context"
	"errors"
	"sync"

	"github.com/roach88/rivulet/internal/metrics"
)

// SequenceState is the reading state of a Sequence.
type SequenceState int32

const (
	// SequenceIdle: no pull is wanted.
	SequenceIdle SequenceState = iota
	// SequenceReading: elements are pulled one per scheduler task.
	SequenceReading
	// SequenceDone: the source is exhausted or the stream was disposed.
	SequenceDone
	// SequenceErrored: a pull failed.
	SequenceErrored
)

// String implements fmt.Stringer.
func (s SequenceState) String() string {
	switch s {
	case SequenceIdle:
		return "idle"
	case SequenceReading:
		return "reading"
	case SequenceDone:
		return "done"
	case SequenceErrored:
		return "errored"
	default:
		return "unknown"
	}
}

// Iterator is a synchronous pull source. ok is false once exhausted.
type Iterator[T any] interface {
	Next() (value T, ok bool, err error)
}

// AsyncIterator is a pull source whose Next may block. It is called off
// the scheduler; ctx is cancelled when the stream is disposed.
type AsyncIterator[T any] interface {
	Next(ctx context.Context) (value T, ok bool, err error)
}

// IteratorFunc adapts a function to Iterator.
type IteratorFunc[T any] func() (T, bool, error)

// Next implements Iterator.
func (f IteratorFunc[T]) Next() (T, bool, error) { return f() }

// AsyncFunc adapts a function to AsyncIterator.
type AsyncFunc[T any] func(ctx context.Context) (T, bool, error)

// Next implements AsyncIterator.
func (f AsyncFunc[T]) Next(ctx context.Context) (T, bool, error) { return f(ctx) }

// Sequence turns a pull source into a push stream.
//
// Each element is pulled in its own scheduler task and at most one pull is
// outstanding at a time. Reading starts on first subscribe (or at
// construction with WithEager) and pauses when the last subscriber leaves;
// a value that arrives while paused is discarded. Exhaustion disposes the
// stream with reason "sequence complete"; a failed pull fails it with a
// *SourceError.
type Sequence[T any] struct {
	*Relay[T]

	syncIt  Iterator[T]
	asyncIt AsyncIterator[T]
	release func()

	ctx    context.Context
	cancel context.CancelFunc

	mu      sync.Mutex
	state   SequenceState
	pulling bool
	freed   bool
}

func newSequence[T any](syncIt Iterator[T], asyncIt AsyncIterator[T], release func(), opts []Option) *Sequence[T] {
	cfg := NewConfig("sequence", nil, opts...)
	s := &Sequence[T]{
		syncIt:  syncIt,
		asyncIt: asyncIt,
		release: release,
	}
	s.ctx, s.cancel = context.WithCancel(context.Background())

	hooks := Hooks{OnDispose: s.finish}
	if !cfg.Eager {
		hooks.OnFirstSubscribe = s.startReading
		hooks.OnNoSubscribers = s.stopReading
	}
	s.Relay = NewRelay[T](cfg, hooks)

	if cfg.Eager {
		s.startReading()
	}
	return s
}

// State returns the current reading state.
func (s *Sequence[T]) State() SequenceState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

func (s *Sequence[T]) startReading() {
	s.mu.Lock()
	if s.state != SequenceIdle {
		s.mu.Unlock()
		return
	}
	s.state = SequenceReading
	s.mu.Unlock()
	s.schedulePull()
}

func (s *Sequence[T]) stopReading() {
	s.mu.Lock()
	if s.state == SequenceReading {
		s.state = SequenceIdle
	}
	s.mu.Unlock()
}

func (s *Sequence[T]) schedulePull() {
	s.mu.Lock()
	if s.state != SequenceReading || s.pulling {
		s.mu.Unlock()
		return
	}
	s.pulling = true
	s.mu.Unlock()
	s.Scheduler().Defer(s.pull)
}

func (s *Sequence[T]) pull() {
	s.mu.Lock()
	if s.state != SequenceReading {
		s.pulling = false
		s.mu.Unlock()
		return
	}
	s.mu.Unlock()

	kind := s.hub.Kind()
	if s.syncIt != nil {
		done := metrics.TrackPull(kind)
		v, ok, err := s.syncIt.Next()
		done()
		s.handle(v, ok, err)
		return
	}

	go func() {
		done := metrics.TrackPull(kind)
		v, ok, err := s.asyncIt.Next(s.ctx)
		done()
		s.Scheduler().Defer(func() { s.handle(v, ok, err) })
	}()
}

func (s *Sequence[T]) handle(v T, ok bool, err error) {
	s.mu.Lock()
	s.pulling = false
	state := s.state
	s.mu.Unlock()

	if s.IsDisposed() {
		return
	}

	switch {
	case err != nil:
		if errors.Is(err, context.Canceled) && s.ctx.Err() != nil {
			return
		}
		s.setState(SequenceErrored)
		s.hub.Logger().Debug("sequence pull failed", "error", err)
		s.Fail(&SourceError{Stream: s.ID(), Op: "pull", Err: err})
	case !ok:
		s.setState(SequenceDone)
		s.Dispose("sequence complete")
	case state != SequenceReading:
		// Paused while the pull was in flight.
	default:
		_ = s.Publish(v)
		s.schedulePull()
	}
}

func (s *Sequence[T]) setState(state SequenceState) {
	s.mu.Lock()
	s.state = state
	s.mu.Unlock()
}

func (s *Sequence[T]) finish() {
	s.mu.Lock()
	if s.state == SequenceIdle || s.state == SequenceReading {
		s.state = SequenceDone
	}
	freed := s.freed
	s.freed = true
	s.mu.Unlock()

	s.cancel()
	if !freed && s.release != nil {
		s.release()
	}
}
