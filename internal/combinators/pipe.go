package combinators

import (
	"fmt"
	"sync"

	"github.com/roach88/rivulet/internal/reactive"
)

// Pipe chains streams: every value of a segment is Set into the next one
// and the last segment's values become the pipe's output. A terminal
// signal from any segment closes the pipe with that signal's context and
// error; the segments themselves are only unsubscribed.
type Pipe[T any] struct {
	*reactive.Relay[T]

	segments []reactive.Stream[T]

	mu     sync.Mutex
	unsubs []func()
}

// NewPipe creates a pipe over segments. Every segment after the first must
// be reactive.Writable.
func NewPipe[T any](segments []reactive.Stream[T], opts ...reactive.Option) (*Pipe[T], error) {
	if err := validateSources("pipe", segments); err != nil {
		return nil, err
	}
	for i, s := range segments[1:] {
		if _, ok := s.(reactive.Writable[T]); !ok {
			return nil, reactive.NewConfigError("pipe", "segments", fmt.Sprintf("segment %d is not writable", i+1))
		}
	}

	p := &Pipe[T]{segments: segments}
	cfg := reactive.NewConfig("pipe", segments[0], opts...)
	p.Relay = reactive.NewRelay[T](cfg, reactive.Hooks{
		OnFirstSubscribe: p.wire,
		OnNoSubscribers:  p.unwire,
		OnDispose:        p.unwire,
	})
	return p, nil
}

// Set writes into the first segment.
func (p *Pipe[T]) Set(v T) error {
	if p.IsDisposed() {
		return reactive.ErrDisposed
	}
	w, ok := p.segments[0].(reactive.Writable[T])
	if !ok {
		return reactive.NewConfigError("pipe", "segments", "segment 0 is not writable")
	}
	return w.Set(v)
}

func (p *Pipe[T]) wire() {
	last := len(p.segments) - 1
	unsubs := make([]func(), 0, len(p.segments))
	for i, seg := range p.segments {
		var next func(T)
		if i == last {
			next = func(v T) { _ = p.Publish(v) }
		} else {
			w := p.segments[i+1].(reactive.Writable[T])
			next = func(v T) { _ = w.Set(v) }
		}
		unsubs = append(unsubs, seg.On(func(m reactive.Message[T]) {
			if m.IsValue() {
				next(m.Value)
				return
			}
			p.Terminate(m.Context, m.Err)
		}))
	}

	p.mu.Lock()
	p.unsubs = unsubs
	p.mu.Unlock()

	for _, seg := range p.segments {
		if d, ok := seg.(reactive.Disposable); ok && d.IsDisposed() {
			p.Terminate("Disposed: segment already disposed", nil)
			return
		}
	}
}

func (p *Pipe[T]) unwire() {
	p.mu.Lock()
	unsubs := p.unsubs
	p.unsubs = nil
	p.mu.Unlock()

	for _, u := range unsubs {
		u()
	}
}
