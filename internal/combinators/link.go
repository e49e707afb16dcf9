package combinators

import (
	"sync"

	"github.com/roach88/rivulet/internal/reactive"
)

// link holds a subscription to one upstream stream for as long as at
// least one output needs it.
type link[T any] struct {
	src    reactive.Stream[T]
	handle reactive.Handler[T]

	mu      sync.Mutex
	holders int
	unsub   func()
}

func newLink[T any](src reactive.Stream[T], handle reactive.Handler[T]) *link[T] {
	return &link[T]{src: src, handle: handle}
}

func (l *link[T]) acquire() {
	l.mu.Lock()
	l.holders++
	if l.holders != 1 {
		l.mu.Unlock()
		return
	}
	l.mu.Unlock()

	unsub := l.src.On(l.handle)

	l.mu.Lock()
	if l.holders == 0 {
		l.mu.Unlock()
		unsub()
		return
	}
	l.unsub = unsub
	l.mu.Unlock()

	if d, ok := l.src.(reactive.Disposable); ok && d.IsDisposed() {
		l.handle(reactive.SignalMessage[T](reactive.SignalDone, "upstream already disposed", nil))
	}
}

func (l *link[T]) release() {
	l.mu.Lock()
	if l.holders == 0 {
		l.mu.Unlock()
		return
	}
	l.holders--
	if l.holders != 0 {
		l.mu.Unlock()
		return
	}
	unsub := l.unsub
	l.unsub = nil
	l.mu.Unlock()

	if unsub != nil {
		unsub()
	}
}

// holderHooks returns hub hooks that hold the link while one output is
// active. Every output gets its own hooks.
func (l *link[T]) holderHooks() reactive.Hooks {
	var (
		mu     sync.Mutex
		active bool
	)
	on := func() {
		mu.Lock()
		if active {
			mu.Unlock()
			return
		}
		active = true
		mu.Unlock()
		l.acquire()
	}
	off := func() {
		mu.Lock()
		if !active {
			mu.Unlock()
			return
		}
		active = false
		mu.Unlock()
		l.release()
	}
	return reactive.Hooks{OnFirstSubscribe: on, OnNoSubscribers: off, OnDispose: off}
}

// fanIn subscribes to every source while attached and reports messages
// with the index of the source they came from.
type fanIn[T any] struct {
	sources   []reactive.Stream[T]
	onMessage func(i int, m reactive.Message[T])

	mu       sync.Mutex
	attached bool
	unsubs   []func()
}

func newFanIn[T any](sources []reactive.Stream[T], onMessage func(int, reactive.Message[T])) *fanIn[T] {
	return &fanIn[T]{sources: sources, onMessage: onMessage}
}

func (f *fanIn[T]) attach() {
	f.mu.Lock()
	if f.attached {
		f.mu.Unlock()
		return
	}
	f.attached = true
	f.mu.Unlock()

	unsubs := make([]func(), len(f.sources))
	for i, src := range f.sources {
		unsubs[i] = src.On(func(m reactive.Message[T]) { f.onMessage(i, m) })
	}

	f.mu.Lock()
	if !f.attached {
		f.mu.Unlock()
		for _, u := range unsubs {
			u()
		}
		return
	}
	f.unsubs = unsubs
	f.mu.Unlock()

	for i, src := range f.sources {
		if d, ok := src.(reactive.Disposable); ok && d.IsDisposed() {
			f.onMessage(i, reactive.SignalMessage[T](reactive.SignalDone, "upstream already disposed", nil))
		}
	}
}

func (f *fanIn[T]) detach() {
	f.mu.Lock()
	if !f.attached {
		f.mu.Unlock()
		return
	}
	f.attached = false
	unsubs := f.unsubs
	f.unsubs = nil
	f.mu.Unlock()

	for _, u := range unsubs {
		u()
	}
}

func (f *fanIn[T]) hooks() reactive.Hooks {
	return reactive.Hooks{
		OnFirstSubscribe: f.attach,
		OnNoSubscribers:  f.detach,
		OnDispose:        f.detach,
	}
}

func validateSources[T any](operator string, sources []reactive.Stream[T]) error {
	if len(sources) == 0 {
		return reactive.NewConfigError(operator, "sources", "at least one source is required")
	}
	for _, s := range sources {
		if s == nil {
			return reactive.NewConfigError(operator, "sources", "nil source")
		}
	}
	return nil
}
