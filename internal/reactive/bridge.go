package reactive

import "sync"

// BridgeConfig describes how a Bridge reacts to its upstream.
type BridgeConfig[In any] struct {
	// OnValue is called for every upstream value. Required.
	OnValue func(In)

	// OnStart is called just before the bridge subscribes upstream.
	OnStart func()

	// OnStop is called after the bridge unsubscribes from upstream, for
	// whatever reason: last downstream subscriber left, upstream closed or
	// the bridge was disposed.
	OnStop func()

	// OnDone is called with the upstream's terminal signal, after OnStop
	// and before the bridge terminates itself.
	OnDone func(Message[In])

	// Eager subscribes upstream at construction instead of on first
	// downstream subscribe.
	Eager bool

	// KeepOpen stops the upstream signal from terminating the bridge.
	KeepOpen bool
}

// Bridge subscribes to an upstream stream and republishes whatever its
// OnValue chooses to publish. It is the building block of the operators.
//
// Lazy by default: the upstream subscription exists exactly while the
// bridge has downstream subscribers. An upstream terminal signal is
// forwarded downstream with the same context and error unless KeepOpen is
// set.
type Bridge[In, Out any] struct {
	*Relay[Out]

	upstream Stream[In]
	cfg      BridgeConfig[In]

	mu       sync.Mutex
	attached bool
	unsub    func()
}

// NewBridge creates a bridge over upstream. kind labels the bridge in logs
// and metrics. The bridge inherits upstream's scheduler unless opts set one.
func NewBridge[In, Out any](upstream Stream[In], kind string, cfg BridgeConfig[In], opts ...Option) *Bridge[In, Out] {
	if upstream == nil {
		panic("rivulet: bridge requires an upstream")
	}
	if cfg.OnValue == nil {
		panic("rivulet: bridge requires OnValue")
	}

	c := NewConfig(kind, upstream, opts...)
	eager := cfg.Eager || c.Eager

	b := &Bridge[In, Out]{upstream: upstream, cfg: cfg}
	hooks := Hooks{OnDispose: b.detach}
	if !eager {
		hooks.OnFirstSubscribe = b.attach
		hooks.OnNoSubscribers = b.detach
	}
	b.Relay = NewRelay[Out](c, hooks)

	if eager {
		b.attach()
	}
	return b
}

// Upstream returns the bridged stream.
func (b *Bridge[In, Out]) Upstream() Stream[In] {
	return b.upstream
}

// Attached reports whether the bridge is currently subscribed upstream.
func (b *Bridge[In, Out]) Attached() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.attached
}

func (b *Bridge[In, Out]) attach() {
	b.mu.Lock()
	if b.attached || b.IsDisposed() {
		b.mu.Unlock()
		return
	}
	b.attached = true
	b.mu.Unlock()

	if b.cfg.OnStart != nil {
		b.cfg.OnStart()
	}
	unsub := b.upstream.On(b.handle)

	b.mu.Lock()
	if !b.attached {
		// Detached while subscribing.
		b.mu.Unlock()
		unsub()
		return
	}
	b.unsub = unsub
	b.mu.Unlock()

	// A closed upstream will never signal again.
	if d, ok := b.upstream.(Disposable); ok && d.IsDisposed() {
		b.handle(SignalMessage[In](SignalDone, "upstream already disposed", nil))
	}
}

func (b *Bridge[In, Out]) detach() {
	b.mu.Lock()
	if !b.attached {
		b.mu.Unlock()
		return
	}
	b.attached = false
	unsub := b.unsub
	b.unsub = nil
	b.mu.Unlock()

	if unsub != nil {
		unsub()
	}
	if b.cfg.OnStop != nil {
		b.cfg.OnStop()
	}
}

func (b *Bridge[In, Out]) handle(m Message[In]) {
	if m.IsValue() {
		b.cfg.OnValue(m.Value)
		return
	}

	b.detach()
	if b.cfg.OnDone != nil {
		b.cfg.OnDone(m)
	}
	if !b.cfg.KeepOpen {
		b.Terminate(m.Context, m.Err)
	}
}
