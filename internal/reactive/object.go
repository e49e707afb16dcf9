package reactive

import (
	"maps"
	"sync"

	"github.com/roach88/rivulet/internal/diff"
)

// Object is a writable object stream that publishes structural diffs next
// to whole-value updates. A Set that changes nothing emits nothing.
//
// Set stores a deep copy of its argument and Last returns a deep copy, so
// callers may mutate maps they passed in or read out. Maps delivered to
// subscribers are shared and must be treated as read-only.
type Object struct {
	*Relay[map[string]any]

	diffs *Hub[[]diff.Change]
	mu    sync.Mutex
}

// NewObject creates an Object whose Last is initial.
func NewObject(initial map[string]any, opts ...Option) *Object {
	cfg := NewConfig("object", nil, opts...)
	diffCfg := cfg
	diffCfg.Kind = cfg.Kind + "_diff"
	diffCfg.Name = cfg.Name + "_diff"

	o := &Object{
		Relay: NewRelay[map[string]any](cfg, Hooks{}),
		diffs: NewHub[[]diff.Change](diffCfg, Hooks{}),
	}
	if initial == nil {
		initial = map[string]any{}
	}
	o.setLast(diff.Clone(initial).(map[string]any))
	return o
}

// OnDiff subscribes to the diffs of each effective Set.
func (o *Object) OnDiff(handler Handler[[]diff.Change]) (unsubscribe func()) {
	return o.diffs.On(handler)
}

// Last returns a copy of the current object.
func (o *Object) Last() (map[string]any, bool) {
	last, ok := o.Relay.Last()
	if !ok {
		return nil, false
	}
	return diff.Clone(last).(map[string]any), true
}

// Set replaces the object. The value is published first, then its diff.
func (o *Object) Set(next map[string]any) error {
	if o.IsDisposed() {
		return ErrDisposed
	}
	if next == nil {
		next = map[string]any{}
	}
	next = diff.Clone(next).(map[string]any)

	o.mu.Lock()
	prev, _ := o.Relay.Last()
	changes := diff.Compare(prev, next)
	o.mu.Unlock()

	if len(changes) == 0 {
		return nil
	}
	if err := o.Publish(next); err != nil {
		return err
	}
	return o.diffs.Notify(changes)
}

// Update shallow-merges partial into the current object.
func (o *Object) Update(partial map[string]any) error {
	merged, _ := o.Last()
	if merged == nil {
		merged = map[string]any{}
	}
	maps.Copy(merged, partial)
	return o.Set(merged)
}

// UpdateField sets the value at a dotted path, creating intermediate
// objects as needed.
func (o *Object) UpdateField(path string, value any) error {
	prev, _ := o.Last()
	next, err := diff.SetPath(prev, path, value)
	if err != nil {
		return err
	}
	return o.Set(next)
}

// Dispose closes both the value and the diff streams.
func (o *Object) Dispose(reason string) {
	o.Relay.Dispose(reason)
	o.diffs.Dispose(reason)
}

// Fail fails both the value and the diff streams with err.
func (o *Object) Fail(err error) bool {
	ok := o.Relay.Fail(err)
	o.diffs.Fail(err)
	return ok
}

// Terminate closes both the value and the diff streams with context.
func (o *Object) Terminate(context string, err error) bool {
	ok := o.Relay.Terminate(context, err)
	o.diffs.Terminate(context, err)
	return ok
}
