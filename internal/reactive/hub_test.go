package reactive

import (
	"errors"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/rivulet/internal/sched"
)

func newTestHub(v *sched.Virtual, hooks Hooks, opts ...Option) *Hub[int] {
	return NewHub[int](NewConfig("hub", nil, append(testOpts(v), opts...)...), hooks)
}

func TestHub_DeliversInSubscriptionOrder(t *testing.T) {
	v := sched.NewVirtual()
	h := newTestHub(v, Hooks{})

	var order []string
	h.On(func(m Message[int]) { order = append(order, "a") })
	h.On(func(m Message[int]) { order = append(order, "b") })
	h.On(func(m Message[int]) { order = append(order, "c") })

	require.NoError(t, h.Notify(1))
	assert.Equal(t, []string{"a", "b", "c"}, order)
}

func TestHub_ActivationIsDeferred(t *testing.T) {
	v := sched.NewVirtual()
	starts := 0
	h := newTestHub(v, Hooks{OnFirstSubscribe: func() { starts++ }})

	h.On(func(Message[int]) {})
	assert.Equal(t, 0, starts, "activation must not run inside On")
	assert.False(t, h.IsActive())

	require.NoError(t, v.Flush())
	assert.Equal(t, 1, starts)
	assert.True(t, h.IsActive())

	// A second subscriber does not reactivate.
	h.On(func(Message[int]) {})
	require.NoError(t, v.Flush())
	assert.Equal(t, 1, starts)
}

func TestHub_UnsubscribeBeforeActivationCancelsIt(t *testing.T) {
	v := sched.NewVirtual()
	starts, stops := 0, 0
	h := newTestHub(v, Hooks{
		OnFirstSubscribe: func() { starts++ },
		OnNoSubscribers:  func() { stops++ },
	})

	unsub := h.On(func(Message[int]) {})
	unsub()
	require.NoError(t, v.Flush())

	assert.Equal(t, 0, starts)
	assert.Equal(t, 0, stops)
}

func TestHub_ReactivatesOnEveryFirstSubscriber(t *testing.T) {
	v := sched.NewVirtual()
	starts, stops := 0, 0
	h := newTestHub(v, Hooks{
		OnFirstSubscribe: func() { starts++ },
		OnNoSubscribers:  func() { stops++ },
	})

	for range 3 {
		unsub := h.On(func(Message[int]) {})
		require.NoError(t, v.Flush())
		unsub()
	}

	assert.Equal(t, 3, starts)
	assert.Equal(t, 3, stops)
}

func TestHub_UnsubscribeIsIdempotent(t *testing.T) {
	v := sched.NewVirtual()
	stops := 0
	h := newTestHub(v, Hooks{
		OnFirstSubscribe: func() {},
		OnNoSubscribers:  func() { stops++ },
	})

	unsubA := h.On(func(Message[int]) {})
	h.On(func(Message[int]) {})
	require.NoError(t, v.Flush())

	unsubA()
	unsubA()
	unsubA()
	assert.Equal(t, 1, h.Len())
	assert.Equal(t, 0, stops)
}

func TestHub_SubscriberAddedDuringNotifyMissesCurrentValue(t *testing.T) {
	v := sched.NewVirtual()
	h := newTestHub(v, Hooks{})

	var late []int
	added := false
	h.On(func(m Message[int]) {
		if !added {
			added = true
			h.On(func(m Message[int]) { late = append(late, m.Value) })
		}
	})

	require.NoError(t, h.Notify(1))
	require.NoError(t, h.Notify(2))
	assert.Equal(t, []int{2}, late)
}

func TestHub_SubscriberRemovedDuringNotifyIsSkipped(t *testing.T) {
	v := sched.NewVirtual()
	h := newTestHub(v, Hooks{})

	var got []int
	var unsubB func()
	h.On(func(Message[int]) { unsubB() })
	unsubB = h.On(func(m Message[int]) { got = append(got, m.Value) })

	require.NoError(t, h.Notify(1))
	assert.Empty(t, got)
	assert.Equal(t, 1, h.Len())
}

func TestHub_DisposeIsIdempotent(t *testing.T) {
	v := sched.NewVirtual()
	disposals := 0
	h := newTestHub(v, Hooks{OnDispose: func() { disposals++ }})

	var signals []Message[int]
	h.On(func(m Message[int]) {
		if m.IsSignal() {
			signals = append(signals, m)
		}
	})

	h.Dispose("first")
	h.Dispose("second")
	assert.False(t, h.Terminate("third", nil))

	require.Len(t, signals, 1)
	assert.Equal(t, SignalDone, signals[0].Signal)
	assert.Equal(t, "Disposed: first", signals[0].Context)
	assert.Equal(t, 1, disposals)
	assert.True(t, h.IsDisposed())
	assert.Equal(t, 0, h.Len())
}

func TestHub_NotifyAfterDispose(t *testing.T) {
	v := sched.NewVirtual()
	h := newTestHub(v, Hooks{})

	calls := 0
	h.On(func(Message[int]) { calls++ })
	h.Dispose("done")
	calls = 0

	err := h.Notify(1)
	assert.ErrorIs(t, err, ErrDisposed)
	assert.ErrorIs(t, h.Signal(SignalDone, "again"), ErrDisposed)
	assert.Equal(t, 0, calls)

	// Subscribing to a disposed hub registers nothing.
	unsub := h.On(func(Message[int]) { calls++ })
	unsub()
	assert.Equal(t, 0, h.Len())
}

func TestHub_Fail(t *testing.T) {
	v := sched.NewVirtual()
	h := newTestHub(v, Hooks{})
	boom := errors.New("boom")

	var got Message[int]
	h.On(func(m Message[int]) { got = m })
	assert.True(t, h.Fail(boom))

	assert.True(t, got.Failed())
	assert.Equal(t, "Failed: boom", got.Context)
	assert.ErrorIs(t, got.Err, boom)
}

func TestHub_RecoversHandlerPanics(t *testing.T) {
	v := sched.NewVirtual()
	var observed []any
	h := newTestHub(v, Hooks{}, WithPanicObserver(func(id string, r any) {
		observed = append(observed, r)
	}))

	var got []int
	h.On(func(Message[int]) { panic("bad handler") })
	h.On(func(m Message[int]) { got = append(got, m.Value) })

	require.NoError(t, h.Notify(7))
	assert.Equal(t, []int{7}, got)
	assert.Equal(t, []any{"bad handler"}, observed)
}

func TestHub_PropagatePanics(t *testing.T) {
	v := sched.NewVirtual()
	h := newTestHub(v, Hooks{}, WithPropagatePanics())
	h.On(func(Message[int]) { panic("bad handler") })

	assert.PanicsWithValue(t, "bad handler", func() { _ = h.Notify(1) })
}

func TestHub_Clear(t *testing.T) {
	v := sched.NewVirtual()
	stops := 0
	h := newTestHub(v, Hooks{
		OnFirstSubscribe: func() {},
		OnNoSubscribers:  func() { stops++ },
	})

	calls := 0
	h.On(func(Message[int]) { calls++ })
	h.On(func(Message[int]) { calls++ })
	require.NoError(t, v.Flush())

	h.Clear()
	assert.Equal(t, 0, h.Len())
	assert.Equal(t, 1, stops)
	assert.False(t, h.IsDisposed())

	require.NoError(t, h.Notify(1))
	assert.Equal(t, 0, calls)
}

func TestHub_NilHandlerPanics(t *testing.T) {
	h := newTestHub(sched.NewVirtual(), Hooks{})
	assert.Panics(t, func() { h.On(nil) })
}

func TestSequenceGenerator(t *testing.T) {
	g := NewSequenceGenerator("s")
	assert.Equal(t, "s-1", g.Generate())
	assert.Equal(t, "s-2", g.Generate())
	assert.Equal(t, "stream-1", NewSequenceGenerator("").Generate())
}

func TestUUIDv7Generator(t *testing.T) {
	g := UUIDv7Generator{}
	a, b := g.Generate(), g.Generate()
	assert.Len(t, a, 36)
	assert.NotEqual(t, a, b)
}

func TestMessage_String(t *testing.T) {
	assert.Equal(t, "value(3)", ValueMessage(3).String())
	assert.Equal(t, "done(Disposed: x)", SignalMessage[int](SignalDone, "Disposed: x", nil).String())

	sig := SignalAs[string](SignalMessage[int](SignalDone, "c", nil))
	assert.True(t, sig.IsSignal())
	assert.Equal(t, "c", sig.Context)
	assert.Panics(t, func() { SignalAs[string](ValueMessage(1)) })
}

// notifications reads rivulet_notifications_total for the given kind label.
func notifications(t *testing.T, kind string) float64 {
	t.Helper()
	families, err := prometheus.DefaultGatherer.Gather()
	require.NoError(t, err)
	for _, mf := range families {
		if mf.GetName() != "rivulet_notifications_total" {
			continue
		}
		for _, m := range mf.GetMetric() {
			for _, l := range m.GetLabel() {
				if l.GetName() == "kind" && l.GetValue() == kind {
					return m.GetCounter().GetValue()
				}
			}
		}
	}
	return 0
}

func TestHub_MetricsLabelledByKindNotName(t *testing.T) {
	v := sched.NewVirtual()
	h := NewHub[int](NewConfig("kind_label_test", nil, append(testOpts(v), WithName("pipeline[0].custom"))...), Hooks{})
	assert.Equal(t, "kind_label_test", h.Kind())
	assert.Equal(t, "pipeline[0].custom", h.Name())

	before := notifications(t, "kind_label_test")
	h.On(func(Message[int]) {})
	require.NoError(t, h.Notify(1))
	require.NoError(t, h.Notify(2))

	assert.Equal(t, 2.0, notifications(t, "kind_label_test")-before)
	assert.Zero(t, notifications(t, "pipeline[0].custom"))
}
