package reactive

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/rivulet/internal/sched"
)

type fakeEmitter struct {
	sink      *EventSink[string]
	attaches  int
	detaches  int
	attachErr error
}

func (f *fakeEmitter) attach(sink EventSink[string]) (func(), error) {
	if f.attachErr != nil {
		return nil, f.attachErr
	}
	f.attaches++
	f.sink = &sink
	return func() { f.detaches++ }, nil
}

func TestEvent_AttachesWhileSubscribed(t *testing.T) {
	v := sched.NewVirtual()
	em := &fakeEmitter{}
	e := FromEvent[string](em.attach, testOpts(v)...)

	require.NoError(t, v.Flush())
	assert.Equal(t, 0, em.attaches)

	rec, unsub := record[string](e)
	require.NoError(t, v.Flush())
	assert.Equal(t, 1, em.attaches)

	em.sink.Emit("a")
	assert.Empty(t, rec.Values(), "emission is posted to the scheduler")
	require.NoError(t, v.Flush())
	assert.Equal(t, []string{"a"}, rec.Values())

	old := em.sink
	unsub()
	assert.Equal(t, 1, em.detaches)

	// Late emissions from the old attachment are dropped.
	old.Emit("late")
	require.NoError(t, v.Flush())
	_, hasLast := e.Last()
	assert.True(t, hasLast)
	last, _ := e.Last()
	assert.Equal(t, "a", last)
}

func TestEvent_DoneAndFail(t *testing.T) {
	v := sched.NewVirtual()
	em := &fakeEmitter{}
	e := FromEvent[string](em.attach, testOpts(v)...)

	rec, _ := record[string](e)
	require.NoError(t, v.Flush())

	boom := errors.New("boom")
	em.sink.Fail(boom)
	require.NoError(t, v.Flush())

	signals := rec.Signals()
	require.Len(t, signals, 1)
	assert.ErrorIs(t, signals[0].Err, boom)
	assert.True(t, IsSourceError(signals[0].Err))
	assert.Equal(t, 1, em.detaches)
}

func TestEvent_AttachFailure(t *testing.T) {
	v := sched.NewVirtual()
	boom := errors.New("no device")
	em := &fakeEmitter{attachErr: boom}
	e := FromEvent[string](em.attach, testOpts(v)...)

	rec, _ := record[string](e)
	require.NoError(t, v.Flush())

	signals := rec.Signals()
	require.Len(t, signals, 1)
	assert.ErrorIs(t, signals[0].Err, boom)
	assert.True(t, e.IsDisposed())
}

func TestTicks(t *testing.T) {
	v := sched.NewVirtual()
	ticks, err := Ticks(TicksOptions{Interval: 10 * time.Millisecond, Limit: 3}, testOpts(v)...)
	require.NoError(t, err)

	var at []time.Duration
	ticks.On(func(m Message[int]) {
		if m.IsValue() {
			at = append(at, v.Elapsed())
		}
	})
	rec, _ := record[int](ticks)

	require.NoError(t, v.Advance(100*time.Millisecond))
	assert.Equal(t, []int{0, 1, 2}, rec.Values())
	assert.Equal(t, []time.Duration{10 * time.Millisecond, 20 * time.Millisecond, 30 * time.Millisecond}, at)

	signals := rec.Signals()
	require.Len(t, signals, 1)
	assert.Equal(t, "Disposed: ticks complete", signals[0].Context)

	_, timers := v.Pending()
	assert.Equal(t, 0, timers)
}

func TestTicks_InvalidOptions(t *testing.T) {
	_, err := Ticks(TicksOptions{})
	require.Error(t, err)
	assert.True(t, IsConfigError(err))

	_, err = Ticks(TicksOptions{Interval: time.Second, Limit: -1})
	assert.True(t, IsConfigError(err))
}
