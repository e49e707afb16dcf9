package sched

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestVirtual_FlushRunsNestedDefers(t *testing.T) {
	v := NewVirtual()

	var got []string
	v.Defer(func() {
		got = append(got, "a")
		v.Defer(func() { got = append(got, "c") })
	})
	v.Defer(func() { got = append(got, "b") })

	require.NoError(t, v.Flush())
	assert.Equal(t, []string{"a", "b", "c"}, got)
	assert.Equal(t, time.Duration(0), v.Elapsed(), "flush must not move time")
}

func TestVirtual_AdvanceFiresInDeadlineOrder(t *testing.T) {
	v := NewVirtual()

	var got []string
	v.AfterFunc(30*time.Millisecond, func() { got = append(got, "30a") })
	v.AfterFunc(10*time.Millisecond, func() { got = append(got, "10") })
	v.AfterFunc(30*time.Millisecond, func() { got = append(got, "30b") })

	require.NoError(t, v.Advance(20*time.Millisecond))
	assert.Equal(t, []string{"10"}, got)
	assert.Equal(t, 20*time.Millisecond, v.Elapsed())

	require.NoError(t, v.Advance(10*time.Millisecond))
	assert.Equal(t, []string{"10", "30a", "30b"}, got, "ties fire in creation order")
}

func TestVirtual_TimerSeesItsDeadline(t *testing.T) {
	v := NewVirtual()

	var at time.Duration
	v.AfterFunc(15*time.Millisecond, func() { at = v.Elapsed() })
	require.NoError(t, v.Advance(100*time.Millisecond))

	assert.Equal(t, 15*time.Millisecond, at)
	assert.Equal(t, 100*time.Millisecond, v.Elapsed())
}

func TestVirtual_TimerArmedByTimerFiresInSameAdvance(t *testing.T) {
	v := NewVirtual()

	var got []time.Duration
	v.AfterFunc(10*time.Millisecond, func() {
		got = append(got, v.Elapsed())
		v.AfterFunc(10*time.Millisecond, func() { got = append(got, v.Elapsed()) })
	})

	require.NoError(t, v.Advance(25*time.Millisecond))
	assert.Equal(t, []time.Duration{10 * time.Millisecond, 20 * time.Millisecond}, got)
}

func TestVirtual_Stop(t *testing.T) {
	v := NewVirtual()

	fired := false
	timer := v.AfterFunc(10*time.Millisecond, func() { fired = true })
	assert.True(t, timer.Stop())
	assert.False(t, timer.Stop())

	require.NoError(t, v.RunUntilIdle())
	assert.False(t, fired)

	_, timers := v.Pending()
	assert.Equal(t, 0, timers)
}

func TestVirtual_RunUntilIdle(t *testing.T) {
	v := NewVirtual()

	count := 0
	v.AfterFunc(time.Second, func() { count++ })
	v.AfterFunc(time.Hour, func() { count++ })

	require.NoError(t, v.RunUntilIdle())
	assert.Equal(t, 2, count)
	assert.Equal(t, time.Hour, v.Elapsed())
}

func TestVirtual_StepLimit(t *testing.T) {
	v := NewVirtual(WithStepLimit(10))

	var loop func()
	loop = func() { v.Defer(loop) }
	v.Defer(loop)

	err := v.Flush()
	require.Error(t, err)
	assert.True(t, IsStepLimitError(err))

	var se *StepLimitError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, 10, se.Limit)
}

func TestVirtual_WithStart(t *testing.T) {
	start := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	v := NewVirtual(WithStart(start))
	assert.Equal(t, start, v.Now())
}

func TestEvery_TicksUntilFalse(t *testing.T) {
	v := NewVirtual()

	var at []time.Duration
	Every(v, 10*time.Millisecond, func() bool {
		at = append(at, v.Elapsed())
		return len(at) < 3
	})

	require.NoError(t, v.RunUntilIdle())
	assert.Equal(t, []time.Duration{10 * time.Millisecond, 20 * time.Millisecond, 30 * time.Millisecond}, at)
}

func TestEvery_Stop(t *testing.T) {
	v := NewVirtual()

	ticks := 0
	stop := Every(v, 10*time.Millisecond, func() bool {
		ticks++
		return true
	})

	require.NoError(t, v.Advance(25*time.Millisecond))
	stop()
	stop()
	require.NoError(t, v.Advance(100*time.Millisecond))

	assert.Equal(t, 2, ticks)
}

func TestEvery_PanicsOnNonPositiveInterval(t *testing.T) {
	assert.Panics(t, func() {
		Every(NewVirtual(), 0, func() bool { return false })
	})
}
