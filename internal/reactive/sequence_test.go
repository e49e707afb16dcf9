package reactive

import (
	"context"
	"errors"
	"iter"
	"runtime"
	"slices"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/rivulet/internal/sched"
)

// countingIterator counts pulls so laziness is observable.
type countingIterator struct {
	items  []int
	pulls  int
	closed bool
}

func (c *countingIterator) Next() (int, bool, error) {
	c.pulls++
	if len(c.items) == 0 {
		return 0, false, nil
	}
	v := c.items[0]
	c.items = c.items[1:]
	return v, true, nil
}

func (c *countingIterator) Close() {
	c.closed = true
}

func TestSequence_EmitsAllThenCompletes(t *testing.T) {
	v := sched.NewVirtual()
	s := FromSlice([]int{1, 2, 3}, testOpts(v)...)

	rec, _ := record[int](s)
	assert.Empty(t, rec.Values(), "nothing is pulled synchronously")

	require.NoError(t, v.Flush())
	assert.Equal(t, []int{1, 2, 3}, rec.Values())

	signals := rec.Signals()
	require.Len(t, signals, 1)
	assert.Equal(t, "Disposed: sequence complete", signals[0].Context)
	assert.Nil(t, signals[0].Err)
	assert.Equal(t, SequenceDone, s.State())

	last, ok := s.Last()
	require.True(t, ok)
	assert.Equal(t, 3, last)
}

func TestSequence_IsLazy(t *testing.T) {
	v := sched.NewVirtual()
	it := &countingIterator{items: []int{1, 2}}
	s := FromIterator[int](it, testOpts(v)...)

	require.NoError(t, v.Flush())
	assert.Equal(t, 0, it.pulls)
	assert.Equal(t, SequenceIdle, s.State())

	rec, _ := record[int](s)
	require.NoError(t, v.Flush())
	assert.Equal(t, []int{1, 2}, rec.Values())
	assert.Equal(t, 3, it.pulls)
	assert.True(t, it.closed, "iterator is closed on completion")
}

func TestSequence_Eager(t *testing.T) {
	v := sched.NewVirtual()
	it := &countingIterator{items: []int{1, 2}}
	s := FromIterator[int](it, append(testOpts(v), WithEager())...)

	require.NoError(t, v.Flush())
	assert.Equal(t, 3, it.pulls)
	assert.True(t, s.IsDisposed())
	last, _ := s.Last()
	assert.Equal(t, 2, last)
}

func TestSequence_PausesBetweenPulls(t *testing.T) {
	v := sched.NewVirtual()
	it := &countingIterator{items: []int{1, 2, 3}}
	s := FromIterator[int](it, testOpts(v)...)

	var first []int
	var unsub func()
	unsub = s.On(func(m Message[int]) {
		if m.IsValue() {
			first = append(first, m.Value)
			unsub()
		}
	})

	require.NoError(t, v.Flush())
	assert.Equal(t, []int{1}, first)
	assert.Equal(t, 1, it.pulls, "no pull after the last subscriber left")
	assert.Equal(t, SequenceIdle, s.State())
	assert.False(t, s.IsDisposed())

	// Resuming continues where reading stopped.
	rec, _ := record[int](s)
	require.NoError(t, v.Flush())
	assert.Equal(t, []int{2, 3}, rec.Values())
	assert.True(t, rec.Closed())
}

func TestSequence_PullFailure(t *testing.T) {
	v := sched.NewVirtual()
	boom := errors.New("boom")
	n := 0
	s := FromIterator[int](IteratorFunc[int](func() (int, bool, error) {
		n++
		if n == 2 {
			return 0, false, boom
		}
		return n, true, nil
	}), testOpts(v)...)

	rec, _ := record[int](s)
	require.NoError(t, v.Flush())

	assert.Equal(t, []int{1}, rec.Values())
	signals := rec.Signals()
	require.Len(t, signals, 1)
	assert.True(t, signals[0].Failed())
	assert.ErrorIs(t, signals[0].Err, boom)
	assert.True(t, IsSourceError(signals[0].Err))
	assert.Equal(t, SequenceErrored, s.State())
}

func TestSequence_DisposeReleasesSeq(t *testing.T) {
	v := sched.NewVirtual()
	released := false
	seq := iter.Seq[int](func(yield func(int) bool) {
		defer func() { released = true }()
		for i := 0; ; i++ {
			if !yield(i) {
				return
			}
		}
	})
	s := FromSeq(seq, testOpts(v)...)

	var got []int
	s.On(func(m Message[int]) {
		if m.IsValue() {
			got = append(got, m.Value)
			if m.Value == 2 {
				s.Dispose("enough")
			}
		}
	})

	require.NoError(t, v.Flush())
	assert.Equal(t, []int{0, 1, 2}, got)
	assert.True(t, released)
	assert.Equal(t, SequenceDone, s.State())
}

func TestFromSeq_HoldsNoGoroutineUntilRead(t *testing.T) {
	v := sched.NewVirtual()
	base := runtime.NumGoroutine()
	settled := func() bool { return runtime.NumGoroutine() <= base+2 }

	for range 50 {
		FromSeq(slices.Values([]int{1, 2, 3}), testOpts(v)...)
	}
	assert.Eventually(t, settled, time.Second, 10*time.Millisecond,
		"never-subscribed sequences must not start their iterators")

	paused := make([]*Sequence[int], 0, 50)
	for range 50 {
		s := FromSeq(slices.Values([]int{1, 2, 3}), testOpts(v)...)
		var unsub func()
		unsub = s.On(func(m Message[int]) {
			if m.IsValue() {
				unsub()
			}
		})
		paused = append(paused, s)
	}
	require.NoError(t, v.Flush())
	for _, s := range paused {
		assert.Equal(t, SequenceIdle, s.State())
		s.Dispose("test")
	}
	assert.Eventually(t, settled, time.Second, 10*time.Millisecond,
		"disposing a paused sequence stops its iterator")
}

func TestSequence_FromChannel(t *testing.T) {
	v := sched.NewVirtual()
	ch := make(chan int, 3)
	ch <- 1
	ch <- 2
	ch <- 3
	close(ch)

	s := FromChannel[int](ch, testOpts(v)...)
	rec, _ := record[int](s)

	require.Eventually(t, func() bool {
		_ = v.Flush()
		return rec.Closed()
	}, time.Second, time.Millisecond)
	assert.Equal(t, []int{1, 2, 3}, rec.Values())
}

func TestSequence_FromFuncCancelledOnDispose(t *testing.T) {
	v := sched.NewVirtual()
	cancelled := make(chan struct{})
	s := FromFunc(func(ctx context.Context) (int, bool, error) {
		<-ctx.Done()
		close(cancelled)
		return 0, false, ctx.Err()
	}, testOpts(v)...)

	rec, _ := record[int](s)
	require.NoError(t, v.Flush())
	s.Dispose("stop")

	select {
	case <-cancelled:
	case <-time.After(time.Second):
		t.Fatal("pull was not cancelled")
	}
	require.Eventually(t, func() bool {
		_ = v.Flush()
		tasks, _ := v.Pending()
		return tasks == 0
	}, time.Second, time.Millisecond)

	signals := rec.Signals()
	require.Len(t, signals, 1)
	assert.Equal(t, "Disposed: stop", signals[0].Context)
}

func TestResolve(t *testing.T) {
	v := sched.NewVirtual()
	opts := testOpts(v)

	tests := []struct {
		name     string
		producer any
	}{
		{"slice", []int{1, 2}},
		{"seq", iter.Seq[int](func(yield func(int) bool) {
			_ = yield(1) && yield(2)
		})},
		{"seq literal", func(yield func(int) bool) {
			_ = yield(1) && yield(2)
		}},
		{"iterator", &countingIterator{items: []int{1, 2}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, err := Resolve[int](tt.producer, opts...)
			require.NoError(t, err)

			rec, _ := record(s)
			require.NoError(t, v.Flush())
			assert.Equal(t, []int{1, 2}, rec.Values())
			assert.True(t, rec.Closed())
		})
	}
}

func TestResolve_StreamPassesThrough(t *testing.T) {
	val := NewValue(1, testOpts(sched.NewVirtual())...)
	s, err := Resolve[int](val)
	require.NoError(t, err)
	assert.Same(t, val, s)
}

func TestResolve_Unsupported(t *testing.T) {
	_, err := Resolve[int](42)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrUnsupportedSource)
	assert.True(t, IsSourceError(err))

	assert.Panics(t, func() { MustResolve[int]("nope") })
}
