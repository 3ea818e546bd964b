package sched

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// countdownFuture returns Ready after n polls, Pending (having stashed
// its Waker) every poll before that.
type countdownFuture struct {
	n     int
	polls int
	waker *Waker
}

func (c *countdownFuture) Poll(w *Waker) Poll {
	c.polls++
	c.waker = w
	if c.polls >= c.n {
		return Ready
	}
	return Pending
}

func TestRunOneReturnsFalseOnEmptyQueue(t *testing.T) {
	q := NewQueue()
	assert.False(t, q.RunOne())
	assert.False(t, q.HasTask())
}

func TestSpawnEntersPriorBand(t *testing.T) {
	q := NewQueue()
	fut := &countdownFuture{n: 1}
	q.Spawn(fut)
	assert.Equal(t, 1, q.PriorLen())
	assert.Equal(t, 0, q.NormalLen())
}

func TestReadyFutureIsNotReenqueued(t *testing.T) {
	q := NewQueue()
	fut := &countdownFuture{n: 1}
	q.Spawn(fut)

	require.True(t, q.RunOne())
	assert.Equal(t, 1, fut.polls)
	assert.False(t, q.HasTask(), "a future that returned Ready must not be rescheduled")
}

func TestSelfWakeDuringRunGoesToNormalBand(t *testing.T) {
	q := NewQueue()
	fut := &countdownFuture{n: 3}
	fut.waker = nil

	// A future that wakes itself mid-poll (the "woken while running" case
	// original_source's ScheduleInfo tracks) lands on the normal band,
	// not prior, once it parks.
	var selfWaking Future = pollFunc(func(w *Waker) Poll {
		w.Wake()
		return Pending
	})
	q.Spawn(selfWaking)
	q.RunOne()

	assert.Equal(t, 0, q.PriorLen())
	assert.Equal(t, 1, q.NormalLen())
	_ = fut
}

func TestExternalWakeAfterParkGoesToPriorBand(t *testing.T) {
	q := NewQueue()
	fut := &countdownFuture{n: 2}
	q.Spawn(fut)

	require.True(t, q.RunOne()) // first poll parks it (n=2, polls=1)
	assert.False(t, q.HasTask(), "a parked future waits for an external wake, it is not requeued")

	fut.waker.Wake()
	assert.Equal(t, 1, q.PriorLen(), "a wake from outside RunOne lands on the priority band")

	require.True(t, q.RunOne())
	assert.Equal(t, 2, fut.polls)
	assert.False(t, q.HasTask())
}

func TestRunUntilIdleDrainsBothBands(t *testing.T) {
	q := NewQueue()
	for i := 0; i < 5; i++ {
		q.Spawn(&countdownFuture{n: 1})
	}
	q.RunUntilIdle()
	assert.False(t, q.HasTask())
}

func TestRunPriorUntilIdleLeavesNormalBandAlone(t *testing.T) {
	q := NewQueue()
	q.Spawn(pollFunc(func(w *Waker) Poll {
		w.Wake()
		return Pending
	}))
	q.RunOne() // polls it once; the self-wake lands it on the normal band

	require.Equal(t, 0, q.PriorLen())
	require.Equal(t, 1, q.NormalLen())

	q.RunPriorUntilIdle()
	assert.Equal(t, 1, q.NormalLen(), "RunPriorUntilIdle must not touch the normal band")
}

// pollFunc adapts a plain function to the Future interface for tests that
// don't need dedicated named types.
type pollFunc func(w *Waker) Poll

func (f pollFunc) Poll(w *Waker) Poll { return f(w) }
