package timer

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"sv39kernel/src/sched"
)

func TestTickFiresOnlyExpiredTimers(t *testing.T) {
	q := &Queue{}
	var fired []int

	q.Add(100, func() { fired = append(fired, 100) })
	q.Add(50, func() { fired = append(fired, 50) })
	q.Add(200, func() { fired = append(fired, 200) })

	q.Tick(75)
	assert.Equal(t, []int{50}, fired, "only the deadline <= now must fire")

	q.Tick(150)
	assert.Equal(t, []int{50, 100}, fired)

	q.Tick(1000)
	assert.Equal(t, []int{50, 100, 200}, fired)
}

func TestTickFiresInDeadlineOrderAcrossTies(t *testing.T) {
	q := &Queue{}
	var fired []string

	q.Add(10, func() { fired = append(fired, "a") })
	q.Add(10, func() { fired = append(fired, "b") })
	q.Add(5, func() { fired = append(fired, "c") })

	q.Tick(10)
	assert.ElementsMatch(t, []string{"a", "b", "c"}, fired)
	assert.Equal(t, "c", fired[0], "the earlier deadline must fire first")
}

func TestCancelPreventsFiring(t *testing.T) {
	q := &Queue{}
	fired := false

	timer := q.Add(10, func() { fired = true })
	q.Cancel(timer)
	q.Tick(100)

	assert.False(t, fired, "a canceled timer must not fire")
}

func TestCancelAfterFireIsANoop(t *testing.T) {
	q := &Queue{}
	count := 0
	timer := q.Add(10, func() { count++ })

	q.Tick(10)
	assert.Equal(t, 1, count)

	q.Cancel(timer)
	q.Tick(1000)
	assert.Equal(t, 1, count, "canceling an already-fired timer must not double-fire or panic")
}

func TestSleepFuturePendsUntilDeadline(t *testing.T) {
	q := &Queue{}
	prevGlobal := Global
	Global = q
	defer func() { Global = prevGlobal }()

	// SleepFuture.Poll checks the real Rdtime clock, not Tick's now
	// argument, so the deadline must sit far enough ahead of whatever
	// Now() happens to read at test start to guarantee a first Pending.
	deadline := Now() + 1_000_000_000

	rq := sched.NewQueue()
	rq.Spawn(Sleep(deadline))

	rq.RunOne()
	assert.False(t, rq.HasTask(), "a parked sleep future is not requeued until woken")

	q.Tick(deadline)
	assert.True(t, rq.HasTask(), "firing the timer must wake and requeue the sleep future")
}
