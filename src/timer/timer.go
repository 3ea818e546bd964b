// Package timer implements the software timer queue §4.6's "signal
// delivery on futexes" section assumes alongside it (a bounded
// FUTEX_WAIT, nanosleep, CLOCK_MONOTONIC) -- a min-heap of deadlines
// ordered soonest-first and woken by trap.TimerTick, grounded on
// original_source/modules/timer/src/timer.rs's TimerManager (a
// BinaryHeap<Reverse<Timer>> behind a spinlock) and kernel/src/timer/
// timeout_task.rs's TimeoutTaskFuture, the async sleep built on top of
// it. container/heap stands in for alloc::collections::BinaryHeap, the
// same "reach for the matching stdlib collection" choice package sched
// and futex already made with container/list.
package timer

import (
	"container/heap"
	"sync"

	"sv39kernel/src/hart"
)

// Now returns the current monotonic tick count, hart.Rdtime's raw
// free-running counter -- original_source's current_time_duration
// equivalent, kept in raw ticks rather than converted to a Duration
// since no board timebase frequency was retrieved into the pack to
// convert with.
func Now() uint64 {
	return hart.Rdtime()
}

// Timer is one pending deadline, original_source's Timer{expire,
// callback}.
type Timer struct {
	deadline uint64
	wake     func()
	index    int // heap.Interface bookkeeping, -1 once removed
}

// Deadline reports when t fires, in Now()'s tick units.
func (t *Timer) Deadline() uint64 { return t.deadline }

type timerHeap []*Timer

func (h timerHeap) Len() int            { return len(h) }
func (h timerHeap) Less(i, j int) bool  { return h[i].deadline < h[j].deadline }
func (h timerHeap) Swap(i, j int) {
	h[i], h[j] = h[j], h[i]
	h[i].index = i
	h[j].index = j
}
func (h *timerHeap) Push(x interface{}) {
	t := x.(*Timer)
	t.index = len(*h)
	*h = append(*h, t)
}
func (h *timerHeap) Pop() interface{} {
	old := *h
	n := len(old)
	t := old[n-1]
	old[n-1] = nil
	t.index = -1
	*h = old[:n-1]
	return t
}

// Queue is the process-wide timer min-heap, original_source's
// TIMER_MANAGER static.
type Queue struct {
	mu sync.Mutex
	h  timerHeap
}

// Global is the one timer queue trap.TimerTick drains, the same
// single-shared-instance pattern task.Executor uses for the run queue.
var Global = &Queue{}

// Add schedules wake to run no earlier than deadline (Now() ticks),
// returning the Timer handle Cancel needs.
func (q *Queue) Add(deadline uint64, wake func()) *Timer {
	q.mu.Lock()
	defer q.mu.Unlock()
	t := &Timer{deadline: deadline, wake: wake}
	heap.Push(&q.h, t)
	return t
}

// Cancel removes t from the queue if it hasn't fired yet. Safe to call
// more than once or after t has already fired.
func (q *Queue) Cancel(t *Timer) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if t.index < 0 || t.index >= len(q.h) || q.h[t.index] != t {
		return
	}
	heap.Remove(&q.h, t.index)
}

// Tick fires every timer whose deadline has passed as of now, the body
// of the trap.TimerTick hook this package installs in its init().
// Firing happens outside the lock so a wake callback (which may itself
// call back into Queue, e.g. to schedule a retry) never deadlocks.
func (q *Queue) Tick(now uint64) {
	var fired []*Timer
	q.mu.Lock()
	for len(q.h) > 0 && q.h[0].deadline <= now {
		fired = append(fired, heap.Pop(&q.h).(*Timer))
	}
	q.mu.Unlock()

	for _, t := range fired {
		t.wake()
	}
}
