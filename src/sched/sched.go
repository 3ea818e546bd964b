// Package sched implements the cooperative, future-based executor
// described in §4.2: a two-band (prior/normal) FIFO run queue and a
// type-erased Runnable wrapper whose schedule callback routes a woken
// future to the priority band if the wake happened from outside (an
// interrupt handler, a futex wake) or to the normal band if the future
// woke itself while running (a voluntary yield). Grounded directly on
// original_source/modules/executor/src/lib.rs's TaskQueue/spawn, which
// tracks async_task::ScheduleInfo.woken_while_running for exactly this
// routing decision; container/list supplies the FIFO queues the same way
// fs.BlkList_t wraps container/list for the teacher's buffer cache.
package sched

import (
	"container/list"
	"sync"
)

// Poll is the result of one Future.Poll call.
type Poll int

const (
	Pending Poll = iota
	Ready
)

// Waker lets parked work reschedule itself. A Future stores the Waker it
// was given and calls Wake() once whatever it was waiting on (a futex
// queue entry, a timer, an interrupt) becomes ready.
type Waker struct {
	wake func()
}

// Wake reschedules the task that owns this waker. Safe to call from any
// goroutine, including an interrupt bottom half.
func (w *Waker) Wake() {
	if w != nil && w.wake != nil {
		w.wake()
	}
}

// Future is the minimal poll-based coroutine contract: advance the state
// machine as far as it will go without blocking, returning Pending (having
// arranged for w.Wake to be called later) or Ready when done.
type Future interface {
	Poll(w *Waker) Poll
}

// runnable pairs a Future with the running/woken-while-running bookkeeping
// original_source's async_task schedule closure uses to pick a band.
type runnable struct {
	fut     Future
	mu      sync.Mutex
	running bool
	woken   bool
}

// Queue is a two-priority-band FIFO run queue, exactly
// original_source/modules/executor/src/lib.rs's TaskQueue{normal, prior}.
type Queue struct {
	mu     sync.Mutex
	prior  list.List
	normal list.List
}

// NewQueue returns an empty run queue.
func NewQueue() *Queue {
	return &Queue{}
}

func (q *Queue) pushPrior(r *runnable) {
	q.mu.Lock()
	q.prior.PushBack(r)
	q.mu.Unlock()
}

func (q *Queue) pushNormal(r *runnable) {
	q.mu.Lock()
	q.normal.PushBack(r)
	q.mu.Unlock()
}

func (q *Queue) fetch() *runnable {
	q.mu.Lock()
	defer q.mu.Unlock()
	if e := q.prior.Front(); e != nil {
		q.prior.Remove(e)
		return e.Value.(*runnable)
	}
	if e := q.normal.Front(); e != nil {
		q.normal.Remove(e)
		return e.Value.(*runnable)
	}
	return nil
}

// PriorLen and NormalLen report per-band queue depth, used by the console
// idle-time diagnostics (§6).
func (q *Queue) PriorLen() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.prior.Len()
}

func (q *Queue) NormalLen() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.normal.Len()
}

func (q *Queue) HasTask() bool {
	return q.PriorLen() > 0 || q.NormalLen() > 0
}

// Spawn enqueues fut onto the priority band (a freshly spawned task is
// treated as externally woken, matching spawn()'s initial schedule in the
// original) and returns the Waker future code elsewhere can use to wake it
// directly without going through Queue, e.g. before it has first run.
func (q *Queue) Spawn(fut Future) *Waker {
	r := &runnable{fut: fut}
	w := &Waker{wake: func() { r.handleWake(q) }}
	q.pushPrior(r)
	return w
}

func (r *runnable) handleWake(q *Queue) {
	r.mu.Lock()
	running := r.running
	r.woken = true
	r.mu.Unlock()
	if running {
		return
	}
	r.mu.Lock()
	r.woken = false
	r.mu.Unlock()
	q.pushPrior(r)
}

func (r *runnable) run(q *Queue) {
	r.mu.Lock()
	r.running = true
	r.woken = false
	r.mu.Unlock()

	w := &Waker{wake: func() { r.handleWake(q) }}
	state := r.fut.Poll(w)

	r.mu.Lock()
	r.running = false
	wasWoken := r.woken
	r.mu.Unlock()

	if state == Ready {
		return
	}
	if wasWoken {
		q.pushNormal(r)
	}
	// else: genuinely parked; some external Wake() will re-enqueue it.
}

// RunOne pops and runs a single runnable, priority band first. Reports
// whether it found one to run.
func (q *Queue) RunOne() bool {
	r := q.fetch()
	if r == nil {
		return false
	}
	r.run(q)
	return true
}

// RunUntilIdle drains the queue, running prior-band work ahead of
// normal-band work, until both are empty -- original_source's
// run_until_idle().
func (q *Queue) RunUntilIdle() {
	for q.RunOne() {
	}
}

// RunPriorUntilIdle drains only the priority band, leaving normal-band
// work queued; used by the trap gateway to service a burst of
// interrupt-woken work without starving the hart's own return-to-user
// path on a long normal-band backlog.
func (q *Queue) RunPriorUntilIdle() {
	for {
		r := func() *runnable {
			q.mu.Lock()
			defer q.mu.Unlock()
			if e := q.prior.Front(); e != nil {
				q.prior.Remove(e)
				return e.Value.(*runnable)
			}
			return nil
		}()
		if r == nil {
			return
		}
		r.run(q)
	}
}
