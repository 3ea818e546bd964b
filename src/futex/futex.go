// Package futex implements §4.6's futex half (signal delivery is
// package signal): FUTEX_WAIT/FUTEX_WAKE/FUTEX_REQUEUE against a
// process-wide table of per-address waiter queues, grounded on
// original_source/modules/futex/src/lib.rs's Futexes{map, robust_list}.
// That table keys a hashbrown::HashMap<Tid, Waker> per uaddr and pops
// waiters in (arbitrary) map-iteration order; this tree instead keeps
// insertion order with container/list, the same FIFO-queue idiom
// package sched and fs.BlkList_t already use, which also gives
// FUTEX_WAKE/REQUEUE's "wake/requeue at most n, oldest first" a
// well-defined order original_source leaves unspecified.
package futex

import (
	"container/list"
	"sync"
	"unsafe"

	"sv39kernel/src/defs"
	"sv39kernel/src/hashtable"
	"sv39kernel/src/limits"
)

// waiter pairs a parked task's tid with the Wake callback that resumes
// it, original_source's Waker stored per (uaddr, tid).
type waiter struct {
	tid  defs.Tid_t
	wake func()
}

// queue is the FIFO of tasks parked on one uaddr.
type queue struct {
	waiters list.List // of *waiter
}

func (q *queue) remove(tid defs.Tid_t) bool {
	for e := q.waiters.Front(); e != nil; e = e.Next() {
		if e.Value.(*waiter).tid == tid {
			q.waiters.Remove(e)
			return true
		}
	}
	return false
}

func (q *queue) popN(n int) []*waiter {
	out := make([]*waiter, 0, n)
	for len(out) < n {
		e := q.waiters.Front()
		if e == nil {
			break
		}
		q.waiters.Remove(e)
		out = append(out, e.Value.(*waiter))
	}
	return out
}

// Table is the process-wide futex table, one per address space --
// original_source's Futexes lives inside the process struct it's
// embedded in, so a Table belongs alongside a vm.Vm_t in whatever owns
// the address space it arbitrates (one Table per task group sharing
// CloneVM, in this tree's model).
//
// The queue map is a hashtable.Hashtable_t keyed on hashtable.FutexKey
// rather than a plain map[uintptr]*queue: hashtable.go's FutexKey case
// was already written for exactly this (an address-space discriminator
// plus a byte offset), so this is that key's one real caller. space is
// this Table's own address taken once at construction, a cheap stable
// discriminator since no two live Tables ever share storage.
type Table struct {
	mu    sync.Mutex
	space uintptr
	queue *hashtable.Hashtable_t
}

// NewTable returns an empty futex table.
func NewTable() *Table {
	t := &Table{queue: hashtable.MkHash(64)}
	t.space = uintptr(unsafe.Pointer(t))
	return t
}

func (t *Table) key(uaddr uintptr) hashtable.FutexKey {
	return hashtable.FutexKey{Space: t.space, Off: uaddr}
}

func (t *Table) queueFor(uaddr uintptr, create bool) *queue {
	k := t.key(uaddr)
	if v, ok := t.queue.Get(k); ok {
		return v.(*queue)
	}
	if !create {
		return nil
	}
	q := &queue{}
	t.queue.Set(k, q)
	return q
}

func (t *Table) gcIfEmpty(uaddr uintptr, q *queue) {
	if q.waiters.Len() == 0 {
		t.queue.Del(t.key(uaddr))
	}
}

// AddWaiter registers tid as parked on uaddr, consuming one slot of
// limits.Syslimit.Futexes -- the field limits.go documents as
// "protected by _allfutex lock", t.mu playing that role since a Table
// is this tree's process-wide futex table, one per address space.
func (t *Table) AddWaiter(uaddr uintptr, tid defs.Tid_t, wake func()) defs.Err_t {
	t.mu.Lock()
	defer t.mu.Unlock()
	if limits.Syslimit.Futexes <= 0 {
		return -defs.ENOMEM
	}
	limits.Syslimit.Futexes--
	q := t.queueFor(uaddr, true)
	q.waiters.PushBack(&waiter{tid: tid, wake: wake})
	return 0
}

// RemoveWaiter drops tid from uaddr's queue without waking it -- the
// FUTEX_WAIT timeout/signal-interrupted unwind path, returning the
// futex slot AddWaiter reserved.
func (t *Table) RemoveWaiter(uaddr uintptr, tid defs.Tid_t) {
	t.mu.Lock()
	defer t.mu.Unlock()
	q := t.queueFor(uaddr, false)
	if q == nil {
		return
	}
	if q.remove(tid) {
		limits.Syslimit.Futexes++
	}
	t.gcIfEmpty(uaddr, q)
}

// Wake implements FUTEX_WAKE: wakes up to n waiters parked on uaddr,
// oldest first, and reports how many were woken -- original_source's
// Futexes::wake.
func (t *Table) Wake(uaddr uintptr, n int) int {
	t.mu.Lock()
	q := t.queueFor(uaddr, false)
	if q == nil {
		t.mu.Unlock()
		return 0
	}
	woken := q.popN(n)
	limits.Syslimit.Futexes += len(woken)
	t.gcIfEmpty(uaddr, q)
	t.mu.Unlock()

	for _, w := range woken {
		w.wake()
	}
	return len(woken)
}

// Requeue implements FUTEX_CMP_REQUEUE/FUTEX_REQUEUE: wakes at most
// nWake waiters on oldUaddr, then moves at most nRequeue of the
// remainder onto newUaddr's queue, returning the total of both --
// original_source's Futexes::requeue_waiters, including its
// old==new no-op short circuit.
func (t *Table) Requeue(oldUaddr, newUaddr uintptr, nWake, nRequeue int) int {
	if oldUaddr == newUaddr {
		return 0
	}
	woken := t.Wake(oldUaddr, nWake)

	t.mu.Lock()
	defer t.mu.Unlock()
	old := t.queueFor(oldUaddr, false)
	if old == nil {
		return woken
	}
	moved := old.popN(nRequeue)
	if len(moved) > 0 {
		newQ := t.queueFor(newUaddr, true)
		for _, w := range moved {
			newQ.waiters.PushBack(w)
		}
	}
	t.gcIfEmpty(oldUaddr, old)
	return woken + len(moved)
}
