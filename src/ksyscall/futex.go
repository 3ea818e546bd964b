package ksyscall

import (
	"sv39kernel/src/defs"
	"sv39kernel/src/sched"
	"sv39kernel/src/task"
	"sv39kernel/src/trap"
)

// futexWaitFuture implements FUTEX_WAIT's blocking half: unlike
// wait4Future's busy-poll (process.go), it registers exactly once with
// the address space's futex.Table and then parks for real -- nothing
// re-polls it until FUTEX_WAKE/REQUEUE calls the wake closure handed to
// AddWaiter, which is the Waker this same future was first polled with.
type futexWaitFuture struct {
	t          *task.Task_t
	f          *trap.TrapFrame_t
	uaddr      uintptr
	registered bool
}

func (w *futexWaitFuture) Poll(waker *sched.Waker) sched.Poll {
	if w.registered {
		w.f.SetReturn(0)
		deliverSignal(w.t, w.f)
		return sched.Ready
	}
	if err := w.t.Futex.AddWaiter(w.uaddr, w.t.TidT(), func() { waker.Wake() }); err != 0 {
		w.f.SetReturn(err.Rc())
		return sched.Ready
	}
	w.registered = true
	return sched.Pending
}

// sysFutex implements futex(2): a0 uaddr, a1 futex_op, a2 val, a3
// either a timeout pointer (FUTEX_WAIT, ignored -- no timer integration
// exists yet to honor it) or val2 (FUTEX_REQUEUE/FUTEX_CMP_REQUEUE's
// nr_requeue), a4 uaddr2. Grounded on original_source/modules/futex/
// src/lib.rs's Futexes methods, fanned out by futex_op the way
// original_source's own syscall front end does.
func sysFutex(t *task.Task_t, f *trap.TrapFrame_t, a [6]uintptr) sched.Future {
	uaddr := uintptr(a[0])
	op := int(a[1]) & futexOpMask
	val := int32(a[2])

	switch op {
	case FUTEX_WAIT:
		cur, err := t.Vm.Userreadn(int(uaddr), 4)
		if err != 0 {
			return doneErr(t, f, err)
		}
		if int32(cur) != val {
			return doneErr(t, f, -defs.EAGAIN)
		}
		return &futexWaitFuture{t: t, f: f, uaddr: uaddr}
	case FUTEX_WAKE:
		n := t.Futex.Wake(uaddr, int(a[2]))
		return doneOK(t, f, n)
	case FUTEX_REQUEUE, FUTEX_CMP_REQUEUE:
		newUaddr := uintptr(a[4])
		n := t.Futex.Requeue(uaddr, newUaddr, int(a[2]), int(a[3]))
		return doneOK(t, f, n)
	default:
		return doneErr(t, f, -defs.ENOSYS)
	}
}
