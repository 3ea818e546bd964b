package ksyscall

import (
	"sv39kernel/src/defs"
	"sv39kernel/src/sched"
	"sv39kernel/src/signal"
	"sv39kernel/src/task"
	"sv39kernel/src/trap"
)

// sigTrampolineVA is the fixed user virtual address a signal handler's
// return path is expected to jump to once it finishes. This tree has no
// loader that maps a real trampoline stub there yet (no teacher or
// original_source file supplies one to adapt -- original_source's own
// SignalTrampoline::new allocates and maps a physical page, which this
// simplified layer does not yet do), so the register-level contract
// Deliver/Restore implement is complete while the user-side landing pad
// is a documented placeholder.
const sigTrampolineVA = 0x3ffffff000

// doneFuture completes on its very first Poll, writing rc into the trap
// frame's return register, checking for a deliverable signal, and
// reporting Ready -- the shape nearly every syscall here takes, since
// fd.Fdops_i's Read/Write/Fstat and friends are synchronous Go calls
// rather than state machines. wait4 (process.go), FUTEX_WAIT
// (futex.go) and nanosleep (time.go) are the handlers that need more
// than a single poll.
type doneFuture struct {
	t  *task.Task_t
	f  *trap.TrapFrame_t
	rc uint64
}

func (d *doneFuture) Poll(w *sched.Waker) sched.Poll {
	d.f.SetReturn(d.rc)
	deliverSignal(d.t, d.f)
	return sched.Ready
}

// deliverSignal is the trap-return-time signal check §4.6 calls for:
// every syscall completion is a safe point to act on a pending,
// unblocked signal before the task resumes in user mode, the same spot
// original_source's trap_return sits just after `syscall(...).await`
// returns.
func deliverSignal(t *task.Task_t, f *trap.TrapFrame_t) {
	if !t.Sig.Deliverable() {
		return
	}
	disp, _ := signal.Deliver(t.Sig, t.Vm, f, sigTrampolineVA)
	if disp == signal.DispTerminate {
		t.Exit(1)
	}
}

func done(t *task.Task_t, f *trap.TrapFrame_t, rc uint64) sched.Future {
	return &doneFuture{t: t, f: f, rc: rc}
}

func doneErr(t *task.Task_t, f *trap.TrapFrame_t, err defs.Err_t) sched.Future {
	return done(t, f, err.Rc())
}

func doneOK(t *task.Task_t, f *trap.TrapFrame_t, rc int) sched.Future {
	return done(t, f, uint64(rc))
}
