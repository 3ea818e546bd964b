package ksyscall

import (
	"sv39kernel/src/defs"
	"sv39kernel/src/sched"
	"sv39kernel/src/task"
	"sv39kernel/src/trap"
)

// sysExit implements sys_exit(2): only the calling task becomes a
// zombie, matching original_source/syscall/process.rs's comment that
// _exit() terminates a single thread, not its whole thread group.
func sysExit(t *task.Task_t, f *trap.TrapFrame_t, code int) sched.Future {
	t.Exit(code)
	return done(t, f, 0)
}

// sysExitGroup implements sys_exit_group(2): every task sharing this
// pid exits with the same code. This tree doesn't yet track a separate
// thread-group member list (one Task_t per pid in the common case, per
// §4.4's "process == task until clone(CLONE_THREAD) is added"), so for
// now it is exit's equivalent; the distinction matters once a real
// CLONE_THREAD path exists.
func sysExitGroup(t *task.Task_t, f *trap.TrapFrame_t, code int) sched.Future {
	t.Exit(code)
	return done(t, f, 0)
}

func sysGetppid(t *task.Task_t, f *trap.TrapFrame_t) sched.Future {
	if t.Parent == nil {
		return doneOK(t, f, int(defs.InitTid))
	}
	return doneOK(t, f, int(t.Parent.Pid))
}

// sysClone implements clone(2)/fork(2) (fork is clone with flags == 0 by
// convention on riscv64 Linux): flags low bits select VM/FS/FD sharing,
// exactly task.CloneFlags, and the new task resumes in user mode with
// a0 forced to 0 in its copy of the trap frame -- fork's "child sees
// return value zero" contract.
func sysClone(t *task.Task_t, f *trap.TrapFrame_t, a [6]uintptr) sched.Future {
	var cf task.CloneFlags
	flags := uint(a[0])
	if flags&CLONE_VM != 0 {
		cf |= task.CloneVM
	}
	if flags&CLONE_FS != 0 {
		cf |= task.CloneFS
	}
	if flags&CLONE_FILES != 0 {
		cf |= task.CloneFiles
	}

	childFrame := *f
	childFrame.X[10] = 0
	if sp := a[1]; sp != 0 {
		childFrame.X[2] = uintptr(sp)
	}

	child, err := task.Fork(t, cf, &userTaskFuture{frame: childFrame})
	if err != 0 {
		return doneErr(t, f, err)
	}
	return doneOK(t, f, int(child.Pid))
}

// sysWait4 implements wait4(2): it polls for a zombie child on every
// tick of the executor rather than blocking the calling goroutine
// outright, the cooperative equivalent of original_source/syscall/
// process.rs's (currently unimplemented) sys_wait4 -- a future that
// stays Pending, re-waking itself immediately, until a child has
// exited. Exit status is written through a1's pointer (wstatus) when
// non-null, the wait4(2) ABI's second argument.
func sysWait4(t *task.Task_t, f *trap.TrapFrame_t, a [6]uintptr) sched.Future {
	return &wait4Future{t: t, f: f, pid: int64(int32(a[0])), statusVA: int(a[1])}
}

type wait4Future struct {
	t        *task.Task_t
	f        *trap.TrapFrame_t
	pid      int64
	statusVA int
}

func (w *wait4Future) Poll(waker *sched.Waker) sched.Poll {
	for _, c := range w.t.Children() {
		if w.pid > 0 && int64(c.Pid) != w.pid {
			continue
		}
		if !c.IsZombie() {
			continue
		}
		code := task.Reap(w.t, c)
		if w.statusVA != 0 {
			w.t.Vm.Userwriten(w.statusVA, 4, (code&0xff)<<8)
		}
		w.f.SetReturn(uint64(int64(c.Pid)))
		return sched.Ready
	}
	if len(w.t.Children()) == 0 {
		w.f.SetReturn((-defs.ECHILD).Rc())
		return sched.Ready
	}
	// no zombie yet -- wake ourselves so the executor re-polls us on its
	// next pass instead of parking forever with nothing to ever call
	// Wake (no per-child waiter list exists yet to hang this off of).
	waker.Wake()
	return sched.Pending
}

// userTaskFuture is a placeholder Future for a freshly cloned task until
// the user-mode resume path (trap_return's riscv equivalent) is wired
// in; holding the child's trap frame here is what a real implementation
// resumes from.
type userTaskFuture struct {
	frame trap.TrapFrame_t
}

func (u *userTaskFuture) Poll(w *sched.Waker) sched.Poll {
	return sched.Ready
}
