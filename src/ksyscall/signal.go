package ksyscall

import (
	"encoding/binary"

	"sv39kernel/src/defs"
	"sv39kernel/src/sched"
	"sv39kernel/src/signal"
	"sv39kernel/src/task"
	"sv39kernel/src/trap"
)

// sigactionSize is struct sigaction's wire size: handler, mask, flags,
// restorer, each a 64-bit field, matching signal.SigAction's layout.
const sigactionSize = 8 * 4

func readSigAction(t *task.Task_t, uva int) (signal.SigAction, defs.Err_t) {
	var sa signal.SigAction
	buf := make([]byte, sigactionSize)
	if err := t.Vm.User2k(buf, uva); err != 0 {
		return sa, err
	}
	sa.Handler = uintptr(binary.LittleEndian.Uint64(buf[0:]))
	sa.Mask = signal.SigSet(binary.LittleEndian.Uint64(buf[8:]))
	sa.Flags = uintptr(binary.LittleEndian.Uint64(buf[16:]))
	sa.Restorer = uintptr(binary.LittleEndian.Uint64(buf[24:]))
	return sa, 0
}

func writeSigAction(t *task.Task_t, uva int, sa signal.SigAction) defs.Err_t {
	buf := make([]byte, sigactionSize)
	binary.LittleEndian.PutUint64(buf[0:], uint64(sa.Handler))
	binary.LittleEndian.PutUint64(buf[8:], uint64(sa.Mask))
	binary.LittleEndian.PutUint64(buf[16:], uint64(sa.Flags))
	binary.LittleEndian.PutUint64(buf[24:], uint64(sa.Restorer))
	return t.Vm.K2user(buf, uva)
}

// sysRtSigaction implements rt_sigaction(2): a0 signum, a1 new act (may
// be NULL), a2 old act (may be NULL), grounded on original_source/
// syscall/signal.rs's sys_sigaction -- SIGKILL/SIGSTOP's disposition
// can't be changed there either, so a write to either is rejected with
// EINVAL rather than silently accepted.
func sysRtSigaction(t *task.Task_t, f *trap.TrapFrame_t, a [6]uintptr) sched.Future {
	s := signal.Sig(int32(a[0]))
	if !s.IsValid() {
		return doneErr(t, f, -defs.EINVAL)
	}
	if a[2] != 0 {
		old := t.Sig.GetAction(s)
		if err := writeSigAction(t, int(a[2]), old.ToSigAction()); err != 0 {
			return doneErr(t, f, err)
		}
	}
	if a[1] != 0 {
		if s == signal.SIGKILL || s == signal.SIGSTOP {
			return doneErr(t, f, -defs.EINVAL)
		}
		sa, err := readSigAction(t, int(a[1]))
		if err != 0 {
			return doneErr(t, f, err)
		}
		t.Sig.SetAction(s, signal.ResolveAction(sa))
	}
	return doneOK(t, f, 0)
}

// sysRtSigprocmask implements rt_sigprocmask(2): a0 how, a1 new set
// (may be NULL), a2 old set (may be NULL), a3 sigsetsize -- only the
// 8-byte riscv64 glibc sigset_t is supported, the only size any current
// caller in this tree ever passes.
func sysRtSigprocmask(t *task.Task_t, f *trap.TrapFrame_t, a [6]uintptr) sched.Future {
	if a[2] != 0 {
		old := t.Sig.CurrentMask()
		if err := t.Vm.Userwriten(int(a[2]), 8, int(old)); err != 0 {
			return doneErr(t, f, err)
		}
	}
	if a[1] != 0 {
		n, err := t.Vm.Userreadn(int(a[1]), 8)
		if err != 0 {
			return doneErr(t, f, err)
		}
		if _, ok := t.Sig.SetMask(int(a[0]), signal.SigSet(uint64(n))); !ok {
			return doneErr(t, f, -defs.EINVAL)
		}
	}
	return doneOK(t, f, 0)
}

// sigreturnFuture completes immediately without touching a0: unlike
// every other syscall, rt_sigreturn's restored registers -- including
// whatever a0 held before the handler ran -- must survive untouched,
// so it can't go through doneFuture's unconditional SetReturn.
type sigreturnFuture struct {
	t *task.Task_t
	f *trap.TrapFrame_t
}

func (s *sigreturnFuture) Poll(w *sched.Waker) sched.Poll {
	deliverSignal(s.t, s.f)
	return sched.Ready
}

// sysRtSigreturn implements rt_sigreturn(2): a handler's trampoline
// epilogue invokes this to unwind signal.Deliver's frame rewrite,
// restoring every register and sepc from the UContext saved on the
// user stack just below the current sp.
func sysRtSigreturn(t *task.Task_t, f *trap.TrapFrame_t) sched.Future {
	uc, err := signal.Restore(t.Sig, t.Vm, int(f.X[2]))
	if err != 0 {
		t.Exit(1)
		return &sigreturnFuture{t: t, f: f}
	}
	f.X = uc.X
	f.Sepc = uc.Sepc
	return &sigreturnFuture{t: t, f: f}
}

// deliverKill raises s against every task the target selector names:
// a positive pid targets one task, tgkill's semantics here (no
// separate thread-group member list exists yet, per sysExitGroup's
// comment, so pid and tid name the same lookup).
func deliverKill(pid int, s signal.Sig) defs.Err_t {
	target, ok := task.Get(defs.Tid_t(pid))
	if !ok {
		return -defs.ESRCH
	}
	target.Sig.Raise(s)
	return 0
}

// sysKill implements kill(2): a0 pid, a1 sig. Negative/zero pid
// (process-group or "every task I can signal") is not modeled since
// this tree's process-group bookkeeping isn't wired to this call yet;
// only the single-task form is supported.
func sysKill(t *task.Task_t, f *trap.TrapFrame_t, a [6]uintptr) sched.Future {
	pid := int(int32(a[0]))
	s := signal.Sig(int32(a[1]))
	if pid <= 0 || !s.IsValid() {
		return doneErr(t, f, -defs.EINVAL)
	}
	if err := deliverKill(pid, s); err != 0 {
		return doneErr(t, f, err)
	}
	return doneOK(t, f, 0)
}

// sysTgkill implements tgkill(2): a0 tgid, a1 tid, a2 sig -- tgid is
// checked against the target's Pid the way the real syscall validates
// the thread belongs to the named group.
func sysTgkill(t *task.Task_t, f *trap.TrapFrame_t, a [6]uintptr) sched.Future {
	tgid := int(int32(a[0]))
	tid := int(int32(a[1]))
	s := signal.Sig(int32(a[2]))
	if tid <= 0 || !s.IsValid() {
		return doneErr(t, f, -defs.EINVAL)
	}
	target, ok := task.Get(defs.Tid_t(tid))
	if !ok || int(target.Pid) != tgid {
		return doneErr(t, f, -defs.ESRCH)
	}
	target.Sig.Raise(s)
	return doneOK(t, f, 0)
}

// sysTkill implements tkill(2): a0 tid, a1 sig -- tgkill without the
// thread-group check.
func sysTkill(t *task.Task_t, f *trap.TrapFrame_t, a [6]uintptr) sched.Future {
	tid := int(int32(a[0]))
	s := signal.Sig(int32(a[1]))
	if tid <= 0 || !s.IsValid() {
		return doneErr(t, f, -defs.EINVAL)
	}
	if err := deliverKill(tid, s); err != 0 {
		return doneErr(t, f, err)
	}
	return doneOK(t, f, 0)
}
