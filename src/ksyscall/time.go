package ksyscall

import (
	"sv39kernel/src/sched"
	"sv39kernel/src/task"
	"sv39kernel/src/timer"
	"sv39kernel/src/trap"
)

// ticksPerSec is this tree's assumed board timebase -- no frequency was
// retrieved into the pack (hart.Rdtime's doc comment just says "fixed
// board frequency"), so nanosleep's requested duration is converted
// using a placeholder 10 MHz, the same order of magnitude QEMU's virt
// machine's CLINT runs at; a real boot would read this out of the
// device tree instead.
const ticksPerSec = 10_000_000

func secNsecToTicks(sec, nsec int64) uint64 {
	return uint64(sec)*ticksPerSec + uint64(nsec)*ticksPerSec/1_000_000_000
}

func ticksToSecNsec(ticks uint64) (sec, nsec int64) {
	sec = int64(ticks / ticksPerSec)
	nsec = int64((ticks % ticksPerSec) * 1_000_000_000 / ticksPerSec)
	return
}

// sleepFuture adapts timer.SleepFuture to complete the syscall (set a0,
// check for a delivered signal) once the deadline passes, rather than
// exposing ksyscall's Future-completion convention to package timer.
type sleepFuture struct {
	t     *task.Task_t
	f     *trap.TrapFrame_t
	sleep *timer.SleepFuture
}

func (s *sleepFuture) Poll(w *sched.Waker) sched.Poll {
	if s.sleep.Poll(w) == sched.Pending {
		return sched.Pending
	}
	s.f.SetReturn(0)
	deliverSignal(s.t, s.f)
	return sched.Ready
}

// sysNanosleep implements nanosleep(2): a0 points at a struct timespec
// {tv_sec, tv_nsec} requested duration; a1 (the remaining-time output
// pointer for an interrupted sleep) is unused since this tree's sleep
// can't yet be interrupted early by a signal mid-wait.
func sysNanosleep(t *task.Task_t, f *trap.TrapFrame_t, a [6]uintptr) sched.Future {
	sec, err := t.Vm.Userreadn(int(a[0]), 8)
	if err != 0 {
		return doneErr(t, f, err)
	}
	nsec, err := t.Vm.Userreadn(int(a[0])+8, 8)
	if err != 0 {
		return doneErr(t, f, err)
	}
	deadline := timer.Now() + secNsecToTicks(int64(sec), int64(nsec))
	return &sleepFuture{t: t, f: f, sleep: timer.Sleep(deadline)}
}

// sysClockGettime implements clock_gettime(2) for CLOCK_MONOTONIC/
// CLOCK_REALTIME: this tree has no wall-clock source (no RTC driver was
// retrieved into the pack), so both clocks report time since boot --
// timer.Now() converted out of raw hart.Rdtime ticks.
func sysClockGettime(t *task.Task_t, f *trap.TrapFrame_t, a [6]uintptr) sched.Future {
	sec, nsec := ticksToSecNsec(timer.Now())
	if err := t.Vm.Userwriten(int(a[1]), 8, int(sec)); err != 0 {
		return doneErr(t, f, err)
	}
	if err := t.Vm.Userwriten(int(a[1])+8, 8, int(nsec)); err != 0 {
		return doneErr(t, f, err)
	}
	return doneOK(t, f, 0)
}
