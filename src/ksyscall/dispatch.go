package ksyscall

import (
	"sv39kernel/src/console"
	"sv39kernel/src/defs"
	"sv39kernel/src/sched"
	"sv39kernel/src/task"
	"sv39kernel/src/trap"
)

func init() {
	trap.Dispatch = Dispatch
}

// Dispatch is the function trap.HandleUserTrap calls for every
// ExcEcallU exception; it reads the syscall number and arguments out of
// f (the trapped task's saved registers) and returns the Future package
// task enqueues on the shared executor, exactly original_source's
// `syscall(id, args).await` but expressed as an explicit Future value
// instead of an async fn, per §4.2/§4.5.
func Dispatch(t *task.Task_t, f *trap.TrapFrame_t) sched.Future {
	t.Syscalls.Inc()
	num := f.SyscallNum()
	a := f.SyscallArgs()

	switch num {
	case SYS_exit:
		return sysExit(t, f, int(int32(a[0])))
	case SYS_exit_group:
		return sysExitGroup(t, f, int(int32(a[0])))
	case SYS_getpid:
		return doneOK(t, f, int(t.Pid))
	case SYS_getppid:
		return sysGetppid(t, f)
	case SYS_gettid:
		return doneOK(t, f, t.Tid())
	case SYS_set_tid_address:
		return doneOK(t, f, t.Tid())
	case SYS_clone:
		return sysClone(t, f, a)
	case SYS_wait4:
		return sysWait4(t, f, a)
	case SYS_read:
		return sysRead(t, f, a)
	case SYS_write:
		return sysWrite(t, f, a)
	case SYS_close:
		return doneErr(t, f, t.CloseFd(int(a[0])))
	case SYS_dup, SYS_dup3:
		return sysDup(t, f, a)
	case SYS_brk:
		return sysBrk(t, f, a)
	case SYS_uname:
		return sysUname(t, f, a)
	case SYS_getrusage:
		return sysGetrusage(t, f, a)
	case SYS_sched_getaffinity:
		return sysSchedGetaffinity(t, f, a)
	case SYS_sched_setaffinity:
		return sysSchedSetaffinity(t, f, a)
	case SYS_sched_yield:
		return doneOK(t, f, 0)
	case SYS_getrandom:
		return sysGetrandom(t, f, a)
	case SYS_rt_sigaction:
		return sysRtSigaction(t, f, a)
	case SYS_rt_sigprocmask:
		return sysRtSigprocmask(t, f, a)
	case SYS_rt_sigreturn:
		return sysRtSigreturn(t, f)
	case SYS_kill:
		return sysKill(t, f, a)
	case SYS_tkill:
		return sysTkill(t, f, a)
	case SYS_tgkill:
		return sysTgkill(t, f, a)
	case SYS_futex:
		return sysFutex(t, f, a)
	case SYS_nanosleep:
		return sysNanosleep(t, f, a)
	case SYS_clock_gettime:
		return sysClockGettime(t, f, a)
	default:
		console.Warnf("unsupported syscall %d", num)
		return doneErr(t, f, -defs.ENOSYS)
	}
}
