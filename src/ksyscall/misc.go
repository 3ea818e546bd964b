package ksyscall

import (
	"crypto/rand"

	"sv39kernel/src/defs"
	"sv39kernel/src/sched"
	"sv39kernel/src/task"
	"sv39kernel/src/trap"
)

// utsName mirrors original_source/syscall/misc.rs's UtsName: six
// NUL-padded 65-byte fields written verbatim into the caller's buffer.
type utsName struct {
	sysname, nodename, release, version, machine, domainname [65]byte
}

func utsField(dst *[65]byte, s string) {
	copy(dst[:], s)
}

func defaultUtsName() utsName {
	var u utsName
	utsField(&u.sysname, "Linux")
	utsField(&u.nodename, "sv39kernel")
	utsField(&u.release, "5.19.0")
	utsField(&u.version, "preemptible-sv39")
	utsField(&u.machine, "riscv64")
	utsField(&u.domainname, "localhost")
	return u
}

// sysUname implements uname(2): a0 is the UtsName* destination.
func sysUname(t *task.Task_t, f *trap.TrapFrame_t, a [6]uintptr) sched.Future {
	u := defaultUtsName()
	buf := make([]byte, 0, 65*6)
	for _, field := range [][65]byte{u.sysname, u.nodename, u.release, u.version, u.machine, u.domainname} {
		buf = append(buf, field[:]...)
	}
	if err := t.Vm.K2user(buf, int(a[0])); err != 0 {
		return doneErr(t, f, err)
	}
	return doneOK(t, f, 0)
}

// sysGetrusage implements getrusage(2) for RUSAGE_SELF/RUSAGE_CHILDREN,
// grounded on original_source/syscall/resource.rs's sys_getrusage --
// RUSAGE_THREAD is left unsupported there too ("unimplemented!()").
func sysGetrusage(t *task.Task_t, f *trap.TrapFrame_t, a [6]uintptr) sched.Future {
	const (
		rusageSelf     = 0
		rusageChildren = -1
	)
	who := int32(a[0])
	var ru task.Rusage
	switch who {
	case rusageSelf:
		ru = task.ToRusage(&t.Times, t.Minflt, t.Majflt, t.Inblock, t.Oublock)
	case rusageChildren:
		ru = task.ToRusage(&task.TimeStat{UtimeNs: t.Times.CutimeNs, StimeNs: t.Times.CstimeNs}, 0, 0, 0, 0)
	default:
		return doneErr(t, f, -defs.EINVAL)
	}
	if err := writeRusage(t, int(a[1]), &ru); err != 0 {
		return doneErr(t, f, err)
	}
	return doneOK(t, f, 0)
}

// writeRusage serializes ru field-by-field through K2user rather than
// taking ru's address with unsafe.Pointer -- the same "copy through a
// byte buffer" approach Userdmap8_inner's callers already use, avoiding
// any assumption about Rusage's in-memory layout matching the ABI's.
func writeRusage(t *task.Task_t, uva int, ru *task.Rusage) defs.Err_t {
	fields := []int64{
		ru.UtimeSec, ru.UtimeUsec, ru.StimeSec, ru.StimeUsec,
		ru.Maxrss, ru.Ixrss, ru.Idrss, ru.Isrss,
		ru.Minflt, ru.Majflt, ru.Nswap, ru.Inblock, ru.Oublock,
		ru.Msgsnd, ru.Msgrcv, ru.Nsignals, ru.Nvcsw, ru.Nivcsw,
	}
	for i, v := range fields {
		if err := t.Vm.Userwriten(uva+i*8, 8, int(v)); err != 0 {
			return err
		}
	}
	return 0
}

// sysSchedGetaffinity/sysSchedSetaffinity implement sched_getaffinity(2)/
// sched_setaffinity(2), grounded on original_source/syscall/sched.rs;
// pid == 0 means "the calling task" there and here.
func sysSchedGetaffinity(t *task.Task_t, f *trap.TrapFrame_t, a [6]uintptr) sched.Future {
	target := t
	if pid := int(a[0]); pid != 0 {
		got, ok := task.Get(defs.Pid_t(pid))
		if !ok {
			return doneErr(t, f, -defs.ESRCH)
		}
		target = got
	}
	if err := t.Vm.Userwriten(int(a[2]), 8, int(target.Affin)); err != 0 {
		return doneErr(t, f, err)
	}
	return doneOK(t, f, 0)
}

func sysSchedSetaffinity(t *task.Task_t, f *trap.TrapFrame_t, a [6]uintptr) sched.Future {
	target := t
	if pid := int(a[0]); pid != 0 {
		got, ok := task.Get(defs.Pid_t(pid))
		if !ok {
			return doneErr(t, f, -defs.ESRCH)
		}
		target = got
	}
	n, err := t.Vm.Userreadn(int(a[2]), 8)
	if err != 0 {
		return doneErr(t, f, err)
	}
	target.Affin = task.CpuMask(uint64(n))
	return doneOK(t, f, 0)
}

// sysGetrandom implements getrandom(2), original_source/syscall/
// random.rs's sys_getrandom backed by a kernel-resident RNG; this tree
// has no entropy-collecting driver of its own (no teacher or
// original_source file supplies one), so crypto/rand's OS-backed source
// stands in, matching only the syscall's observable contract.
func sysGetrandom(t *task.Task_t, f *trap.TrapFrame_t, a [6]uintptr) sched.Future {
	buflen := int(a[1])
	if buflen <= 0 {
		return doneOK(t, f, 0)
	}
	buf := make([]byte, buflen)
	n, _ := rand.Read(buf)
	if err := t.Vm.K2user(buf[:n], int(a[0])); err != 0 {
		return doneErr(t, f, err)
	}
	return doneOK(t, f, n)
}
