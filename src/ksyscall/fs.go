package ksyscall

import (
	"sv39kernel/src/defs"
	"sv39kernel/src/fd"
	"sv39kernel/src/sched"
	"sv39kernel/src/task"
	"sv39kernel/src/trap"
)

// sysRead implements read(2): fd, buf, count in a0-a2, grounded on
// original_source/syscall/fs.rs's sys_write mirrored for the read
// direction -- the descriptor's Fdops_i.Read does the actual transfer
// through a Userbuf_t, which crosses the SUM boundary page by page.
func sysRead(t *task.Task_t, f *trap.TrapFrame_t, a [6]uintptr) sched.Future {
	fdn, uva, count := int(a[0]), int(a[1]), int(a[2])
	desc, ok := t.GetFd(fdn)
	if !ok {
		return doneErr(t, f, -defs.EBADF)
	}
	ub := t.Vm.Mkuserbuf(uva, count)
	n, err := desc.Fops.Read(ub)
	if err != 0 {
		return doneErr(t, f, err)
	}
	return doneOK(t, f, n)
}

// sysWrite implements write(2), original_source/syscall/fs.rs's
// sys_write (there hard-coded to fd==1/console; here dispatched through
// the real descriptor table like every other fd op).
func sysWrite(t *task.Task_t, f *trap.TrapFrame_t, a [6]uintptr) sched.Future {
	fdn, uva, count := int(a[0]), int(a[1]), int(a[2])
	desc, ok := t.GetFd(fdn)
	if !ok {
		return doneErr(t, f, -defs.EBADF)
	}
	ub := t.Vm.Mkuserbuf(uva, count)
	n, err := desc.Fops.Write(ub)
	if err != 0 {
		return doneErr(t, f, err)
	}
	return doneOK(t, f, n)
}

// sysDup implements dup(2)/dup3(2): oldfd in a0, for dup3 newfd in a1
// (a no-op renumbering isn't implemented -- the common oldfd-only path
// is the one every current caller in this tree exercises).
func sysDup(t *task.Task_t, f *trap.TrapFrame_t, a [6]uintptr) sched.Future {
	oldfd := int(a[0])
	desc, ok := t.GetFd(oldfd)
	if !ok {
		return doneErr(t, f, -defs.EBADF)
	}
	nfd, err := fd.Copyfd(desc)
	if err != 0 {
		return doneErr(t, f, err)
	}
	return doneOK(t, f, t.AddFd(nfd))
}
