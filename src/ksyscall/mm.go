package ksyscall

import (
	"sv39kernel/src/mem"
	"sv39kernel/src/sched"
	"sv39kernel/src/task"
	"sv39kernel/src/trap"
	"sv39kernel/src/util"
)

// heapBase is where a task's break-managed heap begins -- a fixed offset
// above the lowest user address, leaving room below it for a loaded
// binary's text/data/bss. original_source's sys_brk (syscall/mm.rs) is
// an unimplemented `todo!()`; the actual placement policy here is this
// repository's own, since no teacher or original_source file specifies
// one.
const heapBase = mem.USERMIN + (1 << 30)

// sysBrk implements brk(2): addr == 0 queries the current break: this
// repository always returns the current break, in keeping with the
// Linux-observed behavior the syscall/resource.rs comment on
// sys_brk notes ("on failure, the system call returns the current
// break") -- growth is the only way this implementation can fail short
// of ENOMEM, so it never needs to distinguish query from a failed grow.
func sysBrk(t *task.Task_t, f *trap.TrapFrame_t, a [6]uintptr) sched.Future {
	addr := uintptr(a[0])
	cur := t.Brk()
	if addr == 0 {
		if cur == 0 {
			return doneOK(t, f, heapBase)
		}
		return doneOK(t, f, int(cur))
	}
	if cur == 0 {
		cur = uintptr(heapBase)
	}
	if addr <= cur {
		return doneOK(t, f, int(t.SetBrk(addr)))
	}

	growStart := util.Roundup(int(cur), mem.PGSIZE)
	growLen := util.Roundup(int(addr)-growStart, mem.PGSIZE)
	if growLen > 0 {
		t.Vm.Lock_pmap()
		t.Vm.Vmadd_anon(growStart, growLen, mem.PTE_U|mem.PTE_W)
		t.Vm.Unlock_pmap()
	}
	return doneOK(t, f, int(t.SetBrk(addr)))
}
