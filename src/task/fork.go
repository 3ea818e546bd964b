package task

import (
	"sv39kernel/src/defs"
	"sv39kernel/src/fd"
	"sv39kernel/src/hart"
	"sv39kernel/src/sched"
	"sv39kernel/src/vm"
)

// CloneFlags selects which resources Fork shares versus copies, the Go
// realization of clone(2)'s CLONE_* bitmask (§4.4's "fork/clone/exec
// semantics").
type CloneFlags int

const (
	CloneVM CloneFlags = 1 << iota
	CloneFiles
	CloneFS
)

// Fork creates a child of parent according to flags, the shared entry
// point behind both fork(2) (flags==0: copy everything) and the thread-
// creation half of clone(2) (CloneVM|CloneFiles|CloneFS: share
// everything). fut is the child's syscall-dispatch future (package trap);
// address-space duplication goes through vm.Vm_t.ForkCOW when CloneVM is
// not set, matching spec.md's clone_cow naming exactly.
func Fork(parent *Task_t, flags CloneFlags, fut sched.Future) (*Task_t, defs.Err_t) {
	var childVm = parent.Vm
	if flags&CloneVM == 0 {
		cv, err := parent.Vm.ForkCOW()
		if err != 0 {
			return nil, err
		}
		childVm = cv
	}

	childCwd := parent.Cwd
	if flags&CloneFS == 0 && parent.Cwd != nil {
		cwdCopy := *parent.Cwd
		childCwd = &cwdCopy
	}

	child, ok := SpawnUserTask(parent, childVm, childCwd, fut)
	if !ok {
		if flags&CloneVM == 0 {
			childVm.Uvmfree()
		}
		return nil, -defs.ENOMEM
	}
	if flags&CloneVM != 0 {
		// sharing the address space means sharing what futexes in it
		// resolve to -- the fresh futex.Table SpawnUserTask's
		// newTaskBase gave child would never see a FUTEX_WAKE from a
		// sibling thread otherwise.
		child.Futex = parent.Futex
	}

	if flags&CloneFiles != 0 {
		for n, f := range parent.Fds {
			child.Fds[n] = f
		}
	} else {
		for n, pf := range parent.Fds {
			nf, err := fd.Copyfd(pf)
			if err != 0 {
				continue
			}
			child.Fds[n] = nf
		}
	}
	child.Affin = parent.Affin
	// fork(2) inherits the parent's disposition table and blocked mask
	// verbatim but starts with nothing pending, POSIX's signal-state
	// inheritance rule -- the fresh signal.State newTaskBase gave child
	// already has empty Pending, so only Actions/Blocked need copying.
	child.Sig.Actions, child.Sig.Blocked = parent.Sig.Snapshot()
	return child, 0
}

// NewInit constructs the first task (tid 1, pid 1, pgid 1, no parent),
// the root of every process's ancestor chain and the eventual reparent
// target for every orphan (§4.4). vmT/cwd may be nil for a kernel-only
// init placeholder built before the root filesystem and first user ELF
// are wired in by cmd/kernel.
func NewInit(vmT *vm.Vm_t, cwd *fd.Cwd_t) *Task_t {
	t := newTaskBase()
	// tidAlloc's floor is defs.InitTid, so this is always the first id it
	// ever hands out -- claiming it here keeps the allocator's live set
	// consistent with the hardcoded init tid instead of leaving tid 1
	// unregistered and handed out again by a later Fork.
	if got := defs.Tid_t(tidAlloc.Alloc()); got != defs.InitTid {
		panic("task: NewInit must run before any other task is created")
	}
	t.id = defs.InitTid
	t.Pid = defs.InitTid
	t.PGid = defs.InitTid
	t.Vm = vmT
	t.Cwd = cwd
	t.Affin = AllHarts(hart.MaxHarts)
	register(t)
	return t
}

// Reap waits for child to exit and removes it from parent's child set and
// the global task table, returning its exit status -- the wait4(2)
// syscall's terminal step once the trap/ksyscall layer calls WaitExit.
func Reap(parent, child *Task_t) int {
	child.WaitExit()
	parent.RemoveChild(child.TidT())
	parent.Times.Add(&child.Times)
	Unregister(child)
	tidAlloc.Dealloc(int(child.TidT()))
	return child.ExitCode
}
