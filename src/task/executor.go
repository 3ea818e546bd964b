package task

import (
	"sv39kernel/src/defs"
	"sv39kernel/src/fd"
	"sv39kernel/src/hart"
	"sv39kernel/src/limits"
	"sv39kernel/src/sched"
	"sv39kernel/src/vm"
)

// Executor is the single shared run queue every hart's idle loop drains
// (§4.4's "two-band FIFO executor with run_until_idle"), grounded on
// original_source/modules/executor/src/lib.rs's global TaskQueue -- one
// executor serves every hart, rather than a per-hart run queue, matching
// the teacher's own single shared-state scheduling (tinfo.Threadinfo_t is
// one global map, not one per hart).
var Executor = sched.NewQueue()

// RunUntilIdle drains every runnable task once; called by cmd/kernel's
// main loop and by tests that want deterministic, non-blocking progress.
func RunUntilIdle() {
	Executor.RunUntilIdle()
}

// RunOne polls a single runnable task, reporting whether it found one to
// run -- the per-iteration step hart.Idle's runOnce callback expects, so
// an idle hart parks in Wfi exactly when the shared executor is drained.
func RunOne() bool {
	return Executor.RunOne()
}

// SpawnKernelTask creates a kernel-only task (no Vm, no Cwd, no Fds) that
// drives fut to completion on the shared executor -- spawn_kernel_task in
// §4.4, for housekeeping work that never crosses into user memory.
// Nothing in this tree calls it.
func SpawnKernelTask(parent *Task_t, fut sched.Future) *Task_t {
	t := newTaskBase()
	t.id = defs.Tid_t(tidAlloc.Alloc())
	t.Pid = t.id
	t.PGid = t.id
	t.Parent = parent
	t.Affin = AllHarts(hart.MaxHarts)
	register(t)
	if parent != nil {
		parent.AddChild(t)
	}
	w := Executor.Spawn(fut)
	t.SetWaker(w)
	return t
}

// SpawnUserTask installs vmT/cwd onto a freshly allocated task and
// enqueues fut (the trap gateway's per-task syscall-dispatch future, once
// package trap exists) on the shared executor -- spawn_user_task in §4.4.
// ok is false if the system process limit (limits.Syslimit.Sysprocs) is
// already exhausted.
func SpawnUserTask(parent *Task_t, vmT *vm.Vm_t, cwd *fd.Cwd_t, fut sched.Future) (*Task_t, bool) {
	// Sysprocs is a configured ceiling (a plain int, "protected by
	// proclock" per limits.Syslimit_t's own comment), not a
	// Sysatomic_t budget to draw down -- the task table itself is the
	// count to compare against it.
	if Count() >= limits.Syslimit.Sysprocs {
		limits.Lhits++
		return nil, false
	}
	t := newTaskBase()
	t.id = defs.Tid_t(tidAlloc.Alloc())
	t.Pid = t.id
	t.Affin = AllHarts(hart.MaxHarts)
	if parent != nil {
		t.Parent = parent
		t.PGid = parent.PGid
		parent.AddChild(t)
	} else {
		t.PGid = t.id
	}
	t.Vm = vmT
	t.Cwd = cwd
	register(t)
	w := Executor.Spawn(fut)
	t.SetWaker(w)
	return t, true
}
