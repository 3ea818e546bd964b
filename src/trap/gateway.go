package trap

import (
	"fmt"

	"sv39kernel/src/caller"
	"sv39kernel/src/mem"
	"sv39kernel/src/sched"
	"sv39kernel/src/task"
)

// Dispatch is wired by package ksyscall during its own init (the same
// function-variable indirection vm.RemoteFence uses to let a lower layer
// call into a higher one without an import cycle: trap sits below
// ksyscall, but only ksyscall knows how to turn a syscall number into a
// Future). Modeling the syscall handler as an explicit Future rather than
// a goroutine is the one place this repository deliberately replaces the
// teacher's own concurrency model, per §4.2 and §9 ("every blocking
// syscall becomes a state-machine future") -- grounded on
// original_source/modules/executor/src/lib.rs and
// kernel/src/trap/user_trap.rs's `async fn trap_handler`.
var Dispatch func(t *task.Task_t, f *TrapFrame_t) sched.Future

// TimerTick and ExternalIRQ mirror Dispatch's indirection --
// kernel_trap_handler's SupervisorTimer/SupervisorExternal arms
// (original_source/kernel/src/trap/kernel_trap.rs). Package timer wires
// TimerTick; no package in this tree assigns ExternalIRQ, so while it is
// nil HandleKernelTrap ignores external interrupts.
var (
	TimerTick   func()
	ExternalIRQ func(hartID int)
)

// distinctPanics suppresses duplicate backtrace dumps for a kernel trap
// recurring from the same call chain, the zero-cost-when-disabled
// stack-trace guard named in §9, grounded on caller.Distinct_caller_t.
var distinctPanics = &caller.Distinct_caller_t{Enabled: true}

// pageFaultEcode reconstructs the PTE_W/PTE_U-shaped fault-error code
// vm.Sys_pgfault's decision tree expects from a riscv scause page-fault
// exception, which (unlike the teacher's original x86 #PF error code)
// tells read/write/exec apart by which of the three page-fault causes
// fired rather than by a bit in a combined error word.
func pageFaultEcode(cause Scause) uintptr {
	ecode := uintptr(mem.PTE_U)
	if cause == ExcStorePageFault {
		ecode |= uintptr(mem.PTE_W)
	}
	return ecode
}

// HandleUserTrap is the per-mode trap entry for a trap taken from user
// mode (original_source's `trap_handler`): an ecall is handed to Dispatch
// and its resulting Future returned for package task to enqueue on the
// shared executor; a page fault is resolved inline through
// vm.Vm_t.Pgfault (COW-break or lazy-mapping fill, §4.3); anything else
// is, for now, an unexpected fault -- the default disposition once
// package signal exists is SIGSEGV/SIGILL delivery (§7), but until that
// wiring lands this panics with a backtrace, matching the teacher's
// "unexpected exception is fatal" baseline.
func HandleUserTrap(t *task.Task_t, f *TrapFrame_t, cause Scause, stval uintptr) sched.Future {
	switch {
	case cause == ExcEcallU:
		if Dispatch == nil {
			panic("trap: no syscall dispatcher wired")
		}
		return Dispatch(t, f)
	case cause.IsPageFault():
		ecode := pageFaultEcode(cause)
		if err := t.Vm.Pgfault(t.TidT(), stval, ecode); err != 0 {
			fatalUserFault(t, cause, stval, err.String())
		}
		return nil
	default:
		fatalUserFault(t, cause, stval, "")
		return nil
	}
}

func fatalUserFault(t *task.Task_t, cause Scause, stval uintptr, detail string) {
	if fresh, trace := distinctPanics.Distinct(); fresh {
		fmt.Printf("trap: fatal user fault tid=%d cause=%s stval=%#x %s\n%s", t.Tid(), cause, stval, detail, trace)
	}
	panic(fmt.Sprintf("trap: fatal user fault: %s", cause))
}

// HandleKernelTrap is the per-mode trap entry for a trap taken while
// already in supervisor mode (original_source's kernel_trap_handler):
// the timer and external-interrupt causes are serviced and the hart
// resumes where it left off; anything else is unconditionally fatal,
// since a kernel-mode fault/illegal-instruction means the kernel itself
// is broken, not recoverable by resolving a user page fault.
func HandleKernelTrap(hartID int, cause Scause, stval uintptr) {
	switch cause {
	case IntrSupervisorTimer:
		if TimerTick != nil {
			TimerTick()
		}
	case IntrSupervisorExternal:
		if ExternalIRQ != nil {
			ExternalIRQ(hartID)
		}
	default:
		if fresh, trace := distinctPanics.Distinct(); fresh {
			fmt.Printf("trap: fatal kernel fault hart=%d cause=%s stval=%#x\n%s", hartID, cause, stval, trace)
		}
		panic(fmt.Sprintf("trap: fatal kernel fault: %s", cause))
	}
}
