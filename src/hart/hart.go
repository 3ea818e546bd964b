// Package hart holds the per-hart state described in §4.1: each hart's id,
// a pointer to its currently-running task, an EnvContext tracking the
// sie_disabled/sum_enabled nesting counters, and the idle loop that drives
// the shared executor. The struct shape and the Lock-style guard idiom are
// grounded on the teacher's accnt.Accnt_t/vm.Vm_t convention of a small
// struct with RAII-style guards layered on top (vm.Lock_pmap/Unlock_pmap);
// the hart registry itself generalizes tinfo.Threadinfo_t's
// "map protected by a mutex" shape from per-thread to per-hart.
package hart

import "sync"

// MaxHarts bounds the statically reserved boot-stack block (§4.1: "Boot
// stack is a statically reserved 64 KiB x MAX_HARTS block").
const MaxHarts = 8

// BootStackSize is the per-hart boot stack reservation in bytes.
const BootStackSize = 64 * 1024

// Runnable is the minimal surface the executor needs from a parked task;
// defined here (rather than imported from package task) to avoid an import
// cycle between hart and task -- task.Task_t satisfies this interface.
type Runnable interface {
	Tid() int
}

// EnvContext tracks the two nesting counters described in §4.1: whether
// interrupts are disabled and whether "supervisor may access user memory"
// (the SUM bit) is set for this hart. Grounded on
// original_source/kernel/src/processor/ctx.rs's EnvContext, translated from
// the Rust sstatus::set_sum()/clear_sum() calls to the asm-backed
// SetSUM/ClearSUM primitives in asm_riscv64.s.
type EnvContext struct {
	sieDisabled int
	sumEnabled  int
}

// sumInc is called by NewSumGuard on every acquisition; it sets the SUM
// bit only on the 0->1 transition.
func (e *EnvContext) sumInc() {
	if e.sumEnabled == 0 {
		SetSUM()
	}
	e.sumEnabled++
}

func (e *EnvContext) sumDec() {
	if e.sumEnabled <= 0 {
		panic("hart: SUM underflow")
	}
	e.sumEnabled--
	if e.sumEnabled == 0 {
		ClearSUM()
	}
}

func (e *EnvContext) sieInc() {
	if e.sieDisabled == 0 {
		DisableInterrupts()
	}
	e.sieDisabled++
}

func (e *EnvContext) sieDec() {
	if e.sieDisabled <= 0 {
		panic("hart: interrupt-disable underflow")
	}
	e.sieDisabled--
	if e.sieDisabled == 0 {
		EnableInterrupts()
	}
}

// State_t is the per-hart local state described in §4.1.
type State_t struct {
	ID      int
	mu      sync.Mutex
	current Runnable
	Env     EnvContext
}

var harts [MaxHarts]*State_t
var hartsMu sync.Mutex

// Register installs the per-hart state block for id, called once by each
// hart during bring-up (§4.1's "other harts spin until the flag flips,
// then install trap entry"). Must be called from the goroutine that will
// act as hart id from then on -- it binds that goroutine to id for later
// CurrentID lookups.
func Register(id int) *State_t {
	hartsMu.Lock()
	if harts[id] != nil {
		hartsMu.Unlock()
		panic("hart: double register")
	}
	h := &State_t{ID: id}
	harts[id] = h
	hartsMu.Unlock()
	bindCurrent(id)
	return h
}

// Get returns the registered state for hart id, or nil if not yet
// registered.
func Get(id int) *State_t {
	hartsMu.Lock()
	defer hartsMu.Unlock()
	return harts[id]
}

// Current returns the task currently running on this hart, or nil.
func (s *State_t) Current() Runnable {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.current
}

// SetCurrent installs t as the task currently running on this hart.
func (s *State_t) SetCurrent(t Runnable) {
	s.mu.Lock()
	s.current = t
	s.mu.Unlock()
}
