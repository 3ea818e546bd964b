package hart

// SumGuard is the scoped acquisition of "supervisor may access user memory"
// described in §4.1: New() increments a per-hart counter, setting the SUM
// bit in sstatus on the 0->1 transition; Release() (called via defer, the
// Go idiom for Rust's Drop) decrements it, clearing the bit on 1->0.
//
// Unlike the teacher's vm.Vm_t, which reaches the hardware bit through a
// modified Go runtime (runtime.Rcr4/Cpuid), this repo cannot import a
// patched compiler as a module dependency; SetSUM/ClearSUM are ordinary
// forward-declared Go functions backed by asm_riscv64.s, the technique
// gopher-os-gopher-os uses for its cpu package (EnableInterrupts,
// DisableInterrupts, FlushTLBEntry are declared the same way in
// kernel/cpu/cpu_amd64.go). See DESIGN.md for the full writeup.
type SumGuard struct {
	h *State_t
}

// NewSumGuard acquires the guard for hart h. Any code path that touches
// user pointers must hold one for its entire duration (§4.1).
func NewSumGuard(h *State_t) *SumGuard {
	h.Env.sumInc()
	return &SumGuard{h: h}
}

// Release drops the guard, restoring the SUM bit to its prior state.
func (g *SumGuard) Release() {
	g.h.Env.sumDec()
}

// InterruptGuard is the scoped acquisition of "interrupts off" described in
// §4.1, used inside spin locks tagged NoIrq (§5).
type InterruptGuard struct {
	h *State_t
}

// NewInterruptGuard disables interrupts on hart h for the guard's lifetime.
func NewInterruptGuard(h *State_t) *InterruptGuard {
	h.Env.sieInc()
	return &InterruptGuard{h: h}
}

// Release restores the prior interrupt-enable state.
func (g *InterruptGuard) Release() {
	g.h.Env.sieDec()
}
