package hart

// The primitives below reach privileged RISC-V state (sstatus, sie, satp,
// the TLB) that Go's standard compiler has no builtin for. Rather than
// patch the compiler/runtime the way the teacher's x86 port does
// (runtime.Rcr4, runtime.Cpuid, runtime.Pml4freeze -- all symbols added to
// a forked Go runtime), these are declared body-less here and implemented
// in asm_riscv64.s, the same split gopher-os-gopher-os uses for its
// kernel/cpu package (EnableInterrupts/DisableInterrupts/FlushTLBEntry are
// forward-declared in cpu_amd64.go and defined in the companion .s file).
// This keeps the module buildable by a stock `go build` with GOARCH=riscv64.

// SetSUM sets sstatus.SUM, permitting supervisor-mode loads/stores through
// user-mapped PTEs (PTE_U pages). Paired with ClearSUM by SumGuard.
func SetSUM()

// ClearSUM clears sstatus.SUM.
func ClearSUM()

// EnableInterrupts sets sstatus.SIE, the supervisor interrupt-enable bit.
func EnableInterrupts()

// DisableInterrupts clears sstatus.SIE.
func DisableInterrupts()

// ReadSstatus returns the raw sstatus CSR, mainly for diagnostics.
func ReadSstatus() uintptr

// SfenceVMA flushes the TLB entry (or, if vaddr is 0, all entries) covering
// vaddr after a page-table edit, the RISC-V equivalent of the teacher's
// Tlbshoot/runtime.Condflush pair.
func SfenceVMA(vaddr uintptr)

// WriteSatp installs token (an Sv39 satp value: mode field plus root-table
// PPN) into the satp CSR,
// switching the active page table, then fences the TLB.
func WriteSatp(token uintptr)

// Wfi parks the hart in wait-for-interrupt state; it returns once any
// pending interrupt is taken. Used by the idle loop in boot.go.
func Wfi()

// Rdtime reads the RISC-V time CSR, a free-running counter driven at a
// fixed board frequency. Replaces the teacher's x86 runtime.Rdtsc(); used
// by package stats for cycle-count-shaped accounting and by package timer
// as the monotonic clock source.
func Rdtime() uint64

// SetTrapVector installs addr into stvec in Direct mode, the per-mode
// vector swap package trap performs on every kernel<->user transition
// (original_source/kernel/src/trap/mod.rs's set_kernel_trap_entry/
// set_user_trap_entry, both thin wrappers over one CSR write).
func SetTrapVector(addr uintptr)

// ReadSepc/ReadStval read the faulting instruction address and the
// exception-specific trap value (faulting address for a page fault,
// offending instruction bits for an illegal-instruction trap) package
// trap's scause dispatch consults before building a TrapFrame_t.
func ReadSepc() uintptr
func ReadStval() uintptr
