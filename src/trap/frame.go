package trap

// TrapFrame_t is the saved user-mode register state across a trap,
// grounded on original_source/kernel/src/trap/ctx.rs's TrapContext: the
// 32 general-purpose registers (x0-x31; x0 is wired to zero and never
// restored), sepc (resumption address), sstatus (privilege/interrupt-
// enable state at trap time), and a pointer to an F/D register save area
// shaped like vm.Mkfxbuf's buffer, which nothing in this tree allocates or
// fills.
type TrapFrame_t struct {
	X      [32]uintptr
	Sepc   uintptr
	Sstatus uintptr

	// Fpregs stays nil: no code in this tree allocates it, and
	// HandleUserTrap treats an illegal-instruction trap (an FP opcode
	// with FS==Off included) as a fatal fault.
	Fpregs  *[64]uintptr
	FpDirty bool
}

// Syscall argument registers, the riscv64 Linux syscall ABI named in §6:
// a7 carries the syscall number, a0-a5 the first six arguments, a0 the
// return value on completion.
const (
	regA0 = 10
	regA1 = 11
	regA2 = 12
	regA3 = 13
	regA4 = 14
	regA5 = 15
	regA7 = 17
)

// SyscallNum returns the pending syscall number from a7.
func (f *TrapFrame_t) SyscallNum() uintptr { return f.X[regA7] }

// SyscallArgs returns the six syscall argument registers a0-a5.
func (f *TrapFrame_t) SyscallArgs() [6]uintptr {
	return [6]uintptr{f.X[regA0], f.X[regA1], f.X[regA2], f.X[regA3], f.X[regA4], f.X[regA5]}
}

// SetReturn writes rc into a0, the syscall return-value register, and
// advances sepc past the four-byte ecall instruction so trap_return
// resumes just after it -- original_source/trap/user_trap.rs's
// "cx.sepc += 4" plus "cx.user_x[10] = result".
func (f *TrapFrame_t) SetReturn(rc uint64) {
	f.X[regA0] = uintptr(rc)
	f.Sepc += 4
}
