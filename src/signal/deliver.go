package signal

import (
	"encoding/binary"

	"sv39kernel/src/defs"
	"sv39kernel/src/trap"
	"sv39kernel/src/vm"
)

// UContext mirrors the ucontext_t layout sys_rt_sigreturn reads back
// (original_source/syscall/signal.rs's sys_sigreturn:
// "ucontext.uc_mcontext.user_x"/"uc_sigmask"), trimmed to the fields
// this tree actually restores: the saved blocked-signal mask and the
// 32 general-purpose registers plus sepc a handler's return must put
// back exactly as they were.
type UContext struct {
	Sigmask SigSet
	Sepc    uintptr
	X       [32]uintptr
}

const ucontextSize = 8 + 8 + 8*32

func (uc *UContext) marshal() []byte {
	buf := make([]byte, ucontextSize)
	binary.LittleEndian.PutUint64(buf[0:], uint64(uc.Sigmask))
	binary.LittleEndian.PutUint64(buf[8:], uint64(uc.Sepc))
	for i, x := range uc.X {
		binary.LittleEndian.PutUint64(buf[16+i*8:], uint64(x))
	}
	return buf
}

func unmarshalUContext(buf []byte) UContext {
	var uc UContext
	uc.Sigmask = SigSet(binary.LittleEndian.Uint64(buf[0:]))
	uc.Sepc = uintptr(binary.LittleEndian.Uint64(buf[8:]))
	for i := range uc.X {
		uc.X[i] = uintptr(binary.LittleEndian.Uint64(buf[16+i*8:]))
	}
	return uc
}

// Disposition is what Deliver decided to do with the signal it found
// pending.
type Disposition int

const (
	// DispNone means no unblocked signal was pending; the trap frame is
	// untouched.
	DispNone Disposition = iota
	// DispHandled means a user handler was installed into the trap
	// frame; the caller should resume the task as normal, now running
	// the handler.
	DispHandled
	// DispIgnored means a pending signal was consumed but had no
	// observable effect (SIG_IGN, or a no-op default like SIGCHLD).
	DispIgnored
	// DispTerminate means the signal's default disposition is fatal;
	// the caller (which holds the *task.Task_t, unlike this package)
	// should call Task_t.Exit.
	DispTerminate
)

// regRA is the return-address register, x1 -- the handler's return path
// a real sigreturn trampoline would jump through.
const regRA = 1

// Deliver pops the next deliverable signal from st and, for a
// user-handled signal, builds a UContext snapshotting f's current
// registers onto the user stack just below f.X[2] (sp), then rewrites f
// to enter the handler: a0 = signal number, sepc = handler entry, ra =
// trampolineVA. The handler is expected to end with an rt_sigreturn
// syscall (Restore undoes exactly what this function set up); how it
// gets there is trampolineVA's job, the one piece
// (original_source/signal/ctx.rs's SignalTrampoline, a dedicated mapped
// page) this tree does not build a physical trampoline page for -- the
// register-level contract is implemented, the user-side stub is not.
func Deliver(st *State, vmt *vm.Vm_t, f *trap.TrapFrame_t, trampolineVA uintptr) (Disposition, Sig) {
	sig, act, ok := st.NextDeliverable()
	if !ok {
		return DispNone, 0
	}

	switch act.Type {
	case ActionIgnore:
		return DispIgnored, sig
	case ActionDefault:
		if defaultIsFatal(sig) {
			return DispTerminate, sig
		}
		return DispIgnored, sig
	case ActionUser:
		uc := UContext{Sigmask: st.Blocked, Sepc: f.Sepc, X: f.X}
		buf := uc.marshal()
		newSP := (int(f.X[2]) - len(buf)) &^ 0xf
		if err := vmt.K2user(buf, newSP); err != 0 {
			return DispTerminate, sig
		}
		st.Blocked |= act.Mask
		f.X[2] = uintptr(newSP)
		f.X[10] = uintptr(sig)
		f.X[regRA] = trampolineVA
		f.Sepc = act.Entry
		return DispHandled, sig
	default:
		return DispTerminate, sig
	}
}

// Restore implements rt_sigreturn(2): it reads the UContext a prior
// Deliver pushed from just below the current sp, restores the blocked
// mask and every general-purpose register plus sepc, and reports the
// saved sepc/X so the caller can overwrite its trap frame wholesale --
// original_source's sys_sigreturn doing
// "trap_cx.sepc = ucontext.uc_mcontext.sepc; trap_cx.user_x = ...".
func Restore(st *State, vmt *vm.Vm_t, userSP int) (UContext, defs.Err_t) {
	buf := make([]byte, ucontextSize)
	if err := vmt.User2k(buf, userSP); err != 0 {
		return UContext{}, err
	}
	uc := unmarshalUContext(buf)
	st.mu.Lock()
	st.Blocked = uc.Sigmask
	st.mu.Unlock()
	return uc, 0
}
