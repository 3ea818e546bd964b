// Package fdops names the small capability interfaces a file descriptor's
// concrete backing object must satisfy, so that package fd (and the
// syscall layer built on top of it in package ksyscall) never imports a
// concrete filesystem, pipe, or socket implementation directly -- the
// same inversion the teacher uses to keep fd.Fd_t decoupled from fs/ufs.
// Referenced throughout fd.go, circbuf.go, vm/as.go and ufs/driver.go in
// the retrieved sources, but (like bounds/res) its own body was not part
// of the retrieval; rebuilt here from those call sites plus
// original_source's File trait (kernel/src/fs, not retrieved verbatim but
// the same read/write/seek/poll surface every POSIX-shaped kernel needs).
package fdops

import (
	"sv39kernel/src/defs"
	"sv39kernel/src/mem"
	"sv39kernel/src/stat"
)

// Userio_i abstracts a scatter/gather copy target that may live in user
// memory (crossing the SUM boundary) or in a kernel buffer (a pipe's
// internal staging, a circular console buffer). circbuf.Circbuf_t's
// Copyin/Copyout/Copyout_n all take one of these instead of a raw []byte
// so the same buffer code serves both sides.
type Userio_i interface {
	// Uiowrite copies from src into the destination this Userio_i names,
	// returning how much it accepted.
	Uiowrite(src []uint8) (int, defs.Err_t)
	// Uioread copies from the source this Userio_i names into dst.
	Uioread(dst []uint8) (int, defs.Err_t)
	// Remain reports how many more bytes this Userio_i will accept/yield.
	Remain() int
	// Totalsz reports the Userio_i's original capacity.
	Totalsz() int
}

// Ready_t is a poll-style readiness bitmask.
type Ready_t int

const (
	R_READ  Ready_t = 1 << 0
	R_WRITE Ready_t = 1 << 1
	R_ERROR Ready_t = 1 << 2
	R_HUP   Ready_t = 1 << 3
)

// Pollmsg_t carries a poll/select request down to a descriptor's Fdops_i,
// mirroring Cons_poll's parameter in ufs/driver.go.
type Pollmsg_t struct {
	Events Ready_t
	Dowait bool
}

// Fdops_i is the operation set every open file descriptor's backing
// object implements; fd.Fd_t.Fops holds one by interface value so Copyfd,
// Close_panic, and the read/write/lseek syscalls never know the concrete
// type underneath.
type Fdops_i interface {
	Close() defs.Err_t
	Fstat(*stat.Stat_t) defs.Err_t
	Lseek(off, whence int) (int, defs.Err_t)
	Mmapi(off, len int, shared bool) ([]mem.Mmapinfo_t, defs.Err_t)
	Pathi() defs.Err_t
	Read(dst Userio_i) (int, defs.Err_t)
	Reopen() defs.Err_t
	Write(src Userio_i) (int, defs.Err_t)
	Truncate(newlen uint) defs.Err_t
	Poll(pm Pollmsg_t) (Ready_t, defs.Err_t)
}
