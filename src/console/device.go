package console

import (
	"os"
	"sync"

	"sv39kernel/src/circbuf"
	"sv39kernel/src/defs"
	"sv39kernel/src/fd"
	"sv39kernel/src/fdops"
	"sv39kernel/src/mem"
	"sv39kernel/src/stat"
	"sv39kernel/src/vm"
)

// Fops_t backs defs.D_CONSOLE, the device fd 0/1/2 point at once a task
// is given stdio. Write renders straight through to the host's stdout --
// there is no UART to drive in a hosted build -- while Read drains an
// input ring a driver (or a test) feeds through Feed. Buffering input in
// a circbuf.Circbuf_t is the pattern fdops.go's own doc comment already
// names as the reason Userio_i takes something other than a raw []byte
// ("a circular console buffer"); one physical page backs it, the same
// capacity a real UART's RX queue would be sized to.
type Fops_t struct {
	mu sync.Mutex
	in circbuf.Circbuf_t
}

var _ fdops.Fdops_i = (*Fops_t)(nil)

// NewFd opens a fresh console descriptor, read-write like a real tty.
func NewFd() *fd.Fd_t {
	f := &Fops_t{}
	f.in.Cb_init(1024, mem.Physmem)
	return &fd.Fd_t{Fops: f, Perms: fd.FD_READ | fd.FD_WRITE}
}

// Feed appends host-supplied bytes onto the console's input ring -- a
// test harness today, eventually a UART rx interrupt handler once
// package plic exists to drive it.
func (f *Fops_t) Feed(data []uint8) (int, defs.Err_t) {
	f.mu.Lock()
	defer f.mu.Unlock()
	ub := &vm.Fakeubuf_t{}
	ub.Fake_init(data)
	return f.in.Copyin(ub)
}

func (f *Fops_t) Read(dst fdops.Userio_i) (int, defs.Err_t) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.in.Copyout(dst)
}

func (f *Fops_t) Write(src fdops.Userio_i) (int, defs.Err_t) {
	buf := make([]uint8, src.Remain())
	n, err := src.Uioread(buf)
	if err != 0 {
		return 0, err
	}
	os.Stdout.Write(buf[:n])
	return n, 0
}

func (f *Fops_t) Close() defs.Err_t { return 0 }

func (f *Fops_t) Fstat(st *stat.Stat_t) defs.Err_t {
	st.Wmode(0)
	st.Wrdev(defs.Mkdev(defs.D_CONSOLE, 0))
	return 0
}

func (f *Fops_t) Lseek(off, whence int) (int, defs.Err_t) { return 0, -defs.ESPIPE }

func (f *Fops_t) Mmapi(off, len int, shared bool) ([]mem.Mmapinfo_t, defs.Err_t) {
	return nil, -defs.EINVAL
}

func (f *Fops_t) Pathi() defs.Err_t { return -defs.EINVAL }

func (f *Fops_t) Reopen() defs.Err_t { return 0 }

func (f *Fops_t) Truncate(newlen uint) defs.Err_t { return -defs.EINVAL }

func (f *Fops_t) Poll(pm fdops.Pollmsg_t) (fdops.Ready_t, defs.Err_t) {
	f.mu.Lock()
	defer f.mu.Unlock()
	r := fdops.R_WRITE
	if !f.in.Empty() {
		r |= fdops.R_READ
	}
	return r, 0
}
