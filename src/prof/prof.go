// Package prof backs the D_PROF device (defs.D_PROF): reading its fd yields
// a gzip-compressed pprof protobuf snapshot of the live task table, one
// sample per task, value = dispatched syscalls. pprof/profile is a direct
// dependency of the teacher's own go.mod that nothing in the retrieved
// source exercised; this gives it a real caller without inventing a
// profiling subsystem the original kernel never had reason to carry.
package prof

import (
	"bytes"
	"strconv"
	"sync"

	"github.com/google/pprof/profile"

	"sv39kernel/src/defs"
	"sv39kernel/src/fd"
	"sv39kernel/src/fdops"
	"sv39kernel/src/mem"
	"sv39kernel/src/stat"
	"sv39kernel/src/task"
)

// Snapshot builds a pprof Profile describing every currently live task.
// Each task contributes one Sample valued at its dispatched syscall count,
// tagged with its pid as a numeric label so a consumer can group samples
// by process without decoding the tid->pid mapping itself.
func Snapshot() *profile.Profile {
	tasks := task.Snapshot()

	p := &profile.Profile{
		SampleType: []*profile.ValueType{
			{Type: "syscalls", Unit: "count"},
		},
		PeriodType: &profile.ValueType{Type: "task", Unit: "snapshot"},
		Period:     1,
	}

	for i, t := range tasks {
		id := uint64(i + 1)
		fn := &profile.Function{
			ID:   id,
			Name: taskFuncName(t),
		}
		loc := &profile.Location{
			ID:   id,
			Line: []profile.Line{{Function: fn}},
		}
		p.Function = append(p.Function, fn)
		p.Location = append(p.Location, loc)
		p.Sample = append(p.Sample, &profile.Sample{
			Location: []*profile.Location{loc},
			Value:    []int64{t.Syscalls.Get()},
			NumLabel: map[string][]int64{"pid": {int64(t.Pid)}},
			NumUnit:  map[string][]string{"pid": {"id"}},
		})
	}
	return p
}

// Fops_t implements fdops.Fdops_i over a Snapshot taken lazily on first
// Read and cached for the lifetime of the descriptor -- repeated reads of
// the same open fd see one consistent point-in-time profile rather than
// a moving target, the same "stat once, serve many reads" shape fd.Fd_t's
// other backing stores use for fixed-size content.
type Fops_t struct {
	mu  sync.Mutex
	buf []byte
	off int
}

var _ fdops.Fdops_i = (*Fops_t)(nil)

// NewFd opens a fresh D_PROF descriptor.
func NewFd() *fd.Fd_t {
	return &fd.Fd_t{Fops: &Fops_t{}, Perms: fd.FD_READ}
}

func (f *Fops_t) ensureRendered() defs.Err_t {
	if f.buf != nil {
		return 0
	}
	var b bytes.Buffer
	if err := Snapshot().Write(&b); err != nil {
		return -defs.EINVAL
	}
	f.buf = b.Bytes()
	return 0
}

func (f *Fops_t) Read(dst fdops.Userio_i) (int, defs.Err_t) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.ensureRendered(); err != 0 {
		return 0, err
	}
	if f.off >= len(f.buf) {
		return 0, 0
	}
	n, err := dst.Uiowrite(f.buf[f.off:])
	if err != 0 {
		return 0, err
	}
	f.off += n
	return n, 0
}

func (f *Fops_t) Write(src fdops.Userio_i) (int, defs.Err_t) { return 0, -defs.EINVAL }

func (f *Fops_t) Close() defs.Err_t { return 0 }

func (f *Fops_t) Fstat(st *stat.Stat_t) defs.Err_t {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.ensureRendered()
	st.Wmode(0)
	st.Wrdev(defs.Mkdev(defs.D_PROF, 0))
	st.Wsize(uint(len(f.buf)))
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
	return fdops.R_READ, 0
}

func taskFuncName(t *task.Task_t) string {
	return "tid" + strconv.Itoa(t.Tid())
}
