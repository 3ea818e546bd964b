package console

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"sv39kernel/src/defs"
	"sv39kernel/src/fdops"
	"sv39kernel/src/mem"
	"sv39kernel/src/stat"
	"sv39kernel/src/vm"
)

// newTestFops supplies the ring's backing bytes directly via Set instead
// of Cb_init: with Buf already set, Cb_ensure never takes its lazy
// page-allocator path, so these tests don't depend on mem.Physmem having
// been brought up by Phys_init.
func newTestFops(t *testing.T) *Fops_t {
	f := &Fops_t{}
	f.in.Set(make([]uint8, 1024), 0, mem.Physmem)
	return f
}

func TestFopsReadDrainsWhatWasFed(t *testing.T) {
	f := newTestFops(t)
	n, err := f.Feed([]uint8("hello"))
	require.Equal(t, defs.Err_t(0), err)
	assert.Equal(t, 5, n)

	out := make([]uint8, 64)
	ub := &vm.Fakeubuf_t{}
	ub.Fake_init(out)

	n2, err2 := f.Read(ub)
	require.Equal(t, defs.Err_t(0), err2)
	assert.Equal(t, 5, n2)
	assert.Equal(t, "hello", string(out[:n2]))
}

func TestFopsReadOnEmptyRingReadsZero(t *testing.T) {
	f := newTestFops(t)
	out := make([]uint8, 16)
	ub := &vm.Fakeubuf_t{}
	ub.Fake_init(out)

	n, err := f.Read(ub)
	require.Equal(t, defs.Err_t(0), err)
	assert.Equal(t, 0, n)
}

func TestFopsPollReportsReadableOnlyAfterFeed(t *testing.T) {
	f := newTestFops(t)
	r, err := f.Poll(fdops.Pollmsg_t{Events: fdops.R_READ | fdops.R_WRITE})
	require.Equal(t, defs.Err_t(0), err)
	assert.Equal(t, fdops.R_WRITE, r, "an empty ring must not report readable")

	_, _ = f.Feed([]uint8("x"))
	r2, err2 := f.Poll(fdops.Pollmsg_t{Events: fdops.R_READ})
	require.Equal(t, defs.Err_t(0), err2)
	assert.Equal(t, fdops.R_WRITE|fdops.R_READ, r2)
}

func TestFopsWriteReportsBytesAccepted(t *testing.T) {
	f := newTestFops(t)
	src := &vm.Fakeubuf_t{}
	src.Fake_init([]uint8("booting\n"))

	n, err := f.Write(src)
	require.Equal(t, defs.Err_t(0), err)
	assert.Equal(t, 8, n)
}

func TestFopsFstatReportsTheConsoleDevice(t *testing.T) {
	f := newTestFops(t)
	st := &stat.Stat_t{}
	require.Equal(t, defs.Err_t(0), f.Fstat(st))
	assert.Equal(t, defs.Mkdev(defs.D_CONSOLE, 0), st.Rdev())
}
