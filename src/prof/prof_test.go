package prof

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"sv39kernel/src/defs"
	"sv39kernel/src/stat"
	"sv39kernel/src/task"
	"sv39kernel/src/vm"
)

func TestSnapshotHasOneSamplePerLiveTask(t *testing.T) {
	before := len(task.Snapshot())

	p := Snapshot()
	assert.Len(t, p.Sample, before)
	assert.Equal(t, "syscalls", p.SampleType[0].Type)
}

func TestFopsReadServesTheRenderedProfileOnce(t *testing.T) {
	f := &Fops_t{}

	buf := make([]uint8, 64*1024)
	ub := &vm.Fakeubuf_t{}
	ub.Fake_init(buf)

	n, err := f.Read(ub)
	require.Equal(t, defs.Err_t(0), err)
	assert.Greater(t, n, 0, "a rendered pprof profile must produce some bytes")

	// A second read starting from the same offset-tracking Fops_t picks up
	// where the first left off; with a buffer far larger than the profile,
	// the second read must report no more bytes left.
	n2, err2 := f.Read(ub)
	require.Equal(t, defs.Err_t(0), err2)
	assert.Equal(t, 0, n2, "a fully drained profile must read as EOF, not re-render")
}

func TestFopsFstatReportsTheProfDevice(t *testing.T) {
	f := &Fops_t{}
	st := &stat.Stat_t{}
	require.Equal(t, defs.Err_t(0), f.Fstat(st))
	assert.Greater(t, st.Size(), uint(0))
	assert.Equal(t, defs.Mkdev(defs.D_PROF, 0), st.Rdev())
}
