package task

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"sv39kernel/src/defs"
	"sv39kernel/src/fd"
	"sv39kernel/src/fdops"
	"sv39kernel/src/mem"
	"sv39kernel/src/stat"
)

// nullFops is a do-nothing Fdops_i, enough to exercise Task_t.AddFd/
// CloseFd without a real backing file.
type nullFops struct{}

func (nullFops) Close() defs.Err_t                      { return 0 }
func (nullFops) Fstat(*stat.Stat_t) defs.Err_t          { return 0 }
func (nullFops) Lseek(off, whence int) (int, defs.Err_t) { return 0, 0 }
func (nullFops) Mmapi(off, len int, shared bool) ([]mem.Mmapinfo_t, defs.Err_t) {
	return nil, 0
}
func (nullFops) Pathi() defs.Err_t                              { return 0 }
func (nullFops) Read(dst fdops.Userio_i) (int, defs.Err_t)      { return 0, 0 }
func (nullFops) Reopen() defs.Err_t                             { return 0 }
func (nullFops) Write(src fdops.Userio_i) (int, defs.Err_t)     { return 0, 0 }
func (nullFops) Truncate(newlen uint) defs.Err_t                { return 0 }
func (nullFops) Poll(pm fdops.Pollmsg_t) (fdops.Ready_t, defs.Err_t) {
	return 0, 0
}

func newNullFd() *fd.Fd_t {
	return &fd.Fd_t{Fops: nullFops{}}
}

// newTestTask builds a minimal registered task for tests that only need
// manager/task-table bookkeeping, bypassing NewInit/Fork's VM setup.
func newTestTask(tid, pgid defs.Tid_t) *Task_t {
	tk := newTaskBase()
	tk.id = tid
	tk.Pid = tid
	tk.PGid = pgid
	register(tk)
	return tk
}

func TestGetFindsRegisteredTask(t *testing.T) {
	tk := newTestTask(9001, 9001)
	defer Unregister(tk)

	got, ok := Get(9001)
	require.True(t, ok)
	assert.Same(t, tk, got)
}

func TestGetMissReportsFalse(t *testing.T) {
	_, ok := Get(defs.Tid_t(999999))
	assert.False(t, ok)
}

func TestUnregisterRemovesFromTableAndGroup(t *testing.T) {
	tk := newTestTask(9002, 9002)
	Unregister(tk)

	_, ok := Get(9002)
	assert.False(t, ok)
	assert.Empty(t, ProcessGroup(9002))
}

func TestProcessGroupListsAllMembers(t *testing.T) {
	leader := newTestTask(9010, 9010)
	member := newTestTask(9011, 9010)
	defer Unregister(leader)
	defer Unregister(member)

	g := ProcessGroup(9010)
	assert.Len(t, g, 2)
}

func TestSetProcessGroupMovesTaskBetweenGroups(t *testing.T) {
	tk := newTestTask(9020, 9020)
	other := newTestTask(9021, 9021)
	defer Unregister(tk)
	defer Unregister(other)

	SetProcessGroup(tk, 9021)
	assert.Equal(t, defs.PGid_t(9021), tk.PGid)
	assert.Len(t, ProcessGroup(9021), 2)
	assert.Empty(t, ProcessGroup(9020))
}

func TestCountReflectsLiveTasks(t *testing.T) {
	before := Count()
	tk := newTestTask(9030, 9030)
	assert.Equal(t, before+1, Count())
	Unregister(tk)
	assert.Equal(t, before, Count())
}

func TestAddChildAndChildren(t *testing.T) {
	parent := newTestTask(9040, 9040)
	child := newTestTask(9041, 9040)
	defer Unregister(parent)
	defer Unregister(child)

	parent.AddChild(child)
	kids := parent.Children()
	require.Len(t, kids, 1)
	assert.Same(t, child, kids[0])

	parent.RemoveChild(child.id)
	assert.Empty(t, parent.Children())
}

func TestExitReparentsChildrenToInit(t *testing.T) {
	initTask := newTestTask(defs.InitTid, defs.InitTid)
	defer Unregister(initTask)

	parent := newTestTask(9050, 9050)
	child := newTestTask(9051, 9050)
	defer Unregister(parent)
	defer Unregister(child)

	parent.AddChild(child)
	parent.Exit(0)

	assert.True(t, parent.IsZombie())
	assert.Empty(t, parent.Children(), "a zombie's children are handed off to init")
	assert.Contains(t, initTask.Children(), child)
	assert.Same(t, initTask, child.Parent)
}

func TestExitClosesWaitChAndRecordsExitCode(t *testing.T) {
	tk := newTestTask(9060, 9060)
	defer Unregister(tk)

	done := make(chan struct{})
	go func() {
		tk.WaitExit()
		close(done)
	}()

	tk.Exit(7)
	<-done
	assert.Equal(t, 7, tk.ExitCode)
}

func TestBrkDefaultsToZeroAndIsSettable(t *testing.T) {
	tk := newTestTask(9070, 9070)
	defer Unregister(tk)

	assert.Equal(t, uintptr(0), tk.Brk())
	got := tk.SetBrk(0x10000)
	assert.Equal(t, uintptr(0x10000), got)
	assert.Equal(t, uintptr(0x10000), tk.Brk())
}

func TestAddFdAllocatesLowestUnusedNumber(t *testing.T) {
	tk := newTestTask(9080, 9080)
	defer Unregister(tk)

	n0 := tk.AddFd(newNullFd())
	n1 := tk.AddFd(newNullFd())
	assert.Equal(t, 0, n0)
	assert.Equal(t, 1, n1)

	tk.CloseFd(0)
	n2 := tk.AddFd(newNullFd())
	assert.Equal(t, 0, n2, "closing fd 0 must make it reusable again")
}
