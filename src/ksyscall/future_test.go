package ksyscall

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"

	"sv39kernel/src/sched"
	"sv39kernel/src/task"
	"sv39kernel/src/trap"
)

// regA0 is x10, the riscv64 Linux ABI return-value register --
// duplicated from trap.frame.go's unexported constant of the same name
// since these tests live outside package trap.
const regA0 = 10

// testTask lazily creates the one init task these tests share --
// task.NewInit panics if called more than once per process (it insists
// on claiming defs.InitTid), so every test in this file reuses it rather
// than minting its own.
var (
	testTaskOnce sync.Once
	sharedTask   *task.Task_t
)

func testTask() *task.Task_t {
	testTaskOnce.Do(func() {
		sharedTask = task.NewInit(nil, nil)
	})
	return sharedTask
}

func TestDoneOKWritesReturnValueAndAdvancesSepc(t *testing.T) {
	tk := testTask()
	f := &trap.TrapFrame_t{Sepc: 0x1000}

	fut := doneOK(tk, f, 42)
	assert.Equal(t, sched.Ready, fut.Poll(nil))
	assert.Equal(t, uintptr(42), f.X[regA0])
	assert.Equal(t, uintptr(0x1004), f.Sepc, "SetReturn must advance past the 4-byte ecall")
}

func TestDoneErrWritesNegativeErrno(t *testing.T) {
	tk := testTask()
	f := &trap.TrapFrame_t{}

	fut := doneErr(tk, f, -13)
	fut.Poll(nil)
	assert.Equal(t, uintptr(uint64(int64(-13))), f.X[regA0])
}

func TestDoneFutureIsAlwaysReadyOnFirstPoll(t *testing.T) {
	tk := testTask()
	f := &trap.TrapFrame_t{}
	fut := done(tk, f, 0)
	assert.Equal(t, sched.Ready, fut.Poll(nil))
}
