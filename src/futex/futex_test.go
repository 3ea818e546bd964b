package futex

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"sv39kernel/src/defs"
	"sv39kernel/src/limits"
)

func TestWakeOnEmptyQueueWakesNobody(t *testing.T) {
	tbl := NewTable()
	assert.Equal(t, 0, tbl.Wake(0x1000, 1))
}

func TestWakeOrdersOldestFirst(t *testing.T) {
	tbl := NewTable()
	var order []int

	require.Equal(t, defs.Err_t(0), tbl.AddWaiter(0x2000, 1, func() { order = append(order, 1) }))
	require.Equal(t, defs.Err_t(0), tbl.AddWaiter(0x2000, 2, func() { order = append(order, 2) }))
	require.Equal(t, defs.Err_t(0), tbl.AddWaiter(0x2000, 3, func() { order = append(order, 3) }))

	woken := tbl.Wake(0x2000, 2)
	assert.Equal(t, 2, woken)
	assert.Equal(t, []int{1, 2}, order, "FUTEX_WAKE must wake the oldest waiters first")
}

func TestWakeMoreThanQueuedWakesWhatExists(t *testing.T) {
	tbl := NewTable()
	require.Equal(t, defs.Err_t(0), tbl.AddWaiter(0x3000, 1, func() {}))

	assert.Equal(t, 1, tbl.Wake(0x3000, 5))
	assert.Equal(t, 0, tbl.Wake(0x3000, 5), "a fully-drained queue must be garbage collected")
}

func TestRemoveWaiterGivesBackTheLimit(t *testing.T) {
	tbl := NewTable()
	before := limits.Syslimit.Futexes

	require.Equal(t, defs.Err_t(0), tbl.AddWaiter(0x4000, 1, func() {}))
	assert.Equal(t, before-1, limits.Syslimit.Futexes)

	tbl.RemoveWaiter(0x4000, 1)
	assert.Equal(t, before, limits.Syslimit.Futexes, "removing a waiter must return its slot")
}

func TestRemoveWaiterUnknownTidIsNoop(t *testing.T) {
	tbl := NewTable()
	before := limits.Syslimit.Futexes
	tbl.RemoveWaiter(0x5000, 99)
	assert.Equal(t, before, limits.Syslimit.Futexes)
}

func TestRequeueSameAddressIsNoop(t *testing.T) {
	tbl := NewTable()
	require.Equal(t, defs.Err_t(0), tbl.AddWaiter(0x6000, 1, func() {}))
	moved := tbl.Requeue(0x6000, 0x6000, 0, 10)
	assert.Equal(t, 0, moved)
}

func TestRequeueWakesThenMovesTheRest(t *testing.T) {
	tbl := NewTable()
	var woken []int
	require.Equal(t, defs.Err_t(0), tbl.AddWaiter(0x7000, 1, func() { woken = append(woken, 1) }))
	require.Equal(t, defs.Err_t(0), tbl.AddWaiter(0x7000, 2, func() { woken = append(woken, 2) }))
	require.Equal(t, defs.Err_t(0), tbl.AddWaiter(0x7000, 3, func() { woken = append(woken, 3) }))

	total := tbl.Requeue(0x7000, 0x8000, 1, 5)

	assert.Equal(t, 3, total, "Requeue reports woken + moved")
	assert.Equal(t, []int{1}, woken, "only nWake waiters are actually woken")

	// The remaining two were moved onto the new address's queue.
	moved := tbl.Wake(0x8000, 10)
	assert.Equal(t, 2, moved)

	// And are gone from the old one.
	assert.Equal(t, 0, tbl.Wake(0x7000, 10))
}
