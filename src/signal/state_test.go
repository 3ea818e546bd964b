package signal

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewStateStartsEmpty(t *testing.T) {
	st := NewState()
	assert.False(t, st.Deliverable())
	assert.Equal(t, SigSet(0), st.CurrentMask())
}

func TestSetActionReturnsPrevious(t *testing.T) {
	st := NewState()
	first := Action{Type: ActionIgnore}
	old := st.SetAction(SIGUSR1, first)
	assert.Equal(t, ActionDefault, old.Type, "a fresh task's signals all start at SIG_DFL")

	second := Action{Type: ActionUser, Entry: 0x1000}
	old = st.SetAction(SIGUSR1, second)
	assert.Equal(t, ActionIgnore, old.Type)
	assert.Equal(t, ActionUser, st.GetAction(SIGUSR1).Type)
}

func TestRaiseMarksPendingOnceAndReportsNewness(t *testing.T) {
	st := NewState()
	assert.True(t, st.Raise(SIGUSR1), "first raise is newly pending")
	assert.False(t, st.Raise(SIGUSR1), "raising an already-pending signal reports false")
	assert.True(t, st.Deliverable())
}

func TestDeliverableIsFalseWhenBlocked(t *testing.T) {
	st := NewState()
	_, ok := st.SetMask(SIG_BLOCK, SigSet(0).Add(SIGUSR1))
	require.True(t, ok)

	st.Raise(SIGUSR1)
	assert.False(t, st.Deliverable(), "a blocked signal is pending but not deliverable")
}

func TestSetMaskCannotBlockSIGKILLOrSIGSTOP(t *testing.T) {
	st := NewState()
	_, ok := st.SetMask(SIG_SETMASK, SigSet(0).Add(SIGKILL).Add(SIGSTOP).Add(SIGTERM))
	require.True(t, ok)

	mask := st.CurrentMask()
	assert.False(t, mask.Has(SIGKILL))
	assert.False(t, mask.Has(SIGSTOP))
	assert.True(t, mask.Has(SIGTERM))
}

func TestSetMaskUnknownHowFails(t *testing.T) {
	st := NewState()
	_, ok := st.SetMask(99, SigSet(0))
	assert.False(t, ok)
}

func TestSetMaskBlockUnblockRoundTrip(t *testing.T) {
	st := NewState()
	st.SetMask(SIG_BLOCK, SigSet(0).Add(SIGUSR1).Add(SIGUSR2))
	assert.True(t, st.CurrentMask().Has(SIGUSR1))

	old, ok := st.SetMask(SIG_UNBLOCK, SigSet(0).Add(SIGUSR1))
	require.True(t, ok)
	assert.True(t, old.Has(SIGUSR1), "SetMask returns the mask from before the update")
	assert.False(t, st.CurrentMask().Has(SIGUSR1))
	assert.True(t, st.CurrentMask().Has(SIGUSR2))
}

func TestNextDeliverablePicksLowestNumberedFirst(t *testing.T) {
	st := NewState()
	st.Raise(SIGTERM) // 15
	st.Raise(SIGINT)  // 2
	st.Raise(SIGUSR1) // 10

	s, _, ok := st.NextDeliverable()
	require.True(t, ok)
	assert.Equal(t, SIGINT, s)

	s, _, ok = st.NextDeliverable()
	require.True(t, ok)
	assert.Equal(t, SIGUSR1, s)

	s, _, ok = st.NextDeliverable()
	require.True(t, ok)
	assert.Equal(t, SIGTERM, s)

	_, _, ok = st.NextDeliverable()
	assert.False(t, ok, "NextDeliverable drains the pending set")
}

func TestNextDeliverableSkipsBlockedSignals(t *testing.T) {
	st := NewState()
	st.SetMask(SIG_BLOCK, SigSet(0).Add(SIGINT))
	st.Raise(SIGINT)
	st.Raise(SIGTERM)

	s, _, ok := st.NextDeliverable()
	require.True(t, ok)
	assert.Equal(t, SIGTERM, s, "a blocked signal must not be picked even if lower-numbered")
	assert.True(t, st.Pending.Has(SIGINT), "a blocked pending signal stays pending")
}

func TestSnapshotCopiesActionsAndMask(t *testing.T) {
	st := NewState()
	st.SetAction(SIGUSR1, Action{Type: ActionIgnore})
	st.SetMask(SIG_BLOCK, SigSet(0).Add(SIGTERM))

	actions, blocked := st.Snapshot()
	assert.Equal(t, ActionIgnore, actions[SIGUSR1-1].Type)
	assert.True(t, blocked.Has(SIGTERM))

	// Mutating the task's live state afterward must not retroactively
	// change the already-taken snapshot (it's a value copy).
	st.SetAction(SIGUSR1, Action{Type: ActionDefault})
	assert.Equal(t, ActionIgnore, actions[SIGUSR1-1].Type)
}
