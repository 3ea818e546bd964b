package signal

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSigSetAddHasRemove(t *testing.T) {
	var set SigSet
	assert.True(t, set.IsEmpty())

	set = set.Add(SIGINT)
	assert.True(t, set.Has(SIGINT))
	assert.False(t, set.Has(SIGTERM))
	assert.False(t, set.IsEmpty())

	set = set.Remove(SIGINT)
	assert.False(t, set.Has(SIGINT))
	assert.True(t, set.IsEmpty())
}

func TestSigSetAddIsIdempotent(t *testing.T) {
	set := SigSet(0).Add(SIGUSR1).Add(SIGUSR1)
	assert.True(t, set.Has(SIGUSR1))

	set = set.Remove(SIGUSR1)
	assert.True(t, set.IsEmpty())
}

func TestSigIsValid(t *testing.T) {
	assert.True(t, SIGHUP.IsValid())
	assert.True(t, Sig(NSIG-1).IsValid())
	assert.False(t, Sig(0).IsValid())
	assert.False(t, Sig(NSIG).IsValid())
	assert.False(t, Sig(-1).IsValid())
}

func TestResolveActionSIG_DFL(t *testing.T) {
	a := ResolveAction(SigAction{Handler: SIG_DFL, Mask: SigSet(0).Add(SIGINT)})
	assert.Equal(t, ActionDefault, a.Type)
	assert.True(t, a.Mask.Has(SIGINT))
}

func TestResolveActionSIG_IGN(t *testing.T) {
	a := ResolveAction(SigAction{Handler: SIG_IGN})
	assert.Equal(t, ActionIgnore, a.Type)
}

func TestResolveActionUserHandler(t *testing.T) {
	a := ResolveAction(SigAction{Handler: 0x40001000})
	assert.Equal(t, ActionUser, a.Type)
	assert.Equal(t, uintptr(0x40001000), a.Entry)
}

func TestActionRoundTripsThroughSigAction(t *testing.T) {
	for _, sa := range []SigAction{
		{Handler: SIG_DFL, Flags: 3},
		{Handler: SIG_IGN, Flags: 7},
		{Handler: 0xdeadbeef, Mask: SigSet(0).Add(SIGCHLD), Flags: 1},
	} {
		got := ResolveAction(sa).ToSigAction()
		assert.Equal(t, sa.Handler, got.Handler)
		assert.Equal(t, sa.Mask, got.Mask)
		assert.Equal(t, sa.Flags, got.Flags)
	}
}
