package hashtable

import "testing"

import "github.com/stretchr/testify/assert"
import "github.com/stretchr/testify/require"

func TestSetThenGetReturnsTheStoredValue(t *testing.T) {
	ht := MkHash(4)
	prev, inserted := ht.Set(1, "one")
	assert.Equal(t, "one", prev)
	assert.True(t, inserted)

	v, ok := ht.Get(1)
	require.True(t, ok)
	assert.Equal(t, "one", v)
}

func TestSetOnAnExistingKeyReportsNotInserted(t *testing.T) {
	ht := MkHash(4)
	ht.Set(1, "one")
	_, inserted := ht.Set(1, "uno")
	assert.False(t, inserted, "re-setting an existing key must not report a fresh insert")
}

func TestGetOfMissingKeyReportsNotFound(t *testing.T) {
	ht := MkHash(4)
	_, ok := ht.Get(99)
	assert.False(t, ok)
}

func TestDelRemovesAKey(t *testing.T) {
	ht := MkHash(4)
	ht.Set(7, "seven")
	ht.Del(7)
	_, ok := ht.Get(7)
	assert.False(t, ok)
	assert.Equal(t, 0, ht.Size())
}

func TestFutexKeySeparatesSameOffsetAcrossAddressSpaces(t *testing.T) {
	ht := MkHash(4)
	a := FutexKey{Space: 1, Off: 0x1000}
	b := FutexKey{Space: 2, Off: 0x1000}

	ht.Set(a, "a's waiter")
	ht.Set(b, "b's waiter")

	va, ok := ht.Get(a)
	require.True(t, ok)
	assert.Equal(t, "a's waiter", va)

	vb, ok := ht.Get(b)
	require.True(t, ok)
	assert.Equal(t, "b's waiter", vb)
}

func TestSizeCountsEveryBucket(t *testing.T) {
	ht := MkHash(4)
	ht.Set(1, "a")
	ht.Set(2, "b")
	ht.Set(3, "c")
	assert.Equal(t, 3, ht.Size())
}
