package vm

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"sv39kernel/src/mem"
)

func pages(pgn, pglen int) *Vminfo_t {
	return &Vminfo_t{Mtype: VANON, Pgn: uintptr(pgn), Pglen: pglen, Perms: uint(mem.PTE_W)}
}

func TestLookupOnEmptyRegionMisses(t *testing.T) {
	var r Vmregion_t
	_, ok := r.Lookup(0x1000)
	assert.False(t, ok)
}

func TestLookupFindsContainingRegion(t *testing.T) {
	var r Vmregion_t
	vmi := pages(10, 4) // pages [10,14) -> vaddr [10*4096, 14*4096)
	r.insert(vmi)

	got, ok := r.Lookup(uintptr(12 * mem.PGSIZE))
	require.True(t, ok)
	assert.Same(t, vmi, got)

	_, ok = r.Lookup(uintptr(14 * mem.PGSIZE))
	assert.False(t, ok, "the end page is one past the region, not covered")
}

func TestLookupBetweenDisjointRegionsMisses(t *testing.T) {
	var r Vmregion_t
	r.insert(pages(0, 2))  // [0,2)
	r.insert(pages(10, 2)) // [10,12)

	_, ok := r.Lookup(uintptr(5 * mem.PGSIZE))
	assert.False(t, ok)
}

func TestIterVisitsInAscendingOrder(t *testing.T) {
	var r Vmregion_t
	r.insert(pages(20, 1))
	r.insert(pages(0, 1))
	r.insert(pages(10, 1))

	var seen []uintptr
	r.Iter(func(v *Vminfo_t) bool {
		seen = append(seen, v.Pgn)
		return true
	})
	assert.Equal(t, []uintptr{0, 10, 20}, seen)
}

func TestIterStopsEarlyWhenCallbackReturnsFalse(t *testing.T) {
	var r Vmregion_t
	r.insert(pages(0, 1))
	r.insert(pages(10, 1))
	r.insert(pages(20, 1))

	count := 0
	r.Iter(func(v *Vminfo_t) bool {
		count++
		return false
	})
	assert.Equal(t, 1, count)
}

func TestRemoveDeletesAndReturnsTheRegion(t *testing.T) {
	var r Vmregion_t
	vmi := pages(0, 4)
	r.insert(vmi)

	got, ok := r.Remove(uintptr(2 * mem.PGSIZE))
	require.True(t, ok)
	assert.Same(t, vmi, got)

	_, ok = r.Lookup(uintptr(2 * mem.PGSIZE))
	assert.False(t, ok)
}

func TestRemoveMissReportsFalse(t *testing.T) {
	var r Vmregion_t
	_, ok := r.Remove(0x1000)
	assert.False(t, ok)
}

func TestEmptyFindsGapBetweenRegions(t *testing.T) {
	var r Vmregion_t
	r.insert(pages(0, 2))  // [0,2)
	r.insert(pages(10, 2)) // [10,12)

	gapVa, gapLen := r.empty(0, uintptr(2*mem.PGSIZE))
	assert.Equal(t, uintptr(2*mem.PGSIZE), gapVa, "the first gap starts right after the first region")
	assert.Equal(t, uintptr(8*mem.PGSIZE), gapLen)
}

func TestEmptyOnUnpopulatedCatalogueReturnsStartva(t *testing.T) {
	var r Vmregion_t
	va, length := r.empty(uintptr(4*mem.PGSIZE), uintptr(mem.PGSIZE))
	assert.Equal(t, uintptr(4*mem.PGSIZE), va)
	assert.Equal(t, ^uintptr(0), length)
}

func TestClearEmptiesTheCatalogue(t *testing.T) {
	var r Vmregion_t
	r.insert(pages(0, 2))
	r.insert(pages(10, 2))

	r.Clear()

	var seen int
	r.Iter(func(v *Vminfo_t) bool { seen++; return true })
	assert.Equal(t, 0, seen)
}
