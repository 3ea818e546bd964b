package vm

import (
	"unsafe"

	"sv39kernel/src/defs"
	"sv39kernel/src/mem"
)

// PTE_COW and PTE_WASCOW occupy the two bits Sv39 reserves for supervisor
// software use (riscv-privileged §4.4.1's "Reserved for Software" bits 8-9
// of a leaf PTE), the same slot the teacher's x86 port used its own
// OS-reserved PTE bits (9-11) for. PTE_COW marks a page copy-on-write;
// PTE_WASCOW survives the first post-fault write so a second write to an
// already-broken-out COW page is recognized as ordinary, not a fresh
// fault, by Sys_pgfault's iswrite/PTE_WASCOW check.
const (
	PTE_COW    mem.Pa_t = 1 << 8
	PTE_WASCOW mem.Pa_t = 1 << 9
)

const sv39Levels = 3
const sv39IdxBits = 9
const sv39IdxMask = (1 << sv39IdxBits) - 1

// sv39Index returns the page-table index for va at level lev (0 = leaf).
func sv39Index(va int, lev int) int {
	shift := uint(mem.PGSHIFT) + uint(lev)*sv39IdxBits
	return int(uintptr(va)>>shift) & sv39IdxMask
}

// Pmap_lookup returns the leaf PTE slot mapping va in pmap, without
// creating any missing intermediate tables, or nil if any level along the
// walk is absent -- the read-only counterpart to pmap_walk, used by
// Page_remove (§4.3, no mapping to tear down means nothing to do).
func Pmap_lookup(pmap *mem.Pmap_t, va int) *mem.Pa_t {
	cur := pmap
	for lev := sv39Levels - 1; lev > 0; lev-- {
		idx := sv39Index(va, lev)
		pte := &cur[idx]
		if *pte&mem.PTE_P == 0 {
			return nil
		}
		cur = pg2pmapPtr(mem.Physmem.Dmap(mem.PteToPa(*pte)))
	}
	return &cur[sv39Index(va, 0)]
}

// pmap_walk returns the leaf PTE slot mapping va in pmap, allocating any
// missing intermediate (non-leaf) page-table pages along the way with the
// given permission bits. Returns ENOMEM if a table page could not be
// allocated.
func pmap_walk(pmap *mem.Pmap_t, va int, perms mem.Pa_t) (*mem.Pa_t, defs.Err_t) {
	cur := pmap
	for lev := sv39Levels - 1; lev > 0; lev-- {
		idx := sv39Index(va, lev)
		pte := &cur[idx]
		if *pte&mem.PTE_P == 0 {
			_, p_next, ok := mem.Physmem.Refpg_new()
			if !ok {
				return nil, -defs.ENOMEM
			}
			*pte = mem.PaToPte(p_next) | perms | mem.PTE_P
		}
		cur = pg2pmapPtr(mem.Physmem.Dmap(mem.PteToPa(*pte)))
	}
	return &cur[sv39Index(va, 0)], 0
}

func pg2pmapPtr(pg *mem.Pg_t) *mem.Pmap_t {
	return (*mem.Pmap_t)(unsafe.Pointer(pg))
}
