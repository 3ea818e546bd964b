package vm

import "sv39kernel/src/defs"
import "sv39kernel/src/mem"

// ForkCOW builds a child address space sharing every present page with
// this one copy-on-write, the `clone_cow` operation named in SPEC_FULL.md
// §4.3. It is the mirror image of Sys_pgfault's COW-break path in as.go:
// where a page fault clears PTE_COW on a uniquely-referenced page, fork
// instead turns every writable, currently-present mapping into a COW pair
// shared by both address spaces, refupping the physical page once per
// copy so Uvmfree's refdown on either side leaves the other's mapping
// intact.
func (as *Vm_t) ForkCOW() (*Vm_t, defs.Err_t) {
	as.Lock_pmap()
	defer as.Unlock_pmap()

	child := &Vm_t{}
	npmap, p_npmap, ok := mem.Physmem.Pmap_new()
	if !ok {
		return nil, -defs.ENOMEM
	}
	child.Pmap = npmap
	child.P_pmap = p_npmap
	// child isn't reachable from any other goroutine yet -- lock it once
	// up front purely to satisfy _page_insert/pmap_walk's Lockassert_pmap,
	// not for mutual exclusion.
	child.Lock_pmap()
	defer child.Unlock_pmap()

	var ferr defs.Err_t
	as.Vmregion.Iter(func(v *Vminfo_t) bool {
		cv := *v
		child.Vmregion.insert(&cv)
		if v.Mtype == VSANON || (v.Mtype == VFILE && v.file.shared) {
			// shared mappings stay mapped identically in both spaces,
			// not copy-on-write -- writes in one are meant to be seen by
			// the other, so there is nothing to break out later.
			if v.file.mfile != nil {
				v.file.mfile.mapcount += v.Pglen
			}
			for pgn := v.Pgn; pgn < v.end(); pgn++ {
				va := int(pgn << mem.PGSHIFT)
				pte := Pmap_lookup(as.Pmap, va)
				if pte == nil || *pte&mem.PTE_P == 0 {
					continue
				}
				if !child.pageInsertOK(va, mem.PteToPa(*pte), *pte&^mem.PTE_ADDR, true, nil) {
					ferr = -defs.ENOMEM
					return false
				}
			}
			return true
		}
		for pgn := v.Pgn; pgn < v.end(); pgn++ {
			va := int(pgn << mem.PGSHIFT)
			pte := Pmap_lookup(as.Pmap, va)
			if pte == nil || *pte&mem.PTE_P == 0 {
				continue
			}
			if *pte&mem.PTE_W != 0 {
				*pte = (*pte &^ (mem.PTE_W | PTE_WASCOW)) | PTE_COW
			}
			p_pg := mem.PteToPa(*pte)
			mem.Physmem.Refup(p_pg)
			cpte, err := pmap_walk(child.Pmap, va, mem.PTE_U|mem.PTE_W)
			if err != 0 {
				ferr = err
				return false
			}
			*cpte = *pte
		}
		// every write-enabled PTE this region held just lost PTE_W in
		// favor of PTE_COW above -- the parent's TLB may still cache the
		// old, writable translation, so it needs invalidating for the
		// whole region before any other hart can dirty a page the child
		// is also now pointing at.
		as.Tlbshoot(v.Pgn<<mem.PGSHIFT, v.Pglen)
		return true
	})
	if ferr != 0 {
		child.Uvmfree()
		return nil, ferr
	}
	return child, 0
}

// Page_insert's bool-bool return collapses to a single ok bool for
// ForkCOW's simpler "did the walk succeed" check.
func (as *Vm_t) pageInsertOK(va int, p_pg mem.Pa_t, perms mem.Pa_t, vempty bool, pte *mem.Pa_t) bool {
	_, ok := as._page_insert(va, p_pg, perms, vempty, true, pte)
	return ok
}
