package vm

import (
	"sync"

	"github.com/google/btree"

	"sv39kernel/src/defs"
	"sv39kernel/src/fdops"
	"sv39kernel/src/mem"
)

// mtype_t distinguishes the four region shapes the teacher's Vminfo_t
// carries: private/shared x anonymous/file-backed. VSANON is the
// POSIX-shared-memory counterpart to VANON -- a shared region never breaks
// a page out as copy-on-write on fork, it stays mapped into every sharer
// (§4.4). A shared file mapping is a VFILE region with file.shared set
// (Vmadd_sharefile); nothing in this tree creates a VSFILE region.
type mtype_t uint

const (
	VANON mtype_t = iota
	VSANON
	VFILE
	VSFILE
)

// Mfile_t is the file-backing state a VFILE/VSFILE region shares across
// every Vminfo_t that maps the same open file, so mapcount (the number of
// still-mapped pages) and the unpin callback are tracked exactly once no
// matter how many regions or processes map the file.
type Mfile_t struct {
	foff     int
	mfops    fdops.Fdops_i
	unpin    mem.Unpin_i
	mapcount int
}

// Vminfo_t describes one mapped virtual memory region: its page range,
// the permission bits a page fault should install, and (for file-backed
// regions) the file it is backed by. One Vm_t's Vmregion_t catalogues a
// disjoint set of these ordered by starting page number.
type Vminfo_t struct {
	Mtype mtype_t
	Pgn   uintptr
	Pglen int
	Perms uint
	file  struct {
		foff   int
		mfile  *Mfile_t
		shared bool
	}
}

// end returns the page number one past this region's last page.
func (v *Vminfo_t) end() uintptr {
	return v.Pgn + uintptr(v.Pglen)
}

// Ptefor returns the leaf PTE slot backing virtual address va within this
// region, creating intermediate page-table levels (but not the leaf
// mapping itself) as needed. ok is false if a table page could not be
// allocated.
func (v *Vminfo_t) Ptefor(pmap *mem.Pmap_t, va uintptr) (*mem.Pa_t, bool) {
	perms := mem.Pa_t(mem.PTE_U)
	if v.Perms&uint(mem.PTE_W) != 0 {
		perms |= mem.PTE_W
	}
	pte, err := pmap_walk(pmap, int(va), perms)
	if err != 0 {
		return nil, false
	}
	return pte, true
}

// Filepage reads the file page covering faultaddr into a freshly
// allocated page, the same way for private and shared mappings, by
// calling through this region's Fdops_i, the vm package's one interaction
// with the file
// descriptor layer -- Page_insert/Blockpage_insert then install whatever
// physical page Filepage returns.
func (v *Vminfo_t) Filepage(faultaddr uintptr) (*mem.Pg_t, mem.Pa_t, defs.Err_t) {
	pg, p_pg, ok := mem.Physmem.Refpg_new_nozero()
	if !ok {
		return nil, 0, -defs.ENOMEM
	}
	pgoff := int(faultaddr>>mem.PGSHIFT-v.Pgn) * mem.PGSIZE
	off := v.file.foff + pgoff
	ub := &Fakeubuf_t{}
	ub.Fake_init(mem.Pg2bytes(pg)[:])
	if _, err := v.file.mfile.mfops.Lseek(off, 0); err != 0 {
		mem.Physmem.Refdown(p_pg)
		return nil, 0, err
	}
	if _, err := v.file.mfile.mfops.Read(ub); err != 0 {
		mem.Physmem.Refdown(p_pg)
		return nil, 0, err
	}
	return pg, p_pg, 0
}

// Vmregion_t is the disjoint, address-ordered catalogue of a process's
// mapped regions. Grounded on tinyrange-cc's use of google/btree
// (v1.1.2, present in its go.mod as an indirect dependency) for ordered,
// range-queryable catalogues; a B-tree gives O(log n) "find the region
// containing this address" lookups that a container/list scan would make
// linear, which matters once a process has hundreds of mmap'd regions.
type Vmregion_t struct {
	mu   sync.Mutex
	tree *btree.BTreeG[*Vminfo_t]
}

func vmiLess(a, b *Vminfo_t) bool {
	return a.Pgn < b.Pgn
}

// insert adds vmi to the catalogue. Overlapping regions are a caller bug
// (the mmap/brk/exec-time region-carving logic is responsible for leaving
// no gaps unaccounted and no overlaps); insert does not itself re-check
// disjointness beyond the B-tree key (Pgn) not colliding.
func (r *Vmregion_t) insert(vmi *Vminfo_t) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.tree == nil {
		r.tree = btree.NewG[*Vminfo_t](32, vmiLess)
	}
	r.tree.ReplaceOrInsert(vmi)
}

// Lookup returns the region covering virtual address va, if any.
func (r *Vmregion_t) Lookup(va uintptr) (*Vminfo_t, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.tree == nil {
		return nil, false
	}
	pgn := va >> mem.PGSHIFT
	var found *Vminfo_t
	probe := &Vminfo_t{Pgn: pgn}
	r.tree.DescendLessOrEqual(probe, func(v *Vminfo_t) bool {
		if pgn < v.end() {
			found = v
		}
		return false
	})
	if found == nil {
		return nil, false
	}
	return found, true
}

// empty finds a gap of at least minlen bytes at or after startva not
// covered by any region in the catalogue, returning the gap's start page
// and its length in bytes -- the allocation strategy Unusedva_inner uses
// to place a new anonymous mapping (e.g. a thread stack or an mmap with
// no fixed address) without a linear scan of every region.
func (r *Vmregion_t) empty(startva, minlen uintptr) (uintptr, uintptr) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.tree == nil {
		return startva, ^uintptr(0)
	}
	cur := startva >> mem.PGSHIFT
	gapStart := cur
	found := false
	r.tree.Ascend(func(v *Vminfo_t) bool {
		if v.end() <= cur {
			return true
		}
		if v.Pgn > cur && uintptr(v.Pgn-cur)<<mem.PGSHIFT >= minlen {
			gapStart = cur
			found = true
			return false
		}
		cur = v.end()
		return true
	})
	if found {
		nextStart := gapStart
		r.tree.AscendGreaterOrEqual(&Vminfo_t{Pgn: gapStart}, func(v *Vminfo_t) bool {
			nextStart = v.Pgn
			return false
		})
		return gapStart << mem.PGSHIFT, (nextStart - gapStart) << mem.PGSHIFT
	}
	return cur << mem.PGSHIFT, ^uintptr(0)
}

// Iter calls f for every region in ascending start-address order, stopping
// early if f returns false. Used by fork's COW walk (vm/fork.go), which
// needs every region rather than a single address lookup.
func (r *Vmregion_t) Iter(f func(*Vminfo_t) bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.tree == nil {
		return
	}
	r.tree.Ascend(func(v *Vminfo_t) bool {
		return f(v)
	})
}

// Remove deletes the region covering va from the catalogue, returning it.
func (r *Vmregion_t) Remove(va uintptr) (*Vminfo_t, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.tree == nil {
		return nil, false
	}
	// r.mu is already held, so Lookup's search is repeated here inline.
	pgn := va >> mem.PGSHIFT
	var vmi *Vminfo_t
	r.tree.DescendLessOrEqual(&Vminfo_t{Pgn: pgn}, func(v *Vminfo_t) bool {
		if pgn < v.end() {
			vmi = v
		}
		return false
	})
	if vmi == nil {
		return nil, false
	}
	r.tree.Delete(vmi)
	return vmi, true
}

// Clear empties the catalogue, releasing every file-backed region's
// reference to its Mfile_t (unpinning shared mappings as their mapcount
// drops to zero), called once by Uvmfree when an address space is torn
// down.
func (r *Vmregion_t) Clear() {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.tree == nil {
		return
	}
	r.tree.Ascend(func(v *Vminfo_t) bool {
		if v.Mtype == VFILE || v.Mtype == VSFILE {
			v.file.mfile.mapcount -= v.Pglen
			if v.file.mfile.mapcount <= 0 && v.file.mfile.unpin != nil {
				v.file.mfile.unpin.Unpin(0)
			}
		}
		return true
	})
	r.tree.Clear(false)
}

// Uvmfree_inner tears down every user leaf mapping rooted at pmap,
// dropping the physical page refcount each maps, then returns the
// now-empty intermediate page-table pages (§4.3's "fork/exit unmap" path).
func Uvmfree_inner(pmap *mem.Pmap_t, p_pmap mem.Pa_t, rgn *Vmregion_t) {
	rgn.mu.Lock()
	defer rgn.mu.Unlock()
	if rgn.tree == nil {
		return
	}
	rgn.tree.Ascend(func(v *Vminfo_t) bool {
		for pgn := v.Pgn; pgn < v.end(); pgn++ {
			va := int(pgn << mem.PGSHIFT)
			pte := Pmap_lookup(pmap, va)
			if pte == nil || *pte&mem.PTE_P == 0 {
				continue
			}
			p_pg := mem.PteToPa(*pte)
			*pte = 0
			mem.Physmem.Refdown(p_pg)
		}
		return true
	})
}
