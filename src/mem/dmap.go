package mem

import "unsafe"

import "github.com/rs/zerolog/log"

import "sv39kernel/src/hart"

// Sv39 virtual address layout (the teacher's x86-64 port used a 4-level,
// 48-bit recursive layout; Sv39 is 3 levels over 39 bits, but the same
// "reserve a few top-level slots for kernel bookkeeping" idiom carries
// over unchanged since both architectures give the top level 512 (9-bit)
// entries):
//
//	VREC    -- the root table maps itself at this slot, so the kernel can
//	           address any PTE in the live page table as ordinary memory
//	           by constructing a VA from (VREC,VREC,VREC,index).
//	VDIRECT -- physical memory is linearly mapped starting here, using
//	           Sv39 gigapage (level-2 leaf) entries.
//	VUSER   -- the first slot userspace may occupy.

/// VREC is the recursive mapping slot used by the kernel.
const VREC int = 0x42

/// VDIRECT is the direct-map slot.
const VDIRECT int = 0x44

/// VEND marks the end of kernel virtual space.
const VEND int = 0x50

/// VUSER is the first user-space slot.
const VUSER int = 0x59

/// USERMIN is the lowest user virtual address.
const USERMIN int = VUSER << 39

/// DMAPLEN is the length of the direct map in bytes: one gigapage per
/// root-table entry from VDIRECT to VEND, covering up to 12GB of physical
/// memory directly-mapped without needing intermediate table levels.
const DMAPLEN int = (VEND - VDIRECT) << 30

/// Vdirect holds the virtual address of the direct map region.
var Vdirect = uintptr(VDIRECT << 39)

/// Dmaplen returns a slice over the direct map starting at p for l bytes.
func Dmaplen(p Pa_t, l int) []uint8 {
	_dmap := (*[DMAPLEN]uint8)(unsafe.Pointer(Vdirect))
	return _dmap[p : p+Pa_t(l)]
}

/// Dmaplen32 is like Dmaplen but operates on 32-bit units.
/// p and l must be multiples of 4.
func Dmaplen32(p uintptr, l int) []uint32 {
	if p%4 != 0 || l%4 != 0 {
		panic("not 32bit aligned")
	}
	_dmap := (*[DMAPLEN / 4]uint32)(unsafe.Pointer(Vdirect))
	p /= 4
	l /= 4
	return _dmap[p : p+uintptr(l)]
}

// shl returns the bit shift for Sv39 level c (0 = leaf / 4KB, 1 = 2MB
// megapage, 2 = 1GB gigapage); the teacher's x86 port had a 4th level.
func shl(c uint) uint {
	return 12 + 9*c
}

func pgbits(v uint) (uint, uint, uint) {
	lb := func(c uint) uint {
		return (v >> shl(c)) & 0x1ff
	}
	return lb(2), lb(1), lb(0)
}

func mkpg(l3, l2, l1 int) int {
	lb := func(c uint, idx int) uint {
		return (uint(idx) & 0x1ff) << shl(c)
	}
	return int(lb(2, l3) | lb(1, l2) | lb(0, l1))
}

// caddr computes the virtual address of page-table entry `off` within the
// table reached by walking the recursive slot through (l3,l2,l1) root/PD
// indices -- e.g. caddr(VREC, VREC, VREC, off) addresses slot off of the
// root table itself, and caddr(VREC, VREC, pdIdx, off) addresses slot off
// of the PD table that root[pdIdx] points at.
func caddr(l3, l2, l1, off int) *Pa_t {
	ret := mkpg(l3, l2, l1)
	ret += off * 8
	return (*Pa_t)(unsafe.Pointer(uintptr(ret)))
}

/// Kent_t records a kernel page-map entry.
type Kent_t struct {
	Pml4slot int
	Entry    Pa_t
}

/// Zerobpg is a byte representation of the zero page.
var Zerobpg *Bytepg_t

/// P_zeropg is the physical address of Zerobpg.
var P_zeropg Pa_t

/// Kents contains all kernel root-table entries.
var Kents = make([]Kent_t, 0, 5)

// earlyPages backs the handful of page-table pages Dmap_init itself needs
// before the direct map (and therefore the ordinary physical-page
// allocator, whose Dmap() calls depend on Vdirect already being mapped)
// exists. It is a statically-sized array rather than a Go heap
// allocation so its physical address is knowable without a runtime
// virtual-to-physical query: cmd/kernel's linker script places the
// kernel image (and therefore this BSS array) at a fixed, known physical
// load address, and earlyBase records that offset.
var earlyPages [64]Pmap_t
var earlyUsed int

// earlyBase is the physical load address corresponding to &earlyPages[0];
// cmd/kernel sets this once, immediately on entry, from the linker
// symbol marking the kernel's physical base (the RISC-V boot convention
// used by SBI firmware: a single relocatable ELF loaded at a fixed
// physical address with .data/.bss following directly after .text).
var earlyBase Pa_t

// SetEarlyBase records the kernel image's physical load address, needed
// to translate &earlyPages[i] into a physical address during Dmap_init,
// before the direct map this translation would otherwise go through
// exists yet.
func SetEarlyBase(pa Pa_t) {
	earlyBase = pa
}

func earlyAlloc() (*Pmap_t, Pa_t) {
	if earlyUsed >= len(earlyPages) {
		panic("out of early page-table pages")
	}
	pg := &earlyPages[earlyUsed]
	va := uintptr(unsafe.Pointer(pg))
	image := uintptr(unsafe.Pointer(&earlyPages[0]))
	pa := earlyBase + Pa_t(va-image)
	earlyUsed++
	return pg, pa
}

/// Dmap_init installs the direct map covering all physical memory.
func Dmap_init() {
	_dpte := caddr(VREC, VREC, VREC, VDIRECT)
	if *_dpte&PTE_P != 0 {
		panic("dmap slot taken")
	}

	pd, p_pd := earlyAlloc()
	kpgadd(pd)

	*_dpte = PaToPte(p_pd) | PTE_P | PTE_R | PTE_W

	// Sv39 gigapages (level-2 leaves) cover physical memory directly; every
	// RISC-V privileged-spec-conforming implementation supports them, so
	// there is no x86-style "check cpuid for 1GB page support" branch here.
	size := Pa_t(1 << 30)
	log.Info().Msg("direct map via 1GB pages")
	for i := range pd {
		pa := Pa_t(i) * size
		pd[i] = PaToPte(pa) | PTE_P | PTE_R | PTE_W | PTE_PS
	}

	for i, e := range Kpmap() {
		if e&PTE_U == 0 && e&PTE_P != 0 {
			ent := Kent_t{i, e}
			Kents = append(Kents, ent)
		}
	}
	Physmem.Dmapinit = true
	hart.SfenceVMA(0)

	// PhysRefpg_new() uses the Zeropg to zero the page
	var ok bool
	Zeropg, P_zeropg, ok = Physmem._refpg_new()
	if !ok {
		panic("oom in dmap init")
	}
	for i := range Zeropg {
		Zeropg[i] = 0
	}
	Physmem.Refup(P_zeropg)
	Zerobpg = Pg2bytes(Zeropg)
}

/// Kpmapp caches the kernel's top-level page map.
var Kpmapp *Pmap_t

/// Kpmap returns the kernel's pmap pointer.
func Kpmap() *Pmap_t {
	if Kpmapp == nil {
		dur := caddr(VREC, VREC, VREC, 0)
		Kpmapp = (*Pmap_t)(unsafe.Pointer(dur))
	}
	return Kpmapp
}

// tracks all pages allocated by go internally by the kernel such as pmap pages
// allocated by the kernel (not the bootloader/runtime)
var kpages = pgtracker_t{}

func kpgadd(pg *Pmap_t) {
	va := uintptr(unsafe.Pointer(pg))
	pgn := int(va >> 12)
	if _, ok := kpages[pgn]; ok {
		panic("page already in kpages")
	}
	kpages[pgn] = pg
}

// tracks pages
type pgtracker_t map[int]*Pmap_t
