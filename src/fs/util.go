package fs

import "encoding/binary"

import "sv39kernel/src/mem"

// bdev_debug toggles the verbose block-read/write tracing scattered through
// blk.go; off by default, the same as the teacher's equivalent flag.
var bdev_debug = false

// fieldr/fieldw read and write one 8-byte little-endian field of a
// superblock-shaped page, the on-disk layout the teacher's mkfs and fs
// packages agree on: field n lives at byte offset n*8.
func fieldr(p *Bytepg, n int) int {
	off := n * 8
	return int(binary.LittleEndian.Uint64(p[off : off+8]))
}

func fieldw(p *Bytepg, n int, val int) {
	off := n * 8
	binary.LittleEndian.PutUint64(p[off:off+8], uint64(val))
}

// Bytepg is a local alias for mem.Bytepg_t, so super.go can hand its
// Superblock_t.Data (a *mem.Bytepg_t) straight to fieldr/fieldw.
type Bytepg = mem.Bytepg_t

// Objref_t is a minimal refcounted cache handle: Bdev_block_t embeds one so
// the generic block cache (not yet ported from the teacher's full
// bnode/cache machinery) has somewhere to keep a reference count without
// every caller re-deriving it from scratch.
type Objref_t struct {
	refcnt int32
}

// Refcnt returns the current reference count.
func (o *Objref_t) Refcnt() int32 {
	return o.refcnt
}

// Up increments the reference count.
func (o *Objref_t) Up() {
	o.refcnt++
}

// Down decrements the reference count, returning true once it reaches zero.
func (o *Objref_t) Down() bool {
	o.refcnt--
	return o.refcnt <= 0
}
