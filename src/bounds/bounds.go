// Package bounds names the fixed per-operation heap/stack reservations a
// bounded kernel path is allowed to make before it touches user memory,
// mirroring the teacher's bounds package (its symbols are referenced
// throughout vm/as.go and vm/userbuf.go but the package body itself was
// not retrieved into the pack). Every bounded site names one constant
// here and asks package res to reserve it; res denies the call rather
// than let an unbounded allocation run while SUM is set and a page fault
// could re-enter the allocator.
package bounds

// Id names one bounded call site.
type Id int

const (
	B_ASPACE_T_K2USER_INNER Id = iota
	B_ASPACE_T_USER2K_INNER
	B_USERBUF_T__TX
	B_USERIOVEC_T_IOV_INIT
	B_USERIOVEC_T__TX
)

// sizes gives the worst-case reservation, in pages, each bounded site
// needs: K2user/User2k walk at most 3 Sv39 page-table levels and touch at
// most 2 data pages (the two halves of a single PGSIZE-spanning copy), so
// 5 covers it exactly; the userbuf/iovec paths are pure data copies
// bounded by the same 2-page worst case.
var sizes = map[Id]int{
	B_ASPACE_T_K2USER_INNER: 5,
	B_ASPACE_T_USER2K_INNER: 5,
	B_USERBUF_T__TX:         2,
	B_USERIOVEC_T_IOV_INIT:  2,
	B_USERIOVEC_T__TX:       2,
}

// Bounds returns the page reservation for id.
func Bounds(id Id) int {
	return sizes[id]
}
