// Package res is the non-blocking reservation admission control the
// bounded kernel paths in package vm check before touching user memory
// under a SumGuard: each site asks for the page budget package bounds
// assigns it, and proceeds only if that many pages are available in the
// reserve pool, so a bounded copy can never recurse into an allocator
// that itself blocks or page-faults while SUM is set. Referenced
// throughout vm/as.go and vm/userbuf.go in the teacher's retrieved
// sources but, like package bounds, its body was not retrieved into the
// pack; rebuilt here as a plain semaphore over a fixed page budget.
package res

import "sync"

// reservePages is the size of the always-available emergency pool bounded
// operations draw from; chosen generously relative to the largest single
// bounds.Bounds() reservation (5 pages) so that a handful of harts can be
// mid-copy concurrently without contention becoming the common case.
const reservePages = 256

var (
	mu        sync.Mutex
	available = reservePages
)

// Resadd_noblock attempts to reserve n pages without blocking. It returns
// false, taking none of the reservation, if fewer than n pages remain.
func Resadd_noblock(n int) bool {
	mu.Lock()
	defer mu.Unlock()
	if available < n {
		return false
	}
	available -= n
	return true
}

// Resdel returns n pages to the reserve pool. Every successful
// Resadd_noblock call must be paired with exactly one Resdel once the
// bounded section completes.
func Resdel(n int) {
	mu.Lock()
	defer mu.Unlock()
	available += n
	if available > reservePages {
		panic("res: returned more than reserved")
	}
}

// Available reports the current free reservation, used by the console
// diagnostics dump (§6).
func Available() int {
	mu.Lock()
	defer mu.Unlock()
	return available
}
