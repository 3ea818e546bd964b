package hart

import (
	"runtime"
	"strconv"
	"sync"
)

// Go gives us no thread-local storage, and this tree deliberately avoids a
// patched runtime (the teacher's runtime.CPUHint() hack), so "which hart is
// this" is recovered the same way net/http's httptest and a handful of
// goroutine-pool libraries do it: parse the goroutine id out of the leading
// line of runtime.Stack() and key a table on that. Each hart's boot goroutine
// never migrates (BringUp's errgroup.Go closures run to completion on one
// goroutine per hart), so the id is stable for the goroutine's whole life.
var (
	curMu  sync.Mutex
	curIDs = make(map[uint64]int)
)

func goroutineID() uint64 {
	var buf [64]byte
	n := runtime.Stack(buf[:], false)
	// "goroutine 123 [running]:\n..."
	b := buf[:n]
	i := 0
	for i < len(b) && b[i] != ' ' {
		i++
	}
	i++
	j := i
	for j < len(b) && b[j] != ' ' {
		j++
	}
	id, err := strconv.ParseUint(string(b[i:j]), 10, 64)
	if err != nil {
		panic("hart: cannot parse goroutine id: " + err.Error())
	}
	return id
}

// bindCurrent records that the calling goroutine is hart id's boot goroutine.
func bindCurrent(id int) {
	gid := goroutineID()
	curMu.Lock()
	defer curMu.Unlock()
	curIDs[gid] = id
}

// CurrentID returns the hart id of the calling goroutine, as recorded by the
// Register call that brought this hart up. Panics if called from a
// goroutine that never registered a hart -- every caller of CurrentID is
// expected to run on a hart's own goroutine (§4.1), so a miss is a bug
// rather than a condition to recover from.
func CurrentID() int {
	gid := goroutineID()
	curMu.Lock()
	defer curMu.Unlock()
	id, ok := curIDs[gid]
	if !ok {
		panic("hart: CurrentID called from an unregistered goroutine")
	}
	return id
}

// TryCurrentID is CurrentID without the panic, for callers (package
// console's log-line context) that may run from a goroutine that never
// registered a hart -- e.g. a one-shot diagnostic printed before boot
// finishes bringing up secondaries.
func TryCurrentID() (int, bool) {
	gid := goroutineID()
	curMu.Lock()
	defer curMu.Unlock()
	id, ok := curIDs[gid]
	return id, ok
}
