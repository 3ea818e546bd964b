package tinfo

import "sync"

import "sv39kernel/src/defs"
import "sv39kernel/src/hart"

/// Tnote_t stores per-thread state used by the runtime.
type Tnote_t struct {
	// XXX "alive" should be "terminated"
	State    interface{}
	Alive    bool
	Killed   bool
	Isdoomed bool // XXX maybe don't need doomed, but can use killed?
	// protects killed, Killnaps.Cond and Kerr, and is a leaf lock
	sync.Mutex
	Killnaps struct {
		Killch chan bool
		Cond   *sync.Cond
		Kerr   defs.Err_t
	}
}

/// Doomed reports whether the thread is marked as doomed.
func (t *Tnote_t) Doomed() bool {
	return t.Isdoomed
}

/// Threadinfo_t tracks all thread notes.
type Threadinfo_t struct {
	Notes map[defs.Tid_t]*Tnote_t
	sync.Mutex
}

/// Init initializes the thread info map.
func (t *Threadinfo_t) Init() {
	t.Notes = make(map[defs.Tid_t]*Tnote_t)
}

// current maps a hart id to the Tnote_t of the task the executor is
// currently running on it. The teacher's equivalent (runtime.Gptr/
// Setgptr) stashed the pointer in a patched runtime's per-goroutine slot;
// this tree carries no patched runtime, so the same "ambient access to
// the running task" idiom is built instead on hart.CurrentID(), the
// goroutine-id-keyed lookup already used for per-hart free lists
// (mem.Physmem's pcpuphys_t).
var (
	curMu sync.Mutex
	cur   = make(map[int]*Tnote_t)
)

/// Current returns the thread note installed for the calling hart.
func Current() *Tnote_t {
	id := hart.CurrentID()
	curMu.Lock()
	defer curMu.Unlock()
	t, ok := cur[id]
	if !ok {
		panic("nuts")
	}
	return t
}

/// SetCurrent installs p as the current thread note for the calling hart.
func SetCurrent(p *Tnote_t) {
	if p == nil {
		panic("nuts")
	}
	id := hart.CurrentID()
	curMu.Lock()
	defer curMu.Unlock()
	if _, ok := cur[id]; ok {
		panic("nuts")
	}
	cur[id] = p
}

/// ClearCurrent removes the current thread note for the calling hart.
func ClearCurrent() {
	id := hart.CurrentID()
	curMu.Lock()
	defer curMu.Unlock()
	if _, ok := cur[id]; !ok {
		panic("nuts")
	}
	delete(cur, id)
}
