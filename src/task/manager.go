package task

import (
	"sync"

	"sv39kernel/src/defs"
	"sv39kernel/src/idalloc"
)

// tidAlloc hands out tids (and, since Pid_t/PGid_t alias Tid_t, doubles as
// the pid/pgid allocator -- a process's pid is always its leader task's
// tid, and a process group's pgid is always its leader process's pid, so
// there is exactly one id namespace to recycle, matching the teacher's
// single-namespace convention noted on defs.Tid_t).
var tidAlloc = idalloc.New(int(defs.InitTid))

var (
	tableMu sync.RWMutex
	table   = make(map[defs.Tid_t]*Task_t)
)

// pgroupMu/pgroups is the process-group manager (§4.4): every task sharing
// a PGid_t is listed together so a signal targeted at -pgid reaches all of
// them in one lookup instead of a full table scan.
var (
	pgroupMu sync.RWMutex
	pgroups  = make(map[defs.PGid_t]map[defs.Tid_t]*Task_t)
)

// Get looks up a task by tid in the global table. The bool return mirrors
// the teacher's "weak reference, nil if gone" convention (§9's cyclic-
// graph note: the table holds every live task, but once reaped an entry
// is deleted, so ok=false distinguishes "never existed"/"already reaped"
// from a present, possibly-zombie task).
func Get(tid defs.Tid_t) (*Task_t, bool) {
	tableMu.RLock()
	defer tableMu.RUnlock()
	t, ok := table[tid]
	return t, ok
}

// register installs t in the global table and its process group, called
// once by every path that creates a Task_t (NewInit, Fork).
func register(t *Task_t) {
	tableMu.Lock()
	table[t.id] = t
	tableMu.Unlock()

	pgroupMu.Lock()
	g, ok := pgroups[t.PGid]
	if !ok {
		g = make(map[defs.Tid_t]*Task_t)
		pgroups[t.PGid] = g
	}
	g[t.id] = t
	pgroupMu.Unlock()
}

// Unregister removes a reaped task from the global table and its process
// group, deleting the group entirely once its last member leaves.
func Unregister(t *Task_t) {
	tableMu.Lock()
	delete(table, t.id)
	tableMu.Unlock()

	pgroupMu.Lock()
	if g, ok := pgroups[t.PGid]; ok {
		delete(g, t.id)
		if len(g) == 0 {
			delete(pgroups, t.PGid)
		}
	}
	pgroupMu.Unlock()
}

// ProcessGroup returns every task currently in process group pg, the
// fan-out list a `kill(-pgid, sig)` syscall walks.
func ProcessGroup(pg defs.PGid_t) []*Task_t {
	pgroupMu.RLock()
	defer pgroupMu.RUnlock()
	g := pgroups[pg]
	out := make([]*Task_t, 0, len(g))
	for _, t := range g {
		out = append(out, t)
	}
	return out
}

// SetProcessGroup moves t into process group pg (setpgid(2)), leaving its
// old group and joining (or creating) the new one.
func SetProcessGroup(t *Task_t, pg defs.PGid_t) {
	pgroupMu.Lock()
	if old, ok := pgroups[t.PGid]; ok {
		delete(old, t.id)
		if len(old) == 0 {
			delete(pgroups, t.PGid)
		}
	}
	g, ok := pgroups[pg]
	if !ok {
		g = make(map[defs.Tid_t]*Task_t)
		pgroups[pg] = g
	}
	g[t.id] = t
	pgroupMu.Unlock()

	t.mu.Lock()
	t.PGid = pg
	t.mu.Unlock()
}

// Count reports how many tasks are presently live, checked against
// limits.Syslimit.Sysprocs before a fork is allowed to proceed.
func Count() int {
	tableMu.RLock()
	defer tableMu.RUnlock()
	return len(table)
}

// Snapshot returns every currently live task, the fan-out list package
// prof walks to build a point-in-time profile and kill(-1, sig) would walk
// to signal every process on the system.
func Snapshot() []*Task_t {
	tableMu.RLock()
	defer tableMu.RUnlock()
	out := make([]*Task_t, 0, len(table))
	for _, t := range table {
		out = append(out, t)
	}
	return out
}
