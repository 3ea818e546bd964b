package task

import (
	"sync"

	"sv39kernel/src/accnt"
	"sv39kernel/src/defs"
	"sv39kernel/src/fd"
	"sv39kernel/src/futex"
	"sv39kernel/src/sched"
	"sv39kernel/src/signal"
	"sv39kernel/src/stats"
	"sv39kernel/src/tinfo"
	"sv39kernel/src/vm"
)

// State_t is the task-state enumeration named in §3 ("Task state").
type State_t int

const (
	Runnable State_t = iota
	Sleeping
	Zombie
	Stopped
)

func (s State_t) String() string {
	switch s {
	case Runnable:
		return "runnable"
	case Sleeping:
		return "sleeping"
	case Zombie:
		return "zombie"
	case Stopped:
		return "stopped"
	default:
		return "unknown"
	}
}

// Task_t is the scheduling unit described in §3/§4.4: one tid, the
// process (thread group) it belongs to, its address space, its open
// files, and the bookkeeping every other component hangs off of. A
// Task_t satisfies hart.Runnable (just Tid()) so package hart never
// needs to import package task.
type Task_t struct {
	mu sync.Mutex

	id    defs.Tid_t
	Pid   defs.Pid_t // thread-group leader's Tid; == Tid() for the leader itself
	PGid  defs.PGid_t
	State State_t

	Parent   *Task_t
	children map[defs.Tid_t]*Task_t

	Vm    *vm.Vm_t
	Cwd   *fd.Cwd_t
	Fds   map[int]*fd.Fd_t
	nextFd int

	Note  *tinfo.Tnote_t
	Accnt *accnt.Accnt_t
	Sig   *signal.State
	// Futex is shared with every task in the same address space (the
	// CloneVM sharers), since FUTEX_WAIT/WAKE arbitrate on a shared
	// memory location -- a private Table per task would never see a
	// waiter another thread in the same process woke.
	Futex *futex.Table
	Times TimeStat
	Rlim  [rlimitCount]RLimit
	Affin CpuMask

	// Syscalls counts the syscalls dispatched for this task
	// (ksyscall.Dispatch increments it on entry); a no-op unless
	// stats.Stats is flipped on, the same compile-time-gated accounting
	// discipline stats.Counter_t's own doc comment describes.
	Syscalls stats.Counter_t

	// Minflt/Majflt/Inblock/Oublock feed Rusage, counted separately from
	// TimeStat because they are incremented from the page-fault and
	// block-io paths, not the scheduler tick.
	Minflt, Majflt   int64
	Inblock, Oublock int64

	// waker is the handle the executor gave this task's spawned future;
	// signal delivery and futex wake both reach through here to resume a
	// parked task without knowing what it was blocked on.
	waker *sched.Waker

	// waitCh is closed by Exit and consumed by a parent blocked in wait4;
	// ExitCode holds the status wait4 reports once waitCh is closed.
	waitCh   chan struct{}
	ExitCode int

	// brk is the current program-break address, the mutable cursor
	// sys_brk (ksyscall/mm.go) advances or reports; it starts at 0
	// (unset) until the first brk(2) call establishes the heap's base.
	brk uintptr
}

// IsZombie reports whether this task has already exited, the check
// wait4 (ksyscall/process.go) polls for since it cannot reach t.mu
// directly from outside the package.
func (t *Task_t) IsZombie() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.State == Zombie
}

// Brk returns the task's current program break.
func (t *Task_t) Brk() uintptr {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.brk
}

// SetBrk installs a new program break, returning the value now in effect
// -- callers (sys_brk) decide whether addr was accepted and pass back
// whatever the break should read as either way, matching brk(2)'s
// "always returns the current break" contract.
func (t *Task_t) SetBrk(addr uintptr) uintptr {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.brk = addr
	return t.brk
}

// Tid satisfies hart.Runnable, so hart.State_t.SetCurrent can hold a
// Task_t without package hart importing package task.
func (t *Task_t) Tid() int { return int(t.id) }

// TidT returns the typed Tid_t, for callers already in defs/task terms.
func (t *Task_t) TidT() defs.Tid_t { return t.id }

// newTaskBase fills in the fields every new task needs regardless of
// whether it is the very first init task or a fork child, leaving
// tid/pid/pgid/Parent/Vm/Fds/Cwd for the caller to set.
func newTaskBase() *Task_t {
	return &Task_t{
		children: make(map[defs.Tid_t]*Task_t),
		Fds:      make(map[int]*fd.Fd_t),
		nextFd:   0,
		Note:     &tinfo.Tnote_t{Alive: true},
		Accnt:    &accnt.Accnt_t{},
		Sig:      signal.NewState(),
		Futex:    futex.NewTable(),
		Rlim:     DefaultRLimits(),
		waitCh:   make(chan struct{}),
	}
}

// AddFd installs f at the lowest unused descriptor number, POSIX's
// dup/open allocation rule.
func (t *Task_t) AddFd(f *fd.Fd_t) int {
	t.mu.Lock()
	defer t.mu.Unlock()
	n := t.nextFd
	for {
		if _, taken := t.Fds[n]; !taken {
			break
		}
		n++
	}
	t.Fds[n] = f
	if n == t.nextFd {
		t.nextFd++
	}
	return n
}

// GetFd returns the descriptor numbered n, if open.
func (t *Task_t) GetFd(n int) (*fd.Fd_t, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	f, ok := t.Fds[n]
	return f, ok
}

// CloseFd removes and closes descriptor n.
func (t *Task_t) CloseFd(n int) defs.Err_t {
	t.mu.Lock()
	f, ok := t.Fds[n]
	if ok {
		delete(t.Fds, n)
		if n < t.nextFd {
			t.nextFd = n
		}
	}
	t.mu.Unlock()
	if !ok {
		return -defs.EBADF
	}
	return f.Fops.Close()
}

// SetWaker installs the Waker the executor handed back from Spawn, so
// signal/futex delivery can resume this task without reaching into
// package sched directly.
func (t *Task_t) SetWaker(w *sched.Waker) {
	t.mu.Lock()
	t.waker = w
	t.mu.Unlock()
}

// Wake resumes this task if it is currently parked.
func (t *Task_t) Wake() {
	t.mu.Lock()
	w := t.waker
	t.mu.Unlock()
	w.Wake()
}

// AddChild records child as one of t's children, called by Fork.
func (t *Task_t) AddChild(child *Task_t) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.children[child.id] = child
}

// Children returns a snapshot of t's current children.
func (t *Task_t) Children() []*Task_t {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := make([]*Task_t, 0, len(t.children))
	for _, c := range t.children {
		out = append(out, c)
	}
	return out
}

// RemoveChild drops child from t's child set, called once a reaper has
// consumed its exit status.
func (t *Task_t) RemoveChild(tid defs.Tid_t) {
	t.mu.Lock()
	defer t.mu.Unlock()
	delete(t.children, tid)
}

// WaitExit blocks the calling goroutine (a wait4 syscall future's polling
// driver, once package trap/ksyscall exist) until this task has exited.
func (t *Task_t) WaitExit() {
	<-t.waitCh
}

// Exit marks the task a zombie, records its exit status, wakes anyone
// blocked in WaitExit, and reparents its children to init (§4.4's
// "exit/reap/reparent-to-init").
func (t *Task_t) Exit(code int) {
	t.mu.Lock()
	t.State = Zombie
	t.ExitCode = code
	t.Note.Lock()
	t.Note.Alive = false
	t.Note.Unlock()
	kids := make([]*Task_t, 0, len(t.children))
	for _, c := range t.children {
		kids = append(kids, c)
	}
	t.children = make(map[defs.Tid_t]*Task_t)
	t.mu.Unlock()

	initTask, ok := Get(defs.InitTid)
	for _, c := range kids {
		c.mu.Lock()
		c.Parent = initTask
		c.mu.Unlock()
		if ok {
			initTask.AddChild(c)
		}
	}
	close(t.waitCh)
}
