package defs

// Tid_t, Pid_t, and PGid_t are the scheduling-unit identifiers described in
// §3. A Pid_t is always the Tid_t of the thread-group leader; a PGid_t is
// always the Tid_t of the process-group leader. Keeping all three as the
// same underlying type mirrors the teacher's single-namespace id space
// (tinfo.Tnote_t keys on Tid_t alone) and matches the source kernel's
// `pub type Pid = Tid` aliasing.
type Tid_t int
type Pid_t = Tid_t
type PGid_t = Tid_t

// NoTid is never a valid allocated id; it is used as a "no value" sentinel
// (e.g. a task with no parent, or a lookup miss) instead of a pointer nil
// check, matching the zero-value-is-invalid discipline the teacher uses for
// Pa_t(0).
const NoTid Tid_t = 0

// InitTid is the tid/pid of the init process, always the first id the
// allocator hands out.
const InitTid Tid_t = 1
