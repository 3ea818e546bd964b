package task

import (
	"sv39kernel/src/console"
	"sv39kernel/src/hart"
)

// init wires console's [H,P,T] log-line context to this hart's
// currently-scheduled task, the wiring console.SetContextFunc's doc
// comment anticipates -- kept in package task rather than console
// itself since only this package can see both hart.State_t.Current and
// Task_t's Pid/Tid fields without an import cycle.
func init() {
	console.SetContextFunc(func() console.Ctx {
		id, ok := hart.TryCurrentID()
		if !ok {
			return console.Ctx{}
		}
		st := hart.Get(id)
		if st == nil {
			return console.Ctx{Hart: id}
		}
		cur := st.Current()
		if cur == nil {
			return console.Ctx{Hart: id}
		}
		t, ok := cur.(*Task_t)
		if !ok {
			return console.Ctx{Hart: id, Tid: cur.Tid()}
		}
		return console.Ctx{Hart: id, Pid: int(t.Pid), Tid: t.Tid()}
	})
}
