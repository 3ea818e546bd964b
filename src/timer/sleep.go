package timer

import "sv39kernel/src/sched"

// SleepFuture parks until a deadline passes, the Go shape of
// original_source's TimeoutTaskFuture/ksleep (minus the "race against an
// inner future" generality -- nothing in this tree yet needs a
// cancel-on-whichever-finishes-first combinator, just a plain delay).
type SleepFuture struct {
	deadline uint64
	timer    *Timer
}

// Sleep returns a Future ready once Now() has reached deadline.
func Sleep(deadline uint64) *SleepFuture {
	return &SleepFuture{deadline: deadline}
}

func (s *SleepFuture) Poll(w *sched.Waker) sched.Poll {
	if Now() >= s.deadline {
		return sched.Ready
	}
	if s.timer == nil {
		s.timer = Global.Add(s.deadline, func() { w.Wake() })
	}
	return sched.Pending
}
