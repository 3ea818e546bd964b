package sched

// YieldFuture resolves on its second poll, waking itself immediately on
// the first. Grounded on original_source/kernel/src/task/schedule.rs's
// YieldFuture: the first Poll call records that it has been woken once
// and calls w.Wake() itself (landing it back on the normal band, since
// runnable.run sees wasWoken==true), giving every other ready task in the
// normal band a turn before this one resumes. No handler in this tree
// returns it: ksyscall's sched_yield completes on its first poll, and
// nanosleep(0) completes through timer.SleepFuture.
type YieldFuture struct {
	yielded bool
}

func (y *YieldFuture) Poll(w *Waker) Poll {
	if y.yielded {
		return Ready
	}
	y.yielded = true
	w.Wake()
	return Pending
}
