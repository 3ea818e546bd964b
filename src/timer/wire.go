package timer

import "sv39kernel/src/trap"

func init() {
	trap.TimerTick = func() {
		Global.Tick(Now())
	}
}
