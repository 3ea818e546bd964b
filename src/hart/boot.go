package hart

import (
	"context"
	"sync/atomic"

	"golang.org/x/sync/errgroup"
)

// bootFlag is flipped by hart 0 once it has finished global bring-up
// (physical memory init, root page table, device discovery); the teacher's
// equivalent gate in biscuit is an unexported bool guarded by the boot
// hart alone, and secondary harts spin on it the same way apboot.go spins
// on the AP startup flag.
var bootFlag int32

// ReleaseSecondaries flips the boot flag, letting harts parked in
// WaitForBoot proceed to Register/idle.
func ReleaseSecondaries() {
	atomic.StoreInt32(&bootFlag, 1)
}

// WaitForBoot spins a secondary hart until hart 0 finishes global init.
func WaitForBoot() {
	for atomic.LoadInt32(&bootFlag) == 0 {
		// busy-wait; real hardware would use a WFI + SBI IPI wakeup, but the
		// boot flag write always comes from another hart on real hardware so
		// a pure poll loop here mirrors the teacher's apboot spin exactly.
	}
}

// BringUp registers n harts (including the boot hart) and runs bootHart on
// hart 0 while the remaining harts each block on WaitForBoot then run
// idleHart. Uses errgroup so that the first error returned by any hart is
// handed back to the caller once every hart's function has returned, the
// pattern the teacher reaches for instead of a bare sync.WaitGroup wherever
// bring-up can fail. The group's derived context is not passed to the
// harts, so an error on one hart does not stop the others, and a panic on
// a hart is not recovered.
func BringUp(ctx context.Context, n int, bootHart func(*State_t) error, idleHart func(*State_t) error) error {
	g, _ := errgroup.WithContext(ctx)
	for id := 0; id < n; id++ {
		id := id
		if id == 0 {
			g.Go(func() error {
				h := Register(0)
				err := bootHart(h)
				ReleaseSecondaries()
				return err
			})
			continue
		}
		g.Go(func() error {
			WaitForBoot()
			h := Register(id)
			return idleHart(h)
		})
	}
	return g.Wait()
}

// Idle runs the hart's portion of the shared executor run loop, parking in
// Wfi whenever the run queue empties, per §4.2's "harts with no runnable
// task park via wfi rather than spin".
func Idle(h *State_t, runOnce func() bool) {
	for {
		if !runOnce() {
			Wfi()
		}
	}
}
