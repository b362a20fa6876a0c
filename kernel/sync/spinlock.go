// Package sync provides the mutual-exclusion primitive that guards shared
// kernel state once interrupt delivery is enabled.
package sync

import "sync/atomic"

var (
	// TODO: point yieldFn at the scheduler yield call once one exists.
	yieldFn func()
)

// spinsBeforeYielding controls how many acquisition attempts are made before
// the lock yields (when a yield function is registered).
const spinsBeforeYielding = 1024

// Spinlock implements a lock where each task trying to acquire it busy-waits
// till the lock becomes available.
type Spinlock struct {
	state uint32
}

// Acquire blocks until the lock can be acquired by the currently active task.
// Any attempt to re-acquire a lock already held by the current task will
// cause a deadlock.
func (l *Spinlock) Acquire() {
	var attempt uint32
	for !l.TryToAcquire() {
		attempt++
		if attempt >= spinsBeforeYielding && yieldFn != nil {
			attempt = 0
			yieldFn()
		}
	}
}

// TryToAcquire attempts to acquire the lock and returns true if the lock
// could be acquired or false otherwise.
func (l *Spinlock) TryToAcquire() bool {
	return atomic.SwapUint32(&l.state, 1) == 0
}

// Release relinquishes a held lock allowing other tasks to acquire it.
// Calling Release while the lock is free has no effect.
func (l *Spinlock) Release() {
	atomic.StoreUint32(&l.state, 0)
}
