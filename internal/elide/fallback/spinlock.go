package fallback

import (
	"runtime"
	"sync/atomic"
)

// spinsBeforeYield is how many failed acquisition attempts a SpinLock makes
// before yielding the processor between attempts.
const spinsBeforeYield = 64

// SpinLock is a test-and-test-and-set spin lock.
//
// Waiters spin on a load and only attempt the compare-and-swap once the lock
// looks free. A waiter therefore never writes the lock word while it is
// held, and a transaction that read the word is only aborted by a real
// acquisition.
type SpinLock struct {
	_     noCopy
	state atomic.Uint32
}

var _ Lock = (*SpinLock)(nil)

// Lock busy-waits until the lock can be acquired.
func (l *SpinLock) Lock() {
	for spins := 0; ; spins++ {
		if l.state.Load() == 0 && l.state.CompareAndSwap(0, 1) {
			return
		}
		if spins >= spinsBeforeYield {
			runtime.Gosched()
		}
	}
}

// TryLock acquires the lock if it is free and reports whether it did.
func (l *SpinLock) TryLock() bool {
	return l.state.Load() == 0 && l.state.CompareAndSwap(0, 1)
}

// Unlock releases the lock. Calling Unlock while the lock is free has no
// effect.
func (l *SpinLock) Unlock() {
	l.state.Store(0)
}

// IsLocked reports whether the lock is held.
func (l *SpinLock) IsLocked() bool {
	return l.state.Load() != 0
}
