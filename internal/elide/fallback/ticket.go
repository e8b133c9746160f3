package fallback

import (
	"runtime"
	"sync/atomic"
)

// TicketLock is a fair, FIFO spin lock.
//
// Lock takes a ticket and waits until it is being served; Unlock serves the
// next ticket. The lock is held whenever a ticket has been issued but not
// yet fully served.
//
// Taking a ticket writes next, so a waiter arriving while a transaction has
// read the lock aborts that transaction. Waiters only arrive when the lock
// is about to be held, so this costs no extra aborts in practice.
type TicketLock struct {
	_       noCopy
	next    atomic.Uint32
	serving atomic.Uint32
}

var _ Lock = (*TicketLock)(nil)

// Lock acquires the lock. Blocks until the lock is available.
func (l *TicketLock) Lock() {
	my := l.next.Add(1) - 1
	for spins := 0; l.serving.Load() != my; spins++ {
		if spins >= spinsBeforeYield {
			runtime.Gosched()
		}
	}
}

// Unlock releases the lock.
func (l *TicketLock) Unlock() {
	l.serving.Add(1)
}

// IsLocked reports whether any ticket is outstanding.
func (l *TicketLock) IsLocked() bool {
	return l.next.Load() != l.serving.Load()
}
