package fallback

import (
	"sync/atomic"

	"github.com/cockroachdb/errors"
	"github.com/petermattis/goid"
	"golang.org/x/sys/cpu"
)

// Mutex is a mutual exclusion lock usable as an elision fallback.
//
// The held word sits alone on its cache line and is written only when the
// mutex is acquired or released, never by waiters. A transaction that read
// it as free is aborted by a real acquisition and nothing else.
//
// The zero value is an unlocked mutex. A Mutex must not be copied after
// first use.
type Mutex struct {
	_     noCopy
	mu    innerMutex
	owner atomic.Int64
	_     cpu.CacheLinePad
	held  atomic.Bool
	_     cpu.CacheLinePad
}

var _ Lock = (*Mutex)(nil)

// ownerTracking is false when goid.Get does not tell goroutines apart on
// this build. Mutex then records no owner and HeldByCurrent is always
// false.
var ownerTracking = distinctIDs(goid.Get)

// distinctIDs reports whether get returns different non-zero values on two
// goroutines.
func distinctIDs(get func() int64) bool {
	self := get()
	other := make(chan int64)
	go func() { other <- get() }()
	return self != 0 && self != <-other
}

// Lock acquires m, blocking until it is available.
func (m *Mutex) Lock() {
	m.mu.Lock()
	if ownerTracking {
		m.owner.Store(goid.Get())
	}
	m.held.Store(true)
}

// Unlock releases m. Unlocking an unlocked Mutex panics.
//
// Like sync.Mutex, a locked Mutex is not associated with a particular
// goroutine: one goroutine may lock it and another unlock it. The owner
// word is left stale on release; it is only meaningful while held is set.
func (m *Mutex) Unlock() {
	if !m.held.CompareAndSwap(true, false) {
		panic(errors.AssertionFailedf("fallback: unlock of unlocked mutex"))
	}
	m.mu.Unlock()
}

// IsLocked reports whether some goroutine holds m.
func (m *Mutex) IsLocked() bool {
	return m.held.Load()
}

// HeldByCurrent reports whether the calling goroutine acquired m and has not
// released it. It is used to catch re-entrant elision on the same lock,
// which would otherwise deadlock in the fallback path.
func (m *Mutex) HeldByCurrent() bool {
	return ownerTracking && m.held.Load() && m.owner.Load() == goid.Get()
}

// AssertHeld panics if m is not locked. It does not require the calling
// goroutine to be the holder.
func (m *Mutex) AssertHeld() {
	if !m.held.Load() {
		panic(errors.AssertionFailedf("fallback: mutex is not locked"))
	}
}
