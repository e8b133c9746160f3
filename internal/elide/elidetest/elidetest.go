// Package elidetest provides software stand-ins for transactional memory
// and instrumented fallback locks, for testing code built on elision
// scopes without RTM hardware.
package elidetest

import (
	"fmt"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/kolkov/lockelide/internal/elide/fallback"
	"github.com/kolkov/lockelide/internal/elide/htm"
)

// Trace is a concurrency-safe event log shared by the units and locks of a
// test.
type Trace struct {
	mu     sync.Mutex
	events []string
}

// Add appends a formatted event. A nil Trace drops events.
func (t *Trace) Add(format string, args ...interface{}) {
	if t == nil {
		return
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	t.events = append(t.events, fmt.Sprintf(format, args...))
}

// Events returns a copy of the recorded events.
func (t *Trace) Events() []string {
	t.mu.Lock()
	defer t.mu.Unlock()
	return append([]string(nil), t.events...)
}

// String renders one event per line.
func (t *Trace) String() string {
	return strings.Join(t.Events(), "\n")
}

// ScriptedUnit is an htm.Unit whose Begin results come from a script.
// Once the script is exhausted Begin reports htm.Started.
//
// Abort returns to its caller, like any software unit.
type ScriptedUnit struct {
	mu     sync.Mutex
	script []htm.Status
	trace  *Trace
	active bool

	begins, aborts, ends int
	codes                []uint8
}

var (
	_ htm.Unit   = (*ScriptedUnit)(nil)
	_ htm.Tester = (*ScriptedUnit)(nil)
)

// NewScriptedUnit returns a unit replaying script. trace may be nil.
func NewScriptedUnit(trace *Trace, script ...htm.Status) *ScriptedUnit {
	return &ScriptedUnit{script: script, trace: trace}
}

// Begin implements htm.Unit.
func (u *ScriptedUnit) Begin() htm.Status {
	u.mu.Lock()
	defer u.mu.Unlock()
	if u.active {
		panic("elidetest: Begin while a transaction is active")
	}
	s := htm.Started
	if len(u.script) > 0 {
		s, u.script = u.script[0], u.script[1:]
	}
	u.begins++
	u.active = s.IsStarted()
	u.trace.Add("begin -> %s", s)
	return s
}

// Abort implements htm.Unit.
func (u *ScriptedUnit) Abort(code uint8) {
	u.mu.Lock()
	defer u.mu.Unlock()
	if !u.active {
		return
	}
	u.active = false
	u.aborts++
	u.codes = append(u.codes, code)
	u.trace.Add("abort code=%#x", code)
}

// End implements htm.Unit.
func (u *ScriptedUnit) End() {
	u.mu.Lock()
	defer u.mu.Unlock()
	if !u.active {
		panic("elidetest: End without an active transaction")
	}
	u.active = false
	u.ends++
	u.trace.Add("end")
}

// Counts returns the number of Begin, Abort and End calls so far. Aborts
// outside a transaction are not counted.
func (u *ScriptedUnit) Counts() (begins, aborts, ends int) {
	u.mu.Lock()
	defer u.mu.Unlock()
	return u.begins, u.aborts, u.ends
}

// AbortCodes returns the codes passed to counted Abort calls.
func (u *ScriptedUnit) AbortCodes() []uint8 {
	u.mu.Lock()
	defer u.mu.Unlock()
	return append([]uint8(nil), u.codes...)
}

// Active reports whether a started transaction has not been aborted or
// ended yet.
func (u *ScriptedUnit) Active() bool {
	u.mu.Lock()
	defer u.mu.Unlock()
	return u.active
}

// InTransaction implements htm.Tester.
func (u *ScriptedUnit) InTransaction() bool {
	return u.Active()
}

// CountingLock wraps a fallback.Lock and records its use.
//
// IsLocked answers from the held script while it lasts and from the
// wrapped lock afterwards, so tests can make a transaction observe a held
// lock without blocking the fence that follows.
type CountingLock struct {
	inner fallback.Lock
	trace *Trace

	mu      sync.Mutex
	held    []bool
	holders atomic.Int32
	max     atomic.Int32

	locks, unlocks, queries atomic.Int64
}

var _ fallback.Lock = (*CountingLock)(nil)

// NewCountingLock wraps inner. trace may be nil.
func NewCountingLock(trace *Trace, inner fallback.Lock, held ...bool) *CountingLock {
	return &CountingLock{inner: inner, trace: trace, held: held}
}

// Lock implements fallback.Lock.
func (l *CountingLock) Lock() {
	l.inner.Lock()
	n := l.holders.Add(1)
	for {
		m := l.max.Load()
		if n <= m || l.max.CompareAndSwap(m, n) {
			break
		}
	}
	l.locks.Add(1)
	l.trace.Add("lock")
}

// Unlock implements fallback.Lock.
func (l *CountingLock) Unlock() {
	l.holders.Add(-1)
	l.unlocks.Add(1)
	l.trace.Add("unlock")
	l.inner.Unlock()
}

// IsLocked implements fallback.Lock.
func (l *CountingLock) IsLocked() bool {
	l.queries.Add(1)
	l.mu.Lock()
	var held bool
	scripted := len(l.held) > 0
	if scripted {
		held, l.held = l.held[0], l.held[1:]
	}
	l.mu.Unlock()
	if !scripted {
		held = l.inner.IsLocked()
	}
	l.trace.Add("is-locked -> %t", held)
	return held
}

// Locks returns the number of Lock calls.
func (l *CountingLock) Locks() int64 { return l.locks.Load() }

// Unlocks returns the number of Unlock calls.
func (l *CountingLock) Unlocks() int64 { return l.unlocks.Load() }

// Queries returns the number of IsLocked calls.
func (l *CountingLock) Queries() int64 { return l.queries.Load() }

// MaxHolders returns the largest number of simultaneous holders seen. It
// is 1 for any working lock that was used at all.
func (l *CountingLock) MaxHolders() int32 { return l.max.Load() }
