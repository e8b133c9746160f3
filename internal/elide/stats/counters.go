package stats

import (
	"sync/atomic"

	"github.com/kolkov/lockelide/internal/elide/htm"
	"github.com/kolkov/lockelide/internal/elide/scope"
)

// Causes lists the abort causes counted separately, as returned by
// htm.Status.Cause for aborted attempts.
var Causes = [...]string{"explicit", "conflict", "capacity", "debug", "nested", "other"}

// Reasons lists the fallback reasons counted separately.
var Reasons = [...]scope.FallbackReason{scope.ReasonNotRetryable, scope.ReasonExhausted}

func causeIndex(cause string) int {
	for i, c := range Causes {
		if c == cause {
			return i
		}
	}
	return len(Causes) - 1
}

func reasonIndex(r scope.FallbackReason) int {
	for i, v := range Reasons {
		if v == r {
			return i
		}
	}
	return len(Reasons) - 1
}

// Counters holds the event counts of one scope name.
//
// Thread Safety: All methods are safe for concurrent calls.
type Counters struct {
	commits   atomic.Uint64
	fences    atomic.Uint64
	aborts    [len(Causes)]atomic.Uint64
	fallbacks [len(Reasons)]atomic.Uint64
}

// RecordAbort counts an aborted attempt by cause.
func (c *Counters) RecordAbort(s htm.Status) {
	c.aborts[causeIndex(s.Cause())].Add(1)
}

// RecordFence counts a completed contention fence.
func (c *Counters) RecordFence() {
	c.fences.Add(1)
}

// RecordCommit counts a committed transaction.
func (c *Counters) RecordCommit() {
	c.commits.Add(1)
}

// RecordFallback counts a fallback lock acquisition by reason.
func (c *Counters) RecordFallback(r scope.FallbackReason) {
	c.fallbacks[reasonIndex(r)].Add(1)
}

// Snapshot is a point-in-time copy of Counters.
type Snapshot struct {
	Name      string
	Commits   uint64
	Fences    uint64
	Aborts    map[string]uint64
	Fallbacks map[scope.FallbackReason]uint64
}

// Snapshot returns a copy of the counters. Counts taken concurrently with
// updates are individually exact but not mutually consistent.
func (c *Counters) Snapshot(name string) Snapshot {
	s := Snapshot{
		Name:      name,
		Commits:   c.commits.Load(),
		Fences:    c.fences.Load(),
		Aborts:    make(map[string]uint64, len(Causes)),
		Fallbacks: make(map[scope.FallbackReason]uint64, len(Reasons)),
	}
	for i, cause := range Causes {
		s.Aborts[cause] = c.aborts[i].Load()
	}
	for i, r := range Reasons {
		s.Fallbacks[r] = c.fallbacks[i].Load()
	}
	return s
}

func (c *Counters) reset() {
	c.commits.Store(0)
	c.fences.Store(0)
	for i := range c.aborts {
		c.aborts[i].Store(0)
	}
	for i := range c.fallbacks {
		c.fallbacks[i].Store(0)
	}
}

// TotalAborts returns the number of aborted attempts of any cause.
func (s Snapshot) TotalAborts() uint64 {
	var n uint64
	for _, v := range s.Aborts {
		n += v
	}
	return n
}

// TotalFallbacks returns the number of scopes that took the fallback lock.
func (s Snapshot) TotalFallbacks() uint64 {
	var n uint64
	for _, v := range s.Fallbacks {
		n += v
	}
	return n
}

// Scopes returns the number of exited scopes, whichever path they took.
func (s Snapshot) Scopes() uint64 {
	return s.Commits + s.TotalFallbacks()
}

// ElisionRate returns the fraction of scopes that committed
// transactionally, or 0 when no scope ran.
func (s Snapshot) ElisionRate() float64 {
	n := s.Scopes()
	if n == 0 {
		return 0
	}
	return float64(s.Commits) / float64(n)
}
