package elidetest

import (
	"sync"
	"sync/atomic"

	"github.com/kolkov/lockelide/internal/elide/fallback"
	"github.com/kolkov/lockelide/internal/elide/htm"
)

// Emulator is a software htm.Unit that gives transactions isolation by
// running them one at a time.
//
// Hardware aborts a transaction whose read set is written, so a fallback
// lock acquired while a transaction that read it is in flight dooms that
// transaction. The emulator cannot abort a running goroutine. Instead,
// locks returned by Guard wait for the in-flight transaction to finish
// after they are acquired. Either way, a transactional critical section
// and a fallback critical section never overlap.
//
// Set ConflictEvery to make every Nth Begin report a retryable conflict
// abort without starting.
type Emulator struct {
	// ConflictEvery injects a retryable conflict abort on every Nth Begin.
	// Zero disables injection.
	ConflictEvery uint64

	mu sync.Mutex

	begins, started, commits, aborts atomic.Uint64
}

var _ htm.Unit = (*Emulator)(nil)

// Begin implements htm.Unit.
func (e *Emulator) Begin() htm.Status {
	n := e.begins.Add(1)
	if e.ConflictEvery > 0 && n%e.ConflictEvery == 0 {
		return htm.Conflict(true)
	}
	e.mu.Lock()
	e.started.Add(1)
	return htm.Started
}

// Abort implements htm.Unit. The transaction is dropped and Abort returns.
func (e *Emulator) Abort(uint8) {
	e.aborts.Add(1)
	e.mu.Unlock()
}

// End implements htm.Unit.
func (e *Emulator) End() {
	e.commits.Add(1)
	e.mu.Unlock()
}

// Guard returns l wrapped so that acquiring it waits for the in-flight
// transaction, if any.
func (e *Emulator) Guard(l fallback.Lock) fallback.Lock {
	return &guardedLock{inner: l, e: e}
}

// EmulatorStats is a snapshot of emulator counters.
type EmulatorStats struct {
	Begins, Started, Commits, Aborts uint64
}

// Stats returns the emulator counters.
func (e *Emulator) Stats() EmulatorStats {
	return EmulatorStats{
		Begins:  e.begins.Load(),
		Started: e.started.Load(),
		Commits: e.commits.Load(),
		Aborts:  e.aborts.Load(),
	}
}

type guardedLock struct {
	inner fallback.Lock
	e     *Emulator
}

func (g *guardedLock) Lock() {
	g.inner.Lock()
	//lint:ignore SA2001 empty critical section drains the in-flight transaction
	g.e.mu.Lock()
	g.e.mu.Unlock()
}

func (g *guardedLock) Unlock() { g.inner.Unlock() }

func (g *guardedLock) IsLocked() bool { return g.inner.IsLocked() }
