// Package fallback provides the locks an elision scope falls back to.
//
// Every lock implements Lock: the usual Lock/Unlock pair plus IsLocked, a
// non-blocking query that a scope calls from inside a hardware transaction.
// IsLocked must only load memory. A store, or a load of a word that waiters
// write while the lock is free, would abort the transaction and defeat
// elision.
//
// The locks here track their state in a dedicated atomic word rather than
// exposing the private state of sync.Mutex. Mutex is the general-purpose
// choice; SpinLock and TicketLock suit very short critical sections. Wrap
// adapts any sync.Locker that can answer IsLocked by other means.
//
// Building with -tags deadlock replaces the mutex inside Mutex with
// github.com/sasha-s/go-deadlock.
package fallback
