// Package scope implements lock elision scopes.
//
// A Scope is one attempt to run a critical section inside a hardware
// transaction instead of under its lock. Entering a scope runs the entry
// protocol; exiting it commits the transaction or releases the lock, and
// then fires the commit callbacks registered while the scope was live.
//
// # Entry Protocol
//
// For attempt 0..MaxRetries:
//
//  1. Begin a transaction.
//  2. If it started, read the fallback lock's IsLocked. A free lock means
//     the transaction is the critical section: return on the
//     transactional path. A held lock means some goroutine runs the
//     critical section non-transactionally, so abort explicitly with
//     AbortCode.
//  3. If it aborted with AbortCode, wait for the holder by locking and
//     immediately unlocking the fallback lock (the fence), then retry.
//     Otherwise retry only if the hardware hints a retry may succeed.
//
// When the attempts run out, or an abort is not worth retrying, acquire the
// fallback lock and return on the fallback path.
//
// Reading the lock inside the transaction puts it in the transaction's read
// set. Any goroutine that acquires the lock afterwards aborts every
// transaction that read it, so a transactional critical section never
// commits while the lock is held.
//
// # Exit Protocol
//
// Exit releases the fallback lock if entry ended on the fallback path, or
// commits the transaction if it ended on the transactional path, never both.
// The path is recorded by entry and never re-derived from the lock. Commit
// callbacks then run once each, in registration order.
//
// # Usage
//
//	e := scope.MustNew(scope.WithName("accounts"))
//	var mu fallback.Mutex
//
//	s := e.Enter(&mu)
//	balance[from] -= amount
//	balance[to] += amount
//	s.OnCommit(func() { notify(from, to) })
//	s.Exit()
//
// or, equivalently, e.Run(&mu, func(s *scope.Scope) { ... }).
//
// Nothing between a started Begin and Exit may log, allocate heavily, make
// system calls or block: on hardware any of these aborts the transaction,
// and after MaxRetries aborts the critical section runs under the lock.
package scope
