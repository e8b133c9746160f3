// Package elide runs lock-protected critical sections as hardware
// transactions, falling back to the lock when a transaction cannot
// succeed.
//
// Lock elision lets goroutines that touch disjoint data inside the same
// critical section run in parallel. Each critical section is entered through
// a scope. A scope first tries a transaction that only reads the fallback
// lock. If the transaction aborts, the scope retries a bounded number of
// times and finally acquires the lock like an ordinary mutex.
//
// # Quick Start
//
//	var (
//		mu    elide.Mutex
//		cache = map[string]int{}
//	)
//
//	func lookup(k string) (v int) {
//		elide.Run(&mu, func(s *elide.Scope) {
//			v = cache[k]
//		})
//		return v
//	}
//
// Use an Elider per kind of critical section to get separate statistics and
// settings:
//
//	var lookups = elide.MustNew(elide.WithName("lookup"), elide.WithMaxRetries(5))
//
//	lookups.Run(&mu, func(s *elide.Scope) { ... })
//
// # Side Effects
//
// A transaction may run the critical section body several times, and its
// effects vanish if it aborts. Anything that must not be rolled back or
// repeated, such as logging, channel sends or I/O, belongs in a commit
// callback:
//
//	elide.Run(&mu, func(s *elide.Scope) {
//		cache[k] = v
//		s.OnCommit(func() { log.Printf("stored %s", k) })
//	})
//
// Callbacks run after the scope ends, in registration order, exactly once.
//
// # Hardware
//
// Transactions need Intel RTM on amd64. Without it, or with
// LOCKELIDE_DISABLE=true, every scope takes its fallback lock and the
// package behaves like the lock alone. [Available] reports which case
// applies.
//
// # Environment
//
//	LOCKELIDE_MAX_RETRIES   retries after the first attempt (default 3)
//	LOCKELIDE_ABORT_CODE    abort code reserved for lock contention (default 0xff)
//	LOCKELIDE_DISABLE       never start transactions
//
// # Statistics
//
// Scopes created through this package report to a shared registry. Read it
// with [Stats] or export it to Prometheus with [Collector]:
//
//	prometheus.MustRegister(elide.Collector())
package elide
