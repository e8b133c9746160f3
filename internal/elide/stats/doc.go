// Package stats counts what elision scopes do.
//
// A Registry keeps one set of Counters per scope name and implements
// scope.Observer, so it can be passed to scope.WithObserver directly:
//
//	reg := stats.NewRegistry()
//	e := scope.MustNew(scope.WithName("cache"), scope.WithObserver(reg))
//	...
//	snap := reg.Snapshot("cache")
//	fmt.Println(snap.Commits, snap.TotalFallbacks(), snap.ElisionRate())
//
// Counters are updated with atomic adds outside of any transaction. A
// Collector exports a Registry to Prometheus.
package stats
