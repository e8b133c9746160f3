package stats

import (
	"strings"
	"sync"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"

	"github.com/kolkov/lockelide/internal/elide/elidetest"
	"github.com/kolkov/lockelide/internal/elide/fallback"
	"github.com/kolkov/lockelide/internal/elide/htm"
	"github.com/kolkov/lockelide/internal/elide/scope"
)

func TestGetOrCreateSameCounters(t *testing.T) {
	reg := NewRegistry()
	const goroutines = 50

	results := make(chan *Counters, goroutines)
	for i := 0; i < goroutines; i++ {
		go func() { results <- reg.GetOrCreate("a") }()
	}
	first := <-results
	for i := 1; i < goroutines; i++ {
		require.Same(t, first, <-results)
	}
	require.NotSame(t, first, reg.GetOrCreate("b"))
}

func TestRegistryObservesScopes(t *testing.T) {
	reg := NewRegistry()
	unit := elidetest.NewScriptedUnit(nil,
		// First scope: contention fence, conflict, then commit.
		htm.Explicit(scope.DefaultAbortCode), htm.Conflict(true), htm.Started,
		// Second scope: capacity abort, falls back.
		htm.Capacity(),
	)
	e := scope.MustNew(scope.WithName("cache"), scope.WithUnit(unit), scope.WithObserver(reg))
	lock := &fallback.Mutex{}

	e.Run(lock, func(*scope.Scope) {})
	e.Run(lock, func(*scope.Scope) {})

	s := reg.Snapshot("cache")
	require.Equal(t, "cache", s.Name)
	require.Equal(t, uint64(1), s.Commits)
	require.Equal(t, uint64(1), s.Fences)
	require.Equal(t, uint64(1), s.Aborts["explicit"])
	require.Equal(t, uint64(1), s.Aborts["conflict"])
	require.Equal(t, uint64(1), s.Aborts["capacity"])
	require.Equal(t, uint64(3), s.TotalAborts())
	require.Equal(t, uint64(1), s.Fallbacks[scope.ReasonNotRetryable])
	require.Equal(t, uint64(1), s.TotalFallbacks())
	require.Equal(t, uint64(2), s.Scopes())
	require.InDelta(t, 0.5, s.ElisionRate(), 1e-9)
}

func TestUnsupportedAbortCountsAsOther(t *testing.T) {
	reg := NewRegistry()
	e := scope.MustNew(scope.WithName("plain"), scope.WithObserver(reg))
	e.Run(&fallback.SpinLock{}, func(*scope.Scope) {})

	s := reg.Snapshot("plain")
	require.Equal(t, uint64(1), s.Aborts["other"])
	require.Equal(t, uint64(1), s.Fallbacks[scope.ReasonNotRetryable])
	require.Zero(t, s.ElisionRate())
}

func TestSnapshotsAndReset(t *testing.T) {
	reg := NewRegistry()
	require.Empty(t, reg.Snapshots())
	require.Zero(t, reg.Snapshot("missing").Scopes())

	reg.Committed("b")
	reg.Committed("a")
	reg.FellBack("a", scope.ReasonExhausted)

	snaps := reg.Snapshots()
	require.Len(t, snaps, 2)
	require.Equal(t, "a", snaps[0].Name)
	require.Equal(t, "b", snaps[1].Name)
	require.Equal(t, uint64(1), snaps[0].Fallbacks[scope.ReasonExhausted])

	c := reg.GetOrCreate("a")
	reg.Reset()
	require.Zero(t, reg.Snapshot("a").Scopes())
	c.RecordCommit()
	require.Equal(t, uint64(1), reg.Snapshot("a").Commits)
}

func TestConcurrentRecording(t *testing.T) {
	reg := NewRegistry()
	const goroutines, iterations = 8, 1000

	var wg sync.WaitGroup
	for g := 0; g < goroutines; g++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < iterations; i++ {
				reg.Committed("hot")
				reg.Aborted("hot", htm.Conflict(true))
			}
		}()
	}
	wg.Wait()

	s := reg.Snapshot("hot")
	require.Equal(t, uint64(goroutines*iterations), s.Commits)
	require.Equal(t, uint64(goroutines*iterations), s.Aborts["conflict"])
}

func TestCollector(t *testing.T) {
	reg := NewRegistry()
	reg.Committed("s")
	reg.Committed("s")
	reg.Fenced("s")
	reg.Aborted("s", htm.Conflict(true))
	reg.FellBack("s", scope.ReasonExhausted)

	c := NewCollector(reg)
	require.NoError(t, prometheus.NewPedanticRegistry().Register(c))

	const expected = `
# HELP lockelide_commits_total Transactions committed by elision scopes.
# TYPE lockelide_commits_total counter
lockelide_commits_total{scope="s"} 2
# HELP lockelide_fallbacks_total Scopes that acquired their fallback lock, by reason.
# TYPE lockelide_fallbacks_total counter
lockelide_fallbacks_total{reason="exhausted",scope="s"} 1
lockelide_fallbacks_total{reason="not_retryable",scope="s"} 0
# HELP lockelide_fence_waits_total Waits for a held fallback lock after a contention abort.
# TYPE lockelide_fence_waits_total counter
lockelide_fence_waits_total{scope="s"} 1
`
	require.NoError(t, testutil.CollectAndCompare(c, strings.NewReader(expected),
		"lockelide_commits_total", "lockelide_fallbacks_total", "lockelide_fence_waits_total"))
	require.Equal(t, len(Causes), testutil.CollectAndCount(c, "lockelide_aborts_total"))
}
