package elide

import (
	"os"
	"sync"

	"github.com/cockroachdb/errors"
	"github.com/go-logr/logr"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/kolkov/lockelide/internal/elide/fallback"
	"github.com/kolkov/lockelide/internal/elide/htm"
	"github.com/kolkov/lockelide/internal/elide/rtm"
	"github.com/kolkov/lockelide/internal/elide/scope"
	"github.com/kolkov/lockelide/internal/elide/stats"
)

type (
	// Elider enters scopes with one configuration.
	Elider = scope.Elider
	// Scope is one entered critical section.
	Scope = scope.Scope
	// Option configures an Elider.
	Option = scope.Option
	// Callback runs after a scope exits.
	Callback = scope.Callback
	// Path is the way a scope entered its critical section.
	Path = scope.Path
	// FallbackReason says why a scope took its fallback lock.
	FallbackReason = scope.FallbackReason

	// Lock is a fallback lock that can report whether it is held.
	Lock = fallback.Lock
	// Mutex is a blocking fallback lock.
	Mutex = fallback.Mutex
	// SpinLock is a spinning fallback lock for very short sections.
	SpinLock = fallback.SpinLock
	// TicketLock is a fair spinning fallback lock.
	TicketLock = fallback.TicketLock

	// Snapshot holds the counters of one scope name.
	Snapshot = stats.Snapshot
)

// ErrDisabled is reported by Available when LOCKELIDE_DISABLE turned
// elision off.
var ErrDisabled = errors.New("elide: disabled by " + scope.EnvDisable)

var (
	registry = stats.NewRegistry()

	unit    htm.Unit = htm.Unsupported{}
	unitErr error

	envOpts []Option
	envErr  error

	defaultElider *Elider
)

func init() {
	if u, err := rtm.New(); err == nil {
		unit = u
	} else {
		unitErr = err
	}
	envOpts, envErr = envOptions(os.LookupEnv)
	defaultElider = MustNew()
}

// envOptions parses the LOCKELIDE_* variables and checks that they form a
// valid configuration. On error no option is returned.
func envOptions(lookup func(string) (string, bool)) ([]Option, error) {
	opts, err := scope.ConfigFromEnv(lookup)
	if err != nil {
		return nil, err
	}
	if _, err := scope.New(opts...); err != nil {
		return nil, errors.Wrap(err, "LOCKELIDE_* environment")
	}
	return opts, nil
}

// New returns an Elider using the hardware unit when available and
// reporting to the package registry. Settings from the environment apply
// first, opts override them.
func New(opts ...Option) (*Elider, error) {
	all := make([]Option, 0, 2+len(envOpts)+len(opts))
	all = append(all, scope.WithUnit(unit), scope.WithObserver(registry))
	all = append(all, envOpts...)
	all = append(all, opts...)
	return scope.New(all...)
}

// MustNew is like New but panics on an invalid configuration.
func MustNew(opts ...Option) *Elider {
	e, err := New(opts...)
	if err != nil {
		panic(err)
	}
	return e
}

// Enter enters a scope on l with the default Elider. The returned scope
// must be exited exactly once.
func Enter(l Lock) *Scope {
	return defaultElider.Enter(l)
}

// Run runs fn in a scope on l with the default Elider.
func Run(l Lock, fn func(s *Scope)) {
	defaultElider.Run(l, fn)
}

// Wrap adapts any sync.Locker to Lock. held must report whether the lock
// is held without blocking and without writing memory.
func Wrap(l sync.Locker, held func() bool) Lock {
	return fallback.Wrap(l, held)
}

// WithName labels scopes in logs and statistics.
func WithName(name string) Option { return scope.WithName(name) }

// WithMaxRetries sets the number of transaction retries after the first
// attempt.
func WithMaxRetries(n int) Option { return scope.WithMaxRetries(n) }

// WithAbortCode sets the abort code reserved for lock contention.
func WithAbortCode(code uint8) Option { return scope.WithAbortCode(code) }

// WithLogger sets the logger for fallback decisions and sampled aborts.
func WithLogger(l logr.Logger) Option { return scope.WithLogger(l) }

// WithLogSampleRate logs one in rate aborts.
func WithLogSampleRate(rate uint64) Option { return scope.WithLogSampleRate(rate) }

// WithoutElision makes every scope take its fallback lock.
func WithoutElision() Option { return scope.WithUnit(htm.Unsupported{}) }

// Available reports whether scopes created by this package can run
// transactions. The error says why not.
func Available() (bool, error) {
	if unitErr != nil {
		return false, unitErr
	}
	if _, ok := defaultElider.Config().Unit.(htm.Unsupported); ok {
		return false, ErrDisabled
	}
	return true, nil
}

// EnvError returns the error from parsing the LOCKELIDE_* environment
// variables. When it is not nil the environment is ignored.
func EnvError() error {
	return envErr
}

// Stats returns the counters of the scopes named name.
func Stats(name string) Snapshot {
	return registry.Snapshot(name)
}

// AllStats returns the counters of every scope name, sorted by name.
func AllStats() []Snapshot {
	return registry.Snapshots()
}

// ResetStats zeroes the package counters.
func ResetStats() {
	registry.Reset()
}

// Collector returns a Prometheus collector over the package counters.
func Collector() prometheus.Collector {
	return stats.NewCollector(registry)
}
