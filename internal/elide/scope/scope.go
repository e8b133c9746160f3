package scope

import (
	"github.com/cockroachdb/errors"

	"github.com/kolkov/lockelide/internal/elide/fallback"
	"github.com/kolkov/lockelide/internal/elide/htm"
)

// Path is the way a scope entered its critical section.
type Path uint8

const (
	pathNone Path = iota

	// PathTransactional means the critical section runs inside a hardware
	// transaction and Exit commits it.
	PathTransactional

	// PathFallback means the fallback lock is held and Exit releases it.
	PathFallback
)

func (p Path) String() string {
	switch p {
	case PathTransactional:
		return "transactional"
	case PathFallback:
		return "fallback"
	default:
		return "none"
	}
}

// Callback is an action run after a scope exits. A callback returns
// nothing and must not panic: it runs while the critical section is being
// torn down, where nothing can be retried.
type Callback func()

// ownerChecker is implemented by fallback locks that know their holder.
type ownerChecker interface {
	HeldByCurrent() bool
}

// Elider holds a validated Config and enters scopes with it. An Elider is
// safe for concurrent use; create one per kind of critical section and
// share it.
type Elider struct {
	cfg     Config
	sampler *Sampler
}

// New returns an Elider configured by opts.
func New(opts ...Option) (*Elider, error) {
	var cfg Config
	for _, o := range opts {
		o(&cfg)
	}
	cfg = cfg.withDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &Elider{
		cfg:     cfg,
		sampler: NewSampler(cfg.LogSampleRate),
	}, nil
}

// MustNew is like New but panics on an invalid configuration.
func MustNew(opts ...Option) *Elider {
	e, err := New(opts...)
	if err != nil {
		panic(err)
	}
	return e
}

// Config returns the effective configuration.
func (e *Elider) Config() Config {
	return e.cfg
}

// Sampler returns the sampler that selects logged aborts.
func (e *Elider) Sampler() *Sampler {
	return e.sampler
}

// Scope is one attempt to run a critical section. It is created by
// Elider.Enter and must be finished with exactly one call to Exit.
//
// A Scope must not be copied and is not safe for concurrent use: it belongs
// to the goroutine that entered it.
type Scope struct {
	_         noCopy
	e         *Elider
	lock      fallback.Lock
	path      Path
	attempts  int
	callbacks []Callback
	exited    bool
}

// noCopy may be embedded into structs which must not be copied after first
// use. See https://golang.org/issues/8005#issuecomment-190753527.
type noCopy struct{}

// Lock is a no-op used by -copylocks checker from `go vet`.
func (*noCopy) Lock()   {}
func (*noCopy) Unlock() {}

// Enter runs the entry protocol for a critical section protected by l and
// returns the live scope. On return the caller is either inside a hardware
// transaction that read l as free, or holds l.
//
// l must outlive the scope. Entering a scope on a lock the calling
// goroutine already holds panics when the lock can tell (fallback.Mutex).
func (e *Elider) Enter(l fallback.Lock) *Scope {
	if oc, ok := l.(ownerChecker); ok && oc.HeldByCurrent() {
		panic(errors.AssertionFailedf(
			"scope %q: entering a scope on a fallback lock held by the current goroutine", e.cfg.Name))
	}
	s := &Scope{e: e, lock: l}
	s.enter()
	return s
}

// Run enters a scope on l, calls fn and exits the scope, also when fn
// panics.
func (e *Elider) Run(l fallback.Lock, fn func(s *Scope)) {
	s := e.Enter(l)
	defer s.Exit()
	fn(s)
}

func (s *Scope) enter() {
	cfg := &s.e.cfg
	reason := ReasonExhausted
	var status htm.Status

	for attempt := 0; attempt <= cfg.MaxRetries; attempt++ {
		s.attempts = attempt + 1
		status = cfg.Unit.Begin()
		if status.IsStarted() {
			if !s.lock.IsLocked() {
				s.path = PathTransactional
				return
			}
			// The lock is held: somebody runs the critical section under
			// it. Hardware resumes at Begin; software units return here.
			cfg.Unit.Abort(cfg.AbortCode)
			status = htm.Explicit(cfg.AbortCode)
		}

		s.aborted(status, attempt)
		if status.IsExplicit() && status.Code() == cfg.AbortCode {
			// Fence: wait for the holder without running the critical
			// section under the lock ourselves.
			s.lock.Lock()
			s.lock.Unlock()
			cfg.Observer.Fenced(cfg.Name)
			continue
		}
		if !status.ShouldRetry() {
			reason = ReasonNotRetryable
			break
		}
	}

	s.lock.Lock()
	s.path = PathFallback
	cfg.Observer.FellBack(cfg.Name, reason)
	if log := cfg.Logger.V(1); log.Enabled() {
		log.Info("took fallback lock",
			"scope", cfg.Name, "reason", string(reason),
			"attempts", s.attempts, "status", status.String())
	}
}

func (s *Scope) aborted(status htm.Status, attempt int) {
	cfg := &s.e.cfg
	cfg.Observer.Aborted(cfg.Name, status)
	if log := cfg.Logger.V(2); log.Enabled() && s.e.sampler.ShouldSample() {
		log.Info("transaction aborted",
			"scope", cfg.Name, "attempt", attempt, "status", status.String())
	}
}

// OnCommit registers cb to run after the scope exits. Callbacks run once
// each, in registration order, whichever path the scope took.
func (s *Scope) OnCommit(cb Callback) {
	if s.exited {
		panic(errors.AssertionFailedf("scope %q: OnCommit after Exit", s.e.cfg.Name))
	}
	s.callbacks = append(s.callbacks, cb)
}

// Exit ends the critical section: it commits the transaction or releases
// the fallback lock, then runs the commit callbacks. Exit must be called
// exactly once.
//
// A transaction that aborts at commit resumes at Begin inside Enter with
// its effects discarded, and the critical section runs again. Exit does not
// compensate for anything.
func (s *Scope) Exit() {
	cfg := &s.e.cfg
	if s.exited {
		panic(errors.AssertionFailedf("scope %q: Exit called twice", cfg.Name))
	}
	s.exited = true

	switch s.path {
	case PathFallback:
		s.lock.Unlock()
	case PathTransactional:
		if t, ok := cfg.Unit.(htm.Tester); ok && !t.InTransaction() {
			panic(errors.AssertionFailedf(
				"scope %q: transactional exit outside of a transaction", cfg.Name))
		}
		cfg.Unit.End()
		cfg.Observer.Committed(cfg.Name)
	default:
		panic(errors.AssertionFailedf("scope %q: Exit on a scope that was never entered", cfg.Name))
	}

	cbs := s.callbacks
	s.callbacks = nil
	for i, cb := range cbs {
		s.runCallback(i, cb)
	}
}

func (s *Scope) runCallback(i int, cb Callback) {
	defer func() {
		if r := recover(); r != nil {
			err, ok := r.(error)
			if !ok {
				err = errors.Newf("%v", r)
			}
			err = errors.NewAssertionErrorWithWrappedErrf(err,
				"scope %q: commit callback %d panicked", s.e.cfg.Name, i)
			s.e.cfg.Logger.Error(err, "commit callback failed")
			panic(err)
		}
	}()
	cb()
}
