package scope

import "github.com/kolkov/lockelide/internal/elide/htm"

// FallbackReason says why a scope took its fallback lock.
type FallbackReason string

const (
	// ReasonNotRetryable means an abort carried no retry hint.
	ReasonNotRetryable FallbackReason = "not_retryable"

	// ReasonExhausted means every attempt aborted.
	ReasonExhausted FallbackReason = "exhausted"
)

// Observer is notified of scope events. Implementations must be safe for
// concurrent use and must not block.
//
// Observers are never called while a transaction is active.
type Observer interface {
	// Aborted is called for every aborted attempt.
	Aborted(name string, status htm.Status)

	// Fenced is called after a contention fence completed.
	Fenced(name string)

	// Committed is called after a transactional scope committed.
	Committed(name string)

	// FellBack is called after a scope acquired its fallback lock.
	FellBack(name string, reason FallbackReason)
}

// NopObserver ignores all events.
type NopObserver struct{}

var _ Observer = NopObserver{}

func (NopObserver) Aborted(string, htm.Status) {}
func (NopObserver) Fenced(string) {}
func (NopObserver) Committed(string) {}
func (NopObserver) FellBack(string, FallbackReason) {}
