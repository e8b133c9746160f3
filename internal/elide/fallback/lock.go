package fallback

import "sync"

// Lock is a mutual exclusion lock that can report, without blocking and
// without writing memory, whether it is currently held.
type Lock interface {
	sync.Locker
	IsLocked() bool
}

// noCopy may be embedded into structs which must not be copied after first
// use. See https://golang.org/issues/8005#issuecomment-190753527.
type noCopy struct{}

// Lock is a no-op used by -copylocks checker from `go vet`.
func (*noCopy) Lock()   {}
func (*noCopy) Unlock() {}

// Wrap adapts a sync.Locker to Lock. held must follow the same rules as
// IsLocked: no blocking, no stores.
func Wrap(l sync.Locker, held func() bool) Lock {
	return &wrapped{Locker: l, held: held}
}

type wrapped struct {
	sync.Locker
	held func() bool
}

func (w *wrapped) IsLocked() bool {
	return w.held()
}
