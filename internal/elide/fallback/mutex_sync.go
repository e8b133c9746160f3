//go:build !deadlock

package fallback

import "sync"

// DeadlockEnabled is true if the deadlock detector is enabled.
const DeadlockEnabled = false

type innerMutex = sync.Mutex
