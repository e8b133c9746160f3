//go:build amd64 && !purego

package rtm

const archSupported = true

// xbegin starts a transaction. It returns 0xFFFFFFFF when the transaction
// started, or the abort status when a transaction started here aborted.
func xbegin() uint32

// xend commits the active transaction.
func xend()

// xabort aborts the active transaction with code. It returns normally
// when no transaction is active.
func xabort(code uint8)

// xtest reports whether a transaction is active.
func xtest() bool
