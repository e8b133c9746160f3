// Package htm describes the hardware transactional memory facility that
// lock elision scopes are built on.
//
// The package does not execute transactions itself. It defines:
//
//   - Status: the abort-status word returned by a transaction begin, using
//     the Intel RTM layout (the value of EAX after XBEGIN).
//   - Unit: the begin/abort/end capability a scope drives.
//   - Unsupported: a Unit for machines without transactional memory. Every
//     Begin reports a non-retryable abort, so scopes go straight to their
//     fallback lock.
//
// Status Layout:
//
//	0xFFFFFFFF        transaction started
//	bit 0             explicit abort (XABORT)
//	bit 1             retry may succeed
//	bit 2             data conflict with another processor
//	bit 3             internal buffer overflow (capacity)
//	bit 4             debug breakpoint hit
//	bit 5             abort happened in a nested transaction
//	bits 24-31        XABORT immediate (valid only with bit 0)
//
// Control Flow:
//
// On real hardware an abort never returns from Abort or End. Execution
// resumes at the Begin call site with the abort status and all memory
// written inside the transaction rolled back. Units that cannot unwind
// (software units used in tests) return normally from Abort; callers must
// handle both behaviours.
package htm
