package htm

import (
	"fmt"
	"strings"
)

// Status is the result of a transaction begin.
//
// A Status is either Started or an abort encoding. Abort encodings carry
// independently observable facts: whether the abort was explicit, the
// 8-bit explicit code, and the hardware's retry hint.
type Status uint32

// Status bits, following the Intel SDM description of XBEGIN.
const (
	// Started is returned by Begin when the transaction is active.
	Started Status = ^Status(0)

	// AbortExplicit is set when software aborted with XABORT.
	AbortExplicit Status = 1 << 0

	// AbortRetry is set when the hardware expects a retry may succeed.
	AbortRetry Status = 1 << 1

	// AbortConflict is set when another processor conflicted on memory.
	AbortConflict Status = 1 << 2

	// AbortCapacity is set when the transactional buffers overflowed.
	AbortCapacity Status = 1 << 3

	// AbortDebug is set when a debug breakpoint was hit.
	AbortDebug Status = 1 << 4

	// AbortNested is set when the abort happened in a nested transaction.
	AbortNested Status = 1 << 5

	codeShift = 24
)

// Explicit returns the status produced by an explicit abort with code.
//
// Explicit aborts do not carry the retry hint, matching what RTM
// hardware reports for XABORT.
func Explicit(code uint8) Status {
	return AbortExplicit | Status(code)<<codeShift
}

// Conflict returns the status of a data-conflict abort. retry selects
// whether the hardware hints that retrying may succeed.
func Conflict(retry bool) Status {
	s := AbortConflict
	if retry {
		s |= AbortRetry
	}
	return s
}

// Capacity returns the status of a buffer-overflow abort. Capacity aborts
// are never retry-hinted: the same transaction overflows again.
func Capacity() Status {
	return AbortCapacity
}

// IsStarted reports whether the transaction is active.
func (s Status) IsStarted() bool {
	return s == Started
}

// IsExplicit reports whether the abort was requested by software.
func (s Status) IsExplicit() bool {
	return !s.IsStarted() && s&AbortExplicit != 0
}

// Code returns the explicit abort code. It is meaningful only when
// IsExplicit is true and is zero otherwise.
func (s Status) Code() uint8 {
	if !s.IsExplicit() {
		return 0
	}
	return uint8(s >> codeShift)
}

// ShouldRetry reports the hardware retry hint.
func (s Status) ShouldRetry() bool {
	return !s.IsStarted() && s&AbortRetry != 0
}

// IsConflict reports whether the abort was caused by a memory conflict.
func (s Status) IsConflict() bool {
	return !s.IsStarted() && s&AbortConflict != 0
}

// IsCapacity reports whether the abort was caused by buffer overflow.
func (s Status) IsCapacity() bool {
	return !s.IsStarted() && s&AbortCapacity != 0
}

// Cause returns a short label for the dominant abort cause. It is used as
// a metric label, so the set of values is closed.
func (s Status) Cause() string {
	switch {
	case s.IsStarted():
		return "none"
	case s.IsExplicit():
		return "explicit"
	case s.IsConflict():
		return "conflict"
	case s.IsCapacity():
		return "capacity"
	case s&AbortDebug != 0:
		return "debug"
	case s&AbortNested != 0:
		return "nested"
	default:
		return "other"
	}
}

// String renders the status for logs and test traces, for example
// "started", "explicit(code=0xff)" or "conflict+retry".
func (s Status) String() string {
	if s.IsStarted() {
		return "started"
	}
	var parts []string
	if s.IsExplicit() {
		parts = append(parts, fmt.Sprintf("explicit(code=%#x)", s.Code()))
	}
	if s&AbortConflict != 0 {
		parts = append(parts, "conflict")
	}
	if s&AbortCapacity != 0 {
		parts = append(parts, "capacity")
	}
	if s&AbortDebug != 0 {
		parts = append(parts, "debug")
	}
	if s&AbortNested != 0 {
		parts = append(parts, "nested")
	}
	if s&AbortRetry != 0 {
		parts = append(parts, "retry")
	}
	if len(parts) == 0 {
		return "abort"
	}
	return strings.Join(parts, "+")
}
