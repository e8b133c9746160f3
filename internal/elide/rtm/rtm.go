// Package rtm implements htm.Unit with Intel Restricted Transactional
// Memory (XBEGIN/XEND/XABORT).
//
// Only amd64 builds without the purego tag carry the instructions. On every
// other platform Supported reports false and New returns an error.
//
// Go-specific caveats:
//
//   - Anything that enters the runtime scheduler, makes a system call,
//     grows the goroutine stack or takes a signal aborts the transaction.
//     Keep elided critical sections short and allocation free.
//   - Programs built with -race abort every transaction because the race
//     runtime is not transaction safe. Scopes then always fall back.
//   - An abort rolls back the goroutine stack along with heap memory and
//     resumes inside Unit.Begin, so the caller observes Begin returning a
//     second time with an abort status.
package rtm

import (
	"github.com/cockroachdb/errors"
	"github.com/klauspost/cpuid/v2"

	"github.com/kolkov/lockelide/internal/elide/htm"
)

// ErrUnsupported is returned by New when the CPU or the build cannot run
// RTM transactions.
var ErrUnsupported = errors.New("rtm: restricted transactional memory is not supported")

// Unit drives RTM instructions on the current processor.
//
// The zero value is ready to use, but callers should obtain a Unit from New
// so that missing hardware support is reported instead of faulting with an
// invalid opcode.
type Unit struct{}

var (
	_ htm.Unit   = Unit{}
	_ htm.Tester = Unit{}
)

// New returns an RTM unit, or ErrUnsupported.
func New() (Unit, error) {
	if !Supported() {
		return Unit{}, errors.WithDetailf(ErrUnsupported,
			"arch support: %t, cpu: %s", archSupported, cpuid.CPU.BrandName)
	}
	return Unit{}, nil
}

// Supported reports whether RTM transactions can be started.
func Supported() bool {
	return archSupported && cpuid.CPU.Supports(cpuid.RTM)
}

// InTransaction implements htm.Tester. It reports whether the calling
// goroutine is executing inside an RTM transaction.
func (Unit) InTransaction() bool {
	return Supported() && xtest()
}

// Begin implements htm.Unit.
func (Unit) Begin() htm.Status {
	return htm.Status(xbegin())
}

// Abort implements htm.Unit.
func (Unit) Abort(code uint8) {
	xabort(code)
}

// End implements htm.Unit.
func (Unit) End() {
	xend()
}
