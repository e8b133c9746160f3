package htm

// Unit is a hardware transactional memory facility.
//
// Begin starts a transaction and returns Started, or returns the abort
// status when a transaction started by this call was aborted. Abort
// explicitly aborts the active transaction with code. End commits the
// active transaction.
//
// Hardware units never return from Abort or from a failing End while a
// transaction is active: control resumes at Begin. Software units may
// return from Abort; see package documentation.
type Unit interface {
	Begin() Status
	Abort(code uint8)
	End()
}

// Tester is implemented by units that can tell whether the calling
// goroutine is executing inside one of their transactions.
type Tester interface {
	InTransaction() bool
}

// Unsupported is the Unit used when no transactional memory is available.
// Begin always reports an abort without the retry hint, so a scope using
// it takes its fallback lock after a single attempt.
type Unsupported struct{}

var _ Unit = Unsupported{}

// Begin implements Unit.
func (Unsupported) Begin() Status { return 0 }

// Abort implements Unit. It is a no-op: no transaction is ever active.
func (Unsupported) Abort(uint8) {}

// End implements Unit. Calling End without an active transaction is a
// caller bug, since Begin never reports Started.
func (Unsupported) End() {
	panic("htm: End called on a unit without transactional memory")
}
