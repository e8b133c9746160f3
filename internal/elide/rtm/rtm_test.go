package rtm

import (
	"testing"

	"github.com/cockroachdb/errors"
	"github.com/stretchr/testify/require"
)

func TestNewReportsSupport(t *testing.T) {
	u, err := New()
	if !Supported() {
		require.True(t, errors.Is(err, ErrUnsupported))
		require.False(t, u.InTransaction())
		return
	}
	require.NoError(t, err)
	require.False(t, u.InTransaction())
}

// TestCommit runs a transaction that only touches a local variable. Even on
// capable hardware a transaction may abort for reasons outside the test's
// control (interrupts, preemption), so the test retries and only insists on
// seeing a consistent outcome.
func TestCommit(t *testing.T) {
	if !Supported() {
		t.Skip("RTM not supported on this machine")
	}
	u, err := New()
	require.NoError(t, err)

	x := 0
	committed, inside := false, false
	for i := 0; i < 100 && !committed; i++ {
		if s := u.Begin(); s.IsStarted() {
			x++
			inside = u.InTransaction()
			u.End()
			committed = true
		}
	}
	if committed {
		require.Equal(t, 1, x)
		require.True(t, inside)
		require.False(t, u.InTransaction())
	}
}

// TestExplicitAbort checks that XABORT surfaces at Begin with the code and
// rolls back the write done inside the transaction.
func TestExplicitAbort(t *testing.T) {
	if !Supported() {
		t.Skip("RTM not supported on this machine")
	}
	u, err := New()
	require.NoError(t, err)

	for _, code := range []uint8{0, 1, 0x42, 0xff} {
		x := 0
		for i := 0; i < 100; i++ {
			s := u.Begin()
			if s.IsStarted() {
				x = 1
				u.Abort(code)
				t.Fatal("unreachable: abort returned inside a transaction")
			}
			if s.IsExplicit() {
				require.Equal(t, code, s.Code())
				require.Equal(t, 0, x)
				break
			}
		}
	}
}

// TestAbortOutsideTransaction verifies xabort is a no-op without an active
// transaction for every code in the jump table.
func TestAbortOutsideTransaction(t *testing.T) {
	if !Supported() {
		t.Skip("RTM not supported on this machine")
	}
	var u Unit
	for code := 0; code <= 0xff; code++ {
		u.Abort(uint8(code))
	}
}
