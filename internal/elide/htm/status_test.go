package htm

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestStarted(t *testing.T) {
	s := Started
	require.True(t, s.IsStarted())
	require.False(t, s.IsExplicit())
	require.False(t, s.ShouldRetry())
	require.False(t, s.IsConflict())
	require.Equal(t, uint8(0), s.Code())
	require.Equal(t, "none", s.Cause())
	require.Equal(t, "started", s.String())
}

func TestExplicit(t *testing.T) {
	for _, code := range []uint8{0, 1, 0x7f, 0xff} {
		s := Explicit(code)
		require.False(t, s.IsStarted())
		require.True(t, s.IsExplicit())
		require.False(t, s.ShouldRetry(), "explicit aborts carry no retry hint")
		require.Equal(t, code, s.Code())
		require.Equal(t, "explicit", s.Cause())
	}
	require.Equal(t, "explicit(code=0xff)", Explicit(0xff).String())
}

// TestCodeIgnoredWithoutExplicit verifies the code bits are only
// meaningful together with the explicit bit.
func TestCodeIgnoredWithoutExplicit(t *testing.T) {
	s := Status(0xff<<codeShift) | AbortConflict
	require.False(t, s.IsExplicit())
	require.Equal(t, uint8(0), s.Code())
}

func TestConflict(t *testing.T) {
	s := Conflict(true)
	require.True(t, s.IsConflict())
	require.True(t, s.ShouldRetry())
	require.Equal(t, "conflict+retry", s.String())

	s = Conflict(false)
	require.True(t, s.IsConflict())
	require.False(t, s.ShouldRetry())
	require.Equal(t, "conflict", s.Cause())
}

func TestCapacity(t *testing.T) {
	s := Capacity()
	require.True(t, s.IsCapacity())
	require.False(t, s.ShouldRetry())
	require.Equal(t, "capacity", s.String())
}

func TestZeroStatus(t *testing.T) {
	var s Status
	require.False(t, s.IsStarted())
	require.False(t, s.ShouldRetry())
	require.Equal(t, "other", s.Cause())
	require.Equal(t, "abort", s.String())
}

func TestUnsupported(t *testing.T) {
	var u Unsupported
	s := u.Begin()
	require.False(t, s.IsStarted())
	require.False(t, s.ShouldRetry())
	require.NotPanics(t, func() { u.Abort(0xff) })
	require.Panics(t, func() { u.End() })
}
