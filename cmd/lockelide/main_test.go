package main

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"github.com/go-logr/logr"
	"github.com/stretchr/testify/require"
)

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out, errOut bytes.Buffer
	root := newRootCmd()
	root.SetOut(&out)
	root.SetErr(&errOut)
	root.SetArgs(args)
	err := root.Execute()
	return out.String(), err
}

func TestVersionCommand(t *testing.T) {
	out, err := execute(t, "version")
	require.NoError(t, err)
	require.Equal(t, "lockelide version v0.1.0\n", out)
}

func TestCPUCommand(t *testing.T) {
	out, err := execute(t, "cpu")
	require.NoError(t, err)
	require.Contains(t, out, "rtm usable:")
	require.Contains(t, out, "abort code:")
}

func TestBenchFallbackOnly(t *testing.T) {
	for _, lock := range []string{"mutex", "spin", "ticket"} {
		t.Run(lock, func(t *testing.T) {
			out, err := execute(t, "bench", "-g", "4", "-n", "2000", "--keys", "8",
				"--unit", "none", "--lock", lock, "--name", "bench-"+lock)
			require.NoError(t, err)
			require.Contains(t, out, "scopes:       8,000\n")
			require.Contains(t, out, "commits:      0 (0.0% elided)\n")
			require.Contains(t, out, "fallbacks:    8,000\n")
			require.Contains(t, out, "not_retryable:8,000\n")
		})
	}
}

func TestBenchRepeatedRunsReportDeltas(t *testing.T) {
	args := []string{"bench", "-g", "2", "-n", "100", "--unit", "none", "--name", "bench-repeat"}
	for i := 0; i < 2; i++ {
		out, err := execute(t, args...)
		require.NoError(t, err)
		require.Contains(t, out, "scopes:       200\n")
	}
}

func TestBenchAuto(t *testing.T) {
	out, err := execute(t, "bench", "-g", "2", "-n", "500", "--name", "bench-auto")
	require.NoError(t, err)
	require.Contains(t, out, "scopes:       1,000\n")
}

func TestBenchErrors(t *testing.T) {
	for _, tc := range []struct {
		args []string
		want string
	}{
		{[]string{"bench", "--lock", "rw"}, `unknown lock "rw"`},
		{[]string{"bench", "--unit", "tsx"}, `unknown unit "tsx"`},
		{[]string{"bench", "--ops", "0"}, "must be positive"},
		{[]string{"bench", "--unit", "none", "--max-retries", "-1", "--keys", "-3"}, "must be positive"},
		{[]string{"bench", "extra"}, "unknown command"},
	} {
		_, err := execute(t, tc.args...)
		require.Error(t, err, strings.Join(tc.args, " "))
		require.Contains(t, err.Error(), tc.want)
	}
}

func TestRunBenchCanceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	var out bytes.Buffer
	err := runBench(ctx, &out, logr.Discard(), benchConfig{
		goroutines: 2, ops: 10, keys: 1, lock: "mutex", unit: "none", maxRetries: -1, name: "bench-canceled",
	})
	require.Error(t, err)
	require.Contains(t, err.Error(), "bench interrupted")
	require.Empty(t, out.String())
}
