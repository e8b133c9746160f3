// Package main implements the lockelide CLI tool.
//
// The tool measures lock elision on the current machine:
//
//	lockelide cpu                    # report transactional memory support
//	lockelide bench -g 8 -n 1000000  # run a contended counter workload
//	lockelide version                # show version information
//
// bench runs the same workload through elided scopes on the chosen
// fallback lock and prints throughput along with what the scopes did:
// commits, fallbacks and aborts by cause.
package main

import (
	"fmt"
	"os"

	"github.com/go-logr/logr"
	"github.com/go-logr/logr/funcr"
	"github.com/spf13/cobra"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var verbosity int
	root := &cobra.Command{
		Use:   "lockelide",
		Short: "lock elision with hardware transactional memory",
		Long: `
lockelide runs lock-protected critical sections as hardware transactions and
falls back to the lock when a transaction cannot succeed.

Environment:
  LOCKELIDE_MAX_RETRIES   retries after the first attempt (default 3)
  LOCKELIDE_ABORT_CODE    abort code reserved for lock contention (default 0xff)
  LOCKELIDE_DISABLE       never start transactions
`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().IntVarP(&verbosity, "verbosity", "v", 0,
		"log verbosity: 1 logs fallbacks, 2 also logs sampled aborts")

	logger := func(cmd *cobra.Command) logr.Logger {
		w := cmd.ErrOrStderr()
		return funcr.New(func(prefix, args string) {
			if prefix != "" {
				fmt.Fprintf(w, "%s: %s\n", prefix, args)
			} else {
				fmt.Fprintln(w, args)
			}
		}, funcr.Options{Verbosity: verbosity})
	}

	root.AddCommand(
		newBenchCmd(logger),
		newCPUCmd(),
		newVersionCmd(),
	)
	return root
}
