package main

import (
	"fmt"

	"github.com/cockroachdb/errors"
	"github.com/klauspost/cpuid/v2"
	"github.com/spf13/cobra"
	"golang.org/x/mod/semver"

	"github.com/kolkov/lockelide/elide"
	"github.com/kolkov/lockelide/internal/elide/rtm"
)

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "show version information",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			v := semver.Canonical("v" + elide.Version)
			if v == "" {
				return errors.AssertionFailedf("invalid version %q", elide.Version)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "lockelide version %s\n", v)
			return nil
		},
	}
}

func newCPUCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "cpu",
		Short: "report transactional memory support",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			w := cmd.OutOrStdout()
			info := elide.GetInfo()
			fmt.Fprintf(w, "cpu:          %s (%s)\n", cpuid.CPU.BrandName, cpuid.CPU.VendorString)
			fmt.Fprintf(w, "rtm:          %t\n", cpuid.CPU.Supports(cpuid.RTM))
			fmt.Fprintf(w, "hle:          %t\n", cpuid.CPU.Supports(cpuid.HLE))
			fmt.Fprintf(w, "rtm usable:   %t\n", rtm.Supported())
			fmt.Fprintf(w, "elision:      %t\n", info.Available)
			if _, err := elide.Available(); err != nil {
				fmt.Fprintf(w, "reason:       %v\n", err)
			}
			fmt.Fprintf(w, "max retries:  %d\n", info.MaxRetries)
			fmt.Fprintf(w, "abort code:   %#x\n", info.AbortCode)
			if err := elide.EnvError(); err != nil {
				fmt.Fprintf(w, "environment:  ignored: %v\n", err)
			}
			return nil
		},
	}
}
