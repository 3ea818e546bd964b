// Command biscfg inspects the kernel's compile-time feature flags and
// configured system limits -- the boot-argument/feature-flag inspector a
// kernel build in this genre carries alongside its image-building tool, so
// a developer can check what a given binary was built with without
// grepping source.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"sv39kernel/src/limits"
	"sv39kernel/src/stats"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "biscfg",
		Short: "Inspect kernel feature flags and configured system limits",
	}
	cmd.SilenceUsage = true
	cmd.AddCommand(newFlagsCmd(), newLimitsCmd())
	return cmd
}

func newFlagsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "flags",
		Short: "Print the compile-time accounting flags this binary was built with",
		RunE: func(cmd *cobra.Command, args []string) error {
			fmt.Printf("stats.Stats   = %v\n", stats.Stats)
			fmt.Printf("stats.Timing  = %v\n", stats.Timing)
			return nil
		},
	}
}

func newLimitsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "limits",
		Short: "Print the configured system-wide resource limits",
		RunE: func(cmd *cobra.Command, args []string) error {
			l := limits.Syslimit
			fmt.Printf("Sysprocs = %d\n", l.Sysprocs)
			fmt.Printf("Vnodes   = %d\n", l.Vnodes)
			fmt.Printf("Futexes  = %d\n", l.Futexes)
			fmt.Printf("Arpents  = %d\n", l.Arpents)
			fmt.Printf("Routes   = %d\n", l.Routes)
			fmt.Printf("Tcpsegs  = %d\n", l.Tcpsegs)
			fmt.Printf("Socks    = %d\n", l.Socks)
			fmt.Printf("Pipes    = %d\n", l.Pipes)
			fmt.Printf("Mfspgs   = %d\n", l.Mfspgs)
			fmt.Printf("Blocks   = %d\n", l.Blocks)
			fmt.Printf("Lhits    = %d\n", limits.Lhits)
			return nil
		},
	}
}
