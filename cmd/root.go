package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/tebeka/atexit"

	"github.com/lemolatoon/lemola-os/pkg/app"
)

var (
	// Global flags
	verbose      bool
	quiet        bool
	outputFormat string
	configPath   string
)

var rootCmd = &cobra.Command{
	Use:   "lemola",
	Short: "Simulate the lemola-os UEFI loader handoff",
	Long: `lemola runs the lemola-os pre-kernel loader against a simulated UEFI
machine: it resolves firmware capabilities, loads the kernel image from the
boot volume, snapshots the memory map, exits boot services and jumps to the
kernel entry point.

Commands:
  boot        Run one boot attempt and report every state transition
  memmap      Show the simulated machine's memory map
  config      Print the effective configuration
  stub        Write a minimal kernel image`,
	Version:       "0.1.0-dev",
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		atexit.Exit(1)
	}
	atexit.Exit(0)
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable verbose output")
	rootCmd.PersistentFlags().BoolVarP(&quiet, "quiet", "q", false, "suppress output except errors")
	rootCmd.PersistentFlags().StringVarP(&outputFormat, "output", "o", "table", "output format (table, json, yaml)")
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "configuration file (default lemola.yaml)")
}

// newContext builds the application context from the global flags.
func newContext(cmd *cobra.Command) *app.Context {
	ctx := app.NewContext()
	ctx.OutputFormat = outputFormat
	ctx.Verbose = verbose
	ctx.Quiet = quiet
	ctx.Stdout = cmd.OutOrStdout()
	ctx.Stderr = cmd.ErrOrStderr()
	if cmd.Context() != nil {
		ctx.Context = cmd.Context()
	}
	return ctx
}
