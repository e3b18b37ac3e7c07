package cmd

import (
	"github.com/spf13/cobra"

	"github.com/lemolatoon/lemola-os/pkg/app"
	"github.com/lemolatoon/lemola-os/pkg/app/memory"
)

var (
	memmapUsable bool
	memmapType   string
)

var memmapCmd = &cobra.Command{
	Use:   "memmap",
	Short: "Show the simulated machine's memory map",
	Long: `Query the memory map of a freshly built machine, before anything is loaded.

Examples:
  # Every region
  lemola memmap

  # Only memory the kernel may use after boot services exit
  lemola memmap --usable

  # Only conventional memory, as JSON
  lemola memmap --type EfiConventionalMemory -o json`,

	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runMemmap(newContext(cmd))
	},
}

func init() {
	rootCmd.AddCommand(memmapCmd)

	memmapCmd.Flags().BoolVar(&memmapUsable, "usable", false, "only regions usable after exiting boot services")
	memmapCmd.Flags().StringVar(&memmapType, "type", "", "only regions of this memory type")

	memmapCmd.MarkFlagsMutuallyExclusive("usable", "type")
}

func runMemmap(ctx *app.Context) error {
	request := &memory.Request{
		ConfigPath: configPath,
		Usable:     memmapUsable,
		Type:       memmapType,
	}

	response, err := memory.Handle(ctx, request)
	if err != nil {
		return err
	}
	return memory.FormatOutput(ctx.Stdout, response, ctx.OutputFormat)
}
