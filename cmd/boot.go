package cmd

import (
	"encoding/csv"
	"fmt"
	"os"
	"strconv"

	"github.com/spf13/cobra"
	"github.com/tebeka/atexit"

	"github.com/lemolatoon/lemola-os/pkg/app"
	"github.com/lemolatoon/lemola-os/pkg/app/boot"
)

var (
	// Kernel source
	bootKernelFile string
	bootVolumePath string
	bootStub       bool
	bootKernelPath string

	// Machine behaviour
	bootReadChunk int
	bootStaleKeys int

	// Reporting
	bootShowMemoryMap bool
	bootNoDisplay     bool
	bootEcho          bool
	bootSummaryFile   string
)

var bootCmd = &cobra.Command{
	Use:   "boot",
	Short: "Run one simulated boot",
	Long: `Run the loader against the simulated machine and report how far it got.

Examples:
  # Boot a generated stub kernel
  lemola boot

  # Boot a kernel built on the host
  lemola boot --kernel build/kernel.elf

  # Serve a directory as the boot volume and load a kernel from it
  lemola boot --volume ./esp --kernel-path '\EFI\lemola\kernel.elf'

  # Make the firmware invalidate the first two map keys
  lemola boot --stale-keys 2 --read-chunk 512`,

	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runBoot(newContext(cmd))
	},
}

func init() {
	rootCmd.AddCommand(bootCmd)

	bootCmd.Flags().StringVarP(&bootKernelFile, "kernel", "k", "", "host kernel image to load")
	bootCmd.Flags().StringVar(&bootVolumePath, "volume", "", "host directory served as the boot volume")
	bootCmd.Flags().BoolVar(&bootStub, "stub", false, "load a generated stub kernel")
	bootCmd.Flags().StringVar(&bootKernelPath, "kernel-path", "", `kernel path on the boot volume (default \kernel.elf)`)

	bootCmd.Flags().IntVar(&bootReadChunk, "read-chunk", 0, "cap the bytes returned by one file read")
	bootCmd.Flags().IntVar(&bootStaleKeys, "stale-keys", 0, "number of memory map keys the firmware invalidates")

	bootCmd.Flags().BoolVar(&bootShowMemoryMap, "show-memmap", false, "print usable memory on the firmware console")
	bootCmd.Flags().BoolVar(&bootNoDisplay, "no-display", false, "do not paint progress on the framebuffer")
	bootCmd.Flags().BoolVar(&bootEcho, "echo", false, "copy the firmware console to stderr")
	bootCmd.Flags().StringVar(&bootSummaryFile, "transitions-csv", "", "also write the state transitions as CSV")

	bootCmd.MarkFlagsMutuallyExclusive("kernel", "stub")
}

func runBoot(ctx *app.Context) error {
	request := &boot.Request{
		ConfigPath: configPath,
		Source: app.KernelSource{
			KernelFile: bootKernelFile,
			VolumePath: bootVolumePath,
			Stub:       bootStub,
		},
		KernelPath:    bootKernelPath,
		ShowMemoryMap: bootShowMemoryMap,
		NoDisplay:     bootNoDisplay,
		ReadChunk:     bootReadChunk,
		StaleKeys:     bootStaleKeys,
		Echo:          bootEcho,
	}

	timed, cancel := ctx.WithTimeout(ctx.DefaultTimeout)
	defer cancel()

	response, err := boot.Handle(timed, request)
	if err != nil {
		return err
	}

	if bootSummaryFile != "" {
		if err := writeTransitions(bootSummaryFile, response); err != nil {
			return err
		}
	}

	if !ctx.Quiet {
		if err := boot.FormatOutput(ctx.Stdout, response, ctx.OutputFormat); err != nil {
			return err
		}
	}

	if !response.Succeeded() {
		code := app.ErrCodeBootAborted
		if response.Error != nil {
			code = response.Error.Code
		}
		return app.NewError(code, "boot did not reach the kernel", nil)
	}
	return nil
}

// writeTransitions writes the transition history as CSV. The file is closed
// by an exit handler so it is complete even when the command fails.
func writeTransitions(path string, response *boot.Response) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", path, err)
	}
	w := csv.NewWriter(f)
	atexit.Register(func() {
		w.Flush()
		f.Close()
	})

	if err := w.Write([]string{"attempt_id", "from", "to", "attempt", "error"}); err != nil {
		return err
	}
	for _, t := range response.Transitions {
		row := []string{response.AttemptID, t.From, t.To, strconv.Itoa(t.Attempt), t.Error}
		if err := w.Write(row); err != nil {
			return err
		}
	}
	return nil
}
