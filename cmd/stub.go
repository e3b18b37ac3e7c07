package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/lemolatoon/lemola-os/internal/config"
	"github.com/lemolatoon/lemola-os/internal/loader"
	"github.com/lemolatoon/lemola-os/pkg/app"
)

var (
	stubOut  string
	stubSize int
)

var stubCmd = &cobra.Command{
	Use:   "stub",
	Short: "Write a minimal kernel image",
	Long: `Write an ELF64 kernel that halts at its entry point. It is linked for the
configured load base and entry offset, so the loader accepts it.

Examples:
  lemola stub --out kernel.elf
  lemola stub --out esp/kernel.elf --size 65536`,

	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runStub(newContext(cmd))
	},
}

func init() {
	rootCmd.AddCommand(stubCmd)

	stubCmd.Flags().StringVar(&stubOut, "out", "", "output file")
	stubCmd.Flags().IntVar(&stubSize, "size", app.StubKernelSize, "image size in bytes")
	stubCmd.MarkFlagRequired("out")
}

func runStub(ctx *app.Context) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return app.NewError(app.ErrCodeConfig, "failed to load configuration", err)
	}
	if minSize := int(cfg.Boot.Loader.EntryOffset) + 1; stubSize < minSize {
		return app.NewError(app.ErrCodeInvalidInput, fmt.Sprintf("size must be at least %d bytes", minSize), nil)
	}

	image := loader.StubImage(cfg.Boot.Loader, stubSize)
	if err := os.WriteFile(stubOut, image, 0o644); err != nil {
		return fmt.Errorf("failed to write %s: %w", stubOut, err)
	}
	ctx.Log("wrote %d byte kernel to %s, entry %#x", len(image), stubOut, cfg.Boot.Loader.Base+cfg.Boot.Loader.EntryOffset)
	return nil
}
