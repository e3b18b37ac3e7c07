package cmd

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/lemolatoon/lemola-os/internal/config"
	"github.com/lemolatoon/lemola-os/pkg/app"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Print the effective configuration",
	Long: `Print the configuration after defaults, the config file, .env and
LEMOLA_* environment variables have been applied.

Nested keys map to environment variables with underscores, for example
LEMOLA_BOOT_KERNEL_PATH or LEMOLA_MACHINE_READ_CHUNK.`,

	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runConfig(newContext(cmd))
	},
}

func init() {
	rootCmd.AddCommand(configCmd)
}

func runConfig(ctx *app.Context) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return app.NewError(app.ErrCodeConfig, "failed to load configuration", err)
	}

	switch ctx.OutputFormat {
	case "json":
		encoder := json.NewEncoder(ctx.Stdout)
		encoder.SetIndent("", "  ")
		return encoder.Encode(cfg)
	case "yaml", "table":
		encoder := yaml.NewEncoder(ctx.Stdout)
		encoder.SetIndent(2)
		if err := encoder.Encode(cfg); err != nil {
			return err
		}
		return encoder.Close()
	default:
		return fmt.Errorf("unsupported output format: %s", ctx.OutputFormat)
	}
}
