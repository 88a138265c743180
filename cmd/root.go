package cmd

import (
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"cadbridge/internal/config"
)

// NewRootCmd builds the cadbridge command tree.
func NewRootCmd(version string) *cobra.Command {
	var configPath string

	cmd := &cobra.Command{
		Use:   "cadbridge",
		Short: "Drive SOLIDWORKS sketches and features from MCP clients",
		Long: `cadbridge exposes SOLIDWORKS part modeling as MCP tools.

Shapes can be laid out relative to the previous shape (spacing, relative offsets),
blocking confirmation dialogs are dismissed automatically, and every tool call is
written to a journal.`,
		SilenceUsage: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			// Load .env file if present (ignore errors)
			_ = godotenv.Load()
		},
	}
	cmd.PersistentFlags().StringVar(&configPath, "config", config.Path(), "config file (.toml, .yaml or .json)")

	cmd.AddCommand(
		newServeCmd(&configPath, version),
		newRunCmd(&configPath, version),
		newHistoryCmd(&configPath),
	)
	return cmd
}
