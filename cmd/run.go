package cmd

import (
	"context"
	"time"

	"github.com/spf13/cobra"

	"cadbridge/internal/app"
	"cadbridge/internal/config"
)

func newRunCmd(configPath *string, version string) *cobra.Command {
	var (
		simulate        bool
		continueOnError bool
	)

	cmd := &cobra.Command{
		Use:   "run <script.yaml|script.json>",
		Short: "Run a script of tool calls",
		Long: `Runs a sequence of tool calls through the same layer an MCP client uses,
printing each result. The run stops at the first failing step unless
--continue-on-error is given or the script sets continue_on_error.`,
		Example: `  # plate.yaml
  steps:
    - tool: solidworks_create_sketch
      args: {plane: Front}
    - tool: solidworks_sketch_rectangle
      args: {width: 40, height: 30}
    - tool: solidworks_sketch_circle
      args: {radius: 5, spacing: 10}
    - tool: solidworks_create_extrusion
      args: {depth: 10}

  cadbridge run plate.yaml --simulate`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			script, err := app.LoadScript(args[0])
			if err != nil {
				return err
			}
			if continueOnError {
				script.ContinueOnError = true
			}

			cfg, err := config.Load(*configPath)
			if err != nil {
				return err
			}
			a, err := app.New(cmd.Context(), cfg, app.Options{Simulate: simulate, Version: version})
			if err != nil {
				return err
			}
			defer func() {
				ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
				defer cancel()
				a.Close(ctx)
			}()

			return a.RunScript(cmd.Context(), script, cmd.OutOrStdout())
		},
	}

	cmd.Flags().BoolVar(&simulate, "simulate", false, "use the in-memory simulated host")
	cmd.Flags().BoolVar(&continueOnError, "continue-on-error", false, "keep going after a failing step")
	return cmd
}
