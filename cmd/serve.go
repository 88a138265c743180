package cmd

import (
	"github.com/spf13/cobra"

	"cadbridge/internal/app"
)

func newServeCmd(configPath *string, version string) *cobra.Command {
	var (
		simulate  bool
		transport string
		addr      string
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the MCP tools",
		Long: `Starts the MCP server. By default it speaks MCP over stdin/stdout, which is
what desktop MCP clients expect; logs go to stderr.

The config file is watched: dialog timings and the log level apply on save.`,
		Example: `  # Serve over stdio against a running SOLIDWORKS
  cadbridge serve

  # Try the tools without SOLIDWORKS
  cadbridge serve --simulate

  # Streamable HTTP on a custom address
  cadbridge serve --transport http --addr 127.0.0.1:9000`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return app.Serve(cmd.Context(), app.Options{
				ConfigPath: *configPath,
				Simulate:   simulate,
				Transport:  transport,
				Addr:       addr,
				Version:    version,
			})
		},
	}

	cmd.Flags().BoolVar(&simulate, "simulate", false, "use the in-memory simulated host")
	cmd.Flags().StringVar(&transport, "transport", "", "stdio or http (overrides the config)")
	cmd.Flags().StringVar(&addr, "addr", "", "listen address for the http transport")
	return cmd
}
