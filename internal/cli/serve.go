package cli

import (
	"context"
	"time"

	"github.com/spf13/cobra"

	"github.com/yungbote/flowchart-backend/internal/mcp"
)

func newServeCommand(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := opts.buildApp(cmd.Context(), true)
			if err != nil {
				return err
			}
			defer closeApp(a.Close)
			return a.Run(cmd.Context())
		},
	}
}

func newMCPCommand(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "mcp",
		Short: "Serve generate/repair/validate as MCP tools over stdio",
		Long: `mcp starts a Model Context Protocol server on stdin/stdout exposing
generate_flowchart, repair_flowchart and validate_flowchart. Logs go to stderr.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := opts.buildApp(cmd.Context(), opts.verbose)
			if err != nil {
				return err
			}
			defer closeApp(a.Close)
			return mcp.New(a.Log, a.Service, Version).ServeStdio()
		},
	}
}

func closeApp(close func(context.Context) error) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	_ = close(ctx)
}
