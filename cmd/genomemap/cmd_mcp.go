package main

import (
	"context"
	"log/slog"
	"os/signal"
	"syscall"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/sanonone/genomemap/internal/config"
	mcptools "github.com/sanonone/genomemap/internal/mcp"
	"github.com/spf13/cobra"
)

// newMCPCmd creates the "genomemap mcp" subcommand.
func newMCPCmd(global *globalOptions) *cobra.Command {
	var data dataFlags

	cmd := &cobra.Command{
		Use:   "mcp",
		Short: "Serve the search tools over MCP on stdio",
		Long: "Load a trained map and expose search_movies, search_tags and map_info as\n" +
			"Model Context Protocol tools. Logs go to stderr; stdout carries the protocol.",
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := global.cfg
			cfg.Data = data.apply(cfg.Data)

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			return runMCP(ctx, cfg, data.metric, &mcp.StdioTransport{})
		},
	}

	addDataFlags(cmd, &data)

	return cmd
}

func runMCP(ctx context.Context, cfg config.Config, metric string, transport mcp.Transport) error {
	e, err := loadEngines(ctx, cfg.Data, metric, cfg.Training.Workers)
	if err != nil {
		return err
	}
	slog.Info("MCP server running on stdio")
	return mcptools.NewMCPServer(e.Movies, e.Tags, version).Run(ctx, transport)
}
