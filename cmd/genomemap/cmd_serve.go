package main

import (
	"context"
	"os/signal"
	"syscall"

	"github.com/sanonone/genomemap/internal/config"
	"github.com/sanonone/genomemap/internal/server"
	"github.com/spf13/cobra"
)

// newServeCmd creates the "genomemap serve" subcommand.
func newServeCmd(global *globalOptions) *cobra.Command {
	var (
		data      dataFlags
		addr      string
		authToken string
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the HTTP query API",
		Long: "Load a trained map with its dataset and serve movie and tag searches over HTTP.\n" +
			"Flags override the server and data sections of the configuration file.",
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := global.cfg
			cfg.Data = data.apply(cfg.Data)
			if addr != "" {
				cfg.Server.HTTPAddr = addr
			}
			if authToken != "" {
				cfg.Server.AuthToken = authToken
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			return runServe(ctx, cfg, data.metric)
		},
	}

	addDataFlags(cmd, &data)
	cmd.Flags().StringVar(&addr, "addr", "", "listen address (default from config, :8000)")
	cmd.Flags().StringVar(&authToken, "auth-token", "", "require this bearer token on query routes")

	return cmd
}

func addDataFlags(cmd *cobra.Command, data *dataFlags) {
	cmd.Flags().StringVar(&data.mapPath, "map", "", "trained map file")
	cmd.Flags().StringVar(&data.tags, "tags", "", "genome tags CSV")
	cmd.Flags().StringVar(&data.movies, "movies", "", "movies CSV")
	cmd.Flags().StringVar(&data.links, "links", "", "links CSV (optional)")
	cmd.Flags().StringVar(&data.vectors, "vectors", "", "score matrix CSV")
	cmd.Flags().StringVar(&data.metric, "metric", "", "lattice metric of a text map (default hexagonal)")
}

// runServe serves until ctx is cancelled or the listener fails.
func runServe(ctx context.Context, cfg config.Config, metric string) error {
	e, err := loadEngines(ctx, cfg.Data, metric, cfg.Training.Workers)
	if err != nil {
		return err
	}

	srv, err := server.NewServer(e.Movies, e.Tags, cfg.Server)
	if err != nil {
		return err
	}

	errCh := make(chan error, 1)
	go func() { errCh <- srv.Run() }()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		srv.Shutdown()
		return <-errCh
	}
}
