package main

import (
	"context"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/aparetext/aparetext/internal/database"
	"github.com/aparetext/aparetext/internal/server"
)

func newServeCmd() *cobra.Command {
	var (
		host    string
		port    int
		origins []string
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP API and the browser extension WebSocket",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			serverCfg := cfg.Server
			if cmd.Flags().Changed("host") {
				serverCfg.Host = host
			}
			if cmd.Flags().Changed("port") {
				serverCfg.Port = port
			}
			if cmd.Flags().Changed("allow-origin") {
				serverCfg.AllowedOrigins = origins
			}

			return withDB(cmd, func(ctx context.Context, dbCtx *database.Context) error {
				ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
				defer stop()

				return server.New(serverCfg, dbCtx, logger).Start(ctx)
			})
		},
	}

	cmd.Flags().StringVar(&host, "host", "", "Listen address (default from config, 127.0.0.1)")
	cmd.Flags().IntVarP(&port, "port", "p", 0, "Listen port (default from config, 46321)")
	cmd.Flags().StringSliceVar(&origins, "allow-origin", nil, "Allowed CORS origin (repeatable)")

	return cmd
}
