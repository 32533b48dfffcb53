package cmd

import (
	"context"
	"log/slog"
	"time"

	"github.com/spf13/cobra"

	"github.com/baheth/baheth/internal/server"
	"github.com/baheth/baheth/internal/telemetry"
)

func newServeCmd() *cobra.Command {
	var listen string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the search HTTP API",
		Long: `Start the HTTP server exposing the search API.

Endpoints:
  POST /api/search        Run a search
  GET  /api/diagnostics   Backing-service health
  GET  /healthz           Liveness probe
  GET  /metrics           Prometheus metrics`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd.Context(), listen)
		},
	}

	cmd.Flags().StringVar(&listen, "listen", "", "Listen address (overrides config)")
	return cmd
}

func runServe(ctx context.Context, listen string) error {
	a, err := buildApp(configPath)
	if err != nil {
		return err
	}
	defer a.close()

	metrics := telemetry.New()

	opts := []server.Option{
		server.WithMetrics(metrics),
		server.WithLogger(a.logger),
		server.WithProbe("qdrant", a.vector),
		server.WithProbe("fulltext", a.lexical),
	}
	if a.store != nil {
		opts = append(opts, server.WithProbe("database", a.store))
	}

	srv := server.New(a.engine, opts...)

	if listen == "" {
		listen = a.cfg.Server.Listen
	}

	errCh := make(chan error, 1)
	go func() { errCh <- srv.Start(listen) }()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		a.logger.Info("shutting down", slog.String("reason", "signal"))
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	}
}
