package main

import (
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"

	"jobtalk/internal/infra/httpapi"
	"jobtalk/internal/metrics"
)

func serveCmd() *cobra.Command {
	var addr string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the intake HTTP API",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			if addr != "" {
				cfg.Server.Addr = addr
			}

			logger := setupLogger(cfg.Log)
			m := metrics.New(prometheus.DefaultRegisterer)
			pipeline := newPipeline(cfg, m, logger)

			server := httpapi.NewServer(httpapi.Config{
				Addr:          cfg.Server.Addr,
				AuthToken:     cfg.Server.AuthToken,
				RateLimit:     cfg.Server.RateLimit,
				RateWindow:    cfg.Server.RateWindow,
				SessionTTL:    cfg.Server.SessionTTL,
				SweepInterval: cfg.Server.SweepInterval,
				MaxAudioBytes: cfg.Server.MaxAudioBytes,
				MaxImageBytes: cfg.Server.MaxImageBytes,
				Document:      documentDefaults(cfg.Document, time.Time{}),
			}, pipeline, m, promhttp.Handler(), logger)

			ctx := cmd.Context()
			if err := server.Start(ctx); err != nil {
				return fmt.Errorf("starting server: %w", err)
			}

			logger.Info("starting jobtalk",
				"addr", cfg.Server.Addr,
				"transcription", cfg.Transcription.Provider,
				"categorization", cfg.Categorization.Provider,
			)

			<-ctx.Done()
			return server.Stop()
		},
	}

	cmd.Flags().StringVar(&addr, "addr", "", "listen address (overrides server.addr)")
	return cmd
}
