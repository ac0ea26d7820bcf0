package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"memecoin-scout/internal/config"
	"memecoin-scout/internal/observability"
	"memecoin-scout/internal/scanner"
)

func newRunCmd(flags *rootFlags) *cobra.Command {
	var (
		once    bool
		migrate bool
	)

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run scans on the configured interval until interrupted",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, logger, closeLog, err := loadConfig(flags)
			if err != nil {
				return err
			}
			defer closeLog()

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			return run(ctx, cfg, logger, once, migrate)
		},
	}
	cmd.Flags().BoolVar(&once, "once", false, "run a single scan and exit")
	cmd.Flags().BoolVar(&migrate, "migrate", false, "apply database migrations before scanning")
	return cmd
}

func run(ctx context.Context, cfg *config.Config, logger zerolog.Logger, once, migrate bool) error {
	a := newApp(cfg, logger)
	defer a.Close()

	if migrate {
		if err := runMigrations(ctx, cfg, logger); err != nil {
			return err
		}
	}

	sc, err := a.scanner(ctx)
	if err != nil {
		logger.Error().Err(err).Msg("wire scanner")
		return err
	}

	if cfg.Metrics.Enabled {
		srv := startMetricsServer(cfg.Metrics.Addr, sc, logger)
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = srv.Shutdown(shutdownCtx)
		}()
	}

	if a.stream != nil {
		a.stream.Start(ctx)
	}

	if once {
		_, err := sc.Scan(ctx)
		return err
	}

	logger.Info().
		Dur("interval", cfg.Scan.Interval).
		Strs("chains", cfg.Filters.Chains).
		Msg("scanner started")
	if err := sc.Run(ctx); err != nil {
		return err
	}
	logger.Info().Msg("shutdown complete")
	return nil
}

// startMetricsServer serves /metrics and /health in the background.
func startMetricsServer(addr string, sc *scanner.Scanner, logger zerolog.Logger) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", observability.Handler())
	mux.HandleFunc("/health", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(sc.State().String()))
	})

	srv := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		logger.Info().Str("addr", addr).Msg("metrics server listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error().Err(err).Msg("metrics server")
		}
	}()
	return srv
}
