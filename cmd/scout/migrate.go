package main

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"memecoin-scout/internal/config"
	"memecoin-scout/internal/storage/migrations"
	pgstore "memecoin-scout/internal/storage/postgres"
)

func newMigrateCmd(flags *rootFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply Postgres and ClickHouse migrations for the configured databases",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, logger, closeLog, err := loadConfig(flags)
			if err != nil {
				return err
			}
			defer closeLog()
			return runMigrations(cmd.Context(), cfg, logger)
		},
	}
}

// runMigrations migrates every database with a configured DSN.
func runMigrations(ctx context.Context, cfg *config.Config, logger zerolog.Logger) error {
	ran := false

	if dsn := cfg.Storage.Postgres.DSN; dsn != "" {
		pool, err := pgstore.NewPool(ctx, dsn)
		if err != nil {
			return fmt.Errorf("connect postgres: %w", err)
		}
		applied, err := migrations.RunPostgresMigrations(ctx, pool, &logger)
		pool.Close()
		if err != nil {
			return err
		}
		logger.Info().Int("applied", len(applied)).Msg("postgres migrated")
		ran = true
	}

	if dsn := cfg.Storage.ClickHouse.DSN; dsn != "" {
		conn, err := migrations.RunClickhouseMigrations(ctx, dsn, &logger)
		if err != nil {
			return err
		}
		_ = conn.Close()
		logger.Info().Msg("clickhouse migrated")
		ran = true
	}

	if !ran {
		logger.Warn().Msg("no database configured, nothing to migrate")
	}
	return nil
}
