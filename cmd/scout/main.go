// Package main provides the scout CLI:
// - run: scheduled scans (discovery → enrichment → filter → score → dedup → rank → publish)
// - check: one-shot evaluation of a single token
// - migrate: applies Postgres and ClickHouse schemas
package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"memecoin-scout/internal/config"
)

// version is set at build time with -ldflags "-X main.version=...".
var version = "dev"

type rootFlags struct {
	configPath string
	envFile    string
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		var ce *config.ConfigError
		if errors.As(err, &ce) {
			os.Exit(2)
		}
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	flags := &rootFlags{}

	root := &cobra.Command{
		Use:          "scout",
		Short:        "Discover, filter and rank newly listed memecoins",
		SilenceUsage: true,
	}
	root.PersistentFlags().StringVarP(&flags.configPath, "config", "c", "config.yaml", "path to the YAML config")
	root.PersistentFlags().StringVar(&flags.envFile, "env-file", ".env", "dotenv file loaded before the config")

	root.AddCommand(
		newRunCmd(flags),
		newCheckCmd(flags),
		newMigrateCmd(flags),
		newVersionCmd(),
	)
	return root
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the version",
		Run: func(cmd *cobra.Command, _ []string) {
			fmt.Fprintln(cmd.OutOrStdout(), version)
		},
	}
}

// loadConfig loads the dotenv file and the config, then builds the logger. Warnings are
// logged once the logger exists.
func loadConfig(flags *rootFlags) (*config.Config, zerolog.Logger, func(), error) {
	boot := zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).With().Timestamp().Logger()

	loaded, err := config.LoadDotEnv(flags.envFile)
	if err != nil {
		boot.Error().Err(err).Str("file", flags.envFile).Msg("load env file")
		return nil, boot, func() {}, err
	}

	cfg, err := config.Load(flags.configPath)
	if err != nil {
		boot.Error().Err(err).Str("file", flags.configPath).Msg("invalid config")
		return nil, boot, func() {}, err
	}

	logger, closeLog := newLogger(cfg.Logging)
	if loaded {
		logger.Debug().Str("file", flags.envFile).Msg("loaded env file")
	}
	for _, w := range cfg.Warnings {
		logger.Warn().Msg(w)
	}
	return cfg, logger, closeLog, nil
}
