package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/reelrank/reelrank/internal/config"
	"github.com/reelrank/reelrank/internal/logger"
	"github.com/reelrank/reelrank/internal/version"
)

func rootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:          "reelrank",
		Short:        "Movie catalog reconciliation and semantic recommendation engine",
		Version:      fmt.Sprintf("%s (commit %s, built %s)", version.Version, version.Commit, version.Date),
		SilenceUsage: true,
	}

	cmd.AddCommand(serveCmd(), reconcileCmd(), ingestCmd())
	return cmd
}

// setup loads config and builds the process logger. Shared by all commands.
func setup() (config.Config, *zap.Logger, error) {
	env := config.GetEnv()

	cfg, err := config.Load(env)
	if err != nil {
		return config.Config{}, nil, fmt.Errorf("load config: %w", err)
	}

	log, err := logger.NewLogger(env, cfg.Logging.Level)
	if err != nil {
		return config.Config{}, nil, fmt.Errorf("create logger: %w", err)
	}

	log.Info("reelrank starting",
		zap.String("version", version.Version),
		zap.String("commit", version.Commit),
		zap.String("env", env))

	return cfg, log, nil
}
