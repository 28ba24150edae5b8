package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/tendant/simple-blurhash/internal/logger"
	"github.com/tendant/simple-blurhash/pkg/blurhasher/config"
)

var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

func main() {
	_ = godotenv.Load()

	rootCmd := NewRootCommand()
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func NewRootCommand() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "blurhasher",
		Short: "Blurhash enrichment for uploaded images",
		Long: `Computes a compact blurhash placeholder for every raster image in the
files collection and stores it on the file record.

Configuration is read from the environment and an optional .env file.`,
		Version:       fmt.Sprintf("%s (commit: %s, built: %s)", version, commit, date),
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.AddCommand(NewServeCommand())
	rootCmd.AddCommand(NewBootstrapCommand())
	rootCmd.AddCommand(NewBackfillCommand())
	rootCmd.AddCommand(NewHashCommand())

	return rootCmd
}

// loadApp reads configuration, initializes logging and assembles the runtime.
func loadApp(ctx context.Context) (*config.Config, *config.App, *slog.Logger, error) {
	cfg, err := config.Load(config.WithEnv())
	if err != nil {
		return nil, nil, nil, fmt.Errorf("failed to load configuration: %w", err)
	}

	log := logger.Init(cfg.LogLevel, cfg.LogFormat)

	app, err := cfg.Build(ctx, log)
	if err != nil {
		return nil, nil, nil, err
	}

	return cfg, app, log, nil
}
