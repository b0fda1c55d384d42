// Package cmd provides the sabaq CLI commands.
//
// Commands:
//   - serve: HTTP API server for translation, personalization and chat
//   - index: embed chapter content into the knowledge store
//   - invalidate: drop cached variants and indexed chunks of a chapter
//   - version: version information
package cmd

import (
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/sabaqhq/sabaq/internal/config"
	"github.com/sabaqhq/sabaq/internal/log"
)

var rootCmd = &cobra.Command{
	Use:   "sabaq",
	Short: "Sabaq - AI textbook platform backend",
	Long: `Sabaq serves an interactive robotics textbook: chapter translation
to Urdu, profile-based personalization and retrieval-grounded chat,
all behind a write-through PostgreSQL cache.`,
	SilenceUsage: true,
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

// loadConfig loads configuration and builds the process logger.
func loadConfig() (*config.Config, log.Logger, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, nil, err
	}

	level := slog.LevelInfo
	switch cfg.LogLevel {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	}
	if os.Getenv("DEBUG") != "" {
		level = slog.LevelDebug
	}

	logger := log.New(log.Config{Level: level, JSON: cfg.LogJSON})
	return cfg, logger, nil
}
