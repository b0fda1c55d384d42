package cmd

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/sabaqhq/sabaq/internal/app"
)

var invalidateKnowledge bool

var invalidateCmd = &cobra.Command{
	Use:   "invalidate content_id...",
	Short: "Drop cached variants of chapters",
	Long: `Invalidate removes every cached translation and personalization of
the named chapters. Run it after editing chapter source so learners
see the new revision. With --knowledge the chapter's indexed chat
chunks are removed too (re-run index afterwards).`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(_ *cobra.Command, args []string) error {
		return runInvalidate(args)
	},
}

func init() {
	invalidateCmd.Flags().BoolVar(&invalidateKnowledge, "knowledge", false,
		"also remove the chapter's indexed chat chunks")
	rootCmd.AddCommand(invalidateCmd)
}

func runInvalidate(contentIDs []string) error {
	cfg, logger, err := loadConfig()
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	a, err := app.Setup(ctx, cfg, logger)
	if err != nil {
		return fmt.Errorf("initializing application: %w", err)
	}
	defer func() {
		if closeErr := a.Close(); closeErr != nil {
			logger.Warn("shutdown error", "error", closeErr)
		}
	}()

	for _, contentID := range contentIDs {
		n, err := a.Cache.Invalidate(ctx, contentID)
		if err != nil {
			return fmt.Errorf("invalidating cache for %s: %w", contentID, err)
		}
		fmt.Printf("%s: %d cached variants removed\n", contentID, n)

		if invalidateKnowledge {
			k, err := a.Knowledge.Invalidate(ctx, contentID)
			if err != nil {
				return fmt.Errorf("invalidating knowledge for %s: %w", contentID, err)
			}
			fmt.Printf("%s: %d indexed chunks removed\n", contentID, k)
		}
	}
	return nil
}
