package cmd

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/sabaqhq/sabaq/internal/app"
	"github.com/sabaqhq/sabaq/internal/knowledge"
)

var indexCmd = &cobra.Command{
	Use:   "index [content_id...]",
	Short: "Embed chapters into the knowledge store",
	Long: `Index splits each chapter into heading-sized chunks, embeds them and
upserts them into the knowledge store used by chat. Without arguments
every chapter in the docs directory is indexed. Existing chunks of the
named chapters are replaced.`,
	RunE: func(_ *cobra.Command, args []string) error {
		return runIndex(args)
	},
}

func init() {
	rootCmd.AddCommand(indexCmd)
}

func runIndex(contentIDs []string) error {
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

	if len(contentIDs) == 0 {
		contentIDs, err = a.Content.List()
		if err != nil {
			return fmt.Errorf("listing chapters: %w", err)
		}
	}

	var chunks int
	for _, contentID := range contentIDs {
		n, err := indexChapter(ctx, a, contentID)
		if err != nil {
			return fmt.Errorf("indexing %s: %w", contentID, err)
		}
		chunks += n
		logger.Info("indexed chapter", "content_id", contentID, "chunks", n)
	}

	fmt.Printf("Indexed %d chapters, %d chunks\n", len(contentIDs), chunks)
	return nil
}

func indexChapter(ctx context.Context, a *app.App, contentID string) (int, error) {
	text, err := a.Content.Load(contentID)
	if err != nil {
		return 0, err
	}

	// Replace the chapter's chunks wholesale so stale sections from a
	// longer previous revision cannot linger.
	if _, err := a.Knowledge.Invalidate(ctx, contentID); err != nil {
		return 0, err
	}

	docs := knowledge.ChunkChapter(contentID, text)
	for _, doc := range docs {
		if err := a.Knowledge.Add(ctx, doc); err != nil {
			return 0, err
		}
	}
	return len(docs), nil
}
