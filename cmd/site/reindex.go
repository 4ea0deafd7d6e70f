package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
)

var reindexCmd = &cobra.Command{
	Use:   "reindex",
	Short: "Rebuild the search index",
	Long:  `Load every insight, inquiry and application from the store and replace the contents of the search indexes.`,
	RunE:  runReindex,
}

func init() {
	rootCmd.AddCommand(reindexCmd)
}

func runReindex(cmd *cobra.Command, _ []string) error {
	if cfg.Search.MeiliURL == "" {
		return fmt.Errorf("search.meili_url is required to reindex")
	}
	ctx := context.Background()
	b := &backends{log: logger}
	defer b.Close()

	store, err := b.openStore(ctx, cfg.Store)
	if err != nil {
		return err
	}
	idx := b.openSearch(cfg.Search)
	snap, err := idx.Reindex(ctx, b.newContent(store))
	if err != nil {
		return fmt.Errorf("reindex failed: %w", err)
	}
	_, _ = fmt.Fprintf(cmd.OutOrStdout(), "insights: %d\ninquiries: %d\napplications: %d\n",
		len(snap.Insights), len(snap.Inquiries), len(snap.Applications))
	return nil
}
