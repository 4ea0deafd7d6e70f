package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
)

var seedFile string

var seedCmd = &cobra.Command{
	Use:   "seed",
	Short: "Write the bootstrap content",
	Long:  `Create the hero banner and branch offices from a YAML bundle. Existing records are never overwritten.`,
	RunE:  runSeed,
}

func init() {
	seedCmd.Flags().StringVar(&seedFile, "file", "", "YAML seed bundle (default: store.seed_file, then the built-in bundle)")
	rootCmd.AddCommand(seedCmd)
}

func runSeed(cmd *cobra.Command, _ []string) error {
	ctx := context.Background()
	b := &backends{log: logger}
	defer b.Close()

	store, err := b.openStore(ctx, cfg.Store)
	if err != nil {
		return err
	}
	path := cfg.Store.SeedFile
	if cmd.Flags().Changed("file") {
		path = seedFile
	}

	svc := b.newContent(store)
	res, err := svc.SeedFromFile(ctx, path)
	if err != nil {
		return err
	}
	_, _ = fmt.Fprintf(cmd.OutOrStdout(), "hero created: %t\noffices created: %d\n", res.HeroCreated, res.OfficesCreated)
	return nil
}
