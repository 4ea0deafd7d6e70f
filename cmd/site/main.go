// Package main is the entry point for the firm's site server and its
// maintenance commands.
package main

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/minehubyt/Anand-Pandey/internal/config"
	"github.com/minehubyt/Anand-Pandey/internal/logging"
)

var (
	configPath string
	logLevel   string

	cfg    *config.Config
	logger *zap.Logger
	level  zap.AtomicLevel
)

var rootCmd = &cobra.Command{
	Use:   "site",
	Short: "AK Pandey & Associates site server",
	Long:  "Serves the firm's public site, client dashboard and admin portal, and maintains its content and search index.",
	PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
		loaded, err := config.Load(configPath)
		if err != nil {
			return err
		}
		if cmd.Flags().Changed("log-level") {
			loaded.Log.Level = logLevel
		}
		l, atom, err := logging.New(loaded.Log.Level, loaded.Log.Format)
		if err != nil {
			return err
		}
		cfg, logger, level = loaded, l, atom
		return nil
	},
	PersistentPostRun: func(_ *cobra.Command, _ []string) {
		if logger != nil {
			_ = logger.Sync()
		}
	},
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "Path to site.yaml (default: ./site.yaml when present)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "Override log.level")
}

func main() {
	// Load .env file if it exists
	_ = godotenv.Load()

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
