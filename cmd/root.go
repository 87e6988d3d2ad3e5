package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sam0per/belgian-brewery/internal/config"
)

var cfg *config.Config

var rootCmd = &cobra.Command{
	Use:   "brewery",
	Short: "Belgian brewery reconciliation and scoring pipeline",
	Long:  "Ingests brewery and beer records from inconsistent public sources, reconciles them into a canonical entity set, geocodes breweries, and computes market-opportunity scores.",
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		c, err := config.Load()
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}
		cfg = c

		if err := config.InitLogger(cfg.Log); err != nil {
			return fmt.Errorf("init logger: %w", err)
		}

		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		_ = zap.L().Sync()
	},
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
