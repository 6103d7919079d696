package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/urban-performance/internal/config"
)

var cfg *config.Config

var rootCmd = &cobra.Command{
	Use:   "urban-performance",
	Short: "Urban scenario indicator engine",
	Long:  "Builds partial results from a project's GIS layers, enumerates every scenario combination, persists 60 indicators per scenario in chunks and publishes indicator bounds.",
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
