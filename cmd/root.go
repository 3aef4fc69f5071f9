package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sellerdesk/trust-engine/internal/config"
)

var cfg *config.Config

var rootCmd = &cobra.Command{
	Use:   "trust-engine",
	Short: "Self-learning answer trust engine",
	Long:  "Tracks recurring marketplace customer questions, scores answer patterns through human review outcomes, gates risky content, and decides when answers may go out without review.",
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
