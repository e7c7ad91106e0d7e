package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/vhr-sample/internal/config"
)

var cfg *config.Config

var rootCmd = &cobra.Command{
	Use:   "vhr-sample",
	Short: "Two-stage sampling of VHR tiles over a change map",
	Long: "Measures change inside very-high-resolution image tiles, stratifies and selects tiles " +
		"by their share of mapped change, then draws reference pixels inside the selected tiles " +
		"with the inclusion probabilities needed for unbiased area estimation.",
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		c, err := config.Load()
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}
		if err := c.Validate(); err != nil {
			return fmt.Errorf("validate config: %w", err)
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
