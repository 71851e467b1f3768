package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/tailorshop/storefront/internal/config"
	"github.com/tailorshop/storefront/internal/observability"
)

var (
	cfgFile string
	verbose bool
)

var rootCmd = &cobra.Command{
	Use:   "storefront",
	Short: "Storefront backend and headless page runtime",
	Long: `Storefront serves the shop's pages, orders and shopping bag, and can
drive a page headlessly through the same runtime the browser uses:
click routing, background requests, dialogs and script loading.`,
	SilenceUsage: true,
}

func Execute() error {
	defer observability.Sync()
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "storefront.yml", "config file path")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")
}

// loadConfig reads and validates the config, then starts logging.
func loadConfig() (*config.Config, *zap.Logger, error) {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return nil, nil, fmt.Errorf("loading config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, nil, fmt.Errorf("invalid config: %w", err)
	}
	if verbose {
		cfg.Log.Level = "debug"
	}
	return cfg, observability.Init(cfg.Log), nil
}
