package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/tailorshop/storefront/internal/probe"
	"github.com/tailorshop/storefront/internal/progress"
)

var (
	probeURL     string
	probePath    string
	probeActions []string
	probeTimeout time.Duration
	probeBar     bool
)

var probeCmd = &cobra.Command{
	Use:   "probe",
	Short: "Drive a storefront page headlessly",
	Long: `Fetches a page, boots the page runtime on it and performs the given
actions against the live backend, then prints the resulting page state.

Actions: remove, close, add:<product>, waitlist:<product>,
submit:<field>=<value>[,<field>=<value>...]`,
	Example: `  storefront probe --path / --action add:shirt-oxford
  storefront probe --path /bag --action remove`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, logger, err := loadConfig()
		if err != nil {
			return err
		}

		opts := probe.Options{
			BaseURL:        cfg.Page.BaseURL,
			Path:           probePath,
			Page:           cfg.Page,
			Metrics:        cfg.Metrics,
			BeaconEndpoint: cfg.Recommend.BeaconEndpoint,
			Logger:         logger,
		}
		if probeURL != "" {
			opts.BaseURL = probeURL
		}
		for _, s := range probeActions {
			a, err := probe.ParseAction(s)
			if err != nil {
				return err
			}
			opts.Actions = append(opts.Actions, a)
		}

		if probeBar && len(opts.Actions) > 0 {
			rep := progress.NewReporter(os.Stderr)
			rep.Start(len(opts.Actions))
			defer rep.Finish()
			opts.OnAction = func(done int, a probe.Action) {
				rep.Update(done, strings.TrimSuffix(a.Kind+" "+a.Arg, " "))
			}
		}

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()
		ctx, cancel := context.WithTimeout(ctx, probeTimeout)
		defer cancel()

		report, err := probe.Run(ctx, opts)
		if err != nil {
			return fmt.Errorf("probe failed: %w", err)
		}

		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(report)
	},
}

func init() {
	probeCmd.Flags().StringVar(&probeURL, "url", "", "base URL of the storefront (default from config)")
	probeCmd.Flags().StringVar(&probePath, "path", "/bag", "page to load")
	probeCmd.Flags().StringArrayVar(&probeActions, "action", nil, "action to perform, repeatable")
	probeCmd.Flags().DurationVar(&probeTimeout, "timeout", 30*time.Second, "overall time limit")
	probeCmd.Flags().BoolVar(&probeBar, "progress", false, "show action progress on stderr")
	rootCmd.AddCommand(probeCmd)
}
