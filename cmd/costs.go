package cmd

import (
	"time"

	"github.com/spf13/cobra"

	"github.com/jonesrussell/competitive-scan/internal/bootstrap"
	"github.com/jonesrussell/competitive-scan/internal/domain"
)

func newCostsCommand() *cobra.Command {
	var (
		clientID string
		window   time.Duration
	)

	cmd := &cobra.Command{
		Use:   "costs",
		Short: "Summarize provider spend and cache hit rate",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()

			core, err := bootstrap.Open(ctx, cfgFile)
			if err != nil {
				return err
			}
			defer func() { _ = core.Close() }()

			if window <= 0 {
				window = core.Config.Scan.CostWindow
			}
			since := time.Now().UTC().Add(-window)
			tracker := core.CostTracker()

			var summary *domain.CostSummary
			if clientID != "" {
				summary, err = tracker.ClientCostSummary(ctx, clientID, since)
			} else {
				summary, err = tracker.GlobalCostStats(ctx, since)
			}
			if err != nil {
				return err
			}

			renderCostSummary(cmd.OutOrStdout(), summary)
			return nil
		},
	}

	cmd.Flags().StringVar(&clientID, "client", "", "restrict to one client")
	cmd.Flags().DurationVar(&window, "since", 0, "look-back window (default scan.cost_window)")
	return cmd
}
