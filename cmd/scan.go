package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/jonesrussell/competitive-scan/internal/bootstrap"
	"github.com/jonesrussell/competitive-scan/internal/domain"
)

func newScanCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "scan <client-id>",
		Short: "Run one competitive scan",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			core, err := bootstrap.Open(ctx, cfgFile)
			if err != nil {
				return err
			}
			scanner, err := core.Scanner(ctx, nil)
			if err != nil {
				_ = core.Close()
				return err
			}
			defer func() { _ = scanner.Close() }()

			result, err := scanner.Executor.ExecuteScan(ctx, args[0])
			if err != nil {
				return fmt.Errorf("scan %s: %w", args[0], err)
			}

			renderScanResult(cmd.OutOrStdout(), result)
			return nil
		},
	}
}

func newBatchCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "batch [client-id...]",
		Short: "Scan several clients one after another",
		Long: `Scans the given clients in order, or every active client when none is given.
One client's failure does not stop the batch.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			core, err := bootstrap.Open(ctx, cfgFile)
			if err != nil {
				return err
			}
			scanner, err := core.Scanner(ctx, nil)
			if err != nil {
				_ = core.Close()
				return err
			}
			defer func() { _ = scanner.Close() }()

			var result *domain.BatchResult
			if len(args) == 0 {
				result, err = scanner.Executor.ExecuteActiveClients(ctx)
				if err != nil {
					return err
				}
			} else {
				result = scanner.Executor.ExecuteBatchScan(ctx, args)
			}

			renderBatchResult(cmd.OutOrStdout(), result)
			if result.Failed > 0 {
				return fmt.Errorf("%d of %d scans failed", result.Failed, len(result.Results))
			}
			return nil
		},
	}
}
