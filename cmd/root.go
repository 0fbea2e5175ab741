// Package cmd implements the scanner command-line interface.
package cmd

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
)

// cfgFile holds the path to the configuration file.
var cfgFile string

// NewRootCommand builds the command tree.
func NewRootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:   "scanner",
		Short: "Competitive intelligence scanner",
		Long: `Scans agency clients and their competitors across SEO, listing, speed and
ranking providers, records deltas and a health score, raises alerts and
turns actionable alerts into work-queue tasks.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return cmd.Help()
		},
	}

	root.PersistentFlags().StringVar(&cfgFile, "config", "",
		"config file (default is $CONFIG_PATH or ./config.yml)")

	root.AddCommand(
		newScanCommand(),
		newBatchCommand(),
		newScheduleCommand(),
		newMigrateCommand(),
		newCostsCommand(),
		newCacheCommand(),
	)

	return root
}

// Execute runs the root command until it finishes or the process is signalled.
func Execute() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	return NewRootCommand().ExecuteContext(ctx)
}
