package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/jonesrussell/competitive-scan/internal/bootstrap"
)

func newCacheCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "cache",
		Short: "Manage the provider response cache",
	}

	var providerName, pattern string
	invalidate := &cobra.Command{
		Use:   "invalidate",
		Short: "Remove cached responses of a provider",
		Long: `Removes the provider's cached responses whose key matches --pattern, a glob
where * matches any run of characters and ? one character. Without a
pattern every entry of the provider is removed.

Keys are the normalized host for domain providers (example.com), place:<id>
for listings, and <host>:kw:<hash> for keyword rankings.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()

			core, err := bootstrap.Open(ctx, cfgFile)
			if err != nil {
				return err
			}
			defer func() { _ = core.Close() }()

			responseCache, closeCache, err := core.OpenCache(ctx)
			if err != nil {
				return err
			}
			defer func() { _ = closeCache() }()

			removed := responseCache.Invalidate(ctx, providerName, pattern)
			fmt.Fprintf(cmd.OutOrStdout(), "removed %d cached %s responses\n", removed, providerName)
			return nil
		},
	}
	invalidate.Flags().StringVar(&providerName, "provider", "", "provider name (moz, google_places, pagespeed, dataforseo)")
	invalidate.Flags().StringVar(&pattern, "pattern", "", "glob over cache keys")
	_ = invalidate.MarkFlagRequired("provider")

	cmd.AddCommand(invalidate)
	return cmd
}
