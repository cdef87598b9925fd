package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"mvault/internal/config"
	"mvault/internal/dedup"
	"mvault/internal/providers/imvdb"
	"mvault/internal/scheduler"
	"mvault/internal/store"
)

func newDiscoverCommand(ctx *commandContext) *cobra.Command {
	var artistID int64

	cmd := &cobra.Command{
		Use:   "discover",
		Short: "Run a one-shot discovery pass against the catalog provider",
		Long: "Queries the catalog provider for new videos and routes them through " +
			"the acceptance policy. Accepted candidates are left wanted for the " +
			"daemon to download.",
		RunE: func(cmd *cobra.Command, args []string) error {
			logger, err := ctx.consoleLogger()
			if err != nil {
				return err
			}
			return ctx.withStore(func(cfg *config.Config, s *store.Store) error {
				provider, err := imvdb.New(cfg.Provider.APIKey, cfg.Provider.BaseURL, cfg.ProviderTimeout())
				if err != nil {
					return fmt.Errorf("init catalog provider: %w", err)
				}
				sched := scheduler.New(
					scheduler.Config{
						DiscoveryInterval: cfg.DiscoveryInterval(),
						Policy: scheduler.Policy{
							IncludeKinds: cfg.Policy.IncludeKinds,
							ExcludeKinds: cfg.Policy.ExcludeKinds,
							KindKeywords: cfg.Policy.KindKeywords,
						},
					},
					s,
					provider,
					dedup.NewIndex(s, cfg.Policy.FuzzyThreshold),
					nil, // no queue: wanted rows wait for the daemon
					nil,
					logger,
				)

				summary, err := sched.RunOnce(cmd.Context(), artistID)
				if err != nil {
					return err
				}

				out := cmd.OutOrStdout()
				fmt.Fprintf(out, "Artists checked: %d\n", summary.Artists)
				fmt.Fprintf(out, "Discovered:      %d\n", summary.Discovered)
				fmt.Fprintf(out, "Wanted:          %d\n", summary.Wanted)
				fmt.Fprintf(out, "Skipped:         %d\n", summary.Skipped)
				fmt.Fprintf(out, "Duplicates:      %d\n", summary.Duplicates)
				for _, artistErr := range summary.Errors {
					fmt.Fprintf(out, "Failed:          %s: %v\n", artistErr.Artist, artistErr.Err)
				}
				return nil
			})
		},
	}

	cmd.Flags().Int64Var(&artistID, "artist-id", 0, "Restrict the pass to one artist")
	return cmd
}
