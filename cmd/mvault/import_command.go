package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"mvault/internal/config"
	"mvault/internal/dedup"
	"mvault/internal/scanner"
	"mvault/internal/store"
)

func newImportCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "import",
		Short: "Reconcile the library directory with the candidate store",
		Long: "Walks the library, satisfies wanted candidates whose file is already " +
			"on disk, imports unknown files as organized candidates, and demotes " +
			"organized candidates whose file is missing.",
		RunE: func(cmd *cobra.Command, args []string) error {
			logger, err := ctx.consoleLogger()
			if err != nil {
				return err
			}
			return ctx.withStore(func(cfg *config.Config, s *store.Store) error {
				scan := scanner.New(
					s,
					dedup.NewIndex(s, cfg.Policy.FuzzyThreshold),
					cfg.Paths.LibraryDir,
					cfg.Policy.AllowedExtensions,
					nil,
					logger,
				)
				summary, err := scan.Scan(cmd.Context())
				if err != nil {
					return err
				}

				out := cmd.OutOrStdout()
				fmt.Fprintf(out, "Files seen:   %d\n", summary.FilesSeen)
				fmt.Fprintf(out, "Matched:      %d\n", summary.Matched)
				fmt.Fprintf(out, "Satisfied:    %d\n", summary.Satisfied)
				fmt.Fprintf(out, "Imported:     %d\n", summary.Created)
				fmt.Fprintf(out, "Demoted:      %d\n", summary.Demoted)
				fmt.Fprintf(out, "For review:   %d\n", summary.Ambiguous)
				return nil
			})
		},
	}
}
