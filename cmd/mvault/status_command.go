package main

import (
	"fmt"
	"os"
	"strconv"

	"github.com/spf13/cobra"

	"mvault/internal/config"
	"mvault/internal/store"
)

func newStatusCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show candidate counts and daemon state",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withStore(func(cfg *config.Config, s *store.Store) error {
				counts, err := s.CountByStatus(cmd.Context())
				if err != nil {
					return err
				}
				artists, err := s.ListArtists(cmd.Context(), false)
				if err != nil {
					return err
				}

				out := cmd.OutOrStdout()
				running := "no"
				if _, err := os.Stat(cfg.LockPath()); err == nil {
					running = "yes (lock file present)"
				}
				fmt.Fprintf(out, "Library:  %s\n", cfg.Paths.LibraryDir)
				fmt.Fprintf(out, "Database: %s\n", cfg.DatabasePath())
				fmt.Fprintf(out, "Artists:  %d\n", len(artists))
				fmt.Fprintf(out, "Daemon:   %s\n", running)
				fmt.Fprintln(out)

				rows := make([][]string, 0, len(store.AllStatuses()))
				total := 0
				for _, status := range store.AllStatuses() {
					count := counts[status]
					total += count
					rows = append(rows, []string{string(status), strconv.Itoa(count)})
				}
				rows = append(rows, []string{"total", strconv.Itoa(total)})
				fmt.Fprintln(out, renderTable(
					[]string{"Status", "Candidates"},
					rows,
					[]columnAlignment{alignLeft, alignRight},
				))
				return nil
			})
		},
	}
}
