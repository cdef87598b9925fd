package main

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"mvault/internal/config"
	"mvault/internal/store"
)

func newListCommand(ctx *commandContext) *cobra.Command {
	var statusFlag string
	var artistFlag int64

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List tracked candidates",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withStore(func(cfg *config.Config, s *store.Store) error {
				var candidates []*store.Candidate
				var err error
				switch {
				case artistFlag > 0:
					candidates, err = s.ListByArtist(cmd.Context(), artistFlag)
				case statusFlag != "":
					status := store.Status(statusFlag)
					if !status.Valid() {
						return fmt.Errorf("unknown status %q", statusFlag)
					}
					candidates, err = s.ListByStatus(cmd.Context(), status)
				default:
					candidates, err = s.ListByStatus(cmd.Context())
				}
				if err != nil {
					return err
				}

				artistNames := map[int64]string{}
				rows := make([][]string, 0, len(candidates))
				for _, candidate := range candidates {
					if statusFlag != "" && candidate.Status != store.Status(statusFlag) {
						continue
					}
					name, ok := artistNames[candidate.ArtistID]
					if !ok {
						artist, err := s.GetArtist(cmd.Context(), candidate.ArtistID)
						if err != nil {
							return err
						}
						name = artist.Name
						artistNames[candidate.ArtistID] = name
					}
					rows = append(rows, []string{
						strconv.FormatInt(candidate.ID, 10),
						name,
						candidate.Title,
						candidate.Kind,
						string(candidate.Status),
						strconv.Itoa(candidate.AttemptCount),
						candidate.LastError,
					})
				}

				out := cmd.OutOrStdout()
				if len(rows) == 0 {
					fmt.Fprintln(out, "No candidates found.")
					return nil
				}
				fmt.Fprintln(out, renderTable(
					[]string{"ID", "Artist", "Title", "Kind", "Status", "Attempts", "Last Error"},
					rows,
					[]columnAlignment{alignRight, alignLeft, alignLeft, alignLeft, alignLeft, alignRight, alignLeft},
				))
				return nil
			})
		},
	}

	cmd.Flags().StringVar(&statusFlag, "status", "", "Filter by candidate status")
	cmd.Flags().Int64Var(&artistFlag, "artist-id", 0, "Filter by artist id")
	return cmd
}
