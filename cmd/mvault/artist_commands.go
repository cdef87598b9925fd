package main

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"mvault/internal/config"
	"mvault/internal/store"
)

func newArtistCommand(ctx *commandContext) *cobra.Command {
	artistCmd := &cobra.Command{
		Use:   "artist",
		Short: "Manage the monitored artist roster",
	}
	artistCmd.AddCommand(newArtistAddCommand(ctx))
	artistCmd.AddCommand(newArtistListCommand(ctx))
	artistCmd.AddCommand(newArtistMonitorCommand(ctx))
	artistCmd.AddCommand(newArtistPolicyCommand(ctx))
	return artistCmd
}

func newArtistAddCommand(ctx *commandContext) *cobra.Command {
	var providerID string

	cmd := &cobra.Command{
		Use:   "add NAME",
		Short: "Add an artist to the roster",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			name := strings.TrimSpace(args[0])
			if name == "" {
				return fmt.Errorf("artist name must not be empty")
			}
			return ctx.withStore(func(cfg *config.Config, s *store.Store) error {
				artist, err := s.AddArtist(cmd.Context(), name, providerID)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Added artist %q (id %d)\n", artist.Name, artist.ID)
				return nil
			})
		},
	}

	cmd.Flags().StringVar(&providerID, "provider-id", "", "Catalog provider entity id")
	return cmd
}

func newArtistListCommand(ctx *commandContext) *cobra.Command {
	var all bool

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List artists on the roster",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withStore(func(cfg *config.Config, s *store.Store) error {
				artists, err := s.ListArtists(cmd.Context(), !all)
				if err != nil {
					return err
				}
				out := cmd.OutOrStdout()
				if len(artists) == 0 {
					fmt.Fprintln(out, "No artists on the roster.")
					return nil
				}
				rows := make([][]string, 0, len(artists))
				for _, artist := range artists {
					monitored := "yes"
					if !artist.Monitored {
						monitored = "no"
					}
					lastDiscovered := "-"
					if artist.LastDiscoveredAt != nil {
						lastDiscovered = artist.LastDiscoveredAt.Local().Format(time.RFC3339)
					}
					rows = append(rows, []string{
						strconv.FormatInt(artist.ID, 10),
						artist.Name,
						artist.ProviderID,
						monitored,
						lastDiscovered,
					})
				}
				fmt.Fprintln(out, renderTable(
					[]string{"ID", "Name", "Provider ID", "Monitored", "Last Discovery"},
					rows,
					[]columnAlignment{alignRight, alignLeft, alignLeft, alignLeft, alignLeft},
				))
				return nil
			})
		},
	}

	cmd.Flags().BoolVar(&all, "all", false, "Include unmonitored artists")
	return cmd
}

func newArtistPolicyCommand(ctx *commandContext) *cobra.Command {
	var include, exclude []string
	var clear bool

	cmd := &cobra.Command{
		Use:   "policy ID",
		Short: "Override the acquisition policy for one artist",
		Long: `Override which candidate kinds are acquired for one artist.

An override replaces the matching global [policy] list for that artist only;
passing an empty value ("") means "no filter" rather than "inherit". Use
--clear to drop both overrides and fall back to the global policy.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := strconv.ParseInt(args[0], 10, 64)
			if err != nil {
				return fmt.Errorf("invalid artist id %q", args[0])
			}
			includeSet := cmd.Flags().Changed("include")
			excludeSet := cmd.Flags().Changed("exclude")
			if clear && (includeSet || excludeSet) {
				return fmt.Errorf("--clear cannot be combined with --include or --exclude")
			}
			if !clear && !includeSet && !excludeSet {
				return fmt.Errorf("provide --include, --exclude, or --clear")
			}
			return ctx.withStore(func(cfg *config.Config, s *store.Store) error {
				var includeKinds, excludeKinds []string
				if !clear {
					artist, err := s.GetArtist(cmd.Context(), id)
					if err != nil {
						return err
					}
					includeKinds, excludeKinds = artist.IncludeKinds, artist.ExcludeKinds
					if includeSet {
						includeKinds = include
					}
					if excludeSet {
						excludeKinds = exclude
					}
				}
				if err := s.SetArtistPolicy(cmd.Context(), id, includeKinds, excludeKinds); err != nil {
					return err
				}
				if clear {
					fmt.Fprintf(cmd.OutOrStdout(), "Artist %d follows the global policy again\n", id)
				} else {
					fmt.Fprintf(cmd.OutOrStdout(), "Updated policy for artist %d\n", id)
				}
				return nil
			})
		},
	}

	cmd.Flags().StringSliceVar(&include, "include", nil, "Kinds to acquire for this artist (replaces the global include list)")
	cmd.Flags().StringSliceVar(&exclude, "exclude", nil, "Kinds to skip for this artist (replaces the global exclude list)")
	cmd.Flags().BoolVar(&clear, "clear", false, "Drop the artist's overrides")
	return cmd
}

func newArtistMonitorCommand(ctx *commandContext) *cobra.Command {
	var off bool

	cmd := &cobra.Command{
		Use:   "monitor ID",
		Short: "Enable or disable discovery for an artist",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := strconv.ParseInt(args[0], 10, 64)
			if err != nil {
				return fmt.Errorf("invalid artist id %q", args[0])
			}
			return ctx.withStore(func(cfg *config.Config, s *store.Store) error {
				if err := s.SetMonitored(cmd.Context(), id, !off); err != nil {
					return err
				}
				state := "monitored"
				if off {
					state = "unmonitored"
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Artist %d is now %s\n", id, state)
				return nil
			})
		},
	}

	cmd.Flags().BoolVar(&off, "off", false, "Stop monitoring the artist")
	return cmd
}
