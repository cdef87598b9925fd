package main

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"mvault/internal/config"
	"mvault/internal/store"
)

func parseCandidateID(arg string) (int64, error) {
	id, err := strconv.ParseInt(arg, 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid candidate id %q", arg)
	}
	return id, nil
}

func newRequeueCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:     "requeue ID",
		Aliases: []string{"retry"},
		Short:   "Return a failed or skipped candidate to the download pipeline",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseCandidateID(args[0])
			if err != nil {
				return err
			}
			return ctx.withStore(func(cfg *config.Config, s *store.Store) error {
				ok, err := s.Transition(cmd.Context(), id, store.StatusWanted, store.StatusFailed, store.StatusSkipped)
				if err != nil {
					return err
				}
				if !ok {
					candidate, err := s.GetCandidate(cmd.Context(), id)
					if err != nil {
						return err
					}
					return fmt.Errorf("candidate %d is %s, requeue needs failed or skipped", id, candidate.Status)
				}
				if err := s.ResetAttempts(cmd.Context(), id); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Candidate %d is wanted again; the daemon picks it up on its next pass\n", id)
				return nil
			})
		},
	}
}

func newSkipCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "skip ID",
		Short: "Exclude a candidate from downloading",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseCandidateID(args[0])
			if err != nil {
				return err
			}
			return ctx.withStore(func(cfg *config.Config, s *store.Store) error {
				ok, err := s.Transition(cmd.Context(), id, store.StatusSkipped,
					store.StatusDiscovered, store.StatusWanted, store.StatusFailed, store.StatusOrganized)
				if err != nil {
					return err
				}
				if !ok {
					candidate, err := s.GetCandidate(cmd.Context(), id)
					if err != nil {
						return err
					}
					return fmt.Errorf("candidate %d is %s, cannot skip while a download is in flight", id, candidate.Status)
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Candidate %d skipped\n", id)
				return nil
			})
		},
	}
}

func newUnskipCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "unskip ID",
		Short: "Restore a skipped candidate to the download pipeline",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseCandidateID(args[0])
			if err != nil {
				return err
			}
			return ctx.withStore(func(cfg *config.Config, s *store.Store) error {
				ok, err := s.Transition(cmd.Context(), id, store.StatusWanted, store.StatusSkipped)
				if err != nil {
					return err
				}
				if !ok {
					candidate, err := s.GetCandidate(cmd.Context(), id)
					if err != nil {
						return err
					}
					return fmt.Errorf("candidate %d is %s, unskip needs skipped", id, candidate.Status)
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Candidate %d is wanted again\n", id)
				return nil
			})
		},
	}
}
