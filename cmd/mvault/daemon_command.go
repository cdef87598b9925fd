package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"mvault/internal/daemon"
	"mvault/internal/logging"
)

func newDaemonCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "daemon",
		Short: "Run the acquisition daemon in the foreground",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			logger, err := logging.NewFromSettings(logging.Settings{
				Level:   cfg.Logging.Level,
				Format:  cfg.Logging.Format,
				LogDir:  cfg.Paths.LogDir,
				LogFile: "mvault.log",
			})
			if err != nil {
				return fmt.Errorf("init logger: %w", err)
			}
			return daemon.Run(cmd.Context(), cfg, logger)
		},
	}
}
