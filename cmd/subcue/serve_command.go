package main

import (
	"fmt"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"subcue/internal/daemon"
	"subcue/internal/logging"
)

func newServeCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the editor daemon (API, websocket feed, inbox watcher)",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}

			logger, err := logging.NewForDaemon(cfg.Logging.Level, cfg.Logging.Format, cfg.Paths.LogDir)
			if err != nil {
				return fmt.Errorf("init logger: %w", err)
			}

			signalCtx, cancel := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer cancel()

			d, err := daemon.New(cfg, logger)
			if err != nil {
				return err
			}
			return d.Run(signalCtx)
		},
	}
}
