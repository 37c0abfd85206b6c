package main

import (
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"vidnotes/internal/logging"
	"vidnotes/internal/preflight"
	"vidnotes/internal/server"
)

func newServeCommand(ctx *commandContext) *cobra.Command {
	var bind string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the web interface and JSON API",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			if bind != "" {
				cfg.Server.Bind = bind
			}
			logger, err := ctx.ensureLogger()
			if err != nil {
				return err
			}

			runCtx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			for _, failed := range preflight.Failed(preflight.RunAll(runCtx, cfg)) {
				logging.WarnWithContext(logger, "preflight check failed", "preflight_failed",
					logging.String("check", failed.Name),
					logging.String("detail", failed.Detail),
					logging.String(logging.FieldImpact, "uploads may fail at the affected stage"),
				)
			}

			store, err := ctx.openStore()
			if err != nil {
				return err
			}
			defer store.Close()

			eng, err := buildEngines(runCtx, cfg, store, logger, 0)
			if err != nil {
				return err
			}
			defer eng.Close()

			srv, err := server.New(cfg, eng.runner, store, logger)
			if err != nil {
				return err
			}
			return srv.Run(runCtx)
		},
	}
	cmd.Flags().StringVar(&bind, "bind", "", "Override server.bind (host:port)")
	return cmd
}
