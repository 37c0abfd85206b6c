package main

import (
	"fmt"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"vidnotes/internal/config"
	"vidnotes/internal/notifications"
	"vidnotes/internal/watch"
)

func newWatchCommand(ctx *commandContext) *cobra.Command {
	var skipExisting bool

	cmd := &cobra.Command{
		Use:   "watch [dir]",
		Short: "Write notes beside every video dropped into a folder",
		Long: "Watch a directory (default watch.dir) and write <name>.notes.txt next to each new video.\n" +
			"Videos already present without up-to-date notes are processed at startup unless --skip-existing is set.",
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			logger, err := ctx.ensureLogger()
			if err != nil {
				return err
			}

			dir := cfg.Watch.Dir
			if len(args) == 1 {
				if dir, err = config.ExpandPath(args[0]); err != nil {
					return fmt.Errorf("resolve watch dir: %w", err)
				}
			}
			if strings.TrimSpace(dir) == "" {
				return fmt.Errorf("no watch directory: pass one or set watch.dir")
			}

			runCtx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			store, err := ctx.openStore()
			if err != nil {
				return err
			}
			defer store.Close()

			eng, err := buildEngines(runCtx, cfg, store, logger, cfg.Watch.MaxConcurrent)
			if err != nil {
				return err
			}
			defer eng.Close()

			w, err := watch.New(dir, watch.PipelineHandler(eng.runner, notifications.NewService(cfg), logger), watch.Options{
				MaxConcurrent:  cfg.Watch.MaxConcurrent,
				Settle:         time.Duration(cfg.Watch.SettleMillis) * time.Millisecond,
				AllowExtension: cfg.AllowsExtension,
				ScanExisting:   !skipExisting,
				Logger:         logger,
			})
			if err != nil {
				return err
			}
			defer w.Close()

			fmt.Fprintf(cmd.OutOrStdout(), "Watching %s (Ctrl+C to stop)\n", dir)
			return w.Run(runCtx)
		},
	}
	cmd.Flags().BoolVar(&skipExisting, "skip-existing", false, "Ignore videos already in the folder")
	return cmd
}
