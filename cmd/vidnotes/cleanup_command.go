package main

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"vidnotes/internal/server"
	"vidnotes/internal/staging"
)

func newCleanupCommand(ctx *commandContext) *cobra.Command {
	var orphans bool
	var list bool

	cmd := &cobra.Command{
		Use:   "cleanup",
		Short: "Purge expired sessions and stale staging directories",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			logger, err := ctx.ensureLogger()
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()

			if list {
				dirs, err := staging.ListDirectories(cfg.Paths.StagingDir)
				if err != nil {
					return err
				}
				if len(dirs) == 0 {
					fmt.Fprintln(out, "Staging is empty")
					return nil
				}
				rows := make([][]string, 0, len(dirs))
				for _, dir := range dirs {
					rows = append(rows, []string{dir.Name, humanAge(time.Since(dir.ModTime)) + " ago", formatSize(dir.Size)})
				}
				fmt.Fprintln(out, renderTable([]string{"Directory", "Modified", "Size"}, rows,
					[]columnAlignment{alignLeft, alignRight, alignRight}))
				return nil
			}

			store, err := ctx.openStore()
			if err != nil {
				return err
			}
			defer store.Close()

			result := server.Sweep(cmd.Context(), cfg, store, logger)
			removed := result.StagingRemoved
			errs := result.Errors

			if orphans {
				active, err := store.RunningIDs(cmd.Context())
				if err != nil {
					return err
				}
				orphaned := staging.CleanOrphaned(cmd.Context(), cfg.Paths.StagingDir, active, logger)
				removed = append(removed, orphaned.Removed...)
				for _, cleanupErr := range orphaned.Errors {
					errs = append(errs, cleanupErr.Error)
				}
			}

			fmt.Fprintf(out, "Purged %d expired session(s)\n", result.SessionsPurged)
			fmt.Fprintf(out, "Removed %d staging director%s\n", len(removed), pluralY(len(removed)))
			for _, path := range removed {
				fmt.Fprintf(out, "  - %s\n", path)
			}
			if len(errs) > 0 {
				msgs := make([]string, 0, len(errs))
				for _, e := range errs {
					msgs = append(msgs, e.Error())
				}
				return fmt.Errorf("cleanup finished with %d error(s): %s", len(errs), strings.Join(msgs, "; "))
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&orphans, "orphans", false, "Also remove staging directories of sessions that are not running")
	cmd.Flags().BoolVar(&list, "list", false, "List staging directories without removing anything")
	return cmd
}

func pluralY(n int) string {
	if n == 1 {
		return "y"
	}
	return "ies"
}

func formatSize(n int64) string {
	const unit = 1024
	if n < unit {
		return fmt.Sprintf("%d B", n)
	}
	div, exp := int64(unit), 0
	for v := n / unit; v >= unit; v /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %ciB", float64(n)/float64(div), "KMGTPE"[exp])
}
