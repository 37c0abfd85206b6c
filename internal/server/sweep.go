package server

import (
	"context"
	"log/slog"
	"time"

	"vidnotes/internal/config"
	"vidnotes/internal/logging"
	"vidnotes/internal/session"
	"vidnotes/internal/staging"
)

// SweepResult summarizes one cleanup pass.
type SweepResult struct {
	SessionsPurged int64
	StagingRemoved []string
	Errors         []error
}

// Sweep purges expired sessions and removes stale staging directories, keeping
// the directories of sessions that are still running.
// store may be nil, in which case only staging is swept.
func Sweep(ctx context.Context, cfg *config.Config, store *session.Store, logger *slog.Logger) SweepResult {
	if logger == nil {
		logger = logging.NewNop()
	}
	var result SweepResult
	var running map[string]struct{}

	if store != nil {
		purged, err := store.PurgeExpired(ctx, time.Now())
		if err != nil {
			result.Errors = append(result.Errors, err)
			logging.WarnWithContext(logger, "session purge failed", "session_purge_failed",
				logging.Error(err),
				logging.String(logging.FieldImpact, "expired sessions remain until the next sweep"),
			)
		}
		result.SessionsPurged = purged

		ids, err := store.RunningIDs(ctx)
		if err != nil {
			result.Errors = append(result.Errors, err)
			logging.WarnWithContext(logger, "staging sweep skipped", "staging_sweep_skipped",
				logging.Error(err),
				logging.String(logging.FieldImpact, "stale staging directories remain until the next sweep"),
			)
			return result
		}
		running = ids
	}

	stale := staging.CleanStale(ctx, cfg.Paths.StagingDir, cfg.StagingMaxAge(), running, logger)
	result.StagingRemoved = stale.Removed
	for _, cleanupErr := range stale.Errors {
		result.Errors = append(result.Errors, cleanupErr.Error)
	}

	if result.SessionsPurged > 0 || len(result.StagingRemoved) > 0 {
		logger.Info("cleanup sweep finished",
			logging.String(logging.FieldEventType, "cleanup_sweep"),
			logging.Int64("sessions_purged", result.SessionsPurged),
			logging.Int("staging_removed", len(result.StagingRemoved)),
		)
	}
	return result
}
