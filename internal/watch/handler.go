package watch

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"vidnotes/internal/fileutil"
	"vidnotes/internal/logging"
	"vidnotes/internal/notifications"
	"vidnotes/internal/pipeline"
)

// NotesSuffix is appended to a video's stem to name its notes file.
const NotesSuffix = ".notes.txt"

// NotesPath returns where the notes for videoPath are written.
func NotesPath(videoPath string) string {
	ext := filepath.Ext(videoPath)
	return strings.TrimSuffix(videoPath, ext) + NotesSuffix
}

// HasNotes reports whether notes newer than the video already exist.
func HasNotes(videoPath string) bool {
	video, err := os.Stat(videoPath)
	if err != nil {
		return false
	}
	notes, err := os.Stat(NotesPath(videoPath))
	if err != nil {
		return false
	}
	return !notes.ModTime().Before(video.ModTime())
}

// PipelineHandler runs each video through runner, writes its notes beside it,
// and publishes the outcome to notifier. notifier may be nil.
func PipelineHandler(runner *pipeline.Runner, notifier notifications.Service, logger *slog.Logger) Handler {
	if logger == nil {
		logger = logging.NewNop()
	}
	publish := func(ctx context.Context, event notifications.Event, payload notifications.Payload) {
		if notifier == nil {
			return
		}
		if err := notifier.Publish(ctx, event, payload); err != nil {
			logging.WarnWithContext(logger, "notification failed", "notification_failed",
				logging.String("event", string(event)),
				logging.Error(err),
				logging.String(logging.FieldImpact, "result was not announced"),
			)
		}
	}

	return func(ctx context.Context, path string) error {
		name := filepath.Base(path)
		result, err := runner.Process(ctx, pipeline.Upload{
			Filename:  name,
			LocalPath: path,
		})
		if err == nil {
			target := NotesPath(path)
			if err = fileutil.WriteFileAtomic(target, []byte(result.Session.Notes), 0o644); err == nil {
				logger.Info("notes written",
					logging.String(logging.FieldEventType, "watch_notes_written"),
					logging.String("notes_path", target),
					logging.String("source_file", name),
					logging.Int("block_count", len(result.Document.Blocks)),
				)
				publish(ctx, notifications.EventNotesReady, notifications.Payload{
					"filename": name,
					"topics":   strconv.Itoa(len(result.Document.Blocks)),
				})
				return nil
			}
		}
		if ctx.Err() == nil {
			publish(ctx, notifications.EventProcessingFailed, notifications.Payload{
				"filename": name,
				"error":    err.Error(),
			})
		}
		return err
	}
}
