package pipeline

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"vidnotes/internal/extract"
	"vidnotes/internal/fileutil"
	"vidnotes/internal/logging"
	"vidnotes/internal/notes"
	"vidnotes/internal/services"
	"vidnotes/internal/session"
	"vidnotes/internal/staging"
	"vidnotes/internal/transcribe"
)

// Extractor decodes the audio track of a staged video.
type Extractor interface {
	Extract(ctx context.Context, videoPath, destDir string) (extract.Result, error)
}

// NoteSynthesizer turns a transcript into notes.
type NoteSynthesizer interface {
	Synthesize(ctx context.Context, transcript string) (notes.Document, error)
	Strategy() string
	Backend() string
}

// Deps are the collaborators a Runner drives. Store is optional.
type Deps struct {
	Extractor   Extractor
	Transcriber transcribe.Transcriber
	Synthesizer NoteSynthesizer
	Store       *session.Store
	Logger      *slog.Logger
}

// Options bound a Runner.
type Options struct {
	StagingRoot string
	// MaxUploadBytes limits the stored upload; zero disables the check.
	MaxUploadBytes int64
	// AllowExtension filters uploads by extension; nil accepts everything.
	AllowExtension func(ext string) bool
	Retention      time.Duration
	// MaxConcurrent bounds simultaneous runs; zero means unbounded.
	MaxConcurrent int
}

// Upload is one video handed to the pipeline.
type Upload struct {
	Filename string
	Body     io.Reader
	// LocalPath, when set, is copied into staging instead of reading Body.
	LocalPath string
}

// Result is the full output of one run.
type Result struct {
	Session  *session.Session
	Document notes.Document
	Audio    extract.Result
}

// Runner executes the pipeline.
type Runner struct {
	deps   Deps
	opts   Options
	sem    chan struct{}
	logger *slog.Logger
	now    func() time.Time
}

// New validates deps and builds a Runner.
func New(deps Deps, opts Options) (*Runner, error) {
	if deps.Extractor == nil || deps.Transcriber == nil || deps.Synthesizer == nil {
		return nil, errors.New("pipeline: extractor, transcriber, and synthesizer are required")
	}
	if strings.TrimSpace(opts.StagingRoot) == "" {
		return nil, errors.New("pipeline: staging root required")
	}
	logger := deps.Logger
	if logger == nil {
		logger = logging.NewNop()
	}
	r := &Runner{
		deps:   deps,
		opts:   opts,
		logger: logging.NewComponentLogger(logger, "pipeline"),
		now:    time.Now,
	}
	if opts.MaxConcurrent > 0 {
		r.sem = make(chan struct{}, opts.MaxConcurrent)
	}
	return r, nil
}

// Engine reports the transcriber name.
func (r *Runner) Engine() string {
	return r.deps.Transcriber.Name()
}

// Strategy reports the note strategy.
func (r *Runner) Strategy() string {
	return r.deps.Synthesizer.Strategy()
}

// Backend reports the summarizer backend.
func (r *Runner) Backend() string {
	return r.deps.Synthesizer.Backend()
}

// Process runs every stage for upload. The returned Result is non-nil whenever a
// session was started, including on failure, so callers can show partial progress.
// The error is the first stage failure.
func (r *Runner) Process(ctx context.Context, upload Upload) (*Result, error) {
	filename := strings.TrimSpace(filepath.Base(upload.Filename))
	if filename == "" || filename == "." || filename == string(filepath.Separator) {
		return nil, services.Wrap(services.ErrValidation, StageUpload, "accept", "filename required", nil)
	}
	if r.opts.AllowExtension != nil && !r.opts.AllowExtension(filepath.Ext(filename)) {
		return nil, services.Wrap(services.ErrValidation, StageUpload, "accept",
			fmt.Sprintf("unsupported file type %q", filepath.Ext(filename)), nil)
	}

	if err := r.acquire(ctx); err != nil {
		return nil, services.Wrap(services.ErrTimeout, StageUpload, "wait", "pipeline busy", err)
	}
	defer r.release()

	sess := &session.Session{
		ID:       session.NewID(),
		Filename: filename,
		Status:   session.StatusRunning,
		Strategy: r.Strategy(),
		Engine:   r.Engine(),
		Backend:  r.Backend(),
	}
	ctx = services.WithSessionID(ctx, sess.ID)
	logger := logging.WithContext(ctx, r.logger)
	r.persistCreate(ctx, logger, sess)

	result := &Result{Session: sess}
	pr := &run{runner: r, ctx: ctx, logger: logger, result: result}

	logger.Info("processing started",
		logging.String(logging.FieldEventType, "session_start"),
		logging.String("source_file", filename),
		logging.String("engine", sess.Engine),
		logging.String("strategy", sess.Strategy),
	)

	var workDir string
	defer func() {
		if workDir == "" {
			return
		}
		if err := staging.Remove(workDir); err != nil {
			logging.WarnWithContext(logger, "failed to remove staging directory", "staging_cleanup_failed",
				logging.String("staging_dir", workDir),
				logging.Error(err),
				logging.String(logging.FieldErrorHint, "run vidnotes cleanup"),
				logging.String(logging.FieldImpact, "disk space not reclaimed until the stale sweep"),
			)
		}
	}()

	var videoPath string
	err := pr.stage(StageUpload, func(ctx context.Context) (string, error) {
		dir, err := staging.NewSessionDir(r.opts.StagingRoot, sess.ID)
		if err != nil {
			return "", err
		}
		workDir = dir
		path, size, err := r.stageUpload(dir, filename, upload)
		if err != nil {
			return "", err
		}
		videoPath = path
		logger.Debug("upload staged", logging.String("video_path", path), logging.Int64("size_bytes", size))
		return "", nil
	})

	if err == nil {
		err = pr.stage(StageExtract, func(ctx context.Context) (string, error) {
			audio, err := r.deps.Extractor.Extract(ctx, videoPath, workDir)
			if err != nil {
				return "", err
			}
			result.Audio = audio
			sess.AudioSeconds = audio.DurationSeconds
			logger.Info("waveform ready",
				logging.String(logging.FieldEventType, "audio_extracted"),
				logging.Float64("audio_duration", audio.DurationSeconds),
				logging.Int("sample_rate_hz", audio.SampleRateHz),
				logging.Int("source_audio_streams", audio.SourceAudioStreams),
				logging.Int("source_video_streams", audio.SourceVideoStreams),
				logging.Int64("source_size_bytes", audio.SourceSizeBytes),
			)
			return "", nil
		})
	}

	if err == nil {
		err = pr.stage(StageTranscribe, func(ctx context.Context) (string, error) {
			transcript, err := r.deps.Transcriber.Transcribe(ctx, result.Audio.AudioPath)
			if err != nil {
				return "", err
			}
			sess.Transcript = transcript.Text
			if transcript.Engine != "" {
				sess.Engine = transcript.Engine
			}
			return "", nil
		})
	}

	if err == nil {
		err = pr.stage(StageNotes, func(ctx context.Context) (string, error) {
			doc, err := r.deps.Synthesizer.Synthesize(ctx, sess.Transcript)
			if err != nil {
				return "", err
			}
			result.Document = doc
			sess.Notes = doc.Text
			if len(doc.Blocks) > 0 {
				return fmt.Sprintf("%s (%d topics)", stageDone(StageNotes), len(doc.Blocks)), nil
			}
			return "", nil
		})
	}

	if err != nil {
		pr.skipRemaining()
		sess.Status = session.StatusFailed
		sess.ErrorKind = services.Kind(err)
		sess.ErrorMessage = err.Error()
		logging.ErrorWithContext(logger, "processing failed", "session_failed",
			logging.String("error_kind", sess.ErrorKind),
			logging.Error(err),
			logging.String(logging.FieldErrorHint, hintFor(err)),
		)
	} else {
		sess.Status = session.StatusCompleted
		logger.Info("processing completed",
			logging.String(logging.FieldEventType, "session_complete"),
			logging.Int("transcript_chars", len(sess.Transcript)),
			logging.Int("block_count", len(result.Document.Blocks)),
		)
	}
	r.persistUpdate(context.WithoutCancel(ctx), logger, sess)
	return result, err
}

func (r *Runner) stageUpload(dir, filename string, upload Upload) (string, int64, error) {
	if upload.LocalPath != "" {
		info, err := os.Stat(upload.LocalPath)
		if err != nil {
			return "", 0, services.Wrap(services.ErrNotFound, StageUpload, "stat", upload.LocalPath, err)
		}
		if info.IsDir() {
			return "", 0, services.Wrap(services.ErrValidation, StageUpload, "stat", "path is a directory", nil)
		}
		if info.Size() == 0 {
			return "", 0, services.Wrap(services.ErrValidation, StageUpload, "stat", "file is empty", nil)
		}
		if r.opts.MaxUploadBytes > 0 && info.Size() > r.opts.MaxUploadBytes {
			return "", 0, services.Wrap(services.ErrValidation, StageUpload, "stat",
				fmt.Sprintf("file is larger than %d bytes", r.opts.MaxUploadBytes), staging.ErrUploadTooLarge)
		}
		target := staging.SourcePath(dir, filename)
		if err := fileutil.CopyFileVerified(upload.LocalPath, target); err != nil {
			return "", 0, services.Wrap(services.ErrTransient, StageUpload, "copy", "stage local file", err)
		}
		return target, info.Size(), nil
	}
	if upload.Body == nil {
		return "", 0, services.Wrap(services.ErrValidation, StageUpload, "save", "no file content", nil)
	}
	return staging.SaveUpload(dir, filename, upload.Body, r.opts.MaxUploadBytes)
}

func (r *Runner) acquire(ctx context.Context) error {
	if r.sem == nil {
		return nil
	}
	select {
	case r.sem <- struct{}{}:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (r *Runner) release() {
	if r.sem == nil {
		return
	}
	<-r.sem
}

func (r *Runner) persistCreate(ctx context.Context, logger *slog.Logger, sess *session.Session) {
	if r.deps.Store == nil {
		return
	}
	sess.CreatedAt = r.now().UTC()
	if err := r.deps.Store.Create(ctx, sess, r.opts.Retention); err != nil {
		logging.WarnWithContext(logger, "failed to record session", "session_persist_failed",
			logging.Error(err),
			logging.String(logging.FieldImpact, "session will not be retrievable after this request"),
		)
	}
}

func (r *Runner) persistUpdate(ctx context.Context, logger *slog.Logger, sess *session.Session) {
	if r.deps.Store == nil {
		return
	}
	if err := r.deps.Store.Update(ctx, sess); err != nil {
		logging.WarnWithContext(logger, "failed to persist session progress", "session_persist_failed",
			logging.Error(err),
			logging.String(logging.FieldImpact, "stored session may show stale progress"),
		)
	}
}

func stageDone(name string) string {
	info, _ := Describe(name)
	return info.Done
}

func hintFor(err error) string {
	switch {
	case errors.Is(err, extract.ErrNoAudioTrack):
		return "upload a video that contains an audio track"
	case errors.Is(err, services.ErrConfiguration):
		return "check vidnotes config (API keys, model names)"
	case errors.Is(err, services.ErrTimeout):
		return "retry with a shorter video or raise the timeout"
	case errors.Is(err, services.ErrValidation):
		return "check the uploaded file"
	default:
		return "run vidnotes status to check dependencies"
	}
}
