package main

import (
	"context"
	"fmt"
	"log/slog"

	"vidnotes/internal/cache"
	"vidnotes/internal/config"
	"vidnotes/internal/extract"
	"vidnotes/internal/logging"
	"vidnotes/internal/notes"
	"vidnotes/internal/pipeline"
	"vidnotes/internal/session"
	"vidnotes/internal/summarize"
	"vidnotes/internal/transcribe"
)

// engines owns the pipeline collaborators built from config.
type engines struct {
	runner *pipeline.Runner
	cache  *cache.Store
}

func (e *engines) Close() error {
	if e == nil || e.cache == nil {
		return nil
	}
	return e.cache.Close()
}

// buildEngines wires the extractor, transcriber, summarizer, and note strategy into a
// pipeline runner. maxConcurrent overrides cfg.Server.MaxConcurrent when positive.
// A cache that fails to open is logged and skipped.
func buildEngines(ctx context.Context, cfg *config.Config, store *session.Store, logger *slog.Logger, maxConcurrent int) (*engines, error) {
	out := &engines{}
	if cfg.Cache.Enabled {
		cs, err := cache.Open(cfg.Cache.Dir, cfg.CacheTTL(), logger)
		if err != nil {
			logging.WarnWithContext(logger, "transcript cache unavailable", "cache_open_failed",
				logging.Error(err),
				logging.String(logging.FieldErrorHint, "another vidnotes process may hold the cache directory"),
				logging.String(logging.FieldImpact, "every upload is transcribed from scratch"),
			)
		} else {
			out.cache = cs
		}
	}

	transcriber, err := transcribe.New(cfg, out.cache, logger)
	if err != nil {
		_ = out.Close()
		return nil, err
	}
	summarizer, err := summarize.New(ctx, cfg)
	if err != nil {
		_ = out.Close()
		return nil, err
	}
	synth, err := notes.NewSynthesizer(summarizer, notes.SynthesizerConfig{
		Strategy:     cfg.Notes.Strategy,
		MaxTokens:    cfg.Summarization.MaxTokens,
		MinTokens:    cfg.Summarization.MinTokens,
		HeadingWords: cfg.Notes.HeadingWords,
	})
	if err != nil {
		_ = out.Close()
		return nil, err
	}

	if maxConcurrent <= 0 {
		maxConcurrent = cfg.Server.MaxConcurrent
	}
	runner, err := pipeline.New(pipeline.Deps{
		Extractor:   extract.New(cfg.FFmpegBinary(), cfg.FFprobeBinary()),
		Transcriber: transcriber,
		Synthesizer: synth,
		Store:       store,
		Logger:      logger,
	}, pipeline.Options{
		StagingRoot:    cfg.Paths.StagingDir,
		MaxUploadBytes: cfg.MaxUploadBytes(),
		AllowExtension: cfg.AllowsExtension,
		Retention:      cfg.SessionRetention(),
		MaxConcurrent:  maxConcurrent,
	})
	if err != nil {
		_ = out.Close()
		return nil, fmt.Errorf("build pipeline: %w", err)
	}
	out.runner = runner
	return out, nil
}
