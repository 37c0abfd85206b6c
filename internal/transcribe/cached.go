package transcribe

import (
	"context"
	"encoding/json"
	"log/slog"

	"vidnotes/internal/cache"
	"vidnotes/internal/logging"
)

// Cached serves transcripts from the cache before falling back to the wrapped engine.
type Cached struct {
	inner      Transcriber
	store      *cache.Store
	qualifiers []string
	logger     *slog.Logger
}

// NewCached wraps inner with store. qualifiers (model, language) are hashed into
// every key so a settings change never serves a transcript made under other settings.
func NewCached(inner Transcriber, store *cache.Store, logger *slog.Logger, qualifiers ...string) *Cached {
	return &Cached{
		inner:      inner,
		store:      store,
		qualifiers: append([]string{inner.Name()}, qualifiers...),
		logger:     logging.NewComponentLogger(logger, "transcribe"),
	}
}

// Name reports the wrapped engine identifier.
func (c *Cached) Name() string {
	return c.inner.Name()
}

// Transcribe returns a cached transcript for identical audio or runs the engine and stores its result.
func (c *Cached) Transcribe(ctx context.Context, audioPath string) (Transcript, error) {
	logger := logging.WithContext(ctx, c.logger)
	key, err := cache.Key(audioPath, c.qualifiers...)
	if err != nil {
		logger.Debug("transcript cache key unavailable", logging.Error(err))
		return c.inner.Transcribe(ctx, audioPath)
	}

	if data, ok, err := c.store.Get(ctx, key); err != nil {
		logging.WarnWithContext(logger, "transcript cache lookup failed", "cache_lookup_failed",
			logging.Error(err),
			logging.String(logging.FieldImpact, "audio will be transcribed again"),
		)
	} else if ok {
		var cached Transcript
		if err := json.Unmarshal(data, &cached); err == nil && cached.Text != "" {
			logger.Info("transcript cache hit", logging.Args(logging.DecisionAttrs("transcript_cache", "hit", "identical audio already transcribed")...)...)
			return cached, nil
		}
		logger.Debug("dropping unreadable cache entry", logging.String("cache_key", key))
		if err := c.store.Delete(ctx, key); err != nil {
			logger.Debug("cache delete failed", logging.Error(err))
		}
	}

	transcript, err := c.inner.Transcribe(ctx, audioPath)
	if err != nil {
		return transcript, err
	}
	if data, err := json.Marshal(transcript); err == nil {
		if err := c.store.Put(ctx, key, data); err != nil {
			logging.WarnWithContext(logger, "transcript cache store failed", "cache_store_failed",
				logging.Error(err),
				logging.String(logging.FieldImpact, "next upload of this audio will be transcribed again"),
			)
		}
	}
	return transcript, nil
}
