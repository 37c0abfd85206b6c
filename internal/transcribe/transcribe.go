package transcribe

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"vidnotes/internal/cache"
	"vidnotes/internal/config"
	"vidnotes/internal/services/llm"
)

// ErrEmptyTranscript indicates the engine returned no text for the waveform.
var ErrEmptyTranscript = errors.New("transcript is empty")

const stageName = "transcribe"

// Transcript is the plain-text output of one transcription run.
type Transcript struct {
	Text     string `json:"text"`
	Language string `json:"language,omitempty"`
	Engine   string `json:"engine"`
}

// Transcriber turns a waveform file into text.
type Transcriber interface {
	Transcribe(ctx context.Context, audioPath string) (Transcript, error)
	Name() string
}

// New builds the configured engine, wrapped with the transcript cache when store is non-nil.
func New(cfg *config.Config, store *cache.Store, logger *slog.Logger) (Transcriber, error) {
	if cfg == nil {
		return nil, errors.New("transcribe: config required")
	}
	tc := cfg.Transcription
	timeout := time.Duration(tc.TimeoutSeconds) * time.Second

	var engine Transcriber
	var model string
	switch tc.Engine {
	case config.EngineWhisperX:
		whisperx := NewWhisperX(WhisperXConfig{
			Model:       tc.Model,
			Language:    tc.Language,
			CUDAEnabled: tc.CUDAEnabled,
			HFToken:     tc.HFToken,
			Timeout:     timeout,
		})
		engine = whisperx
		model = whisperx.Model()
	case config.EngineOpenAI:
		client := llm.NewClient(llm.Config{
			APIKey:         tc.OpenAIAPIKey,
			BaseURL:        tc.OpenAIBaseURL,
			Model:          tc.OpenAIModel,
			TimeoutSeconds: tc.TimeoutSeconds,
		})
		engine = NewOpenAI(client, tc.Language)
		model = tc.OpenAIModel
	default:
		return nil, fmt.Errorf("transcribe: unsupported engine %q", tc.Engine)
	}

	if store != nil {
		engine = NewCached(engine, store, logger, model, tc.Language)
	}
	return engine, nil
}
