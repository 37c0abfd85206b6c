package config

import (
	"errors"
	"fmt"
	"net"
	"strings"
)

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validateServer(); err != nil {
		return err
	}
	if err := c.validateTranscription(); err != nil {
		return err
	}
	if err := c.validateSummarization(); err != nil {
		return err
	}
	if err := c.validateNotes(); err != nil {
		return err
	}
	if err := c.validateSession(); err != nil {
		return err
	}
	if topic := c.Notifications.NtfyTopic; topic != "" &&
		!strings.HasPrefix(topic, "http://") && !strings.HasPrefix(topic, "https://") {
		return fmt.Errorf("notifications.ntfy_topic must be a full http(s) URL, got %q", topic)
	}
	return nil
}

func (c *Config) validateServer() error {
	if _, _, err := net.SplitHostPort(c.Server.Bind); err != nil {
		return fmt.Errorf("server.bind must be host:port: %w", err)
	}
	if c.Server.MaxUploadMB <= 0 {
		return errors.New("server.max_upload_mb must be positive")
	}
	if c.Server.MaxConcurrent <= 0 {
		return errors.New("server.max_concurrent must be positive")
	}
	if len(c.Server.AllowedExtensions) == 0 {
		return errors.New("server.allowed_extensions must include at least one extension")
	}
	return nil
}

func (c *Config) validateTranscription() error {
	switch c.Transcription.Engine {
	case EngineWhisperX:
		if strings.TrimSpace(c.Transcription.Model) == "" {
			return errors.New("transcription.model must be set when transcription.engine is whisperx")
		}
	case EngineOpenAI:
		if c.Transcription.OpenAIBaseURL == "" && c.Transcription.OpenAIAPIKey == "" {
			return errors.New("transcription.openai_api_key must be set when transcription.engine is openai (or set OPENAI_API_KEY)")
		}
	default:
		return fmt.Errorf("transcription.engine: unsupported value %q (want %s or %s)", c.Transcription.Engine, EngineWhisperX, EngineOpenAI)
	}
	if lang := c.Transcription.Language; lang != "" && len(lang) != 2 {
		return fmt.Errorf("transcription.language: unrecognized language %q (use an ISO 639-1 code such as \"en\")", lang)
	}
	return nil
}

func (c *Config) validateSummarization() error {
	s := c.Summarization
	switch s.Backend {
	case BackendOpenAI:
		if s.BaseURL == "" && s.APIKey == "" {
			return errors.New("summarization.api_key must be set when summarization.backend is openai (or set OPENAI_API_KEY)")
		}
	case BackendGemini:
		if s.APIKey == "" {
			return errors.New("summarization.api_key must be set when summarization.backend is gemini (or set GEMINI_API_KEY)")
		}
	case BackendExtractive:
	default:
		return fmt.Errorf("summarization.backend: unsupported value %q", s.Backend)
	}
	if s.MinTokens > s.MaxTokens {
		return errors.New("summarization.min_tokens must not exceed summarization.max_tokens")
	}
	if s.Temperature < 0 || s.Temperature > 2 {
		return errors.New("summarization.temperature must be between 0 and 2")
	}
	return nil
}

func (c *Config) validateNotes() error {
	switch c.Notes.Strategy {
	case StrategySplit, StrategyPrompt:
	default:
		return fmt.Errorf("notes.strategy: unsupported value %q (want %s or %s)", c.Notes.Strategy, StrategySplit, StrategyPrompt)
	}
	if strings.ContainsAny(c.Notes.DownloadName, `/\"`) {
		return errors.New("notes.download_name must be a bare file name")
	}
	if c.Notes.Strategy == StrategyPrompt && c.Summarization.Backend == BackendExtractive {
		return errors.New("notes.strategy prompt requires a model backend (summarization.backend openai or gemini)")
	}
	return nil
}

func (c *Config) validateSession() error {
	if err := ensurePositiveMap(map[string]int{
		"session.retention_hours":          c.Session.RetentionHours,
		"session.cleanup_interval_minutes": c.Session.CleanupIntervalMins,
		"session.staging_max_age_minutes":  c.Session.StagingMaxAgeMinutes,
	}); err != nil {
		return err
	}
	return nil
}

func ensurePositiveMap(values map[string]int) error {
	for key, value := range values {
		if value <= 0 {
			return fmt.Errorf("%s must be positive", key)
		}
	}
	return nil
}
