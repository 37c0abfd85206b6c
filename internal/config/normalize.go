package config

import (
	"fmt"
	"os"
	"strings"

	"vidnotes/internal/language"
)

func (c *Config) normalize() error {
	if err := c.normalizePaths(); err != nil {
		return err
	}
	c.normalizeServer()
	c.normalizeTranscription()
	c.normalizeSummarization()
	c.normalizeNotes()
	if err := c.normalizeCache(); err != nil {
		return err
	}
	c.normalizeSession()
	if err := c.normalizeWatch(); err != nil {
		return err
	}
	c.normalizeNotifications()
	c.normalizeLogging()
	return nil
}

func (c *Config) normalizePaths() error {
	var err error
	if strings.TrimSpace(c.Paths.StagingDir) == "" {
		c.Paths.StagingDir = defaultStagingDir
	}
	if c.Paths.StagingDir, err = expandPath(c.Paths.StagingDir); err != nil {
		return fmt.Errorf("paths.staging_dir: %w", err)
	}
	if strings.TrimSpace(c.Paths.StateDir) == "" {
		c.Paths.StateDir = defaultStateDir
	}
	if c.Paths.StateDir, err = expandPath(c.Paths.StateDir); err != nil {
		return fmt.Errorf("paths.state_dir: %w", err)
	}
	if strings.TrimSpace(c.Paths.LogDir) == "" {
		c.Paths.LogDir = defaultLogDir
	}
	if c.Paths.LogDir, err = expandPath(c.Paths.LogDir); err != nil {
		return fmt.Errorf("paths.log_dir: %w", err)
	}
	return nil
}

func (c *Config) normalizeServer() {
	c.Server.Bind = strings.TrimSpace(c.Server.Bind)
	if c.Server.Bind == "" {
		c.Server.Bind = defaultServerBind
	}
	c.Server.APIToken = strings.TrimSpace(c.Server.APIToken)
	if c.Server.APIToken == "" {
		if value, ok := os.LookupEnv("VIDNOTES_API_TOKEN"); ok {
			c.Server.APIToken = strings.TrimSpace(value)
		}
	}
	if c.Server.MaxUploadMB <= 0 {
		c.Server.MaxUploadMB = defaultMaxUploadMB
	}
	if c.Server.MaxConcurrent <= 0 {
		c.Server.MaxConcurrent = defaultMaxConcurrent
	}
	exts := make([]string, 0, len(c.Server.AllowedExtensions))
	seen := make(map[string]struct{}, len(c.Server.AllowedExtensions))
	for _, ext := range c.Server.AllowedExtensions {
		normalized := strings.ToLower(strings.TrimPrefix(strings.TrimSpace(ext), "."))
		if normalized == "" {
			continue
		}
		if _, exists := seen[normalized]; exists {
			continue
		}
		seen[normalized] = struct{}{}
		exts = append(exts, normalized)
	}
	if len(exts) == 0 {
		exts = append(exts, defaultAllowedExtensions...)
	}
	c.Server.AllowedExtensions = exts
}

func (c *Config) normalizeTranscription() {
	t := &c.Transcription
	t.Engine = strings.ToLower(strings.TrimSpace(t.Engine))
	if t.Engine == "" {
		t.Engine = defaultTranscriptionEngine
	}
	t.Model = strings.TrimSpace(t.Model)
	if t.Model == "" {
		t.Model = defaultWhisperModel
	}
	t.Language = strings.ToLower(strings.TrimSpace(t.Language))
	if code := language.ToISO2(t.Language); code != "" {
		t.Language = code
	}
	t.HFToken = strings.TrimSpace(t.HFToken)
	if t.HFToken == "" {
		if value, ok := os.LookupEnv("HUGGING_FACE_HUB_TOKEN"); ok {
			t.HFToken = strings.TrimSpace(value)
		} else if value, ok := os.LookupEnv("HF_TOKEN"); ok {
			t.HFToken = strings.TrimSpace(value)
		}
	}
	t.OpenAIAPIKey = strings.TrimSpace(t.OpenAIAPIKey)
	if t.OpenAIAPIKey == "" {
		if value, ok := os.LookupEnv("OPENAI_API_KEY"); ok {
			t.OpenAIAPIKey = strings.TrimSpace(value)
		}
	}
	t.OpenAIBaseURL = strings.TrimSpace(t.OpenAIBaseURL)
	t.OpenAIModel = strings.TrimSpace(t.OpenAIModel)
	if t.OpenAIModel == "" {
		t.OpenAIModel = defaultOpenAITranscribeModel
	}
	if t.TimeoutSeconds <= 0 {
		t.TimeoutSeconds = defaultTranscribeTimeout
	}
}

func (c *Config) normalizeSummarization() {
	s := &c.Summarization
	s.Backend = strings.ToLower(strings.TrimSpace(s.Backend))
	if s.Backend == "" {
		s.Backend = defaultSummarizationBackend
	}
	s.Model = strings.TrimSpace(s.Model)
	if s.Model == "" {
		switch s.Backend {
		case BackendGemini:
			s.Model = defaultGeminiSummaryModel
		case BackendOpenAI:
			s.Model = defaultOpenAISummaryModel
		}
	}
	s.BaseURL = strings.TrimSpace(s.BaseURL)
	s.APIKey = strings.TrimSpace(s.APIKey)
	if s.APIKey == "" {
		s.APIKey = lookupFirstEnv(summarizationKeyEnv(s.Backend)...)
	}
	if s.MaxTokens <= 0 {
		s.MaxTokens = defaultSummaryMaxTokens
	}
	if s.MinTokens < 0 {
		s.MinTokens = 0
	}
	if s.TimeoutSeconds <= 0 {
		s.TimeoutSeconds = defaultSummaryTimeoutSeconds
	}
	if s.RetryAttempts <= 0 {
		s.RetryAttempts = defaultSummaryRetryAttempts
	}
	if s.ExtractiveSentences <= 0 {
		s.ExtractiveSentences = defaultExtractiveSentences
	}
}

func summarizationKeyEnv(backend string) []string {
	switch backend {
	case BackendGemini:
		return []string{"GEMINI_API_KEY", "GOOGLE_API_KEY"}
	case BackendOpenAI:
		return []string{"OPENAI_API_KEY", "OPENROUTER_API_KEY", "DEEPSEEK_API_KEY"}
	default:
		return nil
	}
}

func lookupFirstEnv(keys ...string) string {
	for _, key := range keys {
		if value, ok := os.LookupEnv(key); ok && strings.TrimSpace(value) != "" {
			return strings.TrimSpace(value)
		}
	}
	return ""
}

func (c *Config) normalizeNotes() {
	c.Notes.Strategy = strings.ToLower(strings.TrimSpace(c.Notes.Strategy))
	if c.Notes.Strategy == "" {
		c.Notes.Strategy = defaultNotesStrategy
	}
	c.Notes.DownloadName = strings.TrimSpace(c.Notes.DownloadName)
	if c.Notes.DownloadName == "" {
		c.Notes.DownloadName = defaultDownloadName
	}
	if c.Notes.HeadingWords <= 0 {
		c.Notes.HeadingWords = defaultHeadingWords
	}
}

func (c *Config) normalizeCache() error {
	var err error
	if strings.TrimSpace(c.Cache.Dir) == "" {
		c.Cache.Dir = defaultCacheDir()
	}
	if c.Cache.Dir, err = expandPath(c.Cache.Dir); err != nil {
		return fmt.Errorf("cache.dir: %w", err)
	}
	if c.Cache.TTLHours < 0 {
		c.Cache.TTLHours = 0
	}
	return nil
}

func (c *Config) normalizeSession() {
	if c.Session.RetentionHours <= 0 {
		c.Session.RetentionHours = defaultSessionRetentionHours
	}
	if c.Session.CleanupIntervalMins <= 0 {
		c.Session.CleanupIntervalMins = defaultCleanupIntervalMinutes
	}
	if c.Session.StagingMaxAgeMinutes <= 0 {
		c.Session.StagingMaxAgeMinutes = defaultStagingMaxAgeMinutes
	}
}

func (c *Config) normalizeWatch() error {
	var err error
	if strings.TrimSpace(c.Watch.Dir) != "" {
		if c.Watch.Dir, err = expandPath(c.Watch.Dir); err != nil {
			return fmt.Errorf("watch.dir: %w", err)
		}
	}
	if c.Watch.MaxConcurrent <= 0 {
		c.Watch.MaxConcurrent = defaultWatchMaxConcurrent
	}
	if c.Watch.SettleMillis < 0 {
		c.Watch.SettleMillis = defaultWatchSettleMillis
	}
	return nil
}

func (c *Config) normalizeLogging() {
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	switch c.Logging.Format {
	case "", "console":
		c.Logging.Format = "console"
	case "json":
	default:
		c.Logging.Format = "console"
	}
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if c.Logging.Level == "" {
		c.Logging.Level = defaultLogLevel
	}
}

func (c *Config) normalizeNotifications() {
	n := &c.Notifications
	n.NtfyTopic = strings.TrimSpace(n.NtfyTopic)
	if n.NtfyTopic == "" {
		if value, ok := os.LookupEnv("VIDNOTES_NTFY_TOPIC"); ok {
			n.NtfyTopic = strings.TrimSpace(value)
		}
	}
	if n.RequestTimeoutSeconds <= 0 {
		n.RequestTimeoutSeconds = defaultNtfyTimeoutSeconds
	}
}
