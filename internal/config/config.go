package config

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/pelletier/go-toml/v2"
)

//go:embed sample_config.toml
var sampleConfig string

// Paths contains directory configuration.
type Paths struct {
	StagingDir string `toml:"staging_dir"`
	StateDir   string `toml:"state_dir"`
	LogDir     string `toml:"log_dir"`
}

// Server contains configuration for the HTTP presenter.
type Server struct {
	Bind              string   `toml:"bind"`
	APIToken          string   `toml:"api_token"`
	MaxUploadMB       int      `toml:"max_upload_mb"`
	MaxConcurrent     int      `toml:"max_concurrent"`
	AllowedExtensions []string `toml:"allowed_extensions"`
}

// Transcription contains speech-to-text settings.
type Transcription struct {
	// Engine selects the backend: "whisperx" (local, via uvx) or "openai".
	Engine   string `toml:"engine"`
	Model    string `toml:"model"`
	Language string `toml:"language"`
	// CUDAEnabled enables GPU inference for the whisperx engine.
	CUDAEnabled bool   `toml:"cuda_enabled"`
	HFToken     string `toml:"hf_token"`
	// OpenAI settings are used when Engine is "openai".
	OpenAIAPIKey   string `toml:"openai_api_key"`
	OpenAIBaseURL  string `toml:"openai_base_url"`
	OpenAIModel    string `toml:"openai_model"`
	TimeoutSeconds int    `toml:"timeout_seconds"`
}

// Summarization contains the summarizer backend settings shared by both note strategies.
type Summarization struct {
	// Backend selects "openai" (any OpenAI-compatible endpoint), "gemini", or "extractive".
	Backend             string  `toml:"backend"`
	Model               string  `toml:"model"`
	BaseURL             string  `toml:"base_url"`
	APIKey              string  `toml:"api_key"`
	MaxTokens           int     `toml:"max_tokens"`
	MinTokens           int     `toml:"min_tokens"`
	Temperature         float64 `toml:"temperature"`
	Seed                int     `toml:"seed"`
	TimeoutSeconds      int     `toml:"timeout_seconds"`
	RetryAttempts       int     `toml:"retry_attempts"`
	ExtractiveSentences int     `toml:"extractive_sentences"`
}

// Notes contains note-formatting settings.
type Notes struct {
	// Strategy is "split" (sentence-split headed bullets) or "prompt" (model formats notes directly).
	Strategy     string `toml:"strategy"`
	DownloadName string `toml:"download_name"`
	HeadingWords int    `toml:"heading_words"`
}

// Cache contains configuration for the transcript cache.
type Cache struct {
	Enabled  bool   `toml:"enabled"`
	Dir      string `toml:"dir"`
	TTLHours int    `toml:"ttl_hours"`
}

// Session contains retention settings for processed sessions.
type Session struct {
	RetentionHours       int `toml:"retention_hours"`
	CleanupIntervalMins  int `toml:"cleanup_interval_minutes"`
	StagingMaxAgeMinutes int `toml:"staging_max_age_minutes"`
}

// Watch contains configuration for the drop-folder watcher.
type Watch struct {
	Dir           string `toml:"dir"`
	MaxConcurrent int    `toml:"max_concurrent"`
	SettleMillis  int    `toml:"settle_millis"`
}

// Notifications contains ntfy settings for unattended runs.
type Notifications struct {
	// NtfyTopic is the full topic URL, e.g. https://ntfy.sh/my-notes. Empty disables notifications.
	NtfyTopic             string `toml:"ntfy_topic"`
	RequestTimeoutSeconds int    `toml:"request_timeout_seconds"`
}

// Logging contains configuration for log output.
type Logging struct {
	Format string `toml:"format"`
	Level  string `toml:"level"`
}

// Config encapsulates all configuration values for vidnotes.
//
// Configuration sections by subsystem:
//   - Paths: staging, state, and log directories
//   - Server: HTTP bind address, auth token, and upload limits
//   - Transcription: speech-to-text engine and model
//   - Summarization: summarizer backend and decoding limits
//   - Notes: note strategy and download name
//   - Cache: transcript cache
//   - Session: retention of processed sessions
//   - Watch: drop-folder watcher
//   - Notifications: ntfy alerts for watch-folder results
//   - Logging: log format and level
type Config struct {
	Paths         Paths         `toml:"paths"`
	Server        Server        `toml:"server"`
	Transcription Transcription `toml:"transcription"`
	Summarization Summarization `toml:"summarization"`
	Notes         Notes         `toml:"notes"`
	Cache         Cache         `toml:"cache"`
	Session       Session       `toml:"session"`
	Watch         Watch         `toml:"watch"`
	Notifications Notifications `toml:"notifications"`
	Logging       Logging       `toml:"logging"`
}

// DefaultConfigPath returns the absolute path to the default configuration file location.
func DefaultConfigPath() (string, error) {
	return expandPath(defaultConfigPath)
}

// Load locates, parses, and validates a configuration file. The returned config has all
// path fields expanded and normalized.
func Load(path string) (*Config, string, bool, error) {
	cfg := Default()

	resolvedPath, exists, err := resolveConfigPath(path)
	if err != nil {
		return nil, "", false, err
	}

	if exists {
		file, err := os.Open(resolvedPath)
		if err != nil {
			return nil, "", false, fmt.Errorf("open config: %w", err)
		}
		defer file.Close()

		decoder := toml.NewDecoder(file)
		if err := decoder.Decode(&cfg); err != nil {
			return nil, "", false, fmt.Errorf("parse config: %w", err)
		}
	}

	if err := cfg.normalize(); err != nil {
		return nil, "", false, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, "", false, err
	}

	return &cfg, resolvedPath, exists, nil
}

func resolveConfigPath(path string) (string, bool, error) {
	if path != "" {
		expanded, err := expandPath(path)
		if err != nil {
			return "", false, err
		}
		_, err = os.Stat(expanded)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return expanded, false, nil
			}
			return "", false, fmt.Errorf("stat config: %w", err)
		}
		return expanded, true, nil
	}

	defaultPath, err := expandPath(defaultConfigPath)
	if err != nil {
		return "", false, err
	}

	projectPath, err := filepath.Abs("vidnotes.toml")
	if err != nil {
		return "", false, err
	}

	if info, err := os.Stat(defaultPath); err == nil && !info.IsDir() {
		return defaultPath, true, nil
	}
	if info, err := os.Stat(projectPath); err == nil && !info.IsDir() {
		return projectPath, true, nil
	}

	return defaultPath, false, nil
}

// EnsureDirectories creates required directories for server and CLI operation.
func (c *Config) EnsureDirectories() error {
	for _, dir := range []string{c.Paths.StagingDir, c.Paths.StateDir, c.Paths.LogDir} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create directory %q: %w", dir, err)
		}
	}
	if c.Cache.Enabled && strings.TrimSpace(c.Cache.Dir) != "" {
		if err := os.MkdirAll(c.Cache.Dir, 0o755); err != nil {
			return fmt.Errorf("create cache directory %q: %w", c.Cache.Dir, err)
		}
	}
	return nil
}

// FFmpegBinary returns the ffmpeg executable name used for audio extraction.
func (c *Config) FFmpegBinary() string {
	return "ffmpeg"
}

// FFprobeBinary returns the ffprobe executable name used for media inspection.
func (c *Config) FFprobeBinary() string {
	return "ffprobe"
}

// LogPath returns the log file written alongside stderr output.
func (c *Config) LogPath() string {
	return filepath.Join(c.Paths.LogDir, "vidnotes.log")
}

// SessionDBPath returns the location of the session database.
func (c *Config) SessionDBPath() string {
	return filepath.Join(c.Paths.StateDir, "sessions.db")
}

// LockPath returns the location of the server lock file.
func (c *Config) LockPath() string {
	return filepath.Join(c.Paths.StateDir, "vidnotes.lock")
}

// SessionRetention returns how long processed sessions are kept.
func (c *Config) SessionRetention() time.Duration {
	return time.Duration(c.Session.RetentionHours) * time.Hour
}

// StagingMaxAge returns the age after which an orphaned staging directory is removed.
func (c *Config) StagingMaxAge() time.Duration {
	return time.Duration(c.Session.StagingMaxAgeMinutes) * time.Minute
}

// CleanupInterval returns how often the server sweeps expired sessions.
func (c *Config) CleanupInterval() time.Duration {
	return time.Duration(c.Session.CleanupIntervalMins) * time.Minute
}

// CacheTTL returns the lifetime of a cached transcript, or zero for no expiry.
func (c *Config) CacheTTL() time.Duration {
	if c.Cache.TTLHours <= 0 {
		return 0
	}
	return time.Duration(c.Cache.TTLHours) * time.Hour
}

// MaxUploadBytes returns the upload size limit in bytes.
func (c *Config) MaxUploadBytes() int64 {
	return int64(c.Server.MaxUploadMB) << 20
}

// AllowsExtension reports whether ext (with or without the leading dot) is an accepted upload type.
func (c *Config) AllowsExtension(ext string) bool {
	ext = strings.ToLower(strings.TrimPrefix(strings.TrimSpace(ext), "."))
	if ext == "" {
		return false
	}
	for _, allowed := range c.Server.AllowedExtensions {
		if allowed == ext {
			return true
		}
	}
	return false
}

func expandPath(pathValue string) (string, error) {
	if pathValue == "" {
		return pathValue, nil
	}
	if strings.HasPrefix(pathValue, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
		if pathValue == "~" {
			pathValue = home
		} else if len(pathValue) > 1 && (pathValue[1] == '/' || pathValue[1] == '\\') {
			pathValue = filepath.Join(home, pathValue[2:])
		}
	}
	cleaned := filepath.Clean(pathValue)
	absolute, err := filepath.Abs(cleaned)
	if err != nil {
		return "", fmt.Errorf("resolve absolute path for %q: %w", cleaned, err)
	}
	return absolute, nil
}

// ExpandPath exposes the repository path expansion rules for other packages.
func ExpandPath(pathValue string) (string, error) {
	return expandPath(pathValue)
}

func defaultCacheDir() string {
	if base, ok := os.LookupEnv("XDG_CACHE_HOME"); ok && strings.TrimSpace(base) != "" {
		return filepath.Join(base, "vidnotes", "transcripts")
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "~/.cache/vidnotes/transcripts"
	}
	return filepath.Join(home, ".cache", "vidnotes", "transcripts")
}

// SampleConfig returns the embedded sample configuration.
func SampleConfig() string {
	return sampleConfig
}

// CreateSample writes a sample configuration file to the specified location.
func CreateSample(path string) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create config directory: %w", err)
		}
	}

	if err := os.WriteFile(path, []byte(sampleConfig), 0o644); err != nil {
		return fmt.Errorf("write sample config: %w", err)
	}
	return nil
}
