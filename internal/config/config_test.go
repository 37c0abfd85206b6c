package config_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/pelletier/go-toml/v2"

	"vidnotes/internal/config"
)

func TestLoadDefaultConfigUsesEnvKeyAndExpandsPaths(t *testing.T) {
	t.Setenv("OPENAI_API_KEY", "test-key")
	tempHome := t.TempDir()
	t.Setenv("HOME", tempHome)
	t.Setenv("XDG_CACHE_HOME", "")

	cfg, resolved, exists, err := config.Load("")
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if resolved == "" {
		t.Fatal("expected resolved path")
	}
	if exists {
		t.Fatal("expected config file to be absent in temp HOME")
	}

	wantStaging := filepath.Join(tempHome, ".local", "share", "vidnotes", "staging")
	if cfg.Paths.StagingDir != wantStaging {
		t.Fatalf("unexpected staging dir: got %q want %q", cfg.Paths.StagingDir, wantStaging)
	}
	if cfg.Server.Bind != "127.0.0.1:8501" {
		t.Fatalf("unexpected bind: %q", cfg.Server.Bind)
	}
	if cfg.Summarization.APIKey != "test-key" {
		t.Fatalf("expected summarization key from env, got %q", cfg.Summarization.APIKey)
	}
	if cfg.Transcription.Engine != config.EngineWhisperX {
		t.Fatalf("expected whisperx engine by default, got %q", cfg.Transcription.Engine)
	}
	if cfg.Transcription.Model != "base" {
		t.Fatalf("expected base whisper model by default, got %q", cfg.Transcription.Model)
	}
	if cfg.Transcription.CUDAEnabled {
		t.Fatal("expected CUDA disabled by default")
	}
	if cfg.Summarization.MaxTokens != 400 || cfg.Summarization.MinTokens != 100 {
		t.Fatalf("unexpected token limits: max=%d min=%d", cfg.Summarization.MaxTokens, cfg.Summarization.MinTokens)
	}
	if cfg.Summarization.Temperature != 0 {
		t.Fatalf("expected deterministic decoding, got temperature %v", cfg.Summarization.Temperature)
	}
	if cfg.Summarization.RetryAttempts != 1 {
		t.Fatalf("expected single attempt by default, got %d", cfg.Summarization.RetryAttempts)
	}
	if cfg.Notes.Strategy != config.StrategySplit {
		t.Fatalf("expected split strategy by default, got %q", cfg.Notes.Strategy)
	}
	if cfg.Notes.DownloadName != "cute_notes.txt" {
		t.Fatalf("unexpected download name: %q", cfg.Notes.DownloadName)
	}
	if cfg.Cache.Enabled {
		t.Fatal("expected transcript cache disabled by default")
	}
	if want := filepath.Join(tempHome, ".cache", "vidnotes", "transcripts"); cfg.Cache.Dir != want {
		t.Fatalf("unexpected cache dir: got %q want %q", cfg.Cache.Dir, want)
	}
	if cfg.SessionRetention() != 24*time.Hour {
		t.Fatalf("unexpected session retention: %s", cfg.SessionRetention())
	}
	if err := cfg.EnsureDirectories(); err != nil {
		t.Fatalf("EnsureDirectories failed: %v", err)
	}

	for _, dir := range []string{cfg.Paths.StagingDir, cfg.Paths.StateDir, cfg.Paths.LogDir} {
		info, err := os.Stat(dir)
		if err != nil {
			t.Fatalf("expected directory %q to exist: %v", dir, err)
		}
		if !info.IsDir() {
			t.Fatalf("expected %q to be directory", dir)
		}
	}
}

func TestLoadCustomPath(t *testing.T) {
	tempDir := t.TempDir()
	configPath := filepath.Join(tempDir, "vidnotes.toml")

	type payload struct {
		Paths struct {
			StagingDir string `toml:"staging_dir"`
		} `toml:"paths"`
		Summarization struct {
			Backend string `toml:"backend"`
			APIKey  string `toml:"api_key"`
		} `toml:"summarization"`
		Notes struct {
			Strategy string `toml:"strategy"`
		} `toml:"notes"`
		Server struct {
			AllowedExtensions []string `toml:"allowed_extensions"`
		} `toml:"server"`
	}
	custom := payload{}
	custom.Paths.StagingDir = filepath.Join(tempDir, "scratch")
	custom.Summarization.Backend = "Gemini"
	custom.Summarization.APIKey = "gemini-key"
	custom.Notes.Strategy = " PROMPT "
	custom.Server.AllowedExtensions = []string{".MP4", "mkv", "mkv", " "}

	data, err := toml.Marshal(custom)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if err := os.WriteFile(configPath, data, 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, resolved, exists, err := config.Load(configPath)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if !exists {
		t.Fatal("expected config file to exist")
	}
	if resolved != configPath {
		t.Fatalf("unexpected resolved path: %q", resolved)
	}
	if cfg.Paths.StagingDir != filepath.Join(tempDir, "scratch") {
		t.Fatalf("unexpected staging dir: %q", cfg.Paths.StagingDir)
	}
	if cfg.Summarization.Backend != config.BackendGemini {
		t.Fatalf("expected gemini backend, got %q", cfg.Summarization.Backend)
	}
	if cfg.Summarization.Model != "gemini-2.5-flash" {
		t.Fatalf("expected gemini default model, got %q", cfg.Summarization.Model)
	}
	if cfg.Notes.Strategy != config.StrategyPrompt {
		t.Fatalf("expected prompt strategy, got %q", cfg.Notes.Strategy)
	}
	if got := strings.Join(cfg.Server.AllowedExtensions, ","); got != "mp4,mkv" {
		t.Fatalf("unexpected allowed extensions: %q", got)
	}
}

func TestLoadRejectsInvalidValues(t *testing.T) {
	tests := []struct {
		name    string
		body    string
		wantErr string
	}{
		{
			name:    "unknown engine",
			body:    "[transcription]\nengine = \"vosk\"\n[summarization]\nbackend = \"extractive\"\n",
			wantErr: "transcription.engine",
		},
		{
			name:    "unknown strategy",
			body:    "[summarization]\nbackend = \"extractive\"\n[notes]\nstrategy = \"merge\"\n",
			wantErr: "notes.strategy",
		},
		{
			name:    "prompt needs a model",
			body:    "[summarization]\nbackend = \"extractive\"\n[notes]\nstrategy = \"prompt\"\n",
			wantErr: "requires a model backend",
		},
		{
			name:    "min above max",
			body:    "[summarization]\nbackend = \"extractive\"\nmax_tokens = 50\nmin_tokens = 60\n",
			wantErr: "min_tokens",
		},
		{
			name:    "bad bind",
			body:    "[server]\nbind = \"localhost\"\n[summarization]\nbackend = \"extractive\"\n",
			wantErr: "server.bind",
		},
		{
			name:    "unknown language",
			body:    "[transcription]\nlanguage = \"klingon\"\n[summarization]\nbackend = \"extractive\"\n",
			wantErr: "transcription.language",
		},
		{
			name:    "download name with path",
			body:    "[summarization]\nbackend = \"extractive\"\n[notes]\ndownload_name = \"../notes.txt\"\n",
			wantErr: "download_name",
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Setenv("HOME", t.TempDir())
			path := filepath.Join(t.TempDir(), "config.toml")
			if err := os.WriteFile(path, []byte(tc.body), 0o644); err != nil {
				t.Fatalf("write config: %v", err)
			}
			_, _, _, err := config.Load(path)
			if err == nil {
				t.Fatalf("expected error containing %q", tc.wantErr)
			}
			if !strings.Contains(err.Error(), tc.wantErr) {
				t.Fatalf("expected error containing %q, got %v", tc.wantErr, err)
			}
		})
	}
}

func TestLoadRequiresSummarizationKey(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	for _, key := range []string{"OPENAI_API_KEY", "OPENROUTER_API_KEY", "DEEPSEEK_API_KEY"} {
		t.Setenv(key, "")
	}
	_, _, _, err := config.Load(filepath.Join(t.TempDir(), "missing.toml"))
	if err == nil {
		t.Fatal("expected error when no summarization key is available")
	}
	if !strings.Contains(err.Error(), "summarization.api_key") {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestLoadNormalizesTranscriptionLanguage(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	path := filepath.Join(t.TempDir(), "config.toml")
	body := "[transcription]\nlanguage = \"French\"\n[summarization]\nbackend = \"extractive\"\n"
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	cfg, _, _, err := config.Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Transcription.Language != "fr" {
		t.Fatalf("expected fr, got %q", cfg.Transcription.Language)
	}
}

func TestAllowsExtension(t *testing.T) {
	cfg := config.Default()
	for _, ext := range []string{".mp4", "MOV", ".avi", "mkv"} {
		if !cfg.AllowsExtension(ext) {
			t.Fatalf("expected %q to be allowed", ext)
		}
	}
	for _, ext := range []string{"", ".webm", ".txt", "."} {
		if cfg.AllowsExtension(ext) {
			t.Fatalf("expected %q to be rejected", ext)
		}
	}
}

func TestCreateSampleRoundTrips(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	t.Setenv("OPENAI_API_KEY", "sample-key")
	path := filepath.Join(t.TempDir(), "nested", "config.toml")
	if err := config.CreateSample(path); err != nil {
		t.Fatalf("CreateSample: %v", err)
	}
	cfg, _, exists, err := config.Load(path)
	if err != nil {
		t.Fatalf("sample config should load: %v", err)
	}
	if !exists {
		t.Fatal("expected sample config to exist")
	}
	if cfg.Notes.DownloadName != "cute_notes.txt" {
		t.Fatalf("unexpected download name from sample: %q", cfg.Notes.DownloadName)
	}
}
