package config

const (
	defaultConfigPath             = "~/.config/vidnotes/config.toml"
	defaultStagingDir             = "~/.local/share/vidnotes/staging"
	defaultStateDir               = "~/.local/share/vidnotes"
	defaultLogDir                 = "~/.local/share/vidnotes/logs"
	defaultServerBind             = "127.0.0.1:8501"
	defaultMaxUploadMB            = 1024
	defaultMaxConcurrent          = 2
	defaultTranscriptionEngine    = EngineWhisperX
	defaultWhisperModel           = "base"
	defaultOpenAITranscribeModel  = "whisper-1"
	defaultTranscribeTimeout      = 1800
	defaultSummarizationBackend   = BackendOpenAI
	defaultOpenAISummaryModel     = "gpt-4o-mini"
	defaultGeminiSummaryModel     = "gemini-2.5-flash"
	defaultSummaryMaxTokens       = 400
	defaultSummaryMinTokens       = 100
	defaultSummarySeed            = 42
	defaultSummaryTimeoutSeconds  = 120
	defaultSummaryRetryAttempts   = 1
	defaultExtractiveSentences    = 8
	defaultNotesStrategy          = StrategySplit
	defaultDownloadName           = "cute_notes.txt"
	defaultHeadingWords           = 4
	defaultCacheTTLHours          = 24 * 30
	defaultSessionRetentionHours  = 24
	defaultCleanupIntervalMinutes = 15
	defaultStagingMaxAgeMinutes   = 120
	defaultWatchMaxConcurrent     = 1
	defaultWatchSettleMillis      = 500
	defaultNtfyTimeoutSeconds     = 10
	defaultLogFormat              = "console"
	defaultLogLevel               = "info"
)

// Transcription engines.
const (
	EngineWhisperX = "whisperx"
	EngineOpenAI   = "openai"
)

// Summarization backends.
const (
	BackendOpenAI     = "openai"
	BackendGemini     = "gemini"
	BackendExtractive = "extractive"
)

// Note strategies.
const (
	StrategySplit  = "split"
	StrategyPrompt = "prompt"
)

var defaultAllowedExtensions = []string{"mp4", "mov", "avi", "mkv"}

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			StagingDir: defaultStagingDir,
			StateDir:   defaultStateDir,
			LogDir:     defaultLogDir,
		},
		Server: Server{
			Bind:              defaultServerBind,
			MaxUploadMB:       defaultMaxUploadMB,
			MaxConcurrent:     defaultMaxConcurrent,
			AllowedExtensions: append([]string(nil), defaultAllowedExtensions...),
		},
		Transcription: Transcription{
			Engine:         defaultTranscriptionEngine,
			Model:          defaultWhisperModel,
			OpenAIModel:    defaultOpenAITranscribeModel,
			TimeoutSeconds: defaultTranscribeTimeout,
		},
		Summarization: Summarization{
			Backend:             defaultSummarizationBackend,
			MaxTokens:           defaultSummaryMaxTokens,
			MinTokens:           defaultSummaryMinTokens,
			Seed:                defaultSummarySeed,
			TimeoutSeconds:      defaultSummaryTimeoutSeconds,
			RetryAttempts:       defaultSummaryRetryAttempts,
			ExtractiveSentences: defaultExtractiveSentences,
		},
		Notes: Notes{
			Strategy:     defaultNotesStrategy,
			DownloadName: defaultDownloadName,
			HeadingWords: defaultHeadingWords,
		},
		Cache: Cache{
			Dir:      defaultCacheDir(),
			TTLHours: defaultCacheTTLHours,
		},
		Session: Session{
			RetentionHours:       defaultSessionRetentionHours,
			CleanupIntervalMins:  defaultCleanupIntervalMinutes,
			StagingMaxAgeMinutes: defaultStagingMaxAgeMinutes,
		},
		Watch: Watch{
			MaxConcurrent: defaultWatchMaxConcurrent,
			SettleMillis:  defaultWatchSettleMillis,
		},
		Notifications: Notifications{
			RequestTimeoutSeconds: defaultNtfyTimeoutSeconds,
		},
		Logging: Logging{
			Format: defaultLogFormat,
			Level:  defaultLogLevel,
		},
	}
}
