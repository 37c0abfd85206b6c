package preflight

import (
	"context"

	"vidnotes/internal/config"
)

// Result reports the outcome of a single preflight check.
type Result struct {
	Name   string `json:"name"`
	Passed bool   `json:"passed"`
	Detail string `json:"detail"`
}

// RunAll executes all applicable preflight checks for the given config.
// Model endpoint checks only run for the configured engine and backend.
func RunAll(ctx context.Context, cfg *config.Config) []Result {
	if cfg == nil {
		return nil
	}

	results := []Result{
		CheckDirectoryAccess("Staging directory", cfg.Paths.StagingDir),
		CheckDirectoryAccess("State directory", cfg.Paths.StateDir),
	}

	if cfg.Transcription.Engine == config.EngineOpenAI {
		results = append(results, CheckLLM(ctx, "Transcription API", LLMTarget{
			APIKey:  cfg.Transcription.OpenAIAPIKey,
			BaseURL: cfg.Transcription.OpenAIBaseURL,
			Model:   cfg.Transcription.OpenAIModel,
		}))
	}

	switch cfg.Summarization.Backend {
	case config.BackendOpenAI:
		results = append(results, CheckLLM(ctx, "Summarization API", LLMTarget{
			APIKey:  cfg.Summarization.APIKey,
			BaseURL: cfg.Summarization.BaseURL,
			Model:   cfg.Summarization.Model,
		}))
	case config.BackendGemini:
		results = append(results, CheckGeminiKey(cfg.Summarization.APIKey))
	case config.BackendExtractive:
		results = append(results, Result{Name: "Summarization", Passed: true, Detail: "offline extractive summarizer"})
	}

	return results
}

// Failed returns the results that did not pass.
func Failed(results []Result) []Result {
	var out []Result
	for _, r := range results {
		if !r.Passed {
			out = append(out, r)
		}
	}
	return out
}
