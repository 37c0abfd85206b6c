package summarize

import (
	"context"
	"strings"

	"vidnotes/internal/services"
	"vidnotes/internal/services/llm"
)

// OpenAI summarizes through an OpenAI-compatible chat completions endpoint.
type OpenAI struct {
	client      *llm.Client
	temperature float64
	seed        int
}

// NewOpenAI wraps client as a Summarizer.
func NewOpenAI(client *llm.Client, temperature float64, seed int) *OpenAI {
	return &OpenAI{client: client, temperature: temperature, seed: seed}
}

// Name reports the backend identifier.
func (o *OpenAI) Name() string {
	return "openai"
}

// Summarize sends a single-turn completion and returns the model's reply.
func (o *OpenAI) Summarize(ctx context.Context, req Request) (string, error) {
	if strings.TrimSpace(req.Text) == "" {
		return "", services.Wrap(services.ErrValidation, stageName, "openai", "", ErrEmptySummary)
	}
	content, err := o.client.Complete(ctx, llm.CompletionRequest{
		Prompt:      promptFor(req),
		MaxTokens:   req.MaxTokens,
		Temperature: o.temperature,
		Seed:        o.seed,
	})
	if err != nil {
		return "", llm.Classify(stageName, "openai", err)
	}
	if content == "" {
		return "", services.Wrap(services.ErrExternalTool, stageName, "openai", "", ErrEmptySummary)
	}
	return content, nil
}
