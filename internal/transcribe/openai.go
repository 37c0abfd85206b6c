package transcribe

import (
	"context"
	"strings"

	"vidnotes/internal/language"
	"vidnotes/internal/services"
	"vidnotes/internal/services/llm"
)

// OpenAI transcribes audio through an OpenAI-compatible audio endpoint.
type OpenAI struct {
	client   *llm.Client
	language string
}

// NewOpenAI wraps client as a Transcriber.
func NewOpenAI(client *llm.Client, lang string) *OpenAI {
	return &OpenAI{client: client, language: strings.TrimSpace(lang)}
}

// Name reports the engine identifier.
func (o *OpenAI) Name() string {
	return "openai"
}

// Transcribe uploads audioPath and returns the endpoint's text.
func (o *OpenAI) Transcribe(ctx context.Context, audioPath string) (Transcript, error) {
	result := Transcript{Engine: o.Name()}
	resp, err := o.client.Transcribe(ctx, audioPath, o.language)
	if err != nil {
		return result, llm.Classify(stageName, "openai", err)
	}
	result.Text = resp.Text
	result.Language = language.ToISO2(resp.Language)
	if result.Text == "" {
		return result, services.Wrap(services.ErrValidation, stageName, "openai", "", ErrEmptyTranscript)
	}
	return result, nil
}
