package summarize

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"google.golang.org/genai"

	"vidnotes/internal/services"
)

// GeminiConfig captures the settings for the Gemini backend.
type GeminiConfig struct {
	APIKey         string
	BaseURL        string
	Model          string
	Temperature    float64
	Seed           int
	TimeoutSeconds int
}

// Gemini summarizes with Google's Gemini API.
type Gemini struct {
	client *genai.Client
	cfg    GeminiConfig
}

// NewGemini constructs the Gemini client once for the process lifetime.
func NewGemini(ctx context.Context, cfg GeminiConfig) (*Gemini, error) {
	if strings.TrimSpace(cfg.APIKey) == "" {
		return nil, services.Wrap(services.ErrConfiguration, stageName, "gemini", "api key required", nil)
	}
	clientCfg := &genai.ClientConfig{
		APIKey:  cfg.APIKey,
		Backend: genai.BackendGeminiAPI,
	}
	if cfg.TimeoutSeconds > 0 {
		clientCfg.HTTPClient = &http.Client{Timeout: time.Duration(cfg.TimeoutSeconds) * time.Second}
	}
	if base := strings.TrimSpace(cfg.BaseURL); base != "" {
		clientCfg.HTTPOptions = genai.HTTPOptions{BaseURL: base}
	}
	client, err := genai.NewClient(ctx, clientCfg)
	if err != nil {
		return nil, services.Wrap(services.ErrConfiguration, stageName, "gemini", "create client", err)
	}
	return &Gemini{client: client, cfg: cfg}, nil
}

// Name reports the backend identifier.
func (g *Gemini) Name() string {
	return "gemini"
}

// Summarize issues a GenerateContent call and concatenates the first candidate's text parts.
func (g *Gemini) Summarize(ctx context.Context, req Request) (string, error) {
	if strings.TrimSpace(req.Text) == "" {
		return "", services.Wrap(services.ErrValidation, stageName, "gemini", "", ErrEmptySummary)
	}
	genCfg := &genai.GenerateContentConfig{
		Temperature: genai.Ptr(float32(g.cfg.Temperature)),
	}
	if req.MaxTokens > 0 {
		genCfg.MaxOutputTokens = int32(req.MaxTokens)
	}
	if g.cfg.Seed != 0 {
		genCfg.Seed = genai.Ptr(int32(g.cfg.Seed))
	}

	result, err := g.client.Models.GenerateContent(ctx, g.cfg.Model, genai.Text(promptFor(req)), genCfg)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
			return "", services.Wrap(services.ErrTimeout, stageName, "gemini", "", err)
		}
		return "", services.Wrap(services.ErrExternalTool, stageName, "gemini", "generate content", err)
	}

	var text strings.Builder
	if result != nil && len(result.Candidates) > 0 && result.Candidates[0].Content != nil {
		for _, part := range result.Candidates[0].Content.Parts {
			if part != nil && part.Text != "" {
				text.WriteString(part.Text)
			}
		}
	}
	summary := strings.TrimSpace(text.String())
	if summary == "" {
		return "", services.Wrap(services.ErrExternalTool, stageName, "gemini", fmt.Sprintf("model %s", g.cfg.Model), ErrEmptySummary)
	}
	return summary, nil
}
