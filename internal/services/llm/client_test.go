package llm

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"vidnotes/internal/services"
)

func chatResponse(content string) map[string]any {
	return map[string]any{
		"id":     "chatcmpl-1",
		"object": "chat.completion",
		"model":  "demo-model",
		"choices": []any{
			map[string]any{
				"index":         0,
				"finish_reason": "stop",
				"message": map[string]any{
					"role":    "assistant",
					"content": content,
				},
			},
		},
	}
}

func TestCompleteSendsDeterministicRequest(t *testing.T) {
	var captured map[string]any
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/chat/completions" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if got := r.Header.Get("Authorization"); got != "Bearer test-key" {
			t.Errorf("unexpected auth header %q", got)
		}
		if err := json.NewDecoder(r.Body).Decode(&captured); err != nil {
			t.Errorf("decode request: %v", err)
		}
		_ = json.NewEncoder(w).Encode(chatResponse("  Summary sentence.  "))
	}))
	defer server.Close()

	client := NewClient(Config{APIKey: "test-key", BaseURL: server.URL + "/v1", Model: "demo-model"})
	content, err := client.Complete(context.Background(), CompletionRequest{Prompt: "summarize", MaxTokens: 400, Seed: 42})
	if err != nil {
		t.Fatalf("Complete returned error: %v", err)
	}
	if content != "Summary sentence." {
		t.Fatalf("unexpected content %q", content)
	}
	if captured["model"] != "demo-model" {
		t.Fatalf("unexpected model %v", captured["model"])
	}
	if captured["max_tokens"] != float64(400) || captured["seed"] != float64(42) {
		t.Fatalf("unexpected limits: %v", captured)
	}
	if temp, ok := captured["temperature"].(float64); !ok || temp <= 0 || temp > 1e-6 {
		t.Fatalf("expected near-zero temperature on the wire, got %v", captured["temperature"])
	}
}

func TestCompleteRetriesOnServerError(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) == 1 {
			w.WriteHeader(http.StatusServiceUnavailable)
			_, _ = w.Write([]byte(`{"error":{"message":"overloaded","type":"server_error"}}`))
			return
		}
		_ = json.NewEncoder(w).Encode(chatResponse("ok"))
	}))
	defer server.Close()

	var slept []time.Duration
	client := NewClient(
		Config{APIKey: "k", BaseURL: server.URL + "/v1", Model: "m"},
		WithRetryMaxAttempts(3),
		WithRetryBackoff(time.Second, 4*time.Second),
		WithSleeper(func(d time.Duration) { slept = append(slept, d) }),
	)
	content, err := client.Complete(context.Background(), CompletionRequest{Prompt: "p"})
	if err != nil {
		t.Fatalf("Complete returned error: %v", err)
	}
	if content != "ok" || calls.Load() != 2 {
		t.Fatalf("expected success on second call, got %q after %d calls", content, calls.Load())
	}
	if len(slept) != 1 || slept[0] != time.Second {
		t.Fatalf("unexpected backoff %v", slept)
	}
}

func TestCompleteDoesNotRetryByDefault(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte(`{"error":{"message":"boom"}}`))
	}))
	defer server.Close()

	client := NewClient(Config{APIKey: "k", BaseURL: server.URL + "/v1", Model: "m"})
	_, err := client.Complete(context.Background(), CompletionRequest{Prompt: "p"})
	if err == nil {
		t.Fatal("expected error")
	}
	if calls.Load() != 1 {
		t.Fatalf("expected a single attempt, got %d", calls.Load())
	}
	if !errors.Is(Classify("notes", "summarize", err), services.ErrTransient) {
		t.Fatalf("expected transient classification for 5xx, got %v", Classify("notes", "summarize", err))
	}
}

func TestClassifyAuthFailureIsConfiguration(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"error":{"message":"invalid api key","type":"invalid_request_error"}}`))
	}))
	defer server.Close()

	client := NewClient(Config{APIKey: "bad", BaseURL: server.URL + "/v1", Model: "m"}, WithRetryMaxAttempts(3))
	_, err := client.Complete(context.Background(), CompletionRequest{Prompt: "p"})
	classified := Classify("notes", "summarize", err)
	if !errors.Is(classified, services.ErrConfiguration) {
		t.Fatalf("expected configuration error, got %v", classified)
	}
}

func TestTranscribeUploadsAudio(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/audio/transcriptions" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if err := r.ParseMultipartForm(1 << 20); err != nil {
			t.Errorf("parse multipart: %v", err)
		}
		if got := r.FormValue("model"); got != "whisper-1" {
			t.Errorf("unexpected model %q", got)
		}
		if _, _, err := r.FormFile("file"); err != nil {
			t.Errorf("expected file part: %v", err)
		}
		_ = json.NewEncoder(w).Encode(map[string]any{"text": " hello world ", "language": "english"})
	}))
	defer server.Close()

	audio := filepath.Join(t.TempDir(), "audio.wav")
	if err := os.WriteFile(audio, []byte("RIFF"), 0o644); err != nil {
		t.Fatal(err)
	}
	client := NewClient(Config{APIKey: "k", BaseURL: server.URL + "/v1"})
	result, err := client.Transcribe(context.Background(), audio, "")
	if err != nil {
		t.Fatalf("Transcribe returned error: %v", err)
	}
	if result.Text != "hello world" || result.Language != "english" {
		t.Fatalf("unexpected transcription %+v", result)
	}
}

func TestBackoffDelayCaps(t *testing.T) {
	client := NewClient(Config{}, WithRetryBackoff(time.Second, 3*time.Second))
	tests := map[int]time.Duration{1: time.Second, 2: 2 * time.Second, 3: 3 * time.Second, 6: 3 * time.Second}
	for attempt, want := range tests {
		if got := client.backoffDelay(attempt); got != want {
			t.Fatalf("attempt %d: got %s want %s", attempt, got, want)
		}
	}
}

func TestCompleteRequiresPrompt(t *testing.T) {
	client := NewClient(Config{APIKey: "k"})
	if _, err := client.Complete(context.Background(), CompletionRequest{Prompt: "  "}); err == nil || !strings.Contains(err.Error(), "prompt required") {
		t.Fatalf("expected prompt error, got %v", err)
	}
}
