// Package llm wraps an OpenAI-compatible API (OpenAI, OpenRouter, DeepSeek, or
// a local server) for the two model calls vidnotes makes: chat completions for
// summaries and audio transcriptions.
//
// # Entry Points
//
// NewClient: construct a client from Config.
// Client.Complete: send a single user prompt and return the model's text.
// Client.Transcribe: upload a waveform and return its transcript.
// Client.HealthCheck: verify the endpoint and key by listing models.
//
// # Retry Behaviour
//
// The client retries on HTTP 408/429/5xx errors and network timeouts with
// exponential backoff (base 1s, max 10s). Summaries default to a single
// attempt; callers raise it with WithRetryMaxAttempts. Context cancellation
// aborts retries immediately.
//
// # Error Classification
//
// Classify maps API failures onto the services error markers: authentication
// failures become configuration errors, rejected payloads become validation
// errors, deadlines become timeouts, and everything else is an external tool
// failure.
package llm
