// Package transcribe converts an extracted waveform into a plain-text transcript.
//
// Two engines implement Transcriber: WhisperX runs the local whisperx CLI via
// uvx, and OpenAI calls an OpenAI-compatible /audio/transcriptions endpoint.
// New selects the engine from configuration once at process start; the result
// is safe for concurrent use by every request. Cached wraps any engine with the
// BadgerDB transcript cache so identical audio is transcribed only once.
package transcribe
