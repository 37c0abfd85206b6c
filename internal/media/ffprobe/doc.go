// Package ffprobe provides a typed wrapper around ffprobe JSON output.
//
// Inspect executes ffprobe and returns a Result; Parse decodes a captured
// payload. Helper methods on Result expose stream counts, the primary audio
// stream, and duration parsing used by the audio extractor to reject videos
// without sound and waveforms without samples.
package ffprobe
