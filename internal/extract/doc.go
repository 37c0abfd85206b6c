// Package extract turns an uploaded video into the mono 16 kHz waveform the
// transcription engines consume.
//
// The container is probed before decoding so a video without sound fails fast
// with ErrNoAudioTrack and no model is ever invoked on it. After ffmpeg runs,
// the waveform is probed again and rejected with ErrEmptyWaveform when it
// carries no samples.
package extract
