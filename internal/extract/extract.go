package extract

import (
	"context"
	"errors"
	"fmt"
	"math"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"vidnotes/internal/media/ffprobe"
	"vidnotes/internal/services"
)

// WaveformName is the file name of the extracted audio inside a session directory.
const WaveformName = "audio.wav"

const stageName = "extract"

var (
	// ErrNoAudioTrack indicates the source container has no audio stream.
	ErrNoAudioTrack = errors.New("video has no audio track")
	// ErrEmptyWaveform indicates ffmpeg produced a waveform without samples.
	ErrEmptyWaveform = errors.New("extracted waveform is empty")
	// ErrWaveformFormat indicates the waveform is not mono 16 kHz audio.
	ErrWaveformFormat = errors.New("extracted waveform has unexpected format")
)

const (
	waveformSampleRate = 16000
	waveformChannels   = 1
)

// Runner executes an external command.
type Runner func(ctx context.Context, name string, args ...string) error

// ProbeFunc inspects a media file.
type ProbeFunc func(ctx context.Context, binary, path string) (ffprobe.Result, error)

// Result describes the extracted waveform.
type Result struct {
	AudioPath          string  `json:"audio_path"`
	DurationSeconds    float64 `json:"duration_seconds"`
	SampleRateHz       int     `json:"sample_rate_hz"`
	Channels           int     `json:"channels"`
	SourceAudioStreams int     `json:"source_audio_streams"`
	SourceVideoStreams int     `json:"source_video_streams"`
	SourceSizeBytes    int64   `json:"source_size_bytes"`
}

// Extractor decodes the primary audio track of a video with ffmpeg.
type Extractor struct {
	ffmpegBinary  string
	ffprobeBinary string
	runner        Runner
	probe         ProbeFunc
}

// Option customizes the extractor.
type Option func(*Extractor)

// WithRunner overrides command execution (used in tests).
func WithRunner(runner Runner) Option {
	return func(e *Extractor) {
		if runner != nil {
			e.runner = runner
		}
	}
}

// WithProbe overrides ffprobe inspection (used in tests).
func WithProbe(probe ProbeFunc) Option {
	return func(e *Extractor) {
		if probe != nil {
			e.probe = probe
		}
	}
}

// New constructs an extractor using the given ffmpeg and ffprobe binaries.
func New(ffmpegBinary, ffprobeBinary string, opts ...Option) *Extractor {
	if strings.TrimSpace(ffmpegBinary) == "" {
		ffmpegBinary = "ffmpeg"
	}
	if strings.TrimSpace(ffprobeBinary) == "" {
		ffprobeBinary = "ffprobe"
	}
	e := &Extractor{
		ffmpegBinary:  ffmpegBinary,
		ffprobeBinary: ffprobeBinary,
		runner:        runCommand,
		probe:         ffprobe.Inspect,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Extract probes videoPath, decodes its first audio stream into destDir, and
// verifies the resulting waveform is mono 16 kHz with a positive duration.
func (e *Extractor) Extract(ctx context.Context, videoPath, destDir string) (Result, error) {
	var result Result
	if strings.TrimSpace(videoPath) == "" {
		return result, services.Wrap(services.ErrValidation, stageName, "prepare", "video path required", nil)
	}
	if strings.TrimSpace(destDir) == "" {
		destDir = filepath.Dir(videoPath)
	}
	if err := os.MkdirAll(destDir, 0o755); err != nil {
		return result, services.Wrap(services.ErrConfiguration, stageName, "prepare", "ensure output dir", err)
	}

	source, err := e.probe(ctx, e.ffprobeBinary, videoPath)
	if err != nil {
		return result, wrapToolError(ctx, "probe source", "container unreadable", err)
	}
	result.SourceAudioStreams = source.AudioStreamCount()
	result.SourceVideoStreams = source.VideoStreamCount()
	result.SourceSizeBytes = source.SizeBytes()
	if result.SourceAudioStreams == 0 {
		return result, services.Wrap(services.ErrValidation, stageName, "probe source", filepath.Base(videoPath), ErrNoAudioTrack)
	}

	dest := filepath.Join(destDir, WaveformName)
	if err := e.runner(ctx, e.ffmpegBinary, buildArgs(videoPath, dest)...); err != nil {
		return result, wrapToolError(ctx, "ffmpeg", "decode audio", err)
	}

	waveform, err := e.probe(ctx, e.ffprobeBinary, dest)
	if err != nil {
		return result, wrapToolError(ctx, "probe waveform", "", err)
	}
	duration := waveform.DurationSeconds()
	if math.IsNaN(duration) || duration <= 0 {
		return result, services.Wrap(services.ErrValidation, stageName, "probe waveform", fmt.Sprintf("duration %v", duration), ErrEmptyWaveform)
	}

	stream, ok := waveform.PrimaryAudio()
	if !ok {
		return result, services.Wrap(services.ErrExternalTool, stageName, "probe waveform", "no audio stream", ErrWaveformFormat)
	}
	if rate := stream.SampleRateHz(); rate != waveformSampleRate || stream.Channels != waveformChannels {
		return result, services.Wrap(services.ErrExternalTool, stageName, "probe waveform",
			fmt.Sprintf("%d Hz, %d channels", rate, stream.Channels), ErrWaveformFormat)
	}

	result.AudioPath = dest
	result.DurationSeconds = duration
	result.SampleRateHz = stream.SampleRateHz()
	result.Channels = stream.Channels
	return result, nil
}

func buildArgs(source, dest string) []string {
	return []string{
		"-y",
		"-hide_banner",
		"-loglevel", "error",
		"-i", source,
		"-map", "0:a:0",
		"-vn",
		"-sn",
		"-dn",
		"-ac", "1",
		"-ar", "16000",
		"-c:a", "pcm_s16le",
		dest,
	}
}

func wrapToolError(ctx context.Context, operation, message string, err error) error {
	if ctx.Err() != nil || errors.Is(err, context.DeadlineExceeded) {
		return services.Wrap(services.ErrTimeout, stageName, operation, message, err)
	}
	return services.Wrap(services.ErrExternalTool, stageName, operation, message, err)
}

func runCommand(ctx context.Context, name string, args ...string) error {
	cmd := exec.CommandContext(ctx, name, args...) //nolint:gosec
	if output, err := cmd.CombinedOutput(); err != nil {
		return fmt.Errorf("%s: %w: %s", name, err, strings.TrimSpace(string(output)))
	}
	return nil
}
