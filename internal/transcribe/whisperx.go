package transcribe

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"vidnotes/internal/language"
	"vidnotes/internal/services"
)

// WhisperX invocation constants.
const (
	DefaultWhisperXModel = "base"
	UVXCommand           = "uvx"
	CUDAIndexURL         = "https://download.pytorch.org/whl/cu128"
	PypiIndexURL         = "https://pypi.org/simple"
	BatchSize            = "4"
	ChunkSize            = "15"
	VADOnset             = "0.08"
	VADOffset            = "0.07"
	BeamSize             = "5"
	Temperature          = "0.0"
	OutputFormat         = "json"
	CPUDevice            = "cpu"
	CUDADevice           = "cuda"
	CPUComputeType       = "float32"
	VADMethodPyannote    = "pyannote"
	VADMethodSilero      = "silero"
	whisperXOutputDir    = "whisperx"
)

// WhisperXConfig captures runtime settings for the local engine.
type WhisperXConfig struct {
	Model       string
	Language    string
	CUDAEnabled bool
	// HFToken switches voice activity detection to pyannote.
	HFToken string
	Timeout time.Duration
}

// WhisperX transcribes audio with the whisperx CLI run through uvx.
type WhisperX struct {
	cfg           WhisperXConfig
	commandRunner func(ctx context.Context, name string, args ...string) error
}

// NewWhisperX creates a WhisperX engine with the given configuration.
func NewWhisperX(cfg WhisperXConfig) *WhisperX {
	if strings.TrimSpace(cfg.Model) == "" {
		cfg.Model = DefaultWhisperXModel
	}
	return &WhisperX{cfg: cfg}
}

// WithCommandRunner sets a custom command runner (for testing).
func (w *WhisperX) WithCommandRunner(runner func(ctx context.Context, name string, args ...string) error) {
	w.commandRunner = runner
}

// Name reports the engine identifier.
func (w *WhisperX) Name() string {
	return "whisperx"
}

// Model returns the configured model name.
func (w *WhisperX) Model() string {
	return w.cfg.Model
}

// Transcribe runs whisperx over audioPath, writing its JSON output next to the
// waveform, and joins the segment texts.
func (w *WhisperX) Transcribe(ctx context.Context, audioPath string) (Transcript, error) {
	result := Transcript{Engine: w.Name()}
	if strings.TrimSpace(audioPath) == "" {
		return result, services.Wrap(services.ErrValidation, stageName, "whisperx", "audio path required", nil)
	}
	outputDir := filepath.Join(filepath.Dir(audioPath), whisperXOutputDir)
	if err := os.MkdirAll(outputDir, 0o755); err != nil {
		return result, services.Wrap(services.ErrConfiguration, stageName, "whisperx", "ensure output dir", err)
	}

	if w.cfg.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, w.cfg.Timeout)
		defer cancel()
	}
	if err := w.run(ctx, UVXCommand, w.buildArgs(audioPath, outputDir)...); err != nil {
		if ctx.Err() != nil {
			return result, services.Wrap(services.ErrTimeout, stageName, "whisperx", "", err)
		}
		return result, services.Wrap(services.ErrExternalTool, stageName, "whisperx", "", err)
	}

	baseName := strings.TrimSuffix(filepath.Base(audioPath), filepath.Ext(audioPath))
	payload, err := loadPayload(filepath.Join(outputDir, baseName+".json"))
	if err != nil {
		return result, services.Wrap(services.ErrExternalTool, stageName, "whisperx", "read output", err)
	}
	result.Text = payload.text()
	result.Language = language.ToISO2(payload.Language)
	if result.Text == "" {
		return result, services.Wrap(services.ErrValidation, stageName, "whisperx", "", ErrEmptyTranscript)
	}
	return result, nil
}

func (w *WhisperX) run(ctx context.Context, name string, args ...string) error {
	if w.commandRunner != nil {
		return w.commandRunner(ctx, name, args...)
	}
	cmd := exec.CommandContext(ctx, name, args...) //nolint:gosec

	// Torch 2.6 changed torch.load default to weights_only=true, breaking WhisperX/pyannote.
	if os.Getenv("TORCH_FORCE_NO_WEIGHTS_ONLY_LOAD") == "" {
		cmd.Env = append(os.Environ(), "TORCH_FORCE_NO_WEIGHTS_ONLY_LOAD=1")
	}

	if output, err := cmd.CombinedOutput(); err != nil {
		return fmt.Errorf("%s: %w: %s", name, err, strings.TrimSpace(string(output)))
	}
	return nil
}

func (w *WhisperX) buildArgs(source, outputDir string) []string {
	args := make([]string, 0, 40)

	if w.cfg.CUDAEnabled {
		args = append(args,
			"--index-url", CUDAIndexURL,
			"--extra-index-url", PypiIndexURL,
		)
	} else {
		args = append(args, "--index-url", PypiIndexURL)
	}

	args = append(args,
		"whisperx",
		source,
		"--model", w.cfg.Model,
		"--batch_size", BatchSize,
		"--output_dir", outputDir,
		"--output_format", OutputFormat,
		"--chunk_size", ChunkSize,
		"--vad_onset", VADOnset,
		"--vad_offset", VADOffset,
		"--beam_size", BeamSize,
		"--temperature", Temperature,
	)

	if token := strings.TrimSpace(w.cfg.HFToken); token != "" {
		args = append(args, "--vad_method", VADMethodPyannote, "--hf_token", token)
	} else {
		args = append(args, "--vad_method", VADMethodSilero)
	}

	if lang := strings.ToLower(strings.TrimSpace(w.cfg.Language)); lang != "" {
		args = append(args, "--language", lang)
	}

	if w.cfg.CUDAEnabled {
		args = append(args, "--device", CUDADevice)
	} else {
		args = append(args, "--device", CPUDevice, "--compute_type", CPUComputeType)
	}
	return args
}

// Segment represents a transcribed segment from WhisperX JSON output.
type Segment struct {
	Text  string  `json:"text"`
	Start float64 `json:"start"`
	End   float64 `json:"end"`
}

type whisperXPayload struct {
	Segments []Segment `json:"segments"`
	Language string    `json:"language"`
}

func (p whisperXPayload) text() string {
	parts := make([]string, 0, len(p.Segments))
	for _, seg := range p.Segments {
		if text := strings.TrimSpace(seg.Text); text != "" {
			parts = append(parts, text)
		}
	}
	return strings.Join(parts, " ")
}

func loadPayload(jsonPath string) (whisperXPayload, error) {
	var payload whisperXPayload
	data, err := os.ReadFile(jsonPath)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return payload, fmt.Errorf("whisperx produced no output at %s", jsonPath)
		}
		return payload, err
	}
	if err := json.Unmarshal(data, &payload); err != nil {
		return payload, fmt.Errorf("parse whisperx json: %w", err)
	}
	return payload, nil
}
