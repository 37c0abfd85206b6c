package transcribe

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"vidnotes/internal/services"
)

func writeWhisperXOutput(t *testing.T, args []string, payload string) {
	t.Helper()
	var outputDir, source string
	for i, arg := range args {
		if arg == "--output_dir" && i+1 < len(args) {
			outputDir = args[i+1]
		}
		if arg == "whisperx" && i+1 < len(args) {
			source = args[i+1]
		}
	}
	if outputDir == "" || source == "" {
		t.Fatalf("missing output dir or source in args %v", args)
	}
	base := strings.TrimSuffix(filepath.Base(source), filepath.Ext(source))
	if err := os.WriteFile(filepath.Join(outputDir, base+".json"), []byte(payload), 0o644); err != nil {
		t.Fatalf("write output: %v", err)
	}
}

func TestWhisperXTranscribeJoinsSegments(t *testing.T) {
	audio := filepath.Join(t.TempDir(), "audio.wav")
	engine := NewWhisperX(WhisperXConfig{})
	var gotName string
	var gotArgs []string
	engine.WithCommandRunner(func(_ context.Context, name string, args ...string) error {
		gotName = name
		gotArgs = args
		writeWhisperXOutput(t, args, `{"language":"en","segments":[{"text":" Hello there. "},{"text":""},{"text":"General overview."}]}`)
		return nil
	})

	transcript, err := engine.Transcribe(context.Background(), audio)
	if err != nil {
		t.Fatalf("Transcribe returned error: %v", err)
	}
	if transcript.Text != "Hello there. General overview." {
		t.Fatalf("unexpected text %q", transcript.Text)
	}
	if transcript.Language != "en" || transcript.Engine != "whisperx" {
		t.Fatalf("unexpected metadata %+v", transcript)
	}
	if gotName != UVXCommand {
		t.Fatalf("expected uvx, got %q", gotName)
	}
	joined := strings.Join(gotArgs, " ")
	for _, fragment := range []string{"--model base", "--device cpu", "--compute_type float32", "--vad_method silero", "--index-url " + PypiIndexURL} {
		if !strings.Contains(joined, fragment) {
			t.Fatalf("expected %q in %q", fragment, joined)
		}
	}
	if strings.Contains(joined, "--language") {
		t.Fatalf("expected language detection when unset, got %q", joined)
	}
}

func TestWhisperXBuildArgsCUDAAndToken(t *testing.T) {
	engine := NewWhisperX(WhisperXConfig{Model: "small", Language: "EN", CUDAEnabled: true, HFToken: "hf_x"})
	joined := strings.Join(engine.buildArgs("/tmp/a.wav", "/tmp/out"), " ")
	for _, fragment := range []string{"--index-url " + CUDAIndexURL, "--extra-index-url " + PypiIndexURL, "--model small", "--device cuda", "--vad_method pyannote --hf_token hf_x", "--language en"} {
		if !strings.Contains(joined, fragment) {
			t.Fatalf("expected %q in %q", fragment, joined)
		}
	}
	if strings.Contains(joined, "--compute_type") {
		t.Fatalf("expected no compute type on cuda, got %q", joined)
	}
}

func TestWhisperXEmptyTranscript(t *testing.T) {
	audio := filepath.Join(t.TempDir(), "audio.wav")
	engine := NewWhisperX(WhisperXConfig{})
	engine.WithCommandRunner(func(_ context.Context, _ string, args ...string) error {
		writeWhisperXOutput(t, args, `{"segments":[{"text":"   "}]}`)
		return nil
	})
	_, err := engine.Transcribe(context.Background(), audio)
	if !errors.Is(err, ErrEmptyTranscript) {
		t.Fatalf("expected ErrEmptyTranscript, got %v", err)
	}
}

func TestWhisperXCommandFailure(t *testing.T) {
	audio := filepath.Join(t.TempDir(), "audio.wav")
	engine := NewWhisperX(WhisperXConfig{})
	engine.WithCommandRunner(func(context.Context, string, ...string) error {
		return errors.New("exit status 1")
	})
	_, err := engine.Transcribe(context.Background(), audio)
	if !errors.Is(err, services.ErrExternalTool) {
		t.Fatalf("expected external tool error, got %v", err)
	}
}

func TestWhisperXMissingOutput(t *testing.T) {
	audio := filepath.Join(t.TempDir(), "audio.wav")
	engine := NewWhisperX(WhisperXConfig{})
	engine.WithCommandRunner(func(context.Context, string, ...string) error { return nil })
	_, err := engine.Transcribe(context.Background(), audio)
	if err == nil || !strings.Contains(err.Error(), "no output") {
		t.Fatalf("expected missing output error, got %v", err)
	}
}
