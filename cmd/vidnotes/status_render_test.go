package main

import (
	"strings"
	"testing"
	"time"

	"vidnotes/internal/session"
)

func TestRenderStatusLine(t *testing.T) {
	plain := renderStatusLine("FFmpeg", statusOK, "ffmpeg", false)
	if !strings.HasPrefix(plain, "  FFmpeg:") || !strings.HasSuffix(plain, "[OK] ffmpeg") {
		t.Fatalf("unexpected plain line %q", plain)
	}
	colored := renderStatusLine("FFmpeg", statusError, "missing", true)
	if !strings.HasPrefix(colored, ansiRed) || !strings.HasSuffix(colored, ansiReset) {
		t.Fatalf("expected red line, got %q", colored)
	}
	if got := renderStatusLine("Cache", statusInfo, "", false); !strings.HasSuffix(got, "[INFO]") {
		t.Fatalf("unexpected empty-message line %q", got)
	}
}

func TestRenderSessionTable(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	sess := &session.Session{
		ID:        "0123456789abcdef",
		Filename:  "talk.mov",
		Status:    session.StatusFailed,
		Stages:    []session.StageResult{{Stage: "upload", Status: session.StageOK}, {Stage: "extract", Status: session.StageFailed}},
		CreatedAt: now.Add(-90 * time.Minute),
		ExpiresAt: now.Add(-time.Minute),
	}
	out := renderSessionTable([]*session.Session{sess}, now)
	for _, want := range []string{"01234567", "talk.mov", "failed", "1/4", "1h ago", "expired"} {
		if !strings.Contains(out, want) {
			t.Fatalf("expected %q in table: %q", want, out)
		}
	}
	if strings.Contains(out, "89abcdef") {
		t.Fatalf("expected shortened id, got %q", out)
	}
}

func TestHumanAge(t *testing.T) {
	cases := map[time.Duration]string{
		-time.Second:     "0s",
		30 * time.Second: "30s",
		5 * time.Minute:  "5m",
		3 * time.Hour:    "3h",
		72 * time.Hour:   "3d",
	}
	for d, want := range cases {
		if got := humanAge(d); got != want {
			t.Fatalf("humanAge(%v) = %q, want %q", d, got, want)
		}
	}
}

func TestPrintProcessResultShowsFailureReason(t *testing.T) {
	var buf strings.Builder
	printProcessResult(&buf, processOutput{Session: &session.Session{
		ID:       "1a2b3c4d-0000-0000-0000-000000000000",
		Filename: "talk.mp4",
		Stages: []session.StageResult{
			{Stage: "upload", Status: session.StageOK, Message: "Video uploaded successfully!"},
			{Stage: "extract", Status: session.StageFailed, Message: "Extract audio failed", Error: "extract probe source: video has no audio track"},
			{Stage: "transcribe", Status: session.StageSkipped, Message: "Transcribe audio skipped"},
		},
	}})

	out := buf.String()
	for _, want := range []string{
		"Video uploaded successfully!",
		"FAILED  extract probe source: video has no audio track",
		"SKIPPED  Transcribe audio skipped",
	} {
		if !strings.Contains(out, want) {
			t.Fatalf("expected %q in output, got %q", want, out)
		}
	}
}
