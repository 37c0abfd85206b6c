package main

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/pelletier/go-toml/v2"

	"vidnotes/internal/cache"
	"vidnotes/internal/config"
	"vidnotes/internal/pipeline"
	"vidnotes/internal/session"
	"vidnotes/internal/testsupport"
)

func writeTestConfig(t *testing.T, cfg *config.Config) string {
	t.Helper()
	data, err := toml.Marshal(cfg)
	if err != nil {
		t.Fatalf("marshal config: %v", err)
	}
	path := filepath.Join(testsupport.BaseDir(cfg), "config.toml")
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func runCLI(t *testing.T, configPath string, args ...string) (string, error) {
	t.Helper()
	cmd := newRootCommand()
	var stdout, stderr bytes.Buffer
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	flags := []string{"--log-level", "error"}
	if configPath != "" {
		flags = append(flags, "--config", configPath)
	}
	cmd.SetArgs(append(flags, args...))
	err := cmd.Execute()
	return stdout.String(), err
}

func TestConfigInitRefusesToOverwrite(t *testing.T) {
	target := filepath.Join(t.TempDir(), "nested", "vidnotes.toml")

	out, err := runCLI(t, "", "config", "init", "--path", target)
	if err != nil {
		t.Fatalf("config init: %v", err)
	}
	if !strings.Contains(out, "Wrote sample configuration") {
		t.Fatalf("unexpected output: %q", out)
	}
	data, err := os.ReadFile(target)
	if err != nil {
		t.Fatalf("read sample: %v", err)
	}
	if string(data) != config.SampleConfig() {
		t.Fatal("sample config content mismatch")
	}

	if _, err := runCLI(t, "", "config", "init", "--path", target); err == nil {
		t.Fatal("expected error when config already exists")
	}
	if _, err := runCLI(t, "", "config", "init", "--path", target, "--overwrite"); err != nil {
		t.Fatalf("config init --overwrite: %v", err)
	}
}

func TestConfigShowRedactsSecrets(t *testing.T) {
	cfg := testsupport.NewConfig(t, testsupport.WithAPIToken("very-secret-token"))
	path := writeTestConfig(t, cfg)

	out, err := runCLI(t, path, "config", "show")
	if err != nil {
		t.Fatalf("config show: %v", err)
	}
	if strings.Contains(out, "very-secret-token") {
		t.Fatalf("token leaked in output: %q", out)
	}
	if !strings.Contains(out, redacted) || !strings.Contains(out, "[server]") {
		t.Fatalf("unexpected config output: %q", out)
	}

	out, err = runCLI(t, path, "config", "show", "--show-secrets")
	if err != nil {
		t.Fatalf("config show --show-secrets: %v", err)
	}
	if !strings.Contains(out, "very-secret-token") {
		t.Fatalf("expected token with --show-secrets, got %q", out)
	}
}

func TestConfigValidate(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	path := writeTestConfig(t, cfg)

	out, err := runCLI(t, path, "config", "validate")
	if err != nil {
		t.Fatalf("config validate: %v", err)
	}
	if !strings.Contains(out, "Configuration valid") || !strings.Contains(out, path) {
		t.Fatalf("unexpected validate output: %q", out)
	}

	broken := filepath.Join(t.TempDir(), "broken.toml")
	if err := os.WriteFile(broken, []byte("[notes]\nstrategy = \"poem\"\n"), 0o644); err != nil {
		t.Fatalf("write broken config: %v", err)
	}
	if _, err := runCLI(t, broken, "config", "validate"); err == nil {
		t.Fatal("expected validation error for unknown strategy")
	}
}

func TestSessionsListShowRemove(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	path := writeTestConfig(t, cfg)
	store := testsupport.MustOpenStore(t, cfg)
	ctx := context.Background()

	sess := testsupport.NewSession(t, store, cfg, "lecture.mp4")
	sess.Status = session.StatusCompleted
	sess.Transcript = "Vectors have direction. Matrices transform vectors."
	sess.Notes = "### Topic 1: Vectors Have Direction\n- Vectors have direction.\n"
	sess.Stages = []session.StageResult{
		{Stage: pipeline.StageUpload, Status: session.StageOK},
		{Stage: pipeline.StageExtract, Status: session.StageOK},
		{Stage: pipeline.StageTranscribe, Status: session.StageOK},
		{Stage: pipeline.StageNotes, Status: session.StageOK, Message: "Cute notes ready!"},
	}
	if err := store.Update(ctx, sess); err != nil {
		t.Fatalf("Update: %v", err)
	}

	out, err := runCLI(t, path, "sessions", "list")
	if err != nil {
		t.Fatalf("sessions list: %v", err)
	}
	for _, want := range []string{sess.ID[:8], "lecture.mp4", "completed", "4/4"} {
		if !strings.Contains(out, want) {
			t.Fatalf("expected %q in list output: %q", want, out)
		}
	}

	out, err = runCLI(t, path, "sessions", "show", sess.ID[:8])
	if err != nil {
		t.Fatalf("sessions show: %v", err)
	}
	for _, want := range []string{sess.ID, "Cute Notes from Video", "### Topic 1: Vectors Have Direction", "Matrices transform vectors."} {
		if !strings.Contains(out, want) {
			t.Fatalf("expected %q in show output: %q", want, out)
		}
	}

	out, err = runCLI(t, path, "sessions", "show", "--json", sess.ID)
	if err != nil {
		t.Fatalf("sessions show --json: %v", err)
	}
	var decoded session.Session
	if err := json.Unmarshal([]byte(out), &decoded); err != nil {
		t.Fatalf("decode json: %v (%q)", err, out)
	}
	if decoded.Notes != sess.Notes {
		t.Fatalf("unexpected notes in json: %q", decoded.Notes)
	}

	if _, err := runCLI(t, path, "sessions", "rm", "ffffffff"); err == nil {
		t.Fatal("expected error removing unknown session")
	}
	out, err = runCLI(t, path, "sessions", "rm", sess.ID)
	if err != nil {
		t.Fatalf("sessions rm: %v", err)
	}
	if !strings.Contains(out, "Removed session "+sess.ID) {
		t.Fatalf("unexpected rm output: %q", out)
	}

	out, err = runCLI(t, path, "sessions", "list")
	if err != nil {
		t.Fatalf("sessions list after rm: %v", err)
	}
	if !strings.Contains(out, "No sessions") {
		t.Fatalf("expected empty list, got %q", out)
	}
}

func TestCleanupPurgesExpiredAndStale(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	path := writeTestConfig(t, cfg)
	store := testsupport.MustOpenStore(t, cfg)

	expired := &session.Session{Filename: "old.mp4", ExpiresAt: time.Now().Add(-time.Minute)}
	if err := store.Create(context.Background(), expired, time.Hour); err != nil {
		t.Fatalf("Create: %v", err)
	}
	stale := filepath.Join(cfg.Paths.StagingDir, session.NewID())
	if err := os.MkdirAll(stale, 0o755); err != nil {
		t.Fatalf("mkdir stale: %v", err)
	}
	old := time.Now().Add(-cfg.StagingMaxAge() - time.Hour)
	if err := os.Chtimes(stale, old, old); err != nil {
		t.Fatalf("chtimes: %v", err)
	}

	out, err := runCLI(t, path, "cleanup", "--list")
	if err != nil {
		t.Fatalf("cleanup --list: %v", err)
	}
	if !strings.Contains(out, filepath.Base(stale)) {
		t.Fatalf("expected staging dir in listing: %q", out)
	}

	out, err = runCLI(t, path, "cleanup")
	if err != nil {
		t.Fatalf("cleanup: %v", err)
	}
	if !strings.Contains(out, "Purged 1 expired session") || !strings.Contains(out, "Removed 1 staging directory") {
		t.Fatalf("unexpected cleanup output: %q", out)
	}
	if _, err := os.Stat(stale); !os.IsNotExist(err) {
		t.Fatalf("expected stale dir removed, stat err=%v", err)
	}
}

func TestCleanupOrphansKeepsRunningSessions(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	path := writeTestConfig(t, cfg)
	store := testsupport.MustOpenStore(t, cfg)

	running := testsupport.NewSession(t, store, cfg, "live.mp4")
	keep := filepath.Join(cfg.Paths.StagingDir, running.ID)
	orphan := filepath.Join(cfg.Paths.StagingDir, session.NewID())
	for _, dir := range []string{keep, orphan} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			t.Fatalf("mkdir: %v", err)
		}
	}

	if _, err := runCLI(t, path, "cleanup", "--orphans"); err != nil {
		t.Fatalf("cleanup --orphans: %v", err)
	}
	if _, err := os.Stat(keep); err != nil {
		t.Fatalf("running session dir removed: %v", err)
	}
	if _, err := os.Stat(orphan); !os.IsNotExist(err) {
		t.Fatalf("expected orphan removed, stat err=%v", err)
	}
}

func TestStatusJSON(t *testing.T) {
	cfg := testsupport.NewConfig(t, testsupport.WithStubbedBinaries())
	path := writeTestConfig(t, cfg)

	out, err := runCLI(t, path, "status", "--json")
	if err != nil {
		t.Fatalf("status: %v", err)
	}
	var report statusReport
	if err := json.Unmarshal([]byte(out), &report); err != nil {
		t.Fatalf("decode status: %v (%q)", err, out)
	}
	if report.Backend != config.BackendExtractive || report.ConfigPath != path || !report.ConfigFound {
		t.Fatalf("unexpected report: %+v", report)
	}
	if len(report.Dependencies) == 0 {
		t.Fatal("expected dependency statuses")
	}
	for _, dep := range report.Dependencies {
		if !dep.Available {
			t.Fatalf("expected stubbed %s to be available: %+v", dep.Name, dep)
		}
	}

	out, err = runCLI(t, path, "status")
	if err != nil {
		t.Fatalf("status text: %v", err)
	}
	for _, want := range []string{"== Configuration ==", "== Dependencies ==", "== Checks ==", "[OK]"} {
		if !strings.Contains(out, want) {
			t.Fatalf("expected %q in status output: %q", want, out)
		}
	}
	if strings.Contains(out, ansiReset) {
		t.Fatal("expected no color codes when writing to a buffer")
	}
}

func TestStatusCountsCachedTranscripts(t *testing.T) {
	cfg := testsupport.NewConfig(t, testsupport.WithStubbedBinaries(), testsupport.WithCache())
	path := writeTestConfig(t, cfg)

	store, err := cache.Open(cfg.Cache.Dir, time.Hour, nil)
	if err != nil {
		t.Fatalf("open cache: %v", err)
	}
	if err := store.Put(context.Background(), "abc", []byte(`{"text":"hi"}`)); err != nil {
		t.Fatalf("Put: %v", err)
	}
	if err := store.Close(); err != nil {
		t.Fatalf("close cache: %v", err)
	}

	out, err := runCLI(t, path, "status", "--json")
	if err != nil {
		t.Fatalf("status: %v", err)
	}
	var report statusReport
	if err := json.Unmarshal([]byte(out), &report); err != nil {
		t.Fatalf("decode status: %v (%q)", err, out)
	}
	if report.CacheEntries != 1 || report.CacheDetail != "" {
		t.Fatalf("expected one cache entry, got %d (%q)", report.CacheEntries, report.CacheDetail)
	}

	out, err = runCLI(t, path, "status")
	if err != nil {
		t.Fatalf("status text: %v", err)
	}
	if !strings.Contains(out, "yes (1 entry)") {
		t.Fatalf("expected cache entry count in status output: %q", out)
	}
}

func TestProcessMissingVideoReportsFailedUpload(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	path := writeTestConfig(t, cfg)

	missing := filepath.Join(t.TempDir(), "absent.mp4")
	out, err := runCLI(t, path, "process", missing)
	if err == nil {
		t.Fatal("expected error for missing video")
	}
	if !strings.Contains(out, "absent.mp4") || !strings.Contains(out, "FAILED") || !strings.Contains(out, "SKIPPED") {
		t.Fatalf("expected failed stage listing, got %q", out)
	}
}

func TestProcessRejectsUnsupportedExtension(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	path := writeTestConfig(t, cfg)

	doc := filepath.Join(t.TempDir(), "slides.pdf")
	testsupport.WriteFile(t, doc, 16)
	out, err := runCLI(t, path, "process", doc)
	if err == nil {
		t.Fatal("expected error for unsupported extension")
	}
	if out != "" {
		t.Fatalf("expected no session output, got %q", out)
	}
}

func TestTestNotifySendsToTopic(t *testing.T) {
	received := make(chan string, 1)
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		received <- r.Header.Get("Title")
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	cfg := testsupport.NewConfig(t)
	disabled := writeTestConfig(t, cfg)
	out, err := runCLI(t, disabled, "test-notify")
	if err != nil {
		t.Fatalf("test-notify without topic: %v", err)
	}
	if !strings.Contains(out, "Notifications disabled") {
		t.Fatalf("unexpected output: %q", out)
	}

	cfg.Notifications.NtfyTopic = server.URL
	enabled := writeTestConfig(t, cfg)
	out, err = runCLI(t, enabled, "test-notify")
	if err != nil {
		t.Fatalf("test-notify: %v", err)
	}
	if !strings.Contains(out, "Test notification sent") {
		t.Fatalf("unexpected output: %q", out)
	}
	select {
	case title := <-received:
		if title != "vidnotes - Test" {
			t.Fatalf("unexpected title %q", title)
		}
	default:
		t.Fatal("expected ntfy request")
	}
}

func TestLogsFiltersBySession(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	path := writeTestConfig(t, cfg)
	if err := os.MkdirAll(cfg.Paths.LogDir, 0o755); err != nil {
		t.Fatalf("mkdir logs: %v", err)
	}
	content := "10:00 INFO [pipeline] Session aaaaaaaa (upload) – stage completed\n" +
		"10:01 INFO [pipeline] Session bbbbbbbb (upload) – stage completed\n" +
		"10:02 INFO [pipeline] Session aaaaaaaa (notes) – stage completed\n"
	if err := os.WriteFile(cfg.LogPath(), []byte(content), 0o644); err != nil {
		t.Fatalf("write log: %v", err)
	}

	out, err := runCLI(t, path, "logs", "--session", "aaaaaaaa", "-n", "5")
	if err != nil {
		t.Fatalf("logs: %v", err)
	}
	if strings.Contains(out, "bbbbbbbb") || strings.Count(out, "aaaaaaaa") != 2 {
		t.Fatalf("unexpected filtered logs: %q", out)
	}
}
