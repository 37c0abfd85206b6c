package server

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"vidnotes/internal/config"
	"vidnotes/internal/extract"
	"vidnotes/internal/notes"
	"vidnotes/internal/pipeline"
	"vidnotes/internal/services"
	"vidnotes/internal/session"
	"vidnotes/internal/summarize"
	"vidnotes/internal/testsupport"
	"vidnotes/internal/transcribe"
)

type stubExtractor struct {
	err error
}

func (s stubExtractor) Extract(_ context.Context, _ string, destDir string) (extract.Result, error) {
	if s.err != nil {
		return extract.Result{}, s.err
	}
	audio := filepath.Join(destDir, extract.WaveformName)
	if err := os.WriteFile(audio, []byte("RIFF"), 0o644); err != nil {
		return extract.Result{}, err
	}
	return extract.Result{AudioPath: audio, DurationSeconds: 3}, nil
}

type stubTranscriber struct {
	text  string
	calls int
}

func (s *stubTranscriber) Name() string { return "stub" }

func (s *stubTranscriber) Transcribe(context.Context, string) (transcribe.Transcript, error) {
	s.calls++
	return transcribe.Transcript{Text: s.text, Engine: "stub"}, nil
}

type fixture struct {
	cfg         *config.Config
	store       *session.Store
	server      *Server
	transcriber *stubTranscriber
}

func newFixture(t *testing.T, ex pipeline.Extractor, opts ...testsupport.ConfigOption) *fixture {
	t.Helper()
	cfg := testsupport.NewConfig(t, opts...)
	if err := cfg.EnsureDirectories(); err != nil {
		t.Fatalf("EnsureDirectories: %v", err)
	}
	store := testsupport.MustOpenStore(t, cfg)
	tr := &stubTranscriber{text: "Python is easy to learn. Data drives decisions. Models need data."}
	synth, err := notes.NewSynthesizer(summarize.NewExtractive(8), notes.SynthesizerConfig{Strategy: config.StrategySplit})
	if err != nil {
		t.Fatalf("NewSynthesizer: %v", err)
	}
	if ex == nil {
		ex = stubExtractor{}
	}
	runner, err := pipeline.New(pipeline.Deps{
		Extractor:   ex,
		Transcriber: tr,
		Synthesizer: synth,
		Store:       store,
	}, pipeline.Options{
		StagingRoot:    cfg.Paths.StagingDir,
		MaxUploadBytes: cfg.MaxUploadBytes(),
		AllowExtension: cfg.AllowsExtension,
		Retention:      cfg.SessionRetention(),
	})
	if err != nil {
		t.Fatalf("pipeline.New: %v", err)
	}
	srv, err := New(cfg, runner, store, nil)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	srv.status = func(context.Context) StatusResponse {
		return StatusResponse{Engine: runner.Engine(), Strategy: runner.Strategy(), Backend: runner.Backend()}
	}
	return &fixture{cfg: cfg, store: store, server: srv, transcriber: tr}
}

func multipartBody(t *testing.T, field, filename, content string) (*bytes.Buffer, string) {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	part, err := mw.CreateFormFile(field, filename)
	if err != nil {
		t.Fatalf("CreateFormFile: %v", err)
	}
	if _, err := io.WriteString(part, content); err != nil {
		t.Fatalf("write part: %v", err)
	}
	if err := mw.Close(); err != nil {
		t.Fatalf("close writer: %v", err)
	}
	return &buf, mw.FormDataContentType()
}

func (f *fixture) do(t *testing.T, req *http.Request) *httptest.ResponseRecorder {
	t.Helper()
	rec := httptest.NewRecorder()
	f.server.Handler().ServeHTTP(rec, req)
	return rec
}

func TestIndexShowsUploadFormAndPanels(t *testing.T) {
	f := newFixture(t, nil)
	rec := f.do(t, httptest.NewRequest(http.MethodGet, "/", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	body := rec.Body.String()
	for _, want := range []string{
		"Video to Cute Notes Converter",
		"Quick Access",
		`accept=".mp4,.mov,.avi,.mkv"`,
		"Python Notes",
		"Data Science Notes",
		"AI/ML Notes",
	} {
		if !strings.Contains(body, want) {
			t.Fatalf("expected %q in index page", want)
		}
	}
	if rec.Header().Get("X-Request-ID") == "" {
		t.Fatal("expected request id header")
	}
}

func TestUploadPageRendersTranscriptAndNotes(t *testing.T) {
	f := newFixture(t, nil)
	body, contentType := multipartBody(t, "video", "lecture.mp4", "video-bytes")
	req := httptest.NewRequest(http.MethodPost, "/sessions", body)
	req.Header.Set("Content-Type", contentType)

	rec := f.do(t, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	page := rec.Body.String()
	for _, want := range []string{
		"Video uploaded successfully!",
		"Audio extracted!",
		"Python is easy to learn.",
		notes.Banner,
		"Topic 1: Python Is Easy To",
		"Download Notes",
	} {
		if !strings.Contains(page, want) {
			t.Fatalf("expected %q in session page:\n%s", want, page)
		}
	}
}

func TestUploadRejectsUnsupportedExtension(t *testing.T) {
	f := newFixture(t, nil)
	body, contentType := multipartBody(t, "video", "slides.pdf", "pdf")
	req := httptest.NewRequest(http.MethodPost, "/api/sessions", body)
	req.Header.Set("Content-Type", contentType)

	rec := f.do(t, req)
	if rec.Code != http.StatusUnsupportedMediaType {
		t.Fatalf("expected 415, got %d", rec.Code)
	}
	if f.transcriber.calls != 0 {
		t.Fatal("transcriber should not run for rejected upload")
	}
}

func TestAPIUploadTooLargeIs413(t *testing.T) {
	f := newFixture(t, nil, testsupport.WithMaxUploadMB(1))
	body, contentType := multipartBody(t, "video", "long.mp4", strings.Repeat("v", 1<<20+64))
	req := httptest.NewRequest(http.MethodPost, "/api/sessions", body)
	req.Header.Set("Content-Type", contentType)

	rec := f.do(t, req)
	if rec.Code != http.StatusRequestEntityTooLarge {
		t.Fatalf("expected 413, got %d: %s", rec.Code, rec.Body.String())
	}
	var resp SessionResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.Session == nil || resp.Session.Status != session.StatusFailed {
		t.Fatalf("expected failed session, got %+v", resp.Session)
	}
	if f.transcriber.calls != 0 {
		t.Fatal("transcriber should not run for oversized upload")
	}
}

func TestUploadRequiresVideoField(t *testing.T) {
	f := newFixture(t, nil)
	body, contentType := multipartBody(t, "other", "lecture.mp4", "x")
	req := httptest.NewRequest(http.MethodPost, "/api/sessions", body)
	req.Header.Set("Content-Type", contentType)

	rec := f.do(t, req)
	if rec.Code != http.StatusUnprocessableEntity {
		t.Fatalf("expected 422, got %d", rec.Code)
	}
}

func TestAPIUploadThenDownload(t *testing.T) {
	f := newFixture(t, nil)
	body, contentType := multipartBody(t, "video", "talk.mov", "video")
	req := httptest.NewRequest(http.MethodPost, "/api/sessions", body)
	req.Header.Set("Content-Type", contentType)

	rec := f.do(t, req)
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", rec.Code, rec.Body.String())
	}
	var resp SessionResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.Session == nil || resp.Session.Status != session.StatusCompleted {
		t.Fatalf("unexpected session: %+v", resp.Session)
	}
	if len(resp.Blocks) != 3 {
		t.Fatalf("expected 3 blocks, got %d", len(resp.Blocks))
	}
	if resp.DownloadURL == "" {
		t.Fatal("expected download url")
	}

	dl := f.do(t, httptest.NewRequest(http.MethodGet, resp.DownloadURL, nil))
	if dl.Code != http.StatusOK {
		t.Fatalf("expected 200 for download, got %d", dl.Code)
	}
	if got := dl.Header().Get("Content-Disposition"); got != `attachment; filename=cute_notes.txt` {
		t.Fatalf("unexpected disposition %q", got)
	}
	if got := dl.Header().Get("Content-Type"); got != "application/octet-stream" {
		t.Fatalf("unexpected content type %q", got)
	}
	if dl.Body.String() != resp.Session.Notes {
		t.Fatalf("download bytes differ from rendered notes:\n%q\n%q", dl.Body.String(), resp.Session.Notes)
	}

	docx := f.do(t, httptest.NewRequest(http.MethodGet, resp.DocxURL, nil))
	if docx.Code != http.StatusOK {
		t.Fatalf("expected 200 for docx, got %d: %s", docx.Code, docx.Body.String())
	}
	if !bytes.HasPrefix(docx.Body.Bytes(), []byte("PK")) {
		t.Fatal("expected docx zip payload")
	}
}

func TestAPIUploadNoAudioReportsPartialSession(t *testing.T) {
	noAudio := services.Wrap(services.ErrValidation, "extract", "probe source", "clip.mp4", extract.ErrNoAudioTrack)
	f := newFixture(t, stubExtractor{err: noAudio})
	body, contentType := multipartBody(t, "video", "clip.mp4", "video")
	req := httptest.NewRequest(http.MethodPost, "/api/sessions", body)
	req.Header.Set("Content-Type", contentType)

	rec := f.do(t, req)
	if rec.Code != http.StatusUnprocessableEntity {
		t.Fatalf("expected 422, got %d", rec.Code)
	}
	var resp SessionResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.Session == nil || resp.Session.Status != session.StatusFailed {
		t.Fatalf("expected failed session, got %+v", resp.Session)
	}
	if resp.DownloadURL != "" {
		t.Fatal("failed session should not offer a download")
	}
	if f.transcriber.calls != 0 {
		t.Fatal("transcriber should not run without audio")
	}

	dl := f.do(t, httptest.NewRequest(http.MethodGet, "/sessions/"+resp.Session.ID+"/notes.txt", nil))
	if dl.Code != http.StatusNotFound {
		t.Fatalf("expected 404 for missing notes, got %d", dl.Code)
	}
}

func TestSessionPageAndListAndDelete(t *testing.T) {
	f := newFixture(t, nil)
	sess := testsupport.NewSession(t, f.store, f.cfg, "saved.mp4")
	sess.Status = session.StatusCompleted
	sess.Transcript = "Saved transcript."
	sess.Notes = "### Topic 1: Saved Transcript\n- Saved transcript.\n"
	if err := f.store.Update(context.Background(), sess); err != nil {
		t.Fatalf("Update: %v", err)
	}

	page := f.do(t, httptest.NewRequest(http.MethodGet, "/sessions/"+sess.ID, nil))
	if page.Code != http.StatusOK || !strings.Contains(page.Body.String(), "Topic 1: Saved Transcript") {
		t.Fatalf("unexpected session page: %d", page.Code)
	}

	list := f.do(t, httptest.NewRequest(http.MethodGet, "/api/sessions", nil))
	var listResp SessionListResponse
	if err := json.Unmarshal(list.Body.Bytes(), &listResp); err != nil {
		t.Fatalf("decode list: %v", err)
	}
	if len(listResp.Sessions) != 1 || listResp.Sessions[0].ID != sess.ID {
		t.Fatalf("unexpected list: %+v", listResp.Sessions)
	}

	del := f.do(t, httptest.NewRequest(http.MethodDelete, "/api/sessions/"+sess.ID, nil))
	if del.Code != http.StatusNoContent {
		t.Fatalf("expected 204, got %d", del.Code)
	}
	missing := f.do(t, httptest.NewRequest(http.MethodGet, "/api/sessions/"+sess.ID, nil))
	if missing.Code != http.StatusNotFound {
		t.Fatalf("expected 404 after delete, got %d", missing.Code)
	}
}

func TestAPIRequiresBearerToken(t *testing.T) {
	f := newFixture(t, nil, testsupport.WithAPIToken("secret"))

	rec := f.do(t, httptest.NewRequest(http.MethodGet, "/api/panels", nil))
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", rec.Code)
	}

	req := httptest.NewRequest(http.MethodGet, "/api/panels", nil)
	req.Header.Set("Authorization", "Bearer secret")
	rec = f.do(t, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	var payload struct {
		Panels []notes.Panel `json:"panels"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &payload); err != nil {
		t.Fatalf("decode panels: %v", err)
	}
	if len(payload.Panels) != 3 {
		t.Fatalf("expected 3 panels, got %d", len(payload.Panels))
	}

	page := f.do(t, httptest.NewRequest(http.MethodGet, "/", nil))
	if page.Code != http.StatusOK {
		t.Fatalf("html pages should not require a token, got %d", page.Code)
	}
}

func TestAPIStatus(t *testing.T) {
	f := newFixture(t, nil)
	rec := f.do(t, httptest.NewRequest(http.MethodGet, "/api/status", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	var resp StatusResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.Engine != "stub" || resp.Strategy != config.StrategySplit || resp.Backend != "extractive" {
		t.Fatalf("unexpected status: %+v", resp)
	}
}

func TestSweepPurgesExpiredSessionsAndStaleStaging(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()
	expired := &session.Session{Filename: "old.mp4", CreatedAt: time.Now().Add(-72 * time.Hour)}
	if err := f.store.Create(ctx, expired, time.Hour); err != nil {
		t.Fatalf("Create: %v", err)
	}
	staleDir := filepath.Join(f.cfg.Paths.StagingDir, "abandoned")
	if err := os.MkdirAll(staleDir, 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	old := time.Now().Add(-24 * time.Hour)
	if err := os.Chtimes(staleDir, old, old); err != nil {
		t.Fatalf("chtimes: %v", err)
	}

	busy := testsupport.NewSession(t, f.store, f.cfg, "long-lecture.mp4")
	busyDir := filepath.Join(f.cfg.Paths.StagingDir, busy.ID)
	if err := os.MkdirAll(busyDir, 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	if err := os.Chtimes(busyDir, old, old); err != nil {
		t.Fatalf("chtimes: %v", err)
	}

	result := Sweep(ctx, f.cfg, f.store, nil)
	if _, err := os.Stat(busyDir); err != nil {
		t.Fatalf("running session staging removed: %v", err)
	}
	if result.SessionsPurged != 1 {
		t.Fatalf("expected 1 purged session, got %d", result.SessionsPurged)
	}
	if len(result.StagingRemoved) != 1 {
		t.Fatalf("expected stale staging removed, got %v", result.StagingRemoved)
	}
}

func TestDocxName(t *testing.T) {
	if got := docxName("cute_notes.txt"); got != "cute_notes.docx" {
		t.Fatalf("unexpected docx name %q", got)
	}
	if got := docxName(""); got != "cute_notes.docx" {
		t.Fatalf("unexpected fallback %q", got)
	}
}
