package server

import (
	"bytes"
	"html/template"
	"net/http"
	"strings"

	"vidnotes/internal/logging"
	"vidnotes/internal/notes"
	"vidnotes/internal/pipeline"
	"vidnotes/internal/session"
)

// pageTitle is the heading of every HTML page.
const pageTitle = "Video to Cute Notes Converter"

var quickAccess = []string{"Upload video", "Transcribe audio", "Generate cute notes", "Download notes"}

var templateFuncs = template.FuncMap{
	"stageInfo": func(name string) pipeline.StageInfo {
		info, _ := pipeline.Describe(name)
		return info
	},
	"lines": func(text string) []string {
		return strings.Split(strings.TrimRight(text, "\n"), "\n")
	},
	"hasPrefix": strings.HasPrefix,
	"trimPrefix": func(prefix, s string) string {
		return strings.TrimPrefix(s, prefix)
	},
}

type pageData struct {
	Title       string
	QuickAccess []string
	Accept      string
	MaxUploadMB int
	Panels      []notes.Panel
	Banner      string
	Error       string
	Session     *session.Session
	TextURL     string
	DocxURL     string
	TextName    string
}

func (s *Server) newPageData() pageData {
	exts := make([]string, 0, len(s.cfg.Server.AllowedExtensions))
	for _, ext := range s.cfg.Server.AllowedExtensions {
		exts = append(exts, "."+ext)
	}
	return pageData{
		Title:       pageTitle,
		QuickAccess: quickAccess,
		Accept:      strings.Join(exts, ","),
		MaxUploadMB: s.cfg.Server.MaxUploadMB,
		Panels:      notes.Panels(),
		Banner:      notes.Banner,
		TextName:    s.cfg.Notes.DownloadName,
	}
}

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	s.render(w, r, http.StatusOK, "index.html", s.newPageData())
}

func (s *Server) handleUploadPage(w http.ResponseWriter, r *http.Request) {
	result, err := s.processUpload(w, r)
	data := s.newPageData()
	if result == nil {
		data.Error = userMessage(err)
		s.render(w, r, uploadStatus(err), "index.html", data)
		return
	}
	s.fillSession(&data, result.Session)
	s.render(w, r, http.StatusOK, "session.html", data)
}

func (s *Server) handleSessionPage(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.lookup(w, r)
	if !ok {
		return
	}
	data := s.newPageData()
	s.fillSession(&data, sess)
	s.render(w, r, http.StatusOK, "session.html", data)
}

func (s *Server) fillSession(data *pageData, sess *session.Session) {
	data.Session = sess
	if sess.HasNotes() && s.store != nil {
		data.TextURL = "/sessions/" + sess.ID + "/notes.txt"
		data.DocxURL = "/sessions/" + sess.ID + "/notes.docx"
	}
	if sess.Status == session.StatusFailed {
		data.Error = sess.ErrorMessage
	}
}

// lookup loads the session named in the path, writing 404 when it is unknown.
func (s *Server) lookup(w http.ResponseWriter, r *http.Request) (*session.Session, bool) {
	if s.store == nil {
		http.NotFound(w, r)
		return nil, false
	}
	sess, err := s.store.Get(r.Context(), r.PathValue("id"))
	if err != nil {
		s.logger.Error("session lookup failed", logging.Error(err))
		http.Error(w, "session lookup failed", http.StatusInternalServerError)
		return nil, false
	}
	if sess == nil {
		http.NotFound(w, r)
		return nil, false
	}
	return sess, true
}

func (s *Server) render(w http.ResponseWriter, r *http.Request, status int, name string, data pageData) {
	var buf bytes.Buffer
	if err := s.templates.ExecuteTemplate(&buf, name, data); err != nil {
		logging.WithContext(r.Context(), s.logger).Error("template render failed",
			logging.String("template", name),
			logging.Error(err),
		)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	_, _ = buf.WriteTo(w)
}

func userMessage(err error) string {
	if err == nil {
		return ""
	}
	return err.Error()
}
