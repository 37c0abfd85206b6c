package server

import (
	"fmt"
	"mime"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"vidnotes/internal/logging"
	"vidnotes/internal/notes"
)

// handleDownloadText serves the notes exactly as rendered, as an attachment.
func (s *Server) handleDownloadText(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.lookup(w, r)
	if !ok {
		return
	}
	if !sess.HasNotes() {
		http.Error(w, "notes not available for this session", http.StatusNotFound)
		return
	}
	body := []byte(sess.Notes)
	writeAttachment(w, s.cfg.Notes.DownloadName, "application/octet-stream", body)
}

// handleDownloadDocx serves the notes as a Word document.
func (s *Server) handleDownloadDocx(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.lookup(w, r)
	if !ok {
		return
	}
	if !sess.HasNotes() {
		http.Error(w, "notes not available for this session", http.StatusNotFound)
		return
	}

	tmp, err := os.MkdirTemp(s.cfg.Paths.StagingDir, "docx-")
	if err != nil {
		s.logger.Error("docx temp dir failed", logging.Error(err))
		http.Error(w, "unable to build document", http.StatusInternalServerError)
		return
	}
	defer os.RemoveAll(tmp)

	path := filepath.Join(tmp, "notes.docx")
	if err := notes.WriteDocx(notes.Document{Strategy: sess.Strategy, Text: sess.Notes}, path); err != nil {
		logging.WithContext(r.Context(), s.logger).Error("docx export failed", logging.Error(err))
		http.Error(w, "unable to build document", http.StatusInternalServerError)
		return
	}
	body, err := os.ReadFile(path)
	if err != nil {
		http.Error(w, "unable to read document", http.StatusInternalServerError)
		return
	}
	writeAttachment(w, docxName(s.cfg.Notes.DownloadName),
		"application/vnd.openxmlformats-officedocument.wordprocessingml.document", body)
}

func writeAttachment(w http.ResponseWriter, filename, contentType string, body []byte) {
	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Content-Disposition", mime.FormatMediaType("attachment", map[string]string{"filename": filename}))
	w.Header().Set("Content-Length", strconv.Itoa(len(body)))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(body)
}

// docxName swaps the extension of the text download name for .docx.
func docxName(textName string) string {
	base := strings.TrimSuffix(textName, filepath.Ext(textName))
	if base == "" {
		base = "cute_notes"
	}
	return fmt.Sprintf("%s.docx", base)
}
