package server

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"

	"vidnotes/internal/deps"
	"vidnotes/internal/logging"
	"vidnotes/internal/notes"
	"vidnotes/internal/preflight"
	"vidnotes/internal/session"
)

// SessionResponse is the JSON view of one session.
type SessionResponse struct {
	Session     *session.Session `json:"session"`
	Blocks      []notes.Block    `json:"blocks,omitempty"`
	DownloadURL string           `json:"download_url,omitempty"`
	DocxURL     string           `json:"docx_url,omitempty"`
	Error       string           `json:"error,omitempty"`
}

// SessionListResponse is the JSON view of retained sessions.
type SessionListResponse struct {
	Sessions []*session.Session `json:"sessions"`
}

// StatusResponse describes the running configuration and dependency health.
type StatusResponse struct {
	Engine       string                 `json:"engine"`
	Strategy     string                 `json:"strategy"`
	Backend      string                 `json:"backend"`
	Dependencies []deps.Status          `json:"dependencies"`
	Checks       []preflight.Result     `json:"checks"`
	Sessions     map[session.Status]int `json:"sessions,omitempty"`
}

func (s *Server) handleAPIUpload(w http.ResponseWriter, r *http.Request) {
	result, err := s.processUpload(w, r)
	if result == nil {
		s.writeError(w, uploadStatus(err), userMessage(err))
		return
	}
	resp := SessionResponse{
		Session: result.Session,
		Blocks:  result.Document.Blocks,
	}
	s.fillLinks(&resp)
	status := http.StatusCreated
	if err != nil {
		resp.Error = err.Error()
		status = uploadStatus(err)
	}
	s.writeJSON(w, status, resp)
}

func (s *Server) handleAPIList(w http.ResponseWriter, r *http.Request) {
	if s.store == nil {
		s.writeJSON(w, http.StatusOK, SessionListResponse{Sessions: []*session.Session{}})
		return
	}
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	if limit <= 0 {
		limit = 50
	}
	items, err := s.store.List(r.Context(), limit)
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if items == nil {
		items = []*session.Session{}
	}
	s.writeJSON(w, http.StatusOK, SessionListResponse{Sessions: items})
}

func (s *Server) handleAPISession(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.lookupJSON(w, r)
	if !ok {
		return
	}
	resp := SessionResponse{Session: sess}
	s.fillLinks(&resp)
	s.writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleAPIDelete(w http.ResponseWriter, r *http.Request) {
	if s.store == nil {
		s.writeError(w, http.StatusNotFound, "session not found")
		return
	}
	removed, err := s.store.Delete(r.Context(), r.PathValue("id"))
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if !removed {
		s.writeError(w, http.StatusNotFound, "session not found")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleAPIStatus(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, s.status(r.Context()))
}

func (s *Server) handleAPIPanels(w http.ResponseWriter, _ *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]any{"panels": notes.Panels()})
}

func (s *Server) buildStatus(ctx context.Context) StatusResponse {
	resp := StatusResponse{
		Engine:       s.runner.Engine(),
		Strategy:     s.runner.Strategy(),
		Backend:      s.runner.Backend(),
		Dependencies: preflight.CheckSystemDeps(s.cfg),
		Checks:       preflight.RunAll(ctx, s.cfg),
	}
	if s.store != nil {
		if stats, err := s.store.Stats(ctx); err == nil {
			resp.Sessions = stats
		}
	}
	return resp
}

func (s *Server) lookupJSON(w http.ResponseWriter, r *http.Request) (*session.Session, bool) {
	if s.store == nil {
		s.writeError(w, http.StatusNotFound, "session not found")
		return nil, false
	}
	sess, err := s.store.Get(r.Context(), r.PathValue("id"))
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, err.Error())
		return nil, false
	}
	if sess == nil {
		s.writeError(w, http.StatusNotFound, "session not found")
		return nil, false
	}
	return sess, true
}

func (s *Server) fillLinks(resp *SessionResponse) {
	if resp.Session == nil || !resp.Session.HasNotes() || s.store == nil {
		return
	}
	resp.DownloadURL = "/sessions/" + resp.Session.ID + "/notes.txt"
	resp.DocxURL = "/sessions/" + resp.Session.ID + "/notes.docx"
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if payload == nil {
		return
	}
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		s.logger.Error("failed to encode response", logging.Error(err))
	}
}

func (s *Server) writeError(w http.ResponseWriter, status int, message string) {
	s.writeJSON(w, status, map[string]string{"error": message})
}
