package server

import (
	"net/http"
	"time"

	"github.com/google/uuid"

	"vidnotes/internal/logging"
	"vidnotes/internal/services"
)

func (s *Server) routes() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /{$}", s.handleIndex)
	mux.HandleFunc("POST /sessions", s.handleUploadPage)
	mux.HandleFunc("GET /sessions/{id}", s.handleSessionPage)
	mux.HandleFunc("GET /sessions/{id}/notes.txt", s.handleDownloadText)
	mux.HandleFunc("GET /sessions/{id}/notes.docx", s.handleDownloadDocx)
	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})

	token := s.cfg.Server.APIToken
	mux.HandleFunc("POST /api/sessions", authMiddleware(token, s.handleAPIUpload))
	mux.HandleFunc("GET /api/sessions", authMiddleware(token, s.handleAPIList))
	mux.HandleFunc("GET /api/sessions/{id}", authMiddleware(token, s.handleAPISession))
	mux.HandleFunc("DELETE /api/sessions/{id}", authMiddleware(token, s.handleAPIDelete))
	mux.HandleFunc("GET /api/status", authMiddleware(token, s.handleAPIStatus))
	mux.HandleFunc("GET /api/panels", authMiddleware(token, s.handleAPIPanels))

	return s.withRequestContext(mux)
}

// withRequestContext stamps a request ID on the context and response, and logs
// each request at debug level.
func (s *Server) withRequestContext(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requestID := r.Header.Get("X-Request-ID")
		if requestID == "" || len(requestID) > 64 {
			requestID = uuid.NewString()
		}
		w.Header().Set("X-Request-ID", requestID)
		ctx := services.WithRequestID(r.Context(), requestID)

		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		start := time.Now()
		next.ServeHTTP(rec, r.WithContext(ctx))

		logging.WithContext(ctx, s.logger).Debug("request handled",
			logging.String("method", r.Method),
			logging.String("path", r.URL.Path),
			logging.Int("status", rec.status),
			logging.Duration("elapsed", time.Since(start)),
		)
	})
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}
