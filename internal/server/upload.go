package server

import (
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"path/filepath"
	"strings"

	"vidnotes/internal/pipeline"
	"vidnotes/internal/services"
	"vidnotes/internal/staging"
)

// uploadField is the multipart form field carrying the video.
const uploadField = "video"

// errUnsupportedType marks uploads rejected by the extension allow-list.
var errUnsupportedType = errors.New("unsupported media type")

// processUpload streams the video part of a multipart request into the pipeline.
// A nil result with an error means the request was rejected before a session started.
func (s *Server) processUpload(w http.ResponseWriter, r *http.Request) (*pipeline.Result, error) {
	limit := s.cfg.MaxUploadBytes()
	if limit > 0 {
		r.Body = http.MaxBytesReader(w, r.Body, limit+uploadOverhead)
	}
	reader, err := r.MultipartReader()
	if err != nil {
		return nil, services.Wrap(services.ErrValidation, pipeline.StageUpload, "parse form", "expected multipart/form-data", err)
	}

	for {
		part, err := reader.NextPart()
		if errors.Is(err, io.EOF) {
			return nil, services.Wrap(services.ErrValidation, pipeline.StageUpload, "parse form",
				fmt.Sprintf("missing %q file field", uploadField), nil)
		}
		if err != nil {
			return nil, uploadReadError(err)
		}
		if part.FormName() != uploadField || part.FileName() == "" {
			_ = part.Close()
			continue
		}
		return s.processPart(r, part)
	}
}

func (s *Server) processPart(r *http.Request, part *multipart.Part) (*pipeline.Result, error) {
	defer part.Close()
	filename := filepath.Base(part.FileName())
	if !s.cfg.AllowsExtension(filepath.Ext(filename)) {
		return nil, fmt.Errorf("%w: %q (allowed: %s)", errUnsupportedType, filepath.Ext(filename),
			strings.Join(s.cfg.Server.AllowedExtensions, ", "))
	}
	return s.runner.Process(r.Context(), pipeline.Upload{Filename: filename, Body: part})
}

func uploadReadError(err error) error {
	var maxErr *http.MaxBytesError
	if errors.As(err, &maxErr) {
		return services.Wrap(services.ErrValidation, pipeline.StageUpload, "read", "upload too large", err)
	}
	return services.Wrap(services.ErrValidation, pipeline.StageUpload, "read", "malformed upload", err)
}

// uploadStatus maps a rejected or failed upload to an HTTP status code.
func uploadStatus(err error) int {
	var maxErr *http.MaxBytesError
	switch {
	case err == nil:
		return http.StatusOK
	case errors.Is(err, errUnsupportedType):
		return http.StatusUnsupportedMediaType
	case errors.As(err, &maxErr), errors.Is(err, staging.ErrUploadTooLarge):
		return http.StatusRequestEntityTooLarge
	default:
		return services.HTTPStatus(err)
	}
}
