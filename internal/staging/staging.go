package staging

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"vidnotes/internal/services"
)

// ErrUploadTooLarge is returned when an upload exceeds the configured limit.
var ErrUploadTooLarge = errors.New("upload exceeds size limit")

// sourceBase is the stem of the stored upload; the original extension is kept.
const sourceBase = "input"

// NewSessionDir creates the working directory for sessionID under root.
func NewSessionDir(root, sessionID string) (string, error) {
	root = strings.TrimSpace(root)
	if root == "" {
		return "", services.Wrap(services.ErrConfiguration, "staging", "create dir", "staging root is empty", nil)
	}
	if sessionID == "" || strings.ContainsAny(sessionID, `/\`) || sessionID == "." || sessionID == ".." {
		return "", fmt.Errorf("invalid session id %q", sessionID)
	}
	dir := filepath.Join(root, sessionID)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("create staging dir: %w", err)
	}
	return dir, nil
}

// SourcePath returns where an upload named filename is stored inside dir.
// Only the extension of the client-supplied name is used.
func SourcePath(dir, filename string) string {
	ext := strings.ToLower(filepath.Ext(filepath.Base(filename)))
	return filepath.Join(dir, sourceBase+ext)
}

// SaveUpload streams r into dir, refusing more than limit bytes when limit is positive.
// It returns the stored path and the number of bytes written.
func SaveUpload(dir, filename string, r io.Reader, limit int64) (string, int64, error) {
	target := SourcePath(dir, filename)
	out, err := os.OpenFile(target, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
	if err != nil {
		return "", 0, fmt.Errorf("create upload file: %w", err)
	}
	defer out.Close()

	reader := r
	if limit > 0 {
		reader = io.LimitReader(r, limit+1)
	}
	written, err := io.Copy(out, reader)
	if err != nil {
		_ = os.Remove(target)
		return "", written, fmt.Errorf("write upload: %w", err)
	}
	if limit > 0 && written > limit {
		_ = os.Remove(target)
		return "", written, services.Wrap(services.ErrValidation, "upload", "save",
			fmt.Sprintf("file is larger than %d bytes", limit), ErrUploadTooLarge)
	}
	if written == 0 {
		_ = os.Remove(target)
		return "", 0, services.Wrap(services.ErrValidation, "upload", "save", "uploaded file is empty", nil)
	}
	if err := out.Close(); err != nil {
		return "", written, fmt.Errorf("close upload: %w", err)
	}
	return target, written, nil
}

// Remove deletes a session working directory. Missing directories are not an error.
func Remove(dir string) error {
	if strings.TrimSpace(dir) == "" {
		return nil
	}
	if err := os.RemoveAll(dir); err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}
