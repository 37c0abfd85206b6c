package testsupport

import (
	"context"
	"testing"

	"vidnotes/internal/config"
	"vidnotes/internal/session"
)

// MustOpenStore opens a session.Store for tests and registers cleanup.
func MustOpenStore(t testing.TB, cfg *config.Config) *session.Store {
	t.Helper()

	store, err := session.Open(cfg)
	if err != nil {
		t.Fatalf("session.Open: %v", err)
	}
	t.Cleanup(func() {
		store.Close()
	})
	return store
}

// NewSession inserts a running session for filename using the configured retention.
func NewSession(t testing.TB, store *session.Store, cfg *config.Config, filename string) *session.Session {
	t.Helper()

	sess := &session.Session{Filename: filename}
	if err := store.Create(context.Background(), sess, cfg.SessionRetention()); err != nil {
		t.Fatalf("store.Create: %v", err)
	}
	return sess
}
