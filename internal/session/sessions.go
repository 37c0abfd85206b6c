package session

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

const sessionColumns = "id, filename, status, strategy, engine, backend, stages_json, transcript, notes, error_kind, error_message, audio_seconds, created_at, updated_at, expires_at"

// timeLayout is fixed-width so stored timestamps compare correctly as text.
const timeLayout = "2006-01-02T15:04:05.000000000Z"

// NewID returns a fresh session identifier.
func NewID() string {
	return uuid.NewString()
}

// Create inserts sess. A missing ID is generated; timestamps default to now and
// the expiry to now plus retention.
func (s *Store) Create(ctx context.Context, sess *Session, retention time.Duration) error {
	if sess == nil {
		return errors.New("session is nil")
	}
	if strings.TrimSpace(sess.Filename) == "" {
		return errors.New("session filename required")
	}
	if sess.ID == "" {
		sess.ID = NewID()
	}
	if sess.Status == "" {
		sess.Status = StatusRunning
	}
	now := time.Now().UTC()
	if sess.CreatedAt.IsZero() {
		sess.CreatedAt = now
	}
	sess.UpdatedAt = now
	if sess.ExpiresAt.IsZero() {
		sess.ExpiresAt = sess.CreatedAt.Add(retention)
	}
	stages, err := encodeStages(sess.Stages)
	if err != nil {
		return err
	}

	_, err = s.execWithRetry(ctx,
		`INSERT INTO sessions (`+sessionColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		sess.ID,
		sess.Filename,
		string(sess.Status),
		nullableString(sess.Strategy),
		nullableString(sess.Engine),
		nullableString(sess.Backend),
		stages,
		nullableString(sess.Transcript),
		nullableString(sess.Notes),
		nullableString(sess.ErrorKind),
		nullableString(sess.ErrorMessage),
		sess.AudioSeconds,
		formatTime(sess.CreatedAt),
		formatTime(sess.UpdatedAt),
		formatTime(sess.ExpiresAt),
	)
	if err != nil {
		return fmt.Errorf("insert session: %w", err)
	}
	return nil
}

// Update persists changes to an existing session.
func (s *Store) Update(ctx context.Context, sess *Session) error {
	if sess == nil {
		return errors.New("session is nil")
	}
	sess.UpdatedAt = time.Now().UTC()
	stages, err := encodeStages(sess.Stages)
	if err != nil {
		return err
	}
	res, err := s.execWithRetry(ctx,
		`UPDATE sessions
         SET filename = ?, status = ?, strategy = ?, engine = ?, backend = ?, stages_json = ?,
             transcript = ?, notes = ?, error_kind = ?, error_message = ?, audio_seconds = ?,
             updated_at = ?, expires_at = ?
         WHERE id = ?`,
		sess.Filename,
		string(sess.Status),
		nullableString(sess.Strategy),
		nullableString(sess.Engine),
		nullableString(sess.Backend),
		stages,
		nullableString(sess.Transcript),
		nullableString(sess.Notes),
		nullableString(sess.ErrorKind),
		nullableString(sess.ErrorMessage),
		sess.AudioSeconds,
		formatTime(sess.UpdatedAt),
		formatTime(sess.ExpiresAt),
		sess.ID,
	)
	if err != nil {
		return fmt.Errorf("update session: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("update session %s: not found", sess.ID)
	}
	return nil
}

// Get fetches a session by identifier. It returns nil when no session matches.
func (s *Store) Get(ctx context.Context, id string) (*Session, error) {
	ctx = ensureContext(ctx)
	row := s.db.QueryRowContext(ctx, `SELECT `+sessionColumns+` FROM sessions WHERE id = ?`, id)
	sess, err := scanSession(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get session: %w", err)
	}
	return sess, nil
}

// List returns sessions newest first. A non-positive limit returns all sessions.
func (s *Store) List(ctx context.Context, limit int) ([]*Session, error) {
	ctx = ensureContext(ctx)
	query := `SELECT ` + sessionColumns + ` FROM sessions ORDER BY created_at DESC, id`
	args := []any{}
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list sessions: %w", err)
	}
	defer rows.Close()

	var out []*Session
	for rows.Next() {
		sess, err := scanSession(rows)
		if err != nil {
			return nil, fmt.Errorf("scan session: %w", err)
		}
		out = append(out, sess)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate sessions: %w", err)
	}
	return out, nil
}

// Delete removes a session. It reports whether a row was removed.
func (s *Store) Delete(ctx context.Context, id string) (bool, error) {
	res, err := s.execWithRetry(ctx, `DELETE FROM sessions WHERE id = ?`, id)
	if err != nil {
		return false, fmt.Errorf("delete session: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("delete session: %w", err)
	}
	return n > 0, nil
}

// PurgeExpired deletes sessions whose expiry is at or before now.
func (s *Store) PurgeExpired(ctx context.Context, now time.Time) (int64, error) {
	res, err := s.execWithRetry(ctx, `DELETE FROM sessions WHERE expires_at <= ?`, formatTime(now))
	if err != nil {
		return 0, fmt.Errorf("purge sessions: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("purge sessions: %w", err)
	}
	return n, nil
}

// RunningIDs returns the lowercase IDs of sessions still being processed.
func (s *Store) RunningIDs(ctx context.Context) (map[string]struct{}, error) {
	ctx = ensureContext(ctx)
	rows, err := s.db.QueryContext(ctx, `SELECT id FROM sessions WHERE status = ?`, string(StatusRunning))
	if err != nil {
		return nil, fmt.Errorf("running sessions: %w", err)
	}
	defer rows.Close()
	ids := make(map[string]struct{})
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan running session: %w", err)
		}
		ids[strings.ToLower(id)] = struct{}{}
	}
	return ids, rows.Err()
}

// Stats summarizes stored sessions by status.
func (s *Store) Stats(ctx context.Context) (map[Status]int, error) {
	ctx = ensureContext(ctx)
	rows, err := s.db.QueryContext(ctx, `SELECT status, COUNT(1) FROM sessions GROUP BY status`)
	if err != nil {
		return nil, fmt.Errorf("session stats: %w", err)
	}
	defer rows.Close()
	stats := make(map[Status]int)
	for rows.Next() {
		var status string
		var count int
		if err := rows.Scan(&status, &count); err != nil {
			return nil, fmt.Errorf("scan stats: %w", err)
		}
		stats[Status(status)] = count
	}
	return stats, rows.Err()
}

func scanSession(scanner interface{ Scan(dest ...any) error }) (*Session, error) {
	var (
		sess         Session
		status       string
		strategy     sql.NullString
		engine       sql.NullString
		backend      sql.NullString
		stagesJSON   sql.NullString
		transcript   sql.NullString
		notes        sql.NullString
		errorKind    sql.NullString
		errorMessage sql.NullString
		audioSeconds sql.NullFloat64
		createdRaw   string
		updatedRaw   string
		expiresRaw   string
	)
	if err := scanner.Scan(
		&sess.ID,
		&sess.Filename,
		&status,
		&strategy,
		&engine,
		&backend,
		&stagesJSON,
		&transcript,
		&notes,
		&errorKind,
		&errorMessage,
		&audioSeconds,
		&createdRaw,
		&updatedRaw,
		&expiresRaw,
	); err != nil {
		return nil, err
	}
	sess.Status = Status(status)
	sess.Strategy = strategy.String
	sess.Engine = engine.String
	sess.Backend = backend.String
	sess.Transcript = transcript.String
	sess.Notes = notes.String
	sess.ErrorKind = errorKind.String
	sess.ErrorMessage = errorMessage.String
	sess.AudioSeconds = audioSeconds.Float64
	if stagesJSON.Valid && stagesJSON.String != "" {
		if err := json.Unmarshal([]byte(stagesJSON.String), &sess.Stages); err != nil {
			return nil, fmt.Errorf("decode stages: %w", err)
		}
	}
	if t, err := parseTimeString(createdRaw); err == nil {
		sess.CreatedAt = t
	}
	if t, err := parseTimeString(updatedRaw); err == nil {
		sess.UpdatedAt = t
	}
	if t, err := parseTimeString(expiresRaw); err == nil {
		sess.ExpiresAt = t
	}
	return &sess, nil
}

func encodeStages(stages []StageResult) (any, error) {
	if len(stages) == 0 {
		return nil, nil
	}
	data, err := json.Marshal(stages)
	if err != nil {
		return nil, fmt.Errorf("encode stages: %w", err)
	}
	return string(data), nil
}

func nullableString(value string) any {
	if strings.TrimSpace(value) == "" {
		return nil
	}
	return value
}

func formatTime(t time.Time) string {
	return t.UTC().Format(timeLayout)
}

func parseTimeString(value string) (time.Time, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return time.Time{}, errors.New("empty time")
	}
	if t, err := time.Parse(timeLayout, value); err == nil {
		return t, nil
	}
	return time.Parse(time.RFC3339Nano, value)
}
