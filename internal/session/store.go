package session

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"revoice/internal/config"
	"revoice/internal/services"
)

// Store persists sessions in SQLite and owns their workspaces.
type Store struct {
	db   *sql.DB
	path string
	root string
}

const (
	sqliteBusyCode          = 5
	busyRetryAttempts       = 5
	busyRetryInitialBackoff = 10 * time.Millisecond
	busyRetryMaxBackoff     = 200 * time.Millisecond
	maxIDLength             = 64
)

// Open connects to the session database under the sessions directory,
// creating it on first use.
func Open(cfg *config.Config) (*Store, error) {
	if err := cfg.EnsureDirectories(); err != nil {
		return nil, fmt.Errorf("ensure directories: %w", err)
	}

	dbPath := cfg.DatabasePath()
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA foreign_keys = ON",
		"PRAGMA busy_timeout = 5000",
	}
	for _, pragma := range pragmas {
		if _, execErr := db.Exec(pragma); execErr != nil {
			_ = db.Close()
			return nil, fmt.Errorf("apply pragma %q: %w", pragma, execErr)
		}
	}

	store := &Store{db: db, path: dbPath, root: cfg.Paths.SessionsDir}
	if err := store.initSchema(context.Background()); err != nil {
		_ = db.Close()
		return nil, err
	}
	return store, nil
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// Path returns the database file location.
func (s *Store) Path() string { return s.path }

// Workspace returns the directory layout for a session id.
func (s *Store) Workspace(id string) Workspace {
	return NewWorkspace(s.root, id)
}

// Create inserts a session and materializes its workspace. An empty name
// issues a random id; a caller-provided name must be a safe path segment
// and unused.
func (s *Store) Create(ctx context.Context, name string) (*Session, error) {
	id := strings.TrimSpace(name)
	if id == "" {
		id = uuid.NewString()
	} else if err := ValidateID(id); err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	sess := &Session{ID: id, Status: StatusUploaded, CreatedAt: now, UpdatedAt: now}
	_, err := s.execWithRetry(ctx,
		`INSERT INTO sessions (id, status, created_at, updated_at) VALUES (?, ?, ?, ?)`,
		sess.ID, sess.Status, formatTime(now), formatTime(now),
	)
	if err != nil {
		if isConstraint(err) {
			return nil, services.Wrap(services.ErrConflict, "session", "create", fmt.Sprintf("session %q already exists", id), nil)
		}
		return nil, fmt.Errorf("insert session: %w", err)
	}
	if err := s.Workspace(id).Ensure(); err != nil {
		return nil, err
	}
	return sess, nil
}

// Get fetches a session by id.
func (s *Store) Get(ctx context.Context, id string) (*Session, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+sessionColumns+` FROM sessions WHERE id = ?`, id)
	sess, err := scanSession(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, services.Wrap(services.ErrNotFound, "session", "get", fmt.Sprintf("session %q", id), nil)
	}
	if err != nil {
		return nil, fmt.Errorf("get session: %w", err)
	}
	return sess, nil
}

// List returns sessions, newest first, optionally filtered by status.
func (s *Store) List(ctx context.Context, statuses ...Status) ([]*Session, error) {
	query := `SELECT ` + sessionColumns + ` FROM sessions`
	args := make([]any, 0, len(statuses))
	if len(statuses) > 0 {
		query += ` WHERE status IN (` + makePlaceholders(len(statuses)) + `)`
		for _, status := range statuses {
			args = append(args, status)
		}
	}
	query += ` ORDER BY created_at DESC, id`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list sessions: %w", err)
	}
	defer rows.Close()

	var sessions []*Session
	for rows.Next() {
		sess, err := scanSession(rows)
		if err != nil {
			return nil, err
		}
		sessions = append(sessions, sess)
	}
	return sessions, rows.Err()
}

// Update persists every mutable field of sess.
func (s *Store) Update(ctx context.Context, sess *Session) error {
	if sess == nil {
		return errors.New("session is nil")
	}
	sess.UpdatedAt = time.Now().UTC()
	res, err := s.execWithRetry(ctx,
		`UPDATE sessions
         SET status = ?, video_path = ?, source_language = ?, target_language = ?,
             duration_seconds = ?, segment_count = ?, degraded_count = ?, overrun_count = ?,
             failure_kind = ?, error_message = ?, updated_at = ?
         WHERE id = ?`,
		sess.Status,
		nullableString(sess.VideoPath),
		nullableString(sess.SourceLanguage),
		nullableString(sess.TargetLanguage),
		sess.DurationSeconds,
		sess.SegmentCount,
		sess.DegradedCount,
		sess.OverrunCount,
		nullableString(sess.FailureKind),
		nullableString(sess.ErrorMessage),
		formatTime(sess.UpdatedAt),
		sess.ID,
	)
	if err != nil {
		return fmt.Errorf("update session: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return services.Wrap(services.ErrNotFound, "session", "update", fmt.Sprintf("session %q", sess.ID), nil)
	}
	return nil
}

// Delete removes a session row and its workspace.
func (s *Store) Delete(ctx context.Context, id string) error {
	res, err := s.execWithRetry(ctx, `DELETE FROM sessions WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete session: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return services.Wrap(services.ErrNotFound, "session", "delete", fmt.Sprintf("session %q", id), nil)
	}
	if err := os.RemoveAll(s.Workspace(id).Root); err != nil {
		return fmt.Errorf("remove workspace: %w", err)
	}
	return nil
}

// ResetInterrupted fails sessions left mid-stage by a previous process.
func (s *Store) ResetInterrupted(ctx context.Context) (int64, error) {
	args := []any{StatusFailed, "interrupted", "stage interrupted by shutdown", formatTime(time.Now().UTC())}
	for _, status := range processingStatuses {
		args = append(args, status)
	}
	res, err := s.execWithRetry(ctx,
		`UPDATE sessions SET status = ?, failure_kind = ?, error_message = ?, updated_at = ?
         WHERE status IN (`+makePlaceholders(len(processingStatuses))+`)`,
		args...,
	)
	if err != nil {
		return 0, fmt.Errorf("reset interrupted sessions: %w", err)
	}
	return res.RowsAffected()
}

// Stats counts sessions per status.
func (s *Store) Stats(ctx context.Context) (map[Status]int, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT status, COUNT(1) FROM sessions GROUP BY status`)
	if err != nil {
		return nil, fmt.Errorf("session stats: %w", err)
	}
	defer rows.Close()

	stats := make(map[Status]int)
	for rows.Next() {
		var status Status
		var count int
		if err := rows.Scan(&status, &count); err != nil {
			return nil, err
		}
		stats[status] = count
	}
	return stats, rows.Err()
}

// ValidateID rejects ids that are not a single safe path segment.
func ValidateID(id string) error {
	if id == "" || len(id) > maxIDLength || id == "." || id == ".." {
		return services.Wrap(services.ErrInput, "session", "id", fmt.Sprintf("invalid session id %q", id), nil)
	}
	for _, r := range id {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '_', r == '.':
		default:
			return services.Wrap(services.ErrInput, "session", "id", fmt.Sprintf("invalid character %q in session id", r), nil)
		}
	}
	return nil
}

func isSQLiteBusy(err error) bool {
	if err == nil {
		return false
	}
	var coder interface{ Code() int }
	if errors.As(err, &coder) && coder.Code()&0xff == sqliteBusyCode {
		return true
	}
	msg := err.Error()
	return strings.Contains(msg, "SQLITE_BUSY") || strings.Contains(msg, "database is locked")
}

func isConstraint(err error) bool {
	return err != nil && strings.Contains(err.Error(), "constraint failed")
}

func retryOnBusy(ctx context.Context, op func() error) error {
	delay := busyRetryInitialBackoff
	var lastErr error
	for attempt := 0; attempt < busyRetryAttempts; attempt++ {
		lastErr = op()
		if lastErr == nil {
			return nil
		}
		if !isSQLiteBusy(lastErr) || attempt == busyRetryAttempts-1 {
			break
		}
		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return ctx.Err()
		}
		if next := delay * 2; next <= busyRetryMaxBackoff {
			delay = next
		}
	}
	return lastErr
}

func (s *Store) execWithRetry(ctx context.Context, query string, args ...any) (sql.Result, error) {
	var (
		res     sql.Result
		execErr error
	)
	if err := retryOnBusy(ctx, func() error {
		res, execErr = s.db.ExecContext(ctx, query, args...)
		return execErr
	}); err != nil {
		return nil, err
	}
	return res, nil
}
