package storage

import (
	"context"
	"fmt"
	"time"

	"github.com/bytedance/sonic"
)

// Saved session statuses.
const (
	StatusRunning = "running"
	StatusStopped = "stopped"
)

// SavedSession is a session config kept across restarts.
type SavedSession struct {
	ID         string            `json:"id"`
	Name       string            `json:"name"`
	Tool       string            `json:"tool"`
	Command    string            `json:"command"`
	Args       []string          `json:"args"`
	WorkingDir string            `json:"workingDir"`
	EnvVars    map[string]string `json:"envVars"`
	Cols       uint16            `json:"cols"`
	Rows       uint16            `json:"rows"`
	Status     string            `json:"status"`
	CreatedAt  time.Time         `json:"createdAt"`
	UpdatedAt  time.Time         `json:"updatedAt"`
}

const savedSessionColumns = "id, name, tool, command, args, working_dir, env_vars, cols, rows, status, created_at, updated_at"

// SaveSession inserts or replaces a saved session. CreatedAt survives a
// replace.
func (s *Store) SaveSession(ctx context.Context, in SavedSession) error {
	if in.ID == "" || in.Command == "" {
		return fmt.Errorf("%w: session id and command are required", ErrInvalid)
	}
	if in.Status == "" {
		in.Status = StatusStopped
	}
	if !validStatus(in.Status) {
		return fmt.Errorf("%w: unknown status %q", ErrInvalid, in.Status)
	}
	args, err := encodeJSON(orEmpty(in.Args))
	if err != nil {
		return err
	}
	env := in.EnvVars
	if env == nil {
		env = map[string]string{}
	}
	envJSON, err := encodeJSON(env)
	if err != nil {
		return err
	}
	now := s.timestamp()

	s.mu.Lock()
	defer s.mu.Unlock()

	_, err = s.db.ExecContext(ctx,
		`INSERT INTO sessions (`+savedSessionColumns+`)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT(id) DO UPDATE SET
			name = excluded.name, tool = excluded.tool, command = excluded.command,
			args = excluded.args, working_dir = excluded.working_dir,
			env_vars = excluded.env_vars, cols = excluded.cols, rows = excluded.rows,
			status = excluded.status, updated_at = excluded.updated_at`,
		in.ID, in.Name, in.Tool, in.Command, args, in.WorkingDir, envJSON,
		in.Cols, in.Rows, in.Status, now, now)
	if err != nil {
		return fmt.Errorf("failed to save session %s: %w", in.ID, err)
	}
	return nil
}

// UpdateSessionStatus sets a saved session's status or returns ErrNotFound.
func (s *Store) UpdateSessionStatus(ctx context.Context, id, status string) error {
	if !validStatus(status) {
		return fmt.Errorf("%w: unknown status %q", ErrInvalid, status)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	res, err := s.db.ExecContext(ctx,
		"UPDATE sessions SET status = ?, updated_at = ? WHERE id = ?", status, s.timestamp(), id)
	if err != nil {
		return fmt.Errorf("failed to update session %s: %w", id, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("session %s: %w", id, ErrNotFound)
	}
	return nil
}

// ListSavedSessions returns all saved sessions, most recently updated first.
func (s *Store) ListSavedSessions(ctx context.Context) ([]SavedSession, error) {
	return s.querySavedSessions(ctx, "")
}

// ListRestorableSessions returns the sessions that were running when the
// service last stopped.
func (s *Store) ListRestorableSessions(ctx context.Context) ([]SavedSession, error) {
	return s.querySavedSessions(ctx, StatusRunning)
}

// GetSavedSession returns one saved session or ErrNotFound.
func (s *Store) GetSavedSession(ctx context.Context, id string) (SavedSession, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rows, err := s.db.QueryContext(ctx,
		"SELECT "+savedSessionColumns+" FROM sessions WHERE id = ?", id)
	if err != nil {
		return SavedSession{}, fmt.Errorf("failed to read session %s: %w", id, err)
	}
	defer rows.Close()

	if !rows.Next() {
		if err := rows.Err(); err != nil {
			return SavedSession{}, err
		}
		return SavedSession{}, fmt.Errorf("session %s: %w", id, ErrNotFound)
	}
	return scanSavedSession(rows)
}

// DeleteSavedSession removes a saved session or returns ErrNotFound.
func (s *Store) DeleteSavedSession(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	res, err := s.db.ExecContext(ctx, "DELETE FROM sessions WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("failed to delete session %s: %w", id, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("session %s: %w", id, ErrNotFound)
	}
	return nil
}

// MarkAllStopped flips every running session to stopped. Called at startup,
// since no process survives a restart, and returns how many were changed.
func (s *Store) MarkAllStopped(ctx context.Context) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	res, err := s.db.ExecContext(ctx,
		"UPDATE sessions SET status = ?, updated_at = ? WHERE status = ?",
		StatusStopped, s.timestamp(), StatusRunning)
	if err != nil {
		return 0, fmt.Errorf("failed to mark sessions stopped: %w", err)
	}
	return res.RowsAffected()
}

func (s *Store) querySavedSessions(ctx context.Context, status string) ([]SavedSession, error) {
	query := "SELECT " + savedSessionColumns + " FROM sessions"
	var args []any
	if status != "" {
		query += " WHERE status = ?"
		args = append(args, status)
	}
	query += " ORDER BY updated_at DESC, id ASC"

	s.mu.Lock()
	defer s.mu.Unlock()

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list sessions: %w", err)
	}
	defer rows.Close()

	sessions := []SavedSession{}
	for rows.Next() {
		ss, err := scanSavedSession(rows)
		if err != nil {
			return nil, err
		}
		sessions = append(sessions, ss)
	}
	return sessions, rows.Err()
}

func scanSavedSession(row rowScanner) (SavedSession, error) {
	var (
		ss               SavedSession
		args, env        string
		created, updated string
	)
	if err := row.Scan(&ss.ID, &ss.Name, &ss.Tool, &ss.Command, &args, &ss.WorkingDir, &env,
		&ss.Cols, &ss.Rows, &ss.Status, &created, &updated); err != nil {
		return SavedSession{}, err
	}
	if err := sonic.UnmarshalString(args, &ss.Args); err != nil {
		return SavedSession{}, fmt.Errorf("session %s has malformed args: %w", ss.ID, err)
	}
	if err := sonic.UnmarshalString(env, &ss.EnvVars); err != nil {
		return SavedSession{}, fmt.Errorf("session %s has malformed env: %w", ss.ID, err)
	}
	ss.Args = orEmpty(ss.Args)
	if ss.EnvVars == nil {
		ss.EnvVars = map[string]string{}
	}
	ss.CreatedAt = parseTime(created)
	ss.UpdatedAt = parseTime(updated)
	return ss, nil
}

func validStatus(status string) bool {
	return status == StatusRunning || status == StatusStopped
}
