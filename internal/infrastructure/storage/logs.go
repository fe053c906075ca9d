package storage

import (
	"context"
	"fmt"
	"strings"
	"time"
)

const (
	defaultSearchLimit = 50
	maxSearchLimit     = 500
)

// LogEntry is one persisted flush of session output.
type LogEntry struct {
	ID        int64     `json:"id"`
	SessionID string    `json:"sessionId"`
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"createdAt"`
}

// SearchQuery selects log entries. An empty Query lists the most recent
// entries; otherwise entries containing Query (case-insensitive) match.
type SearchQuery struct {
	Query     string `json:"query" form:"q"`
	SessionID string `json:"sessionId" form:"session_id"`
	Limit     int    `json:"limit" form:"limit"`
	Offset    int    `json:"offset" form:"offset"`
}

// SearchResult is one page of entries plus the total number of matches.
type SearchResult struct {
	Entries []LogEntry `json:"entries"`
	Total   int64      `json:"total"`
}

// AppendLog stores one flush of raw output. Invalid UTF-8 is replaced, so
// the stored text may differ from the bytes the session produced.
func (s *Store) AppendLog(ctx context.Context, sessionID string, content []byte) error {
	if sessionID == "" {
		return fmt.Errorf("%w: session id is required", ErrInvalid)
	}
	text := strings.ToValidUTF8(string(content), "\uFFFD")

	if err := s.guardedExec(ctx,
		"INSERT INTO session_logs (session_id, content, created_at) VALUES (?, ?, ?)",
		sessionID, text, s.timestamp(),
	); err != nil {
		return fmt.Errorf("failed to append log for %s: %w", sessionID, err)
	}
	return nil
}

// SessionLog returns everything logged for a session, in write order. An
// unknown session has an empty log.
func (s *Store) SessionLog(ctx context.Context, sessionID string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rows, err := s.db.QueryContext(ctx,
		"SELECT content FROM session_logs WHERE session_id = ? ORDER BY id ASC", sessionID)
	if err != nil {
		return "", fmt.Errorf("failed to read log for %s: %w", sessionID, err)
	}
	defer rows.Close()

	var b strings.Builder
	for rows.Next() {
		var content string
		if err := rows.Scan(&content); err != nil {
			return "", err
		}
		b.WriteString(content)
	}
	return b.String(), rows.Err()
}

// SearchLogs pages through log entries, newest first.
func (s *Store) SearchLogs(ctx context.Context, q SearchQuery) (SearchResult, error) {
	limit, offset := normalizePage(q.Limit, q.Offset)

	var (
		conds []string
		args  []any
	)
	if q.SessionID != "" {
		conds = append(conds, "session_id = ?")
		args = append(args, q.SessionID)
	}
	if q.Query != "" {
		conds = append(conds, `content LIKE ? ESCAPE '\'`)
		args = append(args, "%"+escapeLike(q.Query)+"%")
	}
	where := ""
	if len(conds) > 0 {
		where = "WHERE " + strings.Join(conds, " AND ")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	result := SearchResult{Entries: []LogEntry{}}
	if err := s.db.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM session_logs "+where, args...,
	).Scan(&result.Total); err != nil {
		return SearchResult{}, fmt.Errorf("failed to count logs: %w", err)
	}

	rows, err := s.db.QueryContext(ctx,
		"SELECT id, session_id, content, created_at FROM session_logs "+where+
			" ORDER BY id DESC LIMIT ? OFFSET ?",
		append(args, limit, offset)...,
	)
	if err != nil {
		return SearchResult{}, fmt.Errorf("failed to search logs: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			e       LogEntry
			created string
		)
		if err := rows.Scan(&e.ID, &e.SessionID, &e.Content, &created); err != nil {
			return SearchResult{}, err
		}
		e.CreatedAt = parseTime(created)
		result.Entries = append(result.Entries, e)
	}
	return result, rows.Err()
}

// DeleteSessionLogs removes a session's log entries and reports how many
// were removed.
func (s *Store) DeleteSessionLogs(ctx context.Context, sessionID string) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	res, err := s.db.ExecContext(ctx, "DELETE FROM session_logs WHERE session_id = ?", sessionID)
	if err != nil {
		return 0, fmt.Errorf("failed to delete logs for %s: %w", sessionID, err)
	}
	return res.RowsAffected()
}

func normalizePage(limit, offset int) (int, int) {
	if limit <= 0 {
		limit = defaultSearchLimit
	}
	if limit > maxSearchLimit {
		limit = maxSearchLimit
	}
	if offset < 0 {
		offset = 0
	}
	return limit, offset
}

// escapeLike quotes LIKE wildcards so the query matches literally.
func escapeLike(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return r.Replace(s)
}
