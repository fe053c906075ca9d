package storage

import (
	"context"
	"fmt"
	"time"

	"github.com/GriffinCanCode/AgentDesk/backend/internal/domain/usage"
)

// UsageRecord is a stored usage observation.
type UsageRecord struct {
	ID           int64     `json:"id"`
	SessionID    string    `json:"sessionId"`
	InputTokens  int64     `json:"inputTokens"`
	OutputTokens int64     `json:"outputTokens"`
	Model        string    `json:"model"`
	CostUSD      float64   `json:"costUsd"`
	RecordedAt   time.Time `json:"recordedAt"`
}

// SessionCostSummary totals one session's usage.
type SessionCostSummary struct {
	SessionID         string  `json:"sessionId"`
	TotalInputTokens  int64   `json:"totalInputTokens"`
	TotalOutputTokens int64   `json:"totalOutputTokens"`
	TotalCostUSD      float64 `json:"totalCostUsd"`
	RecordCount       int64   `json:"recordCount"`
}

// GlobalCostSummary totals usage across sessions. PerSession is ordered by
// cost, highest first.
type GlobalCostSummary struct {
	TotalInputTokens  int64                `json:"totalInputTokens"`
	TotalOutputTokens int64                `json:"totalOutputTokens"`
	TotalCostUSD      float64              `json:"totalCostUsd"`
	SessionCount      int64                `json:"sessionCount"`
	PerSession        []SessionCostSummary `json:"perSession"`
}

// RecordUsage stores one usage record.
func (s *Store) RecordUsage(ctx context.Context, rec usage.Record) error {
	if rec.SessionID == "" {
		return fmt.Errorf("%w: session id is required", ErrInvalid)
	}
	if err := s.guardedExec(ctx,
		`INSERT INTO token_usage (session_id, input_tokens, output_tokens, model, cost_usd, recorded_at)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		rec.SessionID, rec.InputTokens, rec.OutputTokens, rec.Model, rec.CostUSD, s.timestamp(),
	); err != nil {
		return fmt.Errorf("failed to record usage for %s: %w", rec.SessionID, err)
	}
	return nil
}

// SessionUsage returns a session's records, newest first.
func (s *Store) SessionUsage(ctx context.Context, sessionID string) ([]UsageRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rows, err := s.db.QueryContext(ctx,
		`SELECT id, session_id, input_tokens, output_tokens, model, cost_usd, recorded_at
		 FROM token_usage WHERE session_id = ? ORDER BY id DESC`, sessionID)
	if err != nil {
		return nil, fmt.Errorf("failed to read usage for %s: %w", sessionID, err)
	}
	defer rows.Close()

	records := []UsageRecord{}
	for rows.Next() {
		var (
			r        UsageRecord
			recorded string
		)
		if err := rows.Scan(&r.ID, &r.SessionID, &r.InputTokens, &r.OutputTokens, &r.Model, &r.CostUSD, &recorded); err != nil {
			return nil, err
		}
		r.RecordedAt = parseTime(recorded)
		records = append(records, r)
	}
	return records, rows.Err()
}

// SessionCostSummary totals a session's usage. A session without records
// has a zero summary.
func (s *Store) SessionCostSummary(ctx context.Context, sessionID string) (SessionCostSummary, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sum := SessionCostSummary{SessionID: sessionID}
	err := s.db.QueryRowContext(ctx,
		`SELECT COALESCE(SUM(input_tokens), 0), COALESCE(SUM(output_tokens), 0),
		        COALESCE(SUM(cost_usd), 0.0), COUNT(*)
		 FROM token_usage WHERE session_id = ?`, sessionID,
	).Scan(&sum.TotalInputTokens, &sum.TotalOutputTokens, &sum.TotalCostUSD, &sum.RecordCount)
	if err != nil {
		return SessionCostSummary{}, fmt.Errorf("failed to summarize usage for %s: %w", sessionID, err)
	}
	return sum, nil
}

// GlobalCostSummary totals all recorded usage.
func (s *Store) GlobalCostSummary(ctx context.Context) (GlobalCostSummary, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var g GlobalCostSummary
	if err := s.db.QueryRowContext(ctx,
		`SELECT COALESCE(SUM(input_tokens), 0), COALESCE(SUM(output_tokens), 0),
		        COALESCE(SUM(cost_usd), 0.0)
		 FROM token_usage`,
	).Scan(&g.TotalInputTokens, &g.TotalOutputTokens, &g.TotalCostUSD); err != nil {
		return GlobalCostSummary{}, fmt.Errorf("failed to summarize usage: %w", err)
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT session_id, SUM(input_tokens), SUM(output_tokens), SUM(cost_usd), COUNT(*)
		 FROM token_usage GROUP BY session_id ORDER BY SUM(cost_usd) DESC, session_id ASC`)
	if err != nil {
		return GlobalCostSummary{}, fmt.Errorf("failed to summarize usage per session: %w", err)
	}
	defer rows.Close()

	g.PerSession = []SessionCostSummary{}
	for rows.Next() {
		var sum SessionCostSummary
		if err := rows.Scan(&sum.SessionID, &sum.TotalInputTokens, &sum.TotalOutputTokens, &sum.TotalCostUSD, &sum.RecordCount); err != nil {
			return GlobalCostSummary{}, err
		}
		g.PerSession = append(g.PerSession, sum)
	}
	g.SessionCount = int64(len(g.PerSession))
	return g, rows.Err()
}
