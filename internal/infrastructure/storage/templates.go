package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/bytedance/sonic"
	"github.com/google/uuid"
)

// Template is a saved prompt for a tool.
type Template struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Tool        string    `json:"tool"`
	Prompt      string    `json:"prompt"`
	Description string    `json:"description"`
	Tags        []string  `json:"tags"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

// CreateTemplate is the input for a new template.
type CreateTemplate struct {
	Name        string   `json:"name" binding:"required"`
	Tool        string   `json:"tool"`
	Prompt      string   `json:"prompt" binding:"required"`
	Description string   `json:"description"`
	Tags        []string `json:"tags"`
}

// UpdateTemplate changes the fields that are set.
type UpdateTemplate struct {
	Name        *string   `json:"name"`
	Tool        *string   `json:"tool"`
	Prompt      *string   `json:"prompt"`
	Description *string   `json:"description"`
	Tags        *[]string `json:"tags"`
}

const templateColumns = "id, name, tool, prompt, description, tags, created_at, updated_at"

// CreateTemplate stores a new template under a fresh id.
func (s *Store) CreateTemplate(ctx context.Context, in CreateTemplate) (Template, error) {
	if strings.TrimSpace(in.Name) == "" || in.Prompt == "" {
		return Template{}, fmt.Errorf("%w: template name and prompt are required", ErrInvalid)
	}
	tags, err := encodeJSON(orEmpty(in.Tags))
	if err != nil {
		return Template{}, err
	}

	id := uuid.NewString()
	now := s.timestamp()

	s.mu.Lock()
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO templates (id, name, tool, prompt, description, tags, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		id, in.Name, in.Tool, in.Prompt, in.Description, tags, now, now)
	s.mu.Unlock()
	if err != nil {
		return Template{}, fmt.Errorf("failed to create template: %w", err)
	}
	return s.GetTemplate(ctx, id)
}

// GetTemplate returns a template or ErrNotFound.
func (s *Store) GetTemplate(ctx context.Context, id string) (Template, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	t, err := scanTemplate(s.db.QueryRowContext(ctx,
		"SELECT "+templateColumns+" FROM templates WHERE id = ?", id))
	if errors.Is(err, sql.ErrNoRows) {
		return Template{}, fmt.Errorf("template %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return Template{}, fmt.Errorf("failed to read template %s: %w", id, err)
	}
	return t, nil
}

// ListTemplates returns all templates, most recently updated first.
func (s *Store) ListTemplates(ctx context.Context) ([]Template, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rows, err := s.db.QueryContext(ctx,
		"SELECT "+templateColumns+" FROM templates ORDER BY updated_at DESC, id ASC")
	if err != nil {
		return nil, fmt.Errorf("failed to list templates: %w", err)
	}
	defer rows.Close()

	templates := []Template{}
	for rows.Next() {
		t, err := scanTemplate(rows)
		if err != nil {
			return nil, err
		}
		templates = append(templates, t)
	}
	return templates, rows.Err()
}

// UpdateTemplate applies the set fields of in and returns the result.
func (s *Store) UpdateTemplate(ctx context.Context, id string, in UpdateTemplate) (Template, error) {
	var (
		sets []string
		args []any
	)
	if in.Name != nil {
		if strings.TrimSpace(*in.Name) == "" {
			return Template{}, fmt.Errorf("%w: template name cannot be empty", ErrInvalid)
		}
		sets, args = append(sets, "name = ?"), append(args, *in.Name)
	}
	if in.Tool != nil {
		sets, args = append(sets, "tool = ?"), append(args, *in.Tool)
	}
	if in.Prompt != nil {
		sets, args = append(sets, "prompt = ?"), append(args, *in.Prompt)
	}
	if in.Description != nil {
		sets, args = append(sets, "description = ?"), append(args, *in.Description)
	}
	if in.Tags != nil {
		tags, err := encodeJSON(orEmpty(*in.Tags))
		if err != nil {
			return Template{}, err
		}
		sets, args = append(sets, "tags = ?"), append(args, tags)
	}

	if len(sets) > 0 {
		sets, args = append(sets, "updated_at = ?"), append(args, s.timestamp())
		args = append(args, id)

		s.mu.Lock()
		res, err := s.db.ExecContext(ctx,
			"UPDATE templates SET "+strings.Join(sets, ", ")+" WHERE id = ?", args...)
		s.mu.Unlock()
		if err != nil {
			return Template{}, fmt.Errorf("failed to update template %s: %w", id, err)
		}
		if n, _ := res.RowsAffected(); n == 0 {
			return Template{}, fmt.Errorf("template %s: %w", id, ErrNotFound)
		}
	}
	return s.GetTemplate(ctx, id)
}

// DeleteTemplate removes a template or returns ErrNotFound.
func (s *Store) DeleteTemplate(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	res, err := s.db.ExecContext(ctx, "DELETE FROM templates WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("failed to delete template %s: %w", id, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("template %s: %w", id, ErrNotFound)
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanTemplate(row rowScanner) (Template, error) {
	var (
		t                Template
		tags             string
		created, updated string
	)
	if err := row.Scan(&t.ID, &t.Name, &t.Tool, &t.Prompt, &t.Description, &tags, &created, &updated); err != nil {
		return Template{}, err
	}
	if err := sonic.UnmarshalString(tags, &t.Tags); err != nil {
		return Template{}, fmt.Errorf("template %s has malformed tags: %w", t.ID, err)
	}
	t.Tags = orEmpty(t.Tags)
	t.CreatedAt = parseTime(created)
	t.UpdatedAt = parseTime(updated)
	return t, nil
}

func encodeJSON(v any) (string, error) {
	s, err := sonic.MarshalString(v)
	if err != nil {
		return "", fmt.Errorf("failed to encode column: %w", err)
	}
	return s, nil
}

func orEmpty(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
