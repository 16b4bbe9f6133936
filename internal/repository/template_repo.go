package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"app/internal/model"

	"github.com/google/uuid"
)

// TemplateRepository stores per-user billable templates. Tags travel as jsonb.
type TemplateRepository interface {
	ListTemplates(ctx context.Context, userID string) ([]model.Template, error)
	CountTemplates(ctx context.Context, userID string) (int, error)
	CreateTemplate(ctx context.Context, t *model.Template) error
	GetTemplateByID(ctx context.Context, id, userID string) (*model.Template, error)
	UpdateTemplate(ctx context.Context, t *model.Template) error
	DeleteTemplate(ctx context.Context, id, userID string) (bool, error)
}

type templateRepo struct {
	db *sql.DB
}

func NewTemplateRepo(db *sql.DB) TemplateRepository {
	return &templateRepo{db: db}
}

func scanTemplate(row rowScanner, t *model.Template) error {
	var rawTags []byte
	err := row.Scan(
		&t.ID,
		&t.UserID,
		&t.Name,
		&t.Client,
		&t.Matter,
		&t.Hours,
		&t.Description,
		&rawTags,
		&t.CreatedAt,
		&t.UpdatedAt,
	)
	if err != nil {
		return err
	}
	if len(rawTags) > 0 {
		if err := json.Unmarshal(rawTags, &t.Tags); err != nil {
			return fmt.Errorf("unmarshal tags for template %s: %w", t.ID, err)
		}
	}
	return nil
}

func marshalTags(tags []string) ([]byte, error) {
	if tags == nil {
		tags = []string{}
	}
	return json.Marshal(tags)
}

func (r *templateRepo) ListTemplates(ctx context.Context, userID string) ([]model.Template, error) {
	query := `
		SELECT id, user_id, name, client, matter, hours, description, tags, created_at, updated_at
		FROM templates
		WHERE user_id = $1
		ORDER BY name ASC
	`
	rows, err := r.db.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("querying templates for user %s: %w", userID, err)
	}
	defer rows.Close()

	var templates []model.Template
	for rows.Next() {
		var t model.Template
		if err := scanTemplate(rows, &t); err != nil {
			return nil, fmt.Errorf("scanning template row: %w", err)
		}
		templates = append(templates, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}
	return templates, nil
}

func (r *templateRepo) CountTemplates(ctx context.Context, userID string) (int, error) {
	var count int
	query := `SELECT COUNT(*) FROM templates WHERE user_id = $1`
	if err := r.db.QueryRowContext(ctx, query, userID).Scan(&count); err != nil {
		return 0, fmt.Errorf("counting templates for user %s: %w", userID, err)
	}
	return count, nil
}

func (r *templateRepo) CreateTemplate(ctx context.Context, t *model.Template) error {
	if t.ID == "" {
		t.ID = uuid.NewString()
	}
	rawTags, err := marshalTags(t.Tags)
	if err != nil {
		return fmt.Errorf("marshal tags: %w", err)
	}
	query := `
		INSERT INTO templates (id, user_id, name, client, matter, hours, description, tags)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING created_at, updated_at
	`
	err = r.db.QueryRowContext(ctx, query,
		t.ID, t.UserID, t.Name, t.Client, t.Matter, t.Hours, t.Description, rawTags,
	).Scan(&t.CreatedAt, &t.UpdatedAt)
	if err != nil {
		return fmt.Errorf("inserting template for user %s: %w", t.UserID, err)
	}
	return nil
}

func (r *templateRepo) GetTemplateByID(ctx context.Context, id, userID string) (*model.Template, error) {
	query := `
		SELECT id, user_id, name, client, matter, hours, description, tags, created_at, updated_at
		FROM templates
		WHERE id = $1 AND user_id = $2
	`
	var t model.Template
	if err := scanTemplate(r.db.QueryRowContext(ctx, query, id, userID), &t); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("scanning template row: %w", err)
	}
	return &t, nil
}

func (r *templateRepo) UpdateTemplate(ctx context.Context, t *model.Template) error {
	rawTags, err := marshalTags(t.Tags)
	if err != nil {
		return fmt.Errorf("marshal tags: %w", err)
	}
	query := `
		UPDATE templates
		SET name = $1, client = $2, matter = $3, hours = $4, description = $5, tags = $6, updated_at = NOW()
		WHERE id = $7 AND user_id = $8
		RETURNING created_at, updated_at
	`
	err = r.db.QueryRowContext(ctx, query,
		t.Name, t.Client, t.Matter, t.Hours, t.Description, rawTags, t.ID, t.UserID,
	).Scan(&t.CreatedAt, &t.UpdatedAt)
	if err != nil {
		return fmt.Errorf("updating template %s: %w", t.ID, err)
	}
	return nil
}

func (r *templateRepo) DeleteTemplate(ctx context.Context, id, userID string) (bool, error) {
	query := `DELETE FROM templates WHERE id = $1 AND user_id = $2`
	res, err := r.db.ExecContext(ctx, query, id, userID)
	if err != nil {
		return false, fmt.Errorf("deleting template %s: %w", id, err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("reading delete result for template %s: %w", id, err)
	}
	return affected > 0, nil
}
