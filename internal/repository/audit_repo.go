package repository

import (
	"context"
	"database/sql"
	"fmt"

	"app/internal/model"

	"github.com/google/uuid"
)

// AuditFilter narrows an audit-log listing. Nil fields match everything.
type AuditFilter struct {
	AdminID      *string
	TargetUserID *string
	Action       *model.AuditAction
}

// AuditRepository appends and lists admin audit-log rows. Rows are never
// updated or deleted through the application.
type AuditRepository interface {
	InsertEntry(ctx context.Context, e *model.AuditEntry) error
	ListEntries(ctx context.Context, filter AuditFilter, limit, offset int) ([]model.AuditEntry, int, error)
}

type auditRepo struct {
	db *sql.DB
}

func NewAuditRepo(db *sql.DB) AuditRepository {
	return &auditRepo{db: db}
}

func (r *auditRepo) InsertEntry(ctx context.Context, e *model.AuditEntry) error {
	if e.ID == "" {
		e.ID = uuid.NewString()
	}
	query := `
		INSERT INTO admin_audit_log (id, admin_id, action, target_user_id, details, notes, ip_address)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING created_at
	`
	err := r.db.QueryRowContext(ctx, query,
		e.ID, e.AdminID, e.Action, e.TargetUserID, []byte(e.Details), e.Notes, e.IPAddress,
	).Scan(&e.CreatedAt)
	if err != nil {
		return fmt.Errorf("inserting audit entry for admin %s: %w", e.AdminID, err)
	}
	return nil
}

func (r *auditRepo) ListEntries(ctx context.Context, filter AuditFilter, limit, offset int) ([]model.AuditEntry, int, error) {
	where := ` WHERE ($1::text IS NULL OR admin_id = $1)
		AND ($2::text IS NULL OR target_user_id = $2)
		AND ($3::text IS NULL OR action = $3)`

	var total int
	countQuery := `SELECT COUNT(*) FROM admin_audit_log` + where
	if err := r.db.QueryRowContext(ctx, countQuery, filter.AdminID, filter.TargetUserID, filter.Action).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("counting audit entries: %w", err)
	}

	query := `
		SELECT id, admin_id, action, target_user_id, details, notes, ip_address, created_at
		FROM admin_audit_log` + where + `
		ORDER BY created_at DESC
		LIMIT $4 OFFSET $5
	`
	rows, err := r.db.QueryContext(ctx, query, filter.AdminID, filter.TargetUserID, filter.Action, limit, offset)
	if err != nil {
		return nil, 0, fmt.Errorf("querying audit entries: %w", err)
	}
	defer rows.Close()

	var entries []model.AuditEntry
	for rows.Next() {
		var e model.AuditEntry
		var details []byte
		if err := rows.Scan(&e.ID, &e.AdminID, &e.Action, &e.TargetUserID, &details, &e.Notes, &e.IPAddress, &e.CreatedAt); err != nil {
			return nil, 0, fmt.Errorf("scanning audit row: %w", err)
		}
		e.Details = details
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("row iteration error: %w", err)
	}
	return entries, total, nil
}
