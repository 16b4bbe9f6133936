package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"app/internal/model"

	"github.com/google/uuid"
)

// BillableRepository stores per-user time entries. All reads and writes are
// scoped to the owning user; a mutation against another user's row behaves
// like a missing row.
type BillableRepository interface {
	// ListPage returns one page ordered by (date desc, created_at desc) plus
	// the total matching count, recomputed on every call.
	ListPage(ctx context.Context, userID string, limit, offset int) ([]model.Billable, int, error)
	ListRange(ctx context.Context, userID string, from, to time.Time, limit, offset int) ([]model.Billable, error)
	CountRange(ctx context.Context, userID string, from, to time.Time) (int, error)
	CreateBillable(ctx context.Context, b *model.Billable) error
	GetBillableByID(ctx context.Context, id, userID string) (*model.Billable, error)
	UpdateBillable(ctx context.Context, b *model.Billable) error
	DeleteBillable(ctx context.Context, id, userID string) (bool, error)
}

type billableRepo struct {
	db *sql.DB
}

func NewBillableRepo(db *sql.DB) BillableRepository {
	return &billableRepo{db: db}
}

func (r *billableRepo) ListPage(ctx context.Context, userID string, limit, offset int) ([]model.Billable, int, error) {
	var total int
	countQuery := `SELECT COUNT(*) FROM billables WHERE user_id = $1`
	if err := r.db.QueryRowContext(ctx, countQuery, userID).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("counting billables for user %s: %w", userID, err)
	}

	query := `
		SELECT id, user_id, date, client, client_ref, matter, case_number, hours, description, created_at, updated_at
		FROM billables
		WHERE user_id = $1
		ORDER BY date DESC, created_at DESC
		LIMIT $2 OFFSET $3
	`
	rows, err := r.db.QueryContext(ctx, query, userID, limit, offset)
	if err != nil {
		return nil, 0, fmt.Errorf("querying billables page: %w", err)
	}
	defer rows.Close()

	billables, err := scanBillables(rows)
	if err != nil {
		return nil, 0, err
	}
	return billables, total, nil
}

func (r *billableRepo) ListRange(ctx context.Context, userID string, from, to time.Time, limit, offset int) ([]model.Billable, error) {
	query := `
		SELECT id, user_id, date, client, client_ref, matter, case_number, hours, description, created_at, updated_at
		FROM billables
		WHERE user_id = $1 AND date >= $2 AND date <= $3
		ORDER BY date DESC, created_at DESC
		LIMIT $4 OFFSET $5
	`
	rows, err := r.db.QueryContext(ctx, query, userID, from, to, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("querying billables range: %w", err)
	}
	defer rows.Close()

	return scanBillables(rows)
}

func (r *billableRepo) CountRange(ctx context.Context, userID string, from, to time.Time) (int, error) {
	var count int
	query := `SELECT COUNT(*) FROM billables WHERE user_id = $1 AND date >= $2 AND date <= $3`
	if err := r.db.QueryRowContext(ctx, query, userID, from, to).Scan(&count); err != nil {
		return 0, fmt.Errorf("counting billables in range for user %s: %w", userID, err)
	}
	return count, nil
}

func (r *billableRepo) CreateBillable(ctx context.Context, b *model.Billable) error {
	if b.ID == "" {
		b.ID = uuid.NewString()
	}
	query := `
		INSERT INTO billables (id, user_id, date, client, client_ref, matter, case_number, hours, description)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING created_at, updated_at
	`
	err := r.db.QueryRowContext(ctx, query,
		b.ID, b.UserID, b.Date, b.Client, b.ClientRef, b.Matter, b.CaseNumber, b.Hours, b.Description,
	).Scan(&b.CreatedAt, &b.UpdatedAt)
	if err != nil {
		return fmt.Errorf("inserting billable for user %s: %w", b.UserID, err)
	}
	return nil
}

func (r *billableRepo) GetBillableByID(ctx context.Context, id, userID string) (*model.Billable, error) {
	query := `
		SELECT id, user_id, date, client, client_ref, matter, case_number, hours, description, created_at, updated_at
		FROM billables
		WHERE id = $1 AND user_id = $2
	`
	row := r.db.QueryRowContext(ctx, query, id, userID)
	var b model.Billable
	if err := scanBillable(row, &b); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("scanning billable row: %w", err)
	}
	return &b, nil
}

func (r *billableRepo) UpdateBillable(ctx context.Context, b *model.Billable) error {
	query := `
		UPDATE billables
		SET date = $1, client = $2, client_ref = $3, matter = $4, case_number = $5, hours = $6, description = $7, updated_at = NOW()
		WHERE id = $8 AND user_id = $9
		RETURNING created_at, updated_at
	`
	err := r.db.QueryRowContext(ctx, query,
		b.Date, b.Client, b.ClientRef, b.Matter, b.CaseNumber, b.Hours, b.Description, b.ID, b.UserID,
	).Scan(&b.CreatedAt, &b.UpdatedAt)
	if err != nil {
		return fmt.Errorf("updating billable %s: %w", b.ID, err)
	}
	return nil
}

func (r *billableRepo) DeleteBillable(ctx context.Context, id, userID string) (bool, error) {
	query := `DELETE FROM billables WHERE id = $1 AND user_id = $2`
	res, err := r.db.ExecContext(ctx, query, id, userID)
	if err != nil {
		return false, fmt.Errorf("deleting billable %s: %w", id, err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("reading delete result for billable %s: %w", id, err)
	}
	return affected > 0, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanBillable(row rowScanner, b *model.Billable) error {
	return row.Scan(
		&b.ID,
		&b.UserID,
		&b.Date,
		&b.Client,
		&b.ClientRef,
		&b.Matter,
		&b.CaseNumber,
		&b.Hours,
		&b.Description,
		&b.CreatedAt,
		&b.UpdatedAt,
	)
}

func scanBillables(rows *sql.Rows) ([]model.Billable, error) {
	var billables []model.Billable
	for rows.Next() {
		var b model.Billable
		if err := scanBillable(rows, &b); err != nil {
			return nil, fmt.Errorf("scanning billable row: %w", err)
		}
		billables = append(billables, b)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}
	return billables, nil
}
