package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"app/internal/model"
)

// LedgerRepository manages the per-user usage ledger row: monthly counters,
// tier/status, and the mirrored billing-provider subscription fields.
type LedgerRepository interface {
	GetLedger(ctx context.Context, userID string) (*model.UsageLedger, error)
	CreateLedger(ctx context.Context, userID string, resetDate time.Time) error
	// ResetIfStale zeroes both counters and advances usage_reset_date in a
	// single statement when the stored reset date predates firstOfMonth.
	// Re-invoking within the same month is a no-op.
	ResetIfStale(ctx context.Context, userID string, firstOfMonth time.Time) error
	// IncrementEntries bumps the entry counter. A positive limit makes the
	// increment conditional (counter < limit) so the check and the write
	// cannot interleave; limit 0 increments unconditionally. Returns whether
	// the row was affected.
	IncrementEntries(ctx context.Context, userID string, limit int) (bool, error)
	DecrementEntries(ctx context.Context, userID string) error
	IncrementExports(ctx context.Context, userID string, limit int) (bool, error)
	DecrementExports(ctx context.Context, userID string) error
	ResetUsage(ctx context.Context, userID string, resetDate time.Time) error
	SetTier(ctx context.Context, userID string, tier model.Tier) error
	SetStatus(ctx context.Context, userID string, status model.Status) error
	ExtendTrial(ctx context.Context, userID string, trialEnd time.Time) error
	UpsertFromProvider(ctx context.Context, sub *model.UsageLedger) error
}

type ledgerRepo struct {
	db *sql.DB
}

func NewLedgerRepo(db *sql.DB) LedgerRepository {
	return &ledgerRepo{db: db}
}

const ledgerColumns = `user_id, tier, status, stripe_customer_id, stripe_subscription_id, billing_interval,
		current_period_start, current_period_end, trial_start, trial_end, cancel_at_period_end,
		entries_count_current_month, exports_count_current_month, usage_reset_date, created_at, updated_at`

func scanLedger(row rowScanner) (*model.UsageLedger, error) {
	var l model.UsageLedger
	err := row.Scan(
		&l.UserID,
		&l.Tier,
		&l.Status,
		&l.StripeCustomerID,
		&l.StripeSubscriptionID,
		&l.BillingInterval,
		&l.CurrentPeriodStart,
		&l.CurrentPeriodEnd,
		&l.TrialStart,
		&l.TrialEnd,
		&l.CancelAtPeriodEnd,
		&l.EntriesThisMonth,
		&l.ExportsThisMonth,
		&l.UsageResetDate,
		&l.CreatedAt,
		&l.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &l, nil
}

func (r *ledgerRepo) GetLedger(ctx context.Context, userID string) (*model.UsageLedger, error) {
	query := `SELECT ` + ledgerColumns + ` FROM usage_ledgers WHERE user_id = $1`
	l, err := scanLedger(r.db.QueryRowContext(ctx, query, userID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("fetch ledger for user %s: %w", userID, err)
	}
	return l, nil
}

func (r *ledgerRepo) CreateLedger(ctx context.Context, userID string, resetDate time.Time) error {
	query := `
		INSERT INTO usage_ledgers (user_id, tier, status, usage_reset_date)
		VALUES ($1, 'free', 'active', $2)
		ON CONFLICT (user_id) DO NOTHING
	`
	if _, err := r.db.ExecContext(ctx, query, userID, resetDate); err != nil {
		return fmt.Errorf("creating ledger for user %s: %w", userID, err)
	}
	return nil
}

func (r *ledgerRepo) ResetIfStale(ctx context.Context, userID string, firstOfMonth time.Time) error {
	query := `
		UPDATE usage_ledgers
		SET entries_count_current_month = 0,
		    exports_count_current_month = 0,
		    usage_reset_date = $2,
		    updated_at = NOW()
		WHERE user_id = $1 AND usage_reset_date < $2
	`
	if _, err := r.db.ExecContext(ctx, query, userID, firstOfMonth); err != nil {
		return fmt.Errorf("resetting stale counters for user %s: %w", userID, err)
	}
	return nil
}

func (r *ledgerRepo) incrementCounter(ctx context.Context, column, userID string, limit int) (bool, error) {
	var query string
	args := []any{userID}
	if limit > 0 {
		// Single conditional update: the limit check and the increment are
		// one statement, so two concurrent submissions cannot both pass at
		// the boundary.
		query = `UPDATE usage_ledgers SET ` + column + ` = ` + column + ` + 1, updated_at = NOW()
			WHERE user_id = $1 AND ` + column + ` < $2`
		args = append(args, limit)
	} else {
		query = `UPDATE usage_ledgers SET ` + column + ` = ` + column + ` + 1, updated_at = NOW()
			WHERE user_id = $1`
	}
	res, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return false, fmt.Errorf("incrementing %s for user %s: %w", column, userID, err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("reading increment result for user %s: %w", userID, err)
	}
	return affected > 0, nil
}

func (r *ledgerRepo) decrementCounter(ctx context.Context, column, userID string) error {
	query := `UPDATE usage_ledgers SET ` + column + ` = GREATEST(` + column + ` - 1, 0), updated_at = NOW()
		WHERE user_id = $1`
	if _, err := r.db.ExecContext(ctx, query, userID); err != nil {
		return fmt.Errorf("decrementing %s for user %s: %w", column, userID, err)
	}
	return nil
}

func (r *ledgerRepo) IncrementEntries(ctx context.Context, userID string, limit int) (bool, error) {
	return r.incrementCounter(ctx, "entries_count_current_month", userID, limit)
}

func (r *ledgerRepo) DecrementEntries(ctx context.Context, userID string) error {
	return r.decrementCounter(ctx, "entries_count_current_month", userID)
}

func (r *ledgerRepo) IncrementExports(ctx context.Context, userID string, limit int) (bool, error) {
	return r.incrementCounter(ctx, "exports_count_current_month", userID, limit)
}

func (r *ledgerRepo) DecrementExports(ctx context.Context, userID string) error {
	return r.decrementCounter(ctx, "exports_count_current_month", userID)
}

func (r *ledgerRepo) ResetUsage(ctx context.Context, userID string, resetDate time.Time) error {
	query := `
		UPDATE usage_ledgers
		SET entries_count_current_month = 0,
		    exports_count_current_month = 0,
		    usage_reset_date = $2,
		    updated_at = NOW()
		WHERE user_id = $1
	`
	res, err := r.db.ExecContext(ctx, query, userID, resetDate)
	if err != nil {
		return fmt.Errorf("resetting usage for user %s: %w", userID, err)
	}
	return requireAffected(res, userID)
}

func (r *ledgerRepo) SetTier(ctx context.Context, userID string, tier model.Tier) error {
	query := `UPDATE usage_ledgers SET tier = $2, updated_at = NOW() WHERE user_id = $1`
	res, err := r.db.ExecContext(ctx, query, userID, tier)
	if err != nil {
		return fmt.Errorf("setting tier for user %s: %w", userID, err)
	}
	return requireAffected(res, userID)
}

func (r *ledgerRepo) SetStatus(ctx context.Context, userID string, status model.Status) error {
	query := `UPDATE usage_ledgers SET status = $2, updated_at = NOW() WHERE user_id = $1`
	res, err := r.db.ExecContext(ctx, query, userID, status)
	if err != nil {
		return fmt.Errorf("setting status for user %s: %w", userID, err)
	}
	return requireAffected(res, userID)
}

func (r *ledgerRepo) ExtendTrial(ctx context.Context, userID string, trialEnd time.Time) error {
	query := `
		UPDATE usage_ledgers
		SET trial_end = $2,
		    trial_start = COALESCE(trial_start, NOW()),
		    status = 'trialing',
		    updated_at = NOW()
		WHERE user_id = $1
	`
	res, err := r.db.ExecContext(ctx, query, userID, trialEnd)
	if err != nil {
		return fmt.Errorf("extending trial for user %s: %w", userID, err)
	}
	return requireAffected(res, userID)
}

func (r *ledgerRepo) UpsertFromProvider(ctx context.Context, sub *model.UsageLedger) error {
	query := `
		INSERT INTO usage_ledgers (user_id, tier, status, stripe_customer_id, stripe_subscription_id,
			billing_interval, current_period_start, current_period_end, trial_start, trial_end,
			cancel_at_period_end, usage_reset_date)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		ON CONFLICT (user_id) DO UPDATE
		SET tier = EXCLUDED.tier,
		    status = EXCLUDED.status,
		    stripe_customer_id = EXCLUDED.stripe_customer_id,
		    stripe_subscription_id = EXCLUDED.stripe_subscription_id,
		    billing_interval = EXCLUDED.billing_interval,
		    current_period_start = EXCLUDED.current_period_start,
		    current_period_end = EXCLUDED.current_period_end,
		    trial_start = EXCLUDED.trial_start,
		    trial_end = EXCLUDED.trial_end,
		    cancel_at_period_end = EXCLUDED.cancel_at_period_end,
		    updated_at = NOW()
	`
	_, err := r.db.ExecContext(ctx, query,
		sub.UserID, sub.Tier, sub.Status, sub.StripeCustomerID, sub.StripeSubscriptionID,
		sub.BillingInterval, sub.CurrentPeriodStart, sub.CurrentPeriodEnd, sub.TrialStart, sub.TrialEnd,
		sub.CancelAtPeriodEnd, sub.UsageResetDate,
	)
	if err != nil {
		return fmt.Errorf("upserting provider subscription for user %s: %w", sub.UserID, err)
	}
	return nil
}

func requireAffected(res sql.Result, userID string) error {
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("reading update result for user %s: %w", userID, err)
	}
	if affected == 0 {
		return sql.ErrNoRows
	}
	return nil
}
