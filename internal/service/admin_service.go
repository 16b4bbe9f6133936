package service

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"app/internal/model"
	"app/internal/repository"

	"github.com/rs/zerolog"
)

// Actor identifies the admin performing a mutation, for the audit trail.
type Actor struct {
	AdminID   string
	Notes     *string
	IPAddress *string
}

// Account pairs a user profile with its usage ledger for the admin panel.
type Account struct {
	User   model.User         `json:"user"`
	Ledger *model.UsageLedger `json:"ledger,omitempty"`
}

// AdminService exposes the support mutations behind the admin panel. Every
// mutation appends an audit entry recording who did what to whom, with the
// values that were overwritten. Audit writes are best effort: a failed append
// is logged but never rolls back the mutation itself.
type AdminService interface {
	ListAccounts(ctx context.Context, limit, offset int) ([]Account, error)
	GetAccount(ctx context.Context, userID string) (*Account, error)
	ResetUsage(ctx context.Context, actor Actor, userID string) error
	ChangeTier(ctx context.Context, actor Actor, userID string, tier model.Tier) error
	ChangeStatus(ctx context.Context, actor Actor, userID string, status model.Status) error
	ExtendTrial(ctx context.Context, actor Actor, userID string, trialEnd time.Time) error
	ListAuditLog(ctx context.Context, filter repository.AuditFilter, limit, offset int) ([]model.AuditEntry, int, error)
}

type adminService struct {
	userRepo   repository.UserRepository
	ledgerRepo repository.LedgerRepository
	auditRepo  repository.AuditRepository
	logger     zerolog.Logger
	now        func() time.Time
}

func NewAdminService(
	userRepo repository.UserRepository,
	ledgerRepo repository.LedgerRepository,
	auditRepo repository.AuditRepository,
	logger zerolog.Logger,
) AdminService {
	return &adminService{
		userRepo:   userRepo,
		ledgerRepo: ledgerRepo,
		auditRepo:  auditRepo,
		logger:     logger.With().Str("service", "admin").Logger(),
		now:        time.Now,
	}
}

func (s *adminService) ListAccounts(ctx context.Context, limit, offset int) ([]Account, error) {
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	users, err := s.userRepo.ListUsers(ctx, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("listing users: %w", err)
	}

	accounts := make([]Account, 0, len(users))
	for _, u := range users {
		ledger, err := s.ledgerRepo.GetLedger(ctx, u.UserID)
		if err != nil {
			return nil, fmt.Errorf("loading ledger for user %s: %w", u.UserID, err)
		}
		accounts = append(accounts, Account{User: u, Ledger: ledger})
	}
	return accounts, nil
}

func (s *adminService) GetAccount(ctx context.Context, userID string) (*Account, error) {
	user, err := s.userRepo.GetUserByID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("loading user %s: %w", userID, err)
	}
	if user == nil {
		return nil, ErrNotFound
	}
	ledger, err := s.ledgerRepo.GetLedger(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("loading ledger for user %s: %w", userID, err)
	}
	return &Account{User: *user, Ledger: ledger}, nil
}

// audit appends one trail entry. Failures are logged and swallowed so a
// broken audit table cannot block support operations.
func (s *adminService) audit(ctx context.Context, actor Actor, action model.AuditAction, targetUserID string, details any) {
	raw, err := json.Marshal(details)
	if err != nil {
		s.logger.Error().Err(err).Str("action", string(action)).Msg("failed to encode audit details")
		return
	}
	entry := &model.AuditEntry{
		AdminID:      actor.AdminID,
		Action:       action,
		TargetUserID: &targetUserID,
		Details:      raw,
		Notes:        actor.Notes,
		IPAddress:    actor.IPAddress,
	}
	if err := s.auditRepo.InsertEntry(ctx, entry); err != nil {
		s.logger.Error().Err(err).
			Str("action", string(action)).
			Str("admin_id", actor.AdminID).
			Str("target_user_id", targetUserID).
			Msg("failed to append audit entry")
	}
}

func (s *adminService) loadLedgerOr404(ctx context.Context, userID string) (*model.UsageLedger, error) {
	ledger, err := s.ledgerRepo.GetLedger(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("loading ledger for user %s: %w", userID, err)
	}
	if ledger == nil {
		return nil, ErrNotFound
	}
	return ledger, nil
}

func (s *adminService) ResetUsage(ctx context.Context, actor Actor, userID string) error {
	ledger, err := s.loadLedgerOr404(ctx, userID)
	if err != nil {
		return err
	}

	// A manual reset marks the counters valid through today, not just the
	// month boundary.
	now := s.now()
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
	if err := s.ledgerRepo.ResetUsage(ctx, userID, today); err != nil {
		return fmt.Errorf("resetting usage for user %s: %w", userID, err)
	}

	// The trail records the counters as they stood before the reset.
	s.audit(ctx, actor, model.AuditResetUsage, userID, map[string]any{
		"old_values": map[string]any{
			"entries_count": ledger.EntriesThisMonth,
			"exports_count": ledger.ExportsThisMonth,
		},
	})
	return nil
}

func (s *adminService) ChangeTier(ctx context.Context, actor Actor, userID string, tier model.Tier) error {
	if tier != model.TierFree && tier != model.TierPro {
		return &ValidationError{Field: "tier", Message: "must be free or pro"}
	}
	ledger, err := s.loadLedgerOr404(ctx, userID)
	if err != nil {
		return err
	}

	if err := s.ledgerRepo.SetTier(ctx, userID, tier); err != nil {
		return fmt.Errorf("setting tier for user %s: %w", userID, err)
	}

	s.audit(ctx, actor, model.AuditChangeTier, userID, map[string]any{
		"old_tier": ledger.Tier,
		"new_tier": tier,
	})
	return nil
}

func (s *adminService) ChangeStatus(ctx context.Context, actor Actor, userID string, status model.Status) error {
	switch status {
	case model.StatusActive, model.StatusTrialing, model.StatusPastDue, model.StatusCanceled,
		model.StatusIncomplete, model.StatusIncompleteExpired, model.StatusUnpaid:
	default:
		return &ValidationError{Field: "status", Message: "unknown subscription status"}
	}
	ledger, err := s.loadLedgerOr404(ctx, userID)
	if err != nil {
		return err
	}

	if err := s.ledgerRepo.SetStatus(ctx, userID, status); err != nil {
		return fmt.Errorf("setting status for user %s: %w", userID, err)
	}

	s.audit(ctx, actor, model.AuditChangeStatus, userID, map[string]any{
		"old_status": ledger.Status,
		"new_status": status,
	})
	return nil
}

func (s *adminService) ExtendTrial(ctx context.Context, actor Actor, userID string, trialEnd time.Time) error {
	if !trialEnd.After(s.now()) {
		return &ValidationError{Field: "trial_end", Message: "must be in the future"}
	}
	ledger, err := s.loadLedgerOr404(ctx, userID)
	if err != nil {
		return err
	}

	if err := s.ledgerRepo.ExtendTrial(ctx, userID, trialEnd); err != nil {
		return fmt.Errorf("extending trial for user %s: %w", userID, err)
	}

	details := map[string]any{"new_trial_end": trialEnd}
	if ledger.TrialEnd != nil {
		details["old_trial_end"] = *ledger.TrialEnd
	}
	s.audit(ctx, actor, model.AuditExtendTrial, userID, details)
	return nil
}

func (s *adminService) ListAuditLog(ctx context.Context, filter repository.AuditFilter, limit, offset int) ([]model.AuditEntry, int, error) {
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	return s.auditRepo.ListEntries(ctx, filter, limit, offset)
}
