package service

import (
	"context"
	"fmt"
	"math"
	"strings"

	"app/internal/entitlement"
	"app/internal/model"
	"app/internal/repository"

	"github.com/rs/zerolog"
)

// DefaultPageSize is the window used by dashboard list fetches.
const DefaultPageSize = 50

// ChangePublisher pushes a billable change to the owner's live sessions.
type ChangePublisher interface {
	Publish(userID string, change model.BillableChange)
}

// BillableService owns time-entry CRUD, including the plan gate on creation.
type BillableService interface {
	ListBillables(ctx context.Context, userID string, page, pageSize int) ([]model.Billable, int, error)
	CreateBillable(ctx context.Context, userID string, b *model.Billable) (*model.Billable, error)
	GetBillable(ctx context.Context, id, userID string) (*model.Billable, error)
	UpdateBillable(ctx context.Context, userID string, b *model.Billable) (*model.Billable, error)
	DeleteBillable(ctx context.Context, id, userID string) error
}

type billableService struct {
	billableRepo repository.BillableRepository
	ledgerRepo   repository.LedgerRepository
	usage        UsageService
	publisher    ChangePublisher
	logger       zerolog.Logger
}

func NewBillableService(
	billableRepo repository.BillableRepository,
	ledgerRepo repository.LedgerRepository,
	usage UsageService,
	publisher ChangePublisher,
	logger zerolog.Logger,
) BillableService {
	return &billableService{
		billableRepo: billableRepo,
		ledgerRepo:   ledgerRepo,
		usage:        usage,
		publisher:    publisher,
		logger:       logger.With().Str("service", "billable").Logger(),
	}
}

// validateBillable enforces the field rules shared by create and update.
// Hours are tracked in six-minute increments, so the value must land on a
// tenth between 0.1 and 24.0 inclusive.
func validateBillable(b *model.Billable) error {
	if strings.TrimSpace(b.Client) == "" {
		return &ValidationError{Field: "client", Message: "must not be empty"}
	}
	if strings.TrimSpace(b.Matter) == "" {
		return &ValidationError{Field: "matter", Message: "must not be empty"}
	}
	if b.Date.IsZero() {
		return &ValidationError{Field: "date", Message: "must be provided"}
	}
	if b.Hours < 0.1 || b.Hours > 24 {
		return &ValidationError{Field: "hours", Message: "must be between 0.1 and 24"}
	}
	tenths := b.Hours * 10
	if math.Abs(tenths-math.Round(tenths)) > 1e-9 {
		return &ValidationError{Field: "hours", Message: "must be a multiple of 0.1"}
	}
	return nil
}

func (s *billableService) ListBillables(ctx context.Context, userID string, page, pageSize int) ([]model.Billable, int, error) {
	if page < 0 {
		page = 0
	}
	if pageSize <= 0 || pageSize > 200 {
		pageSize = DefaultPageSize
	}
	items, total, err := s.billableRepo.ListPage(ctx, userID, pageSize, page*pageSize)
	if err != nil {
		return nil, 0, err
	}
	return items, total, nil
}

func (s *billableService) CreateBillable(ctx context.Context, userID string, b *model.Billable) (*model.Billable, error) {
	if err := validateBillable(b); err != nil {
		return nil, err
	}

	ledger, err := s.usage.EnsureCurrentPeriod(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("preparing usage period: %w", err)
	}

	limit := entitlement.EntryLimit(ledger.Tier, ledger.Status)
	if limit < 0 {
		return nil, &LimitError{Resource: "entries", Upgrade: false}
	}

	// The conditional increment is the authoritative gate: two submissions
	// racing at the boundary resolve to exactly one success.
	ok, err := s.ledgerRepo.IncrementEntries(ctx, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("recording entry usage: %w", err)
	}
	if !ok {
		return nil, &LimitError{Resource: "entries", Limit: limit, Upgrade: true}
	}

	b.UserID = userID
	if err := s.billableRepo.CreateBillable(ctx, b); err != nil {
		if derr := s.ledgerRepo.DecrementEntries(ctx, userID); derr != nil {
			s.logger.Error().Err(derr).Str("user_id", userID).Msg("failed to release entry count after insert failure")
		}
		return nil, fmt.Errorf("creating billable: %w", err)
	}

	s.publisher.Publish(userID, model.BillableChange{Type: model.ChangeInsert, ID: b.ID, Billable: b})
	return b, nil
}

func (s *billableService) GetBillable(ctx context.Context, id, userID string) (*model.Billable, error) {
	b, err := s.billableRepo.GetBillableByID(ctx, id, userID)
	if err != nil {
		return nil, err
	}
	if b == nil {
		return nil, ErrNotFound
	}
	return b, nil
}

func (s *billableService) UpdateBillable(ctx context.Context, userID string, b *model.Billable) (*model.Billable, error) {
	if err := validateBillable(b); err != nil {
		return nil, err
	}

	existing, err := s.billableRepo.GetBillableByID(ctx, b.ID, userID)
	if err != nil {
		return nil, err
	}
	if existing == nil {
		return nil, ErrNotFound
	}

	b.UserID = userID
	if err := s.billableRepo.UpdateBillable(ctx, b); err != nil {
		return nil, fmt.Errorf("updating billable: %w", err)
	}

	// Edits never touch the monthly counter; only creations consume quota.
	s.publisher.Publish(userID, model.BillableChange{Type: model.ChangeUpdate, ID: b.ID, Billable: b})
	return b, nil
}

func (s *billableService) DeleteBillable(ctx context.Context, id, userID string) error {
	deleted, err := s.billableRepo.DeleteBillable(ctx, id, userID)
	if err != nil {
		return err
	}
	if !deleted {
		return ErrNotFound
	}

	// Deletion does not refund quota; the counter tracks creations, not the
	// surviving row count.
	s.publisher.Publish(userID, model.BillableChange{Type: model.ChangeDelete, ID: id})
	return nil
}
