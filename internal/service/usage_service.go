package service

import (
	"context"
	"fmt"
	"time"

	"app/internal/model"
	"app/internal/repository"

	"github.com/rs/zerolog"
)

// UsageService keeps each user's usage ledger aligned with the current
// calendar month and exposes it for display and gating.
type UsageService interface {
	// EnsureCurrentPeriod returns the user's ledger, creating it on first
	// sight and zeroing its counters when a new month has started since the
	// last write. A failed rollover aborts the caller rather than letting a
	// gated action run against last month's counts.
	EnsureCurrentPeriod(ctx context.Context, userID string) (*model.UsageLedger, error)
	GetUsage(ctx context.Context, userID string) (*model.UsageLedger, error)
}

type usageService struct {
	ledgerRepo repository.LedgerRepository
	logger     zerolog.Logger
	now        func() time.Time
}

func NewUsageService(ledgerRepo repository.LedgerRepository, logger zerolog.Logger) UsageService {
	return &usageService{
		ledgerRepo: ledgerRepo,
		logger:     logger.With().Str("service", "usage").Logger(),
		now:        time.Now,
	}
}

func firstOfMonth(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, time.UTC)
}

func (s *usageService) EnsureCurrentPeriod(ctx context.Context, userID string) (*model.UsageLedger, error) {
	period := firstOfMonth(s.now())

	ledger, err := s.ledgerRepo.GetLedger(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("loading ledger: %w", err)
	}
	if ledger == nil {
		if err := s.ledgerRepo.CreateLedger(ctx, userID, period); err != nil {
			return nil, fmt.Errorf("creating ledger: %w", err)
		}
		ledger, err = s.ledgerRepo.GetLedger(ctx, userID)
		if err != nil {
			return nil, fmt.Errorf("reloading ledger: %w", err)
		}
		if ledger == nil {
			return nil, fmt.Errorf("ledger for user %s missing after create", userID)
		}
		return ledger, nil
	}

	if ledger.UsageResetDate.Before(period) {
		if err := s.ledgerRepo.ResetIfStale(ctx, userID, period); err != nil {
			return nil, fmt.Errorf("rolling ledger into new month: %w", err)
		}
		ledger, err = s.ledgerRepo.GetLedger(ctx, userID)
		if err != nil {
			return nil, fmt.Errorf("reloading ledger after rollover: %w", err)
		}
		s.logger.Info().Str("user_id", userID).Time("period", period).Msg("usage counters rolled over")
	}
	return ledger, nil
}

func (s *usageService) GetUsage(ctx context.Context, userID string) (*model.UsageLedger, error) {
	return s.EnsureCurrentPeriod(ctx, userID)
}
