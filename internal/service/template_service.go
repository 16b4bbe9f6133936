package service

import (
	"context"
	"fmt"
	"strings"

	"app/internal/entitlement"
	"app/internal/model"
	"app/internal/repository"

	"github.com/rs/zerolog"
)

// TemplateService manages per-user billable templates. The free-tier cap
// applies to the live template count, not a monthly counter, so deleting a
// template frees a slot immediately.
type TemplateService interface {
	ListTemplates(ctx context.Context, userID string) ([]model.Template, error)
	CreateTemplate(ctx context.Context, userID string, t *model.Template) (*model.Template, error)
	UpdateTemplate(ctx context.Context, userID string, t *model.Template) (*model.Template, error)
	DeleteTemplate(ctx context.Context, id, userID string) error
	// DuplicateTemplate copies an existing template under a derived name.
	// The copy counts against the cap like any other creation.
	DuplicateTemplate(ctx context.Context, id, userID string) (*model.Template, error)
}

type templateService struct {
	templateRepo repository.TemplateRepository
	usage        UsageService
	logger       zerolog.Logger
}

func NewTemplateService(templateRepo repository.TemplateRepository, usage UsageService, logger zerolog.Logger) TemplateService {
	return &templateService{
		templateRepo: templateRepo,
		usage:        usage,
		logger:       logger.With().Str("service", "template").Logger(),
	}
}

func validateTemplate(t *model.Template) error {
	if strings.TrimSpace(t.Name) == "" {
		return &ValidationError{Field: "name", Message: "must not be empty"}
	}
	if t.Hours != nil && (*t.Hours < 0.1 || *t.Hours > 24) {
		return &ValidationError{Field: "hours", Message: "must be between 0.1 and 24"}
	}
	return nil
}

func (s *templateService) ListTemplates(ctx context.Context, userID string) ([]model.Template, error) {
	return s.templateRepo.ListTemplates(ctx, userID)
}

func (s *templateService) CreateTemplate(ctx context.Context, userID string, t *model.Template) (*model.Template, error) {
	if err := validateTemplate(t); err != nil {
		return nil, err
	}

	ledger, err := s.usage.EnsureCurrentPeriod(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("preparing usage period: %w", err)
	}

	count, err := s.templateRepo.CountTemplates(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("counting templates: %w", err)
	}
	if !entitlement.CanCreateTemplate(ledger.Tier, ledger.Status, count) {
		return nil, &LimitError{Resource: "templates", Limit: entitlement.FreeTemplateLimit, Upgrade: true}
	}

	t.UserID = userID
	if err := s.templateRepo.CreateTemplate(ctx, t); err != nil {
		return nil, fmt.Errorf("creating template: %w", err)
	}
	return t, nil
}

func (s *templateService) UpdateTemplate(ctx context.Context, userID string, t *model.Template) (*model.Template, error) {
	if err := validateTemplate(t); err != nil {
		return nil, err
	}

	existing, err := s.templateRepo.GetTemplateByID(ctx, t.ID, userID)
	if err != nil {
		return nil, err
	}
	if existing == nil {
		return nil, ErrNotFound
	}

	t.UserID = userID
	if err := s.templateRepo.UpdateTemplate(ctx, t); err != nil {
		return nil, fmt.Errorf("updating template: %w", err)
	}
	return t, nil
}

func (s *templateService) DeleteTemplate(ctx context.Context, id, userID string) error {
	deleted, err := s.templateRepo.DeleteTemplate(ctx, id, userID)
	if err != nil {
		return err
	}
	if !deleted {
		return ErrNotFound
	}
	return nil
}

func (s *templateService) DuplicateTemplate(ctx context.Context, id, userID string) (*model.Template, error) {
	src, err := s.templateRepo.GetTemplateByID(ctx, id, userID)
	if err != nil {
		return nil, err
	}
	if src == nil {
		return nil, ErrNotFound
	}

	copyTpl := *src
	copyTpl.ID = ""
	copyTpl.Name = src.Name + " (copy)"
	copyTpl.Tags = append([]string(nil), src.Tags...)
	return s.CreateTemplate(ctx, userID, &copyTpl)
}
