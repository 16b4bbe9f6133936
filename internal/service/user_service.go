package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"app/internal/model"
	"app/internal/repository"
)

var ErrUserNotFound = errors.New("user not found")

// UserService manages user profiles. Signup provisions the usage ledger so
// every profile has a free-tier row from its first request.
type UserService interface {
	Create(ctx context.Context, u *model.User) (*model.User, error)
	Get(ctx context.Context, id string) (*model.User, error)
}

type userService struct {
	userRepo   repository.UserRepository
	ledgerRepo repository.LedgerRepository
}

func NewUserService(userRepo repository.UserRepository, ledgerRepo repository.LedgerRepository) UserService {
	return &userService{userRepo: userRepo, ledgerRepo: ledgerRepo}
}

func (s *userService) Create(ctx context.Context, u *model.User) (*model.User, error) {
	if err := s.userRepo.CreateUser(ctx, u); err != nil {
		return nil, err
	}
	if err := s.ledgerRepo.CreateLedger(ctx, u.UserID, firstOfMonth(time.Now())); err != nil {
		return nil, fmt.Errorf("provisioning ledger for user %s: %w", u.UserID, err)
	}
	return u, nil
}

func (s *userService) Get(ctx context.Context, id string) (*model.User, error) {
	u, err := s.userRepo.GetUserByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if u == nil {
		return nil, ErrUserNotFound
	}
	return u, nil
}
