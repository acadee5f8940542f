package user

import (
	"context"
)

// Service defines business logic related to users.
type Service interface {
	GetByID(ctx context.Context, id string) (*User, error)
	// GetActive returns the user only if the account may place reservations.
	GetActive(ctx context.Context, id string) (*User, error)
}

type service struct {
	repo Repository
}

// NewService creates a new user Service.
func NewService(repo Repository) Service {
	return &service{repo: repo}
}

func (s *service) GetByID(ctx context.Context, id string) (*User, error) {
	return s.repo.GetByID(ctx, id)
}

func (s *service) GetActive(ctx context.Context, id string) (*User, error) {
	u, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !u.IsActive {
		return nil, ErrInactiveUser
	}
	return u, nil
}
