package resource

import (
	"context"
	"strings"
)

type CreateRequest struct {
	Kind             Kind
	Name             string
	ManagementNumber string
}

type UpdateRequest struct {
	Name             *string
	ManagementNumber *string
}

type Service interface {
	Create(ctx context.Context, req CreateRequest) (*Resource, error)
	GetByID(ctx context.Context, id string) (*Resource, error)
	GetByIDs(ctx context.Context, ids []string) ([]*Resource, error)
	List(ctx context.Context, filter Filter) ([]*Resource, int, error)
	Update(ctx context.Context, id string, req UpdateRequest) (*Resource, error)
	Delete(ctx context.Context, id string) error
}

type service struct {
	repo Repository
}

func NewService(repo Repository) Service {
	return &service{repo: repo}
}

func (s *service) Create(ctx context.Context, req CreateRequest) (*Resource, error) {
	name := strings.TrimSpace(req.Name)
	if name == "" {
		return nil, ErrEmptyName
	}
	kind := Kind(strings.ToUpper(string(req.Kind)))
	if !kind.Valid() {
		return nil, ErrInvalidKind
	}

	res := &Resource{
		Kind:             kind,
		Name:             name,
		ManagementNumber: strings.TrimSpace(req.ManagementNumber),
	}

	if err := s.repo.Create(ctx, res); err != nil {
		return nil, err
	}
	return res, nil
}

func (s *service) GetByID(ctx context.Context, id string) (*Resource, error) {
	return s.repo.GetByID(ctx, id)
}

func (s *service) GetByIDs(ctx context.Context, ids []string) ([]*Resource, error) {
	return s.repo.GetByIDs(ctx, ids)
}

func (s *service) List(ctx context.Context, filter Filter) ([]*Resource, int, error) {
	return s.repo.List(ctx, filter)
}

func (s *service) Update(ctx context.Context, id string, req UpdateRequest) (*Resource, error) {
	res, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if req.Name != nil {
		name := strings.TrimSpace(*req.Name)
		if name == "" {
			return nil, ErrEmptyName
		}
		res.Name = name
	}
	if req.ManagementNumber != nil {
		res.ManagementNumber = strings.TrimSpace(*req.ManagementNumber)
	}

	if err := s.repo.Update(ctx, res); err != nil {
		return nil, err
	}
	return res, nil
}

func (s *service) Delete(ctx context.Context, id string) error {
	return s.repo.Delete(ctx, id)
}
