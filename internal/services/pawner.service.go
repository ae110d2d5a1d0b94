package services

import (
	"context"
	"errors"

	"github.com/nmcorpuz/pawnshop-core/internal/model"
	"github.com/nmcorpuz/pawnshop-core/internal/repository"
)

type PawnerRegistry interface {
	Create(ctx context.Context, p *model.Pawner) (*model.Pawner, error)
	GetByID(ctx context.Context, id int64) (*model.Pawner, error)
	Update(ctx context.Context, id int64, req model.PawnerUpdateRequest) (*model.Pawner, error)
	List(ctx context.Context, branchID *int64, limit, offset int) ([]*model.Pawner, int64, error)
}

type PawnerService struct {
	pawners PawnerRegistry
}

func NewPawnerService(pawners PawnerRegistry) *PawnerService {
	return &PawnerService{pawners: pawners}
}

func (s *PawnerService) Register(ctx context.Context, req model.PawnerCreateRequest) (*model.Pawner, error) {
	if err := req.Validate(); err != nil {
		return nil, &ValidationError{Msg: err.Error()}
	}
	return s.pawners.Create(ctx, &model.Pawner{
		FirstName: req.FirstName,
		LastName:  req.LastName,
		Mobile:    req.Mobile,
		Email:     req.Email,
		Address:   req.Address,
		City:      req.City,
		BranchID:  req.BranchID,
	})
}

func (s *PawnerService) Get(ctx context.Context, id int64) (*model.Pawner, error) {
	p, err := s.pawners.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrPawnerNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return p, nil
}

func (s *PawnerService) Update(ctx context.Context, id int64, req model.PawnerUpdateRequest) (*model.Pawner, error) {
	p, err := s.pawners.Update(ctx, id, req)
	if err != nil {
		if errors.Is(err, repository.ErrPawnerNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return p, nil
}

func (s *PawnerService) List(ctx context.Context, branchID *int64, limit, offset int) ([]*model.Pawner, int64, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	if offset < 0 {
		offset = 0
	}
	return s.pawners.List(ctx, branchID, limit, offset)
}
