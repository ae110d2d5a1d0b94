package services

import (
	"context"
	"errors"

	"github.com/shopspring/decimal"

	"github.com/nmcorpuz/pawnshop-core/internal/model"
	"github.com/nmcorpuz/pawnshop-core/internal/repository"
	"github.com/nmcorpuz/pawnshop-core/pkg/money"
)

type AppraisalRegistry interface {
	Create(ctx context.Context, a *model.Appraisal) (*model.Appraisal, error)
	GetByID(ctx context.Context, id int64) (*model.Appraisal, error)
	Complete(ctx context.Context, id int64, estimatedValue decimal.Decimal, appraisedBy int64) error
	ListByPawner(ctx context.Context, pawnerID int64, statuses []model.AppraisalStatus) ([]*model.Appraisal, error)
}

type AppraisalService struct {
	appraisals AppraisalRegistry
	pawners    PawnerStore
}

func NewAppraisalService(appraisals AppraisalRegistry, pawners PawnerStore) *AppraisalService {
	return &AppraisalService{appraisals: appraisals, pawners: pawners}
}

// Create registers a valuation. Created already completed when an estimated
// value comes with the request; pending otherwise, waiting for Complete.
func (s *AppraisalService) Create(ctx context.Context, req model.AppraisalCreateRequest) (*model.Appraisal, error) {
	if err := req.Validate(); err != nil {
		return nil, &ValidationError{Msg: err.Error()}
	}
	if _, err := s.pawners.GetByID(ctx, req.PawnerID); err != nil {
		if errors.Is(err, repository.ErrPawnerNotFound) {
			return nil, validationErrorf("unknown pawner %d", req.PawnerID)
		}
		return nil, err
	}

	status := model.AppraisalStatusPending
	if req.EstimatedValue > 0 {
		status = model.AppraisalStatusCompleted
	}

	return s.appraisals.Create(ctx, &model.Appraisal{
		PawnerID:       req.PawnerID,
		BranchID:       req.BranchID,
		CategoryID:     req.CategoryID,
		Description:    req.Description,
		EstimatedValue: money.Round(money.FromFloat(req.EstimatedValue)),
		Status:         status,
		AppraisedBy:    req.AppraisedBy,
	})
}

// Complete finalizes a pending appraisal with its value.
func (s *AppraisalService) Complete(ctx context.Context, id int64, estimatedValue float64, appraisedBy int64) (*model.Appraisal, error) {
	if estimatedValue <= 0 {
		return nil, validationErrorf("estimated_value must be positive")
	}
	err := s.appraisals.Complete(ctx, id, money.Round(money.FromFloat(estimatedValue)), appraisedBy)
	if err != nil {
		if errors.Is(err, repository.ErrAppraisalNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return s.appraisals.GetByID(ctx, id)
}

func (s *AppraisalService) Get(ctx context.Context, id int64) (*model.Appraisal, error) {
	a, err := s.appraisals.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrAppraisalNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return a, nil
}

func (s *AppraisalService) ListByPawner(ctx context.Context, pawnerID int64, statuses []model.AppraisalStatus) ([]*model.Appraisal, error) {
	return s.appraisals.ListByPawner(ctx, pawnerID, statuses)
}
