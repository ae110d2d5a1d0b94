package repository

import (
	"context"
	"errors"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/nmcorpuz/pawnshop-core/internal/model"
	"github.com/nmcorpuz/pawnshop-core/pkg/pg"
)

var (
	ErrAppraisalNotFound = errors.New("appraisal not found")
	// ErrAppraisalConsumed means the appraisal already backs a loan.
	ErrAppraisalConsumed = errors.New("appraisal already consumed")
)

type AppraisalRepository struct {
	*pg.DB
}

func NewAppraisalRepository(db *pg.DB) *AppraisalRepository {
	return &AppraisalRepository{
		db,
	}
}

func (r *AppraisalRepository) Create(ctx context.Context, a *model.Appraisal) (*model.Appraisal, error) {
	if err := r.Write(ctx).WithContext(ctx).Create(a).Error; err != nil {
		return nil, err
	}
	return a, nil
}

func (r *AppraisalRepository) GetByID(ctx context.Context, id int64) (*model.Appraisal, error) {
	var a model.Appraisal
	err := r.Read(ctx).WithContext(ctx).First(&a, id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrAppraisalNotFound
		}
		return nil, err
	}
	return &a, nil
}

func (r *AppraisalRepository) GetByIDs(ctx context.Context, ids []int64) ([]*model.Appraisal, error) {
	var appraisals []*model.Appraisal
	err := r.Read(ctx).WithContext(ctx).
		Where("id IN ?", ids).
		Find(&appraisals).
		Error
	if err != nil {
		return nil, err
	}
	if len(appraisals) != len(ids) {
		return nil, ErrAppraisalNotFound
	}
	return appraisals, nil
}

// Complete moves a pending appraisal to completed with its final value.
func (r *AppraisalRepository) Complete(ctx context.Context, id int64, estimatedValue decimal.Decimal, appraisedBy int64) error {
	updates := map[string]interface{}{
		"status":          model.AppraisalStatusCompleted,
		"estimated_value": estimatedValue,
		"appraised_by":    appraisedBy,
	}

	result := r.Write(ctx).WithContext(ctx).
		Model(&model.Appraisal{}).
		Where("id = ? AND status = ?", id, model.AppraisalStatusPending).
		Updates(updates)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrAppraisalNotFound
	}
	return nil
}

// Consume marks a completed appraisal as used by a loan intake. Conditional
// on the completed status so the same valuation cannot back two loans.
func (r *AppraisalRepository) Consume(ctx context.Context, id int64) error {
	result := r.Write(ctx).WithContext(ctx).
		Model(&model.Appraisal{}).
		Where("id = ? AND status = ?", id, model.AppraisalStatusCompleted).
		Update("status", model.AppraisalStatusConsumed)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrAppraisalConsumed
	}
	return nil
}

func (r *AppraisalRepository) ListByPawner(ctx context.Context, pawnerID int64, statuses []model.AppraisalStatus) ([]*model.Appraisal, error) {
	q := r.Read(ctx).WithContext(ctx).Where("pawner_id = ?", pawnerID)
	if len(statuses) > 0 {
		q = q.Where("status IN ?", statuses)
	}

	var appraisals []*model.Appraisal
	err := q.Order("created_at DESC").Find(&appraisals).Error
	if err != nil {
		return nil, err
	}
	return appraisals, nil
}
