package repository

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"github.com/nmcorpuz/pawnshop-core/internal/model"
	"github.com/nmcorpuz/pawnshop-core/pkg/pg"
)

// ErrConfigNotFound signals a configuration gap. Callers degrade to the
// system default and log; a gap never aborts a transaction.
var ErrConfigNotFound = errors.New("configuration not found")

// RateConfigRepository reads rate/terms configuration. The engine never
// writes these tables.
type RateConfigRepository struct {
	*pg.DB
}

func NewRateConfigRepository(db *pg.DB) *RateConfigRepository {
	return &RateConfigRepository{
		db,
	}
}

func (r *RateConfigRepository) GetCategory(ctx context.Context, id int64) (*model.ItemCategory, error) {
	var cat model.ItemCategory
	err := r.Read(ctx).WithContext(ctx).
		Where("id = ? AND active = ?", id, true).
		First(&cat).
		Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrConfigNotFound
		}
		return nil, err
	}
	return &cat, nil
}

func (r *RateConfigRepository) GetActivePenaltyConfig(ctx context.Context) (*model.PenaltyConfig, error) {
	var cfg model.PenaltyConfig
	err := r.Read(ctx).WithContext(ctx).
		Where("active = ?", true).
		Order("id DESC").
		First(&cfg).
		Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrConfigNotFound
		}
		return nil, err
	}
	return &cfg, nil
}

func (r *RateConfigRepository) GetActiveServiceChargeConfig(ctx context.Context) (*model.ServiceChargeConfig, error) {
	var cfg model.ServiceChargeConfig
	err := r.Read(ctx).WithContext(ctx).
		Preload("Brackets").
		Where("active = ?", true).
		Order("id DESC").
		First(&cfg).
		Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrConfigNotFound
		}
		return nil, err
	}
	return &cfg, nil
}

func (r *RateConfigRepository) GetActiveLoanTerms(ctx context.Context) (*model.LoanTerms, error) {
	var terms model.LoanTerms
	err := r.Read(ctx).WithContext(ctx).
		Where("active = ?", true).
		Order("id DESC").
		First(&terms).
		Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrConfigNotFound
		}
		return nil, err
	}
	return &terms, nil
}

func (r *RateConfigRepository) GetBranch(ctx context.Context, id int64) (*model.Branch, error) {
	var branch model.Branch
	err := r.Read(ctx).WithContext(ctx).First(&branch, id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrConfigNotFound
		}
		return nil, err
	}
	return &branch, nil
}
