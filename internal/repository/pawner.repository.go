package repository

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"github.com/nmcorpuz/pawnshop-core/internal/model"
	"github.com/nmcorpuz/pawnshop-core/pkg/pg"
)

var ErrPawnerNotFound = errors.New("pawner not found")

type PawnerRepository struct {
	*pg.DB
}

func NewPawnerRepository(db *pg.DB) *PawnerRepository {
	return &PawnerRepository{
		db,
	}
}

func (r *PawnerRepository) Create(ctx context.Context, p *model.Pawner) (*model.Pawner, error) {
	if err := r.Write(ctx).WithContext(ctx).Create(p).Error; err != nil {
		return nil, err
	}
	return p, nil
}

func (r *PawnerRepository) GetByID(ctx context.Context, id int64) (*model.Pawner, error) {
	var p model.Pawner
	err := r.Read(ctx).WithContext(ctx).First(&p, id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrPawnerNotFound
		}
		return nil, err
	}
	return &p, nil
}

// Update applies a partial profile update. Pawners are never deleted; history
// keeps referencing them.
func (r *PawnerRepository) Update(ctx context.Context, id int64, req model.PawnerUpdateRequest) (*model.Pawner, error) {
	updates := map[string]interface{}{}
	if req.Mobile != nil {
		updates["mobile"] = *req.Mobile
	}
	if req.Email != nil {
		updates["email"] = *req.Email
	}
	if req.Address != nil {
		updates["address"] = *req.Address
	}
	if req.City != nil {
		updates["city"] = *req.City
	}

	if len(updates) > 0 {
		result := r.Write(ctx).WithContext(ctx).
			Model(&model.Pawner{}).
			Where("id = ?", id).
			Updates(updates)
		if result.Error != nil {
			return nil, result.Error
		}
		if result.RowsAffected == 0 {
			return nil, ErrPawnerNotFound
		}
	}

	return r.GetByID(ctx, id)
}

func (r *PawnerRepository) List(ctx context.Context, branchID *int64, limit, offset int) ([]*model.Pawner, int64, error) {
	q := r.Read(ctx).WithContext(ctx).Model(&model.Pawner{})
	if branchID != nil {
		q = q.Where("branch_id = ?", *branchID)
	}

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	if limit <= 0 {
		limit = 50
	}

	var pawners []*model.Pawner
	err := q.Order("created_at DESC").Limit(limit).Offset(offset).Find(&pawners).Error
	if err != nil {
		return nil, 0, err
	}
	return pawners, total, nil
}
