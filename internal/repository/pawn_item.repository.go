package repository

import (
	"context"
	"errors"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/nmcorpuz/pawnshop-core/internal/model"
	"github.com/nmcorpuz/pawnshop-core/pkg/pg"
)

var (
	ErrItemNotFound = errors.New("pawn item not found")
	// ErrItemConflict means the item's persisted status no longer matches the
	// expected one; a racing operation moved it first.
	ErrItemConflict = errors.New("item status changed concurrently")
)

type PawnItemRepository struct {
	*pg.DB
}

func NewPawnItemRepository(db *pg.DB) *PawnItemRepository {
	return &PawnItemRepository{
		db,
	}
}

func (r *PawnItemRepository) Create(ctx context.Context, item *model.PawnItem) (*model.PawnItem, error) {
	if err := r.Write(ctx).WithContext(ctx).Create(item).Error; err != nil {
		return nil, err
	}
	return item, nil
}

func (r *PawnItemRepository) GetByID(ctx context.Context, id int64) (*model.PawnItem, error) {
	var item model.PawnItem
	err := r.Read(ctx).WithContext(ctx).First(&item, id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrItemNotFound
		}
		return nil, err
	}
	return &item, nil
}

// GetByIDForUpdate locks the item row for the duration of the caller's unit
// of work.
func (r *PawnItemRepository) GetByIDForUpdate(ctx context.Context, id int64) (*model.PawnItem, error) {
	var item model.PawnItem
	err := r.Write(ctx).WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		First(&item, id).
		Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrItemNotFound
		}
		return nil, err
	}
	return &item, nil
}

func (r *PawnItemRepository) ListByTransaction(ctx context.Context, transactionID int64) ([]*model.PawnItem, error) {
	var items []*model.PawnItem
	err := r.Read(ctx).WithContext(ctx).
		Where("transaction_id = ?", transactionID).
		Order("id ASC").
		Find(&items).
		Error
	if err != nil {
		return nil, err
	}
	return items, nil
}

func (r *PawnItemRepository) List(ctx context.Context, f model.ItemFilter) ([]*model.PawnItem, int64, error) {
	q := r.Read(ctx).WithContext(ctx).Model(&model.PawnItem{})

	if f.TransactionID != nil {
		q = q.Where("transaction_id = ?", *f.TransactionID)
	}
	if f.CategoryID != nil {
		q = q.Where("category_id = ?", *f.CategoryID)
	}
	if len(f.Statuses) > 0 {
		q = q.Where("status IN ?", f.Statuses)
	}

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	limit := f.Limit
	if limit <= 0 {
		limit = 50
	}

	var items []*model.PawnItem
	err := q.Order("id ASC").Limit(limit).Offset(f.Offset).Find(&items).Error
	if err != nil {
		return nil, 0, err
	}
	return items, total, nil
}

// Transition moves an item from an expected status to a new one. The update
// is conditional on the expected status, an optimistic guard against racing
// operations on the same item.
func (r *PawnItemRepository) Transition(ctx context.Context, id int64, fromExpected, to model.ItemStatus) error {
	result := r.Write(ctx).WithContext(ctx).
		Model(&model.PawnItem{}).
		Where("id = ? AND status = ?", id, fromExpected).
		Update("status", to)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		var item model.PawnItem
		err := r.Read(ctx).WithContext(ctx).First(&item, id).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrItemNotFound
		}
		return ErrItemConflict
	}
	return nil
}

// RecordSale writes the buyer and pricing fields of an auction sale together
// with the status flip to sold.
func (r *PawnItemRepository) RecordSale(ctx context.Context, id int64, fromExpected model.ItemStatus, buyerName string, discount, finalPrice, receivedAmount decimal.Decimal, soldAt time.Time) error {
	result := r.Write(ctx).WithContext(ctx).
		Model(&model.PawnItem{}).
		Where("id = ? AND status = ?", id, fromExpected).
		Updates(map[string]interface{}{
			"status":          model.ItemStatusSold,
			"buyer_name":      buyerName,
			"discount":        discount,
			"final_price":     finalPrice,
			"received_amount": receivedAmount,
			"sold_at":         soldAt,
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrItemConflict
	}
	return nil
}
