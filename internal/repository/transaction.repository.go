package repository

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/nmcorpuz/pawnshop-core/internal/model"
	"github.com/nmcorpuz/pawnshop-core/pkg/pg"
)

var (
	ErrTransactionNotFound = errors.New("transaction not found")
	// ErrChainConflict means the chain's active member changed between the
	// read and the write. Safe to retry after re-reading.
	ErrChainConflict = errors.New("chain changed concurrently")
)

type TransactionRepository struct {
	*pg.DB
}

func NewTransactionRepository(db *pg.DB) *TransactionRepository {
	return &TransactionRepository{
		db,
	}
}

func (r *TransactionRepository) Create(ctx context.Context, txn *model.Transaction) (*model.Transaction, error) {
	if err := r.Write(ctx).WithContext(ctx).Create(txn).Error; err != nil {
		return nil, err
	}
	return txn, nil
}

func (r *TransactionRepository) GetByID(ctx context.Context, id int64) (*model.Transaction, error) {
	var txn model.Transaction
	err := r.Read(ctx).WithContext(ctx).First(&txn, id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrTransactionNotFound
		}
		return nil, err
	}
	return &txn, nil
}

func (r *TransactionRepository) GetByNumber(ctx context.Context, number string) (*model.Transaction, error) {
	var txn model.Transaction
	err := r.Read(ctx).WithContext(ctx).
		Where("transaction_number = ?", number).
		First(&txn).
		Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrTransactionNotFound
		}
		return nil, err
	}
	return &txn, nil
}

// GetActiveForUpdate resolves the chain containing the given transaction
// number and returns its current active member under a row-level lock. Two
// concurrent extensions of the same chain serialize here; the loser of the
// race sees the supersession and fails its conditional update.
func (r *TransactionRepository) GetActiveForUpdate(ctx context.Context, number string) (*model.Transaction, error) {
	var ref model.Transaction
	err := r.Write(ctx).WithContext(ctx).
		Select("tracking_number").
		Where("transaction_number = ?", number).
		First(&ref).
		Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrTransactionNotFound
		}
		return nil, err
	}

	var txn model.Transaction
	err = r.Write(ctx).WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("tracking_number = ? AND is_active = ?", ref.TrackingNumber, true).
		First(&txn).
		Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			// Chain exists but already terminated (redeemed or closed).
			return nil, ErrChainConflict
		}
		return nil, err
	}
	return &txn, nil
}

// Supersede retires the predecessor as part of a chain extension. The update
// is conditional on the row still being active so a racing extension cannot
// retire the same head twice.
func (r *TransactionRepository) Supersede(ctx context.Context, id int64) error {
	result := r.Write(ctx).WithContext(ctx).
		Model(&model.Transaction{}).
		Where("id = ? AND is_active = ?", id, true).
		Updates(map[string]interface{}{
			"status":    model.TransactionStatusSuperseded,
			"is_active": false,
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrChainConflict
	}
	return nil
}

// Terminate closes the chain's active member into a terminal status
// (redeemed or closed). Conditional on is_active for the same reason as
// Supersede.
func (r *TransactionRepository) Terminate(ctx context.Context, id int64, status model.TransactionStatus, updates map[string]interface{}) error {
	if updates == nil {
		updates = map[string]interface{}{}
	}
	updates["status"] = status
	updates["is_active"] = false

	result := r.Write(ctx).WithContext(ctx).
		Model(&model.Transaction{}).
		Where("id = ? AND is_active = ?", id, true).
		Updates(updates)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrChainConflict
	}
	return nil
}

// GetChain returns every member of a tracking chain, oldest first. The
// previous_transaction_number links totally order the rows; creation id is a
// faithful proxy for that order.
func (r *TransactionRepository) GetChain(ctx context.Context, trackingNumber string) ([]*model.Transaction, error) {
	var txns []*model.Transaction
	err := r.Read(ctx).WithContext(ctx).
		Where("tracking_number = ?", trackingNumber).
		Order("id ASC").
		Find(&txns).
		Error
	if err != nil {
		return nil, err
	}
	return txns, nil
}

// GetChainHead returns the first transaction of a chain; the head owns the
// pledged items.
func (r *TransactionRepository) GetChainHead(ctx context.Context, trackingNumber string) (*model.Transaction, error) {
	var txn model.Transaction
	err := r.Read(ctx).WithContext(ctx).
		Where("tracking_number = ? AND previous_transaction_number IS NULL", trackingNumber).
		First(&txn).
		Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrTransactionNotFound
		}
		return nil, err
	}
	return &txn, nil
}

func (r *TransactionRepository) List(ctx context.Context, f model.TransactionFilter) ([]*model.Transaction, int64, error) {
	q := r.Read(ctx).WithContext(ctx).Model(&model.Transaction{})

	if f.PawnerID != nil {
		q = q.Where("pawner_id = ?", *f.PawnerID)
	}
	if f.BranchID != nil {
		q = q.Where("branch_id = ?", *f.BranchID)
	}
	if f.TrackingNumber != nil {
		q = q.Where("tracking_number = ?", *f.TrackingNumber)
	}
	if len(f.Statuses) > 0 {
		q = q.Where("status IN ?", f.Statuses)
	}
	if f.ActiveOnly {
		q = q.Where("is_active = ?", true)
	}
	if f.From != nil {
		q = q.Where("transaction_date >= ?", *f.From)
	}
	if f.To != nil {
		q = q.Where("transaction_date <= ?", *f.To)
	}

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	limit := f.Limit
	if limit <= 0 {
		limit = 50
	}
	order := "transaction_date ASC"
	if f.Desc {
		order = "transaction_date DESC"
	}

	var txns []*model.Transaction
	err := q.Order(order).Limit(limit).Offset(f.Offset).Find(&txns).Error
	if err != nil {
		return nil, 0, err
	}
	return txns, total, nil
}

// ListMaturingBetween returns active chain members whose maturity date falls
// inside [from, to). Used for reminder runs.
func (r *TransactionRepository) ListMaturingBetween(ctx context.Context, from, to time.Time) ([]*model.Transaction, error) {
	var txns []*model.Transaction
	err := r.Read(ctx).WithContext(ctx).
		Where("is_active = ? AND status = ? AND maturity_date >= ? AND maturity_date < ?",
			true, model.TransactionStatusActive, from, to).
		Order("maturity_date ASC").
		Find(&txns).
		Error
	if err != nil {
		return nil, err
	}
	return txns, nil
}

// ListExpiringBetween returns still-open chain members whose expiry date
// falls inside [from, to).
func (r *TransactionRepository) ListExpiringBetween(ctx context.Context, from, to time.Time) ([]*model.Transaction, error) {
	var txns []*model.Transaction
	err := r.Read(ctx).WithContext(ctx).
		Where("is_active = ? AND status IN ? AND expiry_date >= ? AND expiry_date < ?",
			true,
			[]model.TransactionStatus{model.TransactionStatusActive, model.TransactionStatusMatured},
			from, to).
		Order("expiry_date ASC").
		Find(&txns).
		Error
	if err != nil {
		return nil, err
	}
	return txns, nil
}

// MarkMatured flips every chain head past maturity from active to matured.
// Idempotent bulk update; holds no locks beyond the statement.
func (r *TransactionRepository) MarkMatured(ctx context.Context, asOf time.Time) (int64, error) {
	result := r.Write(ctx).WithContext(ctx).
		Model(&model.Transaction{}).
		Where("is_active = ? AND status = ? AND maturity_date < ?", true, model.TransactionStatusActive, asOf).
		Update("status", model.TransactionStatusMatured)
	return result.RowsAffected, result.Error
}

// MarkExpired flips every still-open chain member past expiry to expired.
// Idempotent; touches no items or balances.
func (r *TransactionRepository) MarkExpired(ctx context.Context, asOf time.Time) (int64, error) {
	result := r.Write(ctx).WithContext(ctx).
		Model(&model.Transaction{}).
		Where("is_active = ? AND status IN ? AND expiry_date < ?",
			true,
			[]model.TransactionStatus{model.TransactionStatusActive, model.TransactionStatusMatured},
			asOf).
		Update("status", model.TransactionStatusExpired)
	return result.RowsAffected, result.Error
}
