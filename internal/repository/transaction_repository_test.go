package repository

import (
	"context"
	"testing"
	"time"

	"github.com/nmcorpuz/pawnshop-core/internal/model"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newLoanRow(number string) *model.Transaction {
	now := time.Now()
	return &model.Transaction{
		TransactionNumber: number,
		TrackingNumber:    number,
		PawnerID:          1,
		BranchID:          1,
		Type:              model.TransactionTypeNewLoan,
		Status:            model.TransactionStatusActive,
		IsActive:          true,
		Principal:         decimal.NewFromInt(1000),
		InterestRate:      decimal.NewFromFloat(0.06),
		TransactionDate:   now,
		GrantedDate:       now,
		MaturityDate:      now.AddDate(0, 1, 0),
		GracePeriodDate:   now.AddDate(0, 1, 3),
		ExpiryDate:        now.AddDate(0, 4, 0),
	}
}

func TestTransactionRepository_CreateAndGet(t *testing.T) {
	db := setupTestDB(t).DB
	repo := NewTransactionRepository(db)
	ctx := context.Background()

	t.Run("create and fetch by number", func(t *testing.T) {
		created, err := repo.Create(ctx, newLoanRow("PTMN-202601-000001"))
		require.NoError(t, err)
		assert.NotZero(t, created.ID)

		found, err := repo.GetByNumber(ctx, "PTMN-202601-000001")
		require.NoError(t, err)
		assert.Equal(t, created.ID, found.ID)
		assert.True(t, found.Principal.Equal(decimal.NewFromInt(1000)))
		assert.True(t, found.IsActive)
	})

	t.Run("unknown number", func(t *testing.T) {
		_, err := repo.GetByNumber(ctx, "PTMN-999912-000099")
		assert.ErrorIs(t, err, ErrTransactionNotFound)
	})

	t.Run("unknown id", func(t *testing.T) {
		_, err := repo.GetByID(ctx, 424242)
		assert.ErrorIs(t, err, ErrTransactionNotFound)
	})
}

func TestTransactionRepository_Supersede(t *testing.T) {
	db := setupTestDB(t).DB
	repo := NewTransactionRepository(db)
	ctx := context.Background()

	created, err := repo.Create(ctx, newLoanRow("PTMN-202601-000010"))
	require.NoError(t, err)

	t.Run("first supersession wins", func(t *testing.T) {
		require.NoError(t, repo.Supersede(ctx, created.ID))

		found, err := repo.GetByID(ctx, created.ID)
		require.NoError(t, err)
		assert.Equal(t, model.TransactionStatusSuperseded, found.Status)
		assert.False(t, found.IsActive)
	})

	t.Run("second supersession conflicts", func(t *testing.T) {
		assert.ErrorIs(t, repo.Supersede(ctx, created.ID), ErrChainConflict)
	})
}

func TestTransactionRepository_Terminate(t *testing.T) {
	db := setupTestDB(t).DB
	repo := NewTransactionRepository(db)
	ctx := context.Background()

	created, err := repo.Create(ctx, newLoanRow("PTMN-202601-000011"))
	require.NoError(t, err)

	err = repo.Terminate(ctx, created.ID, model.TransactionStatusRedeemed, map[string]interface{}{
		"amount_paid": decimal.NewFromInt(1110),
	})
	require.NoError(t, err)

	found, err := repo.GetByID(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, model.TransactionStatusRedeemed, found.Status)
	assert.False(t, found.IsActive)
	assert.True(t, found.AmountPaid.Equal(decimal.NewFromInt(1110)))

	// A terminal row cannot be terminated again.
	err = repo.Terminate(ctx, created.ID, model.TransactionStatusClosed, nil)
	assert.ErrorIs(t, err, ErrChainConflict)
}

func TestTransactionRepository_Chain(t *testing.T) {
	db := setupTestDB(t).DB
	repo := NewTransactionRepository(db)
	ctx := context.Background()

	head, err := repo.Create(ctx, newLoanRow("PTMN-202601-000020"))
	require.NoError(t, err)

	require.NoError(t, repo.Supersede(ctx, head.ID))

	second := newLoanRow("PTMN-202601-000021")
	second.TrackingNumber = head.TrackingNumber
	second.PreviousTransactionNumber = ptr(head.TransactionNumber)
	second.Type = model.TransactionTypePartialPayment
	second.Principal = decimal.NewFromInt(600)
	_, err = repo.Create(ctx, second)
	require.NoError(t, err)

	t.Run("chain resolves from any member, oldest first", func(t *testing.T) {
		chain, err := repo.GetChain(ctx, head.TrackingNumber)
		require.NoError(t, err)
		require.Len(t, chain, 2)
		assert.Equal(t, head.TransactionNumber, chain[0].TransactionNumber)
		assert.Equal(t, second.TransactionNumber, chain[1].TransactionNumber)
		assert.Equal(t, head.TransactionNumber, *chain[1].PreviousTransactionNumber)
	})

	t.Run("head is the row with no predecessor", func(t *testing.T) {
		got, err := repo.GetChainHead(ctx, head.TrackingNumber)
		require.NoError(t, err)
		assert.Equal(t, head.ID, got.ID)
	})

	t.Run("active member resolves via any member's number", func(t *testing.T) {
		active, err := repo.GetActiveForUpdate(ctx, head.TransactionNumber)
		require.NoError(t, err)
		assert.Equal(t, second.TransactionNumber, active.TransactionNumber)
	})

	t.Run("terminated chain has no active member", func(t *testing.T) {
		require.NoError(t, repo.Terminate(ctx, second.ID, model.TransactionStatusRedeemed, nil))
		_, err := repo.GetActiveForUpdate(ctx, head.TransactionNumber)
		assert.ErrorIs(t, err, ErrChainConflict)
	})
}

func TestTransactionRepository_List(t *testing.T) {
	db := setupTestDB(t).DB
	repo := NewTransactionRepository(db)
	ctx := context.Background()

	for i, pawnerID := range []int64{1, 1, 2} {
		row := newLoanRow("PTMN-202602-00010" + string(rune('0'+i)))
		row.PawnerID = pawnerID
		_, err := repo.Create(ctx, row)
		require.NoError(t, err)
	}

	t.Run("filter by pawner", func(t *testing.T) {
		txns, total, err := repo.List(ctx, model.TransactionFilter{PawnerID: ptr(int64(1))})
		require.NoError(t, err)
		assert.Equal(t, int64(2), total)
		assert.Len(t, txns, 2)
	})

	t.Run("filter by status", func(t *testing.T) {
		txns, total, err := repo.List(ctx, model.TransactionFilter{
			Statuses: []model.TransactionStatus{model.TransactionStatusRedeemed},
		})
		require.NoError(t, err)
		assert.Zero(t, total)
		assert.Empty(t, txns)
	})

	t.Run("pagination", func(t *testing.T) {
		txns, total, err := repo.List(ctx, model.TransactionFilter{Limit: 2})
		require.NoError(t, err)
		assert.Equal(t, int64(3), total)
		assert.Len(t, txns, 2)
	})
}

func TestTransactionRepository_Sweep(t *testing.T) {
	db := setupTestDB(t).DB
	repo := NewTransactionRepository(db)
	ctx := context.Background()

	now := time.Now()

	pastMaturity := newLoanRow("PTMN-202601-000030")
	pastMaturity.MaturityDate = now.AddDate(0, 0, -10)
	pastMaturity.GracePeriodDate = now.AddDate(0, 0, -7)
	pastMaturity.ExpiryDate = now.AddDate(0, 2, 0)
	_, err := repo.Create(ctx, pastMaturity)
	require.NoError(t, err)

	pastExpiry := newLoanRow("PTMN-202601-000031")
	pastExpiry.MaturityDate = now.AddDate(0, -4, 0)
	pastExpiry.GracePeriodDate = now.AddDate(0, -4, 3)
	pastExpiry.ExpiryDate = now.AddDate(0, 0, -1)
	_, err = repo.Create(ctx, pastExpiry)
	require.NoError(t, err)

	current := newLoanRow("PTMN-202601-000032")
	_, err = repo.Create(ctx, current)
	require.NoError(t, err)

	t.Run("first sweep flips both", func(t *testing.T) {
		matured, err := repo.MarkMatured(ctx, now)
		require.NoError(t, err)
		assert.Equal(t, int64(2), matured)

		expired, err := repo.MarkExpired(ctx, now)
		require.NoError(t, err)
		assert.Equal(t, int64(1), expired)

		found, err := repo.GetByNumber(ctx, pastExpiry.TransactionNumber)
		require.NoError(t, err)
		assert.Equal(t, model.TransactionStatusExpired, found.Status)
		assert.True(t, found.IsActive)

		found, err = repo.GetByNumber(ctx, current.TransactionNumber)
		require.NoError(t, err)
		assert.Equal(t, model.TransactionStatusActive, found.Status)
	})

	t.Run("second sweep is a no-op", func(t *testing.T) {
		matured, err := repo.MarkMatured(ctx, now)
		require.NoError(t, err)
		assert.Zero(t, matured)

		expired, err := repo.MarkExpired(ctx, now)
		require.NoError(t, err)
		assert.Zero(t, expired)
	})
}

func ptr[T any](v T) *T {
	return &v
}
