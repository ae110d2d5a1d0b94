package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type MockSweepStore struct {
	mock.Mock
}

func (m *MockSweepStore) MarkMatured(ctx context.Context, asOf time.Time) (int64, error) {
	args := m.Called(ctx, asOf)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockSweepStore) MarkExpired(ctx context.Context, asOf time.Time) (int64, error) {
	args := m.Called(ctx, asOf)
	return args.Get(0).(int64), args.Error(1)
}

func TestExpirySweeper_SweepAsOf(t *testing.T) {
	ctx := context.Background()
	asOf := time.Date(2026, 3, 15, 8, 0, 0, 0, time.UTC)

	t.Run("reports both pass counts", func(t *testing.T) {
		store := new(MockSweepStore)
		store.On("MarkMatured", ctx, asOf).Return(int64(3), nil)
		store.On("MarkExpired", ctx, asOf).Return(int64(1), nil)

		res, err := NewExpirySweeper(store).SweepAsOf(ctx, asOf)
		require.NoError(t, err)
		assert.Equal(t, int64(3), res.Matured)
		assert.Equal(t, int64(1), res.Expired)
		assert.Equal(t, "2026-03-15T08:00:00Z", res.SweptAt)
		store.AssertExpectations(t)
	})

	t.Run("quiet sweep returns zeroes", func(t *testing.T) {
		store := new(MockSweepStore)
		store.On("MarkMatured", ctx, asOf).Return(int64(0), nil)
		store.On("MarkExpired", ctx, asOf).Return(int64(0), nil)

		res, err := NewExpirySweeper(store).SweepAsOf(ctx, asOf)
		require.NoError(t, err)
		assert.Zero(t, res.Matured)
		assert.Zero(t, res.Expired)
	})

	t.Run("maturity pass error stops the sweep", func(t *testing.T) {
		store := new(MockSweepStore)
		boom := errors.New("db down")
		store.On("MarkMatured", ctx, asOf).Return(int64(0), boom)

		res, err := NewExpirySweeper(store).SweepAsOf(ctx, asOf)
		assert.Nil(t, res)
		assert.ErrorIs(t, err, boom)
		store.AssertNotCalled(t, "MarkExpired", mock.Anything, mock.Anything)
	})

	t.Run("expiry pass error propagates", func(t *testing.T) {
		store := new(MockSweepStore)
		boom := errors.New("db down")
		store.On("MarkMatured", ctx, asOf).Return(int64(2), nil)
		store.On("MarkExpired", ctx, asOf).Return(int64(0), boom)

		res, err := NewExpirySweeper(store).SweepAsOf(ctx, asOf)
		assert.Nil(t, res)
		assert.ErrorIs(t, err, boom)
	})
}
