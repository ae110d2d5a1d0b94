package services

import (
	"context"
	"testing"

	"github.com/nmcorpuz/pawnshop-core/internal/model"
	"github.com/nmcorpuz/pawnshop-core/internal/repository"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type MockRateConfigReader struct {
	mock.Mock
}

func (m *MockRateConfigReader) GetCategory(ctx context.Context, id int64) (*model.ItemCategory, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.ItemCategory), args.Error(1)
}

func (m *MockRateConfigReader) GetActivePenaltyConfig(ctx context.Context) (*model.PenaltyConfig, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.PenaltyConfig), args.Error(1)
}

func (m *MockRateConfigReader) GetActiveServiceChargeConfig(ctx context.Context) (*model.ServiceChargeConfig, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.ServiceChargeConfig), args.Error(1)
}

func (m *MockRateConfigReader) GetActiveLoanTerms(ctx context.Context) (*model.LoanTerms, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.LoanTerms), args.Error(1)
}

func (m *MockRateConfigReader) GetBranch(ctx context.Context, id int64) (*model.Branch, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Branch), args.Error(1)
}

func TestRateResolver_Resolve(t *testing.T) {
	ctx := context.Background()

	t.Run("configured rates win over defaults", func(t *testing.T) {
		cfg := new(MockRateConfigReader)
		cfg.On("GetCategory", ctx, int64(1)).Return(&model.ItemCategory{
			ID: 1, InterestRate: dec("0.07"), Active: true,
		}, nil)
		cfg.On("GetActivePenaltyConfig", ctx).Return(&model.PenaltyConfig{
			Rate: dec("0.03"), ThresholdDays: 5,
		}, nil)
		cfg.On("GetActiveServiceChargeConfig", ctx).Return(&model.ServiceChargeConfig{
			Method: model.ServiceChargeMethodFixed, FixedAmount: dec("75"),
		}, nil)

		r := NewRateResolver(cfg, StandardDefaultRates())
		card, err := r.Resolve(ctx, 1, dec("1000"))
		require.NoError(t, err)
		assert.True(t, card.InterestRate.Equal(dec("0.07")))
		assert.True(t, card.PenaltyRate.Equal(dec("0.03")))
		assert.Equal(t, 5, card.PenaltyThresholdDays)
		assert.True(t, card.ServiceCharge.Equal(dec("75")))
	})

	t.Run("missing config degrades to defaults", func(t *testing.T) {
		cfg := new(MockRateConfigReader)
		cfg.On("GetCategory", ctx, int64(9)).Return(nil, repository.ErrConfigNotFound)
		cfg.On("GetActivePenaltyConfig", ctx).Return(nil, repository.ErrConfigNotFound)
		cfg.On("GetActiveServiceChargeConfig", ctx).Return(nil, repository.ErrConfigNotFound)

		r := NewRateResolver(cfg, StandardDefaultRates())
		card, err := r.Resolve(ctx, 9, dec("1000"))
		require.NoError(t, err)
		assert.True(t, card.InterestRate.Equal(dec("0.06")))
		assert.True(t, card.PenaltyRate.Equal(dec("0.02")))
		assert.True(t, card.ServiceCharge.Equal(dec("50")))
	})

	t.Run("bracket method picks the matching band", func(t *testing.T) {
		cfg := new(MockRateConfigReader)
		cfg.On("GetCategory", ctx, int64(1)).Return(&model.ItemCategory{ID: 1, InterestRate: dec("0.06")}, nil)
		cfg.On("GetActivePenaltyConfig", ctx).Return(&model.PenaltyConfig{Rate: dec("0.02")}, nil)
		cfg.On("GetActiveServiceChargeConfig", ctx).Return(&model.ServiceChargeConfig{
			Method: model.ServiceChargeMethodBracket,
			Brackets: []model.ServiceChargeBracket{
				{MinPrincipal: dec("0"), MaxPrincipal: dec("500"), Charge: dec("5")},
				{MinPrincipal: dec("500.01"), MaxPrincipal: dec("1500"), Charge: dec("10")},
			},
		}, nil)

		r := NewRateResolver(cfg, StandardDefaultRates())
		card, err := r.Resolve(ctx, 1, dec("750"))
		require.NoError(t, err)
		assert.True(t, card.ServiceCharge.Equal(dec("10")), "charge %s", card.ServiceCharge)
	})

	t.Run("principal outside every bracket uses the default charge", func(t *testing.T) {
		cfg := new(MockRateConfigReader)
		cfg.On("GetCategory", ctx, int64(1)).Return(&model.ItemCategory{ID: 1, InterestRate: dec("0.06")}, nil)
		cfg.On("GetActivePenaltyConfig", ctx).Return(&model.PenaltyConfig{Rate: dec("0.02")}, nil)
		cfg.On("GetActiveServiceChargeConfig", ctx).Return(&model.ServiceChargeConfig{
			Method: model.ServiceChargeMethodBracket,
			Brackets: []model.ServiceChargeBracket{
				{MinPrincipal: dec("0"), MaxPrincipal: dec("500"), Charge: dec("5")},
			},
		}, nil)

		r := NewRateResolver(cfg, StandardDefaultRates())
		card, err := r.Resolve(ctx, 1, dec("10000"))
		require.NoError(t, err)
		assert.True(t, card.ServiceCharge.Equal(dec("50")), "charge %s", card.ServiceCharge)
	})

	t.Run("percentage method clamps to the configured range", func(t *testing.T) {
		cfg := new(MockRateConfigReader)
		cfg.On("GetCategory", ctx, int64(1)).Return(&model.ItemCategory{ID: 1, InterestRate: dec("0.06")}, nil)
		cfg.On("GetActivePenaltyConfig", ctx).Return(&model.PenaltyConfig{Rate: dec("0.02")}, nil)
		cfg.On("GetActiveServiceChargeConfig", ctx).Return(&model.ServiceChargeConfig{
			Method:     model.ServiceChargeMethodPercentage,
			Percentage: dec("0.01"),
			MinCharge:  dec("20"),
			MaxCharge:  dec("100"),
		}, nil)

		r := NewRateResolver(cfg, StandardDefaultRates())

		// 1% of 500 is 5, clamped up to the 20 floor.
		card, err := r.Resolve(ctx, 1, dec("500"))
		require.NoError(t, err)
		assert.True(t, card.ServiceCharge.Equal(dec("20")), "charge %s", card.ServiceCharge)

		// 1% of 50000 is 500, clamped down to the 100 ceiling.
		card, err = r.Resolve(ctx, 1, dec("50000"))
		require.NoError(t, err)
		assert.True(t, card.ServiceCharge.Equal(dec("100")), "charge %s", card.ServiceCharge)
	})
}
