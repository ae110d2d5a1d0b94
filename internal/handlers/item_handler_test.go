package handlers

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/nmcorpuz/pawnshop-core/internal/model"
	"github.com/nmcorpuz/pawnshop-core/internal/services"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type MockItemService struct {
	mock.Mock
}

func (m *MockItemService) Items(ctx context.Context, f model.ItemFilter) ([]*model.PawnItem, int64, error) {
	args := m.Called(ctx, f)
	if args.Get(0) == nil {
		return nil, args.Get(1).(int64), args.Error(2)
	}
	return args.Get(0).([]*model.PawnItem), args.Get(1).(int64), args.Error(2)
}

func (m *MockItemService) AuctionSale(ctx context.Context, req model.AuctionSaleRequest) (*model.PawnItem, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.PawnItem), args.Error(1)
}

func TestItemHandler_ListItems(t *testing.T) {
	t.Run("expired filter sweeps before listing", func(t *testing.T) {
		svc := new(MockItemService)
		sweeper := new(MockSweeper)
		handler := NewItemHandler(svc, sweeper)

		sweeper.On("Sweep", mock.Anything).Return(&services.SweepResult{Expired: 1}, nil)
		svc.On("Items", mock.Anything, mock.MatchedBy(func(f model.ItemFilter) bool {
			return len(f.Statuses) == 1 && f.Statuses[0] == model.ItemStatusExpired
		})).Return([]*model.PawnItem{}, int64(0), nil)

		ctx := setupTestContext("GET", "/api/v1/items?status=expired", nil)
		handler.ListItems(ctx)

		assert.Equal(t, 200, ctx.Response.StatusCode())
		sweeper.AssertExpectations(t)
		svc.AssertExpectations(t)
	})

	t.Run("vault listing does not sweep", func(t *testing.T) {
		svc := new(MockItemService)
		sweeper := new(MockSweeper)
		handler := NewItemHandler(svc, sweeper)

		svc.On("Items", mock.Anything, mock.Anything).Return([]*model.PawnItem{
			{ID: 1, Status: model.ItemStatusInVault},
		}, int64(1), nil)

		ctx := setupTestContext("GET", "/api/v1/items?status=in_vault", nil)
		handler.ListItems(ctx)

		assert.Equal(t, 200, ctx.Response.StatusCode())
		sweeper.AssertNotCalled(t, "Sweep", mock.Anything)

		var response itemListResponse
		require.NoError(t, json.Unmarshal(ctx.Response.Body(), &response))
		assert.Equal(t, int64(1), response.Total)
	})
}

func TestItemHandler_AuctionSale(t *testing.T) {
	t.Run("sweeps before selling and returns the sold item", func(t *testing.T) {
		svc := new(MockItemService)
		sweeper := new(MockSweeper)
		handler := NewItemHandler(svc, sweeper)

		sweeper.On("Sweep", mock.Anything).Return(&services.SweepResult{}, nil)
		svc.On("AuctionSale", mock.Anything, mock.MatchedBy(func(r model.AuctionSaleRequest) bool {
			return r.ItemID == 5 && r.BuyerName == "Juan dela Cruz" && r.AuctionPrice == 1500
		})).Return(&model.PawnItem{ID: 5, Status: model.ItemStatusSold, BuyerName: "Juan dela Cruz"}, nil)

		body, _ := json.Marshal(model.AuctionSaleRequest{BuyerName: "Juan dela Cruz", AuctionPrice: 1500})
		ctx := setupTestContext("POST", "/api/v1/items/5/auction", body)
		ctx.SetUserValue("id", "5")
		handler.AuctionSale(ctx)

		assert.Equal(t, 200, ctx.Response.StatusCode())
		sweeper.AssertExpectations(t)
		svc.AssertExpectations(t)
	})

	t.Run("not eligible maps to 422 with every reason", func(t *testing.T) {
		svc := new(MockItemService)
		handler := NewItemHandler(svc, nil)

		svc.On("AuctionSale", mock.Anything, mock.Anything).Return(nil, &services.NotEligibleError{
			Reasons: []string{"item is not expired yet", "auction price must be set and positive"},
		})

		body, _ := json.Marshal(model.AuctionSaleRequest{BuyerName: "Juan dela Cruz"})
		ctx := setupTestContext("POST", "/api/v1/items/5/auction", body)
		ctx.SetUserValue("id", "5")
		handler.AuctionSale(ctx)

		assert.Equal(t, 422, ctx.Response.StatusCode())

		var response errorBody
		require.NoError(t, json.Unmarshal(ctx.Response.Body(), &response))
		assert.Len(t, response.Reasons, 2)
	})
}
