package handlers

import (
	"context"
	"strconv"
	"strings"

	"github.com/fasthttp/router"

	"github.com/nmcorpuz/pawnshop-core/internal/model"
	xhttp "github.com/nmcorpuz/pawnshop-core/pkg/http"
)

type ItemService interface {
	Items(ctx context.Context, f model.ItemFilter) ([]*model.PawnItem, int64, error)
	AuctionSale(ctx context.Context, req model.AuctionSaleRequest) (*model.PawnItem, error)
}

type ItemHandler struct {
	svc     ItemService
	sweeper Sweeper
}

func NewItemHandler(itemService ItemService, sweeper Sweeper) *ItemHandler {
	return &ItemHandler{
		svc:     itemService,
		sweeper: sweeper,
	}
}

func RegisterItemRoutes(e *router.Group, h *ItemHandler) {
	e.GET("/items", h.ListItems)
	e.POST("/items/{id}/auction", h.AuctionSale)
}

func itemStaleSensitive(statuses []model.ItemStatus) bool {
	for _, s := range statuses {
		if s == model.ItemStatusExpired {
			return true
		}
	}
	return false
}

type itemListResponse struct {
	Items []*model.PawnItem `json:"items"`
	Total int64             `json:"total"`
}

/* --------------------------------- Routes ----------------------------------- */

func (h *ItemHandler) ListItems(ctx *xhttp.RequestCtx) {
	var f model.ItemFilter

	if v := query(ctx, "transaction_id"); v != "" {
		if id, e := strconv.ParseInt(v, 10, 64); e == nil {
			f.TransactionID = &id
		}
	}
	if v := query(ctx, "category_id"); v != "" {
		if id, e := strconv.ParseInt(v, 10, 64); e == nil {
			f.CategoryID = &id
		}
	}
	if v := query(ctx, "status"); v != "" {
		parts := strings.Split(v, ",")
		for i := range parts {
			parts[i] = strings.TrimSpace(parts[i])
			if parts[i] != "" {
				f.Statuses = append(f.Statuses, model.ItemStatus(parts[i]))
			}
		}
	}
	if v := query(ctx, "limit"); v != "" {
		if n, e := strconv.Atoi(v); e == nil {
			f.Limit = n
		}
	}
	if v := query(ctx, "offset"); v != "" {
		if n, e := strconv.Atoi(v); e == nil {
			f.Offset = n
		}
	}

	// An "expired" (auctionable) listing must reflect loans that crossed
	// their expiry date today, not just since the last scheduled sweep.
	if h.sweeper != nil && itemStaleSensitive(f.Statuses) {
		if _, err := h.sweeper.Sweep(ctx); err != nil {
			writeServiceError(ctx, err)
			return
		}
	}

	items, total, err := h.svc.Items(ctx, f)
	if err != nil {
		writeServiceError(ctx, err)
		return
	}
	writeJSON(ctx, 200, itemListResponse{Items: items, Total: total})
}

func (h *ItemHandler) AuctionSale(ctx *xhttp.RequestCtx) {
	id, err := pathInt64(ctx, "id")
	if err != nil {
		writeError(ctx, 400, "invalid item id")
		return
	}

	var req model.AuctionSaleRequest
	if err := readJSON(ctx, &req); err != nil {
		writeError(ctx, 400, "invalid JSON: "+err.Error())
		return
	}
	req.ItemID = id

	// Eligibility depends on the owning loan being expired; sweep first so
	// a loan past its expiry date does not need to wait for the scheduled
	// run before it can be sold.
	if h.sweeper != nil {
		if _, err := h.sweeper.Sweep(ctx); err != nil {
			writeServiceError(ctx, err)
			return
		}
	}

	item, err := h.svc.AuctionSale(ctx, req)
	if err != nil {
		writeServiceError(ctx, err)
		return
	}
	writeJSON(ctx, 200, item)
}

