package handlers

import (
	"context"
	"strconv"

	"github.com/fasthttp/router"

	"github.com/nmcorpuz/pawnshop-core/internal/model"
	xhttp "github.com/nmcorpuz/pawnshop-core/pkg/http"
)

type PawnerService interface {
	Register(ctx context.Context, req model.PawnerCreateRequest) (*model.Pawner, error)
	Get(ctx context.Context, id int64) (*model.Pawner, error)
	Update(ctx context.Context, id int64, req model.PawnerUpdateRequest) (*model.Pawner, error)
	List(ctx context.Context, branchID *int64, limit, offset int) ([]*model.Pawner, int64, error)
}

type PawnerHandler struct {
	svc PawnerService
}

func NewPawnerHandler(pawnerService PawnerService) *PawnerHandler {
	return &PawnerHandler{
		svc: pawnerService,
	}
}

func RegisterPawnerRoutes(e *router.Group, h *PawnerHandler) {
	e.POST("/pawners", h.CreatePawner)
	e.GET("/pawners", h.ListPawners)
	e.GET("/pawners/{id}", h.GetPawner)
	e.PATCH("/pawners/{id}", h.UpdatePawner)
}

type pawnerListResponse struct {
	Items []*model.Pawner `json:"items"`
	Total int64           `json:"total"`
}

func (h *PawnerHandler) CreatePawner(ctx *xhttp.RequestCtx) {
	var req model.PawnerCreateRequest
	if err := readJSON(ctx, &req); err != nil {
		writeError(ctx, 400, "invalid JSON: "+err.Error())
		return
	}
	p, err := h.svc.Register(ctx, req)
	if err != nil {
		writeServiceError(ctx, err)
		return
	}
	writeJSON(ctx, 201, p)
}

func (h *PawnerHandler) GetPawner(ctx *xhttp.RequestCtx) {
	id, err := pathInt64(ctx, "id")
	if err != nil {
		writeError(ctx, 400, "invalid pawner id")
		return
	}
	p, err := h.svc.Get(ctx, id)
	if err != nil {
		writeServiceError(ctx, err)
		return
	}
	writeJSON(ctx, 200, p)
}

func (h *PawnerHandler) UpdatePawner(ctx *xhttp.RequestCtx) {
	id, err := pathInt64(ctx, "id")
	if err != nil {
		writeError(ctx, 400, "invalid pawner id")
		return
	}
	var req model.PawnerUpdateRequest
	if err := readJSON(ctx, &req); err != nil {
		writeError(ctx, 400, "invalid JSON: "+err.Error())
		return
	}
	p, err := h.svc.Update(ctx, id, req)
	if err != nil {
		writeServiceError(ctx, err)
		return
	}
	writeJSON(ctx, 200, p)
}

func (h *PawnerHandler) ListPawners(ctx *xhttp.RequestCtx) {
	var branchID *int64
	if v := query(ctx, "branch_id"); v != "" {
		if id, e := strconv.ParseInt(v, 10, 64); e == nil {
			branchID = &id
		}
	}
	limit, _ := strconv.Atoi(query(ctx, "limit"))
	offset, _ := strconv.Atoi(query(ctx, "offset"))

	items, total, err := h.svc.List(ctx, branchID, limit, offset)
	if err != nil {
		writeServiceError(ctx, err)
		return
	}
	writeJSON(ctx, 200, pawnerListResponse{Items: items, Total: total})
}
