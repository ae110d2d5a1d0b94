package handlers

import (
	"context"
	"strconv"
	"strings"

	"github.com/fasthttp/router"

	"github.com/nmcorpuz/pawnshop-core/internal/model"
	xhttp "github.com/nmcorpuz/pawnshop-core/pkg/http"
)

type AppraisalService interface {
	Create(ctx context.Context, req model.AppraisalCreateRequest) (*model.Appraisal, error)
	Complete(ctx context.Context, id int64, estimatedValue float64, appraisedBy int64) (*model.Appraisal, error)
	Get(ctx context.Context, id int64) (*model.Appraisal, error)
	ListByPawner(ctx context.Context, pawnerID int64, statuses []model.AppraisalStatus) ([]*model.Appraisal, error)
}

type AppraisalHandler struct {
	svc AppraisalService
}

func NewAppraisalHandler(appraisalService AppraisalService) *AppraisalHandler {
	return &AppraisalHandler{
		svc: appraisalService,
	}
}

func RegisterAppraisalRoutes(e *router.Group, h *AppraisalHandler) {
	e.POST("/appraisals", h.CreateAppraisal)
	e.POST("/appraisals/{id}/complete", h.CompleteAppraisal)
	e.GET("/appraisals/{id}", h.GetAppraisal)
	e.GET("/appraisals", h.ListAppraisals)
}

type completeAppraisalRequest struct {
	EstimatedValue float64 `json:"estimated_value"`
	AppraisedBy    int64   `json:"appraised_by"`
}

func (h *AppraisalHandler) CreateAppraisal(ctx *xhttp.RequestCtx) {
	var req model.AppraisalCreateRequest
	if err := readJSON(ctx, &req); err != nil {
		writeError(ctx, 400, "invalid JSON: "+err.Error())
		return
	}
	a, err := h.svc.Create(ctx, req)
	if err != nil {
		writeServiceError(ctx, err)
		return
	}
	writeJSON(ctx, 201, a)
}

func (h *AppraisalHandler) CompleteAppraisal(ctx *xhttp.RequestCtx) {
	id, err := pathInt64(ctx, "id")
	if err != nil {
		writeError(ctx, 400, "invalid appraisal id")
		return
	}
	var req completeAppraisalRequest
	if err := readJSON(ctx, &req); err != nil {
		writeError(ctx, 400, "invalid JSON: "+err.Error())
		return
	}
	a, err := h.svc.Complete(ctx, id, req.EstimatedValue, req.AppraisedBy)
	if err != nil {
		writeServiceError(ctx, err)
		return
	}
	writeJSON(ctx, 200, a)
}

func (h *AppraisalHandler) GetAppraisal(ctx *xhttp.RequestCtx) {
	id, err := pathInt64(ctx, "id")
	if err != nil {
		writeError(ctx, 400, "invalid appraisal id")
		return
	}
	a, err := h.svc.Get(ctx, id)
	if err != nil {
		writeServiceError(ctx, err)
		return
	}
	writeJSON(ctx, 200, a)
}

func (h *AppraisalHandler) ListAppraisals(ctx *xhttp.RequestCtx) {
	pawnerID, err := strconv.ParseInt(query(ctx, "pawner_id"), 10, 64)
	if err != nil {
		writeError(ctx, 400, "pawner_id is required")
		return
	}

	var statuses []model.AppraisalStatus
	if v := query(ctx, "status"); v != "" {
		for _, part := range strings.Split(v, ",") {
			part = strings.TrimSpace(part)
			if part != "" {
				statuses = append(statuses, model.AppraisalStatus(part))
			}
		}
	}

	items, err := h.svc.ListByPawner(ctx, pawnerID, statuses)
	if err != nil {
		writeServiceError(ctx, err)
		return
	}
	writeJSON(ctx, 200, items)
}
