package handlers

import (
	"context"

	"github.com/fasthttp/router"

	"github.com/nmcorpuz/pawnshop-core/internal/services"
	xhttp "github.com/nmcorpuz/pawnshop-core/pkg/http"
)

type Sweeper interface {
	Sweep(ctx context.Context) (*services.SweepResult, error)
}

type SweepHandler struct {
	sweeper Sweeper
}

func NewSweepHandler(sweeper Sweeper) *SweepHandler {
	return &SweepHandler{sweeper: sweeper}
}

func RegisterSweepRoutes(e *router.Group, h *SweepHandler) {
	e.POST("/sweep", h.RunSweep)
}

func (h *SweepHandler) RunSweep(ctx *xhttp.RequestCtx) {
	res, err := h.sweeper.Sweep(ctx)
	if err != nil {
		writeServiceError(ctx, err)
		return
	}
	writeJSON(ctx, 200, res)
}
