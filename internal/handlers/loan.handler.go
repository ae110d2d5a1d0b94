package handlers

import (
	"context"
	"strconv"
	"strings"
	"time"

	"github.com/fasthttp/router"

	"github.com/nmcorpuz/pawnshop-core/internal/model"
	xhttp "github.com/nmcorpuz/pawnshop-core/pkg/http"
)

type LoanService interface {
	NewLoan(ctx context.Context, req model.NewLoanRequest) (*model.OperationResult, error)
	AdditionalLoan(ctx context.Context, req model.AdditionalLoanRequest) (*model.OperationResult, error)
	PartialPayment(ctx context.Context, req model.PartialPaymentRequest) (*model.OperationResult, error)
	Renewal(ctx context.Context, req model.RenewalRequest) (*model.OperationResult, error)
	Redeem(ctx context.Context, req model.RedeemRequest) (*model.OperationResult, error)
	ComputeDue(ctx context.Context, transactionNumber string, evaluationDate time.Time) (*model.ChargeBreakdown, error)
	List(ctx context.Context, f model.TransactionFilter) ([]*model.Transaction, int64, error)
	Chain(ctx context.Context, transactionNumber string) ([]*model.Transaction, error)
}

type LoanHandler struct {
	svc     LoanService
	sweeper Sweeper
}

func NewLoanHandler(loanService LoanService, sweeper Sweeper) *LoanHandler {
	return &LoanHandler{
		svc:     loanService,
		sweeper: sweeper,
	}
}

func RegisterLoanRoutes(e *router.Group, h *LoanHandler) {
	e.POST("/loans", h.NewLoan)
	e.POST("/loans/additional", h.AdditionalLoan)
	e.POST("/loans/partial-payment", h.PartialPayment)
	e.POST("/loans/renew", h.Renew)
	e.POST("/loans/redeem", h.Redeem)
	e.GET("/loans", h.ListLoans)
	e.GET("/loans/{number}/due", h.ComputeDue)
	e.GET("/loans/{number}/chain", h.GetChain)
}

func staleSensitive(statuses []model.TransactionStatus) bool {
	for _, s := range statuses {
		if s == model.TransactionStatusMatured || s == model.TransactionStatusExpired {
			return true
		}
	}
	return false
}

type loanListResponse struct {
	Items []*model.Transaction `json:"items"`
	Total int64                `json:"total"`
}

type chainResponse struct {
	TrackingNumber string               `json:"tracking_number"`
	Members        []*model.Transaction `json:"members"`
}

/* --------------------------------- Routes ----------------------------------- */

func (h *LoanHandler) NewLoan(ctx *xhttp.RequestCtx) {
	var req model.NewLoanRequest
	if err := readJSON(ctx, &req); err != nil {
		writeError(ctx, 400, "invalid JSON: "+err.Error())
		return
	}
	res, err := h.svc.NewLoan(ctx, req)
	if err != nil {
		writeServiceError(ctx, err)
		return
	}
	writeJSON(ctx, 201, res)
}

func (h *LoanHandler) AdditionalLoan(ctx *xhttp.RequestCtx) {
	var req model.AdditionalLoanRequest
	if err := readJSON(ctx, &req); err != nil {
		writeError(ctx, 400, "invalid JSON: "+err.Error())
		return
	}
	res, err := h.svc.AdditionalLoan(ctx, req)
	if err != nil {
		writeServiceError(ctx, err)
		return
	}
	writeJSON(ctx, 201, res)
}

func (h *LoanHandler) PartialPayment(ctx *xhttp.RequestCtx) {
	var req model.PartialPaymentRequest
	if err := readJSON(ctx, &req); err != nil {
		writeError(ctx, 400, "invalid JSON: "+err.Error())
		return
	}
	res, err := h.svc.PartialPayment(ctx, req)
	if err != nil {
		writeServiceError(ctx, err)
		return
	}
	writeJSON(ctx, 201, res)
}

func (h *LoanHandler) Renew(ctx *xhttp.RequestCtx) {
	var req model.RenewalRequest
	if err := readJSON(ctx, &req); err != nil {
		writeError(ctx, 400, "invalid JSON: "+err.Error())
		return
	}
	res, err := h.svc.Renewal(ctx, req)
	if err != nil {
		writeServiceError(ctx, err)
		return
	}
	writeJSON(ctx, 201, res)
}

func (h *LoanHandler) Redeem(ctx *xhttp.RequestCtx) {
	var req model.RedeemRequest
	if err := readJSON(ctx, &req); err != nil {
		writeError(ctx, 400, "invalid JSON: "+err.Error())
		return
	}
	res, err := h.svc.Redeem(ctx, req)
	if err != nil {
		writeServiceError(ctx, err)
		return
	}
	writeJSON(ctx, 201, res)
}

func (h *LoanHandler) ComputeDue(ctx *xhttp.RequestCtx) {
	number, _ := ctx.UserValue("number").(string)
	if number == "" {
		writeError(ctx, 400, "transaction number is required")
		return
	}

	asOf := time.Now()
	if v := query(ctx, "as_of"); v != "" {
		t, err := parseTime(v)
		if err != nil {
			writeError(ctx, 400, "invalid as_of date")
			return
		}
		asOf = t
	}

	breakdown, err := h.svc.ComputeDue(ctx, number, asOf)
	if err != nil {
		writeServiceError(ctx, err)
		return
	}
	writeJSON(ctx, 200, breakdown)
}

func (h *LoanHandler) GetChain(ctx *xhttp.RequestCtx) {
	number, _ := ctx.UserValue("number").(string)
	if number == "" {
		writeError(ctx, 400, "transaction number is required")
		return
	}

	members, err := h.svc.Chain(ctx, number)
	if err != nil {
		writeServiceError(ctx, err)
		return
	}

	res := chainResponse{Members: members}
	if len(members) > 0 {
		res.TrackingNumber = members[0].TrackingNumber
	}
	writeJSON(ctx, 200, res)
}

func (h *LoanHandler) ListLoans(ctx *xhttp.RequestCtx) {
	var f model.TransactionFilter

	if v := query(ctx, "pawner_id"); v != "" {
		if id, e := strconv.ParseInt(v, 10, 64); e == nil {
			f.PawnerID = &id
		}
	}
	if v := query(ctx, "branch_id"); v != "" {
		if id, e := strconv.ParseInt(v, 10, 64); e == nil {
			f.BranchID = &id
		}
	}
	if v := query(ctx, "tracking_number"); v != "" {
		f.TrackingNumber = &v
	}
	if v := query(ctx, "status"); v != "" {
		parts := strings.Split(v, ",")
		for i := range parts {
			parts[i] = strings.TrimSpace(parts[i])
			if parts[i] != "" {
				f.Statuses = append(f.Statuses, model.TransactionStatus(parts[i]))
			}
		}
	}
	if v := query(ctx, "active"); v == "true" {
		f.ActiveOnly = true
	}
	if v := query(ctx, "from"); v != "" {
		if t, e := parseTime(v); e == nil {
			f.From = &t
		}
	}
	if v := query(ctx, "to"); v != "" {
		if t, e := parseTime(v); e == nil {
			f.To = &t
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
	if strings.EqualFold(query(ctx, "order"), "desc") {
		f.Desc = true
	}

	// Maturity and expiry are date-driven; sweep before serving a listing
	// filtered on them so the results reflect today, not the last scheduled
	// run.
	if h.sweeper != nil && staleSensitive(f.Statuses) {
		if _, err := h.sweeper.Sweep(ctx); err != nil {
			writeServiceError(ctx, err)
			return
		}
	}

	items, total, err := h.svc.List(ctx, f)
	if err != nil {
		writeServiceError(ctx, err)
		return
	}
	writeJSON(ctx, 200, loanListResponse{Items: items, Total: total})
}
