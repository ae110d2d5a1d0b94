package handlers

import (
	"encoding/json"
	"errors"
	"strconv"
	"time"

	"github.com/nmcorpuz/pawnshop-core/internal/services"
	xhttp "github.com/nmcorpuz/pawnshop-core/pkg/http"
)

type errorBody struct {
	Error     string   `json:"error"`
	Reasons   []string `json:"reasons,omitempty"`
	Retryable bool     `json:"retryable,omitempty"`
}

func readJSON(ctx *xhttp.RequestCtx, dst any) error {
	return json.Unmarshal(ctx.PostBody(), dst)
}

func writeJSON(ctx *xhttp.RequestCtx, status int, v any) {
	b, _ := json.Marshal(v)
	ctx.Response.Header.Set("Content-Type", "application/json; charset=utf-8")
	ctx.Response.SetStatusCode(status)
	ctx.Response.SetBodyRaw(b)
}

func writeError(ctx *xhttp.RequestCtx, status int, msg string) {
	writeJSON(ctx, status, errorBody{Error: msg})
}

// writeServiceError maps the service error taxonomy onto HTTP statuses.
// Concurrency conflicts are flagged retryable; a retry must start from a
// fresh read of the chain.
func writeServiceError(ctx *xhttp.RequestCtx, err error) {
	var (
		validation *services.ValidationError
		chainState *services.ChainStateError
		eligible   *services.NotEligibleError
		transition *services.InvalidTransitionError
	)
	switch {
	case errors.As(err, &validation):
		writeError(ctx, 422, validation.Msg)
	case errors.As(err, &chainState):
		writeError(ctx, 409, chainState.Error())
	case errors.As(err, &eligible):
		writeJSON(ctx, 422, errorBody{Error: "not eligible", Reasons: eligible.Reasons})
	case errors.As(err, &transition):
		writeError(ctx, 422, transition.Error())
	case errors.Is(err, services.ErrChainConflict), errors.Is(err, services.ErrItemConflict):
		writeJSON(ctx, 409, errorBody{Error: err.Error(), Retryable: true})
	case errors.Is(err, services.ErrNotFound):
		writeError(ctx, 404, "not found")
	default:
		writeError(ctx, 500, "internal error")
	}
}

func query(ctx *xhttp.RequestCtx, key string) string {
	return string(ctx.QueryArgs().Peek(key))
}

func pathInt64(ctx *xhttp.RequestCtx, name string) (int64, error) {
	v, _ := ctx.UserValue(name).(string)
	return strconv.ParseInt(v, 10, 64)
}

func parseTime(s string) (time.Time, error) {
	// Accept RFC3339 or YYYY-MM-DD
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t, nil
	}
	return time.Parse("2006-01-02", s)
}
