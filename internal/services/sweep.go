package services

import (
	"context"
	"time"

	"github.com/nmcorpuz/pawnshop-core/pkg/logger"
)

// SweepStore is the sweeper's view of transaction persistence. Both updates
// are idempotent bulk statements; re-running a sweep is always safe.
type SweepStore interface {
	MarkMatured(ctx context.Context, asOf time.Time) (int64, error)
	MarkExpired(ctx context.Context, asOf time.Time) (int64, error)
}

// SweepResult reports how many chain members each pass touched.
type SweepResult struct {
	Matured int64  `json:"matured"`
	Expired int64  `json:"expired"`
	SweptAt string `json:"swept_at"`
}

// ExpirySweeper advances date-driven statuses: active past maturity becomes
// matured, active or matured past expiry becomes expired. It never touches
// items or balances; auction is the only path that moves an item out of the
// vault for an expired loan.
type ExpirySweeper struct {
	store SweepStore
	now   func() time.Time
}

func NewExpirySweeper(store SweepStore) *ExpirySweeper {
	return &ExpirySweeper{store: store, now: time.Now}
}

// Sweep runs both passes against the current time.
func (s *ExpirySweeper) Sweep(ctx context.Context) (*SweepResult, error) {
	return s.SweepAsOf(ctx, s.now())
}

// SweepAsOf runs both passes against an explicit evaluation time. Maturity is
// flipped first so a loan past both boundaries lands directly on expired.
func (s *ExpirySweeper) SweepAsOf(ctx context.Context, asOf time.Time) (*SweepResult, error) {
	matured, err := s.store.MarkMatured(ctx, asOf)
	if err != nil {
		return nil, err
	}
	expired, err := s.store.MarkExpired(ctx, asOf)
	if err != nil {
		return nil, err
	}
	if matured > 0 || expired > 0 {
		logger.Info("expiry sweep applied",
			"matured", matured, "expired", expired, "as_of", asOf.Format(time.RFC3339))
	}
	return &SweepResult{
		Matured: matured,
		Expired: expired,
		SweptAt: asOf.UTC().Format(time.RFC3339),
	}, nil
}
