package services

import (
	"context"
	"errors"

	"github.com/shopspring/decimal"

	"github.com/nmcorpuz/pawnshop-core/internal/model"
	"github.com/nmcorpuz/pawnshop-core/internal/repository"
	"github.com/nmcorpuz/pawnshop-core/pkg/logger"
	"github.com/nmcorpuz/pawnshop-core/pkg/money"
)

// RateConfigReader is the read-only configuration surface the resolver
// needs. Configuration updates never retroactively change already-computed
// transactions; amounts are snapshotted at computation time.
type RateConfigReader interface {
	GetCategory(ctx context.Context, id int64) (*model.ItemCategory, error)
	GetActivePenaltyConfig(ctx context.Context) (*model.PenaltyConfig, error)
	GetActiveServiceChargeConfig(ctx context.Context) (*model.ServiceChargeConfig, error)
	GetActiveLoanTerms(ctx context.Context) (*model.LoanTerms, error)
	GetBranch(ctx context.Context, id int64) (*model.Branch, error)
}

// DefaultRates backstops configuration gaps. A missing category or bracket
// degrades to these values with a warning instead of aborting the
// transaction.
type DefaultRates struct {
	InterestRate         decimal.Decimal
	PenaltyRate          decimal.Decimal
	PenaltyThresholdDays int
	ServiceCharge        decimal.Decimal
}

// StandardDefaultRates are the customary Philippine pawnshop figures: 6%
// monthly interest, 2% monthly penalty, a flat 50.00 service charge.
func StandardDefaultRates() DefaultRates {
	return DefaultRates{
		InterestRate:         decimal.NewFromFloat(0.06),
		PenaltyRate:          decimal.NewFromFloat(0.02),
		PenaltyThresholdDays: 0,
		ServiceCharge:        decimal.NewFromInt(50),
	}
}

type RateResolver struct {
	cfg      RateConfigReader
	defaults DefaultRates
}

func NewRateResolver(cfg RateConfigReader, defaults DefaultRates) *RateResolver {
	return &RateResolver{
		cfg:      cfg,
		defaults: defaults,
	}
}

// Resolve snapshots every rate a charge computation needs: the category's
// monthly interest rate, the penalty rate and threshold, and the service
// charge for the given principal. Resolution is read-only and runs before
// the unit of work opens.
func (r *RateResolver) Resolve(ctx context.Context, categoryID int64, principal decimal.Decimal) (model.RateCard, error) {
	card := model.RateCard{
		InterestRate:         r.defaults.InterestRate,
		PenaltyRate:          r.defaults.PenaltyRate,
		PenaltyThresholdDays: r.defaults.PenaltyThresholdDays,
	}

	cat, err := r.cfg.GetCategory(ctx, categoryID)
	switch {
	case err == nil:
		card.InterestRate = cat.InterestRate
	case errors.Is(err, repository.ErrConfigNotFound):
		logger.Warn("no interest rate configured for category, using default",
			"category_id", categoryID, "default_rate", r.defaults.InterestRate.String())
	default:
		return model.RateCard{}, err
	}

	pen, err := r.cfg.GetActivePenaltyConfig(ctx)
	switch {
	case err == nil:
		card.PenaltyRate = pen.Rate
		card.PenaltyThresholdDays = pen.ThresholdDays
	case errors.Is(err, repository.ErrConfigNotFound):
		logger.Warn("no penalty config found, using default",
			"default_rate", r.defaults.PenaltyRate.String())
	default:
		return model.RateCard{}, err
	}

	sc, err := r.resolveServiceCharge(ctx, principal)
	if err != nil {
		return model.RateCard{}, err
	}
	card.ServiceCharge = sc

	return card, nil
}

// resolveServiceCharge applies the configured method: a bracket table, a
// flat percentage of the principal, or a fixed amount. The result is clamped
// to the configured min/max.
func (r *RateResolver) resolveServiceCharge(ctx context.Context, principal decimal.Decimal) (decimal.Decimal, error) {
	cfg, err := r.cfg.GetActiveServiceChargeConfig(ctx)
	if err != nil {
		if errors.Is(err, repository.ErrConfigNotFound) {
			logger.Warn("no service charge config found, using default",
				"default_charge", r.defaults.ServiceCharge.String())
			return r.defaults.ServiceCharge, nil
		}
		return decimal.Decimal{}, err
	}

	var charge decimal.Decimal
	switch cfg.Method {
	case model.ServiceChargeMethodBracket:
		found := false
		for _, b := range cfg.Brackets {
			if principal.GreaterThanOrEqual(b.MinPrincipal) && principal.LessThanOrEqual(b.MaxPrincipal) {
				charge = b.Charge
				found = true
				break
			}
		}
		if !found {
			logger.Warn("principal outside every service charge bracket, using default",
				"principal", principal.String(), "default_charge", r.defaults.ServiceCharge.String())
			charge = r.defaults.ServiceCharge
		}
	case model.ServiceChargeMethodPercentage:
		charge = money.Pct(principal, cfg.Percentage)
	case model.ServiceChargeMethodFixed:
		charge = cfg.FixedAmount
	default:
		logger.Warn("unknown service charge method, using default", "method", string(cfg.Method))
		charge = r.defaults.ServiceCharge
	}

	return money.Clamp(charge, cfg.MinCharge, cfg.MaxCharge), nil
}
