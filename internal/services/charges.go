package services

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/nmcorpuz/pawnshop-core/internal/model"
	"github.com/nmcorpuz/pawnshop-core/pkg/money"
)

// Schedule is the date triple derived from a grant or renewal anchor. The
// offsets come from configuration, never from the request.
type Schedule struct {
	MaturityDate    time.Time
	GracePeriodDate time.Time
	ExpiryDate      time.Time
}

// BuildSchedule derives maturity, grace and expiry from an anchor date. The
// term is calendar months; grace and forfeiture windows are day offsets from
// maturity.
func BuildSchedule(anchor time.Time, terms *model.LoanTerms) Schedule {
	maturity := dateOnly(anchor).AddDate(0, terms.TermMonths, 0)
	return Schedule{
		MaturityDate:    maturity,
		GracePeriodDate: maturity.AddDate(0, 0, terms.GraceDays),
		ExpiryDate:      maturity.AddDate(0, 0, terms.ExpiryDays),
	}
}

// Charges is the elapsed-time portion of a computation: what the borrower
// owes for the term already consumed.
type Charges struct {
	InterestAmount decimal.Decimal
	PenaltyAmount  decimal.Decimal
	InterestMonths int
	PenaltyMonths  int
}

// ComputeCharges evaluates interest and penalty owed on a principal at a
// given date.
//
// Within the grace period nothing accrues. Past it, one day late already
// owes a full month of interest; every further completed 30-day block past
// maturity adds another. Penalty counts 30-day blocks with partial blocks
// rounded up. Both amounts therefore step only at 30-day boundaries and
// never decrease as days pass.
func ComputeCharges(principal decimal.Decimal, card model.RateCard, maturityDate, gracePeriodDate, evaluationDate time.Time) Charges {
	eval := dateOnly(evaluationDate)
	if !eval.After(dateOnly(gracePeriodDate)) {
		return Charges{
			InterestAmount: money.Zero,
			PenaltyAmount:  money.Zero,
		}
	}

	days := daysBetween(dateOnly(maturityDate), eval)

	interestMonths := days / 30
	if interestMonths < 1 {
		interestMonths = 1
	}
	penaltyMonths := (days + 29) / 30

	return Charges{
		InterestAmount: money.Monthly(principal, card.InterestRate, interestMonths),
		PenaltyAmount:  money.Monthly(principal, card.PenaltyRate, penaltyMonths),
		InterestMonths: interestMonths,
		PenaltyMonths:  penaltyMonths,
	}
}

// ComputeAdvance prices the upcoming term on the post-payment principal: one
// forward month of interest plus the service charge for that principal. It
// is prepayment, not a penalty, and is independent of the elapsed-time
// charges above.
func ComputeAdvance(newPrincipal decimal.Decimal, interestRate, serviceCharge decimal.Decimal) (advanceInterest, advanceServiceCharge decimal.Decimal) {
	return money.Monthly(newPrincipal, interestRate, 1), serviceCharge
}

// NetPayment reconciles what the counter actually collects. Recomputed
// server-side always; a client-supplied figure is never trusted.
func NetPayment(partialPayment, penalty, interest, discount, advanceInterest, advanceServiceCharge decimal.Decimal) decimal.Decimal {
	return money.Round(partialPayment.
		Add(penalty).
		Add(interest).
		Sub(discount).
		Add(advanceInterest).
		Add(advanceServiceCharge))
}

// TotalDue is the full redemption amount at an evaluation date.
func TotalDue(principal decimal.Decimal, c Charges, serviceCharge decimal.Decimal) decimal.Decimal {
	return money.Round(principal.
		Add(c.InterestAmount).
		Add(c.PenaltyAmount).
		Add(serviceCharge))
}

func dateOnly(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// daysBetween returns whole days from a to b at date granularity.
func daysBetween(a, b time.Time) int {
	return int(b.Sub(a).Hours() / 24)
}
