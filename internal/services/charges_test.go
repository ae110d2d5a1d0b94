package services

import (
	"testing"
	"time"

	"github.com/nmcorpuz/pawnshop-core/internal/model"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func dec(s string) decimal.Decimal {
	d, err := decimal.NewFromString(s)
	if err != nil {
		panic(err)
	}
	return d
}

func standardCard() model.RateCard {
	return model.RateCard{
		InterestRate:  dec("0.06"),
		PenaltyRate:   dec("0.02"),
		ServiceCharge: dec("50"),
	}
}

func TestBuildSchedule(t *testing.T) {
	terms := &model.LoanTerms{TermMonths: 4, GraceDays: 3, ExpiryDays: 90}
	anchor := time.Date(2026, 1, 15, 14, 30, 0, 0, time.UTC)

	sched := BuildSchedule(anchor, terms)

	assert.Equal(t, time.Date(2026, 5, 15, 0, 0, 0, 0, time.UTC), sched.MaturityDate)
	assert.Equal(t, time.Date(2026, 5, 18, 0, 0, 0, 0, time.UTC), sched.GracePeriodDate)
	assert.Equal(t, time.Date(2026, 8, 13, 0, 0, 0, 0, time.UTC), sched.ExpiryDate)
}

func TestBuildSchedule_CalendarMonthEnd(t *testing.T) {
	terms := &model.LoanTerms{TermMonths: 1, GraceDays: 3, ExpiryDays: 90}

	// Jan 31 + 1 calendar month lands on Mar 3 (Go date normalization),
	// matching how the term anniversary is computed everywhere else.
	sched := BuildSchedule(time.Date(2026, 1, 31, 9, 0, 0, 0, time.UTC), terms)
	assert.Equal(t, time.Date(2026, 3, 3, 0, 0, 0, 0, time.UTC), sched.MaturityDate)
}

func TestComputeCharges(t *testing.T) {
	principal := dec("2700")
	card := standardCard()
	maturity := time.Date(2026, 5, 15, 0, 0, 0, 0, time.UTC)
	grace := maturity.AddDate(0, 0, 3)

	t.Run("before maturity nothing accrues", func(t *testing.T) {
		c := ComputeCharges(principal, card, maturity, grace, maturity.AddDate(0, 0, -10))
		assert.True(t, c.InterestAmount.IsZero())
		assert.True(t, c.PenaltyAmount.IsZero())
	})

	t.Run("grace boundary is inclusive", func(t *testing.T) {
		c := ComputeCharges(principal, card, maturity, grace, grace)
		assert.True(t, c.InterestAmount.IsZero())
		assert.True(t, c.PenaltyAmount.IsZero())
	})

	t.Run("one day past grace owes a full month", func(t *testing.T) {
		c := ComputeCharges(principal, card, maturity, grace, grace.AddDate(0, 0, 1))
		// 4 days past maturity: interest floors to 1 month, penalty ceils to 1.
		assert.Equal(t, 1, c.InterestMonths)
		assert.Equal(t, 1, c.PenaltyMonths)
		assert.True(t, c.InterestAmount.Equal(dec("162")), "interest %s", c.InterestAmount)
		assert.True(t, c.PenaltyAmount.Equal(dec("54")), "penalty %s", c.PenaltyAmount)
	})

	t.Run("64 days past maturity", func(t *testing.T) {
		c := ComputeCharges(principal, card, maturity, grace, maturity.AddDate(0, 0, 64))
		// Interest counts completed 30-day blocks; penalty rounds partial
		// blocks up.
		assert.Equal(t, 2, c.InterestMonths)
		assert.Equal(t, 3, c.PenaltyMonths)
		assert.True(t, c.InterestAmount.Equal(dec("324")), "interest %s", c.InterestAmount)
		assert.True(t, c.PenaltyAmount.Equal(dec("162")), "penalty %s", c.PenaltyAmount)
	})

	t.Run("exactly 60 days past maturity", func(t *testing.T) {
		c := ComputeCharges(principal, card, maturity, grace, maturity.AddDate(0, 0, 60))
		assert.Equal(t, 2, c.InterestMonths)
		assert.Equal(t, 2, c.PenaltyMonths)
	})

	t.Run("charges never decrease as days pass", func(t *testing.T) {
		prevInterest, prevPenalty := decimal.Zero, decimal.Zero
		for d := 0; d <= 120; d++ {
			c := ComputeCharges(principal, card, maturity, grace, maturity.AddDate(0, 0, d))
			assert.True(t, c.InterestAmount.GreaterThanOrEqual(prevInterest), "day %d", d)
			assert.True(t, c.PenaltyAmount.GreaterThanOrEqual(prevPenalty), "day %d", d)
			prevInterest, prevPenalty = c.InterestAmount, c.PenaltyAmount
		}
	})
}

func TestComputeAdvance(t *testing.T) {
	advInterest, advService := ComputeAdvance(dec("600"), dec("0.06"), dec("50"))
	assert.True(t, advInterest.Equal(dec("36")), "advance interest %s", advInterest)
	assert.True(t, advService.Equal(dec("50")))
}

func TestNetPayment(t *testing.T) {
	// Partial 400, penalty 54, interest 162, discount 20, advance 36 + 50.
	net := NetPayment(dec("400"), dec("54"), dec("162"), dec("20"), dec("36"), dec("50"))
	assert.True(t, net.Equal(dec("682")), "net %s", net)

	// Renewal shape: no principal movement.
	net = NetPayment(decimal.Zero, decimal.Zero, decimal.Zero, decimal.Zero, dec("162"), dec("50"))
	assert.True(t, net.Equal(dec("212")), "net %s", net)
}

func TestTotalDue(t *testing.T) {
	c := Charges{InterestAmount: dec("162"), PenaltyAmount: dec("54")}
	total := TotalDue(dec("2700"), c, dec("50"))
	assert.True(t, total.Equal(dec("2966")), "total %s", total)
}
