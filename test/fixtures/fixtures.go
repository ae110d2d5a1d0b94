package fixtures

import (
	"time"

	"github.com/nmcorpuz/pawnshop-core/internal/model"
	"github.com/shopspring/decimal"
)

var (
	TestPawner1 = model.Pawner{
		ID:        1,
		FirstName: "Maria",
		LastName:  "Santos",
		Mobile:    "+639171234567",
		BranchID:  1,
	}

	TestPawner2 = model.Pawner{
		ID:        2,
		FirstName: "Jose",
		LastName:  "Reyes",
		Mobile:    "+639189876543",
		BranchID:  1,
	}
)

func NewTestAppraisal(pawnerID int64, estimatedValue float64) *model.Appraisal {
	return &model.Appraisal{
		PawnerID:       pawnerID,
		BranchID:       1,
		CategoryID:     1,
		Description:    "18k gold necklace",
		EstimatedValue: decimal.NewFromFloat(estimatedValue),
		Status:         model.AppraisalStatusCompleted,
		AppraisedBy:    1,
	}
}

func NewLoanRequest(pawnerID int64, appraisalIDs []int64, principal float64) model.NewLoanRequest {
	return model.NewLoanRequest{
		PawnerID:     pawnerID,
		BranchID:     1,
		AppraisalIDs: appraisalIDs,
		Principal:    principal,
		CreatedBy:    1,
	}
}

func PartialPaymentRequest(transactionNumber string, payment, discount float64) model.PartialPaymentRequest {
	return model.PartialPaymentRequest{
		TransactionNumber: transactionNumber,
		PartialPayment:    payment,
		Discount:          discount,
		CreatedBy:         1,
	}
}

func RenewalRequest(transactionNumber string, discount float64) model.RenewalRequest {
	return model.RenewalRequest{
		TransactionNumber: transactionNumber,
		Discount:          discount,
		CreatedBy:         1,
	}
}

func RedeemRequest(transactionNumber string, amountPaid float64) model.RedeemRequest {
	return model.RedeemRequest{
		TransactionNumber: transactionNumber,
		AmountPaid:        amountPaid,
		CreatedBy:         1,
	}
}

var (
	ValidMobileNumbers = []string{
		"+639171234567",
		"+639189876543",
		"+639201112222",
	}

	InvalidMobileNumbers = []string{
		"",
		"123",
		"invalid",
	}
)

func TransactionFilterByPawner(pawnerID int64) model.TransactionFilter {
	return model.TransactionFilter{
		PawnerID: &pawnerID,
		Limit:    50,
		Offset:   0,
	}
}

func TransactionFilterByTimeRange(pawnerID int64, from, to time.Time) model.TransactionFilter {
	return model.TransactionFilter{
		PawnerID: &pawnerID,
		From:     &from,
		To:       &to,
		Limit:    50,
		Offset:   0,
	}
}
