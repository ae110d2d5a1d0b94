package model

import (
	"errors"
	"time"

	"github.com/shopspring/decimal"
)

// TransactionType is the lifecycle event a transaction row records.
type TransactionType string

const (
	TransactionTypeNewLoan        TransactionType = "new_loan"
	TransactionTypeAdditionalLoan TransactionType = "additional_loan"
	TransactionTypePartialPayment TransactionType = "partial_payment"
	TransactionTypeRenew          TransactionType = "renew"
	TransactionTypeRedeem         TransactionType = "redeem"
)

// TransactionStatus is the state of a transaction row within its chain.
type TransactionStatus string

const (
	TransactionStatusActive     TransactionStatus = "active"
	TransactionStatusSuperseded TransactionStatus = "superseded"
	TransactionStatusMatured    TransactionStatus = "matured"
	TransactionStatusExpired    TransactionStatus = "expired"
	TransactionStatusRedeemed   TransactionStatus = "redeemed"
	TransactionStatusClosed     TransactionStatus = "closed"
)

// Extendable reports whether a chain member in this status can still be
// extended by a follow-on transaction (additional loan, partial payment,
// renewal). Expired members can only be redeemed or auctioned.
func (s TransactionStatus) Extendable() bool {
	return s == TransactionStatusActive || s == TransactionStatusMatured
}

// Redeemable reports whether the chain member can still be redeemed.
func (s TransactionStatus) Redeemable() bool {
	return s == TransactionStatusActive || s == TransactionStatusMatured || s == TransactionStatusExpired
}

// Transaction is one lifecycle event of a pawn loan. Every row descended from
// the same original loan shares a tracking number; previous_transaction_number
// links each row to its immediate predecessor. Exactly one row per tracking
// number has is_active = true while the chain is open.
type Transaction struct {
	ID                        int64             `json:"id"                          gorm:"primaryKey;autoIncrement;column:id"`
	TransactionNumber         string            `json:"transaction_number"          gorm:"column:transaction_number;not null;uniqueIndex"`
	TrackingNumber            string            `json:"tracking_number"             gorm:"column:tracking_number;not null;index"`
	PreviousTransactionNumber *string           `json:"previous_transaction_number" gorm:"column:previous_transaction_number"`
	ParentTransactionID       *int64            `json:"parent_transaction_id"       gorm:"column:parent_transaction_id"` // legacy single-parent pointer
	PawnerID                  int64             `json:"pawner_id"                   gorm:"column:pawner_id;not null;index"`
	Pawner                    *Pawner           `json:"-"                            gorm:"foreignKey:PawnerID;references:ID"`
	BranchID                  int64             `json:"branch_id"                   gorm:"column:branch_id;not null;index"`
	Type                      TransactionType   `json:"transaction_type"            gorm:"column:transaction_type;not null"`
	Status                    TransactionStatus `json:"status"                      gorm:"column:status;not null;index"`
	IsActive                  bool              `json:"is_active"                   gorm:"column:is_active;not null;index"`

	Principal            decimal.Decimal `json:"principal"              gorm:"column:principal;type:decimal(14,2);not null"`
	InterestRate         decimal.Decimal `json:"interest_rate"          gorm:"column:interest_rate;type:decimal(8,6);not null"` // fraction, 0.06 = 6%
	InterestAmount       decimal.Decimal `json:"interest_amount"        gorm:"column:interest_amount;type:decimal(14,2)"`
	PenaltyAmount        decimal.Decimal `json:"penalty_amount"         gorm:"column:penalty_amount;type:decimal(14,2)"`
	ServiceCharge        decimal.Decimal `json:"service_charge"         gorm:"column:service_charge;type:decimal(14,2)"`
	TotalAmount          decimal.Decimal `json:"total_amount"           gorm:"column:total_amount;type:decimal(14,2)"`
	AmountPaid           decimal.Decimal `json:"amount_paid"            gorm:"column:amount_paid;type:decimal(14,2)"`
	Balance              decimal.Decimal `json:"balance"                gorm:"column:balance;type:decimal(14,2)"`
	DiscountAmount       decimal.Decimal `json:"discount_amount"        gorm:"column:discount_amount;type:decimal(14,2)"`
	AdvanceInterest      decimal.Decimal `json:"advance_interest"       gorm:"column:advance_interest;type:decimal(14,2)"`
	AdvanceServiceCharge decimal.Decimal `json:"advance_service_charge" gorm:"column:advance_service_charge;type:decimal(14,2)"`
	NetPayment           decimal.Decimal `json:"net_payment"            gorm:"column:net_payment;type:decimal(14,2)"`
	NewPrincipalLoan     decimal.Decimal `json:"new_principal_loan"     gorm:"column:new_principal_loan;type:decimal(14,2)"`

	TransactionDate time.Time `json:"transaction_date"  gorm:"column:transaction_date;not null"`
	GrantedDate     time.Time `json:"granted_date"      gorm:"column:granted_date;not null"` // immutable, copied from the chain head
	MaturityDate    time.Time `json:"maturity_date"     gorm:"column:maturity_date;not null"`
	GracePeriodDate time.Time `json:"grace_period_date" gorm:"column:grace_period_date;not null"`
	ExpiryDate      time.Time `json:"expiry_date"       gorm:"column:expiry_date;not null"`

	CreatedBy int64     `json:"created_by" gorm:"column:created_by"`
	CreatedAt time.Time `json:"created_at" gorm:"column:created_at;autoCreateTime"`
	UpdatedAt time.Time `json:"updated_at" gorm:"column:updated_at;autoUpdateTime"`
}

func (Transaction) TableName() string { return "transactions" }

// IsChainHead reports whether this row opened its chain.
func (t *Transaction) IsChainHead() bool {
	return t.PreviousTransactionNumber == nil
}

// TransactionFilter controls List queries.
type TransactionFilter struct {
	PawnerID       *int64
	BranchID       *int64
	TrackingNumber *string
	Statuses       []TransactionStatus
	ActiveOnly     bool
	From           *time.Time
	To             *time.Time
	Limit          int
	Offset         int
	Desc           bool
}

type NewLoanRequest struct {
	PawnerID     int64   `json:"pawner_id"`
	BranchID     int64   `json:"branch_id"`
	AppraisalIDs []int64 `json:"appraisal_ids"`
	Principal    float64 `json:"principal"`
	CreatedBy    int64   `json:"-"`
}

func (r NewLoanRequest) Validate() error {
	if r.PawnerID == 0 {
		return errors.New("pawner_id is required")
	}
	if r.BranchID == 0 {
		return errors.New("branch_id is required")
	}
	if len(r.AppraisalIDs) == 0 {
		return errors.New("at least one appraisal is required")
	}
	if r.Principal <= 0 {
		return errors.New("principal must be positive")
	}
	return nil
}

type AdditionalLoanRequest struct {
	TransactionNumber string  `json:"transaction_number"`
	AdditionalAmount  float64 `json:"additional_amount"`
	CreatedBy         int64   `json:"-"`
}

func (r AdditionalLoanRequest) Validate() error {
	if r.TransactionNumber == "" {
		return errors.New("transaction_number is required")
	}
	if r.AdditionalAmount <= 0 {
		return errors.New("additional_amount must be positive")
	}
	return nil
}

type PartialPaymentRequest struct {
	TransactionNumber string  `json:"transaction_number"`
	PartialPayment    float64 `json:"partial_payment"`
	Discount          float64 `json:"discount"`
	CreatedBy         int64   `json:"-"`
}

func (r PartialPaymentRequest) Validate() error {
	if r.TransactionNumber == "" {
		return errors.New("transaction_number is required")
	}
	if r.PartialPayment <= 0 {
		return errors.New("partial_payment must be positive")
	}
	if r.Discount < 0 {
		return errors.New("discount cannot be negative")
	}
	return nil
}

type RenewalRequest struct {
	TransactionNumber string  `json:"transaction_number"`
	Discount          float64 `json:"discount"`
	CreatedBy         int64   `json:"-"`
}

func (r RenewalRequest) Validate() error {
	if r.TransactionNumber == "" {
		return errors.New("transaction_number is required")
	}
	if r.Discount < 0 {
		return errors.New("discount cannot be negative")
	}
	return nil
}

type RedeemRequest struct {
	TransactionNumber string  `json:"transaction_number"`
	AmountPaid        float64 `json:"amount_paid"`
	CreatedBy         int64   `json:"-"`
}

func (r RedeemRequest) Validate() error {
	if r.TransactionNumber == "" {
		return errors.New("transaction_number is required")
	}
	if r.AmountPaid <= 0 {
		return errors.New("amount_paid must be positive")
	}
	return nil
}

type AuctionSaleRequest struct {
	ItemID         int64   `json:"item_id"`
	BuyerName      string  `json:"buyer_name"`
	AuctionPrice   float64 `json:"auction_price"`
	Discount       float64 `json:"discount"`
	ReceivedAmount float64 `json:"received_amount"`
	CreatedBy      int64   `json:"-"`
}

func (r AuctionSaleRequest) Validate() error {
	if r.ItemID == 0 {
		return errors.New("item_id is required")
	}
	if r.BuyerName == "" {
		return errors.New("buyer_name is required")
	}
	return nil
}

// ChargeBreakdown is the monetary result of evaluating a transaction at a
// point in time. All amounts are currency-rounded.
type ChargeBreakdown struct {
	InterestAmount       decimal.Decimal `json:"interest_amount"`
	PenaltyAmount        decimal.Decimal `json:"penalty_amount"`
	ServiceCharge        decimal.Decimal `json:"service_charge"`
	AdvanceInterest      decimal.Decimal `json:"advance_interest"`
	AdvanceServiceCharge decimal.Decimal `json:"advance_service_charge"`
	DiscountAmount       decimal.Decimal `json:"discount_amount"`
	NetPayment           decimal.Decimal `json:"net_payment"`
	TotalDue             decimal.Decimal `json:"total_due"`
}

// OperationResult is the public outcome of a lifecycle mutation.
type OperationResult struct {
	TransactionNumber         string          `json:"transaction_number"`
	TrackingNumber            string          `json:"tracking_number"`
	PreviousTransactionNumber *string         `json:"previous_transaction_number"`
	TicketNumber              string          `json:"ticket_number,omitempty"`
	Principal                 decimal.Decimal `json:"principal"`
	Breakdown                 ChargeBreakdown `json:"breakdown"`
	MaturityDate              time.Time       `json:"maturity_date"`
	GracePeriodDate           time.Time       `json:"grace_period_date"`
	ExpiryDate                time.Time       `json:"expiry_date"`
}
