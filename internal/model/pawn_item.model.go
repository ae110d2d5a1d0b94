package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// ItemStatus is the custody state of a pledged item. Movement is forward
// only: once an item leaves the vault it never re-enters.
type ItemStatus string

const (
	ItemStatusInVault  ItemStatus = "in_vault"
	ItemStatusRedeemed ItemStatus = "redeemed"
	ItemStatusSold     ItemStatus = "sold"
	ItemStatusExpired  ItemStatus = "expired"
	ItemStatusLost     ItemStatus = "lost"
	ItemStatusReturned ItemStatus = "returned"
)

// itemTransitions is the allowed-transition table. An expired item can still
// be sold at auction; everything else is terminal.
var itemTransitions = map[ItemStatus][]ItemStatus{
	ItemStatusInVault: {ItemStatusRedeemed, ItemStatusSold, ItemStatusExpired, ItemStatusLost, ItemStatusReturned},
	ItemStatusExpired: {ItemStatusSold},
}

// CanTransition reports whether from -> to is an allowed item movement.
func (from ItemStatus) CanTransition(to ItemStatus) bool {
	for _, s := range itemTransitions[from] {
		if s == to {
			return true
		}
	}
	return false
}

// Terminal reports whether no further movement is allowed out of the status.
func (s ItemStatus) Terminal() bool {
	return len(itemTransitions[s]) == 0
}

// PawnItem is a pledged item attached to the chain's first transaction. Later
// chain members reference it through the chain, not by duplicating rows.
type PawnItem struct {
	ID             int64           `json:"id"              gorm:"primaryKey;autoIncrement;column:id"`
	TransactionID  int64           `json:"transaction_id"  gorm:"column:transaction_id;not null;index"`
	AppraisalID    *int64          `json:"appraisal_id"    gorm:"column:appraisal_id"`
	CategoryID     int64           `json:"category_id"     gorm:"column:category_id;not null;index"`
	Description    string          `json:"description"     gorm:"column:description;not null"`
	AppraisedValue decimal.Decimal `json:"appraised_value" gorm:"column:appraised_value;type:decimal(14,2);not null"`
	LoanAmount     decimal.Decimal `json:"loan_amount"     gorm:"column:loan_amount;type:decimal(14,2)"`
	Status         ItemStatus      `json:"status"          gorm:"column:status;not null;index"`

	// Populated only after an auction sale.
	BuyerName      string          `json:"buyer_name,omitempty" gorm:"column:buyer_name"`
	Discount       decimal.Decimal `json:"discount"             gorm:"column:discount;type:decimal(14,2)"`
	FinalPrice     decimal.Decimal `json:"final_price"          gorm:"column:final_price;type:decimal(14,2)"`
	ReceivedAmount decimal.Decimal `json:"received_amount"      gorm:"column:received_amount;type:decimal(14,2)"`
	SoldAt         *time.Time      `json:"sold_at,omitempty"    gorm:"column:sold_at"`

	CreatedAt time.Time `json:"created_at" gorm:"column:created_at;autoCreateTime"`
	UpdatedAt time.Time `json:"updated_at" gorm:"column:updated_at;autoUpdateTime"`
}

func (PawnItem) TableName() string { return "pawn_items" }

// ItemFilter controls item listings.
type ItemFilter struct {
	TransactionID *int64
	CategoryID    *int64
	Statuses      []ItemStatus
	Limit         int
	Offset        int
}
