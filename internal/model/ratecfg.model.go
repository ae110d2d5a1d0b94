package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// Configuration tables are read-only from the engine's perspective. Charge
// amounts are snapshotted onto the transaction at computation time; a later
// config change never rewrites history.

type Branch struct {
	ID   int64  `json:"id"   gorm:"primaryKey;autoIncrement;column:id"`
	Code string `json:"code" gorm:"column:code;not null;uniqueIndex"` // used in ticket numbers
	Name string `json:"name" gorm:"column:name;not null"`
}

func (Branch) TableName() string { return "branches" }

// ItemCategory carries the monthly interest rate per item kind (jewelry and
// appliances carry different rates).
type ItemCategory struct {
	ID           int64           `json:"id"            gorm:"primaryKey;autoIncrement;column:id"`
	Name         string          `json:"name"          gorm:"column:name;not null"`
	InterestRate decimal.Decimal `json:"interest_rate" gorm:"column:interest_rate;type:decimal(8,6);not null"` // fraction per month
	Active       bool            `json:"active"        gorm:"column:active;not null;default:true"`
	CreatedAt    time.Time       `json:"created_at"    gorm:"column:created_at;autoCreateTime"`
}

func (ItemCategory) TableName() string { return "item_categories" }

// PenaltyConfig is the flat monthly penalty applied once the grace period has
// elapsed.
type PenaltyConfig struct {
	ID            int64           `json:"id"             gorm:"primaryKey;autoIncrement;column:id"`
	Rate          decimal.Decimal `json:"rate"           gorm:"column:rate;type:decimal(8,6);not null"` // fraction per month
	ThresholdDays int             `json:"threshold_days" gorm:"column:threshold_days;not null"`
	Active        bool            `json:"active"         gorm:"column:active;not null;default:true"`
}

func (PenaltyConfig) TableName() string { return "penalty_configs" }

// ServiceChargeMethod selects how the service charge is derived from the
// principal.
type ServiceChargeMethod string

const (
	ServiceChargeMethodBracket    ServiceChargeMethod = "bracket"
	ServiceChargeMethodPercentage ServiceChargeMethod = "percentage"
	ServiceChargeMethodFixed      ServiceChargeMethod = "fixed"
)

type ServiceChargeConfig struct {
	ID          int64                  `json:"id"           gorm:"primaryKey;autoIncrement;column:id"`
	Method      ServiceChargeMethod    `json:"method"       gorm:"column:method;not null"`
	Percentage  decimal.Decimal        `json:"percentage"   gorm:"column:percentage;type:decimal(8,6)"` // fraction
	FixedAmount decimal.Decimal        `json:"fixed_amount" gorm:"column:fixed_amount;type:decimal(14,2)"`
	MinCharge   decimal.Decimal        `json:"min_charge"   gorm:"column:min_charge;type:decimal(14,2)"`
	MaxCharge   decimal.Decimal        `json:"max_charge"   gorm:"column:max_charge;type:decimal(14,2)"` // zero = unbounded
	Active      bool                   `json:"active"       gorm:"column:active;not null;default:true"`
	Brackets    []ServiceChargeBracket `json:"brackets"     gorm:"foreignKey:ConfigID;references:ID"`
}

func (ServiceChargeConfig) TableName() string { return "service_charge_configs" }

// ServiceChargeBracket maps a [min,max] principal band to a fixed charge.
type ServiceChargeBracket struct {
	ID           int64           `json:"id"            gorm:"primaryKey;autoIncrement;column:id"`
	ConfigID     int64           `json:"config_id"     gorm:"column:config_id;not null;index"`
	MinPrincipal decimal.Decimal `json:"min_principal" gorm:"column:min_principal;type:decimal(14,2);not null"`
	MaxPrincipal decimal.Decimal `json:"max_principal" gorm:"column:max_principal;type:decimal(14,2);not null"`
	Charge       decimal.Decimal `json:"charge"        gorm:"column:charge;type:decimal(14,2);not null"`
}

func (ServiceChargeBracket) TableName() string { return "service_charge_brackets" }

// LoanTerms holds the schedule offsets and intake limits. These are
// configuration, not per-transaction choices.
type LoanTerms struct {
	ID           int64           `json:"id"             gorm:"primaryKey;autoIncrement;column:id"`
	TermMonths   int             `json:"term_months"    gorm:"column:term_months;not null"`
	GraceDays    int             `json:"grace_days"     gorm:"column:grace_days;not null"`
	ExpiryDays   int             `json:"expiry_days"    gorm:"column:expiry_days;not null"`
	MaxLoanRatio decimal.Decimal `json:"max_loan_ratio" gorm:"column:max_loan_ratio;type:decimal(8,6);not null"` // principal <= ratio * appraised value
	TicketPrefix string          `json:"ticket_prefix"  gorm:"column:ticket_prefix;not null"`
	ResetPeriod  string          `json:"reset_period"   gorm:"column:reset_period;not null"` // "monthly" or "yearly"
	Active       bool            `json:"active"         gorm:"column:active;not null;default:true"`
}

func (LoanTerms) TableName() string { return "loan_terms" }

// RateCard is the snapshot of every rate a charge computation needs, resolved
// once before the unit of work opens.
type RateCard struct {
	InterestRate         decimal.Decimal
	PenaltyRate          decimal.Decimal
	PenaltyThresholdDays int
	ServiceCharge        decimal.Decimal
}
