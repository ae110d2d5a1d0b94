package model

import (
	"errors"
	"time"

	"github.com/shopspring/decimal"
)

type AppraisalStatus string

const (
	AppraisalStatusPending   AppraisalStatus = "pending"
	AppraisalStatusCompleted AppraisalStatus = "completed"
	// Consumed marks an appraisal already used by a loan intake so the same
	// valuation cannot back two loans.
	AppraisalStatusConsumed AppraisalStatus = "consumed"
)

// Appraisal is a pre-loan valuation, independent of any transaction chain
// until a loan intake consumes it.
type Appraisal struct {
	ID             int64           `json:"id"              gorm:"primaryKey;autoIncrement;column:id"`
	PawnerID       int64           `json:"pawner_id"       gorm:"column:pawner_id;not null;index"`
	BranchID       int64           `json:"branch_id"       gorm:"column:branch_id;not null;index"`
	CategoryID     int64           `json:"category_id"     gorm:"column:category_id;not null"`
	Description    string          `json:"description"     gorm:"column:description;not null"`
	EstimatedValue decimal.Decimal `json:"estimated_value" gorm:"column:estimated_value;type:decimal(14,2);not null"`
	Status         AppraisalStatus `json:"status"          gorm:"column:status;not null;index"`
	AppraisedBy    int64           `json:"appraised_by"    gorm:"column:appraised_by"`
	CreatedAt      time.Time       `json:"created_at"      gorm:"column:created_at;autoCreateTime"`
	UpdatedAt      time.Time       `json:"updated_at"      gorm:"column:updated_at;autoUpdateTime"`
}

func (Appraisal) TableName() string { return "appraisals" }

type AppraisalCreateRequest struct {
	PawnerID       int64   `json:"pawner_id"`
	BranchID       int64   `json:"branch_id"`
	CategoryID     int64   `json:"category_id"`
	Description    string  `json:"description"`
	EstimatedValue float64 `json:"estimated_value"`
	AppraisedBy    int64   `json:"-"`
}

func (r AppraisalCreateRequest) Validate() error {
	if r.PawnerID == 0 {
		return errors.New("pawner_id is required")
	}
	if r.BranchID == 0 {
		return errors.New("branch_id is required")
	}
	if r.CategoryID == 0 {
		return errors.New("category_id is required")
	}
	if r.Description == "" {
		return errors.New("description is required")
	}
	if r.EstimatedValue < 0 {
		return errors.New("estimated_value cannot be negative")
	}
	return nil
}
