package model

import (
	"errors"
	"time"
)

type Pawner struct {
	ID        int64     `json:"id"         gorm:"primaryKey;autoIncrement;column:id"`
	FirstName string    `json:"first_name" gorm:"column:first_name;not null"`
	LastName  string    `json:"last_name"  gorm:"column:last_name;not null"`
	Mobile    string    `json:"mobile"     gorm:"column:mobile;not null;index"`
	Email     string    `json:"email"      gorm:"column:email"`
	Address   string    `json:"address"    gorm:"column:address"`
	City      string    `json:"city"       gorm:"column:city"`
	BranchID  int64     `json:"branch_id"  gorm:"column:branch_id;not null;index"`
	CreatedAt time.Time `json:"created_at" gorm:"column:created_at;autoCreateTime"`
	UpdatedAt time.Time `json:"updated_at" gorm:"column:updated_at;autoUpdateTime"`
}

func (Pawner) TableName() string { return "pawners" }

// PawnerCreateRequest is the input for registering a pawner at loan intake.
type PawnerCreateRequest struct {
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Mobile    string `json:"mobile"`
	Email     string `json:"email"`
	Address   string `json:"address"`
	City      string `json:"city"`
	BranchID  int64  `json:"branch_id"`
}

func (p PawnerCreateRequest) Validate() error {
	if p.FirstName == "" {
		return errors.New("first_name is required")
	}
	if p.LastName == "" {
		return errors.New("last_name is required")
	}
	if p.Mobile == "" {
		return errors.New("mobile is required")
	}
	if p.BranchID == 0 {
		return errors.New("branch_id is required")
	}
	return nil
}

type PawnerUpdateRequest struct {
	Mobile  *string `json:"mobile"`
	Email   *string `json:"email"`
	Address *string `json:"address"`
	City    *string `json:"city"`
}
