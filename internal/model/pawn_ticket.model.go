package model

import "time"

// PawnTicket is the printable artifact for one transaction. It carries print
// and audit metadata only; the financial state lives on the transaction.
type PawnTicket struct {
	ID            int64      `json:"id"             gorm:"primaryKey;autoIncrement;column:id"`
	TransactionID int64      `json:"transaction_id" gorm:"column:transaction_id;not null;uniqueIndex"`
	TicketNumber  string     `json:"ticket_number"  gorm:"column:ticket_number;not null;uniqueIndex"`
	PrintedAt     *time.Time `json:"printed_at"     gorm:"column:printed_at"`
	PrintCount    int        `json:"print_count"    gorm:"column:print_count;not null;default:0"`
	PrintedBy     int64      `json:"printed_by"     gorm:"column:printed_by"`
	CreatedAt     time.Time  `json:"created_at"     gorm:"column:created_at;autoCreateTime"`
}

func (PawnTicket) TableName() string { return "pawn_tickets" }

// TicketPrintJob is the payload queued for the printer worker.
type TicketPrintJob struct {
	TicketNumber      string          `json:"ticket_number"`
	TransactionNumber string          `json:"transaction_number"`
	TransactionType   TransactionType `json:"transaction_type"`
	BranchID          int64           `json:"branch_id"`
	RequestedBy       int64           `json:"requested_by"`
}
