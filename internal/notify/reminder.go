package notify

import (
	"context"
	"fmt"
	"time"

	"github.com/nmcorpuz/pawnshop-core/internal/model"
	"github.com/nmcorpuz/pawnshop-core/pkg/logger"
)

type ReminderStore interface {
	ListMaturingBetween(ctx context.Context, from, to time.Time) ([]*model.Transaction, error)
	ListExpiringBetween(ctx context.Context, from, to time.Time) ([]*model.Transaction, error)
}

type PawnerReader interface {
	GetByID(ctx context.Context, id int64) (*model.Pawner, error)
}

type SMSSender interface {
	SendSMS(ctx context.Context, req *SendRequest) (*SendResponse, error)
}

// ReminderService texts pawners whose loans approach maturity or expiry.
// Best effort: one undeliverable number never stops the run.
type ReminderService struct {
	transactions ReminderStore
	pawners      PawnerReader
	sender       SMSSender
	leadDays     int
	now          func() time.Time
}

func NewReminderService(transactions ReminderStore, pawners PawnerReader, sender SMSSender, leadDays int) *ReminderService {
	if leadDays <= 0 {
		leadDays = 3
	}
	return &ReminderService{
		transactions: transactions,
		pawners:      pawners,
		sender:       sender,
		leadDays:     leadDays,
		now:          time.Now,
	}
}

// SendMaturityReminders notifies loans maturing within the lead window.
// Returns the number of reminders sent.
func (s *ReminderService) SendMaturityReminders(ctx context.Context) (int, error) {
	now := s.now()
	txns, err := s.transactions.ListMaturingBetween(ctx, now, now.AddDate(0, 0, s.leadDays))
	if err != nil {
		return 0, err
	}

	sent := 0
	for _, txn := range txns {
		msg := fmt.Sprintf("Pawn ticket %s matures on %s. Renew or redeem at your branch to avoid penalty charges.",
			txn.TransactionNumber, txn.MaturityDate.Format("Jan 2, 2006"))
		if s.send(ctx, txn, msg) {
			sent++
		}
	}
	return sent, nil
}

// SendExpiryReminders notifies loans whose redemption window closes within
// the lead window. After expiry the pledged items become auctionable.
func (s *ReminderService) SendExpiryReminders(ctx context.Context) (int, error) {
	now := s.now()
	txns, err := s.transactions.ListExpiringBetween(ctx, now, now.AddDate(0, 0, s.leadDays))
	if err != nil {
		return 0, err
	}

	sent := 0
	for _, txn := range txns {
		msg := fmt.Sprintf("Final notice: pawn ticket %s expires on %s. Unredeemed items will be offered for sale.",
			txn.TransactionNumber, txn.ExpiryDate.Format("Jan 2, 2006"))
		if s.send(ctx, txn, msg) {
			sent++
		}
	}
	return sent, nil
}

func (s *ReminderService) send(ctx context.Context, txn *model.Transaction, content string) bool {
	pawner, err := s.pawners.GetByID(ctx, txn.PawnerID)
	if err != nil {
		logger.Warn("Reminder skipped, pawner lookup failed",
			"transaction_number", txn.TransactionNumber, "pawner_id", txn.PawnerID, "error", err)
		return false
	}
	if pawner.Mobile == "" {
		return false
	}

	_, err = s.sender.SendSMS(ctx, &SendRequest{
		ReferenceID: txn.TransactionNumber,
		PhoneNumber: pawner.Mobile,
		Content:     content,
	})
	if err != nil {
		logger.Warn("Reminder send failed",
			"transaction_number", txn.TransactionNumber, "mobile", pawner.Mobile, "error", err)
		return false
	}
	return true
}
