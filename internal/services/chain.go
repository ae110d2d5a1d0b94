package services

import (
	"context"
	"errors"
	"time"

	"github.com/nmcorpuz/pawnshop-core/internal/model"
	"github.com/nmcorpuz/pawnshop-core/internal/repository"
)

// ChainTransactionStore is the slice of the transaction repository the chain
// manager needs.
type ChainTransactionStore interface {
	GetActiveForUpdate(ctx context.Context, number string) (*model.Transaction, error)
	Supersede(ctx context.Context, id int64) error
}

// SequenceAllocator hands out the next per-branch, per-period counter value.
type SequenceAllocator interface {
	Next(ctx context.Context, branchID int64, docType, period string) (int64, error)
}

// ChainManager allocates transaction numbers and maintains the tracking
// links that tie every follow-on transaction back to its original loan.
type ChainManager struct {
	transactions ChainTransactionStore
	sequences    SequenceAllocator
}

func NewChainManager(transactions ChainTransactionStore, sequences SequenceAllocator) *ChainManager {
	return &ChainManager{
		transactions: transactions,
		sequences:    sequences,
	}
}

// AllocateNumber produces the next ticket/transaction number for a branch:
// PREFIX-YYYYMM-NNNNNN, where the prefix combines the configured ticket
// prefix with the branch code so numbers stay unique across branches sharing
// one counter period.
func (m *ChainManager) AllocateNumber(ctx context.Context, branch *model.Branch, terms *model.LoanTerms, at time.Time) (string, error) {
	period := repository.Period(at, terms.ResetPeriod)
	seq, err := m.sequences.Next(ctx, branch.ID, repository.DocTypePawnTicket, period)
	if err != nil {
		return "", err
	}
	return repository.FormatTicketNumber(terms.TicketPrefix+branch.Code, at, seq), nil
}

// OpenChain seeds a brand-new transaction as its own chain head: the
// tracking number is the transaction's own number and there is no
// predecessor.
func (m *ChainManager) OpenChain(ctx context.Context, txn *model.Transaction, branch *model.Branch, terms *model.LoanTerms, at time.Time) error {
	number, err := m.AllocateNumber(ctx, branch, terms, at)
	if err != nil {
		return err
	}
	txn.TransactionNumber = number
	txn.TrackingNumber = number
	txn.PreviousTransactionNumber = nil
	txn.ParentTransactionID = nil
	txn.Status = model.TransactionStatusActive
	txn.IsActive = true
	return nil
}

// ExtendChain links a follow-on transaction to its locked predecessor and
// retires the predecessor. The tracking number and granted date propagate
// unchanged from the chain head; the predecessor's number becomes the new
// row's previous pointer. Supersession is conditional on the predecessor
// still being active, so of two concurrent extensions exactly one survives.
//
// Must run inside the same unit of work that inserts the new row; the caller
// guarantees that.
func (m *ChainManager) ExtendChain(ctx context.Context, prev *model.Transaction, txn *model.Transaction, branch *model.Branch, terms *model.LoanTerms, at time.Time) error {
	number, err := m.AllocateNumber(ctx, branch, terms, at)
	if err != nil {
		return err
	}

	prevNumber := prev.TransactionNumber
	txn.TransactionNumber = number
	txn.TrackingNumber = prev.TrackingNumber
	txn.PreviousTransactionNumber = &prevNumber
	txn.ParentTransactionID = &prev.ID // legacy pointer, kept for old readers
	txn.GrantedDate = prev.GrantedDate
	txn.Status = model.TransactionStatusActive
	txn.IsActive = true

	if err := m.transactions.Supersede(ctx, prev.ID); err != nil {
		if errors.Is(err, repository.ErrChainConflict) {
			return ErrChainConflict
		}
		return err
	}
	return nil
}

// LockActive fetches the chain's current active member for the chain
// containing the given transaction number, holding a row lock until the unit
// of work ends.
func (m *ChainManager) LockActive(ctx context.Context, number string) (*model.Transaction, error) {
	txn, err := m.transactions.GetActiveForUpdate(ctx, number)
	if err != nil {
		switch {
		case errors.Is(err, repository.ErrTransactionNotFound):
			return nil, ErrNotFound
		case errors.Is(err, repository.ErrChainConflict):
			return nil, ErrChainConflict
		}
		return nil, err
	}
	return txn, nil
}
