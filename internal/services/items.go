package services

import (
	"context"
	"errors"

	"github.com/nmcorpuz/pawnshop-core/internal/model"
	"github.com/nmcorpuz/pawnshop-core/internal/repository"
)

// ItemStore is the slice of the pawn item repository the status manager
// needs.
type ItemStore interface {
	GetByID(ctx context.Context, id int64) (*model.PawnItem, error)
	ListByTransaction(ctx context.Context, transactionID int64) ([]*model.PawnItem, error)
	Transition(ctx context.Context, id int64, fromExpected, to model.ItemStatus) error
}

// ItemStatusManager enforces the forward-only item lifecycle: vault to one
// terminal state, never back.
type ItemStatusManager struct {
	items ItemStore
}

func NewItemStatusManager(items ItemStore) *ItemStatusManager {
	return &ItemStatusManager{
		items: items,
	}
}

// Transition moves an item from fromExpected to to. The transition table is
// checked in code first; the conditional update then guards against a racing
// operation having moved the item after our read.
func (m *ItemStatusManager) Transition(ctx context.Context, itemID int64, fromExpected, to model.ItemStatus) error {
	if !fromExpected.CanTransition(to) {
		return &InvalidTransitionError{From: string(fromExpected), To: string(to)}
	}

	err := m.items.Transition(ctx, itemID, fromExpected, to)
	if err != nil {
		switch {
		case errors.Is(err, repository.ErrItemNotFound):
			return ErrNotFound
		case errors.Is(err, repository.ErrItemConflict):
			return ErrItemConflict
		}
		return err
	}
	return nil
}

// TransitionAll moves every item attached to a transaction. Used when an
// operation terminates custody for the whole pledge (redemption).
func (m *ItemStatusManager) TransitionAll(ctx context.Context, transactionID int64, fromExpected, to model.ItemStatus) error {
	items, err := m.items.ListByTransaction(ctx, transactionID)
	if err != nil {
		return err
	}
	for _, item := range items {
		if err := m.Transition(ctx, item.ID, fromExpected, to); err != nil {
			return err
		}
	}
	return nil
}
