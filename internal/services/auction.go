package services

import (
	"context"
	"errors"

	"github.com/nmcorpuz/pawnshop-core/internal/model"
	"github.com/nmcorpuz/pawnshop-core/internal/repository"
	"github.com/nmcorpuz/pawnshop-core/pkg/money"
)

// AuctionSale disposes of a forfeited item after expiry. It is not a chain
// extension: the sale closes the owning transaction and the chain ends.
// Eligibility failures are collected in full so the caller can show every
// problem at once, not just the first.
func (s *LifecycleService) AuctionSale(ctx context.Context, req model.AuctionSaleRequest) (*model.PawnItem, error) {
	if err := req.Validate(); err != nil {
		return nil, &ValidationError{Msg: err.Error()}
	}

	item, err := s.items.GetByID(ctx, req.ItemID)
	if err != nil {
		if errors.Is(err, repository.ErrItemNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}

	head, err := s.transactions.GetByID(ctx, item.TransactionID)
	if err != nil {
		return nil, err
	}

	// The current expiry date lives on the chain's latest member, not on the
	// head the item is attached to.
	current, err := s.currentChainMember(ctx, head.TrackingNumber)
	if err != nil {
		return nil, err
	}

	auctionPrice := money.FromFloat(req.AuctionPrice)
	discount := money.FromFloat(req.Discount)
	received := money.FromFloat(req.ReceivedAmount)

	now := s.now()

	var reasons []string
	if !item.Status.CanTransition(model.ItemStatusSold) {
		reasons = append(reasons, "item is not available for sale (status: "+string(item.Status)+")")
	}
	if !current.ExpiryDate.Before(now) {
		reasons = append(reasons, "item is not expired yet")
	}
	if !auctionPrice.IsPositive() {
		reasons = append(reasons, "auction price must be set and positive")
	}
	if discount.IsNegative() {
		reasons = append(reasons, "discount cannot be negative")
	}
	if len(reasons) > 0 {
		return nil, &NotEligibleError{Reasons: reasons}
	}

	finalPrice := money.Round(auctionPrice.Sub(discount))
	if received.IsZero() {
		received = finalPrice
	}

	err = s.transactions.WithinTransaction(ctx, func(ctx context.Context) error {
		locked, err := s.items.GetByIDForUpdate(ctx, req.ItemID)
		if err != nil {
			if errors.Is(err, repository.ErrItemNotFound) {
				return ErrNotFound
			}
			return err
		}

		// Re-validate under the lock: a racing sale may have moved the item
		// since the eligibility check above.
		if !locked.Status.CanTransition(model.ItemStatusSold) {
			return ErrItemConflict
		}

		if err := s.items.RecordSale(ctx, locked.ID, locked.Status, req.BuyerName, discount, finalPrice, received, now); err != nil {
			if errors.Is(err, repository.ErrItemConflict) {
				return ErrItemConflict
			}
			return err
		}

		// Close the owning transaction once nothing pledged to it remains in
		// custody.
		remaining, err := s.items.ListByTransaction(ctx, head.ID)
		if err != nil {
			return err
		}
		for _, other := range remaining {
			if other.ID != locked.ID && other.Status.CanTransition(model.ItemStatusSold) {
				return nil
			}
		}

		err = s.transactions.Terminate(ctx, current.ID, model.TransactionStatusClosed, map[string]interface{}{
			"amount_paid": received,
		})
		if errors.Is(err, repository.ErrChainConflict) {
			return ErrChainConflict
		}
		return err
	})
	if err != nil {
		return nil, err
	}

	item.Status = model.ItemStatusSold
	item.BuyerName = req.BuyerName
	item.Discount = discount
	item.FinalPrice = finalPrice
	item.ReceivedAmount = received
	item.SoldAt = &now
	return item, nil
}

// currentChainMember returns the chain's latest row: the active member while
// the chain is open, otherwise the terminal row.
func (s *LifecycleService) currentChainMember(ctx context.Context, trackingNumber string) (*model.Transaction, error) {
	chain, err := s.transactions.GetChain(ctx, trackingNumber)
	if err != nil {
		return nil, err
	}
	if len(chain) == 0 {
		return nil, ErrNotFound
	}
	for _, txn := range chain {
		if txn.IsActive {
			return txn, nil
		}
	}
	return chain[len(chain)-1], nil
}
