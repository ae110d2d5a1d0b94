package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/nmcorpuz/pawnshop-core/internal/model"
	"github.com/nmcorpuz/pawnshop-core/internal/repository"
	"github.com/nmcorpuz/pawnshop-core/pkg/logger"
	"github.com/nmcorpuz/pawnshop-core/pkg/money"
)

// TransactionStore is the lifecycle engine's view of transaction
// persistence. WithinTransaction is the unit of work: every write of one
// operation happens inside it or not at all.
type TransactionStore interface {
	Create(ctx context.Context, txn *model.Transaction) (*model.Transaction, error)
	GetByID(ctx context.Context, id int64) (*model.Transaction, error)
	GetByNumber(ctx context.Context, number string) (*model.Transaction, error)
	GetChain(ctx context.Context, trackingNumber string) ([]*model.Transaction, error)
	GetChainHead(ctx context.Context, trackingNumber string) (*model.Transaction, error)
	GetActiveForUpdate(ctx context.Context, number string) (*model.Transaction, error)
	Terminate(ctx context.Context, id int64, status model.TransactionStatus, updates map[string]interface{}) error
	List(ctx context.Context, f model.TransactionFilter) ([]*model.Transaction, int64, error)
	WithinTransaction(ctx context.Context, fn func(ctx context.Context) error) error
}

type TicketStore interface {
	Create(ctx context.Context, ticket *model.PawnTicket) (*model.PawnTicket, error)
}

type ItemLifecycleStore interface {
	Create(ctx context.Context, item *model.PawnItem) (*model.PawnItem, error)
	GetByID(ctx context.Context, id int64) (*model.PawnItem, error)
	GetByIDForUpdate(ctx context.Context, id int64) (*model.PawnItem, error)
	ListByTransaction(ctx context.Context, transactionID int64) ([]*model.PawnItem, error)
	List(ctx context.Context, f model.ItemFilter) ([]*model.PawnItem, int64, error)
	RecordSale(ctx context.Context, id int64, fromExpected model.ItemStatus, buyerName string, discount, finalPrice, receivedAmount decimal.Decimal, soldAt time.Time) error
}

type AppraisalStore interface {
	GetByIDs(ctx context.Context, ids []int64) ([]*model.Appraisal, error)
	Consume(ctx context.Context, id int64) error
}

type PawnerStore interface {
	GetByID(ctx context.Context, id int64) (*model.Pawner, error)
}

// PrintPublisher queues ticket print jobs for the printer worker. Publishing
// happens after the unit of work commits; a publish failure is logged, never
// rolled back into the operation.
type PrintPublisher interface {
	PublishJSON(ctx context.Context, data interface{}, metadata map[string]string) (string, error)
}

// LifecycleService orchestrates the pawn loan mutations: new loan,
// additional loan, partial payment, renewal, redemption and auction sale.
// Rate resolution is read-only and runs before the unit of work opens; all
// writes happen inside it.
type LifecycleService struct {
	transactions TransactionStore
	tickets      TicketStore
	items        ItemLifecycleStore
	appraisals   AppraisalStore
	pawners      PawnerStore
	cfg          RateConfigReader
	rates        *RateResolver
	chain        *ChainManager
	itemStatus   *ItemStatusManager
	printQueue   PrintPublisher
	now          func() time.Time
}

func NewLifecycleService(
	transactions TransactionStore,
	tickets TicketStore,
	items ItemLifecycleStore,
	appraisals AppraisalStore,
	pawners PawnerStore,
	cfg RateConfigReader,
	rates *RateResolver,
	chain *ChainManager,
	itemStatus *ItemStatusManager,
	printQueue PrintPublisher,
) *LifecycleService {
	return &LifecycleService{
		transactions: transactions,
		tickets:      tickets,
		items:        items,
		appraisals:   appraisals,
		pawners:      pawners,
		cfg:          cfg,
		rates:        rates,
		chain:        chain,
		itemStatus:   itemStatus,
		printQueue:   printQueue,
		now:          time.Now,
	}
}

// NewLoan validates the pawner and appraised items, opens a new tracking
// chain and creates the transaction, ticket and item rows atomically.
func (s *LifecycleService) NewLoan(ctx context.Context, req model.NewLoanRequest) (*model.OperationResult, error) {
	if err := req.Validate(); err != nil {
		return nil, &ValidationError{Msg: err.Error()}
	}

	if _, err := s.pawners.GetByID(ctx, req.PawnerID); err != nil {
		if errors.Is(err, repository.ErrPawnerNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}

	terms, branch, err := s.loadTermsAndBranch(ctx, req.BranchID)
	if err != nil {
		return nil, err
	}

	appraisals, err := s.appraisals.GetByIDs(ctx, req.AppraisalIDs)
	if err != nil {
		if errors.Is(err, repository.ErrAppraisalNotFound) {
			return nil, validationErrorf("one or more appraisals do not exist")
		}
		return nil, err
	}

	totalAppraised := money.Zero
	for _, a := range appraisals {
		if a.Status != model.AppraisalStatusCompleted {
			return nil, validationErrorf("appraisal %d is not completed (status: %s)", a.ID, a.Status)
		}
		totalAppraised = totalAppraised.Add(a.EstimatedValue)
	}

	principal := money.FromFloat(req.Principal)
	maxLoan := money.Round(totalAppraised.Mul(terms.MaxLoanRatio))
	if principal.GreaterThan(maxLoan) {
		return nil, validationErrorf("principal %s exceeds maximum loanable amount %s for appraised value %s",
			principal.String(), maxLoan.String(), totalAppraised.String())
	}

	// Interest rate follows the highest-valued pledged item's category.
	card, err := s.rates.Resolve(ctx, dominantCategory(appraisals), principal)
	if err != nil {
		return nil, err
	}

	now := s.now()
	sched := BuildSchedule(now, terms)

	// First-term interest is collected in advance at grant time.
	firstInterest := money.Monthly(principal, card.InterestRate, 1)

	txn := &model.Transaction{
		PawnerID:        req.PawnerID,
		BranchID:        req.BranchID,
		Type:            model.TransactionTypeNewLoan,
		Principal:       principal,
		InterestRate:    card.InterestRate,
		InterestAmount:  firstInterest,
		ServiceCharge:   card.ServiceCharge,
		TotalAmount:     money.Round(principal.Add(firstInterest).Add(card.ServiceCharge)),
		Balance:         principal,
		TransactionDate: now,
		GrantedDate:     now,
		MaturityDate:    sched.MaturityDate,
		GracePeriodDate: sched.GracePeriodDate,
		ExpiryDate:      sched.ExpiryDate,
		CreatedBy:       req.CreatedBy,
	}

	err = s.transactions.WithinTransaction(ctx, func(ctx context.Context) error {
		if err := s.chain.OpenChain(ctx, txn, branch, terms, now); err != nil {
			return err
		}
		if _, err := s.transactions.Create(ctx, txn); err != nil {
			return err
		}

		for _, a := range appraisals {
			if err := s.appraisals.Consume(ctx, a.ID); err != nil {
				if errors.Is(err, repository.ErrAppraisalConsumed) {
					return validationErrorf("appraisal %d was consumed by another loan", a.ID)
				}
				return err
			}
		}

		for i, a := range appraisals {
			item := &model.PawnItem{
				TransactionID:  txn.ID,
				AppraisalID:    &appraisals[i].ID,
				CategoryID:     a.CategoryID,
				Description:    a.Description,
				AppraisedValue: a.EstimatedValue,
				LoanAmount:     itemShare(principal, a.EstimatedValue, totalAppraised),
				Status:         model.ItemStatusInVault,
			}
			if _, err := s.items.Create(ctx, item); err != nil {
				return err
			}
		}

		_, err := s.tickets.Create(ctx, &model.PawnTicket{
			TransactionID: txn.ID,
			TicketNumber:  txn.TransactionNumber,
		})
		return err
	})
	if err != nil {
		return nil, err
	}

	s.enqueuePrint(ctx, txn, req.CreatedBy)

	return s.result(txn, model.ChargeBreakdown{
		InterestAmount: firstInterest,
		ServiceCharge:  card.ServiceCharge,
		TotalDue:       txn.TotalAmount,
	}), nil
}

// AdditionalLoan releases more money against the same pledge. The combined
// principal restarts the term; the predecessor is superseded in the same
// unit of work.
func (s *LifecycleService) AdditionalLoan(ctx context.Context, req model.AdditionalLoanRequest) (*model.OperationResult, error) {
	if err := req.Validate(); err != nil {
		return nil, &ValidationError{Msg: err.Error()}
	}

	precheck, err := s.precheckExtendable(ctx, req.TransactionNumber)
	if err != nil {
		return nil, err
	}
	newPrincipal := money.Round(precheck.Principal.Add(money.FromFloat(req.AdditionalAmount)))

	prev, card, terms, branch, err := s.prepareExtension(ctx, req.TransactionNumber, newPrincipal)
	if err != nil {
		return nil, err
	}

	now := s.now()
	due := ComputeCharges(prev.Principal, card, prev.MaturityDate, prev.GracePeriodDate, now)
	advInterest, advService := ComputeAdvance(newPrincipal, card.InterestRate, card.ServiceCharge)
	net := NetPayment(money.Zero, due.PenaltyAmount, due.InterestAmount, money.Zero, advInterest, advService)
	sched := BuildSchedule(now, terms)

	txn := &model.Transaction{
		PawnerID:             prev.PawnerID,
		BranchID:             prev.BranchID,
		Type:                 model.TransactionTypeAdditionalLoan,
		Principal:            newPrincipal,
		InterestRate:         card.InterestRate,
		InterestAmount:       due.InterestAmount,
		PenaltyAmount:        due.PenaltyAmount,
		AdvanceInterest:      advInterest,
		AdvanceServiceCharge: advService,
		NetPayment:           net,
		NewPrincipalLoan:     newPrincipal,
		Balance:              newPrincipal,
		TotalAmount:          money.Round(newPrincipal.Add(net)),
		TransactionDate:      now,
		MaturityDate:         sched.MaturityDate,
		GracePeriodDate:      sched.GracePeriodDate,
		ExpiryDate:           sched.ExpiryDate,
		CreatedBy:            req.CreatedBy,
	}

	if err := s.extend(ctx, prev, txn, branch, terms, now); err != nil {
		return nil, err
	}

	s.enqueuePrint(ctx, txn, req.CreatedBy)

	return s.result(txn, model.ChargeBreakdown{
		InterestAmount:       due.InterestAmount,
		PenaltyAmount:        due.PenaltyAmount,
		AdvanceInterest:      advInterest,
		AdvanceServiceCharge: advService,
		NetPayment:           net,
		TotalDue:             txn.TotalAmount,
	}), nil
}

// PartialPayment reduces the principal and prepays the next term on the
// remainder. The net payment is always recomputed server-side; a mismatched
// client figure cannot corrupt the balance.
func (s *LifecycleService) PartialPayment(ctx context.Context, req model.PartialPaymentRequest) (*model.OperationResult, error) {
	if err := req.Validate(); err != nil {
		return nil, &ValidationError{Msg: err.Error()}
	}

	partial := money.FromFloat(req.PartialPayment)
	discount := money.FromFloat(req.Discount)

	precheck, err := s.precheckExtendable(ctx, req.TransactionNumber)
	if err != nil {
		return nil, err
	}
	if partial.GreaterThanOrEqual(precheck.Principal) {
		return nil, validationErrorf("partial payment %s covers the full principal %s; use redemption instead",
			partial.String(), precheck.Principal.String())
	}

	newPrincipal := money.Round(precheck.Principal.Sub(partial))

	prev, card, terms, branch, err := s.prepareExtension(ctx, req.TransactionNumber, newPrincipal)
	if err != nil {
		return nil, err
	}

	now := s.now()
	due := ComputeCharges(prev.Principal, card, prev.MaturityDate, prev.GracePeriodDate, now)
	advInterest, advService := ComputeAdvance(newPrincipal, card.InterestRate, card.ServiceCharge)
	net := NetPayment(partial, due.PenaltyAmount, due.InterestAmount, discount, advInterest, advService)
	sched := BuildSchedule(now, terms)

	txn := &model.Transaction{
		PawnerID:             prev.PawnerID,
		BranchID:             prev.BranchID,
		Type:                 model.TransactionTypePartialPayment,
		Principal:            newPrincipal,
		InterestRate:         card.InterestRate,
		InterestAmount:       due.InterestAmount,
		PenaltyAmount:        due.PenaltyAmount,
		DiscountAmount:       discount,
		AdvanceInterest:      advInterest,
		AdvanceServiceCharge: advService,
		NetPayment:           net,
		NewPrincipalLoan:     newPrincipal,
		AmountPaid:           net,
		Balance:              newPrincipal,
		TotalAmount:          money.Round(newPrincipal.Add(net)),
		TransactionDate:      now,
		MaturityDate:         sched.MaturityDate,
		GracePeriodDate:      sched.GracePeriodDate,
		ExpiryDate:           sched.ExpiryDate,
		CreatedBy:            req.CreatedBy,
	}

	if err := s.extend(ctx, prev, txn, branch, terms, now); err != nil {
		return nil, err
	}

	s.enqueuePrint(ctx, txn, req.CreatedBy)

	return s.result(txn, model.ChargeBreakdown{
		InterestAmount:       due.InterestAmount,
		PenaltyAmount:        due.PenaltyAmount,
		DiscountAmount:       discount,
		AdvanceInterest:      advInterest,
		AdvanceServiceCharge: advService,
		NetPayment:           net,
		TotalDue:             txn.TotalAmount,
	}), nil
}

// Renewal is the partial-payment path with a zero payment: the principal is
// unchanged and the schedule resets forward from the renewal date.
func (s *LifecycleService) Renewal(ctx context.Context, req model.RenewalRequest) (*model.OperationResult, error) {
	if err := req.Validate(); err != nil {
		return nil, &ValidationError{Msg: err.Error()}
	}

	discount := money.FromFloat(req.Discount)

	prev, card, terms, branch, err := s.prepareExtension(ctx, req.TransactionNumber, decimal.Decimal{})
	if err != nil {
		return nil, err
	}

	now := s.now()
	due := ComputeCharges(prev.Principal, card, prev.MaturityDate, prev.GracePeriodDate, now)
	advInterest, advService := ComputeAdvance(prev.Principal, card.InterestRate, card.ServiceCharge)
	net := NetPayment(money.Zero, due.PenaltyAmount, due.InterestAmount, discount, advInterest, advService)
	sched := BuildSchedule(now, terms)

	txn := &model.Transaction{
		PawnerID:             prev.PawnerID,
		BranchID:             prev.BranchID,
		Type:                 model.TransactionTypeRenew,
		Principal:            prev.Principal,
		InterestRate:         card.InterestRate,
		InterestAmount:       due.InterestAmount,
		PenaltyAmount:        due.PenaltyAmount,
		DiscountAmount:       discount,
		AdvanceInterest:      advInterest,
		AdvanceServiceCharge: advService,
		NetPayment:           net,
		NewPrincipalLoan:     prev.Principal,
		AmountPaid:           net,
		Balance:              prev.Principal,
		TotalAmount:          money.Round(prev.Principal.Add(net)),
		TransactionDate:      now,
		MaturityDate:         sched.MaturityDate,
		GracePeriodDate:      sched.GracePeriodDate,
		ExpiryDate:           sched.ExpiryDate,
		CreatedBy:            req.CreatedBy,
	}

	if err := s.extend(ctx, prev, txn, branch, terms, now); err != nil {
		return nil, err
	}

	s.enqueuePrint(ctx, txn, req.CreatedBy)

	return s.result(txn, model.ChargeBreakdown{
		InterestAmount:       due.InterestAmount,
		PenaltyAmount:        due.PenaltyAmount,
		DiscountAmount:       discount,
		AdvanceInterest:      advInterest,
		AdvanceServiceCharge: advService,
		NetPayment:           net,
		TotalDue:             txn.TotalAmount,
	}), nil
}

// Redeem settles the full amount due, appends the terminal redeem row and
// returns every pledged item to the pawner. The chain cannot be extended
// afterwards.
func (s *LifecycleService) Redeem(ctx context.Context, req model.RedeemRequest) (*model.OperationResult, error) {
	if err := req.Validate(); err != nil {
		return nil, &ValidationError{Msg: err.Error()}
	}

	precheck, err := s.getForPrecheck(ctx, req.TransactionNumber)
	if err != nil {
		return nil, err
	}
	if !precheck.IsActive || !precheck.Status.Redeemable() {
		return nil, &ChainStateError{TransactionNumber: precheck.TransactionNumber, Status: string(precheck.Status)}
	}

	card, terms, branch, err := s.resolveForChain(ctx, precheck, precheck.Principal)
	if err != nil {
		return nil, err
	}

	now := s.now()
	due := ComputeCharges(precheck.Principal, card, precheck.MaturityDate, precheck.GracePeriodDate, now)
	totalDue := TotalDue(precheck.Principal, due, card.ServiceCharge)

	amountPaid := money.FromFloat(req.AmountPaid)
	if amountPaid.LessThan(totalDue) {
		return nil, validationErrorf("redemption requires full payment of %s, got %s",
			totalDue.String(), amountPaid.String())
	}

	var txn *model.Transaction
	err = s.transactions.WithinTransaction(ctx, func(ctx context.Context) error {
		prev, err := s.chain.LockActive(ctx, req.TransactionNumber)
		if err != nil {
			return err
		}
		if prev.TransactionNumber != req.TransactionNumber {
			return ErrChainConflict
		}

		txn = &model.Transaction{
			PawnerID:        prev.PawnerID,
			BranchID:        prev.BranchID,
			Type:            model.TransactionTypeRedeem,
			Principal:       prev.Principal,
			InterestRate:    card.InterestRate,
			InterestAmount:  due.InterestAmount,
			PenaltyAmount:   due.PenaltyAmount,
			ServiceCharge:   card.ServiceCharge,
			TotalAmount:     totalDue,
			AmountPaid:      amountPaid,
			Balance:         money.Zero,
			TransactionDate: now,
			MaturityDate:    prev.MaturityDate,
			GracePeriodDate: prev.GracePeriodDate,
			ExpiryDate:      prev.ExpiryDate,
			CreatedBy:       req.CreatedBy,
		}
		if err := s.chain.ExtendChain(ctx, prev, txn, branch, terms, now); err != nil {
			return err
		}

		// The redeem row is terminal, never an active head.
		txn.Status = model.TransactionStatusRedeemed
		txn.IsActive = false

		if _, err := s.transactions.Create(ctx, txn); err != nil {
			return err
		}
		if _, err := s.tickets.Create(ctx, &model.PawnTicket{
			TransactionID: txn.ID,
			TicketNumber:  txn.TransactionNumber,
		}); err != nil {
			return err
		}

		head, err := s.transactions.GetChainHead(ctx, prev.TrackingNumber)
		if err != nil {
			return err
		}
		return s.itemStatus.TransitionAll(ctx, head.ID, model.ItemStatusInVault, model.ItemStatusRedeemed)
	})
	if err != nil {
		return nil, err
	}

	s.enqueuePrint(ctx, txn, req.CreatedBy)

	return s.result(txn, model.ChargeBreakdown{
		InterestAmount: due.InterestAmount,
		PenaltyAmount:  due.PenaltyAmount,
		ServiceCharge:  card.ServiceCharge,
		TotalDue:       totalDue,
	}), nil
}

// ComputeDue evaluates the breakdown for a ticket at a date without writing
// anything. Used by the due-inquiry endpoint.
func (s *LifecycleService) ComputeDue(ctx context.Context, transactionNumber string, evaluationDate time.Time) (*model.ChargeBreakdown, error) {
	txn, err := s.getForPrecheck(ctx, transactionNumber)
	if err != nil {
		return nil, err
	}

	card, _, _, err := s.resolveForChain(ctx, txn, txn.Principal)
	if err != nil {
		return nil, err
	}

	due := ComputeCharges(txn.Principal, card, txn.MaturityDate, txn.GracePeriodDate, evaluationDate)
	return &model.ChargeBreakdown{
		InterestAmount: due.InterestAmount,
		PenaltyAmount:  due.PenaltyAmount,
		ServiceCharge:  card.ServiceCharge,
		TotalDue:       TotalDue(txn.Principal, due, card.ServiceCharge),
	}, nil
}

// List pages through transactions matching the filter.
func (s *LifecycleService) List(ctx context.Context, f model.TransactionFilter) ([]*model.Transaction, int64, error) {
	if f.Limit <= 0 || f.Limit > 100 {
		f.Limit = 20
	}
	if f.Offset < 0 {
		f.Offset = 0
	}
	return s.transactions.List(ctx, f)
}

// Chain returns every member of a ticket's tracking chain, oldest first.
// Any member's number resolves the whole chain.
func (s *LifecycleService) Chain(ctx context.Context, transactionNumber string) ([]*model.Transaction, error) {
	txn, err := s.getForPrecheck(ctx, transactionNumber)
	if err != nil {
		return nil, err
	}
	return s.transactions.GetChain(ctx, txn.TrackingNumber)
}

// Items pages through pawn items matching the filter.
func (s *LifecycleService) Items(ctx context.Context, f model.ItemFilter) ([]*model.PawnItem, int64, error) {
	if f.Limit <= 0 || f.Limit > 100 {
		f.Limit = 20
	}
	if f.Offset < 0 {
		f.Offset = 0
	}
	return s.items.List(ctx, f)
}

/* ------------------------------ internals ------------------------------ */

// precheckExtendable rejects chain-state violations before any write. The
// check repeats under lock inside the unit of work; state may have changed
// in between.
func (s *LifecycleService) precheckExtendable(ctx context.Context, number string) (*model.Transaction, error) {
	txn, err := s.getForPrecheck(ctx, number)
	if err != nil {
		return nil, err
	}
	if !txn.IsActive || !txn.Status.Extendable() {
		return nil, &ChainStateError{TransactionNumber: txn.TransactionNumber, Status: string(txn.Status)}
	}
	return txn, nil
}

func (s *LifecycleService) getForPrecheck(ctx context.Context, number string) (*model.Transaction, error) {
	txn, err := s.transactions.GetByNumber(ctx, number)
	if err != nil {
		if errors.Is(err, repository.ErrTransactionNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return txn, nil
}

// prepareExtension runs the read-only half of a chain extension: chain-state
// precheck, config load and rate resolution on the given principal basis.
func (s *LifecycleService) prepareExtension(ctx context.Context, number string, principalBasis decimal.Decimal) (*model.Transaction, model.RateCard, *model.LoanTerms, *model.Branch, error) {
	prev, err := s.precheckExtendable(ctx, number)
	if err != nil {
		return nil, model.RateCard{}, nil, nil, err
	}

	basis := principalBasis
	if basis.IsZero() {
		basis = prev.Principal
	}

	card, terms, branch, err := s.resolveForChain(ctx, prev, basis)
	if err != nil {
		return nil, model.RateCard{}, nil, nil, err
	}
	return prev, card, terms, branch, nil
}

// resolveForChain resolves rates using the category of the chain's pledged
// items (the head owns them).
func (s *LifecycleService) resolveForChain(ctx context.Context, txn *model.Transaction, principalBasis decimal.Decimal) (model.RateCard, *model.LoanTerms, *model.Branch, error) {
	terms, branch, err := s.loadTermsAndBranch(ctx, txn.BranchID)
	if err != nil {
		return model.RateCard{}, nil, nil, err
	}

	head, err := s.transactions.GetChainHead(ctx, txn.TrackingNumber)
	if err != nil {
		if errors.Is(err, repository.ErrTransactionNotFound) {
			return model.RateCard{}, nil, nil, ErrNotFound
		}
		return model.RateCard{}, nil, nil, err
	}

	items, err := s.items.ListByTransaction(ctx, head.ID)
	if err != nil {
		return model.RateCard{}, nil, nil, err
	}

	var categoryID int64
	top := money.Zero
	for _, item := range items {
		if item.AppraisedValue.GreaterThanOrEqual(top) {
			top = item.AppraisedValue
			categoryID = item.CategoryID
		}
	}

	card, err := s.rates.Resolve(ctx, categoryID, principalBasis)
	if err != nil {
		return model.RateCard{}, nil, nil, err
	}
	return card, terms, branch, nil
}

func (s *LifecycleService) loadTermsAndBranch(ctx context.Context, branchID int64) (*model.LoanTerms, *model.Branch, error) {
	terms, err := s.cfg.GetActiveLoanTerms(ctx)
	if err != nil {
		return nil, nil, fmt.Errorf("load loan terms: %w", err)
	}
	branch, err := s.cfg.GetBranch(ctx, branchID)
	if err != nil {
		if errors.Is(err, repository.ErrConfigNotFound) {
			return nil, nil, validationErrorf("unknown branch %d", branchID)
		}
		return nil, nil, err
	}
	return terms, branch, nil
}

// extend runs the write half of an extension as one unit of work: lock the
// predecessor, re-validate it is still the row the caller saw, create the
// new row plus its ticket, supersede the predecessor. Any failure rolls the
// whole thing back; no reader ever observes a half-applied chain.
func (s *LifecycleService) extend(ctx context.Context, prev *model.Transaction, txn *model.Transaction, branch *model.Branch, terms *model.LoanTerms, at time.Time) error {
	return s.transactions.WithinTransaction(ctx, func(ctx context.Context) error {
		locked, err := s.chain.LockActive(ctx, prev.TransactionNumber)
		if err != nil {
			return err
		}
		if locked.ID != prev.ID {
			return ErrChainConflict
		}

		if err := s.chain.ExtendChain(ctx, locked, txn, branch, terms, at); err != nil {
			return err
		}
		if _, err := s.transactions.Create(ctx, txn); err != nil {
			return err
		}
		_, err = s.tickets.Create(ctx, &model.PawnTicket{
			TransactionID: txn.ID,
			TicketNumber:  txn.TransactionNumber,
		})
		return err
	})
}

func (s *LifecycleService) enqueuePrint(ctx context.Context, txn *model.Transaction, requestedBy int64) {
	if s.printQueue == nil {
		return
	}
	job := model.TicketPrintJob{
		TicketNumber:      txn.TransactionNumber,
		TransactionNumber: txn.TransactionNumber,
		TransactionType:   txn.Type,
		BranchID:          txn.BranchID,
		RequestedBy:       requestedBy,
	}
	if _, err := s.printQueue.PublishJSON(ctx, job, map[string]string{"type": string(txn.Type)}); err != nil {
		logger.Warn("failed to enqueue ticket print job",
			"ticket_number", txn.TransactionNumber, "error", err)
	}
}

func (s *LifecycleService) result(txn *model.Transaction, breakdown model.ChargeBreakdown) *model.OperationResult {
	return &model.OperationResult{
		TransactionNumber:         txn.TransactionNumber,
		TrackingNumber:            txn.TrackingNumber,
		PreviousTransactionNumber: txn.PreviousTransactionNumber,
		TicketNumber:              txn.TransactionNumber,
		Principal:                 txn.Principal,
		Breakdown:                 breakdown,
		MaturityDate:              txn.MaturityDate,
		GracePeriodDate:           txn.GracePeriodDate,
		ExpiryDate:                txn.ExpiryDate,
	}
}

// dominantCategory picks the category of the highest-valued appraisal.
func dominantCategory(appraisals []*model.Appraisal) int64 {
	var categoryID int64
	top := money.Zero
	for _, a := range appraisals {
		if a.EstimatedValue.GreaterThanOrEqual(top) {
			top = a.EstimatedValue
			categoryID = a.CategoryID
		}
	}
	return categoryID
}

// itemShare splits the principal across items in proportion to appraised
// value.
func itemShare(principal, value, totalAppraised decimal.Decimal) decimal.Decimal {
	if totalAppraised.IsZero() {
		return money.Zero
	}
	return money.Round(principal.Mul(value).Div(totalAppraised))
}
