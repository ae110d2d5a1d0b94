package services

import (
	"context"
	"testing"
	"time"

	"github.com/nmcorpuz/pawnshop-core/internal/model"
	"github.com/nmcorpuz/pawnshop-core/internal/repository"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type MockTransactionStore struct {
	mock.Mock
}

func (m *MockTransactionStore) Create(ctx context.Context, txn *model.Transaction) (*model.Transaction, error) {
	args := m.Called(ctx, txn)
	if args.Get(0) == nil {
		return txn, args.Error(1)
	}
	return args.Get(0).(*model.Transaction), args.Error(1)
}

func (m *MockTransactionStore) GetByID(ctx context.Context, id int64) (*model.Transaction, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Transaction), args.Error(1)
}

func (m *MockTransactionStore) GetByNumber(ctx context.Context, number string) (*model.Transaction, error) {
	args := m.Called(ctx, number)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Transaction), args.Error(1)
}

func (m *MockTransactionStore) GetChain(ctx context.Context, trackingNumber string) ([]*model.Transaction, error) {
	args := m.Called(ctx, trackingNumber)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*model.Transaction), args.Error(1)
}

func (m *MockTransactionStore) GetChainHead(ctx context.Context, trackingNumber string) (*model.Transaction, error) {
	args := m.Called(ctx, trackingNumber)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Transaction), args.Error(1)
}

func (m *MockTransactionStore) GetActiveForUpdate(ctx context.Context, number string) (*model.Transaction, error) {
	args := m.Called(ctx, number)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Transaction), args.Error(1)
}

func (m *MockTransactionStore) Supersede(ctx context.Context, id int64) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *MockTransactionStore) Terminate(ctx context.Context, id int64, status model.TransactionStatus, updates map[string]interface{}) error {
	args := m.Called(ctx, id, status, updates)
	return args.Error(0)
}

func (m *MockTransactionStore) List(ctx context.Context, f model.TransactionFilter) ([]*model.Transaction, int64, error) {
	args := m.Called(ctx, f)
	if args.Get(0) == nil {
		return nil, args.Get(1).(int64), args.Error(2)
	}
	return args.Get(0).([]*model.Transaction), args.Get(1).(int64), args.Error(2)
}

func (m *MockTransactionStore) WithinTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	args := m.Called(ctx, fn)
	if args.Error(0) != nil {
		return args.Error(0)
	}
	return fn(ctx)
}

type MockTicketStore struct {
	mock.Mock
}

func (m *MockTicketStore) Create(ctx context.Context, ticket *model.PawnTicket) (*model.PawnTicket, error) {
	args := m.Called(ctx, ticket)
	if args.Get(0) == nil {
		return ticket, args.Error(1)
	}
	return args.Get(0).(*model.PawnTicket), args.Error(1)
}

type MockItemStore struct {
	mock.Mock
}

func (m *MockItemStore) Create(ctx context.Context, item *model.PawnItem) (*model.PawnItem, error) {
	args := m.Called(ctx, item)
	if args.Get(0) == nil {
		return item, args.Error(1)
	}
	return args.Get(0).(*model.PawnItem), args.Error(1)
}

func (m *MockItemStore) GetByID(ctx context.Context, id int64) (*model.PawnItem, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.PawnItem), args.Error(1)
}

func (m *MockItemStore) GetByIDForUpdate(ctx context.Context, id int64) (*model.PawnItem, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.PawnItem), args.Error(1)
}

func (m *MockItemStore) ListByTransaction(ctx context.Context, transactionID int64) ([]*model.PawnItem, error) {
	args := m.Called(ctx, transactionID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*model.PawnItem), args.Error(1)
}

func (m *MockItemStore) List(ctx context.Context, f model.ItemFilter) ([]*model.PawnItem, int64, error) {
	args := m.Called(ctx, f)
	if args.Get(0) == nil {
		return nil, args.Get(1).(int64), args.Error(2)
	}
	return args.Get(0).([]*model.PawnItem), args.Get(1).(int64), args.Error(2)
}

func (m *MockItemStore) RecordSale(ctx context.Context, id int64, fromExpected model.ItemStatus, buyerName string, discount, finalPrice, receivedAmount decimal.Decimal, soldAt time.Time) error {
	args := m.Called(ctx, id, fromExpected, buyerName, discount, finalPrice, receivedAmount, soldAt)
	return args.Error(0)
}

func (m *MockItemStore) Transition(ctx context.Context, id int64, fromExpected, to model.ItemStatus) error {
	args := m.Called(ctx, id, fromExpected, to)
	return args.Error(0)
}

type MockAppraisalStore struct {
	mock.Mock
}

func (m *MockAppraisalStore) GetByIDs(ctx context.Context, ids []int64) ([]*model.Appraisal, error) {
	args := m.Called(ctx, ids)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*model.Appraisal), args.Error(1)
}

func (m *MockAppraisalStore) Consume(ctx context.Context, id int64) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

type MockPawnerStore struct {
	mock.Mock
}

func (m *MockPawnerStore) GetByID(ctx context.Context, id int64) (*model.Pawner, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Pawner), args.Error(1)
}

type MockSequenceAllocator struct {
	mock.Mock
}

func (m *MockSequenceAllocator) Next(ctx context.Context, branchID int64, docType, period string) (int64, error) {
	args := m.Called(ctx, branchID, docType, period)
	return args.Get(0).(int64), args.Error(1)
}

type lifecycleMocks struct {
	transactions *MockTransactionStore
	tickets      *MockTicketStore
	items        *MockItemStore
	appraisals   *MockAppraisalStore
	pawners      *MockPawnerStore
	cfg          *MockRateConfigReader
	sequences    *MockSequenceAllocator
}

func newLifecycleService() (*LifecycleService, *lifecycleMocks) {
	m := &lifecycleMocks{
		transactions: new(MockTransactionStore),
		tickets:      new(MockTicketStore),
		items:        new(MockItemStore),
		appraisals:   new(MockAppraisalStore),
		pawners:      new(MockPawnerStore),
		cfg:          new(MockRateConfigReader),
		sequences:    new(MockSequenceAllocator),
	}
	rates := NewRateResolver(m.cfg, StandardDefaultRates())
	chain := NewChainManager(m.transactions, m.sequences)
	itemStatus := NewItemStatusManager(m.items)
	svc := NewLifecycleService(
		m.transactions, m.tickets, m.items, m.appraisals, m.pawners,
		m.cfg, rates, chain, itemStatus, nil,
	)
	return svc, m
}

func (m *lifecycleMocks) expectConfig() {
	m.cfg.On("GetActiveLoanTerms", mock.Anything).Return(&model.LoanTerms{
		ID: 1, TermMonths: 1, GraceDays: 3, ExpiryDays: 90,
		MaxLoanRatio: dec("0.8"), TicketPrefix: "PT", ResetPeriod: "monthly",
	}, nil)
	m.cfg.On("GetBranch", mock.Anything, int64(1)).Return(&model.Branch{ID: 1, Code: "MN"}, nil)
}

func (m *lifecycleMocks) expectRates() {
	m.cfg.On("GetCategory", mock.Anything, int64(1)).Return(&model.ItemCategory{
		ID: 1, InterestRate: dec("0.06"),
	}, nil)
	m.cfg.On("GetActivePenaltyConfig", mock.Anything).Return(&model.PenaltyConfig{Rate: dec("0.02")}, nil)
	m.cfg.On("GetActiveServiceChargeConfig", mock.Anything).Return(&model.ServiceChargeConfig{
		Method: model.ServiceChargeMethodFixed, FixedAmount: dec("50"),
	}, nil)
}

func activeLoan(number string) *model.Transaction {
	now := time.Now()
	return &model.Transaction{
		ID:                1,
		TransactionNumber: number,
		TrackingNumber:    number,
		PawnerID:          1,
		BranchID:          1,
		Type:              model.TransactionTypeNewLoan,
		Status:            model.TransactionStatusActive,
		IsActive:          true,
		Principal:         dec("1000"),
		InterestRate:      dec("0.06"),
		GrantedDate:       now,
		MaturityDate:      now.AddDate(0, 1, 0),
		GracePeriodDate:   now.AddDate(0, 1, 3),
		ExpiryDate:        now.AddDate(0, 1, 90),
	}
}

func TestLifecycleService_NewLoan(t *testing.T) {
	ctx := context.Background()

	t.Run("rejects request without appraisals", func(t *testing.T) {
		svc, _ := newLifecycleService()

		res, err := svc.NewLoan(ctx, model.NewLoanRequest{
			PawnerID: 1, BranchID: 1, Principal: 1000,
		})
		assert.Nil(t, res)
		var verr *ValidationError
		require.ErrorAs(t, err, &verr)
	})

	t.Run("unknown pawner", func(t *testing.T) {
		svc, m := newLifecycleService()
		m.pawners.On("GetByID", ctx, int64(99)).Return(nil, repository.ErrPawnerNotFound)

		res, err := svc.NewLoan(ctx, model.NewLoanRequest{
			PawnerID: 99, BranchID: 1, AppraisalIDs: []int64{1}, Principal: 1000,
		})
		assert.Nil(t, res)
		assert.ErrorIs(t, err, ErrNotFound)
	})

	t.Run("rejects pending appraisal", func(t *testing.T) {
		svc, m := newLifecycleService()
		m.pawners.On("GetByID", ctx, int64(1)).Return(&model.Pawner{ID: 1}, nil)
		m.expectConfig()
		m.appraisals.On("GetByIDs", ctx, []int64{1}).Return([]*model.Appraisal{
			{ID: 1, CategoryID: 1, EstimatedValue: dec("2000"), Status: model.AppraisalStatusPending},
		}, nil)

		res, err := svc.NewLoan(ctx, model.NewLoanRequest{
			PawnerID: 1, BranchID: 1, AppraisalIDs: []int64{1}, Principal: 1000,
		})
		assert.Nil(t, res)
		var verr *ValidationError
		require.ErrorAs(t, err, &verr)
		assert.Contains(t, verr.Msg, "not completed")
	})

	t.Run("rejects principal above the loan ratio", func(t *testing.T) {
		svc, m := newLifecycleService()
		m.pawners.On("GetByID", ctx, int64(1)).Return(&model.Pawner{ID: 1}, nil)
		m.expectConfig()
		m.appraisals.On("GetByIDs", ctx, []int64{1}).Return([]*model.Appraisal{
			{ID: 1, CategoryID: 1, EstimatedValue: dec("1000"), Status: model.AppraisalStatusCompleted},
		}, nil)

		res, err := svc.NewLoan(ctx, model.NewLoanRequest{
			PawnerID: 1, BranchID: 1, AppraisalIDs: []int64{1}, Principal: 900,
		})
		assert.Nil(t, res)
		var verr *ValidationError
		require.ErrorAs(t, err, &verr)
		assert.Contains(t, verr.Msg, "exceeds maximum loanable amount")
	})

	t.Run("happy path creates transaction, items and ticket atomically", func(t *testing.T) {
		svc, m := newLifecycleService()
		m.pawners.On("GetByID", ctx, int64(1)).Return(&model.Pawner{ID: 1}, nil)
		m.expectConfig()
		m.expectRates()
		m.appraisals.On("GetByIDs", ctx, []int64{1}).Return([]*model.Appraisal{
			{ID: 1, CategoryID: 1, EstimatedValue: dec("2000"), Status: model.AppraisalStatusCompleted},
		}, nil)
		m.sequences.On("Next", mock.Anything, int64(1), mock.Anything, mock.Anything).Return(int64(1), nil)
		m.transactions.On("WithinTransaction", ctx, mock.Anything).Return(nil)
		m.transactions.On("Create", mock.Anything, mock.Anything).Return(nil, nil)
		m.appraisals.On("Consume", mock.Anything, int64(1)).Return(nil)
		m.items.On("Create", mock.Anything, mock.Anything).Return(nil, nil)
		m.tickets.On("Create", mock.Anything, mock.Anything).Return(nil, nil)

		res, err := svc.NewLoan(ctx, model.NewLoanRequest{
			PawnerID: 1, BranchID: 1, AppraisalIDs: []int64{1}, Principal: 1000,
		})
		require.NoError(t, err)
		assert.NotEmpty(t, res.TransactionNumber)
		assert.Equal(t, res.TransactionNumber, res.TrackingNumber)
		assert.Nil(t, res.PreviousTransactionNumber)
		assert.True(t, res.Breakdown.InterestAmount.Equal(dec("60")))
		assert.True(t, res.Breakdown.ServiceCharge.Equal(dec("50")))
		assert.True(t, res.Breakdown.TotalDue.Equal(dec("1110")))

		m.transactions.AssertExpectations(t)
		m.appraisals.AssertExpectations(t)
		m.items.AssertExpectations(t)
		m.tickets.AssertExpectations(t)
	})
}

func TestLifecycleService_ChainStatePrecheck(t *testing.T) {
	ctx := context.Background()

	t.Run("additional loan on superseded member", func(t *testing.T) {
		svc, m := newLifecycleService()
		stale := activeLoan("PTMN-202601-000001")
		stale.Status = model.TransactionStatusSuperseded
		stale.IsActive = false
		m.transactions.On("GetByNumber", ctx, stale.TransactionNumber).Return(stale, nil)

		res, err := svc.AdditionalLoan(ctx, model.AdditionalLoanRequest{
			TransactionNumber: stale.TransactionNumber, AdditionalAmount: 500,
		})
		assert.Nil(t, res)
		var cerr *ChainStateError
		require.ErrorAs(t, err, &cerr)
		assert.Equal(t, stale.TransactionNumber, cerr.TransactionNumber)
		assert.Equal(t, string(model.TransactionStatusSuperseded), cerr.Status)
	})

	t.Run("renewal on expired member", func(t *testing.T) {
		svc, m := newLifecycleService()
		expired := activeLoan("PTMN-202601-000002")
		expired.Status = model.TransactionStatusExpired
		m.transactions.On("GetByNumber", ctx, expired.TransactionNumber).Return(expired, nil)

		res, err := svc.Renewal(ctx, model.RenewalRequest{
			TransactionNumber: expired.TransactionNumber,
		})
		assert.Nil(t, res)
		var cerr *ChainStateError
		require.ErrorAs(t, err, &cerr)
	})

	t.Run("unknown number", func(t *testing.T) {
		svc, m := newLifecycleService()
		m.transactions.On("GetByNumber", ctx, "PTMN-999999-000001").Return(nil, repository.ErrTransactionNotFound)

		_, err := svc.ComputeDue(ctx, "PTMN-999999-000001", time.Now())
		assert.ErrorIs(t, err, ErrNotFound)
	})
}

func TestLifecycleService_PartialPayment_FullPrincipalRejected(t *testing.T) {
	ctx := context.Background()
	svc, m := newLifecycleService()
	loan := activeLoan("PTMN-202601-000003")
	m.transactions.On("GetByNumber", ctx, loan.TransactionNumber).Return(loan, nil)

	res, err := svc.PartialPayment(ctx, model.PartialPaymentRequest{
		TransactionNumber: loan.TransactionNumber,
		PartialPayment:    1000,
	})
	assert.Nil(t, res)
	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Contains(t, verr.Msg, "use redemption instead")
}

func TestLifecycleService_Redeem_Underpayment(t *testing.T) {
	ctx := context.Background()
	svc, m := newLifecycleService()
	loan := activeLoan("PTMN-202601-000004")

	m.transactions.On("GetByNumber", ctx, loan.TransactionNumber).Return(loan, nil)
	m.expectConfig()
	m.expectRates()
	m.transactions.On("GetChainHead", mock.Anything, loan.TrackingNumber).Return(loan, nil)
	m.items.On("ListByTransaction", mock.Anything, loan.ID).Return([]*model.PawnItem{
		{ID: 1, TransactionID: loan.ID, CategoryID: 1, AppraisedValue: dec("2000")},
	}, nil)

	// Within grace the due is principal plus the service charge: 1050.
	res, err := svc.Redeem(ctx, model.RedeemRequest{
		TransactionNumber: loan.TransactionNumber,
		AmountPaid:        1000,
	})
	assert.Nil(t, res)
	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Contains(t, verr.Msg, "requires full payment")
}
