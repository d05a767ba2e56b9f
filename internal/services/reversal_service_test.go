package services

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/sajinavi2006/servicing-api/internal/config"
	"github.com/sajinavi2006/servicing-api/internal/jobs"
	"github.com/sajinavi2006/servicing-api/internal/models"
	"github.com/sajinavi2006/servicing-api/internal/repository"
)

type reversalFixture struct {
	accountRepo  *mockAccountRepo
	loanRepo     *mockLoanRepo
	paymentRepo  *mockPaymentRepo
	apRepo       *mockAccountPaymentRepo
	txRepo       *mockTransactionRepo
	walletRepo   *mockWalletRepo
	ptpRepo      *mockPTPRepo
	commRepo     *mockCommissionRepo
	collRepo     *mockCollectionRepo
	notifRepo    *mockNotificationRepo
	paybackRepo  *mockPaybackRepo
	svc          *ReversalService
}

func newReversalFixture() *reversalFixture {
	f := &reversalFixture{
		accountRepo: &mockAccountRepo{},
		loanRepo:    &mockLoanRepo{},
		paymentRepo: &mockPaymentRepo{},
		apRepo:      &mockAccountPaymentRepo{},
		txRepo:      &mockTransactionRepo{},
		walletRepo:  &mockWalletRepo{},
		ptpRepo:     &mockPTPRepo{},
		commRepo:    &mockCommissionRepo{},
		collRepo:    &mockCollectionRepo{},
		notifRepo:   &mockNotificationRepo{},
		paybackRepo: &mockPaybackRepo{},
	}

	repos := &repository.Repositories{
		Account:        f.accountRepo,
		Loan:           f.loanRepo,
		Payment:        f.paymentRepo,
		AccountPayment: f.apRepo,
		Transaction:    f.txRepo,
		Wallet:         f.walletRepo,
		PTP:            f.ptpRepo,
		Commission:     f.commRepo,
		Payback:        f.paybackRepo,
		Collection:     f.collRepo,
		Notification:   f.notifRepo,
		Tx:             passthroughTxManager{},
	}

	cfg := &config.Config{
		GracePeriodDays:        4,
		DueSoonDays:            3,
		CashbackCounterCeiling: 4,
		ProvenThreshold:        3000000,
	}

	cashbackSvc := NewCashbackService(f.walletRepo, f.accountRepo, f.loanRepo, cfg.CashbackCounterCeiling)
	recorder := NewReversalRecorder(f.paymentRepo, f.txRepo, f.loanRepo, f.commRepo, cashbackSvc, cfg.GracePeriodDays, cfg.DueSoonDays)
	aggregator := NewAccountPaymentService(f.apRepo, f.paymentRepo, f.accountRepo, cfg.GracePeriodDays, cfg.DueSoonDays)
	adjuster := NewCommissionPTPAdjuster(f.ptpRepo, f.commRepo, f.txRepo, f.apRepo)
	notificationSvc := NewNotificationService(f.notifRepo)
	emailSvc := NewEmailService(cfg)
	worker := jobs.NewWorker(1)

	f.svc = NewReversalService(repos, recorder, aggregator, adjuster, cashbackSvc, notificationSvc, emailSvc, worker, cfg)
	return f
}

func TestProcessReversalEndToEnd(t *testing.T) {
	ctx := context.Background()
	f := newReversalFixture()

	dueDate := time.Date(2026, 3, 10, 0, 0, 0, 0, time.UTC)
	apID := uint(3)

	original := &models.AccountTransaction{
		ID:                100,
		AccountID:         2,
		TransactionDate:   time.Date(2026, 3, 9, 0, 0, 0, 0, time.UTC),
		TransactionAmount: 30000,
		TransactionType:   models.TransactionTypePayment,
		CanReverse:        true,
	}
	f.txRepo.FindByIDFn = func(ctx context.Context, id uint) (*models.AccountTransaction, error) {
		return original, nil
	}
	f.txRepo.FindEventsFn = func(ctx context.Context, transactionID uint) ([]models.PaymentEvent, error) {
		return []models.PaymentEvent{
			{ID: 50, PaymentID: 11, EventType: models.EventTypePayment, EventPayment: 30000, EventDate: original.TransactionDate},
		}, nil
	}
	f.accountRepo.FindByIDFn = func(ctx context.Context, id uint) (*models.Account, error) {
		return &models.Account{ID: 2, CustomerID: 9, Status: models.AccountStatusActive}, nil
	}
	f.paymentRepo.FindByIDFn = func(ctx context.Context, id uint) (*models.Payment, error) {
		return &models.Payment{ID: 11, AccountPaymentID: &apID}, nil
	}
	f.apRepo.LockForUpdateFn = func(ctx context.Context, id uint) (*models.AccountPayment, error) {
		return &models.AccountPayment{
			ID:            apID,
			AccountID:     2,
			DueDate:       dueDate,
			PaidPrincipal: 30000,
			PaidAmount:    30000,
			Status:        models.PaymentStatusPaidOnTime,
		}, nil
	}
	paidDate := original.TransactionDate
	f.paymentRepo.FindByAccountPaymentFn = func(ctx context.Context, accountPaymentID uint) ([]models.Payment, error) {
		return []models.Payment{{
			ID:                   11,
			AccountPaymentID:     &apID,
			DueDate:              dueDate,
			InstallmentPrincipal: 30000,
			PaidPrincipal:        30000,
			PaidAmount:           30000,
			Status:               models.PaymentStatusPaidOnTime,
			PaidDate:             &paidDate,
			Loan:                 models.Loan{ID: 5, Status: models.LoanStatusActive},
		}}, nil
	}

	var nextEventID uint = 200
	var voidEvents []*models.PaymentEvent
	f.txRepo.CreateEventFn = func(ctx context.Context, e *models.PaymentEvent) error {
		nextEventID++
		e.ID = nextEventID
		voidEvents = append(voidEvents, e)
		return nil
	}
	var createdReversal *models.AccountTransaction
	f.txRepo.CreateFn = func(ctx context.Context, tr *models.AccountTransaction) error {
		tr.ID = 101
		createdReversal = tr
		return nil
	}
	var attachedEventIDs []uint
	var attachedTo uint
	f.txRepo.AttachEventsFn = func(ctx context.Context, eventIDs []uint, transactionID uint) error {
		attachedEventIDs = eventIDs
		attachedTo = transactionID
		return nil
	}
	var queueCleared []uint
	f.collRepo.DeleteQueueItemsFn = func(ctx context.Context, accountPaymentID uint) error {
		queueCleared = append(queueCleared, accountPaymentID)
		return nil
	}

	reversal, err := f.svc.ProcessAccountTransactionReversal(ctx, 100, "customer dispute", false)
	require.NoError(t, err)

	require.NotNil(t, createdReversal)
	assert.Equal(t, int64(-30000), reversal.TransactionAmount)
	assert.Equal(t, models.TransactionTypePaymentVoid, reversal.TransactionType)
	assert.Equal(t, int64(-30000), reversal.TowardsPrincipal)
	assert.Equal(t, int64(0), reversal.TowardsInterest)
	assert.False(t, reversal.CanReverse)

	// Original closed exactly once.
	assert.False(t, original.CanReverse)
	require.NotNil(t, original.ReversalTransactionID)
	assert.Equal(t, reversal.ID, *original.ReversalTransactionID)

	require.Len(t, voidEvents, 1)
	assert.Equal(t, int64(-30000), voidEvents[0].EventPayment)
	assert.Equal(t, []uint{voidEvents[0].ID}, attachedEventIDs)
	assert.Equal(t, reversal.ID, attachedTo)

	assert.Equal(t, []uint{apID}, queueCleared)
}

func TestProcessReversalAtMostOnce(t *testing.T) {
	ctx := context.Background()
	f := newReversalFixture()

	f.txRepo.FindByIDFn = func(ctx context.Context, id uint) (*models.AccountTransaction, error) {
		return &models.AccountTransaction{ID: 100, CanReverse: false}, nil
	}

	_, err := f.svc.ProcessAccountTransactionReversal(ctx, 100, "", false)
	assert.ErrorIs(t, err, ErrTransactionNotReversible)
}

func TestProcessReversalRequiresEvents(t *testing.T) {
	ctx := context.Background()
	f := newReversalFixture()

	f.txRepo.FindByIDFn = func(ctx context.Context, id uint) (*models.AccountTransaction, error) {
		return &models.AccountTransaction{ID: 100, CanReverse: true}, nil
	}
	f.txRepo.FindEventsFn = func(ctx context.Context, transactionID uint) ([]models.PaymentEvent, error) {
		return nil, nil
	}

	_, err := f.svc.ProcessAccountTransactionReversal(ctx, 100, "", false)
	assert.ErrorIs(t, err, ErrNoPaymentEvents)
}

func TestProcessLateFeeReversalRemovesUnpaidFee(t *testing.T) {
	ctx := context.Background()
	f := newReversalFixture()

	dueDate := time.Date(2026, 3, 10, 0, 0, 0, 0, time.UTC)
	apID := uint(3)

	original := &models.AccountTransaction{
		ID:                100,
		AccountID:         2,
		TransactionDate:   time.Date(2026, 3, 15, 0, 0, 0, 0, time.UTC),
		TransactionAmount: 5000,
		TransactionType:   models.TransactionTypeLateFee,
		CanReverse:        true,
	}
	f.txRepo.FindByIDFn = func(ctx context.Context, id uint) (*models.AccountTransaction, error) {
		return original, nil
	}
	f.txRepo.FindEventsFn = func(ctx context.Context, transactionID uint) ([]models.PaymentEvent, error) {
		return []models.PaymentEvent{
			{ID: 50, PaymentID: 11, EventType: models.EventTypeLateFee, EventPayment: 5000, EventDate: original.TransactionDate},
		}, nil
	}
	f.paymentRepo.FindByIDFn = func(ctx context.Context, id uint) (*models.Payment, error) {
		return &models.Payment{ID: 11, AccountPaymentID: &apID}, nil
	}
	f.apRepo.LockForUpdateFn = func(ctx context.Context, id uint) (*models.AccountPayment, error) {
		return &models.AccountPayment{
			ID:             apID,
			AccountID:      2,
			DueDate:        dueDate,
			DueAmount:      25000,
			LateFeeAmount:  5000,
			LateFeeApplied: 1,
			Status:         models.PaymentStatusLate,
		}, nil
	}
	f.paymentRepo.FindByAccountPaymentFn = func(ctx context.Context, accountPaymentID uint) ([]models.Payment, error) {
		// Fee entirely unpaid; 20000 of principal still owed besides it.
		return []models.Payment{{
			ID:                   11,
			AccountPaymentID:     &apID,
			DueDate:              dueDate,
			DueAmount:            25000,
			InstallmentPrincipal: 20000,
			LateFeeAmount:        5000,
			LateFeeApplied:       1,
			Status:               models.PaymentStatusLate,
		}}, nil
	}

	var persisted *models.Payment
	f.paymentRepo.UpdateFn = func(ctx context.Context, p *models.Payment) error {
		persisted = p
		return nil
	}
	f.txRepo.CreateFn = func(ctx context.Context, tr *models.AccountTransaction) error {
		tr.ID = 101
		return nil
	}

	reversal, err := f.svc.ProcessLateFeeReversal(ctx, 100, "goodwill waiver")
	require.NoError(t, err)

	assert.Equal(t, models.TransactionTypeLateFeeVoid, reversal.TransactionType)
	assert.Equal(t, int64(-5000), reversal.TransactionAmount)

	// Nothing of the fee was paid, so nothing flows through the waterfall;
	// the fee disappears from the books instead.
	require.NotNil(t, persisted)
	assert.Equal(t, int64(0), persisted.LateFeeAmount)
	assert.Equal(t, 0, persisted.LateFeeApplied)
	assert.Equal(t, int64(20000), persisted.DueAmount)
	assert.Equal(t, int64(0), reversal.TowardsLateFee)
}

func TestProcessLateFeeReversalRejectsOtherTypes(t *testing.T) {
	ctx := context.Background()
	f := newReversalFixture()

	f.txRepo.FindByIDFn = func(ctx context.Context, id uint) (*models.AccountTransaction, error) {
		return &models.AccountTransaction{ID: 100, TransactionType: models.TransactionTypePayment, CanReverse: true}, nil
	}

	_, err := f.svc.ProcessLateFeeReversal(ctx, 100, "")
	assert.ErrorIs(t, err, ErrInvalidState)
}

func TestSchedulePostCommitEffectsRollsBackLimitRelease(t *testing.T) {
	ctx := context.Background()
	f := newReversalFixture()

	account := &models.Account{ID: 2, CustomerID: 9}
	original := &models.AccountTransaction{ID: 100, TransactionAmount: 30000}
	// A customer-supplied note that happens to carry the refinancing prefix
	// must not change how the reversal is handled.
	note := "refinancing void: requested by customer"
	reversal := &models.AccountTransaction{ID: 101, ReversalNote: &note}

	loan := &models.Loan{ID: 5, EarlyLimitReleased: true}
	f.loanRepo.FindByIDFn = func(ctx context.Context, id uint) (*models.Loan, error) {
		return loan, nil
	}
	var updatedLoan *models.Loan
	f.loanRepo.UpdateFn = func(ctx context.Context, l *models.Loan) error {
		updatedLoan = l
		return nil
	}

	state := &reversalState{reopenedLoanIDs: []uint{5}}
	f.svc.schedulePostCommitEffects(account, original, reversal, false, state)

	// Rollback plus notification plus email.
	require.Len(t, state.postCommit, 3)
	require.NoError(t, state.postCommit[0](ctx))
	require.NotNil(t, updatedLoan)
	assert.False(t, updatedLoan.EarlyLimitReleased)

	// A genuine refinancing reversal keeps the released limit.
	refinanced := &reversalState{reopenedLoanIDs: []uint{5}}
	f.svc.schedulePostCommitEffects(account, original, reversal, true, refinanced)
	assert.Len(t, refinanced.postCommit, 2)
}
