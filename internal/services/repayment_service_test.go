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
	"gorm.io/gorm"
)

type repaymentFixture struct {
	accountRepo *mockAccountRepo
	loanRepo    *mockLoanRepo
	paymentRepo *mockPaymentRepo
	apRepo      *mockAccountPaymentRepo
	txRepo      *mockTransactionRepo
	walletRepo  *mockWalletRepo
	paybackRepo *mockPaybackRepo
	svc         *RepaymentService
}

func newRepaymentFixture() *repaymentFixture {
	f := &repaymentFixture{
		accountRepo: &mockAccountRepo{},
		loanRepo:    &mockLoanRepo{},
		paymentRepo: &mockPaymentRepo{},
		apRepo:      &mockAccountPaymentRepo{},
		txRepo:      &mockTransactionRepo{},
		walletRepo:  &mockWalletRepo{},
		paybackRepo: &mockPaybackRepo{},
	}

	repos := &repository.Repositories{
		Account:        f.accountRepo,
		Loan:           f.loanRepo,
		Payment:        f.paymentRepo,
		AccountPayment: f.apRepo,
		Transaction:    f.txRepo,
		Wallet:         f.walletRepo,
		Payback:        f.paybackRepo,
		Tx:             passthroughTxManager{},
	}

	cfg := &config.Config{
		GracePeriodDays:        4,
		DueSoonDays:            3,
		CashbackCounterCeiling: 4,
		ProvenThreshold:        3000000,
	}

	cashbackSvc := NewCashbackService(f.walletRepo, f.accountRepo, f.loanRepo, cfg.CashbackCounterCeiling)
	f.svc = NewRepaymentService(repos, cashbackSvc, jobs.NewWorker(1), cfg)
	return f
}

func TestProcessRepaymentRejectsProcessedPayback(t *testing.T) {
	f := newRepaymentFixture()

	payback := &models.PaybackTransaction{ID: 1, AccountID: 2, Amount: 10000, IsProcessed: true}
	_, err := f.svc.ProcessRepayment(context.Background(), payback, "", false)
	assert.ErrorIs(t, err, ErrInvalidState)
}

func TestProcessRepaymentRequiresUnpaidObligation(t *testing.T) {
	f := newRepaymentFixture()

	f.apRepo.FindOldestUnpaidFn = func(ctx context.Context, accountID uint) (*models.AccountPayment, error) {
		return nil, gorm.ErrRecordNotFound
	}

	payback := &models.PaybackTransaction{ID: 1, AccountID: 2, Amount: 10000, TransactionDate: time.Now()}
	_, err := f.svc.ProcessRepayment(context.Background(), payback, "", false)
	assert.ErrorIs(t, err, ErrNoDestinationObligation)
}

func TestProcessRepaymentSpansObligations(t *testing.T) {
	f := newRepaymentFixture()
	paidDate := time.Date(2026, 4, 1, 0, 0, 0, 0, time.UTC)

	// Oldest obligation owes late fee, interest and principal; the next one
	// owes principal only and is not yet due.
	apOld := &models.AccountPayment{
		ID:            10,
		AccountID:     2,
		DueDate:       time.Date(2026, 3, 10, 0, 0, 0, 0, time.UTC),
		DueAmount:     45000,
		LateFeeAmount: 5000,
		Status:        models.PaymentStatusLate,
	}
	apNext := &models.AccountPayment{
		ID:        20,
		AccountID: 2,
		DueDate:   time.Date(2026, 4, 10, 0, 0, 0, 0, time.UTC),
		DueAmount: 50000,
		Status:    models.PaymentStatusNotDue,
	}
	oldest := []*models.AccountPayment{apOld, apNext}
	f.apRepo.FindOldestUnpaidFn = func(ctx context.Context, accountID uint) (*models.AccountPayment, error) {
		if len(oldest) == 0 {
			return nil, gorm.ErrRecordNotFound
		}
		ap := oldest[0]
		oldest = oldest[1:]
		return ap, nil
	}
	f.apRepo.LockForUpdateFn = func(ctx context.Context, id uint) (*models.AccountPayment, error) {
		if id == apOld.ID {
			return apOld, nil
		}
		return apNext, nil
	}

	p1 := models.Payment{
		ID:                   11,
		AccountPaymentID:     &apOld.ID,
		DueDate:              apOld.DueDate,
		DueAmount:            45000,
		InstallmentPrincipal: 30000,
		InstallmentInterest:  10000,
		LateFeeAmount:        5000,
		Status:               models.PaymentStatusLate,
		Loan:                 models.Loan{ID: 7, Status: models.LoanStatusActive},
	}
	p2 := models.Payment{
		ID:                   21,
		AccountPaymentID:     &apNext.ID,
		DueDate:              apNext.DueDate,
		DueAmount:            50000,
		InstallmentPrincipal: 50000,
		Status:               models.PaymentStatusNotDue,
		Loan:                 models.Loan{ID: 8, Status: models.LoanStatusActive},
	}
	f.paymentRepo.FindByAccountPaymentFn = func(ctx context.Context, accountPaymentID uint) ([]models.Payment, error) {
		if accountPaymentID == apOld.ID {
			return []models.Payment{p1}, nil
		}
		return []models.Payment{p2}, nil
	}

	var events []*models.PaymentEvent
	var nextEventID uint = 300
	f.txRepo.CreateEventFn = func(ctx context.Context, e *models.PaymentEvent) error {
		nextEventID++
		e.ID = nextEventID
		events = append(events, e)
		return nil
	}
	f.txRepo.CreateFn = func(ctx context.Context, tr *models.AccountTransaction) error {
		tr.ID = 400
		return nil
	}
	var attachedEventIDs []uint
	f.txRepo.AttachEventsFn = func(ctx context.Context, eventIDs []uint, transactionID uint) error {
		attachedEventIDs = eventIDs
		return nil
	}
	var closedLoans []uint
	f.loanRepo.UpdateFn = func(ctx context.Context, loan *models.Loan) error {
		if loan.Status == models.LoanStatusPaidOff {
			closedLoans = append(closedLoans, loan.ID)
		}
		return nil
	}

	payback := &models.PaybackTransaction{ID: 1, AccountID: 2, Amount: 60000, TransactionDate: paidDate}
	transaction, err := f.svc.ProcessRepayment(context.Background(), payback, "", false)
	require.NoError(t, err)

	assert.Equal(t, int64(60000), transaction.TransactionAmount)
	assert.Equal(t, models.TransactionTypePayment, transaction.TransactionType)
	assert.Equal(t, int64(5000), transaction.TowardsLateFee)
	assert.Equal(t, int64(10000), transaction.TowardsInterest)
	assert.Equal(t, int64(45000), transaction.TowardsPrincipal)
	assert.True(t, transaction.CanReverse)
	require.NotNil(t, transaction.PaybackTransactionID)
	assert.Equal(t, payback.ID, *transaction.PaybackTransactionID)

	require.Len(t, events, 2)
	assert.Equal(t, int64(45000), events[0].EventPayment)
	assert.Equal(t, int64(0), events[0].EventDueAmount)
	assert.True(t, events[0].CanReverse)
	assert.Equal(t, int64(15000), events[1].EventPayment)
	assert.Equal(t, int64(35000), events[1].EventDueAmount)
	assert.Equal(t, []uint{events[0].ID, events[1].ID}, attachedEventIDs)

	// First obligation fully settled, missed the grace window.
	assert.Equal(t, models.PaymentStatusPaidLate, apOld.Status)
	require.NotNil(t, apOld.PaidDate)
	assert.Equal(t, int64(0), apOld.DueAmount)
	assert.Equal(t, int64(45000), apOld.PaidAmount)

	// Second obligation only partially paid, keeps its unpaid grade.
	assert.Equal(t, models.PaymentStatusNotDue, apNext.Status)
	assert.Equal(t, int64(35000), apNext.DueAmount)
	assert.Equal(t, int64(15000), apNext.PaidAmount)

	// Its installment was the loan's only one, so the loan closed.
	assert.Equal(t, []uint{uint(7)}, closedLoans)

	assert.True(t, payback.IsProcessed)
}

func TestProcessRepaymentFromWallet(t *testing.T) {
	f := newRepaymentFixture()
	paidDate := time.Date(2026, 4, 1, 0, 0, 0, 0, time.UTC)

	customer := &models.Customer{ID: 9, WalletBalanceAccruing: 25000, WalletBalanceAvailable: 25000}
	f.accountRepo.FindByIDFn = func(ctx context.Context, id uint) (*models.Account, error) {
		return &models.Account{ID: 2, CustomerID: 9}, nil
	}
	f.accountRepo.FindCustomerFn = func(ctx context.Context, id uint) (*models.Customer, error) {
		return customer, nil
	}

	ap := &models.AccountPayment{
		ID:        10,
		AccountID: 2,
		DueDate:   time.Date(2026, 4, 10, 0, 0, 0, 0, time.UTC),
		DueAmount: 10000,
		Status:    models.PaymentStatusNotDue,
	}
	served := false
	f.apRepo.FindOldestUnpaidFn = func(ctx context.Context, accountID uint) (*models.AccountPayment, error) {
		if served {
			return nil, gorm.ErrRecordNotFound
		}
		served = true
		return ap, nil
	}
	f.apRepo.LockForUpdateFn = func(ctx context.Context, id uint) (*models.AccountPayment, error) {
		return ap, nil
	}
	f.paymentRepo.FindByAccountPaymentFn = func(ctx context.Context, accountPaymentID uint) ([]models.Payment, error) {
		return []models.Payment{{
			ID:                   11,
			AccountPaymentID:     &ap.ID,
			DueDate:              ap.DueDate,
			DueAmount:            10000,
			InstallmentPrincipal: 10000,
			Status:               models.PaymentStatusNotDue,
			Loan:                 models.Loan{ID: 7, Status: models.LoanStatusActive},
		}}, nil
	}

	var walletRows []*models.CustomerWalletHistory
	f.walletRepo.CreateWalletHistoryFn = func(ctx context.Context, history *models.CustomerWalletHistory) error {
		walletRows = append(walletRows, history)
		return nil
	}

	payback := &models.PaybackTransaction{ID: 1, AccountID: 2, Amount: 10000, TransactionDate: paidDate, PaybackService: models.PaybackServiceWallet}
	transaction, err := f.svc.ProcessRepayment(context.Background(), payback, "", true)
	require.NoError(t, err)

	assert.Equal(t, models.TransactionTypeCustomerWallet, transaction.TransactionType)

	require.NotEmpty(t, walletRows)
	debit := walletRows[0]
	assert.Equal(t, models.WalletReasonUsedOnPayment, debit.ChangeReason)
	assert.Equal(t, int64(25000), debit.WalletBalanceAccruingOld)
	assert.Equal(t, int64(15000), debit.WalletBalanceAccruing)
	assert.Equal(t, int64(15000), debit.WalletBalanceAvailable)
}

func TestProcessRepaymentEarnsCashbackOnTime(t *testing.T) {
	f := newRepaymentFixture()
	paidDate := time.Date(2026, 4, 1, 0, 0, 0, 0, time.UTC)

	f.accountRepo.FindByIDFn = func(ctx context.Context, id uint) (*models.Account, error) {
		return &models.Account{ID: 2, CustomerID: 9, CashbackNewScheme: true}, nil
	}

	ap := &models.AccountPayment{
		ID:        10,
		AccountID: 2,
		DueDate:   time.Date(2026, 4, 10, 0, 0, 0, 0, time.UTC),
		DueAmount: 30000,
		Status:    models.PaymentStatusNotDue,
	}
	served := false
	f.apRepo.FindOldestUnpaidFn = func(ctx context.Context, accountID uint) (*models.AccountPayment, error) {
		if served {
			return nil, gorm.ErrRecordNotFound
		}
		served = true
		return ap, nil
	}
	f.apRepo.LockForUpdateFn = func(ctx context.Context, id uint) (*models.AccountPayment, error) {
		return ap, nil
	}
	var paid *models.Payment
	f.paymentRepo.FindByAccountPaymentFn = func(ctx context.Context, accountPaymentID uint) ([]models.Payment, error) {
		return []models.Payment{{
			ID:                   11,
			AccountPaymentID:     &ap.ID,
			DueDate:              ap.DueDate,
			DueAmount:            30000,
			InstallmentPrincipal: 30000,
			Status:               models.PaymentStatusNotDue,
			Loan:                 models.Loan{ID: 7, Status: models.LoanStatusActive},
		}}, nil
	}
	f.paymentRepo.UpdateFn = func(ctx context.Context, p *models.Payment) error {
		paid = p
		return nil
	}
	// A later installment keeps the loan open.
	f.paymentRepo.FindByLoanFn = func(ctx context.Context, loanID uint) ([]models.Payment, error) {
		return []models.Payment{{ID: 12, InstallmentPrincipal: 30000}}, nil
	}

	var counterRows []*models.CashbackCounterHistory
	f.walletRepo.CreateCounterHistoryFn = func(ctx context.Context, history *models.CashbackCounterHistory) error {
		counterRows = append(counterRows, history)
		return nil
	}
	var walletRows []*models.CustomerWalletHistory
	f.walletRepo.CreateWalletHistoryFn = func(ctx context.Context, history *models.CustomerWalletHistory) error {
		walletRows = append(walletRows, history)
		return nil
	}

	payback := &models.PaybackTransaction{ID: 1, AccountID: 2, Amount: 30000, TransactionDate: paidDate}
	_, err := f.svc.ProcessRepayment(context.Background(), payback, "", false)
	require.NoError(t, err)

	require.NotNil(t, paid)
	assert.Equal(t, models.PaymentStatusPaidOnTime, paid.Status)

	// First on-time payment: counter starts at 1, tier pays 1 percent.
	require.Len(t, counterRows, 1)
	assert.Equal(t, 1, counterRows[0].Counter)
	assert.Equal(t, models.WalletReasonCashbackEarned, counterRows[0].ChangeReason)

	require.Len(t, walletRows, 1)
	assert.Equal(t, models.WalletReasonCashbackEarned, walletRows[0].ChangeReason)
	assert.Equal(t, int64(300), walletRows[0].WalletBalanceAccruing)
	assert.Equal(t, int64(300), paid.CashbackEarned)
	assert.Equal(t, int64(300), paid.Loan.CashbackEarnedTotal)
}

func TestProcessRepaymentStepsCounterAcrossPayments(t *testing.T) {
	f := newRepaymentFixture()
	paidDate := time.Date(2026, 4, 1, 0, 0, 0, 0, time.UTC)

	f.accountRepo.FindByIDFn = func(ctx context.Context, id uint) (*models.Account, error) {
		return &models.Account{ID: 2, CustomerID: 9, CashbackNewScheme: true}, nil
	}

	ap1 := &models.AccountPayment{
		ID:        10,
		AccountID: 2,
		DueDate:   time.Date(2026, 4, 10, 0, 0, 0, 0, time.UTC),
		DueAmount: 30000,
		Status:    models.PaymentStatusNotDue,
	}
	ap2 := &models.AccountPayment{
		ID:        20,
		AccountID: 2,
		DueDate:   time.Date(2026, 5, 10, 0, 0, 0, 0, time.UTC),
		DueAmount: 30000,
		Status:    models.PaymentStatusNotDue,
	}
	queue := []*models.AccountPayment{ap1, ap2}
	f.apRepo.FindOldestUnpaidFn = func(ctx context.Context, accountID uint) (*models.AccountPayment, error) {
		if len(queue) == 0 {
			return nil, gorm.ErrRecordNotFound
		}
		ap := queue[0]
		queue = queue[1:]
		return ap, nil
	}
	f.apRepo.LockForUpdateFn = func(ctx context.Context, id uint) (*models.AccountPayment, error) {
		if id == ap1.ID {
			return ap1, nil
		}
		return ap2, nil
	}
	f.paymentRepo.FindByAccountPaymentFn = func(ctx context.Context, accountPaymentID uint) ([]models.Payment, error) {
		if accountPaymentID == ap1.ID {
			return []models.Payment{{
				ID:                   11,
				AccountPaymentID:     &ap1.ID,
				DueDate:              ap1.DueDate,
				DueAmount:            30000,
				InstallmentPrincipal: 30000,
				Status:               models.PaymentStatusNotDue,
				Loan:                 models.Loan{ID: 7, Status: models.LoanStatusActive},
			}}, nil
		}
		return []models.Payment{{
			ID:                   21,
			AccountPaymentID:     &ap2.ID,
			DueDate:              ap2.DueDate,
			DueAmount:            30000,
			InstallmentPrincipal: 30000,
			Status:               models.PaymentStatusNotDue,
			Loan:                 models.Loan{ID: 7, Status: models.LoanStatusActive},
		}}, nil
	}
	// A later installment keeps the loan open.
	f.paymentRepo.FindByLoanFn = func(ctx context.Context, loanID uint) ([]models.Payment, error) {
		return []models.Payment{{ID: 99, InstallmentPrincipal: 30000}}, nil
	}

	// The counter seed is the account's latest entry, whichever payment
	// produced it.
	var counterRows []*models.CashbackCounterHistory
	f.walletRepo.CreateCounterHistoryFn = func(ctx context.Context, history *models.CashbackCounterHistory) error {
		counterRows = append(counterRows, history)
		return nil
	}
	f.walletRepo.LastCounterByAccountFn = func(ctx context.Context, accountID uint) (*models.CashbackCounterHistory, error) {
		if len(counterRows) == 0 {
			return nil, nil
		}
		return counterRows[len(counterRows)-1], nil
	}

	payback1 := &models.PaybackTransaction{ID: 1, AccountID: 2, Amount: 30000, TransactionDate: paidDate}
	_, err := f.svc.ProcessRepayment(context.Background(), payback1, "", false)
	require.NoError(t, err)

	payback2 := &models.PaybackTransaction{ID: 2, AccountID: 2, Amount: 30000, TransactionDate: paidDate}
	_, err = f.svc.ProcessRepayment(context.Background(), payback2, "", false)
	require.NoError(t, err)

	require.Len(t, counterRows, 2)
	assert.Equal(t, 1, counterRows[0].Counter)
	assert.Equal(t, 2, counterRows[1].Counter)
}

func TestProcessRepaymentPromotesCashbackAtPayoff(t *testing.T) {
	f := newRepaymentFixture()
	paidDate := time.Date(2026, 4, 1, 0, 0, 0, 0, time.UTC)

	customer := &models.Customer{ID: 9}
	f.accountRepo.FindByIDFn = func(ctx context.Context, id uint) (*models.Account, error) {
		return &models.Account{ID: 2, CustomerID: 9, CashbackNewScheme: true}, nil
	}
	f.accountRepo.FindCustomerFn = func(ctx context.Context, id uint) (*models.Customer, error) {
		return customer, nil
	}

	ap := &models.AccountPayment{
		ID:        10,
		AccountID: 2,
		DueDate:   time.Date(2026, 4, 10, 0, 0, 0, 0, time.UTC),
		DueAmount: 30000,
		Status:    models.PaymentStatusNotDue,
	}
	served := false
	f.apRepo.FindOldestUnpaidFn = func(ctx context.Context, accountID uint) (*models.AccountPayment, error) {
		if served {
			return nil, gorm.ErrRecordNotFound
		}
		served = true
		return ap, nil
	}
	f.apRepo.LockForUpdateFn = func(ctx context.Context, id uint) (*models.AccountPayment, error) {
		return ap, nil
	}
	f.paymentRepo.FindByAccountPaymentFn = func(ctx context.Context, accountPaymentID uint) ([]models.Payment, error) {
		return []models.Payment{{
			ID:                   11,
			AccountPaymentID:     &ap.ID,
			DueDate:              ap.DueDate,
			DueAmount:            30000,
			InstallmentPrincipal: 30000,
			Status:               models.PaymentStatusNotDue,
			Loan:                 models.Loan{ID: 7, Status: models.LoanStatusActive},
		}}, nil
	}

	var closedLoan *models.Loan
	f.loanRepo.UpdateFn = func(ctx context.Context, loan *models.Loan) error {
		if loan.Status == models.LoanStatusPaidOff {
			closedLoan = loan
		}
		return nil
	}
	var walletRows []*models.CustomerWalletHistory
	f.walletRepo.CreateWalletHistoryFn = func(ctx context.Context, history *models.CustomerWalletHistory) error {
		walletRows = append(walletRows, history)
		return nil
	}

	payback := &models.PaybackTransaction{ID: 1, AccountID: 2, Amount: 30000, TransactionDate: paidDate}
	_, err := f.svc.ProcessRepayment(context.Background(), payback, "", false)
	require.NoError(t, err)

	require.NotNil(t, closedLoan)
	assert.Equal(t, uint(7), closedLoan.ID)

	// Earning first, then the payoff moves the accrued total into the
	// spendable balance.
	require.Len(t, walletRows, 2)
	assert.Equal(t, models.WalletReasonCashbackEarned, walletRows[0].ChangeReason)
	assert.Equal(t, int64(300), walletRows[0].WalletBalanceAccruing)

	promotion := walletRows[1]
	assert.Equal(t, models.WalletReasonCashbackAvailable, promotion.ChangeReason)
	assert.Equal(t, int64(300), promotion.WalletBalanceAccruingOld)
	assert.Equal(t, int64(0), promotion.WalletBalanceAccruing)
	assert.Equal(t, int64(0), promotion.WalletBalanceAvailableOld)
	assert.Equal(t, int64(300), promotion.WalletBalanceAvailable)

	assert.Equal(t, int64(0), customer.WalletBalanceAccruing)
	assert.Equal(t, int64(300), customer.WalletBalanceAvailable)
}
