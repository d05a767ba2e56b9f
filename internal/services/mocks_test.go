package services

import (
	"context"
	"time"

	"github.com/sajinavi2006/servicing-api/internal/models"
)

// Hand-rolled fakes: each method delegates to a func field, and a nil field
// means "succeed with zero values". Tests set only the fields they care
// about.

type passthroughTxManager struct{}

func (passthroughTxManager) Do(ctx context.Context, fn func(ctx context.Context) error) error {
	return fn(ctx)
}

type mockAccountRepo struct {
	FindByIDFn              func(ctx context.Context, id uint) (*models.Account, error)
	FindAllIDsFn            func(ctx context.Context) ([]uint, error)
	UpdateFn                func(ctx context.Context, account *models.Account) error
	CreateStatusHistoryFn   func(ctx context.Context, history *models.AccountStatusHistory) error
	CreatePropertyHistoryFn func(ctx context.Context, history *models.AccountPropertyHistory) error
	FindCustomerFn          func(ctx context.Context, id uint) (*models.Customer, error)
	UpdateCustomerFn        func(ctx context.Context, customer *models.Customer) error
}

func (m *mockAccountRepo) FindByID(ctx context.Context, id uint) (*models.Account, error) {
	if m.FindByIDFn != nil {
		return m.FindByIDFn(ctx, id)
	}
	return &models.Account{ID: id}, nil
}

func (m *mockAccountRepo) FindAllIDs(ctx context.Context) ([]uint, error) {
	if m.FindAllIDsFn != nil {
		return m.FindAllIDsFn(ctx)
	}
	return nil, nil
}

func (m *mockAccountRepo) Update(ctx context.Context, account *models.Account) error {
	if m.UpdateFn != nil {
		return m.UpdateFn(ctx, account)
	}
	return nil
}

func (m *mockAccountRepo) CreateStatusHistory(ctx context.Context, history *models.AccountStatusHistory) error {
	if m.CreateStatusHistoryFn != nil {
		return m.CreateStatusHistoryFn(ctx, history)
	}
	return nil
}

func (m *mockAccountRepo) CreatePropertyHistory(ctx context.Context, history *models.AccountPropertyHistory) error {
	if m.CreatePropertyHistoryFn != nil {
		return m.CreatePropertyHistoryFn(ctx, history)
	}
	return nil
}

func (m *mockAccountRepo) FindCustomer(ctx context.Context, id uint) (*models.Customer, error) {
	if m.FindCustomerFn != nil {
		return m.FindCustomerFn(ctx, id)
	}
	return &models.Customer{ID: id}, nil
}

func (m *mockAccountRepo) UpdateCustomer(ctx context.Context, customer *models.Customer) error {
	if m.UpdateCustomerFn != nil {
		return m.UpdateCustomerFn(ctx, customer)
	}
	return nil
}

type mockLoanRepo struct {
	FindByIDFn            func(ctx context.Context, id uint) (*models.Loan, error)
	FindByAccountFn       func(ctx context.Context, accountID uint) ([]models.Loan, error)
	UpdateFn              func(ctx context.Context, loan *models.Loan) error
	CreateStatusHistoryFn func(ctx context.Context, history *models.LoanStatusHistory) error
	TotalPaidOffAmountFn  func(ctx context.Context, accountID uint) (int64, error)
}

func (m *mockLoanRepo) FindByID(ctx context.Context, id uint) (*models.Loan, error) {
	if m.FindByIDFn != nil {
		return m.FindByIDFn(ctx, id)
	}
	return &models.Loan{ID: id}, nil
}

func (m *mockLoanRepo) FindByAccount(ctx context.Context, accountID uint) ([]models.Loan, error) {
	if m.FindByAccountFn != nil {
		return m.FindByAccountFn(ctx, accountID)
	}
	return nil, nil
}

func (m *mockLoanRepo) Update(ctx context.Context, loan *models.Loan) error {
	if m.UpdateFn != nil {
		return m.UpdateFn(ctx, loan)
	}
	return nil
}

func (m *mockLoanRepo) CreateStatusHistory(ctx context.Context, history *models.LoanStatusHistory) error {
	if m.CreateStatusHistoryFn != nil {
		return m.CreateStatusHistoryFn(ctx, history)
	}
	return nil
}

func (m *mockLoanRepo) TotalPaidOffAmount(ctx context.Context, accountID uint) (int64, error) {
	if m.TotalPaidOffAmountFn != nil {
		return m.TotalPaidOffAmountFn(ctx, accountID)
	}
	return 0, nil
}

type mockPaymentRepo struct {
	FindByIDFn             func(ctx context.Context, id uint) (*models.Payment, error)
	FindByAccountPaymentFn func(ctx context.Context, accountPaymentID uint) ([]models.Payment, error)
	FindByLoanFn           func(ctx context.Context, loanID uint) ([]models.Payment, error)
	UpdateFn               func(ctx context.Context, payment *models.Payment) error
	CreateNoteFn           func(ctx context.Context, note *models.PaymentNote) error
	CreateStatusHistoryFn  func(ctx context.Context, history *models.PaymentStatusHistory) error
}

func (m *mockPaymentRepo) FindByID(ctx context.Context, id uint) (*models.Payment, error) {
	if m.FindByIDFn != nil {
		return m.FindByIDFn(ctx, id)
	}
	return &models.Payment{ID: id}, nil
}

func (m *mockPaymentRepo) FindByAccountPayment(ctx context.Context, accountPaymentID uint) ([]models.Payment, error) {
	if m.FindByAccountPaymentFn != nil {
		return m.FindByAccountPaymentFn(ctx, accountPaymentID)
	}
	return nil, nil
}

func (m *mockPaymentRepo) FindByLoan(ctx context.Context, loanID uint) ([]models.Payment, error) {
	if m.FindByLoanFn != nil {
		return m.FindByLoanFn(ctx, loanID)
	}
	return nil, nil
}

func (m *mockPaymentRepo) Update(ctx context.Context, payment *models.Payment) error {
	if m.UpdateFn != nil {
		return m.UpdateFn(ctx, payment)
	}
	return nil
}

func (m *mockPaymentRepo) CreateNote(ctx context.Context, note *models.PaymentNote) error {
	if m.CreateNoteFn != nil {
		return m.CreateNoteFn(ctx, note)
	}
	return nil
}

func (m *mockPaymentRepo) CreateStatusHistory(ctx context.Context, history *models.PaymentStatusHistory) error {
	if m.CreateStatusHistoryFn != nil {
		return m.CreateStatusHistoryFn(ctx, history)
	}
	return nil
}

type mockAccountPaymentRepo struct {
	FindByIDFn            func(ctx context.Context, id uint) (*models.AccountPayment, error)
	LockForUpdateFn       func(ctx context.Context, id uint) (*models.AccountPayment, error)
	FindByAccountFn       func(ctx context.Context, accountID uint) ([]models.AccountPayment, error)
	FindOldestUnpaidFn    func(ctx context.Context, accountID uint) (*models.AccountPayment, error)
	UpdateFn              func(ctx context.Context, accountPayment *models.AccountPayment) error
	CreateStatusHistoryFn func(ctx context.Context, history *models.AccountPaymentStatusHistory) error
}

func (m *mockAccountPaymentRepo) FindByID(ctx context.Context, id uint) (*models.AccountPayment, error) {
	if m.FindByIDFn != nil {
		return m.FindByIDFn(ctx, id)
	}
	return &models.AccountPayment{ID: id}, nil
}

func (m *mockAccountPaymentRepo) LockForUpdate(ctx context.Context, id uint) (*models.AccountPayment, error) {
	if m.LockForUpdateFn != nil {
		return m.LockForUpdateFn(ctx, id)
	}
	return &models.AccountPayment{ID: id}, nil
}

func (m *mockAccountPaymentRepo) FindByAccount(ctx context.Context, accountID uint) ([]models.AccountPayment, error) {
	if m.FindByAccountFn != nil {
		return m.FindByAccountFn(ctx, accountID)
	}
	return nil, nil
}

func (m *mockAccountPaymentRepo) FindOldestUnpaid(ctx context.Context, accountID uint) (*models.AccountPayment, error) {
	if m.FindOldestUnpaidFn != nil {
		return m.FindOldestUnpaidFn(ctx, accountID)
	}
	return nil, nil
}

func (m *mockAccountPaymentRepo) Update(ctx context.Context, accountPayment *models.AccountPayment) error {
	if m.UpdateFn != nil {
		return m.UpdateFn(ctx, accountPayment)
	}
	return nil
}

func (m *mockAccountPaymentRepo) CreateStatusHistory(ctx context.Context, history *models.AccountPaymentStatusHistory) error {
	if m.CreateStatusHistoryFn != nil {
		return m.CreateStatusHistoryFn(ctx, history)
	}
	return nil
}

type mockTransactionRepo struct {
	FindByIDFn                func(ctx context.Context, id uint) (*models.AccountTransaction, error)
	CreateFn                  func(ctx context.Context, transaction *models.AccountTransaction) error
	UpdateFn                  func(ctx context.Context, transaction *models.AccountTransaction) error
	FindByAccountFn           func(ctx context.Context, accountID uint) ([]models.AccountTransaction, error)
	FindReversibleNewerThanFn func(ctx context.Context, accountID uint, after time.Time, types []string) ([]models.AccountTransaction, error)
	FindEventsFn              func(ctx context.Context, transactionID uint) ([]models.PaymentEvent, error)
	FindEventsByPaymentFn     func(ctx context.Context, paymentID uint) ([]models.PaymentEvent, error)
	CreateEventFn             func(ctx context.Context, event *models.PaymentEvent) error
	AttachEventsFn            func(ctx context.Context, eventIDs []uint, transactionID uint) error
	SumEventsInWindowFn       func(ctx context.Context, accountPaymentID uint, eventType string, from, to time.Time) (int64, error)
}

func (m *mockTransactionRepo) FindByID(ctx context.Context, id uint) (*models.AccountTransaction, error) {
	if m.FindByIDFn != nil {
		return m.FindByIDFn(ctx, id)
	}
	return &models.AccountTransaction{ID: id}, nil
}

func (m *mockTransactionRepo) Create(ctx context.Context, transaction *models.AccountTransaction) error {
	if m.CreateFn != nil {
		return m.CreateFn(ctx, transaction)
	}
	return nil
}

func (m *mockTransactionRepo) Update(ctx context.Context, transaction *models.AccountTransaction) error {
	if m.UpdateFn != nil {
		return m.UpdateFn(ctx, transaction)
	}
	return nil
}

func (m *mockTransactionRepo) FindByAccount(ctx context.Context, accountID uint) ([]models.AccountTransaction, error) {
	if m.FindByAccountFn != nil {
		return m.FindByAccountFn(ctx, accountID)
	}
	return nil, nil
}

func (m *mockTransactionRepo) FindReversibleNewerThan(ctx context.Context, accountID uint, after time.Time, types []string) ([]models.AccountTransaction, error) {
	if m.FindReversibleNewerThanFn != nil {
		return m.FindReversibleNewerThanFn(ctx, accountID, after, types)
	}
	return nil, nil
}

func (m *mockTransactionRepo) FindEvents(ctx context.Context, transactionID uint) ([]models.PaymentEvent, error) {
	if m.FindEventsFn != nil {
		return m.FindEventsFn(ctx, transactionID)
	}
	return nil, nil
}

func (m *mockTransactionRepo) FindEventsByPayment(ctx context.Context, paymentID uint) ([]models.PaymentEvent, error) {
	if m.FindEventsByPaymentFn != nil {
		return m.FindEventsByPaymentFn(ctx, paymentID)
	}
	return nil, nil
}

func (m *mockTransactionRepo) CreateEvent(ctx context.Context, event *models.PaymentEvent) error {
	if m.CreateEventFn != nil {
		return m.CreateEventFn(ctx, event)
	}
	return nil
}

func (m *mockTransactionRepo) AttachEvents(ctx context.Context, eventIDs []uint, transactionID uint) error {
	if m.AttachEventsFn != nil {
		return m.AttachEventsFn(ctx, eventIDs, transactionID)
	}
	return nil
}

func (m *mockTransactionRepo) SumEventsInWindow(ctx context.Context, accountPaymentID uint, eventType string, from, to time.Time) (int64, error) {
	if m.SumEventsInWindowFn != nil {
		return m.SumEventsInWindowFn(ctx, accountPaymentID, eventType, from, to)
	}
	return 0, nil
}

type mockWalletRepo struct {
	CreateWalletHistoryFn         func(ctx context.Context, history *models.CustomerWalletHistory) error
	LastWalletHistoryByReasonFn   func(ctx context.Context, customerID uint, loanID uint, reason string) (*models.CustomerWalletHistory, error)
	CreateCounterHistoryFn        func(ctx context.Context, history *models.CashbackCounterHistory) error
	LastCounterByPaymentFn        func(ctx context.Context, paymentID uint) (*models.CashbackCounterHistory, error)
	LastCounterByAccountFn        func(ctx context.Context, accountID uint) (*models.CashbackCounterHistory, error)
	LastSiblingCountersFn         func(ctx context.Context, accountID uint, excludeAccountPaymentID uint) ([]models.CashbackCounterHistory, error)
	HasClaimRowsFn                func(ctx context.Context, accountID uint, onOrBefore time.Time) (bool, error)
	VoidClaimByPaymentFn          func(ctx context.Context, paymentID uint) error
	VoidClaimsByAccountPaymentsFn func(ctx context.Context, accountPaymentIDs []uint) error
}

func (m *mockWalletRepo) CreateWalletHistory(ctx context.Context, history *models.CustomerWalletHistory) error {
	if m.CreateWalletHistoryFn != nil {
		return m.CreateWalletHistoryFn(ctx, history)
	}
	return nil
}

func (m *mockWalletRepo) LastWalletHistoryByReason(ctx context.Context, customerID uint, loanID uint, reason string) (*models.CustomerWalletHistory, error) {
	if m.LastWalletHistoryByReasonFn != nil {
		return m.LastWalletHistoryByReasonFn(ctx, customerID, loanID, reason)
	}
	return nil, nil
}

func (m *mockWalletRepo) CreateCounterHistory(ctx context.Context, history *models.CashbackCounterHistory) error {
	if m.CreateCounterHistoryFn != nil {
		return m.CreateCounterHistoryFn(ctx, history)
	}
	return nil
}

func (m *mockWalletRepo) LastCounterByPayment(ctx context.Context, paymentID uint) (*models.CashbackCounterHistory, error) {
	if m.LastCounterByPaymentFn != nil {
		return m.LastCounterByPaymentFn(ctx, paymentID)
	}
	return nil, nil
}

func (m *mockWalletRepo) LastCounterByAccount(ctx context.Context, accountID uint) (*models.CashbackCounterHistory, error) {
	if m.LastCounterByAccountFn != nil {
		return m.LastCounterByAccountFn(ctx, accountID)
	}
	return nil, nil
}

func (m *mockWalletRepo) LastSiblingCounters(ctx context.Context, accountID uint, excludeAccountPaymentID uint) ([]models.CashbackCounterHistory, error) {
	if m.LastSiblingCountersFn != nil {
		return m.LastSiblingCountersFn(ctx, accountID, excludeAccountPaymentID)
	}
	return nil, nil
}

func (m *mockWalletRepo) HasClaimRows(ctx context.Context, accountID uint, onOrBefore time.Time) (bool, error) {
	if m.HasClaimRowsFn != nil {
		return m.HasClaimRowsFn(ctx, accountID, onOrBefore)
	}
	return false, nil
}

func (m *mockWalletRepo) VoidClaimByPayment(ctx context.Context, paymentID uint) error {
	if m.VoidClaimByPaymentFn != nil {
		return m.VoidClaimByPaymentFn(ctx, paymentID)
	}
	return nil
}

func (m *mockWalletRepo) VoidClaimsByAccountPayments(ctx context.Context, accountPaymentIDs []uint) error {
	if m.VoidClaimsByAccountPaymentsFn != nil {
		return m.VoidClaimsByAccountPaymentsFn(ctx, accountPaymentIDs)
	}
	return nil
}

type mockPTPRepo struct {
	FindByAccountPaymentFn       func(ctx context.Context, accountPaymentID uint) ([]models.PTP, error)
	FindActiveByAccountPaymentFn func(ctx context.Context, accountPaymentID uint) ([]models.PTP, error)
	UpdateFn                     func(ctx context.Context, ptp *models.PTP) error
}

func (m *mockPTPRepo) FindByAccountPayment(ctx context.Context, accountPaymentID uint) ([]models.PTP, error) {
	if m.FindByAccountPaymentFn != nil {
		return m.FindByAccountPaymentFn(ctx, accountPaymentID)
	}
	return nil, nil
}

func (m *mockPTPRepo) FindActiveByAccountPayment(ctx context.Context, accountPaymentID uint) ([]models.PTP, error) {
	if m.FindActiveByAccountPaymentFn != nil {
		return m.FindActiveByAccountPaymentFn(ctx, accountPaymentID)
	}
	return nil, nil
}

func (m *mockPTPRepo) Update(ctx context.Context, ptp *models.PTP) error {
	if m.UpdateFn != nil {
		return m.UpdateFn(ctx, ptp)
	}
	return nil
}

type mockCommissionRepo struct {
	FindMatchFn       func(ctx context.Context, accountID, accountPaymentID uint, creditedAmount int64) (*models.CommissionLookup, error)
	UpdateFn          func(ctx context.Context, lookup *models.CommissionLookup) error
	CreateVoidSplitFn func(ctx context.Context, split *models.CommissionVoidSplit) error
}

func (m *mockCommissionRepo) FindMatch(ctx context.Context, accountID, accountPaymentID uint, creditedAmount int64) (*models.CommissionLookup, error) {
	if m.FindMatchFn != nil {
		return m.FindMatchFn(ctx, accountID, accountPaymentID, creditedAmount)
	}
	return nil, nil
}

func (m *mockCommissionRepo) Update(ctx context.Context, lookup *models.CommissionLookup) error {
	if m.UpdateFn != nil {
		return m.UpdateFn(ctx, lookup)
	}
	return nil
}

func (m *mockCommissionRepo) CreateVoidSplit(ctx context.Context, split *models.CommissionVoidSplit) error {
	if m.CreateVoidSplitFn != nil {
		return m.CreateVoidSplitFn(ctx, split)
	}
	return nil
}

type mockPaybackRepo struct {
	FindByIDFn            func(ctx context.Context, id uint) (*models.PaybackTransaction, error)
	FindByTransactionIDFn func(ctx context.Context, transactionID string) (*models.PaybackTransaction, error)
	CreateFn              func(ctx context.Context, payback *models.PaybackTransaction) error
	UpdateFn              func(ctx context.Context, payback *models.PaybackTransaction) error
}

func (m *mockPaybackRepo) FindByID(ctx context.Context, id uint) (*models.PaybackTransaction, error) {
	if m.FindByIDFn != nil {
		return m.FindByIDFn(ctx, id)
	}
	return &models.PaybackTransaction{ID: id}, nil
}

func (m *mockPaybackRepo) FindByTransactionID(ctx context.Context, transactionID string) (*models.PaybackTransaction, error) {
	if m.FindByTransactionIDFn != nil {
		return m.FindByTransactionIDFn(ctx, transactionID)
	}
	return nil, nil
}

func (m *mockPaybackRepo) Create(ctx context.Context, payback *models.PaybackTransaction) error {
	if m.CreateFn != nil {
		return m.CreateFn(ctx, payback)
	}
	return nil
}

func (m *mockPaybackRepo) Update(ctx context.Context, payback *models.PaybackTransaction) error {
	if m.UpdateFn != nil {
		return m.UpdateFn(ctx, payback)
	}
	return nil
}

type mockCollectionRepo struct {
	DeleteQueueItemsFn func(ctx context.Context, accountPaymentID uint) error
	UpsertRiskBucketFn func(ctx context.Context, bucket *models.CollectionRiskBucket) error
	FindRiskBucketFn   func(ctx context.Context, accountID uint) (*models.CollectionRiskBucket, error)
}

func (m *mockCollectionRepo) DeleteQueueItems(ctx context.Context, accountPaymentID uint) error {
	if m.DeleteQueueItemsFn != nil {
		return m.DeleteQueueItemsFn(ctx, accountPaymentID)
	}
	return nil
}

func (m *mockCollectionRepo) UpsertRiskBucket(ctx context.Context, bucket *models.CollectionRiskBucket) error {
	if m.UpsertRiskBucketFn != nil {
		return m.UpsertRiskBucketFn(ctx, bucket)
	}
	return nil
}

func (m *mockCollectionRepo) FindRiskBucket(ctx context.Context, accountID uint) (*models.CollectionRiskBucket, error) {
	if m.FindRiskBucketFn != nil {
		return m.FindRiskBucketFn(ctx, accountID)
	}
	return nil, nil
}

type mockNotificationRepo struct {
	CreateFn         func(ctx context.Context, notification *models.Notification) error
	FindByCustomerFn func(ctx context.Context, customerID uint, limit int) ([]models.Notification, error)
	MarkReadFn       func(ctx context.Context, id uint) error
}

func (m *mockNotificationRepo) Create(ctx context.Context, notification *models.Notification) error {
	if m.CreateFn != nil {
		return m.CreateFn(ctx, notification)
	}
	return nil
}

func (m *mockNotificationRepo) FindByCustomer(ctx context.Context, customerID uint, limit int) ([]models.Notification, error) {
	if m.FindByCustomerFn != nil {
		return m.FindByCustomerFn(ctx, customerID, limit)
	}
	return nil, nil
}

func (m *mockNotificationRepo) MarkRead(ctx context.Context, id uint) error {
	if m.MarkReadFn != nil {
		return m.MarkReadFn(ctx, id)
	}
	return nil
}
