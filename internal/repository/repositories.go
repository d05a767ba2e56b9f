package repository

import (
	"gorm.io/gorm"
)

// Repositories holds all repository instances
type Repositories struct {
	Account        AccountRepository
	Loan           LoanRepository
	Payment        PaymentRepository
	AccountPayment AccountPaymentRepository
	Transaction    TransactionRepository
	Wallet         WalletRepository
	PTP            PTPRepository
	Commission     CommissionRepository
	Payback        PaybackRepository
	Collection     CollectionRepository
	Notification   NotificationRepository
	Tx             TxManager
}

// NewRepositories creates all repository instances. db is the primary ledger
// store; collectionDB is the secondary collection store.
func NewRepositories(db, collectionDB *gorm.DB) *Repositories {
	return &Repositories{
		Account:        NewAccountRepository(db),
		Loan:           NewLoanRepository(db),
		Payment:        NewPaymentRepository(db),
		AccountPayment: NewAccountPaymentRepository(db),
		Transaction:    NewTransactionRepository(db),
		Wallet:         NewWalletRepository(db),
		PTP:            NewPTPRepository(db),
		Commission:     NewCommissionRepository(db),
		Payback:        NewPaybackRepository(db),
		Collection:     NewCollectionRepository(collectionDB),
		Notification:   NewNotificationRepository(db),
		Tx:             NewTxManager(db, collectionDB),
	}
}
