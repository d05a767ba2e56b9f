package models

import (
	"time"
)

// AccountTransaction is the account-level financial transaction grouping a
// set of PaymentEvents. A reversal creates a compensating transaction with
// the amounts negated and links it through ReversalTransactionID.
//
// Once CanReverse is false no further reversal is permitted; reversal is
// strictly at-most-once.
type AccountTransaction struct {
	ID                          uint      `gorm:"primaryKey" json:"id"`
	AccountID                   uint      `gorm:"not null;index" json:"account_id"`
	PaybackTransactionID        *uint     `gorm:"index" json:"payback_transaction_id"`
	TransactionDate             time.Time `gorm:"type:date;not null;index" json:"transaction_date"`
	TransactionAmount           int64     `gorm:"not null" json:"transaction_amount"`
	TransactionType             string    `gorm:"size:30;not null;index" json:"transaction_type"`
	TowardsPrincipal            int64     `gorm:"not null;default:0" json:"towards_principal"`
	TowardsInterest             int64     `gorm:"not null;default:0" json:"towards_interest"`
	TowardsLateFee              int64     `gorm:"not null;default:0" json:"towards_latefee"`
	CanReverse                  bool      `gorm:"not null;default:true" json:"can_reverse"`
	ReversalTransactionID       *uint     `gorm:"index" json:"reversal_transaction_id"`
	ReversedTransactionOriginID *uint     `gorm:"index" json:"reversed_transaction_origin_id"`
	ReversalNote                *string   `gorm:"type:text" json:"reversal_note"`
	CreatedAt                   time.Time `gorm:"index" json:"created_at"`
	UpdatedAt                   time.Time `json:"updated_at"`

	// Associations
	Account             Account             `gorm:"foreignKey:AccountID" json:"account,omitempty"`
	PaybackTransaction  *PaybackTransaction `gorm:"foreignKey:PaybackTransactionID" json:"payback_transaction,omitempty"`
	ReversalTransaction *AccountTransaction `gorm:"foreignKey:ReversalTransactionID" json:"reversal_transaction,omitempty"`
}

// TableName specifies the table name for AccountTransaction
func (AccountTransaction) TableName() string {
	return "account_transactions"
}

// Transaction type constants mirror payment event types
const (
	TransactionTypePayment            = "payment"
	TransactionTypePaymentVoid        = "payment_void"
	TransactionTypeLateFee            = "late_fee"
	TransactionTypeLateFeeVoid        = "late_fee_void"
	TransactionTypeCustomerWallet     = "customer_wallet"
	TransactionTypeCustomerWalletVoid = "customer_wallet_void"
)

// VoidTypeFor maps a forward transaction type to its compensating type.
func VoidTypeFor(transactionType string) string {
	switch transactionType {
	case TransactionTypeCustomerWallet:
		return TransactionTypeCustomerWalletVoid
	case TransactionTypeLateFee:
		return TransactionTypeLateFeeVoid
	default:
		return TransactionTypePaymentVoid
	}
}

// IsCashbackFunded returns true when the transaction was paid from the
// customer wallet rather than an external payback channel.
func (t *AccountTransaction) IsCashbackFunded() bool {
	return t.TransactionType == TransactionTypeCustomerWallet
}

// AccountTransactionResponse is the JSON response format for transactions
type AccountTransactionResponse struct {
	ID                    uint      `json:"id"`
	AccountID             uint      `json:"account_id"`
	TransactionDate       time.Time `json:"transaction_date"`
	TransactionAmount     int64     `json:"transaction_amount"`
	TransactionType       string    `json:"transaction_type"`
	TowardsPrincipal      int64     `json:"towards_principal"`
	TowardsInterest       int64     `json:"towards_interest"`
	TowardsLateFee        int64     `json:"towards_latefee"`
	CanReverse            bool      `json:"can_reverse"`
	ReversalTransactionID *uint     `json:"reversal_transaction_id"`
	ReversalNote          *string   `json:"reversal_note"`
	CreatedAt             time.Time `json:"created_at"`
}

// ToResponse converts AccountTransaction to AccountTransactionResponse
func (t *AccountTransaction) ToResponse() AccountTransactionResponse {
	return AccountTransactionResponse{
		ID:                    t.ID,
		AccountID:             t.AccountID,
		TransactionDate:       t.TransactionDate,
		TransactionAmount:     t.TransactionAmount,
		TransactionType:       t.TransactionType,
		TowardsPrincipal:      t.TowardsPrincipal,
		TowardsInterest:       t.TowardsInterest,
		TowardsLateFee:        t.TowardsLateFee,
		CanReverse:            t.CanReverse,
		ReversalTransactionID: t.ReversalTransactionID,
		ReversalNote:          t.ReversalNote,
		CreatedAt:             t.CreatedAt,
	}
}
