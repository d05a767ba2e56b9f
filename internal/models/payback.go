package models

import (
	"time"
)

// PaybackTransaction is the raw inbound repayment record before it is applied
// to the account's obligations. Transfers after a reversal deep-copy one of
// these onto the destination account.
type PaybackTransaction struct {
	ID              uint      `gorm:"primaryKey" json:"id"`
	CustomerID      uint      `gorm:"not null;index" json:"customer_id"`
	AccountID       uint      `gorm:"not null;index" json:"account_id"`
	Amount          int64     `gorm:"not null" json:"amount"`
	TransactionDate time.Time `gorm:"not null" json:"transaction_date"`
	PaymentMethod   *string   `gorm:"size:50" json:"payment_method"`
	PaybackService  string    `gorm:"size:30;not null;default:bank" json:"payback_service"`
	TransactionID   string    `gorm:"size:100;uniqueIndex" json:"transaction_id"`
	IsProcessed     bool      `gorm:"not null;default:false" json:"is_processed"`
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`
}

// TableName specifies the table name for PaybackTransaction
func (PaybackTransaction) TableName() string {
	return "payback_transactions"
}

// Payback service constants
const (
	PaybackServiceBank   = "bank"
	PaybackServiceWallet = "wallet"
)
