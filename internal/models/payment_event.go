package models

import (
	"time"
)

// PaymentEvent is an append-only ledger entry recording one change to a
// payment's balance. Amounts are signed: positive for applications, negative
// for voids. Events are never mutated after creation except to attach the
// reversal AccountTransaction that voided them.
type PaymentEvent struct {
	ID                   uint      `gorm:"primaryKey" json:"id"`
	PaymentID            uint      `gorm:"not null;index" json:"payment_id"`
	EventType            string    `gorm:"size:30;not null;index" json:"event_type"`
	EventPayment         int64     `gorm:"not null" json:"event_payment"`
	EventDueAmount       int64     `gorm:"not null" json:"event_due_amount"`
	EventDate            time.Time `gorm:"type:date;not null" json:"event_date"`
	CanReverse           bool      `gorm:"not null;default:true" json:"can_reverse"`
	AccountTransactionID *uint     `gorm:"index" json:"account_transaction_id"`
	PaymentReceipt       *string   `gorm:"size:100" json:"payment_receipt"`
	PaymentMethod        *string   `gorm:"size:50" json:"payment_method"`
	CreatedAt            time.Time `json:"created_at"`

	// Associations
	Payment            Payment             `gorm:"foreignKey:PaymentID" json:"payment,omitempty"`
	AccountTransaction *AccountTransaction `gorm:"foreignKey:AccountTransactionID" json:"account_transaction,omitempty"`
}

// TableName specifies the table name for PaymentEvent
func (PaymentEvent) TableName() string {
	return "payment_events"
}

// Payment event type constants
const (
	EventTypePayment            = "payment"
	EventTypePaymentVoid        = "payment_void"
	EventTypeLateFee            = "late_fee"
	EventTypeLateFeeVoid        = "late_fee_void"
	EventTypeCustomerWallet     = "customer_wallet"
	EventTypeCustomerWalletVoid = "customer_wallet_void"
)

// IsVoid returns true for compensating (void) events
func (e *PaymentEvent) IsVoid() bool {
	switch e.EventType {
	case EventTypePaymentVoid, EventTypeLateFeeVoid, EventTypeCustomerWalletVoid:
		return true
	}
	return false
}

// PaymentEventResponse is the JSON response format for payment events
type PaymentEventResponse struct {
	ID                   uint      `json:"id"`
	PaymentID            uint      `json:"payment_id"`
	EventType            string    `json:"event_type"`
	EventPayment         int64     `json:"event_payment"`
	EventDueAmount       int64     `json:"event_due_amount"`
	EventDate            time.Time `json:"event_date"`
	CanReverse           bool      `json:"can_reverse"`
	AccountTransactionID *uint     `json:"account_transaction_id"`
	PaymentReceipt       *string   `json:"payment_receipt"`
	PaymentMethod        *string   `json:"payment_method"`
}

// ToResponse converts PaymentEvent to PaymentEventResponse
func (e *PaymentEvent) ToResponse() PaymentEventResponse {
	return PaymentEventResponse{
		ID:                   e.ID,
		PaymentID:            e.PaymentID,
		EventType:            e.EventType,
		EventPayment:         e.EventPayment,
		EventDueAmount:       e.EventDueAmount,
		EventDate:            e.EventDate,
		CanReverse:           e.CanReverse,
		AccountTransactionID: e.AccountTransactionID,
		PaymentReceipt:       e.PaymentReceipt,
		PaymentMethod:        e.PaymentMethod,
	}
}
