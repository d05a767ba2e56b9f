package models

import (
	"time"
)

// CommissionLookup ties an agent commission to the account payment and the
// amount credited by the repayment that funded it. Reversals decrement it in
// place.
type CommissionLookup struct {
	ID               uint      `gorm:"primaryKey" json:"id"`
	AccountID        uint      `gorm:"not null;index" json:"account_id"`
	AccountPaymentID uint      `gorm:"not null;index" json:"account_payment_id"`
	AgentID          *uint     `gorm:"index" json:"agent_id"`
	PaymentAmount    int64     `gorm:"not null" json:"payment_amount"`
	CreditedAmount   int64     `gorm:"not null" json:"credited_amount"`
	CreatedAt        time.Time `json:"created_at"`
	UpdatedAt        time.Time `json:"updated_at"`
}

// TableName specifies the table name for CommissionLookup
func (CommissionLookup) TableName() string {
	return "commission_lookups"
}

// CommissionVoidSplit records the principal/interest/late-fee split of a
// voided payment for downstream commission bookkeeping. Append-only.
type CommissionVoidSplit struct {
	ID             uint      `gorm:"primaryKey" json:"id"`
	PaymentID      uint      `gorm:"not null;index" json:"payment_id"`
	PaymentEventID *uint     `gorm:"index" json:"payment_event_id"`
	Principal      int64     `gorm:"not null" json:"principal"`
	Interest       int64     `gorm:"not null" json:"interest"`
	LateFee        int64     `gorm:"not null" json:"late_fee"`
	CreatedAt      time.Time `json:"created_at"`
}

// TableName specifies the table name for CommissionVoidSplit
func (CommissionVoidSplit) TableName() string {
	return "commission_void_splits"
}
