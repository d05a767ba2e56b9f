package models

import (
	"time"
)

// AccountPayment aggregates one or more Payments due on the same date for
// one account. Its money fields equal the sum of its constituent payments'
// corresponding fields at any consistent snapshot.
type AccountPayment struct {
	ID             uint       `gorm:"primaryKey" json:"id"`
	AccountID      uint       `gorm:"not null;index" json:"account_id"`
	DueDate        time.Time  `gorm:"type:date;not null;index" json:"due_date"`
	DueAmount      int64      `gorm:"not null" json:"due_amount"`
	LateFeeAmount  int64      `gorm:"not null;default:0" json:"late_fee_amount"`
	LateFeeApplied int        `gorm:"not null;default:0" json:"late_fee_applied"`
	PaidAmount     int64      `gorm:"not null;default:0" json:"paid_amount"`
	PaidPrincipal  int64      `gorm:"not null;default:0" json:"paid_principal"`
	PaidInterest   int64      `gorm:"not null;default:0" json:"paid_interest"`
	PaidLateFee    int64      `gorm:"not null;default:0" json:"paid_late_fee"`
	Status         string     `gorm:"default:not_due;not null;index" json:"status"`
	PaidDate       *time.Time `gorm:"type:date" json:"paid_date"`
	PTPDate        *time.Time `gorm:"type:date" json:"ptp_date"`
	CreatedAt      time.Time  `json:"created_at"`
	UpdatedAt      time.Time  `json:"updated_at"`

	// Associations
	Account  Account   `gorm:"foreignKey:AccountID" json:"account,omitempty"`
	Payments []Payment `gorm:"foreignKey:AccountPaymentID" json:"payments,omitempty"`
}

// TableName specifies the table name for AccountPayment
func (AccountPayment) TableName() string {
	return "account_payments"
}

// IsPaid returns true when the account payment carries a paid status
func (ap *AccountPayment) IsPaid() bool {
	switch ap.Status {
	case PaymentStatusPaidOnTime, PaymentStatusPaidWithinGrace, PaymentStatusPaidLate:
		return true
	}
	return false
}

// AccountPaymentStatusHistory records status transitions. Append-only.
type AccountPaymentStatusHistory struct {
	ID               uint      `gorm:"primaryKey" json:"id"`
	AccountPaymentID uint      `gorm:"not null;index" json:"account_payment_id"`
	StatusOld        string    `gorm:"size:30" json:"status_old"`
	StatusNew        string    `gorm:"size:30;not null" json:"status_new"`
	ChangeReason     string    `gorm:"size:100" json:"change_reason"`
	CreatedAt        time.Time `json:"created_at"`
}

// TableName specifies the table name for AccountPaymentStatusHistory
func (AccountPaymentStatusHistory) TableName() string {
	return "account_payment_status_histories"
}
