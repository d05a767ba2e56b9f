package models

import (
	"time"
)

// Payment is one installment of a loan. Amounts are integer rupiah.
//
// Invariant: PaidAmount == PaidPrincipal + PaidInterest + PaidLateFee.
// DueAmount goes down when a payment is applied and back up when one is
// reversed, clamped so it never exceeds Outstanding().
type Payment struct {
	ID                   uint       `gorm:"primaryKey" json:"id"`
	LoanID               uint       `gorm:"not null;index" json:"loan_id"`
	AccountPaymentID     *uint      `gorm:"index" json:"account_payment_id"`
	PaymentNumber        int        `gorm:"not null" json:"payment_number"`
	DueDate              time.Time  `gorm:"type:date;not null;index" json:"due_date"`
	DueAmount            int64      `gorm:"not null" json:"due_amount"`
	InstallmentPrincipal int64      `gorm:"not null" json:"installment_principal"`
	InstallmentInterest  int64      `gorm:"not null" json:"installment_interest"`
	LateFeeAmount        int64      `gorm:"not null;default:0" json:"late_fee_amount"`
	LateFeeApplied       int        `gorm:"not null;default:0" json:"late_fee_applied"`
	PaidAmount           int64      `gorm:"not null;default:0" json:"paid_amount"`
	PaidPrincipal        int64      `gorm:"not null;default:0" json:"paid_principal"`
	PaidInterest         int64      `gorm:"not null;default:0" json:"paid_interest"`
	PaidLateFee          int64      `gorm:"not null;default:0" json:"paid_late_fee"`
	CashbackEarned       int64      `gorm:"not null;default:0" json:"cashback_earned"`
	Status               string     `gorm:"default:not_due;not null;index" json:"status"`
	PaidDate             *time.Time `gorm:"type:date" json:"paid_date"`
	CreatedAt            time.Time  `json:"created_at"`
	UpdatedAt            time.Time  `json:"updated_at"`

	// Associations
	Loan           Loan            `gorm:"foreignKey:LoanID" json:"loan,omitempty"`
	AccountPayment *AccountPayment `gorm:"foreignKey:AccountPaymentID" json:"account_payment,omitempty"`
}

// TableName specifies the table name for Payment
func (Payment) TableName() string {
	return "payments"
}

// Payment status constants. The paid_* trio are the terminal paid grades;
// everything else is an unpaid grade derived from the due date.
const (
	PaymentStatusNotDue          = "not_due"
	PaymentStatusDueSoon         = "due_soon"
	PaymentStatusDueToday        = "due_today"
	PaymentStatusLate            = "late"
	PaymentStatusPaidOnTime      = "paid_on_time"
	PaymentStatusPaidWithinGrace = "paid_within_grace"
	PaymentStatusPaidLate        = "paid_late"
)

// IsPaid returns true when the payment carries a paid status
func (p *Payment) IsPaid() bool {
	switch p.Status {
	case PaymentStatusPaidOnTime, PaymentStatusPaidWithinGrace, PaymentStatusPaidLate:
		return true
	}
	return false
}

// Outstanding returns the remaining amount owed across all components.
func (p *Payment) Outstanding() int64 {
	return (p.InstallmentPrincipal - p.PaidPrincipal) +
		(p.InstallmentInterest - p.PaidInterest) +
		(p.LateFeeAmount - p.PaidLateFee)
}

// IsFullyPaid returns true when nothing is outstanding
func (p *Payment) IsFullyPaid() bool {
	return p.Outstanding() <= 0
}

// PaymentNote is a human-readable audit note attached to a payment,
// e.g. the trail a reversal leaves behind. Append-only.
type PaymentNote struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	PaymentID uint      `gorm:"not null;index" json:"payment_id"`
	Note      string    `gorm:"type:text;not null" json:"note"`
	AddedBy   string    `gorm:"size:50" json:"added_by"`
	CreatedAt time.Time `json:"created_at"`
}

// TableName specifies the table name for PaymentNote
func (PaymentNote) TableName() string {
	return "payment_notes"
}

// PaymentStatusHistory records payment status transitions. Append-only.
type PaymentStatusHistory struct {
	ID           uint      `gorm:"primaryKey" json:"id"`
	PaymentID    uint      `gorm:"not null;index" json:"payment_id"`
	StatusOld    string    `gorm:"size:30" json:"status_old"`
	StatusNew    string    `gorm:"size:30;not null" json:"status_new"`
	ChangeReason string    `gorm:"size:100" json:"change_reason"`
	CreatedAt    time.Time `json:"created_at"`
}

// TableName specifies the table name for PaymentStatusHistory
func (PaymentStatusHistory) TableName() string {
	return "payment_status_histories"
}
