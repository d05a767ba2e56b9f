package models

import (
	"time"
)

// Loan is one disbursed loan under an account. Its payments share the
// account's repayment schedule through AccountPayment.
type Loan struct {
	ID                  uint      `gorm:"primaryKey" json:"id"`
	AccountID           uint      `gorm:"not null;index" json:"account_id"`
	CustomerID          uint      `gorm:"not null;index" json:"customer_id"`
	LoanAmount          int64     `gorm:"not null" json:"loan_amount"`
	Status              string    `gorm:"default:active;not null;index" json:"status"`
	CashbackEarnedTotal int64     `gorm:"not null;default:0" json:"cashback_earned_total"`
	EarlyLimitReleased  bool      `gorm:"not null;default:false" json:"early_limit_released"`
	CreatedAt           time.Time `json:"created_at"`
	UpdatedAt           time.Time `json:"updated_at"`

	// Associations
	Account Account `gorm:"foreignKey:AccountID" json:"account,omitempty"`
}

// TableName specifies the table name for Loan
func (Loan) TableName() string {
	return "loans"
}

// Loan status constants
const (
	LoanStatusActive  = "active"
	LoanStatusPaidOff = "paid_off"
)

// IsPaidOff returns true when the loan has been fully repaid
func (l *Loan) IsPaidOff() bool {
	return l.Status == LoanStatusPaidOff
}

// LoanStatusHistory records loan status transitions. Append-only.
type LoanStatusHistory struct {
	ID           uint      `gorm:"primaryKey" json:"id"`
	LoanID       uint      `gorm:"not null;index" json:"loan_id"`
	StatusOld    string    `gorm:"size:30" json:"status_old"`
	StatusNew    string    `gorm:"size:30;not null" json:"status_new"`
	ChangedBy    string    `gorm:"size:50" json:"changed_by"`
	ChangeReason string    `gorm:"size:100" json:"change_reason"`
	CreatedAt    time.Time `json:"created_at"`
}

// TableName specifies the table name for LoanStatusHistory
func (LoanStatusHistory) TableName() string {
	return "loan_status_histories"
}
