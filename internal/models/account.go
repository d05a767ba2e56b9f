package models

import (
	"time"
)

// Customer is the person who owns one or more accounts. Wallet balances live
// here: accruing is cashback earned but not yet claimable, available is
// spendable on repayments.
type Customer struct {
	ID                     uint      `gorm:"primaryKey" json:"id"`
	FullName               string    `gorm:"not null" json:"full_name"`
	Email                  string    `gorm:"index" json:"email"`
	Phone                  string    `json:"phone"`
	WalletBalanceAccruing  int64     `gorm:"not null;default:0" json:"wallet_balance_accruing"`
	WalletBalanceAvailable int64     `gorm:"not null;default:0" json:"wallet_balance_available"`
	CreatedAt              time.Time `json:"created_at"`
	UpdatedAt              time.Time `json:"updated_at"`
}

// TableName specifies the table name for Customer
func (Customer) TableName() string {
	return "customers"
}

// Account groups a customer's loans and their shared repayment schedule.
type Account struct {
	ID                uint      `gorm:"primaryKey" json:"id"`
	CustomerID        uint      `gorm:"not null;index" json:"customer_id"`
	Status            string    `gorm:"default:active;not null;index" json:"status"`
	IsProven          bool      `gorm:"not null;default:false" json:"is_proven"`
	CashbackNewScheme bool      `gorm:"not null;default:false" json:"cashback_new_scheme"`
	CreatedAt         time.Time `json:"created_at"`
	UpdatedAt         time.Time `json:"updated_at"`

	// Associations
	Customer Customer `gorm:"foreignKey:CustomerID" json:"customer,omitempty"`
}

// TableName specifies the table name for Account
func (Account) TableName() string {
	return "accounts"
}

// Account status constants
const (
	AccountStatusActive    = "active"
	AccountStatusSuspended = "suspended"
)

// AccountPropertyHistory records a change to a derived account property such
// as is_proven. Append-only.
type AccountPropertyHistory struct {
	ID           uint      `gorm:"primaryKey" json:"id"`
	AccountID    uint      `gorm:"not null;index" json:"account_id"`
	Property     string    `gorm:"size:50;not null" json:"property"`
	ValueOld     string    `gorm:"size:50" json:"value_old"`
	ValueNew     string    `gorm:"size:50" json:"value_new"`
	ChangeReason string    `gorm:"size:100" json:"change_reason"`
	CreatedAt    time.Time `json:"created_at"`
}

// TableName specifies the table name for AccountPropertyHistory
func (AccountPropertyHistory) TableName() string {
	return "account_property_histories"
}

// AccountStatusHistory records account status transitions. Append-only.
type AccountStatusHistory struct {
	ID           uint      `gorm:"primaryKey" json:"id"`
	AccountID    uint      `gorm:"not null;index" json:"account_id"`
	StatusOld    string    `gorm:"size:30" json:"status_old"`
	StatusNew    string    `gorm:"size:30;not null" json:"status_new"`
	ChangeReason string    `gorm:"size:100" json:"change_reason"`
	CreatedAt    time.Time `json:"created_at"`
}

// TableName specifies the table name for AccountStatusHistory
func (AccountStatusHistory) TableName() string {
	return "account_status_histories"
}
