package models

import (
	"time"
)

// Wallet change reason constants
const (
	WalletReasonUsedOnPayment         = "used_on_payment"
	WalletReasonPaymentReversal       = "payment_reversal"
	WalletReasonCashbackEarned        = "cashback_earned"
	WalletReasonCashbackEarnedVoid    = "cashback_earned_void"
	WalletReasonCashbackOverPaid      = "cashback_over_paid"
	WalletReasonCashbackOverPaidVoid  = "cashback_over_paid_void"
	WalletReasonCashbackAvailable     = "cashback_available"
	WalletReasonCashbackAvailableVoid = "cashback_available_void"
	WalletReasonCashbackRefund        = "cashback_refund"
)

// CustomerWalletHistory is the append-only ledger of wallet balance deltas.
// Old and new balances are stored on every row so a later reversal can
// re-derive the exact delta it must compensate.
type CustomerWalletHistory struct {
	ID                        uint      `gorm:"primaryKey" json:"id"`
	CustomerID                uint      `gorm:"not null;index" json:"customer_id"`
	AccountPaymentID          *uint     `gorm:"index" json:"account_payment_id"`
	PaymentID                 *uint     `gorm:"index" json:"payment_id"`
	LoanID                    *uint     `gorm:"index" json:"loan_id"`
	WalletBalanceAccruingOld  int64     `gorm:"not null" json:"wallet_balance_accruing_old"`
	WalletBalanceAccruing     int64     `gorm:"not null" json:"wallet_balance_accruing"`
	WalletBalanceAvailableOld int64     `gorm:"not null" json:"wallet_balance_available_old"`
	WalletBalanceAvailable    int64     `gorm:"not null" json:"wallet_balance_available"`
	ChangeReason              string    `gorm:"size:50;not null;index" json:"change_reason"`
	CashbackPercentage        *int      `json:"cashback_percentage"`
	CashbackCounter           *int      `json:"cashback_counter"`
	CreatedAt                 time.Time `gorm:"index" json:"created_at"`
}

// TableName specifies the table name for CustomerWalletHistory
func (CustomerWalletHistory) TableName() string {
	return "customer_wallet_histories"
}

// AccruingDelta returns the accruing balance change this row recorded.
func (h *CustomerWalletHistory) AccruingDelta() int64 {
	return h.WalletBalanceAccruing - h.WalletBalanceAccruingOld
}

// AvailableDelta returns the available balance change this row recorded.
func (h *CustomerWalletHistory) AvailableDelta() int64 {
	return h.WalletBalanceAvailable - h.WalletBalanceAvailableOld
}

// CashbackCounterHistory tracks the per-account-payment cashback tier
// counter. The counter steps up with on-time payments and back down with
// reversals, holding at the ceiling. Append-only.
type CashbackCounterHistory struct {
	ID               uint      `gorm:"primaryKey" json:"id"`
	AccountID        uint      `gorm:"not null;index" json:"account_id"`
	AccountPaymentID uint      `gorm:"not null;index" json:"account_payment_id"`
	PaymentID        *uint     `gorm:"index" json:"payment_id"`
	Counter          int       `gorm:"not null" json:"counter"`
	ChangeReason     string    `gorm:"size:50" json:"change_reason"`
	CreatedAt        time.Time `gorm:"index" json:"created_at"`
}

// TableName specifies the table name for CashbackCounterHistory
func (CashbackCounterHistory) TableName() string {
	return "cashback_counter_histories"
}

// CashbackClaimPayment is the per-payment claim state of the cashback claim
// experiment. Voided when the underlying payment is reversed.
type CashbackClaimPayment struct {
	ID               uint      `gorm:"primaryKey" json:"id"`
	AccountPaymentID uint      `gorm:"not null;index" json:"account_payment_id"`
	PaymentID        *uint     `gorm:"index" json:"payment_id"`
	Status           string    `gorm:"size:30;not null;default:eligible" json:"status"`
	CreatedAt        time.Time `json:"created_at"`
	UpdatedAt        time.Time `json:"updated_at"`
}

// TableName specifies the table name for CashbackClaimPayment
func (CashbackClaimPayment) TableName() string {
	return "cashback_claim_payments"
}

// Cashback claim statuses
const (
	CashbackClaimStatusEligible = "eligible"
	CashbackClaimStatusClaimed  = "claimed"
	CashbackClaimStatusVoided   = "voided"
)
