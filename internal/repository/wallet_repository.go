package repository

import (
	"context"
	"errors"
	"time"

	"github.com/sajinavi2006/servicing-api/internal/models"

	"gorm.io/gorm"
)

// WalletRepository defines the interface for customer wallet ledger,
// cashback counter and cashback claim data access
type WalletRepository interface {
	CreateWalletHistory(ctx context.Context, history *models.CustomerWalletHistory) error
	LastWalletHistoryByReason(ctx context.Context, customerID uint, loanID uint, reason string) (*models.CustomerWalletHistory, error)
	CreateCounterHistory(ctx context.Context, history *models.CashbackCounterHistory) error
	LastCounterByPayment(ctx context.Context, paymentID uint) (*models.CashbackCounterHistory, error)
	LastCounterByAccount(ctx context.Context, accountID uint) (*models.CashbackCounterHistory, error)
	LastSiblingCounters(ctx context.Context, accountID uint, excludeAccountPaymentID uint) ([]models.CashbackCounterHistory, error)
	HasClaimRows(ctx context.Context, accountID uint, onOrBefore time.Time) (bool, error)
	VoidClaimByPayment(ctx context.Context, paymentID uint) error
	VoidClaimsByAccountPayments(ctx context.Context, accountPaymentIDs []uint) error
}

type walletRepository struct {
	db *gorm.DB
}

// NewWalletRepository creates a new wallet repository
func NewWalletRepository(db *gorm.DB) WalletRepository {
	return &walletRepository{db: db}
}

func (r *walletRepository) conn(ctx context.Context) *gorm.DB {
	return dbFrom(ctx, r.db)
}

func (r *walletRepository) CreateWalletHistory(ctx context.Context, history *models.CustomerWalletHistory) error {
	return r.conn(ctx).Create(history).Error
}

// LastWalletHistoryByReason returns the most recent wallet history row with
// the given reason, or nil when none exists. loanID is optional (0 = any).
func (r *walletRepository) LastWalletHistoryByReason(ctx context.Context, customerID uint, loanID uint, reason string) (*models.CustomerWalletHistory, error) {
	var history models.CustomerWalletHistory
	q := r.conn(ctx).
		Where("customer_id = ? AND change_reason = ?", customerID, reason)
	if loanID != 0 {
		q = q.Where("loan_id = ?", loanID)
	}
	err := q.Order("created_at DESC, id DESC").First(&history).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &history, nil
}

func (r *walletRepository) CreateCounterHistory(ctx context.Context, history *models.CashbackCounterHistory) error {
	return r.conn(ctx).Create(history).Error
}

// LastCounterByPayment returns the payment's most recent counter entry, or
// nil when the payment never moved the counter.
func (r *walletRepository) LastCounterByPayment(ctx context.Context, paymentID uint) (*models.CashbackCounterHistory, error) {
	var history models.CashbackCounterHistory
	err := r.conn(ctx).
		Where("payment_id = ?", paymentID).
		Order("created_at DESC, id DESC").
		First(&history).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &history, nil
}

// LastCounterByAccount returns the account's most recent counter entry
// across all of its payments, or nil when the counter never moved.
func (r *walletRepository) LastCounterByAccount(ctx context.Context, accountID uint) (*models.CashbackCounterHistory, error) {
	var history models.CashbackCounterHistory
	err := r.conn(ctx).
		Where("account_id = ?", accountID).
		Order("created_at DESC, id DESC").
		First(&history).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &history, nil
}

// LastSiblingCounters returns, for each of the account's other account
// payments, its most recent counter entry. Drives the hold-at-ceiling rule.
func (r *walletRepository) LastSiblingCounters(ctx context.Context, accountID uint, excludeAccountPaymentID uint) ([]models.CashbackCounterHistory, error) {
	var histories []models.CashbackCounterHistory
	err := r.conn(ctx).
		Raw(`SELECT DISTINCT ON (account_payment_id) *
			 FROM cashback_counter_histories
			 WHERE account_id = ? AND account_payment_id <> ?
			 ORDER BY account_payment_id, created_at DESC, id DESC`,
			accountID, excludeAccountPaymentID).
		Scan(&histories).Error
	return histories, err
}

// HasClaimRows reports whether the cashback claim experiment has any state
// for the account as of the given date.
func (r *walletRepository) HasClaimRows(ctx context.Context, accountID uint, onOrBefore time.Time) (bool, error) {
	var count int64
	err := r.conn(ctx).
		Model(&models.CashbackClaimPayment{}).
		Joins("JOIN account_payments ON account_payments.id = cashback_claim_payments.account_payment_id").
		Where("account_payments.account_id = ? AND cashback_claim_payments.created_at <= ?", accountID, onOrBefore).
		Count(&count).Error
	return count > 0, err
}

func (r *walletRepository) VoidClaimByPayment(ctx context.Context, paymentID uint) error {
	return r.conn(ctx).
		Model(&models.CashbackClaimPayment{}).
		Where("payment_id = ? AND status <> ?", paymentID, models.CashbackClaimStatusVoided).
		Update("status", models.CashbackClaimStatusVoided).Error
}

func (r *walletRepository) VoidClaimsByAccountPayments(ctx context.Context, accountPaymentIDs []uint) error {
	if len(accountPaymentIDs) == 0 {
		return nil
	}
	return r.conn(ctx).
		Model(&models.CashbackClaimPayment{}).
		Where("account_payment_id IN ? AND status <> ?", accountPaymentIDs, models.CashbackClaimStatusVoided).
		Update("status", models.CashbackClaimStatusVoided).Error
}
