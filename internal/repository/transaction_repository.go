package repository

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/sajinavi2006/servicing-api/internal/models"

	"gorm.io/gorm"
)

// ErrDuplicateReversal is returned when a reversal transaction for the same
// origin already exists (unique constraint on reversal linkage).
var ErrDuplicateReversal = errors.New("reversal transaction already exists")

// TransactionRepository defines the interface for account transaction and
// payment event data access
type TransactionRepository interface {
	FindByID(ctx context.Context, id uint) (*models.AccountTransaction, error)
	Create(ctx context.Context, transaction *models.AccountTransaction) error
	Update(ctx context.Context, transaction *models.AccountTransaction) error
	FindByAccount(ctx context.Context, accountID uint) ([]models.AccountTransaction, error)
	FindReversibleNewerThan(ctx context.Context, accountID uint, after time.Time, types []string) ([]models.AccountTransaction, error)
	FindEvents(ctx context.Context, transactionID uint) ([]models.PaymentEvent, error)
	FindEventsByPayment(ctx context.Context, paymentID uint) ([]models.PaymentEvent, error)
	CreateEvent(ctx context.Context, event *models.PaymentEvent) error
	AttachEvents(ctx context.Context, eventIDs []uint, transactionID uint) error
	SumEventsInWindow(ctx context.Context, accountPaymentID uint, eventType string, from, to time.Time) (int64, error)
}

type transactionRepository struct {
	db *gorm.DB
}

// NewTransactionRepository creates a new transaction repository
func NewTransactionRepository(db *gorm.DB) TransactionRepository {
	return &transactionRepository{db: db}
}

func (r *transactionRepository) conn(ctx context.Context) *gorm.DB {
	return dbFrom(ctx, r.db)
}

func (r *transactionRepository) FindByID(ctx context.Context, id uint) (*models.AccountTransaction, error) {
	var tx models.AccountTransaction
	err := r.conn(ctx).First(&tx, id).Error
	if err != nil {
		return nil, err
	}
	return &tx, nil
}

func (r *transactionRepository) Create(ctx context.Context, transaction *models.AccountTransaction) error {
	if err := r.conn(ctx).Create(transaction).Error; err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return ErrDuplicateReversal
		}
		return err
	}
	return nil
}

func (r *transactionRepository) Update(ctx context.Context, transaction *models.AccountTransaction) error {
	return r.conn(ctx).Save(transaction).Error
}

func (r *transactionRepository) FindByAccount(ctx context.Context, accountID uint) ([]models.AccountTransaction, error) {
	var txs []models.AccountTransaction
	err := r.conn(ctx).
		Where("account_id = ?", accountID).
		Order("created_at DESC").
		Find(&txs).Error
	return txs, err
}

// FindReversibleNewerThan returns the account's still-reversible
// transactions of the given types created after the given time, newest
// first. This is the chained-reversal dependency scan.
func (r *transactionRepository) FindReversibleNewerThan(ctx context.Context, accountID uint, after time.Time, types []string) ([]models.AccountTransaction, error) {
	var txs []models.AccountTransaction
	err := r.conn(ctx).
		Where("account_id = ? AND created_at > ? AND can_reverse = ? AND transaction_type IN ?",
			accountID, after, true, types).
		Order("created_at DESC").
		Find(&txs).Error
	return txs, err
}

func (r *transactionRepository) FindEvents(ctx context.Context, transactionID uint) ([]models.PaymentEvent, error) {
	var events []models.PaymentEvent
	err := r.conn(ctx).
		Preload("Payment").
		Where("account_transaction_id = ?", transactionID).
		Order("id ASC").
		Find(&events).Error
	return events, err
}

func (r *transactionRepository) FindEventsByPayment(ctx context.Context, paymentID uint) ([]models.PaymentEvent, error) {
	var events []models.PaymentEvent
	err := r.conn(ctx).
		Where("payment_id = ?", paymentID).
		Order("id ASC").
		Find(&events).Error
	return events, err
}

func (r *transactionRepository) CreateEvent(ctx context.Context, event *models.PaymentEvent) error {
	return r.conn(ctx).Create(event).Error
}

// AttachEvents reparents already-created void events onto the reversal
// transaction. The events themselves are otherwise immutable.
func (r *transactionRepository) AttachEvents(ctx context.Context, eventIDs []uint, transactionID uint) error {
	if len(eventIDs) == 0 {
		return nil
	}
	return r.conn(ctx).
		Model(&models.PaymentEvent{}).
		Where("id IN ?", eventIDs).
		Update("account_transaction_id", transactionID).Error
}

// SumEventsInWindow sums event_payment over the account payment's events of
// one type within [from, to]. Used by the PTP adjuster to recompute whether
// a promise is still satisfied net of voids.
func (r *transactionRepository) SumEventsInWindow(ctx context.Context, accountPaymentID uint, eventType string, from, to time.Time) (int64, error) {
	var result struct {
		Total int64
	}
	err := r.conn(ctx).
		Model(&models.PaymentEvent{}).
		Select("COALESCE(SUM(payment_events.event_payment), 0) as total").
		Joins("JOIN payments ON payments.id = payment_events.payment_id").
		Where("payments.account_payment_id = ? AND payment_events.event_type = ? AND payment_events.event_date BETWEEN ? AND ?",
			accountPaymentID, eventType, from, to).
		Scan(&result).Error
	return result.Total, err
}
