package repository

import (
	"context"

	"github.com/sajinavi2006/servicing-api/internal/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// AccountPaymentRepository defines the interface for account payment data
// access. LockForUpdate is the explicit pessimistic lock the reversal engine
// takes before mutating an account payment and its constituent payments.
type AccountPaymentRepository interface {
	FindByID(ctx context.Context, id uint) (*models.AccountPayment, error)
	LockForUpdate(ctx context.Context, id uint) (*models.AccountPayment, error)
	FindByAccount(ctx context.Context, accountID uint) ([]models.AccountPayment, error)
	FindOldestUnpaid(ctx context.Context, accountID uint) (*models.AccountPayment, error)
	Update(ctx context.Context, accountPayment *models.AccountPayment) error
	CreateStatusHistory(ctx context.Context, history *models.AccountPaymentStatusHistory) error
}

type accountPaymentRepository struct {
	db *gorm.DB
}

// NewAccountPaymentRepository creates a new account payment repository
func NewAccountPaymentRepository(db *gorm.DB) AccountPaymentRepository {
	return &accountPaymentRepository{db: db}
}

func (r *accountPaymentRepository) conn(ctx context.Context) *gorm.DB {
	return dbFrom(ctx, r.db)
}

func (r *accountPaymentRepository) FindByID(ctx context.Context, id uint) (*models.AccountPayment, error) {
	var ap models.AccountPayment
	err := r.conn(ctx).First(&ap, id).Error
	if err != nil {
		return nil, err
	}
	return &ap, nil
}

// LockForUpdate loads the account payment under SELECT ... FOR UPDATE. The
// row lock is released when the enclosing transaction commits or rolls back.
func (r *accountPaymentRepository) LockForUpdate(ctx context.Context, id uint) (*models.AccountPayment, error) {
	var ap models.AccountPayment
	err := r.conn(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		First(&ap, id).Error
	if err != nil {
		return nil, err
	}
	return &ap, nil
}

func (r *accountPaymentRepository) FindByAccount(ctx context.Context, accountID uint) ([]models.AccountPayment, error) {
	var aps []models.AccountPayment
	err := r.conn(ctx).
		Where("account_id = ?", accountID).
		Order("due_date ASC").
		Find(&aps).Error
	return aps, err
}

// FindOldestUnpaid returns the account's oldest account payment that still
// has something outstanding, or gorm.ErrRecordNotFound.
func (r *accountPaymentRepository) FindOldestUnpaid(ctx context.Context, accountID uint) (*models.AccountPayment, error) {
	var ap models.AccountPayment
	err := r.conn(ctx).
		Where("account_id = ? AND due_amount > 0", accountID).
		Order("due_date ASC").
		First(&ap).Error
	if err != nil {
		return nil, err
	}
	return &ap, nil
}

func (r *accountPaymentRepository) Update(ctx context.Context, accountPayment *models.AccountPayment) error {
	return r.conn(ctx).Save(accountPayment).Error
}

func (r *accountPaymentRepository) CreateStatusHistory(ctx context.Context, history *models.AccountPaymentStatusHistory) error {
	return r.conn(ctx).Create(history).Error
}
