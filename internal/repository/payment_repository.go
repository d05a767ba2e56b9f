package repository

import (
	"context"

	"github.com/sajinavi2006/servicing-api/internal/models"

	"gorm.io/gorm"
)

// PaymentRepository defines the interface for payment data access
type PaymentRepository interface {
	FindByID(ctx context.Context, id uint) (*models.Payment, error)
	FindByAccountPayment(ctx context.Context, accountPaymentID uint) ([]models.Payment, error)
	FindByLoan(ctx context.Context, loanID uint) ([]models.Payment, error)
	Update(ctx context.Context, payment *models.Payment) error
	CreateNote(ctx context.Context, note *models.PaymentNote) error
	CreateStatusHistory(ctx context.Context, history *models.PaymentStatusHistory) error
}

type paymentRepository struct {
	db *gorm.DB
}

// NewPaymentRepository creates a new payment repository
func NewPaymentRepository(db *gorm.DB) PaymentRepository {
	return &paymentRepository{db: db}
}

func (r *paymentRepository) conn(ctx context.Context) *gorm.DB {
	return dbFrom(ctx, r.db)
}

func (r *paymentRepository) FindByID(ctx context.Context, id uint) (*models.Payment, error) {
	var payment models.Payment
	err := r.conn(ctx).
		Preload("Loan").
		First(&payment, id).Error
	if err != nil {
		return nil, err
	}
	return &payment, nil
}

// FindByAccountPayment returns the payments of one account payment, ordered
// the way the repayment engine applied them (oldest loan first).
func (r *paymentRepository) FindByAccountPayment(ctx context.Context, accountPaymentID uint) ([]models.Payment, error) {
	var payments []models.Payment
	err := r.conn(ctx).
		Preload("Loan").
		Where("account_payment_id = ?", accountPaymentID).
		Order("loan_id ASC, payment_number ASC").
		Find(&payments).Error
	return payments, err
}

func (r *paymentRepository) FindByLoan(ctx context.Context, loanID uint) ([]models.Payment, error) {
	var payments []models.Payment
	err := r.conn(ctx).
		Where("loan_id = ?", loanID).
		Order("payment_number ASC").
		Find(&payments).Error
	return payments, err
}

func (r *paymentRepository) Update(ctx context.Context, payment *models.Payment) error {
	return r.conn(ctx).Save(payment).Error
}

func (r *paymentRepository) CreateNote(ctx context.Context, note *models.PaymentNote) error {
	return r.conn(ctx).Create(note).Error
}

func (r *paymentRepository) CreateStatusHistory(ctx context.Context, history *models.PaymentStatusHistory) error {
	return r.conn(ctx).Create(history).Error
}
