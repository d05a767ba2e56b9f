package repository

import (
	"context"

	"github.com/sajinavi2006/servicing-api/internal/models"

	"gorm.io/gorm"
)

// PTPRepository defines the interface for promise-to-pay data access
type PTPRepository interface {
	FindByAccountPayment(ctx context.Context, accountPaymentID uint) ([]models.PTP, error)
	FindActiveByAccountPayment(ctx context.Context, accountPaymentID uint) ([]models.PTP, error)
	Update(ctx context.Context, ptp *models.PTP) error
}

type ptpRepository struct {
	db *gorm.DB
}

// NewPTPRepository creates a new PTP repository
func NewPTPRepository(db *gorm.DB) PTPRepository {
	return &ptpRepository{db: db}
}

func (r *ptpRepository) conn(ctx context.Context) *gorm.DB {
	return dbFrom(ctx, r.db)
}

func (r *ptpRepository) FindByAccountPayment(ctx context.Context, accountPaymentID uint) ([]models.PTP, error) {
	var ptps []models.PTP
	err := r.conn(ctx).
		Where("account_payment_id = ?", accountPaymentID).
		Order("ptp_date DESC").
		Find(&ptps).Error
	return ptps, err
}

func (r *ptpRepository) FindActiveByAccountPayment(ctx context.Context, accountPaymentID uint) ([]models.PTP, error) {
	var ptps []models.PTP
	err := r.conn(ctx).
		Where("account_payment_id = ? AND ptp_status IS NOT NULL", accountPaymentID).
		Order("ptp_date DESC").
		Find(&ptps).Error
	return ptps, err
}

func (r *ptpRepository) Update(ctx context.Context, ptp *models.PTP) error {
	return r.conn(ctx).Save(ptp).Error
}
