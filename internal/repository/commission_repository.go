package repository

import (
	"context"
	"errors"

	"github.com/sajinavi2006/servicing-api/internal/models"

	"gorm.io/gorm"
)

// CommissionRepository defines the interface for commission lookup and
// void split data access
type CommissionRepository interface {
	FindMatch(ctx context.Context, accountID, accountPaymentID uint, creditedAmount int64) (*models.CommissionLookup, error)
	Update(ctx context.Context, lookup *models.CommissionLookup) error
	CreateVoidSplit(ctx context.Context, split *models.CommissionVoidSplit) error
}

type commissionRepository struct {
	db *gorm.DB
}

// NewCommissionRepository creates a new commission repository
func NewCommissionRepository(db *gorm.DB) CommissionRepository {
	return &commissionRepository{db: db}
}

func (r *commissionRepository) conn(ctx context.Context) *gorm.DB {
	return dbFrom(ctx, r.db)
}

// FindMatch returns the commission row credited for the given obligation and
// amount, or nil when no commission was earned on it.
func (r *commissionRepository) FindMatch(ctx context.Context, accountID, accountPaymentID uint, creditedAmount int64) (*models.CommissionLookup, error) {
	var lookup models.CommissionLookup
	err := r.conn(ctx).
		Where("account_id = ? AND account_payment_id = ? AND credited_amount = ?",
			accountID, accountPaymentID, creditedAmount).
		Order("created_at DESC").
		First(&lookup).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &lookup, nil
}

func (r *commissionRepository) Update(ctx context.Context, lookup *models.CommissionLookup) error {
	return r.conn(ctx).Save(lookup).Error
}

func (r *commissionRepository) CreateVoidSplit(ctx context.Context, split *models.CommissionVoidSplit) error {
	return r.conn(ctx).Create(split).Error
}
