package repository

import (
	"context"

	"github.com/sajinavi2006/servicing-api/internal/models"

	"gorm.io/gorm"
)

// CollectionRepository defines the interface for the collection store.
// All methods run against the collection database, not the primary ledger.
type CollectionRepository interface {
	DeleteQueueItems(ctx context.Context, accountPaymentID uint) error
	UpsertRiskBucket(ctx context.Context, bucket *models.CollectionRiskBucket) error
	FindRiskBucket(ctx context.Context, accountID uint) (*models.CollectionRiskBucket, error)
}

type collectionRepository struct {
	db *gorm.DB
}

// NewCollectionRepository creates a new collection repository bound to the
// collection database connection
func NewCollectionRepository(db *gorm.DB) CollectionRepository {
	return &collectionRepository{db: db}
}

func (r *collectionRepository) conn(ctx context.Context) *gorm.DB {
	return collectionDBFrom(ctx, r.db)
}

// DeleteQueueItems removes the account payment's entries from the dialer
// queue. Called when a reversal reopens an obligation so agents re-pull it
// with fresh amounts.
func (r *collectionRepository) DeleteQueueItems(ctx context.Context, accountPaymentID uint) error {
	return r.conn(ctx).
		Where("account_payment_id = ?", accountPaymentID).
		Delete(&models.CollectionQueueItem{}).Error
}

func (r *collectionRepository) UpsertRiskBucket(ctx context.Context, bucket *models.CollectionRiskBucket) error {
	var existing models.CollectionRiskBucket
	err := r.conn(ctx).Where("account_id = ?", bucket.AccountID).First(&existing).Error
	if err == gorm.ErrRecordNotFound {
		return r.conn(ctx).Create(bucket).Error
	}
	if err != nil {
		return err
	}
	existing.Bucket = bucket.Bucket
	existing.DPD = bucket.DPD
	existing.OutstandingAmount = bucket.OutstandingAmount
	return r.conn(ctx).Save(&existing).Error
}

func (r *collectionRepository) FindRiskBucket(ctx context.Context, accountID uint) (*models.CollectionRiskBucket, error) {
	var bucket models.CollectionRiskBucket
	if err := r.conn(ctx).Where("account_id = ?", accountID).First(&bucket).Error; err != nil {
		return nil, err
	}
	return &bucket, nil
}
