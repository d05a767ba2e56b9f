package models

import (
	"time"
)

// Collection-store models. These rows live in the secondary collection
// database used by the collections tooling, not in the primary ledger store.

// CollectionQueueItem is an account payment queued for collector follow-up.
// Reversal removes the entries of the account payments it touched so agents
// do not chase a balance that just changed under them.
type CollectionQueueItem struct {
	ID               uint      `gorm:"primaryKey" json:"id"`
	AccountID        uint      `gorm:"not null;index" json:"account_id"`
	AccountPaymentID uint      `gorm:"not null;index" json:"account_payment_id"`
	Bucket           string    `gorm:"size:30;not null;index" json:"bucket"`
	CreatedAt        time.Time `json:"created_at"`
}

// TableName specifies the table name for CollectionQueueItem
func (CollectionQueueItem) TableName() string {
	return "collection_queue_items"
}

// CollectionRiskBucket is the per-account risk bucket used for
// first-installment collection prioritization. Recomputed after reversals.
type CollectionRiskBucket struct {
	ID                uint      `gorm:"primaryKey" json:"id"`
	AccountID         uint      `gorm:"not null;uniqueIndex" json:"account_id"`
	Bucket            string    `gorm:"size:30;not null" json:"bucket"`
	DPD               int       `gorm:"not null;default:0" json:"dpd"`
	OutstandingAmount int64     `gorm:"not null;default:0" json:"outstanding_amount"`
	UpdatedAt         time.Time `json:"updated_at"`
	CreatedAt         time.Time `json:"created_at"`
}

// TableName specifies the table name for CollectionRiskBucket
func (CollectionRiskBucket) TableName() string {
	return "collection_risk_buckets"
}
