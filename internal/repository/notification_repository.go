package repository

import (
	"context"
	"time"

	"github.com/sajinavi2006/servicing-api/internal/models"

	"gorm.io/gorm"
)

// NotificationRepository defines the interface for notification data access
type NotificationRepository interface {
	Create(ctx context.Context, notification *models.Notification) error
	FindByCustomer(ctx context.Context, customerID uint, limit int) ([]models.Notification, error)
	MarkRead(ctx context.Context, id uint) error
}

type notificationRepository struct {
	db *gorm.DB
}

// NewNotificationRepository creates a new notification repository
func NewNotificationRepository(db *gorm.DB) NotificationRepository {
	return &notificationRepository{db: db}
}

func (r *notificationRepository) conn(ctx context.Context) *gorm.DB {
	return dbFrom(ctx, r.db)
}

func (r *notificationRepository) Create(ctx context.Context, notification *models.Notification) error {
	return r.conn(ctx).Create(notification).Error
}

func (r *notificationRepository) FindByCustomer(ctx context.Context, customerID uint, limit int) ([]models.Notification, error) {
	var notifications []models.Notification
	q := r.conn(ctx).
		Where("customer_id = ?", customerID).
		Order("created_at DESC")
	if limit > 0 {
		q = q.Limit(limit)
	}
	err := q.Find(&notifications).Error
	return notifications, err
}

func (r *notificationRepository) MarkRead(ctx context.Context, id uint) error {
	return r.conn(ctx).
		Model(&models.Notification{}).
		Where("id = ?", id).
		Update("read_at", time.Now()).Error
}
