package services

import (
	"context"

	"github.com/sajinavi2006/servicing-api/internal/models"
	"github.com/sajinavi2006/servicing-api/internal/repository"
)

type NotificationService struct {
	repo repository.NotificationRepository
}

func NewNotificationService(repo repository.NotificationRepository) *NotificationService {
	return &NotificationService{repo: repo}
}

func (s *NotificationService) FindByCustomer(ctx context.Context, customerID uint, limit int) ([]models.Notification, error) {
	return s.repo.FindByCustomer(ctx, customerID, limit)
}

func (s *NotificationService) MarkAsRead(ctx context.Context, id uint) error {
	return s.repo.MarkRead(ctx, id)
}

func (s *NotificationService) NotifyCustomer(ctx context.Context, customerID uint, title, message, notifType string) error {
	notification := &models.Notification{
		CustomerID:       customerID,
		Title:            title,
		Message:          message,
		NotificationType: &notifType,
	}
	return s.repo.Create(ctx, notification)
}
