// Файл: internal/repositories/notification-repository.go
package repositories

import (
	"context"
	"fmt"

	"company-management/internal/entities"

	"go.uber.org/zap"
)

type NotificationRepositoryInterface interface {
	// GetAll — разовая начальная загрузка списка уведомлений.
	GetAll(ctx context.Context) ([]entities.Notification, error)
	// MarkRead — commit-запрос пометки прочитанным.
	MarkRead(ctx context.Context, id uint64) error
}

type NotificationRepository struct {
	api    *APIClient
	logger *zap.Logger
}

func NewNotificationRepository(api *APIClient, logger *zap.Logger) NotificationRepositoryInterface {
	return &NotificationRepository{api: api, logger: logger}
}

func (r *NotificationRepository) GetAll(ctx context.Context) ([]entities.Notification, error) {
	var list []entities.Notification
	if err := r.api.get(ctx, "/notifications", &list); err != nil {
		return nil, err
	}
	return list, nil
}

func (r *NotificationRepository) MarkRead(ctx context.Context, id uint64) error {
	return r.api.patch(ctx, fmt.Sprintf("/notifications/%d/read", id))
}
