// Файл: internal/repositories/chat-repository.go
package repositories

import (
	"context"
	"fmt"
	"net/url"

	"company-management/internal/entities"

	"go.uber.org/zap"
)

type ChatRepositoryInterface interface {
	// GetHistory — разовая загрузка истории переписки пары (self, peer).
	GetHistory(ctx context.Context, selfID, peerID string) ([]entities.ChatMessage, error)
}

type ChatRepository struct {
	api    *APIClient
	logger *zap.Logger
}

func NewChatRepository(api *APIClient, logger *zap.Logger) ChatRepositoryInterface {
	return &ChatRepository{api: api, logger: logger}
}

func (r *ChatRepository) GetHistory(ctx context.Context, selfID, peerID string) ([]entities.ChatMessage, error) {
	path := fmt.Sprintf("/messages/%s/%s", url.PathEscape(selfID), url.PathEscape(peerID))
	var list []entities.ChatMessage
	if err := r.api.get(ctx, path, &list); err != nil {
		return nil, err
	}
	return list, nil
}
