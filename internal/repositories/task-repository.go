// Файл: internal/repositories/task-repository.go
package repositories

import (
	"context"
	"fmt"
	"net/url"
	"strconv"

	"company-management/internal/dto"
	"company-management/internal/entities"

	"go.uber.org/zap"
)

type TaskRepositoryInterface interface {
	// GetAll — начальная загрузка доски.
	GetAll(ctx context.Context) ([]entities.Task, error)
	// Update — commit-запрос оптимистичной мутации: status и/или stars
	// уходят query-параметрами (контракт PATCH /tasks/{id}).
	Update(ctx context.Context, id uint64, patch dto.UpdateTaskDTO) error
}

type TaskRepository struct {
	api    *APIClient
	logger *zap.Logger
}

func NewTaskRepository(api *APIClient, logger *zap.Logger) TaskRepositoryInterface {
	return &TaskRepository{api: api, logger: logger}
}

func (r *TaskRepository) GetAll(ctx context.Context) ([]entities.Task, error) {
	var list []entities.Task
	if err := r.api.get(ctx, "/tasks", &list); err != nil {
		return nil, err
	}
	return list, nil
}

func (r *TaskRepository) Update(ctx context.Context, id uint64, patch dto.UpdateTaskDTO) error {
	q := url.Values{}
	if patch.Status != nil {
		q.Set("status", *patch.Status)
	}
	if patch.Stars != nil {
		q.Set("stars", strconv.Itoa(*patch.Stars))
	}
	path := fmt.Sprintf("/tasks/%d", id)
	if encoded := q.Encode(); encoded != "" {
		path += "?" + encoded
	}
	return r.api.patch(ctx, path)
}
