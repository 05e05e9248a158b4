// Файл: internal/repositories/task-repository_test.go
package repositories

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"company-management/internal/dto"
	"company-management/internal/entities"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestTaskRepositoryUpdateEncodesPatch(t *testing.T) {
	var gotPath, gotAuth string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.RequestURI()
		gotAuth = r.Header.Get("Authorization")
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	api := NewAPIClient(srv.URL, "test-token", zap.NewNop())
	repo := NewTaskRepository(api, zap.NewNop())

	status := "IN_PROGRESS"
	stars := 4
	require.NoError(t, repo.Update(context.Background(), 7,
		dto.UpdateTaskDTO{Status: &status, Stars: &stars}))

	assert.Equal(t, "/tasks/7?stars=4&status=IN_PROGRESS", gotPath)
	assert.Equal(t, "Bearer test-token", gotAuth)
}

func TestTaskRepositoryUpdateNon2xxIsFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	api := NewAPIClient(srv.URL, "t", zap.NewNop())
	repo := NewTaskRepository(api, zap.NewNop())

	status := "DONE"
	assert.Error(t, repo.Update(context.Background(), 1, dto.UpdateTaskDTO{Status: &status}))
}

func TestChatRepositoryEscapesIdentities(t *testing.T) {
	var gotPath string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.EscapedPath()
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`[{"id":1,"senderId":"a@b.c","recipientId":"d@e.f","content":"hi"}]`))
	}))
	defer srv.Close()

	api := NewAPIClient(srv.URL, "t", zap.NewNop())
	repo := NewChatRepository(api, zap.NewNop())

	history, err := repo.GetHistory(context.Background(), "a@b.c", "d@e.f")
	require.NoError(t, err)
	require.Len(t, history, 1)
	assert.Equal(t, entities.ChatMessage{
		ID: 1, SenderID: "a@b.c", RecipientID: "d@e.f", Content: "hi",
	}, history[0])
	assert.Equal(t, "/messages/a@b.c/d@e.f", gotPath)
}
