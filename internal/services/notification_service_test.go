// Файл: internal/services/notification_service_test.go
package services

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"company-management/internal/entities"
	appsync "company-management/internal/sync"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type fakeNotificationRepo struct {
	mu       sync.Mutex
	all      []entities.Notification
	allErr   error
	markErr  error
	marked   []uint64
	markDone chan uint64
	// gate, если задан, держит GetAll "в полете" до закрытия канала.
	gate chan struct{}
}

func newFakeNotificationRepo() *fakeNotificationRepo {
	return &fakeNotificationRepo{markDone: make(chan uint64, 8)}
}

func (r *fakeNotificationRepo) GetAll(ctx context.Context) ([]entities.Notification, error) {
	if r.gate != nil {
		<-r.gate
	}
	if r.allErr != nil {
		return nil, r.allErr
	}
	return r.all, nil
}

func (r *fakeNotificationRepo) MarkRead(ctx context.Context, id uint64) error {
	r.mu.Lock()
	r.marked = append(r.marked, id)
	r.mu.Unlock()
	r.markDone <- id
	return r.markErr
}

func pushEvent(t *testing.T, topic string, id string, payload interface{}) entities.Event {
	t.Helper()
	raw, err := json.Marshal(payload)
	require.NoError(t, err)
	return entities.Event{ID: id, Topic: topic, Payload: raw, ReceivedAt: time.Now()}
}

func TestNotificationLoadInitialSortsAndMarksSeen(t *testing.T) {
	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	repo := newFakeNotificationRepo()
	repo.all = []entities.Notification{
		{ID: 1, Type: entities.NotificationTypeTask, Message: "старое", Timestamp: base},
		{ID: 2, Type: entities.NotificationTypePayroll, Message: "новое", Timestamp: base.Add(time.Hour)},
	}

	dedup := appsync.NewMemoryDedup(0, zap.NewNop())
	topic := appsync.NotificationsTopic("alice@economit.io")
	svc := NewNotificationService(repo, dedup, topic, zap.NewNop())

	svc.LoadInitial(context.Background())

	list := svc.Notifications()
	require.Len(t, list, 2)
	// Свежие сверху.
	assert.Equal(t, uint64(2), list[0].ID)
	assert.Equal(t, uint64(1), list[1].ID)

	// Загруженные id помечены "виденными": эхо по каналу будет подавлено.
	assert.True(t, dedup.Seen(topic, appsync.NotificationEventID(1)))
	assert.True(t, dedup.Seen(topic, appsync.NotificationEventID(2)))
}

func TestNotificationLoadInitialMergesLivePush(t *testing.T) {
	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	repo := newFakeNotificationRepo()
	repo.all = []entities.Notification{
		{ID: 1, Type: entities.NotificationTypeEvent, Message: "из загрузки", Timestamp: base},
		{ID: 2, Type: entities.NotificationTypeChat, Message: "из загрузки", Timestamp: base.Add(time.Hour)},
	}

	dedup := appsync.NewMemoryDedup(0, zap.NewNop())
	topic := appsync.NotificationsTopic("alice@economit.io")
	svc := NewNotificationService(repo, dedup, topic, zap.NewNop())

	// Запись 2 успела прийти живым каналом, пока REST-ответ был в полете:
	// конвейер уже отметил ее id и применил запись в проекцию.
	require.True(t, dedup.Observe(topic, appsync.NotificationEventID(2)))
	svc.OnPush(pushEvent(t, topic, appsync.NotificationEventID(2), entities.Notification{
		ID: 2, Type: "CHAT", Message: "живое", Timestamp: base.Add(time.Hour),
	}))

	svc.LoadInitial(context.Background())

	// Загрузка дослала недостающее, но не затерла уже примененное
	// и не задвоила запись 2.
	list := svc.Notifications()
	require.Len(t, list, 2)
	assert.Equal(t, uint64(2), list[0].ID)
	assert.Equal(t, "живое", list[0].Message)
	assert.Equal(t, uint64(1), list[1].ID)
}

func TestNotificationLoadInitialFailureLeavesEmpty(t *testing.T) {
	repo := newFakeNotificationRepo()
	repo.allErr = errors.New("503")
	svc := NewNotificationService(repo, appsync.NewMemoryDedup(0, zap.NewNop()), "t", zap.NewNop())

	svc.LoadInitial(context.Background())

	assert.Empty(t, svc.Notifications())
	assert.Zero(t, svc.UnreadCount())
}

func TestNotificationOnPushPrependsAndCountsUnread(t *testing.T) {
	repo := newFakeNotificationRepo()
	repo.all = []entities.Notification{
		{ID: 1, Message: "история", Read: true, Timestamp: time.Now().Add(-time.Hour)},
	}
	svc := NewNotificationService(repo, appsync.NewMemoryDedup(0, zap.NewNop()), "t", zap.NewNop())
	svc.LoadInitial(context.Background())

	svc.OnPush(pushEvent(t, "t", "notification-2", entities.Notification{
		ID: 2, Type: "TASK", Message: "You have a new task", Timestamp: time.Now(),
	}))

	list := svc.Notifications()
	require.Len(t, list, 2)
	assert.Equal(t, uint64(2), list[0].ID)
	// Инвариант: счетчик всегда равен числу непрочитанных в списке.
	assert.Equal(t, 1, svc.UnreadCount())
}

func TestNotificationOnPushUnknownTypeFallsBack(t *testing.T) {
	repo := newFakeNotificationRepo()
	svc := NewNotificationService(repo, appsync.NewMemoryDedup(0, zap.NewNop()), "t", zap.NewNop())

	svc.OnPush(pushEvent(t, "t", "notification-3", map[string]interface{}{
		"id": 3, "type": "SOMETHING_NEW", "message": "x",
	}))

	list := svc.Notifications()
	require.Len(t, list, 1)
	assert.Equal(t, entities.NotificationTypeOther, list[0].Type)
}

func TestNotificationMarkRead(t *testing.T) {
	repo := newFakeNotificationRepo()
	repo.all = []entities.Notification{
		{ID: 1, Message: "a"},
		{ID: 2, Message: "b"},
	}
	svc := NewNotificationService(repo, appsync.NewMemoryDedup(0, zap.NewNop()), "t", zap.NewNop())
	svc.LoadInitial(context.Background())
	require.Equal(t, 2, svc.UnreadCount())

	svc.MarkRead(1)
	assert.Equal(t, 1, svc.UnreadCount())

	select {
	case id := <-repo.markDone:
		assert.Equal(t, uint64(1), id)
	case <-time.After(time.Second):
		t.Fatal("commit пометки не отправлен")
	}

	// Повторная пометка и неизвестный id — no-op, без второго commit.
	svc.MarkRead(1)
	svc.MarkRead(99)
	select {
	case <-repo.markDone:
		t.Fatal("лишний commit")
	case <-time.After(50 * time.Millisecond):
	}
}

func TestNotificationMarkReadFailureKeepsLocalState(t *testing.T) {
	repo := newFakeNotificationRepo()
	repo.all = []entities.Notification{{ID: 1, Message: "a"}}
	repo.markErr = errors.New("500")
	svc := NewNotificationService(repo, appsync.NewMemoryDedup(0, zap.NewNop()), "t", zap.NewNop())
	svc.LoadInitial(context.Background())

	svc.MarkRead(1)
	<-repo.markDone

	// Отката нет: локально запись остается прочитанной.
	assert.Zero(t, svc.UnreadCount())
	assert.True(t, svc.Notifications()[0].Read)
}
