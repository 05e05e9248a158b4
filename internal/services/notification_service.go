// Файл: internal/services/notification_service.go
package services

import (
	"context"
	"encoding/json"
	"sort"
	"sync"
	"time"

	"company-management/internal/entities"
	"company-management/internal/repositories"
	appsync "company-management/internal/sync"
	apperrors "company-management/pkg/errors"

	"go.uber.org/zap"
)

type NotificationServiceInterface interface {
	LoadInitial(ctx context.Context)
	OnPush(event entities.Event)
	MarkRead(id uint64)
	Notifications() []entities.Notification
	UnreadCount() int
}

// NotificationService — проекция "колокольчика": упорядоченный список
// уведомлений (свежие сверху) и производный счетчик непрочитанных.
// Счетчик нигде не хранится — он всегда вычисляется из списка, чтобы
// исключить целый класс багов рассинхронизации производного состояния.
type NotificationService struct {
	mu   sync.Mutex
	list []entities.Notification

	repo   repositories.NotificationRepositoryInterface
	dedup  appsync.Deduplicator
	topic  string
	logger *zap.Logger
}

func NewNotificationService(
	repo repositories.NotificationRepositoryInterface,
	dedup appsync.Deduplicator,
	topic string,
	logger *zap.Logger,
) *NotificationService {
	return &NotificationService{
		repo:   repo,
		dedup:  dedup,
		topic:  topic,
		logger: logger,
	}
}

// LoadInitial сидирует список разовой REST-загрузкой. Загрузка СЛИВАЕТСЯ
// с уже примененными live-уведомлениями, а не заменяет их: канал
// устанавливается до загрузки, и пока REST-ответ в полете, по подписке
// может прийти запись, которой в этом ответе еще нет — затереть ее
// устаревшим срезом значило бы потерять событие насовсем (его id уже
// отмечен в окне дедупликации, и повторную доставку мы сами подавим).
// Каждый id из ответа помечается "виденным"; false от Observe означает,
// что запись уже прошла живым каналом и в списке есть.
// Неудача загрузки оставляет проекцию как есть — живой канал продолжит
// наполнять ее дальше.
func (s *NotificationService) LoadInitial(ctx context.Context) {
	fetched, err := s.repo.GetAll(ctx)
	if err != nil {
		s.logger.Warn("Начальная загрузка уведомлений не удалась, проекция пуста",
			zap.Error(apperrors.NewFetchError("notifications", err)),
		)
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	added := 0
	for _, n := range fetched {
		if !s.dedup.Observe(s.topic, appsync.NotificationEventID(n.ID)) {
			continue
		}
		s.list = append(s.list, n)
		added++
	}
	// Свежие сверху.
	sort.SliceStable(s.list, func(i, j int) bool {
		return s.list[i].Timestamp.After(s.list[j].Timestamp)
	})

	s.logger.Info("Уведомления загружены",
		zap.Int("added", added),
		zap.Int("total", len(s.list)),
	)
}

// OnPush добавляет live-уведомление в начало списка. Дедупликация уже
// выполнена выше по конвейеру (ConnectionManager -> dedup -> router).
func (s *NotificationService) OnPush(event entities.Event) {
	var n entities.Notification
	if err := json.Unmarshal(event.Payload, &n); err != nil {
		s.logger.Warn("Уведомление не распарсилось, пропущено",
			zap.String("eventId", event.ID),
			zap.Error(err),
		)
		return
	}
	n.Type = entities.ParseNotificationType(string(n.Type))

	s.mu.Lock()
	s.list = append([]entities.Notification{n}, s.list...)
	s.mu.Unlock()

	s.logger.Debug("Live-уведомление добавлено",
		zap.Uint64("id", n.ID),
		zap.String("type", string(n.Type)),
	)
}

// MarkRead помечает запись прочитанной локально и отправляет commit на
// сервер. Откат при неудаче намеренно отсутствует: потерянная отметка
// "прочитано" — безопасная, повторяемая несостыковка, а не потеря данных.
// Неизвестный или уже прочитанный id — no-op.
func (s *NotificationService) MarkRead(id uint64) {
	s.mu.Lock()
	found := false
	for i := range s.list {
		if s.list[i].ID == id {
			if s.list[i].Read {
				s.mu.Unlock()
				return
			}
			s.list[i].Read = true
			found = true
			break
		}
	}
	s.mu.Unlock()

	if !found {
		return
	}

	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := s.repo.MarkRead(ctx, id); err != nil {
			// Только лог: после перезагрузки страницы отметка просто
			// не сохранится, пользователь кликнет еще раз.
			s.logger.Warn("Commit пометки 'прочитано' не прошел",
				zap.Uint64("id", id),
				zap.Error(err),
			)
		}
	}()
}

// Notifications возвращает снимок списка (свежие сверху).
func (s *NotificationService) Notifications() []entities.Notification {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]entities.Notification, len(s.list))
	copy(out, s.list)
	return out
}

// UnreadCount — чистая проекция count(!read) над текущим списком.
func (s *NotificationService) UnreadCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	count := 0
	for _, n := range s.list {
		if !n.Read {
			count++
		}
	}
	return count
}
