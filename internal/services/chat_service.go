// Файл: internal/services/chat_service.go
package services

import (
	"context"
	"encoding/json"
	"sort"
	"sync"
	"time"

	"company-management/internal/dto"
	"company-management/internal/entities"
	"company-management/internal/repositories"
	appsync "company-management/internal/sync"
	apperrors "company-management/pkg/errors"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"
)

// Publisher — исходящий путь push-канала (fire-and-forget).
type Publisher interface {
	Publish(destination string, body interface{}) error
}

type ChatServiceInterface interface {
	SetActivePeer(ctx context.Context, peerID string) error
	OnPush(event entities.Event)
	Send(peerID, content string) error
	Transcript(peerID string) []entities.ChatMessage
	ActivePeer() string
}

// ChatService — транскрипты переписок по неупорядоченным парам
// {self, peer}. Транскрипт пары — объединение исторической загрузки и
// всех live-сообщений, дедуплицированное по id и упорядоченное по времени.
// Сообщения неактивных пар не отбрасываются, а буферизуются: смена
// собеседника лишь переключает, что рендерится.
type ChatService struct {
	mu          sync.Mutex
	self        string
	activePeer  string
	transcripts map[entities.PairKey][]entities.ChatMessage

	repo      repositories.ChatRepositoryInterface
	publisher Publisher
	dedup     appsync.Deduplicator
	topic     string
	validate  *validator.Validate
	logger    *zap.Logger
}

func NewChatService(
	self string,
	repo repositories.ChatRepositoryInterface,
	publisher Publisher,
	dedup appsync.Deduplicator,
	topic string,
	logger *zap.Logger,
) *ChatService {
	return &ChatService{
		self:        self,
		transcripts: make(map[entities.PairKey][]entities.ChatMessage),
		repo:        repo,
		publisher:   publisher,
		dedup:       dedup,
		topic:       topic,
		validate:    validator.New(),
		logger:      logger,
	}
}

// SetActivePeer переключает контекст на собеседника и подтягивает
// историю пары. История сливается с уже буферизованными live-сообщениями;
// неудача загрузки оставляет транскрипт как есть (возможно пустым) и
// не ломает живой канал.
func (s *ChatService) SetActivePeer(ctx context.Context, peerID string) error {
	s.mu.Lock()
	s.activePeer = peerID
	self := s.self
	s.mu.Unlock()

	history, err := s.repo.GetHistory(ctx, self, peerID)
	if err != nil {
		s.logger.Warn("История переписки не загрузилась",
			zap.String("peer", peerID),
			zap.Error(apperrors.NewFetchError("chat history", err)),
		)
		return apperrors.NewFetchError("chat history", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	for _, m := range history {
		// Историческая запись помечается "виденной": если то же
		// сообщение придет эхом по каналу, оно будет подавлено.
		s.dedup.Observe(s.topic, appsync.MessageEventID(m.ID))
		s.insertLocked(m)
	}
	s.logger.Debug("История переписки слита с буфером",
		zap.String("peer", peerID),
		zap.Int("history", len(history)),
	)
	return nil
}

// OnPush принимает live-сообщение (в том числе эхо собственной отправки).
// Пара сообщения может быть неактивной — тогда оно просто буферизуется.
func (s *ChatService) OnPush(event entities.Event) {
	var m entities.ChatMessage
	if err := json.Unmarshal(event.Payload, &m); err != nil {
		s.logger.Warn("Сообщение чата не распарсилось, пропущено",
			zap.String("eventId", event.ID),
			zap.Error(err),
		)
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if !m.Involves(s.self) {
		s.logger.Warn("Сообщение чужой пары отброшено", zap.Uint64("id", m.ID))
		return
	}
	s.insertLocked(m)
}

// Send строит сообщение с клиентской меткой времени и БЕЗ id (id назначит
// сервер) и отправляет его fire-and-forget. В транскрипте сообщение
// появится только когда вернется эхом по подписке — краткий зазор между
// submit и отображением является контрактом, а не багом.
func (s *ChatService) Send(peerID, content string) error {
	s.mu.Lock()
	if peerID == "" {
		peerID = s.activePeer
	}
	self := s.self
	s.mu.Unlock()

	if peerID == "" {
		return apperrors.ErrNoActivePeer
	}

	msg := dto.SendChatMessageDTO{
		SenderID:    self,
		RecipientID: peerID,
		Content:     content,
		Timestamp:   time.Now().UTC(),
	}
	if err := s.validate.Struct(msg); err != nil {
		return err
	}

	return s.publisher.Publish(appsync.ChatDestination, msg)
}

// Transcript возвращает снимок переписки пары (self, peerID):
// без дубликатов по id, по возрастанию времени.
func (s *ChatService) Transcript(peerID string) []entities.ChatMessage {
	s.mu.Lock()
	defer s.mu.Unlock()
	pair := entities.NewPairKey(s.self, peerID)
	src := s.transcripts[pair]
	out := make([]entities.ChatMessage, len(src))
	copy(out, src)
	return out
}

func (s *ChatService) ActivePeer() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.activePeer
}

// insertLocked вставляет сообщение в транскрипт его пары, сохраняя
// сортировку по времени; дубликат по id — no-op.
func (s *ChatService) insertLocked(m entities.ChatMessage) {
	pair := m.Pair()
	list := s.transcripts[pair]
	for _, existing := range list {
		if existing.ID == m.ID {
			return
		}
	}
	list = append(list, m)
	sort.SliceStable(list, func(i, j int) bool {
		return list[i].Timestamp.Before(list[j].Timestamp)
	})
	s.transcripts[pair] = list
}
