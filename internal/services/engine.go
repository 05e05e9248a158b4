// Файл: internal/services/engine.go
package services

import (
	"context"
	"encoding/json"

	"company-management/internal/entities"
	"company-management/internal/repositories"
	appsync "company-management/internal/sync"

	"go.uber.org/zap"
)

// Engine — верхний фасад ядра синхронизации для вьюх. Владеет конвейером
// ConnectionManager -> дедупликация -> роутер -> проекции и отдает наружу
// только снимки состояния и точки входа мутаций. Вьюхи состояние никогда
// не мутируют напрямую.
type Engine struct {
	conn   *appsync.ConnectionManager
	dedup  appsync.Deduplicator
	router *appsync.Router

	notifications *NotificationService
	chat          *ChatService
	board         *BoardService

	identity string
	errs     chan string
	logger   *zap.Logger
}

// EngineDeps — зависимости движка. Собираются в app/main.go (или тестом).
type EngineDeps struct {
	Dial             appsync.DialerFunc
	NotificationRepo repositories.NotificationRepositoryInterface
	ChatRepo         repositories.ChatRepositoryInterface
	TaskRepo         repositories.TaskRepositoryInterface
	Dedup            appsync.Deduplicator
	Logger           *zap.Logger
}

// NewEngine собирает движок для данной session identity. Identity —
// явный параметр, не глобальное состояние: один процесс может держать
// несколько движков с разными сессиями.
func NewEngine(identity string, deps EngineDeps) *Engine {
	e := &Engine{
		conn:     appsync.NewConnectionManager(deps.Dial, deps.Logger),
		dedup:    deps.Dedup,
		router:   appsync.NewRouter(deps.Logger),
		identity: identity,
		errs:     make(chan string, 16),
		logger:   deps.Logger,
	}

	notifTopic := appsync.NotificationsTopic(identity)
	msgTopic := appsync.MessagesTopic(identity)
	taskTopic := appsync.TasksTopic(identity)

	e.notifications = NewNotificationService(deps.NotificationRepo, deps.Dedup, notifTopic, deps.Logger)
	e.chat = NewChatService(identity, deps.ChatRepo, e.conn, deps.Dedup, msgTopic, deps.Logger)
	e.board = NewBoardService(deps.TaskRepo, e.pushError, deps.Logger)

	// Таблица маршрутизации строится один раз, на этапе подписки.
	e.router.Register(notifTopic, e.notifications.OnPush)
	e.router.Register(msgTopic, e.chat.OnPush)
	e.router.Register(taskTopic, e.onTaskPush)

	return e
}

// Start подписывается на топики, устанавливает канал и выполняет
// начальные загрузки. Подписки идут ДО connect — так не теряется ни один
// кадр после handshake (менеджер ставит их в очередь и активирует в
// порядке регистрации). Неудача handshake не фатальна: проекции будут
// наполняться только REST-загрузками.
func (e *Engine) Start(ctx context.Context) {
	for _, topic := range []string{
		appsync.NotificationsTopic(e.identity),
		appsync.MessagesTopic(e.identity),
		appsync.TasksTopic(e.identity),
	} {
		e.conn.Subscribe(topic, e.dispatch)
	}

	if err := e.conn.Connect(ctx, e.identity); err != nil {
		e.logger.Warn("Движок стартует оффлайн", zap.Error(err))
	}

	e.notifications.LoadInitial(ctx)
	if err := e.board.LoadBoard(ctx); err != nil {
		e.logger.Warn("Доска стартует пустой", zap.Error(err))
	}
}

// Connection — доступ к менеджеру канала (для навески Reconnector).
func (e *Engine) Connection() *appsync.ConnectionManager {
	return e.conn
}

// Close рвет канал и освобождает подписки. Идемпотентен; колбэки
// незавершенных commit-запросов после закрытия становятся no-op по
// отношению к UI (лента ошибок просто перестает читаться).
func (e *Engine) Close() {
	e.conn.Disconnect()
}

// dispatch — единая точка входа всех кадров: сперва дедупликация,
// затем маршрутизация владельцу топика. Повтор id в топике — не ошибка,
// просто молчаливое подавление.
func (e *Engine) dispatch(event entities.Event) {
	if !e.dedup.Observe(event.Topic, event.ID) {
		return
	}
	e.router.Dispatch(event)
}

func (e *Engine) onTaskPush(event entities.Event) {
	var t entities.Task
	if err := json.Unmarshal(event.Payload, &t); err != nil {
		e.logger.Warn("Обновление задачи не распарсилось, пропущено",
			zap.String("eventId", event.ID),
			zap.Error(err),
		)
		return
	}
	e.board.OnAuthoritativeUpdate(t)
}

// pushError — лента транзиентных, самозакрывающихся ошибок для тостов.
// Никого не блокируем: если ленту никто не читает, сообщение пропадает.
func (e *Engine) pushError(message string) {
	select {
	case e.errs <- message:
	default:
	}
}

// --- Интерфейс, который видят вьюхи ---

func (e *Engine) Notifications() []entities.Notification { return e.notifications.Notifications() }
func (e *Engine) UnreadCount() int                       { return e.notifications.UnreadCount() }
func (e *Engine) MarkRead(id uint64)                     { e.notifications.MarkRead(id) }

func (e *Engine) SetActivePeer(ctx context.Context, peerID string) error {
	return e.chat.SetActivePeer(ctx, peerID)
}
func (e *Engine) Transcript(peerID string) []entities.ChatMessage { return e.chat.Transcript(peerID) }
func (e *Engine) SendMessage(peerID, content string) error        { return e.chat.Send(peerID, content) }

func (e *Engine) BoardState() map[uint64]entities.TaskView { return e.board.BoardState() }
func (e *Engine) MoveTask(taskID uint64, dest entities.TaskStatus, destIndex int) error {
	return e.board.MoveTask(taskID, dest, destIndex)
}
func (e *Engine) RateTask(taskID uint64, stars int) error {
	return e.board.RateTask(taskID, stars)
}

// Errors — лента транзиентных ошибок (откаты мутаций и т.п.).
func (e *Engine) Errors() <-chan string { return e.errs }

// Board — доступ к сервису доски (хуки для тестов).
func (e *Engine) Board() *BoardService { return e.board }
