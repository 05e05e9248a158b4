// Файл: internal/sync/connection.go
package sync

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"company-management/internal/dto"
	"company-management/internal/entities"
	apperrors "company-management/pkg/errors"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// State — состояние жизненного цикла соединения.
type State int32

const (
	StateDisconnected State = iota
	StateConnecting
	StateConnected
)

func (s State) String() string {
	switch s {
	case StateConnecting:
		return "CONNECTING"
	case StateConnected:
		return "CONNECTED"
	default:
		return "DISCONNECTED"
	}
}

// Handler — обработчик события подписки. Менеджер гарантирует, что два
// обработчика одной подписки никогда не выполняются одновременно: вся
// доставка идет из единственной горутины чтения.
type Handler func(event entities.Event)

// Transport — низкоуровневый дуплексный канал (в проде — websocket,
// в тестах — in-memory фейк).
type Transport interface {
	// ReadMessage блокируется до следующего кадра или ошибки канала.
	ReadMessage() ([]byte, error)
	WriteMessage(data []byte) error
	Close() error
}

// DialerFunc устанавливает транспорт для данной session identity.
type DialerFunc func(ctx context.Context, identity string) (Transport, error)

// SubscriptionHandle — непрозрачная ссылка на подписку.
type SubscriptionHandle struct {
	id    uuid.UUID
	topic string
}

func (h SubscriptionHandle) Topic() string { return h.topic }

type binding struct {
	handle  SubscriptionHandle
	handler Handler
}

// ConnectionManager владеет ровно одним push-каналом на сессию.
// Подписки, сделанные до установления соединения, ставятся в очередь
// и активируются в порядке регистрации при переходе в Connected.
type ConnectionManager struct {
	dial   DialerFunc
	logger *zap.Logger

	mu        sync.Mutex
	state     State
	identity  string
	transport Transport
	// bindings хранится срезом: порядок регистрации и есть порядок replay.
	bindings []binding
	readDone chan struct{}

	// onDrop вызывается при неожиданном обрыве канала (не при явном
	// Disconnect). Точка навески политики переподключения.
	onDrop func(reason error)
}

func NewConnectionManager(dial DialerFunc, logger *zap.Logger) *ConnectionManager {
	return &ConnectionManager{
		dial:   dial,
		logger: logger,
		state:  StateDisconnected,
	}
}

// State возвращает текущее состояние.
func (m *ConnectionManager) State() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

// Identity — identity, с которой было установлено соединение.
func (m *ConnectionManager) Identity() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.identity
}

// SetOnDrop регистрирует колбэк неожиданного обрыва.
func (m *ConnectionManager) SetOnDrop(fn func(reason error)) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.onDrop = fn
}

// Connect устанавливает канал для identity. Неудача handshake — не
// фатальна: менеджер остается в Disconnected, пишет в лог и возвращает
// TransportError; UI обязан жить дальше без live-обновлений.
// Автоматических повторов здесь нет — см. Reconnector.
func (m *ConnectionManager) Connect(ctx context.Context, identity string) error {
	m.mu.Lock()
	if m.state != StateDisconnected {
		m.mu.Unlock()
		return apperrors.ErrAlreadyConnected
	}
	m.state = StateConnecting
	m.identity = identity
	m.mu.Unlock()

	transport, err := m.dial(ctx, identity)
	if err != nil {
		m.mu.Lock()
		m.state = StateDisconnected
		m.mu.Unlock()
		m.logger.Warn("Push-канал: handshake не удался, работаем оффлайн",
			zap.String("identity", identity),
			zap.Error(err),
		)
		return apperrors.NewTransportError("connect", err)
	}

	m.mu.Lock()
	m.transport = transport
	m.state = StateConnected
	m.readDone = make(chan struct{})
	queued := len(m.bindings)
	done := m.readDone
	m.mu.Unlock()

	if queued > 0 {
		// Отложенные подписки считаются активированными в порядке
		// регистрации: таблица уже хранит их в этом порядке.
		m.logger.Debug("Активированы отложенные подписки", zap.Int("count", queued))
	}

	go m.readLoop(transport, done)

	m.logger.Info("Push-канал установлен", zap.String("identity", identity))
	return nil
}

// Subscribe регистрирует обработчик топика. До Connected привязка просто
// встает в очередь — это нормальный сценарий (Engine подписывается до
// Connect, чтобы не потерять ни одного кадра после handshake).
func (m *ConnectionManager) Subscribe(topic string, handler Handler) SubscriptionHandle {
	handle := SubscriptionHandle{id: uuid.New(), topic: topic}

	m.mu.Lock()
	m.bindings = append(m.bindings, binding{handle: handle, handler: handler})
	state := m.state
	m.mu.Unlock()

	m.logger.Debug("Подписка зарегистрирована",
		zap.String("topic", topic),
		zap.String("state", state.String()),
	)
	return handle
}

// Unsubscribe снимает одну подписку. Повторный вызов — no-op.
func (m *ConnectionManager) Unsubscribe(handle SubscriptionHandle) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i, b := range m.bindings {
		if b.handle.id == handle.id {
			m.bindings = append(m.bindings[:i], m.bindings[i+1:]...)
			return
		}
	}
}

// Publish отправляет сообщение в destination. Fire-and-forget:
// подтверждением служит эхо по подписке.
func (m *ConnectionManager) Publish(destination string, body interface{}) error {
	m.mu.Lock()
	transport := m.transport
	state := m.state
	m.mu.Unlock()

	if state != StateConnected || transport == nil {
		return apperrors.ErrNotConnected
	}

	raw, err := json.Marshal(body)
	if err != nil {
		return err
	}
	frame := dto.PublishFrame{Destination: destination, Body: raw}
	data, err := json.Marshal(frame)
	if err != nil {
		return err
	}

	if err := transport.WriteMessage(data); err != nil {
		return apperrors.NewTransportError("publish", err)
	}
	return nil
}

// Disconnect разрывает канал и освобождает все подписки.
// Идемпотентен и безопасен из любого состояния (logout, unmount).
// Возвращается только после остановки горутины доставки: начатый
// обработчик доработает, нового после возврата уже не будет.
// Нельзя вызывать из обработчика подписки — это была бы попытка
// горутины доставки дождаться саму себя.
func (m *ConnectionManager) Disconnect() {
	m.mu.Lock()
	transport := m.transport
	done := m.readDone
	m.transport = nil
	m.readDone = nil
	m.state = StateDisconnected
	m.bindings = nil
	m.onDrop = nil
	m.mu.Unlock()

	if transport == nil {
		return
	}
	_ = transport.Close()
	if done != nil {
		<-done
	}
	m.logger.Info("Push-канал закрыт")
}

// readLoop — единственная горутина доставки. Все обработчики вызываются
// отсюда последовательно, поэтому проекциям не нужны блокировки между
// событиями одного канала.
func (m *ConnectionManager) readLoop(transport Transport, done chan struct{}) {
	defer close(done)

	for {
		data, err := transport.ReadMessage()
		if err != nil {
			m.handleDrop(transport, err)
			return
		}

		var frame dto.PushFrame
		if err := json.Unmarshal(data, &frame); err != nil {
			m.logger.Warn("Push-канал: кадр не распарсился, пропущен", zap.Error(err))
			continue
		}

		event := entities.Event{
			ID:         frame.ID,
			Topic:      frame.Topic,
			Payload:    frame.Payload,
			ReceivedAt: time.Now(),
		}

		for _, h := range m.handlersFor(frame.Topic) {
			h(event)
		}
	}
}

func (m *ConnectionManager) handlersFor(topic string) []Handler {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []Handler
	for _, b := range m.bindings {
		if b.handle.topic == topic {
			out = append(out, b.handler)
		}
	}
	return out
}

// handleDrop переводит менеджер в Disconnected после обрыва, сохраняя
// таблицу подписок: при переподключении они продолжают действовать.
func (m *ConnectionManager) handleDrop(transport Transport, reason error) {
	m.mu.Lock()
	// Если Disconnect уже сработал, transport будет другим (nil) —
	// тогда это штатное закрытие, а не обрыв.
	dropped := m.transport == transport
	var onDrop func(error)
	if dropped {
		m.transport = nil
		m.readDone = nil
		m.state = StateDisconnected
		onDrop = m.onDrop
	}
	m.mu.Unlock()

	if !dropped {
		return
	}

	_ = transport.Close()
	m.logger.Warn("Push-канал оборвался", zap.Error(reason))
	if onDrop != nil {
		onDrop(apperrors.NewTransportError("read", reason))
	}
}
