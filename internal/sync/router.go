// Файл: internal/sync/router.go
package sync

import (
	"sync"

	"company-management/internal/entities"

	"go.uber.org/zap"
)

// Router — статическая таблица "топик -> проекция". Заполняется один раз
// при подписке; своего состояния кроме таблицы не держит.
type Router struct {
	mu     sync.RWMutex
	routes map[string]Handler
	logger *zap.Logger
}

func NewRouter(logger *zap.Logger) *Router {
	return &Router{
		routes: make(map[string]Handler),
		logger: logger,
	}
}

// Register привязывает топик к обработчику-владельцу.
func (r *Router) Register(topic string, handler Handler) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.routes[topic] = handler
}

// Topics возвращает зарегистрированные топики в произвольном порядке.
func (r *Router) Topics() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]string, 0, len(r.routes))
	for t := range r.routes {
		out = append(out, t)
	}
	return out
}

// Dispatch доставляет событие владельцу топика. Событие с неизвестным
// топиком — не ошибка: логируем и отбрасываем.
func (r *Router) Dispatch(event entities.Event) {
	r.mu.RLock()
	handler, ok := r.routes[event.Topic]
	r.mu.RUnlock()

	if !ok {
		r.logger.Warn("Событие с неизвестным топиком отброшено",
			zap.String("topic", event.Topic),
			zap.String("eventId", event.ID),
		)
		return
	}
	handler(event)
}
