// Файл: internal/sync/dedup.go
package sync

import (
	"sync"

	"go.uber.org/zap"
)

// Deduplicator отвечает на один вопрос: первое ли это наблюдение события
// с данным id в данном топике. Сервер доставляет at-least-once, поэтому
// повторный кадр — ожидаемая ситуация, а не ошибка.
type Deduplicator interface {
	// Observe возвращает true только при первом наблюдении id в топике.
	Observe(topic, id string) bool
}

type topicWindow struct {
	seen  map[string]struct{}
	order []string // порядок вставки, для вытеснения старейших
}

// MemoryDedup — окно дедупликации в памяти процесса.
// По умолчанию не ограничено: за сессию через него проходит скромное
// число уведомлений и сообщений. maxPerTopic > 0 включает вытеснение
// старейших id; вытеснение может дать только ложное "новое" (повторная
// обработка), но никогда не подавит действительно новый id.
type MemoryDedup struct {
	mu          sync.Mutex
	topics      map[string]*topicWindow
	maxPerTopic int
	logger      *zap.Logger
}

func NewMemoryDedup(maxPerTopic int, logger *zap.Logger) *MemoryDedup {
	return &MemoryDedup{
		topics:      make(map[string]*topicWindow),
		maxPerTopic: maxPerTopic,
		logger:      logger,
	}
}

func (d *MemoryDedup) Observe(topic, id string) bool {
	d.mu.Lock()
	defer d.mu.Unlock()

	w, ok := d.topics[topic]
	if !ok {
		w = &topicWindow{seen: make(map[string]struct{})}
		d.topics[topic] = w
	}

	if _, dup := w.seen[id]; dup {
		d.logger.Debug("Дубликат события подавлен",
			zap.String("topic", topic),
			zap.String("eventId", id),
		)
		return false
	}

	w.seen[id] = struct{}{}
	w.order = append(w.order, id)

	if d.maxPerTopic > 0 && len(w.order) > d.maxPerTopic {
		oldest := w.order[0]
		w.order = w.order[1:]
		delete(w.seen, oldest)
	}

	return true
}

// Seen сообщает, известен ли id, не регистрируя его. Нужен тестам.
func (d *MemoryDedup) Seen(topic, id string) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	w, ok := d.topics[topic]
	if !ok {
		return false
	}
	_, seen := w.seen[id]
	return seen
}
