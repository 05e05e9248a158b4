// Файл: internal/sync/reconnect.go
package sync

import (
	"context"
	"time"

	"go.uber.org/zap"
)

// Reconnector — опциональная политика переподключения поверх
// ConnectionManager: ограниченный экспоненциальный backoff с потолком.
// Сам Connect по контракту выполняется ровно один раз; эта надстройка
// включается явно. Таблица подписок при обрыве сохраняется, поэтому
// после успешного re-dial все прежние топики продолжают действовать.
type Reconnector struct {
	cm          *ConnectionManager
	baseWait    time.Duration
	maxWait     time.Duration
	maxAttempts int
	logger      *zap.Logger
}

func NewReconnector(cm *ConnectionManager, baseWait, maxWait time.Duration, maxAttempts int, logger *zap.Logger) *Reconnector {
	if baseWait <= 0 {
		baseWait = time.Second
	}
	if maxWait < baseWait {
		maxWait = baseWait
	}
	return &Reconnector{
		cm:          cm,
		baseWait:    baseWait,
		maxWait:     maxWait,
		maxAttempts: maxAttempts,
		logger:      logger,
	}
}

// Arm навешивает политику на следующий обрыв канала.
func (r *Reconnector) Arm(ctx context.Context) {
	r.cm.SetOnDrop(func(reason error) {
		r.logger.Info("Reconnector: канал оборвался, начинаем переподключение", zap.Error(reason))
		go r.run(ctx)
	})
}

func (r *Reconnector) run(ctx context.Context) {
	identity := r.cm.Identity()
	wait := r.baseWait

	for attempt := 1; r.maxAttempts <= 0 || attempt <= r.maxAttempts; attempt++ {
		select {
		case <-ctx.Done():
			return
		case <-time.After(wait):
		}

		if err := r.cm.Connect(ctx, identity); err == nil {
			r.logger.Info("Reconnector: канал восстановлен",
				zap.Int("attempt", attempt),
				zap.Strings("topics", r.topics()),
			)
			// Взводим политику заново — на следующий обрыв.
			r.Arm(ctx)
			return
		}

		r.logger.Warn("Reconnector: попытка не удалась",
			zap.Int("attempt", attempt),
			zap.Duration("nextWait", wait),
		)

		wait *= 2
		if wait > r.maxWait {
			wait = r.maxWait
		}
	}

	r.logger.Error("Reconnector: попытки исчерпаны, остаемся оффлайн")
}

func (r *Reconnector) topics() []string {
	r.cm.mu.Lock()
	defer r.cm.mu.Unlock()
	out := make([]string, 0, len(r.cm.bindings))
	for _, b := range r.cm.bindings {
		out = append(out, b.handle.topic)
	}
	return out
}
