// Файл: internal/sync/dedup_redis.go
package sync

import (
	"context"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"
)

// RedisDedup — окно дедупликации, разделяемое между процессами/вкладками
// одной сессии. SETNX: первый, кто записал ключ, и обрабатывает событие.
// TTL ограничивает объем окна по времени, а не по количеству.
type RedisDedup struct {
	client *redis.Client
	ttl    time.Duration
	logger *zap.Logger
}

func NewRedisDedup(client *redis.Client, ttl time.Duration, logger *zap.Logger) *RedisDedup {
	return &RedisDedup{client: client, ttl: ttl, logger: logger}
}

func (d *RedisDedup) key(topic, id string) string {
	return fmt.Sprintf("dedup:%s:%s", topic, id)
}

func (d *RedisDedup) Observe(topic, id string) bool {
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()

	first, err := d.client.SetNX(ctx, d.key(topic, id), 1, d.ttl).Result()
	if err != nil {
		// Redis недоступен — лучше обработать событие повторно, чем
		// потерять его: ложное "новое" безопасно, ложный дубликат — нет.
		d.logger.Warn("RedisDedup: ошибка SETNX, событие считается новым",
			zap.String("topic", topic),
			zap.String("eventId", id),
			zap.Error(err),
		)
		return true
	}
	return first
}
