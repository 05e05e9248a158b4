// Файл: internal/sync/dedup_test.go
package sync

import (
	"fmt"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-redis/redis/v8"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestMemoryDedupFirstObservationOnly(t *testing.T) {
	d := NewMemoryDedup(0, zap.NewNop())

	// Первое наблюдение каждого id — true, все последующие — false.
	sequence := []string{"n-1", "n-2", "n-1", "n-3", "n-2", "n-1"}
	expected := []bool{true, true, false, true, false, false}

	for i, id := range sequence {
		assert.Equal(t, expected[i], d.Observe("/topic/notifications/alice", id),
			"позиция %d, id %s", i, id)
	}
}

func TestMemoryDedupTopicsIsolated(t *testing.T) {
	d := NewMemoryDedup(0, zap.NewNop())

	assert.True(t, d.Observe("topic-a", "1"))
	// Тот же id в другом топике — самостоятельное событие.
	assert.True(t, d.Observe("topic-b", "1"))
	assert.False(t, d.Observe("topic-a", "1"))
}

func TestMemoryDedupEvictionNeverSuppressesFreshID(t *testing.T) {
	d := NewMemoryDedup(3, zap.NewNop())

	// Переполняем окно: старейшие id вытесняются.
	for i := 0; i < 10; i++ {
		assert.True(t, d.Observe("t", fmt.Sprintf("id-%d", i)))
	}

	// Свежие id остаются подавленными.
	assert.False(t, d.Observe("t", "id-9"))
	assert.False(t, d.Observe("t", "id-8"))

	// Вытесненный id будет обработан повторно — это допустимый
	// режим отказа; подавление нового id допустимым не было бы.
	assert.True(t, d.Observe("t", "id-0"))
}

func TestRedisDedup(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	d := NewRedisDedup(client, time.Minute, zap.NewNop())

	assert.True(t, d.Observe("/topic/messages/alice", "message-1"))
	assert.False(t, d.Observe("/topic/messages/alice", "message-1"))
	assert.True(t, d.Observe("/topic/messages/bob", "message-1"))
}

func TestRedisDedupFailsOpen(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	d := NewRedisDedup(client, time.Minute, zap.NewNop())

	require.True(t, d.Observe("t", "1"))
	mr.Close()

	// Недоступный Redis не должен глотать события.
	assert.True(t, d.Observe("t", "2"))
}
