// Файл: internal/sync/router_test.go
package sync

import (
	"testing"

	"company-management/internal/entities"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
)

func TestRouterDispatchesToOwner(t *testing.T) {
	r := NewRouter(zap.NewNop())

	var gotA, gotB []string
	r.Register("topic-a", func(e entities.Event) { gotA = append(gotA, e.ID) })
	r.Register("topic-b", func(e entities.Event) { gotB = append(gotB, e.ID) })

	r.Dispatch(entities.Event{ID: "1", Topic: "topic-a"})
	r.Dispatch(entities.Event{ID: "2", Topic: "topic-b"})
	r.Dispatch(entities.Event{ID: "3", Topic: "topic-a"})

	assert.Equal(t, []string{"1", "3"}, gotA)
	assert.Equal(t, []string{"2"}, gotB)
}

func TestRouterDropsUnknownTopic(t *testing.T) {
	r := NewRouter(zap.NewNop())

	called := false
	r.Register("known", func(entities.Event) { called = true })

	// Не паника и не доставка кому попало.
	r.Dispatch(entities.Event{ID: "1", Topic: "unknown"})
	assert.False(t, called)
}

func TestTopicBuilders(t *testing.T) {
	assert.Equal(t, "/topic/notifications/alice@economit.io", NotificationsTopic("alice@economit.io"))
	assert.Equal(t, "/topic/messages/bob@economit.io", MessagesTopic("bob@economit.io"))
	assert.Equal(t, "/topic/tasks/bob@economit.io", TasksTopic("bob@economit.io"))
	assert.Equal(t, "notification-7", NotificationEventID(7))
	assert.Equal(t, "message-7", MessageEventID(7))
}
