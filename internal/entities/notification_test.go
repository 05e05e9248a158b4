// Файл: internal/entities/notification_test.go
package entities

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseNotificationType(t *testing.T) {
	assert.Equal(t, NotificationTypeTask, ParseNotificationType("TASK"))
	assert.Equal(t, NotificationTypePayroll, ParseNotificationType("PAYROLL"))
	assert.Equal(t, NotificationTypeChat, ParseNotificationType("CHAT"))
	assert.Equal(t, NotificationTypeEvent, ParseNotificationType("EVENT"))

	// Новый тип с сервера не должен ломать рендер старого клиента.
	assert.Equal(t, NotificationTypeOther, ParseNotificationType("SOMETHING_NEW"))
	assert.Equal(t, NotificationTypeOther, ParseNotificationType(""))
}

func TestNotificationIconTotal(t *testing.T) {
	// У каждого типа, включая фолбэк, есть иконка.
	for _, typ := range []NotificationType{
		NotificationTypeTask,
		NotificationTypePayroll,
		NotificationTypeChat,
		NotificationTypeEvent,
		NotificationTypeOther,
	} {
		assert.NotEmpty(t, typ.Icon(), "тип %s", typ)
	}
}

func TestPairKeyUnordered(t *testing.T) {
	a := NewPairKey("alice@economit.io", "bob@economit.io")
	b := NewPairKey("bob@economit.io", "alice@economit.io")
	assert.Equal(t, a, b)

	m := ChatMessage{SenderID: "bob@economit.io", RecipientID: "alice@economit.io"}
	assert.Equal(t, a, m.Pair())
	assert.True(t, m.Involves("alice@economit.io"))
	assert.True(t, m.Involves("bob@economit.io"))
	assert.False(t, m.Involves("carol@economit.io"))
}
