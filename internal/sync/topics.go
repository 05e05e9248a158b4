// Файл: internal/sync/topics.go
package sync

import "fmt"

// Построители топиков. Identity всегда передается явно, а не берется из
// глобального состояния — так один процесс может держать несколько
// смоделированных сессий (важно для тестов).

// NotificationsTopic — персональный топик уведомлений.
func NotificationsTopic(identity string) string {
	return fmt.Sprintf("/topic/notifications/%s", identity)
}

// MessagesTopic — персональный топик сообщений чата.
func MessagesTopic(identity string) string {
	return fmt.Sprintf("/topic/messages/%s", identity)
}

// TasksTopic — персональный топик авторитетных обновлений задач.
func TasksTopic(identity string) string {
	return fmt.Sprintf("/topic/tasks/%s", identity)
}

// ChatDestination — destination для отправки сообщений чата.
const ChatDestination = "/app/chat"

// Идентификаторы событий. Для уведомлений и сообщений id события
// детерминированно выводится из id записи: так начальная REST-загрузка
// может пометить уже известные записи "виденными", и более позднее
// live-эхо того же id будет отброшено, а не задвоено.

// NotificationEventID — id события для уведомления.
func NotificationEventID(id uint64) string {
	return fmt.Sprintf("notification-%d", id)
}

// MessageEventID — id события для сообщения чата.
func MessageEventID(id uint64) string {
	return fmt.Sprintf("message-%d", id)
}
