// Файл: internal/entities/notification.go
package entities

import "time"

// NotificationType — закрытый набор типов уведомлений.
// Выбор иконки/ярлыка идет через явный switch, а не через строки в рантайме,
// чтобы добавление нового типа ловилось на компиляции.
type NotificationType string

const (
	NotificationTypeTask    NotificationType = "TASK"
	NotificationTypePayroll NotificationType = "PAYROLL"
	NotificationTypeChat    NotificationType = "CHAT"
	NotificationTypeEvent   NotificationType = "EVENT"
	NotificationTypeOther   NotificationType = "OTHER"
)

// ParseNotificationType маппит строку с провода в закрытый enum.
// Неизвестные значения не являются ошибкой — сервер может начать слать
// новый тип раньше, чем обновится клиент.
func ParseNotificationType(raw string) NotificationType {
	switch NotificationType(raw) {
	case NotificationTypeTask, NotificationTypePayroll, NotificationTypeChat, NotificationTypeEvent:
		return NotificationType(raw)
	default:
		return NotificationTypeOther
	}
}

// Icon возвращает имя иконки для "колокольчика".
func (t NotificationType) Icon() string {
	switch t {
	case NotificationTypeTask:
		return "clipboard"
	case NotificationTypePayroll:
		return "banknote"
	case NotificationTypeChat:
		return "message-circle"
	case NotificationTypeEvent:
		return "calendar"
	case NotificationTypeOther:
		return "bell"
	}
	return "bell"
}

// Notification — запись в списке уведомлений.
// ID назначает сервер; клиент запись никогда не удаляет,
// единственная мутация — пометка прочитанным.
type Notification struct {
	ID        uint64           `json:"id"`
	Type      NotificationType `json:"type"`
	Message   string           `json:"message"`
	Read      bool             `json:"read"`
	Timestamp time.Time        `json:"timestamp"`
}
