// Файл: internal/dto/sync-dto.go
package dto

import (
	"encoding/json"
	"time"
)

// PushFrame — "конверт" события push-канала (сервер -> клиент).
// ID назначается сервером и глобально уникален в пределах топика:
// именно по нему клиент отсекает повторные доставки.
type PushFrame struct {
	ID        string          `json:"id"`
	Topic     string          `json:"topic"`
	Payload   json.RawMessage `json:"payload"`
	Timestamp time.Time       `json:"timestamp"`
}

// PublishFrame — исходящее сообщение (клиент -> сервер).
// Fire-and-forget: подтверждением служит эхо через подписку.
type PublishFrame struct {
	Destination string          `json:"destination"`
	Body        json.RawMessage `json:"body"`
}
