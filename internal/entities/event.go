// Файл: internal/entities/event.go
package entities

import (
	"encoding/json"
	"time"
)

// Event — одно логическое событие push-канала.
// Транзиентно: живет от получения кадра до применения проекцией,
// дальше остается только его ID в окне дедупликации.
type Event struct {
	ID         string
	Topic      string
	Payload    json.RawMessage
	ReceivedAt time.Time
}
