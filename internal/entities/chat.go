// Файл: internal/entities/chat.go
package entities

import "time"

// ChatMessage — одно сообщение переписки. Неизменяемо после создания.
// SenderID/RecipientID — email-адреса участников (session identity).
type ChatMessage struct {
	ID          uint64    `json:"id"`
	SenderID    string    `json:"senderId"`
	RecipientID string    `json:"recipientId"`
	Content     string    `json:"content"`
	Timestamp   time.Time `json:"timestamp"`
}

// PairKey — нормализованный ключ неупорядоченной пары собеседников.
// Сообщение видно в переписке (A,B) независимо от того, кто отправитель.
type PairKey struct {
	A string
	B string
}

func NewPairKey(x, y string) PairKey {
	if x > y {
		x, y = y, x
	}
	return PairKey{A: x, B: y}
}

// Pair возвращает ключ пары этого сообщения.
func (m ChatMessage) Pair() PairKey {
	return NewPairKey(m.SenderID, m.RecipientID)
}

// Involves — участвует ли identity в сообщении.
func (m ChatMessage) Involves(identity string) bool {
	return m.SenderID == identity || m.RecipientID == identity
}
