// Файл: internal/dto/chat-dto.go
package dto

import "time"

// SendChatMessageDTO — исходящее сообщение чата.
// ID отсутствует намеренно: его назначает сервер, клиент увидит
// сообщение только когда оно вернется эхом по push-каналу.
type SendChatMessageDTO struct {
	SenderID    string    `json:"senderId" validate:"required,email"`
	RecipientID string    `json:"recipientId" validate:"required,email"`
	Content     string    `json:"content" validate:"required,min=1,max=2000"`
	Timestamp   time.Time `json:"timestamp"`
}
