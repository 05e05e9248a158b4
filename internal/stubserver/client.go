// Файл: internal/stubserver/client.go
package stubserver

import (
	"encoding/json"
	"time"

	"company-management/internal/dto"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 8192
)

// Client — одно websocket-соединение пользователя на стороне сервера.
type Client struct {
	Hub      *Hub
	Conn     *websocket.Conn
	Send     chan []byte
	Identity string

	// onPublish вызывается для каждого входящего PublishFrame
	// (например, отправка сообщения чата в /app/chat).
	onPublish func(identity string, frame dto.PublishFrame)
	logger    *zap.Logger
}

func NewClient(hub *Hub, conn *websocket.Conn, identity string, onPublish func(string, dto.PublishFrame), logger *zap.Logger) *Client {
	return &Client{
		Hub:       hub,
		Conn:      conn,
		Send:      make(chan []byte, 256),
		Identity:  identity,
		onPublish: onPublish,
		logger:    logger,
	}
}

// ReadPump принимает publish-кадры клиента до обрыва соединения.
func (c *Client) ReadPump() {
	defer func() {
		c.Hub.unregister <- c
		c.Conn.Close()
	}()
	c.Conn.SetReadLimit(maxMessageSize)
	_ = c.Conn.SetReadDeadline(time.Now().Add(pongWait))
	c.Conn.SetPongHandler(func(string) error {
		_ = c.Conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})
	for {
		_, data, err := c.Conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure, websocket.CloseAbnormalClosure) {
				c.logger.Debug("Неожиданное закрытие соединения", zap.Error(err))
			}
			break
		}

		var frame dto.PublishFrame
		if err := json.Unmarshal(data, &frame); err != nil {
			c.logger.Warn("Publish-кадр не распарсился", zap.Error(err))
			continue
		}
		if c.onPublish != nil {
			c.onPublish(c.Identity, frame)
		}
	}
}

func (c *Client) WritePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.Conn.Close()
	}()
	for {
		select {
		case message, ok := <-c.Send:
			_ = c.Conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = c.Conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			w, err := c.Conn.NextWriter(websocket.TextMessage)
			if err != nil {
				return
			}
			_, _ = w.Write(message)
			if err := w.Close(); err != nil {
				return
			}
		case <-ticker.C:
			_ = c.Conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.Conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
