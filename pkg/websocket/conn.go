// Файл: pkg/websocket/conn.go
package websocket

import (
	"context"
	"net/url"
	"sync"
	"time"

	apperrors "company-management/pkg/errors"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 8192
)

// Conn — клиентская сторона push-канала. Исходящие кадры идут через
// буферизованный канал и единственную пишущую горутину (writePump),
// она же держит соединение живым ping-кадрами.
type Conn struct {
	conn   *websocket.Conn
	send   chan []byte
	done   chan struct{}
	once   sync.Once
	logger *zap.Logger
}

// Dial устанавливает websocket-соединение. Токен передается query-параметром:
// сервер извлекает из него session identity при upgrade.
func Dial(ctx context.Context, rawURL, token string, logger *zap.Logger) (*Conn, error) {
	endpoint := rawURL + "?token=" + url.QueryEscape(token)

	wsConn, _, err := websocket.DefaultDialer.DialContext(ctx, endpoint, nil)
	if err != nil {
		return nil, err
	}

	c := &Conn{
		conn:   wsConn,
		send:   make(chan []byte, 256),
		done:   make(chan struct{}),
		logger: logger,
	}

	wsConn.SetReadLimit(maxMessageSize)
	_ = wsConn.SetReadDeadline(time.Now().Add(pongWait))
	wsConn.SetPongHandler(func(string) error {
		_ = wsConn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	go c.writePump()
	return c, nil
}

// ReadMessage блокируется до следующего кадра. Ошибка означает обрыв.
func (c *Conn) ReadMessage() ([]byte, error) {
	_, data, err := c.conn.ReadMessage()
	if err != nil {
		if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
			c.logger.Debug("websocket: неожиданное закрытие", zap.Error(err))
		}
		return nil, err
	}
	return data, nil
}

// WriteMessage ставит кадр в очередь отправки.
func (c *Conn) WriteMessage(data []byte) error {
	select {
	case c.send <- data:
		return nil
	case <-c.done:
		return apperrors.ErrConnectionClosed
	}
}

// Close закрывает соединение. Идемпотентен.
func (c *Conn) Close() error {
	c.once.Do(func() {
		close(c.done)
	})
	return nil
}

func (c *Conn) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		_ = c.conn.Close()
	}()

	for {
		select {
		case message := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			w, err := c.conn.NextWriter(websocket.TextMessage)
			if err != nil {
				return
			}
			_, _ = w.Write(message)
			if err := w.Close(); err != nil {
				return
			}
		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		case <-c.done:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			_ = c.conn.WriteMessage(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
			return
		}
	}
}
