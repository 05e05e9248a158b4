// Файл: internal/stubserver/hub.go
package stubserver

import (
	"encoding/json"
	"sync"
	"sync/atomic"

	"company-management/internal/dto"

	"go.uber.org/zap"
)

// Hub управляет всеми подключенными клиентами и адресной рассылкой.
// У одного пользователя может быть несколько соединений (несколько
// вкладок) — кадр уходит во все.
type Hub struct {
	clients     map[*Client]bool
	userClients map[string][]*Client
	Register    chan *Client
	unregister  chan *Client
	mu          sync.RWMutex
	logger      *zap.Logger

	// duplicate включает повторную доставку каждого кадра — имитация
	// at-least-once ретрая сервера для проверки дедупликации клиента.
	duplicate atomic.Bool
}

func NewHub(logger *zap.Logger) *Hub {
	return &Hub{
		clients:     make(map[*Client]bool),
		userClients: make(map[string][]*Client),
		Register:    make(chan *Client),
		unregister:  make(chan *Client),
		logger:      logger,
	}
}

// SetDuplicateDelivery переключает имитацию повторных доставок.
func (h *Hub) SetDuplicateDelivery(on bool) {
	h.duplicate.Store(on)
}

func (h *Hub) Run() {
	for {
		select {
		case client, ok := <-h.Register:
			if !ok {
				return
			}
			h.mu.Lock()
			h.clients[client] = true
			h.userClients[client.Identity] = append(h.userClients[client.Identity], client)
			h.mu.Unlock()
			h.logger.Debug("Клиент зарегистрирован", zap.String("identity", client.Identity))
		case client := <-h.unregister:
			h.mu.Lock()
			if _, ok := h.clients[client]; ok {
				delete(h.clients, client)
				close(client.Send)
				clients := h.userClients[client.Identity]
				for i, c := range clients {
					if c == client {
						h.userClients[client.Identity] = append(clients[:i], clients[i+1:]...)
						break
					}
				}
				if len(h.userClients[client.Identity]) == 0 {
					delete(h.userClients, client.Identity)
				}
			}
			h.mu.Unlock()
			h.logger.Debug("Клиент отсоединен", zap.String("identity", client.Identity))
		}
	}
}

// SendToUser доставляет кадр во все соединения пользователя.
func (h *Hub) SendToUser(identity string, frame dto.PushFrame) {
	data, err := json.Marshal(frame)
	if err != nil {
		h.logger.Error("Ошибка сериализации кадра", zap.Error(err))
		return
	}

	h.mu.RLock()
	defer h.mu.RUnlock()

	clients, ok := h.userClients[identity]
	if !ok {
		h.logger.Debug("Нет активных соединений для identity", zap.String("identity", identity))
		return
	}

	repeats := 1
	if h.duplicate.Load() {
		repeats = 2
	}
	for _, client := range clients {
		for i := 0; i < repeats; i++ {
			select {
			case client.Send <- data:
			default:
				h.logger.Warn("Буфер клиента переполнен, кадр не доставлен",
					zap.String("identity", identity),
				)
			}
		}
	}
}
