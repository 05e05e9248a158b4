// Файл: internal/stubserver/server.go

// Пакет stubserver — герметичный дублер бэкенда для демо и
// интеграционных тестов ядра синхронизации: логин с JWT, REST-срез,
// который потребляет движок, и push-канал с теми же топиками и
// конвертами, что у настоящего сервера. Все состояние — в памяти.
package stubserver

import (
	"encoding/json"
	"net/http"
	"strconv"
	"sync/atomic"
	"time"

	"company-management/internal/dto"
	"company-management/internal/entities"
	appsync "company-management/internal/sync"
	"company-management/pkg/service"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

type Server struct {
	echo     *echo.Echo
	store    *Store
	hub      *Hub
	jwtSvc   service.JWTService
	validate *validator.Validate
	logger   *zap.Logger

	// failCommits заставляет PATCH /tasks/{id} отвечать 500 —
	// проверка отката оптимистичных мутаций.
	failCommits atomic.Bool
}

func New(jwtSvc service.JWTService, logger *zap.Logger) *Server {
	s := &Server{
		echo:     echo.New(),
		store:    NewStore(),
		hub:      NewHub(logger),
		jwtSvc:   jwtSvc,
		validate: validator.New(),
		logger:   logger,
	}
	s.echo.HideBanner = true
	s.routes()
	go s.hub.Run()
	return s
}

func (s *Server) Echo() *echo.Echo { return s.echo }
func (s *Server) Store() *Store    { return s.store }
func (s *Server) Hub() *Hub        { return s.hub }

func (s *Server) SetFailCommits(on bool) {
	s.failCommits.Store(on)
}

// Start блокирует до остановки сервера.
func (s *Server) Start(addr string) error {
	return s.echo.Start(addr)
}

func (s *Server) routes() {
	s.echo.POST("/api/auth/login", s.handleLogin)

	api := s.echo.Group("/api", s.authMiddleware)
	api.GET("/notifications", s.handleGetNotifications)
	api.PATCH("/notifications/:id/read", s.handleMarkRead)
	api.GET("/messages/:self/:peer", s.handleGetMessages)
	api.GET("/tasks", s.handleGetTasks)
	api.PATCH("/tasks/:id", s.handleUpdateTask)

	s.echo.GET("/ws", s.handleWS)
}

// authMiddleware извлекает identity из bearer-токена.
func (s *Server) authMiddleware(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		header := c.Request().Header.Get(echo.HeaderAuthorization)
		const prefix = "Bearer "
		if len(header) <= len(prefix) || header[:len(prefix)] != prefix {
			return c.JSON(http.StatusUnauthorized, map[string]string{"error": "missing token"})
		}
		identity, err := s.jwtSvc.Identity(header[len(prefix):])
		if err != nil {
			return c.JSON(http.StatusUnauthorized, map[string]string{"error": "invalid token"})
		}
		c.Set("identity", identity)
		return next(c)
	}
}

func (s *Server) handleLogin(c echo.Context) error {
	var req dto.LoginDTO
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "bad request"})
	}
	if err := s.validate.Struct(req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": err.Error()})
	}

	user, err := s.store.Authenticate(req.Email, req.Password)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, map[string]string{"error": "invalid credentials"})
	}

	token, err := s.jwtSvc.GenerateToken(user.ID, user.Email)
	if err != nil {
		s.logger.Error("Не удалось выпустить токен", zap.Error(err))
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "token"})
	}

	return c.JSON(http.StatusOK, dto.LoginResponseDTO{
		Token:  token,
		UserID: user.ID,
		Email:  user.Email,
	})
}

func (s *Server) handleGetNotifications(c echo.Context) error {
	identity := c.Get("identity").(string)
	return c.JSON(http.StatusOK, s.store.NotificationsFor(identity))
}

func (s *Server) handleMarkRead(c echo.Context) error {
	identity := c.Get("identity").(string)
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "bad id"})
	}
	if !s.store.MarkNotificationRead(identity, id) {
		return c.JSON(http.StatusNotFound, map[string]string{"error": "not found"})
	}
	return c.NoContent(http.StatusNoContent)
}

func (s *Server) handleGetMessages(c echo.Context) error {
	identity := c.Get("identity").(string)
	self := c.Param("self")
	peer := c.Param("peer")
	// Чужую переписку не отдаем.
	if self != identity {
		return c.JSON(http.StatusForbidden, map[string]string{"error": "forbidden"})
	}
	msgs := s.store.MessagesFor(self, peer)
	if msgs == nil {
		msgs = []entities.ChatMessage{}
	}
	return c.JSON(http.StatusOK, msgs)
}

func (s *Server) handleGetTasks(c echo.Context) error {
	return c.JSON(http.StatusOK, s.store.Tasks())
}

func (s *Server) handleUpdateTask(c echo.Context) error {
	if s.failCommits.Load() {
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "commit rejected"})
	}

	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "bad id"})
	}

	var statusPtr *string
	if v := c.QueryParam("status"); v != "" {
		if !entities.ValidTaskStatus(v) {
			return c.JSON(http.StatusBadRequest, map[string]string{"error": "bad status"})
		}
		statusPtr = &v
	}
	var starsPtr *int
	if v := c.QueryParam("stars"); v != "" {
		stars, err := strconv.Atoi(v)
		if err != nil || stars < 1 || stars > 5 {
			return c.JSON(http.StatusBadRequest, map[string]string{"error": "bad stars"})
		}
		starsPtr = &stars
	}

	task, ok := s.store.UpdateTask(id, statusPtr, starsPtr)
	if !ok {
		return c.JSON(http.StatusNotFound, map[string]string{"error": "not found"})
	}

	// Авторитетное обновление уходит всем подключенным (общая доска).
	s.PushTask(task)
	return c.JSON(http.StatusOK, task)
}

// handleWS — upgrade push-канала. Identity берется из токена в query,
// как в теплом браузерном handshake.
func (s *Server) handleWS(c echo.Context) error {
	tokenString := c.QueryParam("token")
	if tokenString == "" {
		return c.String(http.StatusUnauthorized, "Missing token")
	}
	identity, err := s.jwtSvc.Identity(tokenString)
	if err != nil {
		return c.String(http.StatusUnauthorized, "Invalid token")
	}

	conn, err := upgrader.Upgrade(c.Response(), c.Request(), nil)
	if err != nil {
		s.logger.Error("Не удалось выполнить upgrade соединения", zap.Error(err))
		return err
	}

	client := NewClient(s.hub, conn, identity, s.onPublish, s.logger)
	client.Hub.Register <- client

	go client.WritePump()
	go client.ReadPump()

	s.logger.Info("Push-клиент подключен", zap.String("identity", identity))
	return nil
}

// onPublish обрабатывает исходящие кадры клиентов.
func (s *Server) onPublish(identity string, frame dto.PublishFrame) {
	switch frame.Destination {
	case appsync.ChatDestination:
		s.handleChatPublish(identity, frame)
	default:
		s.logger.Warn("Publish в неизвестный destination",
			zap.String("destination", frame.Destination),
		)
	}
}

// handleChatPublish — семантика оригинального ChatController: сообщение
// сохраняется, получает серверный id и эхом уходит обоим участникам.
func (s *Server) handleChatPublish(identity string, frame dto.PublishFrame) {
	var req dto.SendChatMessageDTO
	if err := json.Unmarshal(frame.Body, &req); err != nil {
		s.logger.Warn("Сообщение чата не распарсилось", zap.Error(err))
		return
	}
	if err := s.validate.Struct(req); err != nil {
		s.logger.Warn("Сообщение чата не прошло валидацию", zap.Error(err))
		return
	}
	// Отправителем может быть только владелец соединения.
	if req.SenderID != identity {
		s.logger.Warn("Подмена отправителя отклонена",
			zap.String("claimed", req.SenderID),
			zap.String("actual", identity),
		)
		return
	}

	saved := s.store.SaveMessage(entities.ChatMessage{
		SenderID:    req.SenderID,
		RecipientID: req.RecipientID,
		Content:     req.Content,
		Timestamp:   req.Timestamp,
	})

	payload := mustJSON(saved)
	for _, recipient := range []string{saved.RecipientID, saved.SenderID} {
		s.hub.SendToUser(recipient, dto.PushFrame{
			ID:        appsync.MessageEventID(saved.ID),
			Topic:     appsync.MessagesTopic(recipient),
			Payload:   payload,
			Timestamp: saved.Timestamp,
		})
	}

	// Получателю дополнительно падает уведомление типа CHAT.
	s.PushNotification(saved.RecipientID, entities.NotificationTypeChat,
		"New message from "+saved.SenderID)
}

// PushNotification создает уведомление и доставляет его по push-каналу.
func (s *Server) PushNotification(recipient string, typ entities.NotificationType, message string) entities.Notification {
	n := s.store.AddNotification(recipient, typ, message)
	s.hub.SendToUser(recipient, dto.PushFrame{
		ID:        appsync.NotificationEventID(n.ID),
		Topic:     appsync.NotificationsTopic(recipient),
		Payload:   mustJSON(n),
		Timestamp: n.Timestamp,
	})
	return n
}

// PushTask рассылает авторитетное обновление задачи всем пользователям.
func (s *Server) PushTask(task entities.Task) {
	payload := mustJSON(task)
	s.hub.mu.RLock()
	identities := make([]string, 0, len(s.hub.userClients))
	for identity := range s.hub.userClients {
		identities = append(identities, identity)
	}
	s.hub.mu.RUnlock()

	for _, identity := range identities {
		s.hub.SendToUser(identity, dto.PushFrame{
			ID:        uuid.New().String(),
			Topic:     appsync.TasksTopic(identity),
			Payload:   payload,
			Timestamp: time.Now().UTC(),
		})
	}
}

// mustJSON — сериализация доверенных серверных структур.
func mustJSON(v interface{}) json.RawMessage {
	data, err := json.Marshal(v)
	if err != nil {
		panic(err)
	}
	return data
}
