// Файл: app/main.go

// Демо-запуск ядра синхронизации: в одном процессе поднимается
// in-memory дублер бэкенда и движок клиента, после чего проигрывается
// короткий сценарий (уведомление, сообщение чата, перенос задачи).
package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"company-management/internal/dto"
	"company-management/internal/entities"
	"company-management/internal/repositories"
	"company-management/internal/services"
	"company-management/internal/stubserver"
	appsync "company-management/internal/sync"
	"company-management/pkg/config"
	applogger "company-management/pkg/logger"
	"company-management/pkg/service"
	pkgws "company-management/pkg/websocket"

	"github.com/go-redis/redis/v8"
	"github.com/joho/godotenv"
	"go.uber.org/zap"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("Warning: .env file not found or could not be loaded.")
	}

	logger := applogger.NewLogger()
	defer func() { _ = logger.Sync() }()
	cfg := config.New()

	jwtSvc := service.NewJWTService(cfg.JWT.SecretKey, cfg.JWT.AccessTokenTTL, logger)

	// 1. Дублер бэкенда с демо-данными.
	stub := stubserver.New(jwtSvc, logger)
	seed(stub)
	go func() {
		if err := stub.Start(":" + cfg.Server.Port); err != nil && err != http.ErrServerClosed {
			logger.Fatal("Ошибка запуска stub-сервера", zap.Error(err))
		}
	}()
	time.Sleep(200 * time.Millisecond)

	// 2. Логин — как это сделал бы браузер.
	session, err := login(cfg.Sync.APIURL, "alice@economit.io", "alice-password")
	if err != nil {
		logger.Fatal("Логин не удался", zap.Error(err))
	}
	logger.Info("Сессия установлена", zap.String("identity", session.Email))

	// 3. Сборка движка для этой сессии.
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	dial := func(ctx context.Context, identity string) (appsync.Transport, error) {
		return pkgws.Dial(ctx, cfg.Sync.WSURL, session.Token, logger)
	}
	api := repositories.NewAPIClient(cfg.Sync.APIURL, session.Token, logger)

	var dedup appsync.Deduplicator = appsync.NewMemoryDedup(cfg.Sync.DedupMaxPerTopic, logger)
	if cfg.Sync.DedupUseRedis {
		rdb := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Address,
			Password: cfg.Redis.Password,
		})
		dedup = appsync.NewRedisDedup(rdb, cfg.Sync.DedupTTL, logger)
	}

	engine := services.NewEngine(session.Email, services.EngineDeps{
		Dial:             dial,
		NotificationRepo: repositories.NewNotificationRepository(api, logger),
		ChatRepo:         repositories.NewChatRepository(api, logger),
		TaskRepo:         repositories.NewTaskRepository(api, logger),
		Dedup:            dedup,
		Logger:           logger,
	})
	engine.Start(ctx)
	defer engine.Close()

	if cfg.Sync.ReconnectEnabled {
		appsync.NewReconnector(
			engine.Connection(),
			cfg.Sync.ReconnectBaseWait,
			cfg.Sync.ReconnectMaxWait,
			cfg.Sync.ReconnectAttempts,
			logger,
		).Arm(ctx)
	}

	go func() {
		for msg := range engine.Errors() {
			logger.Warn("Транзиентная ошибка для пользователя", zap.String("toast", msg))
		}
	}()

	// 4. Короткий сценарий.
	stub.PushNotification(session.Email, entities.NotificationTypeTask,
		"You have a new task: Fix Printer")

	if err := engine.SetActivePeer(ctx, "bob@economit.io"); err != nil {
		logger.Warn("История чата недоступна", zap.Error(err))
	}
	if err := engine.SendMessage("bob@economit.io", "Привет! Посмотри, пожалуйста, задачу #1."); err != nil {
		logger.Warn("Отправка не удалась", zap.Error(err))
	}

	time.Sleep(300 * time.Millisecond)

	logger.Info("Состояние после сценария",
		zap.Int("unread", engine.UnreadCount()),
		zap.Int("transcript", len(engine.Transcript("bob@economit.io"))),
		zap.Int("tasks", len(engine.BoardState())),
	)

	if err := engine.MoveTask(1, entities.TaskStatusInProgress, 0); err != nil {
		logger.Warn("Перенос задачи отклонен", zap.Error(err))
	}
	time.Sleep(300 * time.Millisecond)

	if view, ok := engine.BoardState()[1]; ok {
		logger.Info("Задача 1 после переноса",
			zap.String("status", string(view.Status)),
			zap.Int("position", view.Position),
		)
	}

	logger.Info("Демо запущено, Ctrl+C для выхода")
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
}

func seed(stub *stubserver.Server) {
	users := []struct{ email, password, first, last string }{
		{"alice@economit.io", "alice-password", "Alice", "Admin"},
		{"bob@economit.io", "bob-password", "Bob", "Builder"},
	}
	for _, u := range users {
		if _, err := stub.Store().AddUser(u.email, u.password, u.first, u.last); err != nil {
			log.Fatalf("seed user %s: %v", u.email, err)
		}
	}

	stub.Store().AddTask(entities.Task{
		Title:        "Fix Printer",
		Description:  "Третий этаж, опять зажевало бумагу",
		Status:       entities.TaskStatusTodo,
		AssignedToID: 1,
	})
	stub.Store().AddTask(entities.Task{
		Title:          "Prepare payroll",
		Status:         entities.TaskStatusTodo,
		ColumnPosition: 1,
		AssignedToID:   2,
	})
}

func login(apiURL, email, password string) (*dto.LoginResponseDTO, error) {
	body, err := json.Marshal(dto.LoginDTO{Email: email, Password: password})
	if err != nil {
		return nil, err
	}
	resp, err := http.Post(apiURL+"/auth/login", "application/json", bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("login: статус %d", resp.StatusCode)
	}
	var out dto.LoginResponseDTO
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, err
	}
	return &out, nil
}
