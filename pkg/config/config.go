// Файл: pkg/config/config.go
package config

import (
	"log"
	"strconv"
	"time"

	"github.com/joho/godotenv"

	"os"
)

type ServerConfig struct {
	Port string
}

type SyncConfig struct {
	// WSURL — адрес push-канала (websocket endpoint бэкенда).
	WSURL string
	// APIURL — базовый адрес REST-коллаборатора.
	APIURL string

	// Политика переподключения (по умолчанию выключена — connect
	// выполняется ровно один раз за mount, как в исходной ревизии).
	ReconnectEnabled  bool
	ReconnectBaseWait time.Duration
	ReconnectMaxWait  time.Duration
	ReconnectAttempts int

	// DedupMaxPerTopic — потолок множества виденных id на топик.
	// 0 = без ограничения (окно = время жизни сессии).
	DedupMaxPerTopic int
	// DedupUseRedis переключает окно дедупликации на Redis —
	// общее для нескольких процессов одной сессии.
	DedupUseRedis bool
	// DedupTTL — время жизни ключей Redis-окна.
	DedupTTL time.Duration
}

type JWTConfig struct {
	SecretKey      string
	AccessTokenTTL time.Duration
}

type RedisConfig struct {
	Address  string
	Password string
}

type Config struct {
	Server ServerConfig
	Sync   SyncConfig
	JWT    JWTConfig
	Redis  RedisConfig
}

func New() *Config {
	if err := godotenv.Load(); err != nil {
		log.Println("Предупреждение: .env файл не найден или не удалось его загрузить.")
	}

	return &Config{
		Server: ServerConfig{
			Port: getEnv("SERVER_PORT", "8080"),
		},
		Sync: SyncConfig{
			WSURL:             getEnv("WS_URL", "ws://localhost:8080/ws"),
			APIURL:            getEnv("API_URL", "http://localhost:8080/api"),
			ReconnectEnabled:  getEnvBool("SYNC_RECONNECT", false),
			ReconnectBaseWait: time.Second,
			ReconnectMaxWait:  time.Second * 30,
			ReconnectAttempts: getEnvInt("SYNC_RECONNECT_ATTEMPTS", 10),
			DedupMaxPerTopic:  getEnvInt("SYNC_DEDUP_MAX", 0),
			DedupUseRedis:     getEnvBool("SYNC_DEDUP_REDIS", false),
			DedupTTL:          time.Hour * 24,
		},
		JWT: JWTConfig{
			SecretKey:      getEnv("JWT_SECRET_KEY", "9A4D2AD385B2BAA8DC78F558B548F"),
			AccessTokenTTL: time.Hour * 24,
		},
		Redis: RedisConfig{
			Address:  getEnv("REDIS_ADDRESS", "localhost:6379"),
			Password: getEnv("REDIS_PASSWORD", ""),
		},
	}
}

func getEnv(key, fallback string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if value, exists := os.LookupEnv(key); exists {
		if n, err := strconv.Atoi(value); err == nil {
			return n
		}
	}
	return fallback
}

func getEnvBool(key string, fallback bool) bool {
	if value, exists := os.LookupEnv(key); exists {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return fallback
}
