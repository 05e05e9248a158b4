// Файл: pkg/logger/log.go
package logger

import "go.uber.org/zap"

// NewLogger создает основной логгер приложения.
// Консольный вывод в stdout, уровень Debug — движок синхронизации
// активно логирует деградации (обрыв канала, дубликаты, откаты).
func NewLogger() *zap.Logger {
	cfg := zap.Config{
		Encoding:         "console",
		Level:            zap.NewAtomicLevelAt(zap.DebugLevel),
		OutputPaths:      []string{"stdout"},
		ErrorOutputPaths: []string{"stderr"},
		EncoderConfig:    zap.NewProductionEncoderConfig(),
	}

	l, err := cfg.Build()
	if err != nil {
		panic(err)
	}

	return l
}
