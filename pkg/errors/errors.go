// Файл: pkg/errors/errors.go
package errors

import "fmt"

var (
	// JWT и токены
	ErrInvalidSigningMethod = fmt.Errorf("неверный метод подписи токена")
	ErrInvalidToken         = fmt.Errorf("недопустимый токен")
	ErrTokenExpired         = fmt.Errorf("срок действия токена истёк")

	// Канал доставки
	ErrNotConnected     = fmt.Errorf("соединение не установлено")
	ErrAlreadyConnected = fmt.Errorf("соединение уже установлено")
	ErrConnectionClosed = fmt.Errorf("соединение закрыто")

	// Оптимистичные мутации
	ErrMutationPending = fmt.Errorf("по этой задаче уже есть незавершённая мутация")
	ErrTaskNotFound    = fmt.Errorf("задача не найдена в локальном состоянии")
	ErrNoActivePeer    = fmt.Errorf("собеседник не выбран")

	// Общие
	ErrNotFound   = fmt.Errorf("запись не найдена")
	ErrBadRequest = fmt.Errorf("неверный запрос")
)

// CommitError — отказ commit-запроса оптимистичной мутации.
// Единственный класс ошибок, который обязан дойти до пользователя (§ откат).
type CommitError struct {
	TaskID uint64
	Cause  error
}

func (e *CommitError) Error() string {
	return fmt.Sprintf("commit мутации задачи %d отклонён: %v", e.TaskID, e.Cause)
}

func (e *CommitError) Unwrap() error { return e.Cause }

func NewCommitError(taskID uint64, cause error) error {
	return &CommitError{TaskID: taskID, Cause: cause}
}

// FetchError — неудача начальной загрузки (уведомления, история чата).
// Восстановимая: проекция остаётся пустой, живой канал продолжает работать.
type FetchError struct {
	Resource string
	Cause    error
}

func (e *FetchError) Error() string {
	return fmt.Sprintf("не удалось загрузить %s: %v", e.Resource, e.Cause)
}

func (e *FetchError) Unwrap() error { return e.Cause }

func NewFetchError(resource string, cause error) error {
	return &FetchError{Resource: resource, Cause: cause}
}

// TransportError — проблема самого канала (handshake, обрыв).
// Не показывается пользователю: UI живет дальше без live-обновлений.
type TransportError struct {
	Op    string
	Cause error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("транспорт (%s): %v", e.Op, e.Cause)
}

func (e *TransportError) Unwrap() error { return e.Cause }

func NewTransportError(op string, cause error) error {
	return &TransportError{Op: op, Cause: cause}
}
