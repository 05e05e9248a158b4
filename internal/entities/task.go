// Файл: internal/entities/task.go
package entities

import "time"

// TaskStatus — колонка kanban-доски.
type TaskStatus string

const (
	TaskStatusTodo       TaskStatus = "TODO"
	TaskStatusInProgress TaskStatus = "IN_PROGRESS"
	TaskStatusDone       TaskStatus = "DONE"
)

// TaskColumns — фиксированный порядок колонок доски.
var TaskColumns = []TaskStatus{TaskStatusTodo, TaskStatusInProgress, TaskStatusDone}

// ValidTaskStatus проверяет строку со стороны провода/REST.
func ValidTaskStatus(raw string) bool {
	switch TaskStatus(raw) {
	case TaskStatusTodo, TaskStatusInProgress, TaskStatusDone:
		return true
	}
	return false
}

// Task — кэшированная проекция задачи. Авторитетная копия живет на сервере;
// локально к ней может быть применена максимум одна незакоммиченная мутация.
type Task struct {
	ID             uint64     `json:"id"`
	Title          string     `json:"title"`
	Description    string     `json:"description,omitempty"`
	Status         TaskStatus `json:"status"`
	ColumnPosition int        `json:"columnPosition"`
	AssignedToID   uint64     `json:"assignedToId"`
	Rating         int        `json:"rating"`
	DueDate        time.Time  `json:"dueDate,omitempty"`
}

// TaskView — снимок задачи для вьюхи (status/позиция/рейтинг).
type TaskView struct {
	Status   TaskStatus `json:"status"`
	Position int        `json:"position"`
	Rating   int        `json:"rating"`
}
