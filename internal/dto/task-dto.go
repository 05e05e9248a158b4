// Файл: internal/dto/task-dto.go
package dto

// UpdateTaskDTO — параметры commit-запроса оптимистичной мутации.
// И status, и stars опциональны: перенос по доске шлет только status,
// оценка — только stars.
type UpdateTaskDTO struct {
	Status *string `validate:"omitempty,oneof=TODO IN_PROGRESS DONE"`
	Stars  *int    `validate:"omitempty,min=1,max=5"`
}
