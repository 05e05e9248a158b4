// Файл: internal/dto/auth-dto.go
package dto

type LoginDTO struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

type LoginResponseDTO struct {
	Token  string `json:"token"`
	UserID uint64 `json:"userId"`
	Email  string `json:"email"`
}
