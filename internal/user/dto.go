package user

import (
	"strings"

	"github.com/frahmantamala/docflow/internal"
	"github.com/frahmantamala/docflow/internal/core/common/validation"
)

type CreateUserDTO struct {
	Email      string `json:"email"`
	Name       string `json:"name"`
	Department string `json:"department"`
	Role       string `json:"role"`
	IsManager  bool   `json:"is_manager"`
}

func (dto CreateUserDTO) Validate() error {
	v := validation.NewValidator()
	v.Field("email", dto.Email).Required().MaxLength(255).Custom(func(value interface{}) *internal.AppError {
		email, _ := value.(string)
		at := strings.Index(email, "@")
		if email != "" && (at < 1 || at == len(email)-1) {
			return internal.NewValidationFieldError("email", "email must be a valid address", internal.ErrCodeInvalidInput)
		}
		return nil
	})
	v.Field("name", dto.Name).Required().MaxLength(255)
	v.Field("department", dto.Department).Required().MaxLength(64)
	v.Field("role", dto.Role).OneOf("admin", "user", "guest")
	return v.Err()
}
