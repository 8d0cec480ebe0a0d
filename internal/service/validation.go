package service

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/Freeeeeet/vaccination_scheduler/internal/model"
	"github.com/go-playground/validator/v10"
)

// Validator проверяет входные структуры по тегам validate
type Validator struct {
	validate *validator.Validate
}

func NewValidator() *Validator {
	return &Validator{validate: validator.New()}
}

// Validate возвращает ErrInvalidInput с описанием всех невалидных полей
func (v *Validator) Validate(i any) error {
	err := v.validate.Struct(i)
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return fmt.Errorf("%w: %v", model.ErrInvalidInput, err)
	}

	fields := FormatValidationErrors(verrs)
	msgs := make([]string, 0, len(fields))
	for _, msg := range fields {
		msgs = append(msgs, msg)
	}
	sort.Strings(msgs)

	return fmt.Errorf("%w: %s", model.ErrInvalidInput, strings.Join(msgs, "; "))
}

// FormatValidationErrors переводит ошибки валидатора в сообщения по полям
func FormatValidationErrors(verrs validator.ValidationErrors) map[string]string {
	out := make(map[string]string, len(verrs))
	for _, e := range verrs {
		field := e.Namespace()
		switch e.Tag() {
		case "required":
			out[field] = field + " is required"
		case "email":
			out[field] = field + " must be a valid email address"
		case "e164":
			out[field] = field + " must be a phone number in E.164 format"
		case "min":
			out[field] = field + " must be at least " + e.Param() + " characters"
		case "max":
			out[field] = field + " must be at most " + e.Param() + " characters"
		case "oneof":
			out[field] = field + " must be one of: " + e.Param()
		default:
			out[field] = field + " is invalid"
		}
	}
	return out
}
