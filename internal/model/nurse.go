package model

import "time"

// Nurse выездная медсестра, которой принадлежат слоты
type Nurse struct {
	ID          int64     `json:"id"`
	Name        string    `json:"name" validate:"required,min=2,max=150"`
	Phone       string    `json:"phone" validate:"required,e164"`
	Email       string    `json:"email" validate:"omitempty,email"`
	Affiliation string    `json:"affiliation" validate:"max=200"`
	CreatedAt   time.Time `json:"created_at"`
}
