package model

import "time"

// Child ребёнок опекуна. Дата рождения не меняется после создания.
type Child struct {
	ID        int64     `json:"id"`
	UserID    int64     `json:"user_id"`
	Name      string    `json:"name" validate:"required,min=1,max=150"`
	BirthDate time.Time `json:"birth_date"`
	Gender    string    `json:"gender" validate:"omitempty,oneof=male female other"`
	CreatedAt time.Time `json:"created_at"`
}
