package model

import "time"

type Vaccine struct {
	ID          int64     `json:"id"`
	Name        string    `json:"name"`
	RequiredAge string    `json:"required_age"` // символьный возраст, см. eligibility.AgeRequirement
	Description string    `json:"description"`
	Price       int64     `json:"price"` // в минимальных единицах валюты
	CreatedAt   time.Time `json:"created_at"`
}
