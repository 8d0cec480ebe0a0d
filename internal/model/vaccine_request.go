package model

import "time"

type RequestStatus string

const (
	RequestStatusPending   RequestStatus = "pending"   // Создана опекуном, ждёт слот
	RequestStatusConfirmed RequestStatus = "confirmed" // Привязана к слоту медсестры
	RequestStatusRejected  RequestStatus = "rejected"  // Отклонена администратором
	RequestStatusDelivered RequestStatus = "delivered" // Вакцина введена
)

// IsTerminal проверяет, что из статуса нет переходов
func (s RequestStatus) IsTerminal() bool {
	return s == RequestStatusRejected || s == RequestStatusDelivered
}

// VaccineRequest заявка опекуна на выездную вакцинацию ребёнка
type VaccineRequest struct {
	ID              int64         `json:"id"`
	ParentID        int64         `json:"parent_id"`
	ChildID         int64         `json:"child_id"`
	VaccineID       int64         `json:"vaccine_id"`
	NurseID         *int64        `json:"nurse_id"`      // nil пока заявка не подтверждена
	NurseSlotID     *int64        `json:"nurse_slot_id"` // задаётся вместе с NurseID
	Status          RequestStatus `json:"status"`
	VaccinationDate time.Time     `json:"vaccination_date"`
	Address         Address       `json:"address"`
	CreatedAt       time.Time     `json:"created_at"`
	UpdatedAt       time.Time     `json:"updated_at"`
}

// Address адрес выезда медсестры
type Address struct {
	Line1      string `json:"line1" validate:"required,max=200"`
	Line2      string `json:"line2" validate:"max=200"`
	City       string `json:"city" validate:"required,max=100"`
	State      string `json:"state" validate:"max=100"`
	PostalCode string `json:"postal_code" validate:"required,max=20"`
}

// IsPending checks if request is pending
func (r *VaccineRequest) IsPending() bool {
	return r.Status == RequestStatusPending
}

// IsConfirmed checks if request is confirmed
func (r *VaccineRequest) IsConfirmed() bool {
	return r.Status == RequestStatusConfirmed
}

// HasAssignment проверяет, что заявке назначены медсестра и слот
func (r *VaccineRequest) HasAssignment() bool {
	return r.NurseID != nil && r.NurseSlotID != nil
}
