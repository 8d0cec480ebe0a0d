package repository

import (
	"context"
	"time"

	"github.com/Freeeeeet/vaccination_scheduler/internal/model"
)

// Методы Get* возвращают (nil, nil), если запись не найдена.
// Условные обновления возвращают false, если ожидаемое состояние не совпало.

// Transactor выполняет fn в одной транзакции. Репозитории, вызванные с
// переданным в fn контекстом, работают внутри этой транзакции.
type Transactor interface {
	WithinTx(ctx context.Context, fn func(ctx context.Context) error) error
}

// NurseRepository определяет интерфейс для работы с медсёстрами
type NurseRepository interface {
	Create(ctx context.Context, nurse *model.Nurse) error
	GetByID(ctx context.Context, id int64) (*model.Nurse, error)
	List(ctx context.Context) ([]*model.Nurse, error)
	// Delete удаляет медсестру вместе со всеми её слотами
	Delete(ctx context.Context, id int64) (bool, error)
}

// SlotRepository определяет интерфейс для работы со слотами медсестёр
type SlotRepository interface {
	BulkCreate(ctx context.Context, slots []*model.Slot) (int64, error)
	GetByID(ctx context.Context, id int64) (*model.Slot, error)
	GetByIDForNurse(ctx context.Context, slotID, nurseID int64) (*model.Slot, error)
	// ListFree возвращает свободные слоты по возрастанию даты и времени начала
	ListFree(ctx context.Context, nurseID int64) ([]*model.Slot, error)
	// ListByNurse возвращает слоты с датой в [from, to) по возрастанию даты и времени начала
	ListByNurse(ctx context.Context, nurseID int64, from, to time.Time) ([]*model.Slot, error)
	CountInRange(ctx context.Context, nurseID int64, from, to time.Time) (int, error)
	// SetBooked меняет is_booked на booked, только если сейчас стоит противоположное значение
	SetBooked(ctx context.Context, slotID int64, booked bool) (bool, error)
	// DeleteUnbookedBefore удаляет свободные слоты с датой строго раньше cutoff
	DeleteUnbookedBefore(ctx context.Context, cutoff time.Time) (int64, error)
}

// VaccineRequestRepository определяет интерфейс для работы с заявками на вакцинацию
type VaccineRequestRepository interface {
	Create(ctx context.Context, req *model.VaccineRequest) error
	GetByID(ctx context.Context, id int64) (*model.VaccineRequest, error)
	// Confirm переводит pending заявку в confirmed и назначает медсестру и слот
	Confirm(ctx context.Context, id, nurseID, slotID int64) (bool, error)
	UpdateStatus(ctx context.Context, id int64, from, to model.RequestStatus) (bool, error)
	// Delete удаляет заявку, только если её текущий статус равен status
	Delete(ctx context.Context, id int64, status model.RequestStatus) (bool, error)
	// ListSettledPairs возвращает пары ребёнок/вакцина с confirmed или delivered заявкой
	ListSettledPairs(ctx context.Context) ([]model.ChildVaccine, error)
	CountConfirmedByNurse(ctx context.Context, nurseID int64) (int, error)
}

// ChildRepository определяет интерфейс для работы с детьми
type ChildRepository interface {
	Create(ctx context.Context, child *model.Child) error
	GetByID(ctx context.Context, id int64) (*model.Child, error)
}

// GuardianRepository определяет интерфейс для работы с опекунами
type GuardianRepository interface {
	Create(ctx context.Context, guardian *model.Guardian) error
	GetByID(ctx context.Context, id int64) (*model.Guardian, error)
	// ListWithChildren возвращает опекунов, у которых есть хотя бы один ребёнок
	ListWithChildren(ctx context.Context) ([]*model.Guardian, error)
}

// VaccineRepository определяет интерфейс для работы с каталогом вакцин
type VaccineRepository interface {
	Create(ctx context.Context, vaccine *model.Vaccine) error
	GetByID(ctx context.Context, id int64) (*model.Vaccine, error)
	List(ctx context.Context) ([]*model.Vaccine, error)
}

// ReminderLogRepository журнал отправленных напоминаний
type ReminderLogRepository interface {
	// Claim резервирует отправку; false - напоминание уже было отправлено
	Claim(ctx context.Context, d *model.ReminderDispatch) (bool, error)
	Release(ctx context.Context, d *model.ReminderDispatch) error
}

// Store объединяет все репозитории
type Store struct {
	Tx        Transactor
	Nurses    NurseRepository
	Slots     SlotRepository
	Requests  VaccineRequestRepository
	Children  ChildRepository
	Guardians GuardianRepository
	Vaccines  VaccineRepository
	Reminders ReminderLogRepository
}
