package postgres

import (
	"time"

	"github.com/Freeeeeet/vaccination_scheduler/internal/repository"
	"github.com/Freeeeeet/vaccination_scheduler/internal/repository/base"
	"github.com/jackc/pgx/v5/pgxpool"
)

// NewStore собирает репозитории поверх пула PostgreSQL
func NewStore(pool *pgxpool.Pool, loc *time.Location) *repository.Store {
	return &repository.Store{
		Tx:        base.NewTransactor(pool),
		Nurses:    NewNurseRepository(pool),
		Slots:     NewSlotRepository(pool, loc),
		Requests:  NewVaccineRequestRepository(pool, loc),
		Children:  NewChildRepository(pool, loc),
		Guardians: NewGuardianRepository(pool, loc),
		Vaccines:  NewVaccineRepository(pool),
		Reminders: NewReminderLogRepository(pool),
	}
}

var (
	_ repository.NurseRepository          = (*NurseRepository)(nil)
	_ repository.SlotRepository           = (*SlotRepository)(nil)
	_ repository.VaccineRequestRepository = (*VaccineRequestRepository)(nil)
	_ repository.ChildRepository          = (*ChildRepository)(nil)
	_ repository.GuardianRepository       = (*GuardianRepository)(nil)
	_ repository.VaccineRepository        = (*VaccineRepository)(nil)
	_ repository.ReminderLogRepository    = (*ReminderLogRepository)(nil)
	_ repository.Transactor               = (*base.Transactor)(nil)
)
