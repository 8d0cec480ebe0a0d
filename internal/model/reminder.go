package model

import (
	"time"

	"github.com/google/uuid"
)

// Checkpoint за сколько дней до наступления права на прививку отправляется напоминание
type Checkpoint int

const (
	Checkpoint10Days Checkpoint = 10
	Checkpoint3Days  Checkpoint = 3
	Checkpoint1Day   Checkpoint = 1
)

// Checkpoints все контрольные точки напоминаний
var Checkpoints = []Checkpoint{Checkpoint10Days, Checkpoint3Days, Checkpoint1Day}

// CheckpointFor возвращает контрольную точку для смещения в днях
func CheckpointFor(days int) (Checkpoint, bool) {
	for _, c := range Checkpoints {
		if int(c) == days {
			return c, true
		}
	}
	return 0, false
}

// ChildVaccine пара ребёнок/вакцина
type ChildVaccine struct {
	ChildID   int64
	VaccineID int64
}

// ReminderDispatch запись в журнале отправленных напоминаний
type ReminderDispatch struct {
	ChildID    int64      `json:"child_id"`
	VaccineID  int64      `json:"vaccine_id"`
	Checkpoint Checkpoint `json:"checkpoint"`
	TargetDate time.Time  `json:"target_date"`
	RunID      uuid.UUID  `json:"run_id"`
	SentAt     time.Time  `json:"sent_at"`
}

// ReminderFailure неудачная отправка напоминания
type ReminderFailure struct {
	GuardianID int64  `json:"guardian_id"`
	Guardian   string `json:"guardian"`
	ChildID    int64  `json:"child_id"`
	Child      string `json:"child"`
	VaccineID  int64  `json:"vaccine_id"`
	Vaccine    string `json:"vaccine"`
	Error      string `json:"error"`
}

// SweepSummary итог прогона напоминаний
type SweepSummary struct {
	RunID           uuid.UUID          `json:"run_id"`
	StartedAt       time.Time          `json:"started_at"`
	TotalDispatched int                `json:"total_dispatched"`
	PerCheckpoint   map[Checkpoint]int `json:"per_checkpoint"`
	Skipped         int                `json:"skipped"`    // пары с ошибкой расчёта
	Duplicates      int                `json:"duplicates"` // уже отправленные ранее
	Failures        []ReminderFailure  `json:"failures"`
}

// NewSweepSummary создаёт пустой итог прогона
func NewSweepSummary(runID uuid.UUID, startedAt time.Time) *SweepSummary {
	per := make(map[Checkpoint]int, len(Checkpoints))
	for _, c := range Checkpoints {
		per[c] = 0
	}
	return &SweepSummary{
		RunID:         runID,
		StartedAt:     startedAt,
		PerCheckpoint: per,
	}
}

// MaintenanceFailure ошибка обслуживания слотов одной медсестры
type MaintenanceFailure struct {
	NurseID int64  `json:"nurse_id"`
	Error   string `json:"error"`
}

// MaintenanceReport итог ежедневного обслуживания слотов
type MaintenanceReport struct {
	RunID          uuid.UUID            `json:"run_id"`
	StartedAt      time.Time            `json:"started_at"`
	NursesChecked  int                  `json:"nurses_checked"`
	NursesRefilled int                  `json:"nurses_refilled"`
	SlotsCreated   int                  `json:"slots_created"`
	SlotsPruned    int64                `json:"slots_pruned"`
	PruneError     string               `json:"prune_error,omitempty"`
	Failures       []MaintenanceFailure `json:"failures"`
}
