package postgres

import (
	"context"
	"time"

	"github.com/Freeeeeet/vaccination_scheduler/internal/calendar"
	"github.com/Freeeeeet/vaccination_scheduler/internal/model"
	"github.com/Freeeeeet/vaccination_scheduler/internal/repository/base"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const slotColumns = `id, nurse_id, slot_date, start_time, end_time, is_booked, created_at`

type SlotRepository struct {
	db  *base.Repository
	loc *time.Location
}

// NewSlotRepository создаёт репозиторий слотов; loc - часовой пояс клиники
func NewSlotRepository(pool *pgxpool.Pool, loc *time.Location) *SlotRepository {
	return &SlotRepository{db: base.NewRepository(pool), loc: loc}
}

type scanner interface {
	Scan(dest ...any) error
}

func (r *SlotRepository) scan(row scanner) (*model.Slot, error) {
	var slot model.Slot
	err := row.Scan(
		&slot.ID,
		&slot.NurseID,
		&slot.Date,
		&slot.StartTime,
		&slot.EndTime,
		&slot.IsBooked,
		&slot.CreatedAt,
	)
	if err != nil {
		return nil, err
	}

	slot.Date = calendar.DateIn(slot.Date, r.loc)
	slot.StartTime = slot.StartTime.In(r.loc)
	slot.EndTime = slot.EndTime.In(r.loc)
	return &slot, nil
}

func (r *SlotRepository) list(ctx context.Context, op, query string, args ...any) ([]*model.Slot, error) {
	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, model.Transient(op, err)
	}
	defer rows.Close()

	var slots []*model.Slot
	for rows.Next() {
		slot, err := r.scan(rows)
		if err != nil {
			return nil, model.Transient("scan slot", err)
		}
		slots = append(slots, slot)
	}
	if err := rows.Err(); err != nil {
		return nil, model.Transient(op, err)
	}

	return slots, nil
}

// BulkCreate вставляет слоты одной командой COPY
func (r *SlotRepository) BulkCreate(ctx context.Context, slots []*model.Slot) (int64, error) {
	if len(slots) == 0 {
		return 0, nil
	}

	n, err := r.db.Conn(ctx).CopyFrom(
		ctx,
		pgx.Identifier{"nurse_slots"},
		[]string{"nurse_id", "slot_date", "start_time", "end_time", "is_booked"},
		pgx.CopyFromSlice(len(slots), func(i int) ([]any, error) {
			s := slots[i]
			return []any{s.NurseID, s.Date, s.StartTime, s.EndTime, s.IsBooked}, nil
		}),
	)
	if err != nil {
		return 0, model.Transient("bulk create slots", err)
	}

	return n, nil
}

// GetByID получает слот по ID
func (r *SlotRepository) GetByID(ctx context.Context, id int64) (*model.Slot, error) {
	query := `SELECT ` + slotColumns + ` FROM nurse_slots WHERE id = $1`

	slot, err := r.scan(r.db.QueryRow(ctx, query, id))
	if err != nil {
		if base.IsNotFound(err) {
			return nil, nil
		}
		return nil, model.Transient("get slot by id", err)
	}

	return slot, nil
}

// GetByIDForNurse получает слот медсестры и блокирует строку до конца транзакции
func (r *SlotRepository) GetByIDForNurse(ctx context.Context, slotID, nurseID int64) (*model.Slot, error) {
	query := `
		SELECT ` + slotColumns + `
		FROM nurse_slots
		WHERE id = $1 AND nurse_id = $2
		FOR UPDATE
	`

	slot, err := r.scan(r.db.QueryRow(ctx, query, slotID, nurseID))
	if err != nil {
		if base.IsNotFound(err) {
			return nil, nil
		}
		return nil, model.Transient("get slot for nurse", err)
	}

	return slot, nil
}

// ListFree получает все свободные слоты медсестры
func (r *SlotRepository) ListFree(ctx context.Context, nurseID int64) ([]*model.Slot, error) {
	query := `
		SELECT ` + slotColumns + `
		FROM nurse_slots
		WHERE nurse_id = $1 AND is_booked = FALSE
		ORDER BY slot_date, start_time
	`
	return r.list(ctx, "get free slots", query, nurseID)
}

// ListByNurse получает все слоты медсестры за период дат
func (r *SlotRepository) ListByNurse(ctx context.Context, nurseID int64, from, to time.Time) ([]*model.Slot, error) {
	query := `
		SELECT ` + slotColumns + `
		FROM nurse_slots
		WHERE nurse_id = $1
		  AND slot_date >= $2
		  AND slot_date < $3
		ORDER BY slot_date, start_time
	`
	return r.list(ctx, "get slots by nurse", query, nurseID, from, to)
}

// CountInRange считает слоты медсестры с датой в [from, to)
func (r *SlotRepository) CountInRange(ctx context.Context, nurseID int64, from, to time.Time) (int, error) {
	query := `
		SELECT COUNT(*)
		FROM nurse_slots
		WHERE nurse_id = $1 AND slot_date >= $2 AND slot_date < $3
	`

	var count int
	if err := r.db.QueryRow(ctx, query, nurseID, from, to).Scan(&count); err != nil {
		return 0, model.Transient("count slots", err)
	}

	return count, nil
}

// SetBooked бронирует или освобождает слот (compare-and-swap по is_booked)
func (r *SlotRepository) SetBooked(ctx context.Context, slotID int64, booked bool) (bool, error) {
	query := `
		UPDATE nurse_slots
		SET is_booked = $2
		WHERE id = $1 AND is_booked = NOT $2
	`

	affected, err := r.db.ExecAffected(ctx, query, slotID, booked)
	if err != nil {
		return false, model.Transient("update slot booking", err)
	}

	return affected == 1, nil
}

// DeleteUnbookedBefore удаляет свободные слоты старше cutoff. Занятые слоты остаются для истории.
func (r *SlotRepository) DeleteUnbookedBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	query := `DELETE FROM nurse_slots WHERE slot_date < $1 AND is_booked = FALSE`

	affected, err := r.db.ExecAffected(ctx, query, cutoff)
	if err != nil {
		return 0, model.Transient("delete expired slots", err)
	}

	return affected, nil
}
