package postgres

import (
	"context"

	"github.com/Freeeeeet/vaccination_scheduler/internal/model"
	"github.com/Freeeeeet/vaccination_scheduler/internal/repository/base"
	"github.com/jackc/pgx/v5/pgxpool"
)

// ReminderLogRepository хранит журнал напоминаний в reminder_dispatches
type ReminderLogRepository struct {
	db *base.Repository
}

func NewReminderLogRepository(pool *pgxpool.Pool) *ReminderLogRepository {
	return &ReminderLogRepository{db: base.NewRepository(pool)}
}

// Claim резервирует отправку напоминания; уникальный ключ не даёт отправить его дважды
func (r *ReminderLogRepository) Claim(ctx context.Context, d *model.ReminderDispatch) (bool, error) {
	query := `
		INSERT INTO reminder_dispatches (child_id, vaccine_id, checkpoint, target_date, run_id)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (child_id, vaccine_id, checkpoint, target_date) DO NOTHING
		RETURNING sent_at
	`

	err := r.db.QueryRow(ctx, query, d.ChildID, d.VaccineID, int(d.Checkpoint), d.TargetDate, d.RunID).Scan(&d.SentAt)
	if err != nil {
		if base.IsNotFound(err) {
			return false, nil
		}
		return false, model.Transient("claim reminder", err)
	}

	return true, nil
}

// Release снимает резерв после неудачной отправки
func (r *ReminderLogRepository) Release(ctx context.Context, d *model.ReminderDispatch) error {
	query := `
		DELETE FROM reminder_dispatches
		WHERE child_id = $1 AND vaccine_id = $2 AND checkpoint = $3 AND target_date = $4
	`

	if _, err := r.db.ExecAffected(ctx, query, d.ChildID, d.VaccineID, int(d.Checkpoint), d.TargetDate); err != nil {
		return model.Transient("release reminder", err)
	}

	return nil
}
