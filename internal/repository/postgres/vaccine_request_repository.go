package postgres

import (
	"context"
	"time"

	"github.com/Freeeeeet/vaccination_scheduler/internal/calendar"
	"github.com/Freeeeeet/vaccination_scheduler/internal/model"
	"github.com/Freeeeeet/vaccination_scheduler/internal/repository/base"
	"github.com/jackc/pgx/v5/pgxpool"
)

type VaccineRequestRepository struct {
	db  *base.Repository
	loc *time.Location
}

func NewVaccineRequestRepository(pool *pgxpool.Pool, loc *time.Location) *VaccineRequestRepository {
	return &VaccineRequestRepository{db: base.NewRepository(pool), loc: loc}
}

// Create создаёт новую заявку
func (r *VaccineRequestRepository) Create(ctx context.Context, req *model.VaccineRequest) error {
	query := `
		INSERT INTO vaccine_requests (
			parent_id, child_id, vaccine_id, nurse_id, nurse_slot_id, status, vaccination_date,
			address_line1, address_line2, city, state, postal_code
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		RETURNING id, created_at, updated_at
	`

	err := r.db.QueryRow(
		ctx, query,
		req.ParentID,
		req.ChildID,
		req.VaccineID,
		req.NurseID,
		req.NurseSlotID,
		req.Status,
		req.VaccinationDate,
		req.Address.Line1,
		req.Address.Line2,
		req.Address.City,
		req.Address.State,
		req.Address.PostalCode,
	).Scan(&req.ID, &req.CreatedAt, &req.UpdatedAt)

	if err != nil {
		return model.Transient("create vaccine request", err)
	}

	return nil
}

// GetByID получает заявку по ID
func (r *VaccineRequestRepository) GetByID(ctx context.Context, id int64) (*model.VaccineRequest, error) {
	query := `
		SELECT id, parent_id, child_id, vaccine_id, nurse_id, nurse_slot_id, status, vaccination_date,
		       address_line1, address_line2, city, state, postal_code, created_at, updated_at
		FROM vaccine_requests
		WHERE id = $1
	`

	var req model.VaccineRequest
	err := r.db.QueryRow(ctx, query, id).Scan(
		&req.ID,
		&req.ParentID,
		&req.ChildID,
		&req.VaccineID,
		&req.NurseID,
		&req.NurseSlotID,
		&req.Status,
		&req.VaccinationDate,
		&req.Address.Line1,
		&req.Address.Line2,
		&req.Address.City,
		&req.Address.State,
		&req.Address.PostalCode,
		&req.CreatedAt,
		&req.UpdatedAt,
	)

	if err != nil {
		if base.IsNotFound(err) {
			return nil, nil
		}
		return nil, model.Transient("get vaccine request by id", err)
	}

	req.VaccinationDate = calendar.DateIn(req.VaccinationDate, r.loc)
	return &req, nil
}

// Confirm назначает медсестру и слот pending заявке
func (r *VaccineRequestRepository) Confirm(ctx context.Context, id, nurseID, slotID int64) (bool, error) {
	query := `
		UPDATE vaccine_requests
		SET status = 'confirmed', nurse_id = $2, nurse_slot_id = $3, updated_at = NOW()
		WHERE id = $1 AND status = 'pending' AND nurse_slot_id IS NULL
	`

	affected, err := r.db.ExecAffected(ctx, query, id, nurseID, slotID)
	if err != nil {
		return false, model.Transient("confirm vaccine request", err)
	}

	return affected == 1, nil
}

// UpdateStatus меняет статус заявки, если текущий статус равен from
func (r *VaccineRequestRepository) UpdateStatus(ctx context.Context, id int64, from, to model.RequestStatus) (bool, error) {
	query := `
		UPDATE vaccine_requests
		SET status = $3, updated_at = NOW()
		WHERE id = $1 AND status = $2
	`

	affected, err := r.db.ExecAffected(ctx, query, id, from, to)
	if err != nil {
		return false, model.Transient("update vaccine request status", err)
	}

	return affected == 1, nil
}

// Delete удаляет заявку, если она всё ещё в статусе status
func (r *VaccineRequestRepository) Delete(ctx context.Context, id int64, status model.RequestStatus) (bool, error) {
	affected, err := r.db.ExecAffected(ctx, `DELETE FROM vaccine_requests WHERE id = $1 AND status = $2`, id, status)
	if err != nil {
		return false, model.Transient("delete vaccine request", err)
	}

	return affected == 1, nil
}

// ListSettledPairs получает пары ребёнок/вакцина, по которым напоминания больше не нужны
func (r *VaccineRequestRepository) ListSettledPairs(ctx context.Context) ([]model.ChildVaccine, error) {
	query := `
		SELECT DISTINCT child_id, vaccine_id
		FROM vaccine_requests
		WHERE status IN ('confirmed', 'delivered')
	`

	rows, err := r.db.Query(ctx, query)
	if err != nil {
		return nil, model.Transient("get settled requests", err)
	}
	defer rows.Close()

	var pairs []model.ChildVaccine
	for rows.Next() {
		var p model.ChildVaccine
		if err := rows.Scan(&p.ChildID, &p.VaccineID); err != nil {
			return nil, model.Transient("scan settled request", err)
		}
		pairs = append(pairs, p)
	}
	if err := rows.Err(); err != nil {
		return nil, model.Transient("get settled requests", err)
	}

	return pairs, nil
}

// CountConfirmedByNurse считает подтверждённые заявки медсестры
func (r *VaccineRequestRepository) CountConfirmedByNurse(ctx context.Context, nurseID int64) (int, error) {
	query := `SELECT COUNT(*) FROM vaccine_requests WHERE nurse_id = $1 AND status = 'confirmed'`

	var count int
	if err := r.db.QueryRow(ctx, query, nurseID).Scan(&count); err != nil {
		return 0, model.Transient("count confirmed requests", err)
	}

	return count, nil
}
