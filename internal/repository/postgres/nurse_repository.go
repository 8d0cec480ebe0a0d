package postgres

import (
	"context"

	"github.com/Freeeeeet/vaccination_scheduler/internal/model"
	"github.com/Freeeeeet/vaccination_scheduler/internal/repository/base"
	"github.com/jackc/pgx/v5/pgxpool"
)

type NurseRepository struct {
	db *base.Repository
}

func NewNurseRepository(pool *pgxpool.Pool) *NurseRepository {
	return &NurseRepository{db: base.NewRepository(pool)}
}

// Create создаёт новую медсестру
func (r *NurseRepository) Create(ctx context.Context, nurse *model.Nurse) error {
	query := `
		INSERT INTO nurses (name, phone, email, affiliation)
		VALUES ($1, $2, $3, $4)
		RETURNING id, created_at
	`

	err := r.db.QueryRow(ctx, query, nurse.Name, nurse.Phone, nurse.Email, nurse.Affiliation).
		Scan(&nurse.ID, &nurse.CreatedAt)
	if err != nil {
		return model.Transient("create nurse", err)
	}

	return nil
}

// GetByID получает медсестру по ID
func (r *NurseRepository) GetByID(ctx context.Context, id int64) (*model.Nurse, error) {
	query := `
		SELECT id, name, phone, email, affiliation, created_at
		FROM nurses
		WHERE id = $1
	`

	var nurse model.Nurse
	err := r.db.QueryRow(ctx, query, id).Scan(
		&nurse.ID,
		&nurse.Name,
		&nurse.Phone,
		&nurse.Email,
		&nurse.Affiliation,
		&nurse.CreatedAt,
	)
	if err != nil {
		if base.IsNotFound(err) {
			return nil, nil
		}
		return nil, model.Transient("get nurse by id", err)
	}

	return &nurse, nil
}

// List получает всех медсестёр
func (r *NurseRepository) List(ctx context.Context) ([]*model.Nurse, error) {
	query := `
		SELECT id, name, phone, email, affiliation, created_at
		FROM nurses
		ORDER BY id
	`

	rows, err := r.db.Query(ctx, query)
	if err != nil {
		return nil, model.Transient("list nurses", err)
	}
	defer rows.Close()

	var nurses []*model.Nurse
	for rows.Next() {
		var nurse model.Nurse
		err := rows.Scan(
			&nurse.ID,
			&nurse.Name,
			&nurse.Phone,
			&nurse.Email,
			&nurse.Affiliation,
			&nurse.CreatedAt,
		)
		if err != nil {
			return nil, model.Transient("scan nurse", err)
		}
		nurses = append(nurses, &nurse)
	}
	if err := rows.Err(); err != nil {
		return nil, model.Transient("list nurses", err)
	}

	return nurses, nil
}

// Delete удаляет медсестру (слоты удалятся каскадом)
func (r *NurseRepository) Delete(ctx context.Context, id int64) (bool, error) {
	affected, err := r.db.ExecAffected(ctx, `DELETE FROM nurses WHERE id = $1`, id)
	if err != nil {
		return false, model.Transient("delete nurse", err)
	}

	return affected == 1, nil
}
