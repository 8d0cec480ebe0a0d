package postgres

import (
	"context"

	"github.com/Freeeeeet/vaccination_scheduler/internal/model"
	"github.com/Freeeeeet/vaccination_scheduler/internal/repository/base"
	"github.com/jackc/pgx/v5/pgxpool"
)

type VaccineRepository struct {
	db *base.Repository
}

func NewVaccineRepository(pool *pgxpool.Pool) *VaccineRepository {
	return &VaccineRepository{db: base.NewRepository(pool)}
}

// Create создаёт вакцину в каталоге
func (r *VaccineRepository) Create(ctx context.Context, vaccine *model.Vaccine) error {
	query := `
		INSERT INTO vaccines (name, required_age, description, price)
		VALUES ($1, $2, $3, $4)
		RETURNING id, created_at
	`

	err := r.db.QueryRow(ctx, query, vaccine.Name, vaccine.RequiredAge, vaccine.Description, vaccine.Price).
		Scan(&vaccine.ID, &vaccine.CreatedAt)
	if err != nil {
		return model.Transient("create vaccine", err)
	}

	return nil
}

// GetByID получает вакцину по ID
func (r *VaccineRepository) GetByID(ctx context.Context, id int64) (*model.Vaccine, error) {
	query := `
		SELECT id, name, required_age, description, price, created_at
		FROM vaccines
		WHERE id = $1
	`

	var v model.Vaccine
	err := r.db.QueryRow(ctx, query, id).Scan(&v.ID, &v.Name, &v.RequiredAge, &v.Description, &v.Price, &v.CreatedAt)
	if err != nil {
		if base.IsNotFound(err) {
			return nil, nil
		}
		return nil, model.Transient("get vaccine by id", err)
	}

	return &v, nil
}

// List получает весь каталог вакцин
func (r *VaccineRepository) List(ctx context.Context) ([]*model.Vaccine, error) {
	query := `
		SELECT id, name, required_age, description, price, created_at
		FROM vaccines
		ORDER BY id
	`

	rows, err := r.db.Query(ctx, query)
	if err != nil {
		return nil, model.Transient("list vaccines", err)
	}
	defer rows.Close()

	var vaccines []*model.Vaccine
	for rows.Next() {
		var v model.Vaccine
		if err := rows.Scan(&v.ID, &v.Name, &v.RequiredAge, &v.Description, &v.Price, &v.CreatedAt); err != nil {
			return nil, model.Transient("scan vaccine", err)
		}
		vaccines = append(vaccines, &v)
	}
	if err := rows.Err(); err != nil {
		return nil, model.Transient("list vaccines", err)
	}

	return vaccines, nil
}
