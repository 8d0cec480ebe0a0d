package postgres

import (
	"context"
	"time"

	"github.com/Freeeeeet/vaccination_scheduler/internal/calendar"
	"github.com/Freeeeeet/vaccination_scheduler/internal/model"
	"github.com/Freeeeeet/vaccination_scheduler/internal/repository/base"
	"github.com/jackc/pgx/v5/pgxpool"
)

type ChildRepository struct {
	db  *base.Repository
	loc *time.Location
}

func NewChildRepository(pool *pgxpool.Pool, loc *time.Location) *ChildRepository {
	return &ChildRepository{db: base.NewRepository(pool), loc: loc}
}

// Create создаёт запись о ребёнке
func (r *ChildRepository) Create(ctx context.Context, child *model.Child) error {
	query := `
		INSERT INTO children (user_id, name, birth_date, gender)
		VALUES ($1, $2, $3, $4)
		RETURNING id, created_at
	`

	err := r.db.QueryRow(ctx, query, child.UserID, child.Name, child.BirthDate, child.Gender).
		Scan(&child.ID, &child.CreatedAt)
	if err != nil {
		return model.Transient("create child", err)
	}

	return nil
}

// GetByID получает ребёнка по ID
func (r *ChildRepository) GetByID(ctx context.Context, id int64) (*model.Child, error) {
	query := `
		SELECT id, user_id, name, birth_date, gender, created_at
		FROM children
		WHERE id = $1
	`

	var c model.Child
	err := r.db.QueryRow(ctx, query, id).Scan(&c.ID, &c.UserID, &c.Name, &c.BirthDate, &c.Gender, &c.CreatedAt)
	if err != nil {
		if base.IsNotFound(err) {
			return nil, nil
		}
		return nil, model.Transient("get child by id", err)
	}

	c.BirthDate = calendar.DateIn(c.BirthDate, r.loc)
	return &c, nil
}
