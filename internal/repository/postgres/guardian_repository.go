package postgres

import (
	"context"
	"time"

	"github.com/Freeeeeet/vaccination_scheduler/internal/calendar"
	"github.com/Freeeeeet/vaccination_scheduler/internal/model"
	"github.com/Freeeeeet/vaccination_scheduler/internal/repository/base"
	"github.com/jackc/pgx/v5/pgxpool"
)

type GuardianRepository struct {
	db  *base.Repository
	loc *time.Location
}

func NewGuardianRepository(pool *pgxpool.Pool, loc *time.Location) *GuardianRepository {
	return &GuardianRepository{db: base.NewRepository(pool), loc: loc}
}

// Create создаёт нового опекуна
func (r *GuardianRepository) Create(ctx context.Context, guardian *model.Guardian) error {
	query := `
		INSERT INTO users (name, phone, telegram_chat_id)
		VALUES ($1, $2, $3)
		RETURNING id, created_at
	`

	err := r.db.QueryRow(ctx, query, guardian.Name, guardian.Phone, guardian.TelegramChatID).
		Scan(&guardian.ID, &guardian.CreatedAt)
	if err != nil {
		return model.Transient("create user", err)
	}

	return nil
}

// GetByID получает опекуна по ID (без детей)
func (r *GuardianRepository) GetByID(ctx context.Context, id int64) (*model.Guardian, error) {
	query := `
		SELECT id, name, phone, telegram_chat_id, created_at
		FROM users
		WHERE id = $1
	`

	var g model.Guardian
	err := r.db.QueryRow(ctx, query, id).Scan(&g.ID, &g.Name, &g.Phone, &g.TelegramChatID, &g.CreatedAt)
	if err != nil {
		if base.IsNotFound(err) {
			return nil, nil
		}
		return nil, model.Transient("get user by id", err)
	}

	return &g, nil
}

// ListWithChildren получает всех опекунов вместе с детьми одним запросом
func (r *GuardianRepository) ListWithChildren(ctx context.Context) ([]*model.Guardian, error) {
	query := `
		SELECT u.id, u.name, u.phone, u.telegram_chat_id, u.created_at,
		       c.id, c.name, c.birth_date, c.gender, c.created_at
		FROM users u
		JOIN children c ON c.user_id = u.id
		ORDER BY u.id, c.id
	`

	rows, err := r.db.Query(ctx, query)
	if err != nil {
		return nil, model.Transient("list users with children", err)
	}
	defer rows.Close()

	var guardians []*model.Guardian
	var current *model.Guardian
	for rows.Next() {
		var g model.Guardian
		var c model.Child
		err := rows.Scan(
			&g.ID, &g.Name, &g.Phone, &g.TelegramChatID, &g.CreatedAt,
			&c.ID, &c.Name, &c.BirthDate, &c.Gender, &c.CreatedAt,
		)
		if err != nil {
			return nil, model.Transient("scan user with child", err)
		}

		if current == nil || current.ID != g.ID {
			current = &g
			guardians = append(guardians, current)
		}

		c.UserID = current.ID
		c.BirthDate = calendar.DateIn(c.BirthDate, r.loc)
		current.Children = append(current.Children, &c)
	}
	if err := rows.Err(); err != nil {
		return nil, model.Transient("list users with children", err)
	}

	return guardians, nil
}
