package service

import (
	"context"
	"fmt"
	"time"

	"github.com/Freeeeeet/vaccination_scheduler/internal/calendar"
	"github.com/Freeeeeet/vaccination_scheduler/internal/model"
	"github.com/Freeeeeet/vaccination_scheduler/internal/repository"
	"go.uber.org/zap"
)

// ReminderTrigger запускает прогон напоминаний вне расписания
type ReminderTrigger interface {
	RunRemindersNow(ctx context.Context) (*model.SweepSummary, error)
}

// AddChildInput данные нового ребёнка опекуна
type AddChildInput struct {
	GuardianID int64
	Name       string
	BirthDate  time.Time
	Gender     string
}

// ChildService добавляет детей и сразу проверяет, не пора ли напомнить о прививках
type ChildService struct {
	children  repository.ChildRepository
	guardians repository.GuardianRepository
	trigger   ReminderTrigger
	validator *Validator
	clock     calendar.Clock
	logger    *zap.Logger
}

func NewChildService(
	store *repository.Store,
	trigger ReminderTrigger,
	validator *Validator,
	clock calendar.Clock,
	logger *zap.Logger,
) *ChildService {
	return &ChildService{
		children:  store.Children,
		guardians: store.Guardians,
		trigger:   trigger,
		validator: validator,
		clock:     clock,
		logger:    logger,
	}
}

// Add сохраняет ребёнка и запускает прогон напоминаний.
// Ошибка или пропуск прогона только логируются.
func (s *ChildService) Add(ctx context.Context, input AddChildInput) (*model.Child, error) {
	child := &model.Child{
		UserID: input.GuardianID,
		Name:   input.Name,
		Gender: input.Gender,
	}
	if err := s.validator.Validate(child); err != nil {
		return nil, err
	}

	now := s.clock.Now()
	if input.BirthDate.IsZero() {
		return nil, fmt.Errorf("%w: birth date is required", model.ErrInvalidInput)
	}
	birth := calendar.DateIn(input.BirthDate, now.Location())
	if calendar.DaysBetween(now, birth) > 0 {
		return nil, fmt.Errorf("%w: birth date %s is in the future", model.ErrInvalidInput, birth.Format(time.DateOnly))
	}
	child.BirthDate = birth

	guardian, err := s.guardians.GetByID(ctx, input.GuardianID)
	if err != nil {
		return nil, fmt.Errorf("get guardian: %w", err)
	}
	if guardian == nil {
		return nil, fmt.Errorf("%w: guardian %d", model.ErrNotFound, input.GuardianID)
	}

	if err := s.children.Create(ctx, child); err != nil {
		return nil, fmt.Errorf("create child: %w", err)
	}

	s.logger.Info("Child added",
		zap.Int64("child_id", child.ID),
		zap.Int64("guardian_id", guardian.ID),
	)

	if s.trigger != nil {
		if _, err := s.trigger.RunRemindersNow(ctx); err != nil {
			s.logger.Warn("Reminder check after adding child did not run",
				zap.Int64("child_id", child.ID),
				zap.Error(err),
			)
		}
	}

	return child, nil
}
