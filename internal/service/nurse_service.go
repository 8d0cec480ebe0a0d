package service

import (
	"context"
	"fmt"

	"github.com/Freeeeeet/vaccination_scheduler/internal/calendar"
	"github.com/Freeeeeet/vaccination_scheduler/internal/model"
	"github.com/Freeeeeet/vaccination_scheduler/internal/repository"
	"go.uber.org/zap"
)

// RegisterNurseInput данные для регистрации медсестры
type RegisterNurseInput struct {
	Name        string
	Phone       string
	Email       string
	Affiliation string
}

// NurseService регистрирует и удаляет медсестёр
type NurseService struct {
	tx        repository.Transactor
	nurses    repository.NurseRepository
	requests  repository.VaccineRequestRepository
	slots     *SlotService
	validator *Validator
	clock     calendar.Clock
	logger    *zap.Logger
}

func NewNurseService(
	store *repository.Store,
	slots *SlotService,
	validator *Validator,
	clock calendar.Clock,
	logger *zap.Logger,
) *NurseService {
	return &NurseService{
		tx:        store.Tx,
		nurses:    store.Nurses,
		requests:  store.Requests,
		slots:     slots,
		validator: validator,
		clock:     clock,
		logger:    logger,
	}
}

// Register создаёт медсестру и сразу генерирует ей слоты на горизонт.
// Если слоты создать не удалось, медсестра остаётся, слоты досоздаст обслуживание.
func (s *NurseService) Register(ctx context.Context, input RegisterNurseInput) (*model.Nurse, error) {
	nurse := &model.Nurse{
		Name:        input.Name,
		Phone:       input.Phone,
		Email:       input.Email,
		Affiliation: input.Affiliation,
	}

	if err := s.validator.Validate(nurse); err != nil {
		return nil, err
	}

	if err := s.nurses.Create(ctx, nurse); err != nil {
		return nil, fmt.Errorf("create nurse: %w", err)
	}

	s.logger.Info("Nurse registered",
		zap.Int64("nurse_id", nurse.ID),
		zap.String("name", nurse.Name),
	)

	created, err := s.slots.GenerateSlotsForNurse(ctx, nurse.ID, s.clock.Now(), s.slots.HorizonDays())
	if err != nil {
		s.logger.Error("Failed to generate slots for new nurse, left to maintenance",
			zap.Int64("nurse_id", nurse.ID),
			zap.Error(err),
		)
		return nurse, nil
	}

	s.logger.Debug("Initial slots generated",
		zap.Int64("nurse_id", nurse.ID),
		zap.Int("created", created),
	)

	return nurse, nil
}

// Remove удаляет медсестру вместе со слотами. Нельзя удалить медсестру,
// у которой есть подтверждённые заявки.
func (s *NurseService) Remove(ctx context.Context, nurseID int64) error {
	err := s.tx.WithinTx(ctx, func(ctx context.Context) error {
		nurse, err := s.nurses.GetByID(ctx, nurseID)
		if err != nil {
			return fmt.Errorf("get nurse: %w", err)
		}
		if nurse == nil {
			return fmt.Errorf("%w: nurse %d", model.ErrNotFound, nurseID)
		}

		confirmed, err := s.requests.CountConfirmedByNurse(ctx, nurseID)
		if err != nil {
			return fmt.Errorf("count confirmed requests: %w", err)
		}
		if confirmed > 0 {
			return fmt.Errorf("%w: nurse %d has %d confirmed requests", model.ErrInvalidState, nurseID, confirmed)
		}

		ok, err := s.nurses.Delete(ctx, nurseID)
		if err != nil {
			return fmt.Errorf("delete nurse: %w", err)
		}
		if !ok {
			return fmt.Errorf("%w: nurse %d", model.ErrNotFound, nurseID)
		}
		return nil
	})
	if err != nil {
		return err
	}

	s.logger.Info("Nurse removed", zap.Int64("nurse_id", nurseID))

	return nil
}
