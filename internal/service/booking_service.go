package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/Freeeeeet/vaccination_scheduler/internal/calendar"
	"github.com/Freeeeeet/vaccination_scheduler/internal/metrics"
	"github.com/Freeeeeet/vaccination_scheduler/internal/model"
	"github.com/Freeeeeet/vaccination_scheduler/internal/repository"
	"go.uber.org/zap"
)

// BookingService связывает свободный слот медсестры с заявкой на вакцинацию
type BookingService struct {
	tx       repository.Transactor
	slots    repository.SlotRepository
	requests repository.VaccineRequestRepository
	logger   *zap.Logger
}

func NewBookingService(
	tx repository.Transactor,
	slots repository.SlotRepository,
	requests repository.VaccineRequestRepository,
	logger *zap.Logger,
) *BookingService {
	return &BookingService{
		tx:       tx,
		slots:    slots,
		requests: requests,
		logger:   logger,
	}
}

// BookSlot бронирует слот под pending заявку. Слот и заявка меняются в одной
// транзакции: при любой ошибке ни одно изменение не видно.
func (s *BookingService) BookSlot(ctx context.Context, slotID, requestID, nurseID int64) (*model.Slot, error) {
	var booked *model.Slot

	err := s.tx.WithinTx(ctx, func(ctx context.Context) error {
		slot, err := s.slots.GetByIDForNurse(ctx, slotID, nurseID)
		if err != nil {
			return fmt.Errorf("get slot: %w", err)
		}
		if slot == nil {
			return fmt.Errorf("%w: slot %d of nurse %d", model.ErrNotFound, slotID, nurseID)
		}

		if slot.IsBooked {
			return fmt.Errorf("%w: slot %d is already booked", model.ErrConflict, slotID)
		}

		req, err := s.requests.GetByID(ctx, requestID)
		if err != nil {
			return fmt.Errorf("get vaccine request: %w", err)
		}
		if req == nil {
			return fmt.Errorf("%w: vaccine request %d", model.ErrNotFound, requestID)
		}

		if !req.IsPending() {
			return fmt.Errorf("%w: vaccine request %d is %s", model.ErrInvalidState, requestID, req.Status)
		}

		// Сравниваются только календарные дни
		if calendar.DaysBetween(slot.Date, req.VaccinationDate) != 0 {
			return fmt.Errorf("%w: request day %s, slot day %s", model.ErrMismatch,
				req.VaccinationDate.Format(time.DateOnly), slot.Date.Format(time.DateOnly))
		}

		ok, err := s.slots.SetBooked(ctx, slot.ID, true)
		if err != nil {
			return fmt.Errorf("book slot: %w", err)
		}
		if !ok {
			return fmt.Errorf("%w: slot %d was booked concurrently", model.ErrConflict, slotID)
		}

		ok, err = s.requests.Confirm(ctx, req.ID, slot.NurseID, slot.ID)
		if err != nil {
			return fmt.Errorf("confirm vaccine request: %w", err)
		}
		if !ok {
			return fmt.Errorf("%w: vaccine request %d changed concurrently", model.ErrInvalidState, requestID)
		}

		slot.IsBooked = true
		booked = slot
		return nil
	})

	metrics.RecordBooking(resultLabel(err))
	if err != nil {
		s.logger.Warn("Slot booking failed",
			zap.Int64("slot_id", slotID),
			zap.Int64("request_id", requestID),
			zap.Int64("nurse_id", nurseID),
			zap.Error(err),
		)
		return nil, err
	}

	s.logger.Info("Slot booked",
		zap.Int64("slot_id", slotID),
		zap.Int64("request_id", requestID),
		zap.Int64("nurse_id", nurseID),
		zap.String("date", booked.Date.Format(time.DateOnly)),
		zap.String("start", booked.StartTime.Format("15:04")),
	)

	return booked, nil
}

// ReleaseSlot освобождает забронированный слот. Повторное освобождение
// уже свободного слота - ошибка ErrConflict.
func (s *BookingService) ReleaseSlot(ctx context.Context, slotID int64) (*model.Slot, error) {
	var released *model.Slot

	err := s.tx.WithinTx(ctx, func(ctx context.Context) error {
		var err error
		released, err = s.release(ctx, slotID)
		return err
	})

	s.releaseDone(slotID, err)
	if err != nil {
		return nil, err
	}

	return released, nil
}

// release освобождает слот в транзакции вызывающего. Метрику и лог
// вызывающий пишет через releaseDone после коммита.
func (s *BookingService) release(ctx context.Context, slotID int64) (*model.Slot, error) {
	slot, err := s.slots.GetByID(ctx, slotID)
	if err != nil {
		return nil, fmt.Errorf("get slot: %w", err)
	}
	if slot == nil {
		return nil, fmt.Errorf("%w: slot %d", model.ErrNotFound, slotID)
	}

	if !slot.IsBooked {
		return nil, fmt.Errorf("%w: slot %d is not booked", model.ErrConflict, slotID)
	}

	ok, err := s.slots.SetBooked(ctx, slotID, false)
	if err != nil {
		return nil, fmt.Errorf("release slot: %w", err)
	}
	if !ok {
		return nil, fmt.Errorf("%w: slot %d was released concurrently", model.ErrConflict, slotID)
	}

	slot.IsBooked = false
	return slot, nil
}

// releaseDone фиксирует итог освобождения: err - результат всей транзакции
func (s *BookingService) releaseDone(slotID int64, err error) {
	metrics.RecordRelease(resultLabel(err))
	if err != nil {
		return
	}
	s.logger.Info("Slot released", zap.Int64("slot_id", slotID))
}

// resultLabel метка результата операции для метрик
func resultLabel(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, model.ErrNotFound):
		return "not_found"
	case errors.Is(err, model.ErrConflict):
		return "conflict"
	case errors.Is(err, model.ErrInvalidState):
		return "invalid_state"
	case errors.Is(err, model.ErrMismatch):
		return "mismatch"
	case errors.Is(err, model.ErrTransientIO):
		return "transient"
	default:
		return "error"
	}
}
