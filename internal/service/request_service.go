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

const DefaultCancelLeadTime = 24 * time.Hour

// CreateRequestInput данные новой заявки опекуна
type CreateRequestInput struct {
	ParentID        int64         `validate:"required"`
	ChildID         int64         `validate:"required"`
	VaccineID       int64         `validate:"required"`
	VaccinationDate time.Time
	Address         model.Address
}

// RequestService ведёт жизненный цикл заявок на вакцинацию вне бронирования
type RequestService struct {
	tx        repository.Transactor
	requests  repository.VaccineRequestRepository
	slots     repository.SlotRepository
	children  repository.ChildRepository
	vaccines  repository.VaccineRepository
	booking   *BookingService
	validator *Validator
	clock     calendar.Clock
	leadTime  time.Duration
	logger    *zap.Logger
}

func NewRequestService(
	store *repository.Store,
	booking *BookingService,
	validator *Validator,
	clock calendar.Clock,
	leadTime time.Duration,
	logger *zap.Logger,
) *RequestService {
	if leadTime <= 0 {
		leadTime = DefaultCancelLeadTime
	}
	return &RequestService{
		tx:        store.Tx,
		requests:  store.Requests,
		slots:     store.Slots,
		children:  store.Children,
		vaccines:  store.Vaccines,
		booking:   booking,
		validator: validator,
		clock:     clock,
		leadTime:  leadTime,
		logger:    logger,
	}
}

// Create создаёт pending заявку на ребёнка опекуна
func (s *RequestService) Create(ctx context.Context, input CreateRequestInput) (*model.VaccineRequest, error) {
	if err := s.validator.Validate(input); err != nil {
		return nil, err
	}

	if input.VaccinationDate.IsZero() {
		return nil, fmt.Errorf("%w: vaccination date is required", model.ErrInvalidInput)
	}

	now := s.clock.Now()
	day := calendar.DateIn(input.VaccinationDate.In(now.Location()), now.Location())
	if calendar.DaysBetween(now, day) < 0 {
		return nil, fmt.Errorf("%w: vaccination date %s is in the past", model.ErrInvalidInput, day.Format(time.DateOnly))
	}

	child, err := s.children.GetByID(ctx, input.ChildID)
	if err != nil {
		return nil, fmt.Errorf("get child: %w", err)
	}
	if child == nil || child.UserID != input.ParentID {
		return nil, fmt.Errorf("%w: child %d of guardian %d", model.ErrNotFound, input.ChildID, input.ParentID)
	}

	vaccine, err := s.vaccines.GetByID(ctx, input.VaccineID)
	if err != nil {
		return nil, fmt.Errorf("get vaccine: %w", err)
	}
	if vaccine == nil {
		return nil, fmt.Errorf("%w: vaccine %d", model.ErrNotFound, input.VaccineID)
	}

	req := &model.VaccineRequest{
		ParentID:        input.ParentID,
		ChildID:         input.ChildID,
		VaccineID:       input.VaccineID,
		Status:          model.RequestStatusPending,
		VaccinationDate: day,
		Address:         input.Address,
	}
	if err := s.requests.Create(ctx, req); err != nil {
		return nil, fmt.Errorf("create vaccine request: %w", err)
	}

	s.logger.Info("Vaccine request created",
		zap.Int64("request_id", req.ID),
		zap.Int64("child_id", req.ChildID),
		zap.String("vaccine", vaccine.Name),
		zap.String("date", day.Format(time.DateOnly)),
	)

	return req, nil
}

// Reject отклоняет pending заявку
func (s *RequestService) Reject(ctx context.Context, requestID int64) error {
	return s.transition(ctx, requestID, model.RequestStatusPending, model.RequestStatusRejected)
}

// MarkDelivered отмечает, что вакцина по подтверждённой заявке введена
func (s *RequestService) MarkDelivered(ctx context.Context, requestID int64) error {
	return s.transition(ctx, requestID, model.RequestStatusConfirmed, model.RequestStatusDelivered)
}

func (s *RequestService) transition(ctx context.Context, requestID int64, from, to model.RequestStatus) error {
	ok, err := s.requests.UpdateStatus(ctx, requestID, from, to)
	if err != nil {
		return fmt.Errorf("update vaccine request status: %w", err)
	}

	if !ok {
		req, err := s.requests.GetByID(ctx, requestID)
		if err != nil {
			return fmt.Errorf("get vaccine request: %w", err)
		}
		if req == nil {
			return fmt.Errorf("%w: vaccine request %d", model.ErrNotFound, requestID)
		}
		return fmt.Errorf("%w: vaccine request %d is %s, expected %s", model.ErrInvalidState, requestID, req.Status, from)
	}

	s.logger.Info("Vaccine request status changed",
		zap.Int64("request_id", requestID),
		zap.String("from", string(from)),
		zap.String("to", string(to)),
	)

	return nil
}

// Cancel отменяет заявку опекуна. Pending заявка просто удаляется.
// Подтверждённую можно отменить не позже чем за leadTime до начала слота:
// слот освобождается и заявка удаляется в одной транзакции.
func (s *RequestService) Cancel(ctx context.Context, requestID, parentID int64) error {
	// слот, освобождение которого пытались провести в транзакции
	var releasedSlot int64

	err := s.tx.WithinTx(ctx, func(ctx context.Context) error {
		req, err := s.requests.GetByID(ctx, requestID)
		if err != nil {
			return fmt.Errorf("get vaccine request: %w", err)
		}
		if req == nil || req.ParentID != parentID {
			return fmt.Errorf("%w: vaccine request %d", model.ErrNotFound, requestID)
		}

		switch {
		case req.Status == model.RequestStatusPending:
		case req.Status == model.RequestStatusConfirmed:
			slotID, err := s.releaseForCancel(ctx, req)
			releasedSlot = slotID
			if err != nil {
				return err
			}
		case req.Status.IsTerminal():
			return fmt.Errorf("%w: vaccine request %d is already %s", model.ErrInvalidState, requestID, req.Status)
		default:
			return fmt.Errorf("%w: vaccine request %d has unknown status %q", model.ErrInvalidState, requestID, req.Status)
		}

		ok, err := s.requests.Delete(ctx, requestID, req.Status)
		if err != nil {
			return fmt.Errorf("delete vaccine request: %w", err)
		}
		if !ok {
			return fmt.Errorf("%w: vaccine request %d changed concurrently", model.ErrInvalidState, requestID)
		}
		return nil
	})

	// освобождение слота видно только после коммита всей отмены
	if releasedSlot != 0 {
		s.booking.releaseDone(releasedSlot, err)
	}
	if err != nil {
		return err
	}

	s.logger.Info("Vaccine request cancelled",
		zap.Int64("request_id", requestID),
		zap.Int64("parent_id", parentID),
	)

	return nil
}

// releaseForCancel освобождает слот подтверждённой заявки. Возвращает id
// слота, если до освобождения дошло.
func (s *RequestService) releaseForCancel(ctx context.Context, req *model.VaccineRequest) (int64, error) {
	if !req.HasAssignment() {
		return 0, nil
	}

	slot, err := s.slots.GetByID(ctx, *req.NurseSlotID)
	if err != nil {
		return 0, fmt.Errorf("get slot: %w", err)
	}
	if slot == nil {
		return 0, nil
	}

	if until := slot.StartTime.Sub(s.clock.Now()); until < s.leadTime {
		return 0, fmt.Errorf("%w: visit starts in %s, cancellation requires %s notice",
			model.ErrInvalidState, until.Round(time.Minute), s.leadTime)
	}

	if _, err := s.booking.release(ctx, slot.ID); err != nil {
		return slot.ID, err
	}
	return slot.ID, nil
}
