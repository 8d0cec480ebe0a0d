package service

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/Freeeeeet/vaccination_scheduler/internal/calendar"
	"github.com/Freeeeeet/vaccination_scheduler/internal/metrics"
	"github.com/Freeeeeet/vaccination_scheduler/internal/model"
	"github.com/Freeeeeet/vaccination_scheduler/internal/repository"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

const (
	DefaultHorizonDays = 14
	DefaultWorkers     = 4
	DefaultItemTimeout = 10 * time.Second
)

// BatchConfig параметры пакетных задач
type BatchConfig struct {
	HorizonDays int
	Workers     int
	ItemTimeout time.Duration
}

func (c BatchConfig) withDefaults() BatchConfig {
	if c.HorizonDays <= 0 {
		c.HorizonDays = DefaultHorizonDays
	}
	if c.Workers <= 0 {
		c.Workers = DefaultWorkers
	}
	if c.ItemTimeout <= 0 {
		c.ItemTimeout = DefaultItemTimeout
	}
	return c
}

// SlotService ведёт запас слотов медсестёр: создание, обслуживание, очистку и выдачу
type SlotService struct {
	nurses repository.NurseRepository
	slots  repository.SlotRepository
	clock  calendar.Clock
	cfg    BatchConfig
	logger *zap.Logger
}

func NewSlotService(
	nurses repository.NurseRepository,
	slots repository.SlotRepository,
	clock calendar.Clock,
	cfg BatchConfig,
	logger *zap.Logger,
) *SlotService {
	return &SlotService{
		nurses: nurses,
		slots:  slots,
		clock:  clock,
		cfg:    cfg.withDefaults(),
		logger: logger,
	}
}

// HorizonDays окно, на которое поддерживаются слоты
func (s *SlotService) HorizonDays() int {
	return s.cfg.HorizonDays
}

func (s *SlotService) location() *time.Location {
	return s.clock.Now().Location()
}

// dayOf приводит момент к полуночи его дня в часовом поясе клиники
func (s *SlotService) dayOf(t time.Time) time.Time {
	return calendar.StartOfDay(t.In(s.location()))
}

// GenerateSlotsForNurse создаёт недостающие окна шаблона на каждый день
// из [from, from+horizonDays). Уже существующие окна не дублируются,
// частично заполненный день дополняется. Возвращает число созданных слотов.
func (s *SlotService) GenerateSlotsForNurse(ctx context.Context, nurseID int64, from time.Time, horizonDays int) (int, error) {
	if horizonDays <= 0 {
		return 0, fmt.Errorf("%w: horizon must be positive, got %d", model.ErrInvalidInput, horizonDays)
	}

	nurse, err := s.nurses.GetByID(ctx, nurseID)
	if err != nil {
		return 0, fmt.Errorf("get nurse: %w", err)
	}
	if nurse == nil {
		return 0, fmt.Errorf("%w: nurse %d", model.ErrNotFound, nurseID)
	}

	start := s.dayOf(from)
	end := calendar.AddDays(start, horizonDays)

	existing, err := s.slots.ListByNurse(ctx, nurseID, start, end)
	if err != nil {
		return 0, fmt.Errorf("get existing slots: %w", err)
	}

	taken := make(map[int64]bool, len(existing))
	for _, slot := range existing {
		taken[slot.StartTime.Unix()] = true
	}

	var missing []*model.Slot
	for day := start; day.Before(end); day = calendar.AddDays(day, 1) {
		for _, slot := range model.DayTemplate(nurseID, day) {
			if !taken[slot.StartTime.Unix()] {
				missing = append(missing, slot)
			}
		}
	}

	if len(missing) == 0 {
		return 0, nil
	}

	created, err := s.slots.BulkCreate(ctx, missing)
	if err != nil {
		return 0, fmt.Errorf("create slots for nurse %d: %w", nurseID, err)
	}

	metrics.RecordSlotsCreated(int(created))
	s.logger.Info("Slots generated",
		zap.Int64("nurse_id", nurseID),
		zap.String("from", start.Format(time.DateOnly)),
		zap.Int("days", horizonDays),
		zap.Int64("created", created),
	)

	return int(created), nil
}

// PruneExpiredSlots удаляет свободные слоты старше вчерашнего дня.
// Забронированные слоты остаются как история.
func (s *SlotService) PruneExpiredSlots(ctx context.Context, asOf time.Time) (int64, error) {
	cutoff := calendar.AddDays(s.dayOf(asOf), -1)

	deleted, err := s.slots.DeleteUnbookedBefore(ctx, cutoff)
	if err != nil {
		return 0, fmt.Errorf("prune slots before %s: %w", cutoff.Format(time.DateOnly), err)
	}

	metrics.RecordSlotsPruned(deleted)
	if deleted > 0 {
		s.logger.Info("Expired slots pruned",
			zap.String("cutoff", cutoff.Format(time.DateOnly)),
			zap.Int64("deleted", deleted),
		)
	}

	return deleted, nil
}

// MaintainAllNurses дополняет слоты каждой медсестры до полного окна и чистит
// просроченные. Ошибка по одной медсестре не прерывает обслуживание остальных.
func (s *SlotService) MaintainAllNurses(ctx context.Context, asOf time.Time) (*model.MaintenanceReport, error) {
	report := &model.MaintenanceReport{
		RunID:     uuid.New(),
		StartedAt: asOf,
	}

	nurses, err := s.nurses.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("get nurses: %w", err)
	}

	today := s.dayOf(asOf)
	end := calendar.AddDays(today, s.cfg.HorizonDays)
	full := model.SlotsPerDay * s.cfg.HorizonDays

	var (
		mu sync.Mutex
		g  errgroup.Group
	)
	g.SetLimit(s.cfg.Workers)

	for _, nurse := range nurses {
		g.Go(func() error {
			created, refilled, err := s.maintainNurse(ctx, nurse.ID, today, end, full)

			mu.Lock()
			defer mu.Unlock()

			report.NursesChecked++
			if err != nil {
				s.logger.Error("Failed to maintain nurse slots",
					zap.Stringer("run_id", report.RunID),
					zap.Int64("nurse_id", nurse.ID),
					zap.Error(err),
				)
				report.Failures = append(report.Failures, model.MaintenanceFailure{
					NurseID: nurse.ID,
					Error:   err.Error(),
				})
				return nil
			}
			if refilled {
				report.NursesRefilled++
				report.SlotsCreated += created
			}
			return nil
		})
	}
	_ = g.Wait()

	pruned, err := s.PruneExpiredSlots(ctx, asOf)
	if err != nil {
		s.logger.Error("Failed to prune expired slots",
			zap.Stringer("run_id", report.RunID),
			zap.Error(err),
		)
		report.PruneError = err.Error()
	}
	report.SlotsPruned = pruned

	s.logger.Info("Slot maintenance finished",
		zap.Stringer("run_id", report.RunID),
		zap.Int("nurses_checked", report.NursesChecked),
		zap.Int("nurses_refilled", report.NursesRefilled),
		zap.Int("slots_created", report.SlotsCreated),
		zap.Int64("slots_pruned", report.SlotsPruned),
		zap.Int("failures", len(report.Failures)),
	)

	return report, nil
}

func (s *SlotService) maintainNurse(ctx context.Context, nurseID int64, today, end time.Time, full int) (int, bool, error) {
	ctx, cancel := context.WithTimeout(ctx, s.cfg.ItemTimeout)
	defer cancel()

	count, err := s.slots.CountInRange(ctx, nurseID, today, end)
	if err != nil {
		return 0, false, fmt.Errorf("count slots: %w", err)
	}
	if count >= full {
		return 0, false, nil
	}

	created, err := s.GenerateSlotsForNurse(ctx, nurseID, today, s.cfg.HorizonDays)
	if err != nil {
		return 0, false, err
	}
	return created, true, nil
}

// FreeSlots возвращает свободные слоты медсестры по возрастанию даты и времени начала
func (s *SlotService) FreeSlots(ctx context.Context, nurseID int64) ([]model.SlotView, error) {
	if err := s.ensureNurse(ctx, nurseID); err != nil {
		return nil, err
	}

	slots, err := s.slots.ListFree(ctx, nurseID)
	if err != nil {
		return nil, fmt.Errorf("get free slots: %w", err)
	}

	views := make([]model.SlotView, 0, len(slots))
	for _, slot := range slots {
		views = append(views, slot.View())
	}
	return views, nil
}

// AllSlots возвращает все слоты медсестры за [from, from+days), сгруппированные по дням
func (s *SlotService) AllSlots(ctx context.Context, nurseID int64, from time.Time, days int) ([]model.DaySlots, error) {
	if days <= 0 {
		return nil, fmt.Errorf("%w: days must be positive, got %d", model.ErrInvalidInput, days)
	}
	if err := s.ensureNurse(ctx, nurseID); err != nil {
		return nil, err
	}

	start := s.dayOf(from)
	slots, err := s.slots.ListByNurse(ctx, nurseID, start, calendar.AddDays(start, days))
	if err != nil {
		return nil, fmt.Errorf("get slots: %w", err)
	}

	var out []model.DaySlots
	for _, slot := range slots {
		view := slot.View()
		if n := len(out); n > 0 && out[n-1].Date == view.Date {
			out[n-1].Slots = append(out[n-1].Slots, view)
			continue
		}
		out = append(out, model.DaySlots{Date: view.Date, Slots: []model.SlotView{view}})
	}
	return out, nil
}

func (s *SlotService) ensureNurse(ctx context.Context, nurseID int64) error {
	nurse, err := s.nurses.GetByID(ctx, nurseID)
	if err != nil {
		return fmt.Errorf("get nurse: %w", err)
	}
	if nurse == nil {
		return fmt.Errorf("%w: nurse %d", model.ErrNotFound, nurseID)
	}
	return nil
}
