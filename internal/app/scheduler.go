package app

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/Freeeeeet/vaccination_scheduler/internal/calendar"
	"github.com/Freeeeeet/vaccination_scheduler/internal/metrics"
	"github.com/Freeeeeet/vaccination_scheduler/internal/model"
	"go.uber.org/zap"
)

// ErrTaskRunning задача уже выполняется, запуск пропущен
var ErrTaskRunning = errors.New("task is already running")

const (
	taskMaintenance = "maintenance"
	taskReminders   = "reminders"
)

// MaintenanceRunner ежедневное обслуживание слотов
type MaintenanceRunner interface {
	MaintainAllNurses(ctx context.Context, asOf time.Time) (*model.MaintenanceReport, error)
}

// ReminderRunner прогон напоминаний
type ReminderRunner interface {
	RunReminderSweep(ctx context.Context) (*model.SweepSummary, error)
}

// ScheduleConfig время запуска задач по часам клиники
type ScheduleConfig struct {
	MaintenanceAt calendar.ClockTime
	ReminderAt    calendar.ClockTime
	Location      *time.Location
}

// task ежедневная задача со своей блокировкой запуска
type task struct {
	name string
	at   calendar.ClockTime
	mu   sync.Mutex
}

// Scheduler управляет фоновыми задачами
type Scheduler struct {
	maintenance MaintenanceRunner
	reminders   ReminderRunner
	clock       calendar.Clock
	cfg         ScheduleConfig
	logger      *zap.Logger

	maintenanceTask *task
	reminderTask    *task

	// подменяется в тестах
	after func(time.Duration) <-chan time.Time

	stopChan chan struct{}
	stopOnce sync.Once
	wg       sync.WaitGroup
}

// NewScheduler создаёт новый планировщик
func NewScheduler(
	maintenance MaintenanceRunner,
	reminders ReminderRunner,
	clock calendar.Clock,
	cfg ScheduleConfig,
	logger *zap.Logger,
) *Scheduler {
	if cfg.Location == nil {
		cfg.Location = time.UTC
	}
	return &Scheduler{
		maintenance:     maintenance,
		reminders:       reminders,
		clock:           clock,
		cfg:             cfg,
		logger:          logger,
		maintenanceTask: &task{name: taskMaintenance, at: cfg.MaintenanceAt},
		reminderTask:    &task{name: taskReminders, at: cfg.ReminderAt},
		after:           time.After,
		stopChan:        make(chan struct{}),
	}
}

// Start запускает фоновые задачи
func (s *Scheduler) Start(ctx context.Context) {
	s.logger.Info("Starting background scheduler",
		zap.Stringer("maintenance_at", s.cfg.MaintenanceAt),
		zap.Stringer("reminder_at", s.cfg.ReminderAt),
		zap.String("timezone", s.cfg.Location.String()))

	s.wg.Add(2)
	go s.loop(ctx, s.maintenanceTask, func(ctx context.Context) error {
		_, err := s.runMaintenance(ctx)
		return err
	})
	go s.loop(ctx, s.reminderTask, func(ctx context.Context) error {
		_, err := s.runReminders(ctx)
		return err
	})
}

// Stop останавливает фоновые задачи и ждёт их завершения
func (s *Scheduler) Stop() {
	s.stopOnce.Do(func() {
		s.logger.Info("Stopping background scheduler")
		close(s.stopChan)
	})
	s.wg.Wait()
}

// RunMaintenanceNow ручной запуск обслуживания слотов
func (s *Scheduler) RunMaintenanceNow(ctx context.Context) (*model.MaintenanceReport, error) {
	var report *model.MaintenanceReport
	err := s.maintenanceTask.exec(ctx, s.logger, func(ctx context.Context) error {
		var err error
		report, err = s.runMaintenance(ctx)
		return err
	})
	return report, err
}

// RunRemindersNow ручной запуск напоминаний
func (s *Scheduler) RunRemindersNow(ctx context.Context) (*model.SweepSummary, error) {
	var summary *model.SweepSummary
	err := s.reminderTask.exec(ctx, s.logger, func(ctx context.Context) error {
		var err error
		summary, err = s.runReminders(ctx)
		return err
	})
	return summary, err
}

func (s *Scheduler) runMaintenance(ctx context.Context) (*model.MaintenanceReport, error) {
	return s.maintenance.MaintainAllNurses(ctx, s.clock.Now())
}

func (s *Scheduler) runReminders(ctx context.Context) (*model.SweepSummary, error) {
	return s.reminders.RunReminderSweep(ctx)
}

// loop ждёт очередного времени запуска и выполняет задачу
func (s *Scheduler) loop(ctx context.Context, t *task, run func(context.Context) error) {
	defer s.wg.Done()

	for {
		next := calendar.NextDailyRun(s.clock.Now(), t.at, s.cfg.Location)
		wait := next.Sub(s.clock.Now())
		s.logger.Debug("Next run scheduled",
			zap.String("task", t.name),
			zap.Time("at", next))

		select {
		case <-s.after(wait):
			err := t.exec(ctx, s.logger, run)
			if errors.Is(err, ErrTaskRunning) {
				s.logger.Warn("Scheduled run skipped, task is still running", zap.String("task", t.name))
			}
		case <-s.stopChan:
			s.logger.Info("Task stopped", zap.String("task", t.name))
			return
		case <-ctx.Done():
			s.logger.Info("Task cancelled", zap.String("task", t.name))
			return
		}
	}
}

// exec выполняет задачу, если она не запущена в этот момент
func (t *task) exec(ctx context.Context, logger *zap.Logger, run func(context.Context) error) error {
	if !t.mu.TryLock() {
		metrics.RecordTaskRun(t.name, "skipped", 0)
		return ErrTaskRunning
	}
	defer t.mu.Unlock()

	start := time.Now()
	err := run(ctx)
	took := time.Since(start)

	if err != nil {
		metrics.RecordTaskRun(t.name, "error", took)
		logger.Error("Task failed",
			zap.String("task", t.name),
			zap.Duration("took", took),
			zap.Error(err))
		return err
	}

	metrics.RecordTaskRun(t.name, "ok", took)
	logger.Debug("Task finished", zap.String("task", t.name), zap.Duration("took", took))
	return nil
}
