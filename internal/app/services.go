package app

import (
	"time"

	"github.com/Freeeeeet/vaccination_scheduler/internal/calendar"
	"github.com/Freeeeeet/vaccination_scheduler/internal/eligibility"
	"github.com/Freeeeeet/vaccination_scheduler/internal/notifier"
	"github.com/Freeeeeet/vaccination_scheduler/internal/repository"
	"github.com/Freeeeeet/vaccination_scheduler/internal/service"
	"go.uber.org/zap"
)

// Options параметры сборки сервисов
type Options struct {
	Batch          service.BatchConfig
	Schedule       ScheduleConfig
	CancelLeadTime time.Duration
}

// Services все сервисы приложения и планировщик
type Services struct {
	Slots     *service.SlotService
	Booking   *service.BookingService
	Requests  *service.RequestService
	Nurses    *service.NurseService
	Children  *service.ChildService
	Reminders *service.ReminderService
	Scheduler *Scheduler
}

// NewServices собирает сервисы поверх хранилища
func NewServices(
	store *repository.Store,
	n notifier.Notifier,
	clock calendar.Clock,
	opts Options,
	logger *zap.Logger,
) *Services {
	validator := service.NewValidator()

	slots := service.NewSlotService(store.Nurses, store.Slots, clock, opts.Batch, logger.Named("slots"))
	booking := service.NewBookingService(store.Tx, store.Slots, store.Requests, logger.Named("booking"))
	reminders := service.NewReminderService(
		store,
		eligibility.NewCalculator(clock),
		n,
		clock,
		opts.Batch,
		logger.Named("reminders"),
	)
	scheduler := NewScheduler(slots, reminders, clock, opts.Schedule, logger.Named("scheduler"))

	return &Services{
		Slots:     slots,
		Booking:   booking,
		Requests:  service.NewRequestService(store, booking, validator, clock, opts.CancelLeadTime, logger.Named("requests")),
		Nurses:    service.NewNurseService(store, slots, validator, clock, logger.Named("nurses")),
		Children:  service.NewChildService(store, scheduler, validator, clock, logger.Named("children")),
		Reminders: reminders,
		Scheduler: scheduler,
	}
}
