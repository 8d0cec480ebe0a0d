package service

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/Freeeeeet/vaccination_scheduler/internal/calendar"
	"github.com/Freeeeeet/vaccination_scheduler/internal/eligibility"
	"github.com/Freeeeeet/vaccination_scheduler/internal/metrics"
	"github.com/Freeeeeet/vaccination_scheduler/internal/model"
	"github.com/Freeeeeet/vaccination_scheduler/internal/notifier"
	"github.com/Freeeeeet/vaccination_scheduler/internal/repository"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// ReminderService ежедневно напоминает опекунам о приближении права на прививку
type ReminderService struct {
	guardians repository.GuardianRepository
	vaccines  repository.VaccineRepository
	requests  repository.VaccineRequestRepository
	reminders repository.ReminderLogRepository
	calc      *eligibility.Calculator
	notifier  notifier.Notifier
	clock     calendar.Clock
	cfg       BatchConfig
	logger    *zap.Logger
}

func NewReminderService(
	store *repository.Store,
	calc *eligibility.Calculator,
	n notifier.Notifier,
	clock calendar.Clock,
	cfg BatchConfig,
	logger *zap.Logger,
) *ReminderService {
	return &ReminderService{
		guardians: store.Guardians,
		vaccines:  store.Vaccines,
		requests:  store.Requests,
		reminders: store.Reminders,
		calc:      calc,
		notifier:  n,
		clock:     clock,
		cfg:       cfg.withDefaults(),
		logger:    logger,
	}
}

// sweepCollector потокобезопасно накапливает итог прогона
type sweepCollector struct {
	mu      sync.Mutex
	summary *model.SweepSummary
}

func (c *sweepCollector) dispatched(cp model.Checkpoint) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.summary.TotalDispatched++
	c.summary.PerCheckpoint[cp]++
}

func (c *sweepCollector) duplicate() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.summary.Duplicates++
}

func (c *sweepCollector) skipped() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.summary.Skipped++
}

func (c *sweepCollector) failed(f model.ReminderFailure) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.summary.Failures = append(c.summary.Failures, f)
}

// RunReminderSweep проходит по всем парам ребёнок/вакцина и отправляет
// напоминание, если до права на прививку ровно 10, 3 или 1 день.
// Ошибка загрузки вакцин, опекунов или закрытых заявок прерывает прогон,
// ошибки отдельных пар попадают в итог.
func (s *ReminderService) RunReminderSweep(ctx context.Context) (*model.SweepSummary, error) {
	now := s.clock.Now()
	summary := model.NewSweepSummary(uuid.New(), now)

	vaccines, err := s.vaccines.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("get vaccines: %w", err)
	}

	guardians, err := s.guardians.ListWithChildren(ctx)
	if err != nil {
		return nil, fmt.Errorf("get guardians with children: %w", err)
	}

	if len(vaccines) == 0 || len(guardians) == 0 {
		s.logger.Info("Nothing to remind about",
			zap.Stringer("run_id", summary.RunID),
			zap.Int("vaccines", len(vaccines)),
			zap.Int("guardians", len(guardians)),
		)
		return summary, nil
	}

	pairs, err := s.requests.ListSettledPairs(ctx)
	if err != nil {
		return nil, fmt.Errorf("get settled requests: %w", err)
	}
	settled := make(map[model.ChildVaccine]bool, len(pairs))
	for _, p := range pairs {
		settled[p] = true
	}

	collector := &sweepCollector{summary: summary}

	var g errgroup.Group
	g.SetLimit(s.cfg.Workers)

	for _, guardian := range guardians {
		g.Go(func() error {
			s.remindGuardian(ctx, summary.RunID, guardian, vaccines, settled, collector)
			return nil
		})
	}
	_ = g.Wait()

	s.logger.Info("Reminder sweep finished",
		zap.Stringer("run_id", summary.RunID),
		zap.Int("dispatched", summary.TotalDispatched),
		zap.Int("10d", summary.PerCheckpoint[model.Checkpoint10Days]),
		zap.Int("3d", summary.PerCheckpoint[model.Checkpoint3Days]),
		zap.Int("1d", summary.PerCheckpoint[model.Checkpoint1Day]),
		zap.Int("duplicates", summary.Duplicates),
		zap.Int("skipped", summary.Skipped),
		zap.Int("failures", len(summary.Failures)),
	)

	return summary, nil
}

func (s *ReminderService) remindGuardian(
	ctx context.Context,
	runID uuid.UUID,
	guardian *model.Guardian,
	vaccines []*model.Vaccine,
	settled map[model.ChildVaccine]bool,
	collector *sweepCollector,
) {
	for _, child := range guardian.Children {
		for _, vaccine := range vaccines {
			days, err := s.calc.DaysUntilEligible(child.BirthDate, vaccine.RequiredAge)
			if err != nil {
				s.logger.Warn("Skipping child/vaccine pair",
					zap.Int64("child_id", child.ID),
					zap.Int64("vaccine_id", vaccine.ID),
					zap.Error(err),
				)
				collector.skipped()
				continue
			}

			cp, ok := model.CheckpointFor(days)
			if !ok {
				continue
			}

			if settled[model.ChildVaccine{ChildID: child.ID, VaccineID: vaccine.ID}] {
				continue
			}

			d := &model.ReminderDispatch{
				ChildID:    child.ID,
				VaccineID:  vaccine.ID,
				Checkpoint: cp,
				TargetDate: s.calc.EligibleOn(days),
				RunID:      runID,
			}

			sent, err := s.dispatch(ctx, guardian, child, vaccine, d)
			switch {
			case err != nil:
				metrics.RecordReminder(int(cp), "failed")
				s.logger.Error("Failed to send reminder",
					zap.Int64("guardian_id", guardian.ID),
					zap.Int64("child_id", child.ID),
					zap.Int64("vaccine_id", vaccine.ID),
					zap.Int("checkpoint", int(cp)),
					zap.Error(err),
				)
				collector.failed(model.ReminderFailure{
					GuardianID: guardian.ID,
					Guardian:   guardian.Name,
					ChildID:    child.ID,
					Child:      child.Name,
					VaccineID:  vaccine.ID,
					Vaccine:    vaccine.Name,
					Error:      err.Error(),
				})
			case !sent:
				metrics.RecordReminder(int(cp), "duplicate")
				collector.duplicate()
			default:
				metrics.RecordReminder(int(cp), "sent")
				collector.dispatched(cp)
			}
		}
	}
}

// dispatch резервирует напоминание в журнале и отправляет его.
// false без ошибки - напоминание уже отправлялось.
func (s *ReminderService) dispatch(
	ctx context.Context,
	guardian *model.Guardian,
	child *model.Child,
	vaccine *model.Vaccine,
	d *model.ReminderDispatch,
) (bool, error) {
	ctx, cancel := context.WithTimeout(ctx, s.cfg.ItemTimeout)
	defer cancel()

	claimed, err := s.reminders.Claim(ctx, d)
	if err != nil {
		return false, fmt.Errorf("claim reminder: %w", err)
	}
	if !claimed {
		return false, nil
	}

	body := FormatReminder(guardian, child, vaccine, d.TargetDate)
	if err := s.notifier.Send(ctx, guardian.ContactAddress(), body); err != nil {
		// Снимаем резерв, чтобы следующий прогон попробовал снова
		releaseCtx, releaseCancel := context.WithTimeout(context.WithoutCancel(ctx), s.cfg.ItemTimeout)
		defer releaseCancel()
		if relErr := s.reminders.Release(releaseCtx, d); relErr != nil {
			s.logger.Error("Failed to release reminder claim",
				zap.Int64("child_id", d.ChildID),
				zap.Int64("vaccine_id", d.VaccineID),
				zap.Error(relErr),
			)
		}
		return false, fmt.Errorf("send reminder: %w", err)
	}

	return true, nil
}

// FormatReminder собирает текст напоминания опекуну
func FormatReminder(guardian *model.Guardian, child *model.Child, vaccine *model.Vaccine, target time.Time) string {
	msg := fmt.Sprintf("Dear %s,\n\n%s will be eligible for the %s vaccine on %s.",
		guardian.Name, child.Name, vaccine.Name, target.Format("02.01.2006"))
	if vaccine.Description != "" {
		msg += "\n\n" + vaccine.Description
	}
	msg += "\n\nBook a home visit with one of our nurses to get it on time."
	return msg
}
