package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Freeeeeet/vaccination_scheduler/internal/app"
	"github.com/Freeeeeet/vaccination_scheduler/internal/calendar"
	"github.com/Freeeeeet/vaccination_scheduler/internal/config"
	"github.com/Freeeeeet/vaccination_scheduler/internal/metrics"
	"github.com/Freeeeeet/vaccination_scheduler/internal/notifier"
	"github.com/Freeeeeet/vaccination_scheduler/internal/repository"
	"github.com/Freeeeeet/vaccination_scheduler/internal/repository/memory"
	"github.com/Freeeeeet/vaccination_scheduler/internal/repository/postgres"
	"github.com/Freeeeeet/vaccination_scheduler/internal/service"
	"github.com/Freeeeeet/vaccination_scheduler/migrations"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"
)

func main() {
	runNow := flag.String("run-now", "", "run one task and exit: maintenance or reminders")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	logger, err := app.NewLogger(cfg.Environment)
	if err != nil {
		log.Fatalf("Failed to create logger: %v", err)
	}
	defer logger.Sync()

	logger.Info("Starting vaccination scheduler",
		zap.String("environment", cfg.Environment),
		zap.String("store", cfg.Store),
		zap.String("timezone", cfg.Location.String()))

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, *runNow, logger); err != nil {
		logger.Error("Scheduler exited with error", zap.Error(err))
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg *config.Config, runNow string, logger *zap.Logger) error {
	store, closeStore, err := openStore(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer closeStore()

	n, err := newNotifier(cfg, logger)
	if err != nil {
		return err
	}

	services := app.NewServices(store, n, calendar.SystemClock{Location: cfg.Location}, app.Options{
		Batch: service.BatchConfig{
			HorizonDays: cfg.SlotHorizonDays,
			Workers:     cfg.Workers,
			ItemTimeout: cfg.ItemTimeout,
		},
		Schedule: app.ScheduleConfig{
			MaintenanceAt: cfg.MaintenanceAt,
			ReminderAt:    cfg.ReminderAt,
			Location:      cfg.Location,
		},
		CancelLeadTime: cfg.CancelLeadTime,
	}, logger)

	switch runNow {
	case "":
	case "maintenance":
		_, err := services.Scheduler.RunMaintenanceNow(ctx)
		return err
	case "reminders":
		_, err := services.Scheduler.RunRemindersNow(ctx)
		return err
	default:
		return fmt.Errorf("unknown -run-now task %q", runNow)
	}

	var server *http.Server
	if cfg.MetricsAddr != "" {
		server = &http.Server{
			Addr:              cfg.MetricsAddr,
			Handler:           metrics.Handler(),
			ReadHeaderTimeout: 5 * time.Second,
		}
		go func() {
			logger.Info("Metrics server listening", zap.String("addr", cfg.MetricsAddr))
			if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				logger.Error("Metrics server failed", zap.Error(err))
			}
		}()
	}

	services.Scheduler.Start(ctx)
	<-ctx.Done()
	logger.Info("Shutdown signal received")
	services.Scheduler.Stop()

	if server != nil {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			logger.Warn("Metrics server shutdown failed", zap.Error(err))
		}
	}

	logger.Info("Scheduler stopped")
	return nil
}

// openStore открывает PostgreSQL с миграциями или память для пробных прогонов
func openStore(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*repository.Store, func(), error) {
	if cfg.Store == config.StoreMemory {
		logger.Warn("Using in-memory store, data is lost on exit")
		return memory.NewStore().Repositories(), func() {}, nil
	}

	pool, err := pgxpool.New(ctx, cfg.GetDBDSN())
	if err != nil {
		return nil, nil, fmt.Errorf("create pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, nil, fmt.Errorf("ping database: %w", err)
	}
	logger.Info("Connected to database")

	closeAll := pool.Close
	if cfg.MigrationsEnabled {
		migrator, err := app.NewMigrator(pool, migrations.FS, logger)
		if err != nil {
			pool.Close()
			return nil, nil, err
		}
		closeAll = func() {
			if err := migrator.Close(); err != nil {
				logger.Warn("Failed to close migrator", zap.Error(err))
			}
			pool.Close()
		}
		if err := migrator.Run(ctx); err != nil {
			closeAll()
			return nil, nil, err
		}
	}

	return postgres.NewStore(pool, cfg.Location), closeAll, nil
}

func newNotifier(cfg *config.Config, logger *zap.Logger) (notifier.Notifier, error) {
	if cfg.TelegramToken == "" {
		logger.Warn("TELEGRAM_TOKEN is not set, reminders are only logged")
		return notifier.NewLog(logger.Named("notifier")), nil
	}
	return notifier.NewTelegram(cfg.TelegramToken, logger.Named("notifier"))
}
