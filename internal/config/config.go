package config

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"time"
	_ "time/tzdata"

	"github.com/Freeeeeet/vaccination_scheduler/internal/calendar"
	"github.com/joho/godotenv"
)

const (
	StorePostgres = "postgres"
	StoreMemory   = "memory"
)

type Config struct {
	Environment   string
	DBDSN         string
	Store         string
	TelegramToken string

	Location      *time.Location
	MaintenanceAt calendar.ClockTime
	ReminderAt    calendar.ClockTime

	SlotHorizonDays int
	ItemTimeout     time.Duration
	Workers         int
	CancelLeadTime  time.Duration

	MetricsAddr       string
	MigrationsEnabled bool
}

func Load() (*Config, error) {
	// Пытаемся загрузить .env файл (игнорируем ошибку, если файла нет)
	if err := godotenv.Load(".env"); err != nil {
		log.Println("No .env file found, using environment variables")
	} else {
		log.Println("Loaded configuration from .env file")
	}

	return FromEnv()
}

// FromEnv читает конфигурацию из переменных окружения
func FromEnv() (*Config, error) {
	cfg := &Config{
		Environment:   getenv("ENV", "development"),
		DBDSN:         os.Getenv("DB_DSN"),
		Store:         getenv("STORE", StorePostgres),
		TelegramToken: os.Getenv("TELEGRAM_TOKEN"),
		MetricsAddr:   getenvRaw("METRICS_ADDR", ":9090"),
	}

	switch cfg.Store {
	case StorePostgres:
		if cfg.DBDSN == "" {
			return nil, fmt.Errorf("DB_DSN is required but not set")
		}
	case StoreMemory:
	default:
		return nil, fmt.Errorf("STORE must be %q or %q, got %q", StorePostgres, StoreMemory, cfg.Store)
	}

	var err error
	tz := getenv("CLINIC_TIMEZONE", "Asia/Kolkata")
	if cfg.Location, err = time.LoadLocation(tz); err != nil {
		return nil, fmt.Errorf("CLINIC_TIMEZONE: %w", err)
	}

	if cfg.MaintenanceAt, err = calendar.ParseClock(getenv("MAINTENANCE_AT", "00:30")); err != nil {
		return nil, fmt.Errorf("MAINTENANCE_AT: %w", err)
	}
	if cfg.ReminderAt, err = calendar.ParseClock(getenv("REMINDER_AT", "09:00")); err != nil {
		return nil, fmt.Errorf("REMINDER_AT: %w", err)
	}

	if cfg.SlotHorizonDays, err = positiveInt("SLOT_HORIZON_DAYS", 14); err != nil {
		return nil, err
	}
	if cfg.Workers, err = positiveInt("WORKERS", 4); err != nil {
		return nil, err
	}
	if cfg.ItemTimeout, err = positiveDuration("ITEM_TIMEOUT", 10*time.Second); err != nil {
		return nil, err
	}
	if cfg.CancelLeadTime, err = positiveDuration("CANCEL_LEAD_TIME", 24*time.Hour); err != nil {
		return nil, err
	}

	if cfg.MigrationsEnabled, err = strconv.ParseBool(getenv("MIGRATIONS_ENABLED", "true")); err != nil {
		return nil, fmt.Errorf("MIGRATIONS_ENABLED: %w", err)
	}

	return cfg, nil
}

func (c *Config) GetDBDSN() string {
	return c.DBDSN
}

func (c *Config) IsProduction() bool {
	return c.Environment == "production"
}

func getenv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

// getenvRaw различает пустое значение и отсутствующую переменную
func getenvRaw(key, def string) string {
	if v, ok := os.LookupEnv(key); ok {
		return v
	}
	return def
}

func positiveInt(key string, def int) (int, error) {
	v := os.Getenv(key)
	if v == "" {
		return def, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", key, err)
	}
	if n <= 0 {
		return 0, fmt.Errorf("%s must be positive, got %d", key, n)
	}
	return n, nil
}

func duration(key string, def time.Duration) (time.Duration, error) {
	v := os.Getenv(key)
	if v == "" {
		return def, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", key, err)
	}
	if d < 0 {
		return 0, fmt.Errorf("%s must not be negative, got %s", key, d)
	}
	return d, nil
}

func positiveDuration(key string, def time.Duration) (time.Duration, error) {
	d, err := duration(key, def)
	if err != nil {
		return 0, err
	}
	if d == 0 {
		return 0, fmt.Errorf("%s must be positive", key)
	}
	return d, nil
}
