package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Метрики планировщика вакцинации
var (
	// Метрики слотов
	SlotsCreated = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "vaccination_slots_created_total",
			Help: "Общее количество созданных слотов медсестёр",
		},
	)

	SlotsPruned = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "vaccination_slots_pruned_total",
			Help: "Общее количество удалённых просроченных слотов",
		},
	)

	// Метрики бронирования
	Bookings = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "vaccination_bookings_total",
			Help: "Попытки бронирования слотов по результату",
		},
		[]string{"result"},
	)

	SlotReleases = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "vaccination_slot_releases_total",
			Help: "Освобождения слотов по результату",
		},
		[]string{"result"},
	)

	// Метрики напоминаний
	Reminders = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "vaccination_reminders_total",
			Help: "Напоминания опекунам по контрольной точке и статусу",
		},
		[]string{"checkpoint", "status"},
	)

	// Метрики фоновых задач
	TaskRuns = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "vaccination_task_runs_total",
			Help: "Запуски ежедневных задач по статусу",
		},
		[]string{"task", "status"},
	)

	TaskDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "vaccination_task_duration_seconds",
			Help:    "Время выполнения ежедневных задач в секундах",
			Buckets: prometheus.ExponentialBuckets(0.05, 2, 12),
		},
		[]string{"task"},
	)
)

// RecordSlotsCreated записывает количество созданных слотов
func RecordSlotsCreated(n int) {
	SlotsCreated.Add(float64(n))
}

// RecordSlotsPruned записывает количество удалённых слотов
func RecordSlotsPruned(n int64) {
	SlotsPruned.Add(float64(n))
}

// RecordBooking записывает результат бронирования
func RecordBooking(result string) {
	Bookings.WithLabelValues(result).Inc()
}

// RecordRelease записывает результат освобождения слота
func RecordRelease(result string) {
	SlotReleases.WithLabelValues(result).Inc()
}

// RecordReminder записывает метрику отправки напоминания
func RecordReminder(checkpoint int, status string) {
	Reminders.WithLabelValues(checkpointLabel(checkpoint), status).Inc()
}

// RecordTaskRun записывает запуск задачи и его длительность
func RecordTaskRun(task, status string, took time.Duration) {
	TaskRuns.WithLabelValues(task, status).Inc()
	// пропущенный запуск не выполнялся
	if status == "skipped" {
		return
	}
	TaskDuration.WithLabelValues(task).Observe(took.Seconds())
}

func checkpointLabel(days int) string {
	switch days {
	case 10:
		return "10d"
	case 3:
		return "3d"
	case 1:
		return "1d"
	default:
		return "other"
	}
}

// Handler отдаёт метрики в формате Prometheus
func Handler() http.Handler {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	return mux
}
