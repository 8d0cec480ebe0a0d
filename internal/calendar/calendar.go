// Package calendar содержит арифметику календарных дат в часовом поясе клиники.
package calendar

import (
	"fmt"
	"time"
)

// Clock источник текущего времени
type Clock interface {
	Now() time.Time
}

// SystemClock возвращает текущее время в часовом поясе клиники
type SystemClock struct {
	Location *time.Location
}

func (c SystemClock) Now() time.Time {
	return time.Now().In(c.Location)
}

// FixedClock всегда возвращает одно и то же время (для тестов и ручных прогонов)
type FixedClock struct {
	At time.Time
}

func (c FixedClock) Now() time.Time {
	return c.At
}

// StartOfDay возвращает полночь дня t в часовом поясе t
func StartOfDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}

// DateIn возвращает полночь гражданской даты t в поясе loc.
// Дата берётся из t как есть, без перевода между поясами: колонки DATE
// приходят из БД полночью UTC.
func DateIn(t time.Time, loc *time.Location) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, loc)
}

// AddDays сдвигает дату на n календарных дней, сохраняя время суток
func AddDays(t time.Time, n int) time.Time {
	return t.AddDate(0, 0, n)
}

// DaysBetween возвращает число календарных дней от a до b (b - a).
// Считается по гражданским датам, поэтому переходы на летнее время не влияют.
func DaysBetween(a, b time.Time) int {
	da := time.Date(a.Year(), a.Month(), a.Day(), 0, 0, 0, 0, time.UTC)
	db := time.Date(b.Year(), b.Month(), b.Day(), 0, 0, 0, 0, time.UTC)
	return int(db.Sub(da) / (24 * time.Hour))
}

// DaysIn возвращает количество дней в месяце
func DaysIn(year int, month time.Month) int {
	return time.Date(year, month+1, 0, 0, 0, 0, 0, time.UTC).Day()
}

// AddYearsMonthsClamped прибавляет годы и месяцы по календарю.
// Если в целевом месяце нет такого числа, берётся последний день месяца:
// 2024-01-31 + 1 год 3 месяца = 2025-04-30, 2024-02-29 + 1 год = 2025-02-28.
func AddYearsMonthsClamped(t time.Time, years, months int) time.Time {
	total := int(t.Month()) - 1 + months + years*12
	year := t.Year() + floorDiv(total, 12)
	month := time.Month(total-floorDiv(total, 12)*12 + 1)

	day := t.Day()
	if last := DaysIn(year, month); day > last {
		day = last
	}

	return time.Date(year, month, day, t.Hour(), t.Minute(), t.Second(), t.Nanosecond(), t.Location())
}

func floorDiv(a, b int) int {
	q := a / b
	if (a%b != 0) && ((a < 0) != (b < 0)) {
		q--
	}
	return q
}

// ClockTime время суток для ежедневных задач
type ClockTime struct {
	Hour   int
	Minute int
}

func (c ClockTime) String() string {
	return fmt.Sprintf("%02d:%02d", c.Hour, c.Minute)
}

// ParseClock парсит время в формате HH:MM
func ParseClock(str string) (ClockTime, error) {
	t, err := time.Parse("15:04", str)
	if err != nil {
		return ClockTime{}, fmt.Errorf("parse clock %q: %w", str, err)
	}
	return ClockTime{Hour: t.Hour(), Minute: t.Minute()}, nil
}

// NextDailyRun возвращает ближайший момент строго после now, когда на часах
// в поясе loc будет время at
func NextDailyRun(now time.Time, at ClockTime, loc *time.Location) time.Time {
	local := now.In(loc)
	next := time.Date(local.Year(), local.Month(), local.Day(), at.Hour, at.Minute, 0, 0, loc)
	if !next.After(now) {
		next = time.Date(local.Year(), local.Month(), local.Day()+1, at.Hour, at.Minute, 0, 0, loc)
	}
	return next
}
