package eligibility

import (
	"fmt"
	"time"

	"github.com/Freeeeeet/vaccination_scheduler/internal/calendar"
	"github.com/Freeeeeet/vaccination_scheduler/internal/model"
)

// Calculator считает смещение до даты, когда ребёнок может получить вакцину
type Calculator struct {
	clock calendar.Clock
}

func NewCalculator(clock calendar.Clock) *Calculator {
	return &Calculator{clock: clock}
}

// DaysUntilEligible возвращает число дней от сегодняшнего дня до наступления
// требуемого возраста: 0 - сегодня, больше 0 - в будущем, меньше 0 - просрочено.
func (c *Calculator) DaysUntilEligible(birthDate time.Time, requiredAge string) (int, error) {
	today := calendar.StartOfDay(c.clock.Now())

	if err := validateBirthDate(birthDate, today); err != nil {
		return 0, err
	}

	req, err := ParseAgeRequirement(requiredAge)
	if err != nil {
		return 0, err
	}

	if req == AgeNoSpecific {
		return 0, nil
	}

	offset, err := req.Offset()
	if err != nil {
		return 0, err
	}

	target := offset.From(calendar.DateIn(birthDate, today.Location()))
	return calendar.DaysBetween(today, target), nil
}

// EligibleOn возвращает абсолютную дату, соответствующую смещению от сегодня
func (c *Calculator) EligibleOn(days int) time.Time {
	return calendar.AddDays(calendar.StartOfDay(c.clock.Now()), days)
}

func validateBirthDate(birthDate, today time.Time) error {
	if birthDate.IsZero() {
		return fmt.Errorf("%w: birth date is empty", model.ErrInvalidInput)
	}
	if calendar.DaysBetween(today, birthDate) > 0 {
		return fmt.Errorf("%w: birth date %s is in the future", model.ErrInvalidInput, birthDate.Format(time.DateOnly))
	}
	return nil
}
