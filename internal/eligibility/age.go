// Package eligibility переводит символьные возрастные требования вакцин в даты
// и считает, через сколько дней ребёнок получит право на прививку.
package eligibility

import (
	"fmt"
	"time"

	"github.com/Freeeeeet/vaccination_scheduler/internal/calendar"
	"github.com/Freeeeeet/vaccination_scheduler/internal/model"
)

// AgeRequirement символьный минимальный возраст для вакцины из закрытого списка
type AgeRequirement string

const (
	AgeNoSpecific AgeRequirement = "No specific age required"

	Age24Hours AgeRequirement = "24 hours"

	Age6Weeks  AgeRequirement = "6 weeks"
	Age10Weeks AgeRequirement = "10 weeks"
	Age14Weeks AgeRequirement = "14 weeks"

	Age2Months AgeRequirement = "2 months"
	Age3Months AgeRequirement = "3 months"
	Age4Months AgeRequirement = "4 months"
	Age6Months AgeRequirement = "6 months"
	Age7Months AgeRequirement = "7 months"
	Age9Months AgeRequirement = "9 months"

	Age1Year         AgeRequirement = "1 year"
	Age1Year3Months  AgeRequirement = "1 year and 3 months"
	Age1Year6Months  AgeRequirement = "1 year and 6 months"
	Age2Years        AgeRequirement = "2 years"
	Age4Years        AgeRequirement = "4 years"
	Age4Years6Months AgeRequirement = "4 years and 6 months"
	Age5Years        AgeRequirement = "5 years"
	Age9Years        AgeRequirement = "9 years"
	Age9Years3Months AgeRequirement = "9 years and 3 months"
)

// Offset календарное смещение от даты рождения.
// Дни прибавляются как есть, месяцы и годы по календарю с прижатием к концу месяца.
type Offset struct {
	Years  int
	Months int
	Days   int
}

// From возвращает дату, когда наступает возраст, начиная с даты рождения
func (o Offset) From(birth time.Time) time.Time {
	t := birth
	if o.Years != 0 || o.Months != 0 {
		t = calendar.AddYearsMonthsClamped(t, o.Years, o.Months)
	}
	if o.Days != 0 {
		t = calendar.AddDays(t, o.Days)
	}
	return t
}

var offsets = map[AgeRequirement]Offset{
	AgeNoSpecific: {},

	Age24Hours: {Days: 1},

	Age6Weeks:  {Days: 6 * 7},
	Age10Weeks: {Days: 10 * 7},
	Age14Weeks: {Days: 14 * 7},

	Age2Months: {Months: 2},
	Age3Months: {Months: 3},
	Age4Months: {Months: 4},
	Age6Months: {Months: 6},
	Age7Months: {Months: 7},
	Age9Months: {Months: 9},

	Age1Year:         {Years: 1},
	Age1Year3Months:  {Years: 1, Months: 3},
	Age1Year6Months:  {Years: 1, Months: 6},
	Age2Years:        {Years: 2},
	Age4Years:        {Years: 4},
	Age4Years6Months: {Years: 4, Months: 6},
	Age5Years:        {Years: 5},
	Age9Years:        {Years: 9},
	Age9Years3Months: {Years: 9, Months: 3},
}

// ParseAgeRequirement находит требование в закрытом списке. Сравнение точное:
// другой регистр или лишние пробелы дают ErrUnknownAgeSymbol, значения по умолчанию нет.
func ParseAgeRequirement(s string) (AgeRequirement, error) {
	req := AgeRequirement(s)
	if _, ok := offsets[req]; !ok {
		return "", fmt.Errorf("%w: %q", model.ErrUnknownAgeSymbol, s)
	}
	return req, nil
}

// Offset возвращает календарное смещение требования
func (a AgeRequirement) Offset() (Offset, error) {
	o, ok := offsets[a]
	if !ok {
		return Offset{}, fmt.Errorf("%w: %q", model.ErrUnknownAgeSymbol, string(a))
	}
	return o, nil
}
