package model

import "time"

// Шаблон рабочего дня медсестры: 8 часовых слотов с 09:00 до 17:00
const (
	SlotDayStartHour = 9
	SlotsPerDay      = 8
	SlotDuration     = time.Hour
)

// Slot часовое окно приёма одной медсестры в конкретный день
type Slot struct {
	ID        int64     `json:"id"`
	NurseID   int64     `json:"nurse_id"`
	Date      time.Time `json:"date"` // полночь дня слота в часовом поясе клиники
	StartTime time.Time `json:"start_time"`
	EndTime   time.Time `json:"end_time"`
	IsBooked  bool      `json:"is_booked"`
	CreatedAt time.Time `json:"created_at"`
}

// SlotView нормализованное представление слота для выдачи наружу
type SlotView struct {
	ID        int64  `json:"id"`
	Date      string `json:"date"` // 2006-01-02
	StartTime string `json:"start_time"`
	EndTime   string `json:"end_time"`
	IsBooked  bool   `json:"is_booked"`
}

// DaySlots слоты одного календарного дня
type DaySlots struct {
	Date  string     `json:"date"`
	Slots []SlotView `json:"slots"`
}

// View возвращает нормализованное представление слота
func (s *Slot) View() SlotView {
	return SlotView{
		ID:        s.ID,
		Date:      s.Date.Format(time.DateOnly),
		StartTime: s.StartTime.Format("15:04"),
		EndTime:   s.EndTime.Format("15:04"),
		IsBooked:  s.IsBooked,
	}
}

// DayTemplate строит полный шаблон слотов медсестры на день.
// day должен быть полночью в часовом поясе клиники.
func DayTemplate(nurseID int64, day time.Time) []*Slot {
	slots := make([]*Slot, 0, SlotsPerDay)
	for i := 0; i < SlotsPerDay; i++ {
		start := time.Date(day.Year(), day.Month(), day.Day(), SlotDayStartHour+i, 0, 0, 0, day.Location())
		slots = append(slots, &Slot{
			NurseID:   nurseID,
			Date:      day,
			StartTime: start,
			EndTime:   start.Add(SlotDuration),
		})
	}
	return slots
}
