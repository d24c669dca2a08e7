package trip

import (
	"fmt"
	"time"

	"github.com/wayfarer-app/wayfarer/internal/model"
)

var weekdayNames = [...]string{"Sun", "Mon", "Tue", "Wed", "Thu", "Fri", "Sat"}

const isoDate = "2006-01-02"

// formatDay renders the three date forms used on a day card.
func formatDay(t time.Time) (date, shortDate, fullDate string) {
	m, d := int(t.Month()), t.Day()
	date = fmt.Sprintf("%02d/%02d (%s)", m, d, weekdayNames[t.Weekday()])
	shortDate = fmt.Sprintf("%d/%d", m, d)
	fullDate = t.Format(isoDate)
	return
}

// synthesizeDays builds one DayPlan per trip day starting at startDate.
// An unparsable start date yields placeholder "Day N" entries instead of
// failing trip creation.
func synthesizeDays(startDate string, count int) []model.DayPlan {
	if count < 1 {
		count = 1
	}
	days := make([]model.DayPlan, 0, count)

	start, err := time.Parse(isoDate, startDate)
	for i := 0; i < count; i++ {
		day := model.DayPlan{Items: []model.TripItem{}}
		if err == nil {
			day.Date, day.ShortDate, day.FullDate = formatDay(start.AddDate(0, 0, i))
		} else {
			day.Date = fmt.Sprintf("Day %d", i+1)
			day.ShortDate = fmt.Sprintf("D%d", i+1)
		}
		if i == 0 {
			day.Title = "Arrival & Explore"
		} else {
			day.Title = "Plan the day"
		}
		days = append(days, day)
	}
	return days
}

// appendedDay is the placeholder day added by the "+" button.
func appendedDay(position int) model.DayPlan {
	return model.DayPlan{
		Date:      fmt.Sprintf("Day %d", position),
		ShortDate: fmt.Sprintf("D%d", position),
		Items:     []model.TripItem{},
	}
}
