package projection

import (
	"fmt"
	"math"
	"time"

	"maintenance-backend/internal/model"
)

// ValidateReading checks a new hour meter reading against the unit's current meter and its
// stored history. It never mutates anything; a non-nil result is always a *ValidationError.
func ValidateReading(current float64, history []model.HourMeterReading, date time.Time, hours float64) error {
	if !validHours(hours) {
		return &ValidationError{Reason: fmt.Sprintf("hours must be a non-negative number, got %v", hours)}
	}
	if hours < current {
		return &ValidationError{Reason: fmt.Sprintf("hour meter cannot run backward: %.1f h is below the current %.1f h", hours, current)}
	}

	day := dateOf(date)
	var prev *model.HourMeterReading
	for i := range history {
		r := &history[i]
		rd := dateOf(r.ReadingDate)
		if rd.After(day) {
			if r.Hours < hours {
				return &ValidationError{Reason: fmt.Sprintf("a reading of %.1f h on %s already exists after %s", r.Hours, rd.Format(DateLayout), day.Format(DateLayout))}
			}
			continue
		}
		if prev == nil || rd.After(dateOf(prev.ReadingDate)) || (rd.Equal(dateOf(prev.ReadingDate)) && r.Hours > prev.Hours) {
			prev = r
		}
	}

	if prev == nil {
		return nil
	}
	if prev.Hours > hours {
		return &ValidationError{Reason: fmt.Sprintf("an earlier reading of %.1f h on %s is above %.1f h", prev.Hours, prev.ReadingDate.Format(DateLayout), hours)}
	}
	days := math.Max(1, float64(DaysBetween(prev.ReadingDate, date)))
	if implied := (hours - prev.Hours) / days; implied > MaxHoursPerDay {
		return &ValidationError{Reason: fmt.Sprintf("implied usage of %.1f h/day since %s exceeds %.0f h/day", implied, prev.ReadingDate.Format(DateLayout), MaxHoursPerDay)}
	}
	return nil
}
