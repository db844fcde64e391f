package projection

import (
	"fmt"
	"math"
	"sort"

	"maintenance-backend/internal/model"
)

// MaxHoursPerDay bounds any usage rate: a machine cannot run more than a full day per day.
const MaxHoursPerDay = 24.0

// Rate is an average usage in hours per day. Known is false when there is no usable data.
type Rate struct {
	HoursPerDay float64 `json:"hoursPerDay"`
	Known       bool    `json:"known"`
}

// ManualRate wraps an operator-entered rate. Zero or negative values are treated as unknown.
func ManualRate(hoursPerDay float64) Rate {
	if math.IsNaN(hoursPerDay) || hoursPerDay <= 0 {
		return Rate{}
	}
	return Rate{HoursPerDay: math.Min(hoursPerDay, MaxHoursPerDay), Known: true}
}

// EstimateRate derives hours per day from the earliest and latest reading of one unit.
// Fewer than two readings, or no accumulated hours between them, yields an unknown rate.
func EstimateRate(readings []model.HourMeterReading) (Rate, error) {
	for _, r := range readings {
		if !validHours(r.Hours) {
			return Rate{}, fmt.Errorf("%w: reading %d has invalid hours %v", ErrMalformedInput, r.ID, r.Hours)
		}
	}
	if len(readings) < 2 {
		return Rate{}, nil
	}

	sorted := SortReadings(readings)
	first, last := sorted[0], sorted[len(sorted)-1]

	days := math.Max(1, float64(DaysBetween(first.ReadingDate, last.ReadingDate)))
	value := (last.Hours - first.Hours) / days
	value = math.Max(0, math.Min(value, MaxHoursPerDay))
	value = math.Round(value*10) / 10

	return Rate{HoursPerDay: value, Known: value > 0}, nil
}

// SortReadings returns a copy of readings ordered by date, then by ID.
func SortReadings(readings []model.HourMeterReading) []model.HourMeterReading {
	sorted := make([]model.HourMeterReading, len(readings))
	copy(sorted, readings)
	sort.SliceStable(sorted, func(i, j int) bool {
		if !sorted[i].ReadingDate.Equal(sorted[j].ReadingDate) {
			return sorted[i].ReadingDate.Before(sorted[j].ReadingDate)
		}
		return sorted[i].ID < sorted[j].ID
	})
	return sorted
}

func validHours(h float64) bool {
	return !math.IsNaN(h) && !math.IsInf(h, 0) && h >= 0
}
