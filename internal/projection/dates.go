package projection

import (
	"math"
	"time"
)

// DateLayout is the calendar date format used for projected dates and exports.
const DateLayout = "2006-01-02"

// dateOf truncates t to its calendar date.
func dateOf(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// DaysBetween returns the number of calendar days from one date to another.
func DaysBetween(from, to time.Time) int {
	return int(math.Round(dateOf(to).Sub(dateOf(from)).Hours() / 24))
}
