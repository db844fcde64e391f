package projection

import (
	"math"
	"time"
)

// NotAvailable is printed in place of a date when no usage rate is known.
const NotAvailable = "N/A"

// Projection is the calendar estimate for reaching a due hour.
type Projection struct {
	HoursRemaining float64
	DaysUntilDue   int
	DueDate        time.Time
	Available      bool
}

// String returns the projected date or NotAvailable.
func (p Projection) String() string {
	if !p.Available {
		return NotAvailable
	}
	return p.DueDate.Format(DateLayout)
}

// Project estimates when nextDueHours will be reached from currentHours at the given rate.
// A negative remainder projects into the past; an unknown rate never yields a date.
func Project(currentHours, nextDueHours float64, rate Rate, today time.Time) Projection {
	p := Projection{HoursRemaining: nextDueHours - currentHours}
	if !rate.Known || rate.HoursPerDay <= 0 {
		return p
	}
	p.DaysUntilDue = int(math.Ceil(p.HoursRemaining / rate.HoursPerDay))
	p.DueDate = dateOf(today).AddDate(0, 0, p.DaysUntilDue)
	p.Available = true
	return p
}
