package projection

import (
	"fmt"
	"math"
	"time"

	"maintenance-backend/internal/model"
)

// PeriodicIntervals are the preventive service intervals applied to every unit.
var PeriodicIntervals = []float64{250, 500, 1000, 2000}

// PeriodicType is the MaintenanceType stored for a periodic service of the given interval.
func PeriodicType(interval float64) string {
	return fmt.Sprintf("pm-%d", int(interval))
}

// ValidPeriodicInterval reports whether interval is one of PeriodicIntervals.
func ValidPeriodicInterval(interval float64) bool {
	for _, i := range PeriodicIntervals {
		if i == interval {
			return true
		}
	}
	return false
}

// NextPeriodicDue returns the hour at which the next periodic service falls due.
// Without a service on record the schedule follows multiples of the interval.
func NextPeriodicDue(currentHours, lastServiceHour float64, hasRecord bool, interval float64) float64 {
	if hasRecord {
		return lastServiceHour + interval
	}
	return (math.Floor(currentHours/interval) + 1) * interval
}

// PeriodicCheck is the state of one periodic service interval on a unit.
type PeriodicCheck struct {
	Interval        float64    `json:"interval"`
	MaintenanceType string     `json:"maintenanceType"`
	LastServiceHour float64    `json:"lastServiceHour"`
	HasRecord       bool       `json:"hasRecord"`
	NextDueHour     float64    `json:"nextDueHour"`
	Status          Status     `json:"status"`
	Projection      Projection `json:"-"`
	DueDate         string     `json:"dueDate"`
}

// PeriodicChecks evaluates every periodic interval for unit using its service records.
func PeriodicChecks(unit model.EquipmentUnit, records []model.MaintenanceRecord, rate Rate, today time.Time) []PeriodicCheck {
	checks := make([]PeriodicCheck, 0, len(PeriodicIntervals))
	for _, interval := range PeriodicIntervals {
		kind := PeriodicType(interval)
		check := PeriodicCheck{Interval: interval, MaintenanceType: kind}
		for _, r := range records {
			if r.EquipmentID != unit.ID || r.MaintenanceType != kind {
				continue
			}
			if !check.HasRecord || r.HourMeter > check.LastServiceHour {
				check.LastServiceHour = r.HourMeter
				check.HasRecord = true
			}
		}
		check.NextDueHour = NextPeriodicDue(unit.HourMeter, check.LastServiceHour, check.HasRecord, interval)
		check.Projection = Project(unit.HourMeter, check.NextDueHour, rate, today)
		check.Status = Classify(check.Projection.HoursRemaining)
		check.DueDate = check.Projection.String()
		checks = append(checks, check)
	}
	return checks
}
