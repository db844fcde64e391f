package projection

import (
	"fmt"
	"sort"
	"time"

	"maintenance-backend/internal/model"
)

// UpcomingWindow is the look-ahead, in hours, for the upcoming maintenance list.
const UpcomingWindow = 500.0

// ScheduleItem is one denormalized row of the upcoming or overdue list.
type ScheduleItem struct {
	EquipmentID         int64   `json:"equipmentId"`
	EquipmentName       string  `json:"equipmentName"`
	ComponentID         int64   `json:"componentId"`
	Component           string  `json:"component"`
	Type                string  `json:"type"`
	CurrentHours        float64 `json:"currentHours"`
	NextMaintenanceHour float64 `json:"nextMaintenanceHour"`
	HoursRemaining      float64 `json:"hoursRemaining"`
	Status              Status  `json:"status"`
}

// OverdueBy is how many hours past due the component is.
func (i ScheduleItem) OverdueBy() float64 {
	return i.CurrentHours - i.NextMaintenanceHour
}

// Schedule splits components into the upcoming and overdue lists.
type Schedule struct {
	Upcoming []ScheduleItem `json:"upcoming"`
	Overdue  []ScheduleItem `json:"overdue"`
}

// BuildSchedule scans every component of every unit. Upcoming is sorted soonest first,
// overdue is sorted most overdue first.
func BuildSchedule(units []model.EquipmentUnit, components []model.Component) (Schedule, error) {
	byID := make(map[int64]model.EquipmentUnit, len(units))
	for _, u := range units {
		byID[u.ID] = u
	}

	sched := Schedule{Upcoming: []ScheduleItem{}, Overdue: []ScheduleItem{}}
	for _, c := range components {
		unit, ok := byID[c.EquipmentID]
		if !ok {
			return Schedule{}, fmt.Errorf("%w: component %d references unknown equipment %d", ErrMalformedInput, c.ID, c.EquipmentID)
		}
		item := newScheduleItem(unit, c)
		switch {
		case item.HoursRemaining <= 0:
			sched.Overdue = append(sched.Overdue, item)
		case item.HoursRemaining <= UpcomingWindow:
			sched.Upcoming = append(sched.Upcoming, item)
		}
	}

	sort.SliceStable(sched.Upcoming, func(i, j int) bool {
		return sched.Upcoming[i].HoursRemaining < sched.Upcoming[j].HoursRemaining
	})
	sort.SliceStable(sched.Overdue, func(i, j int) bool {
		return sched.Overdue[i].OverdueBy() > sched.Overdue[j].OverdueBy()
	})
	return sched, nil
}

func newScheduleItem(unit model.EquipmentUnit, c model.Component) ScheduleItem {
	remaining := c.NextMaintenanceHour - unit.HourMeter
	return ScheduleItem{
		EquipmentID:         unit.ID,
		EquipmentName:       unit.Name,
		ComponentID:         c.ID,
		Component:           c.Name,
		Type:                c.Category,
		CurrentHours:        unit.HourMeter,
		NextMaintenanceHour: c.NextMaintenanceHour,
		HoursRemaining:      remaining,
		Status:              Classify(remaining),
	}
}

// ComponentStatus is the badge and projected date for a single component.
type ComponentStatus struct {
	Component  model.Component `json:"component"`
	Status     Status          `json:"status"`
	Projection Projection      `json:"-"`
	DueDate    string          `json:"dueDate"`
}

// EvaluateComponent classifies c against the unit's meter and projects its due date.
func EvaluateComponent(unit model.EquipmentUnit, c model.Component, rate Rate, today time.Time) ComponentStatus {
	p := Project(unit.HourMeter, c.NextMaintenanceHour, rate, today)
	return ComponentStatus{
		Component:  c,
		Status:     Classify(p.HoursRemaining),
		Projection: p,
		DueDate:    p.String(),
	}
}
