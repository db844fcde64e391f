// Package maintenance ties the store to the projection engine: it validates and
// persists operator input and builds the per-unit and fleet reports.
package maintenance

import (
	"context"
	"fmt"
	"math"
	"strings"
	"time"

	log "github.com/sirupsen/logrus"

	"maintenance-backend/internal/model"
	"maintenance-backend/internal/projection"
	"maintenance-backend/internal/store"
)

// Service orchestrates store writes and projection reads.
type Service struct {
	store store.Store
	now   func() time.Time
}

// NewService creates a Service reading the wall clock.
func NewService(st store.Store) *Service {
	return &Service{store: st, now: time.Now}
}

// WithClock replaces the clock, used to pin "today" in reports.
func (s *Service) WithClock(now func() time.Time) *Service {
	s.now = now
	return s
}

// Today is the calendar date projections are anchored to.
func (s *Service) Today() time.Time {
	t := s.now().UTC()
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

func invalid(format string, args ...any) error {
	return &projection.ValidationError{Reason: fmt.Sprintf(format, args...)}
}

func finiteNonNegative(v float64) bool {
	return v >= 0 && !math.IsNaN(v) && !math.IsInf(v, 0)
}

// RateFor applies the auto/manual rule. Auto units are estimated from their reading log;
// manual units use the stored value, where zero means unknown.
func RateFor(unit model.EquipmentUnit, history []model.HourMeterReading) (projection.Rate, error) {
	if unit.UseAutoCalculation {
		return projection.EstimateRate(history)
	}
	return projection.ManualRate(unit.AverageHoursPerDay), nil
}

// --- Equipment ---

func validateEquipment(unit *model.EquipmentUnit) error {
	unit.Name = strings.TrimSpace(unit.Name)
	if unit.Name == "" {
		return invalid("equipment name is required")
	}
	if !finiteNonNegative(unit.HourMeter) {
		return invalid("hour meter must be a non-negative number, got %v", unit.HourMeter)
	}
	if !finiteNonNegative(unit.AverageHoursPerDay) || unit.AverageHoursPerDay > projection.MaxHoursPerDay {
		return invalid("average hours per day must be between 0 and %.0f, got %v", projection.MaxHoursPerDay, unit.AverageHoursPerDay)
	}
	return nil
}

// CreateEquipment registers a unit. A non-zero starting meter is also logged as the
// first reading so the estimator has an anchor.
func (s *Service) CreateEquipment(ctx context.Context, unit *model.EquipmentUnit) error {
	if err := validateEquipment(unit); err != nil {
		return err
	}
	unit.LastUpdated = s.now()
	var initial *model.HourMeterReading
	if unit.HourMeter > 0 {
		initial = &model.HourMeterReading{ReadingDate: s.Today(), Hours: unit.HourMeter}
	}
	return s.store.CreateEquipment(ctx, unit, initial)
}

// UpdateEquipment edits the descriptive fields and the rate mode of a unit.
func (s *Service) UpdateEquipment(ctx context.Context, unit *model.EquipmentUnit) error {
	if err := validateEquipment(unit); err != nil {
		return err
	}
	return s.store.UpdateEquipment(ctx, unit)
}

func (s *Service) DeleteEquipment(ctx context.Context, id int64) error {
	if err := s.store.DeleteEquipment(ctx, id); err != nil {
		return err
	}
	log.WithField("equipment_id", id).Info("equipment deleted")
	return nil
}

func (s *Service) GetEquipment(ctx context.Context, id int64) (*model.EquipmentUnit, error) {
	return s.store.GetEquipment(ctx, id)
}

func (s *Service) ListEquipment(ctx context.Context) ([]model.EquipmentUnit, error) {
	return s.store.ListEquipment(ctx)
}

// --- Hour meter ---

// RecordReading validates a reading against the unit and its history, then stores it,
// advances the meter and refreshes the auto-calculated rate in one transaction.
func (s *Service) RecordReading(ctx context.Context, equipmentID int64, date time.Time, hours float64) (*model.HourMeterReading, error) {
	reading, err := s.store.AppendReading(ctx, equipmentID, func(unit *model.EquipmentUnit, history []model.HourMeterReading) (*model.HourMeterReading, error) {
		if err := projection.ValidateReading(unit.HourMeter, history, date, hours); err != nil {
			return nil, err
		}
		r := &model.HourMeterReading{ReadingDate: date, Hours: hours}

		unit.HourMeter = hours
		unit.LastUpdated = s.now()
		if unit.UseAutoCalculation {
			rate, err := projection.EstimateRate(append(history, *r))
			if err != nil {
				return nil, err
			}
			if len(history) > 0 {
				unit.AverageHoursPerDay = rate.HoursPerDay
			}
		}
		return r, nil
	})
	if err != nil {
		return nil, err
	}

	log.WithFields(log.Fields{
		"equipment_id": equipmentID,
		"date":         date.Format(projection.DateLayout),
		"hours":        hours,
	}).Debug("hour meter reading recorded")
	return reading, nil
}

func (s *Service) ListReadings(ctx context.Context, equipmentID int64) ([]model.HourMeterReading, error) {
	if _, err := s.store.GetEquipment(ctx, equipmentID); err != nil {
		return nil, err
	}
	return s.store.ListReadings(ctx, equipmentID)
}

// --- Reports ---

// EquipmentReport is the status page of a single unit.
type EquipmentReport struct {
	Unit       model.EquipmentUnit          `json:"unit"`
	Rate       projection.Rate              `json:"rate"`
	Components []projection.ComponentStatus `json:"components"`
	Periodic   []projection.PeriodicCheck   `json:"periodic"`
}

// EquipmentStatus classifies and projects every component and periodic interval of a unit.
func (s *Service) EquipmentStatus(ctx context.Context, equipmentID int64) (*EquipmentReport, error) {
	unit, err := s.store.GetEquipment(ctx, equipmentID)
	if err != nil {
		return nil, err
	}
	history, err := s.store.ListReadings(ctx, equipmentID)
	if err != nil {
		return nil, err
	}
	components, err := s.store.ListComponents(ctx, store.ComponentFilter{EquipmentID: equipmentID})
	if err != nil {
		return nil, err
	}
	records, err := s.store.ListMaintenanceRecords(ctx, store.RecordFilter{EquipmentID: equipmentID})
	if err != nil {
		return nil, err
	}

	rate, err := RateFor(*unit, history)
	if err != nil {
		return nil, fmt.Errorf("equipment %d: %w", equipmentID, err)
	}

	today := s.Today()
	report := &EquipmentReport{
		Unit:       *unit,
		Rate:       rate,
		Components: make([]projection.ComponentStatus, 0, len(components)),
		Periodic:   projection.PeriodicChecks(*unit, records, rate, today),
	}
	for _, c := range components {
		report.Components = append(report.Components, projection.EvaluateComponent(*unit, c, rate, today))
	}
	return report, nil
}

// FleetSchedule rescans every unit and component into the upcoming and overdue lists.
func (s *Service) FleetSchedule(ctx context.Context) (projection.Schedule, error) {
	units, components, err := s.fleet(ctx)
	if err != nil {
		return projection.Schedule{}, err
	}
	return projection.BuildSchedule(units, components)
}

// StatusCounts tallies every component of the fleet by status.
func (s *Service) StatusCounts(ctx context.Context) (map[projection.Status]int, error) {
	units, components, err := s.fleet(ctx)
	if err != nil {
		return nil, err
	}
	meter := make(map[int64]float64, len(units))
	for _, u := range units {
		meter[u.ID] = u.HourMeter
	}

	counts := map[projection.Status]int{
		projection.StatusGood:    0,
		projection.StatusDueSoon: 0,
		projection.StatusOverdue: 0,
	}
	for _, c := range components {
		current, ok := meter[c.EquipmentID]
		if !ok {
			return nil, fmt.Errorf("%w: component %d references unknown equipment %d", projection.ErrMalformedInput, c.ID, c.EquipmentID)
		}
		counts[projection.Classify(c.NextMaintenanceHour-current)]++
	}
	return counts, nil
}

func (s *Service) fleet(ctx context.Context) ([]model.EquipmentUnit, []model.Component, error) {
	units, err := s.store.ListEquipment(ctx)
	if err != nil {
		return nil, nil, err
	}
	components, err := s.store.ListComponents(ctx, store.ComponentFilter{})
	if err != nil {
		return nil, nil, err
	}
	return units, components, nil
}

// ParetoReport ranks breakdown downtime dated within [from, to] by the given dimension.
func (s *Service) ParetoReport(ctx context.Context, dim projection.Dimension, from, to time.Time) ([]projection.ParetoRow, error) {
	if !from.IsZero() && !to.IsZero() && to.Before(from) {
		return nil, invalid("range end %s is before its start %s", to.Format(projection.DateLayout), from.Format(projection.DateLayout))
	}
	breakdowns, err := s.store.ListBreakdowns(ctx, from, to)
	if err != nil {
		return nil, err
	}
	entries, err := projection.BreakdownEntries(breakdowns, dim)
	if err != nil {
		return nil, err
	}
	return projection.Pareto(entries)
}
