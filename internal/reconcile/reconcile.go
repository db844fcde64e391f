// Package reconcile repairs unit summaries that drifted from their hour meter log.
package reconcile

import (
	"context"
	"time"

	log "github.com/sirupsen/logrus"

	"maintenance-backend/internal/model"
	"maintenance-backend/internal/projection"
	"maintenance-backend/internal/store"
)

// Result counts what a pass did.
type Result struct {
	Checked   int
	Rewritten int
	Failed    int
}

// Service recomputes every unit's hour meter and auto-calculated rate from its readings.
type Service struct {
	store store.Store
	now   func() time.Time
}

// NewService creates a reconciliation service.
func NewService(st store.Store) *Service {
	return &Service{store: st, now: time.Now}
}

// Summarize brings unit in line with history and reports whether anything changed.
// The meter is only ever raised; a log below the stored meter is left alone.
func (s *Service) Summarize(unit *model.EquipmentUnit, history []model.HourMeterReading) (bool, error) {
	if len(history) == 0 {
		return false, nil
	}

	changed := false
	latest := history[0].Hours
	for _, r := range history[1:] {
		if r.Hours > latest {
			latest = r.Hours
		}
	}
	if latest > unit.HourMeter {
		unit.HourMeter = latest
		unit.LastUpdated = s.now()
		changed = true
	} else if latest < unit.HourMeter {
		log.WithFields(log.Fields{
			"equipment_id": unit.ID,
			"hour_meter":   unit.HourMeter,
			"log_max":      latest,
		}).Warn("hour meter is ahead of its reading log")
	}

	if unit.UseAutoCalculation && len(history) > 1 {
		rate, err := projection.EstimateRate(history)
		if err != nil {
			return false, err
		}
		if rate.HoursPerDay != unit.AverageHoursPerDay {
			unit.AverageHoursPerDay = rate.HoursPerDay
			changed = true
		}
	}
	return changed, nil
}

// RunOnce performs a single pass over every unit. A failing unit is logged and skipped;
// running it again on a consistent database changes nothing.
func (s *Service) RunOnce(ctx context.Context) (Result, error) {
	var res Result
	units, err := s.store.ListEquipment(ctx)
	if err != nil {
		return res, err
	}

	for _, unit := range units {
		if err := ctx.Err(); err != nil {
			return res, err
		}
		res.Checked++

		changed, err := s.store.RewriteHourMeter(ctx, unit.ID, s.Summarize)
		entry := log.WithFields(log.Fields{"equipment_id": unit.ID, "name": unit.Name})
		if err != nil {
			entry.WithError(err).Error("reconciliation failed")
			res.Failed++
			continue
		}
		if changed {
			entry.Info("unit summary rewritten from reading log")
			res.Rewritten++
		}
	}

	log.WithFields(log.Fields{
		"checked":   res.Checked,
		"rewritten": res.Rewritten,
		"failed":    res.Failed,
	}).Info("reconciliation finished")
	return res, nil
}
