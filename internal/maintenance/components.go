package maintenance

import (
	"context"
	"fmt"
	"strings"
	"time"

	log "github.com/sirupsen/logrus"

	"maintenance-backend/internal/model"
	"maintenance-backend/internal/projection"
	"maintenance-backend/internal/store"
)

// DefaultMaintenanceType is recorded when a component service names no type.
const DefaultMaintenanceType = "service"

func validateComponent(c *model.Component) error {
	c.Name = strings.TrimSpace(c.Name)
	if c.Name == "" {
		return invalid("component name is required")
	}
	if !model.ValidCategory(c.Category) {
		return invalid("unknown component category %q", c.Category)
	}
	if !finiteNonNegative(c.MaintenanceInterval) || c.MaintenanceInterval == 0 {
		return invalid("maintenance interval must be positive, got %v", c.MaintenanceInterval)
	}
	if !finiteNonNegative(c.LastMaintenanceHour) {
		return invalid("last maintenance hour must be a non-negative number, got %v", c.LastMaintenanceHour)
	}
	return nil
}

// CreateComponent installs a component on its unit.
func (s *Service) CreateComponent(ctx context.Context, c *model.Component) error {
	if err := validateComponent(c); err != nil {
		return err
	}
	return s.store.CreateComponent(ctx, c)
}

// ComponentOverrides are the per-unit values applied on top of a MaintenanceSetting.
type ComponentOverrides struct {
	Name                string
	SerialNumber        string
	InstallationDate    *time.Time
	LastMaintenanceHour float64
}

// CreateComponentFromSetting installs a component pre-filled from a settings template.
func (s *Service) CreateComponentFromSetting(ctx context.Context, settingID, equipmentID int64, o ComponentOverrides) (*model.Component, error) {
	setting, err := s.store.GetSetting(ctx, settingID)
	if err != nil {
		return nil, err
	}
	c := &model.Component{
		EquipmentID:         equipmentID,
		Name:                setting.Name,
		Category:            setting.Category,
		SerialNumber:        o.SerialNumber,
		MaintenanceInterval: setting.Interval,
		InstallationDate:    o.InstallationDate,
		LastMaintenanceHour: o.LastMaintenanceHour,
	}
	if o.Name != "" {
		c.Name = o.Name
	}
	if err := s.CreateComponent(ctx, c); err != nil {
		return nil, err
	}
	return c, nil
}

// UpdateComponent edits a component; its next due hour follows the new interval.
func (s *Service) UpdateComponent(ctx context.Context, c *model.Component) error {
	if err := validateComponent(c); err != nil {
		return err
	}
	return s.store.UpdateComponent(ctx, c)
}

func (s *Service) DeleteComponent(ctx context.Context, id int64) error {
	return s.store.DeleteComponent(ctx, id)
}

func (s *Service) ListComponents(ctx context.Context, equipmentID int64) ([]model.Component, error) {
	return s.store.ListComponents(ctx, store.ComponentFilter{EquipmentID: equipmentID})
}

// --- Services performed ---

// PerformRequest describes a service carried out in the field.
// A nil HourMeter means the unit's current meter; a zero Date means today.
type PerformRequest struct {
	Date            time.Time
	HourMeter       *float64
	Notes           string
	MaintenanceType string
}

func (s *Service) resolve(req PerformRequest, unit model.EquipmentUnit) (time.Time, float64, error) {
	hour := unit.HourMeter
	if req.HourMeter != nil {
		hour = *req.HourMeter
	}
	if !finiteNonNegative(hour) {
		return time.Time{}, 0, invalid("service hour must be a non-negative number, got %v", hour)
	}
	if hour > unit.HourMeter {
		return time.Time{}, 0, invalid("service hour %.1f is beyond the unit's hour meter %.1f", hour, unit.HourMeter)
	}
	date := req.Date
	if date.IsZero() {
		date = s.Today()
	}
	return date, hour, nil
}

// PerformMaintenance records a component service and restarts its interval at the service hour.
func (s *Service) PerformMaintenance(ctx context.Context, componentID int64, req PerformRequest) (*model.MaintenanceRecord, error) {
	record, err := s.store.RecordMaintenance(ctx, componentID, func(c *model.Component, unit model.EquipmentUnit) (*model.MaintenanceRecord, error) {
		date, hour, err := s.resolve(req, unit)
		if err != nil {
			return nil, err
		}
		if hour < c.LastMaintenanceHour {
			return nil, invalid("service hour %.1f is before the last service at %.1f", hour, c.LastMaintenanceHour)
		}

		c.LastMaintenanceHour = hour
		c.LastMaintenanceDate = &date
		c.Recompute()

		kind := strings.TrimSpace(req.MaintenanceType)
		if kind == "" {
			kind = DefaultMaintenanceType
		}
		id := c.ID
		return &model.MaintenanceRecord{
			ComponentID:         &id,
			ComponentName:       c.Name,
			EquipmentID:         unit.ID,
			Date:                date,
			HourMeter:           hour,
			NextMaintenanceHour: c.NextMaintenanceHour,
			Notes:               req.Notes,
			MaintenanceType:     kind,
		}, nil
	})
	if err != nil {
		return nil, err
	}

	log.WithFields(log.Fields{
		"component_id": componentID,
		"hour":         record.HourMeter,
		"next_due":     record.NextMaintenanceHour,
	}).Info("maintenance recorded")
	return record, nil
}

// PerformPeriodicService records a preventive service of one of the periodic intervals.
func (s *Service) PerformPeriodicService(ctx context.Context, equipmentID int64, interval float64, req PerformRequest) (*model.MaintenanceRecord, error) {
	if !projection.ValidPeriodicInterval(interval) {
		return nil, invalid("unknown periodic interval %v, expected one of %v", interval, projection.PeriodicIntervals)
	}
	kind := projection.PeriodicType(interval)

	record, err := s.store.RecordPeriodicService(ctx, equipmentID, func(unit model.EquipmentUnit, previous []model.MaintenanceRecord) (*model.MaintenanceRecord, error) {
		date, hour, err := s.resolve(req, unit)
		if err != nil {
			return nil, err
		}
		for _, p := range previous {
			if p.MaintenanceType == kind && p.HourMeter > hour {
				return nil, invalid("%s service hour %.1f is before the last one at %.1f", kind, hour, p.HourMeter)
			}
		}
		return &model.MaintenanceRecord{
			ComponentName:       fmt.Sprintf("PM %d", int(interval)),
			EquipmentID:         unit.ID,
			Date:                date,
			HourMeter:           hour,
			NextMaintenanceHour: hour + interval,
			Notes:               req.Notes,
			MaintenanceType:     kind,
		}, nil
	})
	if err != nil {
		return nil, err
	}

	log.WithFields(log.Fields{
		"equipment_id": equipmentID,
		"type":         kind,
		"hour":         record.HourMeter,
	}).Info("periodic service recorded")
	return record, nil
}

// History lists performed services, newest first.
func (s *Service) History(ctx context.Context, filter store.RecordFilter) ([]model.MaintenanceRecord, error) {
	return s.store.ListMaintenanceRecords(ctx, filter)
}

// --- Settings ---

func (s *Service) CreateSetting(ctx context.Context, setting *model.MaintenanceSetting) error {
	setting.Name = strings.TrimSpace(setting.Name)
	if setting.Name == "" {
		return invalid("setting name is required")
	}
	if !model.ValidCategory(setting.Category) {
		return invalid("unknown component category %q", setting.Category)
	}
	if !finiteNonNegative(setting.Interval) || setting.Interval == 0 {
		return invalid("interval must be positive, got %v", setting.Interval)
	}
	return s.store.CreateSetting(ctx, setting)
}

func (s *Service) ListSettings(ctx context.Context) ([]model.MaintenanceSetting, error) {
	return s.store.ListSettings(ctx)
}

func (s *Service) DeleteSetting(ctx context.Context, id int64) error {
	return s.store.DeleteSetting(ctx, id)
}

// --- Breakdowns ---

// RecordBreakdown logs a repair event against an existing unit.
func (s *Service) RecordBreakdown(ctx context.Context, b *model.Breakdown) error {
	b.Area = strings.TrimSpace(b.Area)
	b.SubComponent = strings.TrimSpace(b.SubComponent)
	if b.Area == "" {
		return invalid("breakdown area is required")
	}
	if !finiteNonNegative(b.DurationHours) {
		return invalid("breakdown duration must be a non-negative number, got %v", b.DurationHours)
	}
	if b.Date.IsZero() {
		b.Date = s.Today()
	}
	if _, err := s.store.GetEquipment(ctx, b.EquipmentID); err != nil {
		return err
	}
	return s.store.CreateBreakdown(ctx, b)
}
