package store

import (
	"errors"
	"time"

	"maintenance-backend/internal/model"
)

// ErrNotFound is returned when a referenced row does not exist.
var ErrNotFound = errors.New("record not found")

// ReadingFunc validates a new reading against the locked unit and its ordered history.
// It may mutate unit; the returned reading and the unit are written in the same transaction.
type ReadingFunc func(unit *model.EquipmentUnit, history []model.HourMeterReading) (*model.HourMeterReading, error)

// MaintenanceFunc updates component for a performed service and returns the audit record.
type MaintenanceFunc func(component *model.Component, unit model.EquipmentUnit) (*model.MaintenanceRecord, error)

// PeriodicFunc builds the audit record for a periodic service on unit.
type PeriodicFunc func(unit model.EquipmentUnit, previous []model.MaintenanceRecord) (*model.MaintenanceRecord, error)

// ReconcileFunc recomputes the unit summary from its reading log and reports whether it changed.
type ReconcileFunc func(unit *model.EquipmentUnit, history []model.HourMeterReading) (bool, error)

// ComponentFilter narrows ListComponents. Zero values match everything.
type ComponentFilter struct {
	EquipmentID int64
}

// RecordFilter narrows ListMaintenanceRecords. Zero values match everything.
type RecordFilter struct {
	EquipmentID     int64
	ComponentID     int64
	MaintenanceType string
	Since           time.Time
}
