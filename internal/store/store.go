package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	log "github.com/sirupsen/logrus"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"maintenance-backend/internal/model"
)

// Store defines the interface for all database operations.
type Store interface {
	CreateEquipment(ctx context.Context, unit *model.EquipmentUnit, initial *model.HourMeterReading) error
	UpdateEquipment(ctx context.Context, unit *model.EquipmentUnit) error
	DeleteEquipment(ctx context.Context, id int64) error
	GetEquipment(ctx context.Context, id int64) (*model.EquipmentUnit, error)
	ListEquipment(ctx context.Context) ([]model.EquipmentUnit, error)

	ListReadings(ctx context.Context, equipmentID int64) ([]model.HourMeterReading, error)
	AppendReading(ctx context.Context, equipmentID int64, apply ReadingFunc) (*model.HourMeterReading, error)
	RewriteHourMeter(ctx context.Context, equipmentID int64, apply ReconcileFunc) (bool, error)

	CreateComponent(ctx context.Context, c *model.Component) error
	UpdateComponent(ctx context.Context, c *model.Component) error
	DeleteComponent(ctx context.Context, id int64) error
	GetComponent(ctx context.Context, id int64) (*model.Component, error)
	ListComponents(ctx context.Context, filter ComponentFilter) ([]model.Component, error)
	RecordMaintenance(ctx context.Context, componentID int64, apply MaintenanceFunc) (*model.MaintenanceRecord, error)
	RecordPeriodicService(ctx context.Context, equipmentID int64, apply PeriodicFunc) (*model.MaintenanceRecord, error)
	ListMaintenanceRecords(ctx context.Context, filter RecordFilter) ([]model.MaintenanceRecord, error)

	CreateSetting(ctx context.Context, s *model.MaintenanceSetting) error
	GetSetting(ctx context.Context, id int64) (*model.MaintenanceSetting, error)
	ListSettings(ctx context.Context) ([]model.MaintenanceSetting, error)
	DeleteSetting(ctx context.Context, id int64) error

	CreateBreakdown(ctx context.Context, b *model.Breakdown) error
	ListBreakdowns(ctx context.Context, from, to time.Time) ([]model.Breakdown, error)

	PutSubscription(ctx context.Context, sub *model.PushSubscription, equipmentIDs []int64) error
	DeleteSubscription(ctx context.Context, endpoint string) error
	SubscriptionsForEquipment(ctx context.Context, equipmentID int64) ([]model.PushSubscription, error)
}

// gormStore implements the Store interface using GORM.
type gormStore struct {
	db *gorm.DB
}

// NewGormStore creates a new GORM-backed store.
func NewGormStore(db *gorm.DB) Store {
	return &gormStore{db: db}
}

func notFound(err error, kind string, id any) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return fmt.Errorf("%s %v: %w", kind, id, ErrNotFound)
	}
	return fmt.Errorf("failed to load %s %v: %w", kind, id, err)
}

// lockForUpdate row-locks the selected rows on backends that support it.
func lockForUpdate(tx *gorm.DB) *gorm.DB {
	if tx.Dialector.Name() == "postgres" {
		return tx.Clauses(clause.Locking{Strength: "UPDATE"})
	}
	return tx
}

// --- Equipment ---

// CreateEquipment inserts a unit and, when initial is set, its first reading in one transaction.
func (s *gormStore) CreateEquipment(ctx context.Context, unit *model.EquipmentUnit, initial *model.HourMeterReading) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(unit).Error; err != nil {
			return fmt.Errorf("failed to create equipment %q: %w", unit.Name, err)
		}
		if initial == nil {
			return nil
		}
		initial.EquipmentID = unit.ID
		if err := tx.Create(initial).Error; err != nil {
			return fmt.Errorf("failed to log initial reading for equipment %q: %w", unit.Name, err)
		}
		return nil
	})
}

// UpdateEquipment writes the editable attributes. The hour meter and its timestamp
// only change through AppendReading and RewriteHourMeter.
func (s *gormStore) UpdateEquipment(ctx context.Context, unit *model.EquipmentUnit) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var existing model.EquipmentUnit
		if err := lockForUpdate(tx).First(&existing, unit.ID).Error; err != nil {
			return notFound(err, "equipment", unit.ID)
		}
		existing.Name = unit.Name
		existing.Type = unit.Type
		existing.Model = unit.Model
		existing.SerialNumber = unit.SerialNumber
		existing.Manufacturer = unit.Manufacturer
		existing.UseAutoCalculation = unit.UseAutoCalculation
		existing.AverageHoursPerDay = unit.AverageHoursPerDay
		if err := tx.Save(&existing).Error; err != nil {
			return fmt.Errorf("failed to update equipment %d: %w", unit.ID, err)
		}
		*unit = existing
		return nil
	})
}

// DeleteEquipment removes a unit with its components and readings. Maintenance records
// and breakdowns stay as history.
func (s *gormStore) DeleteEquipment(ctx context.Context, id int64) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("equipment_id = ?", id).Delete(&model.Component{}).Error; err != nil {
			return fmt.Errorf("failed to delete components of equipment %d: %w", id, err)
		}
		if err := tx.Where("equipment_id = ?", id).Delete(&model.HourMeterReading{}).Error; err != nil {
			return fmt.Errorf("failed to delete readings of equipment %d: %w", id, err)
		}
		if err := tx.Exec("DELETE FROM subscription_equipment_mapping WHERE equipment_unit_id = ?", id).Error; err != nil {
			return fmt.Errorf("failed to delete subscriptions of equipment %d: %w", id, err)
		}
		res := tx.Delete(&model.EquipmentUnit{}, id)
		if res.Error != nil {
			return fmt.Errorf("failed to delete equipment %d: %w", id, res.Error)
		}
		if res.RowsAffected == 0 {
			return fmt.Errorf("equipment %d: %w", id, ErrNotFound)
		}
		return nil
	})
}

func (s *gormStore) GetEquipment(ctx context.Context, id int64) (*model.EquipmentUnit, error) {
	var unit model.EquipmentUnit
	if err := s.db.WithContext(ctx).First(&unit, id).Error; err != nil {
		return nil, notFound(err, "equipment", id)
	}
	return &unit, nil
}

func (s *gormStore) ListEquipment(ctx context.Context) ([]model.EquipmentUnit, error) {
	var units []model.EquipmentUnit
	if err := s.db.WithContext(ctx).Order("name, id").Find(&units).Error; err != nil {
		return nil, fmt.Errorf("failed to list equipment: %w", err)
	}
	return units, nil
}

// --- Hour meter ---

func (s *gormStore) ListReadings(ctx context.Context, equipmentID int64) ([]model.HourMeterReading, error) {
	return fetchReadings(s.db.WithContext(ctx), equipmentID)
}

func fetchReadings(tx *gorm.DB, equipmentID int64) ([]model.HourMeterReading, error) {
	var readings []model.HourMeterReading
	if err := tx.Where("equipment_id = ?", equipmentID).Order("reading_date, id").Find(&readings).Error; err != nil {
		return nil, fmt.Errorf("failed to list readings for equipment %d: %w", equipmentID, err)
	}
	return readings, nil
}

// AppendReading inserts a reading and saves the unit summary in one transaction,
// so a failure leaves neither write behind.
func (s *gormStore) AppendReading(ctx context.Context, equipmentID int64, apply ReadingFunc) (*model.HourMeterReading, error) {
	var created *model.HourMeterReading
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var unit model.EquipmentUnit
		if err := lockForUpdate(tx).First(&unit, equipmentID).Error; err != nil {
			return notFound(err, "equipment", equipmentID)
		}
		history, err := fetchReadings(tx, equipmentID)
		if err != nil {
			return err
		}

		reading, err := apply(&unit, history)
		if err != nil {
			return err
		}
		reading.EquipmentID = equipmentID

		if err := tx.Create(reading).Error; err != nil {
			return fmt.Errorf("failed to insert reading for equipment %d: %w", equipmentID, err)
		}
		if err := tx.Save(&unit).Error; err != nil {
			return fmt.Errorf("failed to update hour meter of equipment %d: %w", equipmentID, err)
		}
		created = reading
		return nil
	})
	if err != nil {
		return nil, err
	}
	return created, nil
}

// RewriteHourMeter lets apply recompute the unit summary from its log and saves it if changed.
func (s *gormStore) RewriteHourMeter(ctx context.Context, equipmentID int64, apply ReconcileFunc) (bool, error) {
	var changed bool
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var unit model.EquipmentUnit
		if err := lockForUpdate(tx).First(&unit, equipmentID).Error; err != nil {
			return notFound(err, "equipment", equipmentID)
		}
		history, err := fetchReadings(tx, equipmentID)
		if err != nil {
			return err
		}
		changed, err = apply(&unit, history)
		if err != nil || !changed {
			return err
		}
		if err := tx.Save(&unit).Error; err != nil {
			return fmt.Errorf("failed to rewrite hour meter of equipment %d: %w", equipmentID, err)
		}
		return nil
	})
	return changed, err
}

// --- Components ---

func (s *gormStore) CreateComponent(ctx context.Context, c *model.Component) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var count int64
		if err := tx.Model(&model.EquipmentUnit{}).Where("id = ?", c.EquipmentID).Count(&count).Error; err != nil {
			return fmt.Errorf("failed to check equipment %d: %w", c.EquipmentID, err)
		}
		if count == 0 {
			return fmt.Errorf("equipment %d: %w", c.EquipmentID, ErrNotFound)
		}
		if err := tx.Create(c).Error; err != nil {
			return fmt.Errorf("failed to create component %q: %w", c.Name, err)
		}
		return nil
	})
}

// UpdateComponent writes the editable attributes; the next due hour is recomputed on save.
func (s *gormStore) UpdateComponent(ctx context.Context, c *model.Component) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var existing model.Component
		if err := lockForUpdate(tx).First(&existing, c.ID).Error; err != nil {
			return notFound(err, "component", c.ID)
		}
		existing.Name = c.Name
		existing.Category = c.Category
		existing.SerialNumber = c.SerialNumber
		existing.MaintenanceInterval = c.MaintenanceInterval
		existing.InstallationDate = c.InstallationDate
		existing.LastMaintenanceDate = c.LastMaintenanceDate
		existing.LastMaintenanceHour = c.LastMaintenanceHour
		if err := tx.Save(&existing).Error; err != nil {
			return fmt.Errorf("failed to update component %d: %w", c.ID, err)
		}
		*c = existing
		return nil
	})
}

func (s *gormStore) DeleteComponent(ctx context.Context, id int64) error {
	res := s.db.WithContext(ctx).Delete(&model.Component{}, id)
	if res.Error != nil {
		return fmt.Errorf("failed to delete component %d: %w", id, res.Error)
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("component %d: %w", id, ErrNotFound)
	}
	return nil
}

func (s *gormStore) GetComponent(ctx context.Context, id int64) (*model.Component, error) {
	var c model.Component
	if err := s.db.WithContext(ctx).First(&c, id).Error; err != nil {
		return nil, notFound(err, "component", id)
	}
	return &c, nil
}

func (s *gormStore) ListComponents(ctx context.Context, filter ComponentFilter) ([]model.Component, error) {
	q := s.db.WithContext(ctx).Order("equipment_id, id")
	if filter.EquipmentID != 0 {
		q = q.Where("equipment_id = ?", filter.EquipmentID)
	}
	var components []model.Component
	if err := q.Find(&components).Error; err != nil {
		return nil, fmt.Errorf("failed to list components: %w", err)
	}
	return components, nil
}

// RecordMaintenance saves the serviced component and its audit record atomically.
func (s *gormStore) RecordMaintenance(ctx context.Context, componentID int64, apply MaintenanceFunc) (*model.MaintenanceRecord, error) {
	var created *model.MaintenanceRecord
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var c model.Component
		if err := lockForUpdate(tx).First(&c, componentID).Error; err != nil {
			return notFound(err, "component", componentID)
		}
		var unit model.EquipmentUnit
		if err := tx.First(&unit, c.EquipmentID).Error; err != nil {
			return notFound(err, "equipment", c.EquipmentID)
		}

		record, err := apply(&c, unit)
		if err != nil {
			return err
		}
		if err := tx.Save(&c).Error; err != nil {
			return fmt.Errorf("failed to update component %d: %w", componentID, err)
		}
		if err := tx.Create(record).Error; err != nil {
			return fmt.Errorf("failed to insert maintenance record for component %d: %w", componentID, err)
		}
		created = record
		return nil
	})
	if err != nil {
		return nil, err
	}
	return created, nil
}

// RecordPeriodicService appends a periodic service record for a unit.
func (s *gormStore) RecordPeriodicService(ctx context.Context, equipmentID int64, apply PeriodicFunc) (*model.MaintenanceRecord, error) {
	var created *model.MaintenanceRecord
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var unit model.EquipmentUnit
		if err := lockForUpdate(tx).First(&unit, equipmentID).Error; err != nil {
			return notFound(err, "equipment", equipmentID)
		}
		var previous []model.MaintenanceRecord
		if err := tx.Where("equipment_id = ? AND component_id IS NULL", equipmentID).Order("date, id").Find(&previous).Error; err != nil {
			return fmt.Errorf("failed to list periodic services of equipment %d: %w", equipmentID, err)
		}

		record, err := apply(unit, previous)
		if err != nil {
			return err
		}
		if err := tx.Create(record).Error; err != nil {
			return fmt.Errorf("failed to insert periodic service for equipment %d: %w", equipmentID, err)
		}
		created = record
		return nil
	})
	if err != nil {
		return nil, err
	}
	return created, nil
}

func (s *gormStore) ListMaintenanceRecords(ctx context.Context, filter RecordFilter) ([]model.MaintenanceRecord, error) {
	q := s.db.WithContext(ctx).Order("date DESC, id DESC")
	if filter.EquipmentID != 0 {
		q = q.Where("equipment_id = ?", filter.EquipmentID)
	}
	if filter.ComponentID != 0 {
		q = q.Where("component_id = ?", filter.ComponentID)
	}
	if filter.MaintenanceType != "" {
		q = q.Where("maintenance_type = ?", filter.MaintenanceType)
	}
	if !filter.Since.IsZero() {
		q = q.Where("date >= ?", filter.Since)
	}
	var records []model.MaintenanceRecord
	if err := q.Find(&records).Error; err != nil {
		return nil, fmt.Errorf("failed to list maintenance records: %w", err)
	}
	return records, nil
}

// --- Settings ---

func (s *gormStore) CreateSetting(ctx context.Context, setting *model.MaintenanceSetting) error {
	if err := s.db.WithContext(ctx).Create(setting).Error; err != nil {
		return fmt.Errorf("failed to create maintenance setting %q: %w", setting.Name, err)
	}
	return nil
}

func (s *gormStore) GetSetting(ctx context.Context, id int64) (*model.MaintenanceSetting, error) {
	var setting model.MaintenanceSetting
	if err := s.db.WithContext(ctx).First(&setting, id).Error; err != nil {
		return nil, notFound(err, "maintenance setting", id)
	}
	return &setting, nil
}

func (s *gormStore) ListSettings(ctx context.Context) ([]model.MaintenanceSetting, error) {
	var settings []model.MaintenanceSetting
	if err := s.db.WithContext(ctx).Order("category, name").Find(&settings).Error; err != nil {
		return nil, fmt.Errorf("failed to list maintenance settings: %w", err)
	}
	return settings, nil
}

func (s *gormStore) DeleteSetting(ctx context.Context, id int64) error {
	res := s.db.WithContext(ctx).Delete(&model.MaintenanceSetting{}, id)
	if res.Error != nil {
		return fmt.Errorf("failed to delete maintenance setting %d: %w", id, res.Error)
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("maintenance setting %d: %w", id, ErrNotFound)
	}
	return nil
}

// --- Breakdowns ---

func (s *gormStore) CreateBreakdown(ctx context.Context, b *model.Breakdown) error {
	if err := s.db.WithContext(ctx).Create(b).Error; err != nil {
		return fmt.Errorf("failed to create breakdown: %w", err)
	}
	return nil
}

// ListBreakdowns returns breakdowns dated within [from, to]. Zero bounds are open.
func (s *gormStore) ListBreakdowns(ctx context.Context, from, to time.Time) ([]model.Breakdown, error) {
	q := s.db.WithContext(ctx).Order("date, id")
	if !from.IsZero() {
		q = q.Where("date >= ?", from)
	}
	if !to.IsZero() {
		q = q.Where("date <= ?", to)
	}
	var breakdowns []model.Breakdown
	if err := q.Find(&breakdowns).Error; err != nil {
		return nil, fmt.Errorf("failed to list breakdowns: %w", err)
	}
	return breakdowns, nil
}

// --- Push subscriptions ---

// PutSubscription creates or replaces a subscription and its equipment list.
func (s *gormStore) PutSubscription(ctx context.Context, sub *model.PushSubscription, equipmentIDs []int64) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "endpoint"}},
			DoUpdates: clause.AssignmentColumns([]string{"p256dh", "auth"}),
		}).Create(sub).Error; err != nil {
			return fmt.Errorf("failed to upsert subscription: %w", err)
		}

		var units []model.EquipmentUnit
		if len(equipmentIDs) > 0 {
			if err := tx.Find(&units, equipmentIDs).Error; err != nil {
				return fmt.Errorf("failed to load subscribed equipment: %w", err)
			}
		}
		if len(units) != len(equipmentIDs) {
			log.WithFields(log.Fields{
				"endpoint":  sub.Endpoint,
				"requested": len(equipmentIDs),
				"found":     len(units),
			}).Warn("some subscribed equipment does not exist")
		}

		if err := tx.Model(sub).Association("Equipment").Replace(&units); err != nil {
			return fmt.Errorf("failed to replace subscribed equipment: %w", err)
		}
		return nil
	})
}

func (s *gormStore) DeleteSubscription(ctx context.Context, endpoint string) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		sub := model.PushSubscription{Endpoint: endpoint}
		if err := tx.Model(&sub).Association("Equipment").Clear(); err != nil {
			return fmt.Errorf("failed to clear subscription %s: %w", endpoint, err)
		}
		if err := tx.Delete(&sub).Error; err != nil {
			return fmt.Errorf("failed to delete subscription %s: %w", endpoint, err)
		}
		return nil
	})
}

func (s *gormStore) SubscriptionsForEquipment(ctx context.Context, equipmentID int64) ([]model.PushSubscription, error) {
	var subscriptions []model.PushSubscription
	err := s.db.WithContext(ctx).
		Joins("JOIN subscription_equipment_mapping sem ON sem.push_subscription_endpoint = push_subscriptions.endpoint").
		Where("sem.equipment_unit_id = ?", equipmentID).
		Find(&subscriptions).Error
	if err != nil {
		return nil, fmt.Errorf("failed to fetch subscriptions for equipment %d: %w", equipmentID, err)
	}
	return subscriptions, nil
}
