package model

import (
	"time"

	"gorm.io/gorm"
)

// Maintenance classes a component can belong to.
const (
	CategoryMajorOverhaul = "major_overhaul"
	CategoryMidlife       = "midlife"
)

// ValidCategory reports whether c is one of the known maintenance classes.
func ValidCategory(c string) bool {
	return c == CategoryMajorOverhaul || c == CategoryMidlife
}

// Component is a serviceable part installed on an equipment unit.
type Component struct {
	ID                  int64      `gorm:"primaryKey" json:"id"`
	EquipmentID         int64      `gorm:"index;not null" json:"equipmentId"`
	Name                string     `gorm:"size:128;not null" json:"name"`
	Category            string     `gorm:"size:32;not null" json:"category"`
	SerialNumber        string     `gorm:"size:128" json:"serialNumber"`
	MaintenanceInterval float64    `gorm:"not null" json:"maintenanceInterval"`
	InstallationDate    *time.Time `json:"installationDate,omitempty"`
	LastMaintenanceDate *time.Time `json:"lastMaintenanceDate,omitempty"`
	LastMaintenanceHour float64    `gorm:"not null;default:0" json:"lastMaintenanceHour"`
	NextMaintenanceHour float64    `gorm:"not null;default:0" json:"nextMaintenanceHour"`
	CreatedAt           time.Time  `json:"createdAt"`
	UpdatedAt           time.Time  `json:"updatedAt"`
}

// Recompute sets the next due hour from the last service hour and the interval.
func (c *Component) Recompute() {
	c.NextMaintenanceHour = c.LastMaintenanceHour + c.MaintenanceInterval
}

// BeforeSave keeps NextMaintenanceHour consistent on every create and save.
func (c *Component) BeforeSave(tx *gorm.DB) error {
	c.Recompute()
	return nil
}

// MaintenanceSetting is a template used to pre-fill new components.
type MaintenanceSetting struct {
	ID       int64   `gorm:"primaryKey" json:"id"`
	Name     string  `gorm:"size:128;not null" json:"name"`
	Category string  `gorm:"size:32;not null" json:"category"`
	Interval float64 `gorm:"not null" json:"interval"`
}
