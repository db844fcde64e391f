package model

import "time"

// MaintenanceRecord is the immutable audit entry written when a service is performed.
// Periodic services carry MaintenanceType "pm-<interval>" and no ComponentID.
type MaintenanceRecord struct {
	ID                  int64     `gorm:"primaryKey" json:"id"`
	ComponentID         *int64    `gorm:"index" json:"componentId,omitempty"`
	ComponentName       string    `gorm:"size:128" json:"componentName"`
	EquipmentID         int64     `gorm:"index;not null" json:"equipmentId"`
	Date                time.Time `gorm:"not null" json:"date"`
	HourMeter           float64   `gorm:"not null" json:"hourMeter"`
	NextMaintenanceHour float64   `gorm:"not null" json:"nextMaintenanceHour"`
	Notes               string    `json:"notes"`
	MaintenanceType     string    `gorm:"size:32;not null" json:"maintenanceType"`
	CreatedAt           time.Time `json:"createdAt"`
}
