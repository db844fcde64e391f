package model

import "time"

// EquipmentUnit is a piece of mine equipment tracked by its hour meter.
type EquipmentUnit struct {
	ID                 int64     `gorm:"primaryKey" json:"id"`
	Name               string    `gorm:"size:128;not null" json:"name"`
	Type               string    `gorm:"size:64" json:"type"`
	Model              string    `gorm:"size:128" json:"model"`
	SerialNumber       string    `gorm:"size:128" json:"serialNumber"`
	Manufacturer       string    `gorm:"size:128" json:"manufacturer"`
	HourMeter          float64   `gorm:"not null;default:0" json:"hourMeter"`
	AverageHoursPerDay float64   `gorm:"not null;default:0" json:"averageHoursPerDay"`
	UseAutoCalculation bool      `gorm:"not null" json:"useAutoCalculation"`
	LastUpdated        time.Time `json:"lastUpdated"`
	CreatedAt          time.Time `json:"createdAt"`
	UpdatedAt          time.Time `json:"updatedAt"`

	// Associations
	Components []Component        `gorm:"foreignKey:EquipmentID;constraint:OnDelete:CASCADE" json:"-"`
	Readings   []HourMeterReading `gorm:"foreignKey:EquipmentID;constraint:OnDelete:CASCADE" json:"-"`
}

// HourMeterReading is one entry of the append-only hour meter log.
type HourMeterReading struct {
	ID          int64     `gorm:"primaryKey" json:"id"`
	EquipmentID int64     `gorm:"index:idx_reading_equipment_date;not null" json:"equipmentId"`
	ReadingDate time.Time `gorm:"index:idx_reading_equipment_date;not null" json:"readingDate"`
	Hours       float64   `gorm:"not null" json:"hours"`
	CreatedAt   time.Time `json:"createdAt"`
}
