package model

import "time"

// Breakdown is a repair event used for Pareto analysis of downtime.
type Breakdown struct {
	ID            int64     `gorm:"primaryKey" json:"id"`
	EquipmentID   int64     `gorm:"index;not null" json:"equipmentId"`
	Area          string    `gorm:"size:64;not null" json:"area"`
	SubComponent  string    `gorm:"size:128" json:"subComponent"`
	Date          time.Time `gorm:"index;not null" json:"date"`
	DurationHours float64   `gorm:"not null" json:"durationHours"`
	Description   string    `json:"description"`
	CreatedAt     time.Time `json:"createdAt"`
}
