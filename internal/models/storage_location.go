package models

import (
	"time"

	"gorm.io/gorm"
)

type StorageStatus string

const (
	StorageActive      StorageStatus = "active"
	StorageMaintenance StorageStatus = "maintenance"
	StorageInactive    StorageStatus = "inactive"
)

func (s StorageStatus) Valid() bool {
	switch s {
	case StorageActive, StorageMaintenance, StorageInactive:
		return true
	}
	return false
}

type StorageLocation struct {
	ID         string        `gorm:"type:uuid;primaryKey" json:"id"`
	Name       string        `gorm:"size:100;uniqueIndex;not null" json:"name"`
	CapacityKg float64       `gorm:"not null" json:"capacity_kg"`
	Status     StorageStatus `gorm:"size:20;not null" json:"status"`
	// Cache only. Rewritten from stock records by the ledger; never read for decisions.
	CurrentUsageKg float64   `gorm:"not null;default:0" json:"current_usage_kg"`
	TemperatureC   *float64  `json:"temperature_c"`
	OxygenMgL      *float64  `json:"oxygen_mg_l"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}

func (l *StorageLocation) BeforeCreate(*gorm.DB) error {
	ensureID(&l.ID)
	if l.Status == "" {
		l.Status = StorageActive
	}
	return nil
}
