package models

import (
	"time"

	"gorm.io/gorm"
)

// SortingBatch: one sorting run of a farmer's delivery. Stock records point back
// to it for their processing date and farmer context.
type SortingBatch struct {
	ID             string     `gorm:"type:uuid;primaryKey" json:"id"`
	BatchNumber    string     `gorm:"size:50;uniqueIndex;not null" json:"batch_number"`
	FarmerName     string     `gorm:"size:150" json:"farmer_name"`
	ProcessingDate *time.Time `gorm:"index" json:"processing_date"`
	CreatedAt      time.Time  `json:"created_at"`
	UpdatedAt      time.Time  `json:"updated_at"`
}

func (b *SortingBatch) BeforeCreate(*gorm.DB) error {
	ensureID(&b.ID)
	return nil
}
