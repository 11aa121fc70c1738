package models

import (
	"time"

	"gorm.io/gorm"
)

type TransferStatus string

const (
	TransferPending   TransferStatus = "pending"
	TransferApproved  TransferStatus = "approved"
	TransferDeclined  TransferStatus = "declined"
	TransferCompleted TransferStatus = "completed"
)

func (s TransferStatus) Valid() bool {
	switch s {
	case TransferPending, TransferApproved, TransferDeclined, TransferCompleted:
		return true
	}
	return false
}

// TransferRecord: movement of one size class between two locations. Records
// written together share CreatedAt and Notes and are read back as a batch.
// Stock only moves when an approved transfer is completed.
type TransferRecord struct {
	ID            string         `gorm:"type:uuid;primaryKey" json:"id"`
	FromStorageID string         `gorm:"type:uuid;index;not null" json:"from_storage"`
	ToStorageID   string         `gorm:"type:uuid;index;not null" json:"to_storage"`
	SizeClass     int            `gorm:"not null" json:"size"`
	Quantity      int            `gorm:"not null" json:"quantity"`
	WeightKg      float64        `gorm:"not null" json:"weight_kg"`
	Status        TransferStatus `gorm:"size:20;not null;index" json:"status"`
	Notes         string         `gorm:"size:500" json:"notes"`
	CreatedBy     string         `gorm:"size:64;not null" json:"created_by"`
	ApprovedBy    *string        `gorm:"size:64" json:"approved_by"`
	ApprovedAt    *time.Time     `json:"approved_at"`
	CompletedBy   *string        `gorm:"size:64" json:"completed_by"`
	CompletedAt   *time.Time     `json:"completed_at"`
	CreatedAt     time.Time      `gorm:"index" json:"created_at"`
	UpdatedAt     time.Time      `json:"updated_at"`
}

func (t *TransferRecord) BeforeCreate(*gorm.DB) error {
	ensureID(&t.ID)
	if t.Status == "" {
		t.Status = TransferPending
	}
	return nil
}
