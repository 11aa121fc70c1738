package models

import (
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type DispatchStatus string

const (
	DispatchPending    DispatchStatus = "pending"
	DispatchApproved   DispatchStatus = "approved"
	DispatchDispatched DispatchStatus = "dispatched"
)

// Dispatch: committed pick list for an outlet order. FishIDs, totals and
// SizeBreakdown are written once and never changed.
type Dispatch struct {
	ID            string                          `gorm:"type:uuid;primaryKey" json:"id"`
	OutletOrderID string                          `gorm:"type:uuid;index;not null" json:"outlet_order_id"`
	FishIDs       datatypes.JSONSlice[string]     `json:"fish_ids"`
	TotalWeightKg decimal.Decimal                 `gorm:"type:numeric(14,3);not null" json:"total_weight"`
	TotalPieces   int                             `gorm:"not null" json:"total_pieces"`
	SizeBreakdown datatypes.JSONType[map[int]int] `json:"size_breakdown"`
	Status        DispatchStatus                  `gorm:"size:20;not null;index" json:"status"`
	DriverName    string                          `gorm:"size:100" json:"driver_name"`
	DispatchDate  *time.Time                      `json:"dispatch_date"`
	CreatedBy     string                          `gorm:"size:64;not null" json:"created_by"`
	ApprovedBy    *string                         `gorm:"size:64" json:"approved_by"`
	CreatedAt     time.Time                       `json:"created_at"`
	UpdatedAt     time.Time                       `json:"updated_at"`
}

func (d *Dispatch) BeforeCreate(*gorm.DB) error {
	ensureID(&d.ID)
	if d.Status == "" {
		d.Status = DispatchPending
	}
	return nil
}
