package models

import (
	"time"

	"gorm.io/gorm"
)

type OrderStatus string

const (
	OrderPending    OrderStatus = "pending"
	OrderConfirmed  OrderStatus = "confirmed"
	OrderDispatched OrderStatus = "dispatched"
	OrderCancelled  OrderStatus = "cancelled"
)

// OutletOrder: request from a sales outlet for pieces per size class.
type OutletOrder struct {
	ID         string      `gorm:"type:uuid;primaryKey" json:"id"`
	OutletName string      `gorm:"size:150;not null" json:"outlet_name"`
	Status     OrderStatus `gorm:"size:20;not null;index" json:"status"`
	Notes      string      `gorm:"size:500" json:"notes"`
	CreatedBy  string      `gorm:"size:64;not null" json:"created_by"`
	CreatedAt  time.Time   `json:"created_at"`
	UpdatedAt  time.Time   `json:"updated_at"`

	Items []OutletOrderItem `gorm:"foreignKey:OutletOrderID;constraint:OnDelete:CASCADE" json:"items"`
}

func (o *OutletOrder) BeforeCreate(*gorm.DB) error {
	ensureID(&o.ID)
	if o.Status == "" {
		o.Status = OrderPending
	}
	return nil
}

// RequestedBySize sums item quantities per size class.
func (o OutletOrder) RequestedBySize() map[int]int {
	out := make(map[int]int, len(o.Items))
	for _, it := range o.Items {
		out[it.SizeClass] += it.Quantity
	}
	return out
}

type OutletOrderItem struct {
	ID            uint   `gorm:"primaryKey" json:"id"`
	OutletOrderID string `gorm:"type:uuid;index;not null" json:"outlet_order_id"`
	SizeClass     int    `gorm:"not null" json:"size_class"`
	Quantity      int    `gorm:"not null" json:"quantity"`
}
