package models

import (
	"time"

	"gorm.io/gorm"
)

type StockStatus string

const (
	StockAvailable StockStatus = "available"
	StockDisposed  StockStatus = "disposed"
	// StockConsumed: every piece was picked into dispatches. Not a disposal.
	StockConsumed StockStatus = "consumed"
)

// StockRecord: a sorted parcel of fish of one size class.
//
// TotalPieces/TotalWeightGrams are the figures captured at sorting and define the
// per-unit weight. Remaining* shrink as pieces are dispatched.
type StockRecord struct {
	ID                   string      `gorm:"type:uuid;primaryKey" json:"id"`
	SizeClass            int         `gorm:"not null;index" json:"size_class"`
	TotalPieces          int         `gorm:"not null" json:"total_pieces"`
	TotalWeightGrams     int64       `gorm:"not null" json:"total_weight_grams"`
	RemainingPieces      int         `gorm:"not null" json:"remaining_pieces"`
	RemainingWeightGrams int64       `gorm:"not null" json:"remaining_weight_grams"`
	StorageLocationID    *string     `gorm:"type:uuid;index" json:"storage_location_id"` // deliberately no FK: locations may disappear
	BatchID              string      `gorm:"type:uuid;index;not null" json:"batch_id"`
	Status               StockStatus `gorm:"size:20;not null;index" json:"status"`
	CreatedAt            time.Time   `json:"created_at"`
	UpdatedAt            time.Time   `json:"updated_at"`
}

func (s *StockRecord) BeforeCreate(*gorm.DB) error {
	ensureID(&s.ID)
	if s.Status == "" {
		s.Status = StockAvailable
	}
	return nil
}

// IsActive reports whether the record still counts toward storage usage.
func (s StockRecord) IsActive() bool {
	return s.Status == StockAvailable && s.RemainingWeightGrams > 0
}
