package models

import (
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

type DisposalReasonCode string

const (
	ReasonNoStorageLocation   DisposalReasonCode = "no_storage_location"
	ReasonStorageNotFound     DisposalReasonCode = "storage_not_found"
	ReasonStorageInactive     DisposalReasonCode = "storage_inactive"
	ReasonStorageOverCapacity DisposalReasonCode = "storage_over_capacity"
	ReasonAge                 DisposalReasonCode = "age"
	ReasonManual              DisposalReasonCode = "manual"
)

// DisposalReasonCodes lists every code in assignment priority order.
var DisposalReasonCodes = []DisposalReasonCode{
	ReasonNoStorageLocation,
	ReasonStorageNotFound,
	ReasonStorageInactive,
	ReasonStorageOverCapacity,
	ReasonAge,
	ReasonManual,
}

func (c DisposalReasonCode) Label() string {
	switch c {
	case ReasonNoStorageLocation:
		return "No Storage Location"
	case ReasonStorageNotFound:
		return "Storage Not Found"
	case ReasonStorageInactive:
		return "Storage Inactive"
	case ReasonStorageOverCapacity:
		return "Storage Over Capacity"
	case ReasonAge:
		return "Age"
	case ReasonManual:
		return "Manual"
	}
	return string(c)
}

// Rank is the position of the code in DisposalReasonCodes; lower wins.
func (c DisposalReasonCode) Rank() int {
	for i, code := range DisposalReasonCodes {
		if code == c {
			return i
		}
	}
	return len(DisposalReasonCodes)
}

type DisposalReason struct {
	ID        uint               `gorm:"primaryKey" json:"id"`
	Code      DisposalReasonCode `gorm:"size:40;uniqueIndex;not null" json:"code"`
	Name      string             `gorm:"size:100;not null" json:"name"`
	CreatedAt time.Time          `json:"created_at"`
}

type DisposalMethod string

const (
	MethodWaste          DisposalMethod = "waste"
	MethodCompost        DisposalMethod = "compost"
	MethodDonation       DisposalMethod = "donation"
	MethodReturnToFarmer DisposalMethod = "return_to_farmer"
)

func (m DisposalMethod) Valid() bool {
	switch m {
	case MethodWaste, MethodCompost, MethodDonation, MethodReturnToFarmer:
		return true
	}
	return false
}

type DisposalStatus string

const (
	DisposalPending   DisposalStatus = "pending"
	DisposalApproved  DisposalStatus = "approved"
	DisposalCompleted DisposalStatus = "completed"
	DisposalCancelled DisposalStatus = "cancelled"
)

// DisposalRecord: one disposal run. Created together with its items and the
// stock status flips in a single transaction.
type DisposalRecord struct {
	ID             string          `gorm:"type:uuid;primaryKey" json:"id"`
	SequenceNumber string          `gorm:"size:30;uniqueIndex;not null" json:"sequence_number"`
	ReasonID       uint            `gorm:"index;not null" json:"reason_id"`
	Reason         DisposalReason  `json:"reason"`
	TotalWeightKg  decimal.Decimal `gorm:"type:numeric(14,3);not null" json:"total_weight_kg"`
	TotalPieces    int             `gorm:"not null" json:"total_pieces"`
	Method         DisposalMethod  `gorm:"size:30;not null" json:"method"`
	DisposalCost   decimal.Decimal `gorm:"type:numeric(14,2);not null" json:"disposal_cost"`
	Status         DisposalStatus  `gorm:"size:20;not null;index" json:"status"`
	Notes          string          `gorm:"size:500" json:"notes"`
	DisposalDate   time.Time       `gorm:"index;not null" json:"disposal_date"`
	CreatedBy      string          `gorm:"size:64;not null" json:"created_by"`
	ApprovedBy     *string         `gorm:"size:64" json:"approved_by"`
	ApprovedAt     *time.Time      `json:"approved_at"`
	CompletedAt    *time.Time      `json:"completed_at"`
	CancelledAt    *time.Time      `json:"cancelled_at"`
	CreatedAt      time.Time       `json:"created_at"`
	UpdatedAt      time.Time       `json:"updated_at"`

	Items []DisposalItem `gorm:"foreignKey:DisposalRecordID;constraint:OnDelete:CASCADE" json:"items"`
}

func (d *DisposalRecord) BeforeCreate(*gorm.DB) error {
	ensureID(&d.ID)
	return nil
}

// DisposalItem: snapshot of a stock record at disposal time. Never updated.
type DisposalItem struct {
	ID                  string             `gorm:"type:uuid;primaryKey" json:"id"`
	DisposalRecordID    string             `gorm:"type:uuid;index;not null" json:"disposal_record_id"`
	StockRecordID       string             `gorm:"type:uuid;index;not null" json:"stock_record_id"`
	SizeClass           int                `gorm:"not null" json:"size_class"`
	Pieces              int                `gorm:"not null" json:"pieces"`
	WeightGrams         int64              `gorm:"not null" json:"weight_grams"`
	BatchID             string             `gorm:"type:uuid" json:"batch_id"`
	BatchNumber         string             `gorm:"size:50" json:"batch_number"`
	StorageLocationID   *string            `gorm:"type:uuid" json:"storage_location_id"`
	StorageLocationName string             `gorm:"size:100" json:"storage_location_name"`
	FarmerName          string             `gorm:"size:150" json:"farmer_name"`
	DaysInStorage       int                `json:"days_in_storage"`
	EligibilityReason   DisposalReasonCode `gorm:"size:40" json:"eligibility_reason"`
	CreatedAt           time.Time          `json:"created_at"`
}

func (i *DisposalItem) BeforeCreate(*gorm.DB) error {
	ensureID(&i.ID)
	return nil
}
