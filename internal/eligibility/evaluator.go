package eligibility

import (
	"sort"
	"time"

	"fishfarm-backend/internal/models"
)

// NoLocationName stands in for the storage name of records without a location.
const NoLocationName = "N/A"

// Location is a storage location with usage recomputed from stock records.
type Location struct {
	ID         string
	Name       string
	Status     models.StorageStatus
	CapacityKg float64
	UsageKg    float64
}

func (l Location) OverCapacity() bool {
	return l.UsageKg > l.CapacityKg
}

// Inputs is everything Evaluate reads. Batches and Locations are keyed by id; a
// record whose location id is missing from Locations counts as unresolvable.
type Inputs struct {
	Records   []models.StockRecord
	Batches   map[string]models.SortingBatch
	Locations map[string]Location
}

type Candidate struct {
	StockRecordID       string                    `json:"stock_record_id"`
	SizeClass           int                       `json:"size_class"`
	Pieces              int                       `json:"pieces"`
	WeightGrams         int64                     `json:"weight_grams"`
	StorageLocationID   *string                   `json:"storage_location_id"`
	StorageLocationName string                    `json:"storage_location_name"`
	BatchID             string                    `json:"batch_id"`
	BatchNumber         string                    `json:"batch_number"`
	FarmerName          string                    `json:"farmer_name"`
	ProcessingDate      time.Time                 `json:"processing_date"`
	DaysInStorage       int                       `json:"days_in_storage"`
	Reason              models.DisposalReasonCode `json:"reason"`
	ReasonLabel         string                    `json:"reason_label"`
}

func (c Candidate) WeightKg() float64 {
	return float64(c.WeightGrams) / 1000
}

// Evaluate returns the records eligible under p, longest stored first.
func Evaluate(p Policy, in Inputs, today time.Time) []Candidate {
	out := make([]Candidate, 0)
	for _, r := range in.Records {
		if c, ok := evaluate(p, in, r, today); ok {
			out = append(out, c)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].DaysInStorage != out[j].DaysInStorage {
			return out[i].DaysInStorage > out[j].DaysInStorage
		}
		return out[i].StockRecordID < out[j].StockRecordID
	})
	return out
}

// EvaluateOne reports whether a single record is eligible under p.
func EvaluateOne(p Policy, in Inputs, r models.StockRecord, today time.Time) (Candidate, bool) {
	return evaluate(p, in, r, today)
}

func evaluate(p Policy, in Inputs, r models.StockRecord, today time.Time) (Candidate, bool) {
	if !r.IsActive() {
		return Candidate{}, false
	}

	batch, ok := in.Batches[r.BatchID]
	if !ok || batch.ProcessingDate == nil {
		return Candidate{}, false
	}
	processed := *batch.ProcessingDate
	if processed.After(today) {
		return Candidate{}, false
	}
	days := DaysBetween(processed, today)
	if days < 0 {
		return Candidate{}, false
	}

	f := Factors{HasLocation: r.StorageLocationID != nil}
	name := NoLocationName
	if f.HasLocation {
		if loc, found := in.Locations[*r.StorageLocationID]; found {
			f.Resolved = true
			f.Active = loc.Status == models.StorageActive
			f.OverCapacity = loc.OverCapacity()
			name = loc.Name
		}
	}

	if p.hasDateRange() && !p.inDateRange(processed, today.Location()) {
		return Candidate{}, false
	}

	var eligible bool
	if p.InactiveStorageOnly {
		f.AgeEligible = false
		f.OverCapacity = false
		eligible = f.storageMissingOrInactive()
	} else {
		f.AgeEligible = p.hasDateRange() || p.ageEligible(days)
		eligible = f.AgeEligible || f.StorageUnhealthy()
	}
	if !eligible {
		return Candidate{}, false
	}

	reason, ok := AssignReason(f)
	if !ok {
		return Candidate{}, false
	}
	return Candidate{
		StockRecordID:       r.ID,
		SizeClass:           r.SizeClass,
		Pieces:              r.RemainingPieces,
		WeightGrams:         r.RemainingWeightGrams,
		StorageLocationID:   r.StorageLocationID,
		StorageLocationName: name,
		BatchID:             r.BatchID,
		BatchNumber:         batch.BatchNumber,
		FarmerName:          batch.FarmerName,
		ProcessingDate:      processed,
		DaysInStorage:       days,
		Reason:              reason,
		ReasonLabel:         reason.Label(),
	}, true
}

// CountByReason tallies candidates per reason code.
func CountByReason(cs []Candidate) map[models.DisposalReasonCode]int {
	out := make(map[models.DisposalReasonCode]int)
	for _, c := range cs {
		out[c.Reason]++
	}
	return out
}
