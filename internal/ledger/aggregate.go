// Package ledger derives storage usage from stock records. The cached
// current_usage_kg column on storage locations is only ever written from here.
package ledger

import (
	"sort"

	"fishfarm-backend/internal/models"
)

type SizeAggregate struct {
	SizeClass int     `json:"size_class"`
	Records   int     `json:"records"`
	Pieces    int     `json:"pieces"`
	WeightKg  float64 `json:"weight_kg"`
}

// Usage is the aggregate of the active stock records held by one location.
type Usage struct {
	LocationID string          `json:"location_id"`
	Grams      int64           `json:"-"`
	Records    int             `json:"records"`
	Pieces     int             `json:"pieces"`
	BySize     []SizeAggregate `json:"by_size"`
}

func (u Usage) Kg() float64 {
	return GramsToKg(u.Grams)
}

func GramsToKg(g int64) float64 {
	return float64(g) / 1000
}

// Aggregate groups active records by storage location. Records without a
// location are collected under the empty key.
func Aggregate(records []models.StockRecord) map[string]Usage {
	type acc struct {
		usage  Usage
		grams  map[int]int64
		bySize map[int]*SizeAggregate
	}
	accs := make(map[string]*acc)

	for _, r := range records {
		if !r.IsActive() {
			continue
		}
		key := ""
		if r.StorageLocationID != nil {
			key = *r.StorageLocationID
		}
		a, ok := accs[key]
		if !ok {
			a = &acc{
				usage:  Usage{LocationID: key},
				grams:  make(map[int]int64),
				bySize: make(map[int]*SizeAggregate),
			}
			accs[key] = a
		}
		a.usage.Grams += r.RemainingWeightGrams
		a.usage.Records++
		a.usage.Pieces += r.RemainingPieces

		s, ok := a.bySize[r.SizeClass]
		if !ok {
			s = &SizeAggregate{SizeClass: r.SizeClass}
			a.bySize[r.SizeClass] = s
		}
		s.Records++
		s.Pieces += r.RemainingPieces
		a.grams[r.SizeClass] += r.RemainingWeightGrams
	}

	out := make(map[string]Usage, len(accs))
	for key, a := range accs {
		sizes := make([]SizeAggregate, 0, len(a.bySize))
		for class, s := range a.bySize {
			s.WeightKg = GramsToKg(a.grams[class])
			sizes = append(sizes, *s)
		}
		sort.Slice(sizes, func(i, j int) bool { return sizes[i].SizeClass < sizes[j].SizeClass })
		a.usage.BySize = sizes
		out[key] = a.usage
	}
	return out
}

// UtilizationPercent is usage/capacity*100, and 0 for a zero capacity.
func UtilizationPercent(usageKg, capacityKg float64) float64 {
	if capacityKg <= 0 {
		return 0
	}
	return usageKg / capacityKg * 100
}
