// Package dispatch allocates stock to outlet orders and commits the pick as an
// immutable dispatch record.
package dispatch

import (
	"math"
	"sort"

	"fishfarm-backend/internal/apperr"
	"fishfarm-backend/internal/models"
	"fishfarm-backend/internal/sizing"

	"github.com/shopspring/decimal"
)

type Selection struct {
	StockRecordID string `json:"stock_record_id"`
	Quantity      int    `json:"quantity"`
}

// Line is the pick against one stock record.
type Line struct {
	StockRecordID   string  `json:"stock_record_id"`
	SizeClass       int     `json:"size_class"`
	Quantity        int     `json:"quantity"`
	UnitWeightGrams float64 `json:"unit_weight_grams"`
	WeightGrams     float64 `json:"weight_grams"`

	// State of the record after the pick.
	PiecesBefore         int   `json:"-"`
	RemainingPieces      int   `json:"remaining_pieces"`
	RemainingWeightGrams int64 `json:"remaining_weight_grams"`
	Consumed             bool  `json:"consumed"`
}

type PickResult struct {
	Lines         []Line          `json:"lines"`
	TotalPieces   int             `json:"total_pieces"`
	TotalWeightKg decimal.Decimal `json:"total_weight"`
	SizeBreakdown map[int]int     `json:"size_breakdown"`
}

func (r PickResult) FishIDs() []string {
	ids := make([]string, len(r.Lines))
	for i, l := range r.Lines {
		ids[i] = l.StockRecordID
	}
	return ids
}

// Pick checks selections against order and records and computes the result.
// Selections naming the same record are summed. Picked weight uses each
// record's own unit weight (total weight / total pieces at sorting).
func Pick(order models.OutletOrder, records map[string]models.StockRecord, selections []Selection) (PickResult, error) {
	if order.Status != models.OrderConfirmed {
		return PickResult{}, apperr.Conflict("order %s is %s, only confirmed orders can be dispatched", order.ID, order.Status)
	}
	if len(selections) == 0 {
		return PickResult{}, apperr.Validation("select at least one stock record")
	}

	qty := make(map[string]int, len(selections))
	ids := make([]string, 0, len(selections))
	for _, s := range selections {
		if s.StockRecordID == "" {
			return PickResult{}, apperr.Validation("stock_record_id is required")
		}
		if s.Quantity <= 0 {
			return PickResult{}, apperr.Validation("quantity for %s must be positive", s.StockRecordID)
		}
		if _, ok := qty[s.StockRecordID]; !ok {
			ids = append(ids, s.StockRecordID)
		}
		qty[s.StockRecordID] += s.Quantity
	}

	requested := order.RequestedBySize()
	result := PickResult{SizeBreakdown: make(map[int]int)}
	var grams float64

	for _, id := range ids {
		rec, ok := records[id]
		if !ok {
			return PickResult{}, apperr.NotFound("stock record", id)
		}
		if rec.Status != models.StockAvailable {
			return PickResult{}, apperr.Conflict("stock record %s is %s", id, rec.Status)
		}
		if _, ok := requested[rec.SizeClass]; !ok {
			return PickResult{}, apperr.Validation("order does not request size class %d (stock record %s)", rec.SizeClass, id)
		}
		q := qty[id]
		if q > rec.RemainingPieces {
			return PickResult{}, &apperr.CapacityError{StockRecordID: id, Requested: q, Available: rec.RemainingPieces}
		}

		unit := sizing.UnitWeight(float64(rec.TotalWeightGrams), rec.TotalPieces)
		weight := float64(q) * unit
		line := Line{
			StockRecordID:   id,
			SizeClass:       rec.SizeClass,
			Quantity:        q,
			UnitWeightGrams: unit,
			WeightGrams:     weight,
			PiecesBefore:    rec.RemainingPieces,
			RemainingPieces: rec.RemainingPieces - q,
		}
		if line.RemainingPieces == 0 {
			line.Consumed = true
		} else {
			left := rec.RemainingWeightGrams - int64(math.Round(weight))
			if left < 0 {
				left = 0
			}
			line.RemainingWeightGrams = left
		}

		result.Lines = append(result.Lines, line)
		result.TotalPieces += q
		result.SizeBreakdown[rec.SizeClass] += q
		grams += weight
	}

	sizes := make([]int, 0, len(result.SizeBreakdown))
	for s := range result.SizeBreakdown {
		sizes = append(sizes, s)
	}
	sort.Ints(sizes)
	for _, s := range sizes {
		if result.SizeBreakdown[s] > requested[s] {
			return PickResult{}, apperr.Validation("size class %d: %d pieces picked, %d requested", s, result.SizeBreakdown[s], requested[s])
		}
	}

	result.TotalWeightKg = decimal.NewFromFloat(grams).Div(decimal.NewFromInt(1000)).Round(3)
	return result, nil
}
