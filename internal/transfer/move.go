package transfer

import (
	"fmt"

	"fishfarm-backend/internal/apperr"
	"fishfarm-backend/internal/models"

	"gorm.io/gorm"
)

// Moved is what one transfer member took out of the source location.
type Moved struct {
	TransferID  string `json:"transfer_id"`
	SizeClass   int    `json:"size_class"`
	Pieces      int    `json:"pieces"`
	WeightGrams int64  `json:"weight_grams"`
	Records     int    `json:"records"`
}

// moveStock relocates quantity pieces of one size class from one location to
// another, oldest records first. A record taken whole is re-pointed at the
// destination; a partial take is split off into a new record there. Weight
// follows the pieces at the source record's remaining unit weight.
func moveStock(tx *gorm.DB, m models.TransferRecord) (Moved, error) {
	out := Moved{TransferID: m.ID, SizeClass: m.SizeClass}

	var records []models.StockRecord
	err := tx.Where("storage_location_id = ? AND size_class = ? AND status = ? AND remaining_pieces > 0",
		m.FromStorageID, m.SizeClass, models.StockAvailable).
		Order("created_at, id").
		Find(&records).Error
	if err != nil {
		return out, fmt.Errorf("load stock for transfer %s: %w", m.ID, err)
	}

	held := 0
	for _, r := range records {
		held += r.RemainingPieces
	}
	if held < m.Quantity {
		return out, apperr.Conflict("location %s holds %d pcs of size %d, transfer %s needs %d",
			m.FromStorageID, held, m.SizeClass, m.ID, m.Quantity)
	}

	need := m.Quantity
	for _, r := range records {
		if need == 0 {
			break
		}
		take := min(need, r.RemainingPieces)
		grams := r.RemainingWeightGrams
		if take < r.RemainingPieces {
			grams = r.RemainingWeightGrams * int64(take) / int64(r.RemainingPieces)
		}

		guard := tx.Model(&models.StockRecord{}).
			Where("id = ? AND status = ? AND storage_location_id = ? AND remaining_pieces = ?",
				r.ID, models.StockAvailable, m.FromStorageID, r.RemainingPieces)

		var res *gorm.DB
		if take == r.RemainingPieces {
			res = guard.Update("storage_location_id", m.ToStorageID)
		} else {
			res = guard.Updates(map[string]any{
				"remaining_pieces":       r.RemainingPieces - take,
				"remaining_weight_grams": r.RemainingWeightGrams - grams,
			})
		}
		if res.Error != nil {
			return out, res.Error
		}
		if res.RowsAffected == 0 {
			return out, apperr.Conflict("stock record %s was changed by another request", r.ID)
		}

		if take < r.RemainingPieces {
			to := m.ToStorageID
			split := models.StockRecord{
				SizeClass:            r.SizeClass,
				TotalPieces:          take,
				TotalWeightGrams:     grams,
				RemainingPieces:      take,
				RemainingWeightGrams: grams,
				StorageLocationID:    &to,
				BatchID:              r.BatchID,
				Status:               models.StockAvailable,
			}
			if err := tx.Create(&split).Error; err != nil {
				return out, fmt.Errorf("split stock record %s: %w", r.ID, err)
			}
		}

		need -= take
		out.Pieces += take
		out.WeightGrams += grams
		out.Records++
	}
	return out, nil
}
