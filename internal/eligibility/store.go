package eligibility

import (
	"fmt"

	"fishfarm-backend/internal/ledger"
	"fishfarm-backend/internal/models"

	"gorm.io/gorm"
)

// LoadInputs reads available stock records with their batches and every storage
// location, usage recomputed from stock. With ids set only those records are
// loaded; over-capacity still accounts for all stock at each location.
func LoadInputs(tx *gorm.DB, ids ...string) (Inputs, error) {
	q := tx.Where("status = ?", models.StockAvailable)
	if len(ids) > 0 {
		q = q.Where("id IN ?", ids)
	}
	var records []models.StockRecord
	if err := q.Order("id").Find(&records).Error; err != nil {
		return Inputs{}, fmt.Errorf("load stock records: %w", err)
	}

	batchIDs := make([]string, 0, len(records))
	seen := make(map[string]bool)
	for _, r := range records {
		if !seen[r.BatchID] {
			seen[r.BatchID] = true
			batchIDs = append(batchIDs, r.BatchID)
		}
	}
	batches := make(map[string]models.SortingBatch, len(batchIDs))
	if len(batchIDs) > 0 {
		var rows []models.SortingBatch
		if err := tx.Where("id IN ?", batchIDs).Find(&rows).Error; err != nil {
			return Inputs{}, fmt.Errorf("load sorting batches: %w", err)
		}
		for _, b := range rows {
			batches[b.ID] = b
		}
	}

	var locs []models.StorageLocation
	if err := tx.Find(&locs).Error; err != nil {
		return Inputs{}, fmt.Errorf("load storage locations: %w", err)
	}
	usage, err := ledger.UsageByLocation(tx)
	if err != nil {
		return Inputs{}, err
	}
	locations := make(map[string]Location, len(locs))
	for _, l := range locs {
		locations[l.ID] = Location{
			ID:         l.ID,
			Name:       l.Name,
			Status:     l.Status,
			CapacityKg: l.CapacityKg,
			UsageKg:    ledger.GramsToKg(usage[l.ID]),
		}
	}

	return Inputs{Records: records, Batches: batches, Locations: locations}, nil
}
