package ledger

import (
	"context"
	"fmt"
	"time"

	"fishfarm-backend/internal/apperr"
	"fishfarm-backend/internal/audit"
	"fishfarm-backend/internal/database"
	"fishfarm-backend/internal/models"
	"fishfarm-backend/internal/sizing"

	"gorm.io/gorm"
)

type CreateBatchRequest struct {
	BatchNumber    string     `json:"batch_number"`
	FarmerName     string     `json:"farmer_name"`
	ProcessingDate *time.Time `json:"processing_date"`
}

func (l *Ledger) CreateBatch(ctx context.Context, req CreateBatchRequest, userID string) (models.SortingBatch, error) {
	if req.BatchNumber == "" {
		return models.SortingBatch{}, apperr.Validation("batch_number is required")
	}
	batch := models.SortingBatch{
		BatchNumber:    req.BatchNumber,
		FarmerName:     req.FarmerName,
		ProcessingDate: req.ProcessingDate,
	}
	err := database.RunInTransaction(ctx, l.db, l.retry, func(tx *gorm.DB) error {
		if err := tx.Create(&batch).Error; err != nil {
			return err
		}
		return audit.WriteLog(tx, audit.LogOptions{
			UserID:      userID,
			EntityType:  "sorting_batch",
			EntityID:    batch.ID,
			Action:      models.AuditActionCreate,
			Description: fmt.Sprintf("Sorting batch %s (%s)", batch.BatchNumber, batch.FarmerName),
			After:       batch,
		})
	})
	return batch, err
}

type IntakeRequest struct {
	BatchID           string  `json:"batch_id"`
	StorageLocationID *string `json:"storage_location_id"`
	SizeClass         *int    `json:"size_class"`
	TotalPieces       int     `json:"total_pieces"`
	TotalWeightGrams  int64   `json:"total_weight_grams"`
}

// Intake stores a stock record produced by a completed sorting batch. The size
// class is derived from the unit weight when the caller leaves it out.
func (l *Ledger) Intake(ctx context.Context, classifier *sizing.Classifier, req IntakeRequest, userID string) (models.StockRecord, error) {
	if req.BatchID == "" {
		return models.StockRecord{}, apperr.Validation("batch_id is required")
	}
	if req.TotalPieces < 0 || req.TotalWeightGrams < 0 {
		return models.StockRecord{}, apperr.Validation("total_pieces and total_weight_grams must not be negative")
	}

	sizeClass := 0
	switch {
	case req.SizeClass != nil:
		if *req.SizeClass < sizing.MinClass || *req.SizeClass > sizing.MaxClass {
			return models.StockRecord{}, apperr.Validation("size_class must be between %d and %d", sizing.MinClass, sizing.MaxClass)
		}
		sizeClass = *req.SizeClass
	case req.TotalPieces == 0:
		return models.StockRecord{}, apperr.Validation("size_class is required when total_pieces is 0")
	default:
		class, err := classifier.Classify(sizing.UnitWeight(float64(req.TotalWeightGrams), req.TotalPieces))
		if err != nil {
			return models.StockRecord{}, err
		}
		sizeClass = class
	}

	rec := models.StockRecord{
		SizeClass:            sizeClass,
		TotalPieces:          req.TotalPieces,
		TotalWeightGrams:     req.TotalWeightGrams,
		RemainingPieces:      req.TotalPieces,
		RemainingWeightGrams: req.TotalWeightGrams,
		StorageLocationID:    req.StorageLocationID,
		BatchID:              req.BatchID,
		Status:               models.StockAvailable,
	}

	err := database.RunInTransaction(ctx, l.db, l.retry, func(tx *gorm.DB) error {
		var batchCount int64
		if err := tx.Model(&models.SortingBatch{}).Where("id = ?", req.BatchID).Count(&batchCount).Error; err != nil {
			return err
		}
		if batchCount == 0 {
			return apperr.NotFound("sorting batch", req.BatchID)
		}
		if req.StorageLocationID != nil {
			var locCount int64
			if err := tx.Model(&models.StorageLocation{}).Where("id = ?", *req.StorageLocationID).Count(&locCount).Error; err != nil {
				return err
			}
			if locCount == 0 {
				return apperr.NotFound("storage location", *req.StorageLocationID)
			}
		}

		rec.ID = ""
		if err := tx.Create(&rec).Error; err != nil {
			return err
		}
		if err := Reconcile(tx, LocationIDs(rec)...); err != nil {
			return err
		}
		return audit.WriteLog(tx, audit.LogOptions{
			UserID:      userID,
			EntityType:  "stock_record",
			EntityID:    rec.ID,
			Action:      models.AuditActionCreate,
			Description: fmt.Sprintf("Stock intake: size %d, %d pcs, %d g", rec.SizeClass, rec.TotalPieces, rec.TotalWeightGrams),
			After:       rec,
		})
	})
	return rec, err
}

type StockFilter struct {
	Status            *models.StockStatus
	StorageLocationID string
	SizeClass         *int
	BatchID           string
}

func (l *Ledger) ListStock(ctx context.Context, f StockFilter) ([]models.StockRecord, error) {
	q := l.db.WithContext(ctx).Model(&models.StockRecord{})
	if f.Status != nil {
		q = q.Where("status = ?", *f.Status)
	}
	if f.StorageLocationID != "" {
		q = q.Where("storage_location_id = ?", f.StorageLocationID)
	}
	if f.SizeClass != nil {
		q = q.Where("size_class = ?", *f.SizeClass)
	}
	if f.BatchID != "" {
		q = q.Where("batch_id = ?", f.BatchID)
	}
	var records []models.StockRecord
	if err := q.Order("created_at DESC").Find(&records).Error; err != nil {
		return nil, database.Classify(err)
	}
	return records, nil
}
