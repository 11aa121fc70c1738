package ledger

import (
	"context"
	"fmt"
	"math"
	"sort"

	"fishfarm-backend/internal/apperr"
	"fishfarm-backend/internal/audit"
	"fishfarm-backend/internal/database"
	"fishfarm-backend/internal/logger"
	"fishfarm-backend/internal/models"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

// driftToleranceKg is the largest cache difference reported as "in sync".
const driftToleranceKg = 0.0005

type Ledger struct {
	db    *gorm.DB
	retry database.RetryPolicy
}

func New(db *gorm.DB, retry database.RetryPolicy) *Ledger {
	return &Ledger{db: db, retry: retry}
}

// Summary is a storage location with usage recomputed from stock records.
type Summary struct {
	ID                 string               `json:"id"`
	Name               string               `json:"name"`
	Status             models.StorageStatus `json:"status"`
	CapacityKg         float64              `json:"capacity_kg"`
	UsageKg            float64              `json:"current_usage_kg"`
	UtilizationPercent float64              `json:"utilization_percent"`
	OverCapacity       bool                 `json:"over_capacity"`
	CachedUsageKg      float64              `json:"cached_usage_kg"`
	CacheInSync        bool                 `json:"cache_in_sync"`
	Records            int                  `json:"records"`
	Pieces             int                  `json:"pieces"`
	BySize             []SizeAggregate      `json:"by_size"`
	TemperatureC       *float64             `json:"temperature_c"`
	OxygenMgL          *float64             `json:"oxygen_mg_l"`
}

func summarize(loc models.StorageLocation, u Usage) Summary {
	usageKg := u.Kg()
	bySize := u.BySize
	if bySize == nil {
		bySize = []SizeAggregate{}
	}
	return Summary{
		ID:                 loc.ID,
		Name:               loc.Name,
		Status:             loc.Status,
		CapacityKg:         loc.CapacityKg,
		UsageKg:            usageKg,
		UtilizationPercent: UtilizationPercent(usageKg, loc.CapacityKg),
		OverCapacity:       usageKg > loc.CapacityKg,
		CachedUsageKg:      loc.CurrentUsageKg,
		CacheInSync:        math.Abs(loc.CurrentUsageKg-usageKg) <= driftToleranceKg,
		Records:            u.Records,
		Pieces:             u.Pieces,
		BySize:             bySize,
		TemperatureC:       loc.TemperatureC,
		OxygenMgL:          loc.OxygenMgL,
	}
}

// UsageGrams sums the remaining weight of available records at a location.
func UsageGrams(tx *gorm.DB, locationID string) (int64, error) {
	var grams int64
	err := tx.Model(&models.StockRecord{}).
		Select("COALESCE(SUM(remaining_weight_grams), 0)").
		Where("storage_location_id = ? AND status = ?", locationID, models.StockAvailable).
		Scan(&grams).Error
	if err != nil {
		return 0, fmt.Errorf("sum usage for %s: %w", locationID, err)
	}
	return grams, nil
}

// Reconcile rewrites the cached usage of the given locations from their stock
// records. Unknown or empty ids are skipped. Call it inside the transaction that
// moved the weight.
func Reconcile(tx *gorm.DB, locationIDs ...string) error {
	seen := make(map[string]bool, len(locationIDs))
	for _, id := range locationIDs {
		if id == "" || seen[id] {
			continue
		}
		seen[id] = true

		grams, err := UsageGrams(tx, id)
		if err != nil {
			return err
		}
		if err := tx.Model(&models.StorageLocation{}).
			Where("id = ?", id).
			UpdateColumn("current_usage_kg", GramsToKg(grams)).Error; err != nil {
			return fmt.Errorf("update usage cache for %s: %w", id, err)
		}
	}
	return nil
}

// LocationIDs collects the non-nil storage references of records.
func LocationIDs(records ...models.StockRecord) []string {
	ids := make([]string, 0, len(records))
	for _, r := range records {
		if r.StorageLocationID != nil {
			ids = append(ids, *r.StorageLocationID)
		}
	}
	return ids
}

// Usage returns the recomputed usage in kg of one location.
func (l *Ledger) Usage(ctx context.Context, locationID string) (float64, error) {
	db := l.db.WithContext(ctx)
	var loc models.StorageLocation
	if err := db.First(&loc, "id = ?", locationID).Error; err != nil {
		if database.IsNotFound(err) {
			return 0, apperr.NotFound("storage location", locationID)
		}
		return 0, database.Classify(err)
	}
	grams, err := UsageGrams(db, locationID)
	if err != nil {
		return 0, database.Classify(err)
	}
	return GramsToKg(grams), nil
}

func (l *Ledger) Summaries(ctx context.Context) ([]Summary, error) {
	db := l.db.WithContext(ctx)

	var locations []models.StorageLocation
	if err := db.Order("name").Find(&locations).Error; err != nil {
		return nil, database.Classify(err)
	}
	var records []models.StockRecord
	if err := db.Where("status = ? AND storage_location_id IS NOT NULL", models.StockAvailable).Find(&records).Error; err != nil {
		return nil, database.Classify(err)
	}

	usage := Aggregate(records)
	out := make([]Summary, 0, len(locations))
	for _, loc := range locations {
		out = append(out, summarize(loc, usage[loc.ID]))
	}
	return out, nil
}

func (l *Ledger) Summary(ctx context.Context, id string) (Summary, error) {
	db := l.db.WithContext(ctx)

	var loc models.StorageLocation
	if err := db.First(&loc, "id = ?", id).Error; err != nil {
		if database.IsNotFound(err) {
			return Summary{}, apperr.NotFound("storage location", id)
		}
		return Summary{}, database.Classify(err)
	}
	var records []models.StockRecord
	if err := db.Where("status = ? AND storage_location_id = ?", models.StockAvailable, id).Find(&records).Error; err != nil {
		return Summary{}, database.Classify(err)
	}
	return summarize(loc, Aggregate(records)[id]), nil
}

// ReconcileAll rewrites every location's cached usage and returns how many
// caches had drifted.
func (l *Ledger) ReconcileAll(ctx context.Context) (int, error) {
	drifted := 0
	err := database.RunInTransaction(ctx, l.db, l.retry, func(tx *gorm.DB) error {
		drifted = 0
		var locations []models.StorageLocation
		if err := tx.Find(&locations).Error; err != nil {
			return err
		}
		ids := make([]string, 0, len(locations))
		for _, loc := range locations {
			grams, err := UsageGrams(tx, loc.ID)
			if err != nil {
				return err
			}
			if math.Abs(loc.CurrentUsageKg-GramsToKg(grams)) > driftToleranceKg {
				drifted++
				logger.L().Warn("storage usage cache drifted",
					zap.String("location_id", loc.ID),
					zap.Float64("cached_kg", loc.CurrentUsageKg),
					zap.Float64("actual_kg", GramsToKg(grams)),
				)
			}
			ids = append(ids, loc.ID)
		}
		return Reconcile(tx, ids...)
	})
	return drifted, err
}

type CreateLocationRequest struct {
	Name         string               `json:"name"`
	CapacityKg   float64              `json:"capacity_kg"`
	Status       models.StorageStatus `json:"status"`
	TemperatureC *float64             `json:"temperature_c"`
	OxygenMgL    *float64             `json:"oxygen_mg_l"`
}

func (l *Ledger) CreateLocation(ctx context.Context, req CreateLocationRequest, userID string) (models.StorageLocation, error) {
	if req.Name == "" {
		return models.StorageLocation{}, apperr.Validation("name is required")
	}
	if req.CapacityKg < 0 {
		return models.StorageLocation{}, apperr.Validation("capacity_kg must not be negative")
	}
	if req.Status == "" {
		req.Status = models.StorageActive
	}
	if !req.Status.Valid() {
		return models.StorageLocation{}, apperr.Validation("status must be active, maintenance or inactive")
	}

	loc := models.StorageLocation{
		Name:         req.Name,
		CapacityKg:   req.CapacityKg,
		Status:       req.Status,
		TemperatureC: req.TemperatureC,
		OxygenMgL:    req.OxygenMgL,
	}
	err := database.RunInTransaction(ctx, l.db, l.retry, func(tx *gorm.DB) error {
		if err := tx.Create(&loc).Error; err != nil {
			return err
		}
		return audit.WriteLog(tx, audit.LogOptions{
			UserID:      userID,
			EntityType:  "storage_location",
			EntityID:    loc.ID,
			Action:      models.AuditActionCreate,
			Description: fmt.Sprintf("Storage location created: %s (%.1f kg)", loc.Name, loc.CapacityKg),
			After:       loc,
		})
	})
	return loc, err
}

// SetStatus changes the operational status of a location.
func (l *Ledger) SetStatus(ctx context.Context, id string, status models.StorageStatus, userID string) (models.StorageLocation, error) {
	if !status.Valid() {
		return models.StorageLocation{}, apperr.Validation("status must be active, maintenance or inactive")
	}
	var loc models.StorageLocation
	err := database.RunInTransaction(ctx, l.db, l.retry, func(tx *gorm.DB) error {
		if err := tx.First(&loc, "id = ?", id).Error; err != nil {
			if database.IsNotFound(err) {
				return apperr.NotFound("storage location", id)
			}
			return err
		}
		before := loc
		if err := tx.Model(&loc).Update("status", status).Error; err != nil {
			return err
		}
		loc.Status = status
		return audit.WriteLog(tx, audit.LogOptions{
			UserID:      userID,
			EntityType:  "storage_location",
			EntityID:    loc.ID,
			Action:      models.AuditActionUpdate,
			Description: fmt.Sprintf("Storage %s status %s -> %s", loc.Name, before.Status, status),
			Before:      before,
			After:       loc,
		})
	})
	return loc, err
}

// SortSummariesByUtilization orders fullest locations first.
func SortSummariesByUtilization(s []Summary) {
	sort.SliceStable(s, func(i, j int) bool {
		return s[i].UtilizationPercent > s[j].UtilizationPercent
	})
}

// UsageByLocation sums remaining weight of available records per location in
// a single query.
func UsageByLocation(tx *gorm.DB) (map[string]int64, error) {
	type row struct {
		StorageLocationID string
		Grams             int64
	}
	var rows []row
	err := tx.Model(&models.StockRecord{}).
		Select("storage_location_id, COALESCE(SUM(remaining_weight_grams), 0) AS grams").
		Where("status = ? AND storage_location_id IS NOT NULL", models.StockAvailable).
		Group("storage_location_id").
		Scan(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("sum usage by location: %w", err)
	}
	out := make(map[string]int64, len(rows))
	for _, r := range rows {
		out[r.StorageLocationID] = r.Grams
	}
	return out, nil
}
