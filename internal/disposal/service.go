// Package disposal turns eligible stock into disposal records and runs their
// approval workflow.
package disposal

import (
	"context"
	"errors"
	"fmt"
	"time"

	"fishfarm-backend/internal/apperr"
	"fishfarm-backend/internal/audit"
	"fishfarm-backend/internal/database"
	"fishfarm-backend/internal/eligibility"
	"fishfarm-backend/internal/ledger"
	"fishfarm-backend/internal/logger"
	"fishfarm-backend/internal/metrics"
	"fishfarm-backend/internal/models"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const (
	sequencePrefix  = "DSP-"
	sequencePadding = 6
)

type Service struct {
	db    *gorm.DB
	retry database.RetryPolicy
	// Now is the clock used for ages and timestamps.
	Now func() time.Time
}

func NewService(db *gorm.DB, retry database.RetryPolicy) *Service {
	return &Service{db: db, retry: retry, Now: time.Now}
}

// Candidates evaluates every available stock record against p.
func (s *Service) Candidates(ctx context.Context, p eligibility.Policy) ([]eligibility.Candidate, error) {
	if err := p.Validate(s.Now().Location()); err != nil {
		return nil, err
	}
	in, err := eligibility.LoadInputs(s.db.WithContext(ctx))
	if err != nil {
		return nil, database.Classify(err)
	}
	cs := eligibility.Evaluate(p, in, s.Now())
	metrics.EligibleCandidates.Observe(float64(len(cs)))
	return cs, nil
}

type CreateRequest struct {
	StockRecordIDs []string              `json:"stock_record_ids"`
	Method         models.DisposalMethod `json:"method"`
	Cost           decimal.Decimal       `json:"cost"`
	Notes          string                `json:"notes"`
	ReasonID       *uint                 `json:"reason_id"`
	DisposalDate   *time.Time            `json:"disposal_date"`
	Policy         eligibility.Policy    `json:"policy"`
}

func (r CreateRequest) validate(loc *time.Location) error {
	if len(r.StockRecordIDs) == 0 {
		return apperr.Validation("select at least one stock record to dispose")
	}
	seen := make(map[string]bool, len(r.StockRecordIDs))
	for _, id := range r.StockRecordIDs {
		if id == "" {
			return apperr.Validation("stock record id must not be empty")
		}
		if seen[id] {
			return apperr.Validation("stock record %s selected twice", id)
		}
		seen[id] = true
	}
	if !r.Method.Valid() {
		return apperr.Validation("method must be waste, compost, donation or return_to_farmer")
	}
	if r.Cost.IsNegative() {
		return apperr.Validation("cost must not be negative")
	}
	return r.Policy.Validate(loc)
}

// Create re-checks every selected record against the policy and, in one
// transaction, writes the disposal record with its item snapshots, flips the
// records to disposed and refreshes the affected locations' usage.
func (s *Service) Create(ctx context.Context, req CreateRequest, userID string) (models.DisposalRecord, error) {
	if err := req.validate(s.Now().Location()); err != nil {
		return models.DisposalRecord{}, err
	}

	var rec models.DisposalRecord
	err := database.RunInTransaction(ctx, s.db, s.retry, func(tx *gorm.DB) error {
		now := s.Now()
		in, err := eligibility.LoadInputs(tx, req.StockRecordIDs...)
		if err != nil {
			return err
		}
		if err := checkAllLoaded(tx, req.StockRecordIDs, in.Records); err != nil {
			return err
		}

		candidates := make([]eligibility.Candidate, 0, len(in.Records))
		for _, r := range in.Records {
			c, ok := eligibility.EvaluateOne(req.Policy, in, r, now)
			if !ok {
				return apperr.Conflict("stock record %s is not eligible for disposal under the selected policy", r.ID)
			}
			candidates = append(candidates, c)
		}

		reason, err := resolveReason(tx, req.ReasonID, candidates)
		if err != nil {
			return err
		}
		seq, err := database.NextSequence(tx, database.SequenceDisposal, sequencePrefix, sequencePadding)
		if err != nil {
			return err
		}

		disposalDate := now
		if req.DisposalDate != nil {
			disposalDate = *req.DisposalDate
		}
		rec = models.DisposalRecord{
			SequenceNumber: seq,
			ReasonID:       reason.ID,
			Method:         req.Method,
			DisposalCost:   req.Cost.Round(2),
			Status:         models.DisposalPending,
			Notes:          req.Notes,
			DisposalDate:   disposalDate,
			CreatedBy:      userID,
			Items:          make([]models.DisposalItem, 0, len(candidates)),
		}
		var grams int64
		for _, c := range candidates {
			grams += c.WeightGrams
			rec.TotalPieces += c.Pieces
			rec.Items = append(rec.Items, itemFromCandidate(c))
		}
		rec.TotalWeightKg = decimal.New(grams, -3)

		if err := tx.Omit("Reason").Create(&rec).Error; err != nil {
			return fmt.Errorf("create disposal record: %w", err)
		}
		rec.Reason = reason

		for _, r := range in.Records {
			res := tx.Model(&models.StockRecord{}).
				Where("id = ? AND status = ?", r.ID, models.StockAvailable).
				Update("status", models.StockDisposed)
			if res.Error != nil {
				return res.Error
			}
			if res.RowsAffected == 0 {
				return apperr.Conflict("stock record %s was taken by another operation", r.ID)
			}
		}
		if err := ledger.Reconcile(tx, ledger.LocationIDs(in.Records...)...); err != nil {
			return err
		}

		return audit.WriteLog(tx, audit.LogOptions{
			UserID:      userID,
			EntityType:  "disposal",
			EntityID:    rec.ID,
			Action:      models.AuditActionCreate,
			Description: fmt.Sprintf("Disposal %s: %d records, %s kg, %s (%s)", rec.SequenceNumber, len(rec.Items), rec.TotalWeightKg.StringFixed(3), rec.Method, reason.Name),
			After:       rec,
		})
	})
	if err != nil {
		countConflict("disposal_create", err)
		return models.DisposalRecord{}, err
	}

	metrics.DisposalsCreated.WithLabelValues(string(rec.Method)).Inc()
	metrics.DisposedWeightKg.Add(rec.TotalWeightKg.InexactFloat64())
	logger.L().Info("disposal created",
		zap.String("sequence", rec.SequenceNumber),
		zap.Int("items", len(rec.Items)),
		zap.String("weight_kg", rec.TotalWeightKg.StringFixed(3)),
	)
	return rec, nil
}

// checkAllLoaded explains why a selected id is missing from the available set.
func checkAllLoaded(tx *gorm.DB, ids []string, loaded []models.StockRecord) error {
	if len(loaded) == len(ids) {
		return nil
	}
	have := make(map[string]bool, len(loaded))
	for _, r := range loaded {
		have[r.ID] = true
	}
	for _, id := range ids {
		if have[id] {
			continue
		}
		var r models.StockRecord
		if err := tx.Select("id", "status").First(&r, "id = ?", id).Error; err != nil {
			if database.IsNotFound(err) {
				return apperr.NotFound("stock record", id)
			}
			return err
		}
		return apperr.Conflict("stock record %s is %s", id, r.Status)
	}
	return nil
}

// resolveReason uses the explicit reason when given, else the highest-priority
// reason among the candidates.
func resolveReason(tx *gorm.DB, reasonID *uint, cs []eligibility.Candidate) (models.DisposalReason, error) {
	var reason models.DisposalReason
	if reasonID != nil {
		if err := tx.First(&reason, *reasonID).Error; err != nil {
			if database.IsNotFound(err) {
				return reason, apperr.NotFound("disposal reason", fmt.Sprint(*reasonID))
			}
			return reason, err
		}
		return reason, nil
	}

	best := models.ReasonManual
	for _, c := range cs {
		if c.Reason.Rank() < best.Rank() {
			best = c.Reason
		}
	}
	if err := tx.First(&reason, "code = ?", best).Error; err != nil {
		if database.IsNotFound(err) {
			return reason, apperr.NotFound("disposal reason", string(best))
		}
		return reason, err
	}
	return reason, nil
}

func itemFromCandidate(c eligibility.Candidate) models.DisposalItem {
	return models.DisposalItem{
		StockRecordID:       c.StockRecordID,
		SizeClass:           c.SizeClass,
		Pieces:              c.Pieces,
		WeightGrams:         c.WeightGrams,
		BatchID:             c.BatchID,
		BatchNumber:         c.BatchNumber,
		StorageLocationID:   c.StorageLocationID,
		StorageLocationName: c.StorageLocationName,
		FarmerName:          c.FarmerName,
		DaysInStorage:       c.DaysInStorage,
		EligibilityReason:   c.Reason,
	}
}

type ListFilter struct {
	Status *models.DisposalStatus
	From   *time.Time
	To     *time.Time
}

func (s *Service) List(ctx context.Context, f ListFilter) ([]models.DisposalRecord, error) {
	q := s.db.WithContext(ctx).Preload("Reason")
	if f.Status != nil {
		q = q.Where("status = ?", *f.Status)
	}
	if f.From != nil {
		q = q.Where("disposal_date >= ?", *f.From)
	}
	if f.To != nil {
		q = q.Where("disposal_date < ?", f.To.AddDate(0, 0, 1))
	}
	var out []models.DisposalRecord
	if err := q.Order("disposal_date DESC, sequence_number DESC").Find(&out).Error; err != nil {
		return nil, database.Classify(err)
	}
	return out, nil
}

func (s *Service) Get(ctx context.Context, id string) (models.DisposalRecord, error) {
	var rec models.DisposalRecord
	err := s.db.WithContext(ctx).
		Preload("Reason").
		Preload("Items", func(db *gorm.DB) *gorm.DB { return db.Order("size_class, stock_record_id") }).
		First(&rec, "id = ?", id).Error
	if err != nil {
		if database.IsNotFound(err) {
			return rec, apperr.NotFound("disposal", id)
		}
		return rec, database.Classify(err)
	}
	return rec, nil
}

// Approve moves a pending disposal to approved and records the approver.
func (s *Service) Approve(ctx context.Context, id, userID string) (models.DisposalRecord, error) {
	now := s.Now()
	return s.transition(ctx, id, userID, models.AuditActionApprove,
		[]models.DisposalStatus{models.DisposalPending},
		map[string]any{"status": models.DisposalApproved, "approved_by": userID, "approved_at": now},
		nil)
}

// Complete moves an approved disposal to completed.
func (s *Service) Complete(ctx context.Context, id, userID string) (models.DisposalRecord, error) {
	now := s.Now()
	return s.transition(ctx, id, userID, models.AuditActionUpdate,
		[]models.DisposalStatus{models.DisposalApproved},
		map[string]any{"status": models.DisposalCompleted, "completed_at": now},
		nil)
}

// Cancel voids a pending or approved disposal and returns its stock records to
// available.
func (s *Service) Cancel(ctx context.Context, id, userID string) (models.DisposalRecord, error) {
	now := s.Now()
	return s.transition(ctx, id, userID, models.AuditActionCancel,
		[]models.DisposalStatus{models.DisposalPending, models.DisposalApproved},
		map[string]any{"status": models.DisposalCancelled, "cancelled_at": now},
		restoreStock)
}

func restoreStock(tx *gorm.DB, rec models.DisposalRecord) error {
	ids := make([]string, 0, len(rec.Items))
	locations := make([]string, 0, len(rec.Items))
	for _, it := range rec.Items {
		ids = append(ids, it.StockRecordID)
		if it.StorageLocationID != nil {
			locations = append(locations, *it.StorageLocationID)
		}
	}
	for _, id := range ids {
		res := tx.Model(&models.StockRecord{}).
			Where("id = ? AND status = ?", id, models.StockDisposed).
			Update("status", models.StockAvailable)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return apperr.Conflict("stock record %s is no longer disposed", id)
		}
	}
	return ledger.Reconcile(tx, locations...)
}

func (s *Service) transition(
	ctx context.Context,
	id, userID string,
	action models.AuditAction,
	from []models.DisposalStatus,
	updates map[string]any,
	after func(tx *gorm.DB, rec models.DisposalRecord) error,
) (models.DisposalRecord, error) {
	var rec models.DisposalRecord
	err := database.RunInTransaction(ctx, s.db, s.retry, func(tx *gorm.DB) error {
		if err := tx.Preload("Items").Preload("Reason").First(&rec, "id = ?", id).Error; err != nil {
			if database.IsNotFound(err) {
				return apperr.NotFound("disposal", id)
			}
			return err
		}
		before := rec.Status

		res := tx.Model(&models.DisposalRecord{}).
			Where("id = ? AND status IN ?", id, from).
			Updates(updates)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return apperr.Conflict("disposal %s is %s", rec.SequenceNumber, rec.Status)
		}
		if after != nil {
			if err := after(tx, rec); err != nil {
				return err
			}
		}

		if err := tx.Preload("Items").Preload("Reason").First(&rec, "id = ?", id).Error; err != nil {
			return err
		}
		return audit.WriteLog(tx, audit.LogOptions{
			UserID:      userID,
			EntityType:  "disposal",
			EntityID:    rec.ID,
			Action:      action,
			Description: fmt.Sprintf("Disposal %s: %s -> %s", rec.SequenceNumber, before, rec.Status),
			After:       rec,
		})
	})
	if err != nil {
		countConflict("disposal_"+string(action), err)
		return models.DisposalRecord{}, err
	}
	return rec, nil
}

func countConflict(op string, err error) {
	var conflict *apperr.ConflictError
	if errors.As(err, &conflict) {
		metrics.Conflicts.WithLabelValues(op).Inc()
	}
}
