package transfer

import (
	"context"
	"errors"
	"fmt"
	"time"

	"fishfarm-backend/internal/apperr"
	"fishfarm-backend/internal/audit"
	"fishfarm-backend/internal/database"
	"fishfarm-backend/internal/ledger"
	"fishfarm-backend/internal/metrics"
	"fishfarm-backend/internal/models"
	"fishfarm-backend/internal/sizing"

	"gorm.io/gorm"
)

type Decision string

const (
	Approve Decision = "approve"
	Decline Decision = "decline"
)

func (d Decision) status() models.TransferStatus {
	if d == Approve {
		return models.TransferApproved
	}
	return models.TransferDeclined
}

func (d Decision) auditAction() models.AuditAction {
	if d == Approve {
		return models.AuditActionApprove
	}
	return models.AuditActionDecline
}

type Service struct {
	db    *gorm.DB
	retry database.RetryPolicy
	Now   func() time.Time
}

func NewService(db *gorm.DB, retry database.RetryPolicy) *Service {
	return &Service{db: db, retry: retry, Now: time.Now}
}

type ItemRequest struct {
	Size     int     `json:"size"`
	Quantity int     `json:"quantity"`
	WeightKg float64 `json:"weight_kg"`
}

type CreateRequest struct {
	From  string        `json:"from"`
	To    string        `json:"to"`
	Notes string        `json:"notes"`
	Items []ItemRequest `json:"items"`
}

func (r CreateRequest) validate() error {
	if r.From == "" || r.To == "" {
		return apperr.Validation("from and to are required")
	}
	if r.From == r.To {
		return apperr.Validation("source and destination must differ")
	}
	if len(r.Items) == 0 {
		return apperr.Validation("at least one size is required")
	}
	sizes := make(map[int]bool, len(r.Items))
	for _, it := range r.Items {
		if it.Size < sizing.MinClass || it.Size > sizing.MaxClass {
			return apperr.Validation("size must be between %d and %d", sizing.MinClass, sizing.MaxClass)
		}
		if sizes[it.Size] {
			return apperr.Validation("size %d listed twice", it.Size)
		}
		sizes[it.Size] = true
		if it.Quantity <= 0 {
			return apperr.Validation("quantity for size %d must be positive", it.Size)
		}
		if it.WeightKg < 0 {
			return apperr.Validation("weight_kg for size %d must not be negative", it.Size)
		}
	}
	return nil
}

// CreateBatch writes one record per size, all stamped with the same creation
// time so they read back as one batch.
func (s *Service) CreateBatch(ctx context.Context, req CreateRequest, userID string) (View, error) {
	if err := req.validate(); err != nil {
		return View{}, err
	}

	var records []models.TransferRecord
	err := database.RunInTransaction(ctx, s.db, s.retry, func(tx *gorm.DB) error {
		for _, id := range []string{req.From, req.To} {
			var n int64
			if err := tx.Model(&models.StorageLocation{}).Where("id = ?", id).Count(&n).Error; err != nil {
				return err
			}
			if n == 0 {
				return apperr.NotFound("storage location", id)
			}
		}

		createdAt := s.Now().UTC().Truncate(time.Microsecond)
		records = make([]models.TransferRecord, 0, len(req.Items))
		for _, it := range req.Items {
			records = append(records, models.TransferRecord{
				FromStorageID: req.From,
				ToStorageID:   req.To,
				SizeClass:     it.Size,
				Quantity:      it.Quantity,
				WeightKg:      it.WeightKg,
				Status:        models.TransferPending,
				Notes:         req.Notes,
				CreatedBy:     userID,
				CreatedAt:     createdAt,
			})
		}
		if err := tx.Create(&records).Error; err != nil {
			return fmt.Errorf("create transfers: %w", err)
		}

		view := Group(records)[0]
		return audit.WriteLog(tx, audit.LogOptions{
			UserID:      userID,
			EntityType:  "transfer",
			EntityID:    view.ID,
			Action:      models.AuditActionCreate,
			Description: fmt.Sprintf("Transfer of %d size(s), %d pcs", len(records), view.Quantity),
			After:       view,
		})
	})
	if err != nil {
		return View{}, err
	}
	return Group(records)[0], nil
}

// List returns grouped views, optionally only those with the given status.
func (s *Service) List(ctx context.Context, status *models.TransferStatus) ([]View, error) {
	q := s.db.WithContext(ctx)
	if status != nil {
		q = q.Where("status = ?", *status)
	}
	var records []models.TransferRecord
	if err := q.Order("created_at DESC, id").Find(&records).Error; err != nil {
		return nil, database.Classify(err)
	}
	return Group(records), nil
}

// Decide approves or declines the whole group that id belongs to. Every member
// must still be pending; otherwise nothing changes.
func (s *Service) Decide(ctx context.Context, id string, d Decision, userID string) (View, error) {
	if d != Approve && d != Decline {
		return View{}, apperr.Validation("decision must be approve or decline")
	}

	var view View
	err := database.RunInTransaction(ctx, s.db, s.retry, func(tx *gorm.DB) error {
		members, err := groupOf(tx, id)
		if err != nil {
			return err
		}

		now := s.Now()
		for _, m := range members {
			if m.Status != models.TransferPending {
				return apperr.Conflict("transfer %s is already %s", m.ID, m.Status)
			}
			res := tx.Model(&models.TransferRecord{}).
				Where("id = ? AND status = ?", m.ID, models.TransferPending).
				Updates(map[string]any{
					"status":      d.status(),
					"approved_by": userID,
					"approved_at": now,
				})
			if res.Error != nil {
				return res.Error
			}
			if res.RowsAffected == 0 {
				return apperr.Conflict("transfer %s was decided by another request", m.ID)
			}
		}

		ids := make([]string, 0, len(members))
		for _, m := range members {
			ids = append(ids, m.ID)
		}
		var updated []models.TransferRecord
		if err := tx.Where("id IN ?", ids).Find(&updated).Error; err != nil {
			return err
		}
		view = Group(updated)[0]

		return audit.WriteLog(tx, audit.LogOptions{
			UserID:      userID,
			EntityType:  "transfer",
			EntityID:    view.ID,
			Action:      d.auditAction(),
			Description: fmt.Sprintf("Transfer %s: %d record(s) %s", view.ID, len(members), d.status()),
			After:       view,
		})
	})
	if err != nil {
		var conflict *apperr.ConflictError
		if errors.As(err, &conflict) {
			metrics.Conflicts.WithLabelValues("transfer_" + string(d)).Inc()
		}
		return View{}, err
	}
	metrics.TransferDecisions.WithLabelValues(string(d)).Add(float64(len(view.Members())))
	return view, nil
}

// Completion is the result of Complete: the updated group and the stock moved
// for each member.
type Completion struct {
	View
	Moved []Moved `json:"moved"`
}

// Complete carries out an approved transfer. For every member of the group the
// matching pieces move from the source to the destination location, the member
// becomes completed and both locations are reconciled. A member that is not
// approved, or a source short of stock, fails the whole group.
func (s *Service) Complete(ctx context.Context, id, userID string) (Completion, error) {
	var out Completion
	err := database.RunInTransaction(ctx, s.db, s.retry, func(tx *gorm.DB) error {
		members, err := groupOf(tx, id)
		if err != nil {
			return err
		}

		now := s.Now()
		moved := make([]Moved, 0, len(members))
		ids := make([]string, 0, len(members))
		for _, m := range members {
			if m.Status != models.TransferApproved {
				return apperr.Conflict("transfer %s is %s, only approved transfers can be completed", m.ID, m.Status)
			}
			res := tx.Model(&models.TransferRecord{}).
				Where("id = ? AND status = ?", m.ID, models.TransferApproved).
				Updates(map[string]any{
					"status":       models.TransferCompleted,
					"completed_by": userID,
					"completed_at": now,
				})
			if res.Error != nil {
				return res.Error
			}
			if res.RowsAffected == 0 {
				return apperr.Conflict("transfer %s was completed by another request", m.ID)
			}

			mv, err := moveStock(tx, m)
			if err != nil {
				return err
			}
			moved = append(moved, mv)
			ids = append(ids, m.ID)
		}

		if err := ledger.Reconcile(tx, members[0].FromStorageID, members[0].ToStorageID); err != nil {
			return err
		}

		var updated []models.TransferRecord
		if err := tx.Where("id IN ?", ids).Find(&updated).Error; err != nil {
			return err
		}
		out = Completion{View: Group(updated)[0], Moved: moved}

		var pieces int
		var grams int64
		for _, mv := range moved {
			pieces += mv.Pieces
			grams += mv.WeightGrams
		}
		return audit.WriteLog(tx, audit.LogOptions{
			UserID:      userID,
			EntityType:  "transfer",
			EntityID:    out.ID,
			Action:      models.AuditActionUpdate,
			Description: fmt.Sprintf("Transfer %s completed: %d pcs, %.3f kg moved", out.ID, pieces, ledger.GramsToKg(grams)),
			After:       out,
		})
	})
	if err != nil {
		var conflict *apperr.ConflictError
		if errors.As(err, &conflict) {
			metrics.Conflicts.WithLabelValues("transfer_complete").Inc()
		}
		return Completion{}, err
	}
	metrics.TransferDecisions.WithLabelValues("complete").Add(float64(len(out.Members())))
	return out, nil
}

// groupOf loads every record sharing id's batch key.
func groupOf(tx *gorm.DB, id string) ([]models.TransferRecord, error) {
	var rep models.TransferRecord
	if err := tx.First(&rep, "id = ?", id).Error; err != nil {
		if database.IsNotFound(err) {
			return nil, apperr.NotFound("transfer", id)
		}
		return nil, err
	}

	var candidates []models.TransferRecord
	err := tx.Where("from_storage_id = ? AND to_storage_id = ? AND notes = ?", rep.FromStorageID, rep.ToStorageID, rep.Notes).
		Find(&candidates).Error
	if err != nil {
		return nil, err
	}

	key := KeyOf(rep)
	members := make([]models.TransferRecord, 0, len(candidates))
	for _, c := range candidates {
		if KeyOf(c) == key {
			members = append(members, c)
		}
	}
	sortMembers(members)
	return members, nil
}
