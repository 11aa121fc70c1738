package dispatch

import (
	"context"
	"errors"
	"fmt"
	"time"

	"fishfarm-backend/internal/apperr"
	"fishfarm-backend/internal/audit"
	"fishfarm-backend/internal/database"
	"fishfarm-backend/internal/ledger"
	"fishfarm-backend/internal/logger"
	"fishfarm-backend/internal/metrics"
	"fishfarm-backend/internal/models"
	"fishfarm-backend/internal/sizing"

	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type Service struct {
	db    *gorm.DB
	retry database.RetryPolicy
}

func NewService(db *gorm.DB, retry database.RetryPolicy) *Service {
	return &Service{db: db, retry: retry}
}

type OrderItemRequest struct {
	SizeClass int `json:"size_class"`
	Quantity  int `json:"quantity"`
}

type CreateOrderRequest struct {
	OutletName string             `json:"outlet_name"`
	Notes      string             `json:"notes"`
	Items      []OrderItemRequest `json:"items"`
}

func (s *Service) CreateOrder(ctx context.Context, req CreateOrderRequest, userID string) (models.OutletOrder, error) {
	if req.OutletName == "" {
		return models.OutletOrder{}, apperr.Validation("outlet_name is required")
	}
	if len(req.Items) == 0 {
		return models.OutletOrder{}, apperr.Validation("order needs at least one item")
	}
	order := models.OutletOrder{
		OutletName: req.OutletName,
		Notes:      req.Notes,
		Status:     models.OrderPending,
		CreatedBy:  userID,
	}
	for _, it := range req.Items {
		if it.SizeClass < sizing.MinClass || it.SizeClass > sizing.MaxClass {
			return models.OutletOrder{}, apperr.Validation("size_class must be between %d and %d", sizing.MinClass, sizing.MaxClass)
		}
		if it.Quantity <= 0 {
			return models.OutletOrder{}, apperr.Validation("quantity for size class %d must be positive", it.SizeClass)
		}
		order.Items = append(order.Items, models.OutletOrderItem{SizeClass: it.SizeClass, Quantity: it.Quantity})
	}

	err := database.RunInTransaction(ctx, s.db, s.retry, func(tx *gorm.DB) error {
		order.ID = ""
		for i := range order.Items {
			order.Items[i].ID = 0
			order.Items[i].OutletOrderID = ""
		}
		if err := tx.Create(&order).Error; err != nil {
			return fmt.Errorf("create order: %w", err)
		}
		return audit.WriteLog(tx, audit.LogOptions{
			UserID:      userID,
			EntityType:  "outlet_order",
			EntityID:    order.ID,
			Action:      models.AuditActionCreate,
			Description: fmt.Sprintf("Order from %s: %d size(s)", order.OutletName, len(order.Items)),
			After:       order,
		})
	})
	return order, err
}

func (s *Service) ListOrders(ctx context.Context, status *models.OrderStatus) ([]models.OutletOrder, error) {
	q := s.db.WithContext(ctx).Preload("Items")
	if status != nil {
		q = q.Where("status = ?", *status)
	}
	var out []models.OutletOrder
	if err := q.Order("created_at DESC").Find(&out).Error; err != nil {
		return nil, database.Classify(err)
	}
	return out, nil
}

// ConfirmOrder moves a pending order to confirmed, making it pickable.
func (s *Service) ConfirmOrder(ctx context.Context, id, userID string) (models.OutletOrder, error) {
	return s.orderTransition(ctx, id, userID, models.AuditActionApprove, models.OrderConfirmed, models.OrderPending)
}

// CancelOrder withdraws an order that has not been dispatched. No stock is
// held by pending or confirmed orders, so nothing else changes.
func (s *Service) CancelOrder(ctx context.Context, id, userID string) (models.OutletOrder, error) {
	return s.orderTransition(ctx, id, userID, models.AuditActionCancel, models.OrderCancelled, models.OrderPending, models.OrderConfirmed)
}

func (s *Service) orderTransition(ctx context.Context, id, userID string, action models.AuditAction, to models.OrderStatus, from ...models.OrderStatus) (models.OutletOrder, error) {
	var order models.OutletOrder
	err := database.RunInTransaction(ctx, s.db, s.retry, func(tx *gorm.DB) error {
		if err := loadOrder(tx, id, &order); err != nil {
			return err
		}
		res := tx.Model(&models.OutletOrder{}).
			Where("id = ? AND status IN ?", id, from).
			Update("status", to)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return apperr.Conflict("order %s is %s", id, order.Status)
		}
		before := order.Status
		order.Status = to
		return audit.WriteLog(tx, audit.LogOptions{
			UserID:      userID,
			EntityType:  "outlet_order",
			EntityID:    id,
			Action:      action,
			Description: fmt.Sprintf("Order %s: %s -> %s", order.OutletName, before, order.Status),
			After:       order,
		})
	})
	return order, err
}

func loadOrder(tx *gorm.DB, id string, order *models.OutletOrder) error {
	if err := tx.Preload("Items").First(order, "id = ?", id).Error; err != nil {
		if database.IsNotFound(err) {
			return apperr.NotFound("order", id)
		}
		return err
	}
	return nil
}

// Dispatch picks the selections against a confirmed order and commits the
// result: stock decremented, the dispatch snapshot stored and the order marked
// dispatched, all in one transaction.
func (s *Service) Dispatch(ctx context.Context, orderID string, selections []Selection, userID string) (models.Dispatch, error) {
	var d models.Dispatch
	err := database.RunInTransaction(ctx, s.db, s.retry, func(tx *gorm.DB) error {
		var order models.OutletOrder
		if err := loadOrder(tx, orderID, &order); err != nil {
			return err
		}

		ids := make([]string, 0, len(selections))
		for _, sel := range selections {
			ids = append(ids, sel.StockRecordID)
		}
		var loaded []models.StockRecord
		if len(ids) > 0 {
			if err := tx.Where("id IN ?", ids).Find(&loaded).Error; err != nil {
				return err
			}
		}
		records := make(map[string]models.StockRecord, len(loaded))
		for _, r := range loaded {
			records[r.ID] = r
		}

		result, err := Pick(order, records, selections)
		if err != nil {
			return err
		}

		touched := make([]models.StockRecord, 0, len(result.Lines))
		for _, line := range result.Lines {
			if err := applyLine(tx, line); err != nil {
				return err
			}
			touched = append(touched, records[line.StockRecordID])
		}

		d = models.Dispatch{
			OutletOrderID: order.ID,
			FishIDs:       datatypes.NewJSONSlice(result.FishIDs()),
			TotalWeightKg: result.TotalWeightKg,
			TotalPieces:   result.TotalPieces,
			SizeBreakdown: datatypes.NewJSONType(result.SizeBreakdown),
			Status:        models.DispatchPending,
			CreatedBy:     userID,
		}
		if err := tx.Create(&d).Error; err != nil {
			return fmt.Errorf("create dispatch: %w", err)
		}

		res := tx.Model(&models.OutletOrder{}).
			Where("id = ? AND status = ?", order.ID, models.OrderConfirmed).
			Update("status", models.OrderDispatched)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return apperr.Conflict("order %s was changed by another request", order.ID)
		}

		if err := ledger.Reconcile(tx, ledger.LocationIDs(touched...)...); err != nil {
			return err
		}
		return audit.WriteLog(tx, audit.LogOptions{
			UserID:      userID,
			EntityType:  "dispatch",
			EntityID:    d.ID,
			Action:      models.AuditActionCreate,
			Description: fmt.Sprintf("Dispatch for %s: %d pcs, %s kg", order.OutletName, d.TotalPieces, d.TotalWeightKg.StringFixed(3)),
			After:       d,
		})
	})
	if err != nil {
		var conflict *apperr.ConflictError
		if errors.As(err, &conflict) {
			metrics.Conflicts.WithLabelValues("dispatch").Inc()
		}
		return models.Dispatch{}, err
	}

	metrics.DispatchedPieces.Add(float64(d.TotalPieces))
	logger.L().Info("dispatch committed",
		zap.String("dispatch_id", d.ID),
		zap.String("order_id", orderID),
		zap.Int("pieces", d.TotalPieces),
	)
	return d, nil
}

// applyLine writes the pick to its stock record, guarded on the piece count the
// pick was computed from.
func applyLine(tx *gorm.DB, line Line) error {
	status := models.StockAvailable
	if line.Consumed {
		status = models.StockConsumed
	}
	res := tx.Model(&models.StockRecord{}).
		Where("id = ? AND status = ? AND remaining_pieces = ?", line.StockRecordID, models.StockAvailable, line.PiecesBefore).
		Updates(map[string]any{
			"remaining_pieces":       line.RemainingPieces,
			"remaining_weight_grams": line.RemainingWeightGrams,
			"status":                 status,
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return apperr.Conflict("stock record %s was changed by another request", line.StockRecordID)
	}
	return nil
}

type ApproveRequest struct {
	DriverName   string     `json:"driver_name"`
	DispatchDate *time.Time `json:"dispatch_date"`
}

// ApproveDispatch assigns the driver and date and approves a pending dispatch.
func (s *Service) ApproveDispatch(ctx context.Context, id string, req ApproveRequest, userID string) (models.Dispatch, error) {
	if req.DriverName == "" || req.DispatchDate == nil {
		return models.Dispatch{}, apperr.Validation("driver_name and dispatch_date are required")
	}
	return s.transition(ctx, id, userID, models.DispatchPending, models.DispatchApproved, map[string]any{
		"driver_name":   req.DriverName,
		"dispatch_date": *req.DispatchDate,
		"approved_by":   userID,
	})
}

// MarkDispatched records that an approved dispatch left the warehouse.
func (s *Service) MarkDispatched(ctx context.Context, id, userID string) (models.Dispatch, error) {
	return s.transition(ctx, id, userID, models.DispatchApproved, models.DispatchDispatched, nil)
}

func (s *Service) transition(ctx context.Context, id, userID string, from, to models.DispatchStatus, extra map[string]any) (models.Dispatch, error) {
	var d models.Dispatch
	err := database.RunInTransaction(ctx, s.db, s.retry, func(tx *gorm.DB) error {
		if err := tx.First(&d, "id = ?", id).Error; err != nil {
			if database.IsNotFound(err) {
				return apperr.NotFound("dispatch", id)
			}
			return err
		}
		updates := map[string]any{"status": to}
		for k, v := range extra {
			updates[k] = v
		}
		res := tx.Model(&models.Dispatch{}).Where("id = ? AND status = ?", id, from).Updates(updates)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return apperr.Conflict("dispatch %s is %s", id, d.Status)
		}
		before := d.Status
		if err := tx.First(&d, "id = ?", id).Error; err != nil {
			return err
		}
		return audit.WriteLog(tx, audit.LogOptions{
			UserID:      userID,
			EntityType:  "dispatch",
			EntityID:    id,
			Action:      models.AuditActionApprove,
			Description: fmt.Sprintf("Dispatch %s: %s -> %s", id, before, to),
			After:       d,
		})
	})
	return d, err
}

func (s *Service) ListDispatches(ctx context.Context, orderID string) ([]models.Dispatch, error) {
	q := s.db.WithContext(ctx)
	if orderID != "" {
		q = q.Where("outlet_order_id = ?", orderID)
	}
	var out []models.Dispatch
	if err := q.Order("created_at DESC").Find(&out).Error; err != nil {
		return nil, database.Classify(err)
	}
	return out, nil
}

func (s *Service) GetDispatch(ctx context.Context, id string) (models.Dispatch, error) {
	var d models.Dispatch
	if err := s.db.WithContext(ctx).First(&d, "id = ?", id).Error; err != nil {
		if database.IsNotFound(err) {
			return d, apperr.NotFound("dispatch", id)
		}
		return d, database.Classify(err)
	}
	return d, nil
}
