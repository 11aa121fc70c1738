package ledger

import (
	"time"

	"fishfarm-backend/internal/apperr"
	"fishfarm-backend/internal/auth"
	"fishfarm-backend/internal/models"
	"fishfarm-backend/internal/sizing"

	"github.com/gofiber/fiber/v2"
)

// GET /api/storage-locations?sort=utilization
func ListLocationsHandler(l *Ledger) fiber.Handler {
	return func(c *fiber.Ctx) error {
		summaries, err := l.Summaries(c.UserContext())
		if err != nil {
			return apperr.ToFiber(err)
		}
		if c.Query("sort") == "utilization" {
			SortSummariesByUtilization(summaries)
		}
		return c.JSON(summaries)
	}
}

// GET /api/storage-locations/:id
func GetLocationHandler(l *Ledger) fiber.Handler {
	return func(c *fiber.Ctx) error {
		s, err := l.Summary(c.UserContext(), c.Params("id"))
		if err != nil {
			return apperr.ToFiber(err)
		}
		return c.JSON(s)
	}
}

// POST /api/storage-locations
func CreateLocationHandler(l *Ledger) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var body CreateLocationRequest
		if err := c.BodyParser(&body); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "Invalid request body")
		}
		userID, err := auth.CurrentUserID(c)
		if err != nil {
			return err
		}
		loc, err := l.CreateLocation(c.UserContext(), body, userID)
		if err != nil {
			return apperr.ToFiber(err)
		}
		return c.Status(fiber.StatusCreated).JSON(loc)
	}
}

type SetStatusRequest struct {
	Status models.StorageStatus `json:"status"`
}

// PUT /api/storage-locations/:id/status
func SetLocationStatusHandler(l *Ledger) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var body SetStatusRequest
		if err := c.BodyParser(&body); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "Invalid request body")
		}
		userID, err := auth.CurrentUserID(c)
		if err != nil {
			return err
		}
		loc, err := l.SetStatus(c.UserContext(), c.Params("id"), body.Status, userID)
		if err != nil {
			return apperr.ToFiber(err)
		}
		return c.JSON(loc)
	}
}

// POST /api/storage-locations/reconcile
func ReconcileHandler(l *Ledger) fiber.Handler {
	return func(c *fiber.Ctx) error {
		drifted, err := l.ReconcileAll(c.UserContext())
		if err != nil {
			return apperr.ToFiber(err)
		}
		return c.JSON(fiber.Map{"drifted": drifted})
	}
}

// POST /api/sorting-batches
func CreateBatchHandler(l *Ledger) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var body CreateBatchRequest
		if err := c.BodyParser(&body); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "Invalid request body")
		}
		userID, err := auth.CurrentUserID(c)
		if err != nil {
			return err
		}
		batch, err := l.CreateBatch(c.UserContext(), body, userID)
		if err != nil {
			return apperr.ToFiber(err)
		}
		return c.Status(fiber.StatusCreated).JSON(batch)
	}
}

// POST /api/stock-records
func IntakeHandler(l *Ledger, holder *sizing.Holder) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var body IntakeRequest
		if err := c.BodyParser(&body); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "Invalid request body")
		}
		userID, err := auth.CurrentUserID(c)
		if err != nil {
			return err
		}
		rec, err := l.Intake(c.UserContext(), holder.Get(), body, userID)
		if err != nil {
			return apperr.ToFiber(err)
		}
		return c.Status(fiber.StatusCreated).JSON(rec)
	}
}

type StockRecordResponse struct {
	ID                   string             `json:"id"`
	SizeClass            int                `json:"size_class"`
	TotalPieces          int                `json:"total_pieces"`
	TotalWeightGrams     int64              `json:"total_weight_grams"`
	RemainingPieces      int                `json:"remaining_pieces"`
	RemainingWeightGrams int64              `json:"remaining_weight_grams"`
	UnitWeightGrams      float64            `json:"unit_weight_grams"`
	StorageLocationID    *string            `json:"storage_location_id"`
	BatchID              string             `json:"batch_ref"`
	Status               models.StockStatus `json:"status"`
	CreatedAt            string             `json:"created_at"`
}

// GET /api/stock-records?status=available&storage_location_id=...&size_class=3&batch_id=...
func ListStockHandler(l *Ledger) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var f StockFilter
		if v := c.Query("status"); v != "" {
			s := models.StockStatus(v)
			f.Status = &s
		}
		f.StorageLocationID = c.Query("storage_location_id")
		f.BatchID = c.Query("batch_id")
		if v := c.Query("size_class"); v != "" {
			n := c.QueryInt("size_class", -1)
			if n < sizing.MinClass || n > sizing.MaxClass {
				return fiber.NewError(fiber.StatusBadRequest, "size_class must be between 0 and 10")
			}
			f.SizeClass = &n
		}

		records, err := l.ListStock(c.UserContext(), f)
		if err != nil {
			return apperr.ToFiber(err)
		}

		resp := make([]StockRecordResponse, 0, len(records))
		for _, r := range records {
			resp = append(resp, StockRecordResponse{
				ID:                   r.ID,
				SizeClass:            r.SizeClass,
				TotalPieces:          r.TotalPieces,
				TotalWeightGrams:     r.TotalWeightGrams,
				RemainingPieces:      r.RemainingPieces,
				RemainingWeightGrams: r.RemainingWeightGrams,
				UnitWeightGrams:      sizing.UnitWeight(float64(r.TotalWeightGrams), r.TotalPieces),
				StorageLocationID:    r.StorageLocationID,
				BatchID:              r.BatchID,
				Status:               r.Status,
				CreatedAt:            r.CreatedAt.Format(time.RFC3339),
			})
		}
		return c.JSON(resp)
	}
}
