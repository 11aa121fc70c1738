package disposal

import (
	"fmt"
	"strconv"
	"time"

	"fishfarm-backend/internal/apperr"
	"fishfarm-backend/internal/auth"
	"fishfarm-backend/internal/eligibility"
	"fishfarm-backend/internal/export"
	"fishfarm-backend/internal/models"

	"github.com/gofiber/fiber/v2"
)

const dateLayout = "2006-01-02"

// PolicyFromQuery reads min_age_days, max_age_days, inactive_storage_only, from
// and to. Dates are YYYY-MM-DD.
func PolicyFromQuery(c *fiber.Ctx) (eligibility.Policy, error) {
	var p eligibility.Policy
	if v := c.Query("min_age_days"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return p, apperr.Validation("min_age_days must be an integer")
		}
		p.MinAgeDays = n
	}
	if v := c.Query("max_age_days"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return p, apperr.Validation("max_age_days must be an integer")
		}
		p.MaxAgeDays = &n
	}
	p.InactiveStorageOnly = c.QueryBool("inactive_storage_only", false)

	for _, f := range []struct {
		key string
		dst **time.Time
	}{{"from", &p.FromDate}, {"to", &p.ToDate}} {
		v := c.Query(f.key)
		if v == "" {
			continue
		}
		d, err := time.ParseInLocation(dateLayout, v, time.Local)
		if err != nil {
			return p, apperr.Validation("%s must be YYYY-MM-DD", f.key)
		}
		*f.dst = &d
	}
	return p, p.Validate(time.Local)
}

type CandidatesResponse struct {
	Candidates    []eligibility.Candidate           `json:"candidates"`
	TotalRecords  int                               `json:"total_records"`
	TotalPieces   int                               `json:"total_pieces"`
	TotalWeightKg float64                           `json:"total_weight_kg"`
	ByReason      map[models.DisposalReasonCode]int `json:"by_reason"`
}

// GET /api/disposals/candidates?min_age_days=30&max_age_days=60&inactive_storage_only=false&from=2025-01-01&to=2025-01-31
func CandidatesHandler(s *Service) fiber.Handler {
	return func(c *fiber.Ctx) error {
		p, err := PolicyFromQuery(c)
		if err != nil {
			return apperr.ToFiber(err)
		}
		cs, err := s.Candidates(c.UserContext(), p)
		if err != nil {
			return apperr.ToFiber(err)
		}

		resp := CandidatesResponse{
			Candidates:   cs,
			TotalRecords: len(cs),
			ByReason:     eligibility.CountByReason(cs),
		}
		for _, cand := range cs {
			resp.TotalPieces += cand.Pieces
			resp.TotalWeightKg += cand.WeightKg()
		}
		return c.JSON(resp)
	}
}

// GET /api/disposals/candidates/export?format=csv|xlsx&...policy
func ExportCandidatesHandler(s *Service) fiber.Handler {
	return func(c *fiber.Ctx) error {
		format, err := export.ParseFormat(c.Query("format"))
		if err != nil {
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		}
		p, err := PolicyFromQuery(c)
		if err != nil {
			return apperr.ToFiber(err)
		}
		cs, err := s.Candidates(c.UserContext(), p)
		if err != nil {
			return apperr.ToFiber(err)
		}
		return export.Send(c, format, "disposal-candidates-"+time.Now().Format(dateLayout), CandidatesTable(cs))
	}
}

// CandidatesTable lays candidates out one row per stock record.
func CandidatesTable(cs []eligibility.Candidate) export.Table {
	t := export.Table{
		Sheet: "Candidates",
		Header: []string{
			"Stock Record", "Size Class", "Pieces", "Weight (kg)", "Storage",
			"Batch", "Farmer", "Processing Date", "Days In Storage", "Reason",
		},
	}
	for _, c := range cs {
		t.Append(
			c.StockRecordID,
			strconv.Itoa(c.SizeClass),
			strconv.Itoa(c.Pieces),
			fmt.Sprintf("%.3f", c.WeightKg()),
			c.StorageLocationName,
			c.BatchNumber,
			c.FarmerName,
			c.ProcessingDate.Format(dateLayout),
			strconv.Itoa(c.DaysInStorage),
			c.ReasonLabel,
		)
	}
	return t
}

// POST /api/disposals
func CreateHandler(s *Service) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var body CreateRequest
		if err := c.BodyParser(&body); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "Invalid request body")
		}
		userID, err := auth.CurrentUserID(c)
		if err != nil {
			return err
		}
		rec, err := s.Create(c.UserContext(), body, userID)
		if err != nil {
			return apperr.ToFiber(err)
		}
		return c.Status(fiber.StatusCreated).JSON(rec)
	}
}

// GET /api/disposals?status=pending&from=2025-01-01&to=2025-01-31
func ListHandler(s *Service) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var f ListFilter
		if v := c.Query("status"); v != "" {
			st := models.DisposalStatus(v)
			f.Status = &st
		}
		if v := c.Query("from"); v != "" {
			d, err := time.ParseInLocation(dateLayout, v, time.Local)
			if err != nil {
				return fiber.NewError(fiber.StatusBadRequest, "from must be YYYY-MM-DD")
			}
			f.From = &d
		}
		if v := c.Query("to"); v != "" {
			d, err := time.ParseInLocation(dateLayout, v, time.Local)
			if err != nil {
				return fiber.NewError(fiber.StatusBadRequest, "to must be YYYY-MM-DD")
			}
			f.To = &d
		}
		recs, err := s.List(c.UserContext(), f)
		if err != nil {
			return apperr.ToFiber(err)
		}
		return c.JSON(recs)
	}
}

// GET /api/disposals/:id
func GetHandler(s *Service) fiber.Handler {
	return func(c *fiber.Ctx) error {
		rec, err := s.Get(c.UserContext(), c.Params("id"))
		if err != nil {
			return apperr.ToFiber(err)
		}
		return c.JSON(rec)
	}
}

func transitionHandler(fn func(c *fiber.Ctx, id, userID string) (models.DisposalRecord, error)) fiber.Handler {
	return func(c *fiber.Ctx) error {
		userID, err := auth.CurrentUserID(c)
		if err != nil {
			return err
		}
		rec, err := fn(c, c.Params("id"), userID)
		if err != nil {
			return apperr.ToFiber(err)
		}
		return c.JSON(rec)
	}
}

// POST /api/disposals/:id/approve
func ApproveHandler(s *Service) fiber.Handler {
	return transitionHandler(func(c *fiber.Ctx, id, userID string) (models.DisposalRecord, error) {
		return s.Approve(c.UserContext(), id, userID)
	})
}

// POST /api/disposals/:id/complete
func CompleteHandler(s *Service) fiber.Handler {
	return transitionHandler(func(c *fiber.Ctx, id, userID string) (models.DisposalRecord, error) {
		return s.Complete(c.UserContext(), id, userID)
	})
}

// POST /api/disposals/:id/cancel
func CancelHandler(s *Service) fiber.Handler {
	return transitionHandler(func(c *fiber.Ctx, id, userID string) (models.DisposalRecord, error) {
		return s.Cancel(c.UserContext(), id, userID)
	})
}

// GET /api/disposal-reasons
func ListReasonsHandler(s *Service) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var reasons []models.DisposalReason
		if err := s.db.WithContext(c.UserContext()).Order("id").Find(&reasons).Error; err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "Disposal reasons could not be listed")
		}
		return c.JSON(reasons)
	}
}
