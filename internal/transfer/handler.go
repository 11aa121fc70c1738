package transfer

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"fishfarm-backend/internal/apperr"
	"fishfarm-backend/internal/auth"
	"fishfarm-backend/internal/export"
	"fishfarm-backend/internal/models"

	"github.com/gofiber/fiber/v2"
)

// POST /api/transfers
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
		view, err := s.CreateBatch(c.UserContext(), body, userID)
		if err != nil {
			return apperr.ToFiber(err)
		}
		return c.Status(fiber.StatusCreated).JSON(view)
	}
}

func statusFilter(c *fiber.Ctx) (*models.TransferStatus, error) {
	v := c.Query("status")
	if v == "" {
		return nil, nil
	}
	st := models.TransferStatus(v)
	if !st.Valid() {
		return nil, fiber.NewError(fiber.StatusBadRequest, "status must be pending, approved, declined or completed")
	}
	return &st, nil
}

// GET /api/transfers?status=pending
func ListHandler(s *Service) fiber.Handler {
	return func(c *fiber.Ctx) error {
		st, err := statusFilter(c)
		if err != nil {
			return err
		}
		views, err := s.List(c.UserContext(), st)
		if err != nil {
			return apperr.ToFiber(err)
		}
		return c.JSON(views)
	}
}

// GET /api/transfers/export?format=csv|xlsx&status=...
func ExportHandler(s *Service) fiber.Handler {
	return func(c *fiber.Ctx) error {
		format, err := export.ParseFormat(c.Query("format"))
		if err != nil {
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		}
		st, err := statusFilter(c)
		if err != nil {
			return err
		}
		views, err := s.List(c.UserContext(), st)
		if err != nil {
			return apperr.ToFiber(err)
		}
		return export.Send(c, format, "transfers-"+time.Now().Format("2006-01-02"), Table(views))
	}
}

// Table lays views out one row each; batch sizes are joined with "/".
func Table(views []View) export.Table {
	t := export.Table{
		Sheet:  "Transfers",
		Header: []string{"ID", "From", "To", "Sizes", "Quantity", "Weight (kg)", "Status", "Notes", "Created By", "Created At", "Batch"},
	}
	for _, v := range views {
		sizes := strconv.Itoa(v.SizeClass)
		if v.IsBatch {
			parts := make([]string, len(v.BatchSizes))
			for i, s := range v.BatchSizes {
				parts[i] = strconv.Itoa(s)
			}
			sizes = strings.Join(parts, "/")
		}
		t.Append(
			v.ID,
			v.FromStorageID,
			v.ToStorageID,
			sizes,
			strconv.Itoa(v.Quantity),
			fmt.Sprintf("%.3f", v.WeightKg),
			string(v.Status),
			v.Notes,
			v.CreatedBy,
			v.CreatedAt.Format(time.RFC3339),
			strconv.FormatBool(v.IsBatch),
		)
	}
	return t
}

func decideHandler(s *Service, d Decision) fiber.Handler {
	return func(c *fiber.Ctx) error {
		userID, err := auth.CurrentUserID(c)
		if err != nil {
			return err
		}
		view, err := s.Decide(c.UserContext(), c.Params("id"), d, userID)
		if err != nil {
			return apperr.ToFiber(err)
		}
		return c.JSON(view)
	}
}

// POST /api/transfers/:id/approve
func ApproveHandler(s *Service) fiber.Handler { return decideHandler(s, Approve) }

// POST /api/transfers/:id/decline
func DeclineHandler(s *Service) fiber.Handler { return decideHandler(s, Decline) }

// POST /api/transfers/:id/complete
func CompleteHandler(s *Service) fiber.Handler {
	return func(c *fiber.Ctx) error {
		userID, err := auth.CurrentUserID(c)
		if err != nil {
			return err
		}
		out, err := s.Complete(c.UserContext(), c.Params("id"), userID)
		if err != nil {
			return apperr.ToFiber(err)
		}
		return c.JSON(out)
	}
}
