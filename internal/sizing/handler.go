package sizing

import (
	"fmt"

	"fishfarm-backend/internal/apperr"
	"fishfarm-backend/internal/audit"
	"fishfarm-backend/internal/auth"
	"fishfarm-backend/internal/database"
	"fishfarm-backend/internal/models"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"
)

// GET /api/size-classes
func ListBandsHandler(h *Holder) fiber.Handler {
	return func(c *fiber.Ctx) error {
		return c.JSON(h.Get().Bands())
	}
}

// PUT /api/size-classes
func ReplaceBandsHandler(db *gorm.DB, retry database.RetryPolicy, h *Holder) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var bands []models.SizeClass
		if err := c.BodyParser(&bands); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "Invalid request body")
		}
		userID, err := auth.CurrentUserID(c)
		if err != nil {
			return err
		}

		before := h.Get().Bands()
		var next *Classifier
		err = database.RunInTransaction(c.UserContext(), db, retry, func(tx *gorm.DB) error {
			cl, err := Replace(tx, bands)
			if err != nil {
				return err
			}
			next = cl
			return audit.WriteLog(tx, audit.LogOptions{
				UserID:      userID,
				EntityType:  "size_class",
				EntityID:    "all",
				Action:      models.AuditActionUpdate,
				Description: fmt.Sprintf("Size class table replaced (%d bands)", len(bands)),
				Before:      before,
				After:       cl.Bands(),
			})
		})
		if err != nil {
			return apperr.ToFiber(err)
		}
		h.Set(next)
		return c.JSON(next.Bands())
	}
}

// GET /api/size-classes/classify?total_weight_grams=5000&pieces=10
func ClassifyHandler(h *Holder) fiber.Handler {
	return func(c *fiber.Ctx) error {
		total := c.QueryFloat("total_weight_grams", -1)
		pieces := c.QueryInt("pieces", 0)
		if total < 0 {
			return fiber.NewError(fiber.StatusBadRequest, "total_weight_grams is required")
		}
		unit := UnitWeight(total, pieces)
		class, err := h.Get().Classify(unit)
		if err != nil {
			return apperr.ToFiber(err)
		}
		return c.JSON(fiber.Map{
			"size_class":        class,
			"unit_weight_grams": unit,
		})
	}
}
