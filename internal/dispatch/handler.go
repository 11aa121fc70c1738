package dispatch

import (
	"fishfarm-backend/internal/apperr"
	"fishfarm-backend/internal/auth"
	"fishfarm-backend/internal/models"

	"github.com/gofiber/fiber/v2"
)

// POST /api/orders
func CreateOrderHandler(s *Service) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var body CreateOrderRequest
		if err := c.BodyParser(&body); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "Invalid request body")
		}
		userID, err := auth.CurrentUserID(c)
		if err != nil {
			return err
		}
		order, err := s.CreateOrder(c.UserContext(), body, userID)
		if err != nil {
			return apperr.ToFiber(err)
		}
		return c.Status(fiber.StatusCreated).JSON(order)
	}
}

// GET /api/orders?status=confirmed
func ListOrdersHandler(s *Service) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var status *models.OrderStatus
		if v := c.Query("status"); v != "" {
			st := models.OrderStatus(v)
			status = &st
		}
		orders, err := s.ListOrders(c.UserContext(), status)
		if err != nil {
			return apperr.ToFiber(err)
		}
		return c.JSON(orders)
	}
}

// POST /api/orders/:id/confirm
func ConfirmOrderHandler(s *Service) fiber.Handler {
	return func(c *fiber.Ctx) error {
		userID, err := auth.CurrentUserID(c)
		if err != nil {
			return err
		}
		order, err := s.ConfirmOrder(c.UserContext(), c.Params("id"), userID)
		if err != nil {
			return apperr.ToFiber(err)
		}
		return c.JSON(order)
	}
}

// POST /api/orders/:id/cancel
func CancelOrderHandler(s *Service) fiber.Handler {
	return func(c *fiber.Ctx) error {
		userID, err := auth.CurrentUserID(c)
		if err != nil {
			return err
		}
		order, err := s.CancelOrder(c.UserContext(), c.Params("id"), userID)
		if err != nil {
			return apperr.ToFiber(err)
		}
		return c.JSON(order)
	}
}

type DispatchRequest struct {
	Selections []Selection `json:"selections"`
}

// POST /api/orders/:id/dispatch
func DispatchHandler(s *Service) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var body DispatchRequest
		if err := c.BodyParser(&body); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "Invalid request body")
		}
		userID, err := auth.CurrentUserID(c)
		if err != nil {
			return err
		}
		d, err := s.Dispatch(c.UserContext(), c.Params("id"), body.Selections, userID)
		if err != nil {
			return apperr.ToFiber(err)
		}
		return c.Status(fiber.StatusCreated).JSON(d)
	}
}

// GET /api/dispatches?order_id=...
func ListDispatchesHandler(s *Service) fiber.Handler {
	return func(c *fiber.Ctx) error {
		ds, err := s.ListDispatches(c.UserContext(), c.Query("order_id"))
		if err != nil {
			return apperr.ToFiber(err)
		}
		return c.JSON(ds)
	}
}

// GET /api/dispatches/:id
func GetDispatchHandler(s *Service) fiber.Handler {
	return func(c *fiber.Ctx) error {
		d, err := s.GetDispatch(c.UserContext(), c.Params("id"))
		if err != nil {
			return apperr.ToFiber(err)
		}
		return c.JSON(d)
	}
}

// POST /api/dispatches/:id/approve
func ApproveDispatchHandler(s *Service) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var body ApproveRequest
		if err := c.BodyParser(&body); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "Invalid request body")
		}
		userID, err := auth.CurrentUserID(c)
		if err != nil {
			return err
		}
		d, err := s.ApproveDispatch(c.UserContext(), c.Params("id"), body, userID)
		if err != nil {
			return apperr.ToFiber(err)
		}
		return c.JSON(d)
	}
}

// POST /api/dispatches/:id/ship
func MarkDispatchedHandler(s *Service) fiber.Handler {
	return func(c *fiber.Ctx) error {
		userID, err := auth.CurrentUserID(c)
		if err != nil {
			return err
		}
		d, err := s.MarkDispatched(c.UserContext(), c.Params("id"), userID)
		if err != nil {
			return apperr.ToFiber(err)
		}
		return c.JSON(d)
	}
}
