// Package server assembles the fiber application and its routes.
package server

import (
	"strings"

	"fishfarm-backend/internal/apperr"
	"fishfarm-backend/internal/audit"
	"fishfarm-backend/internal/auth"
	"fishfarm-backend/internal/config"
	"fishfarm-backend/internal/database"
	"fishfarm-backend/internal/dispatch"
	"fishfarm-backend/internal/disposal"
	"fishfarm-backend/internal/ledger"
	"fishfarm-backend/internal/logger"
	"fishfarm-backend/internal/models"
	"fishfarm-backend/internal/sizing"
	"fishfarm-backend/internal/transfer"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type Services struct {
	Ledger    *ledger.Ledger
	Disposals *disposal.Service
	Transfers *transfer.Service
	Dispatch  *dispatch.Service
}

func NewServices(db *gorm.DB, retry database.RetryPolicy) Services {
	return Services{
		Ledger:    ledger.New(db, retry),
		Disposals: disposal.NewService(db, retry),
		Transfers: transfer.NewService(db, retry),
		Dispatch:  dispatch.NewService(db, retry),
	}
}

func errorHandler(c *fiber.Ctx, err error) error {
	err = apperr.ToFiber(err)
	if e, ok := err.(*fiber.Error); ok {
		return c.Status(e.Code).JSON(fiber.Map{
			"error": e.Message,
		})
	}
	logger.L().Error("unexpected error",
		zap.String("method", c.Method()),
		zap.String("path", c.Path()),
		zap.Error(err),
	)
	return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
		"error": "Unexpected server error",
	})
}

// New builds the app. retry is shared by every transactional handler.
func New(cfg *config.Config, db *gorm.DB, retry database.RetryPolicy, holder *sizing.Holder) *fiber.App {
	svc := NewServices(db, retry)

	app := fiber.New(fiber.Config{ErrorHandler: errorHandler})

	corsOrigins := strings.Split(cfg.CORSOrigins, ",")
	for i := range corsOrigins {
		corsOrigins[i] = strings.TrimSpace(corsOrigins[i])
	}
	app.Use(cors.New(cors.Config{
		AllowOrigins: strings.Join(corsOrigins, ","),
		AllowHeaders: "Origin, Content-Type, Accept, Authorization",
		AllowMethods: "GET,POST,PUT,DELETE,OPTIONS",
	}))
	app.Use(logger.RequestLogger())

	app.Get("/metrics", adaptor.HTTPHandler(promhttp.Handler()))

	api := app.Group("/api")

	// Public auth
	api.Post("/auth/register-admin", auth.RegisterAdminHandler(db))
	api.Post("/auth/login", auth.LoginHandler(db, cfg.JWTSecret))

	protected := api.Group("")
	protected.Use(auth.JWTMiddleware(cfg.JWTSecret))
	protected.Get("/auth/me", auth.MeHandler(db))

	// Writers: admin and warehouse staff
	write := auth.RequireRole(models.RoleAdmin, models.RoleWarehouse)
	adminOnly := auth.RequireRole(models.RoleAdmin)

	protected.Post("/admin/users", adminOnly, auth.CreateUserHandler(db))

	// Size classes
	protected.Get("/size-classes", sizing.ListBandsHandler(holder))
	protected.Get("/size-classes/classify", sizing.ClassifyHandler(holder))
	protected.Put("/size-classes", adminOnly, sizing.ReplaceBandsHandler(db, retry, holder))

	// Stock intake
	protected.Post("/sorting-batches", write, ledger.CreateBatchHandler(svc.Ledger))
	protected.Post("/stock-records", write, ledger.IntakeHandler(svc.Ledger, holder))
	protected.Get("/stock-records", ledger.ListStockHandler(svc.Ledger))

	// Storage ledger
	protected.Get("/storage-locations", ledger.ListLocationsHandler(svc.Ledger))
	protected.Post("/storage-locations", adminOnly, ledger.CreateLocationHandler(svc.Ledger))
	protected.Post("/storage-locations/reconcile", adminOnly, ledger.ReconcileHandler(svc.Ledger))
	protected.Get("/storage-locations/:id", ledger.GetLocationHandler(svc.Ledger))
	protected.Put("/storage-locations/:id/status", write, ledger.SetLocationStatusHandler(svc.Ledger))

	// Disposals
	protected.Get("/disposal-reasons", disposal.ListReasonsHandler(svc.Disposals))
	protected.Get("/disposals/candidates", disposal.CandidatesHandler(svc.Disposals))
	protected.Get("/disposals/candidates/export", disposal.ExportCandidatesHandler(svc.Disposals))
	protected.Post("/disposals", write, disposal.CreateHandler(svc.Disposals))
	protected.Get("/disposals", disposal.ListHandler(svc.Disposals))
	protected.Get("/disposals/:id", disposal.GetHandler(svc.Disposals))
	protected.Post("/disposals/:id/approve", adminOnly, disposal.ApproveHandler(svc.Disposals))
	protected.Post("/disposals/:id/complete", write, disposal.CompleteHandler(svc.Disposals))
	protected.Post("/disposals/:id/cancel", write, disposal.CancelHandler(svc.Disposals))

	// Transfers
	protected.Post("/transfers", write, transfer.CreateHandler(svc.Transfers))
	protected.Get("/transfers", transfer.ListHandler(svc.Transfers))
	protected.Get("/transfers/export", transfer.ExportHandler(svc.Transfers))
	protected.Post("/transfers/:id/approve", adminOnly, transfer.ApproveHandler(svc.Transfers))
	protected.Post("/transfers/:id/decline", adminOnly, transfer.DeclineHandler(svc.Transfers))
	protected.Post("/transfers/:id/complete", write, transfer.CompleteHandler(svc.Transfers))

	// Orders & dispatch
	protected.Post("/orders", write, dispatch.CreateOrderHandler(svc.Dispatch))
	protected.Get("/orders", dispatch.ListOrdersHandler(svc.Dispatch))
	protected.Post("/orders/:id/confirm", write, dispatch.ConfirmOrderHandler(svc.Dispatch))
	protected.Post("/orders/:id/cancel", write, dispatch.CancelOrderHandler(svc.Dispatch))
	protected.Post("/orders/:id/dispatch", write, dispatch.DispatchHandler(svc.Dispatch))
	protected.Get("/dispatches", dispatch.ListDispatchesHandler(svc.Dispatch))
	protected.Get("/dispatches/:id", dispatch.GetDispatchHandler(svc.Dispatch))
	protected.Post("/dispatches/:id/approve", adminOnly, dispatch.ApproveDispatchHandler(svc.Dispatch))
	protected.Post("/dispatches/:id/ship", write, dispatch.MarkDispatchedHandler(svc.Dispatch))

	// Audit logs
	protected.Get("/audit-logs", adminOnly, audit.ListAuditLogsHandler(db))

	return app
}
