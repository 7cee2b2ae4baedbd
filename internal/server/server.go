package server

import (
	"errors"

	"kiosk-backend/internal/audit"
	"kiosk-backend/internal/auth"
	"kiosk-backend/internal/catalog"
	"kiosk-backend/internal/config"
	"kiosk-backend/internal/inventory"
	"kiosk-backend/internal/logging"
	"kiosk-backend/internal/menu"
	"kiosk-backend/internal/metrics"
	"kiosk-backend/internal/models"
	"kiosk-backend/internal/orders"
	"kiosk-backend/internal/reports"
	"kiosk-backend/internal/staff"
	"kiosk-backend/internal/validation"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// ErrorHandler renders every error as {"error": message}.
func ErrorHandler(c *fiber.Ctx, err error) error {
	var fe *fiber.Error
	if errors.As(err, &fe) {
		return c.Status(fe.Code).JSON(fiber.Map{"error": fe.Message})
	}

	logging.FromContext(c.UserContext()).WithError(err).Error("Unexpected error")
	return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Unexpected server error"})
}

// New builds the HTTP app with every route wired to db.
func New(cfg *config.Config, db *gorm.DB, m *metrics.Orders) *fiber.App {
	app := fiber.New(fiber.Config{
		AppName:      "kiosk-backend",
		ErrorHandler: ErrorHandler,
		BodyLimit:    8 * 1024 * 1024,
	})

	app.Use(recover.New())
	app.Use(requestid.New(requestid.Config{Generator: uuid.NewString}))
	app.Use(logging.Middleware())
	app.Use(cors.New(cors.Config{
		AllowOrigins: cfg.AllowedOrigins(),
		AllowHeaders: "Origin, Content-Type, Accept, Authorization",
		AllowMethods: "GET,POST,PUT,DELETE,OPTIONS",
	}))

	app.Get("/health", HealthHandler(db))
	app.Get("/metrics", m.Handler())

	v := validation.New()
	orderSvc := orders.NewService(db)
	reportSvc := reports.NewService(db, cfg.LowStockThreshold)

	api := app.Group("/api")

	// Customer kiosk
	api.Get("/menu", menu.MenuHandler(db))
	api.Get("/customizations", menu.CustomizationsHandler(db, cfg.ToppingPrice))
	api.Post("/orders", orders.CustomerOrderHandler(orderSvc, m))

	// Auth
	api.Post("/auth/login", auth.LoginHandler(db, cfg.JWTSecret, v))
	api.Post("/auth/google", auth.GoogleHandler(v))
	api.Get("/auth/me", auth.JWTMiddleware(cfg.JWTSecret, true), auth.MeHandler(db))

	// Cashier
	cashier := api.Group("/cashier", auth.JWTMiddleware(cfg.JWTSecret, cfg.AuthRequired))
	if cfg.AuthRequired {
		cashier.Use(auth.RequireRole(models.RoleCashier, models.RoleManager))
	}
	cashier.Get("/products", menu.MenuHandler(db))
	cashier.Get("/inventory", inventory.StockHandler(db))
	cashier.Get("/next-order-id", orders.NextOrderIDHandler(orderSvc))
	cashier.Post("/orders", orders.CashierOrderHandler(orderSvc, m))
	cashier.Get("/orders/:id", orders.GetOrderHandler(orderSvc))

	// Manager
	manager := api.Group("/manager", auth.JWTMiddleware(cfg.JWTSecret, cfg.AuthRequired))
	if cfg.AuthRequired {
		manager.Use(auth.RequireRole(models.RoleManager))
	}

	manager.Get("/products", catalog.ListProductsHandler(db))
	manager.Post("/products", catalog.CreateProductHandler(db, v))
	manager.Put("/products/:id", catalog.UpdateProductHandler(db, v))
	manager.Delete("/products/:id", catalog.DeleteProductHandler(db))
	manager.Get("/products/:id/ingredients", catalog.GetRecipeHandler(db))
	manager.Put("/products/:id/ingredients", catalog.UpdateRecipeHandler(db, v))

	manager.Get("/ingredients", inventory.ListIngredientsHandler(db))
	manager.Post("/ingredients", inventory.CreateIngredientHandler(db, v))
	manager.Post("/ingredients/restock", inventory.RestockHandler(db))
	manager.Put("/ingredients/:id", inventory.UpdateIngredientHandler(db, v))
	manager.Delete("/ingredients/:id", inventory.DeleteIngredientHandler(db))

	manager.Get("/employees", staff.ListEmployeesHandler(db))
	manager.Post("/employees", staff.CreateEmployeeHandler(db, v))
	manager.Put("/employees/:id", staff.UpdateEmployeeHandler(db, v))
	manager.Delete("/employees/:id", staff.DeleteEmployeeHandler(db))

	manager.Get("/menu-stats", reports.MenuStatsHandler(reportSvc))
	manager.Get("/reports/x-report", reports.XReportHandler(reportSvc))
	manager.Get("/reports/product-usage", reports.ProductUsageHandler(reportSvc))

	manager.Get("/audit-logs", audit.ListAuditLogsHandler(db))
	manager.Post("/audit-logs/:id/undo", audit.UndoAuditLogHandler(db))

	return app
}

// GET /health
func HealthHandler(db *gorm.DB) fiber.Handler {
	return func(c *fiber.Ctx) error {
		sqlDB, err := db.DB()
		if err == nil {
			err = sqlDB.PingContext(c.UserContext())
		}
		if err != nil {
			logging.FromContext(c.UserContext()).WithError(err).Warn("Health check failed")
			return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{"status": "unavailable"})
		}
		return c.JSON(fiber.Map{"status": "ok"})
	}
}
