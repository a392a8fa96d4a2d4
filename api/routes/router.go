package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/sabrositas/pos-backend/api/controllers"
	"github.com/sabrositas/pos-backend/api/middleware"
	"github.com/sabrositas/pos-backend/internal/catalog"
	"github.com/sabrositas/pos-backend/internal/customers"
	"github.com/sabrositas/pos-backend/internal/journal"
	"github.com/sabrositas/pos-backend/internal/reconcile"
	"github.com/sabrositas/pos-backend/internal/refunds"
	"github.com/sabrositas/pos-backend/internal/reports"
	"github.com/sabrositas/pos-backend/internal/sales"
	"github.com/sabrositas/pos-backend/internal/users"
	"github.com/sabrositas/pos-backend/pkg/config"
	"github.com/sabrositas/pos-backend/pkg/db"
	"github.com/sabrositas/pos-backend/pkg/enums"
	"github.com/sabrositas/pos-backend/pkg/logger"
	"github.com/sabrositas/pos-backend/pkg/redis"
)

func NewRouter(
	cfg *config.Config,
	logg *logger.Logger,
	dbP db.Pinger,
	redisClient *redis.Client,
	userService users.Service,
	saleService sales.Service,
	refundService refunds.Service,
	catalogService catalog.Service,
	customerService customers.Service,
	reportService reports.Service,
	reconcileService reconcile.Service,
	movementJournal journal.Journal,
) http.Handler {
	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
		middleware.CORS(),
	)

	loginPolicy := middleware.NewAuthRateLimitPolicy(
		"login",
		cfg.AuthRateLimit.LoginWindow,
		cfg.AuthRateLimit.LoginIPLimit,
		cfg.AuthRateLimit.LoginEmailLimit,
	)

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, logg, dbP, redisClient))
	})

	r.Route("/api/v1/auth", func(r chi.Router) {
		r.With(middleware.AuthRateLimit(loginPolicy, redisClient, logg)).Post("/login", controllers.AuthLogin(userService, logg))
		r.Post("/refresh", controllers.AuthRefresh(userService, logg))

		r.Group(func(r chi.Router) {
			r.Use(middleware.Auth(cfg.JWT, logg))
			r.Post("/logout", controllers.AuthLogout(userService, logg))
			r.Get("/me", controllers.AuthMe(userService, logg))
			r.Post("/change-password", controllers.AuthChangePassword(userService, logg))
		})
	})

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(middleware.Auth(cfg.JWT, logg))

		r.Route("/sales", func(r chi.Router) {
			r.Post("/", controllers.CreateSale(saleService, logg))
			r.Get("/", controllers.ListSales(saleService, logg))
			r.Get("/{saleId}", controllers.GetSale(saleService, logg))
			r.Post("/{saleId}/refund", controllers.RefundSale(refundService, logg))
		})

		r.Route("/products", func(r chi.Router) {
			r.Get("/", controllers.ListProducts(catalogService, logg))
			r.Get("/{productId}", controllers.GetProduct(catalogService, logg))
			r.Get("/{productId}/stock", controllers.GetProductStock(catalogService, logg))
			r.Get("/{productId}/movements", controllers.ListProductMovements(movementJournal, logg))

			r.Group(func(r chi.Router) {
				r.Use(middleware.RequireRole(logg, enums.UserRoleAdmin, enums.UserRoleManager))
				r.Post("/", controllers.CreateProduct(catalogService, logg))
				r.Patch("/{productId}", controllers.UpdateProduct(catalogService, logg))
				r.Delete("/{productId}", controllers.DeactivateProduct(catalogService, logg))
				r.Post("/{productId}/restock", controllers.RestockProduct(catalogService, logg))
			})
		})

		r.Route("/inventory", func(r chi.Router) {
			r.Get("/summary", controllers.InventorySummary(movementJournal, logg))

			r.Group(func(r chi.Router) {
				r.Use(middleware.RequireRole(logg, enums.UserRoleAdmin, enums.UserRoleManager))
				r.Post("/reconcile", controllers.ReconcileInventory(reconcileService, logg))
				r.Post("/reconcile/{productId}", controllers.RecordPhysicalCount(reconcileService, logg))
			})
		})

		r.Route("/customers", func(r chi.Router) {
			r.Post("/", controllers.CreateCustomer(customerService, logg))
			r.Get("/", controllers.ListCustomers(customerService, logg))
			r.Get("/{customerId}", controllers.GetCustomer(customerService, logg))
			r.Patch("/{customerId}", controllers.UpdateCustomer(customerService, logg))
		})

		r.Route("/reports", func(r chi.Router) {
			r.Use(middleware.RequireRole(logg, enums.UserRoleAdmin, enums.UserRoleManager))
			r.Get("/sales/daily", controllers.DailySalesReport(reportService, logg))
		})

		r.Route("/users", func(r chi.Router) {
			r.Use(middleware.RequireRole(logg, enums.UserRoleAdmin))
			r.Post("/", controllers.CreateUser(userService, logg))
		})
	})

	return r
}
