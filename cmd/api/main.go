package main

import (
	"context"
	"net/http"
	"os"

	"github.com/joho/godotenv"

	"github.com/sabrositas/pos-backend/api/routes"
	"github.com/sabrositas/pos-backend/internal/catalog"
	"github.com/sabrositas/pos-backend/internal/customers"
	"github.com/sabrositas/pos-backend/internal/invoice"
	"github.com/sabrositas/pos-backend/internal/journal"
	"github.com/sabrositas/pos-backend/internal/pricing"
	"github.com/sabrositas/pos-backend/internal/reconcile"
	"github.com/sabrositas/pos-backend/internal/refunds"
	"github.com/sabrositas/pos-backend/internal/reports"
	"github.com/sabrositas/pos-backend/internal/sales"
	"github.com/sabrositas/pos-backend/internal/stock"
	"github.com/sabrositas/pos-backend/internal/users"
	"github.com/sabrositas/pos-backend/pkg/auth/session"
	"github.com/sabrositas/pos-backend/pkg/config"
	"github.com/sabrositas/pos-backend/pkg/db"
	"github.com/sabrositas/pos-backend/pkg/logger"
	"github.com/sabrositas/pos-backend/pkg/migrate"
	"github.com/sabrositas/pos-backend/pkg/redis"
)

func main() {
	logg := logger.New(logger.Options{ServiceName: "api"})

	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}

	logg = logger.New(logger.Options{
		ServiceName: "api",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
	})

	dbClient, err := db.New(context.Background(), cfg.DB, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap database", err)
		os.Exit(1)
	}
	defer func() {
		if err := dbClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing database", err)
		}
	}()

	if err := migrate.MaybeRunDev(context.Background(), cfg, logg, dbClient); err != nil {
		logg.Error(context.Background(), "failed to run dev migrations", err)
		os.Exit(1)
	}

	redisClient, err := redis.New(context.Background(), cfg.Redis, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap redis", err)
		os.Exit(1)
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing redis", err)
		}
	}()

	sessionManager, err := session.NewManager(redisClient, cfg.JWT)
	if err != nil {
		logg.Error(context.Background(), "failed to create session manager", err)
		os.Exit(1)
	}

	conn := dbClient.DB()
	ledger := stock.NewLedger(conn)
	movementJournal := journal.NewJournal(conn)
	pricingEngine := pricing.NewEngine()

	numberer, err := invoice.NewNumberer(redisClient, cfg.Sales.InvoicePrefix)
	if err != nil {
		logg.Error(context.Background(), "failed to create invoice numberer", err)
		os.Exit(1)
	}

	saleService, err := sales.NewService(
		sales.NewRepository(conn), dbClient, ledger, movementJournal,
		pricingEngine, numberer, cfg.Sales, logg,
	)
	if err != nil {
		logg.Error(context.Background(), "failed to create sale service", err)
		os.Exit(1)
	}

	refundService, err := refunds.NewService(
		refunds.NewRepository(conn), dbClient, ledger, movementJournal,
		pricingEngine, numberer, cfg.Sales, logg,
	)
	if err != nil {
		logg.Error(context.Background(), "failed to create refund service", err)
		os.Exit(1)
	}

	catalogService, err := catalog.NewService(catalog.NewRepository(conn), dbClient, ledger, movementJournal, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to create catalog service", err)
		os.Exit(1)
	}

	customerService, err := customers.NewService(conn, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to create customer service", err)
		os.Exit(1)
	}

	userService, err := users.NewService(conn, sessionManager, cfg.JWT, cfg.Password, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to create user service", err)
		os.Exit(1)
	}

	reportService, err := reports.NewService(conn, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to create report service", err)
		os.Exit(1)
	}

	reconcileService, err := reconcile.NewService(
		reconcile.NewRepository(conn), dbClient, ledger, movementJournal,
		cfg.Reconciler, nil, logg,
	)
	if err != nil {
		logg.Error(context.Background(), "failed to create reconcile service", err)
		os.Exit(1)
	}

	port := os.Getenv("PORT")
	if port == "" {
		port = cfg.App.Port
	}
	addr := ":" + port
	ctx := logg.WithFields(context.Background(), map[string]any{
		"env":  cfg.App.Env,
		"addr": addr,
	})
	logg.Info(ctx, "starting api server")

	server := &http.Server{
		Addr: addr,
		Handler: routes.NewRouter(
			cfg, logg, dbClient, redisClient,
			userService, saleService, refundService, catalogService,
			customerService, reportService, reconcileService, movementJournal,
		),
	}

	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logg.Error(ctx, "api server stopped unexpectedly", err)
		os.Exit(1)
	}
}
