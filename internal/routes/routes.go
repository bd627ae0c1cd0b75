// Package routes defines the API routing configuration.
// It wires repositories, services and handlers and applies auth
// middleware per route group.
package routes

import (
	"topvend/internal/config"
	"topvend/internal/handlers"
	"topvend/internal/middleware"
	"topvend/internal/models"
	"topvend/internal/repositories"
	"topvend/internal/services/kyc"
	"topvend/internal/services/ledger"
	"topvend/internal/services/notification"
	"topvend/internal/services/provider"
	"topvend/internal/services/settlement"
	"topvend/internal/services/stock"
	"topvend/internal/services/wallet"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"gorm.io/gorm"
)

// SetupRoutes configures all application routes.
func SetupRoutes(app *fiber.App, db *gorm.DB) {
	store := repositories.NewStore(db)

	ledgerService := ledger.NewService()
	kycService := kyc.NewService(db)

	walletService := wallet.NewService(
		store,
		ledgerService,
		repositories.CacheService,
		kycService,
		wallet.Config{AllowCreditWhenFrozen: true},
		wallet.NewPrometheusCollector(),
	)

	stockEngine := stock.NewEngine(store, walletService)

	providerCfg := config.LoadProviderConfig()
	gateway := provider.NewClient(providerCfg)

	orchestrator := settlement.NewOrchestrator(
		store,
		walletService,
		stockEngine,
		gateway,
		notification.NewLogEmitter(),
		settlement.Config{ProviderCallTimeout: providerCfg.CallTimeout},
	)

	walletHandler := handlers.NewWalletHandler(walletService)
	stockHandler := handlers.NewStockHandler(orchestrator, stockEngine)
	saleHandler := handlers.NewSaleHandler(orchestrator)
	fundingHandler := handlers.NewFundingHandler(orchestrator)
	adjustmentHandler := handlers.NewAdjustmentHandler(orchestrator)

	app.Get("/health", handlers.HealthCheck)
	app.Get("/metrics", adaptor.HTTPHandler(promhttp.Handler()))

	api := app.Group("/api", middleware.Auth)

	wallets := api.Group("/wallet")
	wallets.Post("/", middleware.RequirePermission(models.PermissionWalletWrite), walletHandler.CreateWallet)
	wallets.Get("/", middleware.RequirePermission(models.PermissionWalletRead), walletHandler.GetWallet)
	wallets.Get("/transactions", middleware.RequirePermission(models.PermissionWalletRead), walletHandler.GetTransactionHistory)

	stocks := api.Group("/stock")
	stocks.Post("/buy", middleware.RequirePermission(models.PermissionStockBuy), stockHandler.BuyStock)
	stocks.Get("/", stockHandler.ListPools)

	sales := api.Group("/sales")
	sales.Post("/", middleware.RequirePermission(models.PermissionSaleWrite), saleHandler.Sell)

	funding := api.Group("/funding")
	funding.Post("/", middleware.RequirePermission(models.PermissionFundingRequest), fundingHandler.RequestFunding)

	admin := api.Group("/admin", middleware.RequireAdmin)
	admin.Post("/wallets/:id/freeze", walletHandler.FreezeWallet)
	admin.Post("/wallets/:id/unfreeze", walletHandler.UnfreezeWallet)
	admin.Post("/funding/:id/confirm", fundingHandler.ConfirmFunding)
	admin.Post("/sales/:id/refund", saleHandler.Refund)
	admin.Post("/adjustments", adjustmentHandler.Create)
	admin.Post("/adjustments/:id/verify", adjustmentHandler.Verify)
}
