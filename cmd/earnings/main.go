package main

import (
	"petsit/internal/earnings/handler"
	"petsit/internal/earnings/repository"
	"petsit/internal/earnings/service"
	"petsit/pkg/app"
	"petsit/pkg/config"
)

const ServiceName = "earnings"

func main() {
	cfg := config.Load(ServiceName)
	cfg.SetMongo()

	cfg.Log.Info("Starting Earnings service")
	earningsService := service.NewEarningsService(
		repository.NewMongoWalletRepository(cfg),
		repository.NewMongoLedgerRepository(cfg),
		cfg,
	)
	cfg.Log.Info("Earnings service initialized", "database", cfg.MongoDatabaseName)

	serverApp := app.NewApplication(cfg)
	serverApp.SetApp(handler.NewWalletHandler(earningsService, cfg.Log))
	serverApp.Run()
}
