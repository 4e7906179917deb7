package main

import (
	_ "time/tzdata"

	"petsit/internal/bookings/handler"
	"petsit/internal/bookings/repository"
	"petsit/internal/bookings/service"
	"petsit/internal/bookings/validator"
	"petsit/internal/catalog"
	"petsit/internal/notifications"
	"petsit/internal/wiring"
	"petsit/pkg/app"
	"petsit/pkg/config"
)

const ServiceName = "bookings"

func main() {
	cfg := config.Load(ServiceName)
	cfg.SetMongo()

	cfg.Log.Info("Starting Bookings service")
	serverApp := app.NewApplication(cfg)

	dispatcher, closeProducers := wiring.Dispatcher(cfg, ServiceName)
	serverApp.OnShutdown(closeProducers)

	bookingService := initServices(cfg, dispatcher)
	serverApp.SetApp(handler.NewBookingHandler(bookingService, cfg.Log))
	serverApp.Run()
}

func initServices(cfg *config.Config, dispatcher *notifications.Dispatcher) service.BookingService {
	codeIssuer := wiring.CodeIssuer(cfg)
	settlement := wiring.NewSettlement(cfg, dispatcher)

	bookingService := service.NewBookingService(service.Dependencies{
		Bookings:   repository.NewMongoBookingRepository(cfg),
		Locks:      repository.NewBookingLockRepository(cfg),
		Validator:  validator.NewBookingValidator(cfg.Log, cfg.MaxBookingSpanDays),
		Catalog:    catalog.NewMongoCatalog(cfg),
		Sessions:   settlement.SessionRepo,
		Codes:      settlement.CodeRepo,
		CodeIssuer: codeIssuer,
		Lifecycle:  wiring.SessionService(cfg, settlement, codeIssuer, dispatcher),
		Dispatcher: dispatcher,
	}, cfg)

	cfg.Log.Info("Booking service initialized", "database", cfg.MongoDatabaseName)
	return bookingService
}
