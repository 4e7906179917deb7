package main

import (
	"petsit/internal/sessions/handler"
	"petsit/internal/wiring"
	"petsit/pkg/app"
	"petsit/pkg/config"
)

const ServiceName = "sessions"

func main() {
	cfg := config.Load(ServiceName)
	cfg.SetMongo()

	cfg.Log.Info("Starting Sessions service")
	serverApp := app.NewApplication(cfg)

	dispatcher, closeProducers := wiring.Dispatcher(cfg, ServiceName)
	serverApp.OnShutdown(closeProducers)

	settlement := wiring.NewSettlement(cfg, dispatcher)
	sessionService := wiring.SessionService(cfg, settlement, wiring.CodeIssuer(cfg), dispatcher)
	cfg.Log.Info("Session service initialized", "database", cfg.MongoDatabaseName)

	serverApp.SetApp(handler.NewSessionHandler(sessionService, cfg.Log))
	serverApp.Run()
}
