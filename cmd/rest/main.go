package main

import (
	"context"
	"log"

	"school-chat-be/internal/bootstrap"
	"school-chat-be/internal/config"
	"school-chat-be/internal/server"
	"school-chat-be/internal/tracer"
	"school-chat-be/pkg/database"
)

func main() {
	// 0. Initialize Tracer
	shutdownTracer := tracer.InitTracer()
	defer shutdownTracer(context.Background())

	// 1. Load Configuration
	cfg := config.Load()

	// 2. Initialize Database
	gormDB, err := database.NewGormDBFromDSN(cfg.Database.Connection)
	if err != nil {
		log.Panicf("Unable to connect to GORM DB: %v", err)
	}

	// 3. Bootstrap Dependencies (Container)
	container := bootstrap.NewContainer(gormDB, cfg)
	defer container.Shutdown()

	// 4. Start Background Services
	go func() {
		log.Println("Background: Starting enrichment consumer...")
		if err := container.EnrichmentConsumer.Consume(context.Background()); err != nil {
			log.Printf("Background enrichment error: %v", err)
		}
	}()

	// 5. Initialize Server
	srv := server.New(cfg, container, container.Logger)

	// 6. Run Server
	log.Fatal(srv.Run())
}
