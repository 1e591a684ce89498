package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/rawblock/hui-federated/internal/config"
	"github.com/rawblock/hui-federated/internal/dbstore"
	"github.com/rawblock/hui-federated/internal/federated/admin"
	"github.com/rawblock/hui-federated/internal/federated/server"
)

func main() {
	log.Println("Starting HUI Federated Coordinator...")

	cfg := config.LoadServerConfig()

	var store *dbstore.Store
	if cfg.DatabaseURL != "" {
		var err error
		store, err = dbstore.Connect(context.Background(), cfg.DatabaseURL)
		if err != nil {
			log.Printf("Warning: failed to connect to PostgreSQL, continuing without persistence: %v", err)
		} else {
			defer store.Close()
			schema, err := os.ReadFile("internal/dbstore/schema.sql")
			if err != nil {
				log.Printf("Warning: failed to read schema file: %v", err)
			} else if err := store.InitSchema(context.Background(), string(schema)); err != nil {
				log.Printf("Warning: schema init failed: %v", err)
			}
		}
	}

	hub := admin.NewHub()
	go hub.Run()

	srv := server.New(server.Config{
		ListenAddr:   cfg.ListenAddr,
		MinClients:   cfg.MinClients,
		SamplingRate: cfg.SamplingRate,
		RoundTimeout: cfg.RoundTimeout,
		HeartbeatTTL: cfg.ClientTTL,
		Aggregation:  cfg.Aggregation,
		MinUtility:   cfg.Mining.MinUtility,
		Epsilon:      cfg.Epsilon,
		Sensitivity:  cfg.Sensitivity,
		ResultsDir:   cfg.ResultsDir,
	}, store, hub)

	router := admin.Router(hub, srv)
	go func() {
		log.Printf("Admin surface listening on %s", cfg.AdminAddr)
		if err := router.Run(cfg.AdminAddr); err != nil {
			log.Printf("Warning: admin server stopped: %v", err)
		}
	}()

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := srv.Run(ctx); err != nil {
		log.Fatalf("server stopped: %v", err)
	}
}
