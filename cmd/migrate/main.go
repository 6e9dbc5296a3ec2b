package main

import (
	"context"
	"flag"

	"fleetbilling/internal/config"
	"fleetbilling/internal/database"
	"fleetbilling/internal/logger"
)

// migrate applies the schema and the after-migrate fix-ups, then exits.
func main() {
	configPath := flag.String("config", "", "path to config file (default ./configs/config.yaml)")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		logger.New(config.LogConfig{}).Fatalf("Failed to load config: %v", err)
	}
	log := logger.New(cfg.Log)

	db, err := database.NewConnection(cfg.Database)
	if err != nil {
		log.Fatalf("Database connection failed: %v", err)
	}

	if err := database.Migrate(context.Background(), db, log, cfg.Migration); err != nil {
		log.Fatalf("Migration failed: %v", err)
	}
	log.Info("Migration complete")
}
