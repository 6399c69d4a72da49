// @title Test Hub API
// @version 1.0
// @description Skills-assessment session engine: question generation, graded answer submission, resumable sessions and retakes.

// @host localhost:8080
// @BasePath /api
// @securityDefinitions.apikey ApiKeyAuth
// @in header
// @name Authorization

package main

import (
	"flag"
	"log"
	"path/filepath"
	"testhub_backend/internal/app"
	"testhub_backend/internal/config"
	"testhub_backend/pkg/configwatcher"
	"testhub_backend/pkg/logger"
)

func main() {
	migrateOnly := flag.Bool("migrate-only", false, "run database migration and exit")
	flag.Parse()

	cfg, err := config.LoadConfig("configs")
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	cfg.ForceMigrate = *migrateOnly
	cfg.MigrateOnly = *migrateOnly

	application := app.NewApp(cfg)
	defer logger.Log.Sync()

	if *migrateOnly {
		log.Println("Database migration completed, exiting")
		return
	}

	go configwatcher.WatchConfig(filepath.Join("configs", "config.yaml"), application.ReloadConfig)

	application.Run()
}
