package main

import (
	"flag"
	"log"

	"taskfortime/internal/config"
	"taskfortime/internal/database"
)

// One-shot migration runner for deploys where the server should not
// apply schema changes itself.
func main() {
	migrationsPath := flag.String("migrations", "", "path to migration files (defaults to MIGRATIONS_PATH)")
	flag.Parse()

	cfg := config.Load()
	if *migrationsPath != "" {
		cfg.MigrationsPath = *migrationsPath
	}

	db, err := database.Open(cfg)
	if err != nil {
		log.Fatalf("Failed to open database: %v", err)
	}
	defer db.Close()

	if err := db.RunMigrations(cfg.MigrationsPath); err != nil {
		log.Fatalf("Failed to run migrations: %v", err)
	}
	log.Println("Migrations completed")
}
