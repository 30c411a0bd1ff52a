package main

import (
	"log"

	"pomodoroplaza/internal/config"
	"pomodoroplaza/internal/db"
)

func main() {
	cfg := config.Load()
	database, err := db.OpenSQLite(cfg.DBPath)
	if err != nil {
		log.Fatalf("open database: %v", err)
	}
	defer database.Close()

	applied, err := db.RunMigrations(database, db.MigrationSource(cfg.MigrationsDir))
	if err != nil {
		log.Fatalf("run migrations: %v", err)
	}

	if len(applied) == 0 {
		log.Println("schema is up to date")
		return
	}
	log.Printf("applied %d migrations", len(applied))
}
