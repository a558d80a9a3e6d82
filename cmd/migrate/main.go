package main

import (
	"fmt"
	"log"

	"ledger/internal/config"
	"ledger/internal/db"
)

func main() {
	cfg := config.Load()
	database, err := db.Connect(cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("failed to connect database: %v", err)
	}
	defer database.Close()

	applied, err := db.Migrate(database)
	if err != nil {
		log.Fatalf("migration failed after %d file(s): %v", len(applied), err)
	}
	if len(applied) == 0 {
		fmt.Println("schema up to date")
		return
	}
	fmt.Printf("applied %d migration(s)\n", len(applied))
}
