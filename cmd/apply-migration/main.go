package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"time"

	"dental-ledger/common/database"
	"dental-ledger/internal/config"
)

// Applies one or more .sql files in order, each in its own transaction.
func main() {
	if len(os.Args) < 2 {
		log.Fatalf("Usage: %s <migration_file.sql>...", os.Args[0])
	}

	cfg := config.Load()
	db, err := database.NewPostgresDB(&cfg.Database)
	if err != nil {
		log.Fatalf("Cannot connect to database: %v", err)
	}
	defer db.Close()

	fmt.Printf("Connected to database: %s@%s:%d/%s\n\n", cfg.Database.User, cfg.Database.Host, cfg.Database.Port, cfg.Database.Database)

	for _, file := range os.Args[1:] {
		sqlContent, err := os.ReadFile(file)
		if err != nil {
			log.Fatalf("Failed to read migration file %s: %v", file, err)
		}

		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
		err = apply(ctx, db, string(sqlContent))
		cancel()
		if err != nil {
			log.Fatalf("Failed to apply %s: %v", file, err)
		}
		fmt.Printf("Applied %s\n", file)
	}

	fmt.Println("Migration completed successfully")
}
