package main

import (
	"context"
	"flag"
	"log"
	"os"

	"github.com/joho/godotenv"

	"github.com/hetulpatel/trackledger/internal/storage/sqlite"
)

func main() {
	godotenv.Load()
	drop := flag.Bool("drop", false, "drop the ledger tables before recreating them")
	clear := flag.Bool("clear", false, "delete all rows, keeping the schema")
	flag.Parse()

	store, err := sqlite.Open(os.Getenv("SQLITE_PATH"))
	if err != nil {
		log.Fatalf("open sqlite: %v", err)
	}
	defer store.Close()

	ctx := context.Background()
	if *drop {
		if err := store.DropTables(ctx); err != nil {
			log.Fatalf("drop tables: %v", err)
		}
	}
	if err := store.CreateTables(ctx); err != nil {
		log.Fatalf("create tables: %v", err)
	}
	if *clear {
		if err := store.ClearTables(ctx); err != nil {
			log.Fatalf("clear tables: %v", err)
		}
	}
	log.Printf("ledger schema ready at %s", store.Path())
}
