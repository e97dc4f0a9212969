// Package main provides a read-only inspection tool for the Shelfmark
// database.
//
// Usage:
//
//	DB_PATH=~/.shelfmark/db go run ./cmd/dbinspect
package main

import (
	"fmt"
	"log"
	"os"
	"strings"

	"github.com/dgraph-io/badger/v4"
)

func main() {
	dbPath := os.Getenv("DB_PATH")
	if dbPath == "" {
		dbPath = os.ExpandEnv("$HOME/.shelfmark/db")
	}

	opts := badger.DefaultOptions(dbPath).
		WithReadOnly(true).
		WithLogger(nil)

	db, err := badger.Open(opts)
	if err != nil {
		log.Fatalf("Failed to open database: %v", err)
	}
	defer db.Close()

	fmt.Println("=== Database Inspection ===")
	fmt.Println()

	for _, prefix := range []string{"user:", "book:", "review:", "search:"} {
		entities, indexes, err := countPrefix(db, prefix)
		if err != nil {
			log.Fatalf("Failed to scan %q: %v", prefix, err)
		}
		fmt.Printf("%-10s %6d entities, %6d index keys\n", strings.TrimSuffix(prefix, ":"), entities, indexes)
	}
}

// countPrefix tallies entity and index keys under one key prefix.
func countPrefix(db *badger.DB, prefix string) (entities, indexes int, err error) {
	err = db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = []byte(prefix)
		opts.PrefetchValues = false
		it := txn.NewIterator(opts)
		defer it.Close()

		idxPrefix := prefix + "idx:"
		for it.Seek([]byte(prefix)); it.ValidForPrefix([]byte(prefix)); it.Next() {
			if strings.HasPrefix(string(it.Item().Key()), idxPrefix) {
				indexes++
			} else {
				entities++
			}
		}
		return nil
	})
	return entities, indexes, err
}
