package repository

import (
	_ "embed"
	"fmt"

	"github.com/pocketbase/dbx"
	_ "modernc.org/sqlite"
)

//go:embed schema.sql
var schema string

// OpenDB opens the SQLite database at path and bootstraps the schema.
// A single connection keeps SQLite writes serialized.
func OpenDB(path string) (*dbx.DB, error) {
	dsn := fmt.Sprintf("file:%s?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)&_pragma=foreign_keys(1)", path)

	db, err := dbx.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	db.DB().SetMaxOpenConns(1)
	db.DB().SetMaxIdleConns(1)

	if _, err := db.NewQuery(schema).Execute(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	return db, nil
}
