package cache

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/dmitrijs2005/weeklog/internal/client/migrations"
	"github.com/pressly/goose/v3"

	_ "modernc.org/sqlite"
)

// gooseUp is a test seam.
var gooseUp = func(ctx context.Context, db *sql.DB) error {
	goose.SetBaseFS(migrations.Migrations)
	if err := goose.SetDialect("sqlite3"); err != nil {
		return fmt.Errorf("failed to set goose dialect: %w", err)
	}
	return goose.UpContext(ctx, db, ".")
}

// OpenDB opens the SQLite cache database at dsn and applies migrations.
func OpenDB(ctx context.Context, dsn string) (*sql.DB, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open cache db: %w", err)
	}
	// a single connection keeps ":memory:" databases shared and serialises writers
	db.SetMaxOpenConns(1)

	if err := gooseUp(ctx, db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to migrate cache db: %w", err)
	}
	return db, nil
}
