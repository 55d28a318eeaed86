package db

import (
	"context"
	"fmt"
)

// CreateTables creates every table that does not exist yet.
func (db *DB) CreateTables(ctx context.Context) error {
	for _, table := range db.catalog.CreateOrder() {
		if _, err := db.pool.Exec(ctx, table.Create); err != nil {
			return fmt.Errorf("creating table %s: %w", table.Name, err)
		}
	}
	return nil
}

// DropTables drops every table, fact table first.
func (db *DB) DropTables(ctx context.Context) error {
	for _, table := range db.catalog.DropOrder() {
		if _, err := db.pool.Exec(ctx, table.Drop); err != nil {
			return fmt.Errorf("dropping table %s: %w", table.Name, err)
		}
	}
	return nil
}

// Reset drops and recreates every table.
func (db *DB) Reset(ctx context.Context) error {
	if err := db.DropTables(ctx); err != nil {
		return err
	}
	return db.CreateTables(ctx)
}
