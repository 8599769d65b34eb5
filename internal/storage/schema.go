package storage

import (
	"context"
	"database/sql"
	"fmt"
)

// The table layouts are shared with other tools reading the same database
// file and must not change.
const createSnippetsTable = `
CREATE TABLE IF NOT EXISTS code_snippets (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    file_path TEXT NOT NULL,
    dir_path TEXT,
    name TEXT NOT NULL,
    type TEXT CHECK(type IN ('class', 'function', 'import')) NOT NULL,
    description TEXT,
    code TEXT NOT NULL,
    line_start INTEGER,
    line_end INTEGER,
    char_count INTEGER,
    tags TEXT,
    updated_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
)`

const createFilesTable = `
CREATE TABLE IF NOT EXISTS code_files (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    file_path TEXT UNIQUE,
    last_parsed_time TIMESTAMP
)`

var indexes = []string{
	`CREATE INDEX IF NOT EXISTS idx_code_snippets_file_path ON code_snippets(file_path)`,
	`CREATE INDEX IF NOT EXISTS idx_code_snippets_name ON code_snippets(name)`,
	`CREATE INDEX IF NOT EXISTS idx_code_snippets_type ON code_snippets(type)`,
	`CREATE UNIQUE INDEX IF NOT EXISTS idx_code_snippets_file_name ON code_snippets(file_path, name)`,
}

// createSchema creates tables and indexes if they do not exist.
func createSchema(ctx context.Context, db *sql.DB) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin schema transaction: %w", err)
	}
	defer tx.Rollback() // Safe to call even after commit

	tables := []struct {
		name string
		ddl  string
	}{
		{"code_snippets", createSnippetsTable},
		{"code_files", createFilesTable},
	}
	for _, table := range tables {
		if _, err := tx.ExecContext(ctx, table.ddl); err != nil {
			return fmt.Errorf("failed to create %s table: %w", table.name, err)
		}
	}
	if err := collapseDuplicates(ctx, tx); err != nil {
		return err
	}
	for i, idx := range indexes {
		if _, err := tx.ExecContext(ctx, idx); err != nil {
			return fmt.Errorf("failed to create index %d: %w", i+1, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit schema transaction: %w", err)
	}
	return nil
}

// collapseDuplicates keeps the newest row per (file_path, name) in databases
// written before the unique index existed.
func collapseDuplicates(ctx context.Context, tx *sql.Tx) error {
	var exists int
	err := tx.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM sqlite_master WHERE type = 'index' AND name = 'idx_code_snippets_file_name'`,
	).Scan(&exists)
	if err != nil {
		return fmt.Errorf("failed to inspect indexes: %w", err)
	}
	if exists > 0 {
		return nil
	}
	if _, err := tx.ExecContext(ctx,
		`DELETE FROM code_snippets WHERE id NOT IN (SELECT MAX(id) FROM code_snippets GROUP BY file_path, name)`,
	); err != nil {
		return fmt.Errorf("failed to collapse duplicate snippets: %w", err)
	}
	return nil
}
