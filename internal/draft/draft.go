// Package draft provides the SQLite-backed draft table: unsaved note
// content keyed by (folder, filename), surviving process restarts.
//
// Drafts are scoped to the folder they were edited in, so a draft can
// never resurface under a same-named file in a different folder.
package draft

import (
	"database/sql"
	"errors"
	"fmt"

	_ "github.com/mattn/go-sqlite3"
)

const schemaSQL = `
CREATE TABLE IF NOT EXISTS drafts (
	folder     TEXT NOT NULL,
	filename   TEXT NOT NULL,
	content    TEXT NOT NULL DEFAULT '',
	updated_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
	PRIMARY KEY (folder, filename)
);
`

// Store defines the draft table operations. Consumers should depend on
// this interface rather than the concrete *DB type to facilitate
// testing with mocks.
type Store interface {
	Get(folder, name string) (string, bool, error)
	Put(folder, name, content string) error
	Delete(folder, name string) error
	Rename(folder, oldName, newName string) error
	Names(folder string) (map[string]struct{}, error)
	Close() error
}

// DB wraps a sql.DB with draft-table operations.
type DB struct {
	conn *sql.DB
}

// Verify *DB satisfies Store at compile time.
var _ Store = (*DB)(nil)

// Open opens (or creates) the SQLite database and applies the schema.
func Open(dsn string) (*DB, error) {
	conn, err := sql.Open("sqlite3", dsn+"?_journal_mode=WAL&_busy_timeout=5000&_foreign_keys=on")
	if err != nil {
		return nil, fmt.Errorf("draft: open db: %w", err)
	}
	if err := conn.Ping(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("draft: ping: %w", err)
	}
	if _, err := conn.Exec(schemaSQL); err != nil {
		conn.Close()
		return nil, fmt.Errorf("draft: apply schema: %w", err)
	}
	return &DB{conn: conn}, nil
}

// Close closes the underlying database connection.
func (db *DB) Close() error {
	return db.conn.Close()
}

// Get returns the draft content for a note. The second return value is
// false when no draft exists.
func (db *DB) Get(folder, name string) (string, bool, error) {
	var content string
	err := db.conn.QueryRow(
		`SELECT content FROM drafts WHERE folder = ? AND filename = ?`,
		folder, name,
	).Scan(&content)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("draft: get %s: %w", name, err)
	}
	return content, true, nil
}

// Put inserts or replaces the draft for a note.
func (db *DB) Put(folder, name, content string) error {
	_, err := db.conn.Exec(`
		INSERT INTO drafts (folder, filename, content, updated_at)
		VALUES (?, ?, ?, CURRENT_TIMESTAMP)
		ON CONFLICT(folder, filename) DO UPDATE SET
			content    = excluded.content,
			updated_at = excluded.updated_at
	`, folder, name, content)
	if err != nil {
		return fmt.Errorf("draft: put %s: %w", name, err)
	}
	return nil
}

// Delete removes the draft for a note. Deleting a non-existent draft is
// a no-op.
func (db *DB) Delete(folder, name string) error {
	if _, err := db.conn.Exec(
		`DELETE FROM drafts WHERE folder = ? AND filename = ?`,
		folder, name,
	); err != nil {
		return fmt.Errorf("draft: delete %s: %w", name, err)
	}
	return nil
}

// Rename migrates the draft row from oldName to newName within a
// transaction, so unsaved edits survive a note rename. No draft for
// oldName is a no-op.
func (db *DB) Rename(folder, oldName, newName string) error {
	tx, err := db.conn.Begin()
	if err != nil {
		return fmt.Errorf("draft: begin tx: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // best-effort on failure path

	var content string
	err = tx.QueryRow(
		`SELECT content FROM drafts WHERE folder = ? AND filename = ?`,
		folder, oldName,
	).Scan(&content)
	if errors.Is(err, sql.ErrNoRows) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("draft: rename lookup %s: %w", oldName, err)
	}

	if _, err := tx.Exec(
		`DELETE FROM drafts WHERE folder = ? AND filename = ?`,
		folder, oldName,
	); err != nil {
		return fmt.Errorf("draft: rename delete %s: %w", oldName, err)
	}
	if _, err := tx.Exec(`
		INSERT INTO drafts (folder, filename, content, updated_at)
		VALUES (?, ?, ?, CURRENT_TIMESTAMP)
		ON CONFLICT(folder, filename) DO UPDATE SET
			content    = excluded.content,
			updated_at = excluded.updated_at
	`, folder, newName, content); err != nil {
		return fmt.Errorf("draft: rename insert %s: %w", newName, err)
	}

	return tx.Commit()
}

// Names returns the set of filenames with a draft in the given folder.
// The result drives the dirty flags in listings.
func (db *DB) Names(folder string) (map[string]struct{}, error) {
	rows, err := db.conn.Query(`SELECT filename FROM drafts WHERE folder = ?`, folder)
	if err != nil {
		return nil, fmt.Errorf("draft: names: %w", err)
	}
	defer rows.Close()

	out := make(map[string]struct{})
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, err
		}
		out[name] = struct{}{}
	}
	return out, rows.Err()
}
