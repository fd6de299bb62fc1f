package store

import (
	"context"
	"database/sql"
	_ "embed"
	"fmt"

	"github.com/cockroachdb/errors"
	_ "github.com/mattn/go-sqlite3"
)

//go:embed schema.sql
var schemaSQL string

// Schema version tracking:
// 0 - initial schema
// 1 - index on events.element_id for element history
const currentSchemaVersion = 1

// MemoryPath opens a private in-memory journal.
const MemoryPath = ":memory:"

// Store is the durable change journal.
type Store struct {
	db *sql.DB
}

// Open creates or opens a journal at path. The connection pool is pinned
// to a single connection, which also keeps a MemoryPath journal alive for
// the lifetime of the Store.
func Open(path string) (*Store, error) {
	const op = "store.Open"

	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, errors.Wrapf(err, "%s: open %s", op, path)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, errors.Wrapf(err, "%s: connect %s", op, path)
	}

	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	if err := applyPragmas(db); err != nil {
		db.Close()
		return nil, errors.Wrap(err, op)
	}
	if err := applySchema(db); err != nil {
		db.Close()
		return nil, errors.Wrap(err, op)
	}
	return &Store{db: db}, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	if s.db == nil {
		return nil
	}
	return s.db.Close()
}

// Query runs a read-only query against the journal. Callers close the rows.
func (s *Store) Query(ctx context.Context, query string, args ...any) (*sql.Rows, error) {
	return s.db.QueryContext(ctx, query, args...)
}

func applyPragmas(db *sql.DB) error {
	pragmas := []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA synchronous = NORMAL",
		"PRAGMA busy_timeout = 5000",
		"PRAGMA foreign_keys = ON",
	}
	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			return errors.Wrapf(err, "execute %q", pragma)
		}
	}
	return nil
}

func applySchema(db *sql.DB) error {
	if _, err := db.Exec(schemaSQL); err != nil {
		return errors.Wrap(err, "execute schema")
	}
	return runMigrations(db)
}

func runMigrations(db *sql.DB) error {
	var version int
	if err := db.QueryRow("PRAGMA user_version").Scan(&version); err != nil {
		return errors.Wrap(err, "get user_version")
	}

	if version < 1 {
		if err := migrateToV1(db); err != nil {
			return err
		}
	}

	if _, err := db.Exec(fmt.Sprintf("PRAGMA user_version = %d", currentSchemaVersion)); err != nil {
		return errors.Wrap(err, "set user_version")
	}
	return nil
}

func migrateToV1(db *sql.DB) error {
	_, err := db.Exec(`
		CREATE INDEX IF NOT EXISTS idx_events_element
		ON events(element_id, seq)
	`)
	return errors.Wrap(err, "migrate to v1")
}

// verifyPragma is used by tests.
func (s *Store) verifyPragma(name, expected string) error {
	var value string
	if err := s.db.QueryRow(fmt.Sprintf("PRAGMA %s", name)).Scan(&value); err != nil {
		return errors.Wrapf(err, "query %s", name)
	}
	if value != expected {
		return errors.Newf("%s = %q, expected %q", name, value, expected)
	}
	return nil
}
