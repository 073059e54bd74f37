/*
Package sqlite provides a SQLite-backed implementation of the storage interfaces.

PURPOSE:
  Implements compliance.ImportStore using SQLite. It keeps the imported
  payslip documents verbatim so a session can be restored after restart
  and discarded on reset.

INTERFACES IMPLEMENTED:
  compliance.ImportStore: Imported document persistence

KEY TABLES:
  imports: One row per imported document (raw JSON bytes + file name)

INDEXES:
  - idx_imports_imported_at: Latest-import lookup (hot path on restore)

CONCURRENCY:
  Uses sync.RWMutex for thread-safety on top of SQLite's own locking.

WAL MODE:
  SQLite is opened with WAL (Write-Ahead Logging):
  - Readers don't block the writer
  - Better crash recovery

USAGE:
  store, err := sqlite.New("./data/paycheck.db")
  if err != nil {
      log.Fatal(err)
  }
  defer store.Close()

  svc := analysis.NewService(store, ...)

MIGRATION:
  Schema is auto-migrated on New().

SEE ALSO:
  - compliance/store.go: Interface definition
  - compliance/store/memory.go: In-memory implementation for testing
*/
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/warp/payslip-compliance/compliance"
)

// timeLayout is fixed-width so stored timestamps sort as text.
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

// ErrDuplicateImport is returned when an import ID is saved twice.
var ErrDuplicateImport = errors.New("duplicate import id")

// Store implements all storage interfaces using SQLite.
type Store struct {
	db *sql.DB
	mu sync.RWMutex
}

// New creates a new SQLite store with the given database path.
// Use ":memory:" for an in-memory database.
func New(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_foreign_keys=on&_journal_mode=WAL")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if dbPath == ":memory:" {
		// Every pooled connection would get its own empty database
		db.SetMaxOpenConns(1)
	}

	store := &Store{db: db}
	if err := store.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	return store, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// migrate creates the database schema.
func (s *Store) migrate() error {
	schema := `
	-- Imported documents, stored verbatim
	CREATE TABLE IF NOT EXISTS imports (
		seq INTEGER PRIMARY KEY AUTOINCREMENT,
		id TEXT NOT NULL UNIQUE,
		file_name TEXT NOT NULL,
		document BLOB NOT NULL,
		imported_at TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_imports_imported_at
		ON imports(imported_at DESC, seq DESC);
	`

	_, err := s.db.Exec(schema)
	return err
}

// =============================================================================
// IMPORT STORE (compliance.ImportStore interface)
// =============================================================================

// SaveImport persists an imported document.
func (s *Store) SaveImport(ctx context.Context, rec compliance.ImportRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	return insertImport(ctx, s.db, rec)
}

// ReplaceImport deletes every stored document and inserts rec in one
// transaction.
func (s *Store) ReplaceImport(ctx context.Context, rec compliance.ImportRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, "DELETE FROM imports"); err != nil {
		return fmt.Errorf("failed to delete imports: %w", err)
	}
	if err := insertImport(ctx, tx, rec); err != nil {
		return err
	}
	return tx.Commit()
}

// LatestImport returns the most recent import, or nil if there is none.
func (s *Store) LatestImport(ctx context.Context) (*compliance.ImportRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var rec compliance.ImportRecord
	var importedAt string

	err := s.db.QueryRowContext(ctx,
		"SELECT id, file_name, document, imported_at FROM imports ORDER BY imported_at DESC, seq DESC LIMIT 1",
	).Scan(&rec.ID, &rec.FileName, &rec.Document, &importedAt)

	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	rec.ImportedAt, _ = time.Parse(timeLayout, importedAt)
	return &rec, nil
}

// DeleteImports removes every stored document.
func (s *Store) DeleteImports(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.ExecContext(ctx, "DELETE FROM imports")
	return err
}

// CountImports returns the number of stored documents.
func (s *Store) CountImports(ctx context.Context) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var n int
	err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM imports").Scan(&n)
	return n, err
}

var _ compliance.ImportStore = (*Store)(nil)

// Helper functions

// execer is satisfied by *sql.DB and *sql.Tx.
type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

func insertImport(ctx context.Context, db execer, rec compliance.ImportRecord) error {
	importedAt := rec.ImportedAt
	if importedAt.IsZero() {
		importedAt = time.Now()
	}

	_, err := db.ExecContext(ctx,
		"INSERT INTO imports (id, file_name, document, imported_at) VALUES (?, ?, ?, ?)",
		rec.ID, rec.FileName, rec.Document, importedAt.UTC().Format(timeLayout),
	)
	if err != nil {
		if isUniqueConstraintError(err) {
			return fmt.Errorf("%w: %s", ErrDuplicateImport, rec.ID)
		}
		return fmt.Errorf("failed to save import: %w", err)
	}
	return nil
}

func isUniqueConstraintError(err error) bool {
	return err != nil && (strings.Contains(err.Error(), "UNIQUE constraint failed") ||
		strings.Contains(err.Error(), "duplicate key"))
}
