/*
store.go - Persistence interface for imported documents

PURPOSE:
  Defines the interface between the session layer and storage. What is
  stored is the imported document exactly as received; the core never
  reads it back except to re-aggregate on restore.

KEY INTERFACES:
  ImportStore: save, replace, load latest, delete all imports

REPLACE-ON-IMPORT CONTRACT:
  One dataset is active at a time. ReplaceImport atomically drops every
  stored import and saves the new one, so the store holds at most the
  active document. SaveImport appends without deleting; LatestImport
  returns the most recent one, and DeleteImports discards everything
  (the "reset" operation).

IMPLEMENTATIONS:
  - store/sqlite/sqlite.go: SQLite file or :memory:
  - compliance/store/memory.go: In-memory for testing

SEE ALSO:
  - analysis/service.go: Higher-level session using ImportStore
*/
package compliance

import (
	"context"
	"time"
)

// ImportRecord is one imported document.
type ImportRecord struct {
	ID         string
	FileName   string
	Document   []byte
	ImportedAt time.Time
}

// ImportStore persists imported documents.
type ImportStore interface {
	// SaveImport persists a document. IDs must be unique.
	SaveImport(ctx context.Context, rec ImportRecord) error

	// ReplaceImport deletes every stored document and saves rec, as one
	// atomic step. On error the previous documents are kept.
	ReplaceImport(ctx context.Context, rec ImportRecord) error

	// LatestImport returns the most recently imported document, or nil if
	// there is none.
	LatestImport(ctx context.Context) (*ImportRecord, error)

	// DeleteImports removes every stored document.
	DeleteImports(ctx context.Context) error
}
