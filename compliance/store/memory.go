// Package store provides ImportStore implementations.
package store

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/warp/payslip-compliance/compliance"
)

// =============================================================================
// MEMORY STORE - In-memory implementation (for testing/dev)
// =============================================================================

type Memory struct {
	mu      sync.RWMutex
	imports []compliance.ImportRecord
	ids     map[string]bool
}

func NewMemory() *Memory {
	return &Memory{ids: make(map[string]bool)}
}

// SaveImport stores a copy of rec, keeping imports ordered by ImportedAt.
func (m *Memory) SaveImport(_ context.Context, rec compliance.ImportRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.ids[rec.ID] {
		return fmt.Errorf("import %s already stored", rec.ID)
	}
	rec.Document = append([]byte(nil), rec.Document...)

	// Stable insertion point: equal timestamps keep save order
	i := sort.Search(len(m.imports), func(i int) bool {
		return m.imports[i].ImportedAt.After(rec.ImportedAt)
	})
	m.imports = append(m.imports, compliance.ImportRecord{})
	copy(m.imports[i+1:], m.imports[i:])
	m.imports[i] = rec
	m.ids[rec.ID] = true
	return nil
}

// ReplaceImport drops every stored import and keeps a copy of rec.
func (m *Memory) ReplaceImport(_ context.Context, rec compliance.ImportRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	rec.Document = append([]byte(nil), rec.Document...)
	m.imports = []compliance.ImportRecord{rec}
	m.ids = map[string]bool{rec.ID: true}
	return nil
}

// LatestImport returns the most recent import, or nil.
func (m *Memory) LatestImport(_ context.Context) (*compliance.ImportRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if len(m.imports) == 0 {
		return nil, nil
	}
	rec := m.imports[len(m.imports)-1]
	rec.Document = append([]byte(nil), rec.Document...)
	return &rec, nil
}

// DeleteImports drops everything.
func (m *Memory) DeleteImports(_ context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.imports = nil
	m.ids = make(map[string]bool)
	return nil
}

// Len returns the number of stored imports.
func (m *Memory) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.imports)
}

var _ compliance.ImportStore = (*Memory)(nil)
