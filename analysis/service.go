/*
Package analysis runs a compliance analysis session.

PURPOSE:
  Holds the one active imported dataset, its aggregation by period, and
  the session's reference data (rate table + rule set). The HTTP API and
  the CLI drive it; it drives the compliance engine.

LIFECYCLE:
  1. NewService: rate table and rule set fixed for the session
  2. Restore:    reload the last import from the store, if any
  3. Import:     decode, aggregate, persist; replaces the active dataset
  4. Analyze:    evaluate one period on demand (verdicts are never stored)
  5. Reset:      drop the dataset and everything stored

RESTORE FAILURES:
  A stored document that no longer parses is deleted and the error is
  returned; the session starts empty.

CONCURRENCY:
  Session state is guarded by a sync.RWMutex. Import, Restore and Reset
  are serialized by a second mutex so the stored document and the active
  dataset change together. Evaluation happens outside both locks on an
  immutable snapshot of the dataset.

SEE ALSO:
  - compliance/engine.go: Evaluate / EvaluateAll
  - compliance/aggregate.go: Aggregate
  - factory/document.go: Document decoding
*/
package analysis

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/warp/payslip-compliance/compliance"
	"github.com/warp/payslip-compliance/factory"
	"go.uber.org/zap"
)

var (
	// ErrNoDataset is returned when an operation needs an imported dataset.
	ErrNoDataset = errors.New("no dataset imported")

	// ErrPeriodNotFound is returned when the dataset has no such period.
	ErrPeriodNotFound = errors.New("period not found")
)

// DefaultFileName is used when an import has no file name.
const DefaultFileName = "Fichier importé"

// Dataset is one imported document after aggregation. It is never
// modified once built.
type Dataset struct {
	ID          string
	FileName    string
	ImportedAt  time.Time
	RecordCount int
	Aggregation *compliance.Aggregation
}

// PeriodAnalysis is the evaluation of one period.
type PeriodAnalysis struct {
	Period   compliance.Period
	Verdicts compliance.Verdicts
}

// Config holds the session's fixed reference data.
type Config struct {
	Table   *compliance.RateTable
	Rules   *compliance.RuleSet
	Options factory.Options
	Logger  *zap.Logger
	Now     func() time.Time
}

// Service is an analysis session.
type Service struct {
	store   compliance.ImportStore
	table   *compliance.RateTable
	rules   *compliance.RuleSet
	options factory.Options
	logger  *zap.Logger
	now     func() time.Time

	// writeMu orders store writes with dataset swaps
	writeMu sync.Mutex

	mu      sync.RWMutex
	dataset *Dataset
}

// NewService creates a session with no dataset.
func NewService(store compliance.ImportStore, cfg Config) (*Service, error) {
	if cfg.Table == nil {
		return nil, errors.New("analysis: rate table required")
	}
	if cfg.Rules == nil {
		return nil, errors.New("analysis: rule set required")
	}
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	now := cfg.Now
	if now == nil {
		now = time.Now
	}
	return &Service{
		store:   store,
		table:   cfg.Table,
		rules:   cfg.Rules,
		options: cfg.Options,
		logger:  logger,
		now:     now,
	}, nil
}

// Table returns the session's rate table.
func (s *Service) Table() *compliance.RateTable { return s.table }

// Rules returns the session's rule set.
func (s *Service) Rules() *compliance.RuleSet { return s.rules }

// =============================================================================
// DATASET LIFECYCLE
// =============================================================================

// Import decodes and aggregates a document, persists it in place of any
// earlier import and makes it the active dataset. An invalid document
// leaves the current dataset in place.
func (s *Service) Import(ctx context.Context, fileName string, data []byte) (*Dataset, error) {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	if fileName == "" {
		fileName = DefaultFileName
	}
	rec := compliance.ImportRecord{
		ID:         uuid.NewString(),
		FileName:   fileName,
		Document:   data,
		ImportedAt: s.now(),
	}

	ds, err := s.build(rec)
	if err != nil {
		s.logger.Warn("import rejected", zap.String("file", fileName), zap.Error(err))
		return nil, err
	}

	if err := s.store.ReplaceImport(ctx, rec); err != nil {
		return nil, fmt.Errorf("save import: %w", err)
	}

	s.mu.Lock()
	s.dataset = ds
	s.mu.Unlock()

	s.logger.Info("dataset imported",
		zap.String("id", ds.ID),
		zap.String("file", ds.FileName),
		zap.Int("records", ds.RecordCount),
		zap.Int("periods", ds.Aggregation.Len()),
		zap.Int("duplicates", len(ds.Aggregation.Duplicates)),
		zap.Int("skipped", len(ds.Aggregation.Skipped)))
	return ds, nil
}

// Restore loads the latest stored import. It returns (nil, nil) when
// nothing is stored.
func (s *Service) Restore(ctx context.Context) (*Dataset, error) {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	rec, err := s.store.LatestImport(ctx)
	if err != nil {
		return nil, fmt.Errorf("load import: %w", err)
	}
	if rec == nil {
		return nil, nil
	}

	ds, err := s.build(*rec)
	if err != nil {
		s.logger.Error("stored import unreadable, discarding",
			zap.String("id", rec.ID), zap.Error(err))
		if delErr := s.store.DeleteImports(ctx); delErr != nil {
			return nil, errors.Join(err, fmt.Errorf("delete imports: %w", delErr))
		}
		return nil, err
	}

	s.mu.Lock()
	s.dataset = ds
	s.mu.Unlock()

	s.logger.Info("dataset restored",
		zap.String("id", ds.ID), zap.Int("periods", ds.Aggregation.Len()))
	return ds, nil
}

// Reset drops the active dataset and every stored import.
func (s *Service) Reset(ctx context.Context) error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	if err := s.store.DeleteImports(ctx); err != nil {
		return fmt.Errorf("delete imports: %w", err)
	}
	s.mu.Lock()
	s.dataset = nil
	s.mu.Unlock()

	s.logger.Info("dataset reset")
	return nil
}

func (s *Service) build(rec compliance.ImportRecord) (*Dataset, error) {
	records, err := factory.ParseDocument(rec.Document, s.options)
	if err != nil {
		return nil, err
	}
	agg := compliance.Aggregate(records)
	for _, skipped := range agg.Skipped {
		s.logger.Warn("bulletin skipped",
			zap.Int("index", skipped.Index), zap.Error(skipped.Err))
	}
	return &Dataset{
		ID:          rec.ID,
		FileName:    rec.FileName,
		ImportedAt:  rec.ImportedAt,
		RecordCount: len(records),
		Aggregation: agg,
	}, nil
}

// =============================================================================
// QUERIES
// =============================================================================

// Dataset returns the active dataset.
func (s *Service) Dataset() (*Dataset, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.dataset == nil {
		return nil, ErrNoDataset
	}
	return s.dataset, nil
}

// Periods returns the active dataset's periods in chronological order.
func (s *Service) Periods() ([]compliance.Period, error) {
	ds, err := s.Dataset()
	if err != nil {
		return nil, err
	}
	return ds.Aggregation.Periods(), nil
}

// Analyze evaluates every rule against one period.
func (s *Service) Analyze(key compliance.PeriodKey) (*PeriodAnalysis, error) {
	ds, err := s.Dataset()
	if err != nil {
		return nil, err
	}
	period, ok := ds.Aggregation.Get(key)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrPeriodNotFound, key)
	}
	return &PeriodAnalysis{
		Period:   period,
		Verdicts: compliance.Evaluate(period.Record, s.table, s.rules),
	}, nil
}

// Report evaluates every period of the active dataset.
func (s *Service) Report(ctx context.Context) ([]PeriodAnalysis, error) {
	ds, err := s.Dataset()
	if err != nil {
		return nil, err
	}
	all, err := compliance.EvaluateAll(ctx, ds.Aggregation, s.table, s.rules)
	if err != nil {
		return nil, err
	}

	periods := ds.Aggregation.Periods()
	out := make([]PeriodAnalysis, len(periods))
	for i, p := range periods {
		out[i] = PeriodAnalysis{Period: p, Verdicts: all[p.Key]}
	}
	return out, nil
}

// IsNotFound returns true if the error indicates missing session data.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNoDataset) || errors.Is(err, ErrPeriodNotFound) ||
		compliance.IsNotFound(err)
}
