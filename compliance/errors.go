/*
errors.go - Centralized error types for the compliance engine

PURPOSE:
  All error types in one place for consistency and discoverability.
  Outer layers (factory, analysis, api) wrap these with additional context.

ERROR CATEGORIES:
  1. Hard failures - UnknownFiscalYear, raised to the caller
  2. Degraded outcomes - UnrecognizedMonth (record skipped), UnresolvedField
     (verdict forced to non-compliant); never abort a batch
  3. Construction errors - invalid paths, duplicate rules or fiscal years

USAGE:
  table, err := registry.Load(2025)
  if errors.Is(err, compliance.ErrUnknownFiscalYear) {
      // fall back to a known year or abort the analysis
  }

SEE ALSO:
  - ratetable.go: Raises UnknownFiscalYearError
  - aggregate.go: Records UnrecognizedMonthError per skipped record
  - fieldpath.go: Returns UnresolvedFieldError
*/
package compliance

import (
	"errors"
	"fmt"
	"strings"
)

// =============================================================================
// SENTINEL ERRORS - Use with errors.Is()
// =============================================================================

var (
	// ErrUnknownFiscalYear is returned when no rate table is registered for
	// the requested year.
	ErrUnknownFiscalYear = errors.New("unknown fiscal year")

	// ErrUnrecognizedMonthName is returned when a period label is outside
	// the fixed month table.
	ErrUnrecognizedMonthName = errors.New("unrecognized month name")

	// ErrUnresolvedField is returned when a field path does not resolve
	// against a record.
	ErrUnresolvedField = errors.New("unresolved field")

	// ErrInvalidFieldPath is returned when a path string is not one of the
	// known record shapes.
	ErrInvalidFieldPath = errors.New("invalid field path")

	// ErrInvalidRule is returned when a rule is missing a name, predicate or target.
	ErrInvalidRule = errors.New("invalid rule")

	// ErrDuplicateRule is returned when two rules in a set share a name.
	ErrDuplicateRule = errors.New("duplicate rule name")

	// ErrDuplicateFiscalYear is returned when two rate tables share a year.
	ErrDuplicateFiscalYear = errors.New("duplicate fiscal year")

	// ErrInvalidPeriodKey is returned when a period key string is malformed.
	ErrInvalidPeriodKey = errors.New("invalid period key")
)

// =============================================================================
// STRUCTURED ERRORS - Carry additional context
// =============================================================================

// UnknownFiscalYearError names the requested year and the years on record.
type UnknownFiscalYearError struct {
	Year  int
	Known []int
}

func (e *UnknownFiscalYearError) Error() string {
	known := make([]string, len(e.Known))
	for i, y := range e.Known {
		known[i] = fmt.Sprint(y)
	}
	return fmt.Sprintf("no rate table registered for fiscal year %d (known: %s)",
		e.Year, strings.Join(known, ", "))
}

func (e *UnknownFiscalYearError) Unwrap() error {
	return ErrUnknownFiscalYear
}

// UnrecognizedMonthError carries the offending label.
type UnrecognizedMonthError struct {
	Label MonthLabel
}

func (e *UnrecognizedMonthError) Error() string {
	return fmt.Sprintf("unrecognized month name %q", string(e.Label))
}

func (e *UnrecognizedMonthError) Unwrap() error {
	return ErrUnrecognizedMonthName
}

// UnresolvedFieldError names the path and the first segment that missed.
type UnresolvedFieldError struct {
	Path    FieldPath
	Segment string
}

func (e *UnresolvedFieldError) Error() string {
	return fmt.Sprintf("field %s: segment %q not present", e.Path, e.Segment)
}

func (e *UnresolvedFieldError) Unwrap() error {
	return ErrUnresolvedField
}

// =============================================================================
// ERROR HELPERS
// =============================================================================

// IsNotFound returns true if the error indicates missing reference data.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrUnknownFiscalYear)
}

// IsClientError returns true if the error is due to invalid caller input.
func IsClientError(err error) bool {
	return errors.Is(err, ErrInvalidFieldPath) ||
		errors.Is(err, ErrInvalidRule) ||
		errors.Is(err, ErrDuplicateRule) ||
		errors.Is(err, ErrInvalidPeriodKey) ||
		errors.Is(err, ErrUnrecognizedMonthName)
}
