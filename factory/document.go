/*
Package factory converts external documents into compliance values.

PURPOSE:
  Decodes the documents the system consumes: imported payslip exports
  (JSON), additional fiscal-year rate tables (YAML) and declarative rule
  sets (YAML). The compliance engine never sees malformed top-level
  structure; this package rejects it first.

JSON DOCUMENT SCHEMA:
  {
    "bulletins": [
      {
        "annee": 2024,
        "mois": "Janvier",
        "salaire_brut": 5000,
        "net_imposable": 3950.12,
        "net_social": 3901.4,
        "cout_global": 7012.5,
        "maladie": {"basep": 5000, "tauxp": 0.13, "montantp": 650},
        ...
      }
    ]
  }

KEY FEATURES:
  - Rejects non-object documents, missing or non-array "bulletins"
  - Rejects bulletins missing "annee" or "mois", with their index
  - Tolerates any missing contribution figure
  - Optional percent-to-fraction conversion of rate columns

USAGE:
  records, err := factory.ParseDocument(data, factory.Options{})
  if errors.Is(err, factory.ErrInvalidDocument) { ... }
  agg := compliance.Aggregate(records)

SEE ALSO:
  - ratetable.go: YAML rate tables
  - rules.go: YAML rule sets
  - compliance/types.go: PayslipRecord decoding
*/
package factory

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/warp/payslip-compliance/compliance"
)

// ErrInvalidDocument is returned when a document does not have the
// expected top-level shape.
var ErrInvalidDocument = errors.New("invalid document")

// DocumentError describes why a document was rejected. Index is the
// offending bulletin, or -1 for a top-level problem.
type DocumentError struct {
	Index  int
	Reason string
	Err    error
}

func (e *DocumentError) Error() string {
	msg := e.Reason
	if e.Index >= 0 {
		msg = fmt.Sprintf("bulletin %d: %s", e.Index, e.Reason)
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return "invalid document: " + msg
}

func (e *DocumentError) Unwrap() error {
	return ErrInvalidDocument
}

// Options controls document decoding.
type Options struct {
	// PercentRates converts every rate column from percent to fraction.
	PercentRates bool
}

const bulletinsKey = "bulletins"

// ParseDocument decodes a {"bulletins": [...]} document.
func ParseDocument(data []byte, opts Options) ([]compliance.PayslipRecord, error) {
	var top map[string]json.RawMessage
	if err := json.Unmarshal(data, &top); err != nil {
		return nil, &DocumentError{Index: -1, Reason: "not a JSON object", Err: err}
	}
	raw, ok := top[bulletinsKey]
	if !ok {
		return nil, &DocumentError{Index: -1, Reason: `missing "bulletins"`}
	}

	var items []json.RawMessage
	if err := json.Unmarshal(raw, &items); err != nil || items == nil {
		return nil, &DocumentError{Index: -1, Reason: `"bulletins" is not an array`}
	}

	records := make([]compliance.PayslipRecord, 0, len(items))
	for i, item := range items {
		rec, err := parseBulletin(item)
		if err != nil {
			var docErr *DocumentError
			if errors.As(err, &docErr) {
				docErr.Index = i
				return nil, docErr
			}
			return nil, &DocumentError{Index: i, Reason: "malformed bulletin", Err: err}
		}
		if opts.PercentRates {
			rec = rec.WithPercentRates()
		}
		records = append(records, rec)
	}
	return records, nil
}

func parseBulletin(item json.RawMessage) (compliance.PayslipRecord, error) {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(item, &fields); err != nil || fields == nil {
		return compliance.PayslipRecord{}, &DocumentError{Reason: "not an object"}
	}
	for _, required := range []string{"annee", "mois"} {
		if _, ok := fields[required]; !ok {
			return compliance.PayslipRecord{}, &DocumentError{Reason: fmt.Sprintf("missing %q", required)}
		}
	}

	var rec compliance.PayslipRecord
	if err := json.Unmarshal(item, &rec); err != nil {
		return compliance.PayslipRecord{}, err
	}
	return rec, nil
}
